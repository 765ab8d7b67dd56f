package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const (
	maxBodyBytes = 2 << 20 // 2MB of HTML is plenty for a job posting
	// Pages that render almost no text are either JS-only or protected;
	// neither can be salvaged by re-fetching.
	minPostingChars = 200

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

var (
	// ErrInvalidURL indicates a job URL that could not be parsed at all.
	ErrInvalidURL = errors.New("invalid url")
	// ErrFetchBlocked indicates the remote refused the request or served an
	// anti-automation page. Callers should suggest pasting the posting text
	// instead; repeating the fetch is what gets automated clients blocked.
	ErrFetchBlocked = errors.New("fetch blocked")
	// ErrFetchTimeout indicates the fetch exceeded its deadline.
	ErrFetchTimeout = errors.New("fetch timeout")
)

// Fetcher retrieves job postings over HTTP and reduces them to plain text.
type Fetcher struct {
	httpClient *http.Client
}

// NewFetcher constructs a Fetcher with the given per-request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// JobPosting fetches the URL once and strips the response to plain text.
// There is no caching and no automatic retry.
func (f *Fetcher) JobPosting(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", fmt.Errorf("job url %q: %w", rawURL, ErrInvalidURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("job url %q: %w", rawURL, ErrInvalidURL)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("fetch %s: %w", parsed.Host, ErrFetchTimeout)
		}
		return "", fmt.Errorf("fetch %s: %v: %w", parsed.Host, err, ErrFetchBlocked)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d: %w", parsed.Host, resp.StatusCode, ErrFetchBlocked)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("fetch %s: read body: %w", parsed.Host, ErrFetchTimeout)
		}
		return "", fmt.Errorf("fetch %s: read body: %v: %w", parsed.Host, err, ErrFetchBlocked)
	}

	text := HTMLToText(string(body))
	if looksLikeChallenge(text) {
		return "", fmt.Errorf("fetch %s: anti-automation page: %w", parsed.Host, ErrFetchBlocked)
	}
	if len(text) < minPostingChars {
		return "", fmt.Errorf("fetch %s: page yielded %d chars of text: %w", parsed.Host, len(text), ErrFetchBlocked)
	}
	return text, nil
}

// HTMLToText strips markup, dropping script/style and page chrome elements,
// and collapses whitespace to single spaces.
func HTMLToText(rawHTML string) string {
	doc, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return collapseWhitespace(rawHTML)
	}

	var buf strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skippedElement(n.Data) {
			return
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if buf.Len() > 0 {
					buf.WriteByte(' ')
				}
				buf.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return collapseWhitespace(buf.String())
}

func skippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "nav", "header", "footer", "iframe", "svg", "form":
		return true
	}
	return false
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func looksLikeChallenge(text string) bool {
	// Challenge pages are short and lead with a verification demand.
	if len(text) > 2000 {
		return false
	}
	lower := strings.ToLower(text)
	for _, marker := range []string{
		"captcha",
		"verify you are human",
		"are you a robot",
		"access denied",
		"enable javascript and cookies to continue",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var timeoutErr interface{ Timeout() bool }
	if errors.As(err, &timeoutErr) && timeoutErr.Timeout() {
		return true
	}
	return strings.Contains(err.Error(), "Client.Timeout")
}
