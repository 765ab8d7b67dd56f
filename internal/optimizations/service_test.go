package optimizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/scrape"
)

const goodModelOutput = `OPTIMIZED RESUME:
Python-curious Java developer, 3 years of backend experience.

SUGGESTIONS:
1. Call out any AWS exposure
2. Emphasize backend service work

MATCH SCORE:
45%`

type scriptedReply struct {
	out string
	err error
}

type fakeLLM struct {
	replies []scriptedReply
	calls   int
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.calls >= len(f.replies) {
		return "", fmt.Errorf("fakeLLM: unexpected call %d", f.calls+1)
	}
	reply := f.replies[f.calls]
	f.calls++
	return reply.out, reply.err
}

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) JobPosting(ctx context.Context, rawURL string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type failingRepo struct{}

func (failingRepo) Create(ctx context.Context, opt Optimization) error {
	return errors.New("connection refused")
}
func (failingRepo) GetByID(ctx context.Context, id string) (Optimization, error) {
	return Optimization{}, ErrNotFound
}
func (failingRepo) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	return nil, errors.New("connection refused")
}
func (failingRepo) Delete(ctx context.Context, id string) error {
	return errors.New("connection refused")
}

func newTestService(client *fakeLLM, fetcher *fakeFetcher) *Service {
	return &Service{
		Repo:    NewMemoryRepo(),
		LLM:     client,
		Fetcher: fetcher,
		backoff: func(ctx context.Context, d time.Duration) error { return nil },
	}
}

func textInput() OptimizeInput {
	return OptimizeInput{
		ResumeText: "Java developer, 3 years, no cloud experience",
		JobText:    "Seeking Python backend engineer with AWS experience",
	}
}

func TestOptimizeSuccessPersistsRecord(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{{out: goodModelOutput}}}
	svc := newTestService(client, &fakeFetcher{})

	record, err := svc.Optimize(context.Background(), textInput())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if record.ID == "" || record.CreatedAt.IsZero() {
		t.Fatalf("record missing identity: %+v", record)
	}
	if record.MatchScore != 0.45 {
		t.Fatalf("match score = %v, want 0.45", record.MatchScore)
	}
	if len(record.Suggestions) != 2 {
		t.Fatalf("suggestions = %#v", record.Suggestions)
	}
	if client.calls != 1 {
		t.Fatalf("expected exactly one model call, got %d", client.calls)
	}

	stored, err := svc.Get(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("Get after Optimize: %v", err)
	}
	if stored.OptimizedResume != record.OptimizedResume {
		t.Fatal("stored record differs from returned record")
	}
}

func TestOptimizeValidatesInputBundle(t *testing.T) {
	tests := []struct {
		name string
		in   OptimizeInput
	}{
		{name: "no resume source", in: OptimizeInput{JobText: "job"}},
		{name: "both resume sources", in: OptimizeInput{ResumeFile: []byte("x"), ResumeText: "text", JobText: "job"}},
		{name: "no job source", in: OptimizeInput{ResumeText: "resume"}},
		{name: "both job sources", in: OptimizeInput{ResumeText: "resume", JobURL: "https://example.com", JobText: "job"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeLLM{}
			svc := newTestService(client, &fakeFetcher{})
			_, err := svc.Optimize(context.Background(), tt.in)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("error = %v, want ErrInvalidRequest", err)
			}
			if client.calls != 0 {
				t.Fatalf("model was invoked %d times on invalid input", client.calls)
			}
		})
	}
}

func TestOptimizeBlockedFetchSkipsModel(t *testing.T) {
	client := &fakeLLM{}
	fetcher := &fakeFetcher{err: fmt.Errorf("status 403: %w", scrape.ErrFetchBlocked)}
	svc := newTestService(client, fetcher)

	_, err := svc.Optimize(context.Background(), OptimizeInput{
		ResumeText: "resume text",
		JobURL:     "https://jobs.example.com/123",
	})
	if !errors.Is(err, scrape.ErrFetchBlocked) {
		t.Fatalf("error = %v, want ErrFetchBlocked", err)
	}
	if client.calls != 0 {
		t.Fatalf("model was invoked %d times despite blocked fetch", client.calls)
	}
}

func TestOptimizeRetriesMalformedOutputOnce(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{
		{out: "no labeled sections here"},
		{out: goodModelOutput},
	}}
	svc := newTestService(client, &fakeFetcher{})

	record, err := svc.Optimize(context.Background(), textInput())
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", client.calls)
	}
	if record.MatchScore != 0.45 {
		t.Fatalf("match score = %v", record.MatchScore)
	}
}

func TestOptimizeMalformedOutputTwiceFails(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{
		{out: "still not structured"},
		{out: "and again not structured"},
	}}
	svc := newTestService(client, &fakeFetcher{})

	_, err := svc.Optimize(context.Background(), textInput())
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("error = %v, want ErrMalformedOutput", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected retry ceiling of 2 calls, got %d", client.calls)
	}
}

func TestOptimizeRetriesThrottled(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{
		{err: fmt.Errorf("status 429: %w", llm.ErrProviderThrottled)},
		{out: goodModelOutput},
	}}
	svc := newTestService(client, &fakeFetcher{})

	if _, err := svc.Optimize(context.Background(), textInput()); err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if client.calls != 2 {
		t.Fatalf("expected 2 model calls, got %d", client.calls)
	}
}

func TestOptimizeDoesNotRetryUnavailable(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{
		{err: fmt.Errorf("boom: %w", llm.ErrProviderUnavailable)},
	}}
	svc := newTestService(client, &fakeFetcher{})

	_, err := svc.Optimize(context.Background(), textInput())
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("error = %v, want ErrProviderUnavailable", err)
	}
	if client.calls != 1 {
		t.Fatalf("unavailable errors must not be retried, got %d calls", client.calls)
	}
}

func TestOptimizeDoesNotRetryRejected(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{
		{err: fmt.Errorf("bad key: %w", llm.ErrProviderRejected)},
	}}
	svc := newTestService(client, &fakeFetcher{})

	_, err := svc.Optimize(context.Background(), textInput())
	if !errors.Is(err, llm.ErrProviderRejected) {
		t.Fatalf("error = %v, want ErrProviderRejected", err)
	}
	if client.calls != 1 {
		t.Fatalf("rejected errors must not be retried, got %d calls", client.calls)
	}
}

func TestOptimizeReturnsRecordOnPersistenceFailure(t *testing.T) {
	client := &fakeLLM{replies: []scriptedReply{{out: goodModelOutput}}}
	svc := newTestService(client, &fakeFetcher{})
	svc.Repo = failingRepo{}

	record, err := svc.Optimize(context.Background(), textInput())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("error = %v, want ErrPersistence", err)
	}
	if record.ID == "" || record.OptimizedResume == "" {
		t.Fatalf("computed record should still be returned, got %+v", record)
	}
}

func TestOptimizeCleansesScrapedPosting(t *testing.T) {
	rawPosting := strings.Repeat("Job posting with navigation chrome. ", 20)
	client := &fakeLLM{replies: []scriptedReply{
		{out: "Backend Engineer. Build Go services on AWS."},
		{out: goodModelOutput},
	}}
	fetcher := &fakeFetcher{text: rawPosting}
	svc := newTestService(client, fetcher)
	svc.CleanseJobText = true

	record, err := svc.Optimize(context.Background(), OptimizeInput{
		ResumeText: "resume text",
		JobURL:     "https://jobs.example.com/123",
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if record.JobPostingContent != "Backend Engineer. Build Go services on AWS." {
		t.Fatalf("cleansed posting not used: %q", record.JobPostingContent)
	}
	if record.JobURL != "https://jobs.example.com/123" {
		t.Fatalf("job url not recorded: %q", record.JobURL)
	}
	if client.calls != 2 {
		t.Fatalf("expected cleanse + optimize calls, got %d", client.calls)
	}
}

func TestOptimizeCleanseFailureFallsBackToRawText(t *testing.T) {
	rawPosting := "Short but real posting text for the model."
	client := &fakeLLM{replies: []scriptedReply{
		{err: fmt.Errorf("cleanse boom: %w", llm.ErrProviderUnavailable)},
		{out: goodModelOutput},
	}}
	svc := newTestService(client, &fakeFetcher{text: rawPosting})
	svc.CleanseJobText = true

	record, err := svc.Optimize(context.Background(), OptimizeInput{
		ResumeText: "resume text",
		JobURL:     "https://jobs.example.com/123",
	})
	if err != nil {
		t.Fatalf("Optimize: %v", err)
	}
	if record.JobPostingContent != rawPosting {
		t.Fatalf("expected raw posting fallback, got %q", record.JobPostingContent)
	}
}

func TestListDefaultsAndCaps(t *testing.T) {
	repo := NewMemoryRepo()
	svc := &Service{Repo: repo}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		_ = repo.Create(context.Background(), Optimization{
			ID:        fmt.Sprintf("id-%02d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	got, err := svc.List(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("default limit = %d, want 10", len(got))
	}
	if got[0].ID != "id-59" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}

	got, err = svc.List(context.Background(), 500, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 50 {
		t.Fatalf("cap = %d, want 50", len(got))
	}
}
