package optimizations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-optimizer/internal/extract"
	"resume-optimizer/internal/llm"
	"resume-optimizer/internal/shared/metrics"
	"resume-optimizer/internal/shared/telemetry"
)

const (
	retryBackoff = 300 * time.Millisecond
	// One bounded retry per request, counting invoke+parse as a single
	// attempt. Never raised implicitly; each invocation is billed.
	maxAttempts = 2

	// Fallback bound when the cleanse pass over a scraped posting fails.
	cleanseFallbackRunes = 5000
)

// JobFetcher resolves a job posting URL to plain text.
type JobFetcher interface {
	JobPosting(ctx context.Context, rawURL string) (string, error)
}

// OptimizeInput is the transient input bundle for one pipeline run. Exactly
// one resume source and exactly one job source must be populated.
type OptimizeInput struct {
	ResumeFile     []byte
	ResumeFileName string
	ResumeMimeType string
	ResumeText     string

	JobURL  string
	JobText string
}

// Service orchestrates the optimization pipeline: resolve inputs, build the
// prompt, invoke the model, parse the reply, persist the record. Stages are
// strictly sequential; requests are independent and share no mutable state
// beyond the Repo.
type Service struct {
	Repo    Repo
	LLM     llm.Client
	Fetcher JobFetcher

	// CleanseJobText runs scraped postings through the model once to strip
	// boilerplate before prompt construction. Best-effort: any failure falls
	// back to plain truncation.
	CleanseJobText bool

	// backoff is replaceable in tests.
	backoff func(ctx context.Context, d time.Duration) error
}

// Optimize runs the full pipeline and returns the persisted record.
// When persistence fails after a successful run, the computed record is
// returned together with an error wrapping ErrPersistence; the model call was
// already paid for and the result is still useful to the immediate caller.
func (s *Service) Optimize(ctx context.Context, in OptimizeInput) (Optimization, error) {
	if err := validateInput(in); err != nil {
		return Optimization{}, err
	}

	metrics.IncOptimizeStarted()
	start := time.Now()
	defer func() {
		metrics.ObserveOptimizeDurationMs(float64(time.Since(start).Milliseconds()))
	}()

	resumeText, err := s.resolveResume(ctx, in)
	if err != nil {
		metrics.IncOptimizeFailed()
		return Optimization{}, fmt.Errorf("resolve resume: %w", err)
	}

	jobText, err := s.resolveJob(ctx, in)
	if err != nil {
		metrics.IncOptimizeFailed()
		return Optimization{}, fmt.Errorf("resolve job posting: %w", err)
	}

	prompt := BuildPrompt(jobText, resumeText)
	if prompt.JobTruncated || prompt.ResumeTruncated {
		telemetry.Info("optimize.prompt_truncated", map[string]any{
			"job_truncated":    prompt.JobTruncated,
			"resume_truncated": prompt.ResumeTruncated,
		})
	}

	parsed, err := s.invokeAndParse(ctx, prompt.Text)
	if err != nil {
		metrics.IncOptimizeFailed()
		return Optimization{}, err
	}

	record := Optimization{
		ID:                uuid.NewString(),
		JobURL:            strings.TrimSpace(in.JobURL),
		JobPostingContent: jobText,
		ResumeSourceText:  resumeText,
		OptimizedResume:   parsed.OptimizedResume,
		Suggestions:       parsed.Suggestions,
		MatchScore:        parsed.MatchScore,
		CreatedAt:         time.Now().UTC(),
	}

	if err := s.Repo.Create(ctx, record); err != nil {
		// The run itself completed; only history persistence failed.
		metrics.IncOptimizeCompleted()
		telemetry.Warn("optimize.save_failed", map[string]any{
			"optimization_id": record.ID,
			"error":           err.Error(),
		})
		return record, fmt.Errorf("save optimization: %v: %w", err, ErrPersistence)
	}

	metrics.IncOptimizeCompleted()
	telemetry.Info("optimize.complete", map[string]any{
		"optimization_id": record.ID,
		"match_score":     record.MatchScore,
		"suggestions":     len(record.Suggestions),
	})
	return record, nil
}

// Get returns a single optimization record.
func (s *Service) Get(ctx context.Context, id string) (Optimization, error) {
	return s.Repo.GetByID(ctx, id)
}

// List returns history summaries, newest first. Limit defaults to 10 and is
// capped at 50.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.Repo.List(ctx, limit, offset)
}

// Delete removes an optimization record.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.Repo.Delete(ctx, id)
}

func validateInput(in OptimizeInput) error {
	hasFile := len(in.ResumeFile) > 0
	hasText := strings.TrimSpace(in.ResumeText) != ""
	switch {
	case !hasFile && !hasText:
		return fmt.Errorf("either resume_file or resume_text must be provided: %w", ErrInvalidRequest)
	case hasFile && hasText:
		return fmt.Errorf("provide resume_file or resume_text, not both: %w", ErrInvalidRequest)
	}

	hasURL := strings.TrimSpace(in.JobURL) != ""
	hasJobText := strings.TrimSpace(in.JobText) != ""
	switch {
	case !hasURL && !hasJobText:
		return fmt.Errorf("either job_url or job_text must be provided: %w", ErrInvalidRequest)
	case hasURL && hasJobText:
		return fmt.Errorf("provide job_url or job_text, not both: %w", ErrInvalidRequest)
	}
	return nil
}

func (s *Service) resolveResume(ctx context.Context, in OptimizeInput) (string, error) {
	if len(in.ResumeFile) > 0 {
		return extract.ResumeText(ctx, in.ResumeFile, in.ResumeMimeType, in.ResumeFileName)
	}
	return extract.PlainText(in.ResumeText)
}

func (s *Service) resolveJob(ctx context.Context, in OptimizeInput) (string, error) {
	if url := strings.TrimSpace(in.JobURL); url != "" {
		text, err := s.Fetcher.JobPosting(ctx, url)
		if err != nil {
			return "", err
		}
		return s.cleanseJob(ctx, text), nil
	}
	return extract.PlainText(in.JobText)
}

// cleanseJob strips boilerplate from a scraped posting via a single model
// call. On any failure the raw text is truncated instead; cleansing never
// fails the pipeline.
func (s *Service) cleanseJob(ctx context.Context, raw string) string {
	if !s.CleanseJobText || s.LLM == nil {
		return raw
	}
	cleaned, err := s.LLM.Complete(ctx, BuildCleansePrompt(raw))
	if err != nil || strings.TrimSpace(cleaned) == "" {
		telemetry.Warn("optimize.cleanse_fallback", map[string]any{
			"raw_chars": len(raw),
			"error":     fmt.Sprint(err),
		})
		out, _ := truncateRunes(raw, cleanseFallbackRunes)
		return out
	}
	return strings.TrimSpace(cleaned)
}

// invokeAndParse runs the model call plus parse as one counted attempt, with
// a single fixed-backoff retry for throttling, provider timeouts and
// malformed output. All other failures are terminal for the request.
func (s *Service) invokeAndParse(ctx context.Context, prompt string) (ParsedResult, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			metrics.IncModelRetry()
			telemetry.Info("optimize.retry", map[string]any{
				"attempt": attempt,
				"error":   lastErr.Error(),
			})
			if err := s.sleep(ctx, retryBackoff); err != nil {
				return ParsedResult{}, err
			}
		}

		raw, err := s.LLM.Complete(ctx, prompt)
		if err != nil {
			lastErr = fmt.Errorf("invoke model: %w", err)
			if retryableInvokeErr(err) && attempt < maxAttempts {
				continue
			}
			return ParsedResult{}, lastErr
		}

		parsed, err := ParseModelOutput(raw)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				continue
			}
			return ParsedResult{}, lastErr
		}
		return parsed, nil
	}
	return ParsedResult{}, lastErr
}

func retryableInvokeErr(err error) bool {
	return errors.Is(err, llm.ErrProviderThrottled) || errors.Is(err, llm.ErrProviderTimeout)
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	if s.backoff != nil {
		return s.backoff(ctx, d)
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
