package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resume-optimizer/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, timeout time.Duration) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c, err := NewClient("test-key", "gpt-4o-mini", timeout)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	c.apiURL = srv.URL
	return c, srv.Close
}

func TestCompleteReturnsContent(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","choices":[{"message":{"role":"assistant","content":"OPTIMIZED RESUME:\nhello"}}],"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`))
	}, 5*time.Second)
	defer closeSrv()

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "OPTIMIZED RESUME:\nhello" {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestCompleteClassifiesStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{name: "throttled", status: http.StatusTooManyRequests, want: llm.ErrProviderThrottled},
		{name: "bad key", status: http.StatusUnauthorized, want: llm.ErrProviderRejected},
		{name: "forbidden", status: http.StatusForbidden, want: llm.ErrProviderRejected},
		{name: "bad request", status: http.StatusBadRequest, want: llm.ErrProviderRejected},
		{name: "server error", status: http.StatusInternalServerError, want: llm.ErrProviderUnavailable},
		{name: "bad gateway", status: http.StatusBadGateway, want: llm.ErrProviderUnavailable},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope","type":"test"}}`, tt.status)
			}, 5*time.Second)
			defer closeSrv()

			_, err := c.Complete(context.Background(), "prompt")
			if !errors.Is(err, tt.want) {
				t.Fatalf("Complete error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCompleteTimeout(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}, 50*time.Millisecond)
	defer closeSrv()

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, llm.ErrProviderTimeout) {
		t.Fatalf("expected ErrProviderTimeout, got %v", err)
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	c, closeSrv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}, 5*time.Second)
	defer closeSrv()

	_, err := c.Complete(context.Background(), "prompt")
	if !errors.Is(err, llm.ErrProviderUnavailable) {
		t.Fatalf("expected ErrProviderUnavailable, got %v", err)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient("", "gpt-4o-mini", 0); err == nil {
		t.Fatal("expected error for missing api key")
	}
	if _, err := NewClient("key", " ", 0); err == nil {
		t.Fatal("expected error for missing model")
	}
}
