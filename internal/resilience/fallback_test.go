package resilience

import (
	"context"
	"errors"
	"testing"

	"github.com/podiumlabs/podium/pkg/provider/llm"
	llmmock "github.com/podiumlabs/podium/pkg/provider/llm/mock"
)

func TestFallbackGroup_PrimarySucceeds(t *testing.T) {
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup-value")

	var used string
	err := fg.Execute(func(v string) error {
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "primary-value" {
		t.Fatalf("used = %q, want primary-value", used)
	}
}

func TestFallbackGroup_FailsOverToBackup(t *testing.T) {
	fg := NewFallbackGroup("primary-value", "primary", FallbackConfig{})
	fg.AddFallback("backup", "backup-value")

	var used string
	err := fg.Execute(func(v string) error {
		if v == "primary-value" {
			return errProbe
		}
		used = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if used != "backup-value" {
		t.Fatalf("used = %q, want backup-value", used)
	}
}

func TestFallbackGroup_AllFail(t *testing.T) {
	fg := NewFallbackGroup("a", "primary", FallbackConfig{})
	fg.AddFallback("backup", "b")

	err := fg.Execute(func(string) error { return errProbe })
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestLLMFallback_UsesBackupWhenPrimaryFails(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errProbe}
	backup := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "backup says hi"},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{})
	fb.AddFallback("backup", backup)

	resp, err := fb.Complete(context.Background(), llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "backup says hi" {
		t.Fatalf("content = %q, want backup response", resp.Content)
	}
	if len(primary.CompleteCalls) != 1 {
		t.Errorf("primary calls = %d, want 1", len(primary.CompleteCalls))
	}
	if len(backup.CompleteCalls) != 1 {
		t.Errorf("backup calls = %d, want 1", len(backup.CompleteCalls))
	}
}

func TestLLMFallback_OpenBreakerSkipsPrimary(t *testing.T) {
	primary := &llmmock.Provider{CompleteErr: errProbe}
	backup := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: "ok"},
	}

	fb := NewLLMFallback(primary, "primary", FallbackConfig{
		CircuitBreaker: CircuitBreakerConfig{MaxFailures: 2},
	})
	fb.AddFallback("backup", backup)

	ctx := context.Background()
	req := llm.CompletionRequest{Messages: []llm.Message{{Role: "user", Content: "x"}}}

	// Two failing calls trip the primary's breaker.
	for range 2 {
		if _, err := fb.Complete(ctx, req); err != nil {
			t.Fatalf("unexpected error while backup healthy: %v", err)
		}
	}
	primaryCalls := len(primary.CompleteCalls)

	// With the breaker open the primary is no longer invoked.
	if _, err := fb.Complete(ctx, req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(primary.CompleteCalls) != primaryCalls {
		t.Fatalf("primary calls = %d, want unchanged %d (breaker open)", len(primary.CompleteCalls), primaryCalls)
	}
}
