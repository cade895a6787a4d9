package errorutil

import (
	"errors"
	"fmt"
	"testing"
)

func TestToDomainErrorPassesThroughWrapped(t *testing.T) {
	base := NewIllegalTransition("ticket is already assigned", map[string]any{"ticket_id": int64(4)})
	wrapped := fmt.Errorf("claim: %w", base)

	de := ToDomainError(wrapped)
	if de.Code != CodeIllegalTransition {
		t.Fatalf("expected %s, got %s", CodeIllegalTransition, de.Code)
	}
	if de.Message != "ticket is already assigned" {
		t.Fatalf("unexpected message %q", de.Message)
	}
}

func TestToDomainErrorHidesUnknownErrors(t *testing.T) {
	de := ToDomainError(errors.New("pq: connection reset by peer"))
	if de.Code != CodeInternal {
		t.Fatalf("expected internal code, got %s", de.Code)
	}
	if de.Message != "internal server error" {
		t.Fatalf("raw error leaked into message: %q", de.Message)
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("channel_not_found")
	err := NewUpstream("Slack", cause)
	if !errors.Is(err, cause) {
		t.Fatal("expected upstream error to unwrap to its cause")
	}
	if CodeOf(err) != CodeUpstream {
		t.Fatalf("unexpected code %s", CodeOf(err))
	}
	if CodeOf(nil) != "" {
		t.Fatal("expected empty code for nil")
	}
}
