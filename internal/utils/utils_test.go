package utils

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "python developer", limit: 0, expect: ""},
		{name: "short text", input: "go", limit: 10, expect: "go"},
		{name: "truncated", input: "senior python developer", limit: 6, expect: "senior..."},
		{name: "counts runes", input: "مطور بايثون", limit: 4, expect: "مطور..."},
		{name: "trims first", input: "  docker  ", limit: 3, expect: "doc..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}

func TestWaitForReturnsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWaitForElapses(t *testing.T) {
	original := newTimer
	var requested time.Duration
	newTimer = func(d time.Duration) *time.Timer {
		requested = d
		return time.NewTimer(0)
	}
	defer func() { newTimer = original }()

	if err := WaitFor(context.Background(), 5*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if requested != 5*time.Second {
		t.Fatalf("expected timer for 5s, got %s", requested)
	}
}

func TestWaitForZeroDuration(t *testing.T) {
	t.Parallel()

	if err := WaitFor(context.Background(), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		attempt int
		expect  time.Duration
	}{
		{attempt: 0, expect: 0},
		{attempt: 1, expect: 100 * time.Millisecond},
		{attempt: 2, expect: 200 * time.Millisecond},
		{attempt: 3, expect: 400 * time.Millisecond},
		{attempt: 10, expect: time.Second},
	}

	for _, tt := range tests {
		if got := Backoff(tt.attempt, 100*time.Millisecond, time.Second); got != tt.expect {
			t.Fatalf("attempt %d: expected %s, got %s", tt.attempt, tt.expect, got)
		}
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	key := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
	got := Dedupe([]string{"English", " english ", "", "Arabic"}, key)

	if len(got) != 2 || got[0] != "english" || got[1] != "arabic" {
		t.Fatalf("unexpected result: %#v", got)
	}
}
