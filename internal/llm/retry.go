package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrOverloaded is returned for an {"type":"error","error":{"type":"overloaded_error"}} body.
	ErrOverloaded = errors.New("llm: api overloaded")
	// ErrUnexpectedResponse means the call succeeded but content[0].text is missing.
	ErrUnexpectedResponse = errors.New("llm: unexpected response shape")
)

// FailureKind says whether a failed attempt may be retried.
type FailureKind int

const (
	Retryable FailureKind = iota
	Fatal
)

func (k FailureKind) String() string {
	if k == Fatal {
		return "fatal"
	}
	return "retryable"
}

// ExhaustedRetriesError is returned once every attempt has failed.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("llm: all %d attempts failed: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error {
	return e.Last
}

// classify treats every failure as retryable unless the caller's context is
// done. Overload signals, transport errors and unreadable bodies all draw
// from the same attempt budget.
func classify(ctx context.Context, err error) FailureKind {
	if ctx.Err() != nil {
		return Fatal
	}
	return Retryable
}

// Backoff returns initial * 2^attempt.
func Backoff(initial time.Duration, attempt int) time.Duration {
	return initial << uint(attempt)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
