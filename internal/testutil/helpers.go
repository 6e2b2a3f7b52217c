package testutil

import (
	"context"
	"errors"
	"testing"
	"time"
)

// ErrSimulated is returned by test doubles that need to fail.
var ErrSimulated = errors.New("simulated failure")

// ContextWithTimeout derives from the test context and is cancelled on cleanup.
func ContextWithTimeout(tb testing.TB, d time.Duration) context.Context {
	tb.Helper()
	ctx, cancel := context.WithTimeout(tb.Context(), d)
	tb.Cleanup(cancel)
	return ctx
}

// ContextWithCancel derives from the test context. cancel may be called early
// to stop background goroutines; it also runs on cleanup.
func ContextWithCancel(tb testing.TB) (context.Context, context.CancelFunc) {
	tb.Helper()
	ctx, cancel := context.WithCancel(tb.Context())
	tb.Cleanup(cancel)
	return ctx, cancel
}
