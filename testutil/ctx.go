package testutil

import (
	"context"
	"testing"
	"time"
)

// Time constants for test contexts and Eventually-style polling. Generous
// on purpose: a slow CI machine should never be the reason a test fails.
const (
	WaitShort  = 10 * time.Second
	WaitMedium = 15 * time.Second
	WaitLong   = 25 * time.Second

	IntervalFast   = 25 * time.Millisecond
	IntervalMedium = 250 * time.Millisecond
)

// Context returns a context canceled at test cleanup or after the given
// timeout, whichever comes first.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}
