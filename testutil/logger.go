package testutil

import (
	"context"
	"testing"

	"golang.org/x/xerrors"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/slogtest"
)

// Logger returns a standard testing logger at debug level. Errors caused by
// canceled contexts are ignored, since they usually happen while tests shut
// down and would otherwise flake.
func Logger(t testing.TB) slog.Logger {
	return slogtest.Make(
		t, &slogtest.Options{IgnoreErrorFn: ignoreCanceled},
	).Leveled(slog.LevelDebug)
}

func ignoreCanceled(entry slog.SinkEntry) bool {
	err, ok := slogtest.FindFirstError(entry)
	if !ok {
		return false
	}
	return xerrors.Is(err, context.Canceled) || xerrors.Is(err, context.DeadlineExceeded)
}
