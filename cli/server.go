package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"cdr.dev/slog"
	"cdr.dev/slog/sloggers/sloghuman"
	"github.com/coder/serpent"
	"golang.org/x/xerrors"

	"github.com/coder/connstats/statsd"
)

func (r *RootCmd) server() *serpent.Command {
	var (
		address       string
		flushInterval time.Duration
	)
	cmd := &serpent.Command{
		Use:   "server",
		Short: "Start the connector stats server.",
		Handler: func(inv *serpent.Invocation) error {
			logger := slog.Make(sloghuman.Sink(inv.Stderr))
			if r.verbose {
				logger = logger.Leveled(slog.LevelDebug)
			}

			ctx, stop := signal.NotifyContext(inv.Context(), os.Interrupt)
			defer stop()

			api := statsd.New(statsd.Options{
				Logger:        logger.Named("statsd"),
				FlushInterval: flushInterval,
			})
			defer api.Close()

			listener, err := net.Listen("tcp", address)
			if err != nil {
				return xerrors.Errorf("listen on %q: %w", address, err)
			}

			srv := &http.Server{
				Handler:           api,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Serve(listener)
			}()
			logger.Info(ctx, "listening", slog.F("address", listener.Addr().String()))

			select {
			case err := <-errCh:
				return xerrors.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			logger.Info(context.Background(), "shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return xerrors.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Options = serpent.OptionSet{
		{
			Flag:        "address",
			Env:         "CONNSTATS_ADDRESS",
			Description: "Address to listen on.",
			Default:     "127.0.0.1:3010",
			Value:       serpent.StringOf(&address),
		},
		{
			Flag:        "flush-interval",
			Env:         "CONNSTATS_FLUSH_INTERVAL",
			Description: "How often the live feed broadcasts snapshots to watchers.",
			Default:     statsd.DefaultFlushInterval.String(),
			Value:       serpent.DurationOf(&flushInterval),
		},
	}
	return cmd
}
