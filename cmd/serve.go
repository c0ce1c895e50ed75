package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/desertthunder/setlistx/internal/ratelimit"
	"github.com/desertthunder/setlistx/internal/server"
	"github.com/urfave/cli/v3"
)

const shutdownTimeout = 10 * time.Second

func (r *Runner) newServer(addr string) *server.Server {
	cfg := r.config.Server
	if r.config.SetlistFM.APIKey == "" {
		r.logger.Warn("no setlist.fm API key configured, setlist routes will return 503")
	}

	return server.New(server.Opts{
		Addr:     addr,
		Setlists: server.NewSetlistHandler(r.setlistSource(), r.config.SetlistFM.APIKey, r.logger),
		DevToken: server.NewDevTokenHandler(r.tokenCache(), r.logger),
		Limiter:  ratelimit.New(cfg.RateLimitRequests, cfg.RateLimitWindow()),
		Metrics:  r.metrics,
		Logger:   r.logger,
	})
}

// Serve runs the HTTP service until interrupted, then shuts down gracefully.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	srv := r.newServer(cfg.Addr())

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return <-errCh
}
