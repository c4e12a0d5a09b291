package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spboyer/codearena/internal/webapi"
	"github.com/spboyer/codearena/internal/webserver"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the CodeArena web page",
		Long: `Start the CodeArena web page.

Each browser gets its own session (cookie "arena_session"). Idle sessions
are dropped after server.session_ttl. The server binds to loopback unless
--host says otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd, map[string]string{
				"server.host":       "host",
				"server.port":       "port",
				"server.no_browser": "no-browser",
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			stack, err := newBattleStack(ctx, cfg)
			if err != nil {
				return err
			}
			defer stack.Close(context.Background())

			if cfg.Server.Host != "127.0.0.1" && cfg.Server.Host != "localhost" {
				slog.Warn("web server binding to a non-loopback address; no authentication is provided", "host", cfg.Server.Host)
			}

			store := webapi.NewSessionStore(cfg.Server.SessionTTL)
			srv, err := webserver.New(webserver.Config{
				Host:           cfg.Server.Host,
				Port:           cfg.Server.Port,
				NoBrowser:      cfg.Server.NoBrowser,
				AllowedOrigins: cfg.Server.AllowedOrigins,
				Runner:         stack.Runner,
				Sessions:       store,
			})
			if err != nil {
				return fmt.Errorf("creating web server: %w", err)
			}

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.ListenAndServe(gctx)
			})
			g.Go(func() error {
				return store.RunSweeper(gctx, sweepInterval(cfg.Server.SessionTTL))
			})
			return g.Wait()
		},
	}

	cmd.Flags().String("host", "127.0.0.1", "Address to bind")
	cmd.Flags().Int("port", 3000, "Port to listen on")
	cmd.Flags().Bool("no-browser", false, "Do not open a browser")

	return cmd
}

// sweepInterval checks for idle sessions a few times per ttl.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl/4, time.Second)
}
