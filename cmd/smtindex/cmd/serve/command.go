// Package serve implements the serve command.
package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/agentstation/smtindex/internal/cmd/constants"
	"github.com/agentstation/smtindex/internal/metrics"
	"github.com/agentstation/smtindex/internal/server"
	pkgconstants "github.com/agentstation/smtindex/pkg/constants"
)

// AppContext defines what the serve command needs from the app.
type AppContext interface {
	ServerConfig() server.Config
	Metrics() *metrics.Metrics
	Logger() *zerolog.Logger
	Out() io.Writer
}

// NewCommand creates the serve command.
func NewCommand(app AppContext) *cobra.Command {
	defaults := server.DefaultConfig()

	cmd := &cobra.Command{
		Use:     "serve",
		GroupID: "query",
		Short:   "Serve the index over a read-only HTTP API",
		Long: `Serve loads an index file and answers queries over HTTP:

  GET /health                       liveness
  GET /api/v1/ready                 readiness, 503 until an index is loaded
  GET /api/v1/templates?status=&q=  template summaries
  GET /api/v1/templates/{id}        one template with all versions
  GET /api/v1/index                 the index file as built
  GET /api/v1/stats                 counts by status and id prefix
  GET /metrics                      Prometheus metrics

The index is reloaded when the file is replaced, so a build writing into
the served directory is picked up without a restart. A reload that fails
validation keeps the previous index.`,
		Example: `  smtindex serve
  smtindex serve --index public/index.json --port 9000
  smtindex serve --cors --cors-origins https://example.com`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), app)
		},
	}

	flags := cmd.Flags()
	flags.String(constants.KeyHost, defaults.Host, "bind address")
	flags.IntP(constants.KeyPort, "p", defaults.Port, "server port")
	flags.String(constants.KeyPrefix, defaults.PathPrefix, "API path prefix")
	flags.Duration(constants.KeyCacheTTL, defaults.CacheTTL, "response cache TTL")
	flags.Bool(constants.KeyWatch, defaults.Watch, "reload the index when the file changes")
	flags.Bool(constants.KeyCORS, false, "enable CORS")
	flags.StringSlice(constants.KeyCORSOrigins, nil, "allowed CORS origins (all when empty)")
	flags.Bool(constants.KeyMetrics, defaults.MetricsEnabled, "expose /metrics")

	return cmd
}

func run(ctx context.Context, app AppContext) error {
	cfg := app.ServerConfig()
	logger := app.Logger()

	srv, err := server.New(cfg, logger, app.Metrics())
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting index watcher: %w", err)
	}

	httpServer := srv.HTTPServer()
	serverErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", httpServer.Addr).
			Str("index", cfg.IndexPath).
			Bool("watch", cfg.Watch).
			Msg("Server starting")
		fmt.Fprintf(app.Out(), "Serving %s on http://%s%s\n", cfg.IndexPath, httpServer.Addr, cfg.PathPrefix)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
		close(serverErr)
	}()

	select {
	case err, ok := <-serverErr:
		_ = srv.Shutdown(context.Background())
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		logger.Info().Msg("Shutdown signal received")
	}

	// the signal context is already cancelled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), pkgconstants.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info().Msg("Server stopped gracefully")
	return nil
}
