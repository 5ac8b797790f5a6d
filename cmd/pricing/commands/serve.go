package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pricing-engine/internal/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read API",
	Long: `Starts the HTTP API over the persisted tables.

Endpoints:
  GET /health                - Health check
  GET /api/sales             - Features joined with predictions
  GET /api/summary           - KPI summary and conversion funnel
  GET /api/recommendations   - Price recommendations and alerts
  GET /metrics               - Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default HTTP_ADDR)")
}

func listenAddr() string {
	if serveAddr != "" {
		return serveAddr
	}
	return cfg.HTTP.Addr
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	server := newAPIServer(s)
	return serveUntilDone(ctx, server, nil)
}

func newAPIServer(s *stores) *api.Server {
	router := api.NewRouter(api.NewHandler(s.reader, logger), logger)
	return api.NewServer(listenAddr(), router, logger)
}

// serveUntilDone runs server until ctx is cancelled, then calls stopFn and shuts down.
func serveUntilDone(ctx context.Context, server *api.Server, stopFn func()) error {
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if stopFn != nil {
			stopFn()
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutdown signal received")
	if stopFn != nil {
		stopFn()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
		return err
	}
	return nil
}
