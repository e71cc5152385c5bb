package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/nodemedic/internal/httpserver"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/action"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/agent"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/checkpoint"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/config"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/observability"
	"github.com/randalmurphal/nodemedic/pkg/nodemedic/provider"
)

var listenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides config)")
}

func serve(ctx context.Context) error {
	settings, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if listenAddr != "" {
		settings.Server.Addr = listenAddr
	}

	logger := observability.NewLogger(settings.Log.Level, settings.Log.Format)
	metrics := observability.NewMetricsRecorder()

	store, err := openCheckpointStore(settings.Store)
	if err != nil {
		return fmt.Errorf("open checkpoint store: %w", err)
	}
	defer store.Close()

	providers, err := provider.NewStore(providerStorePath(settings.Store))
	if err != nil {
		return fmt.Errorf("open provider store: %w", err)
	}
	defer providers.Close()

	executor := action.NewExecutor(action.NewHistory(),
		action.WithLogger(logger),
		action.WithMetrics(metrics))

	turns := agent.NewService(agent.Config{
		Store:            store,
		Providers:        providers,
		Executor:         executor,
		Logger:           logger,
		Metrics:          metrics,
		GitHubToken:      settings.Search.GitHubToken,
		MaxSearchResults: settings.Search.MaxResults,
		HistoryWindow:    settings.Defaults.HistoryWindow,
	})

	api := httpserver.New(httpserver.Config{
		Turns:     turns,
		Providers: providers,
		Executor:  executor,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:         settings.Server.Addr,
		Handler:      api.Handler(),
		ReadTimeout:  settings.Server.ReadTimeout.Std(),
		WriteTimeout: settings.Server.WriteTimeout.Std(),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", slog.String("addr", server.Addr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		settings.Server.ShutdownTimeout.Std())
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// openCheckpointStore builds the session store named by the driver.
func openCheckpointStore(s config.StoreSettings) (checkpoint.Store, error) {
	switch s.Driver {
	case "memory":
		return checkpoint.NewMemoryStore(), nil
	default:
		return checkpoint.NewSQLiteStore(s.Path)
	}
}

// providerStorePath picks the provider database location. The memory
// driver keeps provider configs in memory too.
func providerStorePath(s config.StoreSettings) string {
	if s.Driver == "memory" {
		return ":memory:"
	}
	return s.Path
}
