package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/allergenai/backend/config"
	httpDelivery "github.com/allergenai/backend/internal/delivery/http"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != "" {
			cfg.Server.Port = servePort
		}
		return runServer(ctx, cfg)
	},
}

func runServer(ctx context.Context, cfg *config.Config) error {
	env, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer env.Close()

	handler := httpDelivery.NewHandler(env.Resolver)
	router := httpDelivery.SetupRouter(cfg, handler, httpDelivery.RouterDeps{
		Metrics:        env.Metrics,
		MetricsHandler: env.Metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server",
			zap.String("port", cfg.Server.Port),
			zap.String("environment", cfg.Server.Environment))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
