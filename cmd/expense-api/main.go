// Command expense-api serves the /api/expenses REST contract over the
// configured store and publishes change notifications when AMQP is set up.
package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/backend"
	"expenses/internal/cli"
	apphttp "expenses/internal/http"
	applog "expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		os.Exit(1)
	}

	initCtx, initCancel := context.WithTimeout(ctx, 30*time.Second)
	result, err := backend.NewFactory(logger).CreateBackend(initCtx, backendCfg)
	initCancel()
	if err != nil {
		logger.Error("Failed to initialize backend",
			applog.FieldError, err,
			"backend", backendCfg.Type.String())
		os.Exit(1)
	}
	defer func() {
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()

	srv := apphttp.NewAPIServer(":"+cfg.Port, result.Service, apphttp.APIConfig{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	logger.Info("Starting expense API",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.Port,
		"backend", backendCfg.Type.String(),
		"amqp", result.AMQPEnabled)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return cli.ServeUntilDone(gctx, srv, srv.ListenAndServe, 30*time.Second)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
