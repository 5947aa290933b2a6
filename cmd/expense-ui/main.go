// Command expense-ui serves the dashboard. It talks to expense-api over
// REST and, when AMQP is configured, reloads and pushes a websocket hint
// to open pages whenever the backend reports a change.
package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expenses/internal/amqp"
	"expenses/internal/api"
	"expenses/internal/cli"
	"expenses/internal/dashboard"
	apphttp "expenses/internal/http"
	"expenses/internal/live"
	applog "expenses/internal/log"
	"expenses/internal/render"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentUI)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	hub := live.NewHub(logger)
	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, logger)
	ctrl := dashboard.NewController(client, render.NewRenderer(), logger,
		dashboard.WithRenderHook(hub.Broadcast))

	if err := ctrl.Load(ctx, ""); err != nil {
		// The page retries on every open; start anyway.
		logger.Warn("Initial load failed", applog.FieldError, err, "api", cfg.APIBaseURL)
	}

	srv := apphttp.NewUIServer(":"+cfg.UIPort, ctrl, hub, apphttp.UIConfig{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return cli.ServeUntilDone(gctx, srv, srv.ListenAndServe, 30*time.Second)
	})

	if cfg.AMQPURL != "" {
		consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("AMQP unavailable, live reload limited to this process",
				applog.FieldError, err)
		} else {
			defer consumer.Close()
			g.Go(func() error {
				err := consumer.ConsumeExpenseChanges(gctx, func(ctx context.Context, msg *amqp.ExpenseChangedMessage) error {
					logger.DebugContext(ctx, "Expense change received",
						applog.FieldOperation, applog.OpConsume,
						applog.FieldExpenseID, msg.ID,
						"action", msg.Action)
					// A failed reload keeps the old view; redelivery would not help.
					_ = ctrl.Reload(ctx)
					return nil
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	}

	logger.Info("Starting expense dashboard",
		applog.FieldOperation, applog.OpStartup,
		"port", cfg.UIPort,
		"api", cfg.APIBaseURL,
		"amqp", cfg.AMQPURL != "")

	if err := g.Wait(); err != nil {
		logger.Error("Dashboard stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Dashboard stopped gracefully", applog.FieldOperation, applog.OpShutdown)
}
