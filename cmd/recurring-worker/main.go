package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/scheduler"
	"dompet/internal/services"
)

func main() {
	cfg, logger := cli.MustLoadConfig()
	logger.Info("Starting recurring-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Recurring worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Recurring worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type != backend.SQLiteBackend {
		return fmt.Errorf("recurring-worker requires the sqlite backend, got %q", backendCfg.Type)
	}

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	// Closes the store and the publisher.
	ledger := services.NewLedgerService(res.Store, res.Publisher(), logger)
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Failed to close ledger", log.FieldError, err)
		}
	}()

	processor := services.NewRecurringProcessor(res.Store, ledger, logger)
	sched := scheduler.New(ctx, logger)
	if err := sched.Add("recurring", cfg.RecurringCron, func(ctx context.Context) error {
		_, err := processor.ProcessDue(ctx, time.Now())
		return err
	}); err != nil {
		return err
	}

	// Run once at startup so a worker restarted after the daily tick
	// does not skip a day.
	if err := sched.RunNow("recurring"); err != nil {
		logger.Error("Initial recurring run failed", log.FieldError, err)
	}
	sched.Start()
	logger.Info("Recurring transactions scheduled", "cron", cfg.RecurringCron, "next", sched.Next("recurring"))

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return sched.Stop(stopCtx)
}
