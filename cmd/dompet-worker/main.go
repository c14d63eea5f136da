package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/log"
	"dompet/internal/scheduler"
	"dompet/internal/worker"
)

func main() {
	cfg, logger := cli.MustLoadConfig()
	logger.Info("Starting dompet-worker")

	ctx, stop := cli.SignalContext()
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	if backendCfg.Type != backend.SQLiteBackend {
		return fmt.Errorf("dompet-worker requires the sqlite backend, got %q", backendCfg.Type)
	}
	backendCfg.AMQPRequired = true

	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Cleanup failed", log.FieldError, err)
		}
	}()

	mirror, err := backend.NewMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}
	syncWorker := worker.NewSyncWorker(res.Store, mirror, cfg.SyncBatchSize, logger)

	// Catch up on anything published while the worker was down.
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", log.FieldError, err)
	}

	sched := scheduler.New(ctx, logger)
	if err := sched.Add("sync-pending", cfg.SyncCron, func(ctx context.Context) error {
		_, err := syncWorker.ProcessPending(ctx)
		return err
	}); err != nil {
		return err
	}
	sched.Start()
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := sched.Stop(stopCtx); err != nil {
			logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := res.AMQP.Consume(gctx, syncWorker)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	return g.Wait()
}
