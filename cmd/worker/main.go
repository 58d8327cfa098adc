package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circdesk/backend/internal/config"
	"github.com/circdesk/backend/internal/db"
	"github.com/circdesk/backend/internal/jobs"
	"github.com/circdesk/backend/internal/notice"
	"github.com/circdesk/backend/internal/observability"
	postgresrepo "github.com/circdesk/backend/internal/repository/postgres"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env).With("component", "worker")
	if dotenvErr != nil {
		logger.Warn("ignoring unreadable .env", "err", dotenvErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	sender, closeSender, err := notice.NewSenderFromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to build notice sender", "mode", cfg.NoticeSenderMode, "err", err)
		os.Exit(1)
	}
	defer closeSender()

	outboxRepo := postgresrepo.NewOutboxRepository(pool)
	noticeRepo := postgresrepo.NewNoticeRepository(pool)
	sweeper := jobs.NewOverdueSweeper(noticeRepo, outboxRepo)
	worker := jobs.NewNoticeWorker(outboxRepo, noticeRepo, sender, logger)

	interval := cfg.WorkerPollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("worker started", "interval", interval.String(), "batch_size", cfg.WorkerBatchSize, "sender", cfg.NoticeSenderMode)
	for {
		select {
		case <-sigCtx.Done():
			logger.Info("worker stopped")
			return
		case <-ticker.C:
			runCtx, runCancel := context.WithTimeout(context.Background(), 30*time.Second)
			queued, err := sweeper.RunOnce(runCtx, cfg.WorkerBatchSize)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("overdue sweep failed", "err", err)
			} else if queued > 0 {
				logger.Info("overdue notices queued", "count", queued)
			}
			err = worker.RunOnce(runCtx, cfg.WorkerBatchSize)
			runCancel()
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("worker run failed", "err", err)
			}
		}
	}
}
