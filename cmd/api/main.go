package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/circdesk/backend/internal/auth"
	"github.com/circdesk/backend/internal/config"
	"github.com/circdesk/backend/internal/db"
	loandomain "github.com/circdesk/backend/internal/domain/loan"
	"github.com/circdesk/backend/internal/domain/report"
	"github.com/circdesk/backend/internal/http/handlers"
	"github.com/circdesk/backend/internal/observability"
	postgresrepo "github.com/circdesk/backend/internal/repository/postgres"
	"github.com/circdesk/backend/internal/server"
	"github.com/circdesk/backend/internal/ws"
)

func main() {
	dotenvErr := config.LoadDotEnv()
	cfg := config.Load()
	logger := observability.NewLogger(cfg.Env).With("component", "api")
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

	hub := ws.NewHub()
	loanService := loandomain.NewService(
		postgresrepo.NewCirculationStore(pool),
		loandomain.WithDueDatePolicy(loandomain.DueDatePolicy{
			StandardDays:   int(cfg.LoanStandardDays),
			PrivilegedDays: int(cfg.LoanPrivilegedDays),
		}),
		loandomain.WithPublisher(ws.NewPublisher(hub, logger)),
	)
	reportService := report.NewService(
		postgresrepo.NewReportRepository(pool),
		report.WithWindows(int(cfg.ReportTopBorrowersDays), int(cfg.ReportStaffActivityWeeks)),
	)

	jwtManager := auth.NewJWTManager(cfg.JWTIssuer, cfg.JWTAudience, cfg.JWTSigningKey)
	authService := auth.NewService(postgresrepo.NewStaffRepository(pool), jwtManager, cfg.JWTAccessTTL)
	cookieCfg := auth.CookieConfig{Domain: cfg.CookieDomain, Secure: cfg.CookieSecure}

	r := server.NewRouter(cfg, logger, server.Dependencies{
		Pinger:        pool,
		AuthHandler:   handlers.NewAuthHandler(authService, cookieCfg, cfg.JWTAccessTTL, logger),
		LoanHandler:   handlers.NewLoanHandler(loanService, logger),
		ReportHandler: handlers.NewReportHandler(reportService, logger),
		WSHandler:     ws.NewHandler(hub, logger),
		JWTManager:    jwtManager,
	})
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("api server starting", "addr", cfg.Addr())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-sigCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	logger.Info("api server stopped")
}
