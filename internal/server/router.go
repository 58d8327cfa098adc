package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/circdesk/backend/internal/auth"
	"github.com/circdesk/backend/internal/config"
	"github.com/circdesk/backend/internal/http/handlers"
	"github.com/circdesk/backend/internal/http/middleware"
	"github.com/circdesk/backend/internal/version"
	"github.com/circdesk/backend/internal/ws"
)

type Dependencies struct {
	Pinger        handlers.Pinger
	AuthHandler   *handlers.AuthHandler
	LoanHandler   *handlers.LoanHandler
	ReportHandler *handlers.ReportHandler
	WSHandler     *ws.Handler
	JWTManager    *auth.JWTManager
}

func NewRouter(cfg config.Config, logger *slog.Logger, deps Dependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if logger == nil {
		logger = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.RequestBodyLimit(cfg.MaxRequestBodyBytes))

	health := handlers.NewHealthHandler(deps.Pinger)
	meta := handlers.NewMetaHandler(cfg.Env, version.Version)

	r.GET("/health", health.Health)
	r.GET("/ready", health.Ready)
	r.GET("/v1/meta", meta.GetMeta)

	if deps.JWTManager != nil {
		requireAuth := middleware.RequireAuth(deps.JWTManager, cfg.AuthEnableBearer)

		if deps.AuthHandler != nil {
			authGroup := r.Group("/v1/auth")
			authGroup.POST("/login", deps.AuthHandler.Login)
			authGroup.POST("/logout", deps.AuthHandler.Logout)

			protected := authGroup.Group("")
			protected.Use(requireAuth)
			protected.GET("/me", deps.AuthHandler.Me)
		}

		if deps.LoanHandler != nil {
			loanGroup := r.Group("/v1/loans")
			loanGroup.Use(requireAuth)
			loanGroup.POST("", deps.LoanHandler.CreateLoan)
			loanGroup.GET("", deps.LoanHandler.ListLoans)
			loanGroup.GET("/:loanId", deps.LoanHandler.GetLoan)
			loanGroup.POST("/:loanId/return", deps.LoanHandler.RecordReturn)
			loanGroup.PATCH("/:loanId", deps.LoanHandler.UpdateLoan)
			loanGroup.DELETE("/:loanId", middleware.RequireRole(auth.RoleAdmin), deps.LoanHandler.DeleteLoan)
		}

		if deps.ReportHandler != nil {
			reportGroup := r.Group("/v1/reports")
			reportGroup.Use(requireAuth)
			reportGroup.GET("/overdue", deps.ReportHandler.OverdueLoans)
			reportGroup.GET("/top-borrowers", deps.ReportHandler.TopBorrowers)
			reportGroup.GET("/available-by-subject", deps.ReportHandler.AvailableCopiesBySubject)
			reportGroup.GET("/staff-activity", deps.ReportHandler.StaffActivity)
		}

		if deps.WSHandler != nil {
			r.GET("/v1/ws", requireAuth, deps.WSHandler.HandleWebSocket)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	})

	return r
}
