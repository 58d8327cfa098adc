package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circdesk/backend/internal/domain/report"
)

type ReportService interface {
	OverdueLoans(ctx context.Context, asOf time.Time) ([]report.OverdueLoan, error)
	TopBorrowers(ctx context.Context, windowDays, limit int) ([]report.TopBorrower, error)
	AvailableCopiesBySubject(ctx context.Context) ([]report.SubjectAvailability, error)
	StaffActivity(ctx context.Context, windowWeeks int) ([]report.StaffActivity, error)
}

type ReportHandler struct {
	reportService ReportService
	logger        *slog.Logger
}

func NewReportHandler(reportService ReportService, logger *slog.Logger) *ReportHandler {
	return &ReportHandler{reportService: reportService, logger: logger}
}

func (h *ReportHandler) OverdueLoans(c *gin.Context) {
	var asOf time.Time
	if raw := strings.TrimSpace(c.Query("as_of")); raw != "" {
		d, err := parseDate(raw)
		if err != nil {
			badRequest(c, "as_of", "must be YYYY-MM-DD")
			return
		}
		asOf = d
	}
	items, err := h.reportService.OverdueLoans(c.Request.Context(), asOf)
	h.render(c, items, err)
}

func (h *ReportHandler) TopBorrowers(c *gin.Context) {
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	items, err := h.reportService.TopBorrowers(c.Request.Context(), days, limit)
	h.render(c, items, err)
}

func (h *ReportHandler) AvailableCopiesBySubject(c *gin.Context) {
	items, err := h.reportService.AvailableCopiesBySubject(c.Request.Context())
	h.render(c, items, err)
}

func (h *ReportHandler) StaffActivity(c *gin.Context) {
	weeks, ok := intQuery(c, "weeks")
	if !ok {
		return
	}
	items, err := h.reportService.StaffActivity(c.Request.Context(), weeks)
	h.render(c, items, err)
}

func (h *ReportHandler) render(c *gin.Context, items any, err error) {
	if err != nil {
		if h.logger != nil {
			h.logger.Error("report failed", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// intQuery reads an optional non-negative integer. Absent means zero, which
// the report service treats as its configured default.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		badRequest(c, name, "must be a non-negative integer")
		return 0, false
	}
	return v, true
}
