package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circdesk/backend/internal/domain/catalog"
	loandomain "github.com/circdesk/backend/internal/domain/loan"
)

const dateLayout = "2006-01-02"

type LoanService interface {
	CreateLoan(ctx context.Context, in loandomain.CreateInput) (*loandomain.Entity, error)
	RecordReturn(ctx context.Context, loanID int64, returnDate time.Time) (*loandomain.Entity, error)
	UpdateLoan(ctx context.Context, loanID int64, in loandomain.UpdateInput) (*loandomain.Entity, error)
	DeleteLoan(ctx context.Context, loanID int64) error
	GetLoan(ctx context.Context, loanID int64) (*loandomain.Entity, error)
	ListLoans(ctx context.Context, filter loandomain.ListFilter) ([]loandomain.Entity, error)
	Classify(e loandomain.Entity) loandomain.OverdueStatus
}

type LoanHandler struct {
	loanService LoanService
	logger      *slog.Logger
}

func NewLoanHandler(loanService LoanService, logger *slog.Logger) *LoanHandler {
	return &LoanHandler{loanService: loanService, logger: logger}
}

// loanView is the wire shape of a loan: the stored row plus the state and
// the overdue classification derived from today's date.
type loanView struct {
	loandomain.Entity
	State         loandomain.State         `json:"state"`
	OverdueStatus loandomain.OverdueStatus `json:"overdue_status"`
}

func (h *LoanHandler) view(e loandomain.Entity) loanView {
	return loanView{Entity: e, State: e.State(), OverdueStatus: h.loanService.Classify(e)}
}

type createLoanRequest struct {
	LoanID       int64  `json:"loan_id" binding:"required"`
	MemberID     int64  `json:"member_id" binding:"required"`
	ISBN         string `json:"isbn" binding:"required"`
	CopyID       int64  `json:"copy_id" binding:"required"`
	StaffID      int64  `json:"staff_id"`
	CheckoutDate string `json:"checkout_date"`
	DueDate      string `json:"due_date"`
}

func (h *LoanHandler) CreateLoan(c *gin.Context) {
	var req createLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	staffID := req.StaffID
	if staffID == 0 {
		staffID = loandomain.ActorFrom(c.Request.Context())
	}

	in := loandomain.CreateInput{
		ID:       req.LoanID,
		MemberID: req.MemberID,
		Copy:     catalog.CopyKey{ISBN: strings.TrimSpace(req.ISBN), CopyID: req.CopyID},
		StaffID:  staffID,
	}
	if req.CheckoutDate != "" {
		d, err := parseDate(req.CheckoutDate)
		if err != nil {
			badRequest(c, "checkout_date", "must be YYYY-MM-DD")
			return
		}
		in.CheckoutDate = d
	}
	if req.DueDate != "" {
		d, err := parseDate(req.DueDate)
		if err != nil {
			badRequest(c, "due_date", "must be YYYY-MM-DD")
			return
		}
		in.DueDate = &d
	}

	created, err := h.loanService.CreateLoan(c.Request.Context(), in)
	if err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, h.view(*created))
}

func (h *LoanHandler) ListLoans(c *gin.Context) {
	limit, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("limit", "50")), 10, 32)
	offset, _ := strconv.ParseInt(strings.TrimSpace(c.DefaultQuery("offset", "0")), 10, 32)
	memberID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("member_id")), 10, 64)
	staffID, _ := strconv.ParseInt(strings.TrimSpace(c.Query("staff_id")), 10, 64)
	openOnly, _ := strconv.ParseBool(strings.TrimSpace(c.DefaultQuery("open", "false")))

	items, err := h.loanService.ListLoans(c.Request.Context(), loandomain.ListFilter{
		MemberID: memberID,
		StaffID:  staffID,
		OpenOnly: openOnly,
		Limit:    int32(limit),
		Offset:   int32(offset),
	})
	if err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	views := make([]loanView, 0, len(items))
	for _, item := range items {
		views = append(views, h.view(item))
	}
	c.JSON(http.StatusOK, gin.H{"items": views})
}

func (h *LoanHandler) GetLoan(c *gin.Context) {
	loanID, ok := loanIDParam(c)
	if !ok {
		return
	}
	item, err := h.loanService.GetLoan(c.Request.Context(), loanID)
	if err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*item))
}

func (h *LoanHandler) RecordReturn(c *gin.Context) {
	loanID, ok := loanIDParam(c)
	if !ok {
		return
	}
	var req struct {
		ReturnDate string `json:"return_date"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}

	var returnDate time.Time
	if req.ReturnDate != "" {
		d, err := parseDate(req.ReturnDate)
		if err != nil {
			badRequest(c, "return_date", "must be YYYY-MM-DD")
			return
		}
		returnDate = d
	}

	item, err := h.loanService.RecordReturn(c.Request.Context(), loanID, returnDate)
	if err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*item))
}

type updateLoanRequest struct {
	DueDate         *string `json:"due_date"`
	ReturnDate      *string `json:"return_date"`
	ClearReturnDate bool    `json:"clear_return_date"`
	OverdueStatus   *string `json:"overdue_status"`
	StaffID         *int64  `json:"staff_id"`
}

func (h *LoanHandler) UpdateLoan(c *gin.Context) {
	loanID, ok := loanIDParam(c)
	if !ok {
		return
	}

	var req updateLoanRequest
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}

	in := loandomain.UpdateInput{ClearReturnDate: req.ClearReturnDate, StaffID: req.StaffID}
	if req.DueDate != nil {
		d, err := parseDate(*req.DueDate)
		if err != nil {
			badRequest(c, "due_date", "must be YYYY-MM-DD")
			return
		}
		in.DueDate = &d
	}
	if req.ReturnDate != nil {
		d, err := parseDate(*req.ReturnDate)
		if err != nil {
			badRequest(c, "return_date", "must be YYYY-MM-DD")
			return
		}
		in.ReturnDate = &d
	}
	if req.OverdueStatus != nil {
		status, err := loandomain.ParseOverdueStatus(*req.OverdueStatus)
		if err != nil {
			writeLoanError(c, h.logger, err)
			return
		}
		in.OverdueStatus = &status
	}

	item, err := h.loanService.UpdateLoan(c.Request.Context(), loanID, in)
	if err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, h.view(*item))
}

func (h *LoanHandler) DeleteLoan(c *gin.Context) {
	loanID, ok := loanIDParam(c)
	if !ok {
		return
	}
	if err := h.loanService.DeleteLoan(c.Request.Context(), loanID); err != nil {
		writeLoanError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func loanIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("loanId")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "field": "loan_id", "message": "must be a positive integer"})
		return 0, false
	}
	return id, true
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}
