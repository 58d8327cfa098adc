package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/circdesk/backend/internal/auth"
	"github.com/circdesk/backend/internal/domain/staff"
)

type AuthService interface {
	Login(ctx context.Context, staffID int64, passcode string) (*auth.LoginResult, error)
	Me(ctx context.Context, staffID int64) (*staff.Entity, error)
}

type AuthHandler struct {
	authService AuthService
	cookieCfg   auth.CookieConfig
	accessTTL   time.Duration
	logger      *slog.Logger
}

type loginRequest struct {
	StaffID  int64  `json:"staff_id" binding:"required"`
	Passcode string `json:"passcode" binding:"required"`
}

func NewAuthHandler(authService AuthService, cookieCfg auth.CookieConfig, accessTTL time.Duration, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookieCfg: cookieCfg, accessTTL: accessTTL, logger: logger}
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), req.StaffID, req.Passcode)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) && h.logger != nil {
			h.logger.Error("staff login failed", "staff_id", req.StaffID, "ip", auth.ClientIP(c.Request), "err", err)
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication_failed"})
		return
	}

	auth.SetAccessCookie(c.Writer, h.cookieCfg, result.AccessToken, h.accessTTL)
	c.JSON(http.StatusOK, gin.H{
		"staff":        result.Staff,
		"access_token": result.AccessToken,
		"expires_in":   int64(result.ExpiresIn.Seconds()),
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	auth.ClearAccessCookie(c.Writer, h.cookieCfg)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandler) Me(c *gin.Context) {
	sid, ok := c.Get("staff_id")
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	staffID, ok := sid.(int64)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	st, err := h.authService.Me(c.Request.Context(), staffID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": st})
}
