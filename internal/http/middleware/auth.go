package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/circdesk/backend/internal/auth"
	"github.com/circdesk/backend/internal/domain/loan"
)

const (
	ContextStaffID   = "staff_id"
	ContextStaffRole = "staff_role"
)

// RequireAuth accepts the access cookie and, when allowBearer is set, an
// Authorization: Bearer header. The staff id is also stored on the request
// context as the acting staff member for audit rows.
func RequireAuth(jwt *auth.JWTManager, allowBearer bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ""
		if cookie, err := c.Request.Cookie(auth.AccessCookieName); err == nil {
			token = cookie.Value
		}
		if token == "" && allowBearer {
			header := strings.TrimSpace(c.GetHeader("Authorization"))
			if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
				token = strings.TrimSpace(header[7:])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		claims, err := jwt.Parse(token)
		if err != nil || claims.Type != auth.TokenTypeAccess {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		c.Set(ContextStaffID, claims.StaffID)
		c.Set(ContextStaffRole, claims.Role)
		c.Request = c.Request.WithContext(loan.WithActor(c.Request.Context(), claims.StaffID))
		c.Next()
	}
}
