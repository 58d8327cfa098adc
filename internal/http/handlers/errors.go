package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	loandomain "github.com/circdesk/backend/internal/domain/loan"
)

// writeLoanError renders a lifecycle failure. Storage failures are logged
// and reported without their cause.
func writeLoanError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		ref *loandomain.ReferenceNotFoundError
		val *loandomain.ValidationError
		dup *loandomain.DuplicateLoanError
		cu  *loandomain.CopyUnavailableError
	)
	switch {
	case errors.As(err, &ref):
		c.JSON(http.StatusNotFound, gin.H{"error": "reference_not_found", "kind": ref.Kind, "key": ref.Key})
	case errors.Is(err, loandomain.ErrLoanNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "loan_not_found"})
	case errors.As(err, &dup):
		c.JSON(http.StatusConflict, gin.H{"error": "duplicate_loan", "loan_id": dup.ID})
	case errors.As(err, &cu):
		c.JSON(http.StatusConflict, gin.H{"error": "copy_unavailable", "copy": cu.Key, "status": cu.Status})
	case errors.Is(err, loandomain.ErrCopyUnavailable):
		c.JSON(http.StatusConflict, gin.H{"error": "copy_unavailable"})
	case errors.As(err, &val):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "field": val.Field, "message": val.Message})
	default:
		if logger != nil {
			logger.Error("loan request failed", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage_error"})
	}
}

func badRequest(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "field": field, "message": message})
}
