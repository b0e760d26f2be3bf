package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agari-platform/folio/models"
)

// errorStatus maps service errors onto HTTP status codes. A failed
// provisioning saga is reported as a bad gateway even when the underlying
// cause was a timeout; a bare timeout from a passthrough call stays a
// gateway timeout.
func errorStatus(err error) int {
	var provisioningErr *models.ProvisioningError
	switch {
	case errors.As(err, &provisioningErr):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidReference),
		errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrConfirmationRequired):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrPurgeBlocked):
		return http.StatusLocked
	case errors.Is(err, models.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(ctx *gin.Context, err error, message string) {
	ctx.JSON(errorStatus(err), gin.H{
		"status":  "error",
		"message": message + ": " + err.Error(),
	})
}

func badRequest(ctx *gin.Context, message string) {
	ctx.JSON(http.StatusBadRequest, gin.H{
		"status":  "error",
		"message": message,
	})
}
