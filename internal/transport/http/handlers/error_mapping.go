package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/marketplace-auth/internal/transport/http/middleware"
	"github.com/arklim/marketplace-auth/internal/usecase"
)

const internalErrorMessage = "Something went wrong, please try again later"

var statusByKind = map[usecase.ErrorKind]int{
	usecase.KindValidation: http.StatusBadRequest,
	usecase.KindAuth:       http.StatusUnauthorized,
	usecase.KindForbidden:  http.StatusForbidden,
	usecase.KindNotFound:   http.StatusNotFound,
	usecase.KindRateLimit:  http.StatusTooManyRequests,
	usecase.KindDatabase:   http.StatusInternalServerError,
}

// RespondError maps a service error to its status code and client message.
// Errors outside the service taxonomy become a generic 500.
func RespondError(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}
	svcErr, ok := usecase.AsError(err)
	if !ok {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, internalErrorMessage))
		return
	}

	status, known := statusByKind[svcErr.Kind]
	if !known {
		status = http.StatusInternalServerError
	}

	switch status {
	case http.StatusTooManyRequests:
		middleware.AbortTooManyRequests(c, svcErr.Message, svcErr.RetryAfter)
	case http.StatusInternalServerError:
		_ = c.Error(err)
		c.JSON(status, NewErrorResponse(c, internalErrorMessage))
	default:
		c.JSON(status, NewErrorResponse(c, svcErr.Message))
	}
}
