package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	checkoutdomain "github.com/smallbiznis/entitle/internal/checkout/domain"
	identitydomain "github.com/smallbiznis/entitle/internal/identity/domain"
	plandomain "github.com/smallbiznis/entitle/internal/plan/domain"
	reconciledomain "github.com/smallbiznis/entitle/internal/reconcile/domain"
)

// errorResponse mirrors the success envelope: consumers always read
// "success" first, then "error" when it is false.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorResponse) {
	switch {
	case errors.Is(err, identitydomain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{
			Error: "Authentication required",
			Code:  "unauthenticated",
		}
	case errors.Is(err, reconciledomain.ErrInvalidRequest):
		return http.StatusBadRequest, errorResponse{
			Error: "Session ID is required",
			Code:  "invalid_request",
		}
	case errors.Is(err, reconciledomain.ErrForbidden):
		return http.StatusForbidden, errorResponse{
			Error: "Session does not belong to this user",
			Code:  "forbidden",
		}
	case errors.Is(err, checkoutdomain.ErrSessionLookup):
		return http.StatusBadGateway, errorResponse{
			Error: "Could not verify payment session",
			Code:  "upstream_error",
		}
	case errors.Is(err, reconciledomain.ErrPlanIDMissing):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: "Session has no plan reference",
			Code:  "invalid_session_state",
		}
	case errors.Is(err, plandomain.ErrPlanNotFound):
		return http.StatusUnprocessableEntity, errorResponse{
			Error: "Unknown subscription plan",
			Code:  "invalid_session_state",
		}
	case errors.Is(err, reconciledomain.ErrSessionBusy):
		return http.StatusConflict, errorResponse{
			Error: "Session verification already in progress",
			Code:  "conflict",
		}
	default:
		return http.StatusInternalServerError, errorResponse{
			Error: "Could not record subscription",
			Code:  "internal_error",
		}
	}
}
