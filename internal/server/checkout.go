package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/entitle/internal/metrics"
	reconciledomain "github.com/smallbiznis/entitle/internal/reconcile/domain"
	"go.uber.org/zap"
)

type VerifyCheckoutRequest struct {
	SessionID string `json:"sessionId"`
}

type VerifyCheckoutResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	Plan          string `json:"plan,omitempty"`
	AlreadyExists bool   `json:"alreadyExists,omitempty"`
}

type paymentPendingResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  string `json:"status"`
}

func (s *Server) VerifyCheckoutSession(c *gin.Context) {
	var req VerifyCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, reconciledomain.ErrInvalidRequest)
		return
	}

	result, err := s.reconcileSvc.VerifySession(c.Request.Context(), reconciledomain.Request{
		UserID:    currentUserID(c),
		SessionID: req.SessionID,
	})
	if err != nil {
		s.metrics.IncVerify(metrics.OutcomeError)
		s.log.Warn("checkout verification failed",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	if result.NotPaid {
		c.JSON(http.StatusBadRequest, paymentPendingResponse{
			Success: false,
			Error:   "Payment not completed",
			Status:  result.PaymentStatus,
		})
		return
	}

	c.JSON(http.StatusOK, VerifyCheckoutResponse{
		Success:       result.Success,
		Message:       result.Message,
		Plan:          result.PlanName,
		AlreadyExists: result.AlreadyExists,
	})
}
