package domain

import (
	"context"
	"errors"
)

// Request identifies one checkout session to reconcile on behalf of an
// authenticated user.
type Request struct {
	UserID    string
	SessionID string
}

// Result is the reconciliation outcome for a settled request. Failures that
// should surface as transport errors are returned as errors instead.
type Result struct {
	Success       bool
	Message       string
	PlanName      string
	AlreadyExists bool

	// NotPaid is set when the processor reports the session unpaid. The
	// raw payment status is carried through for the response body.
	NotPaid       bool
	PaymentStatus string
}

type Service interface {
	VerifySession(ctx context.Context, req Request) (*Result, error)
}

var (
	ErrInvalidRequest = errors.New("invalid_request")
	ErrForbidden      = errors.New("session_ownership_mismatch")
	ErrPlanIDMissing  = errors.New("plan_reference_missing")
	ErrSessionBusy    = errors.New("session_verification_in_progress")
)
