package domain

import (
	"context"
	"errors"
)

// Session modes as reported by the payment processor.
const (
	ModePayment      = "payment"
	ModeSubscription = "subscription"
)

// Metadata keys the checkout flow stamps onto sessions at creation time.
const (
	MetadataUserID = "user_id"
	MetadataPlanID = "plan_id"
)

// Session is the processor's view of a checkout attempt. Fetched fresh on
// every call, never cached locally.
type Session struct {
	ID            string
	Status        string
	PaymentStatus string
	Mode          string

	// SubscriptionRef is the recurring billing agreement id, normalized
	// from the processor's string-or-object representation. Nil for
	// one-time payments.
	SubscriptionRef *string

	Metadata map[string]string
}

// Paid reports whether the session represents a settled payment. The
// processor has historically signalled this through either field, so both
// are accepted; downstream logic never inspects the raw fields.
func (s *Session) Paid() bool {
	return s.PaymentStatus == "paid" || s.Status == "complete"
}

// RecurringRef returns the billing agreement id for subscription-mode
// sessions. One-time payment sessions sometimes carry a subscription
// field upstream; it is never surfaced.
func (s *Session) RecurringRef() *string {
	if s.Mode != ModeSubscription {
		return nil
	}
	return s.SubscriptionRef
}

func (s *Session) UserID() string {
	return s.Metadata[MetadataUserID]
}

func (s *Session) PlanID() string {
	return s.Metadata[MetadataPlanID]
}

type Service interface {
	GetSession(ctx context.Context, sessionID string) (*Session, error)
}

var (
	ErrSessionLookup = errors.New("session_lookup_failed")
)
