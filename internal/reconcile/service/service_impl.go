package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	checkoutdomain "github.com/smallbiznis/entitle/internal/checkout/domain"
	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	outboxdomain "github.com/smallbiznis/entitle/internal/creditoutbox/domain"
	"github.com/smallbiznis/entitle/internal/metrics"
	plandomain "github.com/smallbiznis/entitle/internal/plan/domain"
	profiledomain "github.com/smallbiznis/entitle/internal/profile/domain"
	"github.com/smallbiznis/entitle/internal/reconcile/domain"
	"github.com/smallbiznis/entitle/internal/sessionlock"
	subscriptiondomain "github.com/smallbiznis/entitle/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	messageActivated     = "Subscription activated successfully"
	messageAlreadyExists = "Subscription already exists"
)

var ErrInvalidConfig = errors.New("reconcile service misconfigured")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	CheckoutSvc checkoutdomain.Service
	PlanRepo    plandomain.Repository
	SubRepo     subscriptiondomain.Repository
	ProfileRepo profiledomain.Repository
	OutboxRepo  outboxdomain.Repository
	Locker      *sessionlock.SessionLocker
	Policy      *config.ReconcilePolicyHolder
	Clock       clock.Clock
	GenID       *snowflake.Node
	Metrics     *metrics.Metrics `optional:"true"`
}

type service struct {
	db          *gorm.DB
	log         *zap.Logger
	checkoutSvc checkoutdomain.Service
	planRepo    plandomain.Repository
	subRepo     subscriptiondomain.Repository
	profileRepo profiledomain.Repository
	outboxRepo  outboxdomain.Repository
	locker      *sessionlock.SessionLocker
	policy      *config.ReconcilePolicyHolder
	clock       clock.Clock
	genID       *snowflake.Node
	metrics     *metrics.Metrics
}

func New(p Params) (domain.Service, error) {
	if p.DB == nil || p.Log == nil || p.CheckoutSvc == nil || p.PlanRepo == nil || p.SubRepo == nil || p.ProfileRepo == nil || p.OutboxRepo == nil || p.Policy == nil || p.Clock == nil || p.GenID == nil {
		return nil, ErrInvalidConfig
	}
	return &service{
		db:          p.DB,
		log:         p.Log.Named("reconcile"),
		checkoutSvc: p.CheckoutSvc,
		planRepo:    p.PlanRepo,
		subRepo:     p.SubRepo,
		profileRepo: p.ProfileRepo,
		outboxRepo:  p.OutboxRepo,
		locker:      p.Locker,
		policy:      p.Policy,
		clock:       p.Clock,
		genID:       p.GenID,
		metrics:     p.Metrics,
	}, nil
}

func (s *service) VerifySession(ctx context.Context, req domain.Request) (*domain.Result, error) {
	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" || strings.TrimSpace(req.UserID) == "" {
		return nil, domain.ErrInvalidRequest
	}

	log := s.log.With(
		zap.String("user_id", req.UserID),
		zap.String("session_id", sessionID),
	)

	session, err := s.checkoutSvc.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	// Sessions carry the purchasing user in metadata. Anything short of an
	// exact match, including a missing stamp, means the session was not
	// created for the caller.
	if session.UserID() != req.UserID {
		log.Warn("session not owned by caller")
		return nil, domain.ErrForbidden
	}

	if !session.Paid() {
		log.Info("session not paid", zap.String("payment_status", session.PaymentStatus))
		s.metrics.IncVerify(metrics.OutcomeNotPaid)
		return &domain.Result{
			NotPaid:       true,
			PaymentStatus: session.PaymentStatus,
		}, nil
	}

	planID := session.PlanID()
	if planID == "" {
		return nil, domain.ErrPlanIDMissing
	}
	plan, err := s.planRepo.FindByID(ctx, s.db, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, plandomain.ErrPlanNotFound
	}

	policy := s.policy.Current()
	token, acquired := s.locker.TryLock(ctx, sessionID, policy)
	if !acquired {
		// Another request is reconciling this session right now. If it
		// already finished the caller gets the idempotent answer.
		if existing, err := s.subRepo.FindBySessionID(ctx, s.db, sessionID); err == nil && existing != nil {
			return s.alreadyExists(log), nil
		}
		return nil, domain.ErrSessionBusy
	}
	defer s.locker.Release(ctx, sessionID, token)

	// Replay of a consumed session is a success, not a conflict.
	if existing, err := s.subRepo.FindBySessionID(ctx, s.db, sessionID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.alreadyExists(log), nil
	}
	if existing, err := s.subRepo.FindActiveByUserID(ctx, s.db, req.UserID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.alreadyExists(log), nil
	}

	now := s.clock.Now()
	sub := &subscriptiondomain.UserSubscription{
		ID:                   s.genID.Generate(),
		UserID:               req.UserID,
		PlanID:               plan.ID,
		Status:               subscriptiondomain.StatusActive,
		RenewsOn:             now.AddDate(0, 0, policy.RenewalDays),
		StripeSubscriptionID: session.RecurringRef(),
		CheckoutSessionID:    sessionID,
		Metadata: datatypes.JSONMap{
			"mode":      session.Mode,
			"plan_name": plan.Name,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.subRepo.Insert(ctx, s.db, sub); err != nil {
		// The partial unique index on active subscriptions and the unique
		// session index close the check-then-insert race.
		if errors.Is(err, subscriptiondomain.ErrAlreadyGranted) {
			return s.alreadyExists(log), nil
		}
		return nil, err
	}

	s.grantCredits(ctx, log, sub, plan, now)

	log.Info("subscription activated",
		zap.String("subscription_id", sub.ID.String()),
		zap.String("plan_id", plan.ID),
		zap.Time("renews_on", sub.RenewsOn),
	)
	s.metrics.IncVerify(metrics.OutcomeActivated)
	return &domain.Result{
		Success:  true,
		Message:  messageActivated,
		PlanName: plan.Name,
	}, nil
}

// grantCredits applies the plan's credit allowance. A failure never fails
// the request; the grant is parked in the outbox and retried there.
func (s *service) grantCredits(ctx context.Context, log *zap.Logger, sub *subscriptiondomain.UserSubscription, plan *plandomain.Plan, now time.Time) {
	if plan.Credits <= 0 {
		return
	}

	err := s.profileRepo.AddCredits(ctx, s.db, sub.UserID, plan.Credits)
	if err == nil {
		s.metrics.IncCreditGrant("applied")
		return
	}

	s.metrics.IncCreditGrant("deferred")
	log.Error("inline credit grant failed, deferring to outbox", zap.Error(err))

	grant := &outboxdomain.CreditGrant{
		ID:             ulid.Make().String(),
		SubscriptionID: sub.ID,
		UserID:         sub.UserID,
		PlanID:         plan.ID,
		Credits:        plan.Credits,
		Status:         outboxdomain.GrantStatusPending,
		NextAttemptAt:  now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if enqueueErr := s.outboxRepo.Insert(ctx, s.db, grant); enqueueErr != nil {
		log.Error("credit grant enqueue failed", zap.Error(enqueueErr))
	}
}

func (s *service) alreadyExists(log *zap.Logger) *domain.Result {
	log.Info("subscription already granted")
	s.metrics.IncVerify(metrics.OutcomeAlreadyExists)
	return &domain.Result{
		Success:       true,
		Message:       messageAlreadyExists,
		AlreadyExists: true,
	}
}
