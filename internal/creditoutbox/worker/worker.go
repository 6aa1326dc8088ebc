package worker

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/entitle/internal/clock"
	"github.com/smallbiznis/entitle/internal/config"
	"github.com/smallbiznis/entitle/internal/creditoutbox/domain"
	"github.com/smallbiznis/entitle/internal/metrics"
	profiledomain "github.com/smallbiznis/entitle/internal/profile/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const claimBatchSize = 50

var ErrInvalidConfig = errors.New("outbox worker misconfigured")

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Repo        domain.Repository
	ProfileRepo profiledomain.Repository
	Policy      *config.ReconcilePolicyHolder
	Clock       clock.Clock
	Metrics     *metrics.Metrics `optional:"true"`
}

// Worker drains the credit_grants outbox, crediting balances that the
// verify request could not apply inline.
type Worker struct {
	db          *gorm.DB
	log         *zap.Logger
	repo        domain.Repository
	profileRepo profiledomain.Repository
	policy      *config.ReconcilePolicyHolder
	clock       clock.Clock
	metrics     *metrics.Metrics
}

func New(p Params) (*Worker, error) {
	if p.DB == nil || p.Log == nil || p.Repo == nil || p.ProfileRepo == nil || p.Policy == nil || p.Clock == nil {
		return nil, ErrInvalidConfig
	}
	return &Worker{
		db:          p.DB,
		log:         p.Log.Named("creditoutbox").With(zap.String("component", "credit_outbox")),
		repo:        p.Repo,
		profileRepo: p.ProfileRepo,
		policy:      p.Policy,
		clock:       p.Clock,
		metrics:     p.Metrics,
	}, nil
}

func (w *Worker) RunOnce(ctx context.Context) error {
	policy := w.policy.Current()
	now := w.clock.Now()
	var jobErr error

	// A grant whose state update failed stays due, so ClaimDue can hand it
	// back within the same run. Touch each grant at most once per run; a
	// second application would double the credit.
	seen := make(map[string]struct{})

	for {
		if ctx.Err() != nil {
			jobErr = errors.Join(jobErr, ctx.Err())
			break
		}

		grants, err := w.repo.ClaimDue(ctx, w.db, now, claimBatchSize)
		if err != nil {
			return errors.Join(jobErr, err)
		}

		progressed := false
		for _, grant := range grants {
			if _, done := seen[grant.ID]; done {
				continue
			}
			seen[grant.ID] = struct{}{}
			progressed = true
			if err := w.applyGrant(ctx, grant, policy, now); err != nil {
				jobErr = errors.Join(jobErr, err)
			}
		}
		if !progressed {
			break
		}
	}

	if pending, err := w.repo.CountPending(ctx, w.db); err == nil {
		w.metrics.SetOutboxPending(pending)
	}
	return jobErr
}

func (w *Worker) applyGrant(ctx context.Context, grant domain.CreditGrant, policy config.ReconcilePolicy, now time.Time) error {
	log := w.log.With(
		zap.String("grant_id", grant.ID),
		zap.String("user_id", grant.UserID),
		zap.Int64("credits", grant.Credits),
	)

	err := w.profileRepo.AddCredits(ctx, w.db, grant.UserID, grant.Credits)
	if err == nil {
		if err := w.repo.MarkApplied(ctx, w.db, grant.ID, now); err != nil {
			return err
		}
		w.metrics.IncOutboxGrant("applied")
		log.Info("credit grant applied")
		return nil
	}

	attempts := grant.Attempts + 1
	if attempts >= policy.Outbox.MaxAttempts {
		if markErr := w.repo.MarkFailed(ctx, w.db, grant.ID, err.Error(), now); markErr != nil {
			return errors.Join(err, markErr)
		}
		w.metrics.IncOutboxGrant("failed")
		log.Error("credit grant exhausted retries", zap.Int("attempts", attempts), zap.Error(err))
		return err
	}

	// Backoff doubles per attempt so a flapping database is not hammered.
	backoff := policy.Outbox.InitialBackoff << grant.Attempts
	if markErr := w.repo.Reschedule(ctx, w.db, grant.ID, err.Error(), now.Add(backoff), now); markErr != nil {
		return errors.Join(err, markErr)
	}
	w.metrics.IncOutboxGrant("rescheduled")
	log.Warn("credit grant rescheduled",
		zap.Int("attempts", attempts),
		zap.Duration("backoff", backoff),
		zap.Error(err),
	)
	return nil
}

func (w *Worker) RunForever(ctx context.Context) {
	interval := w.policy.Current().Outbox.Interval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("outbox run failed", zap.Error(err))
		}

		// Interval is hot-reloadable; pick up changes between runs.
		if next := w.policy.Current().Outbox.Interval; next != interval {
			interval = next
			ticker.Reset(interval)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
