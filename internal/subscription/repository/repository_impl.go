package repository

import (
	"context"

	subscriptiondomain "github.com/smallbiznis/entitle/internal/subscription/domain"
	pkgdb "github.com/smallbiznis/entitle/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() subscriptiondomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, sub *subscriptiondomain.UserSubscription) error {
	err := db.WithContext(ctx).Exec(
		`INSERT INTO user_subscriptions (
			id, user_id, plan_id, status, renews_on, stripe_subscription_id,
			checkout_session_id, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.UserID,
		sub.PlanID,
		sub.Status,
		sub.RenewsOn,
		sub.StripeSubscriptionID,
		sub.CheckoutSessionID,
		sub.Metadata,
		sub.CreatedAt,
		sub.UpdatedAt,
	).Error
	if pkgdb.IsDuplicateKeyErr(err) {
		return subscriptiondomain.ErrAlreadyGranted
	}
	return err
}

func (r *repo) FindActiveByUserID(ctx context.Context, db *gorm.DB, userID string) (*subscriptiondomain.UserSubscription, error) {
	var sub subscriptiondomain.UserSubscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, plan_id, status, renews_on, stripe_subscription_id,
		 checkout_session_id, metadata, created_at, updated_at
		 FROM user_subscriptions
		 WHERE user_id = ? AND status = ?
		 ORDER BY created_at DESC
		 LIMIT 1`,
		userID,
		subscriptiondomain.StatusActive,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}

func (r *repo) FindBySessionID(ctx context.Context, db *gorm.DB, sessionID string) (*subscriptiondomain.UserSubscription, error) {
	var sub subscriptiondomain.UserSubscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, user_id, plan_id, status, renews_on, stripe_subscription_id,
		 checkout_session_id, metadata, created_at, updated_at
		 FROM user_subscriptions
		 WHERE checkout_session_id = ?
		 LIMIT 1`,
		sessionID,
	).Scan(&sub).Error
	if err != nil {
		return nil, err
	}
	if sub.ID == 0 {
		return nil, nil
	}
	return &sub, nil
}
