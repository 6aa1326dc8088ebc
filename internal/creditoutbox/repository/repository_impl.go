package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/entitle/internal/creditoutbox/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, grant *domain.CreditGrant) error {
	return db.WithContext(ctx).Exec(`
		INSERT INTO credit_grants (
			id, subscription_id, user_id, plan_id, credits,
			status, attempts, last_error, next_attempt_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		grant.ID,
		grant.SubscriptionID,
		grant.UserID,
		grant.PlanID,
		grant.Credits,
		grant.Status,
		grant.Attempts,
		grant.LastError,
		grant.NextAttemptAt,
		grant.CreatedAt,
		grant.UpdatedAt,
	).Error
}

func (r *repo) ClaimDue(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.CreditGrant, error) {
	var grants []domain.CreditGrant
	err := db.WithContext(ctx).Raw(`
		SELECT id, subscription_id, user_id, plan_id, credits,
		       status, attempts, last_error, next_attempt_at, created_at, updated_at
		FROM credit_grants
		WHERE status = ? AND next_attempt_at <= ?
		ORDER BY next_attempt_at ASC
		LIMIT ?
	`, domain.GrantStatusPending, now, limit).Scan(&grants).Error
	if err != nil {
		return nil, err
	}
	return grants, nil
}

func (r *repo) MarkApplied(ctx context.Context, db *gorm.DB, id string, now time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE credit_grants
		SET status = ?, last_error = '', updated_at = ?
		WHERE id = ? AND status = ?
	`, domain.GrantStatusApplied, now, id, domain.GrantStatusPending).Error
}

func (r *repo) Reschedule(ctx context.Context, db *gorm.DB, id string, lastError string, nextAttemptAt time.Time, now time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE credit_grants
		SET attempts = attempts + 1, last_error = ?, next_attempt_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, lastError, nextAttemptAt, now, id, domain.GrantStatusPending).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id string, lastError string, now time.Time) error {
	return db.WithContext(ctx).Exec(`
		UPDATE credit_grants
		SET status = ?, attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, domain.GrantStatusFailed, lastError, now, id, domain.GrantStatusPending).Error
}

func (r *repo) CountPending(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`
		SELECT COUNT(1) FROM credit_grants WHERE status = ?
	`, domain.GrantStatusPending).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
