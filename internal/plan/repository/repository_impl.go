package repository

import (
	"context"

	plandomain "github.com/smallbiznis/entitle/internal/plan/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() plandomain.Repository {
	return &repo{}
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id string) (*plandomain.Plan, error) {
	var plan plandomain.Plan
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, credits, price_cents, currency, billing_interval, created_at, updated_at
		 FROM subscription_plans WHERE id = ?`,
		id,
	).Scan(&plan).Error
	if err != nil {
		return nil, err
	}
	if plan.ID == "" {
		return nil, nil
	}
	return &plan, nil
}
