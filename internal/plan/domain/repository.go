package domain

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id string) (*Plan, error)
}

var (
	ErrPlanNotFound = errors.New("plan_not_found")
)
