package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/entitle/internal/profile/domain"
	"github.com/smallbiznis/entitle/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) AddCredits(ctx context.Context, gdb *gorm.DB, userID string, amount int64) error {
	now := time.Now().UTC()
	res := gdb.WithContext(ctx).Exec(`
		UPDATE profiles
		SET credits_balance = credits_balance + ?, updated_at = ?
		WHERE id = ?
	`, amount, now, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}

	err := gdb.WithContext(ctx).Exec(`
		INSERT INTO profiles (id, credits_balance, updated_at)
		VALUES (?, ?, ?)
	`, userID, amount, now).Error
	if err == nil {
		return nil
	}
	if !db.IsDuplicateKeyErr(err) {
		return err
	}

	// Lost the insert race, the row exists now.
	return gdb.WithContext(ctx).Exec(`
		UPDATE profiles
		SET credits_balance = credits_balance + ?, updated_at = ?
		WHERE id = ?
	`, amount, now, userID).Error
}

func (r *repo) Balance(ctx context.Context, gdb *gorm.DB, userID string) (int64, error) {
	var balance int64
	err := gdb.WithContext(ctx).Raw(`
		SELECT credits_balance FROM profiles WHERE id = ?
	`, userID).Scan(&balance).Error
	if err != nil {
		return 0, err
	}
	return balance, nil
}
