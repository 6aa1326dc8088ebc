// Package domain contains the user profile / credit balance model.
package domain

import "time"

// Profile holds the user's spendable credit balance. The balance only moves
// by increments from this service; it is never overwritten wholesale.
type Profile struct {
	ID             string    `gorm:"primaryKey"`
	CreditsBalance int64     `gorm:"not null;default:0"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Profile) TableName() string { return "profiles" }
