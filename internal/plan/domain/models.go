// Package domain contains the subscription plan catalog models.
package domain

import "time"

// Plan is a purchasable subscription tier. The catalog is maintained out of
// band; this service only reads it.
type Plan struct {
	ID              string    `gorm:"primaryKey" json:"id"`
	Name            string    `gorm:"type:text;not null" json:"name"`
	Credits         int64     `gorm:"not null;default:0" json:"credits"`
	PriceCents      int64     `gorm:"not null;default:0" json:"price_cents"`
	Currency        string    `gorm:"type:text;not null;default:usd" json:"currency"`
	BillingInterval string    `gorm:"type:text;not null;default:month" json:"billing_interval"`
	CreatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Plan) TableName() string { return "subscription_plans" }
