package models

import "time"

// Profile.subscription_status values. A denormalized mirror of the
// authoritative Subscription row, collapsed to two values the UI cares about.
const (
	ProfileStatusFree    = "free"
	ProfileStatusPremium = "premium"
)

// Profile holds the per-user denormalized subscription state read by the
// settings UI. Every lifecycle transition writes it in the same service
// operation; the cleanup healer repairs crash-window divergence.
type Profile struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	UserID             string    `gorm:"type:varchar(64);not null;index:ux_profiles_user,unique" json:"user_id"`
	Email              string    `gorm:"type:varchar(200);default:''" json:"email"`
	FullName           string    `gorm:"type:varchar(200);default:''" json:"full_name"`
	SubscriptionStatus string    `gorm:"type:varchar(20);not null;default:'free';index" json:"subscription_status"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
