package models

import "time"

// Subscription statuses. "cancelled" and "expired" are terminal for the row;
// reactivation resets the cancellation fields and moves the row back to active.
const (
	SubscriptionStatusPending   = "pending"
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusExpired   = "expired"
	SubscriptionStatusFailed    = "failed"
)

// Plan types sold through checkout.
const (
	PlanTypeMonthly = "monthly"
	PlanTypeYearly  = "yearly"
)

// Subscription is the authoritative subscription row per user. Webhook
// handlers and the cleanup job are the only writers; the profile mirror is
// derived from it.
type Subscription struct {
	ID                        uint       `gorm:"primaryKey" json:"id"`
	UserID                    string     `gorm:"type:varchar(64);not null;index:idx_subscriptions_user_status,priority:1" json:"user_id"`
	Status                    string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_subscriptions_user_status,priority:2;index" json:"status"`
	PlanType                  string     `gorm:"type:varchar(20);not null;default:'monthly'" json:"plan_type"`
	ReferenceCode             string     `gorm:"type:varchar(191);not null;default:'';index:ux_subscriptions_reference,unique" json:"reference_code"`
	CurrentPeriodStart        *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd          *time.Time `gorm:"type:timestamp;default:null;index" json:"current_period_end,omitempty"`
	MercadopagoSubscriptionID string     `gorm:"type:varchar(191);default:''" json:"mercadopago_subscription_id"`
	CancelledAt               *time.Time `gorm:"type:timestamp;default:null" json:"cancelled_at,omitempty"`
	CancellationReason        string     `gorm:"type:varchar(255);default:''" json:"cancellation_reason"`
	CancelAtPeriodEnd         bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt                 time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt                 time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether the row reached a state no webhook may move it
// out of (except explicit reactivation).
func (s *Subscription) IsTerminal() bool {
	return s.Status == SubscriptionStatusCancelled || s.Status == SubscriptionStatusExpired
}
