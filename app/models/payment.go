package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses mirror the provider outcome for a single attempt.
const (
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusPending   = "pending"
)

// Payment providers.
const (
	PaymentProviderPayU        = "payu"
	PaymentProviderMercadoPago = "mercadopago"
)

// Payment is an append-only audit row, one per webhook-confirmed payment
// attempt. The provider+provider_payment_id unique key keeps redelivered
// webhooks from double-inserting.
type Payment struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	SubscriptionID    uint            `gorm:"not null;index" json:"subscription_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Currency          string          `gorm:"type:varchar(3);not null;default:'COP'" json:"currency"`
	Status            string          `gorm:"type:varchar(20);not null;index" json:"status"`
	Provider          string          `gorm:"type:varchar(20);not null;index:ux_payments_provider_payment,unique,priority:1" json:"provider"`
	ProviderPaymentID string          `gorm:"type:varchar(191);not null;index:ux_payments_provider_payment,unique,priority:2" json:"provider_payment_id"`
	CreatedAt         time.Time       `gorm:"autoCreateTime;index" json:"created_at"`
}
