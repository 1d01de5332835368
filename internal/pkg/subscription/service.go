package subscription

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payu"
)

// Activation windows and period length for the lifecycle state machine.
const (
	ActivationWindow       = 10 * time.Minute
	ActivationWindowBackup = time.Hour
	PeriodLength           = 30 * 24 * time.Hour
)

// Cancellation reasons written by the sweeps and handlers.
const (
	ReasonActivationExpired = "activation window expired"
	ReasonPaymentExpired    = "payment expired at provider"
	ReasonProviderCancel    = "cancelled by payment provider"
)

// Outcome describes what a lifecycle operation did, for handler responses
// and logs.
type Outcome string

const (
	OutcomeActivated       Outcome = "activated"
	OutcomeAlreadyActive   Outcome = "already_active"
	OutcomeMarkedFailed    Outcome = "marked_failed"
	OutcomeCancelled       Outcome = "cancelled"
	OutcomeCancelScheduled Outcome = "cancel_scheduled"
	OutcomePaymentPending  Outcome = "payment_pending"
	OutcomeIgnored         Outcome = "ignored"
)

var (
	ErrNoActiveSubscription      = errors.New("no active subscription for user")
	ErrNoActivatableSubscription = errors.New("no activatable subscription for user")
	ErrUnknownTransactionState   = errors.New("unknown transaction state")
)

// StatusCache invalidates or refreshes the cached per-user subscription
// status after a transition. Injected so tests can observe it and servers
// are never coupled to process-global state.
type StatusCache interface {
	SetStatus(userID, status string)
	Invalidate(userID string)
}

type noopCache struct{}

func (noopCache) SetStatus(string, string) {}
func (noopCache) Invalidate(string)        {}

// Service reconciles subscription rows against provider events, user actions
// and scheduled sweeps. All transitions are compare-and-swap updates keyed on
// the expected prior status, so duplicate deliveries and overlapping sweeps
// degrade to no-ops.
type Service struct {
	repo  Repository
	cache StatusCache
	now   func() time.Time
}

// NewService creates a lifecycle service from an injected repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, cache: noopCache{}, now: time.Now}
}

// NewServiceFromDB creates a lifecycle service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB) *Service {
	return NewService(NewRepository(db))
}

// UseStatusCache attaches a status cache. Safe to skip; the default is a
// no-op.
func (s *Service) UseStatusCache(c StatusCache) *Service {
	if c != nil {
		s.cache = c
	}
	return s
}

// StartCheckout creates the pending subscription row the checkout flow
// references. It stays pending until a verified webhook or the success-page
// reconciliation activates it, or a sweep cancels it.
func (s *Service) StartCheckout(ctx context.Context, userID, planType string) (*models.Subscription, error) {
	_ = ctx
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.New("user_id is required")
	}
	switch planType {
	case models.PlanTypeMonthly, models.PlanTypeYearly:
	default:
		planType = models.PlanTypeMonthly
	}

	sub := &models.Subscription{
		UserID:        userID,
		Status:        models.SubscriptionStatusPending,
		PlanType:      planType,
		ReferenceCode: "SUB-" + uuid.NewString(),
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// HandlePayUConfirmation applies a verified PayU confirmation webhook. The
// caller has already checked the signature; nothing here trusts the payload
// beyond that.
func (s *Service) HandlePayUConfirmation(ctx context.Context, conf payu.Confirmation) (Outcome, error) {
	_ = ctx
	amount := parseAmount(conf.Value)

	switch payu.ParseStatePol(conf.StatePol) {
	case payu.StateApproved:
		return s.activateByReference(conf.ReferenceSale, models.PaymentProviderPayU, conf.TransactionID, amount, conf.Currency)
	case payu.StateDeclined:
		return s.failByReference(conf.ReferenceSale, conf.TransactionID, amount, conf.Currency)
	case payu.StateExpired:
		return s.expireByReference(conf.ReferenceSale, conf.TransactionID, amount, conf.Currency)
	case payu.StatePending:
		return s.recordPendingPayment(conf.ReferenceSale, conf.TransactionID, amount, conf.Currency)
	default:
		return OutcomeIgnored, ErrUnknownTransactionState
	}
}

// ActivateForUser activates the user's pending subscription, or creates an
// active row when none exists (provider events can outrun checkout
// persistence). Used by the MercadoPago path where the external reference is
// the user id.
func (s *Service) ActivateForUser(ctx context.Context, userID, provider, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	_ = ctx
	sub, err := s.repo.GetRecentPendingByUser(userID, time.Time{})
	if err == nil {
		return s.activate(sub, provider, providerPaymentID, amount, currency)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeIgnored, err
	}

	if active, err := s.repo.GetActiveByUser(userID); err == nil {
		s.appendPayment(active.ID, provider, providerPaymentID, amount, currency, models.PaymentStatusCompleted)
		s.setProfile(userID, models.ProfileStatusPremium)
		return OutcomeAlreadyActive, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeIgnored, err
	}

	now := s.now()
	end := now.Add(PeriodLength)
	sub = &models.Subscription{
		UserID:             userID,
		Status:             models.SubscriptionStatusActive,
		PlanType:           models.PlanTypeMonthly,
		ReferenceCode:      "SUB-" + uuid.NewString(),
		CurrentPeriodStart: &now,
		CurrentPeriodEnd:   &end,
	}
	if provider == models.PaymentProviderMercadoPago {
		sub.MercadopagoSubscriptionID = providerPaymentID
	}
	if err := s.repo.CreateSubscription(sub); err != nil {
		return OutcomeIgnored, err
	}
	s.appendPayment(sub.ID, provider, providerPaymentID, amount, currency, models.PaymentStatusCompleted)
	if err := s.setProfile(userID, models.ProfileStatusPremium); err != nil {
		return OutcomeActivated, err
	}
	return OutcomeActivated, nil
}

// RecordPendingForUser appends a pending payment attempt to the user's most
// recent pending subscription without activating anything. Used for provider
// states that precede funds confirmation.
func (s *Service) RecordPendingForUser(ctx context.Context, userID, provider, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	_ = ctx
	sub, err := s.repo.GetRecentPendingByUser(userID, time.Time{})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}
	s.appendPayment(sub.ID, provider, providerPaymentID, amount, currency, models.PaymentStatusPending)
	return OutcomePaymentPending, nil
}

// CancelByUser handles an explicit user cancellation. With atPeriodEnd the
// row stays active (and entitled) until the expiry sweep catches the period
// end; otherwise it is cancelled immediately and the profile drops to free.
func (s *Service) CancelByUser(ctx context.Context, userID, reason string, atPeriodEnd bool) (Outcome, error) {
	_ = ctx
	sub, err := s.repo.GetActiveByUser(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, ErrNoActiveSubscription
		}
		return OutcomeIgnored, err
	}

	now := s.now()
	if atPeriodEnd {
		ok, err := s.repo.TransitionStatus(sub.ID,
			[]string{models.SubscriptionStatusActive},
			map[string]interface{}{
				"cancel_at_period_end": true,
				"cancellation_reason":  reason,
				"cancelled_at":         &now,
			})
		if err != nil {
			return OutcomeIgnored, err
		}
		if !ok {
			return OutcomeIgnored, ErrNoActiveSubscription
		}
		return OutcomeCancelScheduled, nil
	}

	ok, err := s.repo.TransitionStatus(sub.ID,
		[]string{models.SubscriptionStatusActive},
		map[string]interface{}{
			"status":               models.SubscriptionStatusCancelled,
			"cancellation_reason":  reason,
			"cancelled_at":         &now,
			"cancel_at_period_end": false,
		})
	if err != nil {
		return OutcomeIgnored, err
	}
	if !ok {
		return OutcomeIgnored, ErrNoActiveSubscription
	}
	if err := s.setProfile(userID, models.ProfileStatusFree); err != nil {
		return OutcomeCancelled, err
	}
	return OutcomeCancelled, nil
}

// CancelByReference handles the provider-signed cancellation webhook.
func (s *Service) CancelByReference(ctx context.Context, referenceCode string) (Outcome, error) {
	_ = ctx
	sub, err := s.repo.GetByReferenceCode(referenceCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}

	now := s.now()
	ok, err := s.repo.TransitionStatus(sub.ID,
		[]string{models.SubscriptionStatusPending, models.SubscriptionStatusActive},
		map[string]interface{}{
			"status":              models.SubscriptionStatusCancelled,
			"cancellation_reason": ReasonProviderCancel,
			"cancelled_at":        &now,
		})
	if err != nil || !ok {
		return OutcomeIgnored, err
	}
	if err := s.setProfile(sub.UserID, models.ProfileStatusFree); err != nil {
		return OutcomeCancelled, err
	}
	return OutcomeCancelled, nil
}

// ReconcileSuccess resolves the success-page return, where the provider
// redirect carries no trustworthy parameters. A pending row created within
// the activation window is activated; an already-active subscription is an
// idempotent success; anything else cancels the leftover pending row and
// reports failure.
func (s *Service) ReconcileSuccess(ctx context.Context, userID string) (Outcome, error) {
	_ = ctx
	now := s.now()

	sub, err := s.repo.GetRecentPendingByUser(userID, now.Add(-ActivationWindow))
	if err == nil {
		return s.activate(sub, "", "", decimal.Zero, "")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeIgnored, err
	}

	if _, err := s.repo.GetActiveByUser(userID); err == nil {
		return OutcomeAlreadyActive, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return OutcomeIgnored, err
	}

	// Failed activation: cancel whatever pending row is left so the state
	// is diagnosable instead of ambiguous.
	if stale, err := s.repo.GetRecentPendingByUser(userID, time.Time{}); err == nil {
		_, _ = s.repo.TransitionStatus(stale.ID,
			[]string{models.SubscriptionStatusPending},
			map[string]interface{}{
				"status":              models.SubscriptionStatusCancelled,
				"cancellation_reason": ReasonActivationExpired,
				"cancelled_at":        &now,
			})
	}
	return OutcomeIgnored, ErrNoActivatableSubscription
}

// RecordWebhookEvent persists webhook payloads idempotently; the second
// delivery of the same provider event reports created=false.
func (s *Service) RecordWebhookEvent(ctx context.Context, provider, providerEventID, eventType, payloadJSON string, signatureValid bool) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(providerEventID)
	if eventID == "" {
		eventID = "payload:" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(payloadJSON)).String()
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(eventType),
		PayloadJSON:     payloadJSON,
		SignatureValid:  signatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as handled and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *Service) activateByReference(referenceCode, provider, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	sub, err := s.repo.GetByReferenceCode(referenceCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}
	return s.activate(sub, provider, providerPaymentID, amount, currency)
}

// activate moves a row to active with a fresh 30-day period, resetting any
// previous cancellation. The CAS excludes already-active rows, so a second
// delivery lands in the AlreadyActive branch.
func (s *Service) activate(sub *models.Subscription, provider, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	now := s.now()
	end := now.Add(PeriodLength)

	updates := map[string]interface{}{
		"status":               models.SubscriptionStatusActive,
		"current_period_start": &now,
		"current_period_end":   &end,
		"cancelled_at":         nil,
		"cancellation_reason":  "",
		"cancel_at_period_end": false,
	}
	if provider == models.PaymentProviderMercadoPago && providerPaymentID != "" {
		updates["mercadopago_subscription_id"] = providerPaymentID
	}

	ok, err := s.repo.TransitionStatus(sub.ID,
		[]string{
			models.SubscriptionStatusPending,
			models.SubscriptionStatusFailed,
			models.SubscriptionStatusCancelled,
			models.SubscriptionStatusExpired,
		},
		updates)
	if err != nil {
		return OutcomeIgnored, err
	}

	if provider != "" && providerPaymentID != "" {
		s.appendPayment(sub.ID, provider, providerPaymentID, amount, currency, models.PaymentStatusCompleted)
	}
	if err := s.setProfile(sub.UserID, models.ProfileStatusPremium); err != nil {
		return OutcomeActivated, err
	}
	if !ok {
		return OutcomeAlreadyActive, nil
	}
	return OutcomeActivated, nil
}

func (s *Service) failByReference(referenceCode, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	sub, err := s.repo.GetByReferenceCode(referenceCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}

	ok, err := s.repo.TransitionStatus(sub.ID,
		[]string{models.SubscriptionStatusPending},
		map[string]interface{}{"status": models.SubscriptionStatusFailed})
	if err != nil {
		return OutcomeIgnored, err
	}
	s.appendPayment(sub.ID, models.PaymentProviderPayU, providerPaymentID, amount, currency, models.PaymentStatusFailed)
	if !ok {
		return OutcomeIgnored, nil
	}
	return OutcomeMarkedFailed, nil
}

func (s *Service) expireByReference(referenceCode, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	sub, err := s.repo.GetByReferenceCode(referenceCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}

	now := s.now()
	ok, err := s.repo.TransitionStatus(sub.ID,
		[]string{models.SubscriptionStatusPending},
		map[string]interface{}{
			"status":              models.SubscriptionStatusCancelled,
			"cancellation_reason": ReasonPaymentExpired,
			"cancelled_at":        &now,
		})
	if err != nil {
		return OutcomeIgnored, err
	}
	s.appendPayment(sub.ID, models.PaymentProviderPayU, providerPaymentID, amount, currency, models.PaymentStatusFailed)
	if !ok {
		return OutcomeIgnored, nil
	}
	return OutcomeCancelled, nil
}

func (s *Service) recordPendingPayment(referenceCode, providerPaymentID string, amount decimal.Decimal, currency string) (Outcome, error) {
	sub, err := s.repo.GetByReferenceCode(referenceCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OutcomeIgnored, nil
		}
		return OutcomeIgnored, err
	}
	s.appendPayment(sub.ID, models.PaymentProviderPayU, providerPaymentID, amount, currency, models.PaymentStatusPending)
	return OutcomePaymentPending, nil
}

// appendPayment writes the audit row. The provider+payment-id unique key
// absorbs redeliveries; failures are swallowed because the audit trail must
// never block the state transition itself.
func (s *Service) appendPayment(subID uint, provider, providerPaymentID string, amount decimal.Decimal, currency, status string) {
	if provider == "" || providerPaymentID == "" {
		return
	}
	if currency == "" {
		currency = "COP"
	}
	_, _ = s.repo.CreatePaymentIfNotExists(&models.Payment{
		SubscriptionID:    subID,
		Amount:            amount,
		Currency:          currency,
		Status:            status,
		Provider:          provider,
		ProviderPaymentID: providerPaymentID,
	})
}

func (s *Service) setProfile(userID, status string) error {
	if err := s.repo.SetProfileStatus(userID, status); err != nil {
		return err
	}
	s.cache.SetStatus(userID, status)
	return nil
}

func parseAmount(v string) decimal.Decimal {
	amount, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return amount
}
