package subscription

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andsoler0309/HR-app-sub001/app/models"
	"github.com/andsoler0309/HR-app-sub001/internal/pkg/payu"
)

func newTestService(t *testing.T) (*Service, *fakeRepo, *recordingCache) {
	t.Helper()
	repo := newFakeRepo()
	cache := newRecordingCache()
	svc := NewService(repo).UseStatusCache(cache)
	return svc, repo, cache
}

func seedPending(t *testing.T, repo *fakeRepo, userID string, age time.Duration) *models.Subscription {
	t.Helper()
	sub := &models.Subscription{
		UserID:        userID,
		Status:        models.SubscriptionStatusPending,
		PlanType:      models.PlanTypeMonthly,
		ReferenceCode: "SUB-" + userID,
		CreatedAt:     time.Now().Add(-age),
	}
	require.NoError(t, repo.CreateSubscription(sub))
	return sub
}

func approvedConfirmation(ref string) payu.Confirmation {
	return payu.Confirmation{
		ReferenceSale: ref,
		TransactionID: "txn-1",
		StatePol:      payu.StatePolApproved,
		Value:         "45000.00",
		Currency:      "COP",
	}
}

func TestHandlePayUConfirmation_ApprovedActivatesPending(t *testing.T) {
	svc, repo, cache := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)

	outcome, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation(sub.ReferenceCode))
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)

	stored := repo.sub(sub.ID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	require.NotNil(t, stored.CurrentPeriodStart)
	require.NotNil(t, stored.CurrentPeriodEnd)
	assert.WithinDuration(t, stored.CurrentPeriodStart.Add(PeriodLength), *stored.CurrentPeriodEnd, time.Second)

	assert.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.PaymentStatusCompleted, repo.payments[0].Status)
	assert.Equal(t, models.ProfileStatusPremium, repo.profiles["user-1"])
	assert.Equal(t, models.ProfileStatusPremium, cache.set["user-1"])
}

func TestHandlePayUConfirmation_RedeliveryIsNoOp(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	conf := approvedConfirmation(sub.ReferenceCode)

	outcome, err := svc.HandlePayUConfirmation(context.Background(), conf)
	require.NoError(t, err)
	require.Equal(t, OutcomeActivated, outcome)
	firstPeriodEnd := *repo.sub(sub.ID).CurrentPeriodEnd

	outcome, err = svc.HandlePayUConfirmation(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyActive, outcome)

	// Same transaction id: the payment unique key absorbs the redelivery.
	assert.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.SubscriptionStatusActive, repo.sub(sub.ID).Status)
	assert.Equal(t, firstPeriodEnd, *repo.sub(sub.ID).CurrentPeriodEnd)
}

func TestHandlePayUConfirmation_ApprovedAfterPendingState(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	ctx := context.Background()

	// Slow payment methods report pending first, then approved, under the
	// same transaction id.
	pending := approvedConfirmation(sub.ReferenceCode)
	pending.StatePol = payu.StatePolPending

	created, _, err := svc.RecordWebhookEvent(ctx, models.WebhookProviderPayU, pending.EventID(), "confirmation", `{}`, true)
	require.NoError(t, err)
	require.True(t, created)
	_, err = svc.HandlePayUConfirmation(ctx, pending)
	require.NoError(t, err)
	require.Equal(t, models.SubscriptionStatusPending, repo.sub(sub.ID).Status)

	approved := approvedConfirmation(sub.ReferenceCode)
	created, _, err = svc.RecordWebhookEvent(ctx, models.WebhookProviderPayU, approved.EventID(), "confirmation", `{}`, true)
	require.NoError(t, err)
	// The state change is a new event, not a redelivery of the pending one.
	require.True(t, created)

	outcome, err := svc.HandlePayUConfirmation(ctx, approved)
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)
	assert.Equal(t, models.SubscriptionStatusActive, repo.sub(sub.ID).Status)
	assert.Equal(t, models.ProfileStatusPremium, repo.profiles["user-1"])
}

func TestHandlePayUConfirmation_DeclinedNeverGrantsPremium(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)

	conf := approvedConfirmation(sub.ReferenceCode)
	conf.StatePol = payu.StatePolDeclined

	outcome, err := svc.HandlePayUConfirmation(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, OutcomeMarkedFailed, outcome)

	assert.Equal(t, models.SubscriptionStatusFailed, repo.sub(sub.ID).Status)
	require.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.PaymentStatusFailed, repo.payments[0].Status)
	assert.NotEqual(t, models.ProfileStatusPremium, repo.profiles["user-1"])
}

func TestHandlePayUConfirmation_ExpiredCancelsPending(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)

	conf := approvedConfirmation(sub.ReferenceCode)
	conf.StatePol = payu.StatePolExpired

	outcome, err := svc.HandlePayUConfirmation(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)

	stored := repo.sub(sub.ID)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
	assert.Equal(t, ReasonPaymentExpired, stored.CancellationReason)
}

func TestHandlePayUConfirmation_PendingRecordsPaymentOnly(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)

	conf := approvedConfirmation(sub.ReferenceCode)
	conf.StatePol = payu.StatePolPending

	outcome, err := svc.HandlePayUConfirmation(context.Background(), conf)
	require.NoError(t, err)
	assert.Equal(t, OutcomePaymentPending, outcome)

	assert.Equal(t, models.SubscriptionStatusPending, repo.sub(sub.ID).Status)
	require.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.PaymentStatusPending, repo.payments[0].Status)
}

func TestHandlePayUConfirmation_UnknownReferenceIgnored(t *testing.T) {
	svc, repo, _ := newTestService(t)

	outcome, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation("SUB-missing"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, 0, repo.paymentCount())
}

func TestHandlePayUConfirmation_UnknownState(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)

	conf := approvedConfirmation(sub.ReferenceCode)
	conf.StatePol = "99"

	outcome, err := svc.HandlePayUConfirmation(context.Background(), conf)
	assert.ErrorIs(t, err, ErrUnknownTransactionState)
	assert.Equal(t, OutcomeIgnored, outcome)
	assert.Equal(t, models.SubscriptionStatusPending, repo.sub(sub.ID).Status)
}

func TestActivateForUser_NoRowCreatesActive(t *testing.T) {
	svc, repo, _ := newTestService(t)

	outcome, err := svc.ActivateForUser(context.Background(), "user-9", models.PaymentProviderMercadoPago, "mp-1", parseAmount("45000"), "COP")
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)

	active, err := repo.GetActiveByUser("user-9")
	require.NoError(t, err)
	require.NotNil(t, active.CurrentPeriodEnd)
	assert.Equal(t, "mp-1", active.MercadopagoSubscriptionID)
	assert.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.ProfileStatusPremium, repo.profiles["user-9"])
}

func TestActivateForUser_PendingRowActivates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-2", time.Minute)

	outcome, err := svc.ActivateForUser(context.Background(), "user-2", models.PaymentProviderMercadoPago, "mp-2", parseAmount("45000"), "COP")
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)
	assert.Equal(t, models.SubscriptionStatusActive, repo.sub(sub.ID).Status)
	assert.Equal(t, "mp-2", repo.sub(sub.ID).MercadopagoSubscriptionID)
}

func TestRecordPendingForUser(t *testing.T) {
	svc, repo, cache := newTestService(t)
	sub := seedPending(t, repo, "user-3", time.Minute)

	outcome, err := svc.RecordPendingForUser(context.Background(), "user-3", models.PaymentProviderMercadoPago, "mp-7", parseAmount("45000"), "COP")
	require.NoError(t, err)
	assert.Equal(t, OutcomePaymentPending, outcome)

	// Funds not confirmed: nothing is granted yet.
	assert.Equal(t, models.SubscriptionStatusPending, repo.sub(sub.ID).Status)
	require.Equal(t, 1, repo.paymentCount())
	assert.Equal(t, models.PaymentStatusPending, repo.payments[0].Status)
	assert.NotEqual(t, models.ProfileStatusPremium, repo.profiles["user-3"])
	assert.Empty(t, cache.set)

	outcome, err = svc.RecordPendingForUser(context.Background(), "user-unknown", models.PaymentProviderMercadoPago, "mp-8", parseAmount("45000"), "COP")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestCancelByUser_Immediate(t *testing.T) {
	svc, repo, cache := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	_, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation(sub.ReferenceCode))
	require.NoError(t, err)

	outcome, err := svc.CancelByUser(context.Background(), "user-1", "too expensive", false)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)

	stored := repo.sub(sub.ID)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
	assert.Equal(t, "too expensive", stored.CancellationReason)
	assert.NotNil(t, stored.CancelledAt)
	assert.Equal(t, models.ProfileStatusFree, repo.profiles["user-1"])
	assert.Equal(t, models.ProfileStatusFree, cache.set["user-1"])
}

func TestCancelByUser_AtPeriodEndStaysActive(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	_, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation(sub.ReferenceCode))
	require.NoError(t, err)

	outcome, err := svc.CancelByUser(context.Background(), "user-1", "switching plans", true)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelScheduled, outcome)

	stored := repo.sub(sub.ID)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
	assert.True(t, stored.CancelAtPeriodEnd)
	// Entitlement persists until the expiry sweep.
	assert.Equal(t, models.ProfileStatusPremium, repo.profiles["user-1"])
}

func TestCancelByUser_NoActiveSubscription(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.CancelByUser(context.Background(), "user-1", "whatever", false)
	assert.ErrorIs(t, err, ErrNoActiveSubscription)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestCancelByReference(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	_, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation(sub.ReferenceCode))
	require.NoError(t, err)

	outcome, err := svc.CancelByReference(context.Background(), sub.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, OutcomeCancelled, outcome)
	assert.Equal(t, models.SubscriptionStatusCancelled, repo.sub(sub.ID).Status)
	assert.Equal(t, models.ProfileStatusFree, repo.profiles["user-1"])

	// Terminal rows are not cancelled twice.
	outcome, err = svc.CancelByReference(context.Background(), sub.ReferenceCode)
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestReconcileSuccess_RecentPendingActivates(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", 5*time.Minute)

	outcome, err := svc.ReconcileSuccess(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeActivated, outcome)
	assert.Equal(t, models.SubscriptionStatusActive, repo.sub(sub.ID).Status)
	assert.Equal(t, models.ProfileStatusPremium, repo.profiles["user-1"])
	// No provider confirmation, so no payment row.
	assert.Equal(t, 0, repo.paymentCount())
}

func TestReconcileSuccess_AlreadyActiveIsIdempotent(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", time.Minute)
	_, err := svc.HandlePayUConfirmation(context.Background(), approvedConfirmation(sub.ReferenceCode))
	require.NoError(t, err)

	outcome, err := svc.ReconcileSuccess(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyActive, outcome)
}

func TestReconcileSuccess_StalePendingFails(t *testing.T) {
	svc, repo, _ := newTestService(t)
	sub := seedPending(t, repo, "user-1", 15*time.Minute)

	outcome, err := svc.ReconcileSuccess(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoActivatableSubscription)
	assert.Equal(t, OutcomeIgnored, outcome)

	stored := repo.sub(sub.ID)
	assert.Equal(t, models.SubscriptionStatusCancelled, stored.Status)
	assert.Contains(t, stored.CancellationReason, "expired")
}

func TestReconcileSuccess_NothingToReconcile(t *testing.T) {
	svc, _, _ := newTestService(t)

	outcome, err := svc.ReconcileSuccess(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrNoActivatableSubscription)
	assert.Equal(t, OutcomeIgnored, outcome)
}

func TestStartCheckout(t *testing.T) {
	svc, repo, _ := newTestService(t)

	sub, err := svc.StartCheckout(context.Background(), "user-1", models.PlanTypeYearly)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPending, sub.Status)
	assert.Equal(t, models.PlanTypeYearly, sub.PlanType)
	assert.Contains(t, sub.ReferenceCode, "SUB-")
	assert.NotNil(t, repo.sub(sub.ID))

	_, err = svc.StartCheckout(context.Background(), "  ", models.PlanTypeMonthly)
	assert.Error(t, err)
}

func TestRecordWebhookEvent_Dedup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, first, err := svc.RecordWebhookEvent(ctx, models.WebhookProviderPayU, "txn-1", "confirmation", `{"a":1}`, true)
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := svc.RecordWebhookEvent(ctx, models.WebhookProviderPayU, "txn-1", "confirmation", `{"a":1}`, true)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Without a provider event id the payload hash becomes the dedup key.
	created, _, err = svc.RecordWebhookEvent(ctx, models.WebhookProviderMercadoPago, "", "payment", `{"b":2}`, true)
	require.NoError(t, err)
	assert.True(t, created)
	created, _, err = svc.RecordWebhookEvent(ctx, models.WebhookProviderMercadoPago, "", "payment", `{"b":2}`, true)
	require.NoError(t, err)
	assert.False(t, created)
}
