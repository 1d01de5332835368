package subscription

import (
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/andsoler0309/HR-app-sub001/app/models"
)

// fakeRepo is an in-memory Repository for service tests. TransitionStatus
// honors the same CAS semantics as the GORM implementation: updates apply
// only when the current status matches.
type fakeRepo struct {
	nextID   uint
	subs     map[uint]*models.Subscription
	payments []models.Payment
	profiles map[string]string
	events   map[string]*models.WebhookEvent
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		nextID:   1,
		subs:     make(map[uint]*models.Subscription),
		profiles: make(map[string]string),
		events:   make(map[string]*models.WebhookEvent),
	}
}

func (f *fakeRepo) CreateSubscription(sub *models.Subscription) error {
	sub.ID = f.nextID
	f.nextID++
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	cp := *sub
	f.subs[sub.ID] = &cp
	return nil
}

func (f *fakeRepo) GetByReferenceCode(ref string) (*models.Subscription, error) {
	for _, sub := range f.subs {
		if sub.ReferenceCode == ref {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepo) GetActiveByUser(userID string) (*models.Subscription, error) {
	return f.latestByUserStatus(userID, models.SubscriptionStatusActive, time.Time{})
}

func (f *fakeRepo) GetRecentPendingByUser(userID string, since time.Time) (*models.Subscription, error) {
	return f.latestByUserStatus(userID, models.SubscriptionStatusPending, since)
}

func (f *fakeRepo) latestByUserStatus(userID, status string, since time.Time) (*models.Subscription, error) {
	var best *models.Subscription
	for _, sub := range f.subs {
		if sub.UserID != userID || sub.Status != status || sub.CreatedAt.Before(since) {
			continue
		}
		if best == nil || sub.CreatedAt.After(best.CreatedAt) {
			best = sub
		}
	}
	if best == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeRepo) TransitionStatus(subID uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	sub, ok := f.subs[subID]
	if !ok {
		return false, nil
	}
	matched := false
	for _, status := range fromStatuses {
		if sub.Status == status {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	for key, val := range updates {
		switch key {
		case "status":
			sub.Status = val.(string)
		case "current_period_start":
			sub.CurrentPeriodStart = asTimePtr(val)
		case "current_period_end":
			sub.CurrentPeriodEnd = asTimePtr(val)
		case "cancelled_at":
			sub.CancelledAt = asTimePtr(val)
		case "cancellation_reason":
			sub.CancellationReason = val.(string)
		case "cancel_at_period_end":
			sub.CancelAtPeriodEnd = val.(bool)
		case "mercadopago_subscription_id":
			sub.MercadopagoSubscriptionID = val.(string)
		}
	}
	sub.UpdatedAt = time.Now()
	return true, nil
}

func asTimePtr(val interface{}) *time.Time {
	if val == nil {
		return nil
	}
	if t, ok := val.(*time.Time); ok {
		return t
	}
	return nil
}

func (f *fakeRepo) ListStalePending(olderThan time.Time) ([]models.Subscription, error) {
	return f.listByStatus(models.SubscriptionStatusPending, func(s *models.Subscription) bool {
		return s.CreatedAt.Before(olderThan)
	})
}

func (f *fakeRepo) ListExpiredActive(now time.Time) ([]models.Subscription, error) {
	return f.listByStatus(models.SubscriptionStatusActive, func(s *models.Subscription) bool {
		return s.CurrentPeriodEnd != nil && s.CurrentPeriodEnd.Before(now)
	})
}

func (f *fakeRepo) listByStatus(status string, keep func(*models.Subscription) bool) ([]models.Subscription, error) {
	var out []models.Subscription
	for _, sub := range f.subs {
		if sub.Status == status && keep(sub) {
			out = append(out, *sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRepo) CreatePaymentIfNotExists(p *models.Payment) (bool, error) {
	for _, existing := range f.payments {
		if existing.Provider == p.Provider && existing.ProviderPaymentID == p.ProviderPaymentID {
			return false, nil
		}
	}
	p.ID = uint(len(f.payments) + 1)
	f.payments = append(f.payments, *p)
	return true, nil
}

func (f *fakeRepo) SetProfileStatus(userID, status string) error {
	f.profiles[userID] = status
	return nil
}

func (f *fakeRepo) ListActiveSubscriptionUserIDs() ([]string, error) {
	seen := make(map[string]struct{})
	var out []string
	for _, sub := range f.subs {
		if sub.Status != models.SubscriptionStatusActive {
			continue
		}
		if _, ok := seen[sub.UserID]; ok {
			continue
		}
		seen[sub.UserID] = struct{}{}
		out = append(out, sub.UserID)
	}
	return out, nil
}

func (f *fakeRepo) ListPremiumProfileUserIDs() ([]string, error) {
	var out []string
	for userID, status := range f.profiles {
		if status == models.ProfileStatusPremium {
			out = append(out, userID)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if stored, ok := f.events[key]; ok {
		cp := *stored
		return false, &cp, nil
	}
	event.ID = uint(len(f.events) + 1)
	cp := *event
	f.events[key] = &cp
	out := cp
	return true, &out, nil
}

func (f *fakeRepo) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	for _, ev := range f.events {
		if ev.ID == id {
			ev.ProcessedAt = &now
			ev.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeRepo) sub(id uint) *models.Subscription {
	return f.subs[id]
}

func (f *fakeRepo) paymentCount() int {
	return len(f.payments)
}

// recordingCache captures status cache writes for assertions.
type recordingCache struct {
	set         map[string]string
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{set: make(map[string]string)}
}

func (c *recordingCache) SetStatus(userID, status string) { c.set[userID] = status }
func (c *recordingCache) Invalidate(userID string)        { c.invalidated = append(c.invalidated, userID) }
