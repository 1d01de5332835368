package subscription

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/andsoler0309/HR-app-sub001/app/models"
)

// Repository provides the DB operations used by the lifecycle service. All
// status transitions go through TransitionStatus so the status predicate is
// part of the UPDATE itself; the service never does a bare read-then-write.
type Repository interface {
	CreateSubscription(sub *models.Subscription) error
	GetByReferenceCode(referenceCode string) (*models.Subscription, error)
	GetActiveByUser(userID string) (*models.Subscription, error)
	GetRecentPendingByUser(userID string, since time.Time) (*models.Subscription, error)
	// TransitionStatus applies updates only to the row whose current status
	// is in fromStatuses. A zero-row match is a no-op, not an error.
	TransitionStatus(subID uint, fromStatuses []string, updates map[string]interface{}) (bool, error)
	ListStalePending(olderThan time.Time) ([]models.Subscription, error)
	ListExpiredActive(now time.Time) ([]models.Subscription, error)

	CreatePaymentIfNotExists(p *models.Payment) (bool, error)

	SetProfileStatus(userID, status string) error
	ListActiveSubscriptionUserIDs() ([]string, error)
	ListPremiumProfileUserIDs() ([]string, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a subscription repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateSubscription(sub *models.Subscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) GetByReferenceCode(referenceCode string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.Where("reference_code = ?", referenceCode).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetActiveByUser(userID string) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) GetRecentPendingByUser(userID string, since time.Time) (*models.Subscription, error) {
	var sub models.Subscription
	err := r.db.
		Where("user_id = ? AND status = ? AND created_at >= ?", userID, models.SubscriptionStatusPending, since).
		Order("created_at DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) TransitionStatus(subID uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	tx := r.db.Model(&models.Subscription{}).
		Where("id = ? AND status IN ?", subID, fromStatuses).
		Updates(updates)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListStalePending(olderThan time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("status = ? AND created_at < ?", models.SubscriptionStatusPending, olderThan).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ListExpiredActive(now time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.
		Where("status = ? AND current_period_end IS NOT NULL AND current_period_end < ?",
			models.SubscriptionStatusActive, now).
		Find(&subs).Error
	return subs, err
}

func (r *gormRepository) CreatePaymentIfNotExists(p *models.Payment) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_payment_id"},
		},
		DoNothing: true,
	}).Create(p)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) SetProfileStatus(userID, status string) error {
	profile := &models.Profile{
		UserID:             userID,
		SubscriptionStatus: status,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subscription_status",
			"updated_at",
		}),
	}).Create(profile).Error
}

func (r *gormRepository) ListActiveSubscriptionUserIDs() ([]string, error) {
	var userIDs []string
	err := r.db.Model(&models.Subscription{}).
		Distinct("user_id").
		Where("status = ?", models.SubscriptionStatusActive).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (r *gormRepository) ListPremiumProfileUserIDs() ([]string, error) {
	var userIDs []string
	err := r.db.Model(&models.Profile{}).
		Where("subscription_status = ?", models.ProfileStatusPremium).
		Pluck("user_id", &userIDs).Error
	return userIDs, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.WebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.WebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
