package payment

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/CreditFox/app/models"
)

// Repository provides DB operations used by the payment service.
type Repository interface {
	CreateAttempt(a *models.PaymentAttempt) error
	GetAttemptByUUID(id string) (*models.PaymentAttempt, error)
	GetAttemptByProviderOrderID(provider, orderID string) (*models.PaymentAttempt, error)
	// TransitionAttempt applies updates only while the attempt is still in
	// state from. It reports whether a row was changed.
	TransitionAttempt(id, from, to string, updates map[string]interface{}) (bool, error)
	ListStaleAttempts(providers, states []string, before time.Time, limit int) ([]models.PaymentAttempt, error)
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id uint, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a payment repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) CreateAttempt(a *models.PaymentAttempt) error {
	return r.db.Create(a).Error
}

func (r *gormRepository) GetAttemptByUUID(id string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	if err := r.db.Where("uuid = ?", id).First(&a).Error; err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *gormRepository) GetAttemptByProviderOrderID(provider, orderID string) (*models.PaymentAttempt, error) {
	var a models.PaymentAttempt
	err := r.db.Where("provider = ? AND provider_order_id = ?", provider, orderID).
		Order("id DESC").
		First(&a).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &a, nil
}

func (r *gormRepository) TransitionAttempt(id, from, to string, updates map[string]interface{}) (bool, error) {
	values := map[string]interface{}{"state": to}
	for k, v := range updates {
		values[k] = v
	}
	tx := r.db.Model(&models.PaymentAttempt{}).
		Where("uuid = ? AND state = ?", id, from).
		Updates(values)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ListStaleAttempts(providers, states []string, before time.Time, limit int) ([]models.PaymentAttempt, error) {
	var out []models.PaymentAttempt
	q := r.db.Where("provider IN ? AND state IN ? AND updated_at < ?", providers, states, before).
		Order("updated_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
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
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id uint, processingError string) error {
	now := time.Now()
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}).Error
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrAttemptNotFound
	}
	return err
}
