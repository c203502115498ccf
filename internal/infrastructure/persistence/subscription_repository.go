package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/chatmeter/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormSubscriptionRepository implements subscription.Repository using GORM
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Create persists a new bundle
func (r *GormSubscriptionRepository) Create(ctx context.Context, bundle *subscription.Bundle) error {
	model := models.SubscriptionBundleModelFromDomain(bundle)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByID finds a bundle by its ID
func (r *GormSubscriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Bundle, error) {
	var model models.SubscriptionBundleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindActive returns the user's bundles able to back allocation at now
func (r *GormSubscriptionRepository) FindActive(ctx context.Context, userID string, now time.Time) ([]*subscription.Bundle, error) {
	var bundleModels []models.SubscriptionBundleModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND payment_status = ? AND canceled_at IS NULL AND current_period_start <= ? AND current_period_end > ?",
			userID, subscription.PaymentStatusActive.String(), now, now).
		Order("created_at ASC").
		Find(&bundleModels).Error; err != nil {
		return nil, err
	}

	bundles := make([]*subscription.Bundle, len(bundleModels))
	for i, model := range bundleModels {
		bundles[i] = model.ToDomain()
	}
	return bundles, nil
}

// FindDue returns every bundle whose current period has elapsed as of now
func (r *GormSubscriptionRepository) FindDue(ctx context.Context, now time.Time) ([]*subscription.Bundle, error) {
	var bundleModels []models.SubscriptionBundleModel
	if err := r.db.WithContext(ctx).
		Where("payment_status = ? AND canceled_at IS NULL AND current_period_end <= ?",
			subscription.PaymentStatusActive.String(), now).
		Order("current_period_end ASC").
		Find(&bundleModels).Error; err != nil {
		return nil, err
	}

	bundles := make([]*subscription.Bundle, len(bundleModels))
	for i, model := range bundleModels {
		bundles[i] = model.ToDomain()
	}
	return bundles, nil
}

// Save updates an existing bundle
func (r *GormSubscriptionRepository) Save(ctx context.Context, bundle *subscription.Bundle) error {
	model := models.SubscriptionBundleModelFromDomain(bundle)
	return r.db.WithContext(ctx).Save(model).Error
}
