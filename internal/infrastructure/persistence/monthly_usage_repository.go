package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/chatmeter/backend/internal/domain/chat"
	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/chatmeter/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMonthlyUsageRepository implements chat.MonthlyUsageRepository using GORM
type GormMonthlyUsageRepository struct {
	db *gorm.DB
}

// NewGormMonthlyUsageRepository creates a new GormMonthlyUsageRepository
func NewGormMonthlyUsageRepository(db *gorm.DB) *GormMonthlyUsageRepository {
	return &GormMonthlyUsageRepository{db: db}
}

// FindByUserMonth finds the usage record for one user and calendar month
func (r *GormMonthlyUsageRepository) FindByUserMonth(ctx context.Context, userID string, year, month int) (*chat.MonthlyUsage, error) {
	var model models.MonthlyUsageModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND year = ? AND month = ?", userID, year, month).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a new usage record. A concurrent create for the same month
// surfaces as shared.ErrAlreadyExists via the unique index.
func (r *GormMonthlyUsageRepository) Create(ctx context.Context, usage *chat.MonthlyUsage) error {
	model := models.MonthlyUsageModelFromDomain(usage)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// IncrementUsed adds one to the counter in the database. The increment runs
// as a single UPDATE so concurrent consumers never lose a message.
func (r *GormMonthlyUsageRepository) IncrementUsed(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&models.MonthlyUsageModel{}).
		Where("id = ?", id).
		UpdateColumn("used_messages", gorm.Expr("used_messages + ?", 1))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// isUniqueViolation matches unique-constraint errors from postgres (23505)
// and sqlite, which GORM does not always translate.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
