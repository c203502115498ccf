package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/chatmeter/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupSubscriptionTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(&models.SubscriptionBundleModel{})
	require.NoError(t, err)

	return db
}

func newTestBundle(t *testing.T, userID string, tier subscription.Tier, start time.Time) *subscription.Bundle {
	t.Helper()
	var maxMessages *int64
	if tier != subscription.TierEnterprise {
		v := int64(100)
		maxMessages = &v
	}
	bundle, err := subscription.NewBundle(subscription.NewBundleInput{
		UserID:       userID,
		Tier:         tier,
		BillingCycle: subscription.BillingCycleMonthly,
		MaxMessages:  maxMessages,
		Price:        decimal.NewFromInt(29),
		AutoRenew:    true,
		StartDate:    start,
	})
	require.NoError(t, err)
	return bundle
}

func TestGormSubscriptionRepository_CreateAndFindByID(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("round-trips a bundle", func(t *testing.T) {
		bundle := newTestBundle(t, "user-1", subscription.TierPro, start)
		require.NoError(t, repo.Create(ctx, bundle))

		found, err := repo.FindByID(ctx, bundle.ID)
		require.NoError(t, err)
		assert.Equal(t, bundle.ID, found.ID)
		assert.Equal(t, subscription.TierPro, found.Tier)
		assert.Equal(t, subscription.BillingCycleMonthly, found.BillingCycle)
		assert.Equal(t, subscription.PaymentStatusActive, found.PaymentStatus)
		require.NotNil(t, found.MaxMessages)
		assert.Equal(t, int64(100), *found.MaxMessages)
		assert.True(t, found.Price.Equal(decimal.NewFromInt(29)))
		assert.True(t, found.CurrentPeriodEnd.Equal(start.AddDate(0, 1, 0)))
	})

	t.Run("unknown id reports not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormSubscriptionRepository_FindActive(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	current := newTestBundle(t, "user-1", subscription.TierPro, now.AddDate(0, 0, -5))
	require.NoError(t, repo.Create(ctx, current))

	expired := newTestBundle(t, "user-1", subscription.TierBasic, now.AddDate(0, -2, 0))
	require.NoError(t, repo.Create(ctx, expired))

	canceled := newTestBundle(t, "user-1", subscription.TierBasic, now.AddDate(0, 0, -5))
	require.NoError(t, repo.Create(ctx, canceled))
	require.NoError(t, repo.Save(ctx, canceled.Canceled(now.AddDate(0, 0, -1))))

	pastDue := newTestBundle(t, "user-1", subscription.TierBasic, now.AddDate(0, 0, -5))
	require.NoError(t, repo.Create(ctx, pastDue))
	require.NoError(t, repo.Save(ctx, pastDue.RenewalFailed(now)))

	otherUser := newTestBundle(t, "user-2", subscription.TierPro, now.AddDate(0, 0, -5))
	require.NoError(t, repo.Create(ctx, otherUser))

	notStarted := newTestBundle(t, "user-1", subscription.TierPro, now.AddDate(0, 0, 5))
	require.NoError(t, repo.Create(ctx, notStarted))

	active, err := repo.FindActive(ctx, "user-1", now)
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, current.ID, active[0].ID)
}

func TestGormSubscriptionRepository_FindDue(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	due := newTestBundle(t, "user-1", subscription.TierPro, now.AddDate(0, -1, -3))
	require.NoError(t, repo.Create(ctx, due))

	notYetDue := newTestBundle(t, "user-2", subscription.TierPro, now.AddDate(0, 0, -10))
	require.NoError(t, repo.Create(ctx, notYetDue))

	canceled := newTestBundle(t, "user-3", subscription.TierPro, now.AddDate(0, -1, -3))
	require.NoError(t, repo.Create(ctx, canceled))
	require.NoError(t, repo.Save(ctx, canceled.Canceled(now.AddDate(0, -1, 0))))

	pastDue := newTestBundle(t, "user-4", subscription.TierPro, now.AddDate(0, -1, -3))
	require.NoError(t, repo.Create(ctx, pastDue))
	require.NoError(t, repo.Save(ctx, pastDue.RenewalFailed(now)))

	found, err := repo.FindDue(ctx, now)
	require.NoError(t, err)

	require.Len(t, found, 1)
	assert.Equal(t, due.ID, found[0].ID)
}

func TestGormSubscriptionRepository_Save(t *testing.T) {
	db := setupSubscriptionTestDB(t)
	repo := NewGormSubscriptionRepository(db)
	ctx := context.Background()
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("persists a renewal", func(t *testing.T) {
		bundle := newTestBundle(t, "user-1", subscription.TierPro, start)
		require.NoError(t, repo.Create(ctx, bundle))

		newStart := bundle.CurrentPeriodEnd
		renewed := bundle.Renewed(newStart, newStart, newStart.AddDate(0, 1, 0))
		require.NoError(t, repo.Save(ctx, renewed))

		found, err := repo.FindByID(ctx, bundle.ID)
		require.NoError(t, err)
		assert.True(t, found.CurrentPeriodStart.Equal(newStart))
		assert.Equal(t, int64(0), found.UsedMessages)
		assert.Equal(t, subscription.PaymentStatusActive, found.PaymentStatus)
	})

	t.Run("persists a cancellation", func(t *testing.T) {
		bundle := newTestBundle(t, "user-2", subscription.TierBasic, start)
		require.NoError(t, repo.Create(ctx, bundle))

		canceledAt := start.AddDate(0, 0, 3)
		require.NoError(t, repo.Save(ctx, bundle.Canceled(canceledAt)))

		found, err := repo.FindByID(ctx, bundle.ID)
		require.NoError(t, err)
		assert.Equal(t, subscription.PaymentStatusCanceled, found.PaymentStatus)
		assert.False(t, found.Active)
		require.NotNil(t, found.CanceledAt)
	})
}
