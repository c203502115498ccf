package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/chatmeter/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// MonthlyUsage tracks how many chat messages a user has consumed within one
// calendar month (UTC). There is at most one record per (user, year, month);
// records are created lazily at zero and only ever incremented, never deleted.
//
// The counter is shared between the free allowance and finite bundles: a
// message paid for by a bundle still increments the same counter, and bundle
// remaining-capacity math is computed against this combined total.
type MonthlyUsage struct {
	shared.BaseAggregateRoot
	UserID       string
	Year         int
	Month        int    // 1-12
	UsedMessages int64  // never negative
	MaxMessages  *int64 // nil = unlimited
}

// NewMonthlyUsage creates a zeroed usage record for the given month bucket
func NewMonthlyUsage(userID string, year, month int) (*MonthlyUsage, error) {
	if userID == "" {
		return nil, shared.NewDomainError("INVALID_INPUT", "User ID cannot be empty")
	}
	if month < 1 || month > 12 {
		return nil, shared.NewDomainError("INVALID_INPUT", "Month must be between 1 and 12")
	}

	return &MonthlyUsage{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		UserID:            userID,
		Year:              year,
		Month:             month,
	}, nil
}

// MonthKey returns the record's bucket as "YYYY-MM"
func (u *MonthlyUsage) MonthKey() string {
	return fmt.Sprintf("%04d-%02d", u.Year, u.Month)
}

// WithIncrementedUsage returns the next state with one more message consumed
// at the given instant. The receiver is not modified; the storage adapter
// persists the increment atomically.
func (u *MonthlyUsage) WithIncrementedUsage(now time.Time) *MonthlyUsage {
	next := *u
	next.UsedMessages++
	next.UpdatedAt = now
	return &next
}

// MonthOf resolves the UTC calendar bucket for an instant
func MonthOf(t time.Time) (year, month int) {
	utc := t.UTC()
	return utc.Year(), int(utc.Month())
}

// MonthKeyOf formats the UTC calendar bucket for an instant as "YYYY-MM"
func MonthKeyOf(t time.Time) string {
	year, month := MonthOf(t)
	return fmt.Sprintf("%04d-%02d", year, month)
}

// MonthlyUsageRepository is the storage port for monthly usage records.
// Implementations must guarantee uniqueness on (user, year, month) and must
// apply IncrementUsed as an atomic in-database increment so concurrent
// consumers never lose or double-count a message.
type MonthlyUsageRepository interface {
	// FindByUserMonth returns the record for the bucket or shared.ErrNotFound
	FindByUserMonth(ctx context.Context, userID string, year, month int) (*MonthlyUsage, error)

	// Create persists a new record
	Create(ctx context.Context, usage *MonthlyUsage) error

	// IncrementUsed atomically adds one to the record's used-message counter.
	// The caller derives the next state with WithIncrementedUsage.
	IncrementUsed(ctx context.Context, id uuid.UUID) error
}
