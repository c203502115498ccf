package models

import (
	"time"

	"github.com/chatmeter/backend/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// SubscriptionBundleModel is the persistence model for subscription bundles
type SubscriptionBundleModel struct {
	AggregateModel
	UserID             string          `gorm:"not null;index"`
	Tier               string          `gorm:"not null"`
	BillingCycle       string          `gorm:"not null"`
	PaymentStatus      string          `gorm:"not null;index"`
	MaxMessages        *int64
	UsedMessages       int64           `gorm:"not null;default:0"`
	CurrentPeriodStart time.Time       `gorm:"not null"`
	CurrentPeriodEnd   time.Time       `gorm:"not null;index"`
	RenewalDate        time.Time       `gorm:"not null"`
	Active             bool            `gorm:"not null;default:true"`
	AutoRenew          bool            `gorm:"not null;default:true"`
	Price              decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CanceledAt         *time.Time
}

// TableName specifies the table name for SubscriptionBundleModel
func (SubscriptionBundleModel) TableName() string {
	return "subscription_bundles"
}

// ToDomain converts SubscriptionBundleModel to domain Bundle
func (m *SubscriptionBundleModel) ToDomain() *subscription.Bundle {
	return &subscription.Bundle{
		BaseAggregateRoot:  m.ToDomainAggregateRoot(),
		UserID:             m.UserID,
		Tier:               subscription.Tier(m.Tier),
		BillingCycle:       subscription.BillingCycle(m.BillingCycle),
		PaymentStatus:      subscription.PaymentStatus(m.PaymentStatus),
		MaxMessages:        m.MaxMessages,
		UsedMessages:       m.UsedMessages,
		CurrentPeriodStart: m.CurrentPeriodStart,
		CurrentPeriodEnd:   m.CurrentPeriodEnd,
		RenewalDate:        m.RenewalDate,
		Active:             m.Active,
		AutoRenew:          m.AutoRenew,
		Price:              m.Price,
		CanceledAt:         m.CanceledAt,
	}
}

// SubscriptionBundleModelFromDomain converts domain Bundle to SubscriptionBundleModel
func SubscriptionBundleModelFromDomain(b *subscription.Bundle) *SubscriptionBundleModel {
	model := &SubscriptionBundleModel{
		UserID:             b.UserID,
		Tier:               b.Tier.String(),
		BillingCycle:       b.BillingCycle.String(),
		PaymentStatus:      b.PaymentStatus.String(),
		MaxMessages:        b.MaxMessages,
		UsedMessages:       b.UsedMessages,
		CurrentPeriodStart: b.CurrentPeriodStart,
		CurrentPeriodEnd:   b.CurrentPeriodEnd,
		RenewalDate:        b.RenewalDate,
		Active:             b.Active,
		AutoRenew:          b.AutoRenew,
		Price:              b.Price,
		CanceledAt:         b.CanceledAt,
	}
	model.FromDomainAggregateRoot(b.BaseAggregateRoot)
	return model
}
