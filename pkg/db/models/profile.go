package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/quoteflow/quoteflow-backend/pkg/enums"
	"github.com/quoteflow/quoteflow-backend/pkg/types"
)

// Profile is the contractor account record. The ID matches the subject of
// the auth provider's JWT.
type Profile struct {
	ID                     uuid.UUID               `gorm:"type:uuid;primaryKey"`
	BusinessName           string                  `gorm:"column:business_name;not null"`
	Email                  string                  `gorm:"column:email;not null;unique"`
	SubscriptionTier       enums.SubscriptionTier  `gorm:"column:subscription_tier;type:subscription_tier;not null;default:'free'"`
	SubscriptionExpiresAt  *time.Time              `gorm:"column:subscription_expires_at"`
	StripeAccountID        *string                 `gorm:"column:stripe_account_id"`
	StripeCustomerID       *string                 `gorm:"column:stripe_customer_id"`
	StripeSubscriptionID   *string                 `gorm:"column:stripe_subscription_id"`
	FollowUpIntervals      types.FollowUpIntervals `gorm:"column:follow_up_intervals;type:jsonb;serializer:json"`
	FollowUpSubject        *string                 `gorm:"column:follow_up_subject"`
	FollowUpMessage        *string                 `gorm:"column:follow_up_message"`
	LogoURL                *string                 `gorm:"column:logo_url"`
	CreatedAt              time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// HasConnectedAccount reports whether card payments can be routed to the
// contractor.
func (p Profile) HasConnectedAccount() bool {
	return p.StripeAccountID != nil && *p.StripeAccountID != ""
}
