package enums

import "fmt"

// SubscriptionTier identifies a contractor's plan.
type SubscriptionTier string

const (
	SubscriptionTierFree     SubscriptionTier = "free"
	SubscriptionTierPro      SubscriptionTier = "pro"
	SubscriptionTierLifetime SubscriptionTier = "lifetime"
)

var validSubscriptionTiers = []SubscriptionTier{
	SubscriptionTierFree,
	SubscriptionTierPro,
	SubscriptionTierLifetime,
}

// tierRank orders tiers for upgrade checks.
var tierRank = map[SubscriptionTier]int{
	SubscriptionTierFree:     0,
	SubscriptionTierPro:      1,
	SubscriptionTierLifetime: 2,
}

// String implements fmt.Stringer.
func (s SubscriptionTier) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionTier.
func (s SubscriptionTier) IsValid() bool {
	for _, candidate := range validSubscriptionTiers {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsPaid reports whether the tier unlocks paid features.
func (s SubscriptionTier) IsPaid() bool {
	return s == SubscriptionTierPro || s == SubscriptionTierLifetime
}

// AtLeast reports whether the tier ranks at or above other.
func (s SubscriptionTier) AtLeast(other SubscriptionTier) bool {
	return tierRank[s] >= tierRank[other]
}

// ParseSubscriptionTier converts raw input into a SubscriptionTier.
func ParseSubscriptionTier(value string) (SubscriptionTier, error) {
	for _, candidate := range validSubscriptionTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription tier %q", value)
}
