package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrAccountNotFound no account row for the id
var ErrAccountNotFound = errors.New("account not found")

// Role account role, same values as the JWT role claim
type Role string

const (
	// RoleConsumer ordinary member, never metered
	RoleConsumer Role = "consumer"
	// RoleBusiness business account, metered unless subscribed
	RoleBusiness Role = "business"
	// RoleAdmin moderator, never metered
	RoleAdmin Role = "admin"
)

// SubscriptionStatus tag of the Subscription variant
type SubscriptionStatus string

const (
	// SubscriptionNone never subscribed
	SubscriptionNone SubscriptionStatus = "none"
	// SubscriptionTrial free trial until TrialEndsAt
	SubscriptionTrial SubscriptionStatus = "trial"
	// SubscriptionActive paid
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired paid plan lapsed
	SubscriptionExpired SubscriptionStatus = "expired"
)

// Subscription closed variant {none, trial(endsAt), active, expired}, build it with the constructors
type Subscription struct {
	Status      SubscriptionStatus `json:"status"`
	TrialEndsAt time.Time          `json:"trial_ends_at,omitempty"`
}

// NoSubscription none
func NoSubscription() Subscription { return Subscription{Status: SubscriptionNone} }

// Trial trial ending at endsAt
func Trial(endsAt time.Time) Subscription {
	return Subscription{Status: SubscriptionTrial, TrialEndsAt: endsAt}
}

// ActiveSubscription active paid
func ActiveSubscription() Subscription { return Subscription{Status: SubscriptionActive} }

// ExpiredSubscription expired paid
func ExpiredSubscription() Subscription { return Subscription{Status: SubscriptionExpired} }

// ParseSubscription build the variant from loosely typed input, unknown tags are rejected
func ParseSubscription(status string, trialEndsAt time.Time) (Subscription, error) {
	switch SubscriptionStatus(status) {
	case SubscriptionNone, "":
		return NoSubscription(), nil
	case SubscriptionTrial:
		if trialEndsAt.IsZero() {
			return Subscription{}, errors.New("trial subscription without end time")
		}
		return Trial(trialEndsAt), nil
	case SubscriptionActive:
		return ActiveSubscription(), nil
	case SubscriptionExpired:
		return ExpiredSubscription(), nil
	}
	return Subscription{}, fmt.Errorf("unknown subscription status %q", status)
}

// Covers report whether the subscription lifts metering at now; a trial counts only strictly before its end
func (s Subscription) Covers(now time.Time) bool {
	switch s.Status {
	case SubscriptionActive:
		return true
	case SubscriptionTrial:
		return now.Before(s.TrialEndsAt)
	case SubscriptionNone, SubscriptionExpired:
		return false
	}
	return false
}

// Account role and subscription of one actor
type Account struct {
	ID           string       `json:"id"`
	Role         Role         `json:"role"`
	Subscription Subscription `json:"subscription"`
}

// Metered business accounts without covering subscription are capped
func (a Account) Metered(now time.Time) bool {
	return a.Role == RoleBusiness && !a.Subscription.Covers(now)
}
