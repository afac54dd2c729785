package cardpolicy

import (
	"math"
	"time"
)

// Evaluate derives the effective card state as of the given instant. The first
// matching rule wins:
//
//  1. stored status suspended -> SUSPENDED
//  2. asOf strictly after the expiry date -> EXPIRED
//  3. daily activation required and not confirmed on asOf's calendar day -> NEEDS_DAILY_ACTIVATION
//  4. ACTIVE
//
// A card without an expiry date is treated as expired.
func Evaluate(card Card, asOf time.Time) EffectiveState {
	if card.Status == StatusSuspended {
		return StateSuspended
	}

	if card.ExpiryDate == nil || asOf.After(*card.ExpiryDate) {
		return StateExpired
	}

	if NeedsDailyActivation(card, asOf) {
		return StateNeedsDailyActivation
	}

	return StateActive
}

// NeedsDailyActivation reports whether a card flagged for daily activation has not
// been confirmed on asOf's calendar day. Time of day is ignored on both sides.
func NeedsDailyActivation(card Card, asOf time.Time) bool {
	if !card.DailyActivationRequired {
		return false
	}
	if card.LastDailyActivation == nil {
		return true
	}
	return dayBefore(*card.LastDailyActivation, asOf)
}

// Assessment is the read model shown next to a patient's card.
type Assessment struct {
	State                 EffectiveState `json:"effective_state"`
	StoredStatus          StoredStatus   `json:"stored_status"`
	StatusStale           bool           `json:"status_stale"`
	DaysUntilExpiry       int            `json:"days_until_expiry"`
	ActivatedToday        bool           `json:"activated_today"`
	ExpiryDate            *time.Time     `json:"expiry_date,omitempty"`
	LastDailyActivation   *time.Time     `json:"last_daily_activation,omitempty"`
	DailyActivationNeeded bool           `json:"daily_activation_required"`
}

// Describe evaluates the card and adds the details staff need to act on it.
func Describe(card Card, asOf time.Time) Assessment {
	state := Evaluate(card, asOf)

	a := Assessment{
		State:                 state,
		StoredStatus:          card.Status,
		StatusStale:           !storedMatches(card.Status, state),
		ExpiryDate:            card.ExpiryDate,
		LastDailyActivation:   card.LastDailyActivation,
		DailyActivationNeeded: card.DailyActivationRequired,
	}

	if card.ExpiryDate != nil {
		a.DaysUntilExpiry = daysBetween(asOf, *card.ExpiryDate)
	}
	if card.LastDailyActivation != nil {
		a.ActivatedToday = !dayBefore(*card.LastDailyActivation, asOf)
	}

	return a
}

// ExpiringSoon reports whether an otherwise usable card expires within the
// given number of days.
func (a Assessment) ExpiringSoon(days int) bool {
	if a.State == StateExpired || a.State == StateSuspended || a.ExpiryDate == nil {
		return false
	}
	return a.DaysUntilExpiry <= days
}

func storedMatches(stored StoredStatus, state EffectiveState) bool {
	switch state {
	case StateActive:
		return stored == StatusActive
	case StateExpired:
		return stored == StatusExpired
	case StateSuspended:
		return stored == StatusSuspended
	case StateNeedsDailyActivation:
		return stored == StatusInactive
	}
	return false
}

// daysBetween counts whole days from a to b, rounding toward zero.
func daysBetween(a, b time.Time) int {
	return int(math.Trunc(b.Sub(a).Hours() / 24))
}
