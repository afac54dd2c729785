// Package cardpolicy holds the patient card lifecycle rules: the card state model,
// the effective-state evaluator, and the role based visibility filter.
//
// Nothing in this package performs I/O. Callers load patient records, pass them
// through Evaluate or VisiblePatients, and persist whatever writes they decide on.
package cardpolicy

import "time"

// StoredStatus is the card status persisted on the patient record. It is a cache
// of the last known state and is only authoritative for suspension.
type StoredStatus string

const (
	StatusActive    StoredStatus = "active"
	StatusExpired   StoredStatus = "expired"
	StatusSuspended StoredStatus = "suspended"
	StatusInactive  StoredStatus = "inactive"
)

func (s StoredStatus) Valid() bool {
	switch s {
	case StatusActive, StatusExpired, StatusSuspended, StatusInactive:
		return true
	}
	return false
}

// EffectiveState is the live-computed usability of a card.
type EffectiveState string

const (
	StateActive               EffectiveState = "ACTIVE"
	StateExpired              EffectiveState = "EXPIRED"
	StateSuspended            EffectiveState = "SUSPENDED"
	StateNeedsDailyActivation EffectiveState = "NEEDS_DAILY_ACTIVATION"
)

// Usable reports whether a clinical role may act on a card in this state.
func (s EffectiveState) Usable() bool {
	return s == StateActive
}

// Card carries the patient fields that drive card transitions.
type Card struct {
	Status                  StoredStatus
	ExpiryDate              *time.Time
	ActivatedDate           *time.Time
	DailyActivationRequired bool
	LastDailyActivation     *time.Time
}

// StartOfDay truncates t to midnight in t's own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextMidnight returns the first midnight strictly after t, in t's location.
func NextMidnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, t.Location())
}

// dayBefore reports whether then falls on a calendar day strictly before asOf's
// day. Both sides are compared in asOf's location.
func dayBefore(then, asOf time.Time) bool {
	return StartOfDay(then.In(asOf.Location())).Before(StartOfDay(asOf))
}

// ClockIn returns a clock that reads the current time in the clinic's zone.
// Calendar-day checks are only consistent when every caller uses the same zone.
func ClockIn(loc *time.Location) func() time.Time {
	return func() time.Time { return time.Now().In(loc) }
}
