package cardpolicy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ptr(t time.Time) *time.Time { return &t }

func at(day, hour, min, sec int) time.Time {
	return time.Date(2024, time.March, day, hour, min, sec, 0, time.UTC)
}

func TestEvaluate(t *testing.T) {
	now := at(10, 12, 0, 0)

	tests := []struct {
		name string
		card Card
		want EffectiveState
	}{
		{
			name: "suspended wins over every date",
			card: Card{
				Status:                  StatusSuspended,
				ExpiryDate:              ptr(now.Add(-48 * time.Hour)),
				DailyActivationRequired: true,
			},
			want: StateSuspended,
		},
		{
			name: "suspended with valid dates",
			card: Card{
				Status:              StatusSuspended,
				ExpiryDate:          ptr(now.Add(240 * time.Hour)),
				LastDailyActivation: ptr(now),
			},
			want: StateSuspended,
		},
		{
			name: "expiry overrides stored active",
			card: Card{Status: StatusActive, ExpiryDate: ptr(now.Add(-time.Second))},
			want: StateExpired,
		},
		{
			name: "expired card reports expired before daily lapse",
			card: Card{
				Status:                  StatusActive,
				ExpiryDate:              ptr(now.Add(-time.Hour)),
				DailyActivationRequired: true,
			},
			want: StateExpired,
		},
		{
			name: "expiry equal to asOf is still valid",
			card: Card{Status: StatusActive, ExpiryDate: ptr(now)},
			want: StateActive,
		},
		{
			name: "missing expiry is expired",
			card: Card{Status: StatusActive},
			want: StateExpired,
		},
		{
			name: "daily activation never recorded",
			card: Card{
				Status:                  StatusActive,
				ExpiryDate:              ptr(now.Add(24 * time.Hour)),
				DailyActivationRequired: true,
			},
			want: StateNeedsDailyActivation,
		},
		{
			name: "daily activation yesterday",
			card: Card{
				Status:                  StatusActive,
				ExpiryDate:              ptr(now.Add(24 * time.Hour)),
				DailyActivationRequired: true,
				LastDailyActivation:     ptr(at(9, 18, 0, 0)),
			},
			want: StateNeedsDailyActivation,
		},
		{
			name: "daily activation earlier today",
			card: Card{
				Status:                  StatusInactive,
				ExpiryDate:              ptr(now.Add(24 * time.Hour)),
				DailyActivationRequired: true,
				LastDailyActivation:     ptr(at(10, 0, 5, 0)),
			},
			want: StateActive,
		},
		{
			name: "stale daily activation ignored when not required",
			card: Card{
				Status:              StatusActive,
				ExpiryDate:          ptr(now.Add(24 * time.Hour)),
				LastDailyActivation: ptr(at(1, 9, 0, 0)),
			},
			want: StateActive,
		},
		{
			name: "stored expired with valid dates reads active",
			card: Card{Status: StatusExpired, ExpiryDate: ptr(now.Add(time.Hour))},
			want: StateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.card, now))
		})
	}
}

func TestEvaluate_CalendarDayBoundary(t *testing.T) {
	card := Card{
		Status:                  StatusActive,
		ExpiryDate:              ptr(at(30, 0, 0, 0)),
		DailyActivationRequired: true,
		LastDailyActivation:     ptr(at(10, 23, 59, 59)),
	}

	assert.Equal(t, StateActive, Evaluate(card, at(10, 0, 0, 1)))
	assert.Equal(t, StateActive, Evaluate(card, at(10, 23, 59, 59)))
	assert.Equal(t, StateNeedsDailyActivation, Evaluate(card, at(11, 0, 0, 1)))
}

func TestEvaluate_DayComparedInAsOfLocation(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)

	// 22:30 UTC on the 9th is 01:30 on the 10th in UTC+3.
	card := Card{
		Status:                  StatusActive,
		ExpiryDate:              ptr(at(30, 0, 0, 0)),
		DailyActivationRequired: true,
		LastDailyActivation:     ptr(at(9, 22, 30, 0)),
	}

	assert.Equal(t, StateActive, Evaluate(card, time.Date(2024, time.March, 10, 9, 0, 0, 0, loc)))
	assert.Equal(t, StateNeedsDailyActivation, Evaluate(card, at(10, 9, 0, 0)))
}

func TestEvaluate_RegistrationScenario(t *testing.T) {
	t0 := at(1, 9, 0, 0)
	card := Card{
		Status:                  StatusActive,
		ExpiryDate:              ptr(t0.AddDate(0, 0, 30)),
		ActivatedDate:           ptr(t0),
		DailyActivationRequired: true,
		LastDailyActivation:     ptr(t0),
	}

	assert.Equal(t, StateActive, Evaluate(card, t0))
	assert.Equal(t, StateNeedsDailyActivation, Evaluate(card, t0.AddDate(0, 0, 1)))

	card.LastDailyActivation = ptr(t0.AddDate(0, 0, 31))
	assert.Equal(t, StateExpired, Evaluate(card, t0.AddDate(0, 0, 31)))
}

func TestNeedsDailyActivation(t *testing.T) {
	now := at(10, 8, 0, 0)

	assert.False(t, NeedsDailyActivation(Card{}, now))
	assert.True(t, NeedsDailyActivation(Card{DailyActivationRequired: true}, now))
	assert.True(t, NeedsDailyActivation(Card{
		DailyActivationRequired: true,
		LastDailyActivation:     ptr(at(9, 23, 59, 59)),
	}, now))
	assert.False(t, NeedsDailyActivation(Card{
		DailyActivationRequired: true,
		LastDailyActivation:     ptr(at(10, 0, 0, 0)),
	}, now))
}

func TestDescribe(t *testing.T) {
	now := at(10, 12, 0, 0)

	t.Run("lapsed card with stale stored status", func(t *testing.T) {
		a := Describe(Card{
			Status:                  StatusActive,
			ExpiryDate:              ptr(now.AddDate(0, 0, 3)),
			DailyActivationRequired: true,
			LastDailyActivation:     ptr(at(9, 10, 0, 0)),
		}, now)

		assert.Equal(t, StateNeedsDailyActivation, a.State)
		assert.True(t, a.StatusStale)
		assert.False(t, a.ActivatedToday)
		assert.Equal(t, 3, a.DaysUntilExpiry)
		assert.True(t, a.ExpiringSoon(5))
		assert.False(t, a.ExpiringSoon(2))
	})

	t.Run("expired card reports negative days", func(t *testing.T) {
		a := Describe(Card{Status: StatusExpired, ExpiryDate: ptr(now.AddDate(0, 0, -2))}, now)

		assert.Equal(t, StateExpired, a.State)
		assert.False(t, a.StatusStale)
		assert.Equal(t, -2, a.DaysUntilExpiry)
		assert.False(t, a.ExpiringSoon(5))
	})

	t.Run("sweep downgraded card matches stored inactive", func(t *testing.T) {
		a := Describe(Card{
			Status:                  StatusInactive,
			ExpiryDate:              ptr(now.AddDate(0, 0, 20)),
			DailyActivationRequired: true,
		}, now)

		assert.False(t, a.StatusStale)
	})
}

func TestStartOfDayAndNextMidnight(t *testing.T) {
	loc := time.FixedZone("EAT", 3*60*60)
	ts := time.Date(2024, time.December, 31, 17, 45, 0, 0, loc)

	assert.Equal(t, time.Date(2024, time.December, 31, 0, 0, 0, 0, loc), StartOfDay(ts))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, loc), NextMidnight(ts))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, loc), NextMidnight(StartOfDay(ts).AddDate(0, 0, 1).Add(-time.Nanosecond)))
}

func TestClockIn(t *testing.T) {
	addis := time.FixedZone("EAT", 3*60*60)
	assert.Equal(t, addis, ClockIn(addis)().Location())
}
