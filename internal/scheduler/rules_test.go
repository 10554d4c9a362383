package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utcPolicy() Policy {
	p := DefaultPolicy()
	p.Location = time.UTC
	return p
}

func TestCheckWindowAcceptsValidBooking(t *testing.T) {
	policy := utcPolicy()
	now := at(8, 0)

	for _, w := range []Interval{
		window(9, 0, 9, 30),
		window(9, 0, 13, 0),
		window(14, 0, 18, 0),
		window(17, 30, 18, 0),
	} {
		assert.NoError(t, policy.CheckWindow(w, now), "window %v", w)
	}
}

func TestCheckWindowSingleRuleViolations(t *testing.T) {
	policy := utcPolicy()

	cases := []struct {
		name   string
		window Interval
		now    time.Time
		reason Reason
		target error
	}{
		{
			name:   "start before now",
			window: window(9, 0, 9, 30),
			now:    at(10, 0),
			reason: ReasonPastTime,
			target: ErrPastTime,
		},
		{
			name:   "end before now",
			window: Interval{Start: at(11, 0), End: at(10, 30)},
			now:    at(10, 45),
			reason: ReasonPastTime,
			target: ErrPastTime,
		},
		{
			name:   "tomorrow",
			window: Interval{Start: at(10, 0).AddDate(0, 0, 1), End: at(11, 0).AddDate(0, 0, 1)},
			now:    at(8, 0),
			reason: ReasonWrongDay,
			target: ErrWrongDay,
		},
		{
			name:   "starts before opening",
			window: window(8, 0, 9, 0),
			now:    at(7, 0),
			reason: ReasonOutsideBusinessHours,
			target: ErrOutsideBusinessHours,
		},
		{
			name:   "ends after closing",
			window: window(17, 30, 18, 1),
			now:    at(7, 0),
			reason: ReasonOutsideBusinessHours,
			target: ErrOutsideBusinessHours,
		},
		{
			name:   "runs past midnight",
			window: Interval{Start: at(17, 0), End: at(1, 0).AddDate(0, 0, 1)},
			now:    at(7, 0),
			reason: ReasonOutsideBusinessHours,
			target: ErrOutsideBusinessHours,
		},
		{
			name:   "too short",
			window: window(10, 0, 10, 20),
			now:    at(8, 0),
			reason: ReasonInvalidDuration,
			target: ErrInvalidDuration,
		},
		{
			name:   "too long",
			window: window(9, 0, 14, 0),
			now:    at(8, 0),
			reason: ReasonInvalidDuration,
			target: ErrInvalidDuration,
		},
		{
			name:   "end before start",
			window: window(11, 0, 10, 0),
			now:    at(8, 0),
			reason: ReasonInvalidDuration,
			target: ErrInvalidDuration,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.CheckWindow(tc.window, tc.now)
			require.Error(t, err)

			reason, ok := ReasonOf(err)
			require.True(t, ok)
			assert.Equal(t, tc.reason, reason)
			assert.True(t, errors.Is(err, tc.target))
		})
	}
}

func TestCheckWindowReportsEarliestRule(t *testing.T) {
	policy := utcPolicy()

	// Past, outside hours and too short all at once.
	err := policy.CheckWindow(window(7, 0, 7, 10), at(10, 0))
	assert.ErrorIs(t, err, ErrPastTime)

	// Outside hours and too long: hours are checked first.
	err = policy.CheckWindow(window(8, 0, 13, 0), at(7, 0))
	assert.ErrorIs(t, err, ErrOutsideBusinessHours)
}

func TestCheckWindowUsesPolicyLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	policy := DefaultPolicy()
	policy.Location = tokyo

	now := time.Date(2024, time.January, 1, 8, 0, 0, 0, tokyo)
	start := time.Date(2024, time.January, 1, 1, 0, 0, 0, time.UTC) // 10:00 JST
	err := policy.CheckWindow(Interval{Start: start, End: start.Add(time.Hour)}, now)
	assert.NoError(t, err)
}

func TestCheckCapacity(t *testing.T) {
	assert.NoError(t, CheckCapacity(10, 6, 4))

	err := CheckCapacity(10, 6, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	var violation *RuleViolation
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, 6, violation.AlreadyBooked)
	assert.Equal(t, 5, violation.Requested)
	assert.Equal(t, 10, violation.Capacity)
	assert.Contains(t, violation.Error(), "already booked for 6 people")
}

func TestCapacityScenario(t *testing.T) {
	existing := []Reservation{{ID: "existing", Window: window(9, 0, 10, 0), Attendees: 6}}
	proposal := window(9, 30, 10, 30)

	already := Demand(existing, proposal, "")
	assert.NoError(t, CheckCapacity(10, already, 4))
	assert.ErrorIs(t, CheckCapacity(10, already, 5), ErrCapacityExceeded)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.OpenHour, p.CloseHour = 18, 9
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.MaxDuration = 10 * time.Minute
	assert.Error(t, p.Validate())
}

func TestDayWindow(t *testing.T) {
	policy := utcPolicy()
	day := policy.DayWindow(at(15, 42))
	assert.Equal(t, at(0, 0), day.Start)
	assert.Equal(t, at(0, 0).AddDate(0, 0, 1), day.End)
}
