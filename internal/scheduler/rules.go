package scheduler

import (
	"errors"
	"fmt"
	"time"
)

// Reason identifies which admission rule rejected a booking.
type Reason string

const (
	ReasonPastTime             Reason = "PAST_TIME"
	ReasonWrongDay             Reason = "WRONG_DAY"
	ReasonOutsideBusinessHours Reason = "OUTSIDE_BUSINESS_HOURS"
	ReasonInvalidDuration      Reason = "INVALID_DURATION"
	ReasonRoomNotFound         Reason = "ROOM_NOT_FOUND"
	ReasonCapacityExceeded     Reason = "CAPACITY_EXCEEDED"
)

var (
	// ErrPastTime is matched by violations of the no-past-time rule.
	ErrPastTime = errors.New("scheduler: booking starts or ends in the past")
	// ErrWrongDay is matched when the booking is not for the current day.
	ErrWrongDay = errors.New("scheduler: bookings are only accepted for today")
	// ErrOutsideBusinessHours is matched when the window leaves business hours.
	ErrOutsideBusinessHours = errors.New("scheduler: booking is outside business hours")
	// ErrInvalidDuration is matched when the window is too short or too long.
	ErrInvalidDuration = errors.New("scheduler: booking duration is out of range")
	// ErrRoomNotFound is matched when the room does not exist.
	ErrRoomNotFound = errors.New("scheduler: room not found")
	// ErrCapacityExceeded is matched when the room cannot seat the requested attendees.
	ErrCapacityExceeded = errors.New("scheduler: room capacity exceeded")
)

var reasonErrors = map[Reason]error{
	ReasonPastTime:             ErrPastTime,
	ReasonWrongDay:             ErrWrongDay,
	ReasonOutsideBusinessHours: ErrOutsideBusinessHours,
	ReasonInvalidDuration:      ErrInvalidDuration,
	ReasonRoomNotFound:         ErrRoomNotFound,
	ReasonCapacityExceeded:     ErrCapacityExceeded,
}

// RuleViolation is returned when a proposed booking fails an admission rule.
// AlreadyBooked, Requested and Capacity are only populated for capacity rejections.
type RuleViolation struct {
	Reason        Reason
	AlreadyBooked int
	Requested     int
	Capacity      int
}

// Error implements the error interface.
func (v *RuleViolation) Error() string {
	if v == nil {
		return ""
	}
	if v.Reason == ReasonCapacityExceeded {
		return fmt.Sprintf("%s: already booked for %d people, %d requested, capacity %d",
			ErrCapacityExceeded, v.AlreadyBooked, v.Requested, v.Capacity)
	}
	if err, ok := reasonErrors[v.Reason]; ok {
		return err.Error()
	}
	return fmt.Sprintf("scheduler: rule violation %q", string(v.Reason))
}

// Unwrap exposes the sentinel for the violated rule so errors.Is works.
func (v *RuleViolation) Unwrap() error {
	if v == nil {
		return nil
	}
	return reasonErrors[v.Reason]
}

// ReasonOf extracts the rejection reason from err, if any.
func ReasonOf(err error) (Reason, bool) {
	var violation *RuleViolation
	if errors.As(err, &violation) {
		return violation.Reason, true
	}
	return "", false
}

// Policy holds the temporal admission parameters.
type Policy struct {
	OpenHour    int
	CloseHour   int
	MinDuration time.Duration
	MaxDuration time.Duration
	Location    *time.Location
}

// DefaultPolicy returns the 09:00-18:00, 30-240 minute policy in server local time.
func DefaultPolicy() Policy {
	return Policy{
		OpenHour:    9,
		CloseHour:   18,
		MinDuration: 30 * time.Minute,
		MaxDuration: 240 * time.Minute,
		Location:    time.Local,
	}
}

// Loc returns the policy location, falling back to time.Local.
func (p Policy) Loc() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}

// Validate reports configuration mistakes in the policy itself.
func (p Policy) Validate() error {
	switch {
	case p.OpenHour < 0 || p.OpenHour > 23:
		return fmt.Errorf("scheduler: open hour %d out of range", p.OpenHour)
	case p.CloseHour < 1 || p.CloseHour > 24:
		return fmt.Errorf("scheduler: close hour %d out of range", p.CloseHour)
	case p.OpenHour >= p.CloseHour:
		return fmt.Errorf("scheduler: open hour %d must be before close hour %d", p.OpenHour, p.CloseHour)
	case p.MinDuration <= 0:
		return errors.New("scheduler: minimum duration must be positive")
	case p.MaxDuration < p.MinDuration:
		return errors.New("scheduler: maximum duration must not be below the minimum")
	}
	return nil
}

// CheckWindow applies the temporal rules in order and returns the first violation.
// The order is part of the contract: a request breaking several rules always
// reports the earliest one.
func (p Policy) CheckWindow(window Interval, now time.Time) error {
	loc := p.Loc()
	start := window.Start.In(loc)
	end := window.End.In(loc)
	now = now.In(loc)

	if start.Before(now) || end.Before(now) {
		return &RuleViolation{Reason: ReasonPastTime}
	}
	if !SameDay(start, now) {
		return &RuleViolation{Reason: ReasonWrongDay}
	}

	open, closing := p.BusinessHours(start)
	if start.Before(open) || end.After(closing) {
		return &RuleViolation{Reason: ReasonOutsideBusinessHours}
	}

	if d := window.Duration(); d < p.MinDuration || d > p.MaxDuration {
		return &RuleViolation{Reason: ReasonInvalidDuration}
	}
	return nil
}

// BusinessHours returns the opening and closing instants for the day containing t.
func (p Policy) BusinessHours(t time.Time) (time.Time, time.Time) {
	loc := p.Loc()
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, p.OpenHour, 0, 0, 0, loc), time.Date(y, m, d, p.CloseHour, 0, 0, 0, loc)
}

// DayWindow returns [00:00, next 00:00) of the calendar day containing t.
func (p Policy) DayWindow(t time.Time) Interval {
	start := StartOfDay(t.In(p.Loc()))
	return Interval{Start: start, End: start.AddDate(0, 0, 1)}
}

// CheckCapacity rejects the request when the aggregate demand would exceed capacity.
func CheckCapacity(capacity, alreadyBooked, requested int) error {
	if alreadyBooked+requested > capacity {
		return &RuleViolation{
			Reason:        ReasonCapacityExceeded,
			AlreadyBooked: alreadyBooked,
			Requested:     requested,
			Capacity:      capacity,
		}
	}
	return nil
}

// SameDay reports whether a and b fall on the same calendar date in a's location.
func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
