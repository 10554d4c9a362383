package scheduler

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the length of the interval.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Overlaps reports whether two half-open intervals share any instant.
// Adjacent intervals (one ends exactly when the other starts) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Reservation is the slice of a booking the conflict checks care about.
type Reservation struct {
	ID        string
	RoomID    string
	Window    Interval
	Attendees int
}

// DetectConflicts returns the reservations overlapping the candidate window.
// A reservation whose ID equals excludeID is skipped so an existing booking
// can be checked against its own room without counting itself.
func DetectConflicts(existing []Reservation, candidate Interval, excludeID string) []Reservation {
	var conflicts []Reservation
	for _, r := range existing {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if Overlaps(r.Window, candidate) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts
}

// Demand sums the attendees of every reservation overlapping the candidate window.
func Demand(existing []Reservation, candidate Interval, excludeID string) int {
	total := 0
	for _, r := range DetectConflicts(existing, candidate, excludeID) {
		total += r.Attendees
	}
	return total
}
