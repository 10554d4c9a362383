package sqlite

import (
	"fmt"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// Timestamps are stored in UTC with a fixed nine-digit fraction so that text
// comparison in SQL agrees with time ordering down to the nanosecond.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) any {
	return t.UTC().Format(timeLayout)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse %s: %w", column, err)
	}
	return t, nil
}

type roomRow struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Location   string `db:"location"`
	Capacity   int    `db:"capacity"`
	Facilities string `db:"facilities"`
	CreatedAt  string `db:"created_at"`
	UpdatedAt  string `db:"updated_at"`
}

func (r roomRow) model() (persistence.Room, error) {
	room := persistence.Room{
		ID:         r.ID,
		Name:       r.Name,
		Location:   r.Location,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
	}
	var err error
	if room.CreatedAt, err = parseTime("created_at", r.CreatedAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime("updated_at", r.UpdatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}

type bookingRow struct {
	ID             string `db:"id"`
	RoomID         string `db:"room_id"`
	UserID         string `db:"user_id"`
	Title          string `db:"title"`
	StartTime      string `db:"start_time"`
	EndTime        string `db:"end_time"`
	AttendeesCount int    `db:"attendees_count"`
	Equipment      string `db:"equipment"`
	CreatedAt      string `db:"created_at"`
	UpdatedAt      string `db:"updated_at"`
}

func (r bookingRow) model() (persistence.Booking, error) {
	booking := persistence.Booking{
		ID:             r.ID,
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		Title:          r.Title,
		AttendeesCount: r.AttendeesCount,
		Equipment:      r.Equipment,
	}
	var err error
	if booking.Start, err = parseTime("start_time", r.StartTime); err != nil {
		return persistence.Booking{}, err
	}
	if booking.End, err = parseTime("end_time", r.EndTime); err != nil {
		return persistence.Booking{}, err
	}
	if booking.CreatedAt, err = parseTime("created_at", r.CreatedAt); err != nil {
		return persistence.Booking{}, err
	}
	if booking.UpdatedAt, err = parseTime("updated_at", r.UpdatedAt); err != nil {
		return persistence.Booking{}, err
	}
	return booking, nil
}

type userRow struct {
	ID           string `db:"id"`
	Name         string `db:"name"`
	Email        string `db:"email"`
	PasswordHash string `db:"password_hash"`
	CreatedAt    string `db:"created_at"`
}

func (r userRow) model() (persistence.User, error) {
	created, err := parseTime("created_at", r.CreatedAt)
	if err != nil {
		return persistence.User{}, err
	}
	return persistence.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    created,
	}, nil
}

func bookingModels(rows []bookingRow) ([]persistence.Booking, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	bookings := make([]persistence.Booking, 0, len(rows))
	for _, row := range rows {
		booking, err := row.model()
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

func roomModels(rows []roomRow) ([]persistence.Room, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	rooms := make([]persistence.Room, 0, len(rows))
	for _, row := range rows {
		room, err := row.model()
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}
