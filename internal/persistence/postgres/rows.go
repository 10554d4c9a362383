package postgres

import (
	"time"

	"github.com/example/room-booking/internal/persistence"
)

type roomRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Location   string    `db:"location"`
	Capacity   int       `db:"capacity"`
	Facilities string    `db:"facilities"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

func (r roomRow) model() persistence.Room {
	return persistence.Room{
		ID:         r.ID,
		Name:       r.Name,
		Location:   r.Location,
		Capacity:   r.Capacity,
		Facilities: r.Facilities,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

type bookingRow struct {
	ID             string    `db:"id"`
	RoomID         string    `db:"room_id"`
	UserID         string    `db:"user_id"`
	Title          string    `db:"title"`
	StartTime      time.Time `db:"start_time"`
	EndTime        time.Time `db:"end_time"`
	AttendeesCount int       `db:"attendees_count"`
	Equipment      string    `db:"equipment"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (r bookingRow) model() persistence.Booking {
	return persistence.Booking{
		ID:             r.ID,
		RoomID:         r.RoomID,
		UserID:         r.UserID,
		Title:          r.Title,
		Start:          r.StartTime.UTC(),
		End:            r.EndTime.UTC(),
		AttendeesCount: r.AttendeesCount,
		Equipment:      r.Equipment,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type userRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r userRow) model() persistence.User {
	return persistence.User{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt.UTC(),
	}
}
