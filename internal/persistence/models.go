package persistence

import "time"

// User represents a registered account. Bookings reference users by ID only.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Room represents a bookable meeting room.
type Room struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Booking represents a stored room reservation.
type Booking struct {
	ID             string
	RoomID         string
	UserID         string
	Title          string
	Start          time.Time
	End            time.Time
	AttendeesCount int
	Equipment      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingChanges carries the mutable fields of a booking for an owner update.
type BookingChanges struct {
	Title          string
	AttendeesCount int
	Start          time.Time
	End            time.Time
	Equipment      string
	UpdatedAt      time.Time
}
