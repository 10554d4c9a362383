package application

import "time"

// Room is a bookable meeting room.
type Room struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomInput describes a room to seed into the directory.
type RoomInput struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities string
}

// Booking is an accepted room reservation.
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

// BookingChanges carries the owner-editable fields of a booking.
type BookingChanges struct {
	Title          string
	AttendeesCount int
	Start          time.Time
	End            time.Time
	Equipment      string
	UpdatedAt      time.Time
}

// ProposeBookingParams is a request to reserve a room.
type ProposeBookingParams struct {
	RoomID         string
	UserID         string
	Title          string
	Start          time.Time
	End            time.Time
	AttendeesCount int
	Equipment      string
}

// UpdateBookingParams is an owner's request to change a booking.
type UpdateBookingParams struct {
	BookingID      string
	UserID         string
	Title          string
	AttendeesCount int
	Start          time.Time
	End            time.Time
	Equipment      string
}

// User is a registered account as exposed to callers.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// UserCredentials pairs a user with their stored password hash.
type UserCredentials struct {
	User
	PasswordHash string
}

// SignupParams is a registration request.
type SignupParams struct {
	Name     string
	Email    string
	Password string
}
