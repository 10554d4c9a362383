package persistence

import (
	"context"
	"time"
)

// UserRepository stores user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
}

// RoomRepository exposes the room directory.
type RoomRepository interface {
	UpsertRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	// ListAvailableRooms returns rooms with no booking overlapping [start, end).
	ListAvailableRooms(ctx context.Context, start, end time.Time) ([]Room, error)
}

// BookingRepository stores bookings. Owner-scoped operations match on both
// id and user id and return ErrNotFound when nothing matched.
type BookingRepository interface {
	// WithRoomLock runs fn while holding the room's serialization point.
	// It returns ErrNotFound when the room does not exist. Any error returned
	// by fn rolls back the writes made through the BookingTx.
	WithRoomLock(ctx context.Context, roomID string, fn func(tx BookingTx) error) error
	GetOwnedBooking(ctx context.Context, id, userID string) (Booking, error)
	UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error
	DeleteOwnedBooking(ctx context.Context, id, userID string) error
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	// ListBookingsByRoom returns bookings whose start falls in [from, to).
	ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]Booking, error)
}

// BookingTx is the view of a single room available inside WithRoomLock.
type BookingTx interface {
	Room() Room
	// ListOverlapping returns the room's bookings overlapping [start, end),
	// skipping excludeID when it is not empty.
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Booking, error)
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}
