// Package adapters bridges the persistence repositories and the application
// services, converting between their models.
package adapters

import (
	"context"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

// Store is satisfied by every persistence backend.
type Store interface {
	persistence.UserRepository
	persistence.RoomRepository
	persistence.BookingRepository
	persistence.HealthChecker
}

// Repositories groups the application-facing adapters over one store.
type Repositories struct {
	Users    *UserRepositoryAdapter
	Rooms    *RoomRepositoryAdapter
	Bookings *BookingRepositoryAdapter
}

// NewRepositories wraps store for the application services.
func NewRepositories(store Store) Repositories {
	return Repositories{
		Users:    NewUserRepositoryAdapter(store),
		Rooms:    NewRoomRepositoryAdapter(store),
		Bookings: NewBookingRepositoryAdapter(store),
	}
}

// UserRepositoryAdapter implements application.UserRepository.
type UserRepositoryAdapter struct {
	repo persistence.UserRepository
}

func NewUserRepositoryAdapter(repo persistence.UserRepository) *UserRepositoryAdapter {
	return &UserRepositoryAdapter{repo: repo}
}

func (a *UserRepositoryAdapter) CreateUser(ctx context.Context, user application.UserCredentials) error {
	return a.repo.CreateUser(ctx, toPersistenceUser(user))
}

func (a *UserRepositoryAdapter) GetUserByEmail(ctx context.Context, email string) (application.UserCredentials, error) {
	stored, err := a.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return application.UserCredentials{}, err
	}
	return toApplicationCredentials(stored), nil
}

// RoomRepositoryAdapter implements application.RoomRepository.
type RoomRepositoryAdapter struct {
	repo persistence.RoomRepository
}

func NewRoomRepositoryAdapter(repo persistence.RoomRepository) *RoomRepositoryAdapter {
	return &RoomRepositoryAdapter{repo: repo}
}

func (a *RoomRepositoryAdapter) UpsertRoom(ctx context.Context, room application.Room) error {
	return a.repo.UpsertRoom(ctx, toPersistenceRoom(room))
}

func (a *RoomRepositoryAdapter) GetRoom(ctx context.Context, id string) (application.Room, error) {
	stored, err := a.repo.GetRoom(ctx, id)
	if err != nil {
		return application.Room{}, err
	}
	return toApplicationRoom(stored), nil
}

func (a *RoomRepositoryAdapter) ListRooms(ctx context.Context) ([]application.Room, error) {
	stored, err := a.repo.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(stored), nil
}

func (a *RoomRepositoryAdapter) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]application.Room, error) {
	stored, err := a.repo.ListAvailableRooms(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return toApplicationRooms(stored), nil
}

// BookingRepositoryAdapter implements application.BookingRepository.
type BookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func NewBookingRepositoryAdapter(repo persistence.BookingRepository) *BookingRepositoryAdapter {
	return &BookingRepositoryAdapter{repo: repo}
}

func (a *BookingRepositoryAdapter) WithRoomLock(ctx context.Context, roomID string, fn func(tx application.BookingTx) error) error {
	return a.repo.WithRoomLock(ctx, roomID, func(tx persistence.BookingTx) error {
		return fn(bookingTxAdapter{tx: tx})
	})
}

func (a *BookingRepositoryAdapter) GetOwnedBooking(ctx context.Context, id, userID string) (application.Booking, error) {
	stored, err := a.repo.GetOwnedBooking(ctx, id, userID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *BookingRepositoryAdapter) UpdateOwnedBooking(ctx context.Context, id, userID string, changes application.BookingChanges) error {
	return a.repo.UpdateOwnedBooking(ctx, id, userID, toPersistenceChanges(changes))
}

func (a *BookingRepositoryAdapter) DeleteOwnedBooking(ctx context.Context, id, userID string) error {
	return a.repo.DeleteOwnedBooking(ctx, id, userID)
}

func (a *BookingRepositoryAdapter) ListBookingsByUser(ctx context.Context, userID string) ([]application.Booking, error) {
	stored, err := a.repo.ListBookingsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(stored), nil
}

func (a *BookingRepositoryAdapter) ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]application.Booking, error) {
	stored, err := a.repo.ListBookingsByRoom(ctx, roomID, from, to)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(stored), nil
}

type bookingTxAdapter struct {
	tx persistence.BookingTx
}

func (a bookingTxAdapter) Room() application.Room {
	return toApplicationRoom(a.tx.Room())
}

func (a bookingTxAdapter) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]application.Booking, error) {
	stored, err := a.tx.ListOverlapping(ctx, start, end, excludeID)
	if err != nil {
		return nil, err
	}
	return toApplicationBookings(stored), nil
}

func (a bookingTxAdapter) CreateBooking(ctx context.Context, booking application.Booking) error {
	return a.tx.CreateBooking(ctx, toPersistenceBooking(booking))
}

func (a bookingTxAdapter) UpdateOwnedBooking(ctx context.Context, id, userID string, changes application.BookingChanges) error {
	return a.tx.UpdateOwnedBooking(ctx, id, userID, toPersistenceChanges(changes))
}

func toPersistenceUser(user application.UserCredentials) persistence.User {
	return persistence.User{
		ID:           user.ID,
		Name:         user.Name,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
}

func toApplicationCredentials(user persistence.User) application.UserCredentials {
	return application.UserCredentials{
		User: application.User{
			ID:        user.ID,
			Name:      user.Name,
			Email:     user.Email,
			CreatedAt: user.CreatedAt,
		},
		PasswordHash: user.PasswordHash,
	}
}

func toPersistenceRoom(room application.Room) persistence.Room {
	return persistence.Room{
		ID:         room.ID,
		Name:       room.Name,
		Location:   room.Location,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toApplicationRoom(room persistence.Room) application.Room {
	return application.Room{
		ID:         room.ID,
		Name:       room.Name,
		Location:   room.Location,
		Capacity:   room.Capacity,
		Facilities: room.Facilities,
		CreatedAt:  room.CreatedAt,
		UpdatedAt:  room.UpdatedAt,
	}
}

func toApplicationRooms(rooms []persistence.Room) []application.Room {
	out := make([]application.Room, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, toApplicationRoom(room))
	}
	return out
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:             booking.ID,
		RoomID:         booking.RoomID,
		UserID:         booking.UserID,
		Title:          booking.Title,
		Start:          booking.Start,
		End:            booking.End,
		AttendeesCount: booking.AttendeesCount,
		Equipment:      booking.Equipment,
		CreatedAt:      booking.CreatedAt,
		UpdatedAt:      booking.UpdatedAt,
	}
}

func toApplicationBooking(booking persistence.Booking) application.Booking {
	return application.Booking{
		ID:             booking.ID,
		RoomID:         booking.RoomID,
		UserID:         booking.UserID,
		Title:          booking.Title,
		Start:          booking.Start,
		End:            booking.End,
		AttendeesCount: booking.AttendeesCount,
		Equipment:      booking.Equipment,
		CreatedAt:      booking.CreatedAt,
		UpdatedAt:      booking.UpdatedAt,
	}
}

func toApplicationBookings(bookings []persistence.Booking) []application.Booking {
	out := make([]application.Booking, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toApplicationBooking(booking))
	}
	return out
}

func toPersistenceChanges(changes application.BookingChanges) persistence.BookingChanges {
	return persistence.BookingChanges{
		Title:          changes.Title,
		AttendeesCount: changes.AttendeesCount,
		Start:          changes.Start,
		End:            changes.End,
		Equipment:      changes.Equipment,
		UpdatedAt:      changes.UpdatedAt,
	}
}

var (
	_ application.UserRepository    = (*UserRepositoryAdapter)(nil)
	_ application.RoomRepository    = (*RoomRepositoryAdapter)(nil)
	_ application.BookingRepository = (*BookingRepositoryAdapter)(nil)
	_ application.BookingTx         = bookingTxAdapter{}
)
