// Package memory is a process-local store used for development and tests.
// It honours the same contracts as the SQL stores, including the room lock.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// Storage keeps users, rooms and bookings in maps.
type Storage struct {
	mu       sync.RWMutex
	users    map[string]persistence.User
	rooms    map[string]persistence.Room
	bookings map[string]persistence.Booking

	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex

	now func() time.Time
}

// Open returns an empty Storage.
func Open() *Storage {
	return &Storage{
		users:     make(map[string]persistence.User),
		rooms:     make(map[string]persistence.Room),
		bookings:  make(map[string]persistence.Booking),
		roomLocks: make(map[string]*sync.Mutex),
		now:       time.Now,
	}
}

// Close is a no-op.
func (s *Storage) Close() error {
	return nil
}

// Migrate is a no-op.
func (s *Storage) Migrate(context.Context) error {
	return nil
}

// Ping always succeeds.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// --- UserRepository implementation ---

// CreateUser stores a new user. Emails are unique case-insensitively.
func (s *Storage) CreateUser(_ context.Context, user persistence.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.ID == "" || strings.TrimSpace(user.Email) == "" {
		return persistence.ErrConstraintViolation
	}
	if _, ok := s.users[user.ID]; ok {
		return fmt.Errorf("%w: user %s", persistence.ErrDuplicate, user.ID)
	}
	lower := strings.ToLower(user.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == lower {
			return fmt.Errorf("%w: email %s", persistence.ErrDuplicate, user.Email)
		}
	}

	s.users[user.ID] = user
	return nil
}

// GetUser retrieves a user by ID.
func (s *Storage) GetUser(_ context.Context, id string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return persistence.User{}, persistence.ErrNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (s *Storage) GetUserByEmail(_ context.Context, email string) (persistence.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lower := strings.ToLower(email)
	for _, user := range s.users {
		if strings.ToLower(user.Email) == lower {
			return user, nil
		}
	}
	return persistence.User{}, persistence.ErrNotFound
}

// --- RoomRepository implementation ---

// UpsertRoom inserts or replaces a room, keeping the original CreatedAt.
func (s *Storage) UpsertRoom(_ context.Context, room persistence.Room) error {
	if strings.TrimSpace(room.ID) == "" || room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.rooms[room.ID]; ok {
		room.CreatedAt = existing.CreatedAt
	} else if room.CreatedAt.IsZero() {
		room.CreatedAt = now
	}
	room.UpdatedAt = now
	s.rooms[room.ID] = room
	return nil
}

// GetRoom retrieves a room by ID.
func (s *Storage) GetRoom(_ context.Context, id string) (persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[id]
	if !ok {
		return persistence.Room{}, persistence.ErrNotFound
	}
	return room, nil
}

// ListRooms returns all rooms ordered by name.
func (s *Storage) ListRooms(context.Context) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sortedRoomsLocked(func(persistence.Room) bool { return true }), nil
}

// ListAvailableRooms returns rooms with no booking overlapping [start, end).
func (s *Storage) ListAvailableRooms(_ context.Context, start, end time.Time) ([]persistence.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	window := scheduler.Interval{Start: start, End: end}
	busy := make(map[string]bool)
	for _, booking := range s.bookings {
		if scheduler.Overlaps(window, intervalOf(booking)) {
			busy[booking.RoomID] = true
		}
	}
	return s.sortedRoomsLocked(func(room persistence.Room) bool { return !busy[room.ID] }), nil
}

func (s *Storage) sortedRoomsLocked(keep func(persistence.Room) bool) []persistence.Room {
	var rooms []persistence.Room
	for _, room := range s.rooms {
		if keep(room) {
			rooms = append(rooms, room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].Name == rooms[j].Name {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].Name < rooms[j].Name
	})
	return rooms
}

// --- BookingRepository implementation ---

func (s *Storage) roomLock(roomID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.roomLocks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomID] = lock
	}
	return lock
}

// WithRoomLock holds the room's mutex while fn runs. Writes made through the
// transaction are staged and applied only when fn returns nil.
func (s *Storage) WithRoomLock(ctx context.Context, roomID string, fn func(tx persistence.BookingTx) error) error {
	lock := s.roomLock(roomID)
	lock.Lock()
	defer lock.Unlock()

	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}

	tx := &bookingTx{store: s, room: room}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]persistence.Booking, len(s.bookings))
	for id, booking := range s.bookings {
		snapshot[id] = booking
	}
	for _, apply := range tx.staged {
		if err := apply(); err != nil {
			s.bookings = snapshot
			return err
		}
	}
	return nil
}

// GetOwnedBooking returns the booking when it exists and belongs to userID.
func (s *Storage) GetOwnedBooking(_ context.Context, id, userID string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, ok := s.bookings[id]
	if !ok || booking.UserID != userID {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return booking, nil
}

// UpdateOwnedBooking applies changes when both id and owner match.
func (s *Storage) UpdateOwnedBooking(ctx context.Context, id, userID string, changes persistence.BookingChanges) error {
	current, err := s.GetOwnedBooking(ctx, id, userID)
	if err != nil {
		return err
	}

	lock := s.roomLock(current.RoomID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateOwnedLocked(id, userID, changes)
}

func (s *Storage) updateOwnedLocked(id, userID string, changes persistence.BookingChanges) error {
	booking, ok := s.bookings[id]
	if !ok || booking.UserID != userID {
		return persistence.ErrNotFound
	}
	if changes.AttendeesCount < 1 || !changes.Start.Before(changes.End) {
		return persistence.ErrConstraintViolation
	}
	booking.Title = changes.Title
	booking.AttendeesCount = changes.AttendeesCount
	booking.Start = changes.Start
	booking.End = changes.End
	booking.Equipment = changes.Equipment
	booking.UpdatedAt = changes.UpdatedAt
	s.bookings[id] = booking
	return nil
}

// DeleteOwnedBooking removes the booking when both id and owner match. It
// holds the room lock so a delete cannot land inside another writer's
// transaction on the same room.
func (s *Storage) DeleteOwnedBooking(ctx context.Context, id, userID string) error {
	current, err := s.GetOwnedBooking(ctx, id, userID)
	if err != nil {
		return err
	}

	lock := s.roomLock(current.RoomID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	booking, ok := s.bookings[id]
	if !ok || booking.UserID != userID {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

// ListBookingsByUser returns the user's bookings ordered by start time.
func (s *Storage) ListBookingsByUser(_ context.Context, userID string) ([]persistence.Booking, error) {
	return s.filterBookings(func(b persistence.Booking) bool { return b.UserID == userID }), nil
}

// ListBookingsByRoom returns the room's bookings starting in [from, to).
func (s *Storage) ListBookingsByRoom(_ context.Context, roomID string, from, to time.Time) ([]persistence.Booking, error) {
	return s.filterBookings(func(b persistence.Booking) bool {
		return b.RoomID == roomID && !b.Start.Before(from) && b.Start.Before(to)
	}), nil
}

func (s *Storage) filterBookings(keep func(persistence.Booking) bool) []persistence.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if keep(booking) {
			bookings = append(bookings, booking)
		}
	}
	sortBookings(bookings)
	return bookings
}

type bookingTx struct {
	store  *Storage
	room   persistence.Room
	staged []func() error
}

func (t *bookingTx) Room() persistence.Room {
	return t.room
}

func (t *bookingTx) ListOverlapping(_ context.Context, start, end time.Time, excludeID string) ([]persistence.Booking, error) {
	window := scheduler.Interval{Start: start, End: end}
	return t.store.filterBookings(func(b persistence.Booking) bool {
		return b.RoomID == t.room.ID && b.ID != excludeID && scheduler.Overlaps(window, intervalOf(b))
	}), nil
}

func (t *bookingTx) CreateBooking(_ context.Context, booking persistence.Booking) error {
	if booking.RoomID != t.room.ID {
		return fmt.Errorf("%w: booking for room %q inside lock for %q",
			persistence.ErrConstraintViolation, booking.RoomID, t.room.ID)
	}
	if booking.AttendeesCount < 1 || !booking.Start.Before(booking.End) {
		return persistence.ErrConstraintViolation
	}

	t.store.mu.RLock()
	_, exists := t.store.bookings[booking.ID]
	t.store.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: booking %s", persistence.ErrDuplicate, booking.ID)
	}

	t.staged = append(t.staged, func() error {
		if _, exists := t.store.bookings[booking.ID]; exists {
			return fmt.Errorf("%w: booking %s", persistence.ErrDuplicate, booking.ID)
		}
		t.store.bookings[booking.ID] = booking
		return nil
	})
	return nil
}

func (t *bookingTx) UpdateOwnedBooking(_ context.Context, id, userID string, changes persistence.BookingChanges) error {
	t.store.mu.RLock()
	booking, ok := t.store.bookings[id]
	t.store.mu.RUnlock()
	if !ok || booking.UserID != userID {
		return persistence.ErrNotFound
	}
	if changes.AttendeesCount < 1 || !changes.Start.Before(changes.End) {
		return persistence.ErrConstraintViolation
	}

	t.staged = append(t.staged, func() error {
		return t.store.updateOwnedLocked(id, userID, changes)
	})
	return nil
}

func intervalOf(booking persistence.Booking) scheduler.Interval {
	return scheduler.Interval{Start: booking.Start, End: booking.End}
}

func sortBookings(bookings []persistence.Booking) {
	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].Start.Equal(bookings[j].Start) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].Start.Before(bookings[j].Start)
	})
}
