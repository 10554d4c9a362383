package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// bookingStoreStub keeps rooms and bookings in maps and serializes WithRoomLock
// with a single mutex. Writes made inside a failed lock callback are discarded.
type bookingStoreStub struct {
	mu       sync.Mutex
	rooms    map[string]Room
	bookings map[string]Booking

	listErr error
}

func newBookingStoreStub(rooms ...Room) *bookingStoreStub {
	s := &bookingStoreStub{rooms: map[string]Room{}, bookings: map[string]Booking{}}
	for _, room := range rooms {
		s.rooms[room.ID] = room
	}
	return s
}

func (s *bookingStoreStub) WithRoomLock(ctx context.Context, roomID string, fn func(tx BookingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms[roomID]
	if !ok {
		return persistence.ErrNotFound
	}
	snapshot := make(map[string]Booking, len(s.bookings))
	for id, b := range s.bookings {
		snapshot[id] = b
	}
	if err := fn(&bookingTxStub{store: s, room: room}); err != nil {
		s.bookings = snapshot
		return err
	}
	return nil
}

func (s *bookingStoreStub) GetOwnedBooking(ctx context.Context, id, userID string) (Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.UserID != userID {
		return Booking{}, persistence.ErrNotFound
	}
	return b, nil
}

func (s *bookingStoreStub) UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(id, userID, changes)
}

func (s *bookingStoreStub) updateLocked(id, userID string, changes BookingChanges) error {
	b, ok := s.bookings[id]
	if !ok || b.UserID != userID {
		return persistence.ErrNotFound
	}
	b.Title = changes.Title
	b.AttendeesCount = changes.AttendeesCount
	b.Start = changes.Start
	b.End = changes.End
	b.Equipment = changes.Equipment
	b.UpdatedAt = changes.UpdatedAt
	s.bookings[id] = b
	return nil
}

func (s *bookingStoreStub) DeleteOwnedBooking(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.UserID != userID {
		return persistence.ErrNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *bookingStoreStub) ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.filter(func(b Booking) bool { return b.UserID == userID }), nil
}

func (s *bookingStoreStub) ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]Booking, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.filter(func(b Booking) bool {
		return b.RoomID == roomID && !b.Start.Before(from) && b.Start.Before(to)
	}), nil
}

func (s *bookingStoreStub) filter(keep func(Booking) bool) []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filterLocked(keep)
}

func (s *bookingStoreStub) filterLocked(keep func(Booking) bool) []Booking {
	var out []Booking
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start.Equal(out[j].Start) {
			return out[i].ID < out[j].ID
		}
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func (s *bookingStoreStub) UpsertRoom(ctx context.Context, room Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room
	return nil
}

func (s *bookingStoreStub) GetRoom(ctx context.Context, id string) (Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[id]
	if !ok {
		return Room{}, persistence.ErrNotFound
	}
	return room, nil
}

func (s *bookingStoreStub) ListRooms(ctx context.Context) ([]Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Room
	for _, room := range s.rooms {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *bookingStoreStub) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]Room, error) {
	rooms, _ := s.ListRooms(ctx)
	window := scheduler.Interval{Start: start, End: end}
	var out []Room
	for _, room := range rooms {
		busy := s.filter(func(b Booking) bool {
			return b.RoomID == room.ID && scheduler.Overlaps(window, scheduler.Interval{Start: b.Start, End: b.End})
		})
		if len(busy) == 0 {
			out = append(out, room)
		}
	}
	return out, nil
}

type bookingTxStub struct {
	store *bookingStoreStub
	room  Room
}

func (t *bookingTxStub) Room() Room { return t.room }

func (t *bookingTxStub) ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Booking, error) {
	window := scheduler.Interval{Start: start, End: end}
	return t.store.filterLocked(func(b Booking) bool {
		return b.RoomID == t.room.ID && b.ID != excludeID &&
			scheduler.Overlaps(window, scheduler.Interval{Start: b.Start, End: b.End})
	}), nil
}

func (t *bookingTxStub) CreateBooking(ctx context.Context, booking Booking) error {
	if _, exists := t.store.bookings[booking.ID]; exists {
		return persistence.ErrDuplicate
	}
	t.store.bookings[booking.ID] = booking
	return nil
}

func (t *bookingTxStub) UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error {
	return t.store.updateLocked(id, userID, changes)
}

var testNow = time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)

func todayAt(hour, minute int) time.Time {
	return time.Date(2024, time.March, 14, hour, minute, 0, 0, time.UTC)
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func utcPolicy() scheduler.Policy {
	policy := scheduler.DefaultPolicy()
	policy.Location = time.UTC
	return policy
}

func newTestBookingService(store *bookingStoreStub, config BookingServiceConfig) *BookingService {
	config.Policy = utcPolicy()
	return NewBookingService(store, store, sequentialIDs("booking"), func() time.Time { return testNow }, config)
}

func proposal(roomID, userID string, attendees int, start, end time.Time) ProposeBookingParams {
	return ProposeBookingParams{
		RoomID:         roomID,
		UserID:         userID,
		Title:          "Standup",
		Start:          start,
		End:            end,
		AttendeesCount: attendees,
	}
}

func TestBookingService_ProposeBooking(t *testing.T) {
	t.Run("accepts a booking that passes every rule", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Name: "Sakura", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})

		params := proposal("r1", "u1", 4, todayAt(11, 0), todayAt(12, 0))
		params.Title = "  Planning  "
		params.Equipment = " projector "

		booking, err := svc.ProposeBooking(context.Background(), params)
		require.NoError(t, err)

		assert.Equal(t, "booking-1", booking.ID)
		assert.Equal(t, "Planning", booking.Title)
		assert.Equal(t, "projector", booking.Equipment)
		assert.Equal(t, testNow, booking.CreatedAt)
		assert.Contains(t, store.bookings, "booking-1")
	})

	t.Run("rejects malformed input before any rule", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})

		_, err := svc.ProposeBooking(context.Background(), ProposeBookingParams{})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "room_id")
		assert.Contains(t, vErr.FieldErrors, "user_id")
		assert.Contains(t, vErr.FieldErrors, "start_time")
		assert.Contains(t, vErr.FieldErrors, "end_time")
		assert.Contains(t, vErr.FieldErrors, "attendees_count")
		assert.Empty(t, store.bookings)
	})

	t.Run("reports the earliest failing rule", func(t *testing.T) {
		cases := []struct {
			name   string
			start  time.Time
			end    time.Time
			reason scheduler.Reason
		}{
			{"past start", todayAt(9, 0), todayAt(10, 30), scheduler.ReasonPastTime},
			{"past and too short", todayAt(9, 0), todayAt(9, 10), scheduler.ReasonPastTime},
			{"tomorrow", todayAt(11, 0).AddDate(0, 0, 1), todayAt(12, 0).AddDate(0, 0, 1), scheduler.ReasonWrongDay},
			{"after closing", todayAt(17, 30), todayAt(18, 30), scheduler.ReasonOutsideBusinessHours},
			{"too short", todayAt(11, 0), todayAt(11, 15), scheduler.ReasonInvalidDuration},
			{"too long", todayAt(11, 0), todayAt(15, 30), scheduler.ReasonInvalidDuration},
			{"end before start", todayAt(12, 0), todayAt(11, 0), scheduler.ReasonInvalidDuration},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
				svc := newTestBookingService(store, BookingServiceConfig{})

				_, err := svc.ProposeBooking(context.Background(), proposal("r1", "u1", 2, tc.start, tc.end))

				reason, ok := scheduler.ReasonOf(err)
				require.True(t, ok, "expected rule violation, got %v", err)
				assert.Equal(t, tc.reason, reason)
				assert.Empty(t, store.bookings)
			})
		}
	})

	t.Run("closing time is a valid end point", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})

		_, err := svc.ProposeBooking(context.Background(), proposal("r1", "u1", 2, todayAt(17, 0), todayAt(18, 0)))
		require.NoError(t, err)
	})

	t.Run("unknown room is reported as room not found", func(t *testing.T) {
		svc := newTestBookingService(newBookingStoreStub(), BookingServiceConfig{})

		_, err := svc.ProposeBooking(context.Background(), proposal("missing", "u1", 2, todayAt(11, 0), todayAt(12, 0)))

		assert.ErrorIs(t, err, scheduler.ErrRoomNotFound)
	})

	t.Run("sums attendees of overlapping bookings against capacity", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		ctx := context.Background()

		_, err := svc.ProposeBooking(ctx, proposal("r1", "u1", 6, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)
		_, err = svc.ProposeBooking(ctx, proposal("r1", "u2", 4, todayAt(11, 30), todayAt(12, 30)))
		require.NoError(t, err)

		_, err = svc.ProposeBooking(ctx, proposal("r1", "u3", 1, todayAt(11, 45), todayAt(12, 15)))
		var violation *scheduler.RuleViolation
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, scheduler.ReasonCapacityExceeded, violation.Reason)
		assert.Equal(t, 10, violation.AlreadyBooked)
		assert.Equal(t, 1, violation.Requested)
		assert.Equal(t, 10, violation.Capacity)
		assert.Len(t, store.bookings, 2)
	})

	t.Run("back-to-back bookings do not overlap", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 5})
		svc := newTestBookingService(store, BookingServiceConfig{})
		ctx := context.Background()

		_, err := svc.ProposeBooking(ctx, proposal("r1", "u1", 5, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)
		_, err = svc.ProposeBooking(ctx, proposal("r1", "u2", 5, todayAt(12, 0), todayAt(13, 0)))
		require.NoError(t, err)
	})

	t.Run("a single request larger than the room is rejected", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 4})
		svc := newTestBookingService(store, BookingServiceConfig{})

		_, err := svc.ProposeBooking(context.Background(), proposal("r1", "u1", 5, todayAt(11, 0), todayAt(12, 0)))
		assert.ErrorIs(t, err, scheduler.ErrCapacityExceeded)
	})

	t.Run("concurrent proposals cannot overbook", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = svc.ProposeBooking(context.Background(),
					proposal("r1", fmt.Sprintf("u%d", i), 6, todayAt(11, 0), todayAt(12, 0)))
			}(i)
		}
		wg.Wait()

		accepted := 0
		for _, err := range errs {
			if err == nil {
				accepted++
				continue
			}
			assert.ErrorIs(t, err, scheduler.ErrCapacityExceeded)
		}
		assert.Equal(t, 1, accepted)
	})
}

func TestBookingService_CancelBooking(t *testing.T) {
	setup := func(t *testing.T) (*BookingService, *bookingStoreStub, Booking) {
		t.Helper()
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)
		return svc, store, booking
	}

	t.Run("owner can cancel", func(t *testing.T) {
		svc, store, booking := setup(t)

		require.NoError(t, svc.CancelBooking(context.Background(), booking.ID, "owner"))
		assert.Empty(t, store.bookings)
	})

	t.Run("another user is unauthorized", func(t *testing.T) {
		svc, store, booking := setup(t)

		err := svc.CancelBooking(context.Background(), booking.ID, "intruder")
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Len(t, store.bookings, 1)
	})

	t.Run("missing booking is indistinguishable from a foreign one", func(t *testing.T) {
		svc, _, _ := setup(t)

		err := svc.CancelBooking(context.Background(), "nope", "owner")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("missing user id is unauthorized", func(t *testing.T) {
		svc, _, booking := setup(t)

		err := svc.CancelBooking(context.Background(), booking.ID, "")
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestBookingService_UpdateBooking(t *testing.T) {
	update := func(id, userID string, attendees int, start, end time.Time) UpdateBookingParams {
		return UpdateBookingParams{
			BookingID:      id,
			UserID:         userID,
			Title:          "Retro",
			AttendeesCount: attendees,
			Start:          start,
			End:            end,
		}
	}

	t.Run("without revalidation the rules are not re-run", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		// Yesterday and over capacity: accepted because no rule runs.
		yesterday := todayAt(11, 0).AddDate(0, 0, -1)
		err = svc.UpdateBooking(context.Background(), update(booking.ID, "owner", 50, yesterday, yesterday.Add(time.Hour)))
		require.NoError(t, err)

		stored := store.bookings[booking.ID]
		assert.Equal(t, "Retro", stored.Title)
		assert.Equal(t, 50, stored.AttendeesCount)
		assert.True(t, stored.Start.Equal(yesterday))
		assert.Equal(t, testNow, stored.UpdatedAt)
	})

	t.Run("non-owner is unauthorized", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "intruder", 3, todayAt(13, 0), todayAt(14, 0)))
		assert.ErrorIs(t, err, ErrUnauthorized)
		assert.Equal(t, 2, store.bookings[booking.ID].AttendeesCount)
	})

	t.Run("malformed changes from a non-owner are unauthorized", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "intruder", 0, todayAt(14, 0), todayAt(13, 0)))
		assert.ErrorIs(t, err, ErrUnauthorized)

		err = svc.UpdateBooking(context.Background(), update("missing", "owner", 0, todayAt(14, 0), todayAt(13, 0)))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("malformed changes from the owner are validation errors", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "owner", 0, todayAt(14, 0), todayAt(13, 0)))

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "attendees_count")
		assert.Contains(t, vErr.FieldErrors, "end_time")
	})

	t.Run("revalidation applies the admission rules", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{RevalidateOnUpdate: true})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "owner", 2, todayAt(9, 0), todayAt(10, 30)))
		assert.ErrorIs(t, err, scheduler.ErrPastTime)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "owner", 2, todayAt(17, 0), todayAt(19, 0)))
		assert.ErrorIs(t, err, scheduler.ErrOutsideBusinessHours)
	})

	t.Run("revalidation excludes the booking itself from demand", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{RevalidateOnUpdate: true})
		ctx := context.Background()

		mine, err := svc.ProposeBooking(ctx, proposal("r1", "owner", 6, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)
		_, err = svc.ProposeBooking(ctx, proposal("r1", "other", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		require.NoError(t, svc.UpdateBooking(ctx, update(mine.ID, "owner", 8, todayAt(11, 0), todayAt(12, 0))))

		err = svc.UpdateBooking(ctx, update(mine.ID, "owner", 9, todayAt(11, 0), todayAt(12, 0)))
		var violation *scheduler.RuleViolation
		require.ErrorAs(t, err, &violation)
		assert.Equal(t, scheduler.ReasonCapacityExceeded, violation.Reason)
		assert.Equal(t, 2, violation.AlreadyBooked)
		assert.Equal(t, 8, store.bookings[mine.ID].AttendeesCount)
	})

	t.Run("revalidation still hides foreign bookings", func(t *testing.T) {
		store := newBookingStoreStub(Room{ID: "r1", Capacity: 10})
		svc := newTestBookingService(store, BookingServiceConfig{RevalidateOnUpdate: true})
		booking, err := svc.ProposeBooking(context.Background(), proposal("r1", "owner", 2, todayAt(11, 0), todayAt(12, 0)))
		require.NoError(t, err)

		err = svc.UpdateBooking(context.Background(), update(booking.ID, "intruder", 2, todayAt(13, 0), todayAt(14, 0)))
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestBookingService_Queries(t *testing.T) {
	store := newBookingStoreStub(
		Room{ID: "r1", Name: "Sakura", Capacity: 10},
		Room{ID: "r2", Name: "Kaede", Capacity: 4},
	)
	svc := newTestBookingService(store, BookingServiceConfig{})
	ctx := context.Background()

	late, err := svc.ProposeBooking(ctx, proposal("r1", "u1", 2, todayAt(14, 0), todayAt(15, 0)))
	require.NoError(t, err)
	early, err := svc.ProposeBooking(ctx, proposal("r1", "u1", 2, todayAt(11, 0), todayAt(12, 0)))
	require.NoError(t, err)
	_, err = svc.ProposeBooking(ctx, proposal("r2", "u2", 2, todayAt(11, 0), todayAt(12, 0)))
	require.NoError(t, err)
	// Seeded directly so it lands on another day.
	store.bookings["old"] = Booking{ID: "old", RoomID: "r1", UserID: "u1",
		Start: todayAt(11, 0).AddDate(0, 0, -1), End: todayAt(12, 0).AddDate(0, 0, -1), AttendeesCount: 1}

	t.Run("ListByUser orders by start", func(t *testing.T) {
		bookings, err := svc.ListByUser(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, bookings, 3)
		assert.Equal(t, []string{"old", early.ID, late.ID}, []string{bookings[0].ID, bookings[1].ID, bookings[2].ID})
	})

	t.Run("ListByUser returns an empty slice for strangers", func(t *testing.T) {
		bookings, err := svc.ListByUser(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, bookings)
		assert.Empty(t, bookings)
	})

	t.Run("TodayForRoom is limited to the current day", func(t *testing.T) {
		bookings, err := svc.TodayForRoom(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, bookings, 2)
		assert.Equal(t, early.ID, bookings[0].ID)
		assert.Equal(t, late.ID, bookings[1].ID)
	})

	t.Run("ListByRoomForDay accepts any instant of the day", func(t *testing.T) {
		bookings, err := svc.ListByRoomForDay(ctx, "r1", todayAt(23, 59).AddDate(0, 0, -1))
		require.NoError(t, err)
		require.Len(t, bookings, 1)
		assert.Equal(t, "old", bookings[0].ID)
	})

	t.Run("ListAvailableRooms excludes overlapping rooms", func(t *testing.T) {
		rooms, err := svc.ListAvailableRooms(ctx, todayAt(11, 30), todayAt(13, 0))
		require.NoError(t, err)
		assert.Empty(t, rooms)

		rooms, err = svc.ListAvailableRooms(ctx, todayAt(12, 0), todayAt(14, 0))
		require.NoError(t, err)
		require.Len(t, rooms, 2)

		rooms, err = svc.ListAvailableRooms(ctx, todayAt(14, 30), todayAt(16, 0))
		require.NoError(t, err)
		require.Len(t, rooms, 1)
		assert.Equal(t, "r2", rooms[0].ID)
	})

	t.Run("ListAvailableRooms rejects an empty range", func(t *testing.T) {
		_, err := svc.ListAvailableRooms(ctx, todayAt(12, 0), todayAt(12, 0))
		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "end")

		_, err = svc.ListAvailableRooms(ctx, time.Time{}, todayAt(12, 0))
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "start")
	})

	t.Run("store failures are passed through", func(t *testing.T) {
		broken := newBookingStoreStub()
		broken.listErr = errors.New("connection reset")
		svc := newTestBookingService(broken, BookingServiceConfig{})

		_, err := svc.ListByUser(ctx, "u1")
		assert.EqualError(t, err, "connection reset")
	})
}

func TestBookingService_Telemetry(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	store := newBookingStoreStub(Room{ID: "r1", Capacity: 4})
	svc := newTestBookingService(store, BookingServiceConfig{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
	})
	ctx := context.Background()

	_, err := svc.ProposeBooking(ctx, proposal("r1", "u1", 4, todayAt(11, 0), todayAt(12, 0)))
	require.NoError(t, err)
	_, err = svc.ProposeBooking(ctx, proposal("r1", "u2", 1, todayAt(11, 0), todayAt(12, 0)))
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "BookingService.ProposeBooking", spans[0].Name)
	assert.Contains(t, spans[1].Attributes, attribute.String("booking.reason", "capacity_exceeded"))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != DecisionCounterName {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				reason, _ := dp.Attributes.Value("reason")
				counts[outcome.AsString()+"/"+reason.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{
		"accepted/none":              1,
		"rejected/capacity_exceeded": 1,
	}, counts)
}
