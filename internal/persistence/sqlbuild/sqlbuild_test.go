package sqlbuild

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
)

var (
	windowStart = time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC)
)

func textTime(t time.Time) any {
	return t.UTC().Format(time.RFC3339)
}

func TestSelectOverlappingUsesHalfOpenPredicate(t *testing.T) {
	b := New(DialectSQLite, textTime)

	stmt, err := b.SelectOverlapping("room-1", windowStart, windowEnd, "")
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "`start_time` < ?")
	assert.Contains(t, stmt.SQL, "`end_time` > ?")
	assert.NotContains(t, stmt.SQL, "<=")
	assert.NotContains(t, stmt.SQL, ">=")
	assert.Equal(t, []any{"room-1", "2024-01-01T10:00:00Z", "2024-01-01T09:00:00Z"}, stmt.Args)
}

func TestSelectOverlappingExcludesBooking(t *testing.T) {
	b := New(DialectSQLite, textTime)

	stmt, err := b.SelectOverlapping("room-1", windowStart, windowEnd, "booking-7")
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "`id` != ?")
	assert.Contains(t, stmt.Args, "booking-7")
}

func TestSelectAvailableRoomsSharesOverlapPredicate(t *testing.T) {
	b := New(DialectPostgres, nil)

	stmt, err := b.SelectAvailableRooms(windowStart, windowEnd)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, `"id" NOT IN ((SELECT "room_id" FROM "bookings"`)
	assert.Contains(t, stmt.SQL, `"start_time" < $1`)
	assert.Contains(t, stmt.SQL, `"end_time" > $2`)
	assert.Equal(t, []any{windowEnd, windowStart}, stmt.Args)
}

func TestSelectBookingsByRoomUsesStartWindow(t *testing.T) {
	b := New(DialectSQLite, textTime)
	dayEnd := windowStart.AddDate(0, 0, 1)

	stmt, err := b.SelectBookingsByRoom("room-1", windowStart, dayEnd)
	require.NoError(t, err)

	assert.Contains(t, stmt.SQL, "`start_time` >= ?")
	assert.Contains(t, stmt.SQL, "`start_time` < ?")
	assert.Equal(t, []any{"room-1", "2024-01-01T09:00:00Z", "2024-01-02T09:00:00Z"}, stmt.Args)
}

func TestOwnerScopedStatementsMatchIDAndUser(t *testing.T) {
	b := New(DialectPostgres, nil)

	update, err := b.UpdateOwnedBooking("b-1", "u-1", persistence.BookingChanges{
		Title:          "Retro",
		AttendeesCount: 3,
		Start:          windowStart,
		End:            windowEnd,
	})
	require.NoError(t, err)
	assert.Contains(t, update.SQL, `"id" = `)
	assert.Contains(t, update.SQL, `"user_id" = `)
	assert.Contains(t, update.Args, "b-1")
	assert.Contains(t, update.Args, "u-1")

	del, err := b.DeleteOwnedBooking("b-1", "u-1")
	require.NoError(t, err)
	assert.Contains(t, del.SQL, `DELETE FROM "bookings"`)
	assert.Equal(t, []any{"b-1", "u-1"}, del.Args)
}

func TestSelectRoomForUpdateLocksRow(t *testing.T) {
	b := New(DialectPostgres, nil)

	stmt, err := b.SelectRoomForUpdate("room-1")
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "FOR UPDATE")
	assert.Equal(t, []any{"room-1"}, stmt.Args)
}

func TestUpsertRoom(t *testing.T) {
	for _, dialect := range []string{DialectSQLite, DialectPostgres} {
		t.Run(dialect, func(t *testing.T) {
			b := New(dialect, nil)
			stmt, err := b.UpsertRoom(persistence.Room{ID: "room-1", Name: "Everest", Capacity: 8})
			require.NoError(t, err)
			assert.Contains(t, stmt.SQL, "ON CONFLICT")
			assert.Contains(t, stmt.SQL, "DO UPDATE SET")
			assert.Contains(t, stmt.SQL, "EXCLUDED.capacity")
		})
	}
}
