package testfixtures

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/scheduler"
)

func TestServiceFactoryMemoryServices(t *testing.T) {
	factory := NewServiceFactory()
	services := factory.NewMemoryServices(application.BookingServiceConfig{})
	ctx := context.Background()

	room := NewRoomFixture(WithRoomCapacity(4))
	require.NoError(t, services.Rooms.SeedRooms(ctx, []application.RoomInput{room.Input()}))

	fixture := NewBookingFixture(WithBookingRoom(room.ID), WithBookingAttendees(3))
	booking, err := services.Bookings.ProposeBooking(ctx, fixture.Proposal())
	require.NoError(t, err)

	assert.Equal(t, "id-1", booking.ID)
	assert.True(t, booking.CreatedAt.Equal(factory.Clock.Now()))

	overflow := NewBookingFixture(WithBookingRoom(room.ID), WithBookingAttendees(2))
	_, err = services.Bookings.ProposeBooking(ctx, overflow.Proposal())
	assert.ErrorIs(t, err, scheduler.ErrCapacityExceeded)
}

func TestServiceFactoryUserServiceHashesCheaply(t *testing.T) {
	services := NewServiceFactory().NewMemoryServices(application.BookingServiceConfig{})
	ctx := context.Background()

	user, err := services.Users.Signup(ctx, application.SignupParams{Name: "Aiko", Email: "aiko@example.com", Password: "pw"})
	require.NoError(t, err)

	loggedIn, err := services.Users.Login(ctx, "aiko@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
}

func TestSQLiteHarnessOpensMigratedStore(t *testing.T) {
	harness := NewSQLiteHarness(t)

	require.NoError(t, harness.Store.Ping(context.Background()))
	rooms, err := harness.Store.ListRooms(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rooms)
}
