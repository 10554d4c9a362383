package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/room-booking/internal/persistence"
)

type roomRepoStub struct {
	upserted  []Room
	upsertErr error

	getRoom Room
	getErr  error

	list    []Room
	listErr error
}

func (r *roomRepoStub) UpsertRoom(ctx context.Context, room Room) error {
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upserted = append(r.upserted, room)
	return nil
}

func (r *roomRepoStub) GetRoom(ctx context.Context, id string) (Room, error) {
	if r.getErr != nil {
		return Room{}, r.getErr
	}
	if r.getRoom.ID != id {
		return Room{}, persistence.ErrNotFound
	}
	return r.getRoom, nil
}

func (r *roomRepoStub) ListRooms(ctx context.Context) ([]Room, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.list, nil
}

func (r *roomRepoStub) ListAvailableRooms(ctx context.Context, start, end time.Time) ([]Room, error) {
	return r.ListRooms(ctx)
}

func TestRoomService_ListRooms(t *testing.T) {
	t.Run("returns rooms from the repository", func(t *testing.T) {
		repo := &roomRepoStub{list: []Room{{ID: "r1", Name: "Kaede"}, {ID: "r2", Name: "Sakura"}}}
		svc := NewRoomService(repo, nil)

		rooms, err := svc.ListRooms(context.Background())
		require.NoError(t, err)
		assert.Len(t, rooms, 2)
	})

	t.Run("never returns nil", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{}, nil)

		rooms, err := svc.ListRooms(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, rooms)
	})

	t.Run("propagates repository failures", func(t *testing.T) {
		svc := NewRoomService(&roomRepoStub{listErr: errors.New("boom")}, nil)

		_, err := svc.ListRooms(context.Background())
		assert.EqualError(t, err, "boom")
	})
}

func TestRoomService_Capacity(t *testing.T) {
	repo := &roomRepoStub{getRoom: Room{ID: "r1", Capacity: 12}}
	svc := NewRoomService(repo, nil)

	capacity, err := svc.Capacity(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, 12, capacity)

	_, err = svc.Capacity(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomService_SeedRooms(t *testing.T) {
	now := time.Date(2024, time.March, 14, 9, 0, 0, 0, time.UTC)

	t.Run("upserts trimmed rooms", func(t *testing.T) {
		repo := &roomRepoStub{}
		svc := NewRoomService(repo, func() time.Time { return now })

		err := svc.SeedRooms(context.Background(), []RoomInput{
			{ID: " r1 ", Name: "  Sakura Hall ", Location: "Floor 3", Capacity: 10, Facilities: " projector "},
			{ID: "r2", Name: "Kaede", Capacity: 4},
		})
		require.NoError(t, err)

		require.Len(t, repo.upserted, 2)
		assert.Equal(t, Room{
			ID:         "r1",
			Name:       "Sakura Hall",
			Location:   "Floor 3",
			Capacity:   10,
			Facilities: "projector",
			CreatedAt:  now,
			UpdatedAt:  now,
		}, repo.upserted[0])
	})

	t.Run("validates every room before writing", func(t *testing.T) {
		repo := &roomRepoStub{}
		svc := NewRoomService(repo, nil)

		err := svc.SeedRooms(context.Background(), []RoomInput{
			{ID: "r1", Name: "Sakura", Capacity: 10},
			{ID: "r1", Name: "", Capacity: 0},
		})

		var vErr *ValidationError
		require.ErrorAs(t, err, &vErr)
		assert.Contains(t, vErr.FieldErrors, "rooms[1].id")
		assert.Contains(t, vErr.FieldErrors, "rooms[1].name")
		assert.Contains(t, vErr.FieldErrors, "rooms[1].capacity")
		assert.Empty(t, repo.upserted)
	})

	t.Run("maps constraint violations", func(t *testing.T) {
		repo := &roomRepoStub{upsertErr: persistence.ErrConstraintViolation}
		svc := NewRoomService(repo, nil)

		err := svc.SeedRooms(context.Background(), []RoomInput{{ID: "r1", Name: "Sakura", Capacity: 10}})

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}
