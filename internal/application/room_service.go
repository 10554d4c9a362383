package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/room-booking/internal/persistence"
)

// RoomRepository captures the persistence operations needed by the room directory.
type RoomRepository interface {
	UpsertRoom(ctx context.Context, room Room) error
	GetRoom(ctx context.Context, id string) (Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	ListAvailableRooms(ctx context.Context, start, end time.Time) ([]Room, error)
}

// RoomService is the read-mostly room directory.
type RoomService struct {
	rooms  RoomRepository
	now    func() time.Time
	logger *slog.Logger
}

// NewRoomService constructs a room service with the provided dependencies.
func NewRoomService(rooms RoomRepository, now func() time.Time) *RoomService {
	return NewRoomServiceWithLogger(rooms, now, nil)
}

// NewRoomServiceWithLogger constructs a room service with a specified logger.
func NewRoomServiceWithLogger(rooms RoomRepository, now func() time.Time, logger *slog.Logger) *RoomService {
	if now == nil {
		now = time.Now
	}
	return &RoomService{rooms: rooms, now: now, logger: defaultLogger(logger)}
}

func (s *RoomService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RoomService", operation, attrs...)
}

// ListRooms returns every room ordered by name.
func (s *RoomService) ListRooms(ctx context.Context) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("RoomService is nil")
		return
	}
	if s.rooms == nil {
		return []Room{}, nil
	}

	logger := s.loggerWith(ctx, "ListRooms")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(rooms)).DebugContext(ctx, "rooms listed")
	}()

	rooms, err = s.rooms.ListRooms(ctx)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return
}

// GetRoom returns a single room or ErrNotFound.
func (s *RoomService) GetRoom(ctx context.Context, roomID string) (Room, error) {
	if s == nil {
		return Room{}, fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return Room{}, fmt.Errorf("room repository not configured")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return Room{}, mapRoomRepoError(err)
	}
	return room, nil
}

// Capacity returns the number of seats in the room.
func (s *RoomService) Capacity(ctx context.Context, roomID string) (int, error) {
	room, err := s.GetRoom(ctx, roomID)
	if err != nil {
		return 0, err
	}
	return room.Capacity, nil
}

// SeedRooms validates and upserts the configured rooms. Every input is
// validated before anything is written.
func (s *RoomService) SeedRooms(ctx context.Context, inputs []RoomInput) (err error) {
	if s == nil {
		return fmt.Errorf("RoomService is nil")
	}
	if s.rooms == nil {
		return fmt.Errorf("room repository not configured")
	}

	logger := s.loggerWith(ctx, "SeedRooms", "count", len(inputs))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to seed rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "rooms seeded")
	}()

	vErr := &ValidationError{}
	seen := make(map[string]bool, len(inputs))
	for i, input := range inputs {
		prefix := fmt.Sprintf("rooms[%d].", i)
		id := strings.TrimSpace(input.ID)
		if id == "" {
			vErr.add(prefix+"id", "id is required")
		} else if seen[id] {
			vErr.add(prefix+"id", "id is duplicated")
		}
		seen[id] = true
		if strings.TrimSpace(input.Name) == "" {
			vErr.add(prefix+"name", "name is required")
		}
		if input.Capacity <= 0 {
			vErr.add(prefix+"capacity", "capacity must be positive")
		}
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	for _, input := range inputs {
		room := Room{
			ID:         strings.TrimSpace(input.ID),
			Name:       strings.TrimSpace(input.Name),
			Location:   strings.TrimSpace(input.Location),
			Capacity:   input.Capacity,
			Facilities: strings.TrimSpace(input.Facilities),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err = s.rooms.UpsertRoom(ctx, room); err != nil {
			err = fmt.Errorf("seed room %s: %w", room.ID, mapRoomRepoError(err))
			return
		}
	}
	return
}

func mapRoomRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, persistence.ErrDuplicate) {
		return ErrAlreadyExists
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("capacity", "capacity must be positive")
		return vErr
	}
	return err
}
