package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/example/room-booking/internal/persistence"
	"github.com/example/room-booking/internal/scheduler"
)

// BookingTx is the view of the store available while a room is locked.
type BookingTx interface {
	Room() Room
	ListOverlapping(ctx context.Context, start, end time.Time, excludeID string) ([]Booking, error)
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error
}

// BookingRepository captures the persistence operations needed by the booking service.
type BookingRepository interface {
	// WithRoomLock runs fn while holding the room's serialization point.
	// A missing room is reported as persistence.ErrNotFound.
	WithRoomLock(ctx context.Context, roomID string, fn func(tx BookingTx) error) error
	GetOwnedBooking(ctx context.Context, id, userID string) (Booking, error)
	UpdateOwnedBooking(ctx context.Context, id, userID string, changes BookingChanges) error
	DeleteOwnedBooking(ctx context.Context, id, userID string) error
	ListBookingsByUser(ctx context.Context, userID string) ([]Booking, error)
	ListBookingsByRoom(ctx context.Context, roomID string, from, to time.Time) ([]Booking, error)
}

// BookingServiceConfig holds the optional collaborators of BookingService.
type BookingServiceConfig struct {
	Policy scheduler.Policy
	// RevalidateOnUpdate re-runs the admission rules when a booking is edited.
	RevalidateOnUpdate bool
	Logger             *slog.Logger
	TracerProvider     trace.TracerProvider
	MeterProvider      metric.MeterProvider
}

// BookingService admits, mutates and queries bookings.
type BookingService struct {
	bookings    BookingRepository
	rooms       RoomRepository
	idGenerator func() string
	now         func() time.Time
	policy      scheduler.Policy
	revalidate  bool
	logger      *slog.Logger
	telemetry   telemetry
}

// NewBookingService constructs a booking service. A zero Policy in config
// falls back to scheduler.DefaultPolicy.
func NewBookingService(bookings BookingRepository, rooms RoomRepository, idGenerator func() string, now func() time.Time, config BookingServiceConfig) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	policy := config.Policy
	if policy == (scheduler.Policy{}) {
		policy = scheduler.DefaultPolicy()
	}
	return &BookingService{
		bookings:    bookings,
		rooms:       rooms,
		idGenerator: idGenerator,
		now:         now,
		policy:      policy,
		revalidate:  config.RevalidateOnUpdate,
		logger:      defaultLogger(config.Logger),
		telemetry:   newTelemetry(config.TracerProvider, config.MeterProvider),
	}
}

// Policy returns the scheduling policy in effect.
func (s *BookingService) Policy() scheduler.Policy {
	return s.policy
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// ProposeBooking runs the admission rules and persists the booking when every rule passes.
// Rule failures are returned as *scheduler.RuleViolation.
func (s *BookingService) ProposeBooking(ctx context.Context, params ProposeBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	ctx, span := s.telemetry.start(ctx, "BookingService.ProposeBooking",
		attribute.String("room.id", params.RoomID),
		attribute.Int("booking.attendees", params.AttendeesCount),
	)
	logger := s.loggerWith(ctx, "ProposeBooking",
		"room_id", params.RoomID,
		"user_id", params.UserID,
		"attendees", params.AttendeesCount,
	)
	defer func() {
		s.telemetry.finish(ctx, span, "propose", err)
		s.logOutcome(ctx, logger, err, "booking rejected", "failed to propose booking")
		if err == nil {
			logger.With("booking_id", booking.ID).InfoContext(ctx, "booking accepted")
		}
	}()

	vErr := validateProposal(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	window := scheduler.Interval{Start: params.Start, End: params.End}
	if err = s.policy.CheckWindow(window, now); err != nil {
		return
	}

	candidate := Booking{
		ID:             s.idGenerator(),
		RoomID:         params.RoomID,
		UserID:         params.UserID,
		Title:          strings.TrimSpace(params.Title),
		Start:          params.Start,
		End:            params.End,
		AttendeesCount: params.AttendeesCount,
		Equipment:      strings.TrimSpace(params.Equipment),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.bookings.WithRoomLock(ctx, params.RoomID, func(tx BookingTx) error {
		if err := s.checkCapacity(ctx, tx, window, params.AttendeesCount, ""); err != nil {
			return err
		}
		return tx.CreateBooking(ctx, candidate)
	})
	if err != nil {
		err = mapAdmissionError(err)
		return
	}

	booking = candidate
	return
}

// CancelBooking deletes the booking when userID owns it. Missing and foreign
// bookings both yield ErrUnauthorized.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID, userID string) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	ctx, span := s.telemetry.start(ctx, "BookingService.CancelBooking",
		attribute.String("booking.id", bookingID),
	)
	logger := s.loggerWith(ctx, "CancelBooking",
		"booking_id", bookingID,
		"user_id", userID,
	)
	defer func() {
		s.telemetry.finish(ctx, span, "cancel", err)
		s.logOutcome(ctx, logger, err, "cancellation refused", "failed to cancel booking")
		if err == nil {
			logger.InfoContext(ctx, "booking cancelled")
		}
	}()

	if strings.TrimSpace(bookingID) == "" || strings.TrimSpace(userID) == "" {
		err = ErrUnauthorized
		return
	}

	err = mapOwnedBookingError(s.bookings.DeleteOwnedBooking(ctx, bookingID, userID))
	return
}

// UpdateBooking rewrites the owner-editable fields of a booking. Unless the
// service was configured to revalidate, the admission rules are not re-run.
func (s *BookingService) UpdateBooking(ctx context.Context, params UpdateBookingParams) (err error) {
	if s == nil {
		return fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}

	ctx, span := s.telemetry.start(ctx, "BookingService.UpdateBooking",
		attribute.String("booking.id", params.BookingID),
		attribute.Bool("booking.revalidate", s.revalidate),
	)
	logger := s.loggerWith(ctx, "UpdateBooking",
		"booking_id", params.BookingID,
		"user_id", params.UserID,
		"revalidate", s.revalidate,
	)
	defer func() {
		s.telemetry.finish(ctx, span, "update", err)
		s.logOutcome(ctx, logger, err, "update refused", "failed to update booking")
		if err == nil {
			logger.InfoContext(ctx, "booking updated")
		}
	}()

	if strings.TrimSpace(params.BookingID) == "" || strings.TrimSpace(params.UserID) == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateUpdate(params)
	if vErr.HasErrors() {
		if err = s.AuthorizeOwner(ctx, params.BookingID, params.UserID); err != nil {
			return
		}
		err = vErr
		return
	}

	now := s.now()
	changes := BookingChanges{
		Title:          strings.TrimSpace(params.Title),
		AttendeesCount: params.AttendeesCount,
		Start:          params.Start,
		End:            params.End,
		Equipment:      strings.TrimSpace(params.Equipment),
		UpdatedAt:      now,
	}

	if !s.revalidate {
		err = mapOwnedBookingError(s.bookings.UpdateOwnedBooking(ctx, params.BookingID, params.UserID, changes))
		return
	}

	var existing Booking
	existing, err = s.bookings.GetOwnedBooking(ctx, params.BookingID, params.UserID)
	if err != nil {
		err = mapOwnedBookingError(err)
		return
	}

	window := scheduler.Interval{Start: params.Start, End: params.End}
	if err = s.policy.CheckWindow(window, now); err != nil {
		return
	}

	err = s.bookings.WithRoomLock(ctx, existing.RoomID, func(tx BookingTx) error {
		if err := s.checkCapacity(ctx, tx, window, params.AttendeesCount, existing.ID); err != nil {
			return err
		}
		return mapOwnedBookingError(tx.UpdateOwnedBooking(ctx, existing.ID, params.UserID, changes))
	})
	if err != nil {
		err = mapOwnedBookingError(err)
	}
	return
}

// AuthorizeOwner reports ErrUnauthorized unless userID owns bookingID. A
// missing booking is reported the same way.
func (s *BookingService) AuthorizeOwner(ctx context.Context, bookingID, userID string) error {
	if s == nil || s.bookings == nil {
		return fmt.Errorf("booking repository not configured")
	}
	if strings.TrimSpace(bookingID) == "" || strings.TrimSpace(userID) == "" {
		return ErrUnauthorized
	}
	_, err := s.bookings.GetOwnedBooking(ctx, bookingID, userID)
	return mapOwnedBookingError(err)
}

// ListByUser returns the user's bookings ordered by start time.
func (s *BookingService) ListByUser(ctx context.Context, userID string) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListByUser", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "bookings listed", "count", len(bookings))
	}()

	bookings, err = s.bookings.ListBookingsByUser(ctx, userID)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	return
}

// ListByRoomForDay returns the room's bookings starting on the calendar day of day.
func (s *BookingService) ListByRoomForDay(ctx context.Context, roomID string, day time.Time) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	dayWindow := s.policy.DayWindow(day)
	logger := s.loggerWith(ctx, "ListByRoomForDay",
		"room_id", roomID,
		"day", dayWindow.Start.Format(time.DateOnly),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list room bookings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "room bookings listed", "count", len(bookings))
	}()

	bookings, err = s.bookings.ListBookingsByRoom(ctx, roomID, dayWindow.Start, dayWindow.End)
	if err != nil {
		err = mapBookingRepoError(err)
		return
	}
	if bookings == nil {
		bookings = []Booking{}
	}
	return
}

// TodayForRoom lists the room's bookings for the current day.
func (s *BookingService) TodayForRoom(ctx context.Context, roomID string) ([]Booking, error) {
	if s == nil {
		return nil, fmt.Errorf("BookingService is nil")
	}
	return s.ListByRoomForDay(ctx, roomID, s.now())
}

// ListAvailableRooms returns the rooms with no booking overlapping [start, end).
func (s *BookingService) ListAvailableRooms(ctx context.Context, start, end time.Time) (rooms []Room, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.rooms == nil {
		err = fmt.Errorf("room repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "ListAvailableRooms",
		"start", start,
		"end", end,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list available rooms", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.DebugContext(ctx, "available rooms listed", "count", len(rooms))
	}()

	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
	}
	if !start.IsZero() && !end.IsZero() && !start.Before(end) {
		vErr.add("end", "end must be after start")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	rooms, err = s.rooms.ListAvailableRooms(ctx, start, end)
	if err != nil {
		err = mapRoomRepoError(err)
		return
	}
	if rooms == nil {
		rooms = []Room{}
	}
	return
}

// checkCapacity sums the attendees of overlapping bookings and applies the capacity rule.
func (s *BookingService) checkCapacity(ctx context.Context, tx BookingTx, window scheduler.Interval, requested int, excludeID string) error {
	overlapping, err := tx.ListOverlapping(ctx, window.Start, window.End, excludeID)
	if err != nil {
		return err
	}
	already := scheduler.Demand(toReservations(overlapping), window, excludeID)
	return scheduler.CheckCapacity(tx.Room().Capacity, already, requested)
}

func (s *BookingService) logOutcome(ctx context.Context, logger *slog.Logger, err error, rejected, failed string) {
	if err == nil {
		return
	}
	if isExpected(err) {
		logger.InfoContext(ctx, rejected, "error", err, "error_kind", ErrorKind(err))
		return
	}
	logger.ErrorContext(ctx, failed, "error", err, "error_kind", ErrorKind(err))
}

func validateProposal(params ProposeBookingParams) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(params.RoomID) == "" {
		vErr.add("room_id", "room_id is required")
	}
	if strings.TrimSpace(params.UserID) == "" {
		vErr.add("user_id", "user_id is required")
	}
	if params.Start.IsZero() {
		vErr.add("start_time", "start_time is required")
	}
	if params.End.IsZero() {
		vErr.add("end_time", "end_time is required")
	}
	if params.AttendeesCount < 1 {
		vErr.add("attendees_count", "attendees_count must be at least 1")
	}
	return vErr
}

func validateUpdate(params UpdateBookingParams) *ValidationError {
	vErr := &ValidationError{}
	if params.Start.IsZero() {
		vErr.add("start_time", "start_time is required")
	}
	if params.End.IsZero() {
		vErr.add("end_time", "end_time is required")
	}
	if !params.Start.IsZero() && !params.End.IsZero() && !params.Start.Before(params.End) {
		vErr.add("end_time", "end_time must be after start_time")
	}
	if params.AttendeesCount < 1 {
		vErr.add("attendees_count", "attendees_count must be at least 1")
	}
	return vErr
}

func toReservations(bookings []Booking) []scheduler.Reservation {
	reservations := make([]scheduler.Reservation, 0, len(bookings))
	for _, b := range bookings {
		reservations = append(reservations, scheduler.Reservation{
			ID:        b.ID,
			RoomID:    b.RoomID,
			Window:    scheduler.Interval{Start: b.Start, End: b.End},
			Attendees: b.AttendeesCount,
		})
	}
	return reservations
}

// mapAdmissionError converts store errors raised while admitting a booking.
// The room lock reports a missing room as not found.
func mapAdmissionError(err error) error {
	if err == nil {
		return nil
	}
	var violation *scheduler.RuleViolation
	if errors.As(err, &violation) {
		return err
	}
	if errors.Is(err, persistence.ErrNotFound) {
		return &scheduler.RuleViolation{Reason: scheduler.ReasonRoomNotFound}
	}
	return mapBookingRepoError(err)
}

// mapOwnedBookingError folds "no such booking for this owner" into ErrUnauthorized.
func mapOwnedBookingError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, persistence.ErrNotFound) || errors.Is(err, ErrNotFound) {
		return ErrUnauthorized
	}
	return mapBookingRepoError(err)
}

func mapBookingRepoError(err error) error {
	if err == nil {
		return nil
	}
	var violation *scheduler.RuleViolation
	if errors.As(err, &violation) {
		return err
	}
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return err
	}
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"booking": "violates a storage constraint"}}
	}
	return err
}
