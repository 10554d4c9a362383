package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/scheduler"
)

type bookingService interface {
	ProposeBooking(ctx context.Context, params application.ProposeBookingParams) (application.Booking, error)
	CancelBooking(ctx context.Context, bookingID, userID string) error
	UpdateBooking(ctx context.Context, params application.UpdateBookingParams) error
	AuthorizeOwner(ctx context.Context, bookingID, userID string) error
	ListByUser(ctx context.Context, userID string) ([]application.Booking, error)
	TodayForRoom(ctx context.Context, roomID string) ([]application.Booking, error)
	ListAvailableRooms(ctx context.Context, start, end time.Time) ([]application.Room, error)
	Policy() scheduler.Policy
}

type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

func (h *BookingHandler) location() *time.Location {
	return h.service.Policy().Loc()
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationFailed, errBadRequestBody)
		return
	}

	start, end, fieldErrors := req.window(h.location())
	if fieldErrors != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors)
		return
	}

	logger := h.log(r.Context(), "Create", "room_id", req.RoomID, "user_id", req.UserID)
	booking, err := h.service.ProposeBooking(r.Context(), application.ProposeBookingParams{
		RoomID:         strings.TrimSpace(req.RoomID),
		UserID:         strings.TrimSpace(req.UserID),
		Title:          strings.TrimSpace(req.Title),
		Start:          start,
		End:            end,
		AttendeesCount: int(req.AttendeesCount),
		Equipment:      string(req.Equipment),
	})
	if err != nil {
		logger.InfoContext(r.Context(), "booking not admitted", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("booking_id", booking.ID).InfoContext(r.Context(), "booking admitted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, createBookingResponse{
		ID:      booking.ID,
		Message: "Booking successful",
	})
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := r.PathValue("id")

	// Shape errors are only reported to the owner; anyone else gets the
	// same refusal as for a foreign or missing booking.
	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		userID := strings.TrimSpace(r.URL.Query().Get("user"))
		if authErr := h.service.AuthorizeOwner(r.Context(), bookingID, userID); authErr != nil {
			h.responder.handleServiceError(r.Context(), w, authErr)
			return
		}
		h.log(r.Context(), "Update", "booking_id", bookingID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode booking update", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationFailed, errBadRequestBody)
		return
	}

	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		userID = strings.TrimSpace(r.URL.Query().Get("user"))
	}

	start, end, fieldErrors := req.window(h.location())
	if fieldErrors != nil {
		if authErr := h.service.AuthorizeOwner(r.Context(), bookingID, userID); authErr != nil {
			h.responder.handleServiceError(r.Context(), w, authErr)
			return
		}
		h.responder.handleServiceError(r.Context(), w, fieldErrors)
		return
	}

	logger := h.log(r.Context(), "Update", "booking_id", bookingID, "user_id", userID)
	err := h.service.UpdateBooking(r.Context(), application.UpdateBookingParams{
		BookingID:      bookingID,
		UserID:         userID,
		Title:          strings.TrimSpace(req.Title),
		AttendeesCount: int(req.AttendeesCount),
		Start:          start,
		End:            end,
		Equipment:      string(req.Equipment),
	})
	if err != nil {
		logger.InfoContext(r.Context(), "booking update refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: "Booking updated successfully"})
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	bookingID := r.PathValue("id")
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	logger := h.log(r.Context(), "Cancel", "booking_id", bookingID, "user_id", userID)

	if err := h.service.CancelBooking(r.Context(), bookingID, userID); err != nil {
		logger.InfoContext(r.Context(), "booking cancellation refused", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "booking cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, messageResponse{Message: "Booking cancelled"})
}

func (h *BookingHandler) RoomToday(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	roomID := r.PathValue("id")
	bookings, err := h.service.TodayForRoom(r.Context(), roomID)
	if err != nil {
		h.log(r.Context(), "RoomToday", "room_id", roomID).ErrorContext(r.Context(), "today listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	slots := make([]slotDTO, 0, len(bookings))
	for _, booking := range bookings {
		slots = append(slots, slotDTO{
			Title:     booking.Title,
			StartTime: formatTimestamp(booking.Start),
			EndTime:   formatTimestamp(booking.End),
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slots)
}

func (h *BookingHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := r.PathValue("id")
	bookings, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		h.log(r.Context(), "ListByUser", "user_id", userID).ErrorContext(r.Context(), "user listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	out := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		out = append(out, toBookingDTO(booking))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, out)
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	query := r.URL.Query()
	rawStart, rawEnd := strings.TrimSpace(query.Get("start")), strings.TrimSpace(query.Get("end"))
	if rawStart == "" || rawEnd == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, codeValidationFailed, errMissingRange)
		return
	}

	req := bookingRequest{StartTime: rawStart, EndTime: rawEnd}
	start, end, fieldErrors := req.window(h.location())
	if fieldErrors != nil {
		h.responder.handleServiceError(r.Context(), w, fieldErrors)
		return
	}

	rooms, err := h.service.ListAvailableRooms(r.Context(), start, end)
	if err != nil {
		h.log(r.Context(), "Availability").WarnContext(r.Context(), "availability query failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toRoomDTOs(rooms))
}

type bookingRequest struct {
	RoomID         string         `json:"room_id"`
	UserID         string         `json:"user_id"`
	Title          string         `json:"title"`
	StartTime      string         `json:"start_time"`
	EndTime        string         `json:"end_time"`
	AttendeesCount countField     `json:"attendees_count"`
	Equipment      equipmentField `json:"equipment"`
}

// window parses the request's timestamps. Malformed values come back as a
// ValidationError keyed by the JSON field name.
func (r bookingRequest) window(loc *time.Location) (time.Time, time.Time, *application.ValidationError) {
	fieldErrors := map[string]string{}
	start, err := parseTimestamp(r.StartTime, loc)
	if err != nil {
		fieldErrors["start_time"] = err.Error()
	}
	end, err := parseTimestamp(r.EndTime, loc)
	if err != nil {
		fieldErrors["end_time"] = err.Error()
	}
	if len(fieldErrors) > 0 {
		return time.Time{}, time.Time{}, &application.ValidationError{FieldErrors: fieldErrors}
	}
	return start, end, nil
}

type createBookingResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type slotDTO struct {
	Title     string `json:"title"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type bookingDTO struct {
	ID             string `json:"id"`
	RoomID         string `json:"room_id"`
	UserID         string `json:"user_id"`
	Title          string `json:"title"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	AttendeesCount int    `json:"attendees_count"`
	Equipment      string `json:"equipment"`
	CreatedAt      string `json:"created_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:             booking.ID,
		RoomID:         booking.RoomID,
		UserID:         booking.UserID,
		Title:          booking.Title,
		StartTime:      formatTimestamp(booking.Start),
		EndTime:        formatTimestamp(booking.End),
		AttendeesCount: booking.AttendeesCount,
		Equipment:      booking.Equipment,
		CreatedAt:      formatTimestamp(booking.CreatedAt),
	}
}
