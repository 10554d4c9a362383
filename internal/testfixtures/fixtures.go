package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence"
)

var (
	userCounter    uint64
	roomCounter    uint64
	bookingCounter uint64
)

// referenceTime sits before opening hours so every business-hour slot of the
// day is still in the future.
var referenceTime = time.Date(2024, time.March, 14, 8, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceAt returns hour:minute on the reference day.
func ReferenceAt(hour, minute int) time.Time {
	y, m, d := referenceTime.Date()
	return time.Date(y, m, d, hour, minute, 0, 0, referenceTime.Location())
}

// ----------------------------- User fixtures -----------------------------

// UserFixture represents a deterministic user record that can be materialised
// for application or persistence tests.
type UserFixture struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// UserOption configures the generated user fixture.
type UserOption func(*UserFixture)

// NewUserFixture returns a deterministic user fixture with optional overrides.
func NewUserFixture(opts ...UserOption) UserFixture {
	idx := atomic.AddUint64(&userCounter, 1)
	id := fmt.Sprintf("user-%03d", idx)
	fixture := UserFixture{
		ID:           id,
		Name:         fmt.Sprintf("User %03d", idx),
		Email:        fmt.Sprintf("%s@example.com", id),
		PasswordHash: fmt.Sprintf("hash-%03d", idx),
		CreatedAt:    referenceTime.Add(time.Duration(idx) * time.Minute),
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(f *UserFixture) {
		f.ID = id
	}
}

// WithUserEmail overrides the generated email address.
func WithUserEmail(email string) UserOption {
	return func(f *UserFixture) {
		f.Email = email
	}
}

// WithUserName overrides the generated name.
func WithUserName(name string) UserOption {
	return func(f *UserFixture) {
		f.Name = name
	}
}

// WithUserPasswordHash overrides the stored password hash.
func WithUserPasswordHash(hash string) UserOption {
	return func(f *UserFixture) {
		f.PasswordHash = hash
	}
}

// Application returns the fixture as an application.User value.
func (f UserFixture) Application() application.User {
	return application.User{
		ID:        f.ID,
		Name:      f.Name,
		Email:     f.Email,
		CreatedAt: f.CreatedAt,
	}
}

// Credentials returns the fixture as application.UserCredentials.
func (f UserFixture) Credentials() application.UserCredentials {
	return application.UserCredentials{
		User:         f.Application(),
		PasswordHash: f.PasswordHash,
	}
}

// Persistence returns the fixture as a persistence.User value.
func (f UserFixture) Persistence() persistence.User {
	return persistence.User{
		ID:           f.ID,
		Name:         f.Name,
		Email:        f.Email,
		PasswordHash: f.PasswordHash,
		CreatedAt:    f.CreatedAt,
	}
}

// ----------------------------- Room fixtures -----------------------------

// RoomFixture represents a deterministic meeting room record.
type RoomFixture struct {
	ID         string
	Name       string
	Location   string
	Capacity   int
	Facilities string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RoomOption configures the generated room fixture.
type RoomOption func(*RoomFixture)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) RoomFixture {
	idx := atomic.AddUint64(&roomCounter, 1)
	id := fmt.Sprintf("room-%03d", idx)
	created := referenceTime.Add(-time.Duration(idx) * time.Hour)
	fixture := RoomFixture{
		ID:        id,
		Name:      fmt.Sprintf("Room %03d", idx),
		Location:  "Main Office",
		Capacity:  10,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(f *RoomFixture) {
		f.ID = id
	}
}

// WithRoomName overrides the generated room name.
func WithRoomName(name string) RoomOption {
	return func(f *RoomFixture) {
		f.Name = name
	}
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(f *RoomFixture) {
		f.Capacity = capacity
	}
}

// WithRoomFacilities sets the facilities description on the fixture.
func WithRoomFacilities(facilities string) RoomOption {
	return func(f *RoomFixture) {
		f.Facilities = facilities
	}
}

// Application returns the fixture as an application.Room value.
func (f RoomFixture) Application() application.Room {
	return application.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: f.Facilities,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Room value.
func (f RoomFixture) Persistence() persistence.Room {
	return persistence.Room{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: f.Facilities,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	}
}

// Input returns the fixture as an application.RoomInput.
func (f RoomFixture) Input() application.RoomInput {
	return application.RoomInput{
		ID:         f.ID,
		Name:       f.Name,
		Location:   f.Location,
		Capacity:   f.Capacity,
		Facilities: f.Facilities,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture represents a deterministic booking. The default window is
// 10:00-11:00 on the reference day.
type BookingFixture struct {
	ID             string
	RoomID         string
	UserID         string
	Title          string
	Start          time.Time
	End            time.Time
	AttendeesCount int
	Equipment      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional overrides.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	fixture := BookingFixture{
		ID:             fmt.Sprintf("booking-%03d", idx),
		RoomID:         "room-001",
		UserID:         "user-001",
		Title:          fmt.Sprintf("Meeting %03d", idx),
		Start:          ReferenceAt(10, 0),
		End:            ReferenceAt(11, 0),
		AttendeesCount: 2,
		CreatedAt:      referenceTime,
		UpdatedAt:      referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingRoom sets the booked room.
func WithBookingRoom(roomID string) BookingOption {
	return func(f *BookingFixture) {
		f.RoomID = roomID
	}
}

// WithBookingOwner sets the owning user.
func WithBookingOwner(userID string) BookingOption {
	return func(f *BookingFixture) {
		f.UserID = userID
	}
}

// WithBookingWindow sets start and end.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// WithBookingAttendees sets the attendee count.
func WithBookingAttendees(count int) BookingOption {
	return func(f *BookingFixture) {
		f.AttendeesCount = count
	}
}

// WithBookingEquipment sets the equipment note.
func WithBookingEquipment(equipment string) BookingOption {
	return func(f *BookingFixture) {
		f.Equipment = equipment
	}
}

// Application returns the fixture as an application.Booking value.
func (f BookingFixture) Application() application.Booking {
	return application.Booking{
		ID:             f.ID,
		RoomID:         f.RoomID,
		UserID:         f.UserID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		AttendeesCount: f.AttendeesCount,
		Equipment:      f.Equipment,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Persistence returns the fixture as a persistence.Booking value.
func (f BookingFixture) Persistence() persistence.Booking {
	return persistence.Booking{
		ID:             f.ID,
		RoomID:         f.RoomID,
		UserID:         f.UserID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		AttendeesCount: f.AttendeesCount,
		Equipment:      f.Equipment,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Proposal returns the fixture as an admission request.
func (f BookingFixture) Proposal() application.ProposeBookingParams {
	return application.ProposeBookingParams{
		RoomID:         f.RoomID,
		UserID:         f.UserID,
		Title:          f.Title,
		Start:          f.Start,
		End:            f.End,
		AttendeesCount: f.AttendeesCount,
		Equipment:      f.Equipment,
	}
}

// Changes returns the fixture's editable fields.
func (f BookingFixture) Changes() persistence.BookingChanges {
	return persistence.BookingChanges{
		Title:          f.Title,
		AttendeesCount: f.AttendeesCount,
		Start:          f.Start,
		End:            f.End,
		Equipment:      f.Equipment,
		UpdatedAt:      f.UpdatedAt,
	}
}
