// Package sqlbuild renders the booking and room queries shared by the SQL
// stores. Both stores go through the same overlap predicate so admission and
// availability can never disagree on what a conflict is.
package sqlbuild

import (
	"errors"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"

	"github.com/example/room-booking/internal/persistence"
)

const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"

	TableRooms    = "rooms"
	TableBookings = "bookings"
	TableUsers    = "users"

	colID             = "id"
	colRoomID         = "room_id"
	colUserID         = "user_id"
	colTitle          = "title"
	colStartTime      = "start_time"
	colEndTime        = "end_time"
	colAttendeesCount = "attendees_count"
	colEquipment      = "equipment"
	colCreatedAt      = "created_at"
	colUpdatedAt      = "updated_at"
	colName           = "name"
	colLocation       = "location"
	colCapacity       = "capacity"
	colFacilities     = "facilities"
	colEmail          = "email"
	colPasswordHash   = "password_hash"
)

// ErrBuildingQuery wraps failures reported by the query builder.
var ErrBuildingQuery = errors.New("sqlbuild: building query failed")

// Statement is a rendered query with its positional arguments.
type Statement struct {
	SQL  string
	Args []any
}

// TimeEncoder converts a timestamp into the value the driver stores.
type TimeEncoder func(time.Time) any

// Builder renders statements for one SQL dialect.
type Builder struct {
	dialect  goqu.DialectWrapper
	name     string
	encodeTS TimeEncoder
}

// New returns a builder for the named goqu dialect. encode controls how
// timestamps are bound; nil binds them as UTC time.Time values.
func New(dialect string, encode TimeEncoder) Builder {
	if encode == nil {
		encode = func(t time.Time) any { return t.UTC() }
	}
	return Builder{dialect: goqu.Dialect(dialect), name: dialect, encodeTS: encode}
}

// Dialect returns the goqu dialect name.
func (b Builder) Dialect() string {
	return b.name
}

// BookingColumns lists the booking columns in scan order.
func BookingColumns() []any {
	return []any{colID, colRoomID, colUserID, colTitle, colStartTime, colEndTime,
		colAttendeesCount, colEquipment, colCreatedAt, colUpdatedAt}
}

// RoomColumns lists the room columns in scan order.
func RoomColumns() []any {
	return []any{colID, colName, colLocation, colCapacity, colFacilities, colCreatedAt, colUpdatedAt}
}

// UserColumns lists the user columns in scan order.
func UserColumns() []any {
	return []any{colID, colName, colEmail, colPasswordHash, colCreatedAt}
}

// Overlaps is the half-open overlap predicate against [start, end):
// start_time < end AND end_time > start.
func (b Builder) Overlaps(start, end time.Time) exp.ExpressionList {
	return goqu.And(
		goqu.C(colStartTime).Lt(b.encodeTS(end)),
		goqu.C(colEndTime).Gt(b.encodeTS(start)),
	)
}

func (b Builder) bookings() *goqu.SelectDataset {
	return b.dialect.From(TableBookings).Prepared(true).Select(BookingColumns()...)
}

func (b Builder) rooms() *goqu.SelectDataset {
	return b.dialect.From(TableRooms).Prepared(true).Select(RoomColumns()...)
}

func render(sql string, args []any, err error) (Statement, error) {
	if err != nil {
		return Statement{}, errors.Join(ErrBuildingQuery, err)
	}
	return Statement{SQL: sql, Args: args}, nil
}

// SelectOverlapping selects the room's bookings overlapping [start, end).
func (b Builder) SelectOverlapping(roomID string, start, end time.Time, excludeID string) (Statement, error) {
	where := []exp.Expression{goqu.C(colRoomID).Eq(roomID), b.Overlaps(start, end)}
	if excludeID != "" {
		where = append(where, goqu.C(colID).Neq(excludeID))
	}
	return render(b.bookings().
		Where(where...).
		Order(goqu.C(colStartTime).Asc(), goqu.C(colID).Asc()).
		ToSQL())
}

// SelectAvailableRooms selects rooms with no booking overlapping [start, end).
func (b Builder) SelectAvailableRooms(start, end time.Time) (Statement, error) {
	busy := b.dialect.From(TableBookings).
		Select(colRoomID).
		Where(b.Overlaps(start, end))
	return render(b.rooms().
		Where(goqu.C(colID).NotIn(busy)).
		Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()).
		ToSQL())
}

// SelectBookingsByRoom selects the room's bookings starting in [from, to).
func (b Builder) SelectBookingsByRoom(roomID string, from, to time.Time) (Statement, error) {
	return render(b.bookings().
		Where(
			goqu.C(colRoomID).Eq(roomID),
			goqu.C(colStartTime).Gte(b.encodeTS(from)),
			goqu.C(colStartTime).Lt(b.encodeTS(to)),
		).
		Order(goqu.C(colStartTime).Asc(), goqu.C(colID).Asc()).
		ToSQL())
}

// SelectBookingsByUser selects every booking owned by the user.
func (b Builder) SelectBookingsByUser(userID string) (Statement, error) {
	return render(b.bookings().
		Where(goqu.C(colUserID).Eq(userID)).
		Order(goqu.C(colStartTime).Asc(), goqu.C(colID).Asc()).
		ToSQL())
}

// SelectOwnedBooking selects a booking by id and owner.
func (b Builder) SelectOwnedBooking(id, userID string) (Statement, error) {
	return render(b.bookings().
		Where(goqu.C(colID).Eq(id), goqu.C(colUserID).Eq(userID)).
		ToSQL())
}

// InsertBooking inserts a new booking row.
func (b Builder) InsertBooking(booking persistence.Booking) (Statement, error) {
	return render(b.dialect.Insert(TableBookings).Prepared(true).
		Rows(goqu.Record{
			colID:             booking.ID,
			colRoomID:         booking.RoomID,
			colUserID:         booking.UserID,
			colTitle:          booking.Title,
			colStartTime:      b.encodeTS(booking.Start),
			colEndTime:        b.encodeTS(booking.End),
			colAttendeesCount: booking.AttendeesCount,
			colEquipment:      booking.Equipment,
			colCreatedAt:      b.encodeTS(booking.CreatedAt),
			colUpdatedAt:      b.encodeTS(booking.UpdatedAt),
		}).
		ToSQL())
}

// UpdateOwnedBooking updates a booking only when both id and owner match.
func (b Builder) UpdateOwnedBooking(id, userID string, changes persistence.BookingChanges) (Statement, error) {
	return render(b.dialect.Update(TableBookings).Prepared(true).
		Set(goqu.Record{
			colTitle:          changes.Title,
			colAttendeesCount: changes.AttendeesCount,
			colStartTime:      b.encodeTS(changes.Start),
			colEndTime:        b.encodeTS(changes.End),
			colEquipment:      changes.Equipment,
			colUpdatedAt:      b.encodeTS(changes.UpdatedAt),
		}).
		Where(goqu.C(colID).Eq(id), goqu.C(colUserID).Eq(userID)).
		ToSQL())
}

// DeleteOwnedBooking deletes a booking only when both id and owner match.
func (b Builder) DeleteOwnedBooking(id, userID string) (Statement, error) {
	return render(b.dialect.Delete(TableBookings).Prepared(true).
		Where(goqu.C(colID).Eq(id), goqu.C(colUserID).Eq(userID)).
		ToSQL())
}

// SelectRoom selects a room by id.
func (b Builder) SelectRoom(id string) (Statement, error) {
	return render(b.rooms().Where(goqu.C(colID).Eq(id)).ToSQL())
}

// SelectRoomForUpdate selects a room by id and locks its row until the
// transaction ends. Only dialects with row locks support it.
func (b Builder) SelectRoomForUpdate(id string) (Statement, error) {
	return render(b.rooms().Where(goqu.C(colID).Eq(id)).ForUpdate(exp.Wait).ToSQL())
}

// SelectRooms selects every room ordered by name.
func (b Builder) SelectRooms() (Statement, error) {
	return render(b.rooms().Order(goqu.C(colName).Asc(), goqu.C(colID).Asc()).ToSQL())
}

// UpsertRoom inserts a room or refreshes every mutable column of an existing one.
func (b Builder) UpsertRoom(room persistence.Room) (Statement, error) {
	return render(b.dialect.Insert(TableRooms).Prepared(true).
		Rows(goqu.Record{
			colID:         room.ID,
			colName:       room.Name,
			colLocation:   room.Location,
			colCapacity:   room.Capacity,
			colFacilities: room.Facilities,
			colCreatedAt:  b.encodeTS(room.CreatedAt),
			colUpdatedAt:  b.encodeTS(room.UpdatedAt),
		}).
		OnConflict(goqu.DoUpdate(colID, goqu.Record{
			colName:       goqu.L("EXCLUDED." + colName),
			colLocation:   goqu.L("EXCLUDED." + colLocation),
			colCapacity:   goqu.L("EXCLUDED." + colCapacity),
			colFacilities: goqu.L("EXCLUDED." + colFacilities),
			colUpdatedAt:  goqu.L("EXCLUDED." + colUpdatedAt),
		})).
		ToSQL())
}

// InsertUser inserts a new user row.
func (b Builder) InsertUser(user persistence.User) (Statement, error) {
	return render(b.dialect.Insert(TableUsers).Prepared(true).
		Rows(goqu.Record{
			colID:           user.ID,
			colName:         user.Name,
			colEmail:        user.Email,
			colPasswordHash: user.PasswordHash,
			colCreatedAt:    b.encodeTS(user.CreatedAt),
		}).
		ToSQL())
}

// SelectUserByID selects a user by id.
func (b Builder) SelectUserByID(id string) (Statement, error) {
	return b.selectUser(goqu.C(colID).Eq(id))
}

// SelectUserByEmail selects a user by their stored email.
func (b Builder) SelectUserByEmail(email string) (Statement, error) {
	return b.selectUser(goqu.C(colEmail).Eq(email))
}

func (b Builder) selectUser(where exp.Expression) (Statement, error) {
	return render(b.dialect.From(TableUsers).Prepared(true).
		Select(UserColumns()...).
		Where(where).
		ToSQL())
}
