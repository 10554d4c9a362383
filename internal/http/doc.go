// Package http exposes the booking services as a JSON API.
//
// The router serves the following endpoints:
//   - POST /api/users/signup, POST /api/users/login: account creation and
//     credential checks exchanging the `userDTO` payload from user_handler.go.
//   - GET /api/rooms: the room directory as a list of `roomDTO`.
//   - POST /api/bookings: admits a booking after the scheduling rules pass.
//     Rejections carry the rule in `error_code`.
//   - PUT /api/bookings/{id}, DELETE /api/bookings/{id}?user={uid}: owner
//     scoped mutation. A missing booking and a foreign booking both answer 403.
//   - GET /api/bookings/room/{id}/today, GET /api/bookings/user/{id},
//     GET /api/bookings/availability?start=&end=: read-only queries.
//   - GET / and GET /healthz: liveness and store readiness.
//
// Timestamps are accepted as RFC 3339 or as local wall-clock values
// ("2006-01-02T15:04" or "2006-01-02 15:04", seconds optional) interpreted in
// the booking policy's location. Responses always use RFC 3339.
package http
