package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// HealthChecker reports whether the backing store answers.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Users      *UserHandler
	Rooms      *RoomHandler
	Bookings   *BookingHandler
	Health     HealthChecker
	Logger     *slog.Logger
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	responder := newResponder(cfg.Logger)

	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Backend is up and running"))
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := cfg.Health.Ping(ctx); err != nil {
				responder.loggerFor(r.Context()).WarnContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if cfg.Users != nil {
		mux.HandleFunc("POST /api/users/signup", cfg.Users.Signup)
		mux.HandleFunc("POST /api/users/login", cfg.Users.Login)
	}

	if cfg.Rooms != nil {
		mux.HandleFunc("GET /api/rooms", cfg.Rooms.List)
	}

	if cfg.Bookings != nil {
		mux.HandleFunc("POST /api/bookings", cfg.Bookings.Create)
		mux.HandleFunc("PUT /api/bookings/{id}", cfg.Bookings.Update)
		mux.HandleFunc("DELETE /api/bookings/{id}", cfg.Bookings.Cancel)
		mux.HandleFunc("GET /api/bookings/availability", cfg.Bookings.Availability)
		mux.HandleFunc("GET /api/bookings/room/{id}/today", cfg.Bookings.RoomToday)
		mux.HandleFunc("GET /api/bookings/user/{id}", cfg.Bookings.ListByUser)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

type healthResponse struct {
	Status string `json:"status"`
}
