package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/example/room-booking/internal/adapters"
	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/config"
	httptransport "github.com/example/room-booking/internal/http"
	"github.com/example/room-booking/internal/logging"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/persistence/postgres"
	"github.com/example/room-booking/internal/persistence/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "bookingd:", err)
		os.Exit(1)
	}
}

// store is the lifecycle view of a persistence backend.
type store interface {
	adapters.Store
	Migrate(ctx context.Context) error
	Close() error
}

type options struct {
	flags       *config.Flags
	migrateOnly bool
	logFormat   string
	envFile     string
}

func parseArgs(args []string) (options, error) {
	fs := pflag.NewFlagSet("bookingd", pflag.ContinueOnError)
	opts := options{flags: config.RegisterFlags(fs)}
	fs.BoolVar(&opts.migrateOnly, "migrate-only", false, "apply schema migrations and exit")
	fs.StringVar(&opts.logFormat, "log-format", string(logging.FormatJSON), "log output format: json or text")
	fs.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseArgs(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.LoadWithOptions(config.Options{
		DotEnvFiles: []string{opts.envFile},
		Flags:       opts.flags,
	})
	if err != nil {
		return err
	}

	logger := logging.New(stdout, logging.Format(opts.logFormat), cfg.LogLevel)
	slog.SetDefault(logger)

	providers, err := setupTelemetry(ctx, cfg.OTLPEndpoint, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if terr := providers.Shutdown(shutdownCtx); terr != nil {
			logger.Warn("failed to flush telemetry", "error", terr)
		}
	}()

	storage, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := storage.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := runDatabaseMigrations(ctx, storage, cfg.Store, logger); err != nil {
		return err
	}
	if opts.migrateOnly {
		return nil
	}

	handler, err := newHandler(ctx, cfg, storage, time.Now, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return serve(ctx, server, cfg.ShutdownTimeout, logger)
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Store {
	case config.DriverSQLite:
		storage, err := sqlite.Open(sqlite.DefaultConfig(cfg.SQLitePath), logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return storage, nil
	case config.DriverPostgres:
		storage, err := postgres.Open(ctx, postgres.DefaultConfig(cfg.PostgresDSN), logger)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return storage, nil
	case config.DriverMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		return memory.Open(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store)
	}
}

// newHandler wires services over storage, seeds the configured rooms and
// returns the HTTP handler with its middleware chain. Services report spans
// and decision counts to the global otel providers.
func newHandler(ctx context.Context, cfg config.Config, storage adapters.Store, now func() time.Time, logger *slog.Logger) (http.Handler, error) {
	repos := adapters.NewRepositories(storage)
	idGenerator := uuid.NewString

	roomService := application.NewRoomServiceWithLogger(repos.Rooms, now, logger)
	userService := application.NewUserServiceWithLogger(repos.Users, idGenerator, now, logger)
	bookingService := application.NewBookingService(repos.Bookings, repos.Rooms, idGenerator, now, application.BookingServiceConfig{
		Policy:             cfg.Policy,
		RevalidateOnUpdate: cfg.RevalidateOnUpdate,
		Logger:             logger,
	})

	if len(cfg.Rooms) > 0 {
		if err := roomService.SeedRooms(ctx, toRoomInputs(cfg.Rooms)); err != nil {
			return nil, fmt.Errorf("seed rooms: %w", err)
		}
	}

	return httptransport.NewRouter(httptransport.RouterConfig{
		Users:    httptransport.NewUserHandler(userService, logger),
		Rooms:    httptransport.NewRoomHandler(roomService, logger),
		Bookings: httptransport.NewBookingHandler(bookingService, logger),
		Health:   storage,
		Logger:   logger,
		Middleware: []func(http.Handler) http.Handler{
			httptransport.CORS(httptransport.CORSConfig{AllowedOrigins: cfg.CORSOrigins}),
			httptransport.RequestLogger(logger),
		},
	}), nil
}

func toRoomInputs(seeds []config.RoomSeed) []application.RoomInput {
	inputs := make([]application.RoomInput, 0, len(seeds))
	for _, seed := range seeds {
		inputs = append(inputs, application.RoomInput{
			ID:         seed.ID,
			Name:       seed.Name,
			Location:   seed.Location,
			Capacity:   seed.Capacity,
			Facilities: seed.Facilities,
		})
	}
	return inputs
}

func serve(ctx context.Context, server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("booking API listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", shutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}
