package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/room-booking/internal/adapters"
	"github.com/example/room-booking/internal/application"
	"github.com/example/room-booking/internal/persistence/memory"
	"github.com/example/room-booking/internal/scheduler"
)

// FastArgon2idParams keeps password hashing cheap in tests.
var FastArgon2idParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  8,
	KeyLength:   16,
}

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Policy      scheduler.Policy
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults. The default
// policy is the standard one evaluated in UTC, matching ReferenceTime.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	policy := scheduler.DefaultPolicy()
	policy.Location = time.UTC

	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Policy:      policy,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithPolicy overrides the scheduling policy.
func WithPolicy(policy scheduler.Policy) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Policy = policy
	}
}

// WithLogger sets the logger handed to every service.
func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Logger = logger
	}
}

// Services bundles the application services over one store.
type Services struct {
	Store    adapters.Store
	Bookings *application.BookingService
	Rooms    *application.RoomService
	Users    *application.UserService
}

// NewServices wires every service to store. Policy and Logger in config
// default to the factory's.
func (f *ServiceFactory) NewServices(store adapters.Store, config application.BookingServiceConfig) Services {
	if config.Policy == (scheduler.Policy{}) {
		config.Policy = f.Policy
	}
	if config.Logger == nil {
		config.Logger = f.Logger
	}

	repos := adapters.NewRepositories(store)
	now := f.Clock.NowFunc()
	return Services{
		Store:    store,
		Bookings: application.NewBookingService(repos.Bookings, repos.Rooms, f.IDGenerator.NextFunc(), now, config),
		Rooms:    application.NewRoomServiceWithLogger(repos.Rooms, now, f.Logger),
		Users: application.NewUserServiceWithLogger(repos.Users, f.IDGenerator.NextFunc(), now, f.Logger).
			WithPasswordParams(FastArgon2idParams),
	}
}

// NewMemoryServices wires every service to a fresh in-memory store.
func (f *ServiceFactory) NewMemoryServices(config application.BookingServiceConfig) Services {
	return f.NewServices(memory.Open(), config)
}
