package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/example/room-booking/internal/scheduler"
)

// Store drivers accepted in Config.Store.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "BOOKING_"

// Config captures the settings of the booking service.
type Config struct {
	HTTPPort        int
	ShutdownTimeout time.Duration

	Store       string
	SQLitePath  string
	PostgresDSN string

	Timezone           string
	Policy             scheduler.Policy
	RevalidateOnUpdate bool

	CORSOrigins []string
	LogLevel    slog.Level

	// OTLPEndpoint is a host:port receiving OTLP/gRPC traces and metrics.
	// Telemetry is not exported when it is empty.
	OTLPEndpoint string

	Rooms []RoomSeed
}

// RoomSeed is a room declared in the config file and upserted at startup.
type RoomSeed struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Location   string `yaml:"location"`
	Capacity   int    `yaml:"capacity"`
	Facilities string `yaml:"facilities"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPPort:        5000,
		ShutdownTimeout: 10 * time.Second,
		Store:           DriverSQLite,
		SQLitePath:      "booking.db",
		Policy:          scheduler.DefaultPolicy(),
		LogLevel:        slog.LevelInfo,
	}
}

// Options controls where Load looks for settings. Sources apply in order:
// defaults, the YAML file, the environment, then changed flags.
type Options struct {
	// DotEnvFiles are loaded into the process environment first. Missing
	// files are ignored; variables already set are never overwritten.
	DotEnvFiles []string
	// ConfigFile is a YAML file path. BOOKING_CONFIG is used when empty.
	ConfigFile string
	// Flags carries command-line overrides registered with RegisterFlags.
	Flags *Flags
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Load reads the configuration from the process environment only.
func Load() (Config, error) {
	return LoadWithOptions(Options{})
}

// LoadWithOptions layers the configured sources and validates the result.
// Every invalid key is reported in one error.
func LoadWithOptions(opts Options) (Config, error) {
	if len(opts.DotEnvFiles) > 0 {
		if err := loadDotEnv(opts.DotEnvFiles); err != nil {
			return Config{}, err
		}
	}
	getenv := opts.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	cfg := Default()

	path := strings.TrimSpace(opts.ConfigFile)
	if opts.Flags != nil && opts.Flags.ConfigFile != "" {
		path = opts.Flags.ConfigFile
	}
	if path == "" {
		path = strings.TrimSpace(getenv(EnvPrefix + "CONFIG"))
	}

	var invalid []string
	if path != "" {
		fileInvalid, err := applyFile(&cfg, path)
		if err != nil {
			return Config{}, err
		}
		invalid = append(invalid, fileInvalid...)
	}

	invalid = append(invalid, applyEnv(&cfg, getenv)...)
	if opts.Flags != nil {
		invalid = append(invalid, opts.Flags.apply(&cfg)...)
	}
	invalid = append(invalid, cfg.validate()...)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("config: invalid values: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

func loadDotEnv(files []string) error {
	for _, file := range files {
		if err := godotenv.Load(file); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("config: load %s: %w", file, err)
		}
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) []string {
	var invalid []string
	lookup := func(key string) string {
		return strings.TrimSpace(getenv(EnvPrefix + key))
	}

	port := lookup("HTTP_PORT")
	if port == "" {
		port = strings.TrimSpace(getenv("PORT"))
	}
	if port != "" {
		if n, err := strconv.Atoi(port); err != nil {
			invalid = append(invalid, EnvPrefix+"HTTP_PORT")
		} else {
			cfg.HTTPPort = n
		}
	}

	if v := lookup("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			invalid = append(invalid, EnvPrefix+"SHUTDOWN_TIMEOUT")
		} else {
			cfg.ShutdownTimeout = d
		}
	}

	if v := lookup("STORE"); v != "" {
		cfg.Store = strings.ToLower(v)
	}
	if v := lookup("SQLITE_PATH"); v != "" {
		cfg.SQLitePath = v
	}
	if v := lookup("POSTGRES_DSN"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := lookup("TIMEZONE"); v != "" {
		cfg.Timezone = v
	}

	if v := lookup("REVALIDATE_ON_UPDATE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, EnvPrefix+"REVALIDATE_ON_UPDATE")
		} else {
			cfg.RevalidateOnUpdate = b
		}
	}

	if v := lookup("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if v := lookup("OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}

	if v := lookup("LOG_LEVEL"); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			invalid = append(invalid, EnvPrefix+"LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	for key, target := range map[string]*int{
		"OPEN_HOUR":  &cfg.Policy.OpenHour,
		"CLOSE_HOUR": &cfg.Policy.CloseHour,
	} {
		if v := lookup(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				invalid = append(invalid, EnvPrefix+key)
				continue
			}
			*target = n
		}
	}
	for key, target := range map[string]*time.Duration{
		"MIN_DURATION": &cfg.Policy.MinDuration,
		"MAX_DURATION": &cfg.Policy.MaxDuration,
	} {
		if v := lookup(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				invalid = append(invalid, EnvPrefix+key)
				continue
			}
			*target = d
		}
	}

	return invalid
}

// validate checks cross-field constraints and resolves the timezone.
func (c *Config) validate() []string {
	var invalid []string

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "http_port")
	}

	switch c.Store {
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			invalid = append(invalid, "sqlite_path")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			invalid = append(invalid, "postgres_dsn")
		}
	case DriverMemory:
	default:
		invalid = append(invalid, "store")
	}

	c.Policy.Location = time.Local
	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			invalid = append(invalid, "timezone")
		} else {
			c.Policy.Location = loc
		}
	}
	if err := c.Policy.Validate(); err != nil {
		invalid = append(invalid, "policy ("+err.Error()+")")
	}

	seen := make(map[string]bool, len(c.Rooms))
	for i, room := range c.Rooms {
		id := strings.TrimSpace(room.ID)
		if id == "" || seen[id] || strings.TrimSpace(room.Name) == "" || room.Capacity <= 0 {
			invalid = append(invalid, fmt.Sprintf("rooms[%d]", i))
		}
		seen[id] = true
	}

	return invalid
}

// ParseLevel converts debug, info, warn or error into a slog level.
func ParseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: unknown log level %q", value)
	}
	return level, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
