package config

import (
	"github.com/spf13/pflag"
)

// Flags holds command-line overrides. Only flags the user actually set are
// applied, so defaults never mask the file or the environment.
type Flags struct {
	ConfigFile string

	fs          *pflag.FlagSet
	port        int
	store       string
	sqlitePath  string
	postgresDSN string
	timezone    string
	logLevel    string
	revalidate  bool
	corsOrigins []string
	otlp        string
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	f := &Flags{fs: fs}
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "path to a YAML config file (env "+EnvPrefix+"CONFIG)")
	fs.IntVarP(&f.port, "port", "p", 0, "HTTP listen port")
	fs.StringVar(&f.store, "store", "", "store driver: sqlite, postgres or memory")
	fs.StringVar(&f.sqlitePath, "sqlite-path", "", "SQLite database file")
	fs.StringVar(&f.postgresDSN, "postgres-dsn", "", "PostgreSQL connection string")
	fs.StringVar(&f.timezone, "timezone", "", "IANA timezone used for business hours and \"today\"")
	fs.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn or error")
	fs.BoolVar(&f.revalidate, "revalidate-on-update", false, "re-run admission rules when a booking is edited")
	fs.StringSliceVar(&f.corsOrigins, "cors-origin", nil, "allowed CORS origin (repeatable)")
	fs.StringVar(&f.otlp, "otlp-endpoint", "", "OTLP/gRPC collector address for traces and metrics")
	return f
}

func (f *Flags) apply(cfg *Config) []string {
	if f == nil || f.fs == nil {
		return nil
	}
	var invalid []string
	changed := f.fs.Changed

	if changed("port") {
		cfg.HTTPPort = f.port
	}
	if changed("store") {
		cfg.Store = f.store
	}
	if changed("sqlite-path") {
		cfg.SQLitePath = f.sqlitePath
	}
	if changed("postgres-dsn") {
		cfg.PostgresDSN = f.postgresDSN
	}
	if changed("timezone") {
		cfg.Timezone = f.timezone
	}
	if changed("log-level") {
		level, err := ParseLevel(f.logLevel)
		if err != nil {
			invalid = append(invalid, "--log-level")
		} else {
			cfg.LogLevel = level
		}
	}
	if changed("revalidate-on-update") {
		cfg.RevalidateOnUpdate = f.revalidate
	}
	if changed("cors-origin") {
		cfg.CORSOrigins = f.corsOrigins
	}
	if changed("otlp-endpoint") {
		cfg.OTLPEndpoint = f.otlp
	}
	return invalid
}
