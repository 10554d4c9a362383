package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout. Pointers distinguish absent keys from
// zero values so the file only overrides what it names.
type fileConfig struct {
	HTTPPort        *int           `yaml:"http_port"`
	ShutdownTimeout *time.Duration `yaml:"shutdown_timeout"`

	Store *struct {
		Driver      *string `yaml:"driver"`
		SQLitePath  *string `yaml:"sqlite_path"`
		PostgresDSN *string `yaml:"postgres_dsn"`
	} `yaml:"store"`

	Timezone           *string  `yaml:"timezone"`
	RevalidateOnUpdate *bool    `yaml:"revalidate_on_update"`
	CORSOrigins        []string `yaml:"cors_origins"`
	LogLevel           *string  `yaml:"log_level"`
	OTLPEndpoint       *string  `yaml:"otlp_endpoint"`

	Policy *struct {
		OpenHour    *int           `yaml:"open_hour"`
		CloseHour   *int           `yaml:"close_hour"`
		MinDuration *time.Duration `yaml:"min_duration"`
		MaxDuration *time.Duration `yaml:"max_duration"`
	} `yaml:"policy"`

	Rooms []RoomSeed `yaml:"rooms"`
}

// applyFile overlays the YAML file at path onto cfg. Unknown keys are an
// error so typos do not pass silently.
func applyFile(cfg *Config, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fc.apply(cfg), nil
}

func (fc fileConfig) apply(cfg *Config) []string {
	var invalid []string

	if fc.HTTPPort != nil {
		cfg.HTTPPort = *fc.HTTPPort
	}
	if fc.ShutdownTimeout != nil {
		cfg.ShutdownTimeout = *fc.ShutdownTimeout
	}
	if fc.Store != nil {
		if fc.Store.Driver != nil {
			cfg.Store = strings.ToLower(strings.TrimSpace(*fc.Store.Driver))
		}
		if fc.Store.SQLitePath != nil {
			cfg.SQLitePath = *fc.Store.SQLitePath
		}
		if fc.Store.PostgresDSN != nil {
			cfg.PostgresDSN = *fc.Store.PostgresDSN
		}
	}
	if fc.Timezone != nil {
		cfg.Timezone = *fc.Timezone
	}
	if fc.RevalidateOnUpdate != nil {
		cfg.RevalidateOnUpdate = *fc.RevalidateOnUpdate
	}
	if fc.CORSOrigins != nil {
		cfg.CORSOrigins = fc.CORSOrigins
	}
	if fc.OTLPEndpoint != nil {
		cfg.OTLPEndpoint = strings.TrimSpace(*fc.OTLPEndpoint)
	}
	if fc.LogLevel != nil {
		level, err := ParseLevel(*fc.LogLevel)
		if err != nil {
			invalid = append(invalid, "log_level")
		} else {
			cfg.LogLevel = level
		}
	}
	if p := fc.Policy; p != nil {
		if p.OpenHour != nil {
			cfg.Policy.OpenHour = *p.OpenHour
		}
		if p.CloseHour != nil {
			cfg.Policy.CloseHour = *p.CloseHour
		}
		if p.MinDuration != nil {
			cfg.Policy.MinDuration = *p.MinDuration
		}
		if p.MaxDuration != nil {
			cfg.Policy.MaxDuration = *p.MaxDuration
		}
	}
	if fc.Rooms != nil {
		cfg.Rooms = fc.Rooms
	}

	return invalid
}
