package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures configuration values for the session scheduler service.
type Config struct {
	HTTPPort        int
	SQLiteDSN       string
	ReconcilePeriod time.Duration
	Lookahead       time.Duration
}

// fileConfig mirrors the optional YAML configuration file. Durations are
// plain strings in the file ("5m", "1h") and parsed during load.
type fileConfig struct {
	HTTPPort        int    `yaml:"http_port"`
	SQLiteDSN       string `yaml:"sqlite_dsn"`
	ReconcilePeriod string `yaml:"reconcile_period"`
	Lookahead       string `yaml:"lookahead"`
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and finally SESSIOND_* environment variables, in that precedence
// order. Invalid values are reported by name.
func Load(path string) (Config, error) {
	cfg := Config{
		HTTPPort:        8080,
		SQLiteDSN:       "file:sessions.db",
		ReconcilePeriod: 5 * time.Minute,
		Lookahead:       60 * time.Minute,
	}

	invalid := make([]string, 0, 2)

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var file fileConfig
		if err := yaml.Unmarshal(raw, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
		if file.HTTPPort != 0 {
			if file.HTTPPort < 0 {
				invalid = append(invalid, "http_port")
			} else {
				cfg.HTTPPort = file.HTTPPort
			}
		}
		if file.SQLiteDSN != "" {
			cfg.SQLiteDSN = file.SQLiteDSN
		}
		applyDuration(&cfg.ReconcilePeriod, file.ReconcilePeriod, "reconcile_period", &invalid)
		applyDuration(&cfg.Lookahead, file.Lookahead, "lookahead", &invalid)
	}

	if portValue := strings.TrimSpace(os.Getenv("SESSIOND_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "SESSIOND_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("SESSIOND_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	applyDuration(&cfg.ReconcilePeriod, os.Getenv("SESSIOND_RECONCILE_PERIOD"), "SESSIOND_RECONCILE_PERIOD", &invalid)
	applyDuration(&cfg.Lookahead, os.Getenv("SESSIOND_LOOKAHEAD"), "SESSIOND_LOOKAHEAD", &invalid)

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid configuration values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func applyDuration(target *time.Duration, value, name string, invalid *[]string) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return
	}
	parsed, err := time.ParseDuration(trimmed)
	if err != nil || parsed <= 0 {
		*invalid = append(*invalid, name)
		return
	}
	*target = parsed
}
