package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"

	gk "github.com/panyam/grovekeep"
)

// Backend names accepted in GROVEKEEP_BACKEND
const (
	BackendFS        = "fs"
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendRedis     = "redis"
	BackendDatastore = "datastore"
)

// AppConfig is everything the binary reads from the environment
type AppConfig struct {
	Backend string
	DataDir string

	// SQLite file path or DSN for the sqlite backend
	DSN string

	RedisAddr   string
	RedisPrefix string

	DatastoreProject   string
	DatastoreNamespace string

	Addr string

	Auth gk.Config
}

// LoadConfig reads GROVEKEEP_* variables, first loading a .env file if one exists
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to read .env", "error", err)
	}
	return configFromEnv(os.Getenv)
}

func configFromEnv(getenv func(string) string) (*AppConfig, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := &AppConfig{
		Backend:            strings.ToLower(get("GROVEKEEP_BACKEND", BackendFS)),
		DataDir:            get("GROVEKEEP_DATA_DIR", "./grovekeep-data"),
		DSN:                get("GROVEKEEP_DSN", "grovekeep.db"),
		RedisAddr:          get("GROVEKEEP_REDIS_ADDR", "127.0.0.1:6379"),
		RedisPrefix:        get("GROVEKEEP_REDIS_PREFIX", "grovekeep"),
		DatastoreProject:   get("GROVEKEEP_DATASTORE_PROJECT", ""),
		DatastoreNamespace: get("GROVEKEEP_DATASTORE_NAMESPACE", ""),
		Addr:               get("GROVEKEEP_ADDR", ":8080"),
	}

	if domains := get("GROVEKEEP_ALLOWED_DOMAINS", ""); domains == "*" {
		cfg.Auth.AllowAnyEmailDomain = true
	} else if domains != "" {
		for _, d := range strings.Split(domains, ",") {
			if d = strings.TrimSpace(d); d != "" {
				cfg.Auth.AllowedEmailDomains = append(cfg.Auth.AllowedEmailDomains, d)
			}
		}
	}

	cfg.Auth.HasherName = get("GROVEKEEP_HASHER", gk.HasherBcrypt)

	if key := get("GROVEKEEP_DATA_KEY", ""); key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil {
			return nil, fmt.Errorf("GROVEKEEP_DATA_KEY must be hex: %w", err)
		}
		cfg.Auth.DataKey = raw
	}

	switch cfg.Backend {
	case BackendFS, BackendMemory, BackendSQLite, BackendRedis:
	case BackendDatastore:
		if cfg.DatastoreProject == "" {
			return nil, fmt.Errorf("GROVEKEEP_DATASTORE_PROJECT is required for the datastore backend")
		}
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	cfg.Auth.EnsureDefaults()
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
