// Package config reads runtime settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Source names where records come from: a backend URL, a database
	// (sqlite:PATH or postgres://...) or a record file.
	Source       string
	BackendToken string
	Cycle        string

	DBDriver string // sqlite|postgres
	DBDSN    string

	HTTPAddr    string
	CORSOrigins []string

	Profile string
	Timeout time.Duration
}

func FromEnv() Config {
	return Config{
		Source:       os.Getenv("MFI_SOURCE"),
		BackendToken: os.Getenv("MFI_BACKEND_TOKEN"),
		Cycle:        os.Getenv("MFI_CYCLE"),
		DBDriver:     envOr("MFI_DB_DRIVER", "sqlite"),
		DBDSN:        os.Getenv("MFI_DB_DSN"), // empty: store.Open picks the driver default
		HTTPAddr:     envOr("MFI_HTTP_ADDR", ":8080"),
		CORSOrigins:  csvOr("MFI_CORS_ORIGINS", "http://localhost:3000"),
		Profile:      envOr("MFI_PROFILE", "default"),
		Timeout:      envDuration("MFI_TIMEOUT", 30*time.Second),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// envDuration accepts Go durations ("45s") or plain seconds ("45").
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
