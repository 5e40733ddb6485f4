// Package config reads gateway settings from the environment and client
// settings from an optional YAML file plus the environment.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/mind-engage/fungiquest/internal/apierr"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

const (
	devHMACSecret = "supersecret-dev-key"
	devAPIKey     = "dev-anon-key"
)

// Config is the gateway's configuration.
type Config struct {
	Mode      Mode
	HTTPAddr  string
	PublicURL string

	DBDriver string
	DBDSN    string

	BlobBasePath string

	HMACSecret string
	APIKey     string // anon bearer credential handed to clients
	TokenTTL   time.Duration

	AdminUser     string
	AdminPassHash string // bcrypt; empty disables admin login

	CORSOrigins  []string
	MagicLinkTTL time.Duration
	LogFile      string
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	secret, key := os.Getenv("AUTH_HMAC_SECRET"), os.Getenv("API_KEY")
	if mode != ModeOnline {
		if secret == "" {
			secret = devHMACSecret
		}
		if key == "" {
			key = devAPIKey
		}
	}
	return Config{
		Mode:          mode,
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		PublicURL:     envOr("PUBLIC_URL", "http://localhost:8080"),
		DBDriver:      envOr("DB_DRIVER", "sqlite"),
		DBDSN:         envOr("DB_DSN", ""),
		BlobBasePath:  envOr("BLOB_BASE_PATH", "./data"),
		HMACSecret:    secret,
		APIKey:        key,
		TokenTTL:      envDuration("TOKEN_TTL", 24*time.Hour),
		AdminUser:     envOr("ADMIN_USER", "admin"),
		AdminPassHash: os.Getenv("ADMIN_PASS_HASH"),
		CORSOrigins:   csvOr("CORS_ORIGINS", "*"),
		MagicLinkTTL:  envDuration("MAGIC_LINK_TTL", 15*time.Minute),
		LogFile:       os.Getenv("LOG_FILE"),
	}
}

// Validate reports settings the gateway cannot start without.
func (c Config) Validate() error {
	if c.HMACSecret == "" {
		return apierr.Config("AUTH_HMAC_SECRET is required in online mode")
	}
	if c.APIKey == "" {
		return apierr.Config("API_KEY is required in online mode")
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return apierr.Config("DB_DRIVER must be sqlite or postgres, got " + c.DBDriver)
	}
	return nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(k))
	if err != nil || d <= 0 {
		return def
	}
	return d
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
