// Package config holds runtime settings for the Custodia API server,
// populated from development defaults and overlaid with environment
// variables.
package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds runtime settings for the Custodia API.
//
// Fields:
//   - Addr: bind address for the HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty DSN runs the in-memory stores.
//   - DevMode: enables the insecure development fallbacks (fixed auth secret,
//     seeded accounts, filesystem document storage). Never enable in prod.
//   - PendingGuard: reject transitions of already-processed release requests.
//   - WebDir: directory with the static front-end entry document.
//   - DocumentDir: local directory for uploaded files when S3 is not used.
//   - S3Bucket / S3Region / S3Endpoint / S3AccessKey / S3SecretKey: object
//     storage settings for uploaded documents (MinIO-compatible).
//   - RateBurst / RatePerSec: per-client-IP token bucket parameters.
type Config struct {
	Addr         string
	DatabaseDSN  string
	DevMode      bool
	PendingGuard bool
	WebDir       string
	DocumentDir  string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	RateBurst    int
	RatePerSec   int
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.Addr = ":8080"
	c.WebDir = "web"
	c.DocumentDir = "uploads"
	c.S3Region = "us-east-1"
	c.RateBurst = 20
	c.RatePerSec = 10
}

// Load builds a Config by applying defaults and overlaying CUSTODIA_*
// environment variables.
func Load() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	overlayEnv(cfg)
	return cfg
}

func overlayEnv(c *Config) {
	setString(&c.Addr, "CUSTODIA_ADDR")
	setString(&c.DatabaseDSN, "CUSTODIA_PG_DSN")
	setBool(&c.DevMode, "CUSTODIA_DEV_MODE")
	setBool(&c.PendingGuard, "CUSTODIA_PENDING_GUARD")
	setString(&c.WebDir, "CUSTODIA_WEB_DIR")
	setString(&c.DocumentDir, "CUSTODIA_DOCUMENT_DIR")
	setString(&c.S3Bucket, "CUSTODIA_S3_BUCKET")
	setString(&c.S3Region, "CUSTODIA_S3_REGION")
	setString(&c.S3Endpoint, "CUSTODIA_S3_ENDPOINT")
	setString(&c.S3AccessKey, "CUSTODIA_S3_ACCESS_KEY")
	setString(&c.S3SecretKey, "CUSTODIA_S3_SECRET_KEY")
	setInt(&c.RateBurst, "CUSTODIA_RATE_BURST")
	setInt(&c.RatePerSec, "CUSTODIA_RATE_PER_SEC")
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return
	}
	*dst = parsed
}

func setInt(dst *int, key string) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return
	}
	*dst = parsed
}
