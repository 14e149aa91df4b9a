package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Default token lifetime, 8 days in minutes.
const defaultTokenExpireMinutes = 60 * 24 * 8

// Config holds the server configuration, read from the environment.
type Config struct {
	Addr         string
	DatabasePath string
	SecretKey    string
	TokenExpiry  time.Duration
}

// Load reads configuration from a .env file (if present) and the
// environment. A missing SECRET_KEY is auto-generated, which invalidates
// all issued tokens on restart.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:         getenv("ADDR", ":8080"),
		DatabasePath: getenv("DATABASE_PATH", "inventar.sqlite3"),
		SecretKey:    os.Getenv("SECRET_KEY"),
		TokenExpiry:  defaultTokenExpireMinutes * time.Minute,
	}

	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %q", v)
		}
		cfg.TokenExpiry = time.Duration(minutes) * time.Minute
	}

	if cfg.SecretKey == "" {
		key, err := generateSecret()
		if err != nil {
			return nil, fmt.Errorf("generating secret key: %w", err)
		}
		cfg.SecretKey = key
		slog.Warn("SECRET_KEY not set, auto-generated (tokens will be invalidated on restart)")
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
