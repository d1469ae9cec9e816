/*
Package config loads server configuration from the environment.

PURPOSE:
  Reads an optional .env file, then the process environment, and exposes a
  typed Config. Flags in cmd/server take precedence over these values.

VARIABLES:
  PORT          HTTP port (default 8080)
  DB_PATH       SQLite database path (default tracking.db)
  REGION        Holiday region code (default "default")
  TIMEZONE      IANA zone for local-time classification (default UTC)
  TAX_RATE      Flat illustrative tax fraction (default 0.30)
  CORS_ORIGINS  Comma-separated allowed origins
*/
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port        int
	DBPath      string
	Region      string
	Timezone    *time.Location
	TaxRate     decimal.Decimal
	CORSOrigins []string
}

// Load reads .env (when present) and the environment.
// Invalid values fall back to defaults with a logged warning, so a broken
// .env never prevents startup.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	return &Config{
		Port:        getEnvInt("PORT", 8080),
		DBPath:      getEnv("DB_PATH", "tracking.db"),
		Region:      getEnv("REGION", "default"),
		Timezone:    getEnvLocation("TIMEZONE"),
		TaxRate:     getEnvDecimal("TAX_RATE", "0.30"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:8080"}),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvDecimal(key, defaultValue string) decimal.Decimal {
	value := getEnv(key, defaultValue)
	d, err := decimal.NewFromString(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, value, defaultValue)
		return decimal.RequireFromString(defaultValue)
	}
	return d
}

func getEnvLocation(key string) *time.Location {
	value := os.Getenv(key)
	if value == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(value)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using UTC", key, value)
		return time.UTC
	}
	return loc
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
