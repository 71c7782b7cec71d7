package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration, loaded from the
// environment once at startup.
type Config struct {
	DatabaseDriver string
	DatabaseDSN    string
	ServerPort     string
	JwtSecret      string

	// Static deny-lists; the access policy is built from these.
	DeniedOrgs    []string
	DeniedDevices []string
	DDoSOrgs      []string

	// Site dashboard admin login.
	AdminToken        string
	AdminPasswordHash string

	// When set, device-token queries are additionally scoped to the
	// device's own org.
	FilterByOrg bool
}

func NewConfig() *Config {
	driver := getEnv("DATABASE_DRIVER", "sqlite3")
	dsn := getEnv("DATABASE_DSN", "./tracker.db")
	if driver == "postgres" && dsn == "./tracker.db" {
		dsn = "postgres://localhost/tracker?sslmode=disable"
	}

	return &Config{
		DatabaseDriver:    driver,
		DatabaseDSN:       dsn,
		ServerPort:        getEnv("SERVER_PORT", "9000"),
		JwtSecret:         getEnv("JWT_SECRET", "eyJhbGciOiJIUzI1NiJ9-dev-only"),
		DeniedOrgs:        getEnvList("DENIED_ORGS"),
		DeniedDevices:     getEnvList("DENIED_DEVICES"),
		DDoSOrgs:          getEnvList("DDOS_ORGS"),
		AdminToken:        getEnv("ADMIN_TOKEN", "admin"),
		AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		FilterByOrg:       getEnvBool("FILTER_BY_ORG", true),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseBool(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
