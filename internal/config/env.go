package config

import (
	"os"
	"strconv"
)

func IsDev() bool {
	v := os.Getenv("ARKWARDEN_DEV")
	return v == "1" || v == "true"
}

// GetPort returns the daemon port, overridable with ARKWARDEN_PORT.
func GetPort() int {
	if v := os.Getenv("ARKWARDEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			return port
		}
	}
	return defaultPort
}

// ListenPort is the configured port unless ARKWARDEN_PORT overrides it.
func (c Config) ListenPort() int {
	if os.Getenv("ARKWARDEN_PORT") != "" {
		return GetPort()
	}
	if c.Port > 0 {
		return c.Port
	}
	return defaultPort
}
