package server

import (
	"net"
	"strconv"
	"time"

	"github.com/agentstation/smtindex/pkg/constants"
)

// Config holds server configuration.
type Config struct {
	// Server settings
	Host string
	Port int

	// API settings
	PathPrefix string

	// Index settings
	IndexPath string // index.json to serve
	Watch     bool   // reload when the file is replaced

	// CORS settings
	CORSEnabled bool
	CORSOrigins []string

	// Performance settings
	CacheTTL time.Duration

	// HTTP timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Features
	MetricsEnabled bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Host:           "localhost",
		Port:           8080,
		PathPrefix:     "/api/v1",
		IndexPath:      "dist/" + constants.IndexJSONFile,
		Watch:          true,
		CacheTTL:       constants.CacheTTL,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    120 * time.Second,
		MetricsEnabled: true,
	}
}

// Addr returns the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
