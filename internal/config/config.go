// Package config loads application settings from environment variables with
// defaults and validates them on startup so a misconfiguration fails fast.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Import  ImportConfig
	Schema  SchemaConfig
	Export  ExportConfig
	Logging LoggingConfig
}

// ServerConfig holds the local JSON API settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 127.0.0.1)
	Host string `env:"SERVER_HOST" default:"127.0.0.1"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is 0 so the event stream is not cut off (default: 0s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the middleware timeout for API requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`

	// MaxBodySize caps multipart request bodies, all files included (default: 100MB)
	MaxBodySize int64 `env:"SERVER_MAX_BODY_SIZE" default:"104857600"`

	// RateLimit is the number of API requests allowed per client per minute.
	// 0 disables rate limiting.
	RateLimit int `env:"SERVER_RATE_LIMIT" default:"600"`

	// TrustedProxies is a comma-separated list of proxy CIDRs or IPs whose
	// X-Real-IP / X-Forwarded-For headers are believed.
	TrustedProxies string `env:"SERVER_TRUSTED_PROXIES"`
}

// Storage backends.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// StorageConfig selects and configures the snapshot backend.
type StorageConfig struct {
	// Backend is one of file, sqlite, postgres, redis, memory (default: file)
	Backend string `env:"STORAGE_BACKEND" default:"file"`

	// Dir holds one file per key for the file backend (default: data)
	Dir string `env:"STORAGE_DIR" default:"data"`

	// SQLitePath is the database file of the sqlite backend
	SQLitePath string `env:"SQLITE_PATH" default:"dryerlog.db"`

	// DatabaseURL is the PostgreSQL connection string.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	DatabaseURL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the number of connections kept open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	RedisAddr     string `env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" default:"0"`

	// RedisPrefix is prepended to every key (default: dryerlog:)
	RedisPrefix string `env:"REDIS_PREFIX" default:"dryerlog:"`
}

// ImportConfig bounds file parsing.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted file size in bytes (default: 20MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"20971520"`

	// MaxConcurrent is the number of files parsed in parallel (default: 4)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long an upload waits for a parse slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import operation (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`
}

// SchemaConfig locates the field catalog.
type SchemaConfig struct {
	// File overrides the embedded catalog when set
	File string `env:"SCHEMA_FILE"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	// Dir is where CLI exports are written (default: .)
	Dir string `env:"EXPORT_DIR" default:"."`

	// Locale is the BCP 47 tag used to collate text (default: zh-Hant)
	Locale string `env:"EXPORT_LOCALE" default:"zh-Hant"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
