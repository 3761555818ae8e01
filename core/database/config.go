package database

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultMigrationsPath = "migrations"
	defaultQueryTimeout   = 3 * time.Second
)

// Config holds database connection settings.
type Config struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// MigrationsPath is resolved against the working directory when relative.
	MigrationsPath string `yaml:"migrations_path" envconfig:"DB_MIGRATIONS_PATH"`
	QueryTimeoutMS int    `yaml:"query_timeout_ms" envconfig:"DB_QUERY_TIMEOUT_MS"`
}

// Normalize fills defaults and validates required fields.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Errorf("database.host is required")
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	if c.Port == "" {
		c.Port = "5432"
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 10
	}
	if strings.TrimSpace(c.MigrationsPath) == "" {
		c.MigrationsPath = defaultMigrationsPath
	}
	if c.QueryTimeoutMS < 0 {
		return fmt.Errorf("database.query_timeout_ms must be >= 0")
	}
	return nil
}

// QueryTimeout bounds a single store statement.
func (c Config) QueryTimeout() time.Duration {
	if c.QueryTimeoutMS <= 0 {
		return defaultQueryTimeout
	}
	return time.Duration(c.QueryTimeoutMS) * time.Millisecond
}

// DSN returns the lib/pq keyword/value connection string.
func (c Config) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form expected by golang-migrate.
func (c Config) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
