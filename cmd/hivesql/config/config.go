// Package config provides configuration structures for the hivesql CLI.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/hivesql/pkg/output"
	"github.com/TFMV/hivesql/pkg/session"
)

// Engine drivers.
const (
	DriverHive   = "hive"
	DriverDuckDB = "duckdb"
	DriverMySQL  = "mysql"
)

// Config represents the CLI configuration.
type Config struct {
	// Driver selects the engine: hive, duckdb or mysql.
	Driver   string `yaml:"driver" json:"driver" mapstructure:"driver"`
	LogLevel string `yaml:"log_level" json:"log_level" mapstructure:"log_level"`
	Output   string `yaml:"output" json:"output" mapstructure:"output"`
	// Timeout bounds each statement. Zero means no deadline.
	Timeout         time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout"`
	ContinueOnError bool          `yaml:"continue_on_error" json:"continue_on_error" mapstructure:"continue_on_error"`
	HistoryFile     string        `yaml:"history_file" json:"history_file" mapstructure:"history_file"`

	// Session holds the engine connection settings.
	Session session.Config `yaml:"session" json:"session" mapstructure:"session"`

	// Metastore configuration
	Metastore MetastoreConfig `yaml:"metastore" json:"metastore" mapstructure:"metastore"`

	// Metrics configuration
	Metrics MetricsConfig `yaml:"metrics" json:"metrics" mapstructure:"metrics"`

	// Cache configuration
	Cache CacheConfig `yaml:"cache" json:"cache" mapstructure:"cache"`
}

// MetastoreConfig points at the relational database behind the Hive
// metastore. When DSN is empty, table properties are read through the
// engine with SHOW TBLPROPERTIES.
type MetastoreConfig struct {
	Driver string `yaml:"driver" json:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" json:"-" mapstructure:"dsn"`
}

// MetricsConfig represents metrics configuration.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	Address string `yaml:"address" json:"address" mapstructure:"address"`
}

// CacheConfig configures the table property cache.
type CacheConfig struct {
	Enabled    bool          `yaml:"enabled" json:"enabled" mapstructure:"enabled"`
	MaxEntries int           `yaml:"max_entries" json:"max_entries" mapstructure:"max_entries"`
	TTL        time.Duration `yaml:"ttl" json:"ttl" mapstructure:"ttl"`
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate validates the configuration and fills defaults.
func (c *Config) Validate() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	switch c.Driver {
	case "":
		c.Driver = DriverHive
	case DriverHive, DriverDuckDB, DriverMySQL:
	default:
		return fmt.Errorf("unsupported driver: %s", c.Driver)
	}

	switch c.Driver {
	case DriverHive:
		if c.Session.Host == "" {
			return fmt.Errorf("host is required for the hive driver")
		}
	case DriverMySQL:
		if c.Session.Host == "" && c.Session.DSN == "" {
			return fmt.Errorf("host or dsn is required for the mysql driver")
		}
		if c.Session.Port == 0 {
			c.Session.Port = 3306
		}
	}

	if err := c.Session.Validate(); err != nil {
		return err
	}

	c.LogLevel = strings.ToLower(c.LogLevel)
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if !logLevels[c.LogLevel] {
		return fmt.Errorf("unsupported log level: %s", c.LogLevel)
	}

	if c.Output == "" {
		c.Output = string(output.FormatTable)
	}
	f, err := output.ParseFormat(c.Output)
	if err != nil {
		return err
	}
	c.Output = string(f)

	if c.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative")
	}

	if c.Metastore.DSN != "" && c.Metastore.Driver == "" {
		c.Metastore.Driver = DriverMySQL
	}
	switch c.Metastore.Driver {
	case "", DriverMySQL, DriverDuckDB:
	default:
		return fmt.Errorf("unsupported metastore driver: %s", c.Metastore.Driver)
	}

	if c.Metrics.Enabled && c.Metrics.Address == "" {
		c.Metrics.Address = ":9090"
	}

	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max entries cannot be negative")
	}
	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl cannot be negative")
	}

	return nil
}

// DefaultConfig returns a default configuration.
func DefaultConfig() *Config {
	return &Config{
		Driver:   DriverHive,
		LogLevel: "info",
		Output:   string(output.FormatTable),
		Session: session.Config{
			Host:           "localhost",
			Port:           session.DefaultPort,
			Auth:           "NONE",
			TransportMode:  session.DefaultTransportMode,
			Database:       "default",
			ConnectTimeout: session.DefaultConnectTimeout,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 1024,
			TTL:        5 * time.Minute,
		},
	}
}
