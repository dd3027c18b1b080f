package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/hivesql/pkg/session"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverHive, cfg.Driver)
	assert.Equal(t, "table", cfg.Output)
	assert.Equal(t, 10000, cfg.Session.Port)
	assert.Equal(t, "NONE", cfg.Session.Auth)
	assert.Equal(t, 30*time.Second, cfg.Session.ConnectTimeout)
	assert.True(t, cfg.Cache.Enabled)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
		check   func(t *testing.T, c *Config)
	}{
		{
			name:   "driver defaults to hive",
			mutate: func(c *Config) { c.Driver = "" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DriverHive, c.Driver) },
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Driver = "oracle" },
			wantErr: "unsupported driver",
		},
		{
			name:    "hive requires host",
			mutate:  func(c *Config) { c.Session.Host = "" },
			wantErr: "host is required",
		},
		{
			name: "duckdb needs no host",
			mutate: func(c *Config) {
				c.Driver = "DuckDB"
				c.Session = session.Config{DSN: ":memory:"}
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, DriverDuckDB, c.Driver)
				assert.Equal(t, "default", c.Session.Database)
			},
		},
		{
			name: "mysql port defaults to 3306",
			mutate: func(c *Config) {
				c.Driver = DriverMySQL
				c.Session.Port = 0
			},
			check: func(t *testing.T, c *Config) { assert.Equal(t, 3306, c.Session.Port) },
		},
		{
			name: "mysql requires host or dsn",
			mutate: func(c *Config) {
				c.Driver = DriverMySQL
				c.Session.Host = ""
			},
			wantErr: "host or dsn",
		},
		{
			name:    "session errors surface",
			mutate:  func(c *Config) { c.Session.Auth = "OAUTH" },
			wantErr: "unknown auth mode",
		},
		{
			name:   "log level is case-insensitive",
			mutate: func(c *Config) { c.LogLevel = "DEBUG" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, "debug", c.LogLevel) },
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.LogLevel = "trace" },
			wantErr: "unsupported log level",
		},
		{
			name:    "bad output",
			mutate:  func(c *Config) { c.Output = "xml" },
			wantErr: "unknown output format",
		},
		{
			name:    "negative timeout",
			mutate:  func(c *Config) { c.Timeout = -time.Second },
			wantErr: "timeout cannot be negative",
		},
		{
			name:   "metastore driver defaults to mysql",
			mutate: func(c *Config) { c.Metastore.DSN = "hive:pw@tcp(metastore:3306)/metastore" },
			check:  func(t *testing.T, c *Config) { assert.Equal(t, DriverMySQL, c.Metastore.Driver) },
		},
		{
			name: "unknown metastore driver",
			mutate: func(c *Config) {
				c.Metastore.Driver = "postgres"
				c.Metastore.DSN = "postgres://metastore"
			},
			wantErr: "unsupported metastore driver",
		},
		{
			name: "metrics address default",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.Address = ""
			},
			check: func(t *testing.T, c *Config) { assert.Equal(t, ":9090", c.Metrics.Address) },
		},
		{
			name:    "negative cache ttl",
			mutate:  func(c *Config) { c.Cache.TTL = -time.Minute },
			wantErr: "cache ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}
