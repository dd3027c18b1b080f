// Package main provides the entry point for the hivesql client.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/TFMV/hivesql/cmd/hivesql/config"
)

var (
	// Version information (set by build flags)
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "hivesql",
	Short: "HiveQL client",
	Long: `A HiveQL client that classifies statements, checks them and forwards
them to HiveServer2 or a database/sql engine.

Example:
  hivesql exec --host hive.local -e "SHOW DATABASES"
  hivesql exec --driver duckdb -f ./etl.sql --output json
  hivesql shell --host hive.local --database sales_db`,
	SilenceUsage: true,
}

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"driver":            "driver",
	"log-level":         "log_level",
	"output":            "output",
	"timeout":           "timeout",
	"continue-on-error": "continue_on_error",
	"history-file":      "history_file",
	"host":              "session.host",
	"port":              "session.port",
	"user":              "session.username",
	"password":          "session.password",
	"auth":              "session.auth",
	"transport":         "session.transport_mode",
	"http-path":         "session.http_path",
	"service":           "session.service",
	"dsn":               "session.dsn",
	"database":          "session.database",
	"connect-timeout":   "session.connect_timeout",
	"keep-alive":        "session.keep_alive_interval",
	"fetch-size":        "session.fetch_size",
	"metastore-driver":  "metastore.driver",
	"metastore-dsn":     "metastore.dsn",
	"metrics":           "metrics.enabled",
	"metrics-address":   "metrics.address",
	"cache":             "cache.enabled",
	"cache-ttl":         "cache.ttl",
	"cache-size":        "cache.max_entries",
}

func init() {
	defaults := config.DefaultConfig()
	flags := rootCmd.PersistentFlags()

	flags.StringP("config", "c", "", "config file path (yaml, toml or json)")
	flags.String("env-file", ".env", "dotenv file loaded before reading HIVESQL_* variables")
	flags.String("driver", defaults.Driver, "engine driver (hive, duckdb, mysql)")
	flags.String("log-level", defaults.LogLevel, "log level (debug, info, warn, error)")
	flags.StringP("output", "o", defaults.Output, "output format (table, plain, json, csv, arrow)")
	flags.Duration("timeout", 0, "statement timeout, 0 for none")
	flags.Bool("continue-on-error", false, "keep running a script after a failed statement")
	flags.String("history-file", "", "shell history file (default ~/.hivesql_history)")

	flags.StringP("host", "H", defaults.Session.Host, "HiveServer2 host")
	flags.IntP("port", "P", defaults.Session.Port, "HiveServer2 port")
	flags.StringP("user", "u", "", "user name")
	flags.StringP("password", "p", "", "password")
	flags.String("auth", defaults.Session.Auth, "auth mode (NONE, NOSASL, LDAP, KERBEROS, CUSTOM)")
	flags.String("transport", defaults.Session.TransportMode, "transport mode (binary, http)")
	flags.String("http-path", "", "HTTP path for the http transport")
	flags.String("service", "", "Kerberos service name")
	flags.String("dsn", "", "data source name for the duckdb and mysql drivers")
	flags.StringP("database", "d", defaults.Session.Database, "initial database")
	flags.Duration("connect-timeout", defaults.Session.ConnectTimeout, "connect timeout")
	flags.Duration("keep-alive", 0, "keep-alive ping interval, 0 to disable")
	flags.Int64("fetch-size", 0, "rows fetched per round-trip")

	flags.String("metastore-driver", "", "metastore database driver (mysql, duckdb)")
	flags.String("metastore-dsn", "", "metastore database DSN; table properties are read from it instead of the engine")
	flags.Bool("metrics", defaults.Metrics.Enabled, "enable Prometheus metrics")
	flags.String("metrics-address", defaults.Metrics.Address, "metrics server address")
	flags.Bool("cache", defaults.Cache.Enabled, "cache table properties")
	flags.Duration("cache-ttl", defaults.Cache.TTL, "table property cache TTL")
	flags.Int("cache-size", defaults.Cache.MaxEntries, "maximum cached tables")

	// Bind flags to viper
	for flag, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Errorf("failed to bind flag %s: %w", flag, err))
		}
	}
	viper.SetEnvPrefix("HIVESQL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	rootCmd.AddCommand(execCmd, shellCmd, classifyCmd)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hivesql\n")
			fmt.Printf("Version:    %s\n", version)
			fmt.Printf("Commit:     %s\n", commit)
			fmt.Printf("Build Date: %s\n", buildDate)
		},
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	// Load .env before HIVESQL_* variables are read
	envFile := flagValue(cmd, "env-file")
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file: %w", err)
		}
	}

	// Load config file if specified
	if configFile := flagValue(cmd, "config"); configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagValue returns a local or inherited flag value.
func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}

// setupLogging logs to stderr so that stdout carries only results.
func setupLogging(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond

	logLevel, err := zerolog.ParseLevel(level)
	if err != nil || logLevel == zerolog.NoLevel {
		logLevel = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if term.IsTerminal(int(os.Stderr.Fd())) {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		logger = zerolog.New(os.Stderr)
	}

	ctx := logger.Level(logLevel).With().Timestamp().Str("service", "hivesql")
	if logLevel == zerolog.DebugLevel {
		ctx = ctx.Caller()
	}
	return ctx.Logger()
}
