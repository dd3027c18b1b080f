// Package repositories defines the engine-facing interfaces used by the
// session and the metadata lookup.
package repositories

import (
	"context"
	"time"

	"github.com/TFMV/hivesql/pkg/models"
)

// Executor runs row-returning statements. Sessions and connections satisfy it.
type Executor interface {
	// Query executes a statement that returns rows.
	Query(ctx context.Context, query string) (*models.RowSet, error)
}

// Conn is one open connection to an external engine.
type Conn interface {
	Executor
	// Exec executes a statement that returns only a status.
	Exec(ctx context.Context, query string) (*models.ExecStatus, error)
	// Ping checks that the connection is usable.
	Ping(ctx context.Context) error
	// Close releases the connection.
	Close() error
}

// Driver opens connections to one kind of engine.
type Driver interface {
	// Name returns the driver name used in configuration, e.g. "hive".
	Name() string
	// Open establishes and authenticates a connection.
	Open(ctx context.Context, cfg ConnConfig) (Conn, error)
}

// Auth modes understood by the HiveServer2 driver.
const (
	AuthNone     = "NONE"
	AuthNoSASL   = "NOSASL"
	AuthLDAP     = "LDAP"
	AuthKerberos = "KERBEROS"
	AuthCustom   = "CUSTOM"
)

// ConnConfig is what a driver needs to open a connection.
type ConnConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	Auth     string
	// TransportMode is "binary" or "http".
	TransportMode string
	HTTPPath      string
	// Service is the Kerberos service name.
	Service string
	// DSN is used by database/sql drivers instead of host and port.
	DSN            string
	ConnectTimeout time.Duration
	// FetchSize is the number of rows fetched per round-trip.
	FetchSize int64
}

// MetadataRepository looks up table metadata.
type MetadataRepository interface {
	// GetTableProperties returns the table properties of ref. exec is the
	// caller's session and may be used by repositories that ask the engine.
	GetTableProperties(ctx context.Context, exec Executor, ref models.TableRef) (map[string]string, error)
}
