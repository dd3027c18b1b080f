// Package hive provides the HiveServer2 engine driver and the engine-backed
// table-property lookup.
package hive

import (
	"context"
	"time"

	"github.com/beltran/gohive"
	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// DriverName is the configuration name of the HiveServer2 driver.
const DriverName = "hive"

// DefaultFetchSize is the number of rows fetched per round-trip.
const DefaultFetchSize = 1000

// cursor is the part of *gohive.Cursor the connection uses.
type cursor interface {
	Exec(ctx context.Context, query string)
	HasMore(ctx context.Context) bool
	RowMap(ctx context.Context) map[string]interface{}
	Description() [][]string
	Error() error
	Close()
}

// hiveCursor exposes the cursor's Err field as a method.
type hiveCursor struct {
	*gohive.Cursor
}

func (c hiveCursor) Error() error { return c.Err }

// driver implements repositories.Driver for HiveServer2.
type driver struct {
	logger zerolog.Logger
}

// NewDriver creates a HiveServer2 driver.
func NewDriver(logger zerolog.Logger) repositories.Driver {
	return &driver{logger: logger.With().Str("component", "hive_driver").Logger()}
}

// Name returns "hive".
func (d *driver) Name() string { return DriverName }

// Open connects over Thrift using the configured transport and SASL mode.
// gohive has no context support while connecting, so the dial runs in the
// background and is abandoned when ctx ends first.
func (d *driver) Open(ctx context.Context, cfg repositories.ConnConfig) (repositories.Conn, error) {
	if cfg.Host == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "hive host is required")
	}

	hc := gohive.NewConnectConfiguration()
	hc.Username = cfg.Username
	hc.Password = cfg.Password
	hc.Service = cfg.Service
	hc.TransportMode = cfg.TransportMode
	hc.HTTPPath = cfg.HTTPPath
	hc.FetchSize = cfg.FetchSize
	if hc.FetchSize <= 0 {
		hc.FetchSize = DefaultFetchSize
	}
	// plain column names instead of table.column
	hc.HiveConfiguration = map[string]string{
		"hive.resultset.use.unique.column.names": "false",
	}

	d.logger.Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("auth", cfg.Auth).
		Str("transport", cfg.TransportMode).
		Msg("Connecting to HiveServer2")

	type result struct {
		conn *gohive.Connection
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		conn, err := gohive.Connect(cfg.Host, cfg.Port, cfg.Auth, hc)
		done <- result{conn: conn, err: err}
	}()

	select {
	case <-ctx.Done():
		go func() {
			if r := <-done; r.conn != nil {
				_ = r.conn.Close()
			}
		}()
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		d.logger.Debug().Dur("duration", time.Since(start)).Msg("Connected to HiveServer2")
		return &conn{
			raw:    r.conn,
			cursor: func() cursor { return hiveCursor{r.conn.Cursor()} },
			logger: d.logger,
		}, nil
	}
}

// conn implements repositories.Conn over one HiveServer2 connection. Each
// statement uses a fresh cursor.
type conn struct {
	raw    *gohive.Connection
	cursor func() cursor
	logger zerolog.Logger
}

// Query runs a row-returning statement and reads the full result.
func (c *conn) Query(ctx context.Context, query string) (*models.RowSet, error) {
	cur := c.cursor()
	defer cur.Close()

	cur.Exec(ctx, query)
	if err := cur.Error(); err != nil {
		return nil, err
	}

	desc := cur.Description()
	if err := cur.Error(); err != nil {
		return nil, err
	}
	rs := &models.RowSet{
		Columns: make([]models.Column, len(desc)),
		Rows:    [][]interface{}{},
	}
	for i, d := range desc {
		rs.Columns[i].Name = d[0]
		if len(d) > 1 {
			rs.Columns[i].Type = d[1]
		}
	}

	for cur.HasMore(ctx) {
		if err := cur.Error(); err != nil {
			return nil, err
		}
		m := cur.RowMap(ctx)
		if err := cur.Error(); err != nil {
			return nil, err
		}
		row := make([]interface{}, len(rs.Columns))
		for i, col := range rs.Columns {
			row[i] = m[col.Name]
		}
		rs.Rows = append(rs.Rows, row)
	}
	if err := cur.Error(); err != nil {
		return nil, err
	}

	c.logger.Debug().Int("rows", len(rs.Rows)).Int("columns", len(rs.Columns)).Msg("Fetched result set")
	return rs, nil
}

// Exec runs a statement for its status. HiveServer2 does not report affected
// rows, so RowsAffected is always -1.
func (c *conn) Exec(ctx context.Context, query string) (*models.ExecStatus, error) {
	cur := c.cursor()
	defer cur.Close()

	cur.Exec(ctx, query)
	if err := cur.Error(); err != nil {
		return nil, err
	}
	return &models.ExecStatus{RowsAffected: -1}, nil
}

// Ping runs SELECT 1.
func (c *conn) Ping(ctx context.Context) error {
	_, err := c.Query(ctx, "SELECT 1")
	return err
}

// Close closes the Thrift transport.
func (c *conn) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}
