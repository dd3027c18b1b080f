// Package sqldb provides engine drivers on top of database/sql: DuckDB for
// local development and tests, and MySQL protocol engines.
package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	stderrors "errors"
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// Supported driver names.
const (
	DuckDB = "duckdb"
	MySQL  = "mysql"
)

// MySQL server errors that mean the credentials were rejected.
var mysqlAuthErrors = map[uint16]bool{
	1044: true, // ER_DBACCESS_DENIED_ERROR
	1045: true, // ER_ACCESS_DENIED_ERROR
	1698: true, // ER_ACCESS_DENIED_NO_PASSWORD_ERROR
}

// sqlDriver implements repositories.Driver for one database/sql driver.
type sqlDriver struct {
	name   string
	logger zerolog.Logger
}

// NewDriver returns a driver for name, which is DuckDB or MySQL.
func NewDriver(name string, logger zerolog.Logger) (repositories.Driver, error) {
	switch name {
	case DuckDB, MySQL:
	default:
		return nil, errors.Newf(errors.CodeInvalidRequest, "unsupported sql driver %q", name)
	}
	return &sqlDriver{
		name:   name,
		logger: logger.With().Str("component", name+"_driver").Logger(),
	}, nil
}

func (d *sqlDriver) Name() string { return d.name }

// Open opens a single-connection pool and pins its connection so that
// session state such as the current database survives between statements.
func (d *sqlDriver) Open(ctx context.Context, cfg repositories.ConnConfig) (repositories.Conn, error) {
	dsn, err := d.dsn(cfg)
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(ctx, d.name, dsn)
	if err != nil {
		return nil, err
	}

	c, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, ClassifyError(err)
	}

	d.logger.Debug().Msg("Connection opened")
	return &conn{db: db, conn: c, logger: d.logger}, nil
}

// dsn returns cfg.DSN, or for MySQL builds one from host and credentials.
func (d *sqlDriver) dsn(cfg repositories.ConnConfig) (string, error) {
	if cfg.DSN != "" || d.name == DuckDB {
		return cfg.DSN, nil
	}
	if cfg.Host == "" {
		return "", errors.New(errors.CodeInvalidRequest, "mysql requires a DSN or a host")
	}

	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	if cfg.ConnectTimeout > 0 {
		mc.Timeout = cfg.ConnectTimeout
	}
	return mc.FormatDSN(), nil
}

// OpenDB opens a database/sql pool limited to one connection and verifies it
// with a ping.
func OpenDB(ctx context.Context, driverName, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeConnectionFailed, "failed to open %s database", driverName)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, ClassifyError(err)
	}
	return db, nil
}

// conn implements repositories.Conn on a pinned *sql.Conn.
type conn struct {
	db     *sql.DB
	conn   *sql.Conn
	logger zerolog.Logger
}

// Query runs a row-returning statement and scans every row.
func (c *conn) Query(ctx context.Context, query string) (*models.RowSet, error) {
	rows, err := c.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, ClassifyError(err)
	}
	defer rows.Close()

	rs, err := scanRows(rows)
	if err != nil {
		return nil, ClassifyError(err)
	}
	return rs, nil
}

// Exec runs a statement for its status.
func (c *conn) Exec(ctx context.Context, query string) (*models.ExecStatus, error) {
	start := time.Now()
	res, err := c.conn.ExecContext(ctx, query)
	if err != nil {
		return nil, ClassifyError(err)
	}

	st := &models.ExecStatus{RowsAffected: -1}
	if n, err := res.RowsAffected(); err == nil {
		st.RowsAffected = n
	}
	c.logger.Debug().
		Int64("rows_affected", st.RowsAffected).
		Dur("duration", time.Since(start)).
		Msg("Statement executed")
	return st, nil
}

// Ping checks the pinned connection.
func (c *conn) Ping(ctx context.Context) error {
	if err := c.conn.PingContext(ctx); err != nil {
		return ClassifyError(err)
	}
	return nil
}

// Close returns the connection and closes the pool.
func (c *conn) Close() error {
	connErr := c.conn.Close()
	dbErr := c.db.Close()
	if err := stderrors.Join(connErr, dbErr); err != nil {
		return errors.Wrap(err, errors.CodeConnectionFailed, "failed to close connection")
	}
	return nil
}

// scanRows reads all rows into a RowSet. Byte slices become strings.
func scanRows(rows *sql.Rows) (*models.RowSet, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	rs := &models.RowSet{
		Columns: make([]models.Column, len(types)),
		Rows:    [][]interface{}{},
	}
	for i, ct := range types {
		rs.Columns[i] = models.Column{Name: ct.Name(), Type: ct.DatabaseTypeName()}
	}

	for rows.Next() {
		values := make([]interface{}, len(types))
		ptrs := make([]interface{}, len(types))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rs, nil
}

// classifyError marks broken connections and rejected credentials. Other
// errors pass through for the dispatcher to report as engine errors.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.Is(err, sql.ErrDBClosed) || errors.Is(err, mysql.ErrInvalidConn) {
		return errors.Wrap(err, errors.CodeConnectionFailed, "connection lost")
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) && mysqlAuthErrors[me.Number] {
		return errors.Wrap(err, errors.CodeUnauthorized, "authentication rejected")
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return errors.Wrap(err, errors.CodeConnectionFailed, "network error")
	}
	return err
}
