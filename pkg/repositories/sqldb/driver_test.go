package sqldb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

func openDuckDB(t *testing.T) repositories.Conn {
	t.Helper()
	d, err := NewDriver(DuckDB, zerolog.New(zerolog.NewTestWriter(t)))
	require.NoError(t, err)

	c, err := d.Open(context.Background(), repositories.ConnConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestDuckDB_ExecAndQuery(t *testing.T) {
	ctx := context.Background()
	c := openDuckDB(t)

	_, err := c.Exec(ctx, "CREATE TABLE employees (id INTEGER, name VARCHAR, active BOOLEAN)")
	require.NoError(t, err)

	st, err := c.Exec(ctx, "INSERT INTO employees VALUES (1, 'alice', true), (2, 'bob', false), (3, NULL, true)")
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.RowsAffected)

	rs, err := c.Query(ctx, "SELECT id, name, active FROM employees ORDER BY id")
	require.NoError(t, err)

	assert.Equal(t, []models.Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "VARCHAR"},
		{Name: "active", Type: "BOOLEAN"},
	}, rs.Columns)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, []interface{}{int32(1), "alice", true}, rs.Rows[0])
	assert.Nil(t, rs.Rows[2][1])
}

func TestDuckDB_EmptyResult(t *testing.T) {
	c := openDuckDB(t)

	rs, err := c.Query(context.Background(), "SELECT 1 AS x WHERE false")
	require.NoError(t, err)
	assert.Len(t, rs.Columns, 1)
	assert.NotNil(t, rs.Rows)
	assert.Empty(t, rs.Rows)
}

// Connection-scoped state survives between statements.
func TestDuckDB_PinnedConnection(t *testing.T) {
	ctx := context.Background()
	c := openDuckDB(t)

	_, err := c.Exec(ctx, "CREATE TEMP TABLE scratch (id INTEGER)")
	require.NoError(t, err)

	rs, err := c.Query(ctx, "SELECT count(*) AS n FROM scratch")
	require.NoError(t, err)
	require.Len(t, rs.Rows, 1)
	assert.Equal(t, int64(0), rs.Rows[0][0])
}

func TestDuckDB_EngineError(t *testing.T) {
	c := openDuckDB(t)

	_, err := c.Query(context.Background(), "SELECT * FROM missing_table")
	require.Error(t, err)
	assert.False(t, errors.IsConnection(err))
	assert.Contains(t, err.Error(), "missing_table")

	assert.NoError(t, c.Ping(context.Background()))
}

func TestNewDriver(t *testing.T) {
	d, err := NewDriver(MySQL, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, MySQL, d.Name())

	_, err = NewDriver("postgres", zerolog.Nop())
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
}

func TestMySQL_DSN(t *testing.T) {
	d := &sqlDriver{name: MySQL, logger: zerolog.Nop()}

	dsn, err := d.dsn(repositories.ConnConfig{Host: "metastore", Username: "hive", Password: "secret", ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	cfg, err := mysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "hive", cfg.User)
	assert.Equal(t, "secret", cfg.Passwd)
	assert.Equal(t, "metastore:3306", cfg.Addr)
	assert.Equal(t, 5*time.Second, cfg.Timeout)

	dsn, err = d.dsn(repositories.ConnConfig{DSN: "u:p@tcp(h:3307)/db"})
	require.NoError(t, err)
	assert.Equal(t, "u:p@tcp(h:3307)/db", dsn)

	_, err = d.dsn(repositories.ConnConfig{})
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad conn", driver.ErrBadConn, errors.CodeConnectionFailed},
		{"wrapped bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), errors.CodeConnectionFailed},
		{"invalid mysql conn", mysql.ErrInvalidConn, errors.CodeConnectionFailed},
		{"closed db", sql.ErrDBClosed, errors.CodeConnectionFailed},
		{"access denied", &mysql.MySQLError{Number: 1045, Message: "Access denied for user 'hive'"}, errors.CodeUnauthorized},
		{"syntax error", &mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}, errors.CodeInternal},
		{"plain", fmt.Errorf("Catalog Error: Table with name t does not exist"), errors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.GetCode(ClassifyError(tt.err)))
		})
	}
}
