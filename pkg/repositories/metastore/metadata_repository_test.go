package metastore

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

// seedMetastore creates the metastore tables the repository reads.
func seedMetastore(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("duckdb", "")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	stmts := []string{
		`CREATE TABLE DBS (DB_ID BIGINT, NAME VARCHAR)`,
		`CREATE TABLE TBLS (TBL_ID BIGINT, DB_ID BIGINT, TBL_NAME VARCHAR)`,
		`CREATE TABLE TABLE_PARAMS (TBL_ID BIGINT, PARAM_KEY VARCHAR, PARAM_VALUE VARCHAR)`,
		`INSERT INTO DBS VALUES (1, 'default'), (2, 'sales_db')`,
		`INSERT INTO TBLS VALUES (10, 1, 'sales'), (11, 2, 'sales'), (12, 2, 'bare')`,
		`INSERT INTO TABLE_PARAMS VALUES
			(10, 'numFiles', '1'),
			(11, 'transactional', 'true'),
			(11, 'transactional_properties', 'default'),
			(11, 'comment', NULL)`,
	}
	for _, s := range stmts {
		_, err := db.Exec(s)
		require.NoError(t, err, s)
	}
	return db
}

func TestMetadataRepository_GetTableProperties(t *testing.T) {
	repo := NewMetadataRepository(seedMetastore(t), zerolog.New(zerolog.NewTestWriter(t)))

	tests := []struct {
		name string
		ref  models.TableRef
		want map[string]string
	}{
		{
			name: "qualified",
			ref:  models.TableRef{Database: "sales_db", Name: "sales"},
			want: map[string]string{"transactional": "true", "transactional_properties": "default", "comment": ""},
		},
		{
			name: "names are case insensitive",
			ref:  models.TableRef{Database: "SALES_DB", Name: "Sales"},
			want: map[string]string{"transactional": "true", "transactional_properties": "default", "comment": ""},
		},
		{
			name: "unqualified resolves to default",
			ref:  models.TableRef{Name: "sales"},
			want: map[string]string{"numFiles": "1"},
		},
		{
			name: "table without parameters",
			ref:  models.TableRef{Database: "sales_db", Name: "bare"},
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			props, err := repo.GetTableProperties(context.Background(), nil, tt.ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, props)
		})
	}
}

func TestMetadataRepository_Errors(t *testing.T) {
	db := seedMetastore(t)
	repo := NewMetadataRepository(db, zerolog.Nop())

	_, err := repo.GetTableProperties(context.Background(), nil, models.TableRef{Database: "sales_db", Name: "missing"})
	require.Error(t, err)
	assert.True(t, errors.IsEngine(err))
	assert.Contains(t, err.Error(), "sales_db.missing")

	_, err = repo.GetTableProperties(context.Background(), nil, models.TableRef{})
	assert.Equal(t, errors.CodeInvalidRequest, errors.GetCode(err))

	require.NoError(t, db.Close())
	_, err = repo.GetTableProperties(context.Background(), nil, models.TableRef{Name: "sales"})
	assert.True(t, errors.IsConnection(err))
}

func TestMetadataRepository_SchemaErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup string
	}{
		{"missing params table", `DROP TABLE TABLE_PARAMS`},
		{"missing tables table", `DROP TABLE TBLS`},
		{"unexpected param columns", `ALTER TABLE TABLE_PARAMS RENAME COLUMN PARAM_KEY TO PKEY`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := seedMetastore(t)
			_, err := db.Exec(tt.setup)
			require.NoError(t, err)

			repo := NewMetadataRepository(db, zerolog.New(zerolog.NewTestWriter(t)))
			_, err = repo.GetTableProperties(context.Background(), nil, models.TableRef{Database: "sales_db", Name: "sales"})
			require.Error(t, err)
			assert.True(t, errors.IsEngine(err))
			assert.False(t, errors.IsConnection(err))
		})
	}
}

func TestMetadataRepository_Canceled(t *testing.T) {
	repo := NewMetadataRepository(seedMetastore(t), zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.GetTableProperties(ctx, nil, models.TableRef{Name: "sales"})
	assert.Equal(t, errors.CodeCanceled, errors.GetCode(err))
}
