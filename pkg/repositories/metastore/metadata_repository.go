// Package metastore reads table metadata directly from the relational
// database backing the Hive metastore.
package metastore

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
	"github.com/TFMV/hivesql/pkg/repositories/sqldb"
)

// Hive stores database and table names lower-cased.
const (
	tableIDQuery = `SELECT t.TBL_ID
FROM TBLS t
JOIN DBS d ON t.DB_ID = d.DB_ID
WHERE d.NAME = ? AND t.TBL_NAME = ?`

	tableParamsQuery = `SELECT PARAM_KEY, PARAM_VALUE
FROM TABLE_PARAMS
WHERE TBL_ID = ?`
)

// metadataRepository implements repositories.MetadataRepository against the
// metastore schema (DBS, TBLS, TABLE_PARAMS).
type metadataRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewMetadataRepository creates a repository over an open metastore
// database.
func NewMetadataRepository(db *sql.DB, logger zerolog.Logger) repositories.MetadataRepository {
	return &metadataRepository{
		db:     db,
		logger: logger.With().Str("component", "metastore").Logger(),
	}
}

// GetTableProperties returns the TABLE_PARAMS of ref. The executor is not
// used; the lookup never touches the engine.
func (r *metadataRepository) GetTableProperties(ctx context.Context, _ repositories.Executor, ref models.TableRef) (map[string]string, error) {
	if ref.Name == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "table name cannot be empty")
	}
	ref = ref.Resolve(models.DefaultDatabase)
	dbName := strings.ToLower(ref.Database)
	tblName := strings.ToLower(ref.Name)

	r.logger.Debug().Str("database", dbName).Str("table", tblName).Msg("Looking up table parameters")

	var tblID int64
	err := r.db.QueryRowContext(ctx, tableIDQuery, dbName, tblName).Scan(&tblID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, errors.Newf(errors.CodeEngine, "table %s.%s not found in metastore", dbName, tblName).
			WithDetail("table", dbName+"."+tblName)
	case err != nil:
		return nil, lookupError(err, "metastore query failed")
	}

	rows, err := r.db.QueryContext(ctx, tableParamsQuery, tblID)
	if err != nil {
		return nil, lookupError(err, "metastore query failed")
	}
	defer rows.Close()

	props := make(map[string]string)
	for rows.Next() {
		var key string
		var value sql.NullString
		if err := rows.Scan(&key, &value); err != nil {
			return nil, lookupError(err, "failed to scan table parameter")
		}
		props[key] = value.String
	}
	if err := rows.Err(); err != nil {
		return nil, lookupError(err, "metastore query failed")
	}

	r.logger.Debug().Int("params", len(props)).Msg("Table parameters loaded")
	return props, nil
}

// lookupError keeps context and transport failures and reports everything
// else, such as a missing table or an unexpected schema, as an engine error.
func lookupError(err error, msg string) error {
	if ctxErr := errors.FromContext(err); ctxErr != err {
		return ctxErr
	}
	err = sqldb.ClassifyError(err)
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Wrap(err, errors.CodeEngine, msg)
}
