package hive

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// metadataRepository reads table properties by asking the engine.
type metadataRepository struct {
	logger zerolog.Logger
}

// NewMetadataRepository creates a repository that issues
// SHOW TBLPROPERTIES on the caller's session.
func NewMetadataRepository(logger zerolog.Logger) repositories.MetadataRepository {
	return &metadataRepository{logger: logger}
}

// GetTableProperties returns the properties of ref.
func (r *metadataRepository) GetTableProperties(ctx context.Context, exec repositories.Executor, ref models.TableRef) (map[string]string, error) {
	if exec == nil {
		return nil, errors.New(errors.CodeInvalidRequest, "executor cannot be nil")
	}
	if ref.Name == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "table name cannot be empty")
	}

	query := fmt.Sprintf("SHOW TBLPROPERTIES %s", quoteRef(ref))
	r.logger.Debug().Str("table", ref.String()).Str("query", query).Msg("Looking up table properties")

	rs, err := exec.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	return propertiesFromRows(rs), nil
}

// propertiesFromRows reads (name, value) rows. Older servers return one
// tab-separated column.
func propertiesFromRows(rs *models.RowSet) map[string]string {
	props := make(map[string]string)
	if rs == nil {
		return props
	}
	for _, row := range rs.Rows {
		if len(row) == 0 || row[0] == nil {
			continue
		}
		name, value := fmt.Sprint(row[0]), ""
		switch {
		case len(row) > 1 && row[1] != nil:
			value = fmt.Sprint(row[1])
		case len(row) == 1:
			name, value, _ = strings.Cut(name, "\t")
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		props[name] = strings.TrimSpace(value)
	}
	return props
}

// quoteRef renders ref with backtick-quoted parts.
func quoteRef(ref models.TableRef) string {
	if ref.Database == "" {
		return quoteIdent(ref.Name)
	}
	return quoteIdent(ref.Database) + "." + quoteIdent(ref.Name)
}

func quoteIdent(s string) string {
	s = strings.Trim(s, "`")
	return "`" + strings.ReplaceAll(s, "`", "``") + "`"
}
