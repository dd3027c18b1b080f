package services

import (
	"context"
	"strings"

	"github.com/TFMV/hivesql/pkg/cache"
	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// TransactionalProperty is the table property marking an ACID table.
const TransactionalProperty = "transactional"

// metadataService implements MetadataService interface.
type metadataService struct {
	repo    repositories.MetadataRepository
	cache   cache.Cache
	logger  Logger
	metrics MetricsCollector
}

// NewMetadataService creates a new metadata service. c may be nil to
// disable caching.
func NewMetadataService(
	repo repositories.MetadataRepository,
	c cache.Cache,
	logger Logger,
	metrics MetricsCollector,
) MetadataService {
	return &metadataService{
		repo:    repo,
		cache:   c,
		logger:  logger,
		metrics: metrics,
	}
}

// GetTableProperties returns the table properties of a qualified table.
func (s *metadataService) GetTableProperties(ctx context.Context, exec repositories.Executor, ref models.TableRef) (map[string]string, error) {
	timer := s.metrics.StartTimer("metadata_get_table_properties")
	defer timer.Stop()

	if ref.Name == "" {
		return nil, errors.New(errors.CodeInvalidRequest, "table name cannot be empty")
	}

	key := cacheKey(ref)
	if s.cache != nil {
		if props, ok := s.cache.Get(key); ok {
			s.metrics.IncrementCounter("metadata_cache_hits")
			s.logger.Debug("Table properties served from cache", "table", key)
			return props, nil
		}
		s.metrics.IncrementCounter("metadata_cache_misses")
	}

	s.logger.Debug("Looking up table properties", "table", key)

	props, err := s.repo.GetTableProperties(ctx, exec, ref)
	if err != nil {
		s.metrics.IncrementCounter("metadata_errors", "operation", "get_table_properties")
		s.logger.Error("Failed to get table properties", "error", err, "table", key)
		return nil, wrapLookupError(err, ref)
	}

	if s.cache != nil {
		s.cache.Put(key, props)
	}

	s.logger.Debug("Retrieved table properties", "table", key, "count", len(props))
	return props, nil
}

// IsTransactional reports whether the table has transactional=true.
func (s *metadataService) IsTransactional(ctx context.Context, exec repositories.Executor, ref models.TableRef) (bool, error) {
	props, err := s.GetTableProperties(ctx, exec, ref)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(props[TransactionalProperty]), "true"), nil
}

// Invalidate drops any cached properties of ref.
func (s *metadataService) Invalidate(ref models.TableRef) {
	if s.cache == nil {
		return
	}
	s.cache.Delete(cacheKey(ref))
}

// InvalidateDatabase drops the cached properties of every table in database.
func (s *metadataService) InvalidateDatabase(database string) {
	if s.cache == nil || database == "" {
		return
	}
	n := s.cache.DeletePrefix(strings.ToLower(database) + ".")
	s.logger.Debug("Invalidated cached table properties", "database", database, "entries", n)
}

// cacheKey is case-insensitive because Hive identifiers are.
func cacheKey(ref models.TableRef) string {
	return strings.ToLower(ref.String())
}

// wrapLookupError keeps coded transport errors and reports everything else
// as an engine failure.
func wrapLookupError(err error, ref models.TableRef) error {
	switch errors.GetCode(err) {
	case errors.CodeConnectionFailed, errors.CodeUnauthorized, errors.CodeDeadlineExceeded, errors.CodeCanceled:
		return err
	}
	return errors.Wrapf(err, errors.CodeEngine, "metadata lookup for %s failed", ref)
}
