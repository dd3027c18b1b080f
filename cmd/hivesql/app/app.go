// Package app wires the engine driver, session, metadata lookup and
// dispatcher behind the CLI commands.
package app

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/cmd/hivesql/config"
	"github.com/TFMV/hivesql/pkg/cache"
	"github.com/TFMV/hivesql/pkg/infrastructure/metrics"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
	"github.com/TFMV/hivesql/pkg/repositories/hive"
	"github.com/TFMV/hivesql/pkg/repositories/metastore"
	"github.com/TFMV/hivesql/pkg/repositories/sqldb"
	"github.com/TFMV/hivesql/pkg/services"
	"github.com/TFMV/hivesql/pkg/session"
)

// App is one CLI invocation: a session plus the services that act on it.
type App struct {
	cfg           *config.Config
	logger        zerolog.Logger
	session       *session.Session
	dispatcher    services.DispatchService
	metrics       metrics.Collector
	metricsServer *metrics.MetricsServer
	metastore     *sql.DB
}

// New opens the session described by cfg. cfg must be validated.
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewNoOpCollector(),
	}

	if cfg.Metrics.Enabled {
		a.metrics = metrics.NewPrometheusCollector()
		a.metricsServer = metrics.NewMetricsServer(cfg.Metrics.Address)
		go func() {
			logger.Info().Str("address", cfg.Metrics.Address).Msg("Starting metrics server")
			if err := a.metricsServer.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start metrics server")
			}
		}()
	}

	driver, err := NewDriver(cfg.Driver, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	repo, err := a.metadataRepository(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	var propCache cache.Cache
	if cfg.Cache.Enabled {
		propCache = cache.NewPropertyCache(cache.DefaultConfig().
			WithMaxEntries(cfg.Cache.MaxEntries).
			WithTTL(cfg.Cache.TTL))
	}

	svcLogger := &loggerAdapter{logger: logger}
	svcMetrics := &serviceMetricsAdapter{collector: a.metrics}
	metadata := services.NewMetadataService(repo, propCache, svcLogger, svcMetrics)
	a.dispatcher = services.NewDispatcher(metadata, svcLogger, svcMetrics)

	sess, err := session.Open(ctx, cfg.Session, driver, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.session = sess

	return a, nil
}

// NewDriver returns the engine driver registered under name.
func NewDriver(name string, logger zerolog.Logger) (repositories.Driver, error) {
	if name == config.DriverHive {
		return hive.NewDriver(logger), nil
	}
	return sqldb.NewDriver(name, logger)
}

// metadataRepository reads the metastore database when one is configured
// and asks the engine otherwise.
func (a *App) metadataRepository(ctx context.Context) (repositories.MetadataRepository, error) {
	if a.cfg.Metastore.DSN == "" {
		return hive.NewMetadataRepository(a.logger), nil
	}

	db, err := sqldb.OpenDB(ctx, a.cfg.Metastore.Driver, a.cfg.Metastore.DSN)
	if err != nil {
		return nil, err
	}
	a.metastore = db
	a.logger.Debug().Str("driver", a.cfg.Metastore.Driver).Msg("Reading table properties from metastore")
	return metastore.NewMetadataRepository(db, a.logger), nil
}

// Session returns the open session.
func (a *App) Session() *session.Session {
	return a.session
}

// Execute classifies and dispatches one statement.
func (a *App) Execute(ctx context.Context, text string) (*models.ResultEnvelope, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.dispatcher.DispatchText(ctx, a.session, text)
}

// RunScript dispatches every statement of script. The configured timeout
// bounds the whole script.
func (a *App) RunScript(ctx context.Context, script string) ([]*models.ResultEnvelope, error) {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	return a.dispatcher.RunScript(ctx, a.session, script, a.cfg.ContinueOnError)
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// Close closes the session, the metastore database and the metrics server.
func (a *App) Close() error {
	var errs []error
	if a.session != nil {
		errs = append(errs, a.session.Close())
	}
	if a.metastore != nil {
		errs = append(errs, a.metastore.Close())
	}
	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.metricsServer.Stop(ctx))
	}
	return stderrors.Join(errs...)
}
