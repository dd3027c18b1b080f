package services

import (
	"context"
	"time"

	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// Session is the view of an engine session the dispatcher works against.
type Session interface {
	repositories.Executor
	// ID returns the session identifier.
	ID() string
	// Database returns the current database.
	Database() string
	// SetDatabase changes the current database.
	SetDatabase(db string)
	// IsClosed reports whether the session has been closed.
	IsClosed() bool
	// Exec executes a status-only statement.
	Exec(ctx context.Context, query string) (*models.ExecStatus, error)
}

// DispatchService routes classified statements to the engine.
type DispatchService interface {
	Dispatch(ctx context.Context, sess Session, stmt *models.Statement) (*models.ResultEnvelope, error)
	DispatchText(ctx context.Context, sess Session, text string) (*models.ResultEnvelope, error)
	RunScript(ctx context.Context, sess Session, script string, continueOnError bool) ([]*models.ResultEnvelope, error)
}

// MetadataService answers table metadata questions for the dispatcher.
type MetadataService interface {
	GetTableProperties(ctx context.Context, exec repositories.Executor, ref models.TableRef) (map[string]string, error)
	IsTransactional(ctx context.Context, exec repositories.Executor, ref models.TableRef) (bool, error)
	Invalidate(ref models.TableRef)
	InvalidateDatabase(database string)
}

// Logger defines logging interface.
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// MetricsCollector defines metrics collection interface.
type MetricsCollector interface {
	IncrementCounter(name string, labels ...string)
	RecordHistogram(name string, value float64, labels ...string)
	RecordGauge(name string, value float64, labels ...string)
	StartTimer(name string) Timer
}

// Timer represents a timing measurement.
type Timer interface {
	Stop() time.Duration
}
