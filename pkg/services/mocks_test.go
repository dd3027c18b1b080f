package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// mockLogger implements Logger
type mockLogger struct {
	debugFunc func(msg string, keysAndValues ...interface{})
	infoFunc  func(msg string, keysAndValues ...interface{})
	warnFunc  func(msg string, keysAndValues ...interface{})
	errorFunc func(msg string, keysAndValues ...interface{})
}

func (m *mockLogger) Debug(msg string, keysAndValues ...interface{}) {
	if m.debugFunc != nil {
		m.debugFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	if m.infoFunc != nil {
		m.infoFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	if m.warnFunc != nil {
		m.warnFunc(msg, keysAndValues...)
	}
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	if m.errorFunc != nil {
		m.errorFunc(msg, keysAndValues...)
	}
}

// mockMetricsCollector implements MetricsCollector and records counter names.
type mockMetricsCollector struct {
	mu       sync.Mutex
	counters map[string]int
}

func (m *mockMetricsCollector) IncrementCounter(name string, labels ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[string]int)
	}
	m.counters[name]++
}

func (m *mockMetricsCollector) RecordHistogram(name string, value float64, labels ...string) {}

func (m *mockMetricsCollector) RecordGauge(name string, value float64, labels ...string) {}

func (m *mockMetricsCollector) StartTimer(name string) Timer {
	return &mockTimer{}
}

func (m *mockMetricsCollector) count(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

// mockTimer implements Timer
type mockTimer struct{}

func (m *mockTimer) Stop() time.Duration {
	return 0
}

// MockSession is a testify mock of Session. The current database is real
// state so that USE semantics can be asserted.
type MockSession struct {
	mock.Mock
	database string
	closed   bool
}

func newMockSession(db string) *MockSession {
	return &MockSession{database: db}
}

func (m *MockSession) ID() string { return "test-session" }

func (m *MockSession) Database() string { return m.database }

func (m *MockSession) SetDatabase(db string) { m.database = db }

func (m *MockSession) IsClosed() bool { return m.closed }

func (m *MockSession) Query(ctx context.Context, query string) (*models.RowSet, error) {
	args := m.Called(ctx, query)
	if rs := args.Get(0); rs != nil {
		return rs.(*models.RowSet), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSession) Exec(ctx context.Context, query string) (*models.ExecStatus, error) {
	args := m.Called(ctx, query)
	if st := args.Get(0); st != nil {
		return st.(*models.ExecStatus), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMetadataRepository is a testify mock of repositories.MetadataRepository.
type MockMetadataRepository struct {
	mock.Mock
}

func (m *MockMetadataRepository) GetTableProperties(ctx context.Context, exec repositories.Executor, ref models.TableRef) (map[string]string, error) {
	args := m.Called(ctx, exec, ref)
	if props := args.Get(0); props != nil {
		return props.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMetadataService is a testify mock of MetadataService.
type MockMetadataService struct {
	mock.Mock
}

func (m *MockMetadataService) GetTableProperties(ctx context.Context, exec repositories.Executor, ref models.TableRef) (map[string]string, error) {
	args := m.Called(ctx, exec, ref)
	if props := args.Get(0); props != nil {
		return props.(map[string]string), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockMetadataService) IsTransactional(ctx context.Context, exec repositories.Executor, ref models.TableRef) (bool, error) {
	args := m.Called(ctx, exec, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockMetadataService) Invalidate(ref models.TableRef) {
	m.Called(ref)
}

func (m *MockMetadataService) InvalidateDatabase(database string) {
	m.Called(database)
}
