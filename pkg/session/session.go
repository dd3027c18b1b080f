// Package session holds one logical connection to an external engine.
package session

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
	"github.com/TFMV/hivesql/pkg/repositories"
)

// keepAliveTimeout bounds a single keep-alive ping.
const keepAliveTimeout = 5 * time.Second

// Session is one authenticated connection plus its current database. A
// session runs one statement at a time.
type Session struct {
	id     string
	cfg    Config
	driver repositories.Driver
	logger zerolog.Logger

	// mu serializes statements and guards conn.
	mu   sync.Mutex
	conn repositories.Conn

	database atomic.Value // string
	closed   atomic.Bool

	reconnects atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Open connects to the engine, selects cfg.Database and starts the
// keep-alive routine when configured. A transient connect failure is retried
// once.
func Open(ctx context.Context, cfg Config, driver repositories.Driver, logger zerolog.Logger) (*Session, error) {
	if driver == nil {
		return nil, errors.New(errors.CodeInvalidRequest, "driver cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		id:     uuid.New().String(),
		cfg:    cfg,
		driver: driver,
	}
	s.logger = logger.With().
		Str("component", "session").
		Str("session", s.id).
		Str("driver", driver.Name()).
		Logger()
	s.database.Store(models.DefaultDatabase)

	s.logger.Info().
		Str("target", cfg.target()).
		Str("auth", cfg.Auth).
		Str("transport", cfg.TransportMode).
		Str("database", cfg.Database).
		Msg("Opening session")

	err := backoff.Retry(func() error {
		conn, err := s.connect(ctx)
		if err != nil {
			if isRetryable(err) {
				s.logger.Warn().Err(err).Msg("Connect failed, retrying once")
				return err
			}
			return backoff.Permanent(err)
		}
		s.conn = conn
		return nil
	}, retryPolicy(ctx))
	if err != nil {
		return nil, classifyConnectError(classifyError(err), cfg)
	}

	if cfg.Database != models.DefaultDatabase {
		if err := s.use(ctx, s.conn, cfg.Database); err != nil {
			_ = s.conn.Close()
			return nil, err
		}
	}
	s.database.Store(cfg.Database)

	if cfg.KeepAliveInterval > 0 {
		kaCtx, cancel := context.WithCancel(context.Background())
		s.cancel = cancel
		s.wg.Add(1)
		go s.keepAlive(kaCtx)
	}

	s.logger.Info().Msg("Session opened")
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Database returns the current database.
func (s *Session) Database() string { return s.database.Load().(string) }

// SetDatabase records the current database after a successful USE.
func (s *Session) SetDatabase(db string) {
	if db == "" {
		return
	}
	s.database.Store(db)
}

// IsClosed reports whether Close was called.
func (s *Session) IsClosed() bool { return s.closed.Load() }

// Reconnects returns how many times the connection was re-established.
func (s *Session) Reconnects() int64 { return s.reconnects.Load() }

// Query forwards a row-returning statement.
func (s *Session) Query(ctx context.Context, query string) (*models.RowSet, error) {
	var rs *models.RowSet
	err := s.run(ctx, query, func(conn repositories.Conn) error {
		var err error
		rs, err = conn.Query(ctx, query)
		return err
	})
	return rs, err
}

// Exec forwards a statement that returns a status.
func (s *Session) Exec(ctx context.Context, query string) (*models.ExecStatus, error) {
	var st *models.ExecStatus
	err := s.run(ctx, query, func(conn repositories.Conn) error {
		var err error
		st, err = conn.Exec(ctx, query)
		return err
	})
	return st, err
}

// Execute forwards stmt as a query or a status statement depending on
// whether its category yields rows.
func (s *Session) Execute(ctx context.Context, stmt *models.Statement) (models.RawResponse, error) {
	if stmt == nil {
		return nil, errors.New(errors.CodeInvalidRequest, "statement cannot be nil")
	}
	if stmt.ExpectsRowSet() {
		rs, err := s.Query(ctx, stmt.Raw)
		if err != nil || rs == nil {
			return nil, err
		}
		return rs, nil
	}
	st, err := s.Exec(ctx, stmt.Raw)
	if err != nil || st == nil {
		return nil, err
	}
	return st, nil
}

// IsAlive pings the engine.
func (s *Session) IsAlive(ctx context.Context) bool {
	if s.closed.Load() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return false
	}
	return s.conn.Ping(ctx) == nil
}

// Close stops the keep-alive routine and releases the connection. Closing
// twice is a no-op.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.logger.Info().Msg("Closing session")

	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	if err != nil {
		return errors.Wrap(err, errors.CodeConnectionFailed, "failed to close session")
	}
	return nil
}

// run executes op on the current connection. A transient failure triggers
// one reconnect followed by one more attempt.
func (s *Session) run(ctx context.Context, query string, op func(repositories.Conn) error) error {
	if s.closed.Load() {
		return errors.ErrSessionDone
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return errors.ErrSessionDone
	}

	start := time.Now()
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		if attempt > 1 || s.conn == nil {
			if err := s.reconnect(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		err := op(s.conn)
		if err == nil {
			return nil
		}
		err = classifyError(err)
		if isRetryable(err) {
			s.logger.Warn().Err(err).Int("attempt", attempt).Msg("Connection lost during statement")
			return err
		}
		return backoff.Permanent(err)
	}, retryPolicy(ctx))

	s.logger.Debug().
		Err(err).
		Dur("duration", time.Since(start)).
		Str("query", truncateQuery(query)).
		Int("attempts", attempt).
		Bool("success", err == nil).
		Msg("Statement forwarded")

	return classifyError(err)
}

// reconnect replaces the connection and restores the current database. The
// caller holds mu.
func (s *Session) reconnect(ctx context.Context) error {
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Debug().Err(err).Msg("Closing broken connection failed")
		}
		s.conn = nil
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return classifyConnectError(err, s.cfg)
	}

	if db := s.Database(); db != models.DefaultDatabase {
		if err := s.use(ctx, conn, db); err != nil {
			_ = conn.Close()
			return err
		}
	}

	s.conn = conn
	s.reconnects.Add(1)
	s.logger.Info().Str("database", s.Database()).Msg("Session reconnected")
	return nil
}

func (s *Session) connect(ctx context.Context) (repositories.Conn, error) {
	connCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	defer cancel()

	conn, err := s.driver.Open(connCtx, s.cfg.ConnConfig())
	if err != nil {
		if ctx.Err() == nil && connCtx.Err() != nil {
			return nil, errors.Wrapf(err, errors.CodeConnectionFailed, "connect timed out after %s", s.cfg.ConnectTimeout)
		}
		return nil, classifyError(err)
	}
	return conn, nil
}

func (s *Session) use(ctx context.Context, conn repositories.Conn, db string) error {
	if _, err := conn.Exec(ctx, "USE "+db); err != nil {
		err = classifyError(err)
		var e *errors.Error
		if errors.As(err, &e) {
			return err
		}
		return errors.Wrapf(err, errors.CodeEngine, "failed to select database %s", db)
	}
	return nil
}

// keepAlive pings the engine while the session is idle until ctx is
// cancelled. A failed ping is logged and not retried.
func (s *Session) keepAlive(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.KeepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.mu.TryLock() {
				// a statement is in flight
				continue
			}
			if s.conn != nil {
				pingCtx, cancel := context.WithTimeout(ctx, keepAliveTimeout)
				if err := s.conn.Ping(pingCtx); err != nil && ctx.Err() == nil {
					s.logger.Warn().Err(err).Msg("Keep-alive ping failed")
				}
				cancel()
			}
			s.mu.Unlock()
		}
	}
}

// retryPolicy allows exactly one immediate retry.
func retryPolicy(ctx context.Context) backoff.BackOffContext {
	return backoff.WithContext(backoff.WithMaxRetries(&backoff.ZeroBackOff{}, 1), ctx)
}

// transientErrors are transport failures reported by the network stack.
var transientErrors = []error{
	io.EOF,
	io.ErrUnexpectedEOF,
	net.ErrClosed,
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.EPIPE,
	syscall.ETIMEDOUT,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
}

// transientMessages match transport failures that only survive as text.
// Engine messages quote tokens such as '<EOF>', so bare words are not
// enough.
var transientMessages = []string{
	"connection refused",
	"connection reset by peer",
	"broken pipe",
	"i/o timeout",
	"driver: bad connection",
	"no route to host",
	"network is unreachable",
}

var authPatterns = []string{
	"error validating the login",
	"authentication failed",
	"access denied",
	"bad credentials",
	"unauthorized",
	"login failed",
}

// classifyError maps raw driver errors to CONNECTION_FAILED or UNAUTHORIZED
// where the message allows it. Other errors pass through unchanged.
func classifyError(err error) error {
	if err == nil {
		return nil
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	if ctxErr := errors.FromContext(err); ctxErr != err {
		return ctxErr
	}

	if isTransportError(err) {
		return errors.Wrap(err, errors.CodeConnectionFailed, "connection lost")
	}

	msg := strings.ToLower(err.Error())
	for _, p := range authPatterns {
		if strings.Contains(msg, p) {
			return errors.Wrap(err, errors.CodeUnauthorized, "authentication rejected")
		}
	}
	for _, p := range transientMessages {
		if strings.Contains(msg, p) {
			return errors.Wrap(err, errors.CodeConnectionFailed, "connection lost")
		}
	}
	return err
}

func isTransportError(err error) bool {
	for _, target := range transientErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	var ne net.Error
	return errors.As(err, &ne)
}

// classifyConnectError makes every connect failure a connection error unless
// it already carries a code.
func classifyConnectError(err error, cfg Config) error {
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Wrapf(err, errors.CodeConnectionFailed, "failed to connect to %s", cfg.target())
}

func isRetryable(err error) bool {
	return errors.IsConnection(err)
}

func truncateQuery(query string) string {
	const maxLen = 200
	query = strings.Join(strings.Fields(query), " ")
	if len(query) <= maxLen {
		return query
	}
	return query[:maxLen] + "..."
}
