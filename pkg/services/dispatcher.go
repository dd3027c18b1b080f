package services

import (
	"context"
	"time"

	"github.com/TFMV/hivesql/pkg/errors"
	"github.com/TFMV/hivesql/pkg/models"
)

// dispatcher implements DispatchService.
type dispatcher struct {
	metadata   MetadataService
	classifier *StatementClassifier
	formatter  *ResultFormatter
	logger     Logger
	metrics    MetricsCollector
}

// NewDispatcher creates a dispatcher. metadata answers the ACID check for
// UPDATE, DELETE and MERGE.
func NewDispatcher(metadata MetadataService, logger Logger, metrics MetricsCollector) DispatchService {
	return &dispatcher{
		metadata:   metadata,
		classifier: NewStatementClassifier(),
		formatter:  NewResultFormatter(),
		logger:     logger,
		metrics:    metrics,
	}
}

var transitions = map[models.DispatchState][]models.DispatchState{
	models.StateReceived:  {models.StateValidated, models.StateFailed},
	models.StateValidated: {models.StateForwarded, models.StateFailed},
	models.StateForwarded: {models.StateCompleted, models.StateFailed},
}

// run tracks one statement through the dispatch state machine.
type run struct {
	state  models.DispatchState
	stmt   *models.Statement
	start  time.Time
	logger Logger
}

func (r *run) advance(next models.DispatchState) error {
	for _, allowed := range transitions[r.state] {
		if allowed == next {
			r.logger.Debug("Statement state change", "from", r.state, "to", next, "action", r.stmt.Action)
			r.state = next
			return nil
		}
	}
	return errors.Newf(errors.CodeInternal, "illegal dispatch transition %s -> %s", r.state, next)
}

// Dispatch validates stmt, forwards it on sess and formats the result. The
// returned envelope is never nil; on failure it carries the error detail and
// the same error is returned.
func (d *dispatcher) Dispatch(ctx context.Context, sess Session, stmt *models.Statement) (env *models.ResultEnvelope, err error) {
	timer := d.metrics.StartTimer("statement_dispatch")
	defer timer.Stop()

	if stmt == nil {
		return d.fail(nil, sess, nil, errors.New(errors.CodeInvalidRequest, "statement cannot be nil"))
	}

	r := &run{state: models.StateReceived, stmt: stmt, start: time.Now(), logger: d.logger}

	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Panic during dispatch", "panic", p, "action", stmt.Action)
			env, err = d.fail(r, sess, stmt, errors.Newf(errors.CodeInternal, "panic during dispatch: %v", p))
		}
	}()

	if sess == nil || sess.IsClosed() {
		return d.fail(r, sess, stmt, errors.ErrSessionDone)
	}

	d.logger.Debug("Dispatching statement",
		"session", sess.ID(),
		"database", sess.Database(),
		"category", stmt.Category,
		"action", stmt.Action)

	if err := d.validate(ctx, sess, stmt); err != nil {
		return d.fail(r, sess, stmt, err)
	}
	if err := r.advance(models.StateValidated); err != nil {
		return d.fail(r, sess, stmt, err)
	}

	if err := r.advance(models.StateForwarded); err != nil {
		return d.fail(r, sess, stmt, err)
	}
	raw, err := d.forward(ctx, sess, stmt)
	if err != nil {
		return d.fail(r, sess, stmt, d.wrapEngineError(err))
	}

	env = d.formatter.Format(raw)
	if !env.Succeeded() {
		return d.fail(r, sess, stmt, errors.New(errors.CodeEngine, env.Error.Message))
	}

	d.applySessionEffects(sess, stmt)

	if err := r.advance(models.StateCompleted); err != nil {
		return d.fail(r, sess, stmt, err)
	}
	env.State = r.state
	env.Category = stmt.Category
	env.Action = stmt.Action
	env.Database = sess.Database()
	env.ExecutionTime = time.Since(r.start)

	d.metrics.IncrementCounter("statements_total", "category", string(stmt.Category), "status", string(models.StatusSuccess))
	d.metrics.RecordHistogram("statement_duration_seconds", env.ExecutionTime.Seconds(), "category", string(stmt.Category))
	if env.Rows != nil {
		d.metrics.RecordHistogram("statement_result_rows", float64(len(env.Rows)))
	}

	d.logger.Info("Statement completed",
		"session", sess.ID(),
		"category", stmt.Category,
		"action", stmt.Action,
		"rows", len(env.Rows),
		"execution_time", env.ExecutionTime)

	return env, nil
}

// DispatchText classifies text and dispatches it.
func (d *dispatcher) DispatchText(ctx context.Context, sess Session, text string) (*models.ResultEnvelope, error) {
	stmt, err := d.classifier.Classify(text)
	if err != nil {
		d.metrics.IncrementCounter("statement_parse_errors")
		d.logger.Warn("Statement could not be classified", "error", err)
		return d.fail(nil, sess, nil, err)
	}
	return d.Dispatch(ctx, sess, stmt)
}

// RunScript dispatches every statement of script in order. It stops at the
// first failure unless continueOnError is set, in which case the first error
// is returned after all statements ran.
func (d *dispatcher) RunScript(ctx context.Context, sess Session, script string, continueOnError bool) ([]*models.ResultEnvelope, error) {
	stmts := SplitScript(script)
	if len(stmts) == 0 {
		return nil, errors.New(errors.CodeInvalidRequest, "script contains no statements")
	}

	d.logger.Debug("Running script", "statements", len(stmts), "continue_on_error", continueOnError)

	results := make([]*models.ResultEnvelope, 0, len(stmts))
	var firstErr error
	for i, text := range stmts {
		if err := ctx.Err(); err != nil {
			if firstErr == nil {
				firstErr = errors.FromContext(err)
			}
			break
		}

		env, err := d.DispatchText(ctx, sess, text)
		results = append(results, env)
		if err == nil {
			continue
		}
		d.logger.Warn("Script statement failed", "index", i+1, "error", err)
		if firstErr == nil {
			firstErr = err
		}
		if !continueOnError {
			break
		}
	}
	return results, firstErr
}

// validate applies the category-specific checks that run before forwarding.
func (d *dispatcher) validate(ctx context.Context, sess Session, stmt *models.Statement) error {
	if err := d.classifier.ValidateStatement(stmt.Raw); err != nil {
		return err
	}

	switch stmt.Category {
	case models.CategoryPartitionOp:
		return validatePartitionSpec(stmt)

	case models.CategoryDMLUpdate:
		return d.checkTransactional(ctx, sess, stmt)

	case models.CategorySessionOp:
		if stmt.Action == models.ActionUseDatabase && (stmt.Target == nil || stmt.Target.Name == "") {
			return errors.New(errors.CodeValidation, "USE requires a database name")
		}
	}
	return nil
}

var partitionComparators = map[string]bool{
	"=": true, "==": true, "!=": true, "<>": true, "<": true, ">": true, "<=": true, ">=": true,
}

// validatePartitionSpec requires a non-empty spec of column = value entries.
// DROP PARTITION also accepts comparison operators.
func validatePartitionSpec(stmt *models.Statement) error {
	if len(stmt.Partition) == 0 {
		return errors.Newf(errors.CodeValidation, "%s requires a non-empty partition spec", stmt.Action)
	}

	for i, e := range stmt.Partition {
		switch {
		case e.Column == "":
			return errors.Newf(errors.CodeValidation, "partition entry %d has no column", i+1).
				WithDetail("entry", i+1)
		case e.Operator == "" || !e.HasValue:
			return errors.Newf(errors.CodeValidation, "partition column %q has no value", e.Column).
				WithDetail("column", e.Column)
		case e.Value == "":
			return errors.Newf(errors.CodeValidation, "partition column %q has an empty value", e.Column).
				WithDetail("column", e.Column)
		case stmt.Action == models.ActionDropPartition:
			if !partitionComparators[e.Operator] {
				return errors.Newf(errors.CodeValidation, "partition column %q uses unsupported operator %q", e.Column, e.Operator).
					WithDetail("column", e.Column)
			}
		case e.Operator != "=":
			return errors.Newf(errors.CodeValidation, "partition column %q must be assigned with '='", e.Column).
				WithDetail("column", e.Column)
		}
	}
	return nil
}

// checkTransactional rejects UPDATE, DELETE and MERGE on tables that are not
// ACID tables without forwarding the statement.
func (d *dispatcher) checkTransactional(ctx context.Context, sess Session, stmt *models.Statement) error {
	if stmt.Target == nil || stmt.Target.Name == "" {
		return errors.Newf(errors.CodeValidation, "%s has no target table", stmt.Action)
	}
	if d.metadata == nil {
		return errors.Newf(errors.CodeUnsupportedOperation, "%s requires a metadata lookup to confirm the table is transactional", stmt.Action)
	}

	ref := stmt.Target.Resolve(sess.Database())
	ok, err := d.metadata.IsTransactional(ctx, sess, ref)
	if err != nil {
		return err
	}
	if !ok {
		d.metrics.IncrementCounter("acid_check_rejections")
		return errors.Newf(errors.CodeUnsupportedOperation, "%s requires a transactional table; %s is not transactional", stmt.Action, ref).
			WithDetail("table", ref.String())
	}
	return nil
}

func (d *dispatcher) forward(ctx context.Context, sess Session, stmt *models.Statement) (models.RawResponse, error) {
	if stmt.ExpectsRowSet() {
		rs, err := sess.Query(ctx, stmt.Raw)
		if err != nil || rs == nil {
			return nil, err
		}
		return rs, nil
	}

	st, err := sess.Exec(ctx, stmt.Raw)
	if err != nil || st == nil {
		return nil, err
	}
	return st, nil
}

// applySessionEffects updates session context after a successful statement.
func (d *dispatcher) applySessionEffects(sess Session, stmt *models.Statement) {
	switch stmt.Category {
	case models.CategorySessionOp:
		if stmt.Action == models.ActionUseDatabase {
			sess.SetDatabase(stmt.Target.Name)
		}
	case models.CategoryTableDDL, models.CategoryViewOp:
		if d.metadata != nil && stmt.Target != nil {
			d.metadata.Invalidate(stmt.Target.Resolve(sess.Database()))
		}
	case models.CategoryDatabaseDDL:
		if d.metadata != nil && stmt.Action == models.ActionDropDatabase && stmt.Target != nil {
			d.metadata.InvalidateDatabase(stmt.Target.Name)
		}
	}
}

// wrapEngineError keeps errors already coded by the session layer and marks
// everything else as an opaque engine failure.
func (d *dispatcher) wrapEngineError(err error) error {
	if ctxErr := errors.FromContext(err); ctxErr != err {
		return ctxErr
	}
	var e *errors.Error
	if errors.As(err, &e) {
		return err
	}
	return errors.Wrap(err, errors.CodeEngine, "statement failed")
}

func (d *dispatcher) fail(r *run, sess Session, stmt *models.Statement, err error) (*models.ResultEnvelope, error) {
	env := d.formatter.Failure(err)

	category := "UNCLASSIFIED"
	if stmt != nil {
		env.Category = stmt.Category
		env.Action = stmt.Action
		category = string(stmt.Category)
	}
	if sess != nil {
		env.Database = sess.Database()
	}
	if r != nil {
		d.logger.Debug("Statement state change", "from", r.state, "to", models.StateFailed)
		r.state = models.StateFailed
		env.ExecutionTime = time.Since(r.start)
	}

	code := errors.GetCode(err)
	d.metrics.IncrementCounter("statements_total", "category", category, "status", string(models.StatusFailure))
	d.metrics.IncrementCounter("statement_errors", "code", code)

	switch code {
	case errors.CodeEngine, errors.CodeConnectionFailed, errors.CodeUnauthorized, errors.CodeInternal:
		d.logger.Error("Statement failed", "error", err, "code", code, "category", category)
	default:
		d.logger.Warn("Statement rejected", "error", err, "code", code, "category", category)
	}

	return env, err
}
