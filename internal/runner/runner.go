// Package runner executes parsed dump segments against PostgreSQL.
//
// Execution is deliberately best-effort: every statement runs in its own
// implicit transaction (no explicit BEGIN is ever issued), a failing
// statement is reported and skipped, and the run continues. Only a missing
// dump file or a failure to reach the server aborts the run. This mirrors
// how psql replays pg_dumpall output onto a cluster that may already hold
// some of the objects.
package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vvka-141/pgdumprun/internal/dump"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// duplicateCodes are the SQLSTATE codes raised when an object being created
// already exists. Statements failing with one of these are counted separately
// from other skips.
var duplicateCodes = map[string]struct{}{
	"42P04": {}, // duplicate_database
	"42P06": {}, // duplicate_schema
	"42P07": {}, // duplicate_table
	"42710": {}, // duplicate_object
	"42712": {}, // duplicate_alias
	"42723": {}, // duplicate_function
}

// Runner replays a dump file through a Connector.
type Runner struct {
	connector pgdumprun.Connector
	logger    pgdumprun.Logger
}

// New creates a Runner. Panics if connector or logger is nil.
func New(connector pgdumprun.Connector, logger pgdumprun.Logger) *Runner {
	if connector == nil {
		panic("connector cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}
	return &Runner{connector: connector, logger: logger}
}

// Run parses the dump file named by config and executes it segment by
// segment, opening a fresh session for each target database. The returned
// report is valid even when err is non-nil and describes the work completed
// up to the failure.
func (r *Runner) Run(ctx context.Context, config pgdumprun.RunConfig) (*pgdumprun.RunReport, error) {
	report := &pgdumprun.RunReport{}

	if err := config.Validate(); err != nil {
		return report, err
	}

	if config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.Timeout)
		defer cancel()
	}

	segments, err := dump.ParseFile(config.DumpPath)
	if err != nil {
		return report, err
	}

	r.logger.Verbose("parsed %s: %d segment(s)", config.DumpPath, len(segments))

	for _, segment := range segments {
		database := segment.Database
		if database == "" {
			database = config.DefaultDatabase
		}

		if err := r.runSegment(ctx, database, segment, report); err != nil {
			return report, err
		}
		report.Segments++
	}

	r.logger.Info("done: %d statement(s), %d COPY block(s), %d row(s) copied, %d skipped (%d already existed)",
		report.Statements, report.CopyBlocks, report.RowsCopied, report.Skipped, report.AlreadyExists)

	return report, nil
}

func (r *Runner) runSegment(ctx context.Context, database string, segment dump.Segment, report *pgdumprun.RunReport) error {
	session, err := r.connector.Connect(ctx, database)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := session.Close(context.Background()); closeErr != nil {
			r.logger.Verbose("failed to close session to %s: %v", database, closeErr)
		}
	}()

	r.logger.Verbose("executing %d unit(s) against %s", len(segment.Units), session.Database())

	for _, unit := range segment.Units {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		switch unit.Kind {
		case dump.KindCopy:
			if err := r.runCopy(ctx, session, unit, report); err != nil {
				return err
			}
		default:
			if err := r.runStatement(ctx, session, unit, report); err != nil {
				return err
			}
		}
	}

	return nil
}

func (r *Runner) runStatement(ctx context.Context, session pgdumprun.Session, unit dump.Unit, report *pgdumprun.RunReport) error {
	err := session.Exec(ctx, unit.SQL)
	if err == nil {
		report.Statements++
		return nil
	}
	return r.recordExecError(err, unit.SQL, report)
}

func (r *Runner) runCopy(ctx context.Context, session pgdumprun.Session, unit dump.Unit, report *pgdumprun.RunReport) error {
	payload := ""
	if len(unit.Data) > 0 {
		payload = strings.Join(unit.Data, "\n") + "\n"
	}

	rows, err := session.CopyFrom(ctx, unit.SQL, strings.NewReader(payload))
	if err != nil {
		return r.recordExecError(err, unit.SQL, report)
	}

	report.CopyBlocks++
	report.RowsCopied += rows
	r.logger.Verbose("copied %d row(s): %s", rows, statementPreview(unit.SQL))
	return nil
}

// recordExecError applies the skip policy to a failed unit. Server-reported
// errors are tolerated; anything else means the connection itself is gone
// and the run cannot meaningfully continue.
func (r *Runner) recordExecError(err error, sql string, report *pgdumprun.RunReport) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %w", pgdumprun.ErrConnectionFailed, err)
	}

	report.Skipped++

	if isAlreadyExists(pgErr) {
		report.AlreadyExists++
		r.logger.Verbose("already exists, skipping: %s", statementPreview(sql))
		return nil
	}

	r.logger.Warn("statement failed (%s), skipping: %s: %s", pgErr.Code, pgErr.Message, statementPreview(sql))
	return nil
}

func isAlreadyExists(pgErr *pgconn.PgError) bool {
	if _, ok := duplicateCodes[pgErr.Code]; ok {
		return true
	}
	return strings.Contains(strings.ToLower(pgErr.Message), "already exists")
}

// statementPreview returns a single-line, length-capped rendering of a
// statement for log output.
func statementPreview(sql string) string {
	s := strings.Join(strings.Fields(sql), " ")
	if len(s) > pgdumprun.MaxErrorPreviewLength {
		s = s[:pgdumprun.MaxErrorPreviewLength] + "..."
	}
	return s
}
