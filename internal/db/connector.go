package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/vvka-141/pgdumprun/internal/retry"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// StandardConnector implements the pgdumprun.Connector interface for standard
// username/password authentication with automatic retry on transient failures.
//
// It opens a single connection per Connect call rather than a pool: dump
// execution is strictly sequential and reconnects at every \connect boundary,
// so connection affinity matters and pooling buys nothing.
type StandardConnector struct {
	config        *pgdumprun.ConnectionConfig
	logger        pgdumprun.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// Retry behavior uses pgdumprun defaults: DefaultRetryMaxAttempts attempts,
// exponential backoff starting at DefaultRetryInitialDelay, max DefaultRetryMaxDelay.
// Panics if config or logger is nil (programmer error).
func NewStandardConnector(config *pgdumprun.ConnectionConfig, logger pgdumprun.Logger) *StandardConnector {
	if config == nil {
		panic("config cannot be nil")
	}
	if logger == nil {
		panic("logger cannot be nil")
	}

	classifier := retry.NewConnectionErrorClassifier()
	strategy := retry.NewExponentialBackoff(pgdumprun.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(pgdumprun.DefaultRetryInitialDelay),
		retry.WithMaxDelay(pgdumprun.DefaultRetryMaxDelay),
	)

	executor := retry.NewExecutor(classifier, strategy)

	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: executor,
	}
}

// Connect establishes a session to the named database with automatic retry.
// An empty database name connects to the configured default database.
func (c *StandardConnector) Connect(ctx context.Context, database string) (pgdumprun.Session, error) {
	target := *c.config
	if database != "" {
		target.Database = database
	}

	connConfig, err := pgx.ParseConfig(BuildConnectionString(&target))
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection config: %w", err)
	}

	// Surface server NOTICE messages (dumps are chatty about implicit
	// indexes, sequence ownership, etc.)
	connConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		c.logger.Verbose("server notice: %s", notice.Message)
	}

	executor := c.retryExecutor.WithOnRetry(func(attempt int, err error, delay time.Duration) {
		c.logger.Verbose("connection attempt %d to %q failed (%v), retrying in %s",
			attempt+1, target.Database, err, delay)
	})

	var conn *pgx.Conn
	err = executor.Execute(ctx, func(ctx context.Context) error {
		var connectErr error
		conn, connectErr = pgx.ConnectConfig(ctx, connConfig)
		if connectErr != nil {
			return wrapConnectionError(connectErr, target.Host, target.Port, target.Database)
		}

		// Test the connection
		if pingErr := conn.Ping(ctx); pingErr != nil {
			_ = conn.Close(ctx)
			return wrapConnectionError(pingErr, target.Host, target.Port, target.Database)
		}

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("%w: %w", pgdumprun.ErrConnectionFailed, err)
	}

	return newSession(conn, target.Database), nil
}

// wrapConnectionError wraps raw pgx connection errors with actionable guidance.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %w`, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable
  - Network connection issue

Original error: %w`, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`password authentication failed for database "%s"

Possible causes:
  - Wrong password (check $PGPASSWORD or ~/.pgpass)
  - Wrong username
  - User does not have access to the database

Original error: %w`, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`database "%s" does not exist

A dump that targets it with \connect must create it first
(pg_dump --create emits the CREATE DATABASE statement), or create it manually:
  createdb %s

Original error: %w`, database, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Network latency or packet loss
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`SSL/TLS connection error

Possible causes:
  - Server requires SSL but --sslmode is wrong
  - Certificate verification failed (try --sslmode=require)

Original error: %w`, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale connections from previous imports

Try: SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = '%s';

Original error: %w`, database, database, err)

	default:
		return fmt.Errorf("failed to connect to database: %w", err)
	}
}

// Verify StandardConnector implements the Connector interface at compile time
var _ pgdumprun.Connector = (*StandardConnector)(nil)
