package pgdumprun

import (
	"context"
	"io"
)

// Session is a live connection to a single database. Dump execution relies on
// autocommit semantics: each Exec commits on its own, so a failed statement
// rolls back alone and later statements still see earlier committed DDL.
// Autocommit is also what allows embedded CREATE DATABASE statements, which
// cannot run inside a transaction block.
//
// Thread-Safety: NOT safe for concurrent use. The runner is strictly
// sequential by design; a dump's correctness depends on execution order.
type Session interface {
	// Exec executes a single SQL statement verbatim.
	Exec(ctx context.Context, sql string) error

	// CopyFrom executes a COPY ... FROM stdin statement, streaming the
	// literal data rows from r. Returns the number of rows copied.
	CopyFrom(ctx context.Context, copySQL string, r io.Reader) (int64, error)

	// Database returns the name of the database this session is connected to.
	Database() string

	// Close terminates the connection. Idempotent.
	Close(ctx context.Context) error
}

// Connector opens sessions against a chosen database. The runner opens a new
// session at every \connect boundary; implementations handle authentication
// and transient-failure retry.
type Connector interface {
	// Connect establishes a session to the named database. An empty name
	// connects to the connector's configured default database.
	Connect(ctx context.Context, database string) (Session, error)
}
