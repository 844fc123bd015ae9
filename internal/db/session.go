package db

import (
	"context"
	"io"

	"github.com/jackc/pgx/v5"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// Session implements pgdumprun.Session over a single *pgx.Conn.
//
// pgx runs in autocommit mode unless a transaction is opened explicitly, which
// is exactly the execution model a dump needs: each statement commits on its
// own (CREATE DATABASE cannot run inside a transaction block), and a failed
// statement rolls back alone without poisoning the connection.
type Session struct {
	conn     *pgx.Conn
	database string
}

func newSession(conn *pgx.Conn, database string) *Session {
	return &Session{conn: conn, database: database}
}

// Exec executes a single SQL statement verbatim.
func (s *Session) Exec(ctx context.Context, sql string) error {
	_, err := s.conn.Exec(ctx, sql)
	return err
}

// CopyFrom executes a COPY ... FROM stdin statement, streaming the literal
// data rows from r in the server's text COPY format. Returns the number of
// rows copied.
func (s *Session) CopyFrom(ctx context.Context, copySQL string, r io.Reader) (int64, error) {
	tag, err := s.conn.PgConn().CopyFrom(ctx, r, copySQL)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Database returns the name of the database this session is connected to.
func (s *Session) Database() string {
	return s.database
}

// Close terminates the connection. Safe to call on an already-closed session.
func (s *Session) Close(ctx context.Context) error {
	if s.conn == nil || s.conn.IsClosed() {
		return nil
	}
	return s.conn.Close(ctx)
}

// Verify Session implements the pgdumprun.Session interface at compile time
var _ pgdumprun.Session = (*Session)(nil)
