package retry

import (
	"errors"
	"net"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgconn"
)

// Server error classes that are transient at connection time.
// See: https://www.postgresql.org/docs/current/errcodes-appendix.html
//
// Class 08 (connection exception) and class 57 (operator intervention,
// notably 57P03 cannot_connect_now while the server starts up) resolve on
// their own; class 53 (insufficient resources, notably 53300
// too_many_connections) clears as other sessions finish. Statement-level
// classes such as 40 (transaction rollback) are deliberately absent: the
// only retried operation here is opening a connection, and a dump replay
// never holds a transaction open across it.
var transientPgClasses = []string{"08", "53", "57"}

// Dial-level errno values worth retrying. The server may simply not be
// accepting connections yet.
var transientErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
}

// Fallback message patterns for errors that reach us as flattened strings,
// typically out of the pgconn handshake.
var transientMessages = []string{
	"connection refused",
	"connection reset",
	"connection timeout",
	"connection failure",
	"network is unreachable",
	"i/o timeout",
	"broken pipe",
	"server closed the connection",
	"unexpected eof",
	"too many connections",
	"the database system is starting up",
	"the database system is shutting down",
}

// ConnectionErrorClassifier decides whether a failed connection attempt is
// worth retrying. It is scoped to connection establishment; it makes no
// judgment about errors from executed statements.
type ConnectionErrorClassifier struct{}

// NewConnectionErrorClassifier creates a classifier for connection attempts.
func NewConnectionErrorClassifier() *ConnectionErrorClassifier {
	return &ConnectionErrorClassifier{}
}

// IsTransient reports whether the connection error is temporary.
//
// Authentication failures, unknown databases, and TLS mismatches are fatal:
// retrying them would only delay the inevitable and can lock an account out.
func (c *ConnectionErrorClassifier) IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		for _, class := range transientPgClasses {
			if strings.HasPrefix(pgErr.Code, class) {
				return true
			}
		}
		return false
	}

	// Name resolution is authoritative: a host that does not resolve is a
	// misconfiguration, not a blip, unless the resolver itself timed out.
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.Temporary() || dnsErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() {
			return true
		}
		for _, errno := range transientErrnos {
			if errors.Is(opErr.Err, errno) {
				return true
			}
		}
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range transientMessages {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}
