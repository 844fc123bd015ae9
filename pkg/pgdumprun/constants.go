package pgdumprun

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed (per-statement skips do not fail a run)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied a destructive-operation approval
	ExitExecutionFailed = 13 // SQL execution or backup tool failed
	ExitDumpFileMissing = 14 // Dump file not found
)

const (
	// DefaultDatabase is the database used for segments before the first
	// \connect directive and as the connection default.
	DefaultDatabase = "postgres"

	// DefaultDumpFile is the dump file executed when no path argument is given.
	DefaultDumpFile = "dump.sql"

	// DefaultPruneApprovalCountdown is the countdown duration before a forced
	// backup prune proceeds.
	DefaultPruneApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the default maximum number of retry attempts.
	DefaultRetryMaxAttempts = 3

	// MaxErrorPreviewLength is the maximum number of characters of a failed
	// statement shown in warning messages. This prevents flooding the console
	// when a large DDL batch fails.
	MaxErrorPreviewLength = 200
)
