package pgdumprun

import (
	"errors"
	"fmt"
	"time"
)

// RunConfig contains all parameters needed to execute a dump file.
type RunConfig struct {
	// DumpPath is the path to the dump file to execute
	DumpPath string

	// DefaultDatabase is the database that text before the first \connect
	// directive runs against. Typically "postgres".
	DefaultDatabase string

	// Timeout is the global timeout for the entire run
	Timeout time.Duration

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the RunConfig has all required fields and valid values.
// It returns a multi-error if multiple validation failures occur.
func (c *RunConfig) Validate() error {
	var errs []error

	if c.DumpPath == "" {
		errs = append(errs, fmt.Errorf("DumpPath is required: %w", ErrInvalidConfig))
	}

	if c.DefaultDatabase == "" {
		errs = append(errs, fmt.Errorf("DefaultDatabase is required: %w", ErrInvalidConfig))
	}

	// Validate timeout if set
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}

// RunReport summarizes a completed dump run. Per-statement failures do not
// fail the run; they are counted here and logged as warnings.
type RunReport struct {
	// Segments is the number of \connect segments attempted,
	// including the implicit initial segment.
	Segments int

	// Statements is the number of ordinary statements executed successfully.
	Statements int

	// Skipped is the number of statements skipped after an execution error.
	Skipped int

	// AlreadyExists is the subset of Skipped caused by duplicate-object
	// errors ("relation already exists" and friends).
	AlreadyExists int

	// CopyBlocks is the number of COPY ... FROM stdin blocks executed.
	CopyBlocks int

	// RowsCopied is the total number of rows loaded via COPY.
	RowsCopied int64
}

// ConnectionConfig represents parsed connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}

// BackupConfig contains all parameters needed to create a backup archive.
type BackupConfig struct {
	// Directory is where backup archives are written
	Directory string

	// Connection holds the server to back up
	Connection ConnectionConfig

	// Keep is the number of most recent archives to retain when pruning
	// (0 = keep everything)
	Keep int

	// Verbose enables detailed logging
	Verbose bool
}

// Validate checks if the BackupConfig has all required fields and valid values.
func (c *BackupConfig) Validate() error {
	var errs []error

	if c.Directory == "" {
		errs = append(errs, fmt.Errorf("Directory is required: %w", ErrInvalidConfig))
	}

	if c.Keep < 0 {
		errs = append(errs, fmt.Errorf("keep count cannot be negative: %w", ErrInvalidConfig))
	}

	return errors.Join(errs...)
}
