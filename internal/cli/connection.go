package cli

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/vvka-141/pgdumprun/internal/config"
	"github.com/vvka-141/pgdumprun/internal/db"
	"github.com/vvka-141/pgdumprun/internal/ui"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// connectionStringFromEnv returns the first non-empty connection string from
// PGDUMPRUN_CONNECTION_STRING or DATABASE_URL environment variables.
func connectionStringFromEnv() string {
	if s := os.Getenv("PGDUMPRUN_CONNECTION_STRING"); s != "" {
		return s
	}
	return os.Getenv("DATABASE_URL")
}

// connectionFlags holds the connection-related flag values shared by the run
// and backup commands.
type connectionFlags struct {
	connection string
	host       string
	port       int
	username   string
	database   string
	sslMode    string
}

// resolveConnection consolidates connection resolution for the run and backup
// commands. It handles the connection string flag, granular flags and
// PostgreSQL environment variables, then fills in the password from the
// standard sources.
func resolveConnection(flags connectionFlags, projectConfig *config.ProjectConfig, verbose bool) (*pgdumprun.ConnectionConfig, error) {
	connString := flags.connection
	if connString == "" && flags.host == "" && flags.port == 0 && flags.username == "" {
		connString = connectionStringFromEnv()
	}

	granularFlags := &db.GranularConnFlags{
		Host:     flags.host,
		Port:     flags.port,
		Username: flags.username,
		Database: flags.database,
		SSLMode:  flags.sslMode,
	}

	envVars := db.LoadFromEnvironment()

	connConfig, err := db.ResolveConnectionParams(connString, granularFlags, envVars, projectConfig)
	if err != nil {
		return nil, err
	}

	if err := resolvePassword(connConfig, verbose); err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "[VERBOSE] Connection resolved:\n")
		fmt.Fprintf(os.Stderr, "  Host: %s\n", connConfig.Host)
		fmt.Fprintf(os.Stderr, "  Port: %d\n", connConfig.Port)
		fmt.Fprintf(os.Stderr, "  User: %s\n", connConfig.Username)
		fmt.Fprintf(os.Stderr, "  Database: %s\n", connConfig.Database)
		fmt.Fprintf(os.Stderr, "  SSL Mode: %s\n", connConfig.SSLMode)
	}

	return connConfig, nil
}

// resolvePassword fills in the connection password using the standard
// precedence: value already present (connection string or $PGPASSWORD) >
// .pgpass file > interactive prompt. Non-interactive runs proceed without a
// password and rely on trust/peer authentication.
func resolvePassword(connConfig *pgdumprun.ConnectionConfig, verbose bool) error {
	if connConfig.Password != "" {
		return nil
	}

	if password, found := lookupPgpass(connConfig); found {
		if verbose {
			fmt.Fprintf(os.Stderr, "[VERBOSE] Password loaded from %s\n", pgpassPath())
		}
		connConfig.Password = password
		return nil
	}

	if !ui.IsInteractive() {
		return nil
	}

	fmt.Fprintf(os.Stderr, "Password for user %s: ", connConfig.Username)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	connConfig.Password = string(raw)
	return nil
}

// loadProjectConfig reads pgdumprun.yaml from dir. A missing file is not an
// error; any other failure is.
func loadProjectConfig(dir string) (*config.ProjectConfig, error) {
	projectCfg, err := config.Load(dir)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load %s: %w", config.ConfigFileName, err)
	}
	return projectCfg, nil
}
