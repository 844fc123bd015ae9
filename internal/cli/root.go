package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const asciiLogo = `                 _
 _ __   __ _  __| |_   _ _ __ ___  _ __  _ __ _   _ _ __
| '_ \ / _` + "`" + ` |/ _` + "`" + ` | | | | '_ ` + "`" + ` _ \| '_ \| '__| | | | '_ \
| |_) | (_| | (_| | |_| | | | | | | |_) | |  | |_| | | | |
| .__/ \__, |\__,_|\__,_|_| |_| |_| .__/|_|   \__,_|_| |_|
|_|    |___/                      |_|                     `

var rootCmd = &cobra.Command{
	Use:   "pgdumprun",
	Short: "Replay PostgreSQL dump files across databases",
	Long: asciiLogo + `

pgdumprun executes pg_dumpall-style SQL dump files: it splits the file at
\connect directives, reconnects to each target database, and replays
statements and COPY data blocks one by one in implicit transactions.

Statements that fail because an object already exists are skipped, so a dump
can be replayed onto a cluster that already holds part of the schema.

Exit Codes:
  0  - Success
  1  - General error
  2  - CLI usage error (invalid arguments or flags)
  3  - Panic or unexpected system error
  10 - Invalid configuration or parameters
  11 - Database connection failed
  12 - User denied approval
  13 - SQL execution failed
  14 - Dump file not found`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		printVersionInfo()
		return nil
	}
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().Bool("help", false, "Help for pgdumprun")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output for all commands")
}

// getVerboseFlag safely retrieves the verbose flag value
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to get verbose flag: %v\n", err)
		return false
	}
	return verbose
}
