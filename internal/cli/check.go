package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgdumprun/internal/dump"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

var checkCmd = &cobra.Command{
	Use:   "check [dump_file]",
	Short: "Parse a dump file and report its structure without executing it",
	Long: `Check parses a dump file the same way run does, but never connects to a
database. It reports the segments, statements and COPY blocks that a run
would execute, which makes it useful for validating a dump before replaying
it against a live cluster.

Arguments:
  dump_file    Path to the SQL dump file (default: dump.sql)

Examples:
  # Inspect dump.sql in the current directory
  pgdumprun check

  # Inspect a specific file, listing every statement
  pgdumprun check ./flights.sql -v`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	dumpPath := pgdumprun.DefaultDumpFile
	if len(args) > 0 {
		dumpPath = args[0]
	}
	verbose := getVerboseFlag(cmd)

	segments, err := dump.ParseFile(dumpPath)
	if err != nil {
		return err
	}

	var statements, copyBlocks, dataLines int
	for i, segment := range segments {
		database := segment.Database
		if database == "" {
			database = "(default)"
		}

		segDataLines := 0
		for _, unit := range segment.Units {
			if unit.Kind == dump.KindCopy {
				segDataLines += len(unit.Data)
			}
		}

		fmt.Printf("segment %d: database %s: %d statement(s), %d COPY block(s), %d data line(s)\n",
			i+1, database, segment.Statements(), segment.CopyBlocks(), segDataLines)

		if verbose {
			for _, unit := range segment.Units {
				fmt.Printf("  %s\n", firstLine(unit.SQL))
			}
		}

		statements += segment.Statements()
		copyBlocks += segment.CopyBlocks()
		dataLines += segDataLines
	}

	fmt.Printf("total: %d segment(s), %d statement(s), %d COPY block(s), %d data line(s)\n",
		len(segments), statements, copyBlocks, dataLines)
	return nil
}

func firstLine(sql string) string {
	for _, line := range strings.Split(sql, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
