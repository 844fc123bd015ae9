package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgdumprun/internal/backup"
	"github.com/vvka-141/pgdumprun/internal/logging"
	"github.com/vvka-141/pgdumprun/internal/ui"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create and manage compressed pg_dumpall backups",
	Long: `Backup runs pg_dumpall against the configured cluster and writes its
output gzip-compressed into the backup directory, named by creation time:

  all-databases-backup-2026-03-14-09-26-53.sql.gz

The resulting archives are plain SQL dumps: decompress one and replay it
with 'pgdumprun run'.

With --keep, older archives beyond the N newest are deleted after the new
backup is written. Deletion asks for confirmation; pass --force to replace
the prompt with a countdown for unattended use.

Requires the pg_dumpall client binary on PATH.

Examples:
  # Back up the local cluster into ./backups
  pgdumprun backup

  # Back up a remote cluster, keeping the 7 newest archives
  pgdumprun backup -h db.example.com -U admin --dir /var/backups --keep 7

  # List existing archives without creating a new one
  pgdumprun backup --list`,
	RunE: runBackup,
}

type backupFlagValues struct {
	conn  connectionFlags
	dir   string
	keep  int
	list  bool
	force bool
}

var backupFlags backupFlagValues

func init() {
	rootCmd.AddCommand(backupCmd)

	backupCmd.Flags().StringVar(&backupFlags.conn.connection, "connection", "",
		"PostgreSQL connection string (URI or keyword/value format)")
	backupCmd.Flags().StringVarP(&backupFlags.conn.host, "host", "h", "",
		"PostgreSQL server host")
	backupCmd.Flags().IntVarP(&backupFlags.conn.port, "port", "p", 0,
		"PostgreSQL server port")
	backupCmd.Flags().StringVarP(&backupFlags.conn.username, "username", "U", "",
		"PostgreSQL user")

	backupCmd.Flags().StringVar(&backupFlags.dir, "dir", "",
		"Backup directory (default: backup.directory from pgdumprun.yaml, or ./backups)")
	backupCmd.Flags().IntVar(&backupFlags.keep, "keep", 0,
		"After a successful backup, delete all but the N newest archives (0 = keep everything)")
	backupCmd.Flags().BoolVar(&backupFlags.list, "list", false,
		"List existing archives and exit without creating a backup")
	backupCmd.Flags().BoolVar(&backupFlags.force, "force", false,
		"Skip the interactive prune confirmation (shows a countdown instead)\n"+
			"Use with --keep for cron jobs and CI/CD pipelines")
}

func runBackup(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)
	_ = godotenv.Load()

	projectCfg, err := loadProjectConfig(".")
	if err != nil {
		return err
	}

	dir := backupFlags.dir
	if dir == "" && projectCfg != nil {
		dir = projectCfg.Backup.Directory
	}
	if dir == "" {
		dir = "backups"
	}

	keep := backupFlags.keep
	if !cmd.Flags().Changed("keep") && projectCfg != nil {
		keep = projectCfg.Backup.Keep
	}

	logger := logging.NewConsoleLogger(verbose)

	var approver pgdumprun.Approver
	if backupFlags.force {
		approver = ui.NewForcedApprover()
	} else {
		approver = ui.NewInteractiveApprover()
	}

	manager := backup.NewManager(logger, approver)

	if backupFlags.list {
		return listBackups(manager, dir)
	}

	connConfig, err := resolveConnection(backupFlags.conn, projectCfg, verbose)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\n[INTERRUPT] Received interrupt signal, cancelling backup...")
		cancel()
	}()

	config := pgdumprun.BackupConfig{
		Directory:  dir,
		Connection: *connConfig,
		Keep:       keep,
		Verbose:    verbose,
	}

	path, err := manager.Create(ctx, config)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Println(path)

	if keep > 0 {
		deleted, err := manager.Prune(ctx, dir, keep)
		if err != nil {
			return fmt.Errorf("prune failed: %w", err)
		}
		if deleted > 0 {
			fmt.Fprintf(os.Stderr, "Pruned %d old backup(s)\n", deleted)
		}
	}

	return nil
}

func listBackups(manager *backup.Manager, dir string) error {
	backups, err := manager.List(dir)
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		fmt.Fprintf(os.Stderr, "No backups found in %s\n", dir)
		return nil
	}

	for _, b := range backups {
		fmt.Printf("%s\t%.2f MB\t%s\n", b.Name,
			float64(b.Size)/(1024*1024), b.ModTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}
