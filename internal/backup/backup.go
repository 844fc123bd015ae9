// Package backup drives pg_dumpall to produce compressed cluster backups and
// manages the resulting archive directory.
package backup

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

const (
	backupPrefix = "all-databases-backup-"
	backupSuffix = ".sql.gz"

	// timestampLayout names archives so lexical order matches creation order.
	timestampLayout = "2006-01-02-15-04-05"
)

// Info describes one archive in the backup directory.
type Info struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

type commandFactory func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Manager creates, lists and prunes cluster backups.
type Manager struct {
	logger   pgdumprun.Logger
	approver pgdumprun.Approver
	command  commandFactory

	now func() time.Time
}

// NewManager creates a backup Manager. Panics if logger or approver is nil.
func NewManager(logger pgdumprun.Logger, approver pgdumprun.Approver) *Manager {
	if logger == nil {
		panic("logger cannot be nil")
	}
	if approver == nil {
		panic("approver cannot be nil")
	}
	return &Manager{
		logger:   logger,
		approver: approver,
		command:  exec.CommandContext,
		now:      time.Now,
	}
}

// Create runs pg_dumpall against the configured cluster and writes its output
// gzip-compressed into the backup directory. Returns the archive path.
func (m *Manager) Create(ctx context.Context, config pgdumprun.BackupConfig) (string, error) {
	if err := config.Validate(); err != nil {
		return "", err
	}

	if err := os.MkdirAll(config.Directory, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	name := backupPrefix + m.now().Format(timestampLayout) + backupSuffix
	path := filepath.Join(config.Directory, name)

	args := dumpallArgs(config.Connection)
	m.logger.Verbose("running pg_dumpall %s", strings.Join(args, " "))

	cmd := m.command(ctx, "pg_dumpall", args...)
	cmd.Env = dumpallEnv(config.Connection)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("%w: %w", pgdumprun.ErrBackupToolFailed, err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create backup file: %w", err)
	}

	if err := m.streamDump(cmd, stdout, file, &stderr); err != nil {
		os.Remove(path)
		return "", err
	}

	info, statErr := os.Stat(path)
	if statErr == nil {
		m.logger.Info("backup written: %s (%d bytes)", path, info.Size())
	} else {
		m.logger.Info("backup written: %s", path)
	}

	return path, nil
}

func (m *Manager) streamDump(cmd *exec.Cmd, stdout io.Reader, file *os.File, stderr *bytes.Buffer) error {
	defer file.Close()

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: could not start pg_dumpall: %w", pgdumprun.ErrBackupToolFailed, err)
	}

	gz := gzip.NewWriter(file)
	_, copyErr := io.Copy(gz, stdout)
	gzErr := gz.Close()

	if waitErr := cmd.Wait(); waitErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = waitErr.Error()
		}
		return fmt.Errorf("%w: %s", pgdumprun.ErrBackupToolFailed, msg)
	}
	if copyErr != nil {
		return fmt.Errorf("failed to write backup: %w", copyErr)
	}
	if gzErr != nil {
		return fmt.Errorf("failed to finalize backup: %w", gzErr)
	}
	return file.Sync()
}

// List returns the archives in dir, newest first. A missing directory is an
// empty list, not an error.
func (m *Manager) List(dir string) ([]Info, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []Info
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		backups = append(backups, Info{
			Path:    filepath.Join(dir, name),
			Name:    name,
			Size:    fi.Size(),
			ModTime: fi.ModTime(),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].ModTime.After(backups[j].ModTime)
	})
	return backups, nil
}

// Prune deletes all but the keep newest archives in dir, asking the approver
// before anything is removed. Returns the number of deleted archives.
func (m *Manager) Prune(ctx context.Context, dir string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("%w: keep count cannot be negative", pgdumprun.ErrInvalidConfig)
	}

	backups, err := m.List(dir)
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		m.logger.Verbose("nothing to prune: %d backup(s), keeping %d", len(backups), keep)
		return 0, nil
	}

	victims := backups[keep:]
	subject := fmt.Sprintf("delete %d backup(s) from %s, keeping the %d newest", len(victims), dir, keep)
	approved, err := m.approver.RequestApproval(ctx, subject)
	if err != nil {
		return 0, err
	}
	if !approved {
		return 0, pgdumprun.ErrApprovalDenied
	}

	deleted := 0
	for _, b := range victims {
		if err := os.Remove(b.Path); err != nil {
			m.logger.Warn("failed to delete %s: %v", b.Name, err)
			continue
		}
		m.logger.Info("deleted old backup: %s", b.Name)
		deleted++
	}
	return deleted, nil
}

// dumpallArgs builds the pg_dumpall flag list from the connection settings.
// The password never appears here; it travels via PGPASSWORD.
func dumpallArgs(config pgdumprun.ConnectionConfig) []string {
	args := []string{"--no-password"}
	if config.Host != "" {
		args = append(args, "--host", config.Host)
	}
	if config.Port != 0 {
		args = append(args, "--port", strconv.Itoa(config.Port))
	}
	if config.Username != "" {
		args = append(args, "--username", config.Username)
	}
	return args
}

func dumpallEnv(config pgdumprun.ConnectionConfig) []string {
	env := os.Environ()
	if config.Password != "" {
		env = append(env, "PGPASSWORD="+config.Password)
	}
	if config.SSLMode != "" {
		env = append(env, "PGSSLMODE="+config.SSLMode)
	}
	return env
}
