package backup

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgdumprun/internal/logging"
	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

type fakeApprover struct {
	approve  bool
	err      error
	subjects []string
}

func (a *fakeApprover) RequestApproval(_ context.Context, subject string) (bool, error) {
	a.subjects = append(a.subjects, subject)
	return a.approve, a.err
}

func newTestManager(t *testing.T, approve bool) (*Manager, *fakeApprover) {
	t.Helper()
	approver := &fakeApprover{approve: approve}
	return NewManager(logging.NewNullLogger(), approver), approver
}

// fakeDumpall substitutes a shell one-liner for the real pg_dumpall binary.
func fakeDumpall(script string) commandFactory {
	return func(ctx context.Context, name string, arg ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", script)
	}
}

func readGzip(t *testing.T, path string) string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()
	data, err := io.ReadAll(gz)
	require.NoError(t, err)
	return string(data)
}

func TestNewManager_PanicsOnNilDependencies(t *testing.T) {
	assert.Panics(t, func() { NewManager(nil, &fakeApprover{}) })
	assert.Panics(t, func() { NewManager(logging.NewNullLogger(), nil) })
}

func TestCreate_WritesCompressedArchive(t *testing.T) {
	m, _ := newTestManager(t, true)
	m.command = fakeDumpall(`printf 'CREATE DATABASE flights;\n'`)
	m.now = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

	dir := t.TempDir()
	path, err := m.Create(context.Background(), pgdumprun.BackupConfig{Directory: dir})

	require.NoError(t, err)
	assert.Equal(t, "all-databases-backup-2026-03-14-09-26-53.sql.gz", filepath.Base(path))
	assert.Equal(t, "CREATE DATABASE flights;\n", readGzip(t, path))
}

func TestCreate_CreatesMissingDirectory(t *testing.T) {
	m, _ := newTestManager(t, true)
	m.command = fakeDumpall(`printf 'SELECT 1;\n'`)

	dir := filepath.Join(t.TempDir(), "nested", "backups")
	path, err := m.Create(context.Background(), pgdumprun.BackupConfig{Directory: dir})

	require.NoError(t, err)
	assert.DirExists(t, dir)
	assert.FileExists(t, path)
}

func TestCreate_ToolFailureRemovesPartialArchive(t *testing.T) {
	m, _ := newTestManager(t, true)
	m.command = fakeDumpall(`printf 'partial output\n'; echo 'pg_dumpall: error: connection failed' >&2; exit 1`)

	dir := t.TempDir()
	_, err := m.Create(context.Background(), pgdumprun.BackupConfig{Directory: dir})

	require.Error(t, err)
	assert.ErrorIs(t, err, pgdumprun.ErrBackupToolFailed)
	assert.Contains(t, err.Error(), "connection failed")

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Empty(t, entries, "partial archive must not be left behind")
}

func TestCreate_InvalidConfig(t *testing.T) {
	m, _ := newTestManager(t, true)

	_, err := m.Create(context.Background(), pgdumprun.BackupConfig{})

	require.Error(t, err)
	assert.ErrorIs(t, err, pgdumprun.ErrInvalidConfig)
}

func writeArchive(t *testing.T, dir, stamp string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, backupPrefix+stamp+backupSuffix)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	mtime := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, mtime, mtime))
	return path
}

func TestList_NewestFirst(t *testing.T) {
	m, _ := newTestManager(t, true)
	dir := t.TempDir()
	old := writeArchive(t, dir, "2026-01-01-00-00-00", 48*time.Hour)
	recent := writeArchive(t, dir, "2026-01-03-00-00-00", 1*time.Hour)
	// Unrelated files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	backups, err := m.List(dir)

	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, recent, backups[0].Path)
	assert.Equal(t, old, backups[1].Path)
}

func TestList_MissingDirectory(t *testing.T) {
	m, _ := newTestManager(t, true)

	backups, err := m.List(filepath.Join(t.TempDir(), "absent"))

	require.NoError(t, err)
	assert.Empty(t, backups)
}

func TestPrune_KeepsNewest(t *testing.T) {
	m, approver := newTestManager(t, true)
	dir := t.TempDir()
	oldest := writeArchive(t, dir, "2026-01-01-00-00-00", 72*time.Hour)
	middle := writeArchive(t, dir, "2026-01-02-00-00-00", 48*time.Hour)
	newest := writeArchive(t, dir, "2026-01-03-00-00-00", 1*time.Hour)

	deleted, err := m.Prune(context.Background(), dir, 2)

	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	assert.FileExists(t, newest)
	assert.FileExists(t, middle)
	assert.NoFileExists(t, oldest)
	require.Len(t, approver.subjects, 1)
	assert.Contains(t, approver.subjects[0], "delete 1 backup(s)")
}

func TestPrune_NothingToDo(t *testing.T) {
	m, approver := newTestManager(t, true)
	dir := t.TempDir()
	writeArchive(t, dir, "2026-01-01-00-00-00", time.Hour)

	deleted, err := m.Prune(context.Background(), dir, 5)

	require.NoError(t, err)
	assert.Equal(t, 0, deleted)
	assert.Empty(t, approver.subjects, "no approval needed when nothing is deleted")
}

func TestPrune_Denied(t *testing.T) {
	m, _ := newTestManager(t, false)
	dir := t.TempDir()
	victim := writeArchive(t, dir, "2026-01-01-00-00-00", time.Hour)

	deleted, err := m.Prune(context.Background(), dir, 0)

	require.Error(t, err)
	assert.ErrorIs(t, err, pgdumprun.ErrApprovalDenied)
	assert.Equal(t, 0, deleted)
	assert.FileExists(t, victim)
}

func TestPrune_NegativeKeep(t *testing.T) {
	m, _ := newTestManager(t, true)

	_, err := m.Prune(context.Background(), t.TempDir(), -1)

	require.Error(t, err)
	assert.ErrorIs(t, err, pgdumprun.ErrInvalidConfig)
}

func TestDumpallArgs(t *testing.T) {
	args := dumpallArgs(pgdumprun.ConnectionConfig{
		Host:     "db.example.com",
		Port:     5433,
		Username: "admin",
		Password: "secret",
	})

	assert.Equal(t, []string{
		"--no-password",
		"--host", "db.example.com",
		"--port", "5433",
		"--username", "admin",
	}, args)
	assert.NotContains(t, args, "secret", "password must never reach argv")
}
