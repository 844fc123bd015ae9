package cli

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

func TestSplitPgpassLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			"plain fields",
			"localhost:5432:postgres:admin:secret",
			[]string{"localhost", "5432", "postgres", "admin", "secret"},
		},
		{
			"wildcards",
			"*:*:*:admin:secret",
			[]string{"*", "*", "*", "admin", "secret"},
		},
		{
			"escaped colon in password",
			`localhost:5432:db:user:pa\:ss`,
			[]string{"localhost", "5432", "db", "user", "pa:ss"},
		},
		{
			"escaped backslash",
			`localhost:5432:db:user:pa\\ss`,
			[]string{"localhost", "5432", "db", "user", `pa\ss`},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPgpassLine(tt.line)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitPgpassLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func writePgpassFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pgpass")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PGPASSFILE", path)
}

func TestLookupPgpass(t *testing.T) {
	writePgpassFile(t, `# comment line
db.example.com:5432:flights:admin:topsecret
*:*:*:fallback_user:fallback_pass
`)

	t.Run("exact match", func(t *testing.T) {
		cfg := &pgdumprun.ConnectionConfig{
			Host: "db.example.com", Port: 5432, Database: "flights", Username: "admin",
		}
		password, found := lookupPgpass(cfg)
		if !found || password != "topsecret" {
			t.Errorf("lookupPgpass() = (%q, %v), want (topsecret, true)", password, found)
		}
	})

	t.Run("wildcard match", func(t *testing.T) {
		cfg := &pgdumprun.ConnectionConfig{
			Host: "elsewhere", Port: 9999, Database: "other", Username: "fallback_user",
		}
		password, found := lookupPgpass(cfg)
		if !found || password != "fallback_pass" {
			t.Errorf("lookupPgpass() = (%q, %v), want (fallback_pass, true)", password, found)
		}
	})

	t.Run("no match", func(t *testing.T) {
		cfg := &pgdumprun.ConnectionConfig{
			Host: "db.example.com", Port: 5432, Database: "flights", Username: "intruder",
		}
		if _, found := lookupPgpass(cfg); found {
			t.Error("lookupPgpass() found a password for a non-matching user")
		}
	})
}

func TestLookupPgpass_MissingFile(t *testing.T) {
	t.Setenv("PGPASSFILE", filepath.Join(t.TempDir(), "absent"))

	cfg := &pgdumprun.ConnectionConfig{Host: "localhost", Port: 5432}
	if _, found := lookupPgpass(cfg); found {
		t.Error("lookupPgpass() found a password without a .pgpass file")
	}
}
