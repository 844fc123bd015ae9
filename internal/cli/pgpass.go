package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// pgpassPath returns the platform-appropriate .pgpass file path.
func pgpassPath() string {
	if custom := os.Getenv("PGPASSFILE"); custom != "" {
		return custom
	}
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "postgresql", "pgpass.conf")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pgpass")
}

// lookupPgpass searches the .pgpass file for a password matching the
// connection, following PostgreSQL matching rules: fields are
// host:port:database:user:password and "*" matches anything.
func lookupPgpass(cfg *pgdumprun.ConnectionConfig) (string, bool) {
	path := pgpassPath()
	if path == "" {
		return "", false
	}

	file, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer file.Close()

	port := fmt.Sprintf("%d", cfg.Port)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := splitPgpassLine(line)
		if len(fields) != 5 {
			continue
		}

		if pgpassFieldMatches(fields[0], cfg.Host) &&
			pgpassFieldMatches(fields[1], port) &&
			pgpassFieldMatches(fields[2], cfg.Database) &&
			pgpassFieldMatches(fields[3], cfg.Username) {
			return fields[4], true
		}
	}
	return "", false
}

func pgpassFieldMatches(field, value string) bool {
	return field == "*" || field == value
}

// splitPgpassLine splits a .pgpass line on unescaped colons and resolves
// backslash escapes within each field.
func splitPgpassLine(line string) []string {
	var fields []string
	var current strings.Builder

	escaped := false
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ':':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	fields = append(fields, current.String())
	return fields
}
