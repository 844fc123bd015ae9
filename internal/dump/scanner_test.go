package dump

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

func TestParse_NoConnectDirective(t *testing.T) {
	content := "CREATE TABLE a (id int);\nINSERT INTO a VALUES (1);\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	assert.Equal(t, "", segments[0].Database)
	require.Len(t, segments[0].Units, 2)
	assert.Equal(t, "CREATE TABLE a (id int);", strings.TrimSpace(segments[0].Units[0].SQL))
	assert.Equal(t, "INSERT INTO a VALUES (1);", strings.TrimSpace(segments[0].Units[1].SQL))
}

func TestParse_EmptyInput(t *testing.T) {
	segments := Parse("")

	require.Len(t, segments, 1)
	assert.Equal(t, "", segments[0].Database)
	assert.Empty(t, segments[0].Units)
}

func TestParse_ConnectDirectivesSplitSegments(t *testing.T) {
	content := "SET client_encoding = 'UTF8';\n" +
		"\\connect flights\n" +
		"CREATE TABLE t (id int);\n" +
		"\\connect bookings\n" +
		"CREATE TABLE u (id int);\n"

	segments := Parse(content)

	require.Len(t, segments, 3)
	assert.Equal(t, "", segments[0].Database)
	assert.Equal(t, "flights", segments[1].Database)
	assert.Equal(t, "bookings", segments[2].Database)
	require.Len(t, segments[1].Units, 1)
	require.Len(t, segments[2].Units, 1)
}

func TestParse_BlankHeadBeforeFirstConnect(t *testing.T) {
	content := "\n\n\\connect flights\nSELECT 1;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	assert.Equal(t, "flights", segments[0].Database)
}

func TestParse_EmptyConnectSegmentIsKept(t *testing.T) {
	// The connection switch is an action in itself even with nothing to run.
	content := "SELECT 1;\n\\connect flights\n"

	segments := Parse(content)

	require.Len(t, segments, 2)
	assert.Equal(t, "flights", segments[1].Database)
	assert.Empty(t, segments[1].Units)
}

func TestParse_QuotedConnectTarget(t *testing.T) {
	segments := Parse("\\connect \"my_db\"\nSELECT 1;\n")

	require.Len(t, segments, 1)
	assert.Equal(t, "my_db", segments[0].Database)
}

func TestParse_ConnectNotAtLineStartIsIgnored(t *testing.T) {
	content := "INSERT INTO notes VALUES ('use \\connect here');\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	assert.Equal(t, "", segments[0].Database)
	require.Len(t, segments[0].Units, 1)
}

func TestParse_DollarQuotedBodyIsOneStatement(t *testing.T) {
	content := "CREATE FUNCTION bump() RETURNS trigger AS $$\n" +
		"BEGIN\n" +
		"  UPDATE counters SET n = n + 1;\n" +
		"  RETURN NEW;\n" +
		"END;\n" +
		"$$ LANGUAGE plpgsql;\n" +
		"SELECT bump();\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 2)
	assert.Contains(t, segments[0].Units[0].SQL, "UPDATE counters SET n = n + 1;")
	assert.Contains(t, segments[0].Units[0].SQL, "LANGUAGE plpgsql;")
	assert.Equal(t, "SELECT bump();", strings.TrimSpace(segments[0].Units[1].SQL))
}

func TestParse_ConnectInsideDollarQuoteIsBodyText(t *testing.T) {
	// A function body may contain a line that looks like a directive; it must
	// not split the statement or switch databases.
	content := "CREATE FUNCTION f() RETURNS text AS $fn$\n" +
		"SELECT '\n" +
		"\\connect other\n" +
		"';\n" +
		"$fn$ LANGUAGE sql;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	assert.Equal(t, "", segments[0].Database)
	require.Len(t, segments[0].Units, 1)
	assert.Contains(t, segments[0].Units[0].SQL, `\connect other`)
	assert.Contains(t, segments[0].Units[0].SQL, "LANGUAGE sql;")
}

func TestParse_NamedDollarTags(t *testing.T) {
	content := "CREATE FUNCTION f() RETURNS text AS $fn$\n" +
		"SELECT 'a;b';\n" +
		"$fn$ LANGUAGE sql;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 1)
}

func TestParse_DistinctTagsDoNotCloseEachOther(t *testing.T) {
	// $inner$ must not terminate the $outer$ region; only the exact opening
	// tag closes it.
	content := "CREATE FUNCTION outer_fn() RETURNS text AS $outer$\n" +
		"DECLARE body text := $inner$ SELECT 1; $inner$;\n" +
		"BEGIN\n" +
		"  RETURN body;\n" +
		"END;\n" +
		"$outer$ LANGUAGE plpgsql;\n" +
		"SELECT 2;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 2)
	assert.Contains(t, segments[0].Units[0].SQL, "$outer$ LANGUAGE plpgsql;")
	assert.Equal(t, "SELECT 2;", strings.TrimSpace(segments[0].Units[1].SQL))
}

func TestParse_TagOpenAndCloseOnSameLine(t *testing.T) {
	content := "SELECT $$a;b$$, $$c$$;\nSELECT 2;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 2)
}

func TestParse_CopyBlock(t *testing.T) {
	content := "COPY public.aircrafts (code, model) FROM stdin;\n" +
		"773\tBoeing 777-300\n" +
		"763\t\\N\n" +
		"\\.\n" +
		"SELECT 1;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 2)

	cp := segments[0].Units[0]
	assert.Equal(t, KindCopy, cp.Kind)
	assert.Equal(t, "COPY public.aircrafts (code, model) FROM stdin;", cp.SQL)
	require.Len(t, cp.Data, 2)
	assert.Equal(t, "773\tBoeing 777-300", cp.Data[0])
	assert.Equal(t, "763\t\\N", cp.Data[1])

	assert.Equal(t, KindStatement, segments[0].Units[1].Kind)
}

func TestParse_EmptyCopyBlock(t *testing.T) {
	content := "COPY public.empty (id) FROM stdin;\n\\.\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 1)
	assert.Equal(t, KindCopy, segments[0].Units[0].Kind)
	assert.Empty(t, segments[0].Units[0].Data)
}

func TestParse_CopyHeaderSpanningLines(t *testing.T) {
	content := "COPY public.seats (aircraft_code, seat_no,\n" +
		"    fare_conditions) FROM stdin;\n" +
		"773\t1A\tBusiness\n" +
		"\\.\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 1)
	assert.Equal(t, KindCopy, segments[0].Units[0].Kind)
	require.Len(t, segments[0].Units[0].Data, 1)
}

func TestParse_MalformedCopyConsumesSegmentRemainder(t *testing.T) {
	// A missing "\." terminator swallows the rest of its segment as data,
	// but a later \connect still opens a fresh segment.
	content := "COPY public.t (id) FROM stdin;\n" +
		"1\n" +
		"SELECT 'this is data now';\n" +
		"\\connect other\n" +
		"SELECT 2;\n"

	segments := Parse(content)

	require.Len(t, segments, 2)

	require.Len(t, segments[0].Units, 1)
	cp := segments[0].Units[0]
	assert.Equal(t, KindCopy, cp.Kind)
	assert.Contains(t, cp.Data, "SELECT 'this is data now';")

	assert.Equal(t, "other", segments[1].Database)
	require.Len(t, segments[1].Units, 1)
	assert.Equal(t, KindStatement, segments[1].Units[0].Kind)
}

func TestParse_CommentOnlyChunksAreDropped(t *testing.T) {
	content := "--\n" +
		"-- PostgreSQL database dump\n" +
		"--\n" +
		"\n" +
		"SET statement_timeout = 0;\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 1)
	assert.Contains(t, segments[0].Units[0].SQL, "SET statement_timeout = 0;")
}

func TestParse_TrailingStatementWithoutSemicolon(t *testing.T) {
	segments := Parse("SELECT 1;\nSELECT 2")

	require.Len(t, segments, 1)
	require.Len(t, segments[0].Units, 2)
	assert.Equal(t, "SELECT 2", strings.TrimSpace(segments[0].Units[1].SQL))
}

func TestParse_RoundTripStatementText(t *testing.T) {
	// Reassembling the statement units reproduces the segment's SQL text.
	content := "SET a = 1;\nCREATE TABLE t (\n  id int\n);\nINSERT INTO t VALUES (1);\n"

	segments := Parse(content)

	require.Len(t, segments, 1)
	var joined strings.Builder
	for _, u := range segments[0].Units {
		joined.WriteString(u.SQL)
	}
	assert.Equal(t, content, joined.String())
}

func TestScanDollarQuotes(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		active string
		want   string
	}{
		{"no dollars", "SELECT 1;", "", ""},
		{"opens anonymous", "AS $$", "", "$$"},
		{"opens named", "AS $body$", "", "$body$"},
		{"closes exact", "END; $body$", "$body$", ""},
		{"ignores other tag while active", "x $other$ y", "$body$", "$body$"},
		{"open and close same line", "SELECT $$a$$;", "", ""},
		{"reopens after close", "$$a$$ $$b", "", "$$"},
		{"digit after dollar is not a tag", "SELECT price + $5;", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanDollarQuotes(tt.line, tt.active))
		})
	}
}

func TestSegmentHelpers(t *testing.T) {
	seg := Segment{Units: []Unit{
		{Kind: KindStatement, SQL: "SELECT 1;"},
		{Kind: KindCopy, SQL: "COPY t FROM stdin;"},
		{Kind: KindStatement, SQL: "SELECT 2;"},
	}}

	assert.Equal(t, 2, seg.Statements())
	assert.Equal(t, 1, seg.CopyBlocks())
}

func TestParseFile(t *testing.T) {
	t.Run("reads and parses", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dump.sql")
		require.NoError(t, os.WriteFile(path, []byte("SELECT 1;\n"), 0o644))

		segments, err := ParseFile(path)

		require.NoError(t, err)
		require.Len(t, segments, 1)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := ParseFile(filepath.Join(t.TempDir(), "nope.sql"))

		require.Error(t, err)
		assert.ErrorIs(t, err, pgdumprun.ErrDumpFileNotFound)
	})
}
