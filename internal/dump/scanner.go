package dump

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/vvka-141/pgdumprun/pkg/pgdumprun"
)

// scanState drives the per-segment line scanner.
type scanState int

const (
	// stOrdinary accumulates ordinary statement text.
	stOrdinary scanState = iota

	// stInDollarQuote is inside a $tag$ ... $tag$ region; semicolons do not
	// terminate statements here.
	stInDollarQuote

	// stInCopyData is between a COPY ... FROM stdin; header and its "\."
	// terminator; lines are literal data rows.
	stInCopyData
)

var (
	// connectRe matches a \connect directive occupying a whole line. The
	// target may be a quoted identifier.
	connectRe = regexp.MustCompile(`^\\connect[ \t]+(\S+)[ \t]*$`)

	// copyFromStdinRe recognizes a completed statement as a COPY header whose
	// payload follows inline.
	copyFromStdinRe = regexp.MustCompile(`(?is)^COPY\s+.*\bFROM\s+stdin\b.*;$`)

	// dollarTagRe matches a dollar-quote delimiter: $$ or $tag$ where tag is
	// a PostgreSQL identifier.
	dollarTagRe = regexp.MustCompile(`\$[A-Za-z_][A-Za-z0-9_]*\$|\$\$`)
)

// copyTerminator ends a COPY data block when it appears alone on a line.
const copyTerminator = `\.`

// ParseFile reads and parses a dump file.
// Returns an error wrapping pgdumprun.ErrDumpFileNotFound if the path does
// not exist; no database interaction happens here.
func ParseFile(path string) ([]Segment, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, pgdumprun.ErrDumpFileNotFound)
		}
		return nil, fmt.Errorf("failed to read dump file %s: %w", path, err)
	}
	return Parse(string(content)), nil
}

// Parse splits dump content into per-database segments at \connect boundaries
// and classifies each segment's text into ordinary statements and COPY blocks.
//
// The text before the first \connect directive targets the default database
// (Segment.Database == ""). With no directives at all, exactly one such
// segment is produced. An initial segment with no content is dropped, but a
// \connect segment is always kept even when empty: the connection switch
// itself is an observable action.
//
// A \connect line inside a dollar-quoted region is statement text, not a
// directive. Inside COPY data it still splits: the COPY text format escapes
// backslashes, so a literal data row can never begin with \connect, and a
// directive reached there means the "\." terminator was missing. The COPY
// unit is flushed with the data collected so far.
func Parse(content string) []Segment {
	var segments []Segment
	cur := Segment{}
	head := true

	var buf strings.Builder
	var copyUnit *Unit
	var copyStarted bool

	state := stOrdinary
	activeTag := ""

	// Emits the pending COPY block and any trailing unterminated statement
	// into the current segment.
	flush := func() {
		if copyUnit != nil {
			cur.Units = append(cur.Units, *copyUnit)
			copyUnit = nil
			copyStarted = false
		}
		if tail := buf.String(); strings.TrimSpace(tail) != "" && !onlyComments(tail) {
			cur.Units = append(cur.Units, Unit{Kind: KindStatement, SQL: tail})
		}
		buf.Reset()
	}

	for _, line := range strings.Split(content, "\n") {
		if state != stInDollarQuote {
			if m := connectRe.FindStringSubmatch(line); m != nil {
				flush()
				if !head || len(cur.Units) > 0 {
					segments = append(segments, cur)
				}
				cur = Segment{Database: strings.Trim(m[1], `"`)}
				head = false
				state = stOrdinary
				continue
			}
		}

		if state == stInCopyData {
			if strings.TrimSpace(line) == copyTerminator {
				cur.Units = append(cur.Units, *copyUnit)
				copyUnit = nil
				copyStarted = false
				state = stOrdinary
				continue
			}
			// Leading blank lines between the header and the data are not rows.
			if !copyStarted && strings.TrimSpace(line) == "" {
				continue
			}
			copyStarted = true
			copyUnit.Data = append(copyUnit.Data, line)
			continue
		}

		buf.WriteString(line)
		buf.WriteString("\n")

		activeTag = scanDollarQuotes(line, activeTag)
		if activeTag != "" {
			state = stInDollarQuote
			continue
		}
		state = stOrdinary

		if !strings.HasSuffix(strings.TrimSpace(line), ";") {
			continue
		}

		stmt := buf.String()
		buf.Reset()

		if copyFromStdinRe.MatchString(strings.TrimSpace(stmt)) {
			copyUnit = &Unit{Kind: KindCopy, SQL: strings.TrimSpace(stmt)}
			copyStarted = false
			state = stInCopyData
			continue
		}

		if !onlyComments(stmt) {
			cur.Units = append(cur.Units, Unit{Kind: KindStatement, SQL: stmt})
		}
	}

	flush()
	return append(segments, cur)
}

// scanDollarQuotes walks one line and returns the dollar-quote tag active
// after it. A region only closes on the exact text of its opening tag, so
// distinct tags in the same file cannot be confused.
func scanDollarQuotes(line, active string) string {
	i := 0
	for i < len(line) {
		if active == "" {
			loc := dollarTagRe.FindStringIndex(line[i:])
			if loc == nil {
				return ""
			}
			active = line[i+loc[0] : i+loc[1]]
			i += loc[1]
		} else {
			j := strings.Index(line[i:], active)
			if j < 0 {
				return active
			}
			i += j + len(active)
			active = ""
		}
	}
	return active
}

// onlyComments reports whether the text contains nothing but blank lines and
// line comments. Such chunks are dropped instead of being sent to the server
// as empty statements.
func onlyComments(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		return false
	}
	return true
}
