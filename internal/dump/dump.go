// Package dump parses PostgreSQL-style textual dump files into executable
// units. It is not a SQL parser: it recognizes only the line-oriented subset
// that pg_dump-style exports produce: \connect directives, ordinary
// semicolon-terminated statements, dollar-quoted function bodies, and
// COPY ... FROM stdin blocks terminated by a line containing only "\.".
package dump

// UnitKind classifies a parsed chunk of dump text.
type UnitKind int

const (
	// KindStatement is an ordinary statement terminated by a bare ";".
	KindStatement UnitKind = iota

	// KindCopy is a COPY ... FROM stdin header plus its literal data lines.
	KindCopy
)

// Unit is a classified chunk of SQL text within a segment.
type Unit struct {
	// Kind tags the unit as an ordinary statement or a COPY block.
	Kind UnitKind

	// SQL is the statement text, or the COPY header for KindCopy.
	SQL string

	// Data holds the literal data rows for KindCopy, verbatim, without the
	// terminating "\." line.
	Data []string
}

// Segment is the portion of a dump belonging to one database connection.
// Segments are produced by splitting the file on \connect directives; the
// text before the first directive forms a segment with an empty Database,
// which targets the caller's default database.
type Segment struct {
	// Database is the \connect target, or "" for the implicit initial segment.
	Database string

	// Units are the classified statements and COPY blocks, in file order.
	Units []Unit
}

// Statements returns the number of ordinary statements in the segment.
func (s *Segment) Statements() int {
	n := 0
	for _, u := range s.Units {
		if u.Kind == KindStatement {
			n++
		}
	}
	return n
}

// CopyBlocks returns the number of COPY blocks in the segment.
func (s *Segment) CopyBlocks() int {
	n := 0
	for _, u := range s.Units {
		if u.Kind == KindCopy {
			n++
		}
	}
	return n
}
