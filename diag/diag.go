// Package diag implements the rank-local diagnostic stream referenced
// in spec §7: a BlockVector configured with a Stream writes through it
// whenever an algebra call (Dot, MDot, Axpy, Axpby, CopyValues) hits a
// shape/type mismatch, the same case the original reports via
// fprintf(stderr, "TACSBVec ... sizes must be the same") before
// silently no-oping. Output is colorized by severity the way
// color.Red/color.Yellow mark errors and warnings elsewhere in the
// corpus, and tagged with a uuid so traces from the same logical
// operation across ranks can be correlated in a collected log.
package diag

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
)

// Level is a diagnostic record's severity.
type Level int

const (
	Info Level = iota
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Record is one diagnostic event.
type Record struct {
	ID        uuid.UUID
	Rank      int
	Level     Level
	Message   string
	Timestamp time.Time
}

// Stream is a rank-local sink for diagnostic records. It adds no
// locking of its own: concurrent Emit calls write to out without
// synchronization, so concurrent use is safe only when out is.
type Stream struct {
	rank int
	out  io.Writer
	// color controls whether output is colorized; disable for
	// non-terminal sinks (e.g. a file captured by a test harness).
	color bool
}

// New builds a Stream for the given rank writing to out. Colorized
// output is enabled by default, matching the corpus's habit of
// color.Red/color.Yellow for error/warning console lines.
func New(rank int, out io.Writer) *Stream {
	if out == nil {
		out = os.Stderr
	}
	return &Stream{rank: rank, out: out, color: true}
}

// DisableColor turns off ANSI coloring, for non-terminal sinks.
func (s *Stream) DisableColor() { s.color = false }

// Emit writes a record, returning the correlation ID assigned to it.
// Pass an existing corrID to group this record with prior ones from
// the same logical operation (e.g. every record in one BeginForward/
// EndForward pair); pass uuid.Nil to mint a fresh one.
func (s *Stream) Emit(corrID uuid.UUID, level Level, format string, args ...any) uuid.UUID {
	if corrID == uuid.Nil {
		corrID = uuid.New()
	}
	rec := Record{
		ID:      corrID,
		Rank:    s.rank,
		Level:   level,
		Message: fmt.Sprintf(format, args...),
	}
	s.write(rec)
	return corrID
}

func (s *Stream) write(rec Record) {
	line := fmt.Sprintf("[rank %d] %s %s (%s)\n", rec.Rank, rec.Level, rec.Message, rec.ID)
	if !s.color {
		fmt.Fprint(s.out, line)
		return
	}
	switch rec.Level {
	case Error:
		color.New(color.FgRed).Fprint(s.out, line)
	case Warn:
		color.New(color.FgYellow).Fprint(s.out, line)
	default:
		color.New(color.FgCyan).Fprint(s.out, line)
	}
}

// Info emits an Info-level record.
func (s *Stream) Info(corrID uuid.UUID, format string, args ...any) uuid.UUID {
	return s.Emit(corrID, Info, format, args...)
}

// Warn emits a Warn-level record.
func (s *Stream) Warn(corrID uuid.UUID, format string, args ...any) uuid.UUID {
	return s.Emit(corrID, Warn, format, args...)
}

// Error emits an Error-level record.
func (s *Stream) Error(corrID uuid.UUID, format string, args ...any) uuid.UUID {
	return s.Emit(corrID, Error, format, args...)
}
