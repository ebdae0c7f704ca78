package buffer

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// ByteOffset represents a byte position in the buffer.
// This is the fundamental position type, directly indexing into the text.
type ByteOffset = int64

// Point represents a line and column position.
// Both Line and Column are 0-indexed.
// Column is measured in bytes from the start of the line.
type Point struct {
	Line   uint32 // 0-indexed line number
	Column uint32 // 0-indexed column (byte offset within line)
}

// String returns a human-readable representation of the point.
func (p Point) String() string {
	return fmt.Sprintf("(%d:%d)", p.Line, p.Column)
}

// Compare returns -1 if p < other, 0 if p == other, 1 if p > other.
func (p Point) Compare(other Point) int {
	if p.Line < other.Line {
		return -1
	}
	if p.Line > other.Line {
		return 1
	}
	if p.Column < other.Column {
		return -1
	}
	if p.Column > other.Column {
		return 1
	}
	return 0
}

// Before returns true if p comes before other.
func (p Point) Before(other Point) bool {
	return p.Compare(other) < 0
}

// After returns true if p comes after other.
func (p Point) After(other Point) bool {
	return p.Compare(other) > 0
}

// IsZero returns true if this is the zero point (0:0).
func (p Point) IsZero() bool {
	return p.Line == 0 && p.Column == 0
}

// Add returns the point reached by appending text with extent other
// immediately after p. If other spans no lines the columns add; otherwise
// the trailing column replaces p's column.
func (p Point) Add(other Point) Point {
	if other.Line == 0 {
		return Point{Line: p.Line, Column: p.Column + other.Column}
	}
	return Point{Line: p.Line + other.Line, Column: other.Column}
}

// Extent returns the Point spanned by s: the number of newlines in s and
// the byte length of its final line.
func Extent(s string) Point {
	lines := strings.Count(s, "\n")
	last := s
	if lines > 0 {
		last = s[strings.LastIndexByte(s, '\n')+1:]
	}
	return Point{Line: uint32(lines), Column: uint32(len(last))}
}

// ID uniquely identifies a buffer for the lifetime of the process.
// History bookkeeping holds buffer IDs, never buffer pointers.
type ID uint64

// bufferIDCounter is used to generate unique buffer IDs.
var bufferIDCounter uint64

// NewID generates a new unique buffer ID.
// This is thread-safe using atomic operations.
func NewID() ID {
	return ID(atomic.AddUint64(&bufferIDCounter, 1))
}
