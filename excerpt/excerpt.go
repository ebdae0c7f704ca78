package excerpt

import (
	"fmt"

	"github.com/dshills/loom/buffer"
)

// ID uniquely identifies an excerpt within a Map.
type ID uint64

// Excerpt is a bounded window into a buffer, exposed at a position within
// the composite view. The window is expressed in buffer-space byte offsets.
type Excerpt struct {
	ID     ID
	Buffer buffer.ID
	Window buffer.Range
}

// String returns a human-readable representation of the excerpt.
func (e Excerpt) String() string {
	return fmt.Sprintf("excerpt %d: buffer %d %s", e.ID, e.Buffer, e.Window)
}

// Bias controls which side of an insertion an anchor sticks to.
type Bias uint8

const (
	// BiasLeft keeps the anchor before text inserted at its position.
	BiasLeft Bias = iota
	// BiasRight moves the anchor after text inserted at its position.
	BiasRight
)

// Anchor is a stable reference to a position inside one excerpt's buffer.
// It survives excerpt reordering because it names the excerpt, not a
// composite offset.
type Anchor struct {
	Excerpt ID
	Offset  buffer.ByteOffset // buffer-space offset
	Bias    Bias
}
