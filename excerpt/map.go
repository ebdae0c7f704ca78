package excerpt

import (
	"errors"
	"sync"

	"github.com/dshills/loom/buffer"
)

// ErrIndexOutOfRange is returned when an excerpt index is out of bounds.
var ErrIndexOutOfRange = errors.New("excerpt index out of range")

// Map is the ordered, seekable collection of excerpts backing a composite
// view. All methods are thread-safe.
type Map struct {
	mu       sync.Mutex
	excerpts []Excerpt
	nextID   uint64
}

// NewMap creates an empty excerpt map.
func NewMap() *Map {
	return &Map{}
}

// Append adds an excerpt at the end of the composite view.
func (m *Map) Append(buf buffer.ID, window buffer.Range) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.allocLocked()
	m.excerpts = append(m.excerpts, Excerpt{ID: id, Buffer: buf, Window: window})
	return id
}

// InsertAt adds an excerpt at the given position in the composite order.
func (m *Map) InsertAt(index int, buf buffer.ID, window buffer.Range) (ID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if index < 0 || index > len(m.excerpts) {
		return 0, ErrIndexOutOfRange
	}
	id := m.allocLocked()
	ex := Excerpt{ID: id, Buffer: buf, Window: window}
	m.excerpts = append(m.excerpts, Excerpt{})
	copy(m.excerpts[index+1:], m.excerpts[index:])
	m.excerpts[index] = ex
	return id, nil
}

// Remove deletes the excerpt with the given id.
// Returns the removed excerpt.
func (m *Map) Remove(id ID) (Excerpt, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return Excerpt{}, false
	}
	ex := m.excerpts[idx]
	m.excerpts = append(m.excerpts[:idx], m.excerpts[idx+1:]...)
	return ex, true
}

// Move reorders the excerpt with the given id to a new position.
func (m *Map) Move(id ID, index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.indexLocked(id)
	if idx < 0 {
		return ErrIndexOutOfRange
	}
	if index < 0 || index >= len(m.excerpts) {
		return ErrIndexOutOfRange
	}
	ex := m.excerpts[idx]
	m.excerpts = append(m.excerpts[:idx], m.excerpts[idx+1:]...)
	m.excerpts = append(m.excerpts, Excerpt{})
	copy(m.excerpts[index+1:], m.excerpts[index:])
	m.excerpts[index] = ex
	return nil
}

// Len returns the number of excerpts.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.excerpts)
}

// Extent returns the total composite length in bytes.
func (m *Map) Extent() buffer.ByteOffset {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total buffer.ByteOffset
	for _, ex := range m.excerpts {
		total += ex.Window.Len()
	}
	return total
}

// Excerpts returns the excerpts in composite order.
func (m *Map) Excerpts() []Excerpt {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Excerpt, len(m.excerpts))
	copy(out, m.excerpts)
	return out
}

// Seek locates an excerpt by id and returns it with its composite start
// offset.
func (m *Map) Seek(id ID) (Excerpt, buffer.ByteOffset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var start buffer.ByteOffset
	for _, ex := range m.excerpts {
		if ex.ID == id {
			return ex, start, true
		}
		start += ex.Window.Len()
	}
	return Excerpt{}, 0, false
}

// ExcerptAt returns the excerpt containing the composite offset, along with
// the excerpt's composite start.
func (m *Map) ExcerptAt(off buffer.ByteOffset) (Excerpt, buffer.ByteOffset, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var start buffer.ByteOffset
	for _, ex := range m.excerpts {
		end := start + ex.Window.Len()
		if off >= start && off < end {
			return ex, start, true
		}
		start = end
	}
	return Excerpt{}, 0, false
}

// ForBuffer returns every excerpt exposing the given buffer, in composite
// order.
func (m *Map) ForBuffer(buf buffer.ID) []Excerpt {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Excerpt
	for _, ex := range m.excerpts {
		if ex.Buffer == buf {
			out = append(out, ex)
		}
	}
	return out
}

// ResolveRange converts a buffer-space range into composite-space ranges,
// one per excerpt whose window fully contains it. Ranges straddling an
// excerpt boundary are skipped: they have no single composite
// representation.
func (m *Map) ResolveRange(buf buffer.ID, r buffer.Range) []buffer.Range {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []buffer.Range
	var start buffer.ByteOffset
	for _, ex := range m.excerpts {
		if ex.Buffer == buf && ex.Window.ContainsRange(r) {
			out = append(out, buffer.Range{
				Start: start + (r.Start - ex.Window.Start),
				End:   start + (r.End - ex.Window.Start),
			})
		}
		start += ex.Window.Len()
	}
	return out
}

// AnchorAt creates an anchor for the excerpt containing the composite
// offset.
func (m *Map) AnchorAt(off buffer.ByteOffset, bias Bias) (Anchor, bool) {
	ex, start, ok := m.ExcerptAt(off)
	if !ok {
		return Anchor{}, false
	}
	return Anchor{
		Excerpt: ex.ID,
		Offset:  ex.Window.Start + (off - start),
		Bias:    bias,
	}, true
}

// Resolve converts an anchor back into a composite offset, clamping to the
// excerpt's current window. Returns false if the excerpt no longer exists.
func (m *Map) Resolve(a Anchor) (buffer.ByteOffset, bool) {
	ex, start, ok := m.Seek(a.Excerpt)
	if !ok {
		return 0, false
	}
	off := a.Offset
	if off < ex.Window.Start {
		off = ex.Window.Start
	}
	if off > ex.Window.End {
		off = ex.Window.End
	}
	return start + (off - ex.Window.Start), true
}

// ApplyEdits adjusts the windows of every excerpt exposing the edited
// buffer. Edits before a window shift it; edits inside a window grow or
// shrink it; edits straddling a window boundary clip at the boundary, so
// windows never grow over each other.
func (m *Map) ApplyEdits(buf buffer.ID, results []buffer.EditResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.excerpts {
		if m.excerpts[i].Buffer != buf {
			continue
		}
		w := m.excerpts[i].Window
		for _, res := range results {
			w = adjustWindow(w, res.OldRange, res.NewRange.Len())
		}
		m.excerpts[i].Window = w
	}
}

// adjustWindow transforms a window through an edit that replaced old with
// newLen bytes. Replacement text belongs to a window only when the window
// fully contained the edit; an edit straddling a boundary leaves its text
// outside the clipped window.
func adjustWindow(w, old buffer.Range, newLen buffer.ByteOffset) buffer.Range {
	delta := newLen - old.Len()
	switch {
	case old.End <= w.Start:
		return w.Shift(delta)
	case old.Start >= w.End:
		return w
	case old.Start >= w.Start && old.End <= w.End:
		w.End += delta
		return w
	case old.Start < w.Start && old.End > w.End:
		// The edit swallows the window: collapse to an empty window just
		// past the replacement text.
		p := old.Start + newLen
		return buffer.Range{Start: p, End: p}
	case old.Start < w.Start:
		// Straddles the window start: the window begins after the
		// replacement text and keeps the bytes it still covers.
		w.Start = old.Start + newLen
		w.End += delta
		if w.End < w.Start {
			w.End = w.Start
		}
		return w
	default:
		// Straddles the window end: the window keeps the bytes before the
		// edit.
		w.End = old.Start
		return w
	}
}

func (m *Map) allocLocked() ID {
	m.nextID++
	return ID(m.nextID)
}

func (m *Map) indexLocked(id ID) int {
	for i, ex := range m.excerpts {
		if ex.ID == id {
			return i
		}
	}
	return -1
}
