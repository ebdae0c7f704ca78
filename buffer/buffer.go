package buffer

import (
	"errors"
	"sync"
	"time"
)

// Errors returned by buffer operations.
var (
	ErrOffsetOutOfRange = errors.New("offset out of range")
	ErrRangeInvalid     = errors.New("invalid range")
)

// Observer receives content changes as they are applied, including changes
// produced by undo and redo.
type Observer func(id ID, results []EditResult)

// Option configures a Buffer.
type Option func(*Buffer)

// WithGroupInterval sets the interval within which consecutive local
// transactions are merged at commit. The zero default disables buffer-level
// grouping; composite views own grouping across documents.
func WithGroupInterval(d time.Duration) Option {
	return func(b *Buffer) {
		b.groupInterval = d
	}
}

// Buffer is an independently versioned text document.
// It owns its content and its own transaction-based undo/redo history.
// All methods are thread-safe.
type Buffer struct {
	mu   sync.Mutex
	id   ID
	text []byte

	// Transaction state
	depth         int
	pending       *transaction
	undoStack     []*transaction
	redoStack     []*transaction
	nextTxnID     uint64
	groupInterval time.Duration

	// Observers
	observers  map[int]Observer
	nextObsKey int
}

// NewBuffer creates a new empty buffer.
func NewBuffer(opts ...Option) *Buffer {
	b := &Buffer{
		id:        NewID(),
		observers: make(map[int]Observer),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewBufferFromString creates a buffer with initial content.
// The initial content is not undoable.
func NewBufferFromString(s string, opts ...Option) *Buffer {
	b := NewBuffer(opts...)
	b.text = []byte(s)
	return b
}

// ID returns the buffer's unique identity.
func (b *Buffer) ID() ID {
	return b.id
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() ByteOffset {
	b.mu.Lock()
	defer b.mu.Unlock()
	return ByteOffset(len(b.text))
}

// Text returns the full buffer content.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.text)
}

// Slice returns the text in the given range.
func (b *Buffer) Slice(r Range) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !r.IsValid() {
		return "", ErrRangeInvalid
	}
	if r.Start < 0 || r.End > ByteOffset(len(b.text)) {
		return "", ErrOffsetOutOfRange
	}
	return string(b.text[r.Start:r.End]), nil
}

// PointAt converts a byte offset into a line/column point.
func (b *Buffer) PointAt(off ByteOffset) (Point, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if off < 0 || off > ByteOffset(len(b.text)) {
		return Point{}, ErrOffsetOutOfRange
	}
	return Extent(string(b.text[:off])), nil
}

// Extent returns the point just past the last character.
func (b *Buffer) Extent() Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Extent(string(b.text))
}

// OnEdit registers an observer for content changes.
// The returned function removes the observer.
func (b *Buffer) OnEdit(obs Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := b.nextObsKey
	b.nextObsKey++
	b.observers[key] = obs
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.observers, key)
	}
}

// Insert inserts text at the given offset.
func (b *Buffer) Insert(off ByteOffset, text string) (EditResult, error) {
	return b.Apply(NewInsert(off, text))
}

// Delete removes the text in the given range.
func (b *Buffer) Delete(r Range) (EditResult, error) {
	return b.Apply(NewEdit(r, ""))
}

// Replace replaces the text in the given range.
func (b *Buffer) Replace(r Range, text string) (EditResult, error) {
	return b.Apply(NewEdit(r, text))
}

// Apply applies a single edit. If no transaction is open the edit is
// wrapped in an implicit one.
func (b *Buffer) Apply(e Edit) (EditResult, error) {
	b.mu.Lock()
	if !e.Range.IsValid() {
		b.mu.Unlock()
		return EditResult{}, ErrRangeInvalid
	}
	if e.Range.Start < 0 || e.Range.End > ByteOffset(len(b.text)) {
		b.mu.Unlock()
		return EditResult{}, ErrOffsetOutOfRange
	}
	if e.IsNoOp() {
		b.mu.Unlock()
		return EditResult{}, nil
	}

	now := time.Now()
	implicit := b.depth == 0
	if implicit {
		b.startLocked(now)
	}
	op := b.applyLocked(e)
	if implicit {
		b.endLocked(now)
	}
	b.mu.Unlock()

	res := op.result()
	b.notify([]EditResult{res})
	return res, nil
}

// applyLocked splices the edit into the content and records the operation
// in the pending transaction. The caller must hold b.mu and must have
// validated the edit.
func (b *Buffer) applyLocked(e Edit) operation {
	op := b.spliceLocked(e.Range, e.NewText)
	if b.pending != nil {
		b.pending.ops = append(b.pending.ops, op)
	}
	return op
}

// spliceLocked replaces the range with text without recording history.
func (b *Buffer) spliceLocked(r Range, text string) operation {
	old := string(b.text[r.Start:r.End])

	next := make([]byte, 0, len(b.text)+len(text)-int(r.Len()))
	next = append(next, b.text[:r.Start]...)
	next = append(next, text...)
	next = append(next, b.text[r.End:]...)
	b.text = next

	return operation{
		oldRange: r,
		newRange: Range{Start: r.Start, End: r.Start + ByteOffset(len(text))},
		oldText:  old,
		newText:  text,
	}
}

// notify delivers results to observers. Must be called without holding b.mu.
func (b *Buffer) notify(results []EditResult) {
	if len(results) == 0 {
		return
	}
	b.mu.Lock()
	obs := make([]Observer, 0, len(b.observers))
	for _, o := range b.observers {
		obs = append(obs, o)
	}
	b.mu.Unlock()
	for _, o := range obs {
		o(b.id, results)
	}
}
