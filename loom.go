package loom

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dshills/loom/buffer"
	"github.com/dshills/loom/excerpt"
	"github.com/dshills/loom/history"
)

// Re-export commonly used types for convenience.
type (
	// ByteOffset is a byte position, in buffer or composite space.
	ByteOffset = buffer.ByteOffset

	// Point represents a line/column position.
	Point = buffer.Point

	// Range represents a byte range.
	Range = buffer.Range

	// Edit represents an edit operation.
	Edit = buffer.Edit

	// EditResult contains information about a completed edit.
	EditResult = buffer.EditResult

	// BufferID identifies a buffer.
	BufferID = buffer.ID

	// ExcerptID identifies an excerpt within the view.
	ExcerptID = excerpt.ID

	// Excerpt is a window into a buffer exposed by the view.
	Excerpt = excerpt.Excerpt

	// Anchor is a stable reference to a position inside one excerpt.
	Anchor = excerpt.Anchor

	// Bias controls which side of an edit an anchor sticks to.
	Bias = excerpt.Bias

	// TransactionID identifies a composite transaction.
	TransactionID = history.TransactionID

	// Transaction records buffer transactions committed together.
	Transaction = history.Transaction
)

// Anchor bias values.
const (
	BiasLeft  = excerpt.BiasLeft
	BiasRight = excerpt.BiasRight
)

// ErrUnknownBuffer is returned when an operation names a buffer the view
// does not contain.
var ErrUnknownBuffer = errors.New("buffer not in view")

// Option configures a View.
type Option func(*View)

// WithGroupInterval sets the interval within which consecutive committed
// transactions merge into one undo step.
func WithGroupInterval(d time.Duration) Option {
	return func(v *View) {
		v.history.SetGroupInterval(d)
	}
}

// bufferState tracks one buffer's membership in the view. A buffer stays
// registered while at least one excerpt exposes it.
type bufferState struct {
	buf         *buffer.Buffer
	refs        int
	unsubscribe func()
}

// View is a composite of excerpts over many buffers with one undo/redo
// timeline spanning all of them. All methods are thread-safe, though the
// intended model is a single writer.
type View struct {
	mu       sync.Mutex
	buffers  map[buffer.ID]*bufferState
	excerpts *excerpt.Map
	history  *history.History
}

// New creates an empty view.
func New(opts ...Option) *View {
	v := &View{
		buffers:  make(map[buffer.ID]*bufferState),
		excerpts: excerpt.NewMap(),
		history:  history.NewHistory(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// AddExcerpt appends an excerpt exposing a window of buf to the view,
// registering the buffer if this is its first excerpt.
func (v *View) AddExcerpt(buf *buffer.Buffer, window Range) ExcerptID {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.retainLocked(buf)
	return v.excerpts.Append(buf.ID(), window)
}

// InsertExcerptAt adds an excerpt at a specific position in the composite
// order.
func (v *View) InsertExcerptAt(index int, buf *buffer.Buffer, window Range) (ExcerptID, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	id, err := v.excerpts.InsertAt(index, buf.ID(), window)
	if err != nil {
		return 0, err
	}
	v.retainLocked(buf)
	return id, nil
}

// RemoveExcerpt removes an excerpt. The buffer it exposed stays registered
// while other excerpts still reference it.
func (v *View) RemoveExcerpt(id ExcerptID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	ex, ok := v.excerpts.Remove(id)
	if !ok {
		return false
	}
	v.releaseLocked(ex.Buffer)
	return true
}

// MoveExcerpt reorders an excerpt to a new position in the composite order.
func (v *View) MoveExcerpt(id ExcerptID, index int) error {
	return v.excerpts.Move(id, index)
}

// Excerpts returns the view's excerpts in composite order.
func (v *View) Excerpts() []Excerpt {
	return v.excerpts.Excerpts()
}

// Buffer returns the registered buffer with the given id.
func (v *View) Buffer(id BufferID) (*buffer.Buffer, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	st, ok := v.buffers[id]
	if !ok {
		return nil, false
	}
	return st.buf, true
}

// Buffers returns the registered buffers ordered by id.
func (v *View) Buffers() []*buffer.Buffer {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.orderedBuffersLocked()
}

// retainLocked registers buf or bumps its reference count. The view
// observes the buffer's edits to keep excerpt windows in sync.
func (v *View) retainLocked(buf *buffer.Buffer) {
	st, ok := v.buffers[buf.ID()]
	if !ok {
		st = &bufferState{buf: buf}
		st.unsubscribe = buf.OnEdit(func(id buffer.ID, results []buffer.EditResult) {
			v.excerpts.ApplyEdits(id, results)
		})
		v.buffers[buf.ID()] = st
	}
	st.refs++
}

// releaseLocked drops one reference; the last release unregisters the
// buffer and stops observing it.
func (v *View) releaseLocked(id buffer.ID) {
	st, ok := v.buffers[id]
	if !ok {
		return
	}
	st.refs--
	if st.refs <= 0 {
		st.unsubscribe()
		delete(v.buffers, id)
	}
}

func (v *View) orderedBuffersLocked() []*buffer.Buffer {
	out := make([]*buffer.Buffer, 0, len(v.buffers))
	for _, st := range v.buffers {
		out = append(out, st.buf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// singletonLocked returns the view's only buffer, or nil when the view
// wraps zero or several buffers.
func (v *View) singletonLocked() *buffer.Buffer {
	if len(v.buffers) != 1 {
		return nil
	}
	for _, st := range v.buffers {
		return st.buf
	}
	return nil
}

// StartTransaction begins a transaction across every buffer in the view at
// the current time.
func (v *View) StartTransaction() (TransactionID, bool) {
	return v.StartTransactionAt(time.Now())
}

// StartTransactionAt begins a transaction across every buffer in the view.
// Calls nest; only the outermost call creates a new boundary and returns
// its id.
func (v *View) StartTransactionAt(now time.Time) (TransactionID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, b := range v.orderedBuffersLocked() {
		b.StartTransactionAt(now)
	}
	return v.history.Start(now)
}

// EndTransaction closes the innermost transaction at the current time.
func (v *View) EndTransaction() (TransactionID, bool) {
	return v.EndTransactionAt(time.Now())
}

// EndTransactionAt closes the innermost transaction. On the outermost
// close, buffers that made edits contribute their local transaction ids to
// the committed composite transaction, which may then merge with recent
// history. Returns the id of the surviving transaction, or false when
// nothing was committed.
func (v *View) EndTransactionAt(now time.Time) (TransactionID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	collected := make(map[buffer.ID]buffer.TransactionID)
	for _, b := range v.orderedBuffersLocked() {
		if id, ok := b.EndTransactionAt(now); ok {
			collected[b.ID()] = id
		}
	}

	id, ok := v.history.End(now, collected)
	if !ok {
		return 0, false
	}
	if gid, grouped := v.history.Group(); grouped {
		return gid, true
	}
	return id, true
}

// LastTransactionID returns the id of the most recent committed
// transaction.
func (v *View) LastTransactionID() (TransactionID, bool) {
	t := v.history.LastTransaction()
	if t == nil {
		return 0, false
	}
	return t.ID, true
}

// SetGroupInterval changes the automatic grouping interval.
func (v *View) SetGroupInterval(d time.Duration) {
	v.history.SetGroupInterval(d)
}

// Edit applies an edit to a buffer in the view. Excerpt windows over the
// buffer adjust automatically.
func (v *View) Edit(id BufferID, e Edit) (EditResult, error) {
	v.mu.Lock()
	st, ok := v.buffers[id]
	v.mu.Unlock()
	if !ok {
		return EditResult{}, ErrUnknownBuffer
	}
	return st.buf.Apply(e)
}

// Undo reverts the most recent effective transaction. Transactions whose
// buffers no longer hold the referenced history are skipped, and the id of
// the first transaction that produced a real change is returned. A view
// wrapping a single buffer delegates to that buffer's own undo and returns
// no composite id.
func (v *View) Undo() (TransactionID, bool) {
	v.mu.Lock()
	if b := v.singletonLocked(); b != nil {
		v.mu.Unlock()
		_, ok := b.Undo()
		return 0, ok
	}
	defer v.mu.Unlock()

	for {
		t := v.history.PopUndo()
		if t == nil {
			return 0, false
		}
		if v.revertLocked(t) {
			return t.ID, true
		}
	}
}

// Redo re-applies the most recently undone effective transaction. Mirrors
// Undo, including the single-buffer delegation.
func (v *View) Redo() (TransactionID, bool) {
	v.mu.Lock()
	if b := v.singletonLocked(); b != nil {
		v.mu.Unlock()
		_, ok := b.Redo()
		return 0, ok
	}
	defer v.mu.Unlock()

	for {
		t := v.history.PopRedo()
		if t == nil {
			return 0, false
		}
		if v.replayLocked(t) {
			return t.ID, true
		}
	}
}

// UndoTransaction reverts a specific past transaction without touching the
// transactions committed after it. The transaction moves to the redo stack.
func (v *View) UndoTransaction(id TransactionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := v.history.RemoveFromUndo(id)
	if t == nil {
		return false
	}
	return v.revertLocked(t)
}

// revertLocked undoes every buffer transaction recorded in t, rewriting
// each stored local id from the buffer's top of stack first so the entry
// remains usable for a later redo. Reports whether any buffer changed.
func (v *View) revertLocked(t *Transaction) bool {
	undone := false
	for bid, lid := range t.BufferTransactions {
		st, ok := v.buffers[bid]
		if !ok {
			continue
		}
		undoTo := lid
		if top, ok := st.buf.PeekUndoStack(); ok {
			t.BufferTransactions[bid] = top
		}
		if st.buf.UndoToTransaction(undoTo) {
			undone = true
		}
	}
	return undone
}

// replayLocked is the redo mirror of revertLocked.
func (v *View) replayLocked(t *Transaction) bool {
	redone := false
	for bid, lid := range t.BufferTransactions {
		st, ok := v.buffers[bid]
		if !ok {
			continue
		}
		redoTo := lid
		if top, ok := st.buf.PeekRedoStack(); ok {
			t.BufferTransactions[bid] = top
		}
		if st.buf.RedoToTransaction(redoTo) {
			redone = true
		}
	}
	return redone
}

// PushTransaction records already-completed buffer transactions as one
// composite transaction, for programmatically constructed cross-buffer
// edits.
func (v *View) PushTransaction(bufferTxns map[BufferID]buffer.TransactionID, now time.Time) (TransactionID, bool) {
	return v.history.PushTransaction(bufferTxns, now)
}

// FinalizeLastTransaction marks the most recent transaction, composite and
// per-buffer, as a grouping boundary.
func (v *View) FinalizeLastTransaction() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.history.FinalizeLastTransaction()
	for _, st := range v.buffers {
		st.buf.FinalizeLastTransaction()
	}
}

// GroupUntilTransaction force-merges the trailing run of transactions down
// to and including id into one undo step.
func (v *View) GroupUntilTransaction(id TransactionID) (TransactionID, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if b := v.singletonLocked(); b != nil {
		if t := v.history.Transaction(id); t != nil {
			if lid, ok := t.BufferTransactions[b.ID()]; ok {
				b.GroupUntilTransaction(lid)
			}
		}
	}
	return v.history.GroupUntil(id)
}

// MergeTransactions folds the source transaction into the destination so
// the two undo as one step, merging buffer transactions where both touched
// the same buffer.
func (v *View) MergeTransactions(src, dst TransactionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	dstTxn := v.history.Transaction(dst)
	if dstTxn == nil {
		return false
	}
	srcTxn := v.history.Forget(src)
	if srcTxn == nil {
		return false
	}

	for bid, sid := range srcTxn.BufferTransactions {
		st, registered := v.buffers[bid]
		if did, ok := dstTxn.BufferTransactions[bid]; ok {
			if registered {
				st.buf.MergeTransactions(sid, did)
			}
		} else {
			dstTxn.BufferTransactions[bid] = sid
		}
	}
	if srcTxn.FirstEditAt.Before(dstTxn.FirstEditAt) {
		dstTxn.FirstEditAt = srcTxn.FirstEditAt
	}
	if srcTxn.LastEditAt.After(dstTxn.LastEditAt) {
		dstTxn.LastEditAt = srcTxn.LastEditAt
	}
	return true
}

// ForgetTransaction removes a transaction from history entirely, in the
// composite bookkeeping and in every buffer it names.
func (v *View) ForgetTransaction(id TransactionID) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := v.history.Forget(id)
	if t == nil {
		return false
	}
	for bid, lid := range t.BufferTransactions {
		if st, ok := v.buffers[bid]; ok {
			st.buf.ForgetTransaction(lid)
		}
	}
	return true
}

// EditedRangesForTransaction returns the composite-space byte ranges the
// transaction touched, sorted ascending by start. Ranges that straddle an
// excerpt boundary are skipped. Unknown ids yield nil.
func (v *View) EditedRangesForTransaction(id TransactionID) []Range {
	v.mu.Lock()
	defer v.mu.Unlock()

	t := v.history.Transaction(id)
	if t == nil {
		return nil
	}

	var out []Range
	for bid, lid := range t.BufferTransactions {
		st, ok := v.buffers[bid]
		if !ok {
			continue
		}
		for _, r := range st.buf.EditedRangesForTransaction(lid) {
			out = append(out, v.excerpts.ResolveRange(bid, r)...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})
	return out
}

// Len returns the composite length in bytes.
func (v *View) Len() ByteOffset {
	return v.excerpts.Extent()
}

// Text returns the composite content: each excerpt's window, in order.
func (v *View) Text() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	var sb strings.Builder
	for _, ex := range v.excerpts.Excerpts() {
		st, ok := v.buffers[ex.Buffer]
		if !ok {
			continue
		}
		s, err := st.buf.Slice(v.clampWindowLocked(st.buf, ex.Window))
		if err != nil {
			continue
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// OffsetToPoint converts a composite byte offset into a composite
// line/column point.
func (v *View) OffsetToPoint(off ByteOffset) (Point, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	var p Point
	var start ByteOffset
	for _, ex := range v.excerpts.Excerpts() {
		end := start + ex.Window.Len()
		st, ok := v.buffers[ex.Buffer]
		if !ok {
			start = end
			continue
		}
		if off <= end {
			prefix, err := st.buf.Slice(Range{Start: ex.Window.Start, End: ex.Window.Start + (off - start)})
			if err != nil {
				return Point{}, false
			}
			return p.Add(buffer.Extent(prefix)), true
		}
		s, err := st.buf.Slice(ex.Window)
		if err != nil {
			return Point{}, false
		}
		p = p.Add(buffer.Extent(s))
		start = end
	}
	if off == start {
		return p, true
	}
	return Point{}, false
}

// AnchorAt creates an anchor at a composite offset.
func (v *View) AnchorAt(off ByteOffset, bias excerpt.Bias) (Anchor, bool) {
	return v.excerpts.AnchorAt(off, bias)
}

// ResolveAnchor converts an anchor back into a composite offset.
func (v *View) ResolveAnchor(a Anchor) (ByteOffset, bool) {
	return v.excerpts.Resolve(a)
}

// clampWindowLocked bounds a window to the buffer's current length.
func (v *View) clampWindowLocked(b *buffer.Buffer, w Range) Range {
	n := b.Len()
	if w.End > n {
		w.End = n
	}
	if w.Start > w.End {
		w.Start = w.End
	}
	return w
}
