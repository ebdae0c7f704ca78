package buffer

import (
	"sort"
	"time"
)

// TransactionID identifies one local transaction within a buffer.
// IDs are monotonic per buffer and are never reused, even after undo or
// forget.
type TransactionID uint64

// transaction accumulates the operations applied between the outermost
// start/end pair, with timestamps bounding the wall-clock span of its edits.
type transaction struct {
	id               TransactionID
	firstEditAt      time.Time
	lastEditAt       time.Time
	suppressGrouping bool
	ops              []operation
}

// StartTransaction begins a transaction at the current time.
func (b *Buffer) StartTransaction() bool {
	return b.StartTransactionAt(time.Now())
}

// StartTransactionAt begins a transaction. Calls nest; only the outermost
// call opens a new local transaction, and only that call returns true.
func (b *Buffer) StartTransactionAt(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.startLocked(now)
}

func (b *Buffer) startLocked(now time.Time) bool {
	b.depth++
	if b.depth > 1 {
		return false
	}
	b.nextTxnID++
	b.pending = &transaction{
		id:          TransactionID(b.nextTxnID),
		firstEditAt: now,
		lastEditAt:  now,
	}
	return true
}

// EndTransaction ends a transaction at the current time.
func (b *Buffer) EndTransaction() (TransactionID, bool) {
	return b.EndTransactionAt(time.Now())
}

// EndTransactionAt closes the innermost open transaction. Only the
// outermost close commits; a transaction that made no edits is discarded
// and reported as not committed.
func (b *Buffer) EndTransactionAt(now time.Time) (TransactionID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.endLocked(now)
}

func (b *Buffer) endLocked(now time.Time) (TransactionID, bool) {
	b.depth--
	if b.depth < 0 {
		panic("buffer: end transaction without matching start")
	}
	if b.depth > 0 {
		return 0, false
	}

	t := b.pending
	b.pending = nil
	if t == nil || len(t.ops) == 0 {
		return 0, false
	}
	t.lastEditAt = now
	b.redoStack = nil

	if b.groupInterval > 0 && len(b.undoStack) > 0 {
		prev := b.undoStack[len(b.undoStack)-1]
		if !prev.suppressGrouping && t.firstEditAt.Sub(prev.lastEditAt) <= b.groupInterval {
			prev.ops = append(prev.ops, t.ops...)
			prev.lastEditAt = t.lastEditAt
			return prev.id, true
		}
	}

	b.undoStack = append(b.undoStack, t)
	return t.id, true
}

// Undo reverts the most recent transaction.
// Must not be called while a transaction is open.
func (b *Buffer) Undo() (TransactionID, bool) {
	b.mu.Lock()
	b.assertOutsideTransactionLocked()
	if len(b.undoStack) == 0 {
		b.mu.Unlock()
		return 0, false
	}
	t := b.popUndoLocked()
	results := b.revertLocked(t)
	b.mu.Unlock()

	b.notify(results)
	return t.id, true
}

// Redo re-applies the most recently undone transaction.
// Must not be called while a transaction is open.
func (b *Buffer) Redo() (TransactionID, bool) {
	b.mu.Lock()
	b.assertOutsideTransactionLocked()
	if len(b.redoStack) == 0 {
		b.mu.Unlock()
		return 0, false
	}
	t := b.popRedoLocked()
	results := b.replayLocked(t)
	b.mu.Unlock()

	b.notify(results)
	return t.id, true
}

// UndoToTransaction reverts every transaction down to and including id.
// Returns false without changing content if id is not on the undo stack.
func (b *Buffer) UndoToTransaction(id TransactionID) bool {
	b.mu.Lock()
	b.assertOutsideTransactionLocked()
	if indexOfTransaction(b.undoStack, id) < 0 {
		b.mu.Unlock()
		return false
	}
	var results []EditResult
	for {
		t := b.popUndoLocked()
		results = append(results, b.revertLocked(t)...)
		if t.id == id {
			break
		}
	}
	b.mu.Unlock()

	b.notify(results)
	return len(results) > 0
}

// RedoToTransaction re-applies every undone transaction up to and including
// id. Returns false without changing content if id is not on the redo stack.
func (b *Buffer) RedoToTransaction(id TransactionID) bool {
	b.mu.Lock()
	b.assertOutsideTransactionLocked()
	if indexOfTransaction(b.redoStack, id) < 0 {
		b.mu.Unlock()
		return false
	}
	var results []EditResult
	for {
		t := b.popRedoLocked()
		results = append(results, b.replayLocked(t)...)
		if t.id == id {
			break
		}
	}
	b.mu.Unlock()

	b.notify(results)
	return len(results) > 0
}

// PeekUndoStack returns the id of the transaction Undo would revert.
func (b *Buffer) PeekUndoStack() (TransactionID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.undoStack) == 0 {
		return 0, false
	}
	return b.undoStack[len(b.undoStack)-1].id, true
}

// PeekRedoStack returns the id of the transaction Redo would re-apply.
func (b *Buffer) PeekRedoStack() (TransactionID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.redoStack) == 0 {
		return 0, false
	}
	return b.redoStack[len(b.redoStack)-1].id, true
}

// UndoCount returns the number of transactions on the undo stack.
func (b *Buffer) UndoCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.undoStack)
}

// RedoCount returns the number of transactions on the redo stack.
func (b *Buffer) RedoCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.redoStack)
}

// FinalizeLastTransaction marks the most recent transaction as a grouping
// boundary: nothing committed later will merge across it.
func (b *Buffer) FinalizeLastTransaction() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.undoStack) > 0 {
		b.undoStack[len(b.undoStack)-1].suppressGrouping = true
	}
}

// GroupUntilTransaction merges the trailing run of transactions down to and
// including id into a single undo step. The merge stops early at a
// suppress-grouping boundary. Returns the surviving id.
func (b *Buffer) GroupUntilTransaction(id TransactionID) (TransactionID, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assertOutsideTransactionLocked()

	idx := indexOfTransaction(b.undoStack, id)
	if idx < 0 {
		return 0, false
	}
	from := idx
	for j := len(b.undoStack) - 1; j > idx; j-- {
		if b.undoStack[j-1].suppressGrouping {
			from = j
			break
		}
	}
	surv := b.foldLocked(from)
	return surv.id, true
}

// MergeTransactions folds the source transaction into the destination so
// the two undo as one step. Both must be on the undo stack.
func (b *Buffer) MergeTransactions(src, dst TransactionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	si := indexOfTransaction(b.undoStack, src)
	di := indexOfTransaction(b.undoStack, dst)
	if si < 0 || di < 0 || si == di {
		return false
	}

	s := b.undoStack[si]
	d := b.undoStack[di]
	if si < di {
		// Source is older: its operations precede the destination's.
		d.ops = append(append([]operation(nil), s.ops...), d.ops...)
		d.firstEditAt = s.firstEditAt
	} else {
		d.ops = append(d.ops, s.ops...)
		if s.lastEditAt.After(d.lastEditAt) {
			d.lastEditAt = s.lastEditAt
		}
	}
	b.undoStack = append(b.undoStack[:si], b.undoStack[si+1:]...)
	return true
}

// ForgetTransaction removes a transaction from history without replaying
// it. The content is unaffected.
func (b *Buffer) ForgetTransaction(id TransactionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if idx := indexOfTransaction(b.undoStack, id); idx >= 0 {
		b.undoStack = append(b.undoStack[:idx], b.undoStack[idx+1:]...)
		return true
	}
	if idx := indexOfTransaction(b.redoStack, id); idx >= 0 {
		b.redoStack = append(b.redoStack[:idx], b.redoStack[idx+1:]...)
		return true
	}
	return false
}

// EditedRangesForTransaction returns the ranges the transaction edited,
// expressed in the buffer's current coordinates, sorted by start with
// overlapping ranges merged. The transaction may be on either stack;
// unknown ids yield nil.
func (b *Buffer) EditedRangesForTransaction(id TransactionID) []Range {
	b.mu.Lock()
	defer b.mu.Unlock()

	if idx := indexOfTransaction(b.undoStack, id); idx >= 0 {
		t := b.undoStack[idx]
		ranges := make([]Range, 0, len(t.ops))
		for i, op := range t.ops {
			r := op.newRange
			for _, later := range t.ops[i+1:] {
				r = r.Adjust(later.oldRange, ByteOffset(len(later.newText)))
			}
			ranges = append(ranges, r)
		}
		// Carry the ranges forward through every transaction committed since.
		for _, after := range b.undoStack[idx+1:] {
			for _, op := range after.ops {
				for j := range ranges {
					ranges[j] = ranges[j].Adjust(op.oldRange, ByteOffset(len(op.newText)))
				}
			}
		}
		return mergeRanges(ranges)
	}

	if idx := indexOfTransaction(b.redoStack, id); idx >= 0 {
		// The transaction is currently undone: its footprint in the present
		// content is the old ranges, rebased back through the inverse of
		// everything undone after it.
		t := b.redoStack[idx]
		ranges := make([]Range, 0, len(t.ops))
		for i, op := range t.ops {
			r := op.oldRange
			for k := i - 1; k >= 0; k-- {
				inv := t.ops[k].inverse()
				r = r.Adjust(inv.oldRange, ByteOffset(len(inv.newText)))
			}
			ranges = append(ranges, r)
		}
		for _, after := range b.redoStack[idx+1:] {
			for k := len(after.ops) - 1; k >= 0; k-- {
				inv := after.ops[k].inverse()
				for j := range ranges {
					ranges[j] = ranges[j].Adjust(inv.oldRange, ByteOffset(len(inv.newText)))
				}
			}
		}
		return mergeRanges(ranges)
	}

	return nil
}

// popUndoLocked moves the top of the undo stack to the redo stack.
func (b *Buffer) popUndoLocked() *transaction {
	t := b.undoStack[len(b.undoStack)-1]
	b.undoStack = b.undoStack[:len(b.undoStack)-1]
	b.redoStack = append(b.redoStack, t)
	return t
}

// popRedoLocked moves the top of the redo stack to the undo stack.
func (b *Buffer) popRedoLocked() *transaction {
	t := b.redoStack[len(b.redoStack)-1]
	b.redoStack = b.redoStack[:len(b.redoStack)-1]
	b.undoStack = append(b.undoStack, t)
	return t
}

// revertLocked applies the transaction's operations in reverse.
func (b *Buffer) revertLocked(t *transaction) []EditResult {
	results := make([]EditResult, 0, len(t.ops))
	for i := len(t.ops) - 1; i >= 0; i-- {
		inv := t.ops[i].inverse()
		b.spliceLocked(inv.oldRange, inv.newText)
		results = append(results, inv.result())
	}
	return results
}

// replayLocked re-applies the transaction's operations in order.
func (b *Buffer) replayLocked(t *transaction) []EditResult {
	results := make([]EditResult, 0, len(t.ops))
	for _, op := range t.ops {
		b.spliceLocked(op.oldRange, op.newText)
		results = append(results, op.result())
	}
	return results
}

// foldLocked merges undoStack[from+1:] into undoStack[from] and truncates.
func (b *Buffer) foldLocked(from int) *transaction {
	surv := b.undoStack[from]
	for _, t := range b.undoStack[from+1:] {
		surv.ops = append(surv.ops, t.ops...)
		surv.lastEditAt = t.lastEditAt
	}
	b.undoStack = b.undoStack[:from+1]
	return surv
}

func (b *Buffer) assertOutsideTransactionLocked() {
	if b.depth != 0 {
		panic("buffer: history operation inside open transaction")
	}
}

func indexOfTransaction(stack []*transaction, id TransactionID) int {
	// Search from the back; recent entries are the likely targets.
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].id == id {
			return i
		}
	}
	return -1
}

// mergeRanges sorts ranges by start and merges any that overlap.
func mergeRanges(ranges []Range) []Range {
	if len(ranges) <= 1 {
		return ranges
	}
	sort.Slice(ranges, func(i, j int) bool {
		if ranges[i].Start != ranges[j].Start {
			return ranges[i].Start < ranges[j].Start
		}
		return ranges[i].End < ranges[j].End
	})
	merged := ranges[:1]
	for _, r := range ranges[1:] {
		last := &merged[len(merged)-1]
		if r.Start <= last.End {
			if r.End > last.End {
				last.End = r.End
			}
			continue
		}
		merged = append(merged, r)
	}
	return merged
}
