package history

import (
	"sync"
	"time"

	"github.com/dshills/loom/buffer"
)

// DefaultGroupInterval is the edit-time gap within which consecutive
// committed transactions merge into one undo step.
const DefaultGroupInterval = 300 * time.Millisecond

// History owns the undo and redo stacks of a composite view, the
// transaction nesting depth, and the monotonic transaction id generator.
// All methods are thread-safe.
type History struct {
	mu sync.Mutex

	undoStack []*Transaction
	redoStack []*Transaction

	depth         int
	nextID        uint64
	groupInterval time.Duration
}

// NewHistory creates a History with the default group interval.
func NewHistory() *History {
	return &History{groupInterval: DefaultGroupInterval}
}

// SetGroupInterval changes the automatic grouping interval.
// A zero interval disables time-based grouping.
func (h *History) SetGroupInterval(d time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.groupInterval = d
}

// GroupInterval returns the automatic grouping interval.
func (h *History) GroupInterval() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.groupInterval
}

// Start opens a transaction. Calls nest; only the 0→1 depth transition
// allocates a new Transaction and pushes it onto the undo stack. Nested
// calls return false: no new boundary was created.
func (h *History) Start(now time.Time) (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.depth++
	if h.depth > 1 {
		return 0, false
	}
	h.nextID++
	t := newTransaction(TransactionID(h.nextID), now)
	h.undoStack = append(h.undoStack, t)
	return t.ID, true
}

// End closes a transaction. Only the 1→0 depth transition finalizes: an
// empty bufferTxns discards the open transaction and reports nothing
// committed; otherwise the redo stack is cleared, the transaction's edit
// span is extended to now, and each buffer's local id is recorded unless
// the buffer already has an entry (the first writer per buffer wins).
func (h *History) End(now time.Time, bufferTxns map[buffer.ID]buffer.TransactionID) (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.depth--
	if h.depth < 0 {
		panic("history: end transaction without matching start")
	}
	if h.depth > 0 {
		return 0, false
	}

	top := h.undoStack[len(h.undoStack)-1]
	if len(bufferTxns) == 0 {
		h.undoStack = h.undoStack[:len(h.undoStack)-1]
		return 0, false
	}

	h.redoStack = nil
	top.LastEditAt = now
	for id, txn := range bufferTxns {
		if _, ok := top.BufferTransactions[id]; !ok {
			top.BufferTransactions[id] = txn
		}
	}
	return top.ID, true
}

// Group merges the trailing run of transactions whose edit-time gaps fall
// within the group interval into one undo step, stopping at a
// suppress-grouping boundary. Returns the surviving transaction's id.
func (h *History) Group() (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	if len(h.undoStack) == 0 {
		return 0, false
	}
	i := len(h.undoStack) - 1
	for i > 0 && h.groupInterval > 0 {
		prev := h.undoStack[i-1]
		if prev.SuppressGrouping {
			break
		}
		if h.undoStack[i].FirstEditAt.Sub(prev.LastEditAt) > h.groupInterval {
			break
		}
		i--
	}
	return h.foldLocked(i).ID, true
}

// GroupUntil merges the trailing run of transactions down to and including
// the one with the given id, stopping early at a suppress-grouping
// boundary. Used to force-merge a known span rather than relying on the
// time heuristic.
func (h *History) GroupUntil(id TransactionID) (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	if len(h.undoStack) == 0 {
		return 0, false
	}
	i := len(h.undoStack) - 1
	for i > 0 {
		if h.undoStack[i].ID == id {
			break
		}
		if h.undoStack[i-1].SuppressGrouping {
			break
		}
		i--
	}
	return h.foldLocked(i).ID, true
}

// foldLocked merges undoStack[from+1:] into undoStack[from] and truncates.
// Buffer entries merge without overwriting, keeping the oldest local id per
// buffer.
func (h *History) foldLocked(from int) *Transaction {
	surv := h.undoStack[from]
	for _, t := range h.undoStack[from+1:] {
		surv.merge(t)
	}
	h.undoStack = h.undoStack[:from+1]
	return surv
}

// FinalizeLastTransaction marks the most recent transaction as a grouping
// boundary: nothing committed later will merge across it.
func (h *History) FinalizeLastTransaction() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) > 0 {
		h.undoStack[len(h.undoStack)-1].SuppressGrouping = true
	}
}

// PushTransaction records an already-completed set of buffer transactions
// as one committed composite transaction. Empty sets are ignored.
func (h *History) PushTransaction(bufferTxns map[buffer.ID]buffer.TransactionID, now time.Time) (TransactionID, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	if len(bufferTxns) == 0 {
		return 0, false
	}
	h.nextID++
	t := newTransaction(TransactionID(h.nextID), now)
	for id, txn := range bufferTxns {
		t.BufferTransactions[id] = txn
	}
	h.redoStack = nil
	h.undoStack = append(h.undoStack, t)
	return t.ID, true
}

// PopUndo moves the most recent transaction to the redo stack and returns
// it. The caller may mutate the returned transaction in place while
// replaying it.
func (h *History) PopUndo() *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	if len(h.undoStack) == 0 {
		return nil
	}
	t := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.redoStack = append(h.redoStack, t)
	return t
}

// PopRedo moves the most recently undone transaction back to the undo
// stack and returns it.
func (h *History) PopRedo() *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	if len(h.redoStack) == 0 {
		return nil
	}
	t := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.undoStack = append(h.undoStack, t)
	return t
}

// RemoveFromUndo moves a specific, not necessarily top, transaction from
// the undo stack to the redo stack. Used for out-of-order undo of a past
// transaction.
func (h *History) RemoveFromUndo(id TransactionID) *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.assertOutsideTransactionLocked()

	idx := indexOf(h.undoStack, id)
	if idx < 0 {
		return nil
	}
	t := h.undoStack[idx]
	h.undoStack = append(h.undoStack[:idx], h.undoStack[idx+1:]...)
	h.redoStack = append(h.redoStack, t)
	return t
}

// Forget removes the transaction with the given id from whichever stack
// holds it, without moving it to the other stack.
func (h *History) Forget(id TransactionID) *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()

	if idx := indexOf(h.undoStack, id); idx >= 0 {
		t := h.undoStack[idx]
		h.undoStack = append(h.undoStack[:idx], h.undoStack[idx+1:]...)
		return t
	}
	if idx := indexOf(h.redoStack, id); idx >= 0 {
		t := h.redoStack[idx]
		h.redoStack = append(h.redoStack[:idx], h.redoStack[idx+1:]...)
		return t
	}
	return nil
}

// Transaction returns the transaction with the given id from either stack,
// or nil. History is queryable regardless of direction.
func (h *History) Transaction(id TransactionID) *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()

	if idx := indexOf(h.undoStack, id); idx >= 0 {
		return h.undoStack[idx]
	}
	if idx := indexOf(h.redoStack, id); idx >= 0 {
		return h.redoStack[idx]
	}
	return nil
}

// LastTransaction returns the most recent committed transaction, or nil.
func (h *History) LastTransaction() *Transaction {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1]
}

// UndoCount returns the number of transactions on the undo stack.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of transactions on the redo stack.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Depth returns the current transaction nesting depth.
func (h *History) Depth() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.depth
}

func (h *History) assertOutsideTransactionLocked() {
	if h.depth != 0 {
		panic("history: operation inside open transaction")
	}
}

func indexOf(stack []*Transaction, id TransactionID) int {
	// Search from the back; recent entries are the likely targets.
	for i := len(stack) - 1; i >= 0; i-- {
		if stack[i].ID == id {
			return i
		}
	}
	return -1
}
