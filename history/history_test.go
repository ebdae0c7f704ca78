package history

import (
	"testing"
	"time"

	"github.com/dshills/loom/buffer"
)

var base = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(d time.Duration) time.Time { return base.Add(d) }

// commit opens and closes one transaction with the given buffer entries.
func commit(t *testing.T, h *History, now time.Time, txns map[buffer.ID]buffer.TransactionID) TransactionID {
	t.Helper()
	if _, ok := h.Start(now); !ok {
		t.Fatal("outermost start should create a boundary")
	}
	id, ok := h.End(now, txns)
	if !ok {
		t.Fatal("commit failed")
	}
	return id
}

func TestStartEndBalance(t *testing.T) {
	h := NewHistory()

	id, ok := h.Start(at(0))
	if !ok || id == 0 {
		t.Fatal("outermost start should allocate an id")
	}
	if _, ok := h.Start(at(0)); ok {
		t.Error("nested start should not create a boundary")
	}
	if h.Depth() != 2 {
		t.Errorf("depth = %d, want 2", h.Depth())
	}

	if _, ok := h.End(at(0), map[buffer.ID]buffer.TransactionID{1: 1}); ok {
		t.Error("inner end should not commit")
	}
	got, ok := h.End(at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	if !ok || got != id {
		t.Errorf("outer end = (%d, %v), want (%d, true)", got, ok, id)
	}
	if h.Depth() != 0 {
		t.Errorf("depth = %d, want 0", h.Depth())
	}
}

func TestEmptyTransactionDropped(t *testing.T) {
	h := NewHistory()
	h.Start(at(0))
	if _, ok := h.End(at(0), nil); ok {
		t.Error("empty transaction should not commit")
	}
	if h.UndoCount() != 0 {
		t.Errorf("undo count = %d, want 0", h.UndoCount())
	}
}

func TestIDsMonotonic(t *testing.T) {
	h := NewHistory()
	a := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	h.PopUndo()
	// The undone id is never reused.
	b := commit(t, h, at(time.Second), map[buffer.ID]buffer.TransactionID{1: 2})
	if b <= a {
		t.Errorf("ids not monotonic: %d then %d", a, b)
	}
}

func TestCommitClearsRedo(t *testing.T) {
	h := NewHistory()
	commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	h.PopUndo()
	if h.RedoCount() != 1 {
		t.Fatalf("redo count = %d, want 1", h.RedoCount())
	}
	commit(t, h, at(time.Hour), map[buffer.ID]buffer.TransactionID{1: 2})
	if h.RedoCount() != 0 {
		t.Errorf("redo count = %d, want 0 after new commit", h.RedoCount())
	}
}

func TestInnerEndDiscardsEntries(t *testing.T) {
	h := NewHistory()
	h.Start(at(0))
	h.Start(at(0))
	// Only the outermost close finalizes; entries handed to a nested close
	// are dropped with it.
	h.End(at(0), map[buffer.ID]buffer.TransactionID{7: 10})
	id, ok := h.End(at(0), map[buffer.ID]buffer.TransactionID{7: 99, 8: 20})
	if !ok {
		t.Fatal("commit failed")
	}

	txn := h.Transaction(id)
	if txn == nil {
		t.Fatal("transaction not found")
	}
	if txn.BufferTransactions[7] != 99 {
		t.Errorf("buffer 7 id = %d, want the outermost close's 99", txn.BufferTransactions[7])
	}
	if txn.BufferTransactions[8] != 20 {
		t.Errorf("buffer 8 id = %d, want 20", txn.BufferTransactions[8])
	}
}

func TestGroupWithinInterval(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(300 * time.Millisecond)

	first := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	commit(t, h, at(100*time.Millisecond), map[buffer.ID]buffer.TransactionID{2: 5})

	id, ok := h.Group()
	if !ok || id != first {
		t.Fatalf("group = (%d, %v), want (%d, true)", id, ok, first)
	}
	if h.UndoCount() != 1 {
		t.Fatalf("undo count = %d, want 1", h.UndoCount())
	}

	txn := h.Transaction(first)
	if txn.BufferTransactions[1] != 1 || txn.BufferTransactions[2] != 5 {
		t.Errorf("merged map = %v", txn.BufferTransactions)
	}
	if !txn.LastEditAt.Equal(at(100 * time.Millisecond)) {
		t.Errorf("LastEditAt = %v, want latest of the run", txn.LastEditAt)
	}
}

func TestGroupKeepsOldestLocalID(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(time.Second)

	first := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 3})
	commit(t, h, at(time.Millisecond), map[buffer.ID]buffer.TransactionID{1: 9})

	h.Group()
	txn := h.Transaction(first)
	if txn.BufferTransactions[1] != 3 {
		t.Errorf("local id = %d, want oldest 3", txn.BufferTransactions[1])
	}
}

func TestGroupDisabledAtZeroInterval(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(0)

	// Even commits at the same instant stay separate.
	commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 2})

	h.Group()
	if h.UndoCount() != 2 {
		t.Errorf("undo count = %d, want 2: zero interval disables grouping", h.UndoCount())
	}
}

func TestGroupBeyondInterval(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(300 * time.Millisecond)

	commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	commit(t, h, at(time.Second), map[buffer.ID]buffer.TransactionID{1: 2})

	h.Group()
	if h.UndoCount() != 2 {
		t.Errorf("undo count = %d, want 2: gap exceeds interval", h.UndoCount())
	}
}

func TestGroupSuppression(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(time.Hour)

	commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	h.FinalizeLastTransaction()
	commit(t, h, at(50*time.Millisecond), map[buffer.ID]buffer.TransactionID{1: 2})

	h.Group()
	if h.UndoCount() != 2 {
		t.Errorf("undo count = %d, want 2: finalize must block grouping", h.UndoCount())
	}
}

func TestGroupUntil(t *testing.T) {
	h := NewHistory()
	h.SetGroupInterval(0) // the time heuristic is off

	first := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	target := commit(t, h, at(time.Hour), map[buffer.ID]buffer.TransactionID{2: 2})
	commit(t, h, at(2*time.Hour), map[buffer.ID]buffer.TransactionID{3: 3})

	id, ok := h.GroupUntil(target)
	if !ok || id != target {
		t.Fatalf("group until = (%d, %v), want (%d, true)", id, ok, target)
	}
	if h.UndoCount() != 2 {
		t.Fatalf("undo count = %d, want 2", h.UndoCount())
	}
	if h.Transaction(first) == nil {
		t.Error("transaction before the target must survive")
	}
	txn := h.Transaction(target)
	if txn.BufferTransactions[2] != 2 || txn.BufferTransactions[3] != 3 {
		t.Errorf("merged map = %v", txn.BufferTransactions)
	}
}

func TestGroupUntilStopsAtSuppression(t *testing.T) {
	h := NewHistory()

	target := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	h.FinalizeLastTransaction()
	commit(t, h, at(time.Millisecond), map[buffer.ID]buffer.TransactionID{2: 2})
	commit(t, h, at(2*time.Millisecond), map[buffer.ID]buffer.TransactionID{3: 3})

	h.GroupUntil(target)
	if h.UndoCount() != 2 {
		t.Errorf("undo count = %d, want 2: fold must stop after the boundary", h.UndoCount())
	}
}

func TestPopUndoPopRedo(t *testing.T) {
	h := NewHistory()
	id := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})

	txn := h.PopUndo()
	if txn == nil || txn.ID != id {
		t.Fatal("pop undo should return the committed transaction")
	}
	if h.UndoCount() != 0 || h.RedoCount() != 1 {
		t.Errorf("stacks = (%d, %d), want (0, 1)", h.UndoCount(), h.RedoCount())
	}

	// The popped entry is mutable in place.
	txn.BufferTransactions[1] = 42

	back := h.PopRedo()
	if back == nil || back.BufferTransactions[1] != 42 {
		t.Error("pop redo should return the same mutated entry")
	}
	if h.PopRedo() != nil {
		t.Error("empty redo stack should return nil")
	}
}

func TestRemoveFromUndo(t *testing.T) {
	h := NewHistory()
	old := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	top := commit(t, h, at(time.Hour), map[buffer.ID]buffer.TransactionID{1: 2})

	txn := h.RemoveFromUndo(old)
	if txn == nil || txn.ID != old {
		t.Fatal("remove should return the requested transaction")
	}
	if h.UndoCount() != 1 || h.RedoCount() != 1 {
		t.Errorf("stacks = (%d, %d), want (1, 1)", h.UndoCount(), h.RedoCount())
	}
	if h.LastTransaction().ID != top {
		t.Error("newer transaction should remain on the undo stack")
	}
	if h.RemoveFromUndo(999) != nil {
		t.Error("unknown id should return nil")
	}
}

func TestForget(t *testing.T) {
	h := NewHistory()
	a := commit(t, h, at(0), map[buffer.ID]buffer.TransactionID{1: 1})
	b := commit(t, h, at(time.Hour), map[buffer.ID]buffer.TransactionID{1: 2})
	h.PopUndo() // b moves to the redo stack

	if h.Forget(a) == nil {
		t.Error("forget should find entries on the undo stack")
	}
	if h.Forget(b) == nil {
		t.Error("forget should find entries on the redo stack")
	}
	if h.UndoCount() != 0 || h.RedoCount() != 0 {
		t.Errorf("stacks = (%d, %d), want (0, 0)", h.UndoCount(), h.RedoCount())
	}
	if h.Forget(a) != nil {
		t.Error("forgotten ids stay gone")
	}
}

func TestPushTransaction(t *testing.T) {
	h := NewHistory()
	h.PopUndo() // tolerated on empty history

	id, ok := h.PushTransaction(map[buffer.ID]buffer.TransactionID{3: 7}, at(0))
	if !ok {
		t.Fatal("push failed")
	}
	if h.Transaction(id).BufferTransactions[3] != 7 {
		t.Error("pushed entries not recorded")
	}
	if _, ok := h.PushTransaction(nil, at(0)); ok {
		t.Error("empty push should be ignored")
	}
}

func TestEndWithoutStartPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("depth underflow should panic")
		}
	}()
	NewHistory().End(at(0), nil)
}

func TestPopUndoMidTransactionPanics(t *testing.T) {
	h := NewHistory()
	h.Start(at(0))
	defer func() {
		if recover() == nil {
			t.Error("pop undo inside an open transaction should panic")
		}
	}()
	h.PopUndo()
}

func TestGroupMidTransactionPanics(t *testing.T) {
	h := NewHistory()
	h.Start(at(0))
	defer func() {
		if recover() == nil {
			t.Error("group inside an open transaction should panic")
		}
	}()
	h.Group()
}
