package history

import (
	"time"

	"github.com/dshills/loom/buffer"
)

// TransactionID identifies one composite transaction.
// IDs are strictly monotonic per History and are never reused, even across
// undo, redo, and forget.
type TransactionID uint64

// Transaction records the buffer-local transactions that were committed
// together, with timing metadata. Once committed it moves between the undo
// and redo stacks; the composite view rewrites BufferTransactions entries
// in place as it replays (see View.Undo).
type Transaction struct {
	ID TransactionID

	// BufferTransactions maps each involved buffer to its local
	// transaction id. At most one entry per buffer: the first local id
	// recorded within the composite transaction, since undo must walk back
	// to the true start of the edit.
	BufferTransactions map[buffer.ID]buffer.TransactionID

	// FirstEditAt and LastEditAt bound the wall-clock span of the edits
	// folded into this transaction.
	FirstEditAt time.Time
	LastEditAt  time.Time

	// SuppressGrouping, once set, prevents any later transaction from
	// merging backward across this one.
	SuppressGrouping bool
}

// newTransaction creates an open transaction with no buffer entries.
func newTransaction(id TransactionID, now time.Time) *Transaction {
	return &Transaction{
		ID:                 id,
		BufferTransactions: make(map[buffer.ID]buffer.TransactionID),
		FirstEditAt:        now,
		LastEditAt:         now,
	}
}

// merge copies other's buffer entries into t without overwriting existing
// keys, and extends t's edit span to cover other's.
func (t *Transaction) merge(other *Transaction) {
	for id, txn := range other.BufferTransactions {
		if _, ok := t.BufferTransactions[id]; !ok {
			t.BufferTransactions[id] = txn
		}
	}
	if other.LastEditAt.After(t.LastEditAt) {
		t.LastEditAt = other.LastEditAt
	}
	if other.FirstEditAt.Before(t.FirstEditAt) {
		t.FirstEditAt = other.FirstEditAt
	}
}
