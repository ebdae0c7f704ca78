package buffer

import (
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// SetText replaces the entire content with s by computing a minimal set of
// edits, so unchanged regions keep their positions. The edits commit as one
// local transaction whose id is returned; callers that need the replacement
// to stay a discrete undo step (format-on-save, imports) should follow up
// with FinalizeLastTransaction.
//
// If a transaction is already open the edits join it and no id is returned.
func (b *Buffer) SetText(s string) (TransactionID, bool) {
	old := b.Text()
	if old == s {
		return 0, false
	}

	now := time.Now()
	b.StartTransactionAt(now)

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(old, s, false)

	var off ByteOffset
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			off += ByteOffset(len(d.Text))
		case diffmatchpatch.DiffDelete:
			_, _ = b.Delete(Range{Start: off, End: off + ByteOffset(len(d.Text))})
		case diffmatchpatch.DiffInsert:
			_, _ = b.Insert(off, d.Text)
			off += ByteOffset(len(d.Text))
		}
	}

	// Balances the start above: inside a caller's transaction this close is
	// nested and reports nothing committed.
	return b.EndTransactionAt(now)
}
