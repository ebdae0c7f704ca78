// Package loom stitches excerpts of many independently versioned text
// buffers into one composite view with a single transactional undo/redo
// timeline.
//
// The View is the facade. It spans transactions across every buffer in the
// view, records which buffer-local transactions committed together, merges
// transactions committed in quick succession into one undo step, and
// replays undo/redo across all involved buffers even when a buffer's own
// history has since been altered.
//
// # Basic usage
//
//	a := buffer.NewBufferFromString("alpha\n")
//	b := buffer.NewBufferFromString("beta\n")
//
//	v := loom.New()
//	v.AddExcerpt(a, buffer.NewRange(0, a.Len()))
//	v.AddExcerpt(b, buffer.NewRange(0, b.Len()))
//
//	v.StartTransaction()
//	v.Edit(a.ID(), buffer.NewInsert(0, "x"))
//	v.Edit(b.ID(), buffer.NewInsert(0, "y"))
//	id, _ := v.EndTransaction()
//
//	v.Undo() // reverts both buffers in one step
//	v.Redo()
//
//	for _, r := range v.EditedRangesForTransaction(id) {
//		// composite-space ranges the transaction touched
//	}
//
// The subpackages divide the work: buffer holds document content and local
// history, excerpt maintains the composite coordinate space, and history
// owns the cross-buffer transaction bookkeeping.
package loom
