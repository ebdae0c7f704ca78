// Package buffer implements an independently versioned text document with
// its own transaction-based undo/redo history.
//
// A Buffer owns its text and assigns monotonic transaction ids to groups of
// edits. Edits made while a transaction is open accumulate into one local
// transaction; edits made outside a transaction are wrapped in an implicit
// one. The local history supports undoing or redoing down to a specific
// transaction id, merging two transactions into one undo step, and dropping
// a transaction from history entirely.
//
// # Transactions
//
//	buf := buffer.NewBufferFromString("hello")
//	buf.StartTransaction()
//	buf.Insert(5, " world")
//	id, _ := buf.EndTransaction()
//
//	buf.UndoToTransaction(id) // back to "hello"
//
// Start/end pairs nest; only the outermost pair creates a transaction
// boundary. A transaction that made no edits is discarded at end.
//
// # Observers
//
// Callers that maintain derived state (for example excerpt windows over this
// buffer) register an observer with OnEdit and receive every content change,
// including those produced by undo and redo.
package buffer
