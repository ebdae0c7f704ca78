// Package history tracks composite transactions across many buffers and
// owns the undo/redo stacks of a composite view.
//
// A Transaction records which buffer-local transactions were committed
// together, with timestamps bounding the wall-clock span of their edits.
// The History allocates monotonic transaction ids, balances nested
// start/end calls with a depth counter, clears redo history when new work
// commits, and merges adjacent transactions whose edit-time gap falls
// within the group interval.
//
// History records buffer identities and local transaction ids only; it
// never touches buffer content. Replaying a transaction against the
// buffers it names is the composite view's job.
package history
