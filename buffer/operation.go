package buffer

// operation records a single applied edit inside a transaction with the
// information needed to reverse it. OldRange is in pre-edit coordinates,
// NewRange in post-edit coordinates; replaying operations in reverse order
// with oldText restores the prior content exactly.
type operation struct {
	oldRange Range
	newRange Range
	oldText  string
	newText  string
}

// delta returns the change in buffer length caused by the operation.
func (op operation) delta() ByteOffset {
	return ByteOffset(len(op.newText)) - op.oldRange.Len()
}

// inverse returns the operation that undoes op.
func (op operation) inverse() operation {
	return operation{
		oldRange: op.newRange,
		newRange: op.oldRange,
		oldText:  op.newText,
		newText:  op.oldText,
	}
}

// result converts the operation into the EditResult delivered to observers.
func (op operation) result() EditResult {
	return EditResult{
		OldRange: op.oldRange,
		NewRange: op.newRange,
		OldText:  op.oldText,
		Delta:    int64(op.delta()),
	}
}
