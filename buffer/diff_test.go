package buffer

import "testing"

func TestSetText(t *testing.T) {
	b := NewBufferFromString("one\ntwo\nthree\n")

	id, ok := b.SetText("one\n2\nthree\nfour\n")
	if !ok {
		t.Fatal("set text should commit a transaction")
	}
	if b.Text() != "one\n2\nthree\nfour\n" {
		t.Errorf("text = %q", b.Text())
	}
	if b.UndoCount() != 1 {
		t.Errorf("undo count = %d, want 1: the whole replacement is one step", b.UndoCount())
	}

	if !b.UndoToTransaction(id) {
		t.Fatal("undo failed")
	}
	if b.Text() != "one\ntwo\nthree\n" {
		t.Errorf("text after undo = %q", b.Text())
	}
}

func TestSetTextNoChange(t *testing.T) {
	b := NewBufferFromString("same")
	if _, ok := b.SetText("same"); ok {
		t.Error("identical content should not commit")
	}
	if b.UndoCount() != 0 {
		t.Errorf("undo count = %d, want 0", b.UndoCount())
	}
}

func TestSetTextJoinsOpenTransaction(t *testing.T) {
	b := NewBufferFromString("a")

	b.StartTransaction()
	b.Insert(1, "b")
	if _, ok := b.SetText("xyz"); ok {
		t.Error("set text inside an open transaction should not commit by itself")
	}
	id, ok := b.EndTransaction()
	if !ok {
		t.Fatal("commit failed")
	}
	if b.Text() != "xyz" {
		t.Errorf("text = %q", b.Text())
	}

	b.UndoToTransaction(id)
	if b.Text() != "a" {
		t.Errorf("text after undo = %q: all edits shared one transaction", b.Text())
	}

	// The nested close balanced the depth: bare history operations work.
	b.Insert(1, "b")
	if _, ok := b.Undo(); !ok {
		t.Fatal("undo after a nested replacement failed")
	}
	if b.Text() != "a" {
		t.Errorf("text = %q", b.Text())
	}
}

func TestSetTextMinimalEdits(t *testing.T) {
	b := NewBufferFromString("unchanged prefix MIDDLE unchanged suffix")

	var results []EditResult
	b.OnEdit(func(_ ID, rs []EditResult) { results = append(results, rs...) })

	b.SetText("unchanged prefix middle unchanged suffix")

	// The untouched prefix and suffix must not be rewritten.
	for _, res := range results {
		if res.OldRange.Start < 10 || res.OldRange.End > 30 {
			t.Errorf("edit outside the changed region: %+v", res)
		}
	}
}
