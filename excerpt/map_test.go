package excerpt

import (
	"testing"

	"github.com/dshills/loom/buffer"
)

func TestAppendSeek(t *testing.T) {
	m := NewMap()
	a := m.Append(1, buffer.NewRange(0, 5))
	b := m.Append(2, buffer.NewRange(10, 14))

	if m.Len() != 2 {
		t.Fatalf("len = %d, want 2", m.Len())
	}
	if m.Extent() != 9 {
		t.Errorf("extent = %d, want 9", m.Extent())
	}

	ex, start, ok := m.Seek(a)
	if !ok || start != 0 || ex.Buffer != 1 {
		t.Errorf("seek a = (%+v, %d, %v)", ex, start, ok)
	}
	ex, start, ok = m.Seek(b)
	if !ok || start != 5 || ex.Window != buffer.NewRange(10, 14) {
		t.Errorf("seek b = (%+v, %d, %v)", ex, start, ok)
	}
	if _, _, ok := m.Seek(99); ok {
		t.Error("unknown id should not resolve")
	}
}

func TestInsertAtAndMove(t *testing.T) {
	m := NewMap()
	a := m.Append(1, buffer.NewRange(0, 3))
	c := m.Append(3, buffer.NewRange(0, 3))
	b, err := m.InsertAt(1, 2, buffer.NewRange(0, 3))
	if err != nil {
		t.Fatal(err)
	}

	order := func() []ID {
		var ids []ID
		for _, ex := range m.Excerpts() {
			ids = append(ids, ex.ID)
		}
		return ids
	}

	got := order()
	if got[0] != a || got[1] != b || got[2] != c {
		t.Fatalf("order = %v", got)
	}

	// Reordering moves the composite position, not the content.
	if err := m.Move(c, 0); err != nil {
		t.Fatal(err)
	}
	got = order()
	if got[0] != c || got[1] != a || got[2] != b {
		t.Fatalf("order after move = %v", got)
	}

	if _, off, ok := m.Seek(a); !ok || off != 3 {
		t.Errorf("seek a after move = (%d, %v)", off, ok)
	}

	if _, err := m.InsertAt(99, 1, buffer.NewRange(0, 1)); err != ErrIndexOutOfRange {
		t.Errorf("err = %v", err)
	}
}

func TestRemove(t *testing.T) {
	m := NewMap()
	a := m.Append(1, buffer.NewRange(0, 5))
	b := m.Append(1, buffer.NewRange(5, 8))

	ex, ok := m.Remove(a)
	if !ok || ex.ID != a {
		t.Fatal("remove failed")
	}
	if m.Len() != 1 || m.Extent() != 3 {
		t.Errorf("len = %d, extent = %d", m.Len(), m.Extent())
	}
	if _, off, ok := m.Seek(b); !ok || off != 0 {
		t.Errorf("remaining excerpt start = %d", off)
	}
	if _, ok := m.Remove(a); ok {
		t.Error("removing twice should fail")
	}
}

func TestExcerptAt(t *testing.T) {
	m := NewMap()
	m.Append(1, buffer.NewRange(0, 5))
	b := m.Append(2, buffer.NewRange(0, 4))

	ex, start, ok := m.ExcerptAt(7)
	if !ok || ex.ID != b || start != 5 {
		t.Errorf("excerpt at 7 = (%+v, %d, %v)", ex, start, ok)
	}
	if _, _, ok := m.ExcerptAt(9); ok {
		t.Error("offset at extent should not resolve")
	}
}

func TestForBuffer(t *testing.T) {
	m := NewMap()
	m.Append(1, buffer.NewRange(0, 2))
	m.Append(2, buffer.NewRange(0, 2))
	m.Append(1, buffer.NewRange(4, 6))

	got := m.ForBuffer(1)
	if len(got) != 2 {
		t.Fatalf("excerpts for buffer 1 = %d, want 2", len(got))
	}
	if got[0].Window != buffer.NewRange(0, 2) || got[1].Window != buffer.NewRange(4, 6) {
		t.Errorf("windows = %v, %v", got[0].Window, got[1].Window)
	}
}

func TestResolveRange(t *testing.T) {
	m := NewMap()
	m.Append(1, buffer.NewRange(0, 5))  // composite [0,5)
	m.Append(2, buffer.NewRange(0, 3))  // composite [5,8)
	m.Append(1, buffer.NewRange(0, 10)) // composite [8,18)

	got := m.ResolveRange(1, buffer.NewRange(2, 4))
	want := []buffer.Range{{Start: 2, End: 4}, {Start: 10, End: 12}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("resolved = %v, want %v", got, want)
	}

	// A range straddling an excerpt boundary is skipped for that excerpt.
	got = m.ResolveRange(1, buffer.NewRange(3, 8))
	if len(got) != 1 || got[0] != (buffer.Range{Start: 11, End: 16}) {
		t.Errorf("resolved = %v, want only the excerpt that contains it", got)
	}

	if got := m.ResolveRange(9, buffer.NewRange(0, 1)); got != nil {
		t.Errorf("unknown buffer resolved = %v", got)
	}
}

func TestApplyEditsAdjustsWindows(t *testing.T) {
	m := NewMap()
	a := m.Append(1, buffer.NewRange(10, 20))
	b := m.Append(2, buffer.NewRange(0, 5))

	// Insert 3 bytes before the window: it shifts.
	m.ApplyEdits(1, []buffer.EditResult{{
		OldRange: buffer.NewRange(0, 0),
		NewRange: buffer.NewRange(0, 3),
		Delta:    3,
	}})
	ex, _, _ := m.Seek(a)
	if ex.Window != buffer.NewRange(13, 23) {
		t.Errorf("window = %v, want shifted [13:23)", ex.Window)
	}

	// Delete 2 bytes inside the window: it shrinks.
	m.ApplyEdits(1, []buffer.EditResult{{
		OldRange: buffer.NewRange(15, 17),
		NewRange: buffer.NewRange(15, 15),
		OldText:  "..",
		Delta:    -2,
	}})
	ex, _, _ = m.Seek(a)
	if ex.Window != buffer.NewRange(13, 21) {
		t.Errorf("window = %v, want shrunk [13:21)", ex.Window)
	}

	// Other buffers are untouched.
	ex, _, _ = m.Seek(b)
	if ex.Window != buffer.NewRange(0, 5) {
		t.Errorf("unrelated window = %v", ex.Window)
	}
}

func TestApplyEditsClipsStraddlingWindows(t *testing.T) {
	m := NewMap()
	a := m.Append(1, buffer.NewRange(0, 4))
	b := m.Append(1, buffer.NewRange(6, 10))

	// A replacement spanning the gap between the two windows clips at each
	// boundary; neither window absorbs the other's territory.
	m.ApplyEdits(1, []buffer.EditResult{{
		OldRange: buffer.NewRange(3, 7),
		NewRange: buffer.NewRange(3, 7),
	}})
	ex, _, _ := m.Seek(a)
	if ex.Window != buffer.NewRange(0, 3) {
		t.Errorf("leading window = %v, want clipped [0:3)", ex.Window)
	}
	ex, _, _ = m.Seek(b)
	if ex.Window != buffer.NewRange(7, 10) {
		t.Errorf("trailing window = %v, want clipped [7:10)", ex.Window)
	}

	// A straddling delete keeps only the surviving covered bytes.
	m2 := NewMap()
	c := m2.Append(1, buffer.NewRange(6, 10))
	m2.ApplyEdits(1, []buffer.EditResult{{
		OldRange: buffer.NewRange(3, 7),
		NewRange: buffer.NewRange(3, 3),
		Delta:    -4,
	}})
	ex, _, _ = m2.Seek(c)
	if ex.Window != buffer.NewRange(3, 6) {
		t.Errorf("window after straddling delete = %v, want [3:6)", ex.Window)
	}

	// A window swallowed whole collapses to empty past the replacement.
	m3 := NewMap()
	d := m3.Append(1, buffer.NewRange(8, 9))
	m3.ApplyEdits(1, []buffer.EditResult{{
		OldRange: buffer.NewRange(7, 10),
		NewRange: buffer.NewRange(7, 9),
		Delta:    -1,
	}})
	ex, _, _ = m3.Seek(d)
	if ex.Window != buffer.NewRange(9, 9) {
		t.Errorf("swallowed window = %v, want empty past the edit", ex.Window)
	}
}

func TestAnchors(t *testing.T) {
	m := NewMap()
	m.Append(1, buffer.NewRange(0, 5))
	b := m.Append(2, buffer.NewRange(10, 16))

	a, ok := m.AnchorAt(7, BiasLeft)
	if !ok {
		t.Fatal("anchor failed")
	}
	if a.Excerpt != b || a.Offset != 12 {
		t.Errorf("anchor = %+v", a)
	}

	off, ok := m.Resolve(a)
	if !ok || off != 7 {
		t.Errorf("resolved = (%d, %v), want (7, true)", off, ok)
	}

	// Anchors survive reordering because they name the excerpt.
	if err := m.Move(b, 0); err != nil {
		t.Fatal(err)
	}
	off, ok = m.Resolve(a)
	if !ok || off != 2 {
		t.Errorf("resolved after move = (%d, %v), want (2, true)", off, ok)
	}

	m.Remove(b)
	if _, ok := m.Resolve(a); ok {
		t.Error("anchor into a removed excerpt should not resolve")
	}
}
