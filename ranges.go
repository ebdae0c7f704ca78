package loom

import (
	"sort"
)

// Span is a range expressed in a caller-chosen coordinate type.
type Span[D any] struct {
	Start D
	End   D
}

// Dimension converts composite byte offsets into a caller-chosen
// coordinate type and orders values of that type. The same query logic then
// serves byte-offset and line/column callers without duplication.
type Dimension[D any] interface {
	// FromOffset measures the composite position at off.
	FromOffset(v *View, off ByteOffset) D
	// Compare returns -1, 0, or 1 ordering a against b.
	Compare(a, b D) int
}

// OffsetDimension measures positions as composite byte offsets.
type OffsetDimension struct{}

// FromOffset returns the offset unchanged.
func (OffsetDimension) FromOffset(_ *View, off ByteOffset) ByteOffset {
	return off
}

// Compare orders byte offsets.
func (OffsetDimension) Compare(a, b ByteOffset) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// PointDimension measures positions as composite line/column points.
type PointDimension struct{}

// FromOffset converts the offset through the view's excerpts.
func (PointDimension) FromOffset(v *View, off ByteOffset) Point {
	p, _ := v.OffsetToPoint(off)
	return p
}

// Compare orders points.
func (PointDimension) Compare(a, b Point) int {
	return a.Compare(b)
}

// EditedRangesIn returns the composite spans a transaction touched,
// measured in the given dimension and sorted ascending by start. This is a
// free function because Go methods cannot carry type parameters.
func EditedRangesIn[D any](v *View, id TransactionID, dim Dimension[D]) []Span[D] {
	ranges := v.EditedRangesForTransaction(id)
	if len(ranges) == 0 {
		return nil
	}
	out := make([]Span[D], 0, len(ranges))
	for _, r := range ranges {
		out = append(out, Span[D]{
			Start: dim.FromOffset(v, r.Start),
			End:   dim.FromOffset(v, r.End),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return dim.Compare(out[i].Start, out[j].Start) < 0
	})
	return out
}
