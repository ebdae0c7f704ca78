// Package excerpt maintains the ordered set of excerpts that stitch windows
// of independent buffers into one composite coordinate space.
//
// Each excerpt exposes a bounded window into a buffer at a position within
// the composite view. Excerpts are contiguous in composite space: an
// excerpt's composite start offset is the sum of the window lengths of the
// excerpts before it. The Map supports seeking by excerpt identity, adding,
// removing, and reordering excerpts, resolving buffer-space ranges into
// composite-space ranges, and adjusting excerpt windows as buffer edits are
// observed.
//
// A buffer may be exposed by any number of excerpts; the Map holds buffer
// identities only, never buffer objects.
package excerpt
