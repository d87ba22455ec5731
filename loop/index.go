// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package loop

import (
	"github.com/biogo/store/interval"

	"github.com/bioinf-ucl/acaca/structio"
)

// Index answers "which registered loop, if any, contains this residue" in
// O(log n) per chain, using an interval tree per chain the way the teacher
// package uses github.com/biogo/store/interval to index BLAST hit ranges.
// It treats a residue's insertion code as a tie-break applied after the
// interval query, since biogo's IntTree indexes integer ranges only.
type Index struct {
	byChain map[byte]*interval.IntTree
	loops   []Descriptor
}

type loopInterval struct {
	id         uintptr
	start, end int // inclusive sequence-number range
}

func (iv loopInterval) Overlap(b interval.IntRange) bool {
	return b.Start <= iv.end && iv.start < b.End
}
func (iv loopInterval) ID() uintptr { return iv.id }
func (iv loopInterval) Range() interval.IntRange {
	return interval.IntRange{Start: iv.start, End: iv.end + 1}
}

// NewIndex builds an Index over a set of resolved loop descriptors.
func NewIndex(descs []Descriptor) *Index {
	idx := &Index{byChain: make(map[byte]*interval.IntTree), loops: descs}
	for i, d := range descs {
		chain := d.First.Chain
		t, ok := idx.byChain[chain]
		if !ok {
			t = &interval.IntTree{}
			idx.byChain[chain] = t
		}
		err := t.Insert(loopInterval{id: uintptr(i), start: d.First.SeqNum, end: d.Last.SeqNum}, true)
		if err != nil {
			// Duplicate loop ranges on the same chain are legitimate
			// (overlapping loops may be registered); a non-duplicate
			// insertion error can only mean a malformed range and is
			// a programmer error at this call site.
			panic(err)
		}
	}
	for _, t := range idx.byChain {
		t.AdjustRanges()
	}
	return idx
}

// ContainingLoops returns the indices (into the slice passed to NewIndex)
// of every loop whose residue range contains id.
func (idx *Index) ContainingLoops(id structio.ResID) []int {
	t, ok := idx.byChain[id.Chain]
	if !ok {
		return nil
	}
	hits := t.Get(loopInterval{start: id.SeqNum, end: id.SeqNum})
	var out []int
	for _, h := range hits {
		li := h.(loopInterval)
		d := idx.loops[li.id]
		if withinInsertBounds(id, d) {
			out = append(out, int(li.id))
		}
	}
	return out
}

// withinInsertBounds refines an interval hit (which ignores insertion
// codes) against the exact residue ordering at the loop's boundaries.
func withinInsertBounds(id structio.ResID, d Descriptor) bool {
	if id.SeqNum == d.First.SeqNum && id.Insert < d.First.Insert {
		return false
	}
	if id.SeqNum == d.Last.SeqNum && id.Insert > d.Last.Insert {
		return false
	}
	return true
}

// IsFramework reports whether a residue lies outside every registered loop.
func (idx *Index) IsFramework(id structio.ResID) bool {
	return len(idx.ContainingLoops(id)) == 0
}
