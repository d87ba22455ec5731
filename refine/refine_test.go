// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package refine

import (
	"testing"

	"github.com/bioinf-ucl/acaca/loop"
	"github.com/bioinf-ucl/acaca/structio"
)

func straightChain(n int, xOffset float64) *structio.Structure {
	st := &structio.Structure{Source: "test"}
	for i := 0; i < n; i++ {
		res := structio.ResID{Chain: 'A', SeqNum: i + 1, Insert: ' '}
		st.ResStart = append(st.ResStart, len(st.Atoms))
		st.Atoms = append(st.Atoms, structio.Atom{
			Res: res, Code: 'A', Name: structio.AtomCA,
			X: float64(i) + xOffset, Y: 0, Z: 0,
		})
	}
	return st
}

func TestRenumberCompactsIDs(t *testing.T) {
	clusters := []int{3, 3, 7, 7, 1}
	n := renumber(clusters)
	if n != 3 {
		t.Fatalf("renumber() returned %d distinct clusters, want 3", n)
	}
	if clusters[0] != clusters[1] {
		t.Errorf("members of the same original cluster diverged: %v", clusters)
	}
	if clusters[0] == clusters[2] || clusters[2] != clusters[3] {
		t.Errorf("renumbering did not preserve grouping: %v", clusters)
	}
}

func TestFindMedianEmptyCluster(t *testing.T) {
	clusters := []int{1, 1, 2, 2}
	data := [][]float64{{0, 0}, {1, 1}, {5, 5}, {6, 6}}
	rep := findMedian(clusters, data, 3)
	if rep.nMember != 0 || rep.index != -1 {
		t.Errorf("findMedian() for empty cluster = %+v, want zero value", rep)
	}
}

func TestFindMedianPicksCentralMember(t *testing.T) {
	clusters := []int{1, 1, 1}
	data := [][]float64{{0, 0}, {5, 5}, {10, 10}}
	rep := findMedian(clusters, data, 1)
	if rep.index != 1 {
		t.Errorf("findMedian() index = %d, want 1 (the midrange member)", rep.index)
	}
	if rep.nMember != 3 {
		t.Errorf("findMedian() nMember = %d, want 3", rep.nMember)
	}
}

func TestMembersOf(t *testing.T) {
	clusters := []int{1, 2, 1, 3, 1}
	got := membersOf(clusters, 1)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("membersOf(1) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("membersOf(1)[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRunMergesIdenticalLoops(t *testing.T) {
	// Three members per cluster so neither representative is a singleton
	// (singletons are never post-merged) and neither has exactly two
	// members (that path is covered by TestRunMergesTwoMemberClusters);
	// this exercises the ni!=2 && nj!=2 branch.
	structs := make([]*structio.Structure, 0, 6)
	data := make([][]float64, 0, 6)
	clusters := []int{1, 1, 1, 2, 2, 2}
	for range clusters {
		structs = append(structs, straightChain(4, 0)) // identical coordinates: RMSD 0
		data = append(data, []float64{0, 0})
	}
	d := loop.Descriptor{FirstIdx: 0, LastIdx: 3}
	descs := make([]loop.Descriptor, len(clusters))
	loopIDs := make([]string, len(clusters))
	for i := range clusters {
		descs[i] = d
		loopIDs[i] = string(rune('a' + i))
	}
	cuts := [3]float64{1.0, 1.5, 1.9}

	result := Run(clusters, data, 2, structs, descs, loopIDs, cuts)
	if result.NClus != 1 {
		t.Errorf("Run() NClus = %d, want 1 (identical loops should merge)", result.NClus)
	}
	if len(result.Merges) != 1 {
		t.Fatalf("Run() produced %d merges, want 1", len(result.Merges))
	}
	if result.Merges[0].RMSD > 1e-6 {
		t.Errorf("Run() merge RMSD = %v, want ~0 for identical loops", result.Merges[0].RMSD)
	}
}

func TestRunNeverMergesSingletons(t *testing.T) {
	stA := straightChain(4, 0)
	stB := straightChain(4, 0) // identical coordinates: RMSD 0, would merge if size were ignored
	d := loop.Descriptor{FirstIdx: 0, LastIdx: 3}

	clusters := []int{1, 2}
	data := [][]float64{{0, 0}, {0, 0}}
	cuts := [3]float64{1.0, 1.5, 1.9}

	result := Run(clusters, data, 2, []*structio.Structure{stA, stB}, []loop.Descriptor{d, d}, []string{"a", "b"}, cuts)
	if result.NClus != 2 {
		t.Errorf("Run() NClus = %d, want 2 (singleton clusters must never merge)", result.NClus)
	}
	if len(result.Merges) != 0 {
		t.Errorf("Run() produced %d merges, want 0 for two singletons", len(result.Merges))
	}
}

func TestRunDoesNotMergeDistantLoops(t *testing.T) {
	stA := straightChain(4, 0)
	stB := straightChain(4, 100) // same shape, far away in space, but superposition removes
	// translation; instead give B a different backbone shape so RMSD after
	// fit is large.
	stB.Atoms[1].Y = 20
	stB.Atoms[2].Y = -20

	d := loop.Descriptor{FirstIdx: 0, LastIdx: 3}
	clusters := []int{1, 2}
	data := [][]float64{{0, 0}, {0, 0}}
	cuts := [3]float64{1.0, 1.5, 1.9}

	result := Run(clusters, data, 2, []*structio.Structure{stA, stB}, []loop.Descriptor{d, d}, []string{"a", "b"}, cuts)
	if result.NClus != 2 {
		t.Errorf("Run() NClus = %d, want 2 (dissimilar loops should not merge)", result.NClus)
	}
}
