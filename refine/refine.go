// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package refine performs the post-clustering geometric refinement pass:
// it finds a representative loop per cluster, compares representatives of
// same-length clusters by Cα/Cβ superposition, and merges clusters whose
// representatives lie within the configured RMSD and deviation gates
// (spec §4.5). It is a direct translation of the original acaca suite's
// PostCluster/TestMerge/DoMerge/FindMedian/RenumClusters.
package refine

import (
	"gonum.org/v1/gonum/floats"

	"github.com/bioinf-ucl/acaca/geom"
	"github.com/bioinf-ucl/acaca/loop"
	"github.com/bioinf-ucl/acaca/structio"
)

// Merge records one cluster-pair merge decision, for reporting under the
// POSTCLUSTER report section (spec §6.2).
type Merge struct {
	ClusterA, ClusterB   int // 1-based, as assigned before this merge pass
	RepA, RepB           string
	RMSD, MaxCADev, MaxCBDev float64
}

// Result is the outcome of a post-clustering pass.
type Result struct {
	// Clusters[i] is the 1-based post-clustering cluster id of vector i.
	Clusters []int
	NClus    int
	Merges   []Merge
}

// representative is a cluster's chosen median example (spec §4.4): the
// member whose feature vector is closest to the per-dimension midrange of
// the cluster.
type representative struct {
	index   int // index into the original vector slice, or -1 if empty
	nMember int
}

// findMedian locates the representative of cluster id (1-based) among the
// nVec vectors, by the min/max-midrange nearest-neighbour rule.
func findMedian(clusters []int, data [][]float64, id int) representative {
	vecDim := len(data[0])
	minval := make([]float64, vecDim)
	maxval := make([]float64, vecDim)
	nMember := 0

	for i, c := range clusters {
		if c != id {
			continue
		}
		if nMember == 0 {
			copy(minval, data[i])
			copy(maxval, data[i])
		} else {
			for j := 0; j < vecDim; j++ {
				if data[i][j] < minval[j] {
					minval[j] = data[i][j]
				}
				if data[i][j] > maxval[j] {
					maxval[j] = data[i][j]
				}
			}
		}
		nMember++
	}
	if nMember == 0 {
		return representative{index: -1, nMember: 0}
	}

	medval := make([]float64, vecDim)
	for j := range medval {
		medval[j] = (minval[j] + maxval[j]) / 2
	}

	best, mindist := -1, 0.0
	for i, c := range clusters {
		if c != id {
			continue
		}
		dist := floats.Distance(data[i], medval, 2)
		if best < 0 || dist < mindist {
			best, mindist = i, dist
		}
	}
	return representative{index: best, nMember: nMember}
}

// membersOf returns the indices of every vector assigned to cluster id, in
// original order — the Go analogue of FindLoop's sequential scan.
func membersOf(clusters []int, id int) []int {
	var out []int
	for i, c := range clusters {
		if c == id {
			out = append(out, i)
		}
	}
	return out
}

// backboneTrace extracts the Cα and Cβ traces of a loop for superposition.
func backboneTrace(st *structio.Structure, d loop.Descriptor) (ca, cb []geom.Vec3, ok bool) {
	n := d.Length()
	ca = make([]geom.Vec3, n)
	cb = make([]geom.Vec3, n)
	for i := 0; i < n; i++ {
		atoms := st.ResidueAtoms(d.FirstIdx + i)
		a, found := structio.ResidueAtom(atoms, structio.AtomCA)
		if !found {
			return nil, nil, false
		}
		ca[i] = geom.Vec3{X: a.X, Y: a.Y, Z: a.Z}
		if b, found := structio.ResidueAtom(atoms, structio.AtomCB); found {
			cb[i] = geom.Vec3{X: b.X, Y: b.Y, Z: b.Z}
		} else {
			cb[i] = ca[i] // glycine: original suite falls back to CA for CB deviation
		}
	}
	return ca, cb, true
}

// testMerge superposes two equal-length loops' Cα traces and reports the
// RMSD, max Cα and max Cβ deviations, and whether every configured gate
// passes (spec §4.5; a zero cutoff entry disables that gate).
func testMerge(stA *structio.Structure, dA loop.Descriptor, stB *structio.Structure, dB loop.Descriptor, cuts [3]float64) (rms, maxCA, maxCB float64, ok bool) {
	if dA.Length() != dB.Length() {
		return 0, 0, 0, false
	}
	caA, cbA, okA := backboneTrace(stA, dA)
	caB, cbB, okB := backboneTrace(stB, dB)
	if !okA || !okB {
		return 0, 0, 0, false
	}

	fit, err := geom.Superpose(caA, caB)
	if err != nil {
		return 0, 0, 0, false
	}

	fitted := make([]geom.Vec3, len(caB))
	for i, p := range caB {
		fitted[i] = fit.Apply(p)
	}
	rms = geom.RMSD(caA, fitted)

	for i := range caA {
		if dev := geom.Dist(caA[i], fitted[i]); dev > maxCA {
			maxCA = dev
		}
	}

	fittedCB := make([]geom.Vec3, len(cbB))
	for i, p := range cbB {
		fittedCB[i] = fit.Apply(p)
	}
	for i := range cbA {
		if dev := geom.Dist(cbA[i], fittedCB[i]); dev > maxCB {
			maxCB = dev
		}
	}

	pass := (cuts[0] == 0 || rms <= cuts[0]) &&
		(cuts[1] == 0 || maxCA <= cuts[1]) &&
		(cuts[2] == 0 || maxCB <= cuts[2])
	return rms, maxCA, maxCB, pass
}

// Run performs one post-clustering refinement pass over clusters (1-based
// cluster ids in [1,nClus], one per vector in data) using structures and
// descriptors for each vector (parallel slices, index-aligned with data).
func Run(clusters []int, data [][]float64, nClus int, structs []*structio.Structure, descs []loop.Descriptor, loopIDs []string, cuts [3]float64) Result {
	reps := make([]representative, nClus+1) // 1-based
	for id := 1; id <= nClus; id++ {
		reps[id] = findMedian(clusters, data, id)
	}

	newNumbers := make([]int, nClus+1)
	for id := 1; id <= nClus; id++ {
		newNumbers[id] = id
	}

	var merges []Merge
	doMerge := func(i, j int, rms, maxCA, maxCB float64) {
		oldNum, newNum := newNumbers[i], newNumbers[j]
		if oldNum < newNum {
			oldNum, newNum = newNum, oldNum
		}
		for k := 1; k <= nClus; k++ {
			if newNumbers[k] == oldNum {
				newNumbers[k] = newNum
			}
		}
		merges = append(merges, Merge{
			ClusterA: i, ClusterB: j,
			RepA: loopIDs[reps[i].index], RepB: loopIDs[reps[j].index],
			RMSD: rms, MaxCADev: maxCA, MaxCBDev: maxCB,
		})
	}

	pairTest := func(ai, bi int) (rms, maxCA, maxCB float64, ok bool) {
		return testMerge(structs[ai], descs[ai], structs[bi], descs[bi], cuts)
	}
	avg2 := func(a, b float64) float64 { return (a + b) / 2 }
	avg4 := func(a, b, c, d float64) float64 { return (a + b + c + d) / 4 }

	for i := 1; i <= nClus-1; i++ {
		for j := i + 1; j <= nClus; j++ {
			ni, nj := reps[i].nMember, reps[j].nMember
			if ni == 1 || nj == 1 {
				continue // singleton clusters are never post-merged
			}
			switch {
			case ni != 2 && nj != 2:
				if reps[i].index < 0 || reps[j].index < 0 {
					continue
				}
				rms, ca, cb, ok := pairTest(reps[i].index, reps[j].index)
				if ok {
					doMerge(i, j, rms, ca, cb)
				}
			case ni == 2 && nj != 2:
				mem := membersOf(clusters, i)
				if len(mem) != 2 || reps[j].index < 0 {
					continue
				}
				rms1, ca1, cb1, ok1 := pairTest(mem[0], reps[j].index)
				rms2, ca2, cb2, ok2 := pairTest(mem[1], reps[j].index)
				if ok1 && ok2 {
					doMerge(i, j, avg2(rms1, rms2), avg2(ca1, ca2), avg2(cb1, cb2))
				}
			case ni != 2 && nj == 2:
				mem := membersOf(clusters, j)
				if len(mem) != 2 || reps[i].index < 0 {
					continue
				}
				rms1, ca1, cb1, ok1 := pairTest(reps[i].index, mem[0])
				rms2, ca2, cb2, ok2 := pairTest(reps[i].index, mem[1])
				if ok1 && ok2 {
					doMerge(i, j, avg2(rms1, rms2), avg2(ca1, ca2), avg2(cb1, cb2))
				}
			default: // both clusters have exactly two members
				memI := membersOf(clusters, i)
				memJ := membersOf(clusters, j)
				if len(memI) != 2 || len(memJ) != 2 {
					continue
				}
				rms1, ca1, cb1, ok1 := pairTest(memI[0], memJ[0])
				rms2, ca2, cb2, ok2 := pairTest(memI[0], memJ[1])
				rms3, ca3, cb3, ok3 := pairTest(memI[1], memJ[1])
				rms4, ca4, cb4, ok4 := pairTest(memI[1], memJ[0])
				if ok1 && ok2 && ok3 && ok4 {
					doMerge(i, j,
						avg4(rms1, rms2, rms3, rms4),
						avg4(ca1, ca2, ca3, ca4),
						avg4(cb1, cb2, cb3, cb4))
				}
			}
		}
	}

	out := make([]int, len(clusters))
	for i, c := range clusters {
		out[i] = newNumbers[c]
	}
	finalNClus := renumber(out)

	return Result{Clusters: out, NClus: finalNClus, Merges: merges}
}

// renumber compacts clusters in place so ids run 1..k with no gaps, in
// order of first appearance among used ids — the Go analogue of
// RenumClusters.
func renumber(clusters []int) int {
	maxID := 0
	for _, c := range clusters {
		if c > maxID {
			maxID = c
		}
	}
	used := make([]bool, maxID+1)
	for _, c := range clusters {
		used[c] = true
	}
	remap := make([]int, maxID+1)
	n := 0
	for id := 1; id <= maxID; id++ {
		if used[id] {
			n++
			remap[id] = n
		}
	}
	for i, c := range clusters {
		clusters[i] = remap[c]
	}
	return n
}
