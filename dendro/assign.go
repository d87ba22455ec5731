// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package dendro derives, from a hierarchical-clustering merge history, the
// cluster-id-per-vector arrays for each presented level and lays out the
// ASCII dendrogram, mirroring the original acaca suite's ClusterAssign and
// ClusterDendogram (spec §4.3).
package dendro

import (
	"errors"
	"fmt"

	"github.com/bioinf-ucl/acaca/cluster"
)

// ErrInvalidDepth is returned when the requested number of levels exceeds
// the number of vectors clustered; spec §9 leaves this case as reject.
var ErrInvalidDepth = errors.New("dendro: requested depth exceeds vector count")

// Assignment is the result of walking a merge history down to lev levels.
type Assignment struct {
	// Clusters[i][k] is the 1-based cluster id of vector i (0-based) in the
	// partition into k+2 clusters, for k in [0, lev-2] (lev-1 non-trivial
	// levels).
	Clusters [][]int
	// IOrder, CritVal and Height describe the dendrogram's baseline
	// ordering and bar heights, indices 1..lev (index 0 unused).
	IOrder  []int
	CritVal []float64
	Height  []int
	Lev     int
}

// Assign derives cluster assignments and dendrogram geometry for the top
// lev levels of a hierarchical clustering over n vectors.
func Assign(h cluster.History, n, lev int) (Assignment, error) {
	if lev > n || lev < 1 {
		return Assignment{}, fmt.Errorf("%w: lev=%d n=%d", ErrInvalidDepth, lev, n)
	}
	// 1-based views, matching the original Fortran-style indexing.
	ia := pad1(h.IA)
	ib := pad1(h.IB)
	crit := padCrit1(h.Crit)

	hvals := make([]int, lev+2+1)
	hvals[1] = 1
	hvals[2] = ib[n-1]
	loc := 3
	for i := n - 2; i >= n-lev && i > 0; i-- {
		if !containsInt(hvals[1:loc], ia[i]) {
			hvals[loc] = ia[i]
			loc++
		}
		if !containsInt(hvals[1:loc], ib[i]) {
			hvals[loc] = ib[i]
			loc++
		}
	}

	clusters := make([][]int, n+1) // 1-based rows
	for i := 1; i <= n; i++ {
		clusters[i] = make([]int, lev+1) // 1-based columns
	}

	for level := n - lev; level <= n-2; level++ {
		for i := 1; i <= n; i++ {
			icl := i
			for ilev := 1; ilev <= level; ilev++ {
				if ib[ilev] == icl {
					icl = ia[ilev]
				}
			}
			nClusters := n - level
			clusters[i][nClusters-1] = icl
		}
	}

	for i := 1; i <= n; i++ {
		for j := 1; j <= lev-1; j++ {
			for k := 2; k <= lev; k++ {
				if clusters[i][j] == hvals[k] {
					clusters[i][j] = k
					break
				}
			}
		}
	}

	iorder := make([]int, lev+1)
	critval := make([]float64, lev+1)
	height := make([]int, lev+1)

	iorder[1] = ia[n-1]
	iorder[2] = ib[n-1]
	critval[1] = 0
	critval[2] = crit[n-1]
	height[1] = lev
	height[2] = lev - 1
	loc = 2
	for i := n - 2; i >= n-lev+1; i-- {
		for j := 1; j <= loc; j++ {
			if ia[i] == iorder[j] {
				for k := loc + 1; k >= j+1; k-- {
					iorder[k] = iorder[k-1]
					critval[k] = critval[k-1]
					height[k] = height[k-1]
				}
				iorder[j+1] = ib[i]
				critval[j+1] = crit[i]
				height[j+1] = i - (n - lev)
				loc++
				break
			}
		}
	}

	for i := 1; i <= lev; i++ {
		for j := 1; j <= lev; j++ {
			if hvals[i] == iorder[j] {
				iorder[j] = i
				break
			}
		}
	}

	iorder[1] = 1
	if lev >= 2 {
		iorder[2] = 2
	}
	for j := 2; j <= lev-1; j++ {
		for i := 1; i <= n; i++ {
			if clusters[i][j] == j+1 {
				parent := clusters[i][j-1]
				insertOrder(iorder, lev, j+1, parent)
				break
			}
		}
	}

	// Translate to 0-based vector rows, dropping column 0 (unused) and
	// the final (lev-th) column which duplicates the identity level.
	out := make([][]int, n)
	for i := 1; i <= n; i++ {
		out[i-1] = append([]int(nil), clusters[i][1:lev]...)
	}

	return Assignment{Clusters: out, IOrder: iorder, CritVal: critval, Height: height, Lev: lev}, nil
}

// insertOrder inserts newID immediately to the right of parent in iorder,
// shifting subsequent entries along — the Go analogue of the original
// suite's InsertIorder (spec §3 Supplemented features).
func insertOrder(iorder []int, lev, newID, parent int) {
	for j := 1; j <= lev; j++ {
		if iorder[j] == parent {
			copy(iorder[j+2:lev+1], iorder[j+1:lev])
			iorder[j+1] = newID
			return
		}
	}
}

func containsInt(s []int, v int) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// pad1 returns a 1-based view of a 0-based slice: index 0 is unused zero
// value, index i holds s[i-1].
func pad1(s []int) []int {
	out := make([]int, len(s)+1)
	copy(out[1:], s)
	return out
}

func padCrit1(s []float64) []float64 {
	out := make([]float64, len(s)+1)
	copy(out[1:], s)
	return out
}

// FindNumTrueClusters implements the original suite's FindNumTrueClusters
// heuristic (spec §4.3): the smallest i with crit[i]/vecDim > 0.06 yields
// n-i true clusters; methods other than Ward must pass vecDim=1.
func FindNumTrueClusters(crit []float64, lev, vecDim int) int {
	const gate = 0.06
	for i := 0; i < lev-1; i++ {
		if crit[i]/float64(vecDim) > gate {
			return lev - i
		}
	}
	return 1
}
