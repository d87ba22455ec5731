// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package cluster implements agglomerative hierarchical clustering over a
// feature matrix, using the Lance-Williams recurrence described in spec
// §4.2. It is a direct translation of the original acaca suite's HierClus,
// itself based on F. Murtagh's 1986 Fortran clustering code (STATLIB).
package cluster

import (
	"errors"
	"math"

	"github.com/bioinf-ucl/acaca"
)

// History is the merge history: for each of the N-1 agglomeration steps,
// the pair of cluster ids merged (1-based, as in the original Fortran-style
// indexing) and the dissimilarity at which they merged.
type History struct {
	IA, IB []int
	Crit   []float64
}

// offset maps row i, column j (1-based, i<j) of an n x n upper-triangular
// symmetric matrix onto a packed vector index, matching the original
// suite's IOFFSET macro exactly.
func offset(n, i, j int) int {
	return (j - 1) + (i-1)*n - i*(i+1)/2
}

// Run agglomerates the N rows of data (each of dimension VecDim) under the
// given linkage method, returning the merge history. Dissimilarity between
// singletons is squared Euclidean distance, halved at init for Ward's
// method (spec §4.2).
func Run(data [][]float64, method acaca.Method) (History, error) {
	n := len(data)
	if n < 2 {
		return History{}, errors.New("cluster: need at least two vectors")
	}
	vecDim := len(data[0])

	flag := make([]bool, n+1)
	nearNeighb := make([]int, n+1)
	membr := make([]float64, n+1)
	dissimNN := make([]float64, n+1)
	ldDissim := make([]float64, n*(n-1)/2+1)

	for i := 1; i <= n; i++ {
		flag[i] = true
		membr[i] = 1
	}

	for i := 1; i <= n-1; i++ {
		for j := i + 1; j <= n; j++ {
			ind := offset(n, i, j)
			var d float64
			for k := 0; k < vecDim; k++ {
				diff := data[i-1][k] - data[j-1][k]
				d += diff * diff
			}
			if method == acaca.Ward {
				d /= 2
			}
			ldDissim[ind] = d
		}
	}

	for i := 1; i <= n-1; i++ {
		dmin := math.Inf(1)
		jm := 0
		for j := i + 1; j <= n; j++ {
			ind := offset(n, i, j)
			if ldDissim[ind] < dmin {
				dmin = ldDissim[ind]
				jm = j
			}
		}
		nearNeighb[i] = jm
		dissimNN[i] = dmin
	}

	hist := History{
		IA:   make([]int, n-1),
		IB:   make([]int, n-1),
		Crit: make([]float64, n-1),
	}

	nClusters := n
	for nClusters > 1 {
		dmin := math.Inf(1)
		im, jm := 0, 0
		for i := 1; i <= n-1; i++ {
			if flag[i] && dissimNN[i] < dmin {
				dmin = dissimNN[i]
				im = i
				jm = nearNeighb[i]
			}
		}
		nClusters--

		i2, j2 := im, jm
		if j2 < i2 {
			i2, j2 = j2, i2
		}
		step := n - nClusters - 1 // 0-based index into hist arrays
		hist.IA[step] = i2
		hist.IB[step] = j2
		hist.Crit[step] = dmin

		flag[j2] = false
		dmin = math.Inf(1)
		jj := 0
		for k := 1; k <= n; k++ {
			if !flag[k] || k == i2 {
				continue
			}
			var ind1, ind2 int
			if i2 < k {
				ind1 = offset(n, i2, k)
			} else {
				ind1 = offset(n, k, i2)
			}
			if j2 < k {
				ind2 = offset(n, j2, k)
			} else {
				ind2 = offset(n, k, j2)
			}
			ind3 := offset(n, i2, j2)
			xx := ldDissim[ind3]
			x := membr[i2] + membr[j2] + membr[k]

			switch method {
			case acaca.Ward:
				ldDissim[ind1] = ((membr[i2]+membr[k])*ldDissim[ind1] +
					(membr[j2]+membr[k])*ldDissim[ind2] -
					membr[k]*xx) / x
			case acaca.Single:
				ldDissim[ind1] = math.Min(ldDissim[ind1], ldDissim[ind2])
			case acaca.Complete:
				ldDissim[ind1] = math.Max(ldDissim[ind1], ldDissim[ind2])
			case acaca.Average:
				ldDissim[ind1] = (membr[i2]*ldDissim[ind1] + membr[j2]*ldDissim[ind2]) /
					(membr[i2] + membr[j2])
			case acaca.McQuitty:
				ldDissim[ind1] = ldDissim[ind1]*0.5 + ldDissim[ind2]*0.5
			case acaca.Median:
				ldDissim[ind1] = ldDissim[ind1]*0.5 + ldDissim[ind2]*0.5 - xx*0.25
			case acaca.Centroid:
				ldDissim[ind1] = (membr[i2]*ldDissim[ind1] + membr[j2]*ldDissim[ind2] -
					membr[i2]*membr[j2]*xx/(membr[i2]+membr[j2])) /
					(membr[i2] + membr[j2])
			}

			if i2 <= k && ldDissim[ind1] < dmin {
				dmin = ldDissim[ind1]
				jj = k
			}
		}

		membr[i2] += membr[j2]
		dissimNN[i2] = dmin
		nearNeighb[i2] = jj

		for i := 1; i <= n-1; i++ {
			if !flag[i] {
				continue
			}
			if nearNeighb[i] != i2 && nearNeighb[i] != j2 {
				continue
			}
			dmin := math.Inf(1)
			jj := 0
			for j := i + 1; j <= n; j++ {
				ind := offset(n, i, j)
				if flag[j] && i != j && ldDissim[ind] < dmin {
					dmin = ldDissim[ind]
					jj = j
				}
			}
			nearNeighb[i] = jj
			dissimNN[i] = dmin
		}
	}

	return hist, nil
}
