// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package cluster

import (
	"testing"

	"github.com/bioinf-ucl/acaca"
)

// fourPointData is two well-separated pairs: points 1,2 near 0 and points
// 3,4 near 10, so every reasonable linkage method should merge 1-2 and 3-4
// before merging the two pairs together.
var fourPointData = [][]float64{
	{0},
	{1},
	{10},
	{11},
}

func TestRunTooFewVectors(t *testing.T) {
	if _, err := Run([][]float64{{0}}, acaca.Ward); err == nil {
		t.Error("Run with one vector succeeded, want error")
	}
}

func TestRunMergeOrderSingle(t *testing.T) {
	hist, err := Run(fourPointData, acaca.Single)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(hist.IA) != 3 {
		t.Fatalf("len(IA) = %d, want 3", len(hist.IA))
	}
	// First merge must be one of the close pairs, not a cross-pair merge.
	a, b := hist.IA[0], hist.IB[0]
	closePair := (a == 1 && b == 2) || (a == 3 && b == 4)
	if !closePair {
		t.Errorf("first merge = (%d,%d), want (1,2) or (3,4)", a, b)
	}
	if hist.Crit[0] > hist.Crit[2] {
		t.Errorf("Crit = %v, want non-decreasing overall for single linkage on this data", hist.Crit)
	}
}

func TestRunWardMonotonic(t *testing.T) {
	hist, err := Run(fourPointData, acaca.Ward)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := 1; i < len(hist.Crit); i++ {
		if hist.Crit[i] < hist.Crit[i-1]-1e-9 {
			t.Errorf("Ward Crit not monotonic: %v", hist.Crit)
			break
		}
	}
}

func TestOffsetSymmetricDistinct(t *testing.T) {
	seen := make(map[int]bool)
	n := 5
	for i := 1; i < n; i++ {
		for j := i + 1; j <= n; j++ {
			idx := offset(n, i, j)
			if seen[idx] {
				t.Errorf("offset(%d,%d,%d) collides with an earlier pair", n, i, j)
			}
			seen[idx] = true
		}
	}
}

func TestRunAllMethodsProduceFullHistory(t *testing.T) {
	methods := []acaca.Method{
		acaca.Ward, acaca.Single, acaca.Complete, acaca.Average,
		acaca.McQuitty, acaca.Median, acaca.Centroid,
	}
	for _, m := range methods {
		hist, err := Run(fourPointData, m)
		if err != nil {
			t.Fatalf("Run(%v): %v", m, err)
		}
		if len(hist.IA) != 3 || len(hist.IB) != 3 || len(hist.Crit) != 3 {
			t.Errorf("Run(%v) history has wrong shape: %+v", m, hist)
		}
	}
}
