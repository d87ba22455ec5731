// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package dendro

import (
	"testing"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/cluster"
)

var fourPointData = [][]float64{
	{0},
	{1},
	{10},
	{11},
}

func TestAssignInvalidDepth(t *testing.T) {
	hist, err := cluster.Run(fourPointData, acaca.Ward)
	if err != nil {
		t.Fatalf("cluster.Run: %v", err)
	}
	if _, err := Assign(hist, 4, 0); err == nil {
		t.Error("Assign with lev=0 succeeded, want error")
	}
	if _, err := Assign(hist, 4, 5); err == nil {
		t.Error("Assign with lev>n succeeded, want error")
	}
}

func TestAssignTwoClusterLevel(t *testing.T) {
	hist, err := cluster.Run(fourPointData, acaca.Ward)
	if err != nil {
		t.Fatalf("cluster.Run: %v", err)
	}
	a, err := Assign(hist, 4, 3)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	// Column 0 is the nTrue=2 level (col = nTrue-2, as cmd/clan derives it).
	col := 0
	id01 := a.Clusters[0][col]
	id1 := a.Clusters[1][col]
	id2 := a.Clusters[2][col]
	id3 := a.Clusters[3][col]
	if id01 != id1 {
		t.Errorf("vectors 0,1 assigned different clusters at 2-cluster level: %d, %d", id01, id1)
	}
	if id2 != id3 {
		t.Errorf("vectors 2,3 assigned different clusters at 2-cluster level: %d, %d", id2, id3)
	}
	if id01 == id2 {
		t.Errorf("the two separated pairs were assigned the same cluster: %d", id01)
	}
}

func TestFindNumTrueClustersGate(t *testing.T) {
	crit := []float64{0.01, 0.02, 10.0}
	// With vecDim=1, the jump at index 2 exceeds the 0.06 gate, so there
	// should be len(crit)+1-2 = 2 true clusters.
	if got, want := FindNumTrueClusters(crit, len(crit)+1, 1), 2; got != want {
		t.Errorf("FindNumTrueClusters() = %d, want %d", got, want)
	}
}

func TestFindNumTrueClustersNoGate(t *testing.T) {
	crit := []float64{0.001, 0.002, 0.003}
	if got, want := FindNumTrueClusters(crit, len(crit)+1, 1), 1; got != want {
		t.Errorf("FindNumTrueClusters() = %d, want %d", got, want)
	}
}
