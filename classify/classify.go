// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package classify assigns a new loop's feature vector to the nearest of a
// set of previously-clustered loops, without re-running the clusterer
// (spec §4.8). It mirrors the original suite's standalone matching tool:
// nearest median first, then a bounding-box sweep of every other cluster,
// then a confirmation step that can veto the match entirely.
package classify

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Member is one clustered loop's feature vector together with the id of
// the cluster it was finally assigned to (post-renumbering).
type Member struct {
	LoopID  string
	Cluster int
	Vector  []float64
}

// Result reports the outcome of matching a query vector against a set of
// clustered members.
type Result struct {
	Cluster        int    // 0 if no match; negative if the matched cluster has one member
	Representative string // loop id of a representative member of Cluster, "" if no match
	Distance       float64
	Matched        bool
}

// NoMatch is the distance reported when a query fails to confirm against
// any cluster (spec §6.4, "NOMATCH").
const NoMatch = 9999.0

// Match finds the cluster nearest to vector among members, following the
// original tool's three-stage procedure: nearest median, bounding-box
// sweep, then confirmation (spec §4.8).
func Match(members []Member, vector []float64) (Result, error) {
	clusters := clusterIDs(members)
	if len(clusters) == 0 {
		return Result{Distance: NoMatch}, fmt.Errorf("classify: no clustered members supplied")
	}

	best, err := nearestMedian(members, clusters, vector)
	if err != nil {
		return Result{Distance: NoMatch}, err
	}
	dMin := minDistInCluster(members, best, vector)

	for _, c := range clusters {
		if c == best {
			continue
		}
		if !inBounds(members, c, vector) {
			continue
		}
		if d := minDistInCluster(members, c, vector); d < dMin {
			dMin = d
			best = c
		}
	}

	confirmed, err := confirm(members, best, vector)
	if err != nil {
		return Result{Distance: NoMatch}, err
	}
	if confirmed == 0 {
		return Result{Distance: NoMatch}, nil
	}

	dist := minDistInCluster(members, abs(confirmed), vector)
	rep := representative(members, abs(confirmed))
	return Result{Cluster: confirmed, Representative: rep, Distance: dist, Matched: true}, nil
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

func clusterIDs(members []Member) []int {
	seen := make(map[int]bool)
	var ids []int
	for _, m := range members {
		if !seen[m.Cluster] {
			seen[m.Cluster] = true
			ids = append(ids, m.Cluster)
		}
	}
	return ids
}

func representative(members []Member, cluster int) string {
	for _, m := range members {
		if m.Cluster == cluster {
			return m.LoopID
		}
	}
	return ""
}

// vecDist is the squared-then-rooted Euclidean distance the original
// matching tool's VecDist computed by hand; floats.Distance with p=2 is
// the same L2 norm of the difference.
func vecDist(a, b []float64) float64 {
	return floats.Distance(a, b, 2)
}

// median returns the midrange vector (min+max)/2 of cluster's members in
// each dimension, matching FindMedian's terminology (it is a midrange, not
// a statistical median).
func median(members []Member, cluster int) []float64 {
	var minv, maxv []float64
	for _, m := range members {
		if m.Cluster != cluster {
			continue
		}
		if minv == nil {
			minv = append([]float64(nil), m.Vector...)
			maxv = append([]float64(nil), m.Vector...)
			continue
		}
		for j, v := range m.Vector {
			if v < minv[j] {
				minv[j] = v
			}
			if v > maxv[j] {
				maxv[j] = v
			}
		}
	}
	if minv == nil {
		return nil
	}
	med := make([]float64, len(minv))
	for j := range med {
		med[j] = (minv[j] + maxv[j]) / 2
	}
	return med
}

func nearestMedian(members []Member, clusters []int, vector []float64) (int, error) {
	best := 0
	dMin := math.Inf(1)
	for _, c := range clusters {
		med := median(members, c)
		if med == nil {
			continue
		}
		if d := vecDist(vector, med); d < dMin {
			dMin = d
			best = c
		}
	}
	if best == 0 {
		return 0, fmt.Errorf("classify: no medians could be computed")
	}
	return best, nil
}

func minDistInCluster(members []Member, cluster int, vector []float64) float64 {
	dMin := math.Inf(1)
	for _, m := range members {
		if m.Cluster != cluster {
			continue
		}
		if d := vecDist(vector, m.Vector); d < dMin {
			dMin = d
		}
	}
	return dMin
}

// inBounds reports whether vector falls within cluster's axis-aligned
// bounding box, expanded by 10% in each dimension to allow for rounding
// error in the saved cluster data (spec §4.8 step 3).
func inBounds(members []Member, cluster int, vector []float64) bool {
	minv, maxv := bounds(members, cluster)
	if minv == nil {
		return false
	}
	for j := range vector {
		span := maxv[j] - minv[j]
		if span == 0 {
			span = math.Abs(minv[j])
		}
		span /= 10
		if vector[j] < minv[j]-span || vector[j] > maxv[j]+span {
			return false
		}
	}
	return true
}

func bounds(members []Member, cluster int) (minv, maxv []float64) {
	for _, m := range members {
		if m.Cluster != cluster {
			continue
		}
		if minv == nil {
			minv = append([]float64(nil), m.Vector...)
			maxv = append([]float64(nil), m.Vector...)
			continue
		}
		for j, v := range m.Vector {
			if v < minv[j] {
				minv[j] = v
			}
			if v > maxv[j] {
				maxv[j] = v
			}
		}
	}
	return minv, maxv
}

// confirm checks that a provisionally-matched cluster really is the right
// home for vector: if vector falls outside the cluster's raw (unexpanded)
// bounds, it must be closer to some member than to the median, and must
// not grow the bounding box by more than 50% in any dimension. Returns 0
// on rejection, the cluster id (negated if the cluster has one member) on
// acceptance (spec §4.8 step 4).
func confirm(members []Member, cluster int, vector []float64) (int, error) {
	minv, maxv := bounds(members, cluster)
	if minv == nil {
		return 0, fmt.Errorf("classify: cluster %d has no members", cluster)
	}

	outside := false
	for j := range vector {
		if vector[j] < minv[j] || vector[j] > maxv[j] {
			outside = true
			break
		}
	}
	if !outside {
		return cluster, nil
	}

	med := median(members, cluster)
	distMedian := vecDist(vector, med)
	distNearest := minDistInCluster(members, cluster, vector)
	if distNearest > distMedian {
		return 0, nil
	}

	nMembers := 0
	for _, m := range members {
		if m.Cluster == cluster {
			nMembers++
		}
	}
	if nMembers == 1 {
		return -cluster, nil
	}

	for j := range vector {
		span := maxv[j] - minv[j]
		if vector[j] > maxv[j] {
			if (vector[j] - minv[j]) > 1.5*span {
				return 0, nil
			}
		} else if vector[j] < minv[j] {
			if (maxv[j] - vector[j]) > 1.5*span {
				return 0, nil
			}
		}
	}

	return cluster, nil
}
