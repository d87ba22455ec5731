// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package geom

import (
	"math"
	"testing"
)

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestDist(t *testing.T) {
	a := Vec3{0, 0, 0}
	b := Vec3{3, 4, 0}
	if got, want := Dist(a, b), 5.0; !almostEqual(got, want, 1e-9) {
		t.Errorf("Dist() = %v, want %v", got, want)
	}
}

func TestAngleRightAngle(t *testing.T) {
	a := Vec3{1, 0, 0}
	b := Vec3{0, 0, 0}
	c := Vec3{0, 1, 0}
	got := Angle(a, b, c)
	if want := math.Pi / 2; !almostEqual(got, want, 1e-9) {
		t.Errorf("Angle() = %v, want %v", got, want)
	}
}

func TestTorsionPlanarCis(t *testing.T) {
	// Four coplanar points in a "cis" (eclipsed) arrangement: torsion 0.
	a := Vec3{1, 1, 0}
	b := Vec3{0, 0, 0}
	c := Vec3{1, 0, 0}
	d := Vec3{2, 1, 0}
	got := Torsion(a, b, c, d)
	if !almostEqual(got, 0, 1e-6) {
		t.Errorf("Torsion() = %v, want ~0", got)
	}
}

func TestTorsionTrans(t *testing.T) {
	a := Vec3{1, 1, 0}
	b := Vec3{0, 0, 0}
	c := Vec3{1, 0, 0}
	d := Vec3{2, -1, 0}
	got := math.Abs(Torsion(a, b, c, d))
	if !almostEqual(got, math.Pi, 1e-6) {
		t.Errorf("Torsion() = %v, want ~pi", got)
	}
}

func TestScaledAngle(t *testing.T) {
	if got, want := ScaledAngle(0), -1.0; !almostEqual(got, want, 1e-9) {
		t.Errorf("ScaledAngle(0) = %v, want %v", got, want)
	}
	if got, want := ScaledAngle(math.Pi), 1.0; !almostEqual(got, want, 1e-9) {
		t.Errorf("ScaledAngle(pi) = %v, want %v", got, want)
	}
}

func TestSuperposeIdentity(t *testing.T) {
	pts := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {1, 1, 1}}
	fit, err := Superpose(pts, pts)
	if err != nil {
		t.Fatalf("Superpose: %v", err)
	}
	for _, p := range pts {
		got := fit.Apply(p)
		if !almostEqual(Dist(got, p), 0, 1e-6) {
			t.Errorf("Apply(%v) = %v, want %v", p, got, p)
		}
	}
}

func TestSuperposeTranslation(t *testing.T) {
	ref := []Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	shift := Vec3{5, -2, 3}
	mov := make([]Vec3, len(ref))
	for i, p := range ref {
		mov[i] = Add(p, shift)
	}
	fit, err := Superpose(ref, mov)
	if err != nil {
		t.Fatalf("Superpose: %v", err)
	}
	var rmsd float64
	for i, p := range mov {
		got := fit.Apply(p)
		rmsd += DistSq(got, ref[i])
	}
	rmsd = math.Sqrt(rmsd / float64(len(ref)))
	if rmsd > 1e-6 {
		t.Errorf("post-fit RMSD = %v, want ~0", rmsd)
	}
}

func TestSuperposeMismatchedLengths(t *testing.T) {
	_, err := Superpose([]Vec3{{0, 0, 0}}, []Vec3{{0, 0, 0}, {1, 1, 1}})
	if err == nil {
		t.Error("Superpose with mismatched lengths succeeded, want error")
	}
}

func TestRMSDIdentical(t *testing.T) {
	pts := []Vec3{{0, 0, 0}, {1, 2, 3}}
	if got := RMSD(pts, pts); got != 0 {
		t.Errorf("RMSD(identical) = %v, want 0", got)
	}
}
