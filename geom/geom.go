// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package geom provides the vector geometry used by the loop feature
// extractor and the post-clustering refiner: torsions, bond angles, and
// least-squares superposition via SVD.
package geom

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Vec3 is a point or displacement in three dimensions.
type Vec3 struct{ X, Y, Z float64 }

func Sub(a, b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func Add(a, b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func Scale(a Vec3, s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }

func Dot(a, b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }

func Cross(a, b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

func Norm(a Vec3) float64 { return math.Sqrt(Dot(a, a)) }

// DistSq returns the squared Euclidean distance between two points, the
// DISTSQ of the original suite's superposition code.
func DistSq(a, b Vec3) float64 {
	d := Sub(a, b)
	return Dot(d, d)
}

func Dist(a, b Vec3) float64 { return math.Sqrt(DistSq(a, b)) }

// Angle returns the bond angle a-b-c at vertex b, in radians.
func Angle(a, b, c Vec3) float64 {
	v1 := Sub(a, b)
	v2 := Sub(c, b)
	cos := Dot(v1, v2) / (Norm(v1) * Norm(v2))
	cos = clamp(cos, -1, 1)
	return math.Acos(cos)
}

// Torsion returns the dihedral angle defined by four points a-b-c-d, in
// radians in (-π, π], using the standard cross-product formulation.
func Torsion(a, b, c, d Vec3) float64 {
	b1 := Sub(b, a)
	b2 := Sub(c, b)
	b3 := Sub(d, c)

	n1 := Cross(b1, b2)
	n2 := Cross(b2, b3)
	m1 := Cross(n1, Scale(b2, 1/Norm(b2)))

	x := Dot(n1, n2)
	y := Dot(m1, n2)
	return math.Atan2(y, x)
}

// ScaledAngle rescales a bond angle to [-1,1] per spec §4.1: 2*angle/π - 1.
func ScaledAngle(angleRad float64) float64 {
	return 2*angleRad/math.Pi - 1
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ErrDegenerate is returned by Superpose when the point sets are coincident
// or otherwise numerically degenerate (spec §7, "Numerical degeneracy").
var ErrDegenerate = errors.New("geom: degenerate point set for superposition")

// Fit is a rigid-body transform: rotate then translate.
type Fit struct {
	Rotation    *mat.Dense // 3x3
	Translation Vec3
	CentroidRef Vec3
	CentroidMov Vec3
}

// Apply maps a point from the moving frame into the reference frame.
func (f Fit) Apply(p Vec3) Vec3 {
	v := Sub(p, f.CentroidMov)
	rv := mat.NewVecDense(3, []float64{v.X, v.Y, v.Z})
	var out mat.VecDense
	out.MulVec(f.Rotation, rv)
	return Add(Vec3{out.AtVec(0), out.AtVec(1), out.AtVec(2)}, f.CentroidRef)
}

// Superpose computes the optimal rotation (Kabsch algorithm, via SVD) that
// least-squares fits mov onto ref. Both slices must be the same length and
// non-empty. It is used by the post-clustering refiner (spec §4.7) to align
// two loops' Cα traces before computing deviations.
func Superpose(ref, mov []Vec3) (Fit, error) {
	n := len(ref)
	if n == 0 || n != len(mov) {
		return Fit{}, errors.New("geom: mismatched or empty point sets")
	}

	cref := centroid(ref)
	cmov := centroid(mov)

	h := mat.NewDense(3, 3, nil)
	for i := 0; i < n; i++ {
		r := Sub(ref[i], cref)
		m := Sub(mov[i], cmov)
		hv := mat.NewDense(3, 3, []float64{
			m.X * r.X, m.X * r.Y, m.X * r.Z,
			m.Y * r.X, m.Y * r.Y, m.Y * r.Z,
			m.Z * r.X, m.Z * r.Y, m.Z * r.Z,
		})
		h.Add(h, hv)
	}

	var svd mat.SVD
	ok := svd.Factorize(h, mat.SVDFull)
	if !ok {
		return Fit{}, ErrDegenerate
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	// d = sign(det(V U^T)) guards against a reflection instead of a
	// rotation, the standard Kabsch correction.
	var vut mat.Dense
	vut.Mul(&v, u.T())
	d := math.Copysign(1, mat.Det(&vut))
	corr := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, d})

	var tmp, rot mat.Dense
	tmp.Mul(&v, corr)
	rot.Mul(&tmp, u.T())

	// An all-zero H (e.g. duplicated points, every point at its centroid)
	// indicates a degenerate fit: there is no direction to align.
	sv := svd.Values(nil)
	if len(sv) == 3 && sv[0] < 1e-9 {
		return Fit{}, ErrDegenerate
	}

	return Fit{Rotation: &rot, CentroidRef: cref, CentroidMov: cmov}, nil
}

func centroid(pts []Vec3) Vec3 {
	var sum Vec3
	for _, p := range pts {
		sum = Add(sum, p)
	}
	n := float64(len(pts))
	return Vec3{sum.X / n, sum.Y / n, sum.Z / n}
}

// RMSD returns the root-mean-square distance between two equal-length
// point sets that are already in the same frame (i.e. after Fit.Apply has
// been used to move one set).
func RMSD(a, b []Vec3) float64 {
	if len(a) == 0 {
		return 0
	}
	var sum float64
	for i := range a {
		sum += DistSq(a[i], b[i])
	}
	return math.Sqrt(sum / float64(len(a)))
}
