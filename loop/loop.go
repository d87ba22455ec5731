// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package loop turns a named loop within a structure into a fixed-length
// geometry feature vector, under the canonical length scheme that lets
// loops of different lengths share feature coordinates (spec §4.1).
package loop

import (
	"errors"
	"fmt"
	"math"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/geom"
	"github.com/bioinf-ucl/acaca/structio"
)

// ErrLengthExceeded is returned when a loop has more residues than the
// configured maximum loop length (spec §4.1).
var ErrLengthExceeded = errors.New("loop: length exceeds configured maximum")

// Spec names a loop within one structure's atom stream.
type Spec struct {
	SourceID string // structure file path, identifies the DATALIST analogue
	First    structio.ResID
	Last     structio.ResID
}

// Descriptor is the resolved form of a Spec against a loaded structure: the
// file-order residue index range it occupies.
type Descriptor struct {
	Spec
	FirstIdx int // residue index of First in the structure
	LastIdx  int // residue index of Last in the structure
}

// Length returns the number of residues from First to Last inclusive.
func (d Descriptor) Length() int { return d.LastIdx - d.FirstIdx + 1 }

// Resolve locates a loop's residue range within a structure.
func Resolve(st *structio.Structure, spec Spec) (Descriptor, error) {
	fi := st.ResidueIndex(spec.First)
	if fi < 0 {
		return Descriptor{}, fmt.Errorf("loop: first residue %v not found in %s", spec.First, st.Source)
	}
	li := st.ResidueIndex(spec.Last)
	if li < 0 {
		return Descriptor{}, fmt.Errorf("loop: last residue %v not found in %s", spec.Last, st.Source)
	}
	if li < fi {
		return Descriptor{}, fmt.Errorf("loop: last residue %v precedes first %v", spec.Last, spec.First)
	}
	return Descriptor{Spec: spec, FirstIdx: fi, LastIdx: li}, nil
}

// Dim returns the feature-vector dimension VD = L_max * F for the given
// configuration, F being 2 for pseudo-torsions or 6 for true torsions, plus
// 1 for angle mode and 1 for distance mode (spec §3).
func Dim(cfg *acaca.Configuration) int {
	return cfg.MaxLoopLen * slotWidth(cfg)
}

func slotWidth(cfg *acaca.Configuration) int {
	f := 6
	if cfg.TorsionMode == acaca.PseudoTorsions {
		f = 2
	}
	if cfg.DoAngle {
		f++
	}
	if cfg.DoDistance {
		f++
	}
	return f
}

// residueGeometry is the per-residue raw geometric data before slot
// placement: sin/cos pairs for each torsion, an optional scaled angle, and
// an optional Cα distance from the loop's first Cα.
type residueGeometry struct {
	sincos []float64 // 2*T values, T = 1 (pseudo) or 3 (true)
	angle  float64
	dist   float64
}

// Extract computes the fixed-length feature vector for one loop, injecting
// its geometry into canonical-scheme slots (spec §4.1).
func Extract(st *structio.Structure, d Descriptor, cfg *acaca.Configuration) ([]float64, error) {
	ell := d.Length()
	if ell > cfg.MaxLoopLen {
		return nil, fmt.Errorf("%w: loop %s length %d > max %d", ErrLengthExceeded, d.SourceID, ell, cfg.MaxLoopLen)
	}

	geoms, err := perResidueGeometry(st, d, cfg)
	if err != nil {
		return nil, err
	}

	width := slotWidth(cfg)
	vec := make([]float64, cfg.MaxLoopLen*width)
	for i := range vec {
		vec[i] = acaca.DummyTorsion
	}
	// Distance slots use the larger sentinel (spec §3).
	if cfg.DoDistance {
		distOff := width - 1
		for s := 0; s < cfg.MaxLoopLen; s++ {
			vec[s*width+distOff] = acaca.DummyDist
		}
	}

	scheme := cfg.Scheme
	// N-terminal fill: insert from the start of the scheme until the
	// threshold first exceeds the loop length (break, not skip — the
	// scheme need not be monotonic across its whole range).
	for i := 0; i < cfg.MaxLoopLen && scheme[i] <= ell; i++ {
		writeSlot(vec, i, width, geoms[i], cfg)
	}
	// C-terminal fill: insert from the end of the scheme until the
	// threshold first exceeds the loop length.
	pos := ell - 1
	for i := cfg.MaxLoopLen - 1; i >= 0 && scheme[i] <= ell; i, pos = i-1, pos-1 {
		writeSlot(vec, i, width, geoms[pos], cfg)
	}

	return vec, nil
}

func writeSlot(vec []float64, slot, width int, g residueGeometry, cfg *acaca.Configuration) {
	base := slot * width
	copy(vec[base:base+len(g.sincos)], g.sincos)
	off := len(g.sincos)
	if cfg.DoAngle {
		vec[base+off] = g.angle
		off++
	}
	if cfg.DoDistance {
		vec[base+off] = g.dist
	}
}

func perResidueGeometry(st *structio.Structure, d Descriptor, cfg *acaca.Configuration) ([]residueGeometry, error) {
	ell := d.Length()
	out := make([]residueGeometry, ell)

	ca := func(idx int) (geom.Vec3, bool) {
		if idx < 0 || idx >= st.NumResidues() {
			return geom.Vec3{}, false
		}
		a, ok := structio.ResidueAtom(st.ResidueAtoms(idx), structio.AtomCA)
		if !ok {
			return geom.Vec3{}, false
		}
		return geom.Vec3{X: a.X, Y: a.Y, Z: a.Z}, true
	}
	atom := func(idx int, name string) (geom.Vec3, bool) {
		if idx < 0 || idx >= st.NumResidues() {
			return geom.Vec3{}, false
		}
		a, ok := structio.ResidueAtom(st.ResidueAtoms(idx), name)
		if !ok {
			return geom.Vec3{}, false
		}
		return geom.Vec3{X: a.X, Y: a.Y, Z: a.Z}, true
	}

	var firstCA geom.Vec3
	if cfg.DoDistance {
		p, ok := ca(d.FirstIdx)
		if !ok {
			return nil, fmt.Errorf("%w: %s missing first Cα", structio.ErrTruncated, d.SourceID)
		}
		firstCA = p
	}

	for i := 0; i < ell; i++ {
		idx := d.FirstIdx + i
		var g residueGeometry

		if cfg.TorsionMode == acaca.PseudoTorsions {
			p0, ok0 := ca(idx - 1)
			p1, ok1 := ca(idx)
			p2, ok2 := ca(idx + 1)
			p3, ok3 := ca(idx + 2)
			if !ok0 || !ok1 || !ok2 || !ok3 {
				return nil, fmt.Errorf("%w: %s pseudo-torsion needs residues %d..%d", structio.ErrTruncated, d.SourceID, idx-1, idx+2)
			}
			theta := geom.Torsion(p0, p1, p2, p3)
			g.sincos = []float64{sinOf(theta), cosOf(theta)}
			if cfg.DoAngle {
				g.angle = geom.ScaledAngle(geom.Angle(p0, p1, p2))
			}
		} else {
			nPrevC, okPC := atom(idx-1, structio.AtomC)
			nAtom, okN := atom(idx, structio.AtomN)
			caAtom, okCA := atom(idx, structio.AtomCA)
			cAtom, okC := atom(idx, structio.AtomC)
			nNextN, okNN := atom(idx+1, structio.AtomN)
			if !okPC || !okN || !okCA || !okC || !okNN {
				return nil, fmt.Errorf("%w: %s true-torsion needs backbone atoms around residue %d", structio.ErrTruncated, d.SourceID, idx)
			}
			phi := geom.Torsion(nPrevC, nAtom, caAtom, cAtom)
			psi := geom.Torsion(nAtom, caAtom, cAtom, nNextN)
			var nextCA geom.Vec3
			okNCA := false
			if idx+1 < st.NumResidues() {
				nextCA, okNCA = ca(idx + 1)
			}
			var omega float64
			if okNCA {
				omega = geom.Torsion(caAtom, cAtom, nNextN, nextCA)
			}
			g.sincos = []float64{
				sinOf(phi), cosOf(phi),
				sinOf(psi), cosOf(psi),
				sinOf(omega), cosOf(omega),
			}
			if cfg.DoAngle {
				g.angle = geom.ScaledAngle(geom.Angle(nAtom, caAtom, cAtom))
			}
		}

		if cfg.DoDistance {
			p, ok := ca(idx)
			if !ok {
				return nil, fmt.Errorf("%w: %s missing Cα at residue %d", structio.ErrTruncated, d.SourceID, idx)
			}
			g.dist = geom.Dist(firstCA, p)
		}

		out[i] = g
	}
	return out, nil
}

func sinOf(theta float64) float64 { return math.Sin(theta) }
func cosOf(theta float64) float64 { return math.Cos(theta) }
