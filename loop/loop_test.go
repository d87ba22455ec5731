// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package loop

import (
	"testing"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/structio"
)

// straightChain builds a structure of exactly n residues with only a CA
// atom each, laid out along the x axis; no flanking residues are added.
func straightChain(n int) *structio.Structure {
	st := &structio.Structure{Source: "test"}
	for i := 0; i < n; i++ {
		res := structio.ResID{Chain: 'A', SeqNum: i + 1, Insert: ' '}
		st.ResStart = append(st.ResStart, len(st.Atoms))
		st.Atoms = append(st.Atoms, structio.Atom{
			Res: res, Code: 'A', Name: structio.AtomCA,
			X: float64(i), Y: 0, Z: 0,
		})
	}
	return st
}

func testConfig(maxLen int) *acaca.Configuration {
	return &acaca.Configuration{
		MaxLoopLen:  maxLen,
		Scheme:      acaca.DefaultScheme(maxLen),
		TorsionMode: acaca.PseudoTorsions,
		DoAngle:     true,
		DoDistance:  true,
	}
}

func TestResolve(t *testing.T) {
	st := straightChain(6)
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 2, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '},
	}
	d, err := Resolve(st, spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got, want := d.Length(), 4; got != want {
		t.Errorf("Length() = %d, want %d", got, want)
	}
	if d.FirstIdx != 1 || d.LastIdx != 4 {
		t.Errorf("FirstIdx,LastIdx = %d,%d, want 1,4", d.FirstIdx, d.LastIdx)
	}
}

func TestResolveMissingResidue(t *testing.T) {
	st := straightChain(6)
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 99, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '},
	}
	if _, err := Resolve(st, spec); err == nil {
		t.Error("Resolve with missing first residue succeeded, want error")
	}
}

func TestResolveLastBeforeFirst(t *testing.T) {
	st := straightChain(6)
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 2, Insert: ' '},
	}
	if _, err := Resolve(st, spec); err == nil {
		t.Error("Resolve with last before first succeeded, want error")
	}
}

func TestDim(t *testing.T) {
	cfg := testConfig(6)
	// pseudo torsion: 2 sincos + 1 angle + 1 distance = 4 per slot.
	if got, want := Dim(cfg), 6*4; got != want {
		t.Errorf("Dim() = %d, want %d", got, want)
	}
}

func TestExtractShapeAndSentinel(t *testing.T) {
	st := straightChain(8)
	cfg := testConfig(6)
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 3, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 6, Insert: ' '},
	}
	d, err := Resolve(st, spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	vec, err := Extract(st, d, cfg)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got, want := len(vec), Dim(cfg); got != want {
		t.Fatalf("len(vec) = %d, want %d", got, want)
	}
	// With MaxLoopLen=6 and a 4-residue loop, two of the six slots remain
	// unfilled and must carry the dummy sentinels.
	width := 4
	foundDummy := false
	for s := 0; s < cfg.MaxLoopLen; s++ {
		if vec[s*width] == acaca.DummyTorsion {
			foundDummy = true
		}
	}
	if !foundDummy {
		t.Error("Extract() left no slot at the dummy torsion sentinel, want at least one unfilled slot")
	}
}

func TestExtractLengthExceeded(t *testing.T) {
	st := straightChain(6)
	cfg := testConfig(2)
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 2, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '},
	}
	d, err := Resolve(st, spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := Extract(st, d, cfg); err == nil {
		t.Error("Extract with loop longer than MaxLoopLen succeeded, want error")
	}
}

func TestExtractTruncatedStructure(t *testing.T) {
	st := straightChain(6)
	cfg := testConfig(6)
	// A loop that runs to the very last residue has no idx+2 neighbour for
	// pseudo-torsion extraction at its last position.
	spec := Spec{
		SourceID: "test",
		First:    structio.ResID{Chain: 'A', SeqNum: 4, Insert: ' '},
		Last:     structio.ResID{Chain: 'A', SeqNum: 6, Insert: ' '},
	}
	d, err := Resolve(st, spec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if _, err := Extract(st, d, cfg); err == nil {
		t.Error("Extract at chain end succeeded, want truncation error")
	}
}
