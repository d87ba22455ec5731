// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package control

import (
	"strings"
	"testing"

	"github.com/bioinf-ucl/acaca"
)

func TestParseBasic(t *testing.T) {
	input := `
METHOD ward
MAXLENGTH 10
DENDOGRAM
TABLE
LOOP loop1.pdb L24 L34
LOOP loop2.pdb L24 L34
POSTCLUSTER 1.0 1.5 1.9
`
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Method != acaca.Ward {
		t.Errorf("Method = %v, want Ward", cfg.Method)
	}
	if cfg.MaxLoopLen != 10 {
		t.Errorf("MaxLoopLen = %d, want 10", cfg.MaxLoopLen)
	}
	if !cfg.DoDendrogram || !cfg.DoTable {
		t.Errorf("DoDendrogram=%v DoTable=%v, want both true", cfg.DoDendrogram, cfg.DoTable)
	}
	if len(cfg.Loops) != 2 {
		t.Fatalf("len(Loops) = %d, want 2", len(cfg.Loops))
	}
	if cfg.PostClusterCuts != [3]float64{1.0, 1.5, 1.9} {
		t.Errorf("PostClusterCuts = %v, want [1 1.5 1.9]", cfg.PostClusterCuts)
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse(strings.NewReader("LOOP a.pdb L1 L2\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Method != acaca.Ward {
		t.Errorf("default Method = %v, want Ward", cfg.Method)
	}
	if !cfg.DoDistance || !cfg.DoAngle {
		t.Errorf("DoDistance=%v DoAngle=%v, want both true by default", cfg.DoDistance, cfg.DoAngle)
	}
	if cfg.TorsionMode != acaca.TrueTorsions {
		t.Errorf("default TorsionMode = %v, want TrueTorsions", cfg.TorsionMode)
	}
}

func TestParseOrderingViolation(t *testing.T) {
	input := "LOOP a.pdb L1 L2\nNODISTANCE\n"
	_, err := Parse(strings.NewReader(input))
	if err == nil {
		t.Fatal("Parse succeeded, want ordering error")
	}
	if _, ok := err.(*ErrOrdering); !ok {
		t.Errorf("err = %v (%T), want *ErrOrdering", err, err)
	}
}

func TestParseOrderingBeforeLoopOK(t *testing.T) {
	input := "NODISTANCE\nPSEUDOTORSIONS\nLOOP a.pdb L1 L2\n"
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.DoDistance {
		t.Error("DoDistance = true, want false after NODISTANCE")
	}
	if cfg.TorsionMode != acaca.PseudoTorsions {
		t.Errorf("TorsionMode = %v, want PseudoTorsions", cfg.TorsionMode)
	}
}

func TestParseSchemeMismatch(t *testing.T) {
	input := "MAXLENGTH 5\nSCHEME 1 2 3\n"
	_, err := Parse(strings.NewReader(input))
	if err != ErrSchemeMismatch {
		t.Errorf("err = %v, want ErrSchemeMismatch", err)
	}
}

func TestParseUnrecognisedDirective(t *testing.T) {
	_, err := Parse(strings.NewReader("BOGUS\n"))
	if err == nil {
		t.Error("Parse succeeded on unrecognised directive, want error")
	}
}

func TestParseExclude(t *testing.T) {
	input := "EXCLUDE a.pdb L1 L2\nLOOP a.pdb L1 L2\n"
	cfg, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	id := LoopID(cfg.Loops[0])
	if !cfg.Excluded[id] {
		t.Errorf("Excluded[%q] = false, want true", id)
	}
}

func TestParseMethodRejectsUnknown(t *testing.T) {
	_, err := Parse(strings.NewReader("METHOD bogus\n"))
	if err == nil {
		t.Error("Parse succeeded with bogus METHOD, want error")
	}
}
