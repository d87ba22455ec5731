// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package access

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bioinf-ucl/acaca/structio"
)

func sampleStructure() *structio.Structure {
	return &structio.Structure{
		Source: "test",
		Atoms: []structio.Atom{
			{Res: structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '}, Name: "CA", X: 1, Y: 2, Z: 3},
			{Res: structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '}, Name: "CB", X: 4, Y: 5, Z: 6},
		},
	}
}

func TestWritePDBFieldPositions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.pdb")
	if err := writePDB(path, sampleStructure()); err != nil {
		t.Fatalf("writePDB: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if len(lines) != 3 {
		t.Fatalf("wrote %d lines, want 3 (2 atoms + END)", len(lines))
	}
	line := lines[0]
	if !strings.HasPrefix(line, "ATOM") {
		t.Fatalf("line 0 = %q, want ATOM prefix", line)
	}
	if len(line) < 66 {
		t.Fatalf("line length = %d, want at least 66 columns", len(line))
	}
	if name := trimField(line[12:16]); name != "CA" {
		t.Errorf("name column = %q, want CA", name)
	}
	if line[21] != 'A' {
		t.Errorf("chain column = %q, want A", line[21])
	}
	seqNum, insert := parseResNum(line[22:27])
	if seqNum != 5 || insert != ' ' {
		t.Errorf("parseResNum(%q) = %d, %q, want 5, ' '", line[22:27], seqNum, insert)
	}
	if lines[2] != "END" {
		t.Errorf("last line = %q, want END", lines[2])
	}
}

func TestReadASAUpdatesMatchingAtoms(t *testing.T) {
	st := sampleStructure()
	asa := "ATOM      0 CA   UNK A   5       1.000   2.000   3.000  0.00 42.50\n" +
		"ATOM      0 CB   UNK A   5       4.000   5.000   6.000  0.00 17.25\n"

	path := filepath.Join(t.TempDir(), "loop.asa")
	if err := os.WriteFile(path, []byte(asa), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if err := readASA(f, st); err != nil {
		t.Fatalf("readASA: %v", err)
	}
	if st.Atoms[0].BFactor != 42.50 {
		t.Errorf("Atoms[0].BFactor = %v, want 42.50", st.Atoms[0].BFactor)
	}
	if st.Atoms[1].BFactor != 17.25 {
		t.Errorf("Atoms[1].BFactor = %v, want 17.25", st.Atoms[1].BFactor)
	}
}

func TestReadASANoMatches(t *testing.T) {
	st := sampleStructure()
	asa := "ATOM      0 CA   UNK B   9       1.000   2.000   3.000  0.00 42.50\n"
	path := filepath.Join(t.TempDir(), "loop.asa")
	if err := os.WriteFile(path, []byte(asa), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	if err := readASA(f, st); err == nil {
		t.Error("readASA succeeded with no matching atoms, want error")
	}
}

func TestAtomKeyDistinguishesInsertCode(t *testing.T) {
	a := atomKey(structio.ResID{Chain: 'A', SeqNum: 5, Insert: ' '}, "CA")
	b := atomKey(structio.ResID{Chain: 'A', SeqNum: 5, Insert: 'A'}, "CA")
	if a == b {
		t.Errorf("atomKey ignored insert code: %q == %q", a, b)
	}
}
