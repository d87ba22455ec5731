// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package structio models atomic-coordinate structure records and reads
// them from the simple columnar format used throughout this module's test
// fixtures and control files. It owns atoms as a contiguous array per
// structure and exposes residue traversal as an index function rather than
// a linked list, per the module's design notes on avoiding pointer graphs.
package structio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ResID identifies a residue by chain, sequence number and insertion code.
// Comparisons are componentwise exact; Insert ' ' means "no insertion".
type ResID struct {
	Chain   byte
	SeqNum  int
	Insert  byte
}

// String renders a residue identifier in the control-file C####I syntax
// (spec §6.1), e.g. "L48" or "H100A".
func (r ResID) String() string {
	if r.Insert == ' ' || r.Insert == 0 {
		return fmt.Sprintf("%c%d", r.Chain, r.SeqNum)
	}
	return fmt.Sprintf("%c%d%c", r.Chain, r.SeqNum, r.Insert)
}

// Less orders residues by chain, then sequence number, then insert code.
func (r ResID) Less(o ResID) bool {
	if r.Chain != o.Chain {
		return r.Chain < o.Chain
	}
	if r.SeqNum != o.SeqNum {
		return r.SeqNum < o.SeqNum
	}
	return r.Insert < o.Insert
}

// ParseResSpec parses the control-file residue specifier syntax
// C####I (spec §6.1): one chain letter, a signed sequence number, and an
// optional trailing insertion letter.
func ParseResSpec(s string) (ResID, error) {
	if len(s) < 2 {
		return ResID{}, fmt.Errorf("structio: residue spec %q too short", s)
	}
	chain := s[0]
	rest := s[1:]
	insert := byte(' ')
	if n := len(rest); n > 0 {
		last := rest[n-1]
		if (last < '0' || last > '9') && last != '-' {
			insert = last
			rest = rest[:n-1]
		}
	}
	seq, err := strconv.Atoi(rest)
	if err != nil {
		return ResID{}, fmt.Errorf("structio: bad residue spec %q: %w", s, err)
	}
	return ResID{Chain: chain, SeqNum: seq, Insert: insert}, nil
}

// Backbone atom names, used throughout loop feature extraction.
const (
	AtomN  = "N"
	AtomCA = "CA"
	AtomC  = "C"
	AtomO  = "O"
	AtomCB = "CB"
)

// Atom is a single atomic-coordinate record. Code is the residue's
// one-letter amino acid type (resprops.Of looks properties up by this
// code); it is repeated on every atom of the residue rather than modelled
// as a separate per-residue record, keeping Structure's flat atom array
// the only storage the package needs.
type Atom struct {
	Res     ResID
	Code    byte
	Name    string
	X, Y, Z float64
	Occ     float64
	BFactor float64
}

// IsBackbone reports whether the atom is one of N, CA, C, O — used by the
// SDR analyser's side-chain/contact definitions (spec §4.6).
func (a Atom) IsBackbone() bool {
	switch a.Name {
	case AtomN, AtomCA, AtomC, AtomO:
		return true
	default:
		return false
	}
}

var (
	// ErrTruncated is returned when a torsion or angle calculation runs
	// past the end of the atom stream (spec §4.1, "truncated-structure").
	ErrTruncated = errors.New("structio: truncated structure")
)

// Structure owns one atomic-coordinate stream. Atoms are stored in file
// order; ResStart gives, for each distinct residue in that order, the index
// of its first atom, so ResidueAtoms can find a residue's atom run without
// a linked list.
type Structure struct {
	Source   string
	Atoms    []Atom
	ResStart []int
}

// NumResidues returns the number of distinct residues in the stream.
func (s *Structure) NumResidues() int { return len(s.ResStart) }

// ResidueAtoms returns the atom slice for the i'th residue in file order.
func (s *Structure) ResidueAtoms(i int) []Atom {
	start := s.ResStart[i]
	end := len(s.Atoms)
	if i+1 < len(s.ResStart) {
		end = s.ResStart[i+1]
	}
	return s.Atoms[start:end]
}

// ResidueIndex returns the file-order index of the residue with the given
// identifier, or -1 if not present.
func (s *Structure) ResidueIndex(id ResID) int {
	for i, start := range s.ResStart {
		if s.Atoms[start].Res == id {
			return i
		}
	}
	return -1
}

// ResidueAtom looks up a named atom within a residue's atom run; returns false if
// absent (e.g. Gly has no CB).
func ResidueAtom(atoms []Atom, name string) (Atom, bool) {
	for _, a := range atoms {
		if a.Name == name {
			return a, true
		}
	}
	return Atom{}, false
}

// Read parses the columnar atomic-coordinate format:
//
//	ATOM  chain seqnum insert rescode name x y z occ bfactor
//
// one record per line, residues assumed contiguous in insertion order, as
// required by the "next-residue" walk in spec §3. Blank lines and lines
// beginning with '#' are ignored.
func Read(r io.Reader, source string) (*Structure, error) {
	st := &Structure{Source: source}
	var last ResID
	haveLast := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 10 || fields[0] != "ATOM" {
			continue
		}
		chain := fields[1][0]
		seqnum, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("structio: %s:%d: bad seqnum: %w", source, lineNo, err)
		}
		insert := byte(' ')
		if fields[3] != "." && fields[3] != "-" {
			insert = fields[3][0]
		}
		code := fields[4][0]
		name := fields[5]
		x, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			return nil, fmt.Errorf("structio: %s:%d: bad x: %w", source, lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[7], 64)
		if err != nil {
			return nil, fmt.Errorf("structio: %s:%d: bad y: %w", source, lineNo, err)
		}
		z, err := strconv.ParseFloat(fields[8], 64)
		if err != nil {
			return nil, fmt.Errorf("structio: %s:%d: bad z: %w", source, lineNo, err)
		}
		occ, bfac := 1.0, 0.0
		if len(fields) > 9 {
			occ, _ = strconv.ParseFloat(fields[9], 64)
		}
		if len(fields) > 10 {
			bfac, _ = strconv.ParseFloat(fields[10], 64)
		}

		res := ResID{Chain: chain, SeqNum: seqnum, Insert: insert}
		if !haveLast || res != last {
			st.ResStart = append(st.ResStart, len(st.Atoms))
			last = res
			haveLast = true
		}
		st.Atoms = append(st.Atoms, Atom{Res: res, Code: code, Name: name, X: x, Y: y, Z: z, Occ: occ, BFactor: bfac})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("structio: %s: %w", source, err)
	}
	return st, nil
}

// Clone makes a deep copy of a structure's atoms and residue index, so the
// copy's coordinates can be changed without affecting the original.
func (s *Structure) Clone() *Structure {
	out := &Structure{
		Source:   s.Source,
		Atoms:    make([]Atom, len(s.Atoms)),
		ResStart: make([]int, len(s.ResStart)),
	}
	copy(out.Atoms, s.Atoms)
	copy(out.ResStart, s.ResStart)
	return out
}
