// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package resprops provides the static physico-chemical property table for
// the twenty standard amino acids plus the deletion placeholder, encoded as
// a 16-bit bitmask, and the amino-acid alphabet used to label residue
// identities throughout the clustering and SDR pipeline.
package resprops

import "github.com/biogo/biogo/alphabet"

// Mask is a bit-encoded physico-chemical descriptor for a residue. Classes
// are not mutually exclusive across categories (a residue carries exactly
// one of HPhob/HPhil, one of Negative/Positive/Uncharged, and so on) but the
// type itself places no such constraint: Mask is a plain bitset.
type Mask uint16

// Property flags. Bit layout matches the original acaca suite's resprops.h
// so that conserved-property intersections and unions are directly
// comparable with the reference tool's output.
const (
	HPhob Mask = 1 << iota
	HPhil

	Negative
	Positive
	Uncharged

	Aromatic
	Aliphatic

	Small
	Medium
	Large

	Gly
	Pro
	Other

	HBond
	NoHBond

	Deleted
)

// DeletedCode is the one-letter placeholder '-' used when a residue
// position is absent from a particular loop example; its mask is Deleted.
const DeletedCode = '-'

// IsSet reports whether every bit in want is present in m.
func (m Mask) IsSet(want Mask) bool { return m&want == want }

// And returns the intersection of properties conserved across a set,
// i.e. the AND of each member's mask.
func And(masks ...Mask) Mask {
	if len(masks) == 0 {
		return 0
	}
	out := masks[0]
	for _, m := range masks[1:] {
		out &= m
	}
	return out
}

// Or returns the union of properties observed across a set, i.e. the OR of
// each member's mask.
func Or(masks ...Mask) Mask {
	var out Mask
	for _, m := range masks {
		out |= m
	}
	return out
}

// table is the static one-letter-code to property mask map, grounded on
// InitProperties in the original acaca decr2.c.
var table = map[byte]Mask{
	'A': HPhob | Uncharged | Aliphatic | Small | Other | NoHBond,
	'C': HPhob | Uncharged | Aliphatic | Small | Other | NoHBond,
	'D': HPhil | Negative | Aliphatic | Small | Other | NoHBond,
	'E': HPhil | Negative | Aliphatic | Medium | Other | NoHBond,
	'F': HPhob | Uncharged | Aromatic | Large | Other | NoHBond,
	'G': HPhob | Uncharged | Aliphatic | Small | Gly | NoHBond,
	'H': HPhil | Positive | Aliphatic | Large | Other | HBond,
	'I': HPhob | Uncharged | Aliphatic | Medium | Other | NoHBond,
	'K': HPhil | Positive | Aliphatic | Large | Other | NoHBond,
	'L': HPhob | Uncharged | Aliphatic | Medium | Other | NoHBond,
	'M': HPhob | Uncharged | Aliphatic | Large | Other | NoHBond,
	'N': HPhil | Uncharged | Aliphatic | Small | Other | HBond,
	'P': HPhil | Uncharged | Aliphatic | Medium | Pro | NoHBond,
	'Q': HPhil | Uncharged | Aliphatic | Medium | Other | HBond,
	'R': HPhil | Positive | Aliphatic | Large | Other | NoHBond,
	'S': HPhil | Uncharged | Aliphatic | Small | Other | HBond,
	'T': HPhil | Uncharged | Aliphatic | Medium | Other | HBond,
	'V': HPhob | Uncharged | Aliphatic | Medium | Other | NoHBond,
	'W': HPhob | Uncharged | Aromatic | Large | Other | NoHBond,
	'Y': HPhob | Uncharged | Aromatic | Large | Other | HBond,
	DeletedCode: Deleted,
}

// hydrophobicLoop is the set of residue types treated as "hydrophobic" for
// the buried-hydrophobic SDR augmentation rule (spec §4.6 rule 5): the nine
// letters A,C,F,I,L,M,V,W,Y. This is a narrower set than the HPhob bit,
// which also covers G.
var hydrophobicLoop = map[byte]bool{
	'A': true, 'C': true, 'F': true, 'I': true,
	'L': true, 'M': true, 'V': true, 'W': true, 'Y': true,
}

// IsBuriedHydrophobicType reports whether the one-letter code is one of the
// residue types eligible for the buried-hydrophobic augmentation rule.
func IsBuriedHydrophobicType(code byte) bool { return hydrophobicLoop[code] }

// Of returns the property mask for a one-letter amino-acid code, or 0 if the
// code is not recognised.
func Of(code byte) Mask { return table[code] }

// Letter returns the alphabet.Letter for a recognised one-letter protein
// residue code, using biogo's generic letter representation so that
// residue identities share a type with the rest of the biogo-based tooling
// in this module's domain stack.
func Letter(code byte) (alphabet.Letter, bool) {
	if _, ok := table[code]; !ok {
		return 0, false
	}
	return alphabet.BytesToLetters([]byte{code})[0], true
}
