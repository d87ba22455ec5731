// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package sdr identifies, for each loop cluster, the Structurally
// Determining Residues (SDRs) whose type predicts the cluster's
// conformation (spec §4.6). Residue identifiers are assumed canonical
// across member structures (e.g. a renumbered antibody scheme), so a
// position's chain/number/insert addresses the same structural site in
// every member's coordinate file — mirroring the original acaca suite's
// FindSDRs, which looks up a cluster's template residues directly by
// chain/resnum/insert in each member PDB file.
package sdr

import (
	"fmt"
	"sort"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/geom"
	"github.com/bioinf-ucl/acaca/loop"
	"github.com/bioinf-ucl/acaca/resprops"
	"github.com/bioinf-ucl/acaca/structio"
)

// onLength marks how a position came to be part of a cluster's unified SDR
// set (spec §4.6, unification step).
type onLength int

const (
	native     onLength = iota // a key position intrinsic to this cluster
	addedValue                 // copied in from a same-length cluster, adds value
	deletable                  // copied in, but later found non-informative
)

// Position is one template residue site tracked for a cluster.
type Position struct {
	Res      structio.ResID
	Props    resprops.Mask // intersection across every member that has this residue
	ConsCode byte          // single residue code, if every member agrees (else 0)
	Absolute bool          // ConsCode != 0
	Key      bool
	Reasons  []string
	ObsRes   []byte // distinct residue codes observed across members, sorted

	// InLoop reports whether this position lies within the cluster's own
	// loop range, as opposed to being a framework contact residue pulled
	// in by the neighbour-set computation (spec §4.6 step 1). Only InLoop
	// positions are eligible to be flagged buried hydrophobics; only
	// non-InLoop positions are eligible to be flagged as their partners
	// (spec §4.6 rule 5).
	InLoop bool

	onLength onLength

	hbondCount   int
	buriedCount  int
	partnerCount int
}

// Template is a cluster's SDR analysis state.
type Template struct {
	ClusterID int
	Length    int
	NMembers  int
	Positions []Position
	Rogue     int // 1-based id of the cluster this one is a rogue against, or 0
}

// Member is one structure contributing to a cluster's template, the residue
// range it spans, and its solvent-accessibility annotation (spec §4.6).
// Index, if set, is the residue/loop index built over every loop registered
// against this member's structure; it lets BuildTemplate tell a genuine
// framework contact residue apart from a residue that merely belongs to
// some other loop of interest on the same chain. A nil Index falls back to
// treating every residue outside the member's own [First,Last] range as a
// candidate contact residue.
type Member struct {
	Structure *structio.Structure
	First     structio.ResID
	Last      structio.ResID
	Index     *loop.Index
}

// residueAt locates a member's atoms for a given canonical residue id.
func residueAt(m Member, res structio.ResID) ([]structio.Atom, bool) {
	idx := m.Structure.ResidueIndex(res)
	if idx < 0 {
		return nil, false
	}
	return m.Structure.ResidueAtoms(idx), true
}

// inRange reports whether res falls within m's own loop range.
func inRange(m Member, res structio.ResID) bool {
	return !res.Less(m.First) && !m.Last.Less(res)
}

// contactResidues computes, for one member, the neighbour set of spec §4.6
// step 1: residues outside the member's own loop range where any side-chain
// atom is within acaca.ContactDist of any loop atom, excluding residues
// that belong to some other registered loop (the glossary's Framework is a
// global notion — a residue inside a different loop of interest is neither
// this loop's residue nor true framework, so MarkPartners' later search
// would never legitimately find it there either). Self-contact is excluded
// by inRange skipping every residue inside the loop itself.
func contactResidues(m Member, fi, li int) []structio.ResID {
	var loopSide [][]structio.Atom
	for i := fi; i <= li; i++ {
		loopSide = append(loopSide, sidechainAtoms(m.Structure.ResidueAtoms(i)))
	}

	var out []structio.ResID
	for i := 0; i < m.Structure.NumResidues(); i++ {
		if i >= fi && i <= li {
			continue
		}
		atoms := m.Structure.ResidueAtoms(i)
		res := atoms[0].Res
		if inRange(m, res) {
			continue
		}
		if m.Index != nil && !m.Index.IsFramework(res) {
			continue
		}
		side := sidechainAtoms(atoms)
		if len(side) == 0 {
			continue
		}
		for _, ls := range loopSide {
			if anyContact(side, ls, acaca.ContactDist) {
				out = append(out, res)
				break
			}
		}
	}
	return out
}

// memberIdentifierSet returns the residue identifiers a member contributes
// to the cluster's common-identifier intersection (spec §4.6 step 2): every
// loop residue, plus every contact residue found by contactResidues.
func memberIdentifierSet(m Member) (map[structio.ResID]bool, error) {
	fi := m.Structure.ResidueIndex(m.First)
	li := m.Structure.ResidueIndex(m.Last)
	if fi < 0 || li < 0 || li < fi {
		return nil, fmt.Errorf("sdr: member %s range invalid", m.Structure.Source)
	}
	set := make(map[structio.ResID]bool, li-fi+1)
	for i := fi; i <= li; i++ {
		set[m.Structure.ResidueAtoms(i)[0].Res] = true
	}
	for _, res := range contactResidues(m, fi, li) {
		set[res] = true
	}
	return set, nil
}

// buildPosition folds every member's property mask and observed residue
// identity for res into one Position by AND-ing masks and tracking
// conservation (spec §4.6 step 3, the property-bitmask merge).
func buildPosition(res structio.ResID, members []Member) Position {
	pos := Position{Res: res}
	var mask resprops.Mask
	seen := make(map[byte]bool)
	var obs []byte
	nPresent := 0
	consensus := byte(0)
	consensusSet := false
	agree := true

	for _, m := range members {
		atoms, ok := residueAt(m, res)
		if !ok {
			continue
		}
		c := atoms[0].Code
		if c == 0 {
			continue
		}
		if nPresent == 0 {
			mask = resprops.Of(c)
		} else {
			mask = resprops.And(mask, resprops.Of(c))
		}
		nPresent++
		if !consensusSet {
			consensus, consensusSet = c, true
		} else if c != consensus {
			agree = false
		}
		if !seen[c] {
			seen[c] = true
			obs = append(obs, c)
		}
	}

	pos.Props = mask
	sort.Slice(obs, func(i, j int) bool { return obs[i] < obs[j] })
	pos.ObsRes = obs
	if agree && consensusSet {
		pos.ConsCode = consensus
		pos.Absolute = true
	}
	return pos
}

// BuildTemplate derives a cluster's template from its first member's loop
// range plus neighbour set, then keeps only the residue identifiers common
// to every member (spec §4.6 steps 1-3): a residue counts as common iff it
// is a loop residue in every loop, or a contact residue in every loop.
func BuildTemplate(clusterID int, members []Member) (*Template, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("sdr: cluster %d has no members", clusterID)
	}
	first := members[0]
	fi := first.Structure.ResidueIndex(first.First)
	li := first.Structure.ResidueIndex(first.Last)
	if fi < 0 || li < 0 || li < fi {
		return nil, fmt.Errorf("sdr: cluster %d template range invalid", clusterID)
	}

	type candidate struct {
		res    structio.ResID
		inLoop bool
	}
	var candidates []candidate
	for i := fi; i <= li; i++ {
		candidates = append(candidates, candidate{res: first.Structure.ResidueAtoms(i)[0].Res, inLoop: true})
	}
	for _, res := range contactResidues(first, fi, li) {
		candidates = append(candidates, candidate{res: res, inLoop: false})
	}

	sets := make([]map[structio.ResID]bool, len(members))
	for i, m := range members {
		set, err := memberIdentifierSet(m)
		if err != nil {
			return nil, fmt.Errorf("sdr: cluster %d: %w", clusterID, err)
		}
		sets[i] = set
	}

	t := &Template{ClusterID: clusterID, Length: li - fi + 1, NMembers: len(members)}
	for _, c := range candidates {
		common := true
		for k, set := range sets {
			if !set[c.res] || inRange(members[k], c.res) != c.inLoop {
				common = false
				break
			}
		}
		if !common {
			continue
		}
		pos := buildPosition(c.res, members)
		pos.InLoop = c.inLoop
		t.Positions = append(t.Positions, pos)
	}

	return t, nil
}

// Thresholds gates the minimum cluster size required before each
// augmentation rule is trusted (spec §4.6's MINABSCONS/MINGLYPRO analogues;
// a rule with fewer members than its threshold is skipped entirely). The
// original's H-bond and buried-hydrophobic rules carry no such size gate —
// every cluster, however small, is tested.
type Thresholds struct {
	MinAbsoluteConservation int
	MinConservedGlyPro      int
}

// DefaultThresholds mirrors the original suite's compiled-in minimums:
// MINABSCONS = 5, MINGLYPRO = 2.
var DefaultThresholds = Thresholds{
	MinAbsoluteConservation: 5,
	MinConservedGlyPro:      2,
}

// MarkAbsoluteConservation flags every absolutely conserved position as key
// (spec §4.6 rule 1).
func MarkAbsoluteConservation(t *Template, th Thresholds) {
	if t.NMembers < th.MinAbsoluteConservation {
		return
	}
	for i := range t.Positions {
		p := &t.Positions[i]
		if p.Absolute {
			p.Key = true
			p.Reasons = append(p.Reasons, "absolute conservation")
		}
	}
}

// MarkConservedGlyPro flags positions absolutely conserved as Gly or Pro
// (spec §4.6 rule 2) using a lower member threshold, since a conserved
// Gly/Pro is geometrically significant even in smaller clusters.
func MarkConservedGlyPro(t *Template, th Thresholds) {
	if t.NMembers < th.MinConservedGlyPro {
		return
	}
	for i := range t.Positions {
		p := &t.Positions[i]
		if p.Absolute && (p.ConsCode == 'G' || p.ConsCode == 'P') {
			p.Key = true
			p.Reasons = append(p.Reasons, "conserved Gly/Pro")
		}
	}
}

// IsCisProline tests whether the proline at position pi in the template's
// first member adopts the cis conformation (omega torsion near 0), the
// original suite's IsCisProline: only the first member housing the
// position is tested, not a consensus across members (spec §3 Supplemented
// features).
func IsCisProline(members []Member, pos Position) (bool, bool) {
	if pos.ConsCode != 'P' {
		return false, false
	}
	for _, m := range members {
		st := m.Structure
		idx := st.ResidueIndex(pos.Res)
		if idx <= 0 || idx+1 >= st.NumResidues() {
			continue
		}
		prevAtoms := st.ResidueAtoms(idx - 1)
		proAtoms := st.ResidueAtoms(idx)
		ca1, ok1 := structio.ResidueAtom(prevAtoms, structio.AtomCA)
		c1, ok2 := structio.ResidueAtom(prevAtoms, structio.AtomC)
		n2, ok3 := structio.ResidueAtom(proAtoms, structio.AtomN)
		ca2, ok4 := structio.ResidueAtom(proAtoms, structio.AtomCA)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		omega := geom.Torsion(
			geom.Vec3{X: ca1.X, Y: ca1.Y, Z: ca1.Z},
			geom.Vec3{X: c1.X, Y: c1.Y, Z: c1.Z},
			geom.Vec3{X: n2.X, Y: n2.Y, Z: n2.Z},
			geom.Vec3{X: ca2.X, Y: ca2.Y, Z: ca2.Z},
		)
		const halfPi = 1.5707963267948966
		return omega > -halfPi && omega < halfPi, true
	}
	return false, false
}

// MarkConservedCisPro flags a conserved proline as key when it is cis in
// the first member that carries it, applied only when the cluster is too
// small to trust MarkConservedGlyPro (spec §4.6 rule 3, mutually exclusive
// with rule 2 in the original: USE_GLYPRO takes priority, USE_CISPRO is the
// fallback).
func MarkConservedCisPro(t *Template, members []Member, th Thresholds) {
	if t.NMembers >= th.MinConservedGlyPro {
		return // rule 2 already covers conserved G/P at this cluster size
	}
	for i := range t.Positions {
		p := &t.Positions[i]
		if !p.Absolute || p.ConsCode != 'P' {
			continue
		}
		if cis, ok := IsCisProline(members, *p); ok && cis {
			p.Key = true
			p.Reasons = append(p.Reasons, "conserved cis-proline")
		}
	}
}

// sidechainAtoms returns a residue's non-backbone atoms.
func sidechainAtoms(atoms []structio.Atom) []structio.Atom {
	var out []structio.Atom
	for _, a := range atoms {
		if !a.IsBackbone() {
			out = append(out, a)
		}
	}
	return out
}

func anyContact(a, b []structio.Atom, cutoff float64) bool {
	cut2 := cutoff * cutoff
	for _, pa := range a {
		for _, pb := range b {
			dx, dy, dz := pa.X-pb.X, pa.Y-pb.Y, pa.Z-pb.Z
			if dx*dx+dy*dy+dz*dz <= cut2 {
				return true
			}
		}
	}
	return false
}

// MarkHBonders flags a position as key if its side chain makes a
// heavy-atom contact consistent with a hydrogen bond to some other
// template residue, in every member (spec §4.6 rule 4; no member-count
// gate, every cluster is tested). The original suite used a donor/acceptor
// geometry test (IsHBonded) from its PDB library; lacking that here, a
// side-chain heavy-atom proximity test at hydrogen-bonding range
// approximates it.
func MarkHBonders(t *Template, members []Member) {
	const hbondDist = 3.5

	for i := range t.Positions {
		p := &t.Positions[i]
		p.hbondCount = 0
	}

	for _, m := range members {
		present := make([]bool, len(t.Positions))
		atoms := make([][]structio.Atom, len(t.Positions))
		for i, p := range t.Positions {
			a, ok := residueAt(m, p.Res)
			if ok {
				present[i] = true
				atoms[i] = a
			}
		}
		for i := range t.Positions {
			if !present[i] {
				continue
			}
			sideI := sidechainAtoms(atoms[i])
			if len(sideI) == 0 {
				continue
			}
			bonded := false
			for j := range t.Positions {
				if i == j || !present[j] {
					continue
				}
				if anyContact(sideI, atoms[j], hbondDist) {
					bonded = true
					break
				}
			}
			if bonded {
				t.Positions[i].hbondCount++
			}
		}
	}

	for i := range t.Positions {
		p := &t.Positions[i]
		if p.hbondCount == t.NMembers {
			p.Key = true
			p.Reasons = append(p.Reasons, "conserved hydrogen bond")
		}
	}
}

// MarkBuriedHydrophobics flags positions as key if they are buried
// hydrophobics in every member, or if a framework residue consistently
// contacts a buried loop hydrophobic (spec §4.6 rule 5; no member-count
// gate, every cluster is tested). Burial is read from atom.BFactor, which
// access.Annotate fills with relative solvent accessibility — the same
// column-reuse trick the original ReadPDBAsSA relied on. Only InLoop
// positions are tested for burial; only non-InLoop (framework contact)
// positions are eligible as partners, mirroring MakeSCContact's
// !IsInRange(...) filter in the original FindSDRs.c.
func MarkBuriedHydrophobics(t *Template, members []Member) {
	for i := range t.Positions {
		t.Positions[i].buriedCount = 0
		t.Positions[i].partnerCount = 0
	}

	for _, m := range members {
		flagged := make([]bool, len(t.Positions))
		for i := range t.Positions {
			p := &t.Positions[i]
			if !p.InLoop {
				continue
			}
			atoms, ok := residueAt(m, p.Res)
			if !ok || !resprops.IsBuriedHydrophobicType(p.ConsCode) {
				continue
			}
			burial := minBFactor(atoms)
			if burial >= acaca.BuriedAccess {
				continue
			}
			t.Positions[i].buriedCount++

			side := sidechainAtoms(atoms)
			for j := range t.Positions {
				if i == j || t.Positions[j].InLoop {
					continue
				}
				other, ok := residueAt(m, t.Positions[j].Res)
				if !ok || len(other) == 0 || !resprops.IsBuriedHydrophobicType(other[0].Code) {
					continue
				}
				if anyContact(side, sidechainAtoms(other), acaca.PartnerDist) {
					flagged[j] = true
				}
			}
		}
		for i, f := range flagged {
			if f {
				t.Positions[i].partnerCount++
			}
		}
	}

	for i := range t.Positions {
		p := &t.Positions[i]
		if p.buriedCount == t.NMembers {
			p.Key = true
			p.Reasons = append(p.Reasons, "buried hydrophobic")
		} else if !p.InLoop && p.partnerCount == t.NMembers {
			p.Key = true
			p.Reasons = append(p.Reasons, "partner of buried hydrophobic")
		}
	}
}

func minBFactor(atoms []structio.Atom) float64 {
	if len(atoms) == 0 {
		return 0
	}
	min := atoms[0].BFactor
	for _, a := range atoms[1:] {
		if a.BFactor < min {
			min = a.BFactor
		}
	}
	return min
}

// RunAll applies every augmentation rule in the original suite's order:
// absolute conservation, conserved Gly/Pro (or cis-Pro fallback), H-bonds,
// then buried hydrophobics (spec §4.6).
func RunAll(t *Template, members []Member, th Thresholds) {
	MarkAbsoluteConservation(t, th)
	MarkConservedGlyPro(t, th)
	MarkConservedCisPro(t, members, th)
	MarkHBonders(t, members)
	MarkBuriedHydrophobics(t, members)
}

// Unify copies key positions from other clusters of the same loop length
// into each cluster's template (spec §4.6, unification step), marking the
// copies as addedValue so FlagNonInformative can later prune ones that add
// nothing over the largest same-length cluster.
func Unify(templates []*Template) {
	for _, t := range templates {
		existing := make(map[structio.ResID]bool, len(t.Positions))
		for _, p := range t.Positions {
			existing[p.Res] = true
		}
		for _, other := range templates {
			if other == t || other.Length != t.Length {
				continue
			}
			for _, p := range other.Positions {
				if !p.Key || existing[p.Res] {
					continue
				}
				cp := p
				cp.onLength = addedValue
				t.Positions = append(t.Positions, cp)
				existing[p.Res] = true
			}
		}
	}
}

// valueIsAdded reports whether none of b's observed residues occur in a's
// observed residues — i.e. b distinguishes its cluster from a's (spec
// §4.6, ValueIsAdded).
func valueIsAdded(a, b Position) bool {
	set := make(map[byte]bool, len(a.ObsRes))
	for _, c := range a.ObsRes {
		set[c] = true
	}
	for _, c := range b.ObsRes {
		if set[c] {
			return false
		}
	}
	return true
}

// FlagNonInformative demotes addedValue positions that give no
// discriminating power beyond the largest cluster of the same loop length
// (spec §4.6, FlagNonInformativeSDRs).
func FlagNonInformative(templates []*Template) {
	byPos := func(t *Template, res structio.ResID) (Position, bool) {
		for _, p := range t.Positions {
			if p.Res == res {
				return p, true
			}
		}
		return Position{}, false
	}

	for _, t := range templates {
		for i := range t.Positions {
			p := &t.Positions[i]
			if p.onLength != addedValue {
				continue
			}

			maxAllowed := len(p.ObsRes)
			var maxPos Position = *p
			for _, other := range templates {
				if other == t || other.Length != t.Length {
					continue
				}
				if op, ok := byPos(other, p.Res); ok && len(op.ObsRes) > maxAllowed {
					maxAllowed = len(op.ObsRes)
					maxPos = op
				}
			}

			added := false
			for _, other := range templates {
				if other.Length != t.Length {
					continue
				}
				if op, ok := byPos(other, p.Res); ok && !samePosition(op, maxPos) {
					if valueIsAdded(maxPos, op) {
						added = true
						break
					}
				}
			}
			if !added {
				p.onLength = deletable
			}
		}
	}
}

func samePosition(a, b Position) bool { return a.Res == b.Res }

// isRogue reports whether clus has no position that adds value over ref's
// same positions (spec §4.6, IsRogue).
func isRogue(ref, clus *Template) bool {
	for _, r := range ref.Positions {
		for _, c := range clus.Positions {
			if c.Res == r.Res && valueIsAdded(r, c) {
				return false
			}
		}
	}
	return true
}

// FlagRogueClusters marks clusters whose SDR positions add nothing over a
// larger, same-length cluster (spec §4.6, FlagRogueClusters): first
// against the single largest cluster of that length, then pairwise among
// the rest, chaining a rogue's parent forward when its chosen parent is
// itself later absorbed.
func FlagRogueClusters(templates []*Template) {
	if len(templates) == 0 {
		return
	}
	lengths := make(map[int]bool)
	for _, t := range templates {
		t.Rogue = 0
		lengths[t.Length] = true
	}

	for length := range lengths {
		var group []*Template
		for _, t := range templates {
			if t.Length == length {
				group = append(group, t)
			}
		}
		if len(group) == 0 {
			continue
		}

		largest := group[0]
		for _, t := range group {
			if t.NMembers > largest.NMembers {
				largest = t
			}
		}
		for _, t := range group {
			if t == largest {
				continue
			}
			if isRogue(largest, t) {
				t.Rogue = largest.ClusterID
			}
		}

		for i := 0; i < len(group); i++ {
			if group[i].Rogue != 0 {
				continue
			}
			for j := i + 1; j < len(group); j++ {
				a, b := group[i], group[j]
				if a.NMembers < b.NMembers {
					a, b = b, a
				}
				if isRogue(a, b) {
					for _, t := range group {
						if t.Rogue == b.ClusterID {
							t.Rogue = a.ClusterID
						}
					}
					b.Rogue = a.ClusterID
				}
			}
		}
	}
}
