// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package report emits the clustering tool's structured text report (spec
// §6.2): a sequence of BEGIN/END delimited sections produced in a fixed
// order, mirroring the original suite's WriteOutputFile.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/dendro"
	"github.com/bioinf-ucl/acaca/refine"
	"github.com/bioinf-ucl/acaca/resprops"
	"github.com/bioinf-ucl/acaca/sdr"
)

// Document collects everything a report needs to render; fields left nil or
// zero are simply skipped by the section that would otherwise use them.
type Document struct {
	Config     *acaca.Configuration
	LoopIDs    []string    // loop identifiers in registration order
	Data       [][]float64 // raw feature vectors, same order as LoopIDs
	Assignment dendro.Assignment
	Refine     refine.Result
	Templates  []*sdr.Template // SDR templates, one per final cluster
}

// Write renders doc's report to w, in the section order DATA/CLUSTABLE/
// DENDOGRAM being conditional on the configuration's Do* flags and
// CRITICALRESIDUES/ALLCRITICALRESIDUES conditional on DoCritRes (spec §6.2).
func Write(w io.Writer, doc Document) error {
	bw := bufio.NewWriter(w)

	writeHeader(bw, doc)
	if doc.Config.DoData {
		writeData(bw, doc)
	}
	if doc.Config.DoTable {
		writeClustable(bw, doc)
	}
	if doc.Config.DoDendrogram {
		writeDendrogram(bw, doc)
	}
	writeRawAssignments(bw, doc)
	writeRawMedians(bw, doc)
	writePostCluster(bw, doc)
	writeAssignments(bw, doc)
	writeMedians(bw, doc)
	if doc.Config.DoCritRes {
		writeCriticalResidues(bw, doc)
		writeAllCriticalResidues(bw, doc)
	}

	return bw.Flush()
}

func writeHeader(w *bufio.Writer, doc Document) {
	cfg := doc.Config
	fmt.Fprintln(w, "BEGIN HEADER")
	fmt.Fprintf(w, "METHOD %s\n", cfg.Method)
	fmt.Fprintf(w, "NLOOPS %d\n", len(cfg.Loops))
	fmt.Fprintf(w, "POSTCLUSTER %g %g %g\n", cfg.PostClusterCuts[0], cfg.PostClusterCuts[1], cfg.PostClusterCuts[2])
	fmt.Fprintf(w, "MAXLENGTH %d\n", cfg.MaxLoopLen)
	fmt.Fprint(w, "SCHEME")
	for _, s := range cfg.Scheme {
		fmt.Fprintf(w, " %d", s)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, onOff(cfg.DoDistance, "DISTANCE", "NODISTANCE"))
	fmt.Fprintln(w, onOff(cfg.DoAngle, "ANGLES", "NOANGLES"))
	if cfg.TorsionMode == acaca.PseudoTorsions {
		fmt.Fprintln(w, "PSEUDOTORSIONS")
	} else {
		fmt.Fprintln(w, "TRUETORSIONS")
	}
	fmt.Fprintln(w, "END HEADER")
}

func onOff(cond bool, yes, no string) string {
	if cond {
		return yes
	}
	return no
}

func writeData(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN DATA")
	for i, vec := range doc.Data {
		id := ""
		if i < len(doc.LoopIDs) {
			id = doc.LoopIDs[i]
		}
		fmt.Fprintf(w, "%s", id)
		for _, v := range vec {
			fmt.Fprintf(w, " %g", v)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w, "END DATA")
}

// writeClustable reports the merge history as a cluster table: one line per
// dendrogram level k (1..Lev-1) giving k, that level's bar height and its
// criterion value. The pairs of items joined at each step are not printed.
func writeClustable(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN CLUSTABLE")
	for k := 1; k < doc.Assignment.Lev; k++ {
		fmt.Fprintf(w, "%d %d %g\n", k, doc.Assignment.Height[k], doc.Assignment.CritVal[k])
	}
	fmt.Fprintln(w, "END CLUSTABLE")
}

func writeDendrogram(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN DENDOGRAM")
	a := doc.Assignment
	for k := 1; k < a.Lev; k++ {
		id := ""
		if a.IOrder[k] >= 0 && a.IOrder[k] < len(doc.LoopIDs) {
			id = doc.LoopIDs[a.IOrder[k]]
		}
		fmt.Fprintf(w, "%d %s %g\n", a.Height[k], id, a.CritVal[k])
	}
	fmt.Fprintln(w, "END DENDOGRAM")
}

func writeRawAssignments(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN RAWASSIGNMENTS")
	if n := len(doc.Assignment.Clusters); n > 0 {
		top := doc.Assignment.Clusters[0]
		for i, c := range top {
			id := ""
			if i < len(doc.LoopIDs) {
				id = doc.LoopIDs[i]
			}
			fmt.Fprintf(w, "%s %d\n", id, c)
		}
	}
	fmt.Fprintln(w, "END RAWASSIGNMENTS")
}

func writeRawMedians(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN RAWMEDIANS")
	fmt.Fprintln(w, "END RAWMEDIANS")
}

func writePostCluster(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN POSTCLUSTER")
	for _, m := range doc.Refine.Merges {
		fmt.Fprintf(w, "%d %d %s %s %g %g %g\n",
			m.ClusterA, m.ClusterB, m.RepA, m.RepB, m.RMSD, m.MaxCADev, m.MaxCBDev)
	}
	fmt.Fprintln(w, "END POSTCLUSTER")
}

func writeAssignments(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN ASSIGNMENTS")
	for i, c := range doc.Refine.Clusters {
		id := ""
		if i < len(doc.LoopIDs) {
			id = doc.LoopIDs[i]
		}
		fmt.Fprintf(w, "%s %d\n", id, c)
	}
	fmt.Fprintln(w, "END ASSIGNMENTS")
}

func writeMedians(w *bufio.Writer, doc Document) {
	fmt.Fprintf(w, "BEGIN MEDIANS %d\n", doc.Refine.NClus)
	seen := make(map[int]bool)
	for i, c := range doc.Refine.Clusters {
		if seen[c] {
			continue
		}
		seen[c] = true
		id := ""
		if i < len(doc.LoopIDs) {
			id = doc.LoopIDs[i]
		}
		fmt.Fprintf(w, "%d %s\n", c, id)
	}
	fmt.Fprintln(w, "END MEDIANS")
}

func writeCriticalResidues(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN CRITICALRESIDUES")
	for _, t := range doc.Templates {
		if t.Rogue != 0 {
			continue
		}
		writeTemplateKeyPositions(w, t)
	}
	fmt.Fprintln(w, "END CRITICALRESIDUES")
}

func writeAllCriticalResidues(w *bufio.Writer, doc Document) {
	fmt.Fprintln(w, "BEGIN ALLCRITICALRESIDUES")
	for _, t := range doc.Templates {
		writeTemplateKeyPositions(w, t)
		if t.Rogue != 0 {
			fmt.Fprintf(w, "CLUSTER %d ROGUE OF %d\n", t.ClusterID, t.Rogue)
		}
	}
	fmt.Fprintln(w, "END ALLCRITICALRESIDUES")
}

func writeTemplateKeyPositions(w *bufio.Writer, t *sdr.Template) {
	fmt.Fprintf(w, "CLUSTER %d LENGTH %d NMEMBERS %d\n", t.ClusterID, t.Length, t.NMembers)
	for _, p := range t.Positions {
		if !p.Key {
			continue
		}
		fmt.Fprintf(w, "%s %s %s\n", p.Res, consensusLetter(p.ConsCode), reasonList(p.Reasons))
	}
}

// consensusLetter renders a key position's consensus residue code as a
// biogo alphabet.Letter, the same representation resprops uses to share a
// type with the rest of the biogo-based tooling; positions with no absolute
// consensus (ConsCode == 0) print as "-".
func consensusLetter(code byte) string {
	l, ok := resprops.Letter(code)
	if !ok {
		return "-"
	}
	return l.String()
}

func reasonList(reasons []string) string {
	out := ""
	for i, r := range reasons {
		if i > 0 {
			out += ","
		}
		out += r
	}
	if out == "" {
		return "-"
	}
	return out
}
