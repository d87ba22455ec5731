// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package access invokes an external solvent-accessibility calculator as a
// sidecar process and folds its per-atom results back into a structure, the
// way the original acaca suite's ReadPDBAsSA shelled out and re-read the
// annotated coordinate file (spec §4.6, §9 design note on external tools).
package access

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/biogo/external"

	"github.com/bioinf-ucl/acaca/structio"
)

// DefaultTool is the accessibility calculator invoked when a Configuration
// leaves AccessibilityTool empty. naccess is the tool the original suite
// shells out to.
const DefaultTool = "naccess"

// ErrToolFailed is returned when the sidecar process exits non-zero or
// produces no usable output (spec §7, "Sidecar tool failure").
var ErrToolFailed = errors.New("access: accessibility tool failed")

// Command describes the naccess invocation, built with the buildarg
// struct-tag/template convention of github.com/biogo/external.
type Command struct {
	Cmd string `buildarg:"{{if .}}{{.}}{{else}}naccess{{end}}"`

	PDBFile string `buildarg:"{{.}}"`
}

func (c Command) BuildCommand() (*exec.Cmd, error) {
	cl := external.Must(external.Build(c))
	return exec.Command(cl[0], cl[1:]...), nil
}

// Annotate runs the solvent-accessibility tool against st and writes each
// atom's per-atom relative accessibility back into its BFactor field, the
// same column the original tool recycled for this purpose. keep controls
// whether the sidecar .rsa/.asa files are retained on disk afterwards
// (spec §5, Resource policy).
func Annotate(st *structio.Structure, tool string, keep bool) error {
	if tool == "" {
		tool = DefaultTool
	}

	dir, err := os.MkdirTemp("", "acaca-access")
	if err != nil {
		return fmt.Errorf("access: %w", err)
	}
	if !keep {
		defer os.RemoveAll(dir)
	}

	pdbPath := dir + "/loop.pdb"
	if err := writePDB(pdbPath, st); err != nil {
		return fmt.Errorf("access: %w", err)
	}

	cmd, err := Command{Cmd: tool, PDBFile: pdbPath}.BuildCommand()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrToolFailed, err)
	}
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %v: %s", ErrToolFailed, err, out)
	}

	asaPath := dir + "/loop.asa"
	f, err := os.Open(asaPath)
	if err != nil {
		return fmt.Errorf("%w: no accessibility output: %v", ErrToolFailed, err)
	}
	defer f.Close()

	return readASA(f, st)
}

// writePDB emits a minimal fixed-column PDB ATOM stream for st, sufficient
// for a solvent-accessibility calculator to parse.
func writePDB(path string, st *structio.Structure) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, a := range st.Atoms {
		fmt.Fprintf(w, "ATOM  %5d %-4s %3s %c%4d%c   %8.3f%8.3f%8.3f%6.2f%6.2f\n",
			0, a.Name, "UNK", a.Res.Chain, a.Res.SeqNum, a.Res.Insert,
			a.X, a.Y, a.Z, a.Occ, a.BFactor)
	}
	fmt.Fprintln(w, "END")
	return w.Flush()
}

// readASA parses a per-atom accessibility file (NACCESS .asa format: atom
// line followed by the accessible surface area in the B-factor column) and
// writes the values back into st's matching atoms by residue and name.
func readASA(r *os.File, st *structio.Structure) error {
	sc := bufio.NewScanner(r)
	byKey := make(map[string]int, len(st.Atoms))
	for i, a := range st.Atoms {
		byKey[atomKey(a.Res, a.Name)] = i
	}

	n := 0
	for sc.Scan() {
		line := sc.Text()
		if len(line) < 66 || line[:4] != "ATOM" {
			continue
		}
		name := trimField(line[12:16])
		chain := line[21]
		seqNum, insert := parseResNum(line[22:27])
		var sa float64
		fmt.Sscanf(line[60:66], "%f", &sa)

		key := atomKey(structio.ResID{Chain: chain, SeqNum: seqNum, Insert: insert}, name)
		if idx, ok := byKey[key]; ok {
			st.Atoms[idx].BFactor = sa
			n++
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: no matching atoms in accessibility output", ErrToolFailed)
	}
	return nil
}

func atomKey(res structio.ResID, name string) string {
	return fmt.Sprintf("%c%d%c:%s", res.Chain, res.SeqNum, res.Insert, name)
}

func trimField(s string) string {
	start, end := 0, len(s)
	for start < end && s[start] == ' ' {
		start++
	}
	for end > start && s[end-1] == ' ' {
		end--
	}
	return s[start:end]
}

func parseResNum(s string) (int, byte) {
	insert := byte(' ')
	digits := s
	if len(s) > 0 {
		last := s[len(s)-1]
		if last < '0' || last > '9' {
			insert = last
			digits = s[:len(s)-1]
		}
	}
	var n int
	fmt.Sscanf(digits, "%d", &n)
	return n, insert
}
