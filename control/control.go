// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package control reads the clustering tool's control file (spec §6.1) and
// builds an acaca.Configuration from it. The directive set and the
// before-any-LOOP ordering rule on the mode-affecting directives are
// carried over unchanged from the original suite's command parser.
package control

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/bioinf-ucl/acaca"
)

// ErrOrdering is returned when a mode-affecting directive (NODISTANCE,
// DISTANCE, NOANGLE, ANGLE, TRUETORSIONS, PSEUDOTORSIONS) appears after the
// first LOOP directive (spec §6.1, "Must appear after mode-affecting
// directives").
type ErrOrdering struct{ Directive string }

func (e *ErrOrdering) Error() string {
	return fmt.Sprintf("control: %s must appear before any LOOP directive", e.Directive)
}

// ErrSchemeMismatch is returned when SCHEME and MAXLENGTH disagree on the
// loop-length dimension.
var ErrSchemeMismatch = fmt.Errorf("control: SCHEME length does not match MAXLENGTH")

// Parse reads a control file and builds a Configuration, applying the
// suite's defaults (distance and angle features on, true torsions, default
// scheme) until overridden.
func Parse(r io.Reader) (*acaca.Configuration, error) {
	cfg := &acaca.Configuration{
		DoDistance:  true,
		DoAngle:     true,
		TorsionMode: acaca.TrueTorsions,
		Excluded:    make(map[string]bool),
	}

	gotLoop := false
	methodSet := false

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
			continue
		}
		fields := strings.Fields(line)
		directive := strings.ToUpper(fields[0])
		args := fields[1:]

		guardOrdering := func() error {
			if gotLoop {
				return &ErrOrdering{Directive: directive}
			}
			return nil
		}

		switch directive {
		case "METHOD":
			if len(args) != 1 {
				return nil, fmt.Errorf("control: line %d: METHOD takes one argument", lineNo)
			}
			m, ok := acaca.ParseMethod(strings.ToLower(args[0]))
			if !ok {
				return nil, fmt.Errorf("control: line %d: unrecognised METHOD %q", lineNo, args[0])
			}
			cfg.Method = m
			methodSet = true

		case "LOOP":
			if len(args) != 3 {
				return nil, fmt.Errorf("control: line %d: LOOP takes file, first and last residue", lineNo)
			}
			cfg.Loops = append(cfg.Loops, acaca.LoopEntry{File: args[0], FirstSpec: args[1], LastSpec: args[2]})
			gotLoop = true

		case "OUTPUT":
			if len(args) != 1 {
				return nil, fmt.Errorf("control: line %d: OUTPUT takes one argument", lineNo)
			}
			cfg.OutputPath = args[0]

		case "MAXLENGTH":
			n, err := parseInt(args, lineNo, "MAXLENGTH")
			if err != nil {
				return nil, err
			}
			if cfg.Scheme != nil {
				if n != cfg.MaxLoopLen {
					return nil, ErrSchemeMismatch
				}
			} else {
				cfg.Scheme = acaca.DefaultScheme(n)
			}
			cfg.MaxLoopLen = n

		case "SCHEME":
			if len(args) == 0 {
				return nil, fmt.Errorf("control: line %d: SCHEME takes at least one argument", lineNo)
			}
			if cfg.MaxLoopLen != 0 && cfg.MaxLoopLen != len(args) {
				return nil, ErrSchemeMismatch
			}
			cfg.MaxLoopLen = len(args)
			scheme := make([]int, len(args))
			for i, a := range args {
				v, err := strconv.Atoi(a)
				if err != nil {
					return nil, fmt.Errorf("control: line %d: bad SCHEME value %q: %w", lineNo, a, err)
				}
				scheme[i] = v
			}
			cfg.Scheme = scheme

		case "DENDOGRAM":
			cfg.DoDendrogram = true
		case "TABLE":
			cfg.DoTable = true
		case "DATA":
			cfg.DoData = true
		case "CRITICALRESIDUES":
			cfg.DoCritRes = true

		case "POSTCLUSTER":
			if len(args) < 1 || len(args) > 3 {
				return nil, fmt.Errorf("control: line %d: POSTCLUSTER takes 1 to 3 arguments", lineNo)
			}
			for i, a := range args {
				v, err := strconv.ParseFloat(a, 64)
				if err != nil {
					return nil, fmt.Errorf("control: line %d: bad POSTCLUSTER value %q: %w", lineNo, a, err)
				}
				cfg.PostClusterCuts[i] = v
			}

		case "INFOLEVEL":
			n, err := parseInt(args, lineNo, "INFOLEVEL")
			if err != nil {
				return nil, err
			}
			cfg.InfoLevel = n

		case "NODISTANCE":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.DoDistance = false
		case "DISTANCE":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.DoDistance = true
		case "NOANGLE":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.DoAngle = false
		case "ANGLE":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.DoAngle = true
		case "TRUETORSIONS":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.TorsionMode = acaca.TrueTorsions
		case "PSEUDOTORSIONS":
			if err := guardOrdering(); err != nil {
				return nil, err
			}
			cfg.TorsionMode = acaca.PseudoTorsions

		case "EXCLUDE":
			if len(args) != 3 {
				return nil, fmt.Errorf("control: line %d: EXCLUDE takes file, first and last residue", lineNo)
			}
			cfg.Excluded[loopID(args[0], args[1], args[2])] = true

		default:
			return nil, fmt.Errorf("control: line %d: unrecognised directive %q", lineNo, fields[0])
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}

	if !methodSet {
		cfg.Method = acaca.Ward
	}
	if cfg.MaxLoopLen == 0 {
		cfg.MaxLoopLen = acaca.DefaultMaxLoopLen
		cfg.Scheme = acaca.DefaultScheme(cfg.MaxLoopLen)
	}
	return cfg, nil
}

func parseInt(args []string, lineNo int, directive string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("control: line %d: %s takes one argument", lineNo, directive)
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return 0, fmt.Errorf("control: line %d: bad %s value %q: %w", lineNo, directive, args[0], err)
	}
	return v, nil
}

// loopID builds the same "file-first-last" identifier the original suite
// used to cross-reference EXCLUDE directives against registered loops.
func loopID(file, first, last string) string {
	return file + "-" + first + "-" + last
}

// LoopID returns the identifier used to match a LoopEntry against an
// Excluded entry.
func LoopID(e acaca.LoopEntry) string {
	return loopID(e.File, e.FirstSpec, e.LastSpec)
}
