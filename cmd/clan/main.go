// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Command clan clusters a set of protein loop conformations described by a
// control file and writes a structured report, optionally including a
// per-cluster structurally-determining-residue analysis (spec §6.4).
package main

import (
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"os"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/access"
	"github.com/bioinf-ucl/acaca/cluster"
	"github.com/bioinf-ucl/acaca/control"
	"github.com/bioinf-ucl/acaca/dendro"
	"github.com/bioinf-ucl/acaca/internal/cache"
	"github.com/bioinf-ucl/acaca/loop"
	"github.com/bioinf-ucl/acaca/refine"
	"github.com/bioinf-ucl/acaca/report"
	"github.com/bioinf-ucl/acaca/sdr"
	"github.com/bioinf-ucl/acaca/structio"
)

// structureFingerprint hashes a structure's atom coordinates and identities
// into a fingerprint suitable for cache.GetAccessibility/PutAccessibility,
// the "hash of the atom coordinates" cache.go's own doc comment names: a
// structure edited since the last run hashes differently and the stale
// accessibility entry is simply not found.
func structureFingerprint(st *structio.Structure) uint64 {
	h := fnv.New64a()
	for _, a := range st.Atoms {
		fmt.Fprintf(h, "%c|%d|%c|%s|%g|%g|%g", a.Res.Chain, a.Res.SeqNum, a.Res.Insert, a.Name, a.X, a.Y, a.Z)
	}
	return h.Sum64()
}

func main() {
	verbose := flag.Bool("verbose", false, "log each loop as it is processed")
	cachePath := flag.String("cache", "", "path to a feature/accessibility cache database (optional)")

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s [options] control-file

Options:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	cf, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := control.Parse(cf)
	cf.Close()
	if err != nil {
		log.Fatal(err)
	}

	var store *cache.Cache
	if *cachePath != "" {
		store, err = cache.Open(*cachePath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
	}

	type loaded struct {
		id   string
		st   *structio.Structure
		desc loop.Descriptor
		vec  []float64
	}
	var loops []loaded

	for _, entry := range cfg.Loops {
		if *verbose {
			log.Printf("reading %s", entry.File)
		}
		f, err := os.Open(entry.File)
		if err != nil {
			log.Printf("skipping %s: %v", entry.File, err)
			continue
		}
		st, err := structio.Read(f, entry.File)
		f.Close()
		if err != nil {
			log.Printf("skipping %s: %v", entry.File, err)
			continue
		}

		first, err := structio.ParseResSpec(entry.FirstSpec)
		if err != nil {
			log.Printf("skipping %s: %v", entry.File, err)
			continue
		}
		last, err := structio.ParseResSpec(entry.LastSpec)
		if err != nil {
			log.Printf("skipping %s: %v", entry.File, err)
			continue
		}
		desc, err := loop.Resolve(st, loop.Spec{SourceID: entry.File, First: first, Last: last})
		if err != nil {
			log.Printf("skipping %s: %v", entry.File, err)
			continue
		}

		var vec []float64
		cached := false
		if store != nil {
			vec, cached, err = store.GetFeature(entry.File, entry.FirstSpec, entry.LastSpec, int(cfg.TorsionMode), cfg.MaxLoopLen)
			if err != nil {
				log.Printf("cache lookup failed for %s: %v", entry.File, err)
			}
		}
		if !cached {
			vec, err = loop.Extract(st, desc, cfg)
			if err != nil {
				log.Printf("skipping %s: %v", entry.File, err)
				continue
			}
			if store != nil {
				if err := store.PutFeature(entry.File, entry.FirstSpec, entry.LastSpec, int(cfg.TorsionMode), cfg.MaxLoopLen, vec); err != nil {
					log.Printf("cache store failed for %s: %v", entry.File, err)
				}
			}
		}

		loops = append(loops, loaded{id: control.LoopID(entry), st: st, desc: desc, vec: vec})
	}

	if len(loops) < 2 {
		log.Fatal("fewer than two loops extracted successfully; nothing to cluster")
	}

	data := make([][]float64, len(loops))
	structs := make([]*structio.Structure, len(loops))
	descs := make([]loop.Descriptor, len(loops))
	loopIDs := make([]string, len(loops))
	for i, l := range loops {
		data[i] = l.vec
		structs[i] = l.st
		descs[i] = l.desc
		loopIDs[i] = l.id
	}

	history, err := cluster.Run(data, cfg.Method)
	if err != nil {
		log.Fatal(err)
	}

	n := len(data)
	assignment, err := dendro.Assign(history, n, n-1)
	if err != nil {
		log.Fatal(err)
	}
	vecDim := len(data[0])
	if cfg.Method != acaca.Ward {
		vecDim = 1
	}
	nTrue := dendro.FindNumTrueClusters(history.Crit, n-1, vecDim)
	rawClusters := make([]int, n)
	if nTrue < 2 {
		for i := range rawClusters {
			rawClusters[i] = 1
		}
	} else {
		col := nTrue - 2
		for i := range rawClusters {
			rawClusters[i] = assignment.Clusters[i][col]
		}
	}

	result := refine.Run(rawClusters, data, nTrue, structs, descs, loopIDs, cfg.PostClusterCuts)

	doc := report.Document{
		Config:     cfg,
		LoopIDs:    loopIDs,
		Data:       data,
		Assignment: assignment,
		Refine:     result,
	}

	if cfg.DoCritRes {
		if *verbose {
			log.Println("annotating solvent accessibility")
		}
		for _, st := range structs {
			fp := structureFingerprint(st)
			if store != nil {
				values, ok, err := store.GetAccessibility(st.Source, fp)
				if err != nil {
					log.Printf("cache lookup failed for %s: %v", st.Source, err)
				} else if ok && len(values) == len(st.Atoms) {
					for i, v := range values {
						st.Atoms[i].BFactor = v
					}
					continue
				}
			}
			if err := access.Annotate(st, cfg.AccessibilityTool, cfg.RetainSidecar); err != nil {
				log.Printf("accessibility annotation failed for %s: %v", st.Source, err)
				continue
			}
			if store != nil {
				values := make([]float64, len(st.Atoms))
				for i, a := range st.Atoms {
					values[i] = a.BFactor
				}
				if err := store.PutAccessibility(st.Source, fp, values); err != nil {
					log.Printf("cache store failed for %s: %v", st.Source, err)
				}
			}
		}

		indexBySource := make(map[string]*loop.Index)
		bySource := make(map[string][]loop.Descriptor)
		for _, d := range descs {
			bySource[d.SourceID] = append(bySource[d.SourceID], d)
		}
		for source, ds := range bySource {
			indexBySource[source] = loop.NewIndex(ds)
		}

		byCluster := make(map[int][]sdr.Member)
		for i, c := range result.Clusters {
			if cfg.Excluded[loopIDs[i]] {
				continue
			}
			byCluster[c] = append(byCluster[c], sdr.Member{
				Structure: structs[i],
				First:     descs[i].First,
				Last:      descs[i].Last,
				Index:     indexBySource[descs[i].SourceID],
			})
		}

		var templates []*sdr.Template
		for c := 1; c <= result.NClus; c++ {
			members := byCluster[c]
			if len(members) == 0 {
				continue
			}
			t, err := sdr.BuildTemplate(c, members)
			if err != nil {
				log.Printf("cluster %d: %v", c, err)
				continue
			}
			sdr.RunAll(t, members, sdr.DefaultThresholds)
			templates = append(templates, t)
		}
		sdr.Unify(templates)
		sdr.FlagNonInformative(templates)
		sdr.FlagRogueClusters(templates)
		doc.Templates = templates
	}

	out := os.Stdout
	if cfg.OutputPath != "" {
		f, err := os.Create(cfg.OutputPath)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}

	if err := report.Write(out, doc); err != nil {
		log.Fatal(err)
	}
}
