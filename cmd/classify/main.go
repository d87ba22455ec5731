// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Command classify matches a new loop against the clusters recorded in a
// clan report, printing one line naming the best-matching cluster, its
// representative and the match distance (spec §6.4).
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/bioinf-ucl/acaca"
	"github.com/bioinf-ucl/acaca/classify"
	"github.com/bioinf-ucl/acaca/internal/cache"
	"github.com/bioinf-ucl/acaca/loop"
	"github.com/bioinf-ucl/acaca/structio"
)

func main() {
	trueTorsions := flag.Bool("t", false, "use true torsions instead of CA pseudo-torsions")
	cachePath := flag.String("cache", "", "path to a feature cache database shared with clan (optional)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), `Usage of %[1]s:
  $ %[1]s [-t] cluster-report structure loop-first loop-last

`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 4 {
		flag.Usage()
		os.Exit(2)
	}
	reportPath := flag.Arg(0)
	structPath := flag.Arg(1)
	firstSpec := flag.Arg(2)
	lastSpec := flag.Arg(3)

	rf, err := os.Open(reportPath)
	if err != nil {
		log.Fatal(err)
	}
	defer rf.Close()

	cfg, members, err := readReport(rf)
	if err != nil {
		log.Fatal(err)
	}
	if *trueTorsions {
		cfg.TorsionMode = acaca.TrueTorsions
	}

	sf, err := os.Open(structPath)
	if err != nil {
		log.Fatal(err)
	}
	st, err := structio.Read(sf, structPath)
	sf.Close()
	if err != nil {
		log.Fatal(err)
	}

	first, err := structio.ParseResSpec(firstSpec)
	if err != nil {
		log.Fatal(err)
	}
	last, err := structio.ParseResSpec(lastSpec)
	if err != nil {
		log.Fatal(err)
	}
	desc, err := loop.Resolve(st, loop.Spec{SourceID: structPath, First: first, Last: last})
	if err != nil {
		log.Fatalf("failure in reading loop: %v", err)
	}

	var store *cache.Cache
	if *cachePath != "" {
		store, err = cache.Open(*cachePath)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
	}

	var vec []float64
	cached := false
	if store != nil {
		vec, cached, err = store.GetFeature(structPath, firstSpec, lastSpec, int(cfg.TorsionMode), cfg.MaxLoopLen)
		if err != nil {
			log.Printf("cache lookup failed for %s: %v", structPath, err)
		}
	}
	if !cached {
		vec, err = loop.Extract(st, desc, cfg)
		if err != nil {
			log.Fatalf("unable to get torsion data from loop: %v", err)
		}
		if store != nil {
			if err := store.PutFeature(structPath, firstSpec, lastSpec, int(cfg.TorsionMode), cfg.MaxLoopLen, vec); err != nil {
				log.Printf("cache store failed for %s: %v", structPath, err)
			}
		}
	}

	result, err := classify.Match(members, vec)
	if err != nil {
		log.Fatal(err)
	}

	if !result.Matched {
		fmt.Printf("Best: 0 Representative: (none) NOMATCH Distance: %.3f\n", classify.NoMatch)
		return
	}

	kind := "CLUSTER"
	if result.Cluster < 0 {
		kind = "SINGLETON"
	}
	id := result.Cluster
	if id < 0 {
		id = -id
	}
	fmt.Printf("Cluster: %d Representative: %s (%s) Distance: %.3f\n", id, result.Representative, kind, result.Distance)
}

// readReport parses the HEADER, DATA and ASSIGNMENTS sections of a clan
// report well enough to reconstruct the Configuration a query loop's
// feature vector must match, and the clustered member vectors to match
// against (spec §6.2).
func readReport(r *os.File) (*acaca.Configuration, []classify.Member, error) {
	cfg := &acaca.Configuration{DoDistance: true, DoAngle: true, TorsionMode: acaca.PseudoTorsions}
	vectors := make(map[string][]float64)
	clusters := make(map[string]int)

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	section := ""
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "BEGIN ") {
			section = strings.Fields(line)[1]
			continue
		}
		if strings.HasPrefix(line, "END ") {
			section = ""
			continue
		}

		fields := strings.Fields(line)
		switch section {
		case "HEADER":
			switch fields[0] {
			case "MAXLENGTH":
				n, _ := strconv.Atoi(fields[1])
				cfg.MaxLoopLen = n
			case "SCHEME":
				scheme := make([]int, len(fields)-1)
				for i, f := range fields[1:] {
					v, _ := strconv.Atoi(f)
					scheme[i] = v
				}
				cfg.Scheme = scheme
			case "DISTANCE":
				cfg.DoDistance = true
			case "NODISTANCE":
				cfg.DoDistance = false
			case "ANGLES":
				cfg.DoAngle = true
			case "NOANGLES":
				cfg.DoAngle = false
			case "TRUETORSIONS":
				cfg.TorsionMode = acaca.TrueTorsions
			case "PSEUDOTORSIONS":
				cfg.TorsionMode = acaca.PseudoTorsions
			}

		case "DATA":
			if len(fields) < 2 {
				continue
			}
			vec := make([]float64, len(fields)-1)
			for i, f := range fields[1:] {
				v, err := strconv.ParseFloat(f, 64)
				if err != nil {
					return nil, nil, fmt.Errorf("classify: bad DATA value %q: %w", f, err)
				}
				vec[i] = v
			}
			vectors[fields[0]] = vec

		case "ASSIGNMENTS":
			if len(fields) != 2 {
				continue
			}
			c, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, nil, fmt.Errorf("classify: bad ASSIGNMENTS cluster %q: %w", fields[1], err)
			}
			clusters[fields[0]] = c
		}
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	if cfg.MaxLoopLen == 0 {
		return nil, nil, fmt.Errorf("classify: unable to read HEADER section in report")
	}

	var members []classify.Member
	for id, vec := range vectors {
		c, ok := clusters[id]
		if !ok {
			continue
		}
		members = append(members, classify.Member{LoopID: id, Cluster: c, Vector: vec})
	}
	if len(members) == 0 {
		return nil, nil, fmt.Errorf("classify: unable to read DATA/ASSIGNMENTS sections in report")
	}

	return cfg, members, nil
}
