// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Command cachedump lists the contents of a clan/classify feature and
// accessibility cache database as a JSON stream on stdout, for inspecting
// what a run has memoised (spec §5, Resource policy).
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/bioinf-ucl/acaca/internal/cache"
)

type record struct {
	Kind       string    `json:"kind"`
	StructPath string    `json:"struct_path"`
	NValues    int       `json:"n_values"`
	Values     []float64 `json:"values,omitempty"`
}

func main() {
	path := flag.String("db", "", "cache database to dump (required)")
	full := flag.Bool("values", false, "include the full value vector, not just its length")
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}

	c, err := cache.Open(*path)
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	enc := json.NewEncoder(os.Stdout)
	err = c.Walk(func(e cache.Entry) error {
		r := record{Kind: e.Kind, StructPath: e.StructPath, NValues: len(e.Values)}
		if *full {
			r.Values = e.Values
		}
		return enc.Encode(r)
	})
	if err != nil {
		log.Fatal(err)
	}
}
