// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package cache provides an on-disk, ordered key-value cache for two of
// this module's more expensive steps: a loop's extracted feature vector
// and a structure's solvent-accessibility annotation, both of which are
// pure functions of (structure path, content) and so are safe to memoise
// across repeated clan/classify runs over the same loop library. It is
// built on modernc.org/kv the way the teacher package's internal/store
// backs its BLAST hit and region databases.
package cache

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"modernc.org/kv"
)

// byKey orders entries lexically by their raw key bytes; feature and
// accessibility keys are both self-delimiting byte strings; this is the
// same "bytes.Compare unless you need a domain-specific order" choice the
// teacher's own store.go comparators fall back to once a key is unique.
func byKey(x, y []byte) int { return bytes.Compare(x, y) }

// Cache wraps an open kv.DB.
type Cache struct {
	db *kv.DB
}

// Open opens, or creates if absent, a cache database at path.
func Open(path string) (*Cache, error) {
	opts := &kv.Options{Compare: byKey}
	db, err := kv.Open(path, opts)
	if err != nil {
		db, err = kv.Create(path, opts)
		if err != nil {
			return nil, fmt.Errorf("cache: %w", err)
		}
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error { return c.db.Close() }

// Entry is one raw cache record, decoded enough to report on without
// exposing the packed key format to callers outside this package.
type Entry struct {
	Kind       string // "feat" or "access"
	StructPath string
	Values     []float64
}

// Walk visits every entry in the cache in key order, for diagnostic tools
// such as cmd/cachedump; it does not re-derive the residue range or
// configuration fields folded into a feature key, since those are not
// needed to report on cache occupancy.
func (c *Cache) Walk(fn func(Entry) error) error {
	it, err := c.db.SeekFirst()
	if err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("cache: %w", err)
	}
	for {
		k, v, err := it.Next()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("cache: %w", err)
		}
		e, ok := decodeEntry(k, v)
		if !ok {
			continue
		}
		if err := fn(e); err != nil {
			return err
		}
	}
}

func decodeEntry(k, v []byte) (Entry, bool) {
	kind, rest, ok := readString(k)
	if !ok {
		return Entry{}, false
	}
	structPath, _, ok := readString(rest)
	if !ok {
		return Entry{}, false
	}
	return Entry{Kind: kind, StructPath: structPath, Values: unmarshalFloats(v)}, true
}

func readString(buf []byte) (string, []byte, bool) {
	if len(buf) < 8 {
		return "", nil, false
	}
	n := int(order.Uint64(buf))
	buf = buf[8:]
	if len(buf) < n {
		return "", nil, false
	}
	return string(buf[:n]), buf[n:], true
}

var order = binary.BigEndian

// featureKey identifies a loop's feature vector by its source structure
// path and residue range, plus the torsion mode and maximum loop length.
// The length scheme and the distance/angle flags are not part of the key.
func featureKey(structPath, firstRes, lastRes string, torsionMode int, maxLoopLen int) []byte {
	var buf bytes.Buffer
	writeString(&buf, "feat")
	writeString(&buf, structPath)
	writeString(&buf, firstRes)
	writeString(&buf, lastRes)
	var b [8]byte
	order.PutUint64(b[:], uint64(torsionMode))
	buf.Write(b[:])
	order.PutUint64(b[:], uint64(maxLoopLen))
	buf.Write(b[:])
	return buf.Bytes()
}

func writeString(buf *bytes.Buffer, s string) {
	var b [8]byte
	order.PutUint64(b[:], uint64(len(s)))
	buf.Write(b[:])
	buf.WriteString(s)
}

// GetFeature returns a cached feature vector, if present.
func (c *Cache) GetFeature(structPath, firstRes, lastRes string, torsionMode, maxLoopLen int) ([]float64, bool, error) {
	key := featureKey(structPath, firstRes, lastRes, torsionMode, maxLoopLen)
	v, err := c.db.Get(nil, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache: %w", err)
	}
	if v == nil {
		return nil, false, nil
	}
	return unmarshalFloats(v), true, nil
}

// PutFeature stores a feature vector, replacing any existing entry.
func (c *Cache) PutFeature(structPath, firstRes, lastRes string, torsionMode, maxLoopLen int, vec []float64) error {
	key := featureKey(structPath, firstRes, lastRes, torsionMode, maxLoopLen)
	if err := c.db.Set(key, marshalFloats(vec)); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}

func marshalFloats(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, f := range vec {
		order.PutUint64(buf[i*8:], math.Float64bits(f))
	}
	return buf
}

func unmarshalFloats(data []byte) []float64 {
	n := len(data) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float64frombits(order.Uint64(data[i*8:]))
	}
	return out
}

// accessKey identifies a structure's cached solvent-accessibility
// annotation by its source path and a content fingerprint, so a modified
// PDB file invalidates the entry without an explicit cache-clear step.
func accessKey(structPath string, fingerprint uint64) []byte {
	var buf bytes.Buffer
	writeString(&buf, "access")
	writeString(&buf, structPath)
	var b [8]byte
	order.PutUint64(b[:], fingerprint)
	buf.Write(b[:])
	return buf.Bytes()
}

// GetAccessibility returns cached per-atom accessibility values, if
// present, keyed by structPath and fingerprint (e.g. a hash of the atom
// coordinates).
func (c *Cache) GetAccessibility(structPath string, fingerprint uint64) ([]float64, bool, error) {
	key := accessKey(structPath, fingerprint)
	v, err := c.db.Get(nil, key)
	if err != nil {
		return nil, false, fmt.Errorf("cache: %w", err)
	}
	if v == nil {
		return nil, false, nil
	}
	return unmarshalFloats(v), true, nil
}

// PutAccessibility stores per-atom accessibility values.
func (c *Cache) PutAccessibility(structPath string, fingerprint uint64, values []float64) error {
	key := accessKey(structPath, fingerprint)
	if err := c.db.Set(key, marshalFloats(values)); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	return nil
}
