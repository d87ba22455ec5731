// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

package acaca

import "testing"

func TestParseMethod(t *testing.T) {
	cases := []struct {
		in   string
		want Method
		ok   bool
	}{
		{"ward", Ward, true},
		{"1", Ward, true},
		{"single", Single, true},
		{"centroid", Centroid, true},
		{"7", Centroid, true},
		{"bogus", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseMethod(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Errorf("ParseMethod(%q) = %v, %v; want %v, %v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestMethodIsMonotonic(t *testing.T) {
	mono := map[Method]bool{
		Ward: true, Complete: true, Average: true, McQuitty: true,
		Single: false, Median: false, Centroid: false,
	}
	for m, want := range mono {
		if got := m.IsMonotonic(); got != want {
			t.Errorf("%v.IsMonotonic() = %v, want %v", m, got, want)
		}
	}
}

func TestDefaultScheme(t *testing.T) {
	scheme := DefaultScheme(6)
	want := []int{1, 3, 5, 6, 4, 2}
	if len(scheme) != len(want) {
		t.Fatalf("DefaultScheme(6) = %v, want length %d", scheme, len(want))
	}
	for i, v := range want {
		if scheme[i] != v {
			t.Errorf("DefaultScheme(6)[%d] = %d, want %d", i, scheme[i], v)
		}
	}
}

func TestDefaultSchemeOdd(t *testing.T) {
	scheme := DefaultScheme(5)
	want := []int{1, 3, 5, 4, 2}
	for i, v := range want {
		if scheme[i] != v {
			t.Errorf("DefaultScheme(5)[%d] = %d, want %d", i, scheme[i], v)
		}
	}
}
