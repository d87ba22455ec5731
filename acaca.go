// Copyright ©2024 UCL Biomolecular Structure & Modelling Unit. All rights
// reserved. Use of this source code is governed by a BSD-style license
// that can be found in the LICENSE file.

// Package acaca clusters protein loop conformations by geometry and derives,
// per cluster, the structurally determining residues (SDRs) that predict
// conformation. It is the root of a small suite: control-file driven
// clustering (see cmd/clan) and a classifier that assigns a new loop to an
// established cluster (see cmd/classify).
package acaca

// Sentinel feature values used to pad slots that a loop is too short to
// fill, so that loops of different lengths still occupy the same feature
// coordinates. Named DUMMY/DUMMY2 in the original acaca suite.
const (
	DummyTorsion = 10.0
	DummyDist    = 100.0
)

// Default geometric gates and distances, named after the original suite's
// RMSCUT/MAXDEV/MAXCBDEV/MAXLOOPLEN constants.
const (
	DefaultRMSCut    = 1.0
	DefaultMaxCADev  = 1.5
	DefaultMaxCBDev  = 1.9
	DefaultMaxLoopLen = 38 // "actual maximum" +2, mirroring acaca.h's MAXLOOPLEN comment

	ContactDist    = 4.0 // §4.6 step 1: side-chain/loop contact radius
	PartnerDist    = 5.0 // §4.6 rule 5: framework partner radius
	BuriedAccess   = 3.0 // §4.6 rule 5: accessibility threshold for "buried"
	TrueClusterGate = 0.06
)

// Method identifies a hierarchical-clustering linkage criterion. The
// numbering matches the control file's numeric METHOD argument and the
// original suite's ClusterMethod switch.
type Method int

const (
	Ward Method = iota + 1
	Single
	Complete
	Average
	McQuitty
	Median
	Centroid
)

func (m Method) String() string {
	switch m {
	case Ward:
		return "ward"
	case Single:
		return "single"
	case Complete:
		return "complete"
	case Average:
		return "average"
	case McQuitty:
		return "mcquitty"
	case Median:
		return "median"
	case Centroid:
		return "centroid"
	default:
		return "unknown"
	}
}

// ParseMethod recognises both the textual and numeric spellings accepted by
// the METHOD control-file directive (spec §6.1).
func ParseMethod(s string) (Method, bool) {
	switch s {
	case "ward", "1":
		return Ward, true
	case "single", "2":
		return Single, true
	case "complete", "3":
		return Complete, true
	case "average", "4":
		return Average, true
	case "mcquitty", "5":
		return McQuitty, true
	case "median", "6":
		return Median, true
	case "centroid", "7":
		return Centroid, true
	default:
		return 0, false
	}
}

// IsMonotonic reports whether crit is guaranteed non-decreasing for this
// method (spec §3, Merge history invariants; §8 invariant 2).
func (m Method) IsMonotonic() bool {
	switch m {
	case Ward, Complete, Average, McQuitty:
		return true
	default:
		return false
	}
}

// TorsionMode selects how a loop's internal geometry is converted into
// feature-vector slots (spec §4.1).
type TorsionMode int

const (
	TrueTorsions TorsionMode = iota
	PseudoTorsions
)

// Configuration is the explicit, pass-by-reference replacement for the
// original suite's process-wide globals (spec §9, "Global mutable state").
// It is built once by control.Parse and passed by reference to the entry
// points that read it (loop.Extract, report.Write); cluster.Run and
// refine.Run take the individual values they need instead.
type Configuration struct {
	Method      Method
	MaxLoopLen  int
	Scheme      []int // length MaxLoopLen; scheme[i] = minimum loop length using slot i
	TorsionMode TorsionMode
	DoDistance  bool
	DoAngle     bool

	DoDendrogram bool
	DoTable      bool
	DoData       bool
	DoCritRes    bool

	OutputPath string
	InfoLevel  int

	// PostClusterCuts holds {rms_cut, max_ca_dev, max_cb_dev}; a zero
	// entry disables that gate (spec §4.5).
	PostClusterCuts [3]float64

	// Loops lists every LOOP directive in file order; order defines the
	// index 0..N-1 identity used throughout (spec §5, Ordering guarantees).
	Loops []LoopEntry

	// Excluded lists loops dropped from SDR analysis only (EXCLUDE
	// directive), keyed by loopID.
	Excluded map[string]bool

	// RetainSidecar, when true, keeps solvent-accessibility sidecar files
	// on clean exit instead of deleting them (spec §5, Resource policy).
	RetainSidecar bool

	// AccessibilityTool is the path to the external solvent-accessibility
	// executable (spec §6.3); empty uses access.DefaultTool.
	AccessibilityTool string
}

// LoopEntry is one registered LOOP directive; EXCLUDE directives are
// recorded in Configuration.Excluded instead.
type LoopEntry struct {
	File      string
	FirstSpec string
	LastSpec  string
}

// DefaultScheme returns the canonical slot-to-length-threshold table for a
// given maximum loop length: 1,3,5,...,6,4,2 — odd values counting up from
// the N-terminus, even values counting up from the C-terminus (spec §3).
func DefaultScheme(maxLoopLen int) []int {
	scheme := make([]int, maxLoopLen)
	half := (maxLoopLen + 1) / 2
	odd := 1
	for i := 0; i < half; i++ {
		scheme[i] = odd
		odd += 2
	}
	even := 2
	for i := maxLoopLen - 1; i >= half; i-- {
		scheme[i] = even
		even += 2
	}
	return scheme
}
