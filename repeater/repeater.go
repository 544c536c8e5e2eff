// Package repeater simulates an all-photonic quantum repeater chain built from
// repeater graph states (RGS) whose arms are tree-code encoded.
//
// Two endpoints, Alice and Bob, each hold half of an RGS. number_of_hops - 1
// full RGSs sit between them, and neighbouring halves meet at a Bell-state
// measurement junction. A trial prepares every RGS on a stabilizer simulator,
// loses photons in transit, swaps entanglement at every junction, decodes the
// tree-code measurements of every arm and corrects the Pauli frame of the two
// endpoints, after which Alice and Bob should share a Bell pair.
package repeater

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/decode"
	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

var (
	// DefaultObservableA and DefaultObservableB are the two-qubit observables
	// over (Alice, Bob) reported at the end of a successful trial. Both
	// stabilize the shared Bell pair.
	DefaultObservableA = stabilizer.MustParsePauliString("XZ")
	DefaultObservableB = stabilizer.MustParsePauliString("ZX")
)

// Fixed qubit handles. Tree qubits are numbered from firstTreeQubit.
const (
	alice          = 0
	bob            = 1
	anchorLeft     = 2
	anchorRight    = 3
	outerEmitter   = 4
	rootAncilla    = 5
	firstTreeQubit = 6
)

// A ProtocolOpts packages together the arguments necessary to construct a new
// Protocol. Hops, Arms and Branching have no reasonable defaults, and leaving
// them zero-initialized will result in NewProtocol returning an error.
type ProtocolOpts struct {
	// Hops is the number of Bell-state measurement junctions between Alice and
	// Bob. Must be at least 1.
	Hops int

	// Arms is the number of redundant arms m of every RGS half. Must be at
	// least 1.
	Arms int

	// Branching is the branching vector of the tree code encoding every arm.
	// Must be non-empty with positive entries.
	Branching []int

	// LossProbability is the probability that any single photon is lost in
	// transit. Must lie in [0, 1].
	LossProbability float64

	// Strategy selects how lost qubits are recovered. Defaults to
	// decode.MajorityVote.
	Strategy decode.Strategy

	// TieBreak settles evenly split majority votes. Defaults to
	// decode.RandomTieBreak.
	TieBreak decode.TieBreaker

	// ObservableA and ObservableB are measured over (Alice, Bob) at the end
	// of a successful trial. Empty observables default to DefaultObservableA
	// and DefaultObservableB.
	ObservableA, ObservableB stabilizer.PauliString

	// Snapshot requests the canonical stabilizers of the final state in
	// Result.Stabilizers. It requires a simulator implementing Snapshotter.
	Snapshot bool

	// SkipVerification disables the stabilizer checks made while preparing
	// each RGS.
	SkipVerification bool

	// NewSimulator creates the simulator for one trial over the given number
	// of qubits, drawing measurement outcomes from r. Defaults to a
	// stabilizer.Tableau.
	NewSimulator func(qubits int, r *rand.Rand) Simulator
}

func (o ProtocolOpts) validate() error {
	if o.Hops < 1 {
		return fmt.Errorf("%w: need at least one hop, got %d", ErrConfiguration, o.Hops)
	}
	if o.Arms < 1 {
		return fmt.Errorf("%w: need at least one arm, got %d", ErrConfiguration, o.Arms)
	}
	if len(o.Branching) == 0 {
		return fmt.Errorf("%w: branching vector cannot be empty", ErrConfiguration)
	}
	for i, b := range o.Branching {
		if b < 1 {
			return fmt.Errorf("%w: branching factor %d must be positive, got %d", ErrConfiguration, i, b)
		}
	}
	if p := o.LossProbability; math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: loss probability must lie in [0, 1], got %v", ErrConfiguration, p)
	}
	for _, obs := range []stabilizer.PauliString{o.ObservableA, o.ObservableB} {
		if len(obs.Ops) > 2 {
			return fmt.Errorf("%w: observable %v acts on more than Alice and Bob", ErrConfiguration, obs)
		}
	}
	return nil
}

// A Failure says why a trial did not produce a Bell pair.
type Failure int

const (
	FailureNone Failure = iota
	// FailureBSM means some junction had no arm pair with a distinguishable
	// Bell-state measurement.
	FailureBSM
	// FailureDecode means the logical measurement of some arm could not be
	// recovered.
	FailureDecode
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "none"
	case FailureBSM:
		return "bsm"
	case FailureDecode:
		return "decode"
	}
	return fmt.Sprintf("Failure(%d)", int(f))
}

// A Correction is a Pauli frame correction: whether Z must be applied to the
// left and right end of a link.
type Correction struct {
	Left, Right bool
}

// Xor composes two corrections.
func (c Correction) Xor(o Correction) Correction {
	return Correction{Left: c.Left != o.Left, Right: c.Right != o.Right}
}

// Stats packages together the photon accounting of a trial.
type Stats struct {
	LostPhotons  int
	TotalPhotons int
}

// Add returns the sum of s and o.
func (s Stats) Add(o Stats) Stats {
	return Stats{
		LostPhotons:  s.LostPhotons + o.LostPhotons,
		TotalPhotons: s.TotalPhotons + o.TotalPhotons,
	}
}

// A Result reports the outcome of one trial.
type Result struct {
	Success bool
	Failure Failure
	// Phase is the phase the trial ended in.
	Phase Phase

	// ObservableA and ObservableB are the expectation values, -1, 0 or +1, of
	// the two requested observables. Both are 0 unless Success.
	ObservableA, ObservableB int
	// Stabilizers is the canonical stabilizer snapshot of the final state, if
	// requested.
	Stabilizers []string
	// Correction is the frame correction applied to Alice and Bob.
	Correction Correction

	// BSMArms holds the successful arm of every junction, -1 where there was
	// none.
	BSMArms []int
	Stats   Stats
}
