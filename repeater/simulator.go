package repeater

import (
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

// A Simulator carries the quantum state of a trial. Gates and measurements
// are synchronous. Measure is destructive and returns true for the -1
// outcome; Peek is not, and is only used to verify the state, never to make
// protocol decisions.
type Simulator interface {
	Reset(qs ...int)
	H(qs ...int)
	CZ(a, b int)
	CX(a, b int)
	X(q int)
	Y(q int)
	Z(q int)
	Measure(q int) bool
	// Peek returns the expectation value of p: +1 or -1 if the state is an
	// eigenstate of p, 0 otherwise.
	Peek(p stabilizer.PauliString) int
}

// A Snapshotter is a Simulator that can describe its full state.
type Snapshotter interface {
	CanonicalStabilizers() []stabilizer.PauliString
}

var (
	_ Simulator   = (*stabilizer.Tableau)(nil)
	_ Snapshotter = (*stabilizer.Tableau)(nil)
)

func newTableau(qubits int, r *rand.Rand) Simulator {
	return stabilizer.NewTableau(qubits, r)
}

// VerifyVertex checks that the graph-state stabilizer X_vertex times Z on every
// neighbour has the expected eigenvalue on sim. It returns a
// *VerificationError if not.
func VerifyVertex(sim Simulator, vertex int, neighbours []int, expected int) error {
	got := sim.Peek(stabilizer.Vertex(vertex, neighbours))
	if got != expected {
		return &VerificationError{
			Vertex:     vertex,
			Neighbours: append([]int(nil), neighbours...),
			Expected:   expected,
			Got:        got,
		}
	}
	return nil
}
