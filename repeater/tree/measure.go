package tree

import (
	"fmt"

	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

// A Measurer performs single-qubit measurements on a simulated state.
type Measurer interface {
	H(qs ...int)
	// Measure measures q in the Z basis and returns true for the -1
	// eigenvalue.
	Measure(q int) bool
}

// Measure measures every surviving node below root. The first level is
// measured in basis, which must be X or Z, and each following level in the
// other of the two. Lost nodes are skipped but their children are not.
func Measure(m Measurer, root *Node, basis stabilizer.Pauli) error {
	if basis != stabilizer.X && basis != stabilizer.Z {
		return fmt.Errorf("tree code measurement must start in X or Z, got %v", basis)
	}
	levels := root.Levels()
	for _, level := range levels[1:] {
		for _, u := range level {
			if u.Lost {
				continue
			}
			if basis == stabilizer.X {
				m.H(u.Qubit)
			}
			u.Result = TriOf(m.Measure(u.Qubit))
			u.Eigenvalue = u.Result
			u.Basis = basis
		}
		basis = flip(basis)
	}
	return nil
}

func flip(basis stabilizer.Pauli) stabilizer.Pauli {
	if basis == stabilizer.X {
		return stabilizer.Z
	}
	return stabilizer.X
}

// ApplySideEffects corrects the eigenvalue of every surviving node of the
// subtree that was measured in X while carrying a Z side effect.
func ApplySideEffects(n *Node) {
	if !n.Lost && n.Basis == stabilizer.X && n.HasZ {
		n.Eigenvalue = n.Eigenvalue.Not()
	}
	for _, u := range n.Children {
		ApplySideEffects(u)
	}
}

// FlipFirstLevel toggles the eigenvalue of every surviving child of root.
func FlipFirstLevel(root *Node) {
	for _, u := range root.Children {
		if u.Lost {
			continue
		}
		u.Eigenvalue = u.Eigenvalue.Not()
	}
}
