package repeater

import (
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/tree"
)

// prepareArm generates one arm on sim and attaches it to anchor, recording
// every Z side effect of the generation on the nodes of root. The outer qubit
// comes from the outer emitter and the tree code is grown under the root
// ancilla; fusing the two leaves the root qubit attached to the first level.
//
// It returns whether the anchor inherits a Z side effect from this arm.
func prepareArm(sim Simulator, r *rand.Rand, root *tree.Node, anchor int, verify bool) (bool, error) {
	sim.Reset(outerEmitter, rootAncilla)
	sim.H(root.Qubit, outerEmitter)
	sim.CZ(root.Qubit, outerEmitter)

	levels := root.Levels()
	sim.H(rootAncilla)
	for _, u := range root.Children {
		sim.H(u.Qubit)
		sim.CZ(rootAncilla, u.Qubit)
	}
	for _, level := range levels[1:] {
		for _, u := range level {
			for _, v := range u.Children {
				sim.H(v.Qubit)
				sim.CZ(u.Qubit, v.Qubit)
			}
		}
	}

	// Emitting a photon that still has children leaves a Z on it half the
	// time. Leaves are never affected.
	for _, level := range levels[1:] {
		for _, u := range level {
			if u.IsLeaf() {
				continue
			}
			if r.Intn(2) == 1 {
				sim.Z(u.Qubit)
				u.HasZ = !u.HasZ
			}
		}
	}

	firstLevel := make([]int, len(root.Children))
	for i, u := range root.Children {
		firstLevel[i] = u.Qubit
	}
	if verify {
		if err := VerifyVertex(sim, rootAncilla, firstLevel, 1); err != nil {
			return false, err
		}
	}

	sim.CZ(anchor, outerEmitter)
	sim.CZ(rootAncilla, outerEmitter)
	sim.H(outerEmitter, rootAncilla)
	if sim.Measure(outerEmitter) {
		for _, u := range root.Children {
			u.HasZ = !u.HasZ
		}
	}
	flip := sim.Measure(rootAncilla)
	if flip {
		root.HasZ = !root.HasZ
	}

	if verify {
		expected := 1
		if root.HasZ {
			expected = -1
		}
		if err := VerifyVertex(sim, root.Qubit, firstLevel, expected); err != nil {
			return false, err
		}
	}
	return flip, nil
}
