package repeater

import (
	"fmt"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/decode"
	"github.com/alan-christopher/repeater/repeater/photon"
	"github.com/alan-christopher/repeater/repeater/stabilizer"
	"github.com/alan-christopher/repeater/repeater/tree"
)

// A HalfRGS is one half of a repeater graph state: m tree-code encoded arms
// whose outer qubits hang off a shared anchor. Alice and Bob each hold one; a
// full RGS is two of them.
type HalfRGS struct {
	Anchor int
	Arms   []*tree.Node
	// SuccessfulArm is the arm whose outer qubit took part in the junction's
	// successful Bell-state measurement, or -1.
	SuccessfulArm int
	// Results holds the decoded logical measurement of every arm: X for the
	// successful arm, Z for the others.
	Results []tree.Tri
}

// NewHalfRGS returns a HalfRGS of m arms encoded with the given branching,
// hanging off anchor. Qubits still need to be assigned.
func NewHalfRGS(m int, branching []int, anchor int) (*HalfRGS, error) {
	if m < 1 {
		return nil, fmt.Errorf("%w: need at least one arm, got %d", ErrConfiguration, m)
	}
	h := &HalfRGS{
		Anchor:        anchor,
		Arms:          make([]*tree.Node, m),
		SuccessfulArm: -1,
		Results:       make([]tree.Tri, m),
	}
	for i := range h.Arms {
		root, err := tree.Build(branching)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		h.Arms[i] = root
	}
	return h, nil
}

// AssignQubits hands out qubit handles to every arm, breadth-first and arm by
// arm, starting at next. It returns the next unused handle.
func (h *HalfRGS) AssignQubits(next int) int {
	for _, root := range h.Arms {
		next = root.AssignQubits(next)
	}
	return next
}

// BSMArm returns the arm selected by the junction, or nil.
func (h *HalfRGS) BSMArm() *tree.Node {
	if h.SuccessfulArm < 0 {
		return nil
	}
	return h.Arms[h.SuccessfulArm]
}

// CountLost returns the number of lost photons and the total number of photons
// over every arm.
func (h *HalfRGS) CountLost() Stats {
	var s Stats
	for _, root := range h.Arms {
		lost, total := root.CountLost()
		s = s.Add(Stats{LostPhotons: lost, TotalPhotons: total})
	}
	return s
}

func (h *HalfRGS) reset() {
	h.SuccessfulArm = -1
	for i, root := range h.Arms {
		root.Reset()
		h.Results[i] = tree.Unset
	}
}

// prepare generates every arm of h around its anchor on sim.
func (h *HalfRGS) prepare(sim Simulator, r *rand.Rand, verify bool) error {
	anchorHasZ := false
	sim.H(h.Anchor)
	for _, root := range h.Arms {
		flip, err := prepareArm(sim, r, root, h.Anchor, verify)
		if err != nil {
			return err
		}
		anchorHasZ = anchorHasZ != flip
	}
	if anchorHasZ {
		sim.Z(h.Anchor)
	}
	if !verify {
		return nil
	}
	var firstLevel []int
	for _, root := range h.Arms {
		for _, u := range root.Children {
			firstLevel = append(firstLevel, u.Qubit)
		}
	}
	return VerifyVertex(sim, h.Anchor, firstLevel, 1)
}

// applyLoss sends every photon of every arm through ch. Lost photons are
// traced out of sim: a random Pauli followed by a measurement whose outcome is
// discarded.
func (h *HalfRGS) applyLoss(ch photon.Channel, sim Simulator, r *rand.Rand) error {
	for _, root := range h.Arms {
		nodes := root.BreadthFirst()
		dropped, err := ch.Transmit(len(nodes))
		if err != nil {
			return err
		}
		for _, i := range dropped.Ones() {
			u := nodes[i]
			u.Lost = true
			switch stabilizer.Pauli(r.Intn(4)) {
			case stabilizer.X:
				sim.X(u.Qubit)
			case stabilizer.Y:
				sim.Y(u.Qubit)
			case stabilizer.Z:
				sim.Z(u.Qubit)
			}
			sim.Measure(u.Qubit)
		}
	}
	return nil
}

// measureInner measures the inner qubits of every arm: the successful arm
// starting in X, every other arm starting in Z.
func (h *HalfRGS) measureInner(sim Simulator) error {
	for i, root := range h.Arms {
		basis := stabilizer.Z
		if i == h.SuccessfulArm {
			basis = stabilizer.X
		}
		if err := tree.Measure(sim, root, basis); err != nil {
			return err
		}
	}
	return nil
}

func (h *HalfRGS) applySideEffects() {
	for _, root := range h.Arms {
		tree.ApplySideEffects(root)
	}
}

// decode recovers the logical result of every arm. It reports whether all of
// them are determined.
func (h *HalfRGS) decode(d decode.Decoder) (bool, error) {
	ok := true
	for i, root := range h.Arms {
		if i == h.SuccessfulArm {
			h.Results[i] = d.LogicalX(root)
		} else {
			z, err := d.LogicalZ(root)
			if err != nil {
				return false, err
			}
			h.Results[i] = z
		}
		if !h.Results[i].Known() {
			ok = false
		}
	}
	return ok, nil
}

// An RGS is a full repeater graph state sitting at an intermediate station:
// two halves whose anchors are fused once both are generated.
type RGS struct {
	Left, Right *HalfRGS
}

// NewRGS returns an RGS of m arms per half, generated using the two given
// anchor qubits.
func NewRGS(m int, branching []int, anchorLeft, anchorRight int) (*RGS, error) {
	left, err := NewHalfRGS(m, branching, anchorLeft)
	if err != nil {
		return nil, err
	}
	right, err := NewHalfRGS(m, branching, anchorRight)
	if err != nil {
		return nil, err
	}
	return &RGS{Left: left, Right: right}, nil
}

// AssignQubits assigns the left arms, then the right arms, starting at next.
// It returns the next unused handle.
func (g *RGS) AssignQubits(next int) int {
	next = g.Left.AssignQubits(next)
	return g.Right.AssignQubits(next)
}

// prepare generates both halves and fuses their anchors. The outcome of
// measuring either anchor becomes a Z side effect on the first level of the
// other half.
func (g *RGS) prepare(sim Simulator, r *rand.Rand, verify bool) error {
	sim.Reset(g.Left.Anchor, g.Right.Anchor)
	if err := g.Left.prepare(sim, r, verify); err != nil {
		return err
	}
	if err := g.Right.prepare(sim, r, verify); err != nil {
		return err
	}
	sim.CZ(g.Left.Anchor, g.Right.Anchor)
	sim.H(g.Left.Anchor, g.Right.Anchor)
	if sim.Measure(g.Left.Anchor) {
		toggleFirstLevelSideEffects(g.Right)
	}
	if sim.Measure(g.Right.Anchor) {
		toggleFirstLevelSideEffects(g.Left)
	}
	return nil
}

func toggleFirstLevelSideEffects(h *HalfRGS) {
	for _, root := range h.Arms {
		for _, u := range root.Children {
			u.HasZ = !u.HasZ
		}
	}
}
