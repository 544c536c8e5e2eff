package repeater

import (
	"errors"
	"fmt"

	"github.com/alan-christopher/repeater/repeater/stabilizer"
	"github.com/alan-christopher/repeater/repeater/tree"
)

// A junction is a Bell-state measurement station where the arms of two halves
// meet, arm i of the left half against arm i of the right.
type junction struct {
	left, right *HalfRGS
}

func newJunction(left, right *HalfRGS) (junction, error) {
	if len(left.Arms) != len(right.Arms) {
		return junction{}, fmt.Errorf("%w: cannot join %d arms to %d", ErrConfiguration, len(left.Arms), len(right.Arms))
	}
	return junction{left: left, right: right}, nil
}

// measure performs the Bell-state measurement on every pair of outer qubits
// that both arrived, then measures the inner qubits of every arm. The first
// pair whose two outcomes differ is the one a linear-optics analyzer can
// identify; it becomes the successful arm of both halves. measure returns it,
// or -1 if there is none.
func (j junction) measure(sim Simulator) (int, error) {
	k := -1
	for i := range j.left.Arms {
		u, v := j.left.Arms[i], j.right.Arms[i]
		if u.Lost || v.Lost {
			continue
		}
		sim.CZ(u.Qubit, v.Qubit)
		sim.H(u.Qubit, v.Qubit)
		measureOuter(sim, u)
		measureOuter(sim, v)
		if k == -1 && u.Result != v.Result {
			k = i
		}
	}
	j.left.SuccessfulArm, j.right.SuccessfulArm = k, k
	if err := j.left.measureInner(sim); err != nil {
		return k, err
	}
	if err := j.right.measureInner(sim); err != nil {
		return k, err
	}
	return k, nil
}

func measureOuter(sim Simulator, root *tree.Node) {
	root.Result = tree.TriOf(sim.Measure(root.Qubit))
	root.Eigenvalue = root.Result
	root.Basis = stabilizer.X
}

// propagate feeds the Bell-state measurement outcome of each outer qubit back
// into the partner arm: an outer qubit found in -1 leaves a Z on every first
// level qubit of the other side's tree.
func (j junction) propagate() error {
	u, v := j.left.BSMArm(), j.right.BSMArm()
	if u == nil || v == nil || u.Lost || v.Lost {
		return errors.New("junction has no surviving successful arm pair")
	}
	if u.Eigenvalue == tree.True {
		tree.FlipFirstLevel(v)
	}
	if v.Eigenvalue == tree.True {
		tree.FlipFirstLevel(u)
	}
	return nil
}

// parity computes the frame correction this junction contributes.
func (j junction) parity() (Correction, error) {
	return ComputeParity(j.left.Results, j.right.Results, j.left.SuccessfulArm)
}
