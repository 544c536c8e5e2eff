package repeater

import (
	"fmt"

	"github.com/alan-christopher/repeater/repeater/tree"
)

// ComputeParity returns the frame correction of one junction from the logical
// results of the arms on either side of it, where k is the arm that swapped
// entanglement. Each side accumulates the Z results of its own remaining arms,
// plus the X result of the other side's arm k.
//
// Swapping left and right swaps the two parities of the returned Correction.
func ComputeParity(left, right []tree.Tri, k int) (Correction, error) {
	if len(left) != len(right) {
		return Correction{}, fmt.Errorf("%w: cannot pair %d results with %d", ErrConfiguration, len(left), len(right))
	}
	if k < 0 || k >= len(left) {
		return Correction{}, fmt.Errorf("successful arm %d out of range [0, %d)", k, len(left))
	}
	l, r := tree.False, tree.False
	for i := range left {
		if i == k {
			continue
		}
		l = l.Xor(left[i])
		r = r.Xor(right[i])
	}
	l = l.Xor(right[k])
	r = r.Xor(left[k])
	if !l.Known() || !r.Known() {
		return Correction{}, fmt.Errorf("parity depends on an undetermined result")
	}
	return Correction{Left: l.Bool(), Right: r.Bool()}, nil
}
