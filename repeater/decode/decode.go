// Package decode recovers the logical Z and X measurement results of a
// tree-code encoded qubit from the physical results of its surviving qubits.
//
// A lost qubit's Z result is recovered indirectly through any surviving child
// u: u was measured in X, and X_u times the Z results of u's own children
// reproduces Z of the lost qubit. Recovery recurses when those grandchildren
// are lost in turn.
package decode

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/tree"
)

// ErrNoChildren is returned when decoding a tree that has no first level.
var ErrNoChildren = errors.New("cannot decode a tree without children")

// A Strategy picks a result out of the candidates recovered through the
// surviving children of a node.
type Strategy int

const (
	// MajorityVote tallies every candidate and returns the strict majority,
	// deferring exact ties to a TieBreaker.
	MajorityVote Strategy = iota
	// FirstSuccessfulBranch returns the candidate of the first child that
	// yields one.
	FirstSuccessfulBranch
)

func (s Strategy) String() string {
	switch s {
	case MajorityVote:
		return "majority"
	case FirstSuccessfulBranch:
		return "first"
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy is the inverse of Strategy.String.
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "majority", "":
		return MajorityVote, nil
	case "first":
		return FirstSuccessfulBranch, nil
	}
	return 0, fmt.Errorf("unknown decoding strategy %q", s)
}

// A Candidate is one recovered value.
type Candidate struct {
	Value bool
	// Indirect counts the lost qubits that had to be recovered to obtain
	// Value; 0 means it rests on direct measurements only.
	Indirect int
}

// A Decoder decodes trees. The zero value uses MajorityVote with
// RandomTieBreak. Rand must be set for a tie to be broken at random; decoding
// panics on such a tie otherwise.
type Decoder struct {
	Strategy Strategy
	TieBreak TieBreaker
	Rand     *rand.Rand
}

// ZResult returns the Z result of n: its own eigenvalue if it survived,
// otherwise the resolution of every candidate recovered through its surviving
// children, or Unset when there are none.
func (d Decoder) ZResult(n *tree.Node) tree.Tri {
	z, _ := d.zResult(n)
	return z
}

func (d Decoder) zResult(n *tree.Node) (tree.Tri, int) {
	if !n.Lost {
		return n.Eigenvalue, 0
	}
	var cands []Candidate
	for _, u := range n.Children {
		if u.Lost {
			continue
		}
		c, ok := d.branch(u)
		if !ok {
			continue
		}
		cands = append(cands, c)
		if d.Strategy == FirstSuccessfulBranch {
			break
		}
	}
	z, indirect := d.resolve(cands)
	if !z.Known() {
		return tree.Unset, 0
	}
	return z, indirect + 1
}

// branch computes X_u times the Z results of u's children. It fails if any of
// those is undetermined.
func (d Decoder) branch(u *tree.Node) (Candidate, bool) {
	v := u.Eigenvalue
	indirect := 0
	for _, w := range u.Children {
		z, k := d.zResult(w)
		if !z.Known() {
			return Candidate{}, false
		}
		v = v.Xor(z)
		indirect += k
	}
	if !v.Known() {
		return Candidate{}, false
	}
	return Candidate{Value: v.Bool(), Indirect: indirect}, true
}

// resolve picks the result of cands according to d's strategy, together with
// the fewest indirect recoveries among the candidates that agree with it.
func (d Decoder) resolve(cands []Candidate) (tree.Tri, int) {
	if len(cands) == 0 {
		return tree.Unset, 0
	}
	if d.Strategy == FirstSuccessfulBranch {
		return tree.TriOf(cands[0].Value), cands[0].Indirect
	}
	ones := 0
	for _, c := range cands {
		if c.Value {
			ones++
		}
	}
	var v bool
	switch zeros := len(cands) - ones; {
	case ones > zeros:
		v = true
	case zeros > ones:
		v = false
	default:
		tb := d.TieBreak
		if tb == nil {
			tb = RandomTieBreak{}
		}
		v = tb.Break(cands, d.Rand)
	}
	indirect := math.MaxInt
	for _, c := range cands {
		if c.Value == v {
			indirect = min(indirect, c.Indirect)
		}
	}
	if indirect == math.MaxInt {
		indirect = 0
	}
	return tree.TriOf(v), indirect
}

// LogicalZ decodes the logical Z measurement of the tree rooted at root: the
// parity of the Z results of its first level. The result is Unset if any of
// them is.
func (d Decoder) LogicalZ(root *tree.Node) (tree.Tri, error) {
	if root.IsLeaf() {
		return tree.Unset, fmt.Errorf("%w: %s", ErrNoChildren, root.Path())
	}
	parity := tree.False
	for _, u := range root.Children {
		// Every child is evaluated so that tie breaks draw from the
		// generator in a fixed order.
		parity = parity.Xor(d.ZResult(u))
	}
	return parity, nil
}

// LogicalX decodes the logical X measurement of the tree rooted at root. Each
// surviving first level node u that was measured in X offers X_u times the Z
// results of u's children as a candidate, and the candidates are resolved as
// in ZResult. The result is Unset when no candidate exists.
func (d Decoder) LogicalX(root *tree.Node) tree.Tri {
	var cands []Candidate
	for _, u := range root.Children {
		if u.Lost {
			continue
		}
		c, ok := d.branch(u)
		if !ok {
			continue
		}
		cands = append(cands, c)
		if d.Strategy == FirstSuccessfulBranch {
			break
		}
	}
	x, _ := d.resolve(cands)
	return x
}
