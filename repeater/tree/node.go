// Package tree models the physical qubits of one tree-code encoded arm: the
// root is the outer qubit, every descendant an inner qubit of the tree code.
package tree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

// ErrEmptyBranching is returned when a tree is requested with no levels.
var ErrEmptyBranching = errors.New("branching vector cannot be empty")

// A Node is one physical qubit position in a tree.
type Node struct {
	// Qubit is the simulator handle of this qubit.
	Qubit int
	// Result is the raw measurement outcome.
	Result Tri
	// Eigenvalue is Result after side effect corrections.
	Eigenvalue Tri
	// Basis is the basis Result was measured in, I if unmeasured.
	Basis stabilizer.Pauli
	// Lost is set when the photon never arrived. It is permanent for a trial.
	Lost bool
	// HasZ is set when generating the state left a Z side effect on this qubit.
	HasZ bool

	Children []*Node
	// Parent is only used to describe a node in diagnostics.
	Parent *Node
}

// Build returns a fresh tree whose level k nodes each have branching[k]
// children.
func Build(branching []int) (*Node, error) {
	if len(branching) == 0 {
		return nil, ErrEmptyBranching
	}
	root := &Node{Qubit: -1}
	level := []*Node{root}
	for depth, b := range branching {
		if b < 1 {
			return nil, fmt.Errorf("branching factor at level %d must be positive, got %d", depth+1, b)
		}
		var next []*Node
		for _, u := range level {
			for i := 0; i < b; i++ {
				v := &Node{Qubit: -1, Parent: u}
				u.Children = append(u.Children, v)
				next = append(next, v)
			}
		}
		level = next
	}
	return root, nil
}

// QubitsPerArm returns the number of nodes in a tree with the given branching,
// root included.
func QubitsPerArm(branching []int) int {
	total, width := 1, 1
	for _, b := range branching {
		width *= b
		total += width
	}
	return total
}

// Reset clears every per-trial flag of the subtree rooted at n, keeping its
// shape and qubit handles.
func (n *Node) Reset() {
	n.Result = Unset
	n.Eigenvalue = Unset
	n.Basis = stabilizer.I
	n.Lost = false
	n.HasZ = false
	for _, u := range n.Children {
		u.Reset()
	}
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Levels returns the nodes of the subtree rooted at n grouped by depth; level
// 0 holds n itself.
func (n *Node) Levels() [][]*Node {
	var r [][]*Node
	for level := []*Node{n}; len(level) > 0; {
		r = append(r, level)
		var next []*Node
		for _, u := range level {
			next = append(next, u.Children...)
		}
		level = next
	}
	return r
}

// BreadthFirst returns every node of the subtree rooted at n, level by level.
func (n *Node) BreadthFirst() []*Node {
	var r []*Node
	for _, level := range n.Levels() {
		r = append(r, level...)
	}
	return r
}

// AssignQubits hands out consecutive qubit handles to the subtree rooted at n
// in breadth-first order, starting at next. It returns the next unused handle.
func (n *Node) AssignQubits(next int) int {
	for _, u := range n.BreadthFirst() {
		u.Qubit = next
		next++
	}
	return next
}

// CountLost returns the number of lost nodes and the total number of nodes in
// the subtree rooted at n.
func (n *Node) CountLost() (lost, total int) {
	for _, u := range n.BreadthFirst() {
		total++
		if u.Lost {
			lost++
		}
	}
	return lost, total
}

// Path describes n by the qubit handles from n up to its root.
func (n *Node) Path() string {
	var parts []string
	for u := n; u != nil; u = u.Parent {
		parts = append(parts, fmt.Sprintf("q%d", u.Qubit))
	}
	return strings.Join(parts, " <- ")
}
