package tree

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/alan-christopher/repeater/repeater/stabilizer"
)

func mustBuild(t *testing.T, branching ...int) *Node {
	root, err := Build(branching)
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}
	return root
}

func TestBuildShape(t *testing.T) {
	tcs := []struct {
		branching []int
		widths    []int
	}{
		{[]int{1}, []int{1, 1}},
		{[]int{2, 2}, []int{1, 2, 4}},
		{[]int{3, 1, 2}, []int{1, 3, 3, 6}},
	}
	for _, tc := range tcs {
		t.Run(fmt.Sprint(tc.branching), func(t *testing.T) {
			root := mustBuild(t, tc.branching...)
			var widths []int
			for _, level := range root.Levels() {
				widths = append(widths, len(level))
			}
			if !reflect.DeepEqual(widths, tc.widths) {
				t.Errorf("level widths == %v, want %v", widths, tc.widths)
			}
			if got, want := len(root.BreadthFirst()), QubitsPerArm(tc.branching); got != want {
				t.Errorf("tree has %d nodes, QubitsPerArm says %d", got, want)
			}
		})
	}
}

func TestBuildRejectsBadBranching(t *testing.T) {
	if _, err := Build(nil); !errors.Is(err, ErrEmptyBranching) {
		t.Errorf("Build(nil) error == %v, want %v", err, ErrEmptyBranching)
	}
	if _, err := Build([]int{2, 0}); err == nil {
		t.Errorf("Build([2 0]) did not fail")
	}
}

func TestAssignQubits(t *testing.T) {
	root := mustBuild(t, 2, 2)
	next := root.AssignQubits(6)
	if next != 13 {
		t.Errorf("AssignQubits(6) == %d, want 13", next)
	}
	var got []int
	for _, u := range root.BreadthFirst() {
		got = append(got, u.Qubit)
	}
	if want := []int{6, 7, 8, 9, 10, 11, 12}; !reflect.DeepEqual(got, want) {
		t.Errorf("breadth first qubits == %v, want %v", got, want)
	}
	if got := root.Children[1].Children[0].Parent.Qubit; got != 8 {
		t.Errorf("parent of q11 == q%d, want q8", got)
	}
	if got, want := root.Children[1].Children[0].Path(), "q11 <- q8 <- q6"; got != want {
		t.Errorf("Path() == %q, want %q", got, want)
	}
}

func TestReset(t *testing.T) {
	root := mustBuild(t, 2)
	root.AssignQubits(0)
	for _, u := range root.BreadthFirst() {
		u.Lost, u.HasZ = true, true
		u.Result, u.Eigenvalue, u.Basis = True, False, stabilizer.X
	}
	root.Reset()
	for _, u := range root.BreadthFirst() {
		if u.Lost || u.HasZ || u.Result.Known() || u.Eigenvalue.Known() || u.Basis != stabilizer.I {
			t.Errorf("node %s not reset: %+v", u.Path(), u)
		}
	}
	if root.Children[1].Qubit != 2 {
		t.Errorf("Reset dropped qubit handles")
	}
	lost, total := root.CountLost()
	if lost != 0 || total != 3 {
		t.Errorf("CountLost() == (%d, %d), want (0, 3)", lost, total)
	}
}

func TestTri(t *testing.T) {
	tcs := []struct {
		a, b Tri
		xor  Tri
	}{
		{True, True, False},
		{True, False, True},
		{False, False, False},
		{Unset, True, Unset},
		{False, Unset, Unset},
	}
	for _, tc := range tcs {
		if got := tc.a.Xor(tc.b); got != tc.xor {
			t.Errorf("%v xor %v == %v, want %v", tc.a, tc.b, got, tc.xor)
		}
	}
	if True.Not() != False || False.Not() != True || Unset.Not() != Unset {
		t.Errorf("Not() mishandles a value")
	}
}
