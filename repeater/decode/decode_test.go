package decode

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/alan-christopher/repeater/repeater/tree"
)

func mustBuild(t *testing.T, branching ...int) *tree.Node {
	root, err := tree.Build(branching)
	if err != nil {
		t.Fatalf("bugged test setup: %v", err)
	}
	root.AssignQubits(0)
	return root
}

// setEigen assigns eigenvalues to the nodes of root in breadth-first order.
func setEigen(root *tree.Node, vals ...bool) {
	for i, u := range root.BreadthFirst() {
		if i < len(vals) {
			u.Eigenvalue = tree.TriOf(vals[i])
		}
	}
}

// A failingTieBreak fails the test if a tie is ever reached.
type failingTieBreak struct{ t *testing.T }

func (f failingTieBreak) Break([]Candidate, *rand.Rand) bool {
	f.t.Fatalf("unexpected tie break")
	return false
}

const T, F = true, false

func TestZResultDirect(t *testing.T) {
	root := mustBuild(t, 2, 1)
	setEigen(root, T, F, F, T, T)
	d := Decoder{TieBreak: failingTieBreak{t}}
	u := root.Children[0]
	if got := d.ZResult(u); got != tree.False {
		t.Errorf("ZResult(surviving node) == %v, want its own eigenvalue false", got)
	}
	u.Eigenvalue = tree.True
	if got := d.ZResult(u); got != tree.True {
		t.Errorf("ZResult(surviving node) == %v, want its own eigenvalue true", got)
	}
}

func TestZResultIndirect(t *testing.T) {
	// The lost node is the root; its children are X measured and their
	// single children Z measured. Candidates: u0^w0, u1^w1, u2^w2.
	tcs := []struct {
		name     string
		vals     []bool
		lost     []int
		strategy Strategy
		want     tree.Tri
	}{
		{"unanimous", []bool{F, T, T, T, F, F, F}, nil, MajorityVote, tree.True},
		{"majority over first", []bool{F, F, T, T, F, F, F}, nil, MajorityVote, tree.True},
		{"first over majority", []bool{F, F, T, T, F, F, F}, nil, FirstSuccessfulBranch, tree.False},
		{"skips lost child", []bool{F, F, T, T, F, F, F}, []int{1}, FirstSuccessfulBranch, tree.True},
		{"skips unrecoverable grandchild", []bool{F, F, T, T, F, F, F}, []int{4}, FirstSuccessfulBranch, tree.True},
		{"nothing recoverable", []bool{F, F, T, T, F, F, F}, []int{1, 5, 6}, MajorityVote, tree.Unset},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			root := mustBuild(t, 3, 1)
			setEigen(root, tc.vals...)
			root.Lost = true
			nodes := root.BreadthFirst()
			for _, i := range tc.lost {
				nodes[i].Lost = true
			}
			d := Decoder{Strategy: tc.strategy, TieBreak: failingTieBreak{t}}
			if got := d.ZResult(root); got != tc.want {
				t.Errorf("ZResult() == %v, want %v", got, tc.want)
			}
		})
	}
}

func TestZResultTieIsSeeded(t *testing.T) {
	root := mustBuild(t, 2, 1)
	// Candidates u0^w0 = true and u1^w1 = false.
	setEigen(root, F, T, F, F, F)
	root.Lost = true
	for seed := int64(0); seed < 16; seed++ {
		a := Decoder{Rand: rand.New(rand.NewSource(seed))}.ZResult(root)
		b := Decoder{Rand: rand.New(rand.NewSource(seed))}.ZResult(root)
		if !a.Known() || a != b {
			t.Fatalf("seed %d decoded a tie to %v then %v", seed, a, b)
		}
	}
}

func TestConfidenceTieBreak(t *testing.T) {
	// Branching [2,1,1]: candidate 0 rests on direct results only, candidate
	// 1 needs its lost Z qubit recovered through the leaf below it.
	root := mustBuild(t, 2, 1, 1)
	//        r  u0 u1 w0 w1 x0 x1
	setEigen(root, F, F, F, F, F, F, T)
	root.Lost = true
	root.Children[1].Children[0].Lost = true
	for seed := int64(0); seed < 16; seed++ {
		d := Decoder{TieBreak: ConfidenceTieBreak{}, Rand: rand.New(rand.NewSource(seed))}
		if got := d.ZResult(root); got != tree.False {
			t.Fatalf("seed %d: ZResult() == %v, want the directly measured false", seed, got)
		}
	}
}

func TestLogicalZ(t *testing.T) {
	root := mustBuild(t, 3)
	setEigen(root, F, T, T, F)
	d := Decoder{TieBreak: failingTieBreak{t}}
	z, err := d.LogicalZ(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z != tree.False {
		t.Errorf("LogicalZ() == %v, want false", z)
	}
	root.Children[2].Lost = true
	if z, _ := d.LogicalZ(root); z != tree.Unset {
		t.Errorf("LogicalZ() with an unrecoverable leaf == %v, want unset", z)
	}
	if _, err := d.LogicalZ(root.Children[0]); !errors.Is(err, ErrNoChildren) {
		t.Errorf("LogicalZ(leaf) error == %v, want %v", err, ErrNoChildren)
	}
}

func TestLogicalX(t *testing.T) {
	tcs := []struct {
		name      string
		branching []int
		vals      []bool
		lost      []int
		strategy  Strategy
		want      tree.Tri
	}{
		{"first lost", []int{2, 2}, []bool{F, T, T, F, T, F, T}, []int{1}, MajorityVote, tree.False},
		{"all lost", []int{2, 2}, []bool{F, T, T, F, T, F, T}, []int{1, 2}, MajorityVote, tree.Unset},
		{"second unrecoverable", []int{2, 2}, []bool{F, T, T, F, T, F, T}, []int{1, 5}, MajorityVote, tree.Unset},
		// Candidates u0^w0 = true, u1^w1 = false, u2^w2 = false.
		{"majority over first", []int{3, 1}, []bool{F, T, F, F, F, F, F}, nil, MajorityVote, tree.False},
		{"first over majority", []int{3, 1}, []bool{F, T, F, F, F, F, F}, nil, FirstSuccessfulBranch, tree.True},
		{"majority skips lost", []int{3, 1}, []bool{F, T, F, F, F, F, F}, []int{1}, MajorityVote, tree.False},
		{"first skips lost", []int{3, 1}, []bool{F, T, F, F, F, F, F}, []int{1}, FirstSuccessfulBranch, tree.False},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			root := mustBuild(t, tc.branching...)
			setEigen(root, tc.vals...)
			nodes := root.BreadthFirst()
			for _, i := range tc.lost {
				nodes[i].Lost = true
			}
			d := Decoder{Strategy: tc.strategy, TieBreak: failingTieBreak{t}}
			if got := d.LogicalX(root); got != tc.want {
				t.Errorf("LogicalX() == %v, want %v", got, tc.want)
			}
		})
	}
}

// tiedX returns a [2,1] tree whose logical X candidates are u0^w0 = true and
// u1^w1 = false.
func tiedX(t *testing.T) *tree.Node {
	root := mustBuild(t, 2, 1)
	setEigen(root, F, T, F, F, F)
	return root
}

func TestLogicalXTieIsSeeded(t *testing.T) {
	root := tiedX(t)
	seen := map[tree.Tri]int{}
	for seed := int64(0); seed < 32; seed++ {
		a := Decoder{Rand: rand.New(rand.NewSource(seed))}.LogicalX(root)
		b := Decoder{Rand: rand.New(rand.NewSource(seed))}.LogicalX(root)
		if !a.Known() || a != b {
			t.Fatalf("seed %d decoded a tie to %v then %v", seed, a, b)
		}
		seen[a]++
	}
	if seen[tree.True] == 0 || seen[tree.False] == 0 {
		t.Errorf("tie outcomes over 32 seeds == %v, want both values", seen)
	}
}

func TestConfidenceTieBreakFallsBackToCoin(t *testing.T) {
	// Both candidates rest on direct results only.
	root := tiedX(t)
	for seed := int64(0); seed < 16; seed++ {
		conf := Decoder{TieBreak: ConfidenceTieBreak{}, Rand: rand.New(rand.NewSource(seed))}.LogicalX(root)
		flip := Decoder{TieBreak: RandomTieBreak{}, Rand: rand.New(rand.NewSource(seed))}.LogicalX(root)
		if conf != flip {
			t.Fatalf("seed %d: ConfidenceTieBreak decoded %v, coin flip %v", seed, conf, flip)
		}
	}
}

func TestRandomTieWithoutRandPanics(t *testing.T) {
	root := tiedX(t)
	defer func() {
		if recover() == nil {
			t.Errorf("LogicalX() of a tie without a generator did not panic")
		}
	}()
	Decoder{}.LogicalX(root)
}

// consistent assigns eigenvalues below n as a noiseless measurement of a tree
// code would: n is a Z-measured node with result z, every child u is X
// measured, and u times the Z results of its children equals z.
func consistent(n *tree.Node, z bool, r *rand.Rand) {
	n.Eigenvalue = tree.TriOf(z)
	for _, u := range n.Children {
		x := z
		for _, w := range u.Children {
			zw := r.Intn(2) == 1
			consistent(w, zw, r)
			x = x != zw
		}
		u.Eigenvalue = tree.TriOf(x)
	}
}

func TestNoiselessDecodingNeverTies(t *testing.T) {
	shapes := [][]int{{1}, {2, 2}, {3, 2}, {2, 2, 2}, {4, 3, 2}}
	for _, shape := range shapes {
		t.Run(fmt.Sprint(shape), func(t *testing.T) {
			r := rand.New(rand.NewSource(int64(len(shape))))
			for trial := 0; trial < 50; trial++ {
				for _, strategy := range []Strategy{MajorityVote, FirstSuccessfulBranch} {
					d := Decoder{Strategy: strategy, TieBreak: failingTieBreak{t}}

					zRoot := mustBuild(t, shape...)
					want := false
					for _, u := range zRoot.Children {
						zu := r.Intn(2) == 1
						consistent(u, zu, r)
						want = want != zu
					}
					xRoot := mustBuild(t, shape...)
					wantX := r.Intn(2) == 1
					consistent(xRoot, wantX, r)

					// Lose some of the inner qubits; whatever decodes must
					// still decode to the truth.
					for _, root := range []*tree.Node{zRoot, xRoot} {
						for _, u := range root.BreadthFirst()[1:] {
							u.Lost = r.Float64() < 0.3
						}
					}
					if z, err := d.LogicalZ(zRoot); err != nil {
						t.Fatalf("unexpected error: %v", err)
					} else if z.Known() && z.Bool() != want {
						t.Fatalf("%v: LogicalZ() == %v, want %v", strategy, z, want)
					}
					if x := d.LogicalX(xRoot); x.Known() && x.Bool() != wantX {
						t.Fatalf("%v: LogicalX() == %v, want %v", strategy, x, wantX)
					}
				}
			}
		})
	}
}

func TestNoLossAlwaysDecodes(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	root := mustBuild(t, 3, 2, 2)
	consistent(root, true, r)
	d := Decoder{TieBreak: failingTieBreak{t}}
	if x := d.LogicalX(root); x != tree.True {
		t.Errorf("LogicalX() == %v, want true", x)
	}
	if z, _ := d.LogicalZ(root); !z.Known() {
		t.Errorf("LogicalZ() is unset without loss")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []Strategy{MajorityVote, FirstSuccessfulBranch} {
		got, err := ParseStrategy(s.String())
		if err != nil || got != s {
			t.Errorf("ParseStrategy(%q) == (%v, %v), want %v", s.String(), got, err, s)
		}
	}
	if _, err := ParseStrategy("plurality"); err == nil {
		t.Errorf("ParseStrategy(plurality) did not fail")
	}
	if _, err := ParseTieBreaker("coin"); err == nil {
		t.Errorf("ParseTieBreaker(coin) did not fail")
	}
}
