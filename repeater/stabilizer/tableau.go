package stabilizer

import (
	"fmt"
	"math/rand"

	"github.com/alan-christopher/repeater/repeater/bitmap"
)

// A row is one generator of the tableau: a Pauli string whose j-th factor is
// I, X, Y or Z according to (x_j, z_j) in {00, 10, 11, 01}, with sign -1 iff
// neg is set.
type row struct {
	x, z bitmap.Dense
	neg  bool
}

func newRow(n int) row {
	return row{x: bitmap.NewDense(nil, n), z: bitmap.NewDense(nil, n)}
}

func (r row) clone() row {
	return row{x: r.x.Clone(), z: r.z.Clone(), neg: r.neg}
}

func (r *row) clear() {
	r.x.Clear()
	r.z.Clear()
	r.neg = false
}

func (r *row) copyFrom(o row) {
	r.x.CopyFrom(o.x)
	r.z.CopyFrom(o.z)
	r.neg = o.neg
}

// anticommutes reports whether r and o anticommute.
func (r row) anticommutes(o row) bool {
	return bitmap.Dot(r.x, o.z) != bitmap.Dot(r.z, o.x)
}

// mul sets r to o*r, tracking the sign. The two rows must commute.
func (r *row) mul(o row) {
	// Powers of i picked up by each factor, summed mod 4.
	sum := 0
	if r.neg {
		sum += 2
	}
	if o.neg {
		sum += 2
	}
	ox, oz := o.x.Data(), o.z.Data()
	for b := range ox {
		if ox[b]|oz[b] == 0 {
			continue
		}
		for j := b * 8; j < (b+1)*8 && j < o.x.Size(); j++ {
			sum += phase(o.x.Get(j), o.z.Get(j), r.x.Get(j), r.z.Get(j))
		}
	}
	r.neg = ((sum%4)+4)%4 == 2
	r.x.XOrWith(o.x)
	r.z.XOrWith(o.z)
}

// phase returns the exponent of i picked up when multiplying the Pauli
// (x1, z1) into (x2, z2).
func phase(x1, z1, x2, z2 bool) int {
	switch {
	case !x1 && !z1:
		return 0
	case x1 && z1:
		return b2i(z2) - b2i(x2)
	case x1:
		return b2i(z2) * (2*b2i(x2) - 1)
	default:
		return b2i(x2) * (1 - 2*b2i(z2))
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

// A Tableau is a stabilizer state over a fixed number of qubits. Rows [0, n)
// hold destabilizers and rows [n, 2n) stabilizers. A Tableau is not safe for
// concurrent use.
type Tableau struct {
	n       int
	rows    []row
	scratch row
	rand    *rand.Rand
}

// NewTableau returns a Tableau of n qubits in the all-zeros state. Random
// measurement outcomes are drawn from r.
func NewTableau(n int, r *rand.Rand) *Tableau {
	t := &Tableau{
		n:       n,
		rows:    make([]row, 2*n),
		scratch: newRow(n),
		rand:    r,
	}
	for i := 0; i < n; i++ {
		t.rows[i] = newRow(n)
		t.rows[i].x.Set(i, true)
		t.rows[i+n] = newRow(n)
		t.rows[i+n].z.Set(i, true)
	}
	return t
}

// Qubits returns the number of qubits held by t.
func (t *Tableau) Qubits() int {
	return t.n
}

// H applies a Hadamard to each of qs.
func (t *Tableau) H(qs ...int) {
	for _, a := range qs {
		for i := range t.rows {
			r := &t.rows[i]
			xa, za := r.x.Get(a), r.z.Get(a)
			if xa && za {
				r.neg = !r.neg
			}
			r.x.Set(a, za)
			r.z.Set(a, xa)
		}
	}
}

// CX applies a controlled-X with control a and target b.
func (t *Tableau) CX(a, b int) {
	for i := range t.rows {
		r := &t.rows[i]
		xa, za, xb, zb := r.x.Get(a), r.z.Get(a), r.x.Get(b), r.z.Get(b)
		if xa && zb && (xb == za) {
			r.neg = !r.neg
		}
		r.x.Set(b, xb != xa)
		r.z.Set(a, za != zb)
	}
}

// CZ applies a controlled-Z between a and b.
func (t *Tableau) CZ(a, b int) {
	t.H(b)
	t.CX(a, b)
	t.H(b)
}

// X applies a Pauli X to q.
func (t *Tableau) X(q int) {
	for i := range t.rows {
		if t.rows[i].z.Get(q) {
			t.rows[i].neg = !t.rows[i].neg
		}
	}
}

// Y applies a Pauli Y to q.
func (t *Tableau) Y(q int) {
	for i := range t.rows {
		if t.rows[i].x.Get(q) != t.rows[i].z.Get(q) {
			t.rows[i].neg = !t.rows[i].neg
		}
	}
}

// Z applies a Pauli Z to q.
func (t *Tableau) Z(q int) {
	for i := range t.rows {
		if t.rows[i].x.Get(q) {
			t.rows[i].neg = !t.rows[i].neg
		}
	}
}

// Measure measures q in the Z basis, collapsing the state, and returns true
// for the -1 eigenvalue.
func (t *Tableau) Measure(q int) bool {
	n := t.n
	p := -1
	for i := n; i < 2*n; i++ {
		if t.rows[i].x.Get(q) {
			p = i
			break
		}
	}
	if p < 0 {
		// Deterministic: Z_q is already in the stabilizer group.
		t.scratch.clear()
		for i := 0; i < n; i++ {
			if t.rows[i].x.Get(q) {
				t.scratch.mul(t.rows[i+n])
			}
		}
		return t.scratch.neg
	}
	for i := 0; i < 2*n; i++ {
		if i != p && t.rows[i].x.Get(q) {
			t.rows[i].mul(t.rows[p])
		}
	}
	t.rows[p-n].copyFrom(t.rows[p])
	outcome := t.rand.Intn(2) == 1
	t.rows[p].clear()
	t.rows[p].z.Set(q, true)
	t.rows[p].neg = outcome
	return outcome
}

// Reset returns each of qs to |0>.
func (t *Tableau) Reset(qs ...int) {
	for _, q := range qs {
		if t.Measure(q) {
			t.X(q)
		}
	}
}

// Peek returns the expectation value of the observable p without disturbing
// the state: +1 or -1 if p (up to sign) is a stabilizer of the state, 0
// otherwise.
func (t *Tableau) Peek(p PauliString) int {
	obs := t.toRow(p)
	for i := t.n; i < 2*t.n; i++ {
		if t.rows[i].anticommutes(obs) {
			return 0
		}
	}
	t.scratch.clear()
	for i := 0; i < t.n; i++ {
		if t.rows[i].anticommutes(obs) {
			t.scratch.mul(t.rows[i+t.n])
		}
	}
	if t.scratch.neg != obs.neg {
		return -1
	}
	return 1
}

// CanonicalStabilizers returns a generating set of the stabilizer group in
// reduced row echelon form over the ordering (X_0, Z_0, X_1, Z_1, ...). Two
// tableaus describe the same state iff their canonical stabilizers agree.
func (t *Tableau) CanonicalStabilizers() []PauliString {
	gens := make([]row, t.n)
	for i := range gens {
		gens[i] = t.rows[i+t.n].clone()
	}
	pivot := 0
	for q := 0; q < t.n; q++ {
		for _, hasOp := range []func(row) bool{
			func(r row) bool { return r.x.Get(q) },
			func(r row) bool { return r.z.Get(q) },
		} {
			k := -1
			for i := pivot; i < len(gens); i++ {
				if hasOp(gens[i]) {
					k = i
					break
				}
			}
			if k < 0 {
				continue
			}
			gens[pivot], gens[k] = gens[k], gens[pivot]
			for i := range gens {
				if i != pivot && hasOp(gens[i]) {
					gens[i].mul(gens[pivot])
				}
			}
			pivot++
		}
	}
	r := make([]PauliString, 0, len(gens))
	for _, g := range gens {
		r = append(r, t.fromRow(g))
	}
	return r
}

func (t *Tableau) toRow(p PauliString) row {
	if len(p.Ops) > t.n {
		for _, op := range p.Ops[t.n:] {
			if op != I {
				panic(fmt.Sprintf("stabilizer: %v acts outside a %d-qubit tableau", p, t.n))
			}
		}
	}
	r := newRow(t.n)
	r.neg = p.Negative
	for q, op := range p.Ops {
		if q >= t.n {
			break
		}
		r.x.Set(q, op == X || op == Y)
		r.z.Set(q, op == Z || op == Y)
	}
	return r
}

func (t *Tableau) fromRow(r row) PauliString {
	p := PauliString{Negative: r.neg, Ops: make([]Pauli, t.n)}
	for q := 0; q < t.n; q++ {
		switch x, z := r.x.Get(q), r.z.Get(q); {
		case x && z:
			p.Ops[q] = Y
		case x:
			p.Ops[q] = X
		case z:
			p.Ops[q] = Z
		}
	}
	return p
}
