// Package stabilizer simulates Clifford circuits on a stabilizer tableau, in
// the manner of Aaronson and Gottesman (https://arxiv.org/abs/quant-ph/0406196).
package stabilizer

import (
	"fmt"
	"strings"
)

// A Pauli is a single-qubit Pauli operator.
type Pauli uint8

const (
	I Pauli = iota
	X
	Y
	Z
)

func (p Pauli) String() string {
	switch p {
	case I:
		return "I"
	case X:
		return "X"
	case Y:
		return "Y"
	case Z:
		return "Z"
	}
	return fmt.Sprintf("Pauli(%d)", uint8(p))
}

// A PauliString is a signed tensor product of single-qubit Paulis. Qubit q is
// acted on by Ops[q]; qubits past the end of Ops are acted on by I.
type PauliString struct {
	Negative bool
	Ops      []Pauli
}

// ParsePauliString parses strings of the form "+XZ_Y", with an optional
// leading sign and either '_' or 'I' for the identity.
func ParsePauliString(s string) (PauliString, error) {
	var p PauliString
	switch {
	case strings.HasPrefix(s, "-"):
		p.Negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}
	for _, c := range s {
		switch c {
		case '_', 'I':
			p.Ops = append(p.Ops, I)
		case 'X':
			p.Ops = append(p.Ops, X)
		case 'Y':
			p.Ops = append(p.Ops, Y)
		case 'Z':
			p.Ops = append(p.Ops, Z)
		default:
			return PauliString{}, fmt.Errorf("invalid pauli string %q: unexpected %q", s, c)
		}
	}
	return p, nil
}

// MustParsePauliString is like ParsePauliString but panics on malformed
// input. It is meant for string literals.
func MustParsePauliString(s string) PauliString {
	p, err := ParsePauliString(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Vertex builds the graph-state stabilizer X_vertex * prod Z_neighbour.
func Vertex(vertex int, neighbours []int) PauliString {
	n := vertex + 1
	for _, v := range neighbours {
		n = max(n, v+1)
	}
	p := PauliString{Ops: make([]Pauli, n)}
	p.Ops[vertex] = X
	for _, v := range neighbours {
		p.Ops[v] = Z
	}
	return p
}

// String renders p with an explicit sign and '_' for the identity.
func (p PauliString) String() string {
	var sb strings.Builder
	if p.Negative {
		sb.WriteByte('-')
	} else {
		sb.WriteByte('+')
	}
	for _, op := range p.Ops {
		if op == I {
			sb.WriteByte('_')
			continue
		}
		sb.WriteString(op.String())
	}
	return sb.String()
}
