// Package bitmap provides densely-packed arrays of booleans, used for photon
// drop masks and for the rows of a stabilizer tableau.
package bitmap

import (
	"fmt"
	"math/bits"
)

// TODO: tableau rows would do fewer loads with 64-bit blocks.
const byteSize = 8

// FromString converts a string of '1's and '0's to a Dense. Spaces are
// ignored.
func FromString(s string) (Dense, error) {
	d := Dense{}
	for _, c := range s {
		switch c {
		case '1':
			d.AppendBit(true)
		case '0':
			d.AppendBit(false)
		case ' ':
			continue
		default:
			return Dense{}, fmt.Errorf("invalid bitmap string rep: %s", s)
		}
	}
	return d, nil
}

// Dot computes the inner product (x^T * y) of x and y, treating them as
// vectors mod 2. Bits past the end of the shorter operand count as zeros.
func Dot(x, y Dense) bool {
	var sum byte
	n := min(len(x.bits), len(y.bits))
	for i := 0; i < n; i++ {
		sum ^= x.bits[i] & y.bits[i]
	}
	return bits.OnesCount8(sum)%2 == 1
}

// CountOnes returns the total number of bits set in d.
func CountOnes(d Dense) int {
	var sum int
	for _, b := range d.bits {
		sum += bits.OnesCount8(b)
	}
	return sum
}

// Equal returns true iff a and b have the same length and contain the same
// bits.
func Equal(a, b Dense) bool {
	return a.len == b.len && CountOnes(XOr(a, b)) == 0
}

// BytesFor returns the number of bytes necessary to hold the provided number of
// bits.
func BytesFor(bits int) int {
	return (bits + byteSize - 1) / byteSize
}
