package bitmap

import "strings"

// A Dense is a bitmap where every bit is explicitly represented. Bits past
// Size() read as zero.
type Dense struct {
	bits []byte
	len  int
}

// NewDense returns a new dense bitmap whose contents are a view of data, and
// whose length is bitLen. If bitLen is longer than data, then trailing zeros
// are added. If bitLen is negative, then it is inferred from data.
func NewDense(data []byte, bitLen int) Dense {
	if bitLen < 0 {
		bitLen = len(data) * byteSize
	}
	r := Dense{
		bits: data,
		len:  bitLen,
	}
	for len(r.bits) < r.SizeBytes() {
		r.bits = append(r.bits, 0)
	}
	return r
}

// Get returns the i-th bit in this bitmap.
func (d Dense) Get(i int) bool {
	if i >= d.len {
		return false
	}
	return 0 < d.bits[i/byteSize]&(1<<(i%byteSize))
}

// Set assigns the i-th bit. Indexes past Size() are ignored.
func (d Dense) Set(i int, v bool) {
	if i >= d.len {
		return
	}
	j, pos := i/byteSize, i%byteSize
	if v {
		d.bits[j] |= 1 << pos
	} else {
		d.bits[j] &^= 1 << pos
	}
}

// Size returns the number of bits in this bitmap.
func (d Dense) Size() int {
	return d.len
}

// SizeBytes returns the number of bytes in this bitmap.
func (d Dense) SizeBytes() int {
	return BytesFor(d.len)
}

// Data returns a view of the bytes underlying this bitmap. Modifying the
// returned slice modifies this bitmap.
func (d Dense) Data() []byte {
	return d.bits
}

// Clone returns a deep copy of d.
func (d Dense) Clone() Dense {
	bits := make([]byte, len(d.bits))
	copy(bits, d.bits)
	return Dense{bits: bits, len: d.len}
}

// Clear zeroes every bit of d in place.
func (d Dense) Clear() {
	for i := range d.bits {
		d.bits[i] = 0
	}
}

// CopyFrom overwrites d with the bits of src. Both must have the same size.
func (d Dense) CopyFrom(src Dense) {
	copy(d.bits, src.bits)
}

// XOrWith sets d to d XOR other in place. Bits of other past the end of d are
// dropped.
func (d Dense) XOrWith(other Dense) {
	n := min(len(d.bits), len(other.bits))
	for i := 0; i < n; i++ {
		d.bits[i] ^= other.bits[i]
	}
}

// Ones returns the indexes of the set bits of d, in increasing order.
func (d Dense) Ones() []int {
	var r []int
	for j, b := range d.bits {
		for pos := 0; b != 0; pos++ {
			if b&1 == 1 {
				if i := j*byteSize + pos; i < d.len {
					r = append(r, i)
				}
			}
			b >>= 1
		}
	}
	return r
}

// AppendBit adds a single bit to the end of d.
func (d *Dense) AppendBit(bit bool) {
	i, pos := d.len/byteSize, d.len%byteSize
	d.len += 1
	if pos == 0 {
		d.bits = append(d.bits, 0)
	}
	if bit {
		d.bits[i] |= 1 << pos
	} else {
		d.bits[i] &= ^(1 << pos)
	}
}

// String renders d as '0's and '1's, lowest index first.
func (d Dense) String() string {
	var sb strings.Builder
	for i := 0; i < d.len; i++ {
		if d.Get(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}
