package ring

import "encoding/binary"

// Poly is a polynomial represented in RNS form: one []uint64 coefficient
// slice per modulus of the Context it was created in, each of length N.
type Poly struct {
	Coeffs [][]uint64
}

// NewPoly allocates a new polynomial with N coefficients over level+1 moduli,
// all coefficients set to zero.
func NewPoly(N, level int) (pol *Poly) {
	pol = new(Poly)
	pol.Coeffs = make([][]uint64, level+1)
	for i := range pol.Coeffs {
		pol.Coeffs[i] = make([]uint64, N)
	}
	return
}

// N returns the ring degree of the polynomial.
func (pol *Poly) N() int {
	if len(pol.Coeffs) == 0 {
		return 0
	}
	return len(pol.Coeffs[0])
}

// Level returns the number of moduli the polynomial is represented over,
// minus one.
func (pol *Poly) Level() int {
	return len(pol.Coeffs) - 1
}

// Zero sets all coefficients of pol to zero.
func (pol *Poly) Zero() {
	for i := range pol.Coeffs {
		p := pol.Coeffs[i]
		for j := range p {
			p[j] = 0
		}
	}
}

// CopyNew returns a deep copy of pol.
func (pol *Poly) CopyNew() (p1 *Poly) {
	p1 = new(Poly)
	p1.Coeffs = make([][]uint64, len(pol.Coeffs))
	for i := range pol.Coeffs {
		p1.Coeffs[i] = make([]uint64, len(pol.Coeffs[i]))
		copy(p1.Coeffs[i], pol.Coeffs[i])
	}
	return
}

// Copy copies the coefficients of p1 into the receiver, which must already
// be allocated with matching dimensions.
func (pol *Poly) Copy(p1 *Poly) {
	for i := range pol.Coeffs {
		copy(pol.Coeffs[i], p1.Coeffs[i])
	}
}

// Equal reports whether pol and other hold identical coefficients.
func (pol *Poly) Equal(other *Poly) bool {
	if len(pol.Coeffs) != len(other.Coeffs) {
		return false
	}
	for i := range pol.Coeffs {
		if len(pol.Coeffs[i]) != len(other.Coeffs[i]) {
			return false
		}
		for j := range pol.Coeffs[i] {
			if pol.Coeffs[i][j] != other.Coeffs[i][j] {
				return false
			}
		}
	}
	return true
}

// MarshalBinarySize returns the number of bytes MarshalBinary produces for a
// polynomial with N coefficients over level+1 moduli.
func MarshalBinarySize(N, level int) int {
	return 2 + (level+1)*N*8
}

// MarshalBinary encodes pol as: 1 byte level, 1 byte log2(N), then for each
// modulus N little-endian uint64 coefficients, in modulus order. No
// reflection, no gob -- matches the teacher's explicit byte-counted wire
// format in bfv/marshaler.go.
func (pol *Poly) MarshalBinary() (data []byte, err error) {
	level := pol.Level()
	N := pol.N()
	data = make([]byte, MarshalBinarySize(N, level))
	data[0] = uint8(level)
	data[1] = uint8(log2(uint64(N)))
	ptr := 2
	for i := 0; i <= level; i++ {
		for j := 0; j < N; j++ {
			binary.LittleEndian.PutUint64(data[ptr:], pol.Coeffs[i][j])
			ptr += 8
		}
	}
	return
}

// UnmarshalBinary decodes data produced by MarshalBinary into the receiver.
func (pol *Poly) UnmarshalBinary(data []byte) (err error) {
	level := int(data[0])
	N := 1 << int(data[1])
	pol.Coeffs = make([][]uint64, level+1)
	ptr := 2
	for i := 0; i <= level; i++ {
		pol.Coeffs[i] = make([]uint64, N)
		for j := 0; j < N; j++ {
			pol.Coeffs[i][j] = binary.LittleEndian.Uint64(data[ptr:])
			ptr += 8
		}
	}
	return nil
}

func log2(x uint64) int {
	n := 0
	for x > 1 {
		x >>= 1
		n++
	}
	return n
}
