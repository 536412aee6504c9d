package bfv

import (
	"encoding/binary"

	"github.com/drakeword/gobfv/ring"
)

// Wire layouts follow spec §6's explicit byte-counting convention (no
// reflection, no gob), grounded in the teacher's bfv/marshaler.go style of
// hand-written Marshal/UnmarshalBinary pairs that prefix each variable-size
// section with its own length field.

const fingerprintSize = 16

// MarshalBinary encodes a Ciphertext as:
// fingerprint(16) || size(u32) || poly_modulus_degree(u32) ||
// coeff_modulus_size(u32) || is_ntt(1) || size * (length(u32) || residue polynomial).
func (c *Ciphertext) MarshalBinary() ([]byte, error) {
	polyBytes := make([][]byte, len(c.Value))
	total := fingerprintSize + 4 + 4 + 4 + 1
	for i, p := range c.Value {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, err
		}
		polyBytes[i] = b
		total += 4 + len(b)
	}

	data := make([]byte, total)
	ptr := 0
	copy(data[ptr:], c.fingerprint[:])
	ptr += fingerprintSize
	binary.LittleEndian.PutUint32(data[ptr:], uint32(len(c.Value)))
	ptr += 4
	n := uint32(0)
	coeffModulusSize := uint32(0)
	if len(c.Value) > 0 {
		n = uint32(c.Value[0].N())
		coeffModulusSize = uint32(c.Value[0].Level() + 1)
	}
	binary.LittleEndian.PutUint32(data[ptr:], n)
	ptr += 4
	binary.LittleEndian.PutUint32(data[ptr:], coeffModulusSize)
	ptr += 4
	if c.isNTT {
		data[ptr] = 1
	}
	ptr++
	for _, b := range polyBytes {
		binary.LittleEndian.PutUint32(data[ptr:], uint32(len(b)))
		ptr += 4
		copy(data[ptr:], b)
		ptr += len(b)
	}
	return data, nil
}

// UnmarshalBinary decodes data produced by MarshalBinary into the
// receiver.
func (c *Ciphertext) UnmarshalBinary(data []byte) error {
	ptr := 0
	copy(c.fingerprint[:], data[ptr:ptr+fingerprintSize])
	ptr += fingerprintSize
	size := binary.LittleEndian.Uint32(data[ptr:])
	ptr += 4
	ptr += 4 // poly_modulus_degree, recovered from the polynomials themselves
	ptr += 4 // coeff_modulus_size, ditto
	c.isNTT = data[ptr] == 1
	ptr++

	c.Value = make([]*ring.Poly, size)
	for i := range c.Value {
		plen := binary.LittleEndian.Uint32(data[ptr:])
		ptr += 4
		p := new(ring.Poly)
		if err := p.UnmarshalBinary(data[ptr : ptr+int(plen)]); err != nil {
			return err
		}
		ptr += int(plen)
		c.Value[i] = p
	}
	return nil
}

// MarshalBinary encodes a Plaintext as fingerprint(16) || is_ntt(1) ||
// residue polynomial.
func (p *Plaintext) MarshalBinary() ([]byte, error) {
	b, err := p.value.MarshalBinary()
	if err != nil {
		return nil, err
	}
	data := make([]byte, fingerprintSize+1+len(b))
	ptr := 0
	copy(data[ptr:], p.fingerprint[:])
	ptr += fingerprintSize
	if p.isNTT {
		data[ptr] = 1
	}
	ptr++
	copy(data[ptr:], b)
	return data, nil
}

// UnmarshalBinary decodes data produced by Plaintext.MarshalBinary.
func (p *Plaintext) UnmarshalBinary(data []byte) error {
	ptr := 0
	copy(p.fingerprint[:], data[ptr:ptr+fingerprintSize])
	ptr += fingerprintSize
	p.isNTT = data[ptr] == 1
	ptr++
	p.value = new(ring.Poly)
	return p.value.UnmarshalBinary(data[ptr:])
}

// marshalSwitchingKey encodes a SwitchingKey body (no fingerprint prefix,
// that belongs to the owning EvaluationKey/GaloisKey) as:
// decomposition_bit_count(u32) || level_count(u32) || per level:
// poly0_len(u32) || poly0 || poly1_len(u32) || poly1.
func marshalSwitchingKey(swk *SwitchingKey) ([]byte, error) {
	type encoded struct{ a, b []byte }
	enc := make([]encoded, len(swk.Value))
	total := 4 + 4
	for i, pair := range swk.Value {
		a, err := pair[0].MarshalBinary()
		if err != nil {
			return nil, err
		}
		b, err := pair[1].MarshalBinary()
		if err != nil {
			return nil, err
		}
		enc[i] = encoded{a, b}
		total += 4 + len(a) + 4 + len(b)
	}

	data := make([]byte, total)
	ptr := 0
	binary.LittleEndian.PutUint32(data[ptr:], uint32(swk.bitDecomp))
	ptr += 4
	binary.LittleEndian.PutUint32(data[ptr:], uint32(len(swk.Value)))
	ptr += 4
	for _, e := range enc {
		binary.LittleEndian.PutUint32(data[ptr:], uint32(len(e.a)))
		ptr += 4
		copy(data[ptr:], e.a)
		ptr += len(e.a)
		binary.LittleEndian.PutUint32(data[ptr:], uint32(len(e.b)))
		ptr += 4
		copy(data[ptr:], e.b)
		ptr += len(e.b)
	}
	return data, nil
}

func unmarshalSwitchingKey(data []byte) (*SwitchingKey, int, error) {
	ptr := 0
	bitDecomp := binary.LittleEndian.Uint32(data[ptr:])
	ptr += 4
	levels := binary.LittleEndian.Uint32(data[ptr:])
	ptr += 4

	swk := &SwitchingKey{bitDecomp: uint64(bitDecomp), Value: make([][2]*ring.Poly, levels)}
	for i := range swk.Value {
		aLen := binary.LittleEndian.Uint32(data[ptr:])
		ptr += 4
		a := new(ring.Poly)
		if err := a.UnmarshalBinary(data[ptr : ptr+int(aLen)]); err != nil {
			return nil, 0, err
		}
		ptr += int(aLen)

		bLen := binary.LittleEndian.Uint32(data[ptr:])
		ptr += 4
		b := new(ring.Poly)
		if err := b.UnmarshalBinary(data[ptr : ptr+int(bLen)]); err != nil {
			return nil, 0, err
		}
		ptr += int(bLen)

		swk.Value[i] = [2]*ring.Poly{a, b}
	}
	return swk, ptr, nil
}

// MarshalBinary encodes an EvaluationKey as fingerprint(16) ||
// key_count(u32) || each SwitchingKey body in turn.
func (ek *EvaluationKey) MarshalBinary() ([]byte, error) {
	bodies := make([][]byte, len(ek.Value))
	total := fingerprintSize + 4
	for i, swk := range ek.Value {
		b, err := marshalSwitchingKey(swk)
		if err != nil {
			return nil, err
		}
		bodies[i] = b
		total += len(b)
	}

	data := make([]byte, total)
	ptr := 0
	copy(data[ptr:], ek.fingerprint[:])
	ptr += fingerprintSize
	binary.LittleEndian.PutUint32(data[ptr:], uint32(len(ek.Value)))
	ptr += 4
	for _, b := range bodies {
		copy(data[ptr:], b)
		ptr += len(b)
	}
	return data, nil
}

// UnmarshalBinary decodes data produced by EvaluationKey.MarshalBinary.
func (ek *EvaluationKey) UnmarshalBinary(data []byte) error {
	ptr := 0
	copy(ek.fingerprint[:], data[ptr:ptr+fingerprintSize])
	ptr += fingerprintSize
	count := binary.LittleEndian.Uint32(data[ptr:])
	ptr += 4

	ek.Value = make([]*SwitchingKey, count)
	for i := range ek.Value {
		swk, n, err := unmarshalSwitchingKey(data[ptr:])
		if err != nil {
			return err
		}
		ek.Value[i] = swk
		ptr += n
	}
	return nil
}

// MarshalBinary encodes a GaloisKey as fingerprint(16) || g(u64) ||
// SwitchingKey body.
func (gk *GaloisKey) MarshalBinary(fingerprint [16]byte) ([]byte, error) {
	body, err := marshalSwitchingKey(gk.Key)
	if err != nil {
		return nil, err
	}
	data := make([]byte, fingerprintSize+8+len(body))
	ptr := 0
	copy(data[ptr:], fingerprint[:])
	ptr += fingerprintSize
	binary.LittleEndian.PutUint64(data[ptr:], gk.GaloisElement)
	ptr += 8
	copy(data[ptr:], body)
	return data, nil
}

// UnmarshalGaloisKey decodes data produced by GaloisKey.MarshalBinary,
// returning the key and the fingerprint it was tagged with.
func UnmarshalGaloisKey(data []byte) (*GaloisKey, [16]byte, error) {
	var fp [16]byte
	ptr := 0
	copy(fp[:], data[ptr:ptr+fingerprintSize])
	ptr += fingerprintSize
	galEl := binary.LittleEndian.Uint64(data[ptr:])
	ptr += 8
	swk, _, err := unmarshalSwitchingKey(data[ptr:])
	if err != nil {
		return nil, fp, err
	}
	return &GaloisKey{GaloisElement: galEl, Key: swk}, fp, nil
}

// MarshalBinary encodes the full GaloisKeySet: fingerprint(16) ||
// key_count(u32) || each GaloisKey in turn, as length(u32) || GaloisKey.
func (gks *GaloisKeySet) MarshalBinary() ([]byte, error) {
	bodies := make([][]byte, 0, len(gks.keys))
	total := fingerprintSize + 4
	for galEl, swk := range gks.keys {
		gk := &GaloisKey{GaloisElement: galEl, Key: swk}
		b, err := gk.MarshalBinary(gks.fingerprint)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, b)
		total += 4 + len(b)
	}

	data := make([]byte, total)
	ptr := 0
	copy(data[ptr:], gks.fingerprint[:])
	ptr += fingerprintSize
	binary.LittleEndian.PutUint32(data[ptr:], uint32(len(bodies)))
	ptr += 4
	for _, b := range bodies {
		binary.LittleEndian.PutUint32(data[ptr:], uint32(len(b)))
		ptr += 4
		copy(data[ptr:], b)
		ptr += len(b)
	}
	return data, nil
}

// UnmarshalBinary decodes data produced by GaloisKeySet.MarshalBinary.
func (gks *GaloisKeySet) UnmarshalBinary(data []byte) error {
	ptr := 0
	copy(gks.fingerprint[:], data[ptr:ptr+fingerprintSize])
	ptr += fingerprintSize
	count := binary.LittleEndian.Uint32(data[ptr:])
	ptr += 4

	gks.keys = make(map[uint64]*SwitchingKey, count)
	for i := uint32(0); i < count; i++ {
		blen := binary.LittleEndian.Uint32(data[ptr:])
		ptr += 4
		gk, _, err := UnmarshalGaloisKey(data[ptr : ptr+int(blen)])
		if err != nil {
			return err
		}
		gks.keys[gk.GaloisElement] = gk.Key
		ptr += int(blen)
	}
	return nil
}
