package ring

import (
	"crypto/rand"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/blake2b"
)

// PRNG is the source of randomness used by every sampler in this package.
// Keyed construction lets two parties derive the identical public-key /
// Galois-key "a" component from a shared seed without exchanging it, the
// same division of labour the teacher's utils.PRNG serves in ring/prng.go.
type PRNG interface {
	io.Reader
}

// KeyedPRNG is a blake2b-XOF-backed deterministic PRNG: seeding it twice
// with the same key reproduces the same stream, exactly as the teacher's
// blake2b-backed utils.NewKeyedPRNG. Used both for deterministic
// common-reference-polynomial sampling and, seeded from crypto/rand, as the
// default unkeyed CSPRNG.
type KeyedPRNG struct {
	xof blake2b.XOF
}

// NewKeyedPRNG returns a PRNG deterministically derived from key. If key is
// nil, a fresh random key is drawn from crypto/rand.
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	if err != nil {
		return nil, err
	}
	return &KeyedPRNG{xof: xof}, nil
}

// Read fills p with pseudo-random bytes drawn from the XOF stream.
func (p *KeyedPRNG) Read(buf []byte) (int, error) {
	return p.xof.Read(buf)
}

func randomUint64(prng PRNG, mask uint64) uint64 {
	var b [8]byte
	for {
		if _, err := io.ReadFull(prng, b[:]); err != nil {
			panic(err)
		}
		v := binary.LittleEndian.Uint64(b[:]) & mask
		return v
	}
}
