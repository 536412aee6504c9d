package bfv

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"github.com/drakeword/gobfv/ring"
)

// GaloisGen is the generator of the "rotate columns" subgroup of (Z/2nZ)*,
// the same fixed generator the teacher's bfv.go uses for slot rotations.
const GaloisGen uint64 = 5

// ParametersLiteral is the plain, caller-built encryption-parameter
// description: exported fields only, validated and frozen into a Parameters
// by NewParametersFromLiteral. Mirrors the teacher's bfv.ParametersLiteral
// pattern (params.go) of a literal struct feeding an immutable handle.
type ParametersLiteral struct {
	// LogN is log2 of the ring degree n (a power of two).
	LogN int
	// Qi is the coefficient modulus, a set of distinct primes each
	// congruent to 1 mod 2n.
	Qi []uint64
	// T is the plaintext modulus, a prime. Batching requires t = 1 mod 2n.
	T uint64
	// Sigma is the standard deviation of the discrete Gaussian error
	// distribution.
	Sigma float64
	// W is the decomposition bit count used by relinearization/Galois key
	// switching. W = 0 disables relinearization (spec's enable_relinearization
	// qualifier).
	W int
}

// Parameters is the frozen, validated output of NewParametersFromLiteral:
// read-only from here on, exactly as spec.md's "Encryption parameters"
// lifecycle describes (mutable until handed to the Context; thereafter
// read-only).
type Parameters struct {
	logN  int
	qi    []uint64
	t     uint64
	sigma float64
	w     int

	// Qualifiers, computed once and stored rather than re-derived per
	// operation (spec §9, "Parameter qualifiers").
	enableNTT            bool
	enableBatching       bool
	enableFastPlainLift  bool
	enableRelinearization bool

	fingerprint [16]byte
}

// N returns the ring degree.
func (p Parameters) N() int { return 1 << p.logN }

// LogN returns log2(N).
func (p Parameters) LogN() int { return p.logN }

// Qi returns a copy of the coefficient modulus.
func (p Parameters) Qi() []uint64 { return append([]uint64{}, p.qi...) }

// T returns the plaintext modulus.
func (p Parameters) T() uint64 { return p.t }

// Sigma returns the Gaussian noise standard deviation.
func (p Parameters) Sigma() float64 { return p.sigma }

// W returns the relinearization decomposition bit count.
func (p Parameters) W() int { return p.w }

// EnableNTT reports whether every qi is congruent to 1 mod 2n.
func (p Parameters) EnableNTT() bool { return p.enableNTT }

// EnableBatching reports whether t is congruent to 1 mod 2n, allowing the
// CRT-slot encoder to operate (an external collaborator, see spec §1).
func (p Parameters) EnableBatching() bool { return p.enableBatching }

// EnableFastPlainLift reports whether t < min(qi), allowing the fast
// per-prime q_i-t offset path instead of the exact big-integer lift.
func (p Parameters) EnableFastPlainLift() bool { return p.enableFastPlainLift }

// EnableRelinearization reports whether w > 0.
func (p Parameters) EnableRelinearization() bool { return p.enableRelinearization }

// Fingerprint returns the 128-bit fingerprint of this parameter set, a
// truncated BLAKE3 digest of its canonical encoding (spec §3, "Encryption
// parameters ... fingerprint"). Grounded in the teacher's blake2b-keyed PRNG
// design (ring/prng.go): "hash the canonical encoding", using blake3 (the
// modern replacement already in the teacher's go.mod) instead.
func (p Parameters) Fingerprint() [16]byte { return p.fingerprint }

func computeFingerprint(logN int, qi []uint64, t uint64, w int) [16]byte {
	h := blake3.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(logN))
	h.Write(buf[:])
	for _, qiv := range qi {
		binary.LittleEndian.PutUint64(buf[:], qiv)
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], t)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], uint64(w))
	h.Write(buf[:])

	digest := h.Digest()
	var out [16]byte
	digest.Read(out[:])
	return out
}

// NewParametersFromLiteral validates lit and returns the frozen Parameters,
// following the checks of spec §4.5 step 1-2: n a power of two, each qi
// prime and pairwise coprime and below 2^62, t < prod(qi), and the qualifier
// derivation of step 2.
func NewParametersFromLiteral(lit ParametersLiteral) (Parameters, error) {

	if lit.LogN < 1 {
		return Parameters{}, newError(InvalidParameters, "LogN=%d must be >= 1", lit.LogN)
	}
	if len(lit.Qi) == 0 {
		return Parameters{}, newError(InvalidParameters, "coefficient modulus must be non-empty")
	}

	n := 1 << lit.LogN

	seen := map[uint64]bool{}
	for _, qiv := range lit.Qi {
		if qiv >= uint64(1)<<62 {
			return Parameters{}, newError(InvalidParameters, "qi=%d exceeds 2^62", qiv)
		}
		if !ring.IsPrime(qiv) {
			return Parameters{}, newError(InvalidParameters, "qi=%d is not prime", qiv)
		}
		if seen[qiv] {
			return Parameters{}, newError(InvalidParameters, "qi=%d repeated: coefficient modulus must be pairwise coprime", qiv)
		}
		seen[qiv] = true
	}

	if lit.T == 0 || !ring.IsPrime(lit.T) {
		return Parameters{}, newError(InvalidParameters, "plaintext modulus t=%d must be prime", lit.T)
	}

	qProd := ring.NewUint(1)
	for _, qiv := range lit.Qi {
		qProd.Mul(qProd, ring.NewUint(qiv))
	}
	if ring.NewUint(lit.T).Cmp(qProd) >= 0 {
		return Parameters{}, newError(InvalidParameters, "t=%d must be smaller than prod(qi)", lit.T)
	}

	p := Parameters{
		logN:  lit.LogN,
		qi:    append([]uint64{}, lit.Qi...),
		t:     lit.T,
		sigma: lit.Sigma,
		w:     lit.W,
	}
	if p.sigma == 0 {
		p.sigma = 3.2
	}

	nthRoot := uint64(2 * n)

	p.enableNTT = true
	minQi := lit.Qi[0]
	for _, qiv := range lit.Qi {
		if qiv%nthRoot != 1 {
			p.enableNTT = false
		}
		if qiv < minQi {
			minQi = qiv
		}
	}
	p.enableBatching = p.enableNTT && (lit.T%nthRoot == 1)
	p.enableFastPlainLift = lit.T < minQi
	p.enableRelinearization = lit.W > 0

	p.fingerprint = computeFingerprint(p.logN, p.qi, p.t, p.w)

	return p, nil
}

// Copy returns a value copy of p (Parameters holds only value/slice fields,
// so this is a deep copy of the backing Qi slice).
func (p Parameters) Copy() Parameters {
	cp := p
	cp.qi = append([]uint64{}, p.qi...)
	return cp
}
