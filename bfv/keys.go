package bfv

import "github.com/drakeword/gobfv/ring"

// SecretKey is a ternary polynomial stored in NTT form, not Montgomery form (spec §3:
// "Secret key: a ternary polynomial ... stored in NTT form"), mirroring the
// teacher's bfv.SecretKey (keys.go).
type SecretKey struct {
	Value       *ring.Poly
	fingerprint [16]byte
}

// PublicKey is an RNS polynomial pair (spec §3: "Public key: an RNS
// polynomial pair").
type PublicKey struct {
	Value       [2]*ring.Poly
	fingerprint [16]byte
}

// SwitchingKey is one bit-decomposed key-switching gadget: a ladder of
// 2^w-radix levels, each an RNS encryption pair under the target secret
// key of (plaintext * 2^{j*bitDecomp}). A ciphertext component is
// key-switched by decomposing its residue at every prime independently
// into base-2^w digits (spec §4.8, "decompose the last component in base
// 2^w modulo each qi") and dyadically accumulating against Value[j].
// Grounded in the shape of the teacher's lca1-era bfv.SwitchingKey
// (evaluator.go's switchKeys), simplified from the teacher's extra
// per-prime key dimension since one digit ladder shared across every
// prime already reconstructs each residue exactly.
type SwitchingKey struct {
	Value       [][2]*ring.Poly // [level][0 or 1]
	bitDecomp   uint64
	fingerprint [16]byte
}

// EvaluationKey holds the chain of SwitchingKeys needed to relinearize a
// ciphertext of any size back down to 2: Value[0] contracts size 3 to 2
// (the s^2 term), Value[1] contracts size 4 to 3 (the s^3 term), and so on (spec §3: "Evaluation keys:
// for each decomposition level ... a sequence of encryption pairs of
// s^2*2^{jw}").
type EvaluationKey struct {
	Value       []*SwitchingKey
	fingerprint [16]byte
}

// GaloisKey is an EvaluationKey-shaped key for a single Galois automorphism
// exponent g (spec §3: "Galois keys: the same structure as evaluation
// keys, keyed by an odd Galois exponent g").
type GaloisKey struct {
	GaloisElement uint64
	Key           *SwitchingKey
}

// GaloisKeySet collects the GaloisKeys a ciphertext's rotations may need,
// keyed by Galois element, mirroring the teacher's RotationKeySet
// (bfv/keys.go).
type GaloisKeySet struct {
	keys        map[uint64]*SwitchingKey
	fingerprint [16]byte
}

// NewGaloisKeySet returns an empty key set tagged with ctx's fingerprint.
func (ctx *Context) NewGaloisKeySet() *GaloisKeySet {
	return &GaloisKeySet{keys: make(map[uint64]*SwitchingKey), fingerprint: ctx.params.Fingerprint()}
}

// Set installs swk under Galois element galEl.
func (gks *GaloisKeySet) Set(galEl uint64, swk *SwitchingKey) {
	gks.keys[galEl] = swk
}

// Get returns the SwitchingKey for galEl, if present.
func (gks *GaloisKeySet) Get(galEl uint64) (*SwitchingKey, bool) {
	swk, ok := gks.keys[galEl]
	return swk, ok
}
