package bfv

import (
	"math/big"

	"github.com/drakeword/gobfv/ring"
)

// KeyGenerator produces secret/public/evaluation/Galois keys for a Context,
// mirroring the teacher's bfv.NewKeyGenerator division of labour (keygen.go):
// a small struct wrapping the Context plus a private PRNG, with one method
// per key kind.
type KeyGenerator struct {
	ctx  *Context
	prng ring.PRNG
}

// NewKeyGenerator returns a KeyGenerator for ctx, seeded from a fresh
// unkeyed CSPRNG so concurrent key generation from the same Context never
// shares sampler state.
func NewKeyGenerator(ctx *Context) (*KeyGenerator, error) {
	prng, err := ctx.NewPRNG()
	if err != nil {
		return nil, err
	}
	return &KeyGenerator{ctx: ctx, prng: prng}, nil
}

// GenSecretKey samples a fresh ternary secret key, in NTT form (spec §3:
// "Secret key: a ternary polynomial ... stored in NTT form").
func (kg *KeyGenerator) GenSecretKey() *SecretKey {
	rq := kg.ctx.contextQ
	sampler := ring.NewTernarySampler(kg.prng, rq, 1.0/3.0, false)
	sk := sampler.ReadNew()
	rq.NTT(sk, sk)
	return &SecretKey{Value: sk, fingerprint: kg.ctx.params.Fingerprint()}
}

// GenPublicKey derives pk = (-(a*s + e), a) for a fresh uniform a and
// Gaussian error e, the standard RLWE public-key relation, matching the
// teacher's encrypt/keygen convention of leaving both components in NTT
// form.
func (kg *KeyGenerator) GenPublicKey(sk *SecretKey) *PublicKey {
	rq := kg.ctx.contextQ

	uniform := ring.NewUniformSampler(kg.prng, rq)
	a := uniform.ReadNew()
	rq.NTT(a, a)

	e := kg.ctx.gaussianSampler.ReadNew()
	rq.NTT(e, e)

	as := rq.NewPoly()
	rq.MulCoeffs(a, sk.Value, as)

	pk0 := rq.NewPoly()
	rq.Neg(as, pk0)
	rq.Sub(pk0, e, pk0)

	return &PublicKey{Value: [2]*ring.Poly{pk0, a}, fingerprint: kg.ctx.params.Fingerprint()}
}

// decompLevels returns the number of base-2^w digits needed to cover the
// widest coefficient modulus, the ladder length every SwitchingKey shares
// (spec's "there are ceil(log2(q)/w) of them").
func decompLevels(rq *ring.Context, w uint64) int {
	maxBits := 0
	for _, qi := range rq.Modulus {
		b := 0
		for v := qi; v > 0; v >>= 1 {
			b++
		}
		if b > maxBits {
			maxBits = b
		}
	}
	levels := (maxBits + int(w) - 1) / int(w)
	if levels < 1 {
		levels = 1
	}
	return levels
}

// scalePerPrime multiplies src (an RNS polynomial, any domain) by the plain
// integer scalar, reduced independently modulo each prime of rq, and
// returns a fresh polynomial. Used to embed s^deg * 2^{jw} -- a scalar that
// may exceed 64 bits once j*w grows large -- into every residue of the
// evaluation key's plaintext. Written row-by-row with ring.BRed directly,
// since ring.Context.MulScalar assumes the same raw scalar across every
// prime and 2^{jw} mod qi generally differs per prime once jw grows past
// the smallest qi.
func scalePerPrime(rq *ring.Context, src *ring.Poly, scalar *big.Int) *ring.Poly {
	dst := rq.NewPolyLvl(uint64(src.Level()))
	mod := new(big.Int)
	for i, qi := range rq.Modulus {
		s := mod.Mod(scalar, ring.NewUint(qi)).Uint64()
		sred := ring.BRedAdd(s, qi, rq.BredParams[i])
		srcRow, dstRow := src.Coeffs[i], dst.Coeffs[i]
		for j, c := range srcRow {
			dstRow[j] = ring.BRed(c, sred, qi, rq.BredParams[i])
		}
	}
	return dst
}

// genSwitchingKey builds one SwitchingKey encrypting plaintext (an RNS
// polynomial, e.g. s^deg or a Galois-permuted secret key) under sk, using
// bit-decomposition base 2^bitDecomp: for level j, the key pair encrypts
// plaintext * 2^{j*bitDecomp}, so that relinearize/apply_galois can later
// decompose a ciphertext component digit-by-digit and recombine (spec
// §4.8, "Relinearize to target size").
func (kg *KeyGenerator) genSwitchingKey(sk *SecretKey, plaintext *ring.Poly) *SwitchingKey {
	rq := kg.ctx.contextQ
	levels := decompLevels(rq, kg.ctx.bitDecomp)

	swk := &SwitchingKey{
		Value:       make([][2]*ring.Poly, levels),
		bitDecomp:   kg.ctx.bitDecomp,
		fingerprint: kg.ctx.params.Fingerprint(),
	}

	uniform := ring.NewUniformSampler(kg.prng, rq)

	for j := 0; j < levels; j++ {
		a := uniform.ReadNew()
		rq.NTT(a, a)

		e := kg.ctx.gaussianSampler.ReadNew()
		rq.NTT(e, e)

		shift := uint(j) * uint(kg.ctx.bitDecomp)
		scalar := new(big.Int).Lsh(big.NewInt(1), shift)
		scaled := scalePerPrime(rq, plaintext, scalar)

		as := rq.NewPoly()
		rq.MulCoeffs(a, sk.Value, as)

		b := rq.NewPoly()
		rq.Neg(as, b)
		rq.Sub(b, e, b)
		rq.Add(b, scaled, b)

		swk.Value[j] = [2]*ring.Poly{b, a}
	}

	return swk
}

// GenRelinearizationKey builds the chain of SwitchingKeys needed to
// relinearize a ciphertext of size up to maxDegree+1 back down to size 2:
// entry d-2 contracts s^d (spec §3: "Evaluation keys: for each
// decomposition level ... a sequence of encryption pairs of s^2*2^{jw}").
// Fails with InvalidParameters if relinearization is disabled (w == 0),
// per spec §9's "refuse evaluation-key generation when the qualifier is
// off."
func (kg *KeyGenerator) GenRelinearizationKey(sk *SecretKey, maxDegree int) (*EvaluationKey, error) {
	if !kg.ctx.params.EnableRelinearization() {
		return nil, newError(InvalidParameters, "relinearization is disabled (decomposition_bit_count == 0)")
	}
	if maxDegree < 2 {
		return nil, newError(SizeMismatch, "maxDegree=%d must be >= 2", maxDegree)
	}

	rq := kg.ctx.contextQ
	skPow := sk.Value.CopyNew()

	ek := &EvaluationKey{Value: make([]*SwitchingKey, maxDegree-1), fingerprint: kg.ctx.params.Fingerprint()}
	for deg := 2; deg <= maxDegree; deg++ {
		rq.MulCoeffs(skPow, sk.Value, skPow)
		ek.Value[deg-2] = kg.genSwitchingKey(sk, skPow)
	}
	return ek, nil
}

// GenGaloisKey builds the SwitchingKey that lets apply_galois key-switch a
// ciphertext permuted by the automorphism x -> x^galEl back onto sk (spec
// §3: "Galois keys: the same structure as evaluation keys, keyed by an odd
// Galois exponent g").
func (kg *KeyGenerator) GenGaloisKey(sk *SecretKey, galEl uint64) *GaloisKey {
	rq := kg.ctx.contextQ
	index := ring.PermuteNTTIndex(galEl, kg.ctx.n)
	permuted := rq.NewPoly()
	rq.PermuteNTTWithIndex(sk.Value, index, permuted)
	return &GaloisKey{GaloisElement: galEl, Key: kg.genSwitchingKey(sk, permuted)}
}

// GenGaloisKeySet builds Galois keys for row rotation and every power-of-two
// column rotation, the minimal set RotateRows/RotateColumns/InnerSum need
// without requiring every possible rotation amount to have its own key
// (spec §9: "precompute the full table of n/2 row-rotation exponents plus
// one for column swap, or define explicit fallback recursion" -- here we
// take the power-of-two-generator route).
func (kg *KeyGenerator) GenGaloisKeySet(sk *SecretKey) *GaloisKeySet {
	gks := kg.ctx.NewGaloisKeySet()

	gks.Set(kg.ctx.galElRotRow, kg.GenGaloisKey(sk, kg.ctx.galElRotRow).Key)

	for i := uint64(1); i < kg.ctx.n>>1; i <<= 1 {
		gks.Set(kg.ctx.galElRotColLeft[i], kg.GenGaloisKey(sk, kg.ctx.galElRotColLeft[i]).Key)
		gks.Set(kg.ctx.galElRotColRight[i], kg.GenGaloisKey(sk, kg.ctx.galElRotColRight[i]).Key)
	}

	return gks
}
