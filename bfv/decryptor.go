package bfv

import (
	"math/big"
	"sync"

	"github.com/ALTree/bigfloat"
	"github.com/drakeword/gobfv/ring"
)

// Decryptor recovers a Plaintext from a Ciphertext under a SecretKey,
// mirroring the teacher's bfv.Decryptor (decryptor.go). Unlike the
// teacher's version -- which stops at the raw NTT-domain phase and never
// rescales -- Decrypt here carries the phase all the way through the
// fastbconv_plain_gamma rescale spec §4.7 requires, since a decryptor that
// only reduces mod Q never actually recovers the plaintext.
type Decryptor struct {
	ctx *Context
	sk  *SecretKey

	// ladder[i] holds s^(i+2) in NTT form, extended lazily the first time a
	// ciphertext of that size is decrypted (spec §9: "grow under a
	// read-write lock so concurrent decryptions of same-size ciphertexts
	// never block each other, only a ciphertext that needs a new power").
	ladder   []*ring.Poly
	ladderMu sync.RWMutex
}

// NewDecryptor returns a Decryptor bound to sk.
func NewDecryptor(ctx *Context, sk *SecretKey) (*Decryptor, error) {
	if err := ctx.checkFingerprint(sk.fingerprint); err != nil {
		return nil, err
	}
	return &Decryptor{ctx: ctx, sk: sk}, nil
}

// powerOfSecret returns s^deg (deg >= 1) in NTT form, extending the cached
// ladder if necessary.
func (dec *Decryptor) powerOfSecret(deg int) *ring.Poly {
	if deg == 1 {
		return dec.sk.Value
	}

	idx := deg - 2
	dec.ladderMu.RLock()
	if idx < len(dec.ladder) {
		p := dec.ladder[idx]
		dec.ladderMu.RUnlock()
		return p
	}
	dec.ladderMu.RUnlock()

	dec.ladderMu.Lock()
	defer dec.ladderMu.Unlock()
	rq := dec.ctx.contextQ
	for len(dec.ladder) <= idx {
		var prev *ring.Poly
		if len(dec.ladder) == 0 {
			prev = dec.sk.Value
		} else {
			prev = dec.ladder[len(dec.ladder)-1]
		}
		next := rq.NewPoly()
		rq.MulCoeffs(prev, dec.sk.Value, next)
		dec.ladder = append(dec.ladder, next)
	}
	return dec.ladder[idx]
}

// phase computes <c, s> = sum_i c_i * s^i, reduced mod Q and returned in
// coefficient domain.
func (dec *Decryptor) phase(ct *Ciphertext) *ring.Poly {
	rq := dec.ctx.contextQ

	acc := rq.NewPoly()
	rq.NTT(ct.Value[0], acc)

	tmp := rq.NewPoly()
	for i := 1; i < len(ct.Value); i++ {
		ci := rq.NewPoly()
		rq.NTT(ct.Value[i], ci)
		rq.MulCoeffs(ci, dec.powerOfSecret(i), tmp)
		rq.Add(acc, tmp, acc)
	}

	rq.InvNTT(acc, acc)
	return acc
}

// Decrypt implements spec §4.7: scale the phase by t*gamma per prime,
// fast-base-convert to {t, gamma} (which also multiplies by
// -(prod q)^-1 mod t and mod gamma), center the gamma residue into
// (-gamma/2, gamma/2], subtract it from the t residue, and multiply by
// gamma^-1 mod t to recover the plaintext.
func (dec *Decryptor) Decrypt(ct *Ciphertext) (*Plaintext, error) {
	if err := dec.ctx.checkFingerprint(ct.fingerprint); err != nil {
		return nil, err
	}

	rq := dec.ctx.contextQ
	bc := dec.ctx.baseConverter
	t := dec.ctx.t

	ph := dec.phase(ct)

	tGamma := new(big.Int).Mul(ring.NewUint(t), ring.NewUint(bc.Gamma()))
	scaled := scalePerPrime(rq, ph, tGamma)

	tg := bc.FastBConvPlainGamma(scaled.Coeffs)
	tPart, gammaPart := tg[0], tg[1]

	gamma := bc.Gamma()
	halfGamma := gamma / 2
	invGamma := bc.InvGammaModPlain()

	pt := dec.ctx.NewPlaintext()
	out := pt.value.Coeffs[0]
	for j := range out {
		g := int64(gammaPart[j])
		if gammaPart[j] > halfGamma {
			g -= int64(gamma)
		}
		diff := int64(tPart[j]) - g
		diff %= int64(t)
		if diff < 0 {
			diff += int64(t)
		}
		out[j] = ring.MulModNaive(uint64(diff), invGamma, t)
	}

	return pt, nil
}

// InvariantNoiseBudget returns the number of noise bits remaining before
// decryption becomes unreliable, following spec's
// "-log2(2*invariant-noise)" definition: the exact phase is compared
// against Delta*m (the noise-free value), the infinity norm of the
// difference is taken, and that norm -- rescaled by t/Q -- is log2'd as
// bigfloat.Log(x)/bigfloat.Log(2) (spec §3's wiring for ALTree/bigfloat, since the values
// involved routinely exceed float64 precision).
func (dec *Decryptor) InvariantNoiseBudget(ct *Ciphertext) (int, error) {
	pt, err := dec.Decrypt(ct)
	if err != nil {
		return 0, err
	}

	rq := dec.ctx.contextQ
	ph := dec.phase(ct)

	lifted := rq.NewPoly()
	dec.ctx.Lift(pt, lifted)

	noise := rq.NewPoly()
	rq.Sub(ph, lifted, noise)

	coeffs := make([]*big.Int, dec.ctx.n)
	rq.PolyToBigint(noise, coeffs)

	maxAbs := new(big.Int)
	abs := new(big.Int)
	for _, c := range coeffs {
		abs.Abs(c)
		if abs.Cmp(maxAbs) > 0 {
			maxAbs.Set(abs)
		}
	}

	if maxAbs.Sign() == 0 {
		return rq.ModulusBigint.BitLen(), nil
	}

	num := new(big.Float).SetInt(maxAbs)
	num.Mul(num, new(big.Float).SetUint64(2))
	num.Mul(num, new(big.Float).SetUint64(dec.ctx.t))

	den := new(big.Float).SetInt(rq.ModulusBigint)

	ratio := new(big.Float).Quo(num, den)

	ln2 := bigfloat.Log(big.NewFloat(2))
	lnRatio := bigfloat.Log(ratio)
	budget := new(big.Float).Quo(lnRatio, ln2)
	neg := new(big.Float).Neg(budget)
	result, _ := neg.Float64()
	return int(result), nil
}
