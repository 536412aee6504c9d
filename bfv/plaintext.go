package bfv

import (
	"math/big"

	"github.com/drakeword/gobfv/ring"
)

// Plaintext is a polynomial in Z_t[x]/(x^n+1): a single RNS-less residue
// polynomial over the plaintext modulus t, mirroring the teacher's
// bfv.Plaintext (plaintext.go), minus the BigPoly abstraction the teacher
// shares with Ciphertext (folded here into one small struct since BFV
// plaintexts never grow past degree 0).
type Plaintext struct {
	value       *ring.Poly
	isNTT       bool
	fingerprint [16]byte
}

// NewPlaintext allocates a zero plaintext tagged with ctx's fingerprint.
func (ctx *Context) NewPlaintext() *Plaintext {
	return &Plaintext{
		value:       ring.NewPoly(int(ctx.n), 0),
		fingerprint: ctx.params.Fingerprint(),
	}
}

// Value returns the plaintext's single backing residue polynomial.
func (p *Plaintext) Value() *ring.Poly { return p.value }

// Fingerprint returns the parameter fingerprint this plaintext was built
// under.
func (p *Plaintext) Fingerprint() [16]byte { return p.fingerprint }

// SetCoefficients sets the plaintext's coefficients (each reduced mod t),
// one residue row since a Plaintext carries a single non-RNS polynomial
// over t alone.
func (p *Plaintext) SetCoefficients(ctx *Context, coeffs []uint64) {
	row := p.value.Coeffs[0]
	for i, c := range coeffs {
		row[i] = c % ctx.t
	}
}

// Coefficients returns a copy of the plaintext's coefficients mod t.
func (p *Plaintext) Coefficients() []uint64 {
	out := make([]uint64, len(p.value.Coeffs[0]))
	copy(out, p.value.Coeffs[0])
	return out
}

// plaintextLift scales p's coefficients by Delta = floor(Q/t) and expands
// them into the full RNS base q, writing the result into dst (already
// allocated at ctx.contextQ's level). Uses the fast per-prime path (spec
// §4.6 step 3 / §9 "Fast-plain-lift flag"): valid only when
// ctx.Params().EnableFastPlainLift() is true.
func (ctx *Context) plaintextLift(p *Plaintext, dst *ring.Poly) {
	half := ctx.t / 2
	src := p.value.Coeffs[0]
	for i, qi := range ctx.contextQ.Modulus {
		deltai := ctx.delta[i]
		inc := ctx.upperHalfIncrement[i]
		row := dst.Coeffs[i]
		for j, m := range src {
			v := ring.MulModNaive(deltai, m, qi)
			if m > half {
				v = (v + inc) % qi
			}
			row[j] = v
		}
	}
}

// plaintextLiftExact is the always-correct counterpart of plaintextLift: it
// treats each plaintext coefficient as a signed representative in
// (-t/2, t/2] and multiplies by the full big.Int Delta before reducing into
// each qi, rather than relying on t < min(qi). Used when
// EnableFastPlainLift is false.
func (ctx *Context) plaintextLiftExact(p *Plaintext, dst *ring.Poly) {
	half := ctx.t / 2
	src := p.value.Coeffs[0]
	v := new(big.Int)
	prod := new(big.Int)
	for i, qi := range ctx.contextQ.Modulus {
		qiBig := ring.NewUint(qi)
		row := dst.Coeffs[i]
		for j, m := range src {
			if m <= half {
				v.SetUint64(m)
			} else {
				v.SetInt64(int64(m) - int64(ctx.t))
			}
			prod.Mul(ctx.deltaBig, v)
			prod.Mod(prod, qiBig)
			row[j] = prod.Uint64()
		}
	}
}

// Lift writes the RNS-base-q scaling of p into dst, dispatching to the fast
// or exact path per the Context's qualifier, following spec §9's rule:
// "choose at Context build time and never mix."
func (ctx *Context) Lift(p *Plaintext, dst *ring.Poly) {
	if ctx.params.EnableFastPlainLift() {
		ctx.plaintextLift(p, dst)
	} else {
		ctx.plaintextLiftExact(p, dst)
	}
}
