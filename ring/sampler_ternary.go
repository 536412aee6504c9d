package ring

// TernarySampler draws polynomials with coefficients in {-1, 0, 1}, each
// nonzero value equally likely and the zero probability configurable via p,
// the secret-key distribution BFV uses (spec's "ternary" secret). Mirrors
// the teacher's ring.TernarySampler (sampler_ternary.go) rejection-sampling
// approach: draw a uniform 63-bit word per coefficient and bucket it against
// two thresholds derived from p.
type TernarySampler struct {
	prng         PRNG
	context      *Context
	thresholdPos uint64
	thresholdNeg uint64
	montgomery   bool
}

// NewTernarySampler returns a ternary sampler with zero-probability p
// (e.g. p=1/3 for a "balanced" ternary secret, nonzero values split evenly
// over the remaining 1-p mass). If montgomery is true, sampled coefficients
// are produced directly in Montgomery form.
func NewTernarySampler(prng PRNG, context *Context, p float64, montgomery bool) *TernarySampler {
	ts := &TernarySampler{prng: prng, context: context, montgomery: montgomery}
	nonZero := 1 - p
	const word = float64(uint64(1) << 63)
	ts.thresholdPos = uint64(nonZero / 2 * word)
	ts.thresholdNeg = uint64(nonZero * word)
	return ts
}

// Read samples a fresh ternary polynomial into pol. The same {-1,0,1}
// choice is reduced independently modulo every Qi (and optionally switched
// to Montgomery form) so the polynomial is consistent across the RNS base.
func (ts *TernarySampler) Read(pol *Poly) {
	N := int(ts.context.N)
	signs := make([]int8, N)
	for j := 0; j < N; j++ {
		v := randomUint64(ts.prng, 1<<63-1)
		switch {
		case v < ts.thresholdPos:
			signs[j] = 1
		case v < ts.thresholdNeg:
			signs[j] = -1
		default:
			signs[j] = 0
		}
	}

	for i, qi := range ts.context.Modulus {
		bred := ts.context.BredParams[i]
		c := pol.Coeffs[i]
		for j := 0; j < N; j++ {
			switch signs[j] {
			case 1:
				c[j] = 1
			case -1:
				c[j] = qi - 1
			default:
				c[j] = 0
			}
			if ts.montgomery && c[j] != 0 {
				c[j] = MForm(c[j], qi, bred)
			}
		}
	}
}

// ReadNew allocates and returns a fresh ternary polynomial.
func (ts *TernarySampler) ReadNew() *Poly {
	pol := ts.context.NewPoly()
	ts.Read(pol)
	return pol
}
