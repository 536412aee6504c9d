package ring

// Add computes p3 = p1 + p2 mod Qi, coefficient-wise over every modulus.
func (context *Context) Add(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = CRed(a[j]+b[j], qi)
		}
	}
}

// AddNoMod computes p3 = p1 + p2 without reducing mod Qi; the caller must
// ensure the sum does not overflow or must Reduce before further use.
func (context *Context) AddNoMod(p1, p2, p3 *Poly) {
	for i := range context.Modulus {
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = a[j] + b[j]
		}
	}
}

// Sub computes p3 = p1 - p2 mod Qi.
func (context *Context) Sub(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = CRed(a[j]+qi-b[j], qi)
		}
	}
}

// Neg computes p2 = -p1 mod Qi.
func (context *Context) Neg(p1, p2 *Poly) {
	for i, qi := range context.Modulus {
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		for j := range b {
			if a[j] == 0 {
				b[j] = 0
			} else {
				b[j] = qi - a[j]
			}
		}
	}
}

// Reduce computes p2 = p1 mod Qi using Barrett reduction, for inputs that
// may be as large as the full uint64 range.
func (context *Context) Reduce(p1, p2 *Poly) {
	for i, qi := range context.Modulus {
		bred := context.BredParams[i]
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		for j := range b {
			b[j] = BRedAdd(a[j], qi, bred)
		}
	}
}

// MulScalar computes p2 = p1 * scalar mod Qi.
func (context *Context) MulScalar(p1 *Poly, scalar uint64, p2 *Poly) {
	for i, qi := range context.Modulus {
		bred := context.BredParams[i]
		s := BRedAdd(scalar, qi, bred)
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		for j := range b {
			b[j] = BRed(a[j], s, qi, bred)
		}
	}
}

// MulCoeffs computes p3 = p1 * p2 mod Qi using Barrett reduction
// (dyadic/coefficient-wise product, the polynomial multiplication step once
// both operands are in NTT form).
func (context *Context) MulCoeffs(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		bred := context.BredParams[i]
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = BRed(a[j], b[j], qi, bred)
		}
	}
}

// MulCoeffsAndAdd computes p3 += p1 * p2 mod Qi.
func (context *Context) MulCoeffsAndAdd(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		bred := context.BredParams[i]
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = CRed(c[j]+BRed(a[j], b[j], qi, bred), qi)
		}
	}
}

// MulCoeffsMontgomery computes p3 = p1 * p2 * 2^-64 mod Qi, i.e. a dyadic
// product where one operand is expected to already carry a Montgomery
// factor (the usual convention: NTT tables are stored in Montgomery form,
// so multiplying against them needs this form to cancel it back out).
func (context *Context) MulCoeffsMontgomery(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		mred := context.MredParams[i]
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = MRed(a[j], b[j], qi, mred)
		}
	}
}

// MulCoeffsMontgomeryAndAdd computes p3 += p1 * p2 * 2^-64 mod Qi.
func (context *Context) MulCoeffsMontgomeryAndAdd(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		mred := context.MredParams[i]
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] = CRed(c[j]+MRed(a[j], b[j], qi, mred), qi)
		}
	}
}

// MulCoeffsMontgomeryAndAddNoMod computes p3 += p1*p2*2^-64 without a final
// reduction, for use in the key-switch accumulation loop (spec section on
// relinearization) which periodically reduces every few iterations instead
// of on every term, exactly as the teacher's evaluator.switchKeys does.
func (context *Context) MulCoeffsMontgomeryAndAddNoMod(p1, p2, p3 *Poly) {
	for i, qi := range context.Modulus {
		mred := context.MredParams[i]
		a, b, c := p1.Coeffs[i], p2.Coeffs[i], p3.Coeffs[i]
		for j := range c {
			c[j] += MRed(a[j], b[j], qi, mred)
		}
	}
}

// MForm switches p1 into the Montgomery domain, per modulus.
func (context *Context) MForm(p1, p2 *Poly) {
	for i, qi := range context.Modulus {
		bred := context.BredParams[i]
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		for j := range b {
			b[j] = MForm(a[j], qi, bred)
		}
	}
}

// InvMForm switches p1 out of the Montgomery domain, per modulus.
func (context *Context) InvMForm(p1, p2 *Poly) {
	for i, qi := range context.Modulus {
		mred := context.MredParams[i]
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		for j := range b {
			b[j] = InvMForm(a[j], qi, mred)
		}
	}
}

// Shift cyclically left-shifts the coefficients of p1 by k positions,
// writing the result (with sign flips for the wrapped terms, since the
// ring is negacyclic x^N = -1) to p2.
func (context *Context) Shift(k int, p1, p2 *Poly) {
	N := int(context.N)
	k = ((k % N) + N) % N
	for i, qi := range context.Modulus {
		a, b := p1.Coeffs[i], p2.Coeffs[i]
		tmp := make([]uint64, N)
		for j := 0; j < N; j++ {
			dst := (j + k) % N
			v := a[j]
			if j+k >= N {
				if v != 0 {
					v = qi - v
				}
			}
			tmp[dst] = v
		}
		copy(b, tmp)
	}
}
