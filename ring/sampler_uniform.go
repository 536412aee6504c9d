package ring

// UniformSampler draws polynomials with coefficients uniform over [0, Qi)
// for every modulus, by rejection-sampling masked PRNG words. Used to
// derive the public "a" component of a key pair / relinearization key from
// a shared seed (spec section on Context/key material).
type UniformSampler struct {
	prng    PRNG
	context *Context
}

// NewUniformSampler returns a sampler drawing from prng over context's
// moduli.
func NewUniformSampler(prng PRNG, context *Context) *UniformSampler {
	return &UniformSampler{prng: prng, context: context}
}

// Read samples a fresh uniform polynomial into pol.
func (s *UniformSampler) Read(pol *Poly) {
	for i, qi := range s.context.Modulus {
		mask := s.context.Mask[i]
		c := pol.Coeffs[i]
		for j := range c {
			v := randomUint64(s.prng, mask)
			for v >= qi {
				v = randomUint64(s.prng, mask)
			}
			c[j] = v
		}
	}
}

// ReadNew allocates and returns a fresh uniform polynomial.
func (s *UniformSampler) ReadNew() *Poly {
	pol := s.context.NewPoly()
	s.Read(pol)
	return pol
}
