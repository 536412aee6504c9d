package ring

import "math"

// KYSampler draws discrete-Gaussian-distributed polynomials by rejection
// sampling against a precomputed cumulative probability matrix, the
// Karney-Yao-style approach the teacher's ring.KYSampler (sampler.go)
// implements: for each coefficient, draw random bytes and walk the
// bound+1-row matrix until a bucket is accepted, with the final row's sign
// bit deciding positive/negative.
type KYSampler struct {
	context *Context
	sigma   float64
	bound   int
	prng    PRNG
	matrix  [][]uint8
}

// NewKYSampler returns a Gaussian sampler with standard deviation sigma,
// truncated at bound, an absolute limit on |value| (BFV passes
// int(6*sigma), per spec's noise distribution).
func NewKYSampler(prng PRNG, context *Context, sigma float64, bound int) *KYSampler {
	k := &KYSampler{context: context, sigma: sigma, bound: bound, prng: prng}
	k.matrix = computeMatrix(sigma, bound)
	return k
}

func computeMatrix(sigma float64, bound int) [][]uint8 {
	g := make([]float64, bound+1)
	g[0] = gaussian(0, sigma)
	norm := g[0]
	for i := 1; i < bound+1; i++ {
		g[i] = gaussian(float64(i), sigma)
		norm += 2 * g[i]
	}
	for i := range g {
		g[i] /= norm
	}

	M := make([][]uint8, bound+1)
	for i := range M {
		M[i] = make([]uint8, 64)
		x := g[i]
		for j := 0; j < 64; j++ {
			x *= 2
			if x >= 1 {
				M[i][j] = 1
				x--
			} else {
				M[i][j] = 0
			}
		}
	}
	return M
}

func gaussian(x, sigma float64) float64 {
	return math.Exp(-(x * x) / (2 * sigma * sigma))
}

// Read samples a fresh discrete-Gaussian polynomial into pol, coefficients
// in the signed range [-bound, bound], reduced independently mod each Qi.
func (s *KYSampler) Read(pol *Poly) {
	N := int(s.context.N)
	values := make([]int64, N)
	buf := make([]byte, N) // one random byte per coefficient seeds the walk
	if _, err := s.prng.Read(buf); err != nil {
		panic(err)
	}
	for j := 0; j < N; j++ {
		values[j] = s.sampleOne(buf[j])
	}
	for i, qi := range s.context.Modulus {
		c := pol.Coeffs[i]
		for j := 0; j < N; j++ {
			v := values[j] % int64(qi)
			if v < 0 {
				v += int64(qi)
			}
			c[j] = uint64(v)
		}
	}
}

// sampleOne draws one discrete-Gaussian integer using the precomputed
// probability matrix, via rejection against fresh random bits read from the
// sampler's PRNG stream (seedByte only perturbs the starting row so repeat
// calls within one Read don't all draw identical bit streams).
func (s *KYSampler) sampleOne(seedByte byte) int64 {
	for {
		var randBytes [8]byte
		if _, err := s.prng.Read(randBytes[:]); err != nil {
			panic(err)
		}
		row := int(seedByte) % (s.bound + 1)
		col := 0
		accept := false
		for bitIdx := 0; bitIdx < 64; bitIdx++ {
			bit := (randBytes[bitIdx/8] >> uint(bitIdx%8)) & 1
			if bit <= s.matrix[row][col] {
				accept = true
				break
			}
			col++
			if col == 64 {
				break
			}
		}
		if accept {
			sign := randBytes[7] & 1
			if sign == 1 && row != 0 {
				return -int64(row)
			}
			return int64(row)
		}
	}
}

// ReadNew allocates and returns a fresh discrete-Gaussian polynomial.
func (s *KYSampler) ReadNew() *Poly {
	pol := s.context.NewPoly()
	s.Read(pol)
	return pol
}
