package ring

import (
	"testing"

	"github.com/montanaflynn/stats"
)

// TestKYSamplerStandardDeviation checks that the empirical standard
// deviation of a large batch of discrete-Gaussian draws is close to the
// configured sigma, following the teacher's practice of validating
// samplers statistically rather than against fixed output vectors (exact
// output depends on PRNG state, empirical moments don't).
func TestKYSamplerStandardDeviation(t *testing.T) {
	N := uint64(1 << 12)
	q := uint64(0xffffffffffc0001) // a 60-bit NTT-friendly prime

	ctx := NewContext()
	if err := ctx.SetParameters(N, []uint64{q}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}

	prng, err := NewKeyedPRNG(nil)
	if err != nil {
		t.Fatalf("NewKeyedPRNG: %v", err)
	}

	sigma := 3.2
	sampler := NewKYSampler(prng, ctx, sigma, int(6*sigma))

	samples := make([]float64, 0, N)
	for pass := 0; pass < 4; pass++ {
		p := sampler.ReadNew()
		for _, c := range p.Coeffs[0] {
			v := float64(c)
			if c > q/2 {
				v = float64(c) - float64(q)
			}
			samples = append(samples, v)
		}
	}

	sd, err := stats.StandardDeviation(samples)
	if err != nil {
		t.Fatalf("StandardDeviation: %v", err)
	}

	if sd < sigma*0.8 || sd > sigma*1.2 {
		t.Fatalf("empirical standard deviation %f too far from configured sigma %f", sd, sigma)
	}
}
