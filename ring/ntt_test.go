package ring

import (
	"testing"
)

func newTestContext(t *testing.T, N uint64, q uint64) *Context {
	ctx := NewContext()
	if err := ctx.SetParameters(N, []uint64{q}); err != nil {
		t.Fatalf("SetParameters: %v", err)
	}
	if err := ctx.GenNTTParams(); err != nil {
		t.Fatalf("GenNTTParams: %v", err)
	}
	return ctx
}

// TestNTTRoundTrip checks inverse_ntt(ntt(a)) = a for a random polynomial,
// spec §8's "NTT round-trip" universal invariant.
func TestNTTRoundTrip(t *testing.T) {
	N := uint64(16)
	q := uint64(97) // 97 = 1 mod 32

	ctx := newTestContext(t, N, q)

	a := ctx.NewPoly()
	for i := range a.Coeffs[0] {
		a.Coeffs[0][i] = uint64(i*7+3) % q
	}

	transformed := ctx.NewPoly()
	ctx.NTT(a, transformed)

	back := ctx.NewPoly()
	ctx.InvNTT(transformed, back)

	if !a.Equal(back) {
		t.Fatalf("inverse_ntt(ntt(a)) != a:\n a=%v\n back=%v", a.Coeffs[0], back.Coeffs[0])
	}
}

// TestNTTConvolution checks inverse_ntt(ntt(a) * ntt(b)) equals the
// negacyclic schoolbook convolution of a and b mod (x^n+1, q), spec §8's
// "Convolution" universal invariant.
func TestNTTConvolution(t *testing.T) {
	N := uint64(8)
	q := uint64(97)

	ctx := newTestContext(t, N, q)

	a := ctx.NewPoly()
	b := ctx.NewPoly()
	for i := 0; i < int(N); i++ {
		a.Coeffs[0][i] = uint64(i + 1)
		b.Coeffs[0][i] = uint64((i + 2) % 5)
	}

	want := negacyclicConvolve(a.Coeffs[0], b.Coeffs[0], q)

	aNTT := ctx.NewPoly()
	bNTT := ctx.NewPoly()
	ctx.NTT(a, aNTT)
	ctx.NTT(b, bNTT)

	prodNTT := ctx.NewPoly()
	ctx.MulCoeffs(aNTT, bNTT, prodNTT)

	got := ctx.NewPoly()
	ctx.InvNTT(prodNTT, got)

	for i := range want {
		if got.Coeffs[0][i] != want[i] {
			t.Fatalf("convolution mismatch at %d: got %d want %d", i, got.Coeffs[0][i], want[i])
		}
	}
}

// negacyclicConvolve computes a*b mod (x^n+1, q) by schoolbook
// multiplication with negacyclic wraparound (coefficients that wrap past
// degree n-1 negate, since x^n = -1).
func negacyclicConvolve(a, b []uint64, q uint64) []uint64 {
	n := len(a)
	out := make([]int64, n)
	for i, av := range a {
		for j, bv := range b {
			prod := int64(MulModNaive(av, bv, q))
			k := i + j
			if k >= n {
				k -= n
				prod = -prod
			}
			out[k] += prod
		}
	}
	res := make([]uint64, n)
	for i, v := range out {
		v %= int64(q)
		if v < 0 {
			v += int64(q)
		}
		res[i] = uint64(v)
	}
	return res
}
