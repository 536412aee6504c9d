package ring

import "testing"

// TestBRedCorrectness checks Barrett multiplication against schoolbook
// big.Int modular multiplication, spec §8's "Barrett correctness"
// universal invariant.
func TestBRedCorrectness(t *testing.T) {
	q := uint64(0xffffffffffc0001) // 60-bit NTT-friendly prime
	u := BRedParams(q)

	cases := []struct{ x, y uint64 }{
		{0, 0},
		{1, 1},
		{q - 1, q - 1},
		{12345, 6789},
		{q - 1, 1},
		{q / 2, q/2 + 1},
	}
	for _, c := range cases {
		got := BRed(c.x, c.y, q, u)
		want := MulModNaive(c.x, c.y, q)
		if got != want {
			t.Fatalf("BRed(%d,%d,%d) = %d, want %d", c.x, c.y, q, got, want)
		}
	}
}

// TestBRedAddCorrectness checks Barrett reduction of a single value against
// schoolbook reduction.
func TestBRedAddCorrectness(t *testing.T) {
	q := uint64(97)
	u := BRedParams(q)

	for x := uint64(0); x < 4*q; x++ {
		got := BRedAdd(x, q, u)
		want := x % q
		if got != want {
			t.Fatalf("BRedAdd(%d,%d) = %d, want %d", x, q, got, want)
		}
	}
}

// TestMRedCorrectness checks Montgomery multiplication round-trips through
// MForm/InvMForm consistently with schoolbook modular multiplication.
func TestMRedCorrectness(t *testing.T) {
	q := uint64(0xffffffffffc0001)
	bred := BRedParams(q)
	mredParam := MRedParams(q)

	a, b := uint64(123456789), uint64(987654321)
	aMont := MForm(a, q, bred)
	bMont := MForm(b, q, bred)

	prodMont := MRed(aMont, bMont, q, mredParam)
	got := InvMForm(prodMont, q, mredParam)
	want := MulModNaive(a, b, q)
	if got != want {
		t.Fatalf("MRed round trip = %d, want %d", got, want)
	}
}
