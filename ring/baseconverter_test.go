package ring

import "testing"

// TestBaseConverterRoundTrip checks that converting a base-q polynomial
// into Bsk and back via FastBConvSK recovers the original values exactly,
// the correctness property the BFV tensor-product pipeline depends on.
func TestBaseConverterRoundTrip(t *testing.T) {
	N := 8
	q := []uint64{17, 97}
	tmod := uint64(3)

	bc, err := NewBaseConverter(q, tmod, N)
	if err != nil {
		t.Fatalf("NewBaseConverter: %v", err)
	}

	input := make([][]uint64, len(q))
	for i, qi := range q {
		input[i] = make([]uint64, N)
		for j := range input[i] {
			input[i][j] = uint64(j*3+i+1) % qi
		}
	}

	bsk := bc.FastBConvToBsk(input)
	back := bc.FastBConvSK(bsk)

	for i, qi := range q {
		for j := range input[i] {
			want := input[i][j] % qi
			if back[i][j] != want {
				t.Fatalf("round trip mismatch at prime %d coeff %d: got %d want %d", i, j, back[i][j], want)
			}
		}
	}
}

// TestBaseConverterNTTFriendlyBsk checks that every prime chosen for Bsk
// (and for mTilde/gamma) is congruent to 1 mod 2N, the property
// bfv.Context relies on to run the NTT in base Bsk during multiply.
func TestBaseConverterNTTFriendlyBsk(t *testing.T) {
	N := 8
	q := []uint64{17}
	tmod := uint64(3)

	bc, err := NewBaseConverter(q, tmod, N)
	if err != nil {
		t.Fatalf("NewBaseConverter: %v", err)
	}

	nthRoot := uint64(2 * N)
	for _, p := range bc.Bsk() {
		if p%nthRoot != 1 {
			t.Fatalf("Bsk prime %d is not congruent to 1 mod %d", p, nthRoot)
		}
	}
	if bc.Gamma()%nthRoot != 1 {
		t.Fatalf("gamma %d is not congruent to 1 mod %d", bc.Gamma(), nthRoot)
	}
}
