package bfv

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// testParams mirrors spec §8's end-to-end scenarios: n=8, single-prime base
// q={17} (17 = 1 mod 16), t=3.
var testParams = ParametersLiteral{
	LogN:  3,
	Qi:    []uint64{17},
	T:     3,
	Sigma: 3.2,
	W:     4,
}

// testParamsBatching mirrors scenario 5: t upgraded to 17 so t ≡ 1 mod 16.
var testParamsBatching = ParametersLiteral{
	LogN:  3,
	Qi:    []uint64{17},
	T:     17,
	Sigma: 3.2,
	W:     4,
}

func newTestContext(t *testing.T, lit ParametersLiteral) (*Context, *SecretKey, *PublicKey, *KeyGenerator) {
	params, err := NewParametersFromLiteral(lit)
	require.NoError(t, err)

	ctx, err := NewContext(params)
	require.NoError(t, err)

	kg, err := NewKeyGenerator(ctx)
	require.NoError(t, err)

	sk := kg.GenSecretKey()
	pk := kg.GenPublicKey(sk)

	return ctx, sk, pk, kg
}

func encryptCoeffs(t *testing.T, ctx *Context, enc *Encryptor, coeffs []uint64) *Ciphertext {
	pt := ctx.NewPlaintext()
	full := make([]uint64, ctx.N())
	copy(full, coeffs)
	pt.SetCoefficients(ctx, full)
	ct, err := enc.EncryptNew(pt)
	require.NoError(t, err)
	return ct
}

func decryptCoeffs(t *testing.T, dec *Decryptor, ct *Ciphertext) []uint64 {
	pt, err := dec.Decrypt(ct)
	require.NoError(t, err)
	return pt.Coefficients()
}

// Scenario 1: round-trip.
func TestRoundTrip(t *testing.T) {
	ctx, sk, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 2})
	got := decryptCoeffs(t, dec, ct)
	require.Equal(t, uint64(1), got[0])
	require.Equal(t, uint64(2), got[1])
	for _, c := range got[2:] {
		require.Equal(t, uint64(0), c)
	}
}

// Scenario 2: add.
func TestAdd(t *testing.T) {
	ctx, sk, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	ct1 := encryptCoeffs(t, ctx, enc, []uint64{1})
	ct2 := encryptCoeffs(t, ctx, enc, []uint64{2})

	sum, err := eval.Add(ct1, ct2)
	require.NoError(t, err)

	got := decryptCoeffs(t, dec, sum)
	require.Equal(t, uint64(0), got[0])
}

// Scenario 3: multiply then relinearize.
func TestMultiplyRelinearize(t *testing.T) {
	ctx, sk, pk, kg := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	evk, err := kg.GenRelinearizationKey(sk, 3)
	require.NoError(t, err)

	ct1 := encryptCoeffs(t, ctx, enc, []uint64{2, 1})
	ct2 := encryptCoeffs(t, ctx, enc, []uint64{1})

	prod, err := eval.MultiplyNew(ct1, ct2)
	require.NoError(t, err)
	require.Equal(t, 3, prod.Size())

	relin, err := eval.Relinearize(prod, evk)
	require.NoError(t, err)
	require.Equal(t, 2, relin.Size())

	got := decryptCoeffs(t, dec, relin)
	require.Equal(t, uint64(2), got[0])
	require.Equal(t, uint64(1), got[1])
}

// Scenario 4: plain multiply.
func TestMultiplyPlain(t *testing.T) {
	ctx, sk, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 1})

	pt := ctx.NewPlaintext()
	coeffs := make([]uint64, ctx.N())
	coeffs[0] = 2
	pt.SetCoefficients(ctx, coeffs)

	prod, err := eval.MultiplyPlain(ct, pt)
	require.NoError(t, err)

	got := decryptCoeffs(t, dec, prod)
	require.Equal(t, uint64(2), got[0])
	require.Equal(t, uint64(2), got[1])
}

// MultiplyPlain by an all-zero plaintext must be refused.
func TestMultiplyPlainZeroRefused(t *testing.T) {
	ctx, _, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1})
	zero := ctx.NewPlaintext()

	_, err = eval.MultiplyPlain(ct, zero)
	require.Error(t, err)
	var berr *Error
	require.ErrorAs(t, err, &berr)
	require.Equal(t, PlainIsZero, berr.Kind)
}

// Scenario 5 (adapted): with an Encoder out of scope, RotateRows is
// verified as an involution -- applying it twice returns the original
// ciphertext's plaintext -- which is the structural guarantee spec §8's
// "Galois/rotation" universal invariant actually requires.
func TestRotateRowsInvolution(t *testing.T) {
	ctx, sk, pk, kg := newTestContext(t, testParamsBatching)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	gks := kg.GenGaloisKeySet(sk)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 2, 3, 4})

	once, err := eval.RotateRows(ct, gks)
	require.NoError(t, err)
	twice, err := eval.RotateRows(once, gks)
	require.NoError(t, err)

	original := decryptCoeffs(t, dec, ct)
	roundTrip := decryptCoeffs(t, dec, twice)
	require.Equal(t, original, roundTrip)
}

// RotateColumns by 1 followed by RotateColumns by -1 is the identity
// (spec §8's "Galois/rotation" invariant).
func TestRotateColumnsRoundTrip(t *testing.T) {
	ctx, sk, pk, kg := newTestContext(t, testParamsBatching)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	gks := kg.GenGaloisKeySet(sk)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 2, 3, 4})

	rotated, err := eval.RotateColumns(ct, 1, gks)
	require.NoError(t, err)
	back, err := eval.RotateColumns(rotated, -1, gks)
	require.NoError(t, err)

	original := decryptCoeffs(t, dec, ct)
	roundTrip := decryptCoeffs(t, dec, back)
	require.Equal(t, original, roundTrip)
}

// Scenario 6: noise budget monotone decrease after multiply.
func TestNoiseBudgetMonotone(t *testing.T) {
	ctx, sk, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	ct1 := encryptCoeffs(t, ctx, enc, []uint64{1})
	ct2 := encryptCoeffs(t, ctx, enc, []uint64{1})

	before1, err := dec.InvariantNoiseBudget(ct1)
	require.NoError(t, err)
	before2, err := dec.InvariantNoiseBudget(ct2)
	require.NoError(t, err)

	prod, err := eval.MultiplyNew(ct1, ct2)
	require.NoError(t, err)

	after, err := dec.InvariantNoiseBudget(prod)
	require.NoError(t, err)

	require.LessOrEqual(t, after, before1-1)
	require.LessOrEqual(t, after, before2-1)
}

// Relinearization idempotence: a size-2 ciphertext relinearizes to itself.
func TestRelinearizeIdempotentOnSizeTwo(t *testing.T) {
	ctx, sk, pk, kg := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	evk, err := kg.GenRelinearizationKey(sk, 3)
	require.NoError(t, err)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 2})
	relin, err := eval.Relinearize(ct, evk)
	require.NoError(t, err)
	require.Equal(t, 2, relin.Size())

	got := decryptCoeffs(t, dec, relin)
	want := decryptCoeffs(t, dec, ct)
	require.Equal(t, want, got)
}

// Fingerprint stability: a round trip through marshal/unmarshal preserves
// the fingerprint.
func TestFingerprintStability(t *testing.T) {
	ctx, _, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)

	ct := encryptCoeffs(t, ctx, enc, []uint64{1, 2})

	data, err := ct.MarshalBinary()
	require.NoError(t, err)

	var round Ciphertext
	require.NoError(t, round.UnmarshalBinary(data))
	require.Equal(t, ct.Fingerprint(), round.Fingerprint())
}

// Add is associative up to decryption: (ct1+ct2)+ct3 and ct1+(ct2+ct3)
// must decrypt to identical coefficient slices. Uses go-cmp rather than
// require.Equal so a mismatch prints a structural diff instead of just
// the two full slices.
func TestAddAssociative(t *testing.T) {
	ctx, sk, pk, _ := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	ct1 := encryptCoeffs(t, ctx, enc, []uint64{1})
	ct2 := encryptCoeffs(t, ctx, enc, []uint64{1})
	ct3 := encryptCoeffs(t, ctx, enc, []uint64{1})

	left12, err := eval.Add(ct1, ct2)
	require.NoError(t, err)
	left, err := eval.Add(left12, ct3)
	require.NoError(t, err)

	right23, err := eval.Add(ct2, ct3)
	require.NoError(t, err)
	right, err := eval.Add(ct1, right23)
	require.NoError(t, err)

	got := decryptCoeffs(t, dec, left)
	want := decryptCoeffs(t, dec, right)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("associativity mismatch (-want +got):\n%s", diff)
	}
}

// Square's size-2 fast path must agree with the general MultiplyNew(c, c)
// path once both are relinearized.
func TestSquareMatchesMultiply(t *testing.T) {
	ctx, sk, pk, kg := newTestContext(t, testParams)
	enc, err := NewEncryptor(ctx, pk)
	require.NoError(t, err)
	dec, err := NewDecryptor(ctx, sk)
	require.NoError(t, err)
	eval := NewEvaluator(ctx)

	evk, err := kg.GenRelinearizationKey(sk, 3)
	require.NoError(t, err)

	ct := encryptCoeffs(t, ctx, enc, []uint64{2, 1})

	squared, err := eval.Square(ct)
	require.NoError(t, err)
	require.Equal(t, 3, squared.Size())
	squaredRelin, err := eval.Relinearize(squared, evk)
	require.NoError(t, err)

	multiplied, err := eval.MultiplyNew(ct, ct)
	require.NoError(t, err)
	multipliedRelin, err := eval.Relinearize(multiplied, evk)
	require.NoError(t, err)

	got := decryptCoeffs(t, dec, squaredRelin)
	want := decryptCoeffs(t, dec, multipliedRelin)
	require.Equal(t, want, got)
}

// A public key generated under one parameter set must be rejected by
// NewEncryptor for a context built from a different one, while
// NewDecryptor accepts the context's own secret key.
func TestFingerprintMismatchRejected(t *testing.T) {
	ctx1, sk1, _, _ := newTestContext(t, testParams)
	_, _, pk2, _ := newTestContext(t, testParamsBatching)

	enc2, err := NewEncryptor(ctx1, pk2)
	require.Error(t, err)
	require.Nil(t, enc2)

	dec1, err := NewDecryptor(ctx1, sk1)
	require.NoError(t, err)
	require.NotNil(t, dec1)
}
