package ring

import (
	"math/big"
	"math/bits"
)

// MForm switches a coefficient into the Montgomery domain by computing
// a*2^64 mod q. Used to precompute NTT twiddle factors (ring/context.go's
// nttPsi/nttPsiInv tables), so the NTT butterflies that consume them can
// use MRedConstant in place of a full Barrett product. bfv/context.go also
// stores a Montgomery-form Delta (ctx.deltaMont) built with it, which no
// other code reads; plaintext scaling multiplies by the plain Delta.
func MForm(a, q uint64, u []uint64) (r uint64) {
	mhi, _ := bits.Mul64(a, u[1])
	r = CRed(-(a*u[0]+mhi)*q, q)
	return
}

// MFormConstant switches a to the Montgomery domain by computing
// a*2^64 mod q in constant time.
// The result is between 0 and 2*q-1.
func MFormConstant(a, q uint64, u []uint64) (r uint64) {
	mhi, _ := bits.Mul64(a, u[1])
	r = -(a*u[0] + mhi) * q
	return
}

// InvMForm switches a coefficient out of the Montgomery domain by
// computing a*(1/2^64) mod q. ring/operations.go's Context.InvMForm uses
// this to hand a plain (non-Montgomery) residue back to callers that keep
// Montgomery-form polynomials as an internal optimization only.
func InvMForm(a, q, qInv uint64) (r uint64) {
	r, _ = bits.Mul64(a*qInv, q)
	r = CRed(q-r, q)
	return
}

// InvMFormConstant switches a from the Montgomery domain back to the
// standard domain by computing a*(1/2^64) mod q in constant time.
// The result is between 0 and 2*q-1.
func InvMFormConstant(a, q, qInv uint64) (r uint64) {
	r, _ = bits.Mul64(a*qInv, q)
	r = q - r
	return
}

// MRedParams computes the parameter qInv = (q^-1) mod 2^64,
// required for MRed.
func MRedParams(q uint64) (qInv uint64) {
	var x uint64
	qInv = 1
	x = q
	for i := 0; i < 63; i++ {
		qInv *= x
		qInv &= 0xFFFFFFFFFFFFFFFF
		x *= x
		x &= 0xFFFFFFFFFFFFFFFF
	}
	return
}

// MRed computes x * y * (1/2^64) mod q, both operands already in the
// Montgomery domain. ring/operations.go's MulCoeffsMontgomery family is
// built on this, and ring/ntt.go's inverse transform calls it once per
// coefficient for the final N^-1 scaling; the NTT butterflies themselves
// use MRedConstant.
func MRed(x, y, q, qInv uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	R := alo * qInv
	H, _ := bits.Mul64(R, q)
	r = CRed(ahi-H+q, q)
	return
}

// MRedConstant computes x * y * (1/2^64) mod q in constant time.
// The result is between 0 and 2*q-1.
func MRedConstant(x, y, q, qInv uint64) (r uint64) {
	ahi, alo := bits.Mul64(x, y)
	R := alo * qInv
	H, _ := bits.Mul64(R, q)
	r = ahi - H + q
	return
}

// BRedParams computes the parameters for the BRed algorithm.
// Returns ((2^128)/q)/(2^64) and (2^128)/q mod 2^64.
func BRedParams(q uint64) (params []uint64) {
	bigR := new(big.Int).Lsh(NewUint(1), 128)
	bigR.Quo(bigR, NewUint(q))

	// 2^radix // q
	mhi := new(big.Int).Rsh(bigR, 64).Uint64()
	mlo := bigR.Uint64()

	return []uint64{mhi, mlo}
}

// BRedAdd computes a mod q. bfv/keygen.go's scalePerPrime reduces each
// big.Int scalar residue through this before BRed-multiplying it into a
// polynomial's rows, one prime at a time.
func BRedAdd(x, q uint64, u []uint64) (r uint64) {
	s0, _ := bits.Mul64(x, u[0])
	r = CRed(x-s0*q, q)
	return
}

// BRedAddConstant computes a mod q in constant time.
// The result is between 0 and 2*q-1.
func BRedAddConstant(x, q uint64, u []uint64) uint64 {
	s0, _ := bits.Mul64(x, u[0])
	return x - s0*q
}

// BRed computes x*y mod q. This is the dyadic product every non-
// Montgomery ring multiply in bfv goes through: ring.Context.MulCoeffs
// (MultiplyPlain, MultiplyNew's tensor convolution, switchKeys' digit
// accumulation) calls it once per coefficient per prime.
func BRed(x, y, q uint64, u []uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	ahi, alo := bits.Mul64(x, y)

	// (alo*ulo)>>64

	lhi, _ = bits.Mul64(alo, u[1])

	// ((ahi*ulo + alo*uhi) + (alo*ulo))>>64

	mhi, mlo = bits.Mul64(alo, u[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, u[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	// (ahi*uhi) + (((ahi*ulo + alo*uhi) + (alo*ulo))>>64)

	s0 = ahi*u[0] + s1 + lhi

	r = CRed(alo-s0*q, q)

	return
}

// BRedConstant computes x*y mod q in constant time.
// The result is between 0 and 2*q-1.
func BRedConstant(x, y, q uint64, u []uint64) (r uint64) {

	var lhi, mhi, mlo, s0, s1, carry uint64

	ahi, alo := bits.Mul64(x, y)

	// alo*ulo

	lhi, _ = bits.Mul64(alo, u[1])

	// ahi*ulo + alo*uhi

	mhi, mlo = bits.Mul64(alo, u[0])

	s0, carry = bits.Add64(mlo, lhi, 0)

	s1 = mhi + carry

	mhi, mlo = bits.Mul64(ahi, u[1])

	_, carry = bits.Add64(mlo, s0, 0)

	lhi = mhi + carry

	// ahi*uhi

	s0 = ahi*u[0] + s1 + lhi

	r = alo - s0*q

	return
}

// CRed reduce returns a mod q where a is between 0 and 2*q-1.
func CRed(a, q uint64) uint64 {
	if a >= q {
		return a - q
	}
	return a
}
