package ring

// GenGaloisParams returns the N/2 Galois elements gen^0, gen^1, ..., gen^(N/2-1)
// mod 2N generating the "rotate columns left" subgroup used for batched
// slot rotations, following the teacher's ring_galois.go GenGaloisParams.
func GenGaloisParams(n, gen uint64) (galEl []uint64) {
	mask := (n << 1) - 1
	galEl = make([]uint64, n>>1)
	galEl[0] = 1
	for i := uint64(1); i < n>>1; i++ {
		galEl[i] = (galEl[i-1] * gen) & mask
	}
	return
}

// PermuteNTTIndex computes, for the automorphism X -> X^gen (gen odd, taken
// mod 2N), the index permutation mapping slot i of an NTT-domain polynomial
// to slot PermuteNTTIndex(...)[i] of the rotated polynomial -- i.e. the
// permutation induced on NTT-domain coefficients by the ring automorphism,
// since in NTT form a Galois automorphism acts as a permutation of
// evaluation points rather than a coefficient-domain substitution.
func PermuteNTTIndex(gen, N uint64) (index []uint64) {
	index = make([]uint64, N)
	mask := (N << 1) - 1
	logN := uint64(0)
	for (uint64(1) << logN) < N {
		logN++
	}
	for i := uint64(0); i < N; i++ {
		reversed := bitReverse64(i, logN)
		// exponent of X at bit-reversed position 2*reversed+1, permuted by gen
		idxG := (gen * (2*reversed + 1)) & mask
		index[i] = bitReverse64((idxG-1)>>1, logN)
	}
	return
}

// PermuteNTTWithIndex applies a precomputed index permutation (from
// PermuteNTTIndex) to an NTT-domain polynomial polIn, writing the result to
// polOut.
func (context *Context) PermuteNTTWithIndex(polIn *Poly, index []uint64, polOut *Poly) {
	for i := range context.Modulus {
		a, b := polIn.Coeffs[i], polOut.Coeffs[i]
		for j, idx := range index {
			b[j] = a[idx]
		}
	}
}

// PermuteNTTWithIndexAndAddNoMod applies the permutation and accumulates
// into polOut without reducing mod Qi, for the key-switch accumulation loop
// in apply_galois.
func (context *Context) PermuteNTTWithIndexAndAddNoMod(polIn *Poly, index []uint64, polOut *Poly) {
	for i := range context.Modulus {
		a, b := polIn.Coeffs[i], polOut.Coeffs[i]
		for j, idx := range index {
			b[j] += a[idx]
		}
	}
}

// Permute applies the coefficient-domain automorphism X -> X^gen to polIn,
// writing the result to polOut. Used outside of NTT form (e.g. to rotate a
// plaintext polynomial directly).
func (context *Context) Permute(polIn *Poly, gen uint64, polOut *Poly) {
	N := context.N
	mask := (N << 1) - 1
	for i, qi := range context.Modulus {
		a, b := polIn.Coeffs[i], polOut.Coeffs[i]
		for j := uint64(0); j < N; j++ {
			idx := (j * gen) & mask
			sign := uint64(0)
			if idx >= N {
				sign = 1
				idx -= N
			}
			v := a[j]
			if sign == 1 && v != 0 {
				v = qi - v
			}
			b[idx] = v
		}
	}
}
