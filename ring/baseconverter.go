package ring

import (
	"math/big"
)

// BaseConverter implements the RNS base-extension machinery of the "Full
// RNS Variant of FV" (Bajard-Eynard-Hasan-Zucca / Halevi-Polyakov-Shoup),
// ported field-for-field from Microsoft SEAL's seal/util/baseconverter.{h,cpp}
// (see original_source/SEAL). SEAL's legacy single-P BasisExtender (the
// teacher's ring_basis_extension.go) only ever extends across one auxiliary
// base; BFV's RNS multiplication needs the richer Bsk/m_tilde/gamma
// machinery this type provides, so the struct layout below mirrors SEAL's
// member list rather than the teacher's, while keeping the teacher's
// Go idiom of a plain precomputed-table struct with a constructor that does
// all the CRT precomputation once up front.
type BaseConverter struct {
	coeffCount int

	// base q: the ciphertext coefficient modulus
	coeffBase []uint64

	// auxiliary base B (|B|=k or k+1, decided by the FV-RNS inequality)
	auxBase []uint64

	// m_sk, appended to B to form Bsk
	mSk uint64

	// Bsk = B U {m_sk}
	bskBase []uint64

	mTilde uint64

	plainModulus uint64
	gamma        uint64

	// precomputed CRT constants, named as in baseconverter.h
	invCoeffBaseProductsModCoeffArray        []uint64 // (q/qi)^-1 mod qi
	mtildeInvCoeffBaseProductsModCoeffArray  []uint64 // (m_tilde * (q/qi)^-1) mod qi
	coeffBaseProductsModBsk                  [][]uint64 // (q/qi) mod Bsk_j, indexed [j][i]
	invAuxBaseProductsModAuxArray            []uint64 // (B/mi)^-1 mod mi
	auxBaseProductsModCoeffArray             [][]uint64 // (B/mi) mod qi, indexed [i][j]
	auxBaseProductsModMsk                    []uint64 // (B/mi) mod m_sk
	invAuxProductsModMsk                     uint64   // (prod B)^-1 mod m_sk
	invCoeffProductsModMtilde                uint64   // (prod q)^-1 mod m_tilde, see mont_rq
	invMtildeModBsk                          []uint64 // m_tilde^-1 mod Bsk_j
	coeffProductsModBsk                      []uint64 // q mod Bsk_j (used by MontRQ)
	negCoeffProductsModMsk                   uint64   // (-prod_q)^-1 mod m_sk; FastBConvSK uses invAuxProductsModMsk instead

	plainGammaBase                  []uint64 // {t, gamma}
	coeffProductsModPlainGamma       [][]uint64
	negInvCoeffProductsModPlainGamma []uint64
	invGammaModPlain                 uint64

	qBig *big.Int
}

// NewBaseConverter builds a BaseConverter for coefficient base coeffBase
// (the ciphertext modulus q, as distinct small primes) and plaintext
// modulus t, deriving B, m_sk, m_tilde and gamma automatically. N is the
// ring degree: every auxiliary prime is chosen congruent to 1 mod 2N so
// that a Context built over Bsk (or {t,gamma}) can still run the NTT
// during the tensor-product step of multiply, per spec's base-converter
// state ("An NTT-table per modulus in Bsk").
//
// The auxiliary base size follows SEAL's constructor exactly: B needs
// |B|=k extra primes where k is chosen so that the "FV-RNS inequality"
//
//	32 + bits(t) + sum(bits(qi)) >= 61*(k+1)
//
// no longer holds once k is increased -- i.e. B must be just large enough
// that q*B exceeds the tensor-product noise growth bound with margin.
func NewBaseConverter(coeffBase []uint64, plainModulus uint64, N int) (*BaseConverter, error) {

	bc := &BaseConverter{coeffBase: append([]uint64{}, coeffBase...), plainModulus: plainModulus}

	qBitLen := 0
	qBig := NewUint(1)
	for _, qi := range coeffBase {
		qBig.Mul(qBig, NewUint(qi))
	}
	bc.qBig = qBig
	qBitLen = qBig.BitLen()

	tBitLen := bitLen(plainModulus)

	// Find k: start at k=1 and grow until the inequality fails to hold,
	// i.e. until adding one more 61-bit prime to B comfortably covers q*t.
	k := 1
	for 32+tBitLen+qBitLen >= 61*(k+1) {
		k++
	}

	avoid := map[uint64]bool{}
	for _, qi := range coeffBase {
		avoid[qi] = true
	}

	nthRoot := uint64(2 * N)

	auxBase := make([]uint64, k)
	start := uint64(1) << 61
	for i := 0; i < k; i++ {
		p := nextNTTPrime(start, nthRoot, avoid)
		auxBase[i] = p
		avoid[p] = true
		start = p - nthRoot
	}
	bc.auxBase = auxBase

	bc.mTilde = nextNTTPrime(uint64(1)<<32, nthRoot, avoid)
	avoid[bc.mTilde] = true

	bc.mSk = nextNTTPrime(start, nthRoot, avoid)
	avoid[bc.mSk] = true

	bc.bskBase = append(append([]uint64{}, auxBase...), bc.mSk)

	bc.gamma = nextNTTPrime(start, nthRoot, avoid)
	avoid[bc.gamma] = true
	bc.plainGammaBase = []uint64{plainModulus, bc.gamma}

	bc.precompute()

	return bc, nil
}

func bitLen(v uint64) int {
	n := 0
	for v > 0 {
		v >>= 1
		n++
	}
	return n
}

// precompute fills every CRT table from coeffBase/auxBase/mSk/mTilde/gamma,
// following baseconverter.cpp's constructor section by section.
func (bc *BaseConverter) precompute() {
	n := len(bc.coeffBase)

	bc.invCoeffBaseProductsModCoeffArray = make([]uint64, n)
	bc.mtildeInvCoeffBaseProductsModCoeffArray = make([]uint64, n)
	bc.auxBaseProductsModCoeffArray = make([][]uint64, n)

	for i, qi := range bc.coeffBase {
		qOverQi := new(big.Int).Div(bc.qBig, NewUint(qi))
		qOverQiModQi := new(big.Int).Mod(qOverQi, NewUint(qi)).Uint64()
		bc.invCoeffBaseProductsModCoeffArray[i] = ModInverse(qOverQiModQi, qi)
		bc.mtildeInvCoeffBaseProductsModCoeffArray[i] = MulModNaive(bc.invCoeffBaseProductsModCoeffArray[i], bc.mTilde%qi, qi)
		bc.auxBaseProductsModCoeffArray[i] = make([]uint64, 0, len(bc.auxBase))
	}

	// B (auxiliary base, without m_sk) product constants
	bBig := NewUint(1)
	for _, mi := range bc.auxBase {
		bBig.Mul(bBig, NewUint(mi))
	}

	bc.invAuxBaseProductsModAuxArray = make([]uint64, len(bc.auxBase))
	for i, mi := range bc.auxBase {
		bOverMi := new(big.Int).Div(bBig, NewUint(mi))
		bOverMiModMi := new(big.Int).Mod(bOverMi, NewUint(mi)).Uint64()
		bc.invAuxBaseProductsModAuxArray[i] = ModInverse(bOverMiModMi, mi)
	}

	for i, qi := range bc.coeffBase {
		for _, mi := range bc.auxBase {
			bOverMi := new(big.Int).Div(bBig, NewUint(mi))
			bc.auxBaseProductsModCoeffArray[i] = append(bc.auxBaseProductsModCoeffArray[i], new(big.Int).Mod(bOverMi, NewUint(qi)).Uint64())
		}
	}

	bc.auxBaseProductsModMsk = make([]uint64, len(bc.auxBase))
	for i, mi := range bc.auxBase {
		bOverMi := new(big.Int).Div(bBig, NewUint(mi))
		bc.auxBaseProductsModMsk[i] = new(big.Int).Mod(bOverMi, NewUint(bc.mSk)).Uint64()
	}
	bc.invAuxProductsModMsk = ModInverse(new(big.Int).Mod(bBig, NewUint(bc.mSk)).Uint64(), bc.mSk)

	// coeff_base_products_mod_aux_bsk_array_[j][i] = (q/qi) mod Bsk_j
	bc.coeffBaseProductsModBsk = make([][]uint64, len(bc.bskBase))
	for j, mj := range bc.bskBase {
		bc.coeffBaseProductsModBsk[j] = make([]uint64, n)
		for i, qi := range bc.coeffBase {
			qOverQi := new(big.Int).Div(bc.qBig, NewUint(qi))
			bc.coeffBaseProductsModBsk[j][i] = new(big.Int).Mod(qOverQi, NewUint(mj)).Uint64()
		}
	}

	// coeff_products_all_mod_bsk: q mod Bsk_j, used by MontRQ
	bc.coeffProductsModBsk = make([]uint64, len(bc.bskBase))
	for j, mj := range bc.bskBase {
		bc.coeffProductsModBsk[j] = new(big.Int).Mod(bc.qBig, NewUint(mj)).Uint64()
	}

	// inv_mtilde_mod_bsk_array_
	bc.invMtildeModBsk = make([]uint64, len(bc.bskBase))
	for j, mj := range bc.bskBase {
		bc.invMtildeModBsk[j] = ModInverse(bc.mTilde%mj, mj)
	}

	bc.invCoeffProductsModMtilde = ModInverse(new(big.Int).Mod(bc.qBig, NewUint(bc.mTilde)).Uint64(), bc.mTilde)

	// (-prod_q)^-1 mod m_sk, the Shenoy-Kumaresan correction factor
	qModMsk := new(big.Int).Mod(bc.qBig, NewUint(bc.mSk)).Uint64()
	negQModMsk := (bc.mSk - qModMsk) % bc.mSk
	bc.negCoeffProductsModMsk = ModInverse(negQModMsk, bc.mSk)

	// {t, gamma} base constants
	bc.coeffProductsModPlainGamma = make([][]uint64, len(bc.plainGammaBase))
	bc.negInvCoeffProductsModPlainGamma = make([]uint64, len(bc.plainGammaBase))
	for j, mj := range bc.plainGammaBase {
		bc.coeffProductsModPlainGamma[j] = make([]uint64, n)
		for i, qi := range bc.coeffBase {
			qOverQi := new(big.Int).Div(bc.qBig, NewUint(qi))
			bc.coeffProductsModPlainGamma[j][i] = new(big.Int).Mod(qOverQi, NewUint(mj)).Uint64()
		}
		qModMj := new(big.Int).Mod(bc.qBig, NewUint(mj)).Uint64()
		bc.negInvCoeffProductsModPlainGamma[j] = ModInverse((mj-qModMj)%mj, mj)
	}
	bc.invGammaModPlain = ModInverse(bc.gamma%bc.plainModulus, bc.plainModulus)
}

// Bsk returns the auxiliary base B U {m_sk} this converter extends into.
func (bc *BaseConverter) Bsk() []uint64 { return bc.bskBase }

// MSk returns the special Shenoy-Kumaresan correction modulus.
func (bc *BaseConverter) MSk() uint64 { return bc.mSk }

// fastBConv implements SEAL's fastbconv: convert input (RNS over coeffBase)
// into Bsk, via y_i = input_i * (q/qi)^-1 mod qi, then for every target
// prime m_j: out_j = sum_i y_i * (q/qi mod m_j) mod m_j.
func (bc *BaseConverter) fastBConv(input [][]uint64, destBase []uint64, destProducts [][]uint64) [][]uint64 {
	n := len(bc.coeffBase)
	N := len(input[0])

	y := make([][]uint64, n)
	for i, qi := range bc.coeffBase {
		y[i] = make([]uint64, N)
		inv := bc.invCoeffBaseProductsModCoeffArray[i]
		for k := 0; k < N; k++ {
			y[i][k] = MulModNaive(input[i][k], inv, qi)
		}
	}

	out := make([][]uint64, len(destBase))
	for j, mj := range destBase {
		out[j] = make([]uint64, N)
		for k := 0; k < N; k++ {
			acc := new(big.Int)
			for i := range bc.coeffBase {
				acc.Add(acc, new(big.Int).Mul(NewUint(y[i][k]), NewUint(destProducts[j][i])))
			}
			out[j][k] = acc.Mod(acc, NewUint(mj)).Uint64()
		}
	}
	return out
}

// FastBConvToBsk converts a polynomial given in base q into base Bsk.
func (bc *BaseConverter) FastBConvToBsk(input [][]uint64) [][]uint64 {
	return bc.fastBConv(input, bc.bskBase, bc.coeffBaseProductsModBsk)
}

// FastBConvMTilde converts a polynomial given in base q into base
// Bsk U {m_tilde}, scaled by m_tilde -- SEAL's fastbconv_mtilde. The extra
// m_tilde factor removes the need for an exact (non-lazy) reduction at
// every coefficient of the subsequent mont_rq step.
func (bc *BaseConverter) FastBConvMTilde(input [][]uint64) (bsk [][]uint64, mTildeResidue []uint64) {
	n := len(bc.coeffBase)
	N := len(input[0])

	y := make([][]uint64, n)
	for i, qi := range bc.coeffBase {
		y[i] = make([]uint64, N)
		inv := bc.mtildeInvCoeffBaseProductsModCoeffArray[i]
		for k := 0; k < N; k++ {
			y[i][k] = MulModNaive(input[i][k], inv, qi)
		}
	}

	bsk = make([][]uint64, len(bc.bskBase))
	for j, mj := range bc.bskBase {
		bsk[j] = make([]uint64, N)
		for k := 0; k < N; k++ {
			acc := new(big.Int)
			for i := range bc.coeffBase {
				acc.Add(acc, new(big.Int).Mul(NewUint(y[i][k]), NewUint(bc.coeffBaseProductsModBsk[j][i])))
			}
			bsk[j][k] = acc.Mod(acc, NewUint(mj)).Uint64()
		}
	}

	mTildeResidue = make([]uint64, N)
	for k := 0; k < N; k++ {
		acc := new(big.Int)
		for i, qi := range bc.coeffBase {
			qOverQi := new(big.Int).Div(bc.qBig, NewUint(qi))
			prod := new(big.Int).Mod(qOverQi, NewUint(bc.mTilde))
			acc.Add(acc, new(big.Int).Mul(NewUint(y[i][k]), prod))
		}
		mTildeResidue[k] = acc.Mod(acc, NewUint(bc.mTilde)).Uint64()
	}

	return
}

// MontRQ implements SEAL's mont_rq: given a polynomial in base
// Bsk U {m_tilde}, removes the m_tilde scaling factor introduced by
// FastBConvMTilde by computing, per Bsk prime m and per coefficient,
//
//	x_mtilde' = x_mtilde * (prod q)^-1 mod m_tilde
//	r = (x_m - x_mtilde' * q) * m_tilde^-1 mod m
//
// where x_mtilde first gets the (prod q)^-1 mod m_tilde scaling
// baseconverter.cpp's mont_rq applies (bc.invCoeffProductsModMtilde,
// precomputed in precompute()) before it is centered and used as the
// q-scaled correction term -- skipping that scaling silently corrupts
// every Bsk-side coefficient MontRQ produces.
func (bc *BaseConverter) MontRQ(bsk [][]uint64, mTildeResidue []uint64) [][]uint64 {
	N := len(mTildeResidue)
	out := make([][]uint64, len(bc.bskBase))
	mTildeDiv2 := bc.mTilde >> 1
	for j, mj := range bc.bskBase {
		out[j] = make([]uint64, N)
		qModMj := bc.coeffProductsModBsk[j]
		invMTilde := bc.invMtildeModBsk[j]
		for k := 0; k < N; k++ {
			xmt := MulModNaive(mTildeResidue[k], bc.invCoeffProductsModMtilde, bc.mTilde)
			// center x_mtilde' around 0 before scaling by q, matching SEAL's
			// treatment of m_tilde as a signed residue.
			centered := new(big.Int).SetUint64(xmt)
			if xmt > mTildeDiv2 {
				centered.Sub(centered, NewUint(bc.mTilde))
			}
			term := new(big.Int).Mul(centered, NewUint(qModMj))
			val := new(big.Int).Sub(NewUint(bsk[j][k]), term)
			val.Mod(val, NewUint(mj))
			out[j][k] = MulModNaive(val.Uint64(), invMTilde, mj)
		}
	}
	return out
}

// FastBConvSK implements SEAL's fastbconv_sk: converts a polynomial given in
// Bsk = B U {m_sk} back down into base q, applying the Shenoy-Kumaresan
// correction so that the result is exact (not just correct mod m_sk) even
// though only m_sk -- not the full q*Bsk product -- was available to detect
// the wraparound.
//
// Three phases, exactly as baseconverter.cpp:
//  1. convert the B-part (everything but m_sk) into base q, the same
//     fastBConv CRT-sum used elsewhere;
//  2. compute alpha_sk = ((x_Bsk_reconstructed_mod_msk - x_msk) * (prod_B)^-1) mod m_sk,
//     the single correction term;
//  3. center alpha_sk around m_sk/2 and subtract alpha_sk*B mod qi from the
//     phase-1 result for every qi.
func (bc *BaseConverter) FastBConvSK(bsk [][]uint64) [][]uint64 {
	n := len(bc.auxBase)
	N := len(bsk[0])

	// Phase 1: B -> q
	y := make([][]uint64, n)
	for i, mi := range bc.auxBase {
		y[i] = make([]uint64, N)
		inv := bc.invAuxBaseProductsModAuxArray[i]
		for k := 0; k < N; k++ {
			y[i][k] = MulModNaive(bsk[i][k], inv, mi)
		}
	}

	out := make([][]uint64, len(bc.coeffBase))
	for j, qj := range bc.coeffBase {
		out[j] = make([]uint64, N)
		for k := 0; k < N; k++ {
			acc := new(big.Int)
			for i := range bc.auxBase {
				acc.Add(acc, new(big.Int).Mul(NewUint(y[i][k]), NewUint(bc.auxBaseProductsModCoeffArray[j][i])))
			}
			out[j][k] = acc.Mod(acc, NewUint(qj)).Uint64()
		}
	}

	// Phase 2: alpha_sk
	mSkHalf := bc.mSk >> 1
	alpha := make([]uint64, N)
	for k := 0; k < N; k++ {
		acc := new(big.Int)
		for i := range bc.auxBase {
			acc.Add(acc, new(big.Int).Mul(NewUint(y[i][k]), NewUint(bc.auxBaseProductsModMsk[i])))
		}
		reconstructedModMsk := acc.Mod(acc, NewUint(bc.mSk)).Uint64()

		diff := (reconstructedModMsk + bc.mSk - bsk[n][k]%bc.mSk) % bc.mSk
		alpha[k] = MulModNaive(diff, bc.invAuxProductsModMsk, bc.mSk)
	}

	// Phase 3: correction, centering alpha_sk around 0
	bBig := NewUint(1)
	for _, mi := range bc.auxBase {
		bBig.Mul(bBig, NewUint(mi))
	}
	for j, qj := range bc.coeffBase {
		bModQj := new(big.Int).Mod(bBig, NewUint(qj)).Uint64()
		for k := 0; k < N; k++ {
			a := alpha[k]
			signed := new(big.Int).SetUint64(a)
			if a > mSkHalf {
				signed.Sub(signed, NewUint(bc.mSk))
			}
			correction := new(big.Int).Mul(signed, NewUint(bModQj))
			v := new(big.Int).Sub(NewUint(out[j][k]), correction)
			v.Mod(v, NewUint(qj))
			out[j][k] = v.Uint64()
		}
	}

	return out
}

// FastFloor implements SEAL's fast_floor: given a polynomial represented
// over q U Bsk (the tensor product's double-size accumulator), computes
// floor(x/q) reduced into Bsk, by fast-base-converting the q-part into Bsk
// and subtracting it from the Bsk-part scaled by q^-1 mod Bsk_j.
func (bc *BaseConverter) FastFloor(qPart [][]uint64, bskPart [][]uint64) [][]uint64 {
	N := len(qPart[0])

	qInBsk := bc.FastBConvToBsk(qPart)

	out := make([][]uint64, len(bc.bskBase))
	for j, mj := range bc.bskBase {
		out[j] = make([]uint64, N)
		qInv := ModInverse(new(big.Int).Mod(bc.qBig, NewUint(mj)).Uint64(), mj)
		for k := 0; k < N; k++ {
			diff := (bskPart[j][k] + mj - qInBsk[j][k]%mj) % mj
			out[j][k] = MulModNaive(diff, qInv, mj)
		}
	}
	return out
}

// FastBConvPlainGamma implements SEAL's fastbconv_plain_gamma: converts a
// polynomial given in base q directly into {t, gamma}, the basis
// multiply_plain/decryption's final rounding step needs, then multiplies
// each residue by -(prod q)^-1 mod t (resp. mod gamma), as SEAL's decryptor
// does right after fastbconv_plain_gamma.
func (bc *BaseConverter) FastBConvPlainGamma(input [][]uint64) [][]uint64 {
	out := bc.fastBConv(input, bc.plainGammaBase, bc.coeffProductsModPlainGamma)
	for j, mj := range bc.plainGammaBase {
		for k := range out[j] {
			out[j][k] = MulModNaive(out[j][k], bc.negInvCoeffProductsModPlainGamma[j], mj)
		}
	}
	return out
}

// PlainModulus returns the plaintext modulus t this converter was built
// with.
func (bc *BaseConverter) PlainModulus() uint64 { return bc.plainModulus }

// Gamma returns the auxiliary gamma modulus used by the {t,gamma} basis.
func (bc *BaseConverter) Gamma() uint64 { return bc.gamma }

// InvGammaModPlain returns gamma^-1 mod t, used by the final
// scale-and-round step of decryption/multiply_plain.
func (bc *BaseConverter) InvGammaModPlain() uint64 { return bc.invGammaModPlain }
