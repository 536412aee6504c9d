package ring

import (
	"fmt"
	"math/big"
	"math/bits"
)

// Context holds every precomputed value needed to operate on RNS
// polynomials over a fixed ring degree N and a fixed set of coefficient
// moduli: Barrett/Montgomery reduction constants per modulus, and (when the
// moduli allow it) NTT tables. Mirrors the teacher's ring.Context shape
// (ring_context.go) -- a plain, explicitly-populated struct rather than a
// constructor-injected interface, since the whole point of the type is to
// be computed once and shared read-only afterwards (see spec.md's
// concurrency model).
type Context struct {
	N uint64

	Modulus       []uint64
	ModulusBigint *big.Int

	Mask []uint64

	BredParams [][]uint64
	MredParams []uint64

	AllowsNTT bool

	NthRoot uint64

	nttPsi    [][]uint64 // powers of the 2N-th primitive root, Montgomery form, bit-reversed
	nttPsiInv [][]uint64
	nttNInv   []uint64
}

// NewContext returns an empty, unpopulated Context.
func NewContext() *Context {
	return new(Context)
}

// SetParameters populates the Barrett/Montgomery reduction tables for a
// ring of degree N over the given coefficient moduli. It does not generate
// NTT tables; call GenNTTParams for that once all the moduli are known to
// satisfy q = 1 mod 2N.
func (context *Context) SetParameters(N uint64, Modulus []uint64) error {

	if N < 2 || (N&(N-1)) != 0 {
		return fmt.Errorf("invalid ring degree: %d is not a power of 2", N)
	}
	if len(Modulus) == 0 {
		return fmt.Errorf("invalid modulus: empty coefficient base")
	}

	context.N = N
	context.Modulus = make([]uint64, len(Modulus))
	copy(context.Modulus, Modulus)

	context.Mask = make([]uint64, len(Modulus))
	context.BredParams = make([][]uint64, len(Modulus))
	context.MredParams = make([]uint64, len(Modulus))

	context.ModulusBigint = NewUint(1)
	for i, qi := range context.Modulus {
		context.ModulusBigint.Mul(context.ModulusBigint, NewUint(qi))

		context.Mask[i] = (uint64(1) << uint64(bits.Len64(qi-1))) - 1
		context.BredParams[i] = BRedParams(qi)
		if (qi&(qi-1)) != 0 && qi != 0 {
			context.MredParams[i] = MRedParams(qi)
		}
	}

	return nil
}

// GenNTTParams checks that every modulus is prime and congruent to 1 mod 2N,
// and if so precomputes the Montgomery-form NTT root powers. Panics if
// SetParameters has not been called first -- generating NTT tables for an
// unset ring is a programmer error, matching the teacher's behaviour in
// ring_context.go's GenNTTParams.
func (context *Context) GenNTTParams() error {

	if context.N == 0 || context.Modulus == nil {
		panic("cannot GenNTTParams on an unset Context")
	}

	NthRoot := context.N << 1

	for i, qi := range context.Modulus {
		if !IsPrime(qi) {
			return fmt.Errorf("invalid modulus: Modulus[%d]=%d is not prime", i, qi)
		}
		if qi&(NthRoot-1) != 1 {
			return fmt.Errorf("invalid modulus: Modulus[%d]=%d is not 1 mod 2N", i, qi)
		}
	}

	context.NthRoot = NthRoot

	context.nttPsi = make([][]uint64, len(context.Modulus))
	context.nttPsiInv = make([][]uint64, len(context.Modulus))
	context.nttNInv = make([]uint64, len(context.Modulus))

	logNthRoot := uint64(bits.Len64(NthRoot>>1) - 1)

	for i, qi := range context.Modulus {

		g, _, err := PrimitiveRoot(qi, nil)
		if err != nil {
			return err
		}

		context.nttNInv[i] = MForm(ModExp(NthRoot>>1, qi-2, qi), qi, context.BredParams[i])

		power := (qi - 1) / NthRoot
		powerInv := (qi - 1) - power

		psiMont := MForm(ModExp(g, power, qi), qi, context.BredParams[i])
		psiInvMont := MForm(ModExp(g, powerInv, qi), qi, context.BredParams[i])

		context.nttPsi[i] = make([]uint64, NthRoot>>1)
		context.nttPsiInv[i] = make([]uint64, NthRoot>>1)

		context.nttPsi[i][0] = MForm(1, qi, context.BredParams[i])
		context.nttPsiInv[i][0] = MForm(1, qi, context.BredParams[i])

		for j := uint64(1); j < NthRoot>>1; j++ {
			prev := bitReverse64(j-1, logNthRoot)
			next := bitReverse64(j, logNthRoot)
			context.nttPsi[i][next] = MRed(context.nttPsi[i][prev], psiMont, qi, context.MredParams[i])
			context.nttPsiInv[i][next] = MRed(context.nttPsiInv[i][prev], psiInvMont, qi, context.MredParams[i])
		}
	}

	context.AllowsNTT = true

	return nil
}

func bitReverse64(index, bitLen uint64) (r uint64) {
	for i := uint64(0); i < bitLen; i++ {
		r |= ((index >> i) & 1) << (bitLen - 1 - i)
	}
	return
}

// GetBredParams returns the per-modulus Barrett reduction constants.
func (context *Context) GetBredParams() [][]uint64 { return context.BredParams }

// GetMredParams returns the per-modulus Montgomery reduction constants.
func (context *Context) GetMredParams() []uint64 { return context.MredParams }

// NewPoly allocates a zero polynomial spanning every modulus of the Context.
func (context *Context) NewPoly() *Poly {
	return NewPoly(int(context.N), len(context.Modulus)-1)
}

// NewPolyLvl allocates a zero polynomial spanning the first level+1 moduli.
func (context *Context) NewPolyLvl(level uint64) *Poly {
	return NewPoly(int(context.N), int(level))
}

// SetCoefficientsInt64 reduces coeffs into p1's RNS representation.
func (context *Context) SetCoefficientsInt64(coeffs []int64, p1 *Poly) {
	for i, c := range coeffs {
		for j, qi := range context.Modulus {
			v := c % int64(qi)
			if v < 0 {
				v += int64(qi)
			}
			p1.Coeffs[j][i] = uint64(v)
		}
	}
}

// SetCoefficientsUint64 reduces coeffs into p1's RNS representation.
func (context *Context) SetCoefficientsUint64(coeffs []uint64, p1 *Poly) {
	for i, c := range coeffs {
		for j, qi := range context.Modulus {
			p1.Coeffs[j][i] = c % qi
		}
	}
}

// PolyToBigint reconstructs the centered-around-zero big.Int representation
// of p1 via CRT and writes it into coeffsBigint (which must have length N).
func (context *Context) PolyToBigint(p1 *Poly, coeffsBigint []*big.Int) {

	level := p1.Level()
	crt := make([]*big.Int, level+1)

	qiB := new(big.Int)
	tmp := new(big.Int)
	modulus := context.ModulusBigint

	for i := 0; i <= level; i++ {
		qiB.SetUint64(context.Modulus[i])
		crt[i] = new(big.Int).Quo(modulus, qiB)
		tmp.ModInverse(crt[i], qiB)
		tmp.Mod(tmp, qiB)
		crt[i].Mul(crt[i], tmp)
	}

	modulusHalf := new(big.Int).Rsh(modulus, 1)

	for j := 0; j < int(context.N); j++ {
		coeffsBigint[j] = new(big.Int)
		for k := 0; k <= level; k++ {
			coeffsBigint[j].Add(coeffsBigint[j], tmp.Mul(NewUint(p1.Coeffs[k][j]), crt[k]))
		}
		coeffsBigint[j].Mod(coeffsBigint[j], modulus)
		if coeffsBigint[j].Cmp(modulusHalf) > 0 {
			coeffsBigint[j].Sub(coeffsBigint[j], modulus)
		}
	}
}
