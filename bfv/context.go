package bfv

import (
	"math/big"

	"github.com/drakeword/gobfv/ring"
)

// Context holds every precomputed value needed to Encrypt, Decrypt and
// Evaluate under a fixed Parameters: the per-base polynomial rings, the
// base converter, the plaintext scaling factors, the default samplers, and
// the Galois-rotation generator tables. Mirrors the teacher's bfv.Context
// (bfv.go): a plain struct populated once by NewContext and shared
// read-only afterwards by every collaborator built from it, matching
// spec.md's concurrency model (§5: "Context ... immutable after
// construction").
type Context struct {
	params Parameters

	n uint64
	t uint64

	contextT *ring.Context
	contextQ *ring.Context

	// contextBsk is the NTT-enabled ring over the base converter's Bsk
	// primes, used for the dyadic tensor product during multiply (spec
	// §4.4: "An NTT-table per modulus in Bsk").
	contextBsk *ring.Context

	baseConverter *ring.BaseConverter

	// delta = floor(Q/t) mod each qi, and its Montgomery form: the
	// plaintext-to-ciphertext scaling factor (spec's "Δ").
	delta     []uint64
	deltaMont []uint64

	// upperHalfIncrement[i] = (qi - (delta[i]*t mod qi)) mod qi, the fast
	// per-prime correction spec §4.6 step 3 describes for plaintext
	// coefficients in the upper half of Z_t (i.e. representing a negative
	// value). Only valid when EnableFastPlainLift.
	upperHalfIncrement []uint64

	// deltaBig is the full big.Int Delta = floor(Q/t), used by the exact
	// (non-fast) plaintext lift path.
	deltaBig *big.Int

	sigma           float64
	gaussianSampler *ring.KYSampler
	ternarySampler  *ring.TernarySampler
	prng            ring.PRNG

	// bitDecomp is the relinearization/key-switch radix w (spec's
	// "decomposition bit count"); 0 disables relinearization.
	bitDecomp uint64

	gen    uint64
	genInv uint64

	galElRotRow      uint64
	galElRotColLeft  []uint64
	galElRotColRight []uint64
}

// NewContext validates params and builds the frozen Context, following
// spec §4.5's construction steps: NTT generation, BaseConverter
// construction, and the CRT cross-product precomputation for Δ.
func NewContext(params Parameters) (*Context, error) {

	if !params.EnableNTT() {
		return nil, newError(InvalidParameters, "every qi must be congruent to 1 mod 2n to enable the NTT")
	}

	ctx := new(Context)
	ctx.params = params.Copy()
	ctx.n = uint64(params.N())
	ctx.t = params.T()
	ctx.sigma = params.Sigma()
	ctx.bitDecomp = uint64(params.W())

	ctx.contextT = ring.NewContext()
	if err := ctx.contextT.SetParameters(ctx.n, []uint64{ctx.t}); err != nil {
		return nil, newError(InvalidParameters, "%v", err)
	}
	if params.EnableBatching() {
		if err := ctx.contextT.GenNTTParams(); err != nil {
			return nil, newError(InvalidParameters, "%v", err)
		}
	}

	ctx.contextQ = ring.NewContext()
	if err := ctx.contextQ.SetParameters(ctx.n, params.Qi()); err != nil {
		return nil, newError(InvalidParameters, "%v", err)
	}
	if err := ctx.contextQ.GenNTTParams(); err != nil {
		return nil, newError(InvalidParameters, "%v", err)
	}

	bc, err := ring.NewBaseConverter(params.Qi(), ctx.t, params.N())
	if err != nil {
		return nil, newError(InvalidParameters, "base converter: %v", err)
	}
	ctx.baseConverter = bc

	ctx.contextBsk = ring.NewContext()
	if err := ctx.contextBsk.SetParameters(ctx.n, bc.Bsk()); err != nil {
		return nil, newError(InvalidParameters, "%v", err)
	}
	if err := ctx.contextBsk.GenNTTParams(); err != nil {
		return nil, newError(InvalidParameters, "%v", err)
	}

	ctx.deltaBig = new(big.Int).Quo(ctx.contextQ.ModulusBigint, ring.NewUint(ctx.t))

	ctx.delta = make([]uint64, len(params.Qi()))
	ctx.deltaMont = make([]uint64, len(params.Qi()))
	ctx.upperHalfIncrement = make([]uint64, len(params.Qi()))
	tmp := new(big.Int)
	for i, qi := range ctx.contextQ.Modulus {
		ctx.delta[i] = tmp.Mod(ctx.deltaBig, ring.NewUint(qi)).Uint64()
		ctx.deltaMont[i] = ring.MForm(ctx.delta[i], qi, ctx.contextQ.BredParams[i])

		deltaT := ring.MulModNaive(ctx.delta[i], ctx.t%qi, qi)
		ctx.upperHalfIncrement[i] = (qi - deltaT) % qi
	}

	prng, err := ring.NewKeyedPRNG(nil)
	if err != nil {
		return nil, err
	}
	ctx.prng = prng

	ctx.gaussianSampler = ring.NewKYSampler(ctx.prng, ctx.contextQ, ctx.sigma, int(6*ctx.sigma))
	ctx.ternarySampler = ring.NewTernarySampler(ctx.prng, ctx.contextQ, 1.0/3.0, false)

	ctx.gen = GaloisGen
	ctx.genInv = ring.ModExp(ctx.gen, (ctx.n<<1)-1, ctx.n<<1)

	mask := (ctx.n << 1) - 1
	ctx.galElRotColLeft = make([]uint64, ctx.n>>1)
	ctx.galElRotColRight = make([]uint64, ctx.n>>1)
	ctx.galElRotColLeft[0] = 1
	ctx.galElRotColRight[0] = 1
	for i := uint64(1); i < ctx.n>>1; i++ {
		ctx.galElRotColLeft[i] = (ctx.galElRotColLeft[i-1] * ctx.gen) & mask
		ctx.galElRotColRight[i] = (ctx.galElRotColRight[i-1] * ctx.genInv) & mask
	}
	ctx.galElRotRow = (ctx.n << 1) - 1

	return ctx, nil
}

// Params returns the Parameters this Context was built from.
func (ctx *Context) Params() Parameters { return ctx.params }

// N returns the ring degree.
func (ctx *Context) N() uint64 { return ctx.n }

// T returns the plaintext modulus.
func (ctx *Context) T() uint64 { return ctx.t }

// RingQ returns the ciphertext coefficient-base ring.
func (ctx *Context) RingQ() *ring.Context { return ctx.contextQ }

// RingT returns the plaintext-modulus ring.
func (ctx *Context) RingT() *ring.Context { return ctx.contextT }

// RingBsk returns the auxiliary-base ring used by the multiplication
// tensor-product step.
func (ctx *Context) RingBsk() *ring.Context { return ctx.contextBsk }

// BaseConverter returns the RNS base converter.
func (ctx *Context) BaseConverter() *ring.BaseConverter { return ctx.baseConverter }

// NewPRNG returns a fresh unkeyed CSPRNG, seeded from crypto/rand, for
// samplers that must not share state with the Context's default PRNG
// (e.g. a KeyGenerator generating independent keys concurrently).
func (ctx *Context) NewPRNG() (ring.PRNG, error) {
	return ring.NewKeyedPRNG(nil)
}

func (ctx *Context) fingerprintMatches(fp [16]byte) bool {
	return fp == ctx.params.Fingerprint()
}

func (ctx *Context) checkFingerprint(fp [16]byte) error {
	if !ctx.fingerprintMatches(fp) {
		return newError(WrongParams, "fingerprint does not match the active parameter set")
	}
	return nil
}
