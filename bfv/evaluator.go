package bfv

import "github.com/drakeword/gobfv/ring"

// Evaluator carries out every homomorphic operation over Ciphertexts and
// Plaintexts, mirroring the teacher's bfv.Evaluator (evaluator.go): a
// struct holding the Context, with one method per
// operation. Unlike the teacher's version -- which extends the coefficient
// basis with a single auxiliary prime P via BasisExtender/ComplexScaler --
// Multiply here follows the full BEHZ RNS pipeline (spec §4.8) through the
// Context's ring.BaseConverter, since the simpler single-P extension the
// teacher used cannot correctly rescale by t without an exact division.
type Evaluator struct {
	ctx *Context
}

// NewEvaluator returns an Evaluator bound to ctx.
func NewEvaluator(ctx *Context) *Evaluator {
	return &Evaluator{ctx: ctx}
}

func (eval *Evaluator) checkBinary(a, b *Ciphertext) error {
	if err := eval.ctx.checkFingerprint(a.fingerprint); err != nil {
		return err
	}
	return eval.ctx.checkFingerprint(b.fingerprint)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// Add computes c0+c1 component-wise, resizing the result to the larger of
// the two sizes (spec §4.8: "size(result) = max(size0, size1)").
func (eval *Evaluator) Add(c0, c1 *Ciphertext) (*Ciphertext, error) {
	if err := eval.checkBinary(c0, c1); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	size := maxInt(c0.Size(), c1.Size())
	out := eval.ctx.NewCiphertext(size)
	for i := 0; i < size; i++ {
		switch {
		case i < c0.Size() && i < c1.Size():
			rq.Add(c0.Value[i], c1.Value[i], out.Value[i])
		case i < c0.Size():
			out.Value[i].Copy(c0.Value[i])
		default:
			out.Value[i].Copy(c1.Value[i])
		}
	}
	out.isNTT = c0.isNTT
	return out, nil
}

// Sub computes c0-c1 component-wise.
func (eval *Evaluator) Sub(c0, c1 *Ciphertext) (*Ciphertext, error) {
	if err := eval.checkBinary(c0, c1); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	size := maxInt(c0.Size(), c1.Size())
	out := eval.ctx.NewCiphertext(size)
	for i := 0; i < size; i++ {
		switch {
		case i < c0.Size() && i < c1.Size():
			rq.Sub(c0.Value[i], c1.Value[i], out.Value[i])
		case i < c0.Size():
			out.Value[i].Copy(c0.Value[i])
		default:
			rq.Neg(c1.Value[i], out.Value[i])
		}
	}
	out.isNTT = c0.isNTT
	return out, nil
}

// Negate computes -c.
func (eval *Evaluator) Negate(c *Ciphertext) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	out := eval.ctx.NewCiphertext(c.Size())
	for i := range c.Value {
		rq.Neg(c.Value[i], out.Value[i])
	}
	out.isNTT = c.isNTT
	return out, nil
}

// MultiplyScalar multiplies every component of c by the plain integer
// scalar (reduced mod t then lifted, so the result still decrypts as
// scalar*m mod t).
func (eval *Evaluator) MultiplyScalar(c *Ciphertext, scalar uint64) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	out := eval.ctx.NewCiphertext(c.Size())
	s := scalar % eval.ctx.t
	for i := range c.Value {
		rq.MulScalar(c.Value[i], s, out.Value[i])
	}
	out.isNTT = c.isNTT
	return out, nil
}

// AddPlain adds a Plaintext into a copy of c, lifting m by Delta first.
func (eval *Evaluator) AddPlain(c *Ciphertext, p *Plaintext) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	if err := eval.ctx.checkFingerprint(p.fingerprint); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	out := c.CopyNew()
	lifted := rq.NewPoly()
	eval.ctx.Lift(p, lifted)
	rq.Add(out.Value[0], lifted, out.Value[0])
	return out, nil
}

// SubPlain subtracts a lifted Plaintext from a copy of c.
func (eval *Evaluator) SubPlain(c *Ciphertext, p *Plaintext) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	if err := eval.ctx.checkFingerprint(p.fingerprint); err != nil {
		return nil, err
	}
	rq := eval.ctx.contextQ
	out := c.CopyNew()
	lifted := rq.NewPoly()
	eval.ctx.Lift(p, lifted)
	rq.Sub(out.Value[0], lifted, out.Value[0])
	return out, nil
}

// MultiplyPlain multiplies every component of c by p, a cheap Plaintext
// scaling that needs neither relinearization nor a base-converter rescale
// (spec §4.8: "plaintext multiplication skips the tensor product
// entirely"). Fails with PlainIsZero if p's coefficients are all zero,
// since a zero-valued multiply can never be un-done and silently collapses
// the ciphertext.
func (eval *Evaluator) MultiplyPlain(c *Ciphertext, p *Plaintext) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	if err := eval.ctx.checkFingerprint(p.fingerprint); err != nil {
		return nil, err
	}
	allZero := true
	for _, v := range p.value.Coeffs[0] {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return nil, newError(PlainIsZero, "plaintext multiplicand is all-zero")
	}

	rq := eval.ctx.contextQ

	// Expand p's single Z_t residue directly into base q -- a plain
	// multiplicand needs no Delta scaling (Delta cancels out of a
	// plain-times-ciphertext product) and no tensor product, only a
	// per-prime reduction of the same integer coefficients. MulCoeffs is a
	// pointwise (NTT-domain) product, so both operands must be NTT-
	// transformed first and the ciphertext result transformed back.
	pRNS := rq.NewPoly()
	for i, qi := range rq.Modulus {
		row := pRNS.Coeffs[i]
		src := p.value.Coeffs[0]
		for j, m := range src {
			row[j] = m % qi
		}
	}
	rq.NTT(pRNS, pRNS)

	out := eval.ctx.NewCiphertext(c.Size())
	for i := range c.Value {
		ci := c.Value[i].CopyNew()
		rq.NTT(ci, ci)
		rq.MulCoeffs(ci, pRNS, out.Value[i])
		rq.InvNTT(out.Value[i], out.Value[i])
	}
	out.isNTT = false
	return out, nil
}

// TransformToNTT moves every component of c into NTT form in place.
func (eval *Evaluator) TransformToNTT(c *Ciphertext) {
	if c.isNTT {
		return
	}
	rq := eval.ctx.contextQ
	for _, v := range c.Value {
		rq.NTT(v, v)
	}
	c.isNTT = true
}

// TransformFromNTT moves every component of c out of NTT form in place.
func (eval *Evaluator) TransformFromNTT(c *Ciphertext) {
	if !c.isNTT {
		return
	}
	rq := eval.ctx.contextQ
	for _, v := range c.Value {
		rq.InvNTT(v, v)
	}
	c.isNTT = false
}

// toBsk fast-base-converts a coefficient-domain, base-q polynomial into
// base Bsk via FastBConvMTilde+MontRQ (spec §4.8 step 1) and returns it
// wrapped as a *ring.Poly.
func (eval *Evaluator) toBsk(p *ring.Poly) *ring.Poly {
	bc := eval.ctx.baseConverter
	bsk, mt := bc.FastBConvMTilde(p.Coeffs)
	rq := bc.MontRQ(bsk, mt)
	return &ring.Poly{Coeffs: rq}
}

// MultiplyNew implements spec §4.8's full BEHZ homomorphic multiplication:
// extend both operands into base q U Bsk, NTT-transform both bases,
// convolve (schoolbook, size0*size1 term pairs) in both bases, invert the
// NTT, scale by t, fast-floor back to Bsk, then fast-base-convert-SK down
// to q.
func (eval *Evaluator) MultiplyNew(c0, c1 *Ciphertext) (*Ciphertext, error) {
	if err := eval.checkBinary(c0, c1); err != nil {
		return nil, err
	}

	rq := eval.ctx.contextQ
	rbsk := eval.ctx.contextBsk
	bc := eval.ctx.baseConverter

	n0, n1 := c0.Size(), c1.Size()
	sizeOut := n0 + n1 - 1

	qForm0 := make([]*ring.Poly, n0)
	bskForm0 := make([]*ring.Poly, n0)
	for i, v := range c0.Value {
		qForm0[i] = v.CopyNew()
		rq.NTT(qForm0[i], qForm0[i])
		bskForm0[i] = eval.toBsk(v)
		rbsk.NTT(bskForm0[i], bskForm0[i])
	}

	qForm1 := make([]*ring.Poly, n1)
	bskForm1 := make([]*ring.Poly, n1)
	for i, v := range c1.Value {
		qForm1[i] = v.CopyNew()
		rq.NTT(qForm1[i], qForm1[i])
		bskForm1[i] = eval.toBsk(v)
		rbsk.NTT(bskForm1[i], bskForm1[i])
	}

	accQ := make([]*ring.Poly, sizeOut)
	accBsk := make([]*ring.Poly, sizeOut)
	for k := range accQ {
		accQ[k] = rq.NewPoly()
		accBsk[k] = rbsk.NewPoly()
	}

	tmpQ := rq.NewPoly()
	tmpBsk := rbsk.NewPoly()
	for i := 0; i < n0; i++ {
		for j := 0; j < n1; j++ {
			k := i + j
			rq.MulCoeffs(qForm0[i], qForm1[j], tmpQ)
			rq.Add(accQ[k], tmpQ, accQ[k])
			rbsk.MulCoeffs(bskForm0[i], bskForm1[j], tmpBsk)
			rbsk.Add(accBsk[k], tmpBsk, accBsk[k])
		}
	}

	out := eval.ctx.NewCiphertext(sizeOut)
	for k := 0; k < sizeOut; k++ {
		rq.InvNTT(accQ[k], accQ[k])
		rbsk.InvNTT(accBsk[k], accBsk[k])

		rq.MulScalar(accQ[k], eval.ctx.t, accQ[k])
		rbsk.MulScalar(accBsk[k], eval.ctx.t, accBsk[k])

		floored := bc.FastFloor(accQ[k].Coeffs, accBsk[k].Coeffs)
		backToQ := bc.FastBConvSK(floored)
		out.Value[k].Coeffs = backToQ
	}
	out.isNTT = false
	return out, nil
}

// Multiply returns MultiplyNew's freshly allocated result unchanged
// (naming mirrors the teacher's Evaluator.Mul/MulNew split).
func (eval *Evaluator) Multiply(c0, c1 *Ciphertext) (*Ciphertext, error) {
	return eval.MultiplyNew(c0, c1)
}

// Square implements SEAL's Evaluator::square fast path (spec §4.8, named
// explicitly as a recovered feature in SPEC_FULL.md §5): for a size-2
// ciphertext (c0,c1), (c0+c1*s)^2 = c0^2 + 2*c0*c1*s + c1^2*s^2 needs only
// the three dyadic products c0*c0, c0*c1 and c1*c1 -- the two cross terms
// c0*c1 and c1*c0 are equal, so c0*c1 is computed once and doubled, instead of the four
// multiplications (i,j in {0,1}x{0,1}) MultiplyNew's general convolution
// loop would perform when squaring a size-2 ciphertext against itself. For
// any other size, squaring offers no such shortcut and falls back to
// MultiplyNew.
func (eval *Evaluator) Square(c *Ciphertext) (*Ciphertext, error) {
	if c.Size() != 2 {
		return eval.MultiplyNew(c, c)
	}

	rq := eval.ctx.contextQ
	rbsk := eval.ctx.contextBsk
	bc := eval.ctx.baseConverter

	c0NTT := c.Value[0].CopyNew()
	rq.NTT(c0NTT, c0NTT)
	c1NTT := c.Value[1].CopyNew()
	rq.NTT(c1NTT, c1NTT)
	c0Bsk := eval.toBsk(c.Value[0])
	rbsk.NTT(c0Bsk, c0Bsk)
	c1Bsk := eval.toBsk(c.Value[1])
	rbsk.NTT(c1Bsk, c1Bsk)

	d0Q, d1Q, d2Q := rq.NewPoly(), rq.NewPoly(), rq.NewPoly()
	rq.MulCoeffs(c0NTT, c0NTT, d0Q)
	rq.MulCoeffs(c0NTT, c1NTT, d1Q)
	rq.Add(d1Q, d1Q, d1Q)
	rq.MulCoeffs(c1NTT, c1NTT, d2Q)

	d0Bsk, d1Bsk, d2Bsk := rbsk.NewPoly(), rbsk.NewPoly(), rbsk.NewPoly()
	rbsk.MulCoeffs(c0Bsk, c0Bsk, d0Bsk)
	rbsk.MulCoeffs(c0Bsk, c1Bsk, d1Bsk)
	rbsk.Add(d1Bsk, d1Bsk, d1Bsk)
	rbsk.MulCoeffs(c1Bsk, c1Bsk, d2Bsk)

	accQ := []*ring.Poly{d0Q, d1Q, d2Q}
	accBsk := []*ring.Poly{d0Bsk, d1Bsk, d2Bsk}

	out := eval.ctx.NewCiphertext(3)
	for k := 0; k < 3; k++ {
		rq.InvNTT(accQ[k], accQ[k])
		rbsk.InvNTT(accBsk[k], accBsk[k])

		rq.MulScalar(accQ[k], eval.ctx.t, accQ[k])
		rbsk.MulScalar(accBsk[k], eval.ctx.t, accBsk[k])

		floored := bc.FastFloor(accQ[k].Coeffs, accBsk[k].Coeffs)
		out.Value[k].Coeffs = bc.FastBConvSK(floored)
	}
	out.isNTT = false
	return out, nil
}

// switchKeys decomposes cLast in base 2^w modulo each qi independently and
// dyadically accumulates it against swk, returning the (c0, c1)
// contribution to add into the lower-degree result (spec §4.8,
// "Relinearize to target size").
func (eval *Evaluator) switchKeys(cLast *ring.Poly, swk *SwitchingKey) (*ring.Poly, *ring.Poly) {
	rq := eval.ctx.contextQ
	w := swk.bitDecomp
	mask := (uint64(1) << w) - 1

	c0 := rq.NewPoly()
	c1 := rq.NewPoly()

	digit := rq.NewPoly()
	tmp0 := rq.NewPoly()
	tmp1 := rq.NewPoly()

	for j, pair := range swk.Value {
		shift := uint(j) * uint(w)
		for i := range rq.Modulus {
			src, dst := cLast.Coeffs[i], digit.Coeffs[i]
			for x, c := range src {
				dst[x] = (c >> shift) & mask
			}
		}
		rq.NTT(digit, digit)

		rq.MulCoeffs(digit, pair[0], tmp0)
		rq.Add(c0, tmp0, c0)
		rq.MulCoeffs(digit, pair[1], tmp1)
		rq.Add(c1, tmp1, c1)
	}

	rq.InvNTT(c0, c0)
	rq.InvNTT(c1, c1)
	return c0, c1
}

// Relinearize repeatedly contracts c's top component using evk until c is
// back down to size 2. Fails with NeedsKey if c is larger than evk
// supports (evk.Value[d-2] contracts the s^d term, so a size-s ciphertext
// needs s-2 entries).
func (eval *Evaluator) Relinearize(c *Ciphertext, evk *EvaluationKey) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	if err := eval.ctx.checkFingerprint(evk.fingerprint); err != nil {
		return nil, err
	}
	if c.Size()-2 > len(evk.Value) {
		return nil, newError(NeedsKey, "ciphertext size %d needs %d relinearization levels, evaluation key has %d", c.Size(), c.Size()-2, len(evk.Value))
	}

	rq := eval.ctx.contextQ
	out := c.CopyNew()
	for out.Size() > 2 {
		deg := out.Size() - 1
		swk := evk.Value[deg-2]
		cLast := out.Value[out.Size()-1]
		contrib0, contrib1 := eval.switchKeys(cLast, swk)
		rq.Add(out.Value[0], contrib0, out.Value[0])
		rq.Add(out.Value[1], contrib1, out.Value[1])
		out.Value = out.Value[:out.Size()-1]
	}
	return out, nil
}

// MultiplyMany multiplies a slice of ciphertexts in a balanced binary
// tree, relinearizing after every internal node so each multiplication in
// the tree always sees size-2 operands (spec §4.8: "repeated
// multiply-then-relinearize keeps ciphertext growth bounded").
func (eval *Evaluator) MultiplyMany(cs []*Ciphertext, evk *EvaluationKey) (*Ciphertext, error) {
	if len(cs) == 0 {
		return nil, newError(SizeMismatch, "MultiplyMany requires at least one ciphertext")
	}
	level := cs
	for len(level) > 1 {
		next := make([]*Ciphertext, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			prod, err := eval.MultiplyNew(level[i], level[i+1])
			if err != nil {
				return nil, err
			}
			relin, err := eval.Relinearize(prod, evk)
			if err != nil {
				return nil, err
			}
			next = append(next, relin)
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0], nil
}

// Exponentiate raises c to the given power (power >= 1; 0 is rejected)
// via square-and-multiply, relinearizing after every multiplication.
func (eval *Evaluator) Exponentiate(c *Ciphertext, power uint64, evk *EvaluationKey) (*Ciphertext, error) {
	if power == 0 {
		return nil, newError(SizeMismatch, "Exponentiate requires power >= 1")
	}
	result := c.CopyNew()
	power--
	base := c.CopyNew()
	for power > 0 {
		if power&1 == 1 {
			prod, err := eval.MultiplyNew(result, base)
			if err != nil {
				return nil, err
			}
			result, err = eval.Relinearize(prod, evk)
			if err != nil {
				return nil, err
			}
		}
		power >>= 1
		if power > 0 {
			sq, err := eval.MultiplyNew(base, base)
			if err != nil {
				return nil, err
			}
			base, err = eval.Relinearize(sq, evk)
			if err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

// ApplyGalois applies the automorphism x -> x^galEl to c and key-switches
// the result back onto the original secret key using gks, per spec §4.8's
// "Galois automorphism + key-switch" rotation primitive. Requires c to be
// size 2 (NeedsKey/SizeMismatch otherwise) and a key registered for galEl.
func (eval *Evaluator) ApplyGalois(c *Ciphertext, galEl uint64, gks *GaloisKeySet) (*Ciphertext, error) {
	if err := eval.ctx.checkFingerprint(c.fingerprint); err != nil {
		return nil, err
	}
	if c.Size() != 2 {
		return nil, newError(SizeMismatch, "ApplyGalois requires a size-2 ciphertext, got size %d", c.Size())
	}
	swk, ok := gks.Get(galEl)
	if !ok {
		return nil, newError(NeedsKey, "no Galois key registered for element %d", galEl)
	}

	rq := eval.ctx.contextQ
	c0p := rq.NewPoly()
	c1p := rq.NewPoly()
	rq.Permute(c.Value[0], galEl, c0p)
	rq.Permute(c.Value[1], galEl, c1p)

	contrib0, contrib1 := eval.switchKeys(c1p, swk)

	out := eval.ctx.NewCiphertext(2)
	rq.Add(c0p, contrib0, out.Value[0])
	out.Value[1].Copy(contrib1)
	return out, nil
}

// RotateRows swaps the two rows of the plaintext slot matrix (spec §3:
// "row rotation: the fixed Galois element (2n-1)").
func (eval *Evaluator) RotateRows(c *Ciphertext, gks *GaloisKeySet) (*Ciphertext, error) {
	return eval.ApplyGalois(c, eval.ctx.galElRotRow, gks)
}

// RotateColumns cyclically rotates each row of the plaintext slot matrix by
// k positions, decomposing k into powers of two and chaining single-bit
// ApplyGalois calls, so only O(log n) Galois keys are needed instead of
// one per rotation amount (spec §9, fallback recursion via generator
// powers). Negative k rotates right.
func (eval *Evaluator) RotateColumns(c *Ciphertext, k int, gks *GaloisKeySet) (*Ciphertext, error) {
	half := int(eval.ctx.n >> 1)
	k %= half
	if k < 0 {
		k += half
	}
	if k == 0 {
		out := c.CopyNew()
		return out, nil
	}

	table := eval.ctx.galElRotColLeft
	cur := c
	for b := 0; k > 0; b++ {
		if k&1 == 1 {
			next, err := eval.ApplyGalois(cur, table[1<<uint(b)], gks)
			if err != nil {
				return nil, err
			}
			cur = next
		}
		k >>= 1
	}
	return cur, nil
}

// InnerSum adds every cyclic column rotation of c to itself, producing a
// ciphertext whose every slot holds the sum of all of c's slots (spec §3:
// "InnerSum: the full-slot reduction built from n/2 rotations"). Uses the
// standard log-doubling schedule (rotate the running accumulator by
// 1,2,4,... and add) rather than n/2 independent rotations of the
// original ciphertext, since n/2 is always a power of two.
func (eval *Evaluator) InnerSum(c *Ciphertext, gks *GaloisKeySet) (*Ciphertext, error) {
	rq := eval.ctx.contextQ
	acc := c.CopyNew()
	half := int(eval.ctx.n >> 1)
	for step := 1; step < half; step <<= 1 {
		rotated, err := eval.RotateColumns(acc, step, gks)
		if err != nil {
			return nil, err
		}
		for i := range acc.Value {
			rq.Add(acc.Value[i], rotated.Value[i], acc.Value[i])
		}
	}
	return acc, nil
}
