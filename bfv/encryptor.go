package bfv

import "github.com/drakeword/gobfv/ring"

// Encryptor turns a Plaintext into a fresh degree-1 Ciphertext under a
// PublicKey, mirroring the teacher's bfv.Encryptor (encryptor.go): a small
// struct holding the Context, the key material, and scratch polynomials
// reused across calls.
type Encryptor struct {
	ctx  *Context
	pk   *PublicKey
	prng ring.PRNG

	polypool *ring.Poly
}

// NewEncryptor returns an Encryptor bound to pk.
func NewEncryptor(ctx *Context, pk *PublicKey) (*Encryptor, error) {
	if err := ctx.checkFingerprint(pk.fingerprint); err != nil {
		return nil, err
	}
	prng, err := ctx.NewPRNG()
	if err != nil {
		return nil, err
	}
	return &Encryptor{
		ctx:      ctx,
		pk:       pk,
		prng:     prng,
		polypool: ctx.contextQ.NewPoly(),
	}, nil
}

// EncryptNew encrypts plaintext into a freshly allocated size-2
// Ciphertext.
func (enc *Encryptor) EncryptNew(plaintext *Plaintext) (*Ciphertext, error) {
	ct := enc.ctx.NewCiphertext(2)
	if err := enc.Encrypt(plaintext, ct); err != nil {
		return nil, err
	}
	return ct, nil
}

// Encrypt implements spec §4.6's public-key encryption: sample a fresh
// ternary u and two Gaussian error terms e0, e1, compute
// (c0, c1) = (pk0*u + e0 + Delta*m, pk1*u + e1), tagging the result with the
// active parameter fingerprint.
func (enc *Encryptor) Encrypt(plaintext *Plaintext, ciphertext *Ciphertext) error {
	if err := enc.ctx.checkFingerprint(plaintext.fingerprint); err != nil {
		return err
	}
	if len(ciphertext.Value) != 2 {
		ciphertext.Resize(enc.ctx, 2)
	}

	rq := enc.ctx.contextQ

	ternary := ring.NewTernarySampler(enc.prng, rq, 1.0/3.0, false)
	u := ternary.ReadNew()
	rq.NTT(u, u)

	e0 := enc.ctx.gaussianSampler.ReadNew()
	e1 := enc.ctx.gaussianSampler.ReadNew()

	c0 := ciphertext.Value[0]
	c1 := ciphertext.Value[1]

	rq.MulCoeffs(enc.pk.Value[0], u, c0)
	rq.MulCoeffs(enc.pk.Value[1], u, c1)

	rq.InvNTT(c0, c0)
	rq.InvNTT(c1, c1)

	rq.Add(c0, e0, c0)
	rq.Add(c1, e1, c1)

	enc.ctx.Lift(plaintext, enc.polypool)
	rq.Add(c0, enc.polypool, c0)

	ciphertext.isNTT = false
	ciphertext.fingerprint = enc.ctx.params.Fingerprint()
	return nil
}
