package bfv

import "github.com/drakeword/gobfv/ring"

// Ciphertext is an ordered sequence of size >= 2 RNS polynomials over the
// coefficient base q, tagged with the parameter fingerprint that produced
// it (spec §3, "Ciphertext"). Mirrors the teacher's bfv.Ciphertext
// (ciphertext.go), minus the shared BfvElement interface the teacher uses
// to unify it with Plaintext -- BFV's plaintext is fixed at degree 0, so
// the two types don't need a common abstraction here.
type Ciphertext struct {
	Value       []*ring.Poly
	isNTT       bool
	fingerprint [16]byte
}

// NewCiphertext allocates a fresh all-zero ciphertext of the given size
// (size >= 2), tagged with ctx's fingerprint.
func (ctx *Context) NewCiphertext(size int) *Ciphertext {
	if size < 2 {
		size = 2
	}
	v := make([]*ring.Poly, size)
	for i := range v {
		v[i] = ctx.contextQ.NewPoly()
	}
	return &Ciphertext{Value: v, fingerprint: ctx.params.Fingerprint()}
}

// Degree returns size-1.
func (c *Ciphertext) Degree() int { return len(c.Value) - 1 }

// Size returns the number of RNS polynomials backing the ciphertext.
func (c *Ciphertext) Size() int { return len(c.Value) }

// IsNTT reports whether every component is currently in NTT form.
func (c *Ciphertext) IsNTT() bool { return c.isNTT }

// Fingerprint returns the parameter fingerprint this ciphertext was
// produced under.
func (c *Ciphertext) Fingerprint() [16]byte { return c.fingerprint }

// CopyNew returns a deep copy of c.
func (c *Ciphertext) CopyNew() *Ciphertext {
	v := make([]*ring.Poly, len(c.Value))
	for i, p := range c.Value {
		v[i] = p.CopyNew()
	}
	return &Ciphertext{Value: v, isNTT: c.isNTT, fingerprint: c.fingerprint}
}

// Resize grows or shrinks c to the given size, preserving existing
// components and zero-filling new ones.
func (c *Ciphertext) Resize(ctx *Context, size int) {
	if size < 2 {
		size = 2
	}
	if size == len(c.Value) {
		return
	}
	v := make([]*ring.Poly, size)
	for i := range v {
		if i < len(c.Value) {
			v[i] = c.Value[i]
		} else {
			v[i] = ctx.contextQ.NewPoly()
		}
	}
	c.Value = v
}
