package bfv

import "fmt"

// Kind identifies the category of a bfv Error, following the closed error
// domain of the teacher's plain errors.New/fmt.Errorf calls scattered across
// bfv/evaluator.go and bfv/params.go, upgraded to a typed sentinel so
// callers can errors.Is/errors.As against a Kind instead of string-matching
// a message.
type Kind int

const (
	// InvalidParameters reports a parameter set that fails validation: n not
	// a power of two, a coefficient modulus that is not prime or not
	// pairwise coprime, or t >= prod(qi).
	InvalidParameters Kind = iota
	// WrongParams reports a fingerprint mismatch between an input object
	// (ciphertext, plaintext, key) and the active parameter set.
	WrongParams
	// SizeMismatch reports a plaintext too large for the ring, a ciphertext
	// of unexpected size, or a relinearization target size out of range.
	SizeMismatch
	// NeedsKey reports evaluation or Galois keys that are absent or too
	// short for the requested operation.
	NeedsKey
	// PlainIsZero reports multiply_plain (or its NTT variant) called with an
	// all-zero plaintext.
	PlainIsZero
	// NoPool reports an operation handed an uninitialized memory-pool
	// handle.
	NoPool
	// NotCoprime reports a modular inverse, requested by the base converter
	// or key generation, that does not exist.
	NotCoprime
	// NoRoot reports a failed primitive-root search.
	NoRoot
)

func (k Kind) String() string {
	switch k {
	case InvalidParameters:
		return "InvalidParameters"
	case WrongParams:
		return "WrongParams"
	case SizeMismatch:
		return "SizeMismatch"
	case NeedsKey:
		return "NeedsKey"
	case PlainIsZero:
		return "PlainIsZero"
	case NoPool:
		return "NoPool"
	case NotCoprime:
		return "NotCoprime"
	case NoRoot:
		return "NoRoot"
	default:
		return "Unknown"
	}
}

// Error is the error type every fallible operation in this module returns.
// It carries a Kind (for errors.Is-style matching) plus a free-form message
// giving the offending value, mirroring the teacher's descriptive
// errors.New strings but made comparable by category.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("bfv: %s: %s", e.Kind, e.Message)
}

// Is reports whether target is a *Error with the same Kind, so that
// errors.Is(err, &Error{Kind: WrongParams}) matches regardless of Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
