package ring

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// IsPrime returns true if q is prime, false otherwise.
// It uses math/big's ProbablyPrime(40), which is exact for every
// uint64 input (math/big documents it as 100% accurate below 2^64).
func IsPrime(q uint64) bool {
	return new(big.Int).SetUint64(q).ProbablyPrime(40)
}

// NewUint returns a new big.Int set to v. Convenience wrapper used
// throughout the package to avoid repeating new(big.Int).SetUint64.
func NewUint(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// NewIntFromString parses s as a base-10 big.Int. Panics on malformed input,
// since it is only ever used to import test vectors.
func NewIntFromString(s string) *big.Int {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(fmt.Errorf("invalid big.Int string: %s", s))
	}
	return i
}

// ModExp computes x^e mod p.
func ModExp(x, e, p uint64) uint64 {
	r := new(big.Int).Exp(NewUint(x), NewUint(e), NewUint(p))
	return r.Uint64()
}

// ModInverse computes the modular inverse of x mod p, which must be prime.
func ModInverse(x, p uint64) uint64 {
	r := new(big.Int).ModInverse(NewUint(x), NewUint(p))
	if r == nil {
		panic(fmt.Errorf("%d has no inverse mod %d", x, p))
	}
	return r.Uint64()
}

// GenerateNTTPrimes returns k distinct NTT-friendly primes of bit-size logQ
// (i.e. q = 1 mod 2N and q prime), searched downward from 2^logQ - 1.
// Ported in spirit from the teacher's Pi60/Qi60 static tables, but computed
// on demand instead of hardcoded for a single N, so any ring degree is
// supported.
func GenerateNTTPrimes(logQ, N int, k int) (primes []uint64) {
	return generateNTTPrimes(logQ, uint64(2*N), k)
}

// generateNTTPrimes searches downward from 2^logQ - 1 for k primes
// congruent to 1 mod nthRoot. It backs GenerateNTTPrimes; the
// m_tilde/gamma/Bsk auxiliary moduli come from nextNTTPrime instead.
func generateNTTPrimes(logQ int, nthRoot uint64, k int) (primes []uint64) {

	if logQ > 62 || logQ < 2 {
		panic(fmt.Errorf("invalid prime size: logQ=%d", logQ))
	}

	primes = make([]uint64, 0, k)

	// Start at the top of the range and walk down, as the teacher's Pi60
	// table does (primes "from 0x800000000000000 and upward").
	upperBound := (uint64(1) << uint64(logQ)) - 1
	Qi := upperBound - (upperBound % nthRoot) + 1

	for len(primes) < k {
		if Qi < nthRoot {
			panic(fmt.Errorf("not enough NTT primes of size %d found for nthRoot=%d", logQ, nthRoot))
		}
		if IsPrime(Qi) {
			primes = append(primes, Qi)
		}
		Qi -= nthRoot
	}

	return
}

// nextNTTPrime returns the first prime less than or equal to start that is
// congruent to 1 mod nthRoot. Used to generate auxiliary bases (Bsk, gamma)
// coprime with an existing set.
func nextNTTPrime(start uint64, nthRoot uint64, avoid map[uint64]bool) uint64 {
	Qi := start - (start % nthRoot) + 1
	if Qi > start {
		Qi -= nthRoot
	}
	for {
		if IsPrime(Qi) && !avoid[Qi] {
			return Qi
		}
		if Qi <= nthRoot {
			panic(fmt.Errorf("exhausted search space for an NTT prime below %d", start))
		}
		Qi -= nthRoot
	}
}

// randUint64 returns a cryptographically random value in [0, bound).
func randUint64(bound uint64) uint64 {
	n, err := rand.Int(rand.Reader, NewUint(bound))
	if err != nil {
		panic(err)
	}
	return n.Uint64()
}

// isPrimitiveRoot reports whether g^((q-1)/2) == q-1 (== -1) mod q, i.e.
// whether g is a quadratic non-residue. Ported from SEAL's
// util::is_primitive_root. Every primitive root passes this test, but so
// do some elements of smaller order; it does not check the other prime
// factors of q-1. Only valid when q is prime, which is the only case BFV
// moduli allow.
func isPrimitiveRoot(g, q uint64) bool {
	if g == 0 {
		return false
	}
	return ModExp(g, (q-1)/2, q) == q-1
}

// tryPrimitiveRoot ports SEAL's util::try_primitive_root: it samples up to
// 100 random candidates in [2, q-2] and returns the first one found to
// generate the full multiplicative group, i.e. g^((q-1)/p) != 1 for every
// prime factor p of q-1.
func tryPrimitiveRoot(q uint64, factors []uint64) (uint64, bool) {
	for attempt := 0; attempt < 100; attempt++ {
		g := randUint64(q-3) + 2 // g in [2, q-2]
		isRoot := true
		for _, p := range factors {
			if ModExp(g, (q-1)/p, q) == 1 {
				isRoot = false
				break
			}
		}
		if isRoot {
			return g, true
		}
	}
	return 0, false
}

// tryMinimalPrimitiveRoot ports SEAL's util::try_minimal_primitive_root: it
// finds *a* primitive root via tryPrimitiveRoot, then enumerates every
// primitive d-th root (d = q-1) by repeated squaring of the quadratic
// non-residue structure of the group, keeping the smallest one found.
//
// SEAL does this by generating the full set of primitive roots through
// g^i for i coprime to q-1, which for our (small, <=62 bit) moduli is cheap
// enough to do directly: we walk i = 1, 3, 5, ... (odd, since (q-1)/2 is
// always even for an NTT-friendly prime) and keep g^i whenever
// gcd(i, q-1) == 1, tracking the minimum.
func tryMinimalPrimitiveRoot(q uint64, factors []uint64) (uint64, bool) {
	g, ok := tryPrimitiveRoot(q, factors)
	if !ok {
		return 0, false
	}

	qm1 := q - 1
	min := g

	cur := uint64(1)
	for i := uint64(1); i < qm1; i += 2 {
		cur = MulModNaive(cur, MulModNaive(g, g, q), q)
		if gcdUint64(i, qm1) == 1 {
			candidate := ModExp(g, i, q)
			if candidate < min {
				min = candidate
			}
		}
	}

	return min, true
}

// MulModNaive computes a*b mod q using big.Int; only used in the (one-shot,
// non-hot-path) primitive root search.
func MulModNaive(a, b, q uint64) uint64 {
	r := new(big.Int).Mul(NewUint(a), NewUint(b))
	r.Mod(r, NewUint(q))
	return r.Uint64()
}

func gcdUint64(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// factorize returns the distinct prime factors of m via trial division.
// BFV moduli are <=62 bits, and q-1 for an NTT-friendly prime always carries
// a large power-of-two factor, so trial division up to sqrt(m) terminates
// quickly in practice for the parameter sizes this library targets.
func factorize(m uint64) (factors []uint64) {
	n := new(big.Int).SetUint64(m)
	two := big.NewInt(2)
	for new(big.Int).Mod(n, two).Sign() == 0 {
		factors = appendUnique(factors, 2)
		n.Div(n, two)
	}
	for d := big.NewInt(3); new(big.Int).Mul(d, d).Cmp(n) <= 0; d.Add(d, big.NewInt(2)) {
		for new(big.Int).Mod(n, d).Sign() == 0 {
			factors = appendUnique(factors, d.Uint64())
			n.Div(n, d)
		}
	}
	if n.Cmp(big.NewInt(1)) > 0 {
		factors = appendUnique(factors, n.Uint64())
	}
	return
}

func appendUnique(s []uint64, v uint64) []uint64 {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// PrimitiveRoot computes a minimal primitive root of q, using q-1's factors
// if supplied (skipping the trial-division factorization), following
// SEAL's util::try_minimal_primitive_root exactly rather than the teacher's
// brute-force "increment g until it works" search.
func PrimitiveRoot(q uint64, factors []uint64) (uint64, []uint64, error) {
	if factors == nil {
		factors = factorize(q - 1)
	} else if err := CheckFactors(q-1, factors); err != nil {
		return 0, factors, err
	}

	g, ok := tryMinimalPrimitiveRoot(q, factors)
	if !ok {
		return 0, factors, fmt.Errorf("failed to find a primitive root mod %d after 100 attempts", q)
	}
	return g, factors, nil
}

// CheckFactors checks that the given list of factors contains all the
// unique primes of m.
func CheckFactors(m uint64, factors []uint64) (err error) {
	for _, factor := range factors {
		if !IsPrime(factor) {
			return fmt.Errorf("composite factor %d", factor)
		}
		for m%factor == 0 {
			m /= factor
		}
	}
	if m != 1 {
		return fmt.Errorf("incomplete factor list")
	}
	return
}

// CheckPrimitiveRoot checks that g is a valid primitive root mod q, given
// the factors of q-1.
func CheckPrimitiveRoot(g, q uint64, factors []uint64) (err error) {
	if err = CheckFactors(q-1, factors); err != nil {
		return
	}
	if !isPrimitiveRoot(g, q) {
		return fmt.Errorf("invalid primitive root")
	}
	for _, factor := range factors {
		if ModExp(g, (q-1)/factor, q) == 1 {
			return fmt.Errorf("invalid primitive root")
		}
	}
	return
}
