// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package prime

import (
	"math"

	"github.com/otiai10/primes"

	"github.com/blumshub/bbsrand/crypto/arith"
)

const (
	// fast-path trial division depth; the generated-sieve path may go deeper
	defaultSievePrimes = 99
	maxSievePrimes     = 2048
)

func init() {
	// prime the shared small-primes cache for the fast path
	_ = primes.Globally.Until(nthPrimeBound(defaultSievePrimes + 1))
}

// nthPrimeBound returns an upper bound for the n-th prime,
// p_n < n(ln n + ln ln n) for n >= 6.
func nthPrimeBound(n int) int64 {
	if n < 6 {
		return 13
	}
	f := float64(n)
	return int64(f*(math.Log(f)+math.Log(math.Log(f)))) + 1
}

// Sieve rejects candidates of a fixed bit width with a small-prime factor.
// Divisibility is tested through reciprocals precomputed at W, twice the
// candidate width: for odd p and n < 2^(W/2),
// p | n  ⇔  n·⌈2^W/p⌉ mod 2^W ≤ ⌈2^W/p⌉ − 1,
// so each small prime costs one wrap-around multiply and a compare.
type Sieve struct {
	width  int
	ps     []uint64
	recips []*arith.Uint // ⌈2^W/p⌉
	bounds []*arith.Uint // ⌈2^W/p⌉ − 1
}

// NewSieve builds reciprocals for the first `count` odd small primes at the
// given candidate width. count is clamped to the generated-sieve maximum.
func NewSieve(width, count int) *Sieve {
	if count < 1 {
		count = 1
	}
	if count > maxSievePrimes {
		count = maxSievePrimes
	}
	list := primes.Until(nthPrimeBound(count + 1)).List()
	// drop 2: candidates are odd by construction, and the reciprocal trick
	// needs gcd(p, 2^W) = 1
	list = list[1:]
	if len(list) > count {
		list = list[:count]
	}
	// the identity only holds for n < 2^(W/2), so W is twice the candidate width
	rw := 2 * width
	s := &Sieve{
		width:  rw,
		ps:     make([]uint64, 0, len(list)),
		recips: make([]*arith.Uint, 0, len(list)),
		bounds: make([]*arith.Uint, 0, len(list)),
	}
	one := arith.NewUint(rw).SetUint64(1)
	allOnes := arith.NewUint(rw)
	allOnes.Sub(allOnes, one) // 2^W − 1
	for _, p := range list {
		pU := arith.NewUint(rw).SetUint64(uint64(p))
		// ⌈2^W/p⌉ = ⌊(2^W−1)/p⌋ + 1 since p never divides 2^W
		bound, _ := arith.QuoRem(allOnes, pU)
		recip := bound.Clone()
		recip.Add(recip, one)
		s.ps = append(s.ps, uint64(p))
		s.recips = append(s.recips, recip)
		s.bounds = append(s.bounds, bound)
	}
	return s
}

// Test reports whether n survives trial division: true means "possibly
// prime", false means a small-prime factor was found. It never proves
// primality.
func (s *Sieve) Test(n *arith.Uint) bool {
	if n.Bit(0) == 0 {
		return n.BitLen() == 2 && n.Uint64() == 2
	}
	nw := n
	if nw.Width() != s.width {
		nw = n.Resize(s.width)
	}
	small := n.BitLen() <= 32
	for i, p := range s.ps {
		if small && n.Uint64() == p {
			continue
		}
		prod := arith.MulLow(nw, s.recips[i])
		if prod.Cmp(s.bounds[i]) <= 0 {
			return false
		}
	}
	return true
}
