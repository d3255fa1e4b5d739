// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package prime

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/blumshub/bbsrand/crypto/arith"
)

func TestSieveRejectsSmallFactors(t *testing.T) {
	s := NewSieve(64, defaultSievePrimes)
	for _, n := range []uint64{
		9,            // 3^2
		105,          // 3*5*7
		523 * 547,    // one factor inside the fast sieve
		541 * 104729, // deepest fast-path prime times a large prime
		7919 * 3,
	} {
		assert.False(t, s.Test(arith.NewUint(64).SetUint64(n)), "n=%d", n)
	}
}

func TestSievePassesPrimes(t *testing.T) {
	s := NewSieve(64, defaultSievePrimes)
	for _, n := range []uint64{
		2,
		3, 541, // sieve primes themselves are not their own witnesses
		104729,
		0xFFFFFFFFFFFFFFC5, // 2^64 - 59
	} {
		assert.True(t, s.Test(arith.NewUint(64).SetUint64(n)), "n=%d", n)
	}
}

func TestSieveNeverClaimsPrimality(t *testing.T) {
	// both factors beyond the sieve depth: the sieve must let it through
	s := NewSieve(64, defaultSievePrimes)
	assert.True(t, s.Test(arith.NewUint(64).SetUint64(547*557)))
}

func TestSieveRejectsEven(t *testing.T) {
	s := NewSieve(64, defaultSievePrimes)
	assert.False(t, s.Test(arith.NewUint(64).SetUint64(10)))
	assert.False(t, s.Test(arith.NewUint(64).SetUint64(1 << 40)))
}

func TestSieveDeepPath(t *testing.T) {
	// the generated-sieve path goes deeper than the fast path
	s := NewSieve(128, maxSievePrimes)
	assert.Equal(t, maxSievePrimes, len(s.ps))
	deepest := s.ps[len(s.ps)-1]
	assert.Greater(t, deepest, uint64(17000))
	assert.False(t, s.Test(arith.NewUint(128).SetUint64(deepest*104729)))
}

func TestNthPrimeBound(t *testing.T) {
	// the bound must cover the sieve depths we rely on
	assert.GreaterOrEqual(t, nthPrimeBound(100), int64(541))
	assert.GreaterOrEqual(t, nthPrimeBound(2049), int64(17881))
}
