// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package bbs

import (
	"bytes"
	"context"
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blumshub/bbsrand/crypto/arith"
	"github.com/blumshub/bbsrand/crypto/prime"
)

// 127- and 125-bit safe primes used throughout as a deterministic fixture.
const (
	fixtureP = "5c5906be67a75ae0e321cfe8d4a77a7f"
	fixtureQ = "1b218cd3e4bf641c6073e86b8e6b9687"
)

func fixtureGenerator(t *testing.T) *Generator {
	t.Helper()
	p := arith.MustHex(128, fixtureP)
	q := arith.MustHex(128, fixtureQ)
	x0 := arith.NewUint(64).SetUint64(2)
	g, err := NewFromSeed(p, q, x0)
	require.NoError(t, err)
	return g
}

func bigFrom(u *arith.Uint) *big.Int {
	le := u.BytesLE()
	be := make([]byte, len(le))
	for i, b := range le {
		be[len(le)-1-i] = b
	}
	return new(big.Int).SetBytes(be)
}

func fixtureBigs() (p, q, m, c *big.Int) {
	p, _ = new(big.Int).SetString(fixtureP, 16)
	q, _ = new(big.Int).SetString(fixtureQ, 16)
	m = new(big.Int).Mul(p, q)
	pm1 := new(big.Int).Sub(p, big.NewInt(1))
	qm1 := new(big.Int).Sub(q, big.NewInt(1))
	g := new(big.Int).GCD(nil, nil, pm1, qm1)
	c = new(big.Int).Mul(pm1, qm1)
	c.Div(c, g)
	return
}

func TestFirstSquarings(t *testing.T) {
	g := fixtureGenerator(t)
	assert.Equal(t, uint64(0), g.Pos())

	g.Step()
	assert.Equal(t, uint64(4), g.x.Uint64())
	g.Step()
	assert.Equal(t, uint64(16), g.x.Uint64())
	g.Step()
	assert.Equal(t, uint64(256), g.x.Uint64())
	assert.Equal(t, uint64(3), g.Pos())
	assert.Equal(t, 9, g.x.BitLen())
}

func TestCarmichaelExponent(t *testing.T) {
	g := fixtureGenerator(t)
	_, _, mBig, cBig := fixtureBigs()
	assert.Equal(t, 0, bigFrom(g.m).Cmp(mBig))
	assert.Equal(t, 0, bigFrom(g.c).Cmp(cBig))
	// Euler: x0^c = 1 (mod M) for x0 coprime to M
	one := new(big.Int).Exp(bigFrom(g.x0), cBig, mBig)
	assert.Equal(t, 0, one.Cmp(big.NewInt(1)))
}

func TestSeekMatchesStepping(t *testing.T) {
	g := fixtureGenerator(t)
	for i := 0; i < 10; i++ {
		g.Step()
	}
	stepped := g.x.Clone()

	g2 := fixtureGenerator(t)
	g2.Seek(10)
	assert.Equal(t, 0, stepped.Cmp(g2.x))
	assert.Equal(t, uint64(10), g2.Pos())
}

func TestSeekIdempotent(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(37)
	x1 := g.x.Clone()
	g.Seek(37)
	assert.Equal(t, 0, x1.Cmp(g.x))
}

func TestSeekStepCommutation(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(25)
	for i := 0; i < 7; i++ {
		g.Step()
	}
	g2 := fixtureGenerator(t)
	g2.Seek(32)
	assert.Equal(t, 0, g.x.Cmp(g2.x))
	assert.Equal(t, g.Pos(), g2.Pos())
}

func TestSeekZeroRestoresSeed(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(1000)
	g.Seek(0)
	assert.Equal(t, 0, g.x.Cmp(g.x0))
	assert.Equal(t, uint64(0), g.Pos())
}

func TestReplayability(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(0)
	out1 := make([]byte, 8)
	g.NextBytes(out1)
	g.Seek(0)
	out2 := make([]byte, 8)
	g.NextBytes(out2)
	assert.True(t, bytes.Equal(out1, out2))
}

func TestPositionReachedEitherWay(t *testing.T) {
	g1 := fixtureGenerator(t)
	for i := 0; i < 512; i++ {
		g1.Step()
	}
	out1 := make([]byte, 64)
	g1.NextBytes(out1)

	g2 := fixtureGenerator(t)
	g2.Seek(512)
	out2 := make([]byte, 64)
	g2.NextBytes(out2)

	assert.True(t, bytes.Equal(out1, out2))
	assert.Equal(t, g1.Pos(), g2.Pos())
}

func TestLargeJump(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(1 << 60)

	_, _, mBig, cBig := fixtureBigs()
	e := new(big.Int).Exp(big.NewInt(2), new(big.Int).Lsh(big.NewInt(1), 60), cBig)
	want := new(big.Int).Exp(big.NewInt(2), e, mBig)
	assert.Equal(t, 0, bigFrom(g.x).Cmp(want))
	assert.Equal(t, uint64(1)<<60, g.Pos())
}

func TestStepAfterSeek(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(41)
	g.Step()
	assert.Equal(t, uint64(42), g.Pos())

	g2 := fixtureGenerator(t)
	g2.Seek(42)
	assert.Equal(t, 0, g.x.Cmp(g2.x))
}

func TestNextBitsPacking(t *testing.T) {
	// the first bit generated must land in the highest position
	g1 := fixtureGenerator(t)
	bits := make([]uint, 16)
	for i := range bits {
		bits[i] = g1.NextBit()
	}
	g2 := fixtureGenerator(t)
	packed := g2.NextBits(16)
	for i, b := range bits {
		assert.Equal(t, uint64(b), packed>>(15-uint(i))&1, "bit %d", i)
	}
}

func TestNext64MatchesBytes(t *testing.T) {
	g1 := fixtureGenerator(t)
	v := g1.Next64()
	g2 := fixtureGenerator(t)
	buf := make([]byte, 8)
	g2.NextBytes(buf)
	for i := 0; i < 8; i++ {
		assert.Equal(t, buf[i], byte(v>>(56-8*uint(i))), "byte %d", i)
	}
}

func TestReadInterface(t *testing.T) {
	g1 := fixtureGenerator(t)
	buf1 := make([]byte, 24)
	n, err := g1.Read(buf1)
	require.NoError(t, err)
	assert.Equal(t, 24, n)

	g2 := fixtureGenerator(t)
	buf2 := make([]byte, 24)
	g2.NextBytes(buf2)
	assert.True(t, bytes.Equal(buf1, buf2))
}

func TestSeedSamplingCoprime(t *testing.T) {
	p := arith.MustHex(128, fixtureP)
	q := arith.MustHex(128, fixtureQ)
	for i := 0; i < 4; i++ {
		g, err := NewFromPrimes(rand.Reader, p, q)
		require.NoError(t, err)
		gcd := new(big.Int).GCD(nil, nil, bigFrom(g.x0), bigFrom(g.m))
		assert.Equal(t, 0, gcd.Cmp(big.NewInt(1)))
		assert.True(t, bigFrom(g.x0).Cmp(big.NewInt(1)) > 0)
		assert.True(t, bigFrom(g.x0).Cmp(bigFrom(g.m)) < 0)
	}
}

func TestSeedValidation(t *testing.T) {
	p := arith.MustHex(128, fixtureP)
	q := arith.MustHex(128, fixtureQ)

	_, err := NewFromSeed(p, q, arith.NewUint(64).SetUint64(1))
	assert.Error(t, err)

	_, err = NewFromSeed(p, q, p.Resize(256)) // divisible by p
	assert.Error(t, err)

	m := arith.MulWide(p, q)
	_, err = NewFromSeed(p, q, m) // not below M
	assert.Error(t, err)
}

func TestConstructionValidation(t *testing.T) {
	p := arith.MustHex(128, fixtureP)
	q := arith.MustHex(128, fixtureQ)

	_, err := NewFromPrimes(rand.Reader, p, p)
	assert.Error(t, err)

	oneMod4 := arith.NewUint(64).SetUint64(13)
	_, err = NewFromPrimes(rand.Reader, oneMod4, q)
	assert.Error(t, err)

	_, err = New(context.Background(), rand.Reader, 31)
	assert.Error(t, err)
}

func TestBitsPerStepKnob(t *testing.T) {
	g := fixtureGenerator(t)
	// log2 log2 M = 7 for a 252-bit modulus
	assert.Error(t, g.SetBitsPerStep(0))
	assert.Error(t, g.SetBitsPerStep(8))
	require.NoError(t, g.SetBitsPerStep(7))

	// same stream positions, denser extraction
	g.Seek(0)
	v := g.NextBits(14)
	g2 := fixtureGenerator(t)
	g2.Step()
	first := g2.x.Uint64() & 0x7f
	g2.Step()
	second := g2.x.Uint64() & 0x7f
	assert.Equal(t, first<<7|second, v)
}

func TestMonobitSmoke(t *testing.T) {
	g := fixtureGenerator(t)
	buf := make([]byte, 8192)
	g.NextBytes(buf)
	var ones int
	for _, b := range buf {
		for i := 0; i < 8; i++ {
			ones += int(b>>uint(i)) & 1
		}
	}
	total := len(buf) * 8
	frac := float64(ones) / float64(total)
	assert.InDelta(t, 0.5, frac, 0.02, "monobit fraction %f", frac)
}

func TestFullConstruction(t *testing.T) {
	g, err := New(context.Background(), rand.Reader, 128, 2)
	require.NoError(t, err)
	assert.True(t, g.Modulus().BitLen() <= 128)

	// the stream must replay
	g.Seek(0)
	a := make([]byte, 16)
	g.NextBytes(a)
	g.Seek(0)
	b := make([]byte, 16)
	g.NextBytes(b)
	assert.True(t, bytes.Equal(a, b))
}

func TestConstructionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(ctx, rand.Reader, 2048, 2)
	assert.Equal(t, prime.ErrGeneratorCancelled, err)
}
