// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

// Package bbs implements the Blum–Blum–Shub bit generator: the state steps
// by squaring modulo M = p·q for two safe primes and emits low bits of the
// residue. Because x_i = x₀^(2^i mod λ(M)) mod M, the stream admits O(log i)
// random access to any position.
package bbs

import (
	"context"
	crand "crypto/rand"
	"io"
	mbits "math/bits"
	"runtime"
	"time"

	"github.com/pkg/errors"

	"github.com/blumshub/bbsrand/common"
	"github.com/blumshub/bbsrand/crypto/arith"
	"github.com/blumshub/bbsrand/crypto/prime"
)

const (
	minModulusBits = 32
	// Ticker for printing log statements while generating primes
	logProgressTickInterval = 8 * time.Second
)

// Generator is a seekable BBS bit stream. A single instance has
// exclusive-writer semantics: callers wanting parallel streams must create
// separate generators.
type Generator struct {
	m  *arith.Uint // modulus M = p·q
	x0 *arith.Uint // seed, coprime to M
	x  *arith.Uint // current residue, x ≡ x0^(2^pos) (mod M)
	c  *arith.Uint // Carmichael exponent λ(M) = lcm(p−1, q−1)
	p  *arith.Uint // retained for seed checks; nil after Restore
	q  *arith.Uint

	pos    uint64
	rm, rc *arith.Barrett

	bitsPerStep int
}

// New creates a generator with a freshly generated modulus of at most
// modulusBits bits: it finds two distinct safe primes ≡ 3 (mod 4) of
// modulusBits/2 − 1 bits each, multiplies them, and rejection-samples a seed coprime to the
// product. rnd defaults to crypto/rand. If not specified, a concurrency
// value equal to the number of available CPU cores is used for the prime
// search.
func New(ctx context.Context, rnd io.Reader, modulusBits int, optionalConcurrency ...int) (*Generator, error) {
	var concurrency int
	if 0 < len(optionalConcurrency) {
		if 1 < len(optionalConcurrency) {
			panic(errors.New("New: expected 0 or 1 item in `optionalConcurrency`"))
		}
		concurrency = optionalConcurrency[0]
	} else {
		concurrency = runtime.NumCPU()
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if rnd == nil {
		rnd = crand.Reader
	}
	if modulusBits < minModulusBits || modulusBits%2 != 0 {
		return nil, errors.Errorf("modulus size must be an even number of at least %d bits, got %d", minModulusBits, modulusBits)
	}

	type pairResult struct {
		first, second *prime.GermainSafePrime
		err           error
	}
	ch := make(chan pairResult, 1)
	go func() {
		common.Logger.Infof("generating two safe primes for a %d-bit modulus, please wait...", modulusBits)
		start := time.Now()
		first, second, err := prime.GenerateSafePrimePair(ctx, rnd, modulusBits/2, concurrency)
		if err == nil {
			common.Logger.Infof("safe primes generated. took %s", time.Since(start))
		}
		ch <- pairResult{first, second, err}
	}()

	logProgressTicker := time.NewTicker(logProgressTickInterval)
	defer logProgressTicker.Stop()
	for {
		select {
		case <-logProgressTicker.C:
			common.Logger.Info("still generating primes...")
		case res := <-ch:
			if res.err != nil {
				return nil, res.err
			}
			return NewFromPrimes(rnd, res.first.SafePrime(), res.second.SafePrime())
		}
	}
}

// NewFromPrimes builds a generator over caller-supplied safe primes and
// samples a fresh seed from rnd.
func NewFromPrimes(rnd io.Reader, p, q *arith.Uint) (*Generator, error) {
	if rnd == nil {
		rnd = crand.Reader
	}
	return newGenerator(rnd, p, q, nil)
}

// NewFromSeed builds a fully deterministic generator from caller-supplied
// primes and seed; no entropy is consumed.
func NewFromSeed(p, q, x0 *arith.Uint) (*Generator, error) {
	return newGenerator(nil, p, q, x0)
}

func newGenerator(rnd io.Reader, p, q, x0 *arith.Uint) (*Generator, error) {
	if p.Bit(0) != 1 || p.Bit(1) != 1 || q.Bit(0) != 1 || q.Bit(1) != 1 {
		return nil, errors.New("both primes must be congruent to 3 mod 4")
	}
	if p.Cmp(q) == 0 {
		return nil, errors.New("the primes must be distinct")
	}
	w := p.Width()
	if q.Width() > w {
		w = q.Width()
	}
	pw := p.Resize(w)
	qw := q.Resize(w)

	m := arith.MulWide(pw, qw) // width 2w
	one := arith.NewUint(w).SetUint64(1)
	pm1 := arith.NewUint(w)
	pm1.Sub(pw, one)
	qm1 := arith.NewUint(w)
	qm1.Sub(qw, one)

	// λ(M) = lcm(p−1, q−1) = (p−1)(q−1)/gcd(p−1, q−1)
	g := arith.Gcd(pm1, qm1)
	prod := arith.MulWide(pm1, qm1)
	c, _ := arith.QuoRem(prod, g)

	gen := &Generator{
		m:           m,
		c:           c,
		p:           pw,
		q:           qw,
		rm:          arith.NewBarrett(m),
		rc:          arith.NewBarrett(c),
		bitsPerStep: 1,
	}

	if x0 == nil {
		seed, err := gen.sampleSeed(rnd)
		if err != nil {
			return nil, err
		}
		x0 = seed
	} else {
		x0 = x0.Resize(m.Width())
		if err := gen.checkSeed(x0); err != nil {
			return nil, err
		}
	}
	gen.x0 = x0
	gen.x = x0.Clone()
	return gen, nil
}

// sampleSeed rejection-samples x from [2, M) until x is divisible by neither
// prime, which is exactly gcd(x, M) = 1.
func (g *Generator) sampleSeed(rnd io.Reader) (*arith.Uint, error) {
	two := arith.NewUint(g.m.Width()).SetUint64(2)
	for {
		x, err := common.RandomUintBelow(rnd, g.m)
		if err != nil {
			return nil, err
		}
		if x.Cmp(two) < 0 {
			continue
		}
		if _, r := arith.QuoRem(x, g.p); r.IsZero() {
			continue
		}
		if _, r := arith.QuoRem(x, g.q); r.IsZero() {
			continue
		}
		return x, nil
	}
}

func (g *Generator) checkSeed(x *arith.Uint) error {
	one := arith.NewUint(x.Width()).SetUint64(1)
	if x.Cmp(one) <= 0 || x.Cmp(g.m) >= 0 {
		return errors.New("seed must satisfy 1 < x0 < M")
	}
	if _, r := arith.QuoRem(x, g.p); r.IsZero() {
		return errors.New("seed must not be divisible by p")
	}
	if _, r := arith.QuoRem(x, g.q); r.IsZero() {
		return errors.New("seed must not be divisible by q")
	}
	return nil
}

// Step advances the state one position: x ← x² mod M.
func (g *Generator) Step() {
	g.x = g.rm.Reduce(arith.MulWide(g.x, g.x))
	g.pos++
}

// Seek repositions the stream at position i in O(log i) modular work:
// e = 2^i mod λ(M), then x = x₀^e mod M. Valid for any i including those far
// beyond the period, since the exponent is reduced first.
func (g *Generator) Seek(i uint64) {
	iU := arith.NewUint(64).SetUint64(i)
	two := arith.NewUint(g.c.Width()).SetUint64(2)
	e := g.rc.Exp(two, iU)
	g.x = g.rm.Exp(g.x0, e)
	g.pos = i
}

// Pos returns how many squaring steps the current residue is from the seed.
func (g *Generator) Pos() uint64 {
	return g.pos
}

// Modulus returns a copy of M.
func (g *Generator) Modulus() *arith.Uint {
	return g.m.Clone()
}

// NextBit steps once and returns the parity of the new residue.
func (g *Generator) NextBit() uint {
	g.Step()
	return g.x.Bit(0)
}

// NextBits produces k stream bits packed MSB-first: the first bit generated
// lands in the highest position of the result. 1 ≤ k ≤ 64.
func (g *Generator) NextBits(k int) uint64 {
	if k < 1 || k > 64 {
		panic(errors.Errorf("NextBits: k must be in [1, 64], got %d", k))
	}
	var out uint64
	for got := 0; got < k; {
		g.Step()
		take := g.bitsPerStep
		if take > k-got {
			take = k - got
		}
		out = out<<uint(take) | g.x.Uint64()&(1<<uint(take)-1)
		got += take
	}
	return out
}

// NextBytes fills buf with stream bytes, 8 bits per byte MSB-first.
func (g *Generator) NextBytes(buf []byte) {
	for i := range buf {
		buf[i] = byte(g.NextBits(8))
	}
}

// Next64 returns the next 64 stream bits as an unsigned value.
func (g *Generator) Next64() uint64 {
	return g.NextBits(64)
}

// Read implements io.Reader over the bit stream. It never fails.
func (g *Generator) Read(p []byte) (int, error) {
	g.NextBytes(p)
	return len(p), nil
}

// SetBitsPerStep sets how many low bits each squaring contributes to the
// output. The classical security argument only covers values up to
// floor(log2 log2 M); anything above the cap is rejected.
func (g *Generator) SetBitsPerStep(b int) error {
	limit := maxBitsPerStep(g.m.BitLen())
	if b < 1 || b > limit {
		return errors.Errorf("bits per step must be in [1, %d], got %d", limit, b)
	}
	g.bitsPerStep = b
	return nil
}

func maxBitsPerStep(modBits int) int {
	l := mbits.Len(uint(modBits-1)) - 1
	if l < 1 {
		l = 1
	}
	return l
}
