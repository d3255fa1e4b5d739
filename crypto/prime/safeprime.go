// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package prime

import (
	"context"
	crand "crypto/rand"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/blumshub/bbsrand/common"
	"github.com/blumshub/bbsrand/crypto/arith"
)

const (
	// Miller–Rabin rounds on the Germain half; error at most 2^-128
	mrRounds = 64
	// rounds used when re-validating an already accepted pair
	validateRounds = 30
)

// ErrGeneratorCancelled is returned when the search ends because the context
// was done before a prime was found.
var ErrGeneratorCancelled = fmt.Errorf("safe prime generator work cancelled")

type (
	// GermainSafePrime holds a Sophie Germain prime q and its safe prime
	// p = 2q + 1. By construction p ≡ 3 (mod 4), which makes p usable as a
	// Blum factor.
	GermainSafePrime struct {
		q,
		p *arith.Uint // p = 2q + 1
	}
)

func (sgp *GermainSafePrime) Prime() *arith.Uint {
	return sgp.q
}

func (sgp *GermainSafePrime) SafePrime() *arith.Uint {
	return sgp.p
}

// Validate re-checks the pair: q probably prime, p = 2q+1, and p passing the
// Fermat base-2 test. Entropy failures during the re-check report as invalid.
func (sgp *GermainSafePrime) Validate() bool {
	if sgp.q == nil || sgp.p == nil {
		return false
	}
	w := sgp.p.Width()
	doubled := arith.NewUint(w).Shl(sgp.q.Resize(w), 1)
	doubled.SetBit(0)
	if doubled.Cmp(sgp.p) != 0 {
		return false
	}
	ok, err := MillerRabin(crand.Reader, sgp.q, validateRounds)
	if err != nil || !ok {
		return false
	}
	return fermatBase2(sgp.p)
}

// ----- //

// fermatBase2 checks 2^(p-1) ≡ 1 (mod p). With (p-1)/2 already proven prime
// this is Pocklington's criterion and proves p prime; it is far cheaper than
// a second Miller–Rabin pass.
func fermatBase2(p *arith.Uint) bool {
	w := p.Width()
	one := arith.NewUint(w).SetUint64(1)
	two := arith.NewUint(w).SetUint64(2)
	pm1 := arith.NewUint(w)
	pm1.Sub(p, one)
	br := arith.NewBarrett(p)
	return br.Exp(two, pm1).Cmp(one) == 0
}

// mod3 returns x mod 3 using 2^8 ≡ 1 (mod 3): the byte sum carries the
// residue.
func mod3(x *arith.Uint) uint64 {
	var s uint64
	for _, b := range x.BytesLE() {
		s += uint64(b % 3)
	}
	return s % 3
}

// generateCandidate makes a single attempt at finding a safe prime of at
// most bitLen-1 bits. It returns (nil, nil) when the candidate is rejected.
//
// The pipeline, cheapest test first:
//  1. Sample q below 2^(bitLen-2); set the top bit so the result is not too
//     small, and the low two bits so that q ≡ 3 (mod 4) and p = 2q+1 ≡ 3
//     (mod 4).
//  2. Reject q ≡ 1 (mod 3): p would then be a multiple of 3.
//  3. Trial-divide both q and p by the sieve primes.
//  4. Miller–Rabin on q.
//  5. Fermat base-2 on p, which by Pocklington proves p prime given q.
func generateCandidate(rnd io.Reader, sv *Sieve, width, bitLen int) (*GermainSafePrime, error) {
	q, err := common.RandomUint(rnd, width, bitLen-2)
	if err != nil {
		return nil, err
	}
	q.SetBit(bitLen - 3)
	q.SetBit(1)
	q.SetBit(0)

	if mod3(q) == 1 {
		return nil, nil
	}

	p := arith.NewUint(width).Shl(q, 1)
	p.SetBit(0) // p = 2q + 1

	if !sv.Test(q) || !sv.Test(p) {
		return nil, nil
	}
	ok, err := MillerRabin(rnd, q, mrRounds)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if !fermatBase2(p) {
		return nil, nil
	}
	return &GermainSafePrime{q: q, p: p}, nil
}

// GenerateSafePrime searches for a safe prime p = 2q+1 with p ≡ 3 (mod 4)
// and p below 2^(bitLen-1), racing `concurrency` workers. Workers observe a
// shared found flag on every iteration; the winner publishes under a mutex
// with a second check of the flag, so exactly one result is ever written.
// Worker entropy failures are aggregated; if the context ends first,
// ErrGeneratorCancelled is returned.
func GenerateSafePrime(ctx context.Context, rnd io.Reader, bitLen, concurrency int) (*GermainSafePrime, error) {
	if bitLen < 6 {
		return nil, errors.New("safe prime size must be at least 6 bits")
	}
	if concurrency < 1 {
		concurrency = 1
	}
	width := ((bitLen + 63) / 64) * 64
	sv := NewSieve(width, defaultSievePrimes)

	var (
		found  int32
		mu     sync.Mutex
		result *GermainSafePrime
		werrs  *multierror.Error
	)
	wg := &sync.WaitGroup{}
	start := time.Now()
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for atomic.LoadInt32(&found) == 0 {
				select {
				case <-ctx.Done():
					return
				default:
				}
				sgp, err := generateCandidate(rnd, sv, width, bitLen)
				if err != nil {
					mu.Lock()
					werrs = multierror.Append(werrs, err)
					mu.Unlock()
					return
				}
				if sgp == nil {
					continue
				}
				mu.Lock()
				if atomic.LoadInt32(&found) == 0 {
					result = sgp
					atomic.StoreInt32(&found, 1)
				}
				mu.Unlock()
				return
			}
		}()
	}
	wg.Wait()
	if result != nil {
		common.Logger.Debugf("safe prime of %d bits found in %s", result.SafePrime().BitLen(), time.Since(start))
		return result, nil
	}
	if err := werrs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return nil, ErrGeneratorCancelled
}

// GenerateSafePrimePair produces two distinct safe primes of the same size.
// The second search starts only after the first completes, which
// keeps the distinctness constraint a simple comparison.
func GenerateSafePrimePair(ctx context.Context, rnd io.Reader, bitLen, concurrency int) (*GermainSafePrime, *GermainSafePrime, error) {
	first, err := GenerateSafePrime(ctx, rnd, bitLen, concurrency)
	if err != nil {
		return nil, nil, err
	}
	for {
		second, err := GenerateSafePrime(ctx, rnd, bitLen, concurrency)
		if err != nil {
			return nil, nil, err
		}
		if second.SafePrime().Cmp(first.SafePrime()) != 0 {
			return first, second, nil
		}
		common.Logger.Debug("drew the same safe prime twice, retrying the second search")
	}
}
