// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package prime

import (
	"io"

	"github.com/blumshub/bbsrand/common"
	"github.com/blumshub/bbsrand/crypto/arith"
)

// MillerRabin runs `rounds` rounds of the Miller–Rabin probabilistic
// primality test on n, drawing witnesses from rnd. A false result is
// definitive; a true result means "probably prime" with error at most
// 4^-rounds. The only error returned is an entropy failure.
func MillerRabin(rnd io.Reader, n *arith.Uint, rounds int) (bool, error) {
	w := n.Width()
	one := arith.NewUint(w).SetUint64(1)
	two := arith.NewUint(w).SetUint64(2)
	three := arith.NewUint(w).SetUint64(3)
	if n.Cmp(three) <= 0 {
		v := n.Uint64()
		return v == 2 || v == 3, nil
	}
	if n.Bit(0) == 0 {
		return false, nil
	}

	// n−1 = 2^s · d with d odd
	nm1 := arith.NewUint(w)
	nm1.Sub(n, one)
	s := nm1.TrailingZeros()
	d := arith.NewUint(w).Shr(nm1, uint(s))

	nm3 := arith.NewUint(w)
	nm3.Sub(n, three)
	shift := uint(w - nm3.BitLen())

	br := arith.NewBarrett(n)
	buf := make([]byte, w/8)
	for round := 0; round < rounds; round++ {
		// uniform witness in [2, n−2]: draw, shift down to the bit budget
		// of n−3, reject until below it, then offset by 2
		var a *arith.Uint
		for {
			if err := common.ReadFull(rnd, buf); err != nil {
				return false, err
			}
			a = arith.NewUint(w).SetBytesLE(buf)
			a.Shr(a, shift)
			if a.Cmp(nm3) < 0 {
				break
			}
		}
		a.Add(a, two)

		y := br.Exp(a, d)
		if y.Cmp(one) == 0 || y.Cmp(nm1) == 0 {
			continue
		}
		witness := true
		for j := 0; j < s-1; j++ {
			y = br.MulMod(y, y)
			if y.Cmp(nm1) == 0 {
				witness = false
				break
			}
			if y.Cmp(one) == 0 {
				break
			}
		}
		if witness {
			return false, nil
		}
	}
	return true, nil
}
