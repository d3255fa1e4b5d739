// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package arith

// Gcd returns the greatest common divisor of x and y by Stein's binary
// algorithm: only shifts, subtractions and comparisons. Gcd(0, 0) is 0.
func Gcd(x, y *Uint) *Uint {
	w := x.Width()
	if y.Width() > w {
		w = y.Width()
	}
	a := x.Resize(w)
	b := y.Resize(w)
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	az := a.TrailingZeros()
	bz := b.TrailingZeros()
	shift := az
	if bz < shift {
		shift = bz
	}
	a.Shr(a, uint(az))
	b.Shr(b, uint(bz))
	// both odd from here on
	for {
		if a.Cmp(b) > 0 {
			a, b = b, a
		}
		b.Sub(b, a)
		if b.IsZero() {
			break
		}
		b.Shr(b, uint(b.TrailingZeros()))
	}
	return a.Shl(a, uint(shift))
}
