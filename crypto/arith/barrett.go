// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package arith

// Barrett reduces double-width values modulo a fixed modulus without
// division, using the precomputed reciprocal mu = floor(2^(2w) / m) where w
// is the modulus width. The multiply-high approximation undershoots the true
// quotient by at most two, so the remainder candidate is v mod m, possibly
// plus m or 2m; the trailing compare-and-subtract restores canonical form.
type Barrett struct {
	m     *Uint // modulus, width w
	mWide *Uint // modulus zero-extended to 2w
	mu    *Uint // floor(2^(2w) / m), width 2w
}

// NewBarrett precomputes the reciprocal for m. m must be at least 2; its
// width fixes the reducer's operand width.
func NewBarrett(m *Uint) *Barrett {
	if m.BitLen() < 2 {
		panic("arith: Barrett modulus must be at least 2")
	}
	w := m.Width()
	// mu = floor(2^(2w) / m); with m >= 2 this fits in 2w bits.
	num := NewUint(2*w + limbBits)
	num.setBit(2 * w)
	mu, _ := QuoRem(num, m)
	return &Barrett{
		m:     m.Clone(),
		mWide: m.Resize(2 * w),
		mu:    mu.Resize(2 * w),
	}
}

// Modulus returns a copy of the modulus.
func (b *Barrett) Modulus() *Uint {
	return b.m.Clone()
}

// Reduce returns v mod m. v may be any value of width 2w (narrower values
// are zero-extended).
func (b *Barrett) Reduce(v *Uint) *Uint {
	w2 := 2 * b.m.Width()
	if v.Width() != w2 {
		v = v.Resize(w2)
	}
	// q = (mu * v) >> 2w, the quotient estimate; 4w-bit intermediate.
	q := MulWide(b.mu, v)
	q.Shr(q, uint(w2))
	qlo := q.Resize(w2)
	// r = v - q*m, taken at 2w width; the true remainder fits.
	t := MulLow(qlo, b.mWide)
	r := NewUint(w2)
	r.Sub(v, t)
	for r.Cmp(b.mWide) >= 0 {
		r.Sub(r, b.mWide)
	}
	return r.Resize(b.m.Width())
}

// MulMod returns x*y mod m for x, y of the modulus width.
func (b *Barrett) MulMod(x, y *Uint) *Uint {
	return b.Reduce(MulWide(x, y))
}

// Exp returns base^exp mod m by right-to-left binary exponentiation; every
// multiply and square goes through the reducer.
func (b *Barrett) Exp(base, exp *Uint) *Uint {
	w := b.m.Width()
	acc := NewUint(w).SetUint64(1)
	sq := base.Resize(w)
	if sq.Cmp(b.m) >= 0 {
		sq = b.Reduce(sq.Resize(2 * w))
	}
	n := exp.BitLen()
	for i := 0; i < n; i++ {
		if exp.Bit(i) == 1 {
			acc = b.MulMod(acc, sq)
		}
		if i+1 < n {
			sq = b.MulMod(sq, sq)
		}
	}
	return acc
}
