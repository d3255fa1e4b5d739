// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package arith

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"
)

const limbBits = 64

// Uint is a fixed-width unsigned integer stored as little-endian 64-bit limbs.
// The width is chosen at construction and never changes; all arithmetic wraps
// modulo 2^width unless a method states otherwise. Widths are multiples of 64.
type Uint struct {
	limbs []uint64
}

// NewUint returns a zero value of the given bit width.
func NewUint(width int) *Uint {
	if width <= 0 || width%limbBits != 0 {
		panic(fmt.Sprintf("arith: width must be a positive multiple of %d, got %d", limbBits, width))
	}
	return &Uint{limbs: make([]uint64, width/limbBits)}
}

// Width returns the fixed bit width of z.
func (z *Uint) Width() int {
	return len(z.limbs) * limbBits
}

func (z *Uint) Clone() *Uint {
	c := &Uint{limbs: make([]uint64, len(z.limbs))}
	copy(c.limbs, z.limbs)
	return c
}

// Resize returns a copy of z at the given width. Widening zero-extends;
// narrowing truncates to the low bits.
func (z *Uint) Resize(width int) *Uint {
	r := NewUint(width)
	copy(r.limbs, z.limbs)
	return r
}

// Set copies the value of x into z, truncating or zero-extending to z's width.
func (z *Uint) Set(x *Uint) *Uint {
	n := copy(z.limbs, x.limbs)
	for i := n; i < len(z.limbs); i++ {
		z.limbs[i] = 0
	}
	return z
}

func (z *Uint) SetUint64(v uint64) *Uint {
	z.limbs[0] = v
	for i := 1; i < len(z.limbs); i++ {
		z.limbs[i] = 0
	}
	return z
}

// Uint64 returns the low 64 bits of z.
func (z *Uint) Uint64() uint64 {
	return z.limbs[0]
}

func (z *Uint) IsZero() bool {
	for _, l := range z.limbs {
		if l != 0 {
			return false
		}
	}
	return true
}

// Cmp compares the values of z and x; their widths may differ.
func (z *Uint) Cmp(x *Uint) int {
	n := len(z.limbs)
	if len(x.limbs) > n {
		n = len(x.limbs)
	}
	for i := n - 1; i >= 0; i-- {
		var zl, xl uint64
		if i < len(z.limbs) {
			zl = z.limbs[i]
		}
		if i < len(x.limbs) {
			xl = x.limbs[i]
		}
		if zl != xl {
			if zl < xl {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (z *Uint) checkWidth(xs ...*Uint) {
	for _, x := range xs {
		if len(x.limbs) != len(z.limbs) {
			panic("arith: operand width mismatch")
		}
	}
}

// Add sets z = x + y mod 2^width and returns the carry out.
func (z *Uint) Add(x, y *Uint) uint64 {
	z.checkWidth(x, y)
	var carry uint64
	for i := range z.limbs {
		z.limbs[i], carry = bits.Add64(x.limbs[i], y.limbs[i], carry)
	}
	return carry
}

// Sub sets z = x - y mod 2^width and returns the borrow out.
func (z *Uint) Sub(x, y *Uint) uint64 {
	z.checkWidth(x, y)
	var borrow uint64
	for i := range z.limbs {
		z.limbs[i], borrow = bits.Sub64(x.limbs[i], y.limbs[i], borrow)
	}
	return borrow
}

// Bit returns bit i of z, or 0 when i is out of range.
func (z *Uint) Bit(i int) uint {
	if i < 0 || i >= z.Width() {
		return 0
	}
	return uint(z.limbs[i/limbBits]>>(uint(i)%limbBits)) & 1
}

func (z *Uint) setBit(i int) {
	z.limbs[i/limbBits] |= 1 << (uint(i) % limbBits)
}

// SetBit sets bit i of z to 1.
func (z *Uint) SetBit(i int) *Uint {
	if i < 0 || i >= z.Width() {
		panic(fmt.Sprintf("arith: bit %d out of range for a %d-bit value", i, z.Width()))
	}
	z.setBit(i)
	return z
}

// BitLen returns the length of z in bits; the bit length of 0 is 0.
func (z *Uint) BitLen() int {
	for i := len(z.limbs) - 1; i >= 0; i-- {
		if z.limbs[i] != 0 {
			return i*limbBits + bits.Len64(z.limbs[i])
		}
	}
	return 0
}

// TrailingZeros returns the number of trailing zero bits of z; it returns the
// full width when z is 0.
func (z *Uint) TrailingZeros() int {
	for i, l := range z.limbs {
		if l != 0 {
			return i*limbBits + bits.TrailingZeros64(l)
		}
	}
	return z.Width()
}

// Shl sets z = x << n mod 2^width. z and x must share a width; aliasing is fine.
func (z *Uint) Shl(x *Uint, n uint) *Uint {
	z.checkWidth(x)
	if n >= uint(z.Width()) {
		return z.SetUint64(0)
	}
	limbShift := int(n / limbBits)
	bitShift := n % limbBits
	for i := len(z.limbs) - 1; i >= 0; i-- {
		var v uint64
		if i-limbShift >= 0 {
			v = x.limbs[i-limbShift] << bitShift
			if bitShift > 0 && i-limbShift-1 >= 0 {
				v |= x.limbs[i-limbShift-1] >> (limbBits - bitShift)
			}
		}
		z.limbs[i] = v
	}
	return z
}

// Shr sets z = x >> n. z and x must share a width; aliasing is fine.
func (z *Uint) Shr(x *Uint, n uint) *Uint {
	z.checkWidth(x)
	if n >= uint(z.Width()) {
		return z.SetUint64(0)
	}
	limbShift := int(n / limbBits)
	bitShift := n % limbBits
	for i := 0; i < len(z.limbs); i++ {
		var v uint64
		if i+limbShift < len(x.limbs) {
			v = x.limbs[i+limbShift] >> bitShift
			if bitShift > 0 && i+limbShift+1 < len(x.limbs) {
				v |= x.limbs[i+limbShift+1] << (limbBits - bitShift)
			}
		}
		z.limbs[i] = v
	}
	return z
}

// And sets z = x & y.
func (z *Uint) And(x, y *Uint) *Uint {
	z.checkWidth(x, y)
	for i := range z.limbs {
		z.limbs[i] = x.limbs[i] & y.limbs[i]
	}
	return z
}

// Or sets z = x | y.
func (z *Uint) Or(x, y *Uint) *Uint {
	z.checkWidth(x, y)
	for i := range z.limbs {
		z.limbs[i] = x.limbs[i] | y.limbs[i]
	}
	return z
}

// MulWide multiplies x and y into a fresh value of width x.Width()+y.Width(),
// so the product never wraps.
func MulWide(x, y *Uint) *Uint {
	z := &Uint{limbs: make([]uint64, len(x.limbs)+len(y.limbs))}
	for i, xi := range x.limbs {
		if xi == 0 {
			continue
		}
		var carry uint64
		for j, yj := range y.limbs {
			hi, lo := bits.Mul64(xi, yj)
			var c1, c2 uint64
			lo, c1 = bits.Add64(lo, z.limbs[i+j], 0)
			lo, c2 = bits.Add64(lo, carry, 0)
			z.limbs[i+j] = lo
			// hi is at most 2^64-2, so adding two carries cannot overflow
			carry = hi + c1 + c2
		}
		z.limbs[i+len(y.limbs)] += carry
	}
	return z
}

// MulLow multiplies x and y keeping only the low x.Width() bits (wrap-around
// product). x and y must share a width.
func MulLow(x, y *Uint) *Uint {
	x.checkWidth(y)
	n := len(x.limbs)
	z := &Uint{limbs: make([]uint64, n)}
	for i, xi := range x.limbs {
		if xi == 0 {
			continue
		}
		var carry uint64
		for j := 0; j < n-i; j++ {
			hi, lo := bits.Mul64(xi, y.limbs[j])
			var c1, c2 uint64
			lo, c1 = bits.Add64(lo, z.limbs[i+j], 0)
			lo, c2 = bits.Add64(lo, carry, 0)
			z.limbs[i+j] = lo
			carry = hi + c1 + c2
		}
	}
	return z
}

// QuoRem returns the quotient and remainder of x / y by shift-subtract long
// division. Both results take x's width. It panics when y is zero. This is
// O(width^2) and reserved for precomputation and construction paths.
func QuoRem(x, y *Uint) (*Uint, *Uint) {
	if y.IsZero() {
		panic("arith: division by zero")
	}
	w := x.Width()
	q := NewUint(w)
	if y.BitLen() > x.BitLen() {
		return q, x.Clone()
	}
	// One extra limb so the running remainder can hold 2y-1 before the
	// compare-and-subtract pulls it back below y.
	r := NewUint(w + limbBits)
	yw := y.Resize(w + limbBits)
	for i := x.BitLen() - 1; i >= 0; i-- {
		r.Shl(r, 1)
		r.limbs[0] |= uint64(x.Bit(i))
		if r.Cmp(yw) >= 0 {
			r.Sub(r, yw)
			q.setBit(i)
		}
	}
	return q, r.Resize(w)
}

// SetBytesLE interprets b as a little-endian unsigned integer. b must not be
// longer than width/8 bytes.
func (z *Uint) SetBytesLE(b []byte) *Uint {
	if len(b) > z.Width()/8 {
		panic(fmt.Sprintf("arith: %d bytes do not fit a %d-bit value", len(b), z.Width()))
	}
	z.SetUint64(0)
	var buf [8]byte
	for i := 0; i < len(b); i += 8 {
		n := copy(buf[:], b[i:])
		for j := n; j < 8; j++ {
			buf[j] = 0
		}
		z.limbs[i/8] = binary.LittleEndian.Uint64(buf[:])
	}
	return z
}

// BytesLE returns z as width/8 little-endian bytes.
func (z *Uint) BytesLE() []byte {
	out := make([]byte, z.Width()/8)
	for i, l := range z.limbs {
		binary.LittleEndian.PutUint64(out[i*8:], l)
	}
	return out
}

// MustHex parses a big-endian hex string (optionally 0x-prefixed) into a Uint
// of the given width, panicking on malformed input. Intended for fixtures.
func MustHex(width int, s string) *Uint {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	z := NewUint(width)
	if len(s) == 0 || len(s)*4 > width {
		panic(fmt.Sprintf("arith: hex string %q does not fit %d bits", s, width))
	}
	for _, c := range s {
		var d uint64
		switch {
		case c >= '0' && c <= '9':
			d = uint64(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint64(c-'a') + 10
		default:
			panic(fmt.Sprintf("arith: bad hex digit %q", c))
		}
		z.Shl(z, 4)
		z.limbs[0] |= d
	}
	return z
}

// String renders z as 0x-prefixed big-endian hex.
func (z *Uint) String() string {
	var b strings.Builder
	b.WriteString("0x")
	started := false
	for i := len(z.limbs) - 1; i >= 0; i-- {
		if !started {
			if z.limbs[i] == 0 && i > 0 {
				continue
			}
			fmt.Fprintf(&b, "%x", z.limbs[i])
			started = true
		} else {
			fmt.Fprintf(&b, "%016x", z.limbs[i])
		}
	}
	return b.String()
}
