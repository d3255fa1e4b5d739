// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package common

import (
	"io"

	"github.com/pkg/errors"

	"github.com/blumshub/bbsrand/crypto/arith"
)

// ReadFull fills buf from the entropy source, wrapping any failure.
func ReadFull(rnd io.Reader, buf []byte) error {
	if _, err := io.ReadFull(rnd, buf); err != nil {
		return errors.Wrap(err, "entropy source read failed")
	}
	return nil
}

// RandomUint draws a uniformly distributed value below 2^bits, returned at
// the given width. It reads width/8 bytes and discards the excess high bits
// with a right shift.
func RandomUint(rnd io.Reader, width, bits int) (*arith.Uint, error) {
	if bits <= 0 || bits > width {
		return nil, errors.Errorf("RandomUint: bits must be in [1, %d], got %d", width, bits)
	}
	buf := make([]byte, width/8)
	if err := ReadFull(rnd, buf); err != nil {
		return nil, err
	}
	v := arith.NewUint(width).SetBytesLE(buf)
	return v.Shr(v, uint(width-bits)), nil
}

// RandomUintBelow rejection-samples a uniform value in [0, bound).
func RandomUintBelow(rnd io.Reader, bound *arith.Uint) (*arith.Uint, error) {
	if bound.IsZero() {
		return nil, errors.New("RandomUintBelow: bound must be positive")
	}
	bits := bound.BitLen()
	for {
		v, err := RandomUint(rnd, bound.Width(), bits)
		if err != nil {
			return nil, err
		}
		if v.Cmp(bound) < 0 {
			return v, nil
		}
	}
}
