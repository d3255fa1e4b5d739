// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package bbs

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/blumshub/bbsrand/crypto/arith"
)

// (M, x0, pos) fully determine the stream, and c makes the restored
// generator seekable, so a snapshot carries those, plus a format version and
// the bits-per-step setting. Integers are hex-encoded little-endian canonical
// bytes. The primes are deliberately not serialized.
type snapshot struct {
	Version     int    `json:"v"`
	M           string `json:"m"`
	X0          string `json:"x0"`
	C           string `json:"c"`
	Pos         uint64 `json:"pos"`
	BitsPerStep int    `json:"bits_per_step"`
}

const snapshotVersion = 1

// Snapshot serializes the generator state.
func (g *Generator) Snapshot() ([]byte, error) {
	return json.Marshal(&snapshot{
		Version:     snapshotVersion,
		M:           hex.EncodeToString(g.m.BytesLE()),
		X0:          hex.EncodeToString(g.x0.BytesLE()),
		C:           hex.EncodeToString(g.c.BytesLE()),
		Pos:         g.pos,
		BitsPerStep: g.bitsPerStep,
	})
}

// Restore rebuilds a generator from a snapshot and seeks it back to the
// recorded position. The restored generator no longer knows the prime
// factors; everything except fresh seed validation works as before.
func Restore(data []byte) (*Generator, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.Wrap(err, "malformed generator snapshot")
	}
	if s.Version != snapshotVersion {
		return nil, errors.Errorf("unsupported snapshot version %d", s.Version)
	}
	m, err := decodeUint(s.M)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot modulus")
	}
	x0, err := decodeUint(s.X0)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot seed")
	}
	c, err := decodeUint(s.C)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot exponent")
	}
	if m.BitLen() < 3 || c.BitLen() < 2 {
		return nil, errors.New("snapshot modulus or exponent out of range")
	}
	one := arith.NewUint(m.Width()).SetUint64(1)
	x0 = x0.Resize(m.Width())
	if x0.Cmp(one) <= 0 || x0.Cmp(m) >= 0 {
		return nil, errors.New("snapshot seed out of range")
	}
	g := &Generator{
		m:           m,
		x0:          x0,
		c:           c,
		rm:          arith.NewBarrett(m),
		rc:          arith.NewBarrett(c),
		bitsPerStep: s.BitsPerStep,
	}
	if g.bitsPerStep < 1 || g.bitsPerStep > maxBitsPerStep(m.BitLen()) {
		return nil, errors.Errorf("snapshot bits per step %d out of range", g.bitsPerStep)
	}
	g.Seek(s.Pos)
	return g, nil
}

func decodeUint(s string) (*arith.Uint, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 || len(b)%8 != 0 {
		return nil, errors.Errorf("value must be a positive multiple of 8 bytes, got %d", len(b))
	}
	return arith.NewUint(len(b) * 8).SetBytesLE(b), nil
}
