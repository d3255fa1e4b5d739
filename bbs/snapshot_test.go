// Copyright © 2019 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package bbs

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := fixtureGenerator(t)
	g.Seek(37)

	data, err := g.Snapshot()
	require.NoError(t, err)

	restored, err := Restore(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(37), restored.Pos())
	assert.Equal(t, 0, g.x.Cmp(restored.x))

	a := make([]byte, 32)
	g.NextBytes(a)
	b := make([]byte, 32)
	restored.NextBytes(b)
	assert.True(t, bytes.Equal(a, b))
}

func TestSnapshotCarriesBitsPerStep(t *testing.T) {
	g := fixtureGenerator(t)
	require.NoError(t, g.SetBitsPerStep(3))
	g.Seek(5)

	data, err := g.Snapshot()
	require.NoError(t, err)
	restored, err := Restore(data)
	require.NoError(t, err)

	assert.Equal(t, g.NextBits(12), restored.NextBits(12))
}

func TestRestoreRejectsGarbage(t *testing.T) {
	_, err := Restore([]byte("not json"))
	assert.Error(t, err)

	_, err = Restore([]byte(`{"v":99}`))
	assert.Error(t, err)

	_, err = Restore([]byte(`{"v":1,"m":"zz","x0":"00","c":"00","pos":0,"bits_per_step":1}`))
	assert.Error(t, err)
}

func TestRestoreRejectsBadSeed(t *testing.T) {
	g := fixtureGenerator(t)
	data, err := g.Snapshot()
	require.NoError(t, err)

	// seed of 1 is never valid
	tampered := bytes.Replace(data, []byte(`"x0":"02`), []byte(`"x0":"01`), 1)
	require.NotEqual(t, string(data), string(tampered))
	_, err = Restore(tampered)
	assert.Error(t, err)
}
