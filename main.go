// Copyright © 2019-2020 Binance
//
// This file is part of Binance. The full Binance copyright notice, including
// terms governing use, modification, and redistribution, is contained in the
// file LICENSE at the root of the source code distribution tree.

package main

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/ipfs/go-log"

	"github.com/blumshub/bbsrand/bbs"
	"github.com/blumshub/bbsrand/common"
)

const defaultModulusBits = 512

var logLevel = "info"

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s stream|demo [modulus-bits]\n", os.Args[0])
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}
	mode := os.Args[1]
	bits := defaultModulusBits
	if len(os.Args) > 2 {
		parsed, err := strconv.ParseInt(os.Args[2], 10, 32)
		if err != nil || parsed <= 0 {
			usage()
		}
		bits = int(parsed)
	}

	if err := log.SetLogLevel("bbsrand", logLevel); err != nil {
		panic(err)
	}

	g, err := bbs.New(context.Background(), rand.Reader, bits)
	if err != nil {
		common.Logger.Errorf("generator construction failed: %v", err)
		os.Exit(1)
	}

	switch mode {
	case "stream":
		stream(g)
	case "demo":
		demo(g)
	default:
		usage()
	}
}

// stream writes 64-bit outputs to stdout in little-endian order until the
// pipe closes.
func stream(g *bbs.Generator) {
	var buf [8]byte
	out := os.Stdout
	for {
		binary.LittleEndian.PutUint64(buf[:], g.Next64())
		if _, err := out.Write(buf[:]); err != nil {
			return
		}
	}
}

// demo prints a short trace: some bytes, a seek back, and the replayed bytes
// to show the two reads are identical.
func demo(g *bbs.Generator) {
	fmt.Printf("modulus  : %s\n", g.Modulus())
	fmt.Printf("position : %d\n", g.Pos())

	mark := g.Pos()
	first := make([]byte, 32)
	g.NextBytes(first)
	fmt.Printf("bytes    : %s\n", hex.EncodeToString(first))
	fmt.Printf("position : %d\n", g.Pos())

	g.Seek(mark)
	fmt.Printf("seek back: %d\n", g.Pos())
	replay := make([]byte, 32)
	g.NextBytes(replay)
	fmt.Printf("replay   : %s\n", hex.EncodeToString(replay))

	if hex.EncodeToString(first) == hex.EncodeToString(replay) {
		fmt.Println("replay matches")
	} else {
		fmt.Println("replay MISMATCH")
		os.Exit(1)
	}
}
