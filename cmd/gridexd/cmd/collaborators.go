package cmd

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"time"
)

// systemClock reads the wall clock.
type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// cryptoEntropy draws order IDs from crypto/rand.
type cryptoEntropy struct{}

func (cryptoEntropy) Rand64() uint64 {
	var buf [8]byte
	if _, err := crand.Read(buf[:]); err != nil {
		// crypto/rand only fails when the OS entropy source is broken.
		panic(err)
	}
	return binary.BigEndian.Uint64(buf[:])
}

// selfAuthorizer allows an account to act only for itself. A deployment
// with delegated trading would swap in a real policy here.
type selfAuthorizer struct{}

func (selfAuthorizer) Authorize(_ context.Context, caller, principal string) bool {
	return caller == principal
}
