package store

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Revisions are "generation-suffix" markers, e.g. "3-9f2ab04c11d0e7a2".
// The generation counts local edits of the document; the suffix is random
// so two devices editing the same generation concurrently produce
// distinct revisions. The hub resolves conflicts last-write-wins with
// CompareRevs, so every device and the hub agree on the same winner.

// NewRev creates a first-generation revision.
func NewRev() string {
	return revAt(1)
}

// BumpRev returns a fresh revision one generation past rev.
// A malformed or empty rev restarts at generation 1.
func BumpRev(rev string) string {
	return revAt(Generation(rev) + 1)
}

// Generation extracts the generation counter, or 0 if rev is malformed.
func Generation(rev string) int {
	gen, _, ok := strings.Cut(rev, "-")
	if !ok {
		return 0
	}
	n, err := strconv.Atoi(gen)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// CompareRevs orders two revisions: -1 if a loses to b, +1 if a wins,
// 0 if equal. Higher generation wins; equal generations fall back to a
// byte compare of the full revision string. The comparison is total, so
// any two devices pick the same winner for the same pair.
func CompareRevs(a, b string) int {
	ga, gb := Generation(a), Generation(b)
	switch {
	case ga < gb:
		return -1
	case ga > gb:
		return 1
	}
	return strings.Compare(a, b)
}

func revAt(gen int) string {
	var suffix [8]byte
	// crypto/rand.Read only fails if the platform's entropy source is
	// broken, in which case nothing else here works either.
	if _, err := rand.Read(suffix[:]); err != nil {
		panic(fmt.Sprintf("store: reading entropy: %v", err))
	}
	return fmt.Sprintf("%d-%s", gen, hex.EncodeToString(suffix[:]))
}
