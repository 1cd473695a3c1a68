// Package itinerary groups riders by the exact journey they are taking.
//
// Two riders share an itinerary iff their ordered leg sequences are equal.
// Order matters: it encodes the direction of travel across multi-leg trips.
package itinerary

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"
)

// Identity is an opaque comparable key for an ordered leg sequence.
type Identity struct {
	h xxh3.Uint128
}

// Of computes the identity of an ordered sequence of leg identifiers.
// Every leg is length-prefixed so that ["ab","c"] and ["a","bc"] differ.
func Of(legs []string) Identity {
	size := 0
	for _, leg := range legs {
		size += binary.MaxVarintLen64 + len(leg)
	}
	buf := make([]byte, 0, size)
	for _, leg := range legs {
		buf = binary.AppendUvarint(buf, uint64(len(leg)))
		buf = append(buf, leg...)
	}
	return Identity{h: xxh3.Hash128(buf)}
}

// String returns the identity as 32 hex digits.
func (id Identity) String() string {
	return fmt.Sprintf("%016x%016x", id.h.Hi, id.h.Lo)
}

// Resolve returns the legs used to identify a rider's itinerary.
// A rider whose itinerary could not be resolved falls back to the
// current trip leg so it is never silently dropped.
func Resolve(legs []string, currentLeg string) []string {
	if len(legs) == 0 {
		return []string{currentLeg}
	}
	return legs
}
