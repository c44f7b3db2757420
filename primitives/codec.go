// Package primitives provides the byte-level building blocks the
// election state machine is built on: canonical little-endian framing,
// domain-separated SHA-256 digests, and a SHA-256 Merkle verifier.
//
// Every function here is pure and allocation-light; none of it touches
// storage or the clock. Bit-exact agreement between whatever signs a
// pre-image and whatever verifies it is the whole point of this
// package, so encodings are written out explicitly rather than
// inferred from a struct tag.
package primitives

import (
	"encoding/binary"
	"errors"
)

// ErrMalformedSharesBatch is returned by DecodeSharesBatch when the
// blob is truncated or its length-prefixes run past the end of the
// buffer.
var ErrMalformedSharesBatch = errors.New("primitives: malformed shares batch")

// SharePair is one key-holder's partial-decryption share for a single
// ballot: an ElGamal-style first component and the share value itself.
// Both are opaque byte strings to this package.
type SharePair struct {
	C1 []byte
	D  []byte
}

// AppendU32LE appends the little-endian encoding of v to dst.
func AppendU32LE(dst []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

// AppendU64LE appends the little-endian encoding of v to dst.
func AppendU64LE(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// ReadU32LE reads a little-endian u32 from the front of b.
func ReadU32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, ErrMalformedSharesBatch
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64LE reads a little-endian u64 from the front of b.
func ReadU64LE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrMalformedSharesBatch
	}
	return binary.LittleEndian.Uint64(b), nil
}

// EncodeSharesBatch serializes an ordered sequence of (c1, d) pairs as
//
//	u32_le(pair_count) ‖ for each pair: u32_le(len(c1)) ‖ c1 ‖ u32_le(len(d)) ‖ d
//
// This is both the on-ledger stored blob for a key-holder's share
// batch and the pre-image signed over it (see SharesDigest).
func EncodeSharesBatch(pairs []SharePair) []byte {
	out := make([]byte, 0, 4+len(pairs)*8)
	out = AppendU32LE(out, uint32(len(pairs)))
	for _, p := range pairs {
		out = AppendU32LE(out, uint32(len(p.C1)))
		out = append(out, p.C1...)
		out = AppendU32LE(out, uint32(len(p.D)))
		out = append(out, p.D...)
	}
	return out
}

// DecodeSharesBatch is the inverse of EncodeSharesBatch. It rejects any
// blob whose declared lengths run past the end of the buffer.
func DecodeSharesBatch(blob []byte) ([]SharePair, error) {
	count, err := ReadU32LE(blob)
	if err != nil {
		return nil, ErrMalformedSharesBatch
	}
	off := 4
	pairs := make([]SharePair, 0, count)
	for i := uint32(0); i < count; i++ {
		c1Len, err := ReadU32LE(blob[off:])
		if err != nil {
			return nil, ErrMalformedSharesBatch
		}
		off += 4
		if off+int(c1Len) > len(blob) {
			return nil, ErrMalformedSharesBatch
		}
		c1 := blob[off : off+int(c1Len)]
		off += int(c1Len)

		dLen, err := ReadU32LE(blob[off:])
		if err != nil {
			return nil, ErrMalformedSharesBatch
		}
		off += 4
		if off+int(dLen) > len(blob) {
			return nil, ErrMalformedSharesBatch
		}
		d := blob[off : off+int(dLen)]
		off += int(dLen)

		pairs = append(pairs, SharePair{C1: c1, D: d})
	}
	if off != len(blob) {
		return nil, ErrMalformedSharesBatch
	}
	return pairs, nil
}
