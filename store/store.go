package store

import "github.com/stellot/stellot-core/primitives"

// Store is the narrow, typed view over the host's persistent
// key-value map: get/set/has/remove with read-your-writes semantics
// within a single transition. Presence alone is the semantic signal
// for nullifier and casting-account keys; their values are never
// inspected, only their existence.
type Store interface {
	Get(k Key) ([]byte, bool)
	Set(k Key, v []byte)
	Has(k Key) bool
	Delete(k Key)
}

// present is the fixed one-byte value written for set-membership
// keys (nullifiers, casting accounts). Its content is never read back;
// only Has(k) matters.
var present = []byte{1}

// MarkPresent records k as present in a set-typed key (nullifiers,
// casting accounts).
func MarkPresent(s Store, k Key) { s.Set(k, present) }

// GetU32 reads a little-endian u32 at k, returning (0, false) if
// absent.
func GetU32(s Store, k Key) (uint32, bool) {
	b, ok := s.Get(k)
	if !ok {
		return 0, false
	}
	v, err := primitives.ReadU32LE(b)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetU32 writes v as a little-endian u32 at k.
func SetU32(s Store, k Key, v uint32) {
	s.Set(k, primitives.AppendU32LE(nil, v))
}

// GetU64 reads a little-endian u64 at k, returning (0, false) if
// absent.
func GetU64(s Store, k Key) (uint64, bool) {
	b, ok := s.Get(k)
	if !ok {
		return 0, false
	}
	v, err := primitives.ReadU64LE(b)
	if err != nil {
		return 0, false
	}
	return v, true
}

// SetU64 writes v as a little-endian u64 at k.
func SetU64(s Store, k Key, v uint64) {
	s.Set(k, primitives.AppendU64LE(nil, v))
}

// GetRoster decodes a stored sequence of 32-byte Ed25519 pubkeys.
func GetRoster(s Store, k Key) ([][32]byte, bool) {
	b, ok := s.Get(k)
	if !ok {
		return nil, false
	}
	return DecodeRoster(b)
}

// SetRoster encodes and stores a sequence of 32-byte Ed25519 pubkeys.
func SetRoster(s Store, k Key, roster [][32]byte) {
	s.Set(k, EncodeRoster(roster))
}

// EncodeRoster serializes a roster as u32_le(count) followed by each
// 32-byte member in order.
func EncodeRoster(roster [][32]byte) []byte {
	out := primitives.AppendU32LE(nil, uint32(len(roster)))
	for _, pk := range roster {
		out = append(out, pk[:]...)
	}
	return out
}

// DecodeRoster is the inverse of EncodeRoster.
func DecodeRoster(b []byte) ([][32]byte, bool) {
	count, err := primitives.ReadU32LE(b)
	if err != nil {
		return nil, false
	}
	off := 4
	roster := make([][32]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		if off+32 > len(b) {
			return nil, false
		}
		var pk [32]byte
		copy(pk[:], b[off:off+32])
		roster = append(roster, pk)
		off += 32
	}
	if off != len(b) {
		return nil, false
	}
	return roster, true
}
