package election

import "github.com/stellot/stellot-core/primitives"

// Record is the per-election metadata written at Deploy and mutated
// only by FinalizeTally (the Tallied flag) and DeleteElection
// (removal).
type Record struct {
	EID          uint64
	Title        string
	OptionsCount uint32
	StartTime    uint64
	EndTime      uint64
	EncPubKey    []byte
	Tallied      bool
}

// Ballot is one cast vote: its cast nullifier and the two compressed
// secp256k1 points of its ElGamal ciphertext. Both are opaque to this
// package.
type Ballot struct {
	NfCast [32]byte
	C1     []byte
	C2     []byte
}

// DistSig is one distributor's signature over an issue_account
// transition's digest.
type DistSig struct {
	PK  [32]byte
	Sig [64]byte
}

// SharePair re-exports primitives.SharePair so callers of this
// package never need to import primitives directly for the common
// case of building a post_share call.
type SharePair = primitives.SharePair

func encodeRecord(r Record) []byte {
	out := make([]byte, 0, 32+len(r.Title)+len(r.EncPubKey))
	out = primitives.AppendU32LE(out, uint32(len(r.Title)))
	out = append(out, r.Title...)
	out = primitives.AppendU32LE(out, r.OptionsCount)
	out = primitives.AppendU64LE(out, r.StartTime)
	out = primitives.AppendU64LE(out, r.EndTime)
	out = primitives.AppendU32LE(out, uint32(len(r.EncPubKey)))
	out = append(out, r.EncPubKey...)
	if r.Tallied {
		out = append(out, 1)
	} else {
		out = append(out, 0)
	}
	return out
}

func decodeRecord(eid uint64, b []byte) (Record, bool) {
	off := 0
	titleLen, err := primitives.ReadU32LE(b[off:])
	if err != nil {
		return Record{}, false
	}
	off += 4
	if off+int(titleLen) > len(b) {
		return Record{}, false
	}
	title := string(b[off : off+int(titleLen)])
	off += int(titleLen)

	optionsCount, err := primitives.ReadU32LE(b[off:])
	if err != nil {
		return Record{}, false
	}
	off += 4

	startTime, err := primitives.ReadU64LE(b[off:])
	if err != nil {
		return Record{}, false
	}
	off += 8

	endTime, err := primitives.ReadU64LE(b[off:])
	if err != nil {
		return Record{}, false
	}
	off += 8

	pkLen, err := primitives.ReadU32LE(b[off:])
	if err != nil {
		return Record{}, false
	}
	off += 4
	if off+int(pkLen) > len(b) {
		return Record{}, false
	}
	pk := append([]byte(nil), b[off:off+int(pkLen)]...)
	off += int(pkLen)

	if off >= len(b) {
		return Record{}, false
	}
	tallied := b[off] == 1

	return Record{
		EID:          eid,
		Title:        title,
		OptionsCount: optionsCount,
		StartTime:    startTime,
		EndTime:      endTime,
		EncPubKey:    pk,
		Tallied:      tallied,
	}, true
}

func encodeBallot(b Ballot) []byte {
	out := make([]byte, 0, 32+8+len(b.C1)+len(b.C2))
	out = append(out, b.NfCast[:]...)
	out = primitives.AppendU32LE(out, uint32(len(b.C1)))
	out = append(out, b.C1...)
	out = primitives.AppendU32LE(out, uint32(len(b.C2)))
	out = append(out, b.C2...)
	return out
}

func decodeBallot(b []byte) (Ballot, bool) {
	if len(b) < 32 {
		return Ballot{}, false
	}
	var nf [32]byte
	copy(nf[:], b[:32])
	off := 32

	c1Len, err := primitives.ReadU32LE(b[off:])
	if err != nil {
		return Ballot{}, false
	}
	off += 4
	if off+int(c1Len) > len(b) {
		return Ballot{}, false
	}
	c1 := append([]byte(nil), b[off:off+int(c1Len)]...)
	off += int(c1Len)

	c2Len, err := primitives.ReadU32LE(b[off:])
	if err != nil {
		return Ballot{}, false
	}
	off += 4
	if off+int(c2Len) > len(b) {
		return Ballot{}, false
	}
	c2 := append([]byte(nil), b[off:off+int(c2Len)]...)

	return Ballot{NfCast: nf, C1: c1, C2: c2}, true
}

func encodeTally(tally []uint32) []byte {
	out := primitives.AppendU32LE(nil, uint32(len(tally)))
	for _, v := range tally {
		out = primitives.AppendU32LE(out, v)
	}
	return out
}

func decodeTally(b []byte) ([]uint32, bool) {
	count, err := primitives.ReadU32LE(b)
	if err != nil {
		return nil, false
	}
	off := 4
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := primitives.ReadU32LE(b[off:])
		if err != nil {
			return nil, false
		}
		out = append(out, v)
		off += 4
	}
	return out, true
}
