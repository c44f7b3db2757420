// Package store defines the typed keyspace the election state machine
// reads and writes through. It is a thin view over whatever raw
// key-value map the host ledger actually persists. This package only
// gives those raw bytes a closed, tagged shape.
package store

import "github.com/stellot/stellot-core/primitives"

// kind tags the concept a Key addresses. Ordering matters for the
// on-wire encoding's stability even though nothing here currently
// depends on numeric ordering beyond "it never changes once assigned".
type kind byte

const (
	kindElection kind = iota + 1
	kindEligibilityRoot
	kindDistRoster
	kindDistThreshold
	kindKHRoster
	kindKHThreshold
	kindKHCommitment
	kindIssueNullifier
	kindCastingAccount
	kindCastNullifier
	kindBallot
	kindBallotCount
	kindShareBlob
	kindShareCount
	kindTally
	kindNextElectionID
)

// Key addresses a single value in the host's persistent map. It is
// comparable so it can be used directly as a Go map key by a reference
// Store implementation.
type Key struct {
	kind  kind
	eid   uint64
	idx   uint32
	digit [32]byte
}

// Bytes returns the canonical on-wire encoding of k: a one-byte tag,
// the election id (where applicable), and any sub-index or 32-byte
// member value. Two distinct Key values never produce the same bytes.
func (k Key) Bytes() []byte {
	switch k.kind {
	case kindNextElectionID:
		return []byte{byte(k.kind)}
	case kindKHCommitment, kindBallot, kindShareBlob:
		out := append([]byte{byte(k.kind)}, primitives.AppendU64LE(nil, k.eid)...)
		return primitives.AppendU32LE(out, k.idx)
	case kindIssueNullifier, kindCastingAccount, kindCastNullifier:
		out := append([]byte{byte(k.kind)}, primitives.AppendU64LE(nil, k.eid)...)
		return append(out, k.digit[:]...)
	default:
		return append([]byte{byte(k.kind)}, primitives.AppendU64LE(nil, k.eid)...)
	}
}

// String implements fmt.Stringer by returning the raw byte encoding as
// a string, suitable as a map key in an in-memory Store.
func (k Key) String() string { return string(k.Bytes()) }

// ElectionKey addresses the serialized election record.
func ElectionKey(eid uint64) Key { return Key{kind: kindElection, eid: eid} }

// EligibilityRootKey addresses the 32-byte Merkle root of eligible
// voter pubkeys.
func EligibilityRootKey(eid uint64) Key { return Key{kind: kindEligibilityRoot, eid: eid} }

// DistRosterKey addresses the serialized distributor roster.
func DistRosterKey(eid uint64) Key { return Key{kind: kindDistRoster, eid: eid} }

// DistThresholdKey addresses the distributor M-of-N threshold.
func DistThresholdKey(eid uint64) Key { return Key{kind: kindDistThreshold, eid: eid} }

// KHRosterKey addresses the serialized key-holder roster.
func KHRosterKey(eid uint64) Key { return Key{kind: kindKHRoster, eid: eid} }

// KHThresholdKey addresses the key-holder t-of-m threshold.
func KHThresholdKey(eid uint64) Key { return Key{kind: kindKHThreshold, eid: eid} }

// KHCommitmentKey addresses key-holder j's VSS constant-term
// commitment.
func KHCommitmentKey(eid uint64, j uint32) Key {
	return Key{kind: kindKHCommitment, eid: eid, idx: j}
}

// IssueNullifierKey addresses the presence of an issue nullifier.
func IssueNullifierKey(eid uint64, nf [32]byte) Key {
	return Key{kind: kindIssueNullifier, eid: eid, digit: nf}
}

// CastingAccountKey addresses the presence of a registered voter
// pubkey.
func CastingAccountKey(eid uint64, pk [32]byte) Key {
	return Key{kind: kindCastingAccount, eid: eid, digit: pk}
}

// CastNullifierKey addresses the presence of a cast nullifier.
func CastNullifierKey(eid uint64, nf [32]byte) Key {
	return Key{kind: kindCastNullifier, eid: eid, digit: nf}
}

// BallotKey addresses the ballot stored at index i.
func BallotKey(eid uint64, i uint32) Key { return Key{kind: kindBallot, eid: eid, idx: i} }

// BallotCountKey addresses the ballot count.
func BallotCountKey(eid uint64) Key { return Key{kind: kindBallotCount, eid: eid} }

// ShareBlobKey addresses key-holder j's posted share batch.
func ShareBlobKey(eid uint64, j uint32) Key { return Key{kind: kindShareBlob, eid: eid, idx: j} }

// ShareCountKey addresses the count of distinct key-holders who have
// posted a share batch.
func ShareCountKey(eid uint64) Key { return Key{kind: kindShareCount, eid: eid} }

// TallyKey addresses the final tally.
func TallyKey(eid uint64) Key { return Key{kind: kindTally, eid: eid} }

// NextElectionIDKey addresses the global monotonic election-id
// counter. It carries no eid of its own.
func NextElectionIDKey() Key { return Key{kind: kindNextElectionID} }
