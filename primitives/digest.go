package primitives

import "crypto/sha256"

// Domain-separation tags. Each is a raw byte literal: not
// null-terminated, not length-prefixed. Separation relies entirely on
// tag disjointness, so these must never change once an election has
// been deployed against them.
const (
	tagIssue  = "stellot:issue"
	tagCast   = "stellot:cast"
	tagShares = "stellot:shares"
	tagLeaf   = "stellot:leaf"
	tagNode   = "stellot:node"
)

// Sha256Multi hashes the concatenation of parts with a single SHA-256
// pass, without materializing the concatenation.
func Sha256Multi(parts ...[]byte) [32]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [32]byte
	h.Sum(out[:0])
	return out
}

// IssueDigest computes the signed pre-image for an issue_account
// transition:
//
//	"stellot:issue" ‖ u64_le(eid) ‖ pk_cast[32] ‖ nf_issue[32]
func IssueDigest(eid uint64, pkCast, nfIssue [32]byte) [32]byte {
	eidBytes := AppendU64LE(nil, eid)
	return Sha256Multi([]byte(tagIssue), eidBytes, pkCast[:], nfIssue[:])
}

// CastDigest computes the signed pre-image for a cast transition:
//
//	"stellot:cast" ‖ u64_le(eid) ‖ nf_cast[32] ‖ c1 ‖ c2
func CastDigest(eid uint64, nfCast [32]byte, c1, c2 []byte) [32]byte {
	eidBytes := AppendU64LE(nil, eid)
	return Sha256Multi([]byte(tagCast), eidBytes, nfCast[:], c1, c2)
}

// SharesDigest computes the signed pre-image for a post_share
// transition:
//
//	"stellot:shares" ‖ u64_le(eid) ‖ shares_blob
func SharesDigest(eid uint64, sharesBlob []byte) [32]byte {
	eidBytes := AppendU64LE(nil, eid)
	return Sha256Multi([]byte(tagShares), eidBytes, sharesBlob)
}
