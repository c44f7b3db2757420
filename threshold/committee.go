// Package threshold counts how many members of a fixed committee
// (a distributor roster, a key-holder roster) contributed a valid
// signature over the same message.
//
// Unlike a secret-sharing threshold scheme, each committee member here
// holds their own independent Ed25519 key and signs on their own; the
// "threshold" property is enforced purely by counting distinct valid
// signers against a configured minimum, the way a multisig wallet
// counts cosigners rather than reconstructing a shared secret.
package threshold

// VerifyFunc checks an Ed25519 signature over msg by pk. The election
// package supplies one backed by the host's crypto oracle.
type VerifyFunc func(pk [32]byte, msg [32]byte, sig [64]byte) bool

// SigPair is one committee member's signature over a transition's
// signed digest.
type SigPair struct {
	PK  [32]byte
	Sig [64]byte
}

// Contains reports whether pk is a member of roster.
func Contains(roster [][32]byte, pk [32]byte) bool {
	for _, r := range roster {
		if r == pk {
			return true
		}
	}
	return false
}

// VerificationFailed is returned by CountValidSigners when a
// roster member's signature fails verification. Per the protocol's
// "verification is fatal to the transition" rule, the caller must
// abort the whole transition on this error rather than simply
// discount the offending row.
type VerificationFailed struct {
	PK [32]byte
}

func (e *VerificationFailed) Error() string {
	return "threshold: signature verification failed for a roster member"
}

// CountValidSigners verifies every (pk, sig) pair whose pk is a member
// of roster, skipping rows from non-members silently. It returns the
// number of DISTINCT roster members with at least one valid signature
// over msg. A member appearing in more than one row is counted once,
// so a caller cannot inflate the count by repeating a signer's row.
//
// If any member-row's signature fails verification, CountValidSigners
// aborts immediately and returns *VerificationFailed; it never
// silently discounts a bad signature the way it silently discounts a
// non-member row.
func CountValidSigners(roster [][32]byte, sigs []SigPair, msg [32]byte, verify VerifyFunc) (int, error) {
	seen := make(map[[32]byte]bool, len(sigs))
	count := 0
	for _, s := range sigs {
		if !Contains(roster, s.PK) {
			continue
		}
		if !verify(s.PK, msg, s.Sig) {
			return 0, &VerificationFailed{PK: s.PK}
		}
		if !seen[s.PK] {
			seen[s.PK] = true
			count++
		}
	}
	return count, nil
}
