package election

import (
	"crypto/ed25519"
	"errors"
	"testing"

	"github.com/stellot/stellot-core/ledger/memhost"
	"github.com/stellot/stellot-core/primitives"
)

type signer struct {
	pk   [32]byte
	priv ed25519.PrivateKey
}

func newSigner(t *testing.T) signer {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	var pk [32]byte
	copy(pk[:], pub)
	return signer{pk: pk, priv: priv}
}

func (s signer) sign(msg [32]byte) [64]byte {
	var sig [64]byte
	copy(sig[:], ed25519.Sign(s.priv, msg[:]))
	return sig
}

func pubKeys(signers []signer) [][32]byte {
	out := make([][32]byte, len(signers))
	for i, s := range signers {
		out[i] = s.pk
	}
	return out
}

func deployTestElection(t *testing.T, m *Machine, start, end uint64, dist, kh []signer, distThreshold, khThreshold uint32) uint64 {
	t.Helper()
	eid, err := m.Deploy("ref", 2, start, end, []byte("enc-pubkey"), [32]byte{}, pubKeys(dist), distThreshold, pubKeys(kh), khThreshold)
	if err != nil {
		t.Fatalf("deploy: %v", err)
	}
	return eid
}

func issueDistSigs(eid uint64, pkCast, nfIssue [32]byte, signers ...signer) []DistSig {
	msg := primitives.IssueDigest(eid, pkCast, nfIssue)
	out := make([]DistSig, len(signers))
	for i, s := range signers {
		out[i] = DistSig{PK: s.pk, Sig: s.sign(msg)}
	}
	return out
}

func mustErr(t *testing.T, err error, want *Error) {
	t.Helper()
	var got *Error
	if !errors.As(err, &got) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if got.Code != want.Code {
		t.Fatalf("expected code %d (%s), got %d (%s)", want.Code, want.Msg, got.Code, got.Msg)
	}
}

// TestHappyPath runs deploy -> issue -> cast -> post_share (to
// threshold) -> finalize_tally, asserting the exact event sequence a
// seed end-to-end scenario expects.
func TestHappyPath(t *testing.T) {
	host := memhost.New()
	m := New(host)

	dist := []signer{newSigner(t), newSigner(t), newSigner(t)}
	kh := []signer{newSigner(t), newSigner(t)}

	host.SetNow(1000)
	eid := deployTestElection(t, m, 1000, 2000, dist, kh, 2, 2)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	sigs := issueDistSigs(eid, voter.pk, nfIssue, dist[0], dist[1])
	if err := m.IssueAccount(eid, voter.pk, nfIssue, sigs); err != nil {
		t.Fatalf("issue_account: %v", err)
	}

	var nfCast [32]byte
	nfCast[0] = 2
	c1, c2 := []byte("c1-bytes"), []byte("c2-bytes")
	castMsg := primitives.CastDigest(eid, nfCast, c1, c2)
	idx, err := m.Cast(eid, nfCast, c1, c2, voter.pk, voter.sign(castMsg))
	if err != nil {
		t.Fatalf("cast: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected ballot index 0, got %d", idx)
	}

	host.SetNow(2000)

	shares := []SharePair{{C1: []byte("a"), D: []byte("b")}}
	blob := primitives.EncodeSharesBatch(shares)
	sharesMsg := primitives.SharesDigest(eid, blob)

	count, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(sharesMsg))
	if err != nil {
		t.Fatalf("post_share[0]: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected share count 1, got %d", count)
	}

	count, err = m.PostShare(eid, 1, shares, kh[1].pk, kh[1].sign(sharesMsg))
	if err != nil {
		t.Fatalf("post_share[1]: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected share count 2, got %d", count)
	}

	if err := m.FinalizeTally(eid, []uint32{1, 0}); err != nil {
		t.Fatalf("finalize_tally: %v", err)
	}

	ballot, ok := m.GetBallot(eid, idx)
	if !ok {
		t.Fatal("expected GetBallot to find the cast ballot")
	}
	if ballot.NfCast != nfCast || string(ballot.C1) != string(c1) || string(ballot.C2) != string(c2) {
		t.Fatalf("GetBallot returned %+v, want nf=%v c1=%q c2=%q", ballot, nfCast, c1, c2)
	}
	if _, ok := m.GetBallot(eid, idx+1); ok {
		t.Fatal("expected GetBallot to report absence for an unused index")
	}

	tally, ok := m.GetTally(eid)
	if !ok {
		t.Fatal("expected GetTally to find the finalized tally")
	}
	if len(tally) != 2 || tally[0] != 1 || tally[1] != 0 {
		t.Fatalf("GetTally returned %v, want [1 0]", tally)
	}

	log := host.Log()
	wantTopics := []string{"deploy", "issued", "cast", "threshold", "tallied"}
	if len(log) != len(wantTopics) {
		t.Fatalf("expected %d events, got %d: %+v", len(wantTopics), len(log), log)
	}
	for i, topic := range wantTopics {
		if log[i].Topic != topic {
			t.Fatalf("event %d: expected topic %q, got %q", i, topic, log[i].Topic)
		}
		if log[i].EID != eid {
			t.Fatalf("event %d: expected eid %d, got %d", i, eid, log[i].EID)
		}
	}
}

// TestDoubleVoteRejected exercises cast nullifier replay protection.
func TestDoubleVoteRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	if err := m.IssueAccount(eid, voter.pk, nfIssue, issueDistSigs(eid, voter.pk, nfIssue, dist[0])); err != nil {
		t.Fatalf("issue_account: %v", err)
	}

	var nfCast [32]byte
	nfCast[0] = 2
	c1, c2 := []byte("c1"), []byte("c2")
	msg := primitives.CastDigest(eid, nfCast, c1, c2)
	if _, err := m.Cast(eid, nfCast, c1, c2, voter.pk, voter.sign(msg)); err != nil {
		t.Fatalf("first cast: %v", err)
	}

	_, err := m.Cast(eid, nfCast, c1, c2, voter.pk, voter.sign(msg))
	mustErr(t, err, ErrAlreadyVoted)
}

// TestUnregisteredCasterRejected exercises cast from a pubkey that was
// never issued.
func TestUnregisteredCasterRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	stranger := newSigner(t)
	var nfCast [32]byte
	c1, c2 := []byte("c1"), []byte("c2")
	msg := primitives.CastDigest(eid, nfCast, c1, c2)
	_, err := m.Cast(eid, nfCast, c1, c2, stranger.pk, stranger.sign(msg))
	mustErr(t, err, ErrNotIssuedAccount)
}

// TestPrematureCastRejected exercises the voting-window lower bound.
func TestPrematureCastRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 500, 1000, dist, kh, 1, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	if err := m.IssueAccount(eid, voter.pk, nfIssue, issueDistSigs(eid, voter.pk, nfIssue, dist[0])); err != nil {
		t.Fatalf("issue_account: %v", err)
	}

	var nfCast [32]byte
	c1, c2 := []byte("c1"), []byte("c2")
	msg := primitives.CastDigest(eid, nfCast, c1, c2)
	_, err := m.Cast(eid, nfCast, c1, c2, voter.pk, voter.sign(msg))
	mustErr(t, err, ErrOutsideVotingWindow)
}

// TestCastWindowBoundaries checks start_time is inclusive and end_time
// is exclusive.
func TestCastWindowBoundaries(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 100, 200, dist, kh, 1, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 9
	if err := m.IssueAccount(eid, voter.pk, nfIssue, issueDistSigs(eid, voter.pk, nfIssue, dist[0])); err != nil {
		t.Fatalf("issue_account: %v", err)
	}

	host.SetNow(100)
	var nfCastStart [32]byte
	nfCastStart[0] = 1
	c1, c2 := []byte("c1"), []byte("c2")
	msg := primitives.CastDigest(eid, nfCastStart, c1, c2)
	if _, err := m.Cast(eid, nfCastStart, c1, c2, voter.pk, voter.sign(msg)); err != nil {
		t.Fatalf("cast at start_time should succeed: %v", err)
	}

	host.SetNow(200)
	var nfCastEnd [32]byte
	nfCastEnd[0] = 2
	msg2 := primitives.CastDigest(eid, nfCastEnd, c1, c2)
	_, err := m.Cast(eid, nfCastEnd, c1, c2, voter.pk, voter.sign(msg2))
	mustErr(t, err, ErrOutsideVotingWindow)
}

// TestInsufficientSharesRejected exercises finalize_tally's threshold
// guard.
func TestInsufficientSharesRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t), newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 2)
	host.SetNow(100)

	shares := []SharePair{{C1: []byte("x"), D: []byte("y")}}
	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)
	if _, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg)); err != nil {
		t.Fatalf("post_share: %v", err)
	}

	err := m.FinalizeTally(eid, []uint32{1, 0})
	mustErr(t, err, ErrInsufficientShares)
}

// TestWrongTallyLengthRejected exercises finalize_tally's options_count
// length check, on both sides.
func TestWrongTallyLengthRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)
	host.SetNow(100)

	shares := []SharePair{{C1: []byte("x"), D: []byte("y")}}
	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)
	if _, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg)); err != nil {
		t.Fatalf("post_share: %v", err)
	}

	if err := m.FinalizeTally(eid, []uint32{1}); !errorsAsCode(err, CodeInvalidTally) {
		t.Fatalf("expected InvalidTally for too-short tally, got %v", err)
	}
	if err := m.FinalizeTally(eid, []uint32{1, 0, 0}); !errorsAsCode(err, CodeInvalidTally) {
		t.Fatalf("expected InvalidTally for too-long tally, got %v", err)
	}
}

// TestGetTallyAbsentBeforeFinalize checks GetTally reports absence
// until finalize_tally has run.
func TestGetTallyAbsentBeforeFinalize(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	if _, ok := m.GetTally(eid); ok {
		t.Fatal("expected GetTally to report absence before finalize_tally")
	}
}

func errorsAsCode(err error, code Code) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}

// TestPostShareThresholdBoundary checks finalize_tally succeeds at
// exactly kh_threshold shares and fails with one fewer.
func TestPostShareThresholdBoundary(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t), newSigner(t), newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 2)
	host.SetNow(100)

	shares := []SharePair{{C1: []byte("x"), D: []byte("y")}}
	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)

	if _, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg)); err != nil {
		t.Fatalf("post_share[0]: %v", err)
	}
	if err := m.FinalizeTally(eid, []uint32{1, 0}); err == nil {
		t.Fatal("expected finalize_tally to fail with only 1 of 2 shares")
	}

	if _, err := m.PostShare(eid, 1, shares, kh[1].pk, kh[1].sign(msg)); err != nil {
		t.Fatalf("post_share[1]: %v", err)
	}
	if err := m.FinalizeTally(eid, []uint32{1, 0}); err != nil {
		t.Fatalf("expected finalize_tally to succeed at exactly threshold, got %v", err)
	}
}

// TestIssueAccountInsufficientDistributorSignatures exercises the
// dist_threshold guard when every signature verifies but too few
// distinct distributors signed.
func TestIssueAccountInsufficientDistributorSignatures(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t), newSigner(t), newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 2, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	err := m.IssueAccount(eid, voter.pk, nfIssue, issueDistSigs(eid, voter.pk, nfIssue, dist[0]))
	mustErr(t, err, ErrInvalidDistributorSig)
}

// TestIssueAccountDuplicateSignerNotDoubleCounted exercises the
// resolved double-counting guard (repeating one distributor's row does
// not satisfy a higher threshold).
func TestIssueAccountDuplicateSignerNotDoubleCounted(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t), newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 2, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	sigs := issueDistSigs(eid, voter.pk, nfIssue, dist[0], dist[0])
	err := m.IssueAccount(eid, voter.pk, nfIssue, sigs)
	mustErr(t, err, ErrInvalidDistributorSig)
}

// TestIssueAccountBadSignatureAbortsTransition exercises the "any bad
// roster-member signature is fatal to the whole transition" rule, even
// when enough OTHER signatures would otherwise clear the threshold.
func TestIssueAccountBadSignatureAbortsTransition(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t), newSigner(t), newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 2, 1)

	voter := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1
	sigs := issueDistSigs(eid, voter.pk, nfIssue, dist[0], dist[1], dist[2])
	sigs[1].Sig[0] ^= 0xFF

	err := m.IssueAccount(eid, voter.pk, nfIssue, sigs)
	mustErr(t, err, ErrInvalidSignature)
}

// TestReplayedIssueNullifierRejected exercises issue nullifier replay
// protection.
func TestReplayedIssueNullifierRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	voterA := newSigner(t)
	voterB := newSigner(t)
	var nfIssue [32]byte
	nfIssue[0] = 1

	if err := m.IssueAccount(eid, voterA.pk, nfIssue, issueDistSigs(eid, voterA.pk, nfIssue, dist[0])); err != nil {
		t.Fatalf("first issue: %v", err)
	}
	err := m.IssueAccount(eid, voterB.pk, nfIssue, issueDistSigs(eid, voterB.pk, nfIssue, dist[0]))
	mustErr(t, err, ErrAlreadyIssued)
}

// TestSetKHCommitmentIdempotent checks overwrite-without-gating per the
// chosen Open Question resolution.
func TestSetKHCommitmentIdempotent(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	if err := m.SetKHCommitment(eid, 0, []byte("v1")); err != nil {
		t.Fatalf("first commitment: %v", err)
	}
	if err := m.SetKHCommitment(eid, 0, []byte("v2")); err != nil {
		t.Fatalf("overwrite commitment: %v", err)
	}
}

// TestSetKHCommitmentUnknownIndexRejected checks the roster-bounds
// guard.
func TestSetKHCommitmentUnknownIndexRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	err := m.SetKHCommitment(eid, 5, []byte("v"))
	mustErr(t, err, ErrNotKeyHolder)
}

// TestDeleteElectionRemovesState checks delete_election removes the
// election record, so a later transition on it reports NotFound.
func TestDeleteElectionRemovesState(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)
	host.SetNow(100)

	if err := m.DeleteElection(eid); err != nil {
		t.Fatalf("delete_election: %v", err)
	}

	err := m.SetKHCommitment(eid, 0, []byte("v"))
	mustErr(t, err, ErrNotFound)
}

// TestDeleteElectionBeforeEndRejected checks the voting-window guard on
// delete_election.
func TestDeleteElectionBeforeEndRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)

	err := m.DeleteElection(eid)
	mustErr(t, err, ErrOutsideVotingWindow)
}

// TestDeleteElectionAfterTallyRejected checks a tallied election cannot
// be deleted.
func TestDeleteElectionAfterTallyRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)
	host.SetNow(100)

	shares := []SharePair{{C1: []byte("x"), D: []byte("y")}}
	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)
	if _, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg)); err != nil {
		t.Fatalf("post_share: %v", err)
	}
	if err := m.FinalizeTally(eid, []uint32{1, 0}); err != nil {
		t.Fatalf("finalize_tally: %v", err)
	}

	err := m.DeleteElection(eid)
	mustErr(t, err, ErrAlreadyTallied)
}

// TestPostShareAlreadyPostedRejected checks a key holder cannot post
// twice.
func TestPostShareAlreadyPostedRejected(t *testing.T) {
	host := memhost.New()
	m := New(host)
	dist := []signer{newSigner(t)}
	kh := []signer{newSigner(t)}
	host.SetNow(0)
	eid := deployTestElection(t, m, 0, 100, dist, kh, 1, 1)
	host.SetNow(100)

	shares := []SharePair{{C1: []byte("x"), D: []byte("y")}}
	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)
	if _, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg)); err != nil {
		t.Fatalf("first post_share: %v", err)
	}

	_, err := m.PostShare(eid, 0, shares, kh[0].pk, kh[0].sign(msg))
	mustErr(t, err, ErrAlreadyPosted)
}
