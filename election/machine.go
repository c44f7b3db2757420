// Package election implements the core state machine: the guarded,
// append-only transitions that give a threshold-encrypted,
// nullifier-authenticated election its security properties. Every
// transition method on Machine is atomic. Either every write commits
// (and, for every transition except SetKHCommitment, an event
// publishes), or it returns an *Error and the store is left exactly
// as it was. GetBallot and GetTally are read-only views.
package election

import (
	"github.com/rs/zerolog"

	"github.com/stellot/stellot-core/events"
	"github.com/stellot/stellot-core/ledger"
	"github.com/stellot/stellot-core/primitives"
	"github.com/stellot/stellot-core/store"
	"github.com/stellot/stellot-core/threshold"
)

// Machine runs election transitions against a ledger.Host. It holds
// no state of its own beyond the host reference and an optional
// logger. Every field an
// election needs lives in the host's persistent map.
type Machine struct {
	host ledger.Host
	log  *zerolog.Logger
}

// New constructs a Machine bound to host.
func New(host ledger.Host) *Machine {
	return &Machine{host: host}
}

// WithLogger attaches a structured logger: every transition logs one
// line on success (Debug) or rejection (Warn), in addition to
// whatever it publishes through events.Sink. Returns m for chaining.
func (m *Machine) WithLogger(l *zerolog.Logger) *Machine {
	m.log = l
	return m
}

func (m *Machine) logOK(op string, eid uint64) {
	if m.log != nil {
		m.log.Debug().Str("op", op).Uint64("eid", eid).Msg("transition committed")
	}
}

func (m *Machine) logErr(op string, eid uint64, err *Error) {
	if m.log != nil {
		m.log.Warn().Str("op", op).Uint64("eid", eid).Int("code", int(err.Code)).Msg("transition rejected")
	}
}

func (m *Machine) electionExists(s store.Store, eid uint64) bool {
	return s.Has(store.ElectionKey(eid))
}

func (m *Machine) loadRecord(s store.Store, eid uint64) (Record, bool) {
	b, ok := s.Get(store.ElectionKey(eid))
	if !ok {
		return Record{}, false
	}
	return decodeRecord(eid, b)
}

// Deploy creates a new election, assigning it the next monotonic
// election id. The core does not reject degenerate configurations
// (options_count < 2, thresholds exceeding roster length, start >=
// end). Callers are trusted for these.
func (m *Machine) Deploy(
	title string,
	optionsCount uint32,
	startTime, endTime uint64,
	encPubKey []byte,
	eligibilityRoot [32]byte,
	distRoster [][32]byte,
	distThreshold uint32,
	khRoster [][32]byte,
	khThreshold uint32,
) (uint64, error) {
	s := m.host.Store()

	eid, _ := store.GetU64(s, store.NextElectionIDKey())
	store.SetU64(s, store.NextElectionIDKey(), eid+1)

	rec := Record{
		EID:          eid,
		Title:        title,
		OptionsCount: optionsCount,
		StartTime:    startTime,
		EndTime:      endTime,
		EncPubKey:    encPubKey,
		Tallied:      false,
	}
	s.Set(store.ElectionKey(eid), encodeRecord(rec))
	s.Set(store.EligibilityRootKey(eid), eligibilityRoot[:])
	store.SetRoster(s, store.DistRosterKey(eid), distRoster)
	store.SetU32(s, store.DistThresholdKey(eid), distThreshold)
	store.SetRoster(s, store.KHRosterKey(eid), khRoster)
	store.SetU32(s, store.KHThresholdKey(eid), khThreshold)

	m.host.Events().Publish(events.TopicDeploy, eid, events.DeployPayload{
		StartTime:    startTime,
		EndTime:      endTime,
		OptionsCount: optionsCount,
	})
	m.logOK("deploy", eid)
	return eid, nil
}

// SetKHCommitment overwrites key-holder khIdx's VSS constant-term
// commitment. It is intentionally idempotent and ungated by phase.
// The last writer wins; caller discipline, not this function, is what
// prevents races.
func (m *Machine) SetKHCommitment(eid uint64, khIdx uint32, commitment []byte) error {
	s := m.host.Store()
	if !m.electionExists(s, eid) {
		return m.reject("set_kh_commitment", eid, ErrNotFound)
	}
	khRoster, ok := store.GetRoster(s, store.KHRosterKey(eid))
	if !ok {
		return m.reject("set_kh_commitment", eid, ErrEncodingError)
	}
	if int(khIdx) >= len(khRoster) {
		return m.reject("set_kh_commitment", eid, ErrNotKeyHolder)
	}
	s.Set(store.KHCommitmentKey(eid, khIdx), commitment)
	m.logOK("set_kh_commitment", eid)
	return nil
}

// IssueAccount admits pkCast as a registered voter once at least
// dist_threshold distinct distributors have signed off on
// (eid, pkCast, nf_issue).
func (m *Machine) IssueAccount(eid uint64, pkCast, nfIssue [32]byte, distSigs []DistSig) error {
	s := m.host.Store()
	if !m.electionExists(s, eid) {
		return m.reject("issue_account", eid, ErrNotFound)
	}
	if s.Has(store.IssueNullifierKey(eid, nfIssue)) {
		return m.reject("issue_account", eid, ErrAlreadyIssued)
	}

	distRoster, ok := store.GetRoster(s, store.DistRosterKey(eid))
	if !ok {
		return m.reject("issue_account", eid, ErrEncodingError)
	}
	distThreshold, ok := store.GetU32(s, store.DistThresholdKey(eid))
	if !ok {
		return m.reject("issue_account", eid, ErrEncodingError)
	}

	msg := primitives.IssueDigest(eid, pkCast, nfIssue)
	sigPairs := make([]threshold.SigPair, len(distSigs))
	for i, ds := range distSigs {
		sigPairs[i] = threshold.SigPair{PK: ds.PK, Sig: ds.Sig}
	}

	validCount, err := threshold.CountValidSigners(distRoster, sigPairs, msg, m.host.VerifyEd25519)
	if err != nil {
		return m.reject("issue_account", eid, ErrInvalidSignature)
	}
	if validCount < int(distThreshold) {
		return m.reject("issue_account", eid, ErrInvalidDistributorSig)
	}

	store.MarkPresent(s, store.IssueNullifierKey(eid, nfIssue))
	store.MarkPresent(s, store.CastingAccountKey(eid, pkCast))

	m.host.Events().Publish(events.TopicIssued, eid, events.IssuedPayload{
		NfIssue: nfIssue,
		PkCast:  pkCast,
	})
	m.logOK("issue_account", eid)
	return nil
}

// Cast records one ballot for an already-issued voter during the
// voting window: start_time <= now < end_time.
func (m *Machine) Cast(eid uint64, nfCast [32]byte, c1, c2 []byte, pkCast [32]byte, sig [64]byte) (uint32, error) {
	s := m.host.Store()
	rec, ok := m.loadRecord(s, eid)
	if !ok {
		return 0, m.reject("cast", eid, ErrNotFound)
	}

	now := m.host.Now()
	if !(rec.StartTime <= now && now < rec.EndTime) {
		return 0, m.reject("cast", eid, ErrOutsideVotingWindow)
	}
	if s.Has(store.CastNullifierKey(eid, nfCast)) {
		return 0, m.reject("cast", eid, ErrAlreadyVoted)
	}
	if !s.Has(store.CastingAccountKey(eid, pkCast)) {
		return 0, m.reject("cast", eid, ErrNotIssuedAccount)
	}

	msg := primitives.CastDigest(eid, nfCast, c1, c2)
	if !m.host.VerifyEd25519(pkCast, msg, sig) {
		return 0, m.reject("cast", eid, ErrInvalidSignature)
	}

	idx, _ := store.GetU32(s, store.BallotCountKey(eid))
	s.Set(store.BallotKey(eid, idx), encodeBallot(Ballot{NfCast: nfCast, C1: c1, C2: c2}))
	store.SetU32(s, store.BallotCountKey(eid), idx+1)
	store.MarkPresent(s, store.CastNullifierKey(eid, nfCast))

	m.host.Events().Publish(events.TopicCast, eid, events.CastPayload{
		NfCast:      nfCast,
		BallotIndex: idx,
	})
	m.logOK("cast", eid)
	return idx, nil
}

// PostShare records key-holder khIdx's partial-decryption share batch
// after voting closes. It returns the new cumulative share count and
// publishes a "threshold" event the first time that count reaches
// kh_threshold.
func (m *Machine) PostShare(eid uint64, khIdx uint32, shares []SharePair, khPK [32]byte, sig [64]byte) (uint32, error) {
	s := m.host.Store()
	rec, ok := m.loadRecord(s, eid)
	if !ok {
		return 0, m.reject("post_share", eid, ErrNotFound)
	}
	if m.host.Now() < rec.EndTime {
		return 0, m.reject("post_share", eid, ErrOutsideVotingWindow)
	}
	if rec.Tallied {
		return 0, m.reject("post_share", eid, ErrAlreadyTallied)
	}

	khRoster, ok := store.GetRoster(s, store.KHRosterKey(eid))
	if !ok {
		return 0, m.reject("post_share", eid, ErrEncodingError)
	}
	if int(khIdx) >= len(khRoster) || khRoster[khIdx] != khPK {
		return 0, m.reject("post_share", eid, ErrNotKeyHolder)
	}
	if s.Has(store.ShareBlobKey(eid, khIdx)) {
		return 0, m.reject("post_share", eid, ErrAlreadyPosted)
	}

	blob := primitives.EncodeSharesBatch(shares)
	msg := primitives.SharesDigest(eid, blob)
	if !m.host.VerifyEd25519(khPK, msg, sig) {
		return 0, m.reject("post_share", eid, ErrInvalidSignature)
	}

	s.Set(store.ShareBlobKey(eid, khIdx), blob)
	oldCount, _ := store.GetU32(s, store.ShareCountKey(eid))
	newCount := oldCount + 1
	store.SetU32(s, store.ShareCountKey(eid), newCount)

	khThreshold, _ := store.GetU32(s, store.KHThresholdKey(eid))
	if oldCount < khThreshold && newCount >= khThreshold {
		m.host.Events().Publish(events.TopicThreshold, eid, events.ThresholdPayload{ShareCount: newCount})
	}
	m.logOK("post_share", eid)
	return newCount, nil
}

// FinalizeTally stores the final tally once enough key-holders have
// posted shares, and marks the election Tallied.
func (m *Machine) FinalizeTally(eid uint64, tally []uint32) error {
	s := m.host.Store()
	rec, ok := m.loadRecord(s, eid)
	if !ok {
		return m.reject("finalize_tally", eid, ErrNotFound)
	}
	if rec.Tallied {
		return m.reject("finalize_tally", eid, ErrAlreadyTallied)
	}
	if m.host.Now() < rec.EndTime {
		return m.reject("finalize_tally", eid, ErrOutsideVotingWindow)
	}

	shareCount, _ := store.GetU32(s, store.ShareCountKey(eid))
	khThreshold, _ := store.GetU32(s, store.KHThresholdKey(eid))
	if shareCount < khThreshold {
		return m.reject("finalize_tally", eid, ErrInsufficientShares)
	}
	if uint32(len(tally)) != rec.OptionsCount {
		return m.reject("finalize_tally", eid, ErrInvalidTally)
	}

	s.Set(store.TallyKey(eid), encodeTally(tally))
	rec.Tallied = true
	s.Set(store.ElectionKey(eid), encodeRecord(rec))

	m.host.Events().Publish(events.TopicTallied, eid, events.TalliedPayload{ShareCount: shareCount})
	m.logOK("finalize_tally", eid)
	return nil
}

// DeleteElection removes an election's metadata, ballots,
// commitments, share batches and rosters once voting has closed and
// it has not been tallied. Nullifier and casting-account entries are
// intentionally left for the host's own TTL expiry.
func (m *Machine) DeleteElection(eid uint64) error {
	s := m.host.Store()
	rec, ok := m.loadRecord(s, eid)
	if !ok {
		return m.reject("delete_election", eid, ErrNotFound)
	}
	if rec.Tallied {
		return m.reject("delete_election", eid, ErrAlreadyTallied)
	}
	if m.host.Now() < rec.EndTime {
		return m.reject("delete_election", eid, ErrOutsideVotingWindow)
	}

	if ballotCount, ok := store.GetU32(s, store.BallotCountKey(eid)); ok {
		for i := uint32(0); i < ballotCount; i++ {
			s.Delete(store.BallotKey(eid, i))
		}
	}
	s.Delete(store.BallotCountKey(eid))

	if khRoster, ok := store.GetRoster(s, store.KHRosterKey(eid)); ok {
		for j := range khRoster {
			s.Delete(store.KHCommitmentKey(eid, uint32(j)))
			s.Delete(store.ShareBlobKey(eid, uint32(j)))
		}
	}
	s.Delete(store.ShareCountKey(eid))

	s.Delete(store.DistRosterKey(eid))
	s.Delete(store.DistThresholdKey(eid))
	s.Delete(store.KHRosterKey(eid))
	s.Delete(store.KHThresholdKey(eid))
	s.Delete(store.EligibilityRootKey(eid))
	s.Delete(store.ElectionKey(eid))

	m.host.Events().Publish(events.TopicDeleted, eid, events.DeletedPayload{})
	m.logOK("delete_election", eid)
	return nil
}

// GetBallot returns the ballot stored at index i, if any.
func (m *Machine) GetBallot(eid uint64, i uint32) (Ballot, bool) {
	b, ok := m.host.Store().Get(store.BallotKey(eid, i))
	if !ok {
		return Ballot{}, false
	}
	return decodeBallot(b)
}

// GetTally returns the stored tally once FinalizeTally has run.
func (m *Machine) GetTally(eid uint64) ([]uint32, bool) {
	b, ok := m.host.Store().Get(store.TallyKey(eid))
	if !ok {
		return nil, false
	}
	return decodeTally(b)
}

func (m *Machine) reject(op string, eid uint64, err *Error) error {
	m.logErr(op, eid, err)
	return err
}
