// Package events defines the lifecycle events the election state
// machine publishes on each successful transition that has a topic
// below (set_kh_commitment has none and publishes nothing). Events are
// lossless, strictly ordered with their transition's commit, and
// visible to a Sink only after commit. A rejected transition never
// reaches a Sink.
package events

// Event is one published lifecycle record.
type Event struct {
	Topic   string
	EID     uint64
	Payload any
}

// Sink receives events published by a successful transition. A host
// implementation typically fans this out to its own on-ledger event
// log; the in-memory reference host in ledger/memhost also keeps an
// in-process copy for tests to assert ordering against.
type Sink interface {
	Publish(topic string, eid uint64, payload any)
}

// DeployPayload is published on deploy.
type DeployPayload struct {
	StartTime    uint64
	EndTime      uint64
	OptionsCount uint32
}

// IssuedPayload is published when issue_account succeeds.
type IssuedPayload struct {
	NfIssue [32]byte
	PkCast  [32]byte
}

// CastPayload is published when cast succeeds.
type CastPayload struct {
	NfCast      [32]byte
	BallotIndex uint32
}

// ThresholdPayload is published the first time post_share crosses the
// key-holder threshold.
type ThresholdPayload struct {
	ShareCount uint32
}

// TalliedPayload is published when finalize_tally succeeds.
type TalliedPayload struct {
	ShareCount uint32
}

// DeletedPayload is published when delete_election succeeds. It
// carries no fields.
type DeletedPayload struct{}

// Topic names, fixed for the lifetime of the protocol.
const (
	TopicDeploy    = "deploy"
	TopicIssued    = "issued"
	TopicCast      = "cast"
	TopicThreshold = "threshold"
	TopicTallied   = "tallied"
	TopicDeleted   = "deleted"
)
