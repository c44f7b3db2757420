// Package ledger defines the narrow boundary between the election
// state machine and whatever host ledger is actually running it.
// A real chain integration implements Host directly against its own
// clock, storage, crypto oracle and event bus. The ledger/memhost
// subpackage is an in-memory reference implementation used by the
// CLI demo and by tests.
//
// This is the generalization of a single EVM-precompile entrypoint
// (one total "Run(input) (output, error)" call) into the small set of
// capability calls an election transition actually needs: the core
// never holds a reference to anything but a Host.
package ledger

import (
	"github.com/stellot/stellot-core/events"
	"github.com/stellot/stellot-core/store"
)

// Host is every capability the election state machine consumes from
// its ledger. All of it is assumed synchronous and side-effect-free
// to call more than once within a single transition: callers see
// their own writes immediately and there are no suspension points.
type Host interface {
	// Now returns the ledger's current time, seconds since epoch,
	// monotonic non-decreasing across transitions.
	Now() uint64

	// Store returns the typed view over the host's persistent map.
	Store() store.Store

	// Events returns the sink successful transitions publish to.
	Events() events.Sink

	// VerifyEd25519 checks a signature over msg by pk. A transition
	// that calls this and gets false must abort immediately with no
	// writes committed. On a real chain host this call may itself
	// panic or abort instead of returning false, which is semantically
	// equivalent from the transition's point of view.
	VerifyEd25519(pk [32]byte, msg [32]byte, sig [64]byte) bool
}
