// Package memhost is an in-memory reference implementation of
// ledger.Host, used by the CLI demo and by the election package's own
// tests. It is not meant to back a real deployment. A real chain
// host provides its own persistent map, its own clock, and its own
// native Ed25519 oracle. This package exists so the state machine has
// something to run against without one.
package memhost

import (
	"crypto/ed25519"
	"sync"

	"github.com/rs/zerolog"

	"github.com/stellot/stellot-core/events"
	"github.com/stellot/stellot-core/store"
)

// KV is a trivial in-memory store.Store backed by a map, guarded by a
// mutex so a CLI demo driving several calls from one goroutine still
// documents the single-transition-at-a-time contract a real host
// assumes.
type KV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewKV constructs an empty KV.
func NewKV() *KV { return &KV{data: make(map[string][]byte)} }

func (kv *KV) Get(k store.Key) ([]byte, bool) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.data[k.String()]
	return v, ok
}

func (kv *KV) Set(k store.Key, v []byte) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	kv.data[k.String()] = v
}

func (kv *KV) Has(k store.Key) bool {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	_, ok := kv.data[k.String()]
	return ok
}

func (kv *KV) Delete(k store.Key) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	delete(kv.data, k.String())
}

// Sink is an in-process events.Sink: it keeps every published event
// for tests to assert ordering against and, when given a non-nil
// logger, mirrors each event as a structured log line for an operator
// tailing output.
type Sink struct {
	mu     sync.Mutex
	log    []events.Event
	logger *zerolog.Logger
}

// NewSink constructs an empty Sink. logger may be nil.
func NewSink(logger *zerolog.Logger) *Sink {
	return &Sink{logger: logger}
}

func (s *Sink) Publish(topic string, eid uint64, payload any) {
	s.mu.Lock()
	s.log = append(s.log, events.Event{Topic: topic, EID: eid, Payload: payload})
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info().
			Str("topic", topic).
			Uint64("eid", eid).
			Interface("payload", payload).
			Msg("election event")
	}
}

// Events returns a snapshot of every event published so far, in
// publish order.
func (s *Sink) Events() []events.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]events.Event, len(s.log))
	copy(out, s.log)
	return out
}

// Host is the in-memory ledger.Host implementation: a settable clock,
// a KV store, a Sink, and Ed25519 verification via the standard
// library (a stand-in for a real chain's native oracle).
type Host struct {
	mu    sync.Mutex
	now   uint64
	kv    *KV
	sink  *Sink
	logvl *zerolog.Logger
}

// New constructs a Host with its clock at 0.
func New() *Host {
	return &Host{kv: NewKV(), sink: NewSink(nil)}
}

// WithLogger attaches a structured logger; every published event is
// mirrored to it. Returns h for chaining.
func (h *Host) WithLogger(l *zerolog.Logger) *Host {
	h.logvl = l
	h.sink = NewSink(l)
	return h
}

// SetNow pins the clock to t.
func (h *Host) SetNow(t uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now = t
}

// Advance moves the clock forward by delta seconds.
func (h *Host) Advance(delta uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.now += delta
}

func (h *Host) Now() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *Host) Store() store.Store { return h.kv }

func (h *Host) Events() events.Sink { return h.sink }

// Log returns every event published so far, in order. A test
// convenience the typed events.Sink interface doesn't expose.
func (h *Host) Log() []events.Event { return h.sink.Events() }

func (h *Host) VerifyEd25519(pk [32]byte, msg [32]byte, sig [64]byte) bool {
	return ed25519.Verify(pk[:], msg[:], sig[:])
}
