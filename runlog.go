// Package runlog provides a durable, idempotent, append-only event log
// for agent runs.
//
// A Journal records ordered events for many independent runs. Each run
// has its own gap-free, 1-based sequence; events are immutable once
// recorded and survive process restart by replaying the backing file.
// Retried append requests carrying the same idempotency key are applied
// at most once: the journal returns the originally recorded event
// instead of creating a new one. Callers that want optimistic
// concurrency control state the sequence they last observed and receive
// a conflict error when another writer advanced the run.
//
// Journals come in two flavors: Open backs the journal with a single
// append-only JSON-lines file and fsyncs every record before an append
// reports success; New keeps everything in memory, for tests and
// ephemeral runs.
package runlog

import (
	"encoding/json"
	"time"
)

type (
	// Event is a single immutable run event recorded in the journal.
	//
	// The journal assigns Sequence and RecordedAt when persisting the
	// event. Sequences are 1-based, gap-free, and strictly increasing
	// within a run. Events returned by the journal are shared snapshots:
	// callers must not mutate them.
	Event struct {
		// RunID is the identifier of the run this event belongs to.
		RunID string
		// Sequence is the journal-assigned position of the event within
		// its run, starting at 1.
		Sequence uint64
		// Type is the caller-supplied event discriminator. It is opaque
		// to the journal.
		Type string
		// Payload is the caller-supplied JSON payload, stored and
		// returned verbatim. The journal never inspects it.
		Payload json.RawMessage
		// IdempotencyKey is the normalized idempotency key the event was
		// recorded under, or empty when the append carried none.
		IdempotencyKey string
		// RecordedAt is the wall-clock time the append succeeded, in UTC.
		RecordedAt time.Time
	}

	// AppendRequest describes one event to append to a run.
	AppendRequest struct {
		// RunID identifies the run to append to. Required. Run ids are
		// supplied by the caller and never generated by the journal; see
		// NewRunID for a convenience constructor.
		RunID string
		// Type is the event discriminator. Required, opaque.
		Type string
		// Payload is the event payload, stored verbatim. Optional.
		Payload json.RawMessage
		// IdempotencyKey deduplicates retried requests. The key is
		// trimmed of surrounding whitespace; empty or whitespace-only
		// keys are treated as absent. Keys are scoped per run.
		IdempotencyKey string
		// ExpectedPreviousSequence, when non-nil, asserts the run's
		// latest sequence at the time the caller prepared the request.
		// The append fails with a *SequenceConflictError when the
		// assertion no longer holds.
		ExpectedPreviousSequence *uint64
	}

	// AppendOutcome is the result of a successful append.
	AppendOutcome struct {
		// Event is the recorded event. For an idempotent replay it is
		// the event recorded by the first request bearing the key.
		Event *Event
		// IdempotentReplay reports whether the call returned a
		// previously recorded event rather than creating a new one.
		IdempotentReplay bool
	}
)
