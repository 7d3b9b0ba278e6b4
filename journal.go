package runlog

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"goa.design/clue/log"
)

// Journal is the concurrency-safe append coordinator and query surface
// for run events.
//
// All mutable state (the per-run sequence index, the per-run event
// history, and the idempotency index) is guarded by one process-wide
// mutex together with the sink's write handle: at most one append, for
// any run, is in flight at a time. The critical section deliberately
// includes the durable write — durability is not traded for intra-run
// parallelism. Journal handles are safe for concurrent use; share one
// instance per backing file.
type Journal struct {
	mu   sync.Mutex
	sink sink

	// latest maps run id to the highest sequence recorded for that run.
	// Absence means 0, i.e. no events yet.
	latest map[string]uint64
	// events maps run id to its events keyed by sequence. Keyed rather
	// than appended so replay tolerates arbitrary insertion order.
	events map[string]map[uint64]*Event
	// idempotency maps run id to idempotency key to the event recorded
	// by the first append bearing that key. Keys are scoped per run.
	idempotency map[string]map[string]*Event

	metrics *metrics
}

// New returns a journal with no backing file. It behaves identically to
// a durable journal for in-process semantics but leaves no artifact and
// loses all state when the instance is dropped. Intended for tests and
// ephemeral runs.
func New() *Journal {
	return newJournal(memorySink{})
}

// Open returns a journal backed by the append-only file at path,
// creating the file and any missing parent directories as needed.
// Existing content is replayed into the in-memory indices before the
// journal accepts appends; any undecodable line aborts the open with a
// *CorruptRecordError.
func Open(ctx context.Context, path string) (*Journal, error) {
	if path == "" {
		return nil, errors.New("runlog: journal path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runlog: create journal directory: %w", err)
		}
	}
	w, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("runlog: open journal %s: %w", path, err)
	}
	j := newJournal(&fileSink{f: w})
	n, err := j.replay(path)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	j.metrics.addReplayed(ctx, n)
	log.Debugf(ctx, "runlog: opened journal path=%s replayed=%d runs=%d", path, n, len(j.latest))
	return j, nil
}

func newJournal(s sink) *Journal {
	return &Journal{
		sink:        s,
		latest:      make(map[string]uint64),
		events:      make(map[string]map[uint64]*Event),
		idempotency: make(map[string]map[string]*Event),
		metrics:     newMetrics(),
	}
}

// Append records one event for req.RunID and returns it together with
// an idempotent-replay flag.
//
// The idempotency check, the ExpectedPreviousSequence precondition,
// sequence assignment, the durable write, and the index update execute
// as one atomic unit: a failed append leaves the journal exactly as it
// was. Idempotent replays consume no sequence number and write nothing.
func (j *Journal) Append(ctx context.Context, req AppendRequest) (AppendOutcome, error) {
	if req.RunID == "" {
		return AppendOutcome{}, errors.New("runlog: run id is required")
	}
	if req.Type == "" {
		return AppendOutcome{}, errors.New("runlog: event type is required")
	}
	key := strings.TrimSpace(req.IdempotencyKey)

	j.mu.Lock()
	defer j.mu.Unlock()

	if key != "" {
		if e, ok := j.idempotency[req.RunID][key]; ok {
			j.metrics.incReplay(ctx)
			return AppendOutcome{Event: e, IdempotentReplay: true}, nil
		}
	}

	current := j.latest[req.RunID]
	if req.ExpectedPreviousSequence != nil && *req.ExpectedPreviousSequence != current {
		j.metrics.incConflict(ctx)
		return AppendOutcome{}, &SequenceConflictError{
			RunID:    req.RunID,
			Expected: *req.ExpectedPreviousSequence,
			Actual:   current,
		}
	}
	if current == math.MaxUint64 {
		return AppendOutcome{}, &SequenceOverflowError{RunID: req.RunID}
	}

	var payload []byte
	if len(req.Payload) > 0 {
		payload = append([]byte(nil), req.Payload...)
	}
	e := &Event{
		RunID:          req.RunID,
		Sequence:       current + 1,
		Type:           req.Type,
		Payload:        payload,
		IdempotencyKey: key,
		RecordedAt:     time.Now().UTC(),
	}
	if err := j.sink.append(ctx, newRecord(e)); err != nil {
		log.Errorf(ctx, err, "runlog: append failed run=%s type=%s", req.RunID, req.Type)
		return AppendOutcome{}, err
	}
	j.recordEvent(e)
	j.metrics.incAppend(ctx, e.Type)
	return AppendOutcome{Event: e, IdempotentReplay: false}, nil
}

// Events returns runID's events ordered by sequence, or an empty slice
// when the run is unknown. The slice is a snapshot: concurrent appends
// do not affect it. The events themselves are shared and must not be
// mutated.
func (j *Journal) Events(ctx context.Context, runID string) ([]*Event, error) {
	if runID == "" {
		return nil, errors.New("runlog: run id is required")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	bySeq := j.events[runID]
	out := make([]*Event, 0, len(bySeq))
	for _, e := range bySeq {
		out = append(out, e)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Sequence < out[b].Sequence })
	return out, nil
}

// LatestSequence returns the highest sequence recorded for runID, or 0
// when the run has no events. Callers use it to populate
// AppendRequest.ExpectedPreviousSequence from fresh state.
func (j *Journal) LatestSequence(runID string) uint64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.latest[runID]
}

// Runs returns the ids of all runs with at least one recorded event,
// sorted lexically. The slice is a snapshot.
func (j *Journal) Runs() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, 0, len(j.latest))
	for id := range j.latest {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Close releases the journal's backing file handle, if any. Close is
// idempotent. Appends after Close fail on the durable variant.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.sink.close()
}

// recordEvent applies one event to all three indices. It is the single
// mutating operation shared by live appends and bootstrap replay, and
// must be called with j.mu held. latest is last-writer-wins: callers
// only ever pass monotonically non-decreasing sequences per run.
func (j *Journal) recordEvent(e *Event) {
	j.latest[e.RunID] = e.Sequence
	bySeq := j.events[e.RunID]
	if bySeq == nil {
		bySeq = make(map[uint64]*Event)
		j.events[e.RunID] = bySeq
	}
	bySeq[e.Sequence] = e
	if e.IdempotencyKey != "" {
		byKey := j.idempotency[e.RunID]
		if byKey == nil {
			byKey = make(map[string]*Event)
			j.idempotency[e.RunID] = byKey
		}
		byKey[e.IdempotencyKey] = e
	}
}

// replay reads the journal file from the start and applies every
// non-blank line through recordEvent, in file order. It runs before the
// journal is shared, so no locking is needed. Lines are read without a
// length cap: the append path accepts payloads of any size, so replay
// must too — everything a successful append wrote is representable.
func (j *Journal) replay(path string) (int, error) {
	r, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("runlog: open journal %s for replay: %w", path, err)
	}
	defer r.Close()

	br := bufio.NewReaderSize(r, 64*1024)
	var (
		line int
		n    int
	)
	for {
		raw, err := br.ReadBytes('\n')
		if len(raw) > 0 {
			line++
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 {
				rec, derr := decodeRecord(trimmed)
				if derr != nil {
					return 0, &CorruptRecordError{Path: path, Line: line, Err: derr}
				}
				j.recordEvent(rec.event())
				n++
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return 0, fmt.Errorf("runlog: read journal %s: %w", path, err)
		}
	}
}
