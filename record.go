package runlog

import (
	"encoding/json"
	"time"
)

// record is the persisted mirror of an Event: one self-contained JSON
// object per line of the journal file.
type record struct {
	RunID          string          `json:"run_id"`
	Sequence       uint64          `json:"sequence"`
	EventType      string          `json:"event_type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	IdempotencyKey string          `json:"idempotency_key,omitempty"`
	RecordedAt     time.Time       `json:"recorded_at"`
}

func newRecord(e *Event) record {
	return record{
		RunID:          e.RunID,
		Sequence:       e.Sequence,
		EventType:      e.Type,
		Payload:        e.Payload,
		IdempotencyKey: e.IdempotencyKey,
		RecordedAt:     e.RecordedAt.UTC(),
	}
}

func (r record) event() *Event {
	return &Event{
		RunID:          r.RunID,
		Sequence:       r.Sequence,
		Type:           r.EventType,
		Payload:        r.Payload,
		IdempotencyKey: r.IdempotencyKey,
		RecordedAt:     r.RecordedAt.UTC(),
	}
}

func decodeRecord(line []byte) (record, error) {
	var r record
	if err := json.Unmarshal(line, &r); err != nil {
		return record{}, err
	}
	return r, nil
}
