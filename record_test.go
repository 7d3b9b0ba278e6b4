package runlog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()

	e := &Event{
		RunID:          "run-1",
		Sequence:       7,
		Type:           "run.step.completed",
		Payload:        json.RawMessage(`{"step":7,"ok":true}`),
		IdempotencyKey: "key-7",
		RecordedAt:     time.Date(2026, 8, 29, 12, 30, 45, 123456789, time.UTC),
	}

	line, err := json.Marshal(newRecord(e))
	require.NoError(t, err)

	rec, err := decodeRecord(line)
	require.NoError(t, err)
	got := rec.event()
	require.Equal(t, e.RunID, got.RunID)
	require.Equal(t, e.Sequence, got.Sequence)
	require.Equal(t, e.Type, got.Type)
	require.Equal(t, e.IdempotencyKey, got.IdempotencyKey)
	require.JSONEq(t, string(e.Payload), string(got.Payload))
	require.True(t, e.RecordedAt.Equal(got.RecordedAt))
}

func TestRecordOmitsAbsentOptionalFields(t *testing.T) {
	t.Parallel()

	e := &Event{RunID: "run-1", Sequence: 1, Type: "run.started", RecordedAt: time.Now().UTC()}
	line, err := json.Marshal(newRecord(e))
	require.NoError(t, err)
	require.NotContains(t, string(line), "idempotency_key")
	require.NotContains(t, string(line), "payload")

	rec, err := decodeRecord(line)
	require.NoError(t, err)
	require.Empty(t, rec.IdempotencyKey)
	require.Nil(t, rec.Payload)
}

func TestDecodeRecordRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := decodeRecord([]byte("not json"))
	require.Error(t, err)
}

func TestDurableFileIsOneRecordPerLine(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "journal.jsonl")
	ctx := context.Background()

	j, err := Open(ctx, path)
	require.NoError(t, err)
	for i := 1; i <= 3; i++ {
		_, err := j.Append(ctx, AppendRequest{
			RunID:   "run-1",
			Type:    "e",
			Payload: json.RawMessage(fmt.Sprintf(`{"i":%d}`, i)),
		})
		require.NoError(t, err)
	}
	require.NoError(t, j.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, bytes.HasSuffix(data, []byte("\n")))

	lines := bytes.Split(bytes.TrimSuffix(data, []byte("\n")), []byte("\n"))
	require.Len(t, lines, 3)
	for i, line := range lines {
		var rec record
		require.NoError(t, json.Unmarshal(line, &rec))
		require.Equal(t, "run-1", rec.RunID)
		require.Equal(t, uint64(i+1), rec.Sequence)
	}
}
