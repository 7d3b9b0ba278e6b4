package runlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type (
	// sink abstracts where record bytes go. The durable variant writes
	// one serialized record per line and forces it to stable storage
	// before reporting success; the memory variant discards bytes and
	// leaves the in-memory indices as the only state.
	sink interface {
		append(ctx context.Context, r record) error
		close() error
	}

	memorySink struct{}

	fileSink struct {
		f         *os.File
		closeOnce sync.Once
		closeErr  error
	}
)

func (memorySink) append(context.Context, record) error { return nil }
func (memorySink) close() error                         { return nil }

// append serializes the record, writes it followed by a newline, and
// fsyncs the file. A reported-successful append must survive an
// immediate crash, so the sync happens before success is reported.
func (s *fileSink) append(_ context.Context, r record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("runlog: encode record: %w", err)
	}
	if _, err := s.f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("runlog: write record: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("runlog: sync journal: %w", err)
	}
	return nil
}

func (s *fileSink) close() error {
	s.closeOnce.Do(func() {
		if err := s.f.Close(); err != nil {
			s.closeErr = fmt.Errorf("runlog: close journal: %w", err)
		}
	})
	return s.closeErr
}
