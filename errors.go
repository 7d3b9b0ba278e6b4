package runlog

import "fmt"

// Error taxonomy. Sequence conflicts and overflows are reported with
// typed errors so callers can branch on them with errors.As; a conflict
// is the routine optimistic-concurrency signal, not a bug. I/O and
// encoding failures are wrapped with %w and retain the underlying os
// and json errors. A corrupt record found during bootstrap aborts Open
// with a *CorruptRecordError naming the offending line.

type (
	// SequenceConflictError reports a failed ExpectedPreviousSequence
	// precondition: another writer advanced the run's sequence since the
	// caller last observed it.
	SequenceConflictError struct {
		// RunID is the run the append targeted.
		RunID string
		// Expected is the previous sequence the caller asserted.
		Expected uint64
		// Actual is the run's latest sequence at the time of the append.
		Actual uint64
	}

	// SequenceOverflowError reports that the next sequence number for a
	// run would overflow. It is a defensive bound, not expected in
	// practice.
	SequenceOverflowError struct {
		// RunID is the run whose sequence space is exhausted.
		RunID string
	}

	// CorruptRecordError reports a journal file line that could not be
	// decoded during bootstrap. The journal file is authoritative and
	// must be fully parseable, so this error is fatal to Open.
	CorruptRecordError struct {
		// Path is the journal file being replayed.
		Path string
		// Line is the 1-based line number of the undecodable record.
		Line int
		// Err is the underlying decode error.
		Err error
	}
)

// Error implements error.
func (e *SequenceConflictError) Error() string {
	return fmt.Sprintf("runlog: sequence conflict for run %q: expected previous sequence %d, actual %d", e.RunID, e.Expected, e.Actual)
}

// Error implements error.
func (e *SequenceOverflowError) Error() string {
	return fmt.Sprintf("runlog: sequence overflow for run %q", e.RunID)
}

// Error implements error.
func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("runlog: corrupt record at %s:%d: %v", e.Path, e.Line, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *CorruptRecordError) Unwrap() error { return e.Err }
