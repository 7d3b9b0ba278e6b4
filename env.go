package runlog

import (
	"context"
	"os"
)

const (
	// PathEnv names the environment variable that locates the durable
	// journal file for OpenFromEnv.
	PathEnv = "RUNLOG_PATH"
	// DefaultPath is the journal file used when PathEnv is unset,
	// relative to the process working directory.
	DefaultPath = "data/run_events.jsonl"
)

// JournalPath returns the journal file path from the environment,
// falling back to DefaultPath when PathEnv is unset or empty.
func JournalPath() string {
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultPath
}

// OpenFromEnv opens a durable journal at the path resolved by
// JournalPath, replaying existing content.
func OpenFromEnv(ctx context.Context) (*Journal, error) {
	return Open(ctx, JournalPath())
}
