package runlog

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewRunID returns a globally unique run identifier. The journal never
// assigns run ids itself; hosting code may use this helper when
// starting a run.
//
// The identifier is prefixed with a normalized form of prefix to
// improve observability in logs and metrics without sacrificing
// uniqueness. An empty prefix yields a bare UUID.
func NewRunID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", strings.ReplaceAll(prefix, ".", "-"), uuid.NewString())
}
