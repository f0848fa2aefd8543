package batch

import (
	"time"

	"github.com/google/uuid"
)

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	RunID         uuid.UUID
	Files         int // sources discovered
	Decoded       int
	DecodeFailed  int
	FailedSources []string
	Accepted      int
	Skipped       int
	Failed        int // renditions that hit a codec, I/O or deadline error
	LedgerErrors  int
	MirrorErrors  int
	PublishErrors int
	Bytes         int64 // total size of accepted renditions
	Elapsed       time.Duration
}

// Renditions returns the number of (source, profile) pairs that reached a
// terminal state.
func (s *RunStats) Renditions() int {
	return s.Accepted + s.Skipped + s.Failed
}
