package model

import (
	"time"

	"github.com/google/uuid"
)

// Status is the terminal state of one rendition.
type Status string

const (
	StatusAccepted Status = "accepted" // persisted within the size ceiling
	StatusSkipped  Status = "skipped"  // encoded fine but oversized, removed and ledgered
	StatusFailed   Status = "failed"   // codec or I/O error
)

// Tier is the compression effort used for an encode attempt.
type Tier string

const (
	TierFast Tier = "fast"
	TierMax  Tier = "max"
)

// Outcome is what the adaptive encoder reports for one rendition.
type Outcome struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Status   Status `json:"status"`
	Attempts int    `json:"attempts"`
	Tier     Tier   `json:"tier"`
	Bytes    int64  `json:"bytes"` // size of the last encoded attempt
}

// Accepted reports whether the rendition was persisted.
func (o Outcome) Accepted() bool { return o.Status == StatusAccepted }

// Skipped reports whether the rendition was discarded for size.
func (o Outcome) Skipped() bool { return o.Status == StatusSkipped }

// RenditionEvent is published for every finished rendition.
type RenditionEvent struct {
	ID        uuid.UUID `json:"id"`
	RunID     uuid.UUID `json:"run_id"`
	Source    string    `json:"source"`
	Name      string    `json:"name"`
	Profile   Profile   `json:"profile"`
	Status    Status    `json:"status"`
	Attempts  int       `json:"attempts"`
	Bytes     int64     `json:"bytes"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
