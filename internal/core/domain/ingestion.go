package domain

import "time"

type RunStatus string

const (
	RunStatusRunning RunStatus = "running"
	RunStatusReady   RunStatus = "ready"
	RunStatusFailed  RunStatus = "failed"
	// RunStatusDropped marks a collection deleted on purpose; it stays unservable until
	// the next successful rebuild.
	RunStatusDropped RunStatus = "dropped"
)

// IngestionRun is one full rebuild attempt of a collection, as recorded in the run ledger.
type IngestionRun struct {
	ID         string     `json:"id"`
	Collection string     `json:"collection"`
	Status     RunStatus  `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type SkippedEntity struct {
	Entity string `json:"entity"`
	Reason string `json:"reason"`
}

type IngestionReport struct {
	RunID      string          `json:"run_id"`
	Collection string          `json:"collection"`
	Entities   []string        `json:"entities"`
	Skipped    []SkippedEntity `json:"skipped,omitempty"`
	Documents  int             `json:"documents"`
	Chunks     int             `json:"chunks"`
	Indexed    int             `json:"indexed"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

func (r IngestionReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// RebuildRequest asks a worker to rebuild a collection from scratch.
type RebuildRequest struct {
	ID          string    `json:"id"`
	Collection  string    `json:"collection"`
	RequestedAt time.Time `json:"requested_at"`
}
