// Package progress keeps the job-id keyed progress records that a register
// generation job writes after every chunk and that clients poll.
package progress

import (
	"context"
	"errors"
	"time"
)

// Status of a generation job. A job starts in processing and ends in exactly one
// of the terminal states.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
)

// DefaultPollInterval is how often clients are told to re-read a job's progress.
const DefaultPollInterval = 500 * time.Millisecond

// DefaultTTL is how long a record survives after its last write.
const DefaultTTL = time.Hour

var ErrNotFound = errors.New("progress record not found")

// Progress is the record published after each chunk insert.
type Progress struct {
	JobID        string    `json:"job_id"`
	ProductionID string    `json:"production_id,omitempty"`
	CurrentBatch int       `json:"current_batch"`
	TotalBatches int       `json:"total_batches"`
	Inserted     int       `json:"inserted"`
	Total        int       `json:"total"`
	Status       string    `json:"status"`
	Message      string    `json:"message,omitempty"`
	ETASeconds   int       `json:"eta_seconds"`
	StartedAt    time.Time `json:"started_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether a poller can stop reading the job.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusError
}

// Terminal is IsTerminal for the record's own status.
func (p Progress) Terminal() bool { return IsTerminal(p.Status) }

// EstimateETA extrapolates the remaining time from the elapsed time per inserted row.
func EstimateETA(startedAt, now time.Time, inserted, total int) int {
	if inserted <= 0 || total <= inserted {
		return 0
	}
	elapsed := now.Sub(startedAt)
	remaining := time.Duration(float64(elapsed) / float64(inserted) * float64(total-inserted))
	return int(remaining.Round(time.Second) / time.Second)
}

// Store is the narrow get/set interface over the shared progress location.
// Every Set refreshes the record's TTL.
type Store interface {
	Set(ctx context.Context, p Progress) error
	Get(ctx context.Context, jobID string) (*Progress, error)
	Delete(ctx context.Context, jobID string) error
	List(ctx context.Context) ([]Progress, error)
}
