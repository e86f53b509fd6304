package models

import (
	"fmt"
	"time"

	"github.com/desertthunder/showsync/internal/shared"
)

// RunStatus is the outcome of a recorded export run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSuccess   RunStatus = "success"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// SyncRun records a single export run.
type SyncRun struct {
	ID             string
	Status         RunStatus
	HistoryCount   int
	WatchlistCount int
	HiddenCount    int
	Suppressed     int
	ErrorMessage   string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// NewSyncRun creates a running record started at the given time.
func NewSyncRun(id string, startedAt time.Time) *SyncRun {
	return &SyncRun{ID: id, Status: RunStatusRunning, StartedAt: startedAt}
}

// Total returns the number of items exported across all phases.
func (r *SyncRun) Total() int {
	return r.HistoryCount + r.WatchlistCount + r.HiddenCount
}

// Duration returns how long the run took, or zero while it is still running.
func (r *SyncRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// Validate checks that the run has an id, a known status and a start time.
func (r *SyncRun) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("%w: run id is required", shared.ErrInvalidInput)
	}
	switch r.Status {
	case RunStatusRunning, RunStatusSuccess, RunStatusFailed, RunStatusCancelled:
	default:
		return fmt.Errorf("%w: unknown run status %q", shared.ErrInvalidInput, r.Status)
	}
	if r.StartedAt.IsZero() {
		return fmt.Errorf("%w: started at is required", shared.ErrInvalidInput)
	}
	return nil
}
