package domain

import (
	"fmt"
	"time"
)

// JobStatus represents the lifecycle state of a processing job.
// Values include JobStatusQueued, JobStatusStarted, JobStatusFinished, and JobStatusFailed.
type JobStatus string

const (
	JobStatusQueued   JobStatus = "queued"
	JobStatusStarted  JobStatus = "started"
	JobStatusFinished JobStatus = "finished"
	JobStatusFailed   JobStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// CanTransition reports whether s -> next is a legal lifecycle step.
// queued may fail directly when pre-flight validation rejects the request.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobStatusQueued:
		return next == JobStatusStarted || next == JobStatusFailed
	case JobStatusStarted:
		return next == JobStatusFinished || next == JobStatusFailed
	default:
		return false
	}
}

// JobKind identifies which runner handles a job.
type JobKind string

const (
	JobKindExtract JobKind = "extract"
	JobKindBatch   JobKind = "batch"
	JobKindMerge   JobKind = "merge"
	JobKindTables  JobKind = "tables"
	JobKindInfo    JobKind = "info"
)

// Valid reports whether k is a known kind.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindExtract, JobKindBatch, JobKindMerge, JobKindTables, JobKindInfo:
		return true
	}
	return false
}

// Job represents an asynchronous pipeline request and its observable progress.
type Job struct {
	ID                string     `gorm:"type:text;primaryKey" json:"id"`
	Kind              JobKind    `gorm:"type:text;not null;index" json:"kind"`
	Status            JobStatus  `gorm:"type:text;not null;index;default:queued" json:"status"`
	Payload           Payload    `gorm:"type:text" json:"payload"`
	Options           Options    `gorm:"type:text" json:"options"`
	Progress          int        `gorm:"default:0" json:"progress"`
	Message           string     `gorm:"type:text" json:"message,omitempty"`
	ResultKey         string     `gorm:"type:text" json:"-"`
	ResultContentType string     `gorm:"type:text" json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	StartedAt         *time.Time `json:"started_at,omitempty"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Job.
func (Job) TableName() string {
	return "jobs"
}

// Transition moves the job to next, stamping lifecycle timestamps.
// Parameters:
//   - next: target status.
//   - now: clock reading used for timestamps.
//
// Returns:
//   - error: non-nil if the transition is not allowed.
func (j *Job) Transition(next JobStatus, now time.Time) error {
	if !j.Status.CanTransition(next) {
		return fmt.Errorf("illegal job transition %s -> %s", j.Status, next)
	}
	j.Status = next
	j.UpdatedAt = now
	switch next {
	case JobStatusStarted:
		j.StartedAt = &now
	case JobStatusFinished:
		j.FinishedAt = &now
		j.Progress = 100
	case JobStatusFailed:
		j.FinishedAt = &now
	}
	return nil
}

// SetProgress raises progress, ignoring regressions and out-of-range values.
func (j *Job) SetProgress(progress int) {
	if progress > 100 {
		progress = 100
	}
	if progress > j.Progress {
		j.Progress = progress
	}
}
