package model

import (
	"errors"
	"time"
)

type JobStatus string

const (
	JobQueued  JobStatus = "queued"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobError   JobStatus = "error"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobQueued, JobRunning, JobDone, JobError:
		return true
	}
	return false
}

var ErrNotFound = errors.New("not found")

// Job is the ledger entry of one asset generation attempt.
//
// - PromptID is the server-side job id, set once the graph was accepted.
// - OutputPath is relative to the asset root.
type Job struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Status     JobStatus `json:"status"`
	Category   string    `json:"category"`
	Asset      string    `json:"asset"`
	PromptID   string    `json:"promptId,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// JobPatch is used for partial updates.
type JobPatch struct {
	Status     *JobStatus
	PromptID   *string
	OutputPath *string
	Error      *string
}

// JobFilter narrows ListJobs. Zero fields match everything.
type JobFilter struct {
	Status   JobStatus
	Category string
	Limit    int
}
