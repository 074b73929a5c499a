// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package model

import "time"

// JobStatus is the lifecycle state of a sync job. Monotonic except that
// Cancelled may supersede Pending or Processing.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
	JobCancelled  JobStatus = "cancelled"
)

// Direction is the sync direction. Only idp_to_lms is implemented; the
// reverse direction is an explicit non-goal.
type Direction string

const (
	DirectionIdPToLMS Direction = "idp_to_lms"
)

// LogEntry is one structured line in a job's tail log.
type LogEntry struct {
	Level   string `json:"level"`
	Message string `json:"message"`
	Phase   string `json:"phase"`
}

// ErrorDetail is one structured per-item failure recorded in a job's
// error_details, per the Error Handling Design.
type ErrorDetail struct {
	Phase      string `json:"phase"`
	Kind       string `json:"kind"`
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

// Job is the durable record of one sync run.
type Job struct {
	SyncID    string    `json:"sync_id"`
	ActorID   string    `json:"actor_id"`
	Direction Direction `json:"direction"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Phase     string    `json:"phase"`

	Processed int `json:"processed"`
	Total     int `json:"total"`
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Deleted   int `json:"deleted"`

	ErrorCount int           `json:"error_count"`
	Errors     []ErrorDetail `json:"errors"`
	LogTail    []LogEntry    `json:"log_tail"`

	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IsTerminal reports whether the job has reached a state from which it will
// never transition again.
func (j Job) IsTerminal() bool {
	switch j.Status {
	case JobCompleted, JobFailed, JobCancelled:
		return true
	default:
		return false
	}
}

// Options gates optional phases of a sync run, per the enumerated
// configuration in the External Interfaces section.
type Options struct {
	SuspendUsers       bool
	UnenrollUsers      bool
	AutoEnrollTeachers bool
	AutoEnrollStudents bool
}

// SyncRequest is the record the runner receives to start a run.
type SyncRequest struct {
	SyncID    string
	ActorID   string
	Direction Direction
	Options   Options
}
