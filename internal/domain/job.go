package domain

import "time"

// JobStatus enumerates job lifecycle states reported by the service.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether polling must stop once this status is observed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job is the client-side copy of a server-tracked job, refreshed by each poll.
type Job struct {
	ID             string     `json:"id"`
	Operation      Operation  `json:"operation,omitempty"`
	Status         JobStatus  `json:"status"`
	InputSize      int64      `json:"input_size,omitempty"`
	OutputSize     *int64     `json:"output_size,omitempty"`
	OriginalName   string     `json:"original_name,omitempty"`
	OutputFilename string     `json:"output_filename,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// OutputBytes returns the output size, or zero when the service omitted it.
func (j Job) OutputBytes() int64 {
	if j.OutputSize == nil {
		return 0
	}
	return *j.OutputSize
}

// Clone returns a copy that shares no pointers with j.
func (j Job) Clone() Job {
	out := j
	if j.OutputSize != nil {
		v := *j.OutputSize
		out.OutputSize = &v
	}
	out.CreatedAt = cloneTime(j.CreatedAt)
	out.StartedAt = cloneTime(j.StartedAt)
	out.CompletedAt = cloneTime(j.CompletedAt)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
