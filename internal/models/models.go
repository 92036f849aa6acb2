package models

// JobStatus represents the lifecycle state of a generation record
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusFinished   JobStatus = "finished"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal returns true if the record will not change state again
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusFinished || s == JobStatusFailed
}

// Valid returns true for known statuses
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusProcessing, JobStatusFinished, JobStatusFailed:
		return true
	}
	return false
}
