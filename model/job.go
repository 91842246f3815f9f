package model

import "time"

// Media operations. Every operation carries a fixed credit cost.
const (
	OpEnhance       = "enhance"
	OpRestore       = "restore"
	OpColorize      = "colorize"
	OpRemoveObject  = "remove-object"
	OpGenerateImage = "generate-image"
	OpGenerateVideo = "generate-video"
	OpGenerateAudio = "generate-audio"
)

// Job lifecycle states. Succeeded, Failed and TimedOut are terminal.
const (
	JobStatusQueued    = "QUEUED"
	JobStatusRunning   = "RUNNING"
	JobStatusSucceeded = "SUCCEEDED"
	JobStatusFailed    = "FAILED"
	JobStatusTimedOut  = "TIMED_OUT"
)

// DefaultJobCost is the observed flat price of every media operation.
const DefaultJobCost int64 = 2

var operationCosts = map[string]int64{
	OpEnhance:       DefaultJobCost,
	OpRestore:       DefaultJobCost,
	OpColorize:      DefaultJobCost,
	OpRemoveObject:  DefaultJobCost,
	OpGenerateImage: DefaultJobCost,
	OpGenerateVideo: DefaultJobCost,
	OpGenerateAudio: DefaultJobCost,
}

// CostFor returns the credit cost of an operation, or 0 for an unknown one.
func CostFor(operation string) int64 {
	return operationCosts[operation]
}

// KnownOperation reports whether the operation name is one we can run.
func KnownOperation(operation string) bool {
	_, ok := operationCosts[operation]
	return ok
}

// JobSpec is the opaque unit-of-work descriptor handed to the job provider.
// It exists only for the duration of one orchestration call; the durable state
// of the run lives on the Job row.
type JobSpec struct {
	Operation string                 `json:"operation"`
	Model     string                 `json:"model"`
	Input     map[string]interface{} `json:"input"`
}

// Job is the durable state of one credit-gated provider run. Status, OutputURL
// and Debited together drive idempotent retry: a job whose output is already
// persisted skips the provider on re-run, and a job already debited is never
// debited again.
type Job struct {
	ID          int64     `json:"-"`
	JobID       string    `json:"job_id"`
	RecordID    string    `json:"record_id"`
	AccountID   string    `json:"account_id"`
	Operation   string    `json:"operation"`
	Cost        int64     `json:"cost"`
	Status      string    `json:"status"`
	ProviderRef string    `json:"-"`
	OutputURL   string    `json:"output_url,omitempty"`
	ErrorCode   string    `json:"error_code,omitempty"`
	Debited     bool      `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Terminal reports whether the job has reached a state polling stops at.
func (j *Job) Terminal() bool {
	switch j.Status {
	case JobStatusSucceeded, JobStatusFailed, JobStatusTimedOut:
		return true
	}
	return false
}

// JobOutcome is returned to the caller once a run fully settles: the durable
// output location and the balance left after the debit.
type JobOutcome struct {
	JobID            string `json:"job_id"`
	RecordID         string `json:"record_id"`
	OutputURL        string `json:"output_url"`
	RemainingBalance int64  `json:"remaining_balance"`
}
