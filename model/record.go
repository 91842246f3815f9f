package model

import "time"

const (
	RecordKindImage = "image"
	RecordKindVideo = "video"

	RecordStatusUploaded   = "uploaded"
	RecordStatusProcessing = "processing"
	RecordStatusCompleted  = "completed"
)

// AssetRecord pairs an uploaded (or generated-from-nothing) asset with its
// processed output. OutputURL is set exactly once, by the job orchestrator,
// when a job against the record completes.
type AssetRecord struct {
	ID          int64      `json:"-"`
	RecordID    string     `json:"record_id"`
	AccountID   string     `json:"account_id"`
	Kind        string     `json:"kind"`
	OriginalURL string     `json:"original_url"`
	OutputURL   string     `json:"output_url,omitempty"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Completed reports whether the record already carries a durable output.
func (r *AssetRecord) Completed() bool {
	return r.OutputURL != ""
}

// OwnedBy reports whether the record belongs to the given account.
func (r *AssetRecord) OwnedBy(accountID string) bool {
	return r.AccountID == accountID
}
