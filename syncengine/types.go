package syncengine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/mmfieldworks/drillreports_backend/models"
)

// Remote endpoint status vocabulary. One report document per call; the
// remote authority answers with exactly one of these.
const (
	RemoteStatusSuccess  = "success"
	RemoteStatusConflict = "conflict"
	RemoteStatusFailure  = "failure"
)

// SubmitResponse is the parsed reply for a single report submission.
type SubmitResponse struct {
	Status     string          `json:"status"`
	ServerId   string          `json:"server_id,omitempty"`
	ServerData json.RawMessage `json:"server_data,omitempty"`
	Message    string          `json:"message,omitempty"`
}

// Submitter submits one report document to the remote authority.
type Submitter interface {
	SubmitReport(ctx context.Context, record *models.ReportRecord) (*SubmitResponse, error)
}

// SweepResult summarizes one sync pass.
type SweepResult struct {
	Trigger   string `json:"trigger"`
	Attempted int    `json:"attempted"`
	Synced    int    `json:"synced"`
	Failed    int    `json:"failed"`
	Conflicts int    `json:"conflicts"`
	Skipped   int    `json:"skipped"`
	Purged    int64  `json:"purged"`
}

// RecordError is the per-record error projection for the status surface.
type RecordError struct {
	LocalId      string            `json:"local_id"`
	SiteLocation string            `json:"site_location"`
	ReportDate   time.Time         `json:"report_date"`
	Status       models.SyncStatus `json:"status"`
	SyncAttempts int               `json:"sync_attempts"`
	LastError    string            `json:"last_error"`
	LastAttempt  *time.Time        `json:"last_attempt_at"`
}

// StatusResponse is the read-only projection the UI polls.
type StatusResponse struct {
	PendingCount int64         `json:"pending_count"`
	InProgress   bool          `json:"in_progress"`
	LastSyncedAt *time.Time    `json:"last_synced_at"`
	LastSweepAt  *time.Time    `json:"last_sweep_at"`
	Errors       []RecordError `json:"errors"`
}
