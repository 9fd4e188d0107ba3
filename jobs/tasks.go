package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogImport runs a branch-to-branch catalog import off the request
	// path; large source branches make the synchronous call unpleasant.
	TaskCatalogImport = "catalog:import_branch"
	// TaskCatalogIntegrityScan re-creates missing unit presentations.
	TaskCatalogIntegrityScan = "catalog:integrity_scan"
)

// ImportBranchPayload identifies a queued catalog import.
type ImportBranchPayload struct {
	ActorID        string `json:"actor_id"`
	SourceBranchID string `json:"source_branch_id"`
	TargetBranchID string `json:"target_branch_id"`
}

// NewImportBranchTask constructs an Asynq task for a catalog import.
func NewImportBranchTask(payload ImportBranchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogImport, data, asynq.Queue(QueueDefault)), nil
}

// IntegrityScanPayload carries scheduling metadata.
type IntegrityScanPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewIntegrityScanTask constructs an Asynq task for the nightly catalog scan.
func NewIntegrityScanTask(at time.Time) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogIntegrityScan, data, asynq.Queue(QueueDefault)), nil
}
