package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/noiddea/dash/internal/catalog"
)

// CatalogTasks binds catalog background jobs to the catalog service.
type CatalogTasks struct {
	service *catalog.Service
	logger  *slog.Logger
}

// NewCatalogTasks constructs CatalogTasks.
func NewCatalogTasks(service *catalog.Service, logger *slog.Logger) *CatalogTasks {
	return &CatalogTasks{service: service, logger: logger}
}

// HandleImportBranch processes TaskCatalogImport tasks. Per-product failures
// are part of the import result, not task failures; only infrastructure
// errors trigger a retry.
func (t *CatalogTasks) HandleImportBranch(ctx context.Context, task *asynq.Task) error {
	var payload ImportBranchPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	result, err := t.service.ImportFromBranch(ctx, payload.ActorID, payload.SourceBranchID, payload.TargetBranchID)
	if err != nil {
		t.logger.Error("queued import failed",
			slog.String("source_branch_id", payload.SourceBranchID),
			slog.String("target_branch_id", payload.TargetBranchID),
			slog.Any("error", err))
		return err
	}

	t.logger.Info("queued import finished",
		slog.String("source_branch_id", payload.SourceBranchID),
		slog.String("target_branch_id", payload.TargetBranchID),
		slog.Int("imported", result.Imported),
		slog.Int("failed", result.Failed))
	return nil
}

// HandleIntegrityScan processes TaskCatalogIntegrityScan tasks.
func (t *CatalogTasks) HandleIntegrityScan(ctx context.Context, task *asynq.Task) error {
	var payload IntegrityScanPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	repaired, err := t.service.RepairUnitPresentations(ctx)
	if err != nil {
		t.logger.Error("integrity scan failed", slog.Any("error", err))
		return err
	}
	if repaired > 0 {
		t.logger.Warn("integrity scan repaired unit presentations", slog.Int("repaired", repaired))
	}
	return nil
}
