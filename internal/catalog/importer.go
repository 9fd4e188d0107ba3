package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/noiddea/dash/internal/shared"
)

// ImportFromBranch duplicates every active product of the source branch into
// the target branch. Each product is processed independently: one failure is
// collected and reported without aborting the batch. Imported products always
// start with stock 0 regardless of source stock, and their presentations are
// normalized from either the current or the legacy row shape.
func (s *Service) ImportFromBranch(ctx context.Context, actorID, sourceBranchID, targetBranchID string) (ImportResult, error) {
	if sourceBranchID == "" || targetBranchID == "" {
		return ImportResult{}, fmt.Errorf("catalog: source and target branch ids are required: %w", shared.ErrValidation)
	}
	if sourceBranchID == targetBranchID {
		return ImportResult{}, fmt.Errorf("catalog: cannot import a branch into itself: %w", shared.ErrValidation)
	}

	sourceScope, err := s.resolver.Resolve(ctx, actorID, sourceBranchID)
	if err != nil {
		return ImportResult{}, err
	}
	if err := sourceScope.RequireOwner(); err != nil {
		return ImportResult{}, err
	}
	targetScope, err := s.resolver.Resolve(ctx, actorID, targetBranchID)
	if err != nil {
		return ImportResult{}, err
	}
	if sourceScope.BusinessID != targetScope.BusinessID {
		return ImportResult{}, fmt.Errorf("catalog: branches belong to different businesses: %w", shared.ErrOwnershipMismatch)
	}

	products, err := s.repo.ListActiveProducts(ctx, sourceScope.Branch.BranchID)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	for _, source := range products {
		if err := s.importProduct(ctx, actorID, targetScope.Branch.BranchID, source); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{
				ProductID: source.ID,
				Name:      source.Name,
				Reason:    err.Error(),
			})
			s.logger.Warn("product import failed",
				slog.String("product_id", source.ID),
				slog.Any("error", err))
			continue
		}
		result.Imported++
	}

	s.recordAudit(ctx, actorID, "catalog:import", targetScope.Branch.BranchID, map[string]any{
		"source_branch_id": sourceScope.Branch.BranchID,
		"imported":         result.Imported,
		"failed":           result.Failed,
	})
	return result, nil
}

// importProduct copies one product into the target branch as a single
// transaction: fresh id, stock reset to zero, normalized presentations.
func (s *Service) importProduct(ctx context.Context, actorID, targetBranchID string, source Product) error {
	records, err := s.repo.ListPresentationRecords(ctx, source.ID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	zero := 0.0
	product := source
	product.ID = newID()
	product.BranchID = targetBranchID
	product.Stock = &zero
	product.IsActive = true
	product.CreatedByUserID = actorID
	product.CreatedByBranchID = targetBranchID
	product.CreatedAt = now
	product.UpdatedAt = now

	presentations := make([]Presentation, 0, len(records))
	for _, record := range records {
		variant, units := normalizePresentation(record)
		presentations = append(presentations, Presentation{
			ID:        newID(),
			ProductID: product.ID,
			Variant:   variant,
			Units:     units,
			Price:     record.Price,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	if len(presentations) == 0 {
		unitPrice := product.Price
		presentations = append(presentations, Presentation{
			ID:        newID(),
			ProductID: product.ID,
			Variant:   UnitVariant,
			Units:     1,
			Price:     &unitPrice,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertProduct(ctx, product); err != nil {
			return err
		}
		for _, pres := range presentations {
			if err := tx.InsertPresentation(ctx, pres); err != nil {
				return err
			}
		}
		return nil
	})
}

// normalizePresentation accepts the two historical row shapes: current rows
// carry {variant, units}; legacy rows carry {name, unit} where unit may encode
// a multiplier as free text like "x6".
func normalizePresentation(record PresentationRecord) (string, int) {
	if record.Variant != "" {
		units := record.Units
		if units < 1 {
			units = 1
		}
		return record.Variant, units
	}
	return record.LegacyName, parseLegacyUnits(record.LegacyUnit)
}

// parseLegacyUnits extracts the trailing integer after "x", defaulting to 1
// when unparsable.
func parseLegacyUnits(unit string) int {
	trimmed := strings.TrimSpace(strings.ToLower(unit))
	idx := strings.LastIndex(trimmed, "x")
	if idx < 0 {
		return 1
	}
	units, err := strconv.Atoi(strings.TrimSpace(trimmed[idx+1:]))
	if err != nil || units < 1 {
		return 1
	}
	return units
}
