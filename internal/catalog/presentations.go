package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/noiddea/dash/internal/shared"
)

// SyncResult reports what the presentation synchronizer changed.
type SyncResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Deleted  int `json:"deleted"`
}

// SyncPresentations reconciles the desired presentation set of a product
// against the persisted rows. Rows whose id is absent from the desired set are
// deleted, desired entries with an id are updated, entries without one are
// inserted under a fresh id. The reserved unit presentation is never touched.
// Deletes, updates and inserts run in one atomic transaction, so a crash can
// never leave deletions applied without their replacements.
func (s *Service) SyncPresentations(ctx context.Context, actorID, productID string, desired []PresentationInput) (SyncResult, error) {
	if productID == "" {
		return SyncResult{}, fmt.Errorf("catalog: product id is required: %w", shared.ErrValidation)
	}
	for _, in := range desired {
		if err := validatePresentationInput(in); err != nil {
			return SyncResult{}, err
		}
	}

	scope, err := s.resolver.ResolveBusiness(ctx, actorID)
	if err != nil {
		return SyncResult{}, err
	}
	if err := scope.RequireOwner(); err != nil {
		return SyncResult{}, err
	}
	if _, err := s.ownedProduct(ctx, scope, productID); err != nil {
		return SyncResult{}, err
	}

	persisted, err := s.repo.ListEditablePresentations(ctx, productID)
	if err != nil {
		return SyncResult{}, err
	}

	// Every desired id must reference a row of this product. Authorization
	// covers the product only, so an id pointing at another product's row
	// would otherwise slip past the ownership check.
	persistedIDs := make(map[string]struct{}, len(persisted))
	for _, row := range persisted {
		persistedIDs[row.ID] = struct{}{}
	}
	for _, in := range desired {
		if in.ID == "" {
			continue
		}
		if _, ok := persistedIDs[in.ID]; !ok {
			return SyncResult{}, fmt.Errorf("catalog: presentation %s does not belong to product %s: %w", in.ID, productID, shared.ErrNotFound)
		}
	}

	plan := diffPresentations(productID, persisted, desired, time.Now().UTC())

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, id := range plan.toDelete {
			if err := tx.DeletePresentation(ctx, id); err != nil {
				return err
			}
		}
		for _, pres := range plan.toUpdate {
			if err := tx.UpdatePresentation(ctx, pres); err != nil {
				return err
			}
		}
		for _, pres := range plan.toInsert {
			if err := tx.InsertPresentation(ctx, pres); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SyncResult{}, err
	}

	s.recordAudit(ctx, actorID, "catalog:sync_presentations", productID, map[string]any{
		"inserted": len(plan.toInsert),
		"updated":  len(plan.toUpdate),
		"deleted":  len(plan.toDelete),
	})
	return SyncResult{
		Inserted: len(plan.toInsert),
		Updated:  len(plan.toUpdate),
		Deleted:  len(plan.toDelete),
	}, nil
}

type syncPlan struct {
	toDelete []string
	toUpdate []Presentation
	toInsert []Presentation
}

func diffPresentations(productID string, persisted []Presentation, desired []PresentationInput, now time.Time) syncPlan {
	desiredIDs := make(map[string]struct{}, len(desired))
	for _, in := range desired {
		if in.ID != "" {
			desiredIDs[in.ID] = struct{}{}
		}
	}

	var plan syncPlan
	for _, row := range persisted {
		if _, keep := desiredIDs[row.ID]; !keep {
			plan.toDelete = append(plan.toDelete, row.ID)
		}
	}
	for _, in := range desired {
		pres := Presentation{
			ID:        in.ID,
			ProductID: productID,
			Variant:   in.Variant,
			Units:     in.Units,
			Price:     in.Price,
			IsActive:  true,
			UpdatedAt: now,
		}
		if in.ID == "" {
			pres.ID = newID()
			pres.CreatedAt = now
			plan.toInsert = append(plan.toInsert, pres)
		} else {
			plan.toUpdate = append(plan.toUpdate, pres)
		}
	}
	return plan
}
