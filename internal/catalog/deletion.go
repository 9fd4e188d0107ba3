package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/noiddea/dash/internal/shared"
)

// DeleteProduct deactivates one product and cascades to every presentation,
// the unit one included, in a single transaction. Products are never
// physically deleted. Deleting an already-inactive product succeeds silently.
func (s *Service) DeleteProduct(ctx context.Context, actorID, productID string) error {
	if productID == "" {
		return fmt.Errorf("catalog: product id is required: %w", shared.ErrValidation)
	}

	scope, err := s.resolver.ResolveBusiness(ctx, actorID)
	if err != nil {
		return err
	}
	if err := scope.RequireOwner(); err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, scope, productID); err != nil {
		return err
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.DeactivateProduct(ctx, productID, now); err != nil {
			return err
		}
		return tx.DeactivatePresentations(ctx, productID, now)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, actorID, "catalog:delete", productID, nil)
	return nil
}

// DeleteProducts deactivates a batch of products. Authorization is checked
// against the whole set before any write: one foreign id rejects the entire
// batch with zero deletions. On success every product and its presentations
// are deactivated in one transaction.
func (s *Service) DeleteProducts(ctx context.Context, actorID string, productIDs []string) (int, error) {
	if len(productIDs) == 0 {
		return 0, fmt.Errorf("catalog: no product ids supplied: %w", shared.ErrValidation)
	}

	scope, err := s.resolver.ResolveBusiness(ctx, actorID)
	if err != nil {
		return 0, err
	}
	if err := scope.RequireOwner(); err != nil {
		return 0, err
	}
	for _, id := range productIDs {
		if _, err := s.ownedProduct(ctx, scope, id); err != nil {
			return 0, err
		}
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for _, id := range productIDs {
			if err := tx.DeactivateProduct(ctx, id, now); err != nil {
				return err
			}
			if err := tx.DeactivatePresentations(ctx, id, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, id := range productIDs {
		s.recordAudit(ctx, actorID, "catalog:delete", id, map[string]any{"batch": true})
	}
	return len(productIDs), nil
}
