package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/cases"

	"github.com/noiddea/dash/internal/identity"
	"github.com/noiddea/dash/internal/shared"
)

var nameFolder = cases.Fold()

// TransferStock moves quantity from a product in the source branch to a
// product in the target branch. The destination is resolved by exactly one of
// three strategies: an explicit target product id, a new product to create, or
// a fuzzy match on name/barcode. Insufficient stock is rejected before any
// write, and both sides of the move commit in one transaction.
func (s *Service) TransferStock(ctx context.Context, actorID string, input TransferInput) (TransferResult, error) {
	if err := validateTransferInput(input); err != nil {
		return TransferResult{}, err
	}

	sourceScope, err := s.resolver.Resolve(ctx, actorID, input.SourceBranchID)
	if err != nil {
		return TransferResult{}, err
	}
	if err := sourceScope.RequireOwner(); err != nil {
		return TransferResult{}, err
	}
	targetScope, err := s.resolver.Resolve(ctx, actorID, input.TargetBranchID)
	if err != nil {
		return TransferResult{}, err
	}
	if sourceScope.BusinessID != targetScope.BusinessID {
		return TransferResult{}, fmt.Errorf("catalog: branches belong to different businesses: %w", shared.ErrOwnershipMismatch)
	}

	source, err := s.repo.GetProduct(ctx, input.ProductID)
	if err != nil {
		return TransferResult{}, err
	}
	if source.BranchID != sourceScope.Branch.BranchID || !source.IsActive {
		return TransferResult{}, fmt.Errorf("catalog: product %s not in branch %s: %w", input.ProductID, input.SourceBranchID, shared.ErrNotFound)
	}
	if source.StockOrZero() < input.Quantity {
		return TransferResult{}, fmt.Errorf("catalog: stock %.2f below requested %.2f: %w", source.StockOrZero(), input.Quantity, shared.ErrInsufficientStock)
	}

	switch {
	case input.TargetProductID != "":
		return s.moveToExisting(ctx, actorID, source, input.TargetProductID, targetScope, input.Quantity)
	case input.NewProductName != "":
		if !input.CreateIfNotExists {
			return TransferResult{}, fmt.Errorf("catalog: newProductName requires createIfNotExists: %w", shared.ErrValidation)
		}
		return s.moveToNew(ctx, actorID, source, input.NewProductName, targetScope, input.Quantity)
	default:
		return s.moveToMatch(ctx, actorID, source, targetScope, input.Quantity, input.CreateIfNotExists)
	}
}

func validateTransferInput(input TransferInput) error {
	if input.ProductID == "" || input.SourceBranchID == "" || input.TargetBranchID == "" {
		return fmt.Errorf("catalog: product and branch ids are required: %w", shared.ErrValidation)
	}
	if input.SourceBranchID == input.TargetBranchID {
		return fmt.Errorf("catalog: source and target branch must differ: %w", shared.ErrValidation)
	}
	if input.Quantity <= 0 {
		return fmt.Errorf("catalog: quantity must be positive: %w", shared.ErrValidation)
	}
	if input.TargetProductID != "" && input.NewProductName != "" {
		return fmt.Errorf("catalog: at most one of targetProductId and newProductName may be set: %w", shared.ErrValidation)
	}
	return nil
}

// moveToExisting applies target.stock += qty, source.stock -= qty atomically.
func (s *Service) moveToExisting(ctx context.Context, actorID string, source Product, targetProductID string, targetScope identity.Scope, qty float64) (TransferResult, error) {
	target, err := s.repo.GetProduct(ctx, targetProductID)
	if err != nil {
		return TransferResult{}, err
	}
	if target.BranchID != targetScope.Branch.BranchID {
		return TransferResult{}, fmt.Errorf("catalog: product %s not in branch %s: %w", targetProductID, targetScope.Branch.BranchID, shared.ErrNotFound)
	}

	now := time.Now().UTC()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.AdjustStock(ctx, target.ID, qty, now); err != nil {
			return err
		}
		return tx.AdjustStock(ctx, source.ID, -qty, now)
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.recordAudit(ctx, actorID, "catalog:transfer", source.ID, map[string]any{
		"target_product_id": target.ID,
		"quantity":          qty,
	})
	return TransferResult{SourceProductID: source.ID, TargetProductID: target.ID, Quantity: qty}, nil
}

// moveToNew creates the destination product in the target branch, copying the
// source's commercial fields and presentations, with stock equal to the moved
// quantity. Creation and source deduction commit in one transaction.
func (s *Service) moveToNew(ctx context.Context, actorID string, source Product, name string, targetScope identity.Scope, qty float64) (TransferResult, error) {
	records, err := s.repo.ListPresentationRecords(ctx, source.ID)
	if err != nil {
		return TransferResult{}, err
	}

	now := time.Now().UTC()
	stock := qty
	target := Product{
		ID:                newID(),
		BranchID:          targetScope.Branch.BranchID,
		Name:              name,
		Brand:             source.Brand,
		Barcode:           source.Barcode,
		SKU:               source.SKU,
		Description:       source.Description,
		Cost:              source.Cost,
		Price:             source.Price,
		Stock:             &stock,
		Bonification:      source.Bonification,
		Expiration:        source.Expiration,
		IsActive:          true,
		CreatedByUserID:   actorID,
		CreatedByBranchID: targetScope.Branch.BranchID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	presentations := make([]Presentation, 0, len(records))
	for _, record := range records {
		variant, units := normalizePresentation(record)
		presentations = append(presentations, Presentation{
			ID:        newID(),
			ProductID: target.ID,
			Variant:   variant,
			Units:     units,
			Price:     record.Price,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertProduct(ctx, target); err != nil {
			return err
		}
		for _, pres := range presentations {
			if err := tx.InsertPresentation(ctx, pres); err != nil {
				return err
			}
		}
		return tx.AdjustStock(ctx, source.ID, -qty, now)
	})
	if err != nil {
		return TransferResult{}, err
	}

	s.recordAudit(ctx, actorID, "catalog:transfer", source.ID, map[string]any{
		"target_product_id": target.ID,
		"quantity":          qty,
		"created":           true,
	})
	return TransferResult{SourceProductID: source.ID, TargetProductID: target.ID, Quantity: qty, CreatedProduct: true}, nil
}

// moveToMatch searches the target branch's active products for a barcode
// match, then for a case-folded name match. Ambiguous name matches are
// rejected: the caller must supply an explicit destination id instead of the
// engine silently picking one.
func (s *Service) moveToMatch(ctx context.Context, actorID string, source Product, targetScope identity.Scope, qty float64, createIfNotExists bool) (TransferResult, error) {
	candidates, err := s.repo.ListActiveProducts(ctx, targetScope.Branch.BranchID)
	if err != nil {
		return TransferResult{}, err
	}

	if source.Barcode != "" {
		for _, candidate := range candidates {
			if candidate.Barcode == source.Barcode {
				return s.moveToExisting(ctx, actorID, source, candidate.ID, targetScope, qty)
			}
		}
	}

	folded := nameFolder.String(source.Name)
	var matches []Product
	for _, candidate := range candidates {
		if nameFolder.String(candidate.Name) == folded {
			matches = append(matches, candidate)
		}
	}
	switch {
	case len(matches) > 1:
		return TransferResult{}, fmt.Errorf("catalog: %d products named %q in target branch, supply targetProductId: %w", len(matches), source.Name, shared.ErrValidation)
	case len(matches) == 1:
		return s.moveToExisting(ctx, actorID, source, matches[0].ID, targetScope, qty)
	case createIfNotExists:
		return s.moveToNew(ctx, actorID, source, source.Name, targetScope, qty)
	default:
		return TransferResult{}, fmt.Errorf("catalog: no product matching %q in target branch: %w", source.Name, errors.Join(shared.ErrValidation, shared.ErrNotFound))
	}
}
