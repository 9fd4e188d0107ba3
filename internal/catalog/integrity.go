package catalog

import (
	"context"
	"log/slog"
	"time"
)

// RepairUnitPresentations re-creates the reserved unit presentation for every
// active product missing one, restoring the invariant that each product
// carries exactly one active unit row mirroring its price. Returns the number
// of repaired products.
func (s *Service) RepairUnitPresentations(ctx context.Context) (int, error) {
	products, err := s.repo.ListProductsMissingUnitPresentation(ctx)
	if err != nil {
		return 0, err
	}

	repaired := 0
	for _, product := range products {
		now := time.Now().UTC()
		price := product.Price
		pres := Presentation{
			ID:        newID(),
			ProductID: product.ID,
			Variant:   UnitVariant,
			Units:     1,
			Price:     &price,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			return tx.InsertPresentation(ctx, pres)
		})
		if err != nil {
			s.logger.Warn("unit presentation repair failed",
				slog.String("product_id", product.ID),
				slog.Any("error", err))
			continue
		}
		repaired++
	}
	return repaired, nil
}
