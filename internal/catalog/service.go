package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noiddea/dash/internal/identity"
	"github.com/noiddea/dash/internal/shared"
)

// RepositoryPort abstracts catalog persistence for the service. Reads are
// side-effect-free; single-statement writes go through the dedicated methods;
// every multi-statement write runs inside WithTx.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetProduct(ctx context.Context, id string) (Product, error)
	ListActiveProducts(ctx context.Context, branchID string) ([]Product, error)
	ListPresentations(ctx context.Context, productID string) ([]Presentation, error)
	// ListEditablePresentations returns active presentations excluding the
	// reserved unit variant.
	ListEditablePresentations(ctx context.Context, productID string) ([]Presentation, error)
	// ListPresentationRecords returns raw active rows including legacy columns.
	ListPresentationRecords(ctx context.Context, productID string) ([]PresentationRecord, error)
	// BranchBusiness maps a branch id to its business id, shared.ErrNotFound
	// when no such branch exists.
	BranchBusiness(ctx context.Context, branchID string) (string, error)
	ListProductsMissingUnitPresentation(ctx context.Context) ([]Product, error)

	UpdateProduct(ctx context.Context, id string, patch ProductPatch, now time.Time) error
	SetUnitPresentationPrice(ctx context.Context, productID string, price float64, now time.Time) error
}

// TxRepository exposes the statements available inside a transaction.
type TxRepository interface {
	InsertProduct(ctx context.Context, product Product) error
	InsertPresentation(ctx context.Context, presentation Presentation) error
	UpdatePresentation(ctx context.Context, presentation Presentation) error
	DeletePresentation(ctx context.Context, id string) error
	DeactivateProduct(ctx context.Context, id string, now time.Time) error
	DeactivatePresentations(ctx context.Context, productID string, now time.Time) error
	AdjustStock(ctx context.Context, productID string, delta float64, now time.Time) error
}

// ResolverPort abstracts the identity resolver.
type ResolverPort interface {
	Resolve(ctx context.Context, userID, targetBranchID string) (identity.Scope, error)
	ResolveBusiness(ctx context.Context, userID string) (identity.Scope, error)
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service is the product & inventory consistency engine: it creates, updates,
// soft-deletes, imports and transfers products and their presentations.
type Service struct {
	repo     RepositoryPort
	resolver ResolverPort
	audit    AuditPort
	logger   *slog.Logger
}

// NewService builds Service. audit may be nil.
func NewService(repo RepositoryPort, resolver ResolverPort, audit AuditPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, resolver: resolver, audit: audit, logger: logger}
}

func newID() string {
	return uuid.NewString()
}

// CreateProduct persists a product together with its presentations in one
// atomic write. The mandatory unit presentation is prepended, mirroring the
// product price, before any caller-supplied presentations.
func (s *Service) CreateProduct(ctx context.Context, actorID string, input CreateProductInput) (CreateProductResult, error) {
	if strings.TrimSpace(input.BranchID) == "" {
		return CreateProductResult{}, fmt.Errorf("catalog: target branch id is required: %w", shared.ErrValidation)
	}
	if strings.TrimSpace(input.Name) == "" {
		return CreateProductResult{}, fmt.Errorf("catalog: product name is required: %w", shared.ErrValidation)
	}

	scope, err := s.resolver.Resolve(ctx, actorID, input.BranchID)
	if err != nil {
		return CreateProductResult{}, err
	}
	if err := scope.RequireOwner(); err != nil {
		return CreateProductResult{}, err
	}

	now := time.Now().UTC()
	product := Product{
		ID:                newID(),
		BranchID:          scope.Branch.BranchID,
		Name:              strings.TrimSpace(input.Name),
		Brand:             input.Brand,
		Barcode:           input.Barcode,
		SKU:               input.SKU,
		Description:       input.Description,
		Cost:              input.Cost,
		Price:             input.Price,
		Stock:             input.Stock,
		Bonification:      input.Bonification,
		Expiration:        input.Expiration,
		IsActive:          true,
		CreatedByUserID:   actorID,
		CreatedByBranchID: scope.Branch.BranchID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	presentations := make([]Presentation, 0, len(input.Presentations)+1)
	unitPrice := input.Price
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
	for _, in := range input.Presentations {
		if err := validatePresentationInput(in); err != nil {
			return CreateProductResult{}, err
		}
		presentations = append(presentations, Presentation{
			ID:        newID(),
			ProductID: product.ID,
			Variant:   in.Variant,
			Units:     in.Units,
			Price:     in.Price,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
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
	if err != nil {
		return CreateProductResult{}, err
	}

	s.recordAudit(ctx, actorID, "catalog:create", product.ID, map[string]any{
		"branch_id": product.BranchID,
		"name":      product.Name,
	})
	return CreateProductResult{ID: product.ID, Name: product.Name}, nil
}

// UpdateProduct patches only the supplied fields of a product, always stamping
// the updated timestamp. When the patch carries a price, the reserved unit
// presentation's price is synced as a secondary best-effort statement: its
// failure is logged and surfaced as a warning, never failing the update.
func (s *Service) UpdateProduct(ctx context.Context, actorID, productID string, patch ProductPatch) (UpdateProductResult, error) {
	if productID == "" {
		return UpdateProductResult{}, fmt.Errorf("catalog: product id is required: %w", shared.ErrValidation)
	}
	if patch.Empty() {
		return UpdateProductResult{}, fmt.Errorf("catalog: no fields to update: %w", shared.ErrValidation)
	}

	scope, err := s.resolver.ResolveBusiness(ctx, actorID)
	if err != nil {
		return UpdateProductResult{}, err
	}
	if err := scope.RequireOwner(); err != nil {
		return UpdateProductResult{}, err
	}
	if _, err := s.ownedProduct(ctx, scope, productID); err != nil {
		return UpdateProductResult{}, err
	}

	now := time.Now().UTC()
	if err := s.repo.UpdateProduct(ctx, productID, patch, now); err != nil {
		return UpdateProductResult{}, err
	}

	result := UpdateProductResult{ID: productID}
	if patch.Price != nil {
		if err := s.repo.SetUnitPresentationPrice(ctx, productID, *patch.Price, now); err != nil {
			s.logger.Warn("unit presentation price sync failed",
				slog.String("product_id", productID),
				slog.Any("error", err))
			result.UnitPriceSyncWarning = fmt.Sprintf("unit presentation price not synced: %v", err)
		}
	}

	s.recordAudit(ctx, actorID, "catalog:update", productID, map[string]any{
		"price_changed": patch.Price != nil,
	})
	return result, nil
}

// GetProduct returns one product with its presentations.
func (s *Service) GetProduct(ctx context.Context, actorID, productID string) (Product, []Presentation, error) {
	scope, err := s.resolver.ResolveBusiness(ctx, actorID)
	if err != nil {
		return Product{}, nil, err
	}
	product, err := s.ownedProduct(ctx, scope, productID)
	if err != nil {
		return Product{}, nil, err
	}
	presentations, err := s.repo.ListPresentations(ctx, productID)
	if err != nil {
		return Product{}, nil, err
	}
	return product, presentations, nil
}

// ListProducts returns the active products of a branch.
func (s *Service) ListProducts(ctx context.Context, actorID, branchID string) ([]Product, error) {
	scope, err := s.resolver.Resolve(ctx, actorID, branchID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListActiveProducts(ctx, scope.Branch.BranchID)
}

// ownedProduct loads a product and verifies its owning branch maps to the
// caller's business, directly in flattened mode or via the branches table.
func (s *Service) ownedProduct(ctx context.Context, scope identity.Scope, productID string) (Product, error) {
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		return Product{}, err
	}
	if product.BranchID == scope.BusinessID {
		return product, nil
	}
	businessID, err := s.repo.BranchBusiness(ctx, product.BranchID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Product{}, fmt.Errorf("catalog: product %s: %w", productID, shared.ErrPermissionDenied)
		}
		return Product{}, err
	}
	if businessID != scope.BusinessID {
		return Product{}, fmt.Errorf("catalog: product %s: %w", productID, shared.ErrPermissionDenied)
	}
	return product, nil
}

func validatePresentationInput(in PresentationInput) error {
	if strings.TrimSpace(in.Variant) == "" {
		return fmt.Errorf("catalog: presentation variant is required: %w", shared.ErrValidation)
	}
	if in.Variant == UnitVariant {
		return fmt.Errorf("catalog: variant %q is reserved: %w", UnitVariant, shared.ErrValidation)
	}
	if in.Units < 1 {
		return fmt.Errorf("catalog: presentation units must be >= 1: %w", shared.ErrValidation)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "product",
		EntityID: entityID,
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("audit record failed", slog.String("action", action), slog.Any("error", err))
	}
}
