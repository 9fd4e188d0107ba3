package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/internal/identity"
	"github.com/noiddea/dash/internal/shared"
)

// memRepo is an in-memory RepositoryPort used across the catalog tests.
type memRepo struct {
	products      map[string]Product
	presentations map[string]Presentation
	presOrder     []string
	branches      map[string]string // branch id -> business id
	legacyRecords map[string][]PresentationRecord

	failUnitPriceSync bool
	failInsertNames   map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		products:      make(map[string]Product),
		presentations: make(map[string]Presentation),
		branches:      make(map[string]string),
		legacyRecords: make(map[string][]PresentationRecord),
	}
}

type memTx struct {
	repo *memRepo
}

func (r *memRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memTx{repo: r})
}

func (r *memRepo) GetProduct(_ context.Context, id string) (Product, error) {
	product, ok := r.products[id]
	if !ok {
		return Product{}, fmt.Errorf("catalog: product %s: %w", id, shared.ErrNotFound)
	}
	return product, nil
}

func (r *memRepo) ListActiveProducts(_ context.Context, branchID string) ([]Product, error) {
	var products []Product
	for _, product := range r.products {
		if product.BranchID == branchID && product.IsActive {
			products = append(products, product)
		}
	}
	return products, nil
}

func (r *memRepo) ListPresentations(_ context.Context, productID string) ([]Presentation, error) {
	return r.presentationsOf(productID, false), nil
}

func (r *memRepo) ListEditablePresentations(_ context.Context, productID string) ([]Presentation, error) {
	return r.presentationsOf(productID, true), nil
}

func (r *memRepo) presentationsOf(productID string, excludeUnit bool) []Presentation {
	var result []Presentation
	for _, id := range r.presOrder {
		pres, ok := r.presentations[id]
		if !ok || pres.ProductID != productID || !pres.IsActive {
			continue
		}
		if excludeUnit && pres.Variant == UnitVariant {
			continue
		}
		result = append(result, pres)
	}
	return result
}

func (r *memRepo) ListPresentationRecords(_ context.Context, productID string) ([]PresentationRecord, error) {
	var records []PresentationRecord
	for _, pres := range r.presentationsOf(productID, false) {
		records = append(records, PresentationRecord{
			ID:      pres.ID,
			Variant: pres.Variant,
			Units:   pres.Units,
			Price:   pres.Price,
		})
	}
	records = append(records, r.legacyRecords[productID]...)
	return records, nil
}

func (r *memRepo) BranchBusiness(_ context.Context, branchID string) (string, error) {
	businessID, ok := r.branches[branchID]
	if !ok {
		return "", fmt.Errorf("catalog: branch %s: %w", branchID, shared.ErrNotFound)
	}
	return businessID, nil
}

func (r *memRepo) ListProductsMissingUnitPresentation(_ context.Context) ([]Product, error) {
	var missing []Product
	for _, product := range r.products {
		if !product.IsActive {
			continue
		}
		hasUnit := false
		for _, pres := range r.presentationsOf(product.ID, false) {
			if pres.Variant == UnitVariant {
				hasUnit = true
				break
			}
		}
		if !hasUnit {
			missing = append(missing, product)
		}
	}
	return missing, nil
}

func (r *memRepo) UpdateProduct(_ context.Context, id string, patch ProductPatch, now time.Time) error {
	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("catalog: product %s: %w", id, shared.ErrNotFound)
	}
	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Brand != nil {
		product.Brand = *patch.Brand
	}
	if patch.Barcode != nil {
		product.Barcode = *patch.Barcode
	}
	if patch.SKU != nil {
		product.SKU = *patch.SKU
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Cost != nil {
		product.Cost = *patch.Cost
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		stock := *patch.Stock
		product.Stock = &stock
	}
	if patch.Bonification != nil {
		product.Bonification = *patch.Bonification
	}
	if patch.Expiration != nil {
		expiration := *patch.Expiration
		product.Expiration = &expiration
	}
	product.UpdatedAt = now
	r.products[id] = product
	return nil
}

func (r *memRepo) SetUnitPresentationPrice(_ context.Context, productID string, price float64, now time.Time) error {
	if r.failUnitPriceSync {
		return errors.New("unit presentation sync exploded")
	}
	for id, pres := range r.presentations {
		if pres.ProductID == productID && pres.Variant == UnitVariant && pres.IsActive {
			p := price
			pres.Price = &p
			pres.UpdatedAt = now
			r.presentations[id] = pres
			return nil
		}
	}
	return fmt.Errorf("catalog: unit presentation of %s: %w", productID, shared.ErrNotFound)
}

func (tx *memTx) InsertProduct(_ context.Context, product Product) error {
	if tx.repo.failInsertNames[product.Name] {
		return errors.New("insert rejected")
	}
	tx.repo.products[product.ID] = product
	return nil
}

func (tx *memTx) InsertPresentation(_ context.Context, pres Presentation) error {
	tx.repo.presentations[pres.ID] = pres
	tx.repo.presOrder = append(tx.repo.presOrder, pres.ID)
	return nil
}

func (tx *memTx) UpdatePresentation(_ context.Context, pres Presentation) error {
	existing, ok := tx.repo.presentations[pres.ID]
	if !ok || existing.ProductID != pres.ProductID || existing.Variant == UnitVariant {
		return fmt.Errorf("catalog: presentation %s: %w", pres.ID, shared.ErrNotFound)
	}
	pres.CreatedAt = existing.CreatedAt
	pres.IsActive = existing.IsActive
	tx.repo.presentations[pres.ID] = pres
	return nil
}

func (tx *memTx) DeletePresentation(_ context.Context, id string) error {
	if pres, ok := tx.repo.presentations[id]; ok && pres.Variant != UnitVariant {
		delete(tx.repo.presentations, id)
	}
	return nil
}

func (tx *memTx) DeactivateProduct(_ context.Context, id string, now time.Time) error {
	product, ok := tx.repo.products[id]
	if !ok {
		return nil
	}
	product.IsActive = false
	product.UpdatedAt = now
	tx.repo.products[id] = product
	return nil
}

func (tx *memTx) DeactivatePresentations(_ context.Context, productID string, now time.Time) error {
	for id, pres := range tx.repo.presentations {
		if pres.ProductID == productID {
			pres.IsActive = false
			pres.UpdatedAt = now
			tx.repo.presentations[id] = pres
		}
	}
	return nil
}

func (tx *memTx) AdjustStock(_ context.Context, productID string, delta float64, now time.Time) error {
	product, ok := tx.repo.products[productID]
	if !ok {
		return fmt.Errorf("catalog: product %s: %w", productID, shared.ErrNotFound)
	}
	stock := product.StockOrZero() + delta
	product.Stock = &stock
	product.UpdatedAt = now
	tx.repo.products[productID] = product
	return nil
}

// memAffiliations backs the real identity resolver in tests.
type memAffiliations struct {
	owners   map[string]string
	cashiers map[string]string
	branches map[string]identity.Branch
}

func (m *memAffiliations) FindOwnerBusiness(_ context.Context, userID string) (string, error) {
	if businessID, ok := m.owners[userID]; ok {
		return businessID, nil
	}
	return "", fmt.Errorf("identity: owner affiliation for %s: %w", userID, shared.ErrNotFound)
}

func (m *memAffiliations) FindCashierBusiness(_ context.Context, userID string) (string, error) {
	if businessID, ok := m.cashiers[userID]; ok {
		return businessID, nil
	}
	return "", fmt.Errorf("identity: cashier affiliation for %s: %w", userID, shared.ErrNotFound)
}

func (m *memAffiliations) GetBranch(_ context.Context, branchID string) (identity.Branch, error) {
	if branch, ok := m.branches[branchID]; ok {
		return branch, nil
	}
	return identity.Branch{}, fmt.Errorf("identity: branch %s: %w", branchID, shared.ErrNotFound)
}

// testEnv bundles a service over in-memory storage with one business, two
// branches and one owner.
type testEnv struct {
	repo    *memRepo
	service *Service
}

const (
	testOwner    = "owner-1"
	testCashier  = "cashier-1"
	testBusiness = "biz-1"
	testBranchX  = "branch-x"
	testBranchY  = "branch-y"
)

func newTestEnv() *testEnv {
	repo := newMemRepo()
	repo.branches[testBranchX] = testBusiness
	repo.branches[testBranchY] = testBusiness

	affiliations := &memAffiliations{
		owners:   map[string]string{testOwner: testBusiness},
		cashiers: map[string]string{testCashier: testBusiness},
		branches: map[string]identity.Branch{
			testBranchX: {ID: testBranchX, BusinessID: testBusiness},
			testBranchY: {ID: testBranchY, BusinessID: testBusiness},
		},
	}
	resolver := identity.NewService(affiliations)

	return &testEnv{
		repo:    repo,
		service: NewService(repo, resolver, nil, nil),
	}
}

func (e *testEnv) mustCreate(t *testing.T, input CreateProductInput) Product {
	t.Helper()
	result, err := e.service.CreateProduct(context.Background(), testOwner, input)
	require.NoError(t, err)
	return e.repo.products[result.ID]
}

func floatPtr(f float64) *float64 { return &f }

func TestCreateProductCreatesUnitPresentation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	result, err := env.service.CreateProduct(ctx, testOwner, CreateProductInput{
		BranchID: testBranchX,
		Name:     "Cafe Molido",
		Price:    12.5,
		Cost:     8,
		Stock:    floatPtr(10),
		Presentations: []PresentationInput{
			{Variant: "pack", Units: 6, Price: floatPtr(60)},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.ID)
	require.Equal(t, "Cafe Molido", result.Name)

	presentations, err := env.repo.ListPresentations(ctx, result.ID)
	require.NoError(t, err)
	require.Len(t, presentations, 2)

	var units []Presentation
	for _, pres := range presentations {
		if pres.Variant == UnitVariant {
			units = append(units, pres)
		}
	}
	require.Len(t, units, 1, "exactly one unit presentation")
	require.Equal(t, 1, units[0].Units)
	require.NotNil(t, units[0].Price)
	require.Equal(t, 12.5, *units[0].Price)
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.CreateProduct(ctx, testOwner, CreateProductInput{Name: "sin sucursal"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = env.service.CreateProduct(ctx, testOwner, CreateProductInput{BranchID: testBranchX})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = env.service.CreateProduct(ctx, testOwner, CreateProductInput{
		BranchID:      testBranchX,
		Name:          "reservada",
		Presentations: []PresentationInput{{Variant: UnitVariant, Units: 1}},
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestCreateProductRequiresOwner(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	_, err := env.service.CreateProduct(ctx, "", CreateProductInput{BranchID: testBranchX, Name: "x"})
	require.ErrorIs(t, err, shared.ErrNotAuthenticated)

	_, err = env.service.CreateProduct(ctx, testCashier, CreateProductInput{BranchID: testBranchX, Name: "x"})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestCreateProductFlattenedMode(t *testing.T) {
	env := newTestEnv()

	product := env.mustCreate(t, CreateProductInput{BranchID: testBusiness, Name: "legacy"})
	require.Equal(t, testBusiness, product.BranchID)
}

func TestUpdateProductPatchesOnlySuppliedFields(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	product := env.mustCreate(t, CreateProductInput{
		BranchID: testBranchX,
		Name:     "Azucar",
		Brand:    "Dulce",
		Price:    3,
	})

	_, err := env.service.UpdateProduct(ctx, testOwner, product.ID, ProductPatch{
		Price: floatPtr(4.5),
	})
	require.NoError(t, err)

	updated := env.repo.products[product.ID]
	require.Equal(t, 4.5, updated.Price)
	require.Equal(t, "Azucar", updated.Name)
	require.Equal(t, "Dulce", updated.Brand)

	// price patch syncs the unit presentation
	presentations, err := env.repo.ListPresentations(ctx, product.ID)
	require.NoError(t, err)
	require.Len(t, presentations, 1)
	require.Equal(t, UnitVariant, presentations[0].Variant)
	require.Equal(t, 4.5, *presentations[0].Price)
}

func TestUpdateProductEmptyPatchFails(t *testing.T) {
	env := newTestEnv()

	product := env.mustCreate(t, CreateProductInput{BranchID: testBranchX, Name: "Sal"})

	_, err := env.service.UpdateProduct(context.Background(), testOwner, product.ID, ProductPatch{})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateProductSurvivesUnitPriceSyncFailure(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	product := env.mustCreate(t, CreateProductInput{BranchID: testBranchX, Name: "Arroz", Price: 2})
	env.repo.failUnitPriceSync = true

	result, err := env.service.UpdateProduct(ctx, testOwner, product.ID, ProductPatch{Price: floatPtr(2.8)})
	require.NoError(t, err, "primary update must succeed despite secondary failure")
	require.NotEmpty(t, result.UnitPriceSyncWarning)

	updated := env.repo.products[product.ID]
	require.Equal(t, 2.8, updated.Price)

	presentations, err := env.repo.ListPresentations(ctx, product.ID)
	require.NoError(t, err)
	require.Equal(t, 2.0, *presentations[0].Price, "unit price untouched by failed sync")
}

func TestUpdateProductForeignProductDenied(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	env.repo.branches["branch-z"] = "biz-2"
	foreign := Product{ID: "p-foreign", BranchID: "branch-z", Name: "ajeno", IsActive: true}
	env.repo.products[foreign.ID] = foreign

	_, err := env.service.UpdateProduct(ctx, testOwner, foreign.ID, ProductPatch{Price: floatPtr(1)})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
}

func TestRepairUnitPresentations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	broken := Product{ID: "p-broken", BranchID: testBranchX, Name: "roto", Price: 7, IsActive: true}
	env.repo.products[broken.ID] = broken

	repaired, err := env.service.RepairUnitPresentations(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, repaired)

	presentations, err := env.repo.ListPresentations(ctx, broken.ID)
	require.NoError(t, err)
	require.Len(t, presentations, 1)
	require.Equal(t, UnitVariant, presentations[0].Variant)
	require.Equal(t, 7.0, *presentations[0].Price)

	repaired, err = env.service.RepairUnitPresentations(ctx)
	require.NoError(t, err)
	require.Zero(t, repaired)
}
