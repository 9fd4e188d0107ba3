package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noiddea/dash/internal/shared"
)

func TestDeleteProductCascadesToPresentations(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	product := env.mustCreate(t, CreateProductInput{
		BranchID:      testBranchX,
		Name:          "Detergente",
		Presentations: []PresentationInput{{Variant: "pack", Units: 3, Price: floatPtr(9)}},
	})

	require.NoError(t, env.service.DeleteProduct(ctx, testOwner, product.ID))

	require.False(t, env.repo.products[product.ID].IsActive)
	for _, pres := range env.repo.presentations {
		if pres.ProductID == product.ID {
			require.False(t, pres.IsActive, "presentation %s still active", pres.Variant)
		}
	}
}

func TestDeleteProductIdempotent(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	product := env.mustCreate(t, CreateProductInput{BranchID: testBranchX, Name: "Jabon"})

	require.NoError(t, env.service.DeleteProduct(ctx, testOwner, product.ID))
	require.NoError(t, env.service.DeleteProduct(ctx, testOwner, product.ID))
	require.False(t, env.repo.products[product.ID].IsActive)
}

func TestDeleteProductsAllOrNothing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	owned := env.mustCreate(t, CreateProductInput{BranchID: testBranchX, Name: "Propio"})

	env.repo.branches["branch-z"] = "biz-2"
	foreign := Product{ID: "p-foreign", BranchID: "branch-z", Name: "ajeno", IsActive: true}
	env.repo.products[foreign.ID] = foreign

	deleted, err := env.service.DeleteProducts(ctx, testOwner, []string{owned.ID, foreign.ID})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)
	require.Zero(t, deleted)

	require.True(t, env.repo.products[owned.ID].IsActive, "no partial deletion")
	require.True(t, env.repo.products[foreign.ID].IsActive)
}

func TestDeleteProductsBatch(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	first := env.mustCreate(t, CreateProductInput{BranchID: testBranchX, Name: "Uno"})
	second := env.mustCreate(t, CreateProductInput{BranchID: testBranchY, Name: "Dos"})

	deleted, err := env.service.DeleteProducts(ctx, testOwner, []string{first.ID, second.ID})
	require.NoError(t, err)
	require.Equal(t, 2, deleted)
	require.False(t, env.repo.products[first.ID].IsActive)
	require.False(t, env.repo.products[second.ID].IsActive)

	_, err = env.service.DeleteProducts(ctx, testOwner, nil)
	require.ErrorIs(t, err, shared.ErrValidation)
}
