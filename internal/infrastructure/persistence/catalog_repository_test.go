package persistence

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maraline/backend/internal/domain/catalog"
	"github.com/maraline/backend/internal/domain/shared"
	"github.com/maraline/backend/internal/domain/shared/valueobject"
)

func mustProduct(t *testing.T, sellerID, categoryID uuid.UUID, name string, price int64, stock int) *catalog.Product {
	t.Helper()
	product, err := catalog.NewProduct(sellerID, categoryID, name, "",
		valueobject.NewMoneyTRY(decimal.NewFromInt(price)), stock)
	require.NoError(t, err)
	return product
}

func TestGormProductRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	sellerID := uuid.New()
	categoryID := uuid.New()

	product := mustProduct(t, sellerID, categoryID, "Hand Soap", 45, 10)
	product.ImageURLs = []string{"https://cdn.example.com/soap-1.jpg"}
	require.NoError(t, repo.Save(ctx, product))

	found, err := repo.FindByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hand Soap", found.Name)
	assert.Equal(t, 10, found.Stock)
	assert.Equal(t, catalog.ProductStatusDraft, found.Status)
	assert.Equal(t, []string{"https://cdn.example.com/soap-1.jpg"}, found.ImageURLs)

	require.NoError(t, found.Publish())
	require.NoError(t, repo.Save(ctx, found))

	published, err := repo.FindAll(ctx, catalog.ProductFilter{
		Filter: shared.DefaultFilter(),
		Status: catalog.ProductStatusPublished,
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, published.Total)
	assert.Equal(t, product.ID, published.Items[0].ID)

	other := mustProduct(t, uuid.New(), categoryID, "Shampoo", 120, 5)
	require.NoError(t, repo.Save(ctx, other))

	bySeller, err := repo.FindBySeller(ctx, sellerID, shared.DefaultFilter())
	require.NoError(t, err)
	require.EqualValues(t, 1, bySeller.Total)
	assert.Equal(t, product.ID, bySeller.Items[0].ID)

	byCategory, err := repo.FindAll(ctx, catalog.ProductFilter{
		Filter:     shared.DefaultFilter(),
		CategoryID: &categoryID,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, byCategory.Total)

	searched, err := repo.FindAll(ctx, catalog.ProductFilter{
		Filter: shared.Filter{Page: 1, PageSize: 20, Search: "shampoo"},
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, searched.Total)
	assert.Equal(t, other.ID, searched.Items[0].ID)

	require.NoError(t, repo.Delete(ctx, product.ID))
	_, err = repo.FindByID(ctx, product.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	assert.ErrorIs(t, repo.Delete(ctx, product.ID), shared.ErrNotFound)
}

func TestGormCategoryRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCategoryRepository(db)
	ctx := context.Background()

	parent, err := catalog.NewCategory("Cosmetics", "cosmetics", nil)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, parent))

	child, err := catalog.NewCategory("Skin Care", "skin-care", &parent.ID)
	require.NoError(t, err)
	require.NoError(t, repo.Save(ctx, child))

	bySlug, err := repo.FindBySlug(ctx, "skin-care")
	require.NoError(t, err)
	assert.Equal(t, child.ID, bySlug.ID)
	require.NotNil(t, bySlug.ParentID)
	assert.Equal(t, parent.ID, *bySlug.ParentID)

	_, err = repo.FindBySlug(ctx, "missing")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Cosmetics", all[0].Name, "categories should come back name-ordered")

	dup, err := catalog.NewCategory("Other Cosmetics", "cosmetics", nil)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)

	parent.Deactivate()
	require.NoError(t, repo.Save(ctx, parent))

	found, err := repo.FindByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.False(t, found.Active)
}

func TestGormProductRepository_Pagination(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	sellerID := uuid.New()
	categoryID := uuid.New()

	for i := 0; i < 5; i++ {
		p := mustProduct(t, sellerID, categoryID, fmt.Sprintf("Product %d", i), 100, 3)
		require.NoError(t, repo.Save(ctx, p))
	}

	page, err := repo.FindBySeller(ctx, sellerID, shared.Filter{Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 5, page.Total)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, 3, page.TotalPages)
}
