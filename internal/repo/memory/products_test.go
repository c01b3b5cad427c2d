package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func newProduct(t *testing.T, ownerID, name, category string, price float64, stock int, sku *string) product.Product {
	t.Helper()

	p, fe := product.New(product.CreateRequest{
		Name:          name,
		Category:      category,
		Price:         ptr(price),
		StockQuantity: ptr(stock),
		SKU:           sku,
	}, ownerID)
	require.True(t, fe.Empty(), fe.Error())
	return p
}

func setup(t *testing.T) (*ProductsRepo, string) {
	t.Helper()

	users := NewUsersRepo()
	owner, err := users.Create(context.Background(), newUser(t, "Ada", "ada@example.com"))
	require.NoError(t, err)

	return NewProductsRepo(users), owner.ID
}

func TestProductsRepo_CreateResolvesOwner(t *testing.T) {
	ctx := context.Background()
	repo, ownerID := setup(t)

	p, err := repo.Create(ctx, newProduct(t, ownerID, "Lamp", "home", 25, 3, nil))
	require.NoError(t, err)
	assert.Equal(t, product.Owner{ID: ownerID, Name: "Ada", Email: "ada@example.com"}, p.CreatedBy)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Ada", got.CreatedBy.Name)
}

func TestProductsRepo_DanglingOwnerKeepsID(t *testing.T) {
	ctx := context.Background()
	users := NewUsersRepo()
	repo := NewProductsRepo(users)

	p, err := repo.Create(ctx, newProduct(t, "0d7c3a52-39a4-4c43-9d38-5a3b1f1d5e10", "Lamp", "home", 25, 3, nil))
	require.NoError(t, err)
	assert.Equal(t, product.Owner{ID: "0d7c3a52-39a4-4c43-9d38-5a3b1f1d5e10"}, p.CreatedBy)
}

func TestProductsRepo_SKUUniqueAcrossInactive(t *testing.T) {
	ctx := context.Background()
	repo, ownerID := setup(t)

	first, err := repo.Create(ctx, newProduct(t, ownerID, "Lamp", "home", 25, 3, ptr("LAMP-1")))
	require.NoError(t, err)

	_, err = repo.Create(ctx, newProduct(t, ownerID, "Other", "home", 5, 1, ptr("LAMP-1")))
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)

	require.NoError(t, repo.SoftDelete(ctx, first.ID))

	_, err = repo.Create(ctx, newProduct(t, ownerID, "Other", "home", 5, 1, ptr("LAMP-1")))
	assert.ErrorIs(t, err, product.ErrDuplicateSKU, "a soft-deleted product still owns its sku")

	// products without a sku never collide
	_, err = repo.Create(ctx, newProduct(t, ownerID, "A", "home", 5, 1, nil))
	require.NoError(t, err)
	_, err = repo.Create(ctx, newProduct(t, ownerID, "B", "home", 5, 1, nil))
	require.NoError(t, err)
}

func TestProductsRepo_SoftDelete(t *testing.T) {
	ctx := context.Background()
	repo, ownerID := setup(t)

	p, err := repo.Create(ctx, newProduct(t, ownerID, "Lamp", "home", 25, 3, nil))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDelete(ctx, p.ID))

	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)

	inactive, err := repo.GetAnyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, product.StatusInactive, inactive.Status)

	assert.ErrorIs(t, repo.SoftDelete(ctx, p.ID), product.ErrNotFound, "already inactive")
	assert.ErrorIs(t, repo.SoftDelete(ctx, "missing"), product.ErrNotFound)

	_, err = repo.Update(ctx, p.ID, func(p product.Product) (product.Product, error) { return p, nil })
	assert.ErrorIs(t, err, product.ErrNotFound, "inactive products cannot be updated")

	n, err := repo.Count(ctx, product.Filter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestProductsRepo_Update(t *testing.T) {
	ctx := context.Background()
	repo, ownerID := setup(t)

	p, err := repo.Create(ctx, newProduct(t, ownerID, "Lamp", "home", 25, 3, ptr("LAMP-1")))
	require.NoError(t, err)
	other, err := repo.Create(ctx, newProduct(t, ownerID, "Desk", "home", 90, 1, ptr("DESK-1")))
	require.NoError(t, err)

	updated, err := repo.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
		next, fe := product.UpdateRequest{Price: ptr(30.0)}.Apply(cur)
		if !fe.Empty() {
			return product.Product{}, fe
		}
		return next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 30.0, updated.Price)
	assert.Equal(t, "Lamp", updated.Name)
	assert.Equal(t, "Ada", updated.CreatedBy.Name)

	_, err = repo.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
		next, _ := product.UpdateRequest{SKU: other.SKU}.Apply(cur)
		return next, nil
	})
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)

	_, err = repo.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
		next, fe := product.UpdateRequest{Price: ptr(-1.0)}.Apply(cur)
		if !fe.Empty() {
			return product.Product{}, fe
		}
		return next, nil
	})
	var fe validation.FieldErrors
	require.True(t, errors.As(err, &fe))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, got.Price, "a rejected update leaves the record untouched")
}

func TestProductsRepo_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo, ownerID := setup(t)

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		p := newProduct(t, ownerID, fmt.Sprintf("Item %02d", i), "toys", float64(i), i%3, nil)
		p.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err := repo.Create(ctx, p)
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, newProduct(t, ownerID, "Chair", "home", 40, 2, nil))
	require.NoError(t, err)

	q := product.ListQuery{
		Filter: product.Filter{Category: "toys"},
		Page:   3,
		Limit:  10,
		SortBy: product.SortCreatedAt,
		Desc:   true,
	}

	page, err := repo.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, page, 5)
	assert.Equal(t, "Item 04", page[0].Name)
	assert.Equal(t, "Item 00", page[4].Name)

	total, err := repo.Count(ctx, q.Filter)
	require.NoError(t, err)
	assert.Equal(t, 25, total)

	pg := product.NewPagination(q, len(page), total)
	assert.Equal(t, 3, pg.TotalPages)
	assert.False(t, pg.HasNextPage)
	assert.True(t, pg.HasPrevPage)

	q.Page = 4
	empty, err := repo.List(ctx, q)
	require.NoError(t, err)
	assert.Empty(t, empty)

	inStock, err := repo.Count(ctx, product.Filter{Category: "toys", InStock: true})
	require.NoError(t, err)
	assert.Equal(t, 16, inStock)

	priced, err := repo.Count(ctx, product.Filter{MinPrice: ptr(10.0), MaxPrice: ptr(20.0)})
	require.NoError(t, err)
	assert.Equal(t, 11, priced)
}
