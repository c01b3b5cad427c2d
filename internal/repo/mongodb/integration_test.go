package mongodb

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/geocoder89/storefront/internal/db"
	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func testDB(t *testing.T) *mongo.Database {
	t.Helper()

	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set; skipping mongo integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, database, err := db.NewMongo(ctx, uri, "storefront_test_"+uuid.NewString()[:8])
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = database.Drop(context.Background())
		_ = client.Disconnect(context.Background())
	})

	require.NoError(t, EnsureIndexes(ctx, database))
	return database
}

func TestStores_Integration(t *testing.T) {
	database := testDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	users := NewUsersRepo(database, nil)
	products := NewProductsRepo(database, users, nil)

	hash, err := security.NewHasher().Hash("secret123")
	require.NoError(t, err)
	u, err := user.New("Ada", "Ada@Example.com", hash)
	require.NoError(t, err)

	owner, err := users.Create(ctx, u)
	require.NoError(t, err)

	dup := owner
	dup.ID = uuid.NewString()
	_, err = users.Create(ctx, dup)
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	got, err := users.GetByEmail(ctx, "ADA@example.com")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, got.ID)

	price, stock, sku := 19.5, 4, "BALL-1"
	p, fe := product.New(product.CreateRequest{
		Name:          "Red ball",
		Description:   "Bouncy",
		Category:      "toys",
		Price:         &price,
		StockQuantity: &stock,
		SKU:           &sku,
	}, owner.ID)
	require.True(t, fe.Empty())

	created, err := products.Create(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Ada", created.CreatedBy.Name)

	clash := p
	clash.ID = uuid.NewString()
	_, err = products.Create(ctx, clash)
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)

	q := product.ListQuery{
		Filter: product.Filter{Search: "ball", InStock: true},
		Page:   1,
		Limit:  10,
		SortBy: product.SortPrice,
	}
	items, err := products.List(ctx, q)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, owner.Email, items[0].CreatedBy.Email)

	total, err := products.Count(ctx, q.Filter)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	updated, err := products.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
		newName := "Blue ball"
		next, fe := product.UpdateRequest{Name: &newName}.Apply(cur)
		if !fe.Empty() {
			return product.Product{}, fe
		}
		return next, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Blue ball", updated.Name)
	assert.Equal(t, 19.5, updated.Price)

	require.NoError(t, products.SoftDelete(ctx, p.ID))
	assert.True(t, errors.Is(products.SoftDelete(ctx, p.ID), product.ErrNotFound))

	_, err = products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, product.ErrNotFound)

	inactive, err := products.GetAnyByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, product.StatusInactive, inactive.Status)

	// the sku stays reserved by the soft-deleted product
	_, err = products.Create(ctx, clash)
	assert.ErrorIs(t, err, product.ErrDuplicateSKU)
}

func TestProductsUpdate_ConcurrentWriterIsNotLost(t *testing.T) {
	database := testDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	products := NewProductsRepo(database, nil, nil)

	price := 10.0
	p, fe := product.New(product.CreateRequest{Name: "Lamp", Category: "home", Price: &price}, uuid.NewString())
	require.True(t, fe.Empty())
	_, err := products.Create(ctx, p)
	require.NoError(t, err)

	calls := 0
	updated, err := products.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
		calls++
		if calls == 1 {
			// another writer lands between our read and our write with the same timestamp
			_, err := products.Update(ctx, p.ID, func(cur product.Product) (product.Product, error) {
				newPrice := 42.0
				next, _ := product.UpdateRequest{Price: &newPrice}.Apply(cur)
				next.UpdatedAt = cur.UpdatedAt
				return next, nil
			})
			require.NoError(t, err)
		}

		name := "Desk lamp"
		next, fe := product.UpdateRequest{Name: &name}.Apply(cur)
		if !fe.Empty() {
			return product.Product{}, fe
		}
		return next, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 2, calls, "the stale merge must be retried")
	assert.Equal(t, "Desk lamp", updated.Name)
	assert.Equal(t, 42.0, updated.Price)

	got, err := products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 42.0, got.Price)
	assert.Equal(t, "Desk lamp", got.Name)
}
