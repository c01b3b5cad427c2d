package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// attempts at an optimistic read-merge-write before giving up
const maxUpdateAttempts = 3

var errUpdateConflict = errors.New("product changed concurrently")

var sortFields = map[product.SortField]string{
	product.SortCreatedAt:     "created_at",
	product.SortUpdatedAt:     "updated_at",
	product.SortPrice:         "price",
	product.SortName:          "name",
	product.SortStockQuantity: "stock_quantity",
	product.SortCategory:      "category",
}

type productDoc struct {
	ID            string    `bson:"_id"`
	Name          string    `bson:"name"`
	Description   string    `bson:"description"`
	Price         float64   `bson:"price"`
	Category      string    `bson:"category"`
	StockQuantity int       `bson:"stock_quantity"`
	InStock       bool      `bson:"in_stock"`
	SKU           *string   `bson:"sku,omitempty"`
	Status        string    `bson:"status"`
	CreatedBy     string    `bson:"created_by"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
	// Version grows by one on every write and guards optimistic updates.
	Version       int64     `bson:"version"`
}

func docFromProduct(p product.Product) productDoc {
	return productDoc{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Price:         p.Price,
		Category:      p.Category,
		StockQuantity: p.StockQuantity,
		InStock:       p.InStock,
		SKU:           p.SKU,
		Status:        string(p.Status),
		CreatedBy:     p.CreatedBy.ID,
		// mongo stores milliseconds
		CreatedAt: p.CreatedAt.Truncate(time.Millisecond),
		UpdatedAt: p.UpdatedAt.Truncate(time.Millisecond),
	}
}

func (d productDoc) toDomain() product.Product {
	return product.Product{
		ID:            d.ID,
		Name:          d.Name,
		Description:   d.Description,
		Price:         d.Price,
		Category:      d.Category,
		StockQuantity: d.StockQuantity,
		InStock:       d.InStock,
		SKU:           d.SKU,
		Status:        product.Status(d.Status),
		CreatedBy:     product.Owner{ID: d.CreatedBy},
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
	}
}

type ProductsRepo struct {
	coll  *mongo.Collection
	users *UsersRepo
	prom  *observability.Prom
}

func NewProductsRepo(db *mongo.Database, users *UsersRepo, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{
		coll:  db.Collection(productsCollection),
		users: users,
		prom:  prom,
	}
}

func (r *ProductsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	doc := docFromProduct(p)
	doc.Version = 1

	err := r.observe("products.create", func() error {
		_, err := r.coll.InsertOne(ctx, doc)
		return err
	})

	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return product.Product{}, product.ErrDuplicateSKU
		}
		return product.Product{}, err
	}

	return r.withOwners(ctx, []product.Product{doc.toDomain()})[0], nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	return r.getOne(ctx, "products.get_by_id", bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: string(product.StatusActive)},
	})
}

// GetAnyByID also returns soft-deleted products.
func (r *ProductsRepo) GetAnyByID(ctx context.Context, id string) (product.Product, error) {
	return r.getOne(ctx, "products.get_any_by_id", bson.D{{Key: "_id", Value: id}})
}

func (r *ProductsRepo) getOne(ctx context.Context, op string, filter bson.D) (product.Product, error) {
	doc, err := r.findDoc(ctx, op, filter)
	if err != nil {
		return product.Product{}, err
	}
	return r.withOwners(ctx, []product.Product{doc.toDomain()})[0], nil
}

func (r *ProductsRepo) findDoc(ctx context.Context, op string, filter bson.D) (productDoc, error) {
	var doc productDoc

	err := r.observe(op, func() error {
		return r.coll.FindOne(ctx, filter).Decode(&doc)
	})

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return productDoc{}, product.ErrNotFound
		}
		return productDoc{}, err
	}
	return doc, nil
}

func (r *ProductsRepo) List(ctx context.Context, q product.ListQuery) ([]product.Product, error) {
	opts := options.Find().
		SetSort(sortSpec(q)).
		SetSkip(int64(q.Skip())).
		SetLimit(int64(q.Limit))

	out := make([]product.Product, 0, q.Limit)

	err := r.observe("products.list", func() error {
		cur, err := r.coll.Find(ctx, filterDoc(q.Filter), opts)
		if err != nil {
			return err
		}

		var docs []productDoc
		if err := cur.All(ctx, &docs); err != nil {
			return err
		}
		for _, d := range docs {
			out = append(out, d.toDomain())
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return r.withOwners(ctx, out), nil
}

func (r *ProductsRepo) Count(ctx context.Context, f product.Filter) (int, error) {
	var total int64

	err := r.observe("products.count", func() error {
		var err error
		total, err = r.coll.CountDocuments(ctx, filterDoc(f))
		return err
	})

	if err != nil {
		return 0, err
	}
	return int(total), nil
}

// Update is an optimistic read-merge-write: the replace only matches while the
// stored version is the one that was read, otherwise the merge is retried on
// fresh data.
func (r *ProductsRepo) Update(ctx context.Context, id string, apply func(product.Product) (product.Product, error)) (product.Product, error) {
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		curDoc, err := r.findDoc(ctx, "products.update.read", bson.D{
			{Key: "_id", Value: id},
			{Key: "status", Value: string(product.StatusActive)},
		})
		if err != nil {
			return product.Product{}, err
		}

		cur := curDoc.toDomain()
		next, err := apply(cur)
		if err != nil {
			return product.Product{}, err
		}
		next.ID, next.CreatedBy, next.CreatedAt, next.Status = cur.ID, cur.CreatedBy, cur.CreatedAt, cur.Status

		nextDoc := docFromProduct(next)
		nextDoc.Version = curDoc.Version + 1
		var matched int64

		err = r.observe("products.update.write", func() error {
			res, err := r.coll.ReplaceOne(ctx, updateFilter(id, curDoc.Version), nextDoc)
			if err != nil {
				return err
			}
			matched = res.MatchedCount
			return nil
		})

		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return product.Product{}, product.ErrDuplicateSKU
			}
			return product.Product{}, err
		}

		if matched == 1 {
			return r.withOwners(ctx, []product.Product{nextDoc.toDomain()})[0], nil
		}
	}

	return product.Product{}, fmt.Errorf("update product %s: %w", id, errUpdateConflict)
}

func (r *ProductsRepo) SoftDelete(ctx context.Context, id string) error {
	var matched int64

	err := r.observe("products.soft_delete", func() error {
		res, err := r.coll.UpdateOne(ctx,
			bson.D{
				{Key: "_id", Value: id},
				{Key: "status", Value: string(product.StatusActive)},
			},
			bson.D{
				{Key: "$set", Value: bson.D{
					{Key: "status", Value: string(product.StatusInactive)},
					{Key: "updated_at", Value: time.Now().UTC()},
				}},
				{Key: "$inc", Value: bson.D{{Key: "version", Value: 1}}},
			},
		)
		if err != nil {
			return err
		}
		matched = res.MatchedCount
		return nil
	})

	if err != nil {
		return err
	}
	if matched == 0 {
		return product.ErrNotFound
	}
	return nil
}

// withOwners resolves createdBy for a batch with a single users lookup.
// Owners that cannot be found keep only their id.
func (r *ProductsRepo) withOwners(ctx context.Context, items []product.Product) []product.Product {
	if r.users == nil || len(items) == 0 {
		return items
	}

	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, p := range items {
		if _, ok := seen[p.CreatedBy.ID]; ok {
			continue
		}
		seen[p.CreatedBy.ID] = struct{}{}
		ids = append(ids, p.CreatedBy.ID)
	}

	owners, err := r.users.byIDs(ctx, ids)
	if err != nil {
		return items
	}

	for i, p := range items {
		if u, ok := owners[p.CreatedBy.ID]; ok {
			items[i].CreatedBy = product.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return items
}

// updateFilter matches the active product only while it is still at version.
// Documents written before versioning have no field and read back as 0.
func updateFilter(id string, version int64) bson.D {
	versionCond := bson.E{Key: "version", Value: version}
	if version == 0 {
		versionCond = bson.E{Key: "version", Value: bson.D{{Key: "$exists", Value: false}}}
	}

	return bson.D{
		{Key: "_id", Value: id},
		{Key: "status", Value: string(product.StatusActive)},
		versionCond,
	}
}

func filterDoc(f product.Filter) bson.D {
	filter := bson.D{{Key: "status", Value: string(product.StatusActive)}}

	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}

	if f.MinPrice != nil || f.MaxPrice != nil {
		price := bson.D{}
		if f.MinPrice != nil {
			price = append(price, bson.E{Key: "$gte", Value: *f.MinPrice})
		}
		if f.MaxPrice != nil {
			price = append(price, bson.E{Key: "$lte", Value: *f.MaxPrice})
		}
		filter = append(filter, bson.E{Key: "price", Value: price})
	}

	if f.InStock {
		filter = append(filter,
			bson.E{Key: "in_stock", Value: true},
			bson.E{Key: "stock_quantity", Value: bson.D{{Key: "$gt", Value: 0}}},
		)
	}

	// $text treats space separated terms as "any of"
	if terms := product.SearchTerms(f.Search); len(terms) > 0 {
		filter = append(filter, bson.E{Key: "$text", Value: bson.D{{Key: "$search", Value: strings.Join(terms, " ")}}})
	}

	return filter
}

func sortSpec(q product.ListQuery) bson.D {
	field, ok := sortFields[q.SortBy]
	if !ok {
		field = sortFields[product.SortCreatedAt]
	}

	dir := 1
	if q.Desc {
		dir = -1
	}

	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
