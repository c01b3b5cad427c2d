package memory

import (
	"context"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/domain/user"
)

// OwnerLookup resolves the createdBy reference on reads.
type OwnerLookup interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type ProductsRepo struct {
	mu     sync.RWMutex
	items  map[string]product.Product
	owners OwnerLookup
}

func NewProductsRepo(owners OwnerLookup) *ProductsRepo {
	return &ProductsRepo{
		items:  make(map[string]product.Product),
		owners: owners,
	}
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	r.mu.Lock()
	if r.skuTaken(p.SKU, p.ID) {
		r.mu.Unlock()
		return product.Product{}, product.ErrDuplicateSKU
	}
	r.items[p.ID] = p
	r.mu.Unlock()

	return r.withOwner(ctx, p), nil
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	p, err := r.GetAnyByID(ctx, id)
	if err != nil {
		return product.Product{}, err
	}
	if !p.Active() {
		return product.Product{}, product.ErrNotFound
	}
	return p, nil
}

// GetAnyByID also returns soft-deleted products.
func (r *ProductsRepo) GetAnyByID(ctx context.Context, id string) (product.Product, error) {
	r.mu.RLock()
	p, ok := r.items[id]
	r.mu.RUnlock()

	if !ok {
		return product.Product{}, product.ErrNotFound
	}
	return r.withOwner(ctx, p), nil
}

func (r *ProductsRepo) List(ctx context.Context, q product.ListQuery) ([]product.Product, error) {
	matched := r.matching(q.Filter)
	q.Sort(matched)

	skip := q.Skip()
	if skip >= len(matched) {
		return []product.Product{}, nil
	}

	end := skip + q.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]product.Product, 0, end-skip)
	for _, p := range matched[skip:end] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page = append(page, r.withOwner(ctx, p))
	}
	return page, nil
}

func (r *ProductsRepo) Count(_ context.Context, f product.Filter) (int, error) {
	return len(r.matching(f)), nil
}

func (r *ProductsRepo) Update(ctx context.Context, id string, apply func(product.Product) (product.Product, error)) (product.Product, error) {
	r.mu.Lock()

	cur, ok := r.items[id]
	if !ok || !cur.Active() {
		r.mu.Unlock()
		return product.Product{}, product.ErrNotFound
	}

	next, err := apply(cur)
	if err != nil {
		r.mu.Unlock()
		return product.Product{}, err
	}

	// identity and lifecycle are not editable through an update
	next.ID, next.CreatedBy, next.CreatedAt, next.Status = cur.ID, cur.CreatedBy, cur.CreatedAt, cur.Status

	if r.skuTaken(next.SKU, id) {
		r.mu.Unlock()
		return product.Product{}, product.ErrDuplicateSKU
	}

	r.items[id] = next
	r.mu.Unlock()

	return r.withOwner(ctx, next), nil
}

func (r *ProductsRepo) SoftDelete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok || !p.Active() {
		return product.ErrNotFound
	}

	p.Status = product.StatusInactive
	p.UpdatedAt = time.Now().UTC()
	r.items[id] = p

	return nil
}

func (r *ProductsRepo) matching(f product.Filter) []product.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]product.Product, 0, len(r.items))
	for _, p := range r.items {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// callers hold r.mu
func (r *ProductsRepo) skuTaken(sku *string, exceptID string) bool {
	if sku == nil {
		return false
	}
	for id, p := range r.items {
		if id != exceptID && p.SKU != nil && *p.SKU == *sku {
			return true
		}
	}
	return false
}

// an owner that cannot be resolved leaves only the id on the reference
func (r *ProductsRepo) withOwner(ctx context.Context, p product.Product) product.Product {
	if r.owners == nil {
		return p
	}

	u, err := r.owners.GetByID(ctx, p.CreatedBy.ID)
	if err != nil {
		p.CreatedBy = product.Owner{ID: p.CreatedBy.ID}
		return p
	}

	p.CreatedBy = product.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	return p
}
