package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const productColumns = `p.id, p.name, p.description, p.price, p.category, p.stock_quantity,
	p.in_stock, p.sku, p.status, p.created_by, COALESCE(u.name, ''), COALESCE(u.email, ''),
	p.created_at, p.updated_at`

const productFrom = ` FROM products p LEFT JOIN users u ON u.id = p.created_by`

// sort keys map to a fixed set of columns, never to caller input
var sortColumns = map[product.SortField]string{
	product.SortCreatedAt:     "p.created_at",
	product.SortUpdatedAt:     "p.updated_at",
	product.SortPrice:         "p.price",
	product.SortName:          "p.name",
	product.SortStockQuantity: "p.stock_quantity",
	product.SortCategory:      "p.category",
}

type ProductsRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewProductsRepo(pool *pgxpool.Pool, prom *observability.Prom) *ProductsRepo {
	return &ProductsRepo{pool: pool, prom: prom}
}

func (r *ProductsRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *ProductsRepo) Create(ctx context.Context, p product.Product) (product.Product, error) {
	err := r.observe("products.create", func() error {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO products (id, name, description, price, category, stock_quantity,
				in_stock, sku, status, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			p.ID, p.Name, p.Description, p.Price, p.Category, p.StockQuantity,
			p.InStock, p.SKU, string(p.Status), p.CreatedBy.ID, p.CreatedAt, p.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return product.Product{}, product.ErrDuplicateSKU
		}
		return product.Product{}, err
	}

	// re-read so the owner comes back resolved
	return r.GetAnyByID(ctx, p.ID)
}

func (r *ProductsRepo) GetByID(ctx context.Context, id string) (product.Product, error) {
	return r.getOne(ctx, "products.get_by_id",
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND p.status = 'active'`, id)
}

// GetAnyByID also returns soft-deleted products.
func (r *ProductsRepo) GetAnyByID(ctx context.Context, id string) (product.Product, error) {
	return r.getOne(ctx, "products.get_any_by_id",
		`SELECT `+productColumns+productFrom+` WHERE p.id = $1`, id)
}

func (r *ProductsRepo) getOne(ctx context.Context, op, query string, args ...any) (product.Product, error) {
	var p product.Product

	err := r.observe(op, func() error {
		return scanProduct(r.pool.QueryRow(ctx, query, args...), &p)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}
	return p, nil
}

func (r *ProductsRepo) List(ctx context.Context, q product.ListQuery) ([]product.Product, error) {
	query, args := listSQL(q)
	out := make([]product.Product, 0, q.Limit)

	err := r.observe("products.list", func() error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p product.Product
			if err := scanProduct(rows, &p); err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProductsRepo) Count(ctx context.Context, f product.Filter) (int, error) {
	query, args := countSQL(f)
	var total int

	err := r.observe("products.count", func() error {
		return r.pool.QueryRow(ctx, query, args...).Scan(&total)
	})

	if err != nil {
		return 0, err
	}
	return total, nil
}

// Update locks the row, merges the change with apply and writes the result in
// one transaction so concurrent partial updates do not lose fields.
func (r *ProductsRepo) Update(ctx context.Context, id string, apply func(product.Product) (product.Product, error)) (product.Product, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return product.Product{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var cur product.Product

	err = r.observe("products.update.lock", func() error {
		return scanProduct(tx.QueryRow(ctx,
			`SELECT `+productColumns+productFrom+` WHERE p.id = $1 AND p.status = 'active' FOR UPDATE OF p`,
			id,
		), &cur)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return product.Product{}, product.ErrNotFound
		}
		return product.Product{}, err
	}

	next, err := apply(cur)
	if err != nil {
		return product.Product{}, err
	}

	next.ID, next.CreatedBy, next.CreatedAt, next.Status = cur.ID, cur.CreatedBy, cur.CreatedAt, cur.Status

	err = r.observe("products.update.write", func() error {
		_, err := tx.Exec(ctx,
			`UPDATE products
			SET name = $2,
				description = $3,
				price = $4,
				category = $5,
				stock_quantity = $6,
				in_stock = $7,
				sku = $8,
				updated_at = $9
			WHERE id = $1`,
			id, next.Name, next.Description, next.Price, next.Category,
			next.StockQuantity, next.InStock, next.SKU, next.UpdatedAt,
		)
		return err
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return product.Product{}, product.ErrDuplicateSKU
		}
		return product.Product{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return product.Product{}, err
	}

	return next, nil
}

func (r *ProductsRepo) SoftDelete(ctx context.Context, id string) error {
	var rows int64

	err := r.observe("products.soft_delete", func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE products SET status = 'inactive', updated_at = NOW()
			WHERE id = $1 AND status = 'active'`,
			id,
		)
		rows = tag.RowsAffected()
		return err
	})

	if err != nil {
		return err
	}

	// missing and already inactive look the same to callers
	if rows == 0 {
		return product.ErrNotFound
	}
	return nil
}

func scanProduct(row pgx.Row, p *product.Product) error {
	var status string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.StockQuantity,
		&p.InStock,
		&p.SKU,
		&status,
		&p.CreatedBy.ID,
		&p.CreatedBy.Name,
		&p.CreatedBy.Email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return err
	}

	p.Status = product.Status(status)
	return nil
}

func whereSQL(f product.Filter) (string, []any) {
	conds := []string{"p.status = 'active'"}
	var args []any

	argsPosition := 1

	if f.Category != "" {
		conds = append(conds, fmt.Sprintf("p.category = $%d", argsPosition))
		args = append(args, f.Category)
		argsPosition++
	}

	if f.MinPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price >= $%d", argsPosition))
		args = append(args, *f.MinPrice)
		argsPosition++
	}

	if f.MaxPrice != nil {
		conds = append(conds, fmt.Sprintf("p.price <= $%d", argsPosition))
		args = append(args, *f.MaxPrice)
		argsPosition++
	}

	if f.InStock {
		conds = append(conds, "p.in_stock = TRUE AND p.stock_quantity > 0")
	}

	// terms are letters and digits only, so joining them is a valid tsquery
	if terms := product.SearchTerms(f.Search); len(terms) > 0 {
		conds = append(conds, fmt.Sprintf("p.search @@ to_tsquery('simple', $%d)", argsPosition))
		args = append(args, strings.Join(terms, " | "))
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

func listSQL(q product.ListQuery) (string, []any) {
	where, args := whereSQL(q.Filter)

	col, ok := sortColumns[q.SortBy]
	if !ok {
		col = sortColumns[product.SortCreatedAt]
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	// id breaks ties so pages are stable
	n := len(args)
	query := `SELECT ` + productColumns + productFrom + where +
		fmt.Sprintf(" ORDER BY %s %s, p.id %s LIMIT $%d OFFSET $%d", col, dir, dir, n+1, n+2)

	return query, append(args, q.Limit, q.Skip())
}

func countSQL(f product.Filter) (string, []any) {
	where, args := whereSQL(f)
	return `SELECT COUNT(*) FROM products p` + where, args
}
