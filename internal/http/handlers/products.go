package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/storefront/internal/domain/product"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/geocoder89/storefront/internal/utils"
	"github.com/geocoder89/storefront/internal/validation"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

type ProductsStore interface {
	Create(ctx context.Context, p product.Product) (product.Product, error)
	GetByID(ctx context.Context, id string) (product.Product, error)
	List(ctx context.Context, q product.ListQuery) ([]product.Product, error)
	Count(ctx context.Context, f product.Filter) (int, error)
	Update(ctx context.Context, id string, apply func(product.Product) (product.Product, error)) (product.Product, error)
	SoftDelete(ctx context.Context, id string) error
}

type ProductsHandler struct {
	repo ProductsStore
}

func NewProductsHandler(repo ProductsStore) *ProductsHandler {
	return &ProductsHandler{repo: repo}
}

// List fetches the requested page and the total count at the same time.
func (h *ProductsHandler) List(ctx *gin.Context) {
	q, fe := product.ParseListParams(ctx.Request.URL.Query())
	if !fe.Empty() {
		RespondBadRequest(ctx, "Invalid query parameters", gin.H{"fields": fe})
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	var (
		items []product.Product
		total int
	)

	g, gctx := errgroup.WithContext(cctx)

	g.Go(func() error {
		var err error
		items, err = h.repo.List(gctx, q)
		return err
	})

	g.Go(func() error {
		var err error
		total, err = h.repo.Count(gctx, q.Filter)
		return err
	})

	if err := g.Wait(); err != nil {
		RespondInternal(ctx, "Error fetching products", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       items,
		"pagination": product.NewPagination(q, len(items), total),
	})
}

func (h *ProductsHandler) Create(ctx *gin.Context) {
	var req product.CreateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	ownerID, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Access denied. No token provided")
		return
	}

	p, fe := product.New(req, ownerID)
	if !fe.Empty() {
		RespondValidation(ctx, fe)
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	created, err := h.repo.Create(cctx, p)
	if err != nil {
		if errors.Is(err, product.ErrDuplicateSKU) {
			RespondConflict(ctx, "duplicate_sku", "Product with this SKU already exists")
			return
		}
		RespondInternal(ctx, "Error creating this product", err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Product created successfully",
		"data":    created,
	})
}

func (h *ProductsHandler) GetByID(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "Invalid Product ID")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	p, err := h.repo.GetByID(cctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			RespondNotFound(ctx, "Product not found")
			return
		}
		RespondInternal(ctx, "Error fetching product", err)
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, gin.H{
		"success": true,
		"message": "Product found",
		"data":    p,
	})
}

// Update merges the supplied fields onto the stored product and validates the
// merged result with the creation rules.
func (h *ProductsHandler) Update(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "Invalid product id")
		return
	}

	var req product.UpdateRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	updated, err := h.repo.Update(cctx, id, func(cur product.Product) (product.Product, error) {
		next, fe := req.Apply(cur)
		if !fe.Empty() {
			return product.Product{}, fe
		}
		return next, nil
	})

	if err != nil {
		var fe validation.FieldErrors

		switch {
		case errors.As(err, &fe):
			RespondValidation(ctx, fe)
		case errors.Is(err, product.ErrNotFound):
			RespondNotFound(ctx, "Product not found")
		case errors.Is(err, product.ErrDuplicateSKU):
			RespondConflict(ctx, "duplicate_sku", "Product with this SKU already exists")
		default:
			RespondInternal(ctx, "Error updating products", err)
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Product updated successfully",
		"data":    updated,
	})
}

// Delete is a soft delete: the product turns inactive and disappears from reads.
func (h *ProductsHandler) Delete(ctx *gin.Context) {
	id := ctx.Param("id")

	if !utils.IsUUID(id) {
		RespondInvalidID(ctx, "Invalid product id")
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	err := h.repo.SoftDelete(cctx, id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			RespondNotFound(ctx, "Product not found")
			return
		}
		RespondInternal(ctx, "Error deleting product", err)
		return
	}

	ctx.Status(http.StatusNoContent)
}
