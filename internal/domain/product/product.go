package product

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/geocoder89/storefront/internal/validation"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("product not found")
	ErrDuplicateSKU = errors.New("product sku already exists")
)

// Status is the product lifecycle. Inactive products are soft deleted.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Owner is the user who created the product, resolved on reads.
type Owner struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Price         float64   `json:"price"`
	Category      string    `json:"category"`
	StockQuantity int       `json:"stockQuantity"`
	InStock       bool      `json:"inStock"`
	SKU           *string   `json:"sku,omitempty"`
	Status        Status    `json:"status"`
	CreatedBy     Owner     `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (p Product) Active() bool { return p.Status == StatusActive }

// MarshalJSON adds the isActive flag clients of the old API read.
func (p Product) MarshalJSON() ([]byte, error) {
	type plain Product

	return json.Marshal(struct {
		plain
		IsActive bool `json:"isActive"`
	}{plain: plain(p), IsActive: p.Active()})
}

type CreateRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	Price         *float64 `json:"price"`
	Category      string   `json:"category"`
	StockQuantity *int     `json:"stockQuantity"`
	InStock       *bool    `json:"inStock"`
	SKU           *string  `json:"sku"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Name          *string  `json:"name"`
	Description   *string  `json:"description"`
	Price         *float64 `json:"price"`
	Category      *string  `json:"category"`
	StockQuantity *int     `json:"stockQuantity"`
	InStock       *bool    `json:"inStock"`
	SKU           *string  `json:"sku"`
}

// New builds an active product owned by ownerID and validates it.
func New(req CreateRequest, ownerID string) (Product, validation.FieldErrors) {
	now := time.Now().UTC()

	p := Product{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Category:    strings.TrimSpace(req.Category),
		SKU:         normalizeSKU(req.SKU),
		Status:      StatusActive,
		CreatedBy:   Owner{ID: ownerID},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var fe validation.FieldErrors

	if req.Price == nil {
		fe.Add("price", "required", "")
	} else {
		p.Price = *req.Price
	}

	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}

	if req.InStock != nil {
		p.InStock = *req.InStock
	} else {
		p.InStock = p.StockQuantity > 0
	}

	fe = append(fe, Validate(p)...)

	return p, fe
}

// Apply merges a partial update onto p and validates the result with the same
// rules used at creation.
func (req UpdateRequest) Apply(p Product) (Product, validation.FieldErrors) {
	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = strings.TrimSpace(*req.Description)
	}
	if req.Price != nil {
		p.Price = *req.Price
	}
	if req.Category != nil {
		p.Category = strings.TrimSpace(*req.Category)
	}
	if req.StockQuantity != nil {
		p.StockQuantity = *req.StockQuantity
	}
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if req.SKU != nil {
		p.SKU = normalizeSKU(req.SKU)
	}

	p.UpdatedAt = time.Now().UTC()

	return p, Validate(p)
}

// Validate checks the field rules every stored product must satisfy.
func Validate(p Product) validation.FieldErrors {
	var fe validation.FieldErrors

	if fe.Required("name", p.Name) {
		fe.MaxLen("name", p.Name, 200)
	}
	fe.MaxLen("description", p.Description, 2000)
	if fe.Required("category", p.Category) {
		fe.MaxLen("category", p.Category, 100)
	}

	if math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		fe.Add("price", "number", "")
	} else {
		fe.NonNegativeFloat("price", p.Price)
	}
	fe.NonNegativeInt("stockQuantity", p.StockQuantity)

	if p.SKU != nil {
		fe.MaxLen("sku", *p.SKU, 64)
	}

	fe.OneOf("status", string(p.Status), string(StatusActive), string(StatusInactive))

	return fe
}

// an empty sku means "no sku" so it never collides with other empty ones
func normalizeSKU(sku *string) *string {
	if sku == nil {
		return nil
	}
	s := strings.TrimSpace(*sku)
	if s == "" {
		return nil
	}
	return &s
}
