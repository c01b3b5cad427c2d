package product

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/geocoder89/storefront/internal/validation"
)

const (
	DefaultPage  = 1
	DefaultLimit = 12
	MaxLimit     = 100

	// MaxOffset caps page*limit so every store gets an offset it accepts.
	MaxOffset = math.MaxInt32
)

// SortField is a whitelisted sort key. Stores map it to their own column/field.
type SortField string

const (
	SortCreatedAt     SortField = "createdAt"
	SortUpdatedAt     SortField = "updatedAt"
	SortPrice         SortField = "price"
	SortName          SortField = "name"
	SortStockQuantity SortField = "stockQuantity"
	SortCategory      SortField = "category"
)

var sortFields = []SortField{SortCreatedAt, SortUpdatedAt, SortPrice, SortName, SortStockQuantity, SortCategory}

// Filter narrows a listing. Only active products are ever listed, so there is
// no status field here.
type Filter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	InStock  bool
	Search   string
}

type ListQuery struct {
	Filter
	Page   int
	Limit  int
	SortBy SortField
	Desc   bool
}

// Skip is the number of matches before the page. It saturates instead of
// overflowing for queries that bypassed ParseListParams.
func (q ListQuery) Skip() int {
	if q.Page <= 1 || q.Limit <= 0 {
		return 0
	}
	if q.Page-1 > math.MaxInt/q.Limit {
		return math.MaxInt
	}
	return (q.Page - 1) * q.Limit
}

// ParseListParams turns query string values into a ListQuery, applying defaults
// and collecting every invalid parameter.
func ParseListParams(v url.Values) (ListQuery, validation.FieldErrors) {
	q := ListQuery{
		Page:   DefaultPage,
		Limit:  DefaultLimit,
		SortBy: SortCreatedAt,
		Desc:   true,
	}

	var fe validation.FieldErrors

	if raw := strings.TrimSpace(v.Get("page")); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fe.Add("page", "integer", "")
		case n < 1:
			fe.Add("page", "min", "1")
		default:
			q.Page = n
		}
	}

	if raw := strings.TrimSpace(v.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			fe.Add("limit", "integer", "")
		case n < 1:
			fe.Add("limit", "min", "1")
		case n > MaxLimit:
			fe.Add("limit", "max", strconv.Itoa(MaxLimit))
		default:
			q.Limit = n
		}
	}

	if maxPage := MaxOffset/q.Limit + 1; q.Page > maxPage {
		fe.Add("page", "max", strconv.Itoa(maxPage))
	}

	q.Category = strings.TrimSpace(v.Get("category"))
	q.MinPrice = parsePrice("minPrice", v.Get("minPrice"), &fe)
	q.MaxPrice = parsePrice("maxPrice", v.Get("maxPrice"), &fe)

	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		fe.Add("minPrice", "lte", "maxPrice")
	}

	if raw := strings.TrimSpace(v.Get("inStock")); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			fe.Add("inStock", "boolean", "")
		} else {
			q.InStock = b
		}
	}

	if raw := strings.TrimSpace(v.Get("sortBy")); raw != "" {
		f, ok := parseSortField(raw)
		if !ok {
			names := make([]string, 0, len(sortFields))
			for _, s := range sortFields {
				names = append(names, string(s))
			}
			fe.Add("sortBy", "oneof", strings.Join(names, " "))
		} else {
			q.SortBy = f
		}
	}

	if raw := strings.ToLower(strings.TrimSpace(v.Get("sortOrder"))); raw != "" {
		fe.OneOf("sortOrder", raw, "asc", "desc")
		q.Desc = raw != "asc"
	}

	q.Search = strings.TrimSpace(v.Get("search"))
	fe.MaxLen("search", q.Search, 200)

	return q, fe
}

func parsePrice(field, raw string, fe *validation.FieldErrors) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		fe.Add(field, "number", "")
		return nil
	}
	if f < 0 {
		fe.Add(field, "gte", "0")
		return nil
	}
	return &f
}

func parseSortField(raw string) (SortField, bool) {
	for _, f := range sortFields {
		if strings.EqualFold(raw, string(f)) {
			return f, true
		}
	}
	return "", false
}

// SearchTerms splits a free-text search into lower-cased word terms. A product
// matches a search when any term matches.
func SearchTerms(search string) []string {
	words := strings.FieldsFunc(strings.ToLower(search), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(words))
	out := make([]string, 0, len(words))

	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

// Matches reports whether an active product satisfies the filter. Stores that
// cannot push the filter down to the database use it directly.
func (f Filter) Matches(p Product) bool {
	if !p.Active() {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.InStock && (!p.InStock || p.StockQuantity <= 0) {
		return false
	}
	if terms := SearchTerms(f.Search); len(terms) > 0 {
		return matchesAnyTerm(p, terms)
	}
	return true
}

func matchesAnyTerm(p Product, terms []string) bool {
	words := make(map[string]struct{})
	for _, w := range SearchTerms(p.Name + " " + p.Description + " " + p.Category) {
		words[w] = struct{}{}
	}

	for _, t := range terms {
		if _, ok := words[t]; ok {
			return true
		}
	}
	return false
}

// Sort orders products in place by the query's sort key, ties broken by id.
func (q ListQuery) Sort(items []Product) {
	sort.SliceStable(items, func(i, j int) bool {
		c := compare(items[i], items[j], q.SortBy)
		if c == 0 {
			c = strings.Compare(items[i].ID, items[j].ID)
		}
		if q.Desc {
			return c > 0
		}
		return c < 0
	})
}

func compare(a, b Product, field SortField) int {
	switch field {
	case SortPrice:
		return cmpFloat(a.Price, b.Price)
	case SortName:
		return strings.Compare(a.Name, b.Name)
	case SortStockQuantity:
		return a.StockQuantity - b.StockQuantity
	case SortCategory:
		return strings.Compare(a.Category, b.Category)
	case SortUpdatedAt:
		return a.UpdatedAt.Compare(b.UpdatedAt)
	default:
		return a.CreatedAt.Compare(b.CreatedAt)
	}
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

type Pagination struct {
	CurrentPage   int  `json:"currentPage"`
	TotalPages    int  `json:"totalPages"`
	TotalProducts int  `json:"totalProducts"`
	Limit         int  `json:"limit"`
	HasNextPage   bool `json:"hasNextPage"`
	HasPrevPage   bool `json:"hasPrevPage"`
}

func NewPagination(q ListQuery, returned, total int) Pagination {
	totalPages := 0
	if q.Limit > 0 {
		totalPages = (total + q.Limit - 1) / q.Limit
	}

	return Pagination{
		CurrentPage:   q.Page,
		TotalPages:    totalPages,
		TotalProducts: total,
		Limit:         q.Limit,
		HasNextPage:   q.Skip()+returned < total,
		HasPrevPage:   q.Page > 1,
	}
}
