package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spec-kit/product-links/internal/domain"
)

// ProductListQuery filters the staff catalogue.
type ProductListQuery struct {
	SearchType  string `query:"search_type" validate:"omitempty,oneof=id name"`
	SearchQuery string `query:"search_query" validate:"max=255"`
	Page        string `query:"page"`
	PageSize    string `query:"page_size"`
}

// ProductCreateRequest is the multipart form that creates a CRM product.
// The picture travels as the detail_image file part.
type ProductCreateRequest struct {
	Name        string `json:"name" form:"name" validate:"required,max=255"`
	Price       string `json:"price" form:"price" validate:"required,numeric"`
	Currency    string `json:"currency" form:"currency" validate:"omitempty,oneof=RUB USD EUR"`
	Description string `json:"description" form:"description" validate:"max=5000"`
}

// ParsedPrice returns Price as a decimal with two fraction digits.
func (r ProductCreateRequest) ParsedPrice() (decimal.Decimal, error) {
	price, err := decimal.NewFromString(r.Price)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if price.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("price must not be negative")
	}
	return price.Round(2), nil
}

// ProductResponse is the JSON view of a product.
type ProductResponse struct {
	ID          int64     `json:"id"`
	CRMID       int64     `json:"crm_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Currency    string    `json:"currency"`
	PhotoURL    *string   `json:"photo_url,omitempty"`
	SortOrder   int       `json:"sort_order"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewProductResponse maps a product.
func NewProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		CRMID:       p.CRMID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		PhotoURL:    p.PhotoURL,
		SortOrder:   p.SortOrder,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// NewProductResponses maps a product slice.
func NewProductResponses(items []domain.Product) []ProductResponse {
	out := make([]ProductResponse, 0, len(items))
	for i := range items {
		out = append(out, NewProductResponse(&items[i]))
	}
	return out
}

// ProductSearchResult is one autocomplete suggestion.
type ProductSearchResult struct {
	ID    int64  `json:"id"`
	CRMID int64  `json:"crm_id"`
	Name  string `json:"name"`
	Price string `json:"price"`
	Text  string `json:"text"`
}

// NewProductSearchResults maps autocomplete suggestions.
func NewProductSearchResults(items []domain.Product) []ProductSearchResult {
	out := make([]ProductSearchResult, 0, len(items))
	for _, p := range items {
		price := p.Price.StringFixed(2)
		out = append(out, ProductSearchResult{
			ID:    p.ID,
			CRMID: p.CRMID,
			Name:  p.Name,
			Price: price,
			Text:  fmt.Sprintf("%s (ID: %d, %s %s)", p.Name, p.CRMID, price, p.Currency),
		})
	}
	return out
}

// PublicProductResponse is what an anonymous link holder sees.
type PublicProductResponse struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       string  `json:"price"`
	Currency    string  `json:"currency"`
	PhotoURL    *string `json:"photo_url,omitempty"`
	AccessCount *int    `json:"access_count,omitempty"`
}

// NewPublicProductResponse maps the product behind a redeemed link.
func NewPublicProductResponse(p *domain.Product, link *domain.ProductLink) PublicProductResponse {
	resp := PublicProductResponse{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Currency:    p.Currency,
		PhotoURL:    p.PhotoURL,
	}
	if link != nil {
		count := link.AccessCount
		resp.AccessCount = &count
	}
	return resp
}
