package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultSortOrder mirrors the CRM default for new products.
const DefaultSortOrder = 500

// Product is the local copy of a CRM catalogue product.
type Product struct {
	ID          int64
	CRMID       int64
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	PhotoURL    *string
	SortOrder   int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
