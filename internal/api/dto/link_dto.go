package dto

import (
	"strconv"
	"time"

	"github.com/spec-kit/product-links/internal/domain"
)

// LinkCreateRequest asks for a public link to a product.
type LinkCreateRequest struct {
	ProductID     int64 `json:"product_id" validate:"required,gt=0"`
	ExpiresInDays int   `json:"expires_in_days" validate:"gte=0,lte=36500"`
}

// LinkResponse is the staff view of an issued link.
type LinkResponse struct {
	ID             int64      `json:"id"`
	ProductID      int64      `json:"product_id"`
	ProductName    string     `json:"product_name,omitempty"`
	ProductCRMID   int64      `json:"product_crm_id,omitempty"`
	URL            string     `json:"url"`
	QRCodePath     string     `json:"qr_code_path"`
	AccessCount    int        `json:"access_count"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	IsActive       bool       `json:"is_active"`
	Expired        bool       `json:"expired"`
}

// NewLinkResponse maps an audit record. product may be nil.
func NewLinkResponse(link domain.ProductLink, product *domain.Product, url string, now time.Time) LinkResponse {
	resp := LinkResponse{
		ID:             link.ID,
		ProductID:      link.ProductID,
		URL:            url,
		QRCodePath:     QRCodePath(link.ID),
		AccessCount:    link.AccessCount,
		LastAccessedAt: link.LastAccessedAt,
		CreatedAt:      link.CreatedAt,
		ExpiresAt:      link.ExpiresAt,
		IsActive:       link.IsActive,
		Expired:        link.IsExpired(now),
	}
	if product != nil {
		resp.ProductName = product.Name
		resp.ProductCRMID = product.CRMID
	}
	return resp
}

// QRCodePath is the staff route serving a link's QR image.
func QRCodePath(id int64) string {
	return "/app/links/" + strconv.FormatInt(id, 10) + "/qr.png"
}
