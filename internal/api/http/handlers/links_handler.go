package handlers

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/product-links/internal/api/dto"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/service"
	"github.com/spec-kit/product-links/pkg/pagination"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

// LinkManager is the link behaviour used by staff endpoints.
type LinkManager interface {
	Generate(ctx context.Context, actorID string, productID int64, lifetimeDays int) (*service.IssuedLink, error)
	Get(ctx context.Context, id int64) (*service.IssuedLink, error)
	List(ctx context.Context, params pagination.Params) ([]service.LinkListEntry, pagination.Meta, error)
	QRCode(ctx context.Context, id int64) ([]byte, error)
}

// LinksHandler exposes staff link endpoints.
type LinksHandler struct {
	links LinkManager
	now   func() time.Time
}

// NewLinksHandler constructs handler.
func NewLinksHandler(links LinkManager) *LinksHandler {
	return &LinksHandler{links: links, now: time.Now}
}

// Create handles POST /app/links.
func (h *LinksHandler) Create(c *fiber.Ctx) error {
	var req dto.LinkCreateRequest
	if err := dto.BindBody(c, &req); err != nil {
		return err
	}

	issued, err := h.links.Generate(c.UserContext(), auth.StaffID(c), req.ProductID, req.ExpiresInDays)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": dto.NewLinkResponse(issued.Link, issued.Product, issued.URL, h.now()),
	})
}

// List handles GET /app/links.
func (h *LinksHandler) List(c *fiber.Ctx) error {
	entries, meta, err := h.links.List(c.UserContext(), pagination.ParseParams(c.Query("page"), c.Query("page_size")))
	if err != nil {
		return err
	}
	now := h.now()
	out := make([]dto.LinkResponse, 0, len(entries))
	for _, entry := range entries {
		resp := dto.NewLinkResponse(entry.ProductLink, nil, entry.URL, now)
		resp.ProductName = entry.ProductName
		resp.ProductCRMID = entry.ProductCRMID
		out = append(out, resp)
	}
	return c.JSON(fiber.Map{"data": out, "meta": meta})
}

// Get handles GET /app/links/:id.
func (h *LinksHandler) Get(c *fiber.Ctx) error {
	id, err := linkID(c)
	if err != nil {
		return err
	}
	issued, err := h.links.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewLinkResponse(issued.Link, issued.Product, issued.URL, h.now())})
}

// QRCode handles GET /app/links/:id/qr.png.
func (h *LinksHandler) QRCode(c *fiber.Ctx) error {
	id, err := linkID(c)
	if err != nil {
		return err
	}
	png, err := h.links.QRCode(c.UserContext(), id)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "image/png")
	c.Set(fiber.HeaderCacheControl, "private, max-age=300")
	return c.Send(png)
}

func linkID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid link id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}
