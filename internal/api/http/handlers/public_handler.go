package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/product-links/internal/api/dto"
	"github.com/spec-kit/product-links/internal/service"
)

// ProductViewer redeems public product tokens.
type ProductViewer interface {
	ViewByToken(ctx context.Context, token, clientIP string) (*service.ProductView, error)
}

// PublicHandler serves anonymous product pages.
type PublicHandler struct {
	viewer ProductViewer
}

// NewPublicHandler constructs handler.
func NewPublicHandler(viewer ProductViewer) *PublicHandler {
	return &PublicHandler{viewer: viewer}
}

// ViewProduct handles GET /product/:token.
func (h *PublicHandler) ViewProduct(c *fiber.Ctx) error {
	view, err := h.viewer.ViewByToken(c.UserContext(), c.Params("token"), c.IP())
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(fiber.Map{"data": dto.NewPublicProductResponse(view.Product, view.Link)})
}
