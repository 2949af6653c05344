package handlers

import (
	"context"
	"io"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/product-links/internal/api/dto"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/service"
	"github.com/spec-kit/product-links/pkg/pagination"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

const imageFormField = "detail_image"

// ProductManager is the catalogue behaviour used by staff endpoints.
type ProductManager interface {
	List(ctx context.Context, input service.ProductListInput) ([]domain.Product, pagination.Meta, error)
	Search(ctx context.Context, term string) ([]domain.Product, error)
	Create(ctx context.Context, actorID string, input service.ProductCreateInput) (*domain.Product, error)
	Sync(ctx context.Context, actorID string) (service.SyncResult, error)
}

// ProductsHandler exposes staff catalogue endpoints.
type ProductsHandler struct {
	products      ProductManager
	maxImageBytes int64
}

// NewProductsHandler constructs handler.
func NewProductsHandler(products ProductManager, maxImageBytes int64) *ProductsHandler {
	return &ProductsHandler{products: products, maxImageBytes: maxImageBytes}
}

// List handles GET /app/products.
func (h *ProductsHandler) List(c *fiber.Ctx) error {
	var query dto.ProductListQuery
	if err := dto.BindQuery(c, &query); err != nil {
		return err
	}

	items, meta, err := h.products.List(c.UserContext(), service.ProductListInput{
		SearchType: query.SearchType,
		Query:      query.SearchQuery,
		Page:       pagination.ParseParams(query.Page, query.PageSize),
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": dto.NewProductResponses(items),
		"meta": meta,
	})
}

// Search handles GET /app/api/product-search.
func (h *ProductsHandler) Search(c *fiber.Ctx) error {
	items, err := h.products.Search(c.UserContext(), c.Query("q"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"results": dto.NewProductSearchResults(items)})
}

// Create handles POST /app/products.
func (h *ProductsHandler) Create(c *fiber.Ctx) error {
	var req dto.ProductCreateRequest
	if err := dto.BindBody(c, &req); err != nil {
		return err
	}
	price, err := req.ParsedPrice()
	if err != nil {
		return apperrors.NewValidationError("validation failed", map[string]any{"price": err.Error()})
	}

	image, err := h.readImage(c)
	if err != nil {
		return err
	}

	product, err := h.products.Create(c.UserContext(), auth.StaffID(c), service.ProductCreateInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       price,
		Currency:    req.Currency,
		Image:       image,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewProductResponse(product)})
}

// Sync handles POST /app/products/sync.
func (h *ProductsHandler) Sync(c *fiber.Ctx) error {
	result, err := h.products.Sync(c.UserContext(), auth.StaffID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": result})
}

func (h *ProductsHandler) readImage(c *fiber.Ctx) (*service.ImageUpload, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// JSON and urlencoded bodies carry no image.
		return nil, nil
	}
	files := form.File[imageFormField]
	if len(files) == 0 {
		return nil, nil
	}
	header := files[0]
	if h.maxImageBytes > 0 && header.Size > h.maxImageBytes {
		return nil, apperrors.NewValidationError("image too large", map[string]any{"max_bytes": h.maxImageBytes})
	}
	content, err := readMultipartFile(header)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid image upload", map[string]any{"error": err.Error()})
	}
	return &service.ImageUpload{FileName: header.Filename, Content: content}, nil
}

func readMultipartFile(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
