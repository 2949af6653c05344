package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/product-links/internal/config"
	"github.com/spec-kit/product-links/internal/crm"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/events"
	"github.com/spec-kit/product-links/internal/observability"
	"github.com/spec-kit/product-links/internal/repository"
	"github.com/spec-kit/product-links/pkg/pagination"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

// Search modes of the staff product list.
const (
	SearchByID   = "id"
	SearchByName = "name"
)

const (
	minSearchTermLength = 2
	maxSearchResults    = 10
	syncPageSize        = 50
)

var syncSelect = []string{"ID", "NAME", "DESCRIPTION", "PRICE", "CURRENCY_ID", "SORT"}

// ProductCatalog is the CRM side of the product catalogue.
type ProductCatalog interface {
	AddProduct(ctx context.Context, fields crm.ProductFields) (int64, error)
	ListProducts(ctx context.Context, params crm.ListParams) (crm.ListPage, error)
}

// ProductService manages the local catalogue and its CRM counterpart.
type ProductService struct {
	products        repository.ProductRepository
	catalog         ProductCatalog
	dispatcher      events.Dispatcher
	metrics         *observability.Metrics
	logger          *zap.Logger
	syncLimit       int
	defaultCurrency string
	now             func() time.Time
}

// ProductDependencies bundles collaborators for the product service.
type ProductDependencies struct {
	ProductRepo repository.ProductRepository
	Catalog     ProductCatalog
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// ProductListInput describes a staff catalogue query.
type ProductListInput struct {
	SearchType string
	Query      string
	Page       pagination.Params
}

// ImageUpload is a product picture submitted by staff.
type ImageUpload struct {
	FileName string
	Content  []byte
}

// ProductCreateInput describes a product to create in the CRM.
type ProductCreateInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Currency    string
	Image       *ImageUpload
}

// SyncResult counts the outcome of a CRM pull.
type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// NewProductService builds the service.
func NewProductService(cfg config.Config, deps ProductDependencies) *ProductService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.CRM.DefaultCurrency))
	if currency == "" {
		currency = "RUB"
	}
	limit := cfg.CRM.SyncLimit
	if limit <= 0 {
		limit = syncPageSize
	}
	return &ProductService{
		products:        deps.ProductRepo,
		catalog:         deps.Catalog,
		dispatcher:      deps.Dispatcher,
		metrics:         deps.Metrics,
		logger:          logger,
		syncLimit:       limit,
		defaultCurrency: currency,
		now:             time.Now,
	}
}

// List returns a page of active products. An id search with a non-numeric
// query matches nothing.
func (s *ProductService) List(ctx context.Context, input ProductListInput) ([]domain.Product, pagination.Meta, error) {
	page := input.Page.Normalize()
	filter := repository.ProductFilter{
		ActiveOnly: true,
		Limit:      page.Limit(),
		Offset:     page.Offset(),
	}

	query := strings.TrimSpace(input.Query)
	if query != "" {
		switch input.SearchType {
		case SearchByID:
			crmID, err := strconv.ParseInt(query, 10, 64)
			if err != nil {
				return []domain.Product{}, pagination.NewMeta(page, 0), nil
			}
			filter.CRMID = &crmID
		case SearchByName, "":
			filter.NameQuery = &query
		default:
			return nil, pagination.Meta{}, apperrors.NewValidationError("unknown search type",
				map[string]any{"search_type": input.SearchType})
		}
	}

	items, total, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, pagination.NewMeta(page, total), nil
}

// Search backs the staff autocomplete.
func (s *ProductService) Search(ctx context.Context, term string) ([]domain.Product, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < minSearchTermLength {
		return []domain.Product{}, nil
	}
	items, err := s.products.Search(ctx, term, maxSearchResults)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Product{}
	}
	return items, nil
}

// GetActive loads a product that may be shown or linked.
func (s *ProductService) GetActive(ctx context.Context, id int64) (*domain.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"id": id})
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.NewNotFound("product", map[string]any{"id": id})
	}
	return product, nil
}

// Create pushes a product to the CRM and then stores it locally under the
// CRM id, reusing an existing local row for that id.
func (s *ProductService) Create(ctx context.Context, actorID string, input ProductCreateInput) (*domain.Product, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if input.Price.IsNegative() {
		return nil, apperrors.NewValidationError("price must not be negative", nil)
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}

	fields := crm.ProductFields{
		Name:        name,
		Price:       input.Price,
		Currency:    currency,
		Description: strings.TrimSpace(input.Description),
		Sort:        domain.DefaultSortOrder,
	}
	if input.Image != nil && len(input.Image.Content) > 0 {
		mime := mimetype.Detect(input.Image.Content)
		if !strings.HasPrefix(mime.String(), "image/") {
			return nil, apperrors.NewValidationError("image must be a picture",
				map[string]any{"detected": mime.String()})
		}
		fields.Image = &crm.Image{FileName: imageFileName(input.Image.FileName, mime.Extension()), Content: input.Image.Content}
	}

	crmID, err := s.catalog.AddProduct(ctx, fields)
	if err != nil {
		return nil, apperrors.NewDependencyError("crm product creation failed", err)
	}

	product, err := s.products.GetByCRMID(ctx, crmID)
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	product = &domain.Product{
		CRMID:       crmID,
		Name:        name,
		Description: fields.Description,
		Price:       input.Price,
		Currency:    currency,
		SortOrder:   domain.DefaultSortOrder,
		IsActive:    true,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	event := events.NewEvent(events.EventProductCreated, events.StaffActor(actorID), s.now())
	event.ProductID = product.ID
	event.Payload = events.ProductCreatedPayload{CRMID: crmID, Name: name}
	s.publish(ctx, event)
	return product, nil
}

// Sync pulls up to the configured number of CRM products ordered by name
// and upserts them by CRM id.
func (s *ProductService) Sync(ctx context.Context, actorID string) (SyncResult, error) {
	var result SyncResult
	processed := 0
	start := 0

	for processed < s.syncLimit {
		page, err := s.catalog.ListProducts(ctx, crm.ListParams{
			Select: syncSelect,
			Order:  map[string]string{"NAME": "ASC"},
			Start:  start,
		})
		if err != nil {
			return result, apperrors.NewDependencyError("crm product list failed", err)
		}

		for _, item := range page.Items {
			if processed >= s.syncLimit {
				break
			}
			processed++
			outcome, err := s.upsert(ctx, item)
			if err != nil {
				return result, err
			}
			switch outcome {
			case upsertCreated:
				result.Created++
			case upsertUpdated:
				result.Updated++
			default:
				result.Skipped++
			}
		}

		if page.Next == nil || len(page.Items) == 0 || *page.Next <= start {
			break
		}
		start = *page.Next
	}

	s.metrics.RecordSync(result.Created, result.Updated)
	event := events.NewEvent(events.EventProductsSynced, events.StaffActor(actorID), s.now())
	event.Payload = events.ProductsSyncedPayload{Created: result.Created, Updated: result.Updated, Skipped: result.Skipped}
	s.publish(ctx, event)
	return result, nil
}

type upsertOutcome int

const (
	upsertSkipped upsertOutcome = iota
	upsertCreated
	upsertUpdated
)

func (s *ProductService) upsert(ctx context.Context, item crm.Product) (upsertOutcome, error) {
	crmID := int64(item.ID)
	if crmID <= 0 {
		s.logger.Warn("skipping crm product without id", zap.String("name", item.Name))
		return upsertSkipped, nil
	}

	currency := strings.ToUpper(strings.TrimSpace(item.Currency))
	if currency == "" {
		currency = s.defaultCurrency
	}
	sortOrder := int(item.Sort)
	if sortOrder == 0 {
		sortOrder = domain.DefaultSortOrder
	}

	product, err := s.products.GetByCRMID(ctx, crmID)
	switch {
	case err == nil:
		product.Name = item.Name
		product.Description = item.Description
		product.Price = item.Price
		product.Currency = currency
		product.SortOrder = sortOrder
		if err := s.products.Update(ctx, product); err != nil {
			return upsertSkipped, err
		}
		return upsertUpdated, nil
	case errors.Is(err, pgx.ErrNoRows):
		product = &domain.Product{
			CRMID:       crmID,
			Name:        item.Name,
			Description: item.Description,
			Price:       item.Price,
			Currency:    currency,
			SortOrder:   sortOrder,
			IsActive:    true,
		}
		if err := s.products.Create(ctx, product); err != nil {
			return upsertSkipped, err
		}
		return upsertCreated, nil
	default:
		return upsertSkipped, err
	}
}

func (s *ProductService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func imageFileName(name, ext string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "product" + ext
	}
	return name
}
