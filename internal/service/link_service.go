package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/product-links/internal/config"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/events"
	"github.com/spec-kit/product-links/internal/links"
	"github.com/spec-kit/product-links/internal/observability"
	"github.com/spec-kit/product-links/internal/qr"
	"github.com/spec-kit/product-links/internal/repository"
	"github.com/spec-kit/product-links/pkg/pagination"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

const invalidLinkMessage = "link invalid or expired"

// LinkService issues public product links and serves their redemption.
type LinkService struct {
	links       repository.LinkRepository
	products    repository.ProductRepository
	issuer      *links.Issuer
	renderer    *qr.Renderer
	baseURL     string
	maxDays     int
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// LinkDependencies bundles collaborators for the link service.
type LinkDependencies struct {
	LinkRepo    repository.LinkRepository
	ProductRepo repository.ProductRepository
	Issuer      *links.Issuer
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// IssuedLink is an audit record together with its public address.
type IssuedLink struct {
	Link    domain.ProductLink
	Product *domain.Product
	URL     string
}

// LinkListEntry is one row of the staff link listing.
type LinkListEntry struct {
	repository.LinkListItem
	URL string
}

// ProductView is what an anonymous visitor sees for a valid token. Link is
// nil when no audit record exists for the token.
type ProductView struct {
	Product *domain.Product
	Link    *domain.ProductLink
}

// NewLinkService builds the service.
func NewLinkService(cfg config.Config, deps LinkDependencies) *LinkService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkService{
		links:       deps.LinkRepo,
		products:    deps.ProductRepo,
		issuer:      deps.Issuer,
		renderer:    qr.NewRenderer(cfg.Links.QRImageSize),
		baseURL:     cfg.App.PublicBaseURL,
		maxDays:     cfg.Links.MaxLifetimeDays,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// PublicURL returns the anonymous page address for token.
func (s *LinkService) PublicURL(token string) string {
	return qr.ProductURL(s.baseURL, token)
}

// Generate issues a view link for an active product. lifetimeDays of zero
// selects the standard lifetime.
func (s *LinkService) Generate(ctx context.Context, actorID string, productID int64, lifetimeDays int) (*IssuedLink, error) {
	if lifetimeDays < 0 {
		return nil, apperrors.NewValidationError("expires_in_days must not be negative", nil)
	}
	if s.maxDays > 0 && lifetimeDays > s.maxDays {
		return nil, apperrors.NewValidationError("expires_in_days exceeds the allowed maximum",
			map[string]any{"max_days": s.maxDays})
	}
	lifetime := time.Duration(lifetimeDays) * 24 * time.Hour

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("product", map[string]any{"id": productID})
		}
		return nil, err
	}
	if !product.IsActive {
		return nil, apperrors.NewValidationError("product is inactive", map[string]any{"id": productID})
	}

	issued, err := s.issuer.IssueWithLifetime(product.ID, lifetime)
	if err != nil {
		return nil, err
	}

	expiresAt := issued.ExpiresAt
	record := domain.ProductLink{
		ProductID:   product.ID,
		SignedToken: issued.Token,
		ExpiresAt:   &expiresAt,
		IsActive:    true,
	}
	if err := s.links.Create(ctx, &record); err != nil {
		return nil, err
	}
	s.metrics.RecordLinkIssued()

	event := events.NewEvent(events.EventLinkIssued, events.StaffActor(actorID), s.now())
	event.ProductID = product.ID
	event.LinkID = record.ID
	event.Payload = events.LinkIssuedPayload{ExpiresAt: expiresAt}
	s.publish(ctx, event)

	return &IssuedLink{Link: record, Product: product, URL: s.PublicURL(record.SignedToken)}, nil
}

// Get loads an issued link with its product.
func (s *LinkService) Get(ctx context.Context, id int64) (*IssuedLink, error) {
	record, err := s.links.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("link", map[string]any{"id": id})
		}
		return nil, err
	}
	product, err := s.products.GetByID(ctx, record.ProductID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return &IssuedLink{Link: *record, Product: product, URL: s.PublicURL(record.SignedToken)}, nil
}

// List returns issued links, newest first.
func (s *LinkService) List(ctx context.Context, params pagination.Params) ([]LinkListEntry, pagination.Meta, error) {
	page := params.Normalize()
	items, total, err := s.links.List(ctx, page.Limit(), page.Offset())
	if err != nil {
		return nil, pagination.Meta{}, err
	}
	entries := make([]LinkListEntry, 0, len(items))
	for _, item := range items {
		entries = append(entries, LinkListEntry{LinkListItem: item, URL: s.PublicURL(item.SignedToken)})
	}
	return entries, pagination.NewMeta(page, total), nil
}

// QRCode renders the public address of link id as a PNG.
func (s *LinkService) QRCode(ctx context.Context, id int64) ([]byte, error) {
	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.renderer.Render(link.URL)
}

// ViewByToken redeems a public token. Every rejected token yields the same
// not-found error; a missing audit record never blocks access.
func (s *LinkService) ViewByToken(ctx context.Context, token, clientIP string) (*ProductView, error) {
	productID, err := s.issuer.Redeem(token)
	if err != nil {
		s.metrics.RecordRedemption(observability.OutcomeRejected)
		return nil, apperrors.NewNotFoundMessage(invalidLinkMessage)
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.metrics.RecordRedemption(observability.OutcomeRejected)
			return nil, apperrors.NewNotFoundMessage("product not found")
		}
		return nil, err
	}
	if !product.IsActive {
		s.metrics.RecordRedemption(observability.OutcomeRejected)
		return nil, apperrors.NewNotFoundMessage("product not found")
	}
	s.metrics.RecordRedemption(observability.OutcomeValid)

	view := &ProductView{Product: product}
	record, err := s.links.GetActiveByToken(ctx, token)
	switch {
	case err == nil:
		at := s.now().UTC()
		event := events.NewEvent(events.EventLinkAccessed, events.Actor{}, at)
		event.ProductID = product.ID
		event.LinkID = record.ID
		event.Payload = events.LinkAccessedPayload{ClientIP: clientIP, AccessedAt: at}
		s.publish(ctx, event)

		record.AccessCount++
		record.LastAccessedAt = &at
		view.Link = record
	case errors.Is(err, pgx.ErrNoRows):
	default:
		s.logger.Warn("link audit lookup failed", zap.Int64("product_id", product.ID), zap.Error(err))
	}
	return view, nil
}

func (s *LinkService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
