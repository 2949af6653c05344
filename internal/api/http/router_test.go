package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/product-links/internal/api/http/handlers"
	"github.com/spec-kit/product-links/internal/auth"
	"github.com/spec-kit/product-links/internal/domain"
	"github.com/spec-kit/product-links/internal/observability"
	"github.com/spec-kit/product-links/internal/service"
	"github.com/spec-kit/product-links/pkg/pagination"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

const goodToken = "good-token"

var chair = &domain.Product{ID: 1, CRMID: 42, Name: "Chair", Price: decimal.RequireFromString("1499.5"), Currency: "RUB", IsActive: true}

type stubViewer struct{}

func (stubViewer) ViewByToken(_ context.Context, token, _ string) (*service.ProductView, error) {
	if token != goodToken {
		return nil, apperrors.NewNotFoundMessage("link invalid or expired")
	}
	return &service.ProductView{Product: chair, Link: &domain.ProductLink{ID: 5, AccessCount: 3}}, nil
}

type stubLimiter struct {
	allowed bool
	err     error
	scopes  []string
}

func (l *stubLimiter) FixedWindowAllow(_ context.Context, scope string, _ int64, _ time.Duration) (bool, int64, error) {
	l.scopes = append(l.scopes, scope)
	return l.allowed, 1, l.err
}

type stubStaff map[string]*domain.StaffMember

func (s stubStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	if staff, ok := s[id]; ok {
		return staff, nil
	}
	return nil, pgx.ErrNoRows
}

type stubAuth struct{ tokens *auth.TokenManager }

func (a stubAuth) LoginStaff(_ context.Context, email, password string) (*domain.StaffMember, domain.AccessToken, error) {
	if email != "admin@example.com" || password != "secret-pass" {
		return nil, domain.AccessToken{}, apperrors.NewUnauthorized("invalid credentials")
	}
	staff := &domain.StaffMember{ID: "admin", Email: email, Role: domain.StaffRoleAdmin, Active: true}
	token, err := a.tokens.GenerateToken(staff)
	return staff, token, err
}

type stubProducts struct {
	created []service.ProductCreateInput
}

func (p *stubProducts) List(context.Context, service.ProductListInput) ([]domain.Product, pagination.Meta, error) {
	return []domain.Product{*chair}, pagination.NewMeta(pagination.Params{}, 1), nil
}

func (p *stubProducts) Search(_ context.Context, term string) ([]domain.Product, error) {
	if len(term) < 2 {
		return []domain.Product{}, nil
	}
	return []domain.Product{*chair}, nil
}

func (p *stubProducts) Create(_ context.Context, _ string, input service.ProductCreateInput) (*domain.Product, error) {
	p.created = append(p.created, input)
	return &domain.Product{ID: 2, CRMID: 99, Name: input.Name, Price: input.Price, Currency: input.Currency, IsActive: true}, nil
}

func (p *stubProducts) Sync(context.Context, string) (service.SyncResult, error) {
	return service.SyncResult{Created: 2, Updated: 1}, nil
}

type stubLinks struct {
	lastActor string
}

func (l *stubLinks) Generate(_ context.Context, actorID string, productID int64, _ int) (*service.IssuedLink, error) {
	l.lastActor = actorID
	if productID != chair.ID {
		return nil, apperrors.NewNotFound("product", nil)
	}
	expires := time.Now().Add(time.Hour)
	return &service.IssuedLink{
		Link:    domain.ProductLink{ID: 7, ProductID: productID, SignedToken: goodToken, ExpiresAt: &expires, IsActive: true},
		Product: chair,
		URL:     "https://shop.example.com/product/" + goodToken + "/",
	}, nil
}

func (l *stubLinks) Get(_ context.Context, id int64) (*service.IssuedLink, error) {
	if id != 7 {
		return nil, apperrors.NewNotFound("link", nil)
	}
	return &service.IssuedLink{Link: domain.ProductLink{ID: 7, ProductID: chair.ID}, Product: chair}, nil
}

func (l *stubLinks) List(context.Context, pagination.Params) ([]service.LinkListEntry, pagination.Meta, error) {
	return nil, pagination.NewMeta(pagination.Params{}, 0), nil
}

func (l *stubLinks) QRCode(_ context.Context, id int64) ([]byte, error) {
	if id != 7 {
		return nil, apperrors.NewNotFound("link", nil)
	}
	return []byte("\x89PNG"), nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type testServer struct {
	app      *fiber.App
	tokens   *auth.TokenManager
	limiter  *stubLimiter
	products *stubProducts
	links    *stubLinks
	staff    stubStaff
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)
	tokens := auth.NewTokenManager("jwt-secret", 10)

	s := &testServer{
		tokens:   tokens,
		limiter:  &stubLimiter{allowed: true},
		products: &stubProducts{},
		links:    &stubLinks{},
		staff: stubStaff{
			"admin":  {ID: "admin", Role: domain.StaffRoleAdmin, Active: true},
			"viewer": {ID: "viewer", Role: domain.StaffRoleViewer, Active: true},
		},
	}

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(logger, metrics)})
	RegisterMiddlewares(app, logger, metrics, time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:          handlers.NewHealthHandler("product-links", "test", map[string]handlers.Pinger{"postgres": stubPinger{}, "redis": stubPinger{err: errors.New("down")}}),
		Auth:            handlers.NewAuthHandler(stubAuth{tokens: tokens}),
		Products:        handlers.NewProductsHandler(s.products, 1<<20),
		Links:           handlers.NewLinksHandler(s.links),
		Public:          handlers.NewPublicHandler(stubViewer{}),
		AuthMiddleware:  auth.NewAuthMiddleware(tokens, s.staff),
		PublicRateLimit: PublicRateLimit(s.limiter, 5, time.Minute, logger),
		Gatherer:        reg,
	})
	s.app = app
	return s
}

func (s *testServer) bearer(t *testing.T, staffID string) string {
	t.Helper()
	token, err := s.tokens.GenerateToken(s.staff[staffID])
	require.NoError(t, err)
	return "Bearer " + token.Token
}

func (s *testServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]any
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &body))
	}
	return resp, body
}

func errorBody(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	e, ok := body["error"].(map[string]any)
	require.True(t, ok, "missing error envelope in %v", body)
	return e
}

func TestPublicProductView(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/product/"+goodToken+"/", nil))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "Chair", data["name"])
	assert.Equal(t, "1499.50", data["price"])
	assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
	require.Len(t, s.limiter.scopes, 1)
	assert.True(t, strings.HasPrefix(s.limiter.scopes[0], "public:"))
}

func TestPublicProductViewRejectsBadToken(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/product/tampered", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	e := errorBody(t, body)
	assert.Equal(t, "NOT_FOUND", e["code"])
	assert.Equal(t, "link invalid or expired", e["message"])
}

func TestPublicRateLimit(t *testing.T) {
	s := newTestServer(t)

	s.limiter.allowed = false
	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/product/"+goodToken, nil))
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", errorBody(t, body)["code"])
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	s.limiter.err = errors.New("redis down")
	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/product/"+goodToken, nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaffLogin(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/auth/staff/login", strings.NewReader(`{"email":"admin@example.com","password":"secret-pass"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	authData := body["data"].(map[string]any)["auth"].(map[string]any)
	assert.NotEmpty(t, authData["token"])

	req = httptest.NewRequest(http.MethodPost, "/auth/staff/login", strings.NewReader(`{"email":"nope","password":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp, body = s.do(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	details := errorBody(t, body)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Contains(t, details, "password")
}

func TestStaffRoutesRequireAuthentication(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/app/links", nil))
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", errorBody(t, body)["code"])
}

func TestCurrentStaff(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/app/me", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "viewer", data["id"])
	assert.Equal(t, "VIEWER", data["role"])

	s.staff["viewer"].Active = false
	req = httptest.NewRequest(http.MethodGet, "/app/me", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreateLink(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/app/links", strings.NewReader(`{"product_id":1,"expires_in_days":30}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := body["data"].(map[string]any)
	assert.Equal(t, "/app/links/7/qr.png", data["qr_code_path"])
	assert.Equal(t, "Chair", data["product_name"])
	assert.Equal(t, "viewer", s.links.lastActor)

	req = httptest.NewRequest(http.MethodPost, "/app/links", strings.NewReader(`{"product_id":0}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body = s.do(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, body)["details"], "product_id")

	req = httptest.NewRequest(http.MethodPost, "/app/links", strings.NewReader(`{"product_id":1,"expires_in_days":213504}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body = s.do(t, req)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, errorBody(t, body)["details"], "expires_in_days")
}

func TestLinkQRCode(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/app/links/7/qr.png", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, _ := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	req = httptest.NewRequest(http.MethodGet, "/app/links/abc", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, _ = s.do(t, req)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestProductEditorsOnly(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/app/products/sync", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", errorBody(t, body)["code"])

	req = httptest.NewRequest(http.MethodPost, "/app/products/sync", nil)
	req.Header.Set("Authorization", s.bearer(t, "admin"))
	resp, body = s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["data"].(map[string]any)["created"])
}

func TestCreateProductMultipart(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("name", "Desk"))
	require.NoError(t, form.WriteField("price", "990.5"))
	require.NoError(t, form.WriteField("currency", "USD"))
	part, err := form.CreateFormFile("detail_image", "desk.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG\r\n\x1a\n"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/app/products", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", s.bearer(t, "admin"))
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "990.50", body["data"].(map[string]any)["price"])

	require.Len(t, s.products.created, 1)
	created := s.products.created[0]
	require.NotNil(t, created.Image)
	assert.Equal(t, "desk.png", created.Image.FileName)
	assert.Equal(t, "USD", created.Currency)
}

func TestProductSearch(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/app/api/product-search?q=ch", nil)
	req.Header.Set("Authorization", s.bearer(t, "viewer"))
	resp, body := s.do(t, req)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "Chair (ID: 42, 1499.50 RUB)", results[0].(map[string]any)["text"])
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	resp, _ := s.do(t, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	details := errorBody(t, body)["details"].(map[string]any)
	assert.Equal(t, "ok", details["postgres"])
	assert.Equal(t, "down", details["redis"])

	resp, _ = s.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", errorBody(t, body)["code"])
}
