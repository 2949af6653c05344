package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/product-links/internal/config"
	"github.com/spec-kit/product-links/internal/links"
	"github.com/spec-kit/product-links/internal/signing"
	apperrors "github.com/spec-kit/product-links/pkg/util/errorutil"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{PublicBaseURL: "https://shop.example.com"},
		Auth: config.AuthConfig{
			JWTSecret:             "jwt-secret",
			AccessTokenTTLMinutes: 30,
			BcryptCost:            4,
		},
		Links: config.LinksConfig{
			SigningSecret:       "link-secret",
			SigningSalt:         "test",
			DefaultLifetimeDays: 365,
			MaxLifetimeDays:     730,
			QRImageSize:         128,
		},
		CRM: config.CRMConfig{SyncLimit: 50, DefaultCurrency: "RUB"},
	}
}

func newTestIssuer(t *testing.T, clock *testClock) *links.Issuer {
	t.Helper()
	cfg := testConfig()
	codec, err := signing.NewCodec(signing.Config{
		Secret:        []byte(cfg.Links.SigningSecret),
		Salt:          cfg.Links.SigningSalt,
		DefaultMaxAge: cfg.Links.DefaultLifetime(),
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return links.NewViewLinkIssuer(codec, cfg.Links.DefaultLifetime())
}

func requireDomainStatus(t *testing.T, err error, status int) *apperrors.DomainError {
	t.Helper()
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, status, domainErr.HTTPStatus, "unexpected error %v", err)
	return domainErr
}

