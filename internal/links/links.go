// Package links mints and redeems purpose-scoped capability links on top of
// the signing codec.
package links

import (
	"errors"
	"fmt"
	"time"

	"github.com/spec-kit/product-links/internal/signing"
)

// PurposeProductView scopes tokens that open a single public product page.
const PurposeProductView = "product_view"

const (
	fieldSubjectID = "subject_id"
	fieldPurpose   = "purpose"
)

// ErrInvalidLink is the only failure Redeem reports, whatever the cause.
var ErrInvalidLink = errors.New("link invalid or expired")

var (
	errPurposeMismatch = errors.New("purpose mismatch")
	errMissingSubject  = errors.New("missing subject id")
)

// Link is an issued capability for one subject.
type Link struct {
	SubjectID int64
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer binds a codec to one purpose and a standard lifetime.
type Issuer struct {
	codec    *signing.Codec
	purpose  string
	lifetime time.Duration
}

// NewIssuer returns an issuer for purpose. A non-positive lifetime falls back
// to the codec default.
func NewIssuer(codec *signing.Codec, purpose string, lifetime time.Duration) *Issuer {
	if lifetime <= 0 {
		lifetime = codec.DefaultMaxAge()
	}
	return &Issuer{codec: codec, purpose: purpose, lifetime: lifetime}
}

// NewViewLinkIssuer returns the issuer for public product pages.
func NewViewLinkIssuer(codec *signing.Codec, lifetime time.Duration) *Issuer {
	return NewIssuer(codec, PurposeProductView, lifetime)
}

// Purpose reports the tag embedded in and required from tokens.
func (i *Issuer) Purpose() string {
	return i.purpose
}

// Lifetime reports the standard lifetime of issued links.
func (i *Issuer) Lifetime() time.Duration {
	return i.lifetime
}

// Issue mints a link for subjectID with the standard lifetime.
func (i *Issuer) Issue(subjectID int64) (Link, error) {
	return i.IssueWithLifetime(subjectID, i.lifetime)
}

// IssueWithLifetime mints a link for subjectID valid for lifetime.
func (i *Issuer) IssueWithLifetime(subjectID int64, lifetime time.Duration) (Link, error) {
	if subjectID <= 0 {
		return Link{}, fmt.Errorf("links: subject id must be positive, got %d", subjectID)
	}
	if lifetime <= 0 {
		lifetime = i.lifetime
	}

	token, err := i.codec.IssueToken(signing.Payload{
		fieldSubjectID: subjectID,
		fieldPurpose:   i.purpose,
	}, lifetime)
	if err != nil {
		return Link{}, fmt.Errorf("links: issue token: %w", err)
	}

	return Link{
		SubjectID: subjectID,
		Token:     token.Value,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

// Redeem returns the subject id token authorizes. Tampered, malformed,
// expired and foreign-purpose tokens all yield ErrInvalidLink.
func (i *Issuer) Redeem(token string) (int64, error) {
	id, err := i.redeem(token)
	if err != nil {
		return 0, ErrInvalidLink
	}
	return id, nil
}

func (i *Issuer) redeem(token string) (int64, error) {
	payload, err := i.codec.Redeem(token, 0)
	if err != nil {
		return 0, err
	}
	if purpose, ok := payload.String(fieldPurpose); !ok || purpose != i.purpose {
		return 0, errPurposeMismatch
	}
	id, ok := payload.Int64(fieldSubjectID)
	if !ok || id <= 0 {
		return 0, errMissingSubject
	}
	return id, nil
}
