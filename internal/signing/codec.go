// Package signing issues and redeems compact HMAC-signed, expiring tokens.
//
// A token is base64url(canonical + "." + signature) where canonical is the
// sorted-key JSON envelope {"data":...,"exp":...,"iat":...} and signature is
// the base64url HMAC-SHA256 of canonical. Redemption needs nothing but the
// secret and a clock.
package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultMaxAge is the lifetime applied when Issue is called without one.
const DefaultMaxAge = 365 * 24 * time.Hour

const separator = '.'

var (
	// Strict decoding rejects non-zero trailing bits, so every single
	// character substitution either changes the decoded bytes or fails.
	tokenEncoding     = base64.RawURLEncoding.Strict()
	signatureEncoding = base64.RawURLEncoding
)

// Config carries the process-wide signing parameters.
type Config struct {
	Secret        []byte
	Salt          string
	DefaultMaxAge time.Duration
	Now           func() time.Time
}

// Token is an issued token together with the instants embedded in it.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (t Token) String() string {
	return t.Value
}

// Codec signs and verifies tokens. It is immutable and safe for concurrent use.
type Codec struct {
	key           []byte
	defaultMaxAge time.Duration
	now           func() time.Time
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Exp  int64           `json:"exp"`
	Iat  int64           `json:"iat"`
}

type receivedEnvelope struct {
	Data json.RawMessage `json:"data"`
	Exp  *int64          `json:"exp"`
	Iat  *int64          `json:"iat"`
}

// NewCodec builds a codec from cfg. An empty secret is rejected.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("signing: secret is required")
	}
	maxAge := cfg.DefaultMaxAge
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Codec{
		key:           deriveKey(cfg.Secret, cfg.Salt),
		defaultMaxAge: maxAge,
		now:           now,
	}, nil
}

// DefaultMaxAge returns the lifetime used when Issue receives none.
func (c *Codec) DefaultMaxAge() time.Duration {
	return c.defaultMaxAge
}

// Issue returns the signed token string for payload. A non-positive maxAge
// selects the codec default.
func (c *Codec) Issue(payload Payload, maxAge time.Duration) (string, error) {
	token, err := c.IssueToken(payload, maxAge)
	if err != nil {
		return "", err
	}
	return token.Value, nil
}

// IssueToken is Issue that also reports the embedded issue and expiry instants.
func (c *Codec) IssueToken(payload Payload, maxAge time.Duration) (Token, error) {
	if maxAge <= 0 {
		maxAge = c.defaultMaxAge
	}

	data, err := canonicalize(payload)
	if err != nil {
		return Token{}, err
	}

	issuedAt := time.Unix(c.now().Unix(), 0)
	expiresAt := time.Unix(issuedAt.Add(maxAge).Unix(), 0)

	body, err := json.Marshal(envelope{Data: data, Exp: expiresAt.Unix(), Iat: issuedAt.Unix()})
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}

	sig := c.sign(body)
	raw := make([]byte, 0, len(body)+1+len(sig))
	raw = append(raw, body...)
	raw = append(raw, separator)
	raw = append(raw, sig...)

	return Token{
		Value:     tokenEncoding.EncodeToString(raw),
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Redeem verifies token and returns its payload. Every failure wraps
// ErrInvalidToken. A positive maxAge additionally bounds the time elapsed
// since issuance; the expiry embedded at issue time always applies.
func (c *Codec) Redeem(token string, maxAge time.Duration) (Payload, error) {
	raw, err := tokenEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrMalformedToken
	}

	idx := bytes.LastIndexByte(raw, separator)
	if idx < 0 {
		return nil, ErrMalformedToken
	}
	body, sig := raw[:idx], raw[idx+1:]

	if !hmac.Equal(sig, c.sign(body)) {
		return nil, ErrSignatureMismatch
	}

	var env receivedEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, ErrMalformedToken
	}
	if env.Exp == nil || env.Iat == nil || len(env.Data) == 0 {
		return nil, ErrMalformedToken
	}

	payload, err := decodePayload(env.Data)
	if err != nil {
		return nil, ErrMalformedToken
	}

	now := c.now()
	if now.After(time.Unix(*env.Exp, 0)) {
		return nil, ErrExpired
	}
	if maxAge > 0 && now.Sub(time.Unix(*env.Iat, 0)) > maxAge {
		return nil, ErrExpired
	}
	return payload, nil
}

func (c *Codec) sign(body []byte) []byte {
	mac := hmac.New(sha256.New, c.key)
	mac.Write(body)
	sum := mac.Sum(nil)
	out := make([]byte, signatureEncoding.EncodedLen(len(sum)))
	signatureEncoding.Encode(out, sum)
	return out
}

func deriveKey(secret []byte, salt string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte("signing-key:" + salt))
	return mac.Sum(nil)
}

// canonicalize normalises payload through JSON so that nested structs and
// maps alike come out with sorted keys and identical bytes.
func canonicalize(payload Payload) ([]byte, error) {
	if payload == nil {
		payload = Payload{}
	}
	first, err := json.Marshal(markWholeFloats(map[string]any(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}
	normalized, err := decodeObject(first)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnserializablePayload, err)
	}
	return out, nil
}

// markWholeFloats rewrites integral floats inside maps and slices as number
// literals with a fractional part, so they decode back as float64 and not
// int64. The caller's values are not modified.
func markWholeFloats(v any) any {
	switch t := v.(type) {
	case Payload:
		return markWholeFloats(map[string]any(t))
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = markWholeFloats(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = markWholeFloats(inner)
		}
		return out
	case float32:
		return wholeFloatLiteral(float64(t), v)
	case float64:
		return wholeFloatLiteral(t, v)
	default:
		return v
	}
}

func wholeFloatLiteral(f float64, orig any) any {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) >= 1e21 {
		return orig
	}
	return json.Number(strconv.FormatFloat(f, 'f', 1, 64))
}

func decodePayload(data []byte) (Payload, error) {
	m, err := decodeObject(data)
	if err != nil {
		return nil, err
	}
	for k, v := range m {
		m[k] = normalize(v)
	}
	return Payload(m), nil
}

// decodeObject decodes a single JSON object keeping numbers as literals.
func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errors.New("payload is not an object")
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("trailing data after payload")
	}
	return m, nil
}

func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, inner := range t {
			t[k] = normalize(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalize(inner)
		}
		return t
	case json.Number:
		if !strings.ContainsAny(t.String(), ".eE") {
			if i, err := t.Int64(); err == nil {
				return i
			}
		}
		f, _ := t.Float64()
		return f
	default:
		return v
	}
}
