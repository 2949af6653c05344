// Package qr renders public product URLs as QR code images.
package qr

import (
	"errors"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the PNG edge length used when none is configured.
const DefaultSize = 256

// ProductURL builds the public page address for a signed token.
func ProductURL(baseURL, token string) string {
	return strings.TrimRight(baseURL, "/") + "/product/" + token + "/"
}

// Renderer encodes text into square PNG images.
type Renderer struct {
	Size int
}

// NewRenderer returns a renderer producing size x size images.
func NewRenderer(size int) *Renderer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Renderer{Size: size}
}

// Render returns a PNG encoding content with low error correction.
func (r *Renderer) Render(content string) ([]byte, error) {
	if content == "" {
		return nil, errors.New("qr: empty content")
	}
	code, err := qrcode.New(content, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("qr: encode: %w", err)
	}
	png, err := code.PNG(r.Size)
	if err != nil {
		return nil, fmt.Errorf("qr: render png: %w", err)
	}
	return png, nil
}
