package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductURL(t *testing.T) {
	assert.Equal(t, "https://shop.example.com/product/abc/", ProductURL("https://shop.example.com/", "abc"))
	assert.Equal(t, "http://localhost:8080/product/t0k/", ProductURL("http://localhost:8080", "t0k"))
}

func TestRenderProducesSquarePNG(t *testing.T) {
	r := NewRenderer(200)

	data, err := r.Render(ProductURL("https://shop.example.com", "eyJkYXRhIjp7fX0"))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())
}

func TestRenderRejectsEmptyContent(t *testing.T) {
	_, err := NewRenderer(0).Render("")
	assert.Error(t, err)
	assert.Equal(t, DefaultSize, NewRenderer(-1).Size)
}
