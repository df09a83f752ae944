package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "go-image-enhancer/internal/errors"
)

func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8((x + y) * 255 / (w + h))
			img.Set(x, y, color.RGBA{v, v, 255 - v, 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestLoad_PNG(t *testing.T) {
	data := encodePNG(t, gradient(40, 30))

	img, err := NewLoader().Load(Raw{Data: data, MediaType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, "image/png", img.MediaType)
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, 40, img.Width)
	assert.Equal(t, 30, img.Height)
	assert.Len(t, img.Digest, 64)
	assert.NotEmpty(t, img.Fingerprint)
	assert.NotNil(t, img.Decoded)
}

func TestLoad_JPEGSniffed(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, gradient(16, 16), nil))

	img, err := NewLoader().Load(Raw{Data: buf.Bytes()})
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", img.MediaType)
	assert.Equal(t, "jpeg", img.Format)
}

func TestLoad_Errors(t *testing.T) {
	loader := NewLoader()

	_, err := loader.Load(Raw{Data: []byte("GIF89a..."), MediaType: "image/gif"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnsupportedMedia), "got %v", err)

	_, err = loader.Load(Raw{Data: []byte("not really a png"), MediaType: "image/png"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction), "got %v", err)

	_, err = loader.Load(Raw{Data: nil, MediaType: "image/png"})
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeExtraction), "got %v", err)
}

func TestLoad_DigestIsStable(t *testing.T) {
	data := encodePNG(t, gradient(20, 20))
	loader := NewLoader()

	a, err := loader.Load(Raw{Data: data, MediaType: "image/png"})
	require.NoError(t, err)
	b, err := loader.Load(Raw{Data: data, MediaType: "image/png"})
	require.NoError(t, err)

	assert.Equal(t, a.Digest, b.Digest)
	assert.Equal(t, 0, Distance(a, b))
	assert.Equal(t, -1, Distance(a, nil))
}
