package slips

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPNG(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}

func TestPrepareDownscales(t *testing.T) {
	out, err := Prepare(testPNG(t, 400, 200), 100)
	require.NoError(t, err)

	img, err := imaging.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	out, err := Prepare(testPNG(t, 80, 60), 100)
	require.NoError(t, err)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 80, cfg.Width)
	assert.Equal(t, 60, cfg.Height)
}

func TestPrepareRejectsGarbage(t *testing.T) {
	_, err := Prepare(strings.NewReader("not an image"), 100)
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	name := ObjectName("/fuel-slips/")
	assert.True(t, strings.HasPrefix(name, "fuel-slips/"))
	assert.True(t, strings.HasSuffix(name, ".jpg"))
	assert.NotEqual(t, name, ObjectName("fuel-slips"))
	assert.Equal(t, "https://storage.googleapis.com/b/fuel-slips/x.jpg", PublicURL("b", "fuel-slips/x.jpg"))
}

func TestDisabledUploader(t *testing.T) {
	_, err := Disabled{}.Upload(context.Background(), "fuel-slips", "/tmp/x.jpg")
	assert.ErrorIs(t, err, ErrUploadDisabled)
}
