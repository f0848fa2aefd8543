package processor

import (
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func noise(w, h int, seed int64) *image.NRGBA {
	rng := rand.New(rand.NewSource(seed))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	return img
}

func writeTIFF(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}))
	return path
}

func TestResizeExactDimensions(t *testing.T) {
	src := noise(64, 48, 1)

	sizes := [][2]int{{1, 1}, {64, 48}, {200, 7}, {13, 300}, {31, 17}}
	for _, sz := range sizes {
		out := Resize(src, sz[0], sz[1])
		assert.Equal(t, sz[0], out.Bounds().Dx())
		assert.Equal(t, sz[1], out.Bounds().Dy())
		assert.Equal(t, image.Point{}, out.Bounds().Min)
	}
}

func TestResizeNormalizesColorModel(t *testing.T) {
	gray := image.NewGray16(image.Rect(0, 0, 10, 10))
	gray.SetGray16(3, 3, color.Gray16{Y: 0xffff})

	out := Resize(gray, 20, 5)
	assert.Equal(t, color.NRGBAModel, out.ColorModel())
}

func TestDecodeTIFF(t *testing.T) {
	dir := t.TempDir()
	path := writeTIFF(t, dir, "towel.TIF", noise(40, 30, 2))

	src, err := NewDecoder(0).Decode(path)
	require.NoError(t, err)

	assert.Equal(t, "towel", src.BaseName)
	assert.Equal(t, path, src.Path)
	assert.Equal(t, 40, src.Width)
	assert.Equal(t, 30, src.Height)
	assert.Equal(t, 40, src.Raster.Bounds().Dx())
}

func TestDecodeFallsBackForMislabeledSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "really-a-png.tif")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, noise(8, 6, 3)))
	require.NoError(t, f.Close())

	src, err := NewDecoder(0).Decode(path)
	require.NoError(t, err)
	assert.Equal(t, 8, src.Width)
	assert.Equal(t, 6, src.Height)
}

func TestDecodeCorrupt(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "broken.tif")
	require.NoError(t, os.WriteFile(corrupt, []byte("II*\x00garbage"), 0o644))
	empty := filepath.Join(dir, "empty.tif")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))

	_, err := NewDecoder(0).Decode(corrupt)
	assert.Error(t, err)

	_, err = NewDecoder(0).Decode(empty)
	assert.Error(t, err)

	_, err = NewDecoder(0).Decode(filepath.Join(dir, "missing.tif"))
	assert.Error(t, err)
}

func TestDecodePixelLimit(t *testing.T) {
	path := writeTIFF(t, t.TempDir(), "big.tif", noise(20, 20, 4))

	_, err := NewDecoder(399).Decode(path)
	assert.ErrorIs(t, err, ErrInvalidDimensions)

	_, err = NewDecoder(400).Decode(path)
	assert.NoError(t, err)
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "a", BaseName("/x/y/a.tif"))
	assert.Equal(t, "a.b", BaseName("a.b.TIF"))
	assert.Equal(t, "noext", BaseName("noext"))
}
