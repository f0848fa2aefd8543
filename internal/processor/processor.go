package processor

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"

	"github.com/aliskhannn/image-resizer/internal/model"
)

// ErrInvalidDimensions is returned for sources whose header reports a zero
// size or more pixels than the decoder accepts.
var ErrInvalidDimensions = errors.New("invalid image dimensions")

// Resize scales src to exactly width x height using a 3-lobe Lanczos filter.
// The result is always 8-bit NRGBA. Callers must pass a non-empty src and
// positive dimensions.
func Resize(src image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(src, width, height, imaging.Lanczos)
}

// Decoder turns source files into in-memory rasters.
type Decoder struct {
	maxPixels int64
}

// NewDecoder creates a Decoder. maxPixels bounds width*height of accepted
// sources; 0 disables the bound.
func NewDecoder(maxPixels int64) *Decoder {
	return &Decoder{maxPixels: maxPixels}
}

// Decode reads the source at path. The header is checked first so that
// empty or oversized rasters are rejected before any pixel buffer is allocated.
func (d *Decoder) Decode(path string) (model.SourceImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to open source: %w", err)
	}
	defer f.Close()

	cfg, err := decodeConfig(f)
	if err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to read image header: %w", err)
	}
	if err := d.validateBounds(cfg.Width, cfg.Height); err != nil {
		return model.SourceImage{}, err
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to rewind source: %w", err)
	}

	img, err := imaging.Decode(f, imaging.AutoOrientation(false))
	if err != nil {
		return model.SourceImage{}, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if err := d.validateBounds(b.Dx(), b.Dy()); err != nil {
		return model.SourceImage{}, err
	}

	return model.SourceImage{
		Path:     path,
		BaseName: BaseName(path),
		Width:    b.Dx(),
		Height:   b.Dy(),
		Raster:   img,
	}, nil
}

// BaseName returns the file name of path without its extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// decodeConfig reads the TIFF header, falling back to the registered
// decoders when the file is not a TIFF container.
func decodeConfig(r io.ReadSeeker) (image.Config, error) {
	cfg, err := tiff.DecodeConfig(r)
	if err == nil {
		return cfg, nil
	}

	var formatErr tiff.FormatError
	if !errors.As(err, &formatErr) {
		return image.Config{}, err
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return image.Config{}, err
	}
	cfg, _, err = image.DecodeConfig(r)
	return cfg, err
}

func (d *Decoder) validateBounds(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	if d.maxPixels > 0 && int64(width)*int64(height) > d.maxPixels {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrInvalidDimensions, width, height, d.maxPixels)
	}
	return nil
}
