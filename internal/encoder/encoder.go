package encoder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/image-resizer/internal/model"
)

// ErrInvalidCeiling is returned when the size ceiling is not positive.
var ErrInvalidCeiling = errors.New("size ceiling must be positive")

// codec writes one encoding of img at the given compression tier.
type codec interface {
	Encode(w io.Writer, img image.Image, tier model.Tier, dpi uint32) error
}

// Encoder persists a rendition under a byte ceiling. It makes at most two
// attempts: a fast encode, then a maximum-compression encode of the same
// raster. A rendition that is still too large is removed and reported as
// skipped.
type Encoder struct {
	codec codec
}

// New creates an Encoder writing PNG files.
func New() *Encoder {
	return &Encoder{codec: PNG{}}
}

// NewWithCodec creates an Encoder backed by c.
func NewWithCodec(c codec) *Encoder {
	return &Encoder{codec: c}
}

// Encode writes raster to outputPath and applies the ceiling policy.
//
// The returned error is non-nil only for codec or I/O failures; in that case
// no file is left at outputPath and the outcome status is failed. An oversized
// rendition is not an error: it yields a skipped outcome.
func (e *Encoder) Encode(ctx context.Context, raster image.Image, outputPath string, dpi uint32, ceilingBytes int64) (model.Outcome, error) {
	out := model.Outcome{
		Name:   filepath.Base(outputPath),
		Path:   outputPath,
		Status: model.StatusFailed,
	}

	if ceilingBytes <= 0 {
		return out, ErrInvalidCeiling
	}

	// Both attempts must see the same 8-bit NRGBA pixels.
	img, ok := raster.(*image.NRGBA)
	if !ok {
		img = imaging.Clone(raster)
	}

	for _, tier := range []model.Tier{model.TierFast, model.TierMax} {
		if err := ctx.Err(); err != nil {
			err = fmt.Errorf("encode interrupted: %w", err)
			if out.Attempts == 0 {
				return out, err
			}
			return out, e.discard(outputPath, err)
		}

		out.Attempts++
		out.Tier = tier

		size, err := e.write(outputPath, img, tier, dpi)
		if err != nil {
			return out, e.discard(outputPath, err)
		}
		out.Bytes = size

		if size <= ceilingBytes {
			out.Status = model.StatusAccepted
			return out, nil
		}
	}

	if err := os.Remove(outputPath); err != nil {
		return out, fmt.Errorf("failed to remove oversized rendition: %w", err)
	}
	out.Status = model.StatusSkipped

	return out, nil
}

// write encodes img into path and returns the size of the written file.
func (e *Encoder) write(path string, img image.Image, tier model.Tier, dpi uint32) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}

	bw := bufio.NewWriterSize(f, 1<<20)
	if err := e.codec.Encode(bw, img, tier, dpi); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to encode %s (%s): %w", path, tier, err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close %s: %w", path, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	return info.Size(), nil
}

// discard removes a partially written rendition and returns cause.
func (e *Encoder) discard(path string, cause error) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Join(cause, fmt.Errorf("failed to remove partial rendition: %w", err))
	}
	return cause
}
