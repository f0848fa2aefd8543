package profile

import (
	"errors"
	"fmt"

	"github.com/aliskhannn/image-resizer/internal/model"
)

// ErrEmptyCatalog is returned when a catalog has no profiles.
var ErrEmptyCatalog = errors.New("profile catalog is empty")

// defaultCatalog is the built-in rendition table. Order is processing order.
var defaultCatalog = []model.Profile{
	{Width: 4725, Height: 9225, DPI: 150},
	{Width: 5625, Height: 11025, DPI: 150},
	{Width: 7238, Height: 3638, DPI: 150},
	{Width: 18900, Height: 9900, DPI: 300},
	{Width: 3630, Height: 5730, DPI: 300},
	{Width: 4800, Height: 9300, DPI: 150},
	{Width: 3600, Height: 4800, DPI: 150},
	{Width: 4500, Height: 4500, DPI: 300},
	{Width: 5693, Height: 9154, DPI: 300},
	{Width: 5374, Height: 8102, DPI: 300},
	{Width: 7163, Height: 13205, DPI: 300},
	{Width: 9579, Height: 18390, DPI: 300},
	{Width: 3000, Height: 4800, DPI: 150},
	{Width: 5043, Height: 7350, DPI: 300},
	{Width: 6000, Height: 12450, DPI: 150},
}

// Default returns a copy of the built-in catalog.
func Default() []model.Profile {
	out := make([]model.Profile, len(defaultCatalog))
	copy(out, defaultCatalog)
	return out
}

// Validate checks that the catalog is non-empty and every profile has
// positive dimensions and DPI.
func Validate(catalog []model.Profile) error {
	if len(catalog) == 0 {
		return ErrEmptyCatalog
	}

	for i, p := range catalog {
		if p.Width == 0 || p.Height == 0 {
			return fmt.Errorf("profile %d (%s): width and height must be positive", i, p)
		}
		if p.DPI == 0 {
			return fmt.Errorf("profile %d (%s): dpi must be positive", i, p)
		}
	}

	return nil
}
