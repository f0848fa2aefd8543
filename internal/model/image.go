package model

import (
	"fmt"
	"image"
)

// SourceImage is a decoded source raster together with the base name used
// to derive rendition names. It is read-only once decoded.
type SourceImage struct {
	Path     string      `json:"path"`
	BaseName string      `json:"base_name"` // filename without extension
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Raster   image.Image `json:"-"`
}

// Profile describes one target rendition: exact pixel size and the DPI tag
// written into the output name and the PNG physical-size chunk.
type Profile struct {
	Width  uint32 `json:"width" mapstructure:"width"`
	Height uint32 `json:"height" mapstructure:"height"`
	DPI    uint32 `json:"dpi" mapstructure:"dpi"`
}

// OutputName returns the deterministic rendition filename for base.
func (p Profile) OutputName(base string) string {
	return fmt.Sprintf("%s_%dx%d_%ddpi.png", base, p.Width, p.Height, p.DPI)
}

// String implements fmt.Stringer.
func (p Profile) String() string {
	return fmt.Sprintf("%dx%d@%ddpi", p.Width, p.Height, p.DPI)
}
