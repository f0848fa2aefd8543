package encoder

import (
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"io"
	"math"

	"github.com/disintegration/imaging"

	"github.com/aliskhannn/image-resizer/internal/model"
)

// headerLen is the PNG signature plus the IHDR chunk (8 + 4 + 4 + 13 + 4).
const headerLen = 33

const inchesPerMetre = 1 / 0.0254

// PNG encodes rasters as PNG through imaging, tagging the physical pixel
// density with a pHYs chunk.
type PNG struct{}

// Encode writes img to w using the compression level of tier.
func (PNG) Encode(w io.Writer, img image.Image, tier model.Tier, dpi uint32) error {
	pw := newPhysWriter(w, dpi)
	return imaging.Encode(pw, img, imaging.PNG, imaging.PNGCompressionLevel(compressionLevel(tier)))
}

func compressionLevel(tier model.Tier) png.CompressionLevel {
	if tier == model.TierMax {
		return png.BestCompression
	}
	return png.BestSpeed
}

// physChunk builds a pHYs chunk for dpi (unit: metre).
func physChunk(dpi uint32) []byte {
	ppm := uint32(math.Round(float64(dpi) * inchesPerMetre))

	chunk := make([]byte, 4+4+9+4)
	binary.BigEndian.PutUint32(chunk[0:4], 9)
	copy(chunk[4:8], "pHYs")
	binary.BigEndian.PutUint32(chunk[8:12], ppm)
	binary.BigEndian.PutUint32(chunk[12:16], ppm)
	chunk[16] = 1
	binary.BigEndian.PutUint32(chunk[17:21], crc32.ChecksumIEEE(chunk[4:17]))

	return chunk
}

// physWriter passes a PNG stream through and inserts a pHYs chunk right
// after IHDR.
type physWriter struct {
	w        io.Writer
	chunk    []byte
	seen     int
	injected bool
}

func newPhysWriter(w io.Writer, dpi uint32) *physWriter {
	pw := &physWriter{w: w}
	if dpi == 0 {
		pw.injected = true
		return pw
	}
	pw.chunk = physChunk(dpi)
	return pw
}

func (p *physWriter) Write(b []byte) (int, error) {
	if p.injected {
		return p.w.Write(b)
	}

	head := headerLen - p.seen
	if len(b) < head {
		n, err := p.w.Write(b)
		p.seen += n
		return n, err
	}

	n, err := p.w.Write(b[:head])
	p.seen += n
	if err != nil {
		return n, err
	}
	if _, err := p.w.Write(p.chunk); err != nil {
		return n, err
	}
	p.injected = true

	m, err := p.w.Write(b[head:])
	return n + m, err
}
