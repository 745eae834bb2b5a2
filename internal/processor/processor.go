// Package processor normalizes accepted images to the canonical output
// format: a square PNG canvas with the image fitted inside, aspect preserved.
package processor

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"golang.org/x/image/draw"

	"github.com/user/image-pipeline/internal/domain"
)

const canonicalFormat = "png"

// Processor resizes accepted images into a fixed bounding box.
type Processor struct {
	boxSize int
}

func New(boxSize int) *Processor {
	return &Processor{boxSize: boxSize}
}

// Normalize fits the image within the configured box, preserving aspect ratio
// and never upscaling, then re-encodes to PNG. The canvas is square with the
// image centered; padding is transparent. Input that already fits passes
// through at its original resolution.
func (p *Processor) Normalize(src image.Image) (domain.ProcessedImage, error) {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return domain.ProcessedImage{}, fmt.Errorf("normalize: empty image")
	}

	scale := 1.0
	longest := w
	if h > longest {
		longest = h
	}
	if longest > p.boxSize {
		scale = float64(p.boxSize) / float64(longest)
	}

	tw := int(float64(w)*scale + 0.5)
	th := int(float64(h)*scale + 0.5)

	side := longest
	if side > p.boxSize {
		side = p.boxSize
	}

	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	offX := (side - tw) / 2
	offY := (side - th) / 2
	target := image.Rect(offX, offY, offX+tw, offY+th)
	draw.CatmullRom.Scale(dst, target, src, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return domain.ProcessedImage{}, fmt.Errorf("normalize: encode: %w", err)
	}

	return domain.ProcessedImage{
		Bytes:  buf.Bytes(),
		Format: canonicalFormat,
		Width:  side,
		Height: side,
	}, nil
}
