// Package imageproc turns image sources into raw RGB key buffers.
//
// The pipeline is fixed: decode, flatten any alpha channel onto an opaque
// background, cover-resize to a square of the device icon size, then emit
// tightly packed RGB rows.
package imageproc

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	// Extra decoders beyond the png/jpeg/gif set imaging registers.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Loader produces a raw RGB buffer for an image source and a square edge size.
type Loader interface {
	Load(ctx context.Context, source string, size int) ([]byte, error)
}

// Processor is the default Loader. Sources are file paths.
type Processor struct {
	// Background is the color alpha is flattened onto. Defaults to black.
	Background color.Color
	// Filter is the resampling filter. New sets Lanczos; the zero value is nearest neighbor.
	Filter imaging.ResampleFilter
	// Open decodes a source. Defaults to imaging.Open with EXIF auto-orientation.
	Open func(source string) (image.Image, error)
}

// New returns a Processor with the default settings.
func New() *Processor {
	return &Processor{
		Background: color.Black,
		Filter:     imaging.Lanczos,
	}
}

// Load decodes source and converts it to a size×size raw RGB buffer.
func (p *Processor) Load(ctx context.Context, source string, size int) ([]byte, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid icon size %d", size)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := p.open(source)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return p.Convert(img, size), nil
}

// Convert runs flatten, resize and raw conversion on an already decoded image.
func (p *Processor) Convert(img image.Image, size int) []byte {
	flat := Flatten(img, p.background())
	resized := imaging.Fill(flat, size, size, imaging.Center, p.Filter)
	return RawRGB(resized)
}

// Flatten composites img over an opaque background of the same bounds.
func Flatten(img image.Image, background color.Color) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), background)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}

// RawRGB packs img into 3 bytes per pixel, rows top to bottom. Alpha is dropped.
func RawRGB(img *image.NRGBA) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := make([]byte, 0, 3*w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+4*w]
		for x := 0; x < w; x++ {
			px := row[4*x : 4*x+4]
			out = append(out, px[0], px[1], px[2])
		}
	}
	return out
}

// ToImage unpacks a raw RGB buffer into an opaque image of the given size.
func ToImage(buf []byte, size int) (*image.NRGBA, error) {
	if len(buf) != 3*size*size {
		return nil, fmt.Errorf("buffer length %d does not match %dx%d RGB", len(buf), size, size)
	}
	img := image.NewNRGBA(image.Rect(0, 0, size, size))
	for i, j := 0, 0; i < len(buf); i, j = i+3, j+4 {
		img.Pix[j] = buf[i]
		img.Pix[j+1] = buf[i+1]
		img.Pix[j+2] = buf[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}

// Average returns the mean color of a raw RGB buffer.
func Average(buf []byte) color.RGBA {
	n := len(buf) / 3
	if n == 0 {
		return color.RGBA{A: 0xff}
	}
	var r, g, b int
	for i := 0; i+2 < len(buf); i += 3 {
		r += int(buf[i])
		g += int(buf[i+1])
		b += int(buf[i+2])
	}
	return color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: 0xff}
}

func (p *Processor) open(source string) (image.Image, error) {
	if p.Open != nil {
		return p.Open(source)
	}
	return imaging.Open(source, imaging.AutoOrientation(true))
}

func (p *Processor) background() color.Color {
	if p.Background == nil {
		return color.Black
	}
	return p.Background
}

var _ Loader = (*Processor)(nil)
