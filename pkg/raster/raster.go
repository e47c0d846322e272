// Package raster turns the sensor's packed 4-bit image buffer into an
// 8-bit grayscale raster and encodes it for output.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
)

// The sensor's image geometry is fixed.
const (
	Width  = 256
	Height = 288
)

// ErrInsufficientData indicates the raw buffer cannot cover the
// requested raster.
var ErrInsufficientData = errors.New("insufficient image data")

// Expand unpacks two 4-bit samples per input byte, high nibble first,
// scaling each to 8 bits by multiplying by 17 so 0x0 maps to 0 and 0xF
// to 255 with no rounding error. Trailing input beyond width*height
// samples is ignored.
func Expand(raw []byte, width, height int) ([]byte, error) {
	pixels := width * height
	if len(raw)*2 < pixels {
		return nil, fmt.Errorf("%d bytes for %dx%d raster: %w", len(raw), width, height, ErrInsufficientData)
	}
	out := make([]byte, pixels)
	i := 0
	for _, b := range raw {
		if i < pixels {
			out[i] = (b >> 4 & 0x0F) * 17
			i++
		}
		if i < pixels {
			out[i] = (b & 0x0F) * 17
			i++
		}
	}
	return out, nil
}

// Gray wraps an expanded raster as an image.Gray without copying.
func Gray(pixels []byte, width, height int) *image.Gray {
	return &image.Gray{
		Pix:    pixels,
		Stride: width,
		Rect:   image.Rect(0, 0, width, height),
	}
}

// EncodePNG writes the raster as a PNG.
func EncodePNG(w io.Writer, pixels []byte, width, height int) error {
	if err := png.Encode(w, Gray(pixels, width, height)); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// WritePGM writes the raster as a binary PGM, the fallback container
// for tools without PNG support.
func WritePGM(w io.Writer, pixels []byte, width, height int) error {
	if _, err := fmt.Fprintf(w, "P5\n%d %d\n255\n", width, height); err != nil {
		return err
	}
	_, err := w.Write(pixels)
	return err
}
