package gotiff

import (
	"fmt"
	"image"
	"image/png"
	"io"
)

// NRGBA wraps the pixel buffer as an image.NRGBA without copying.
func (img *Image) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    img.Data,
		Stride: img.Width * 4,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// EncodePNG writes the image to w as a PNG.
func (img *Image) EncodePNG(w io.Writer) error {
	buf := GetBytesBuffer()
	defer PutBytesBuffer(buf)

	if err := png.Encode(buf, img.NRGBA()); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write PNG: %w", err)
	}
	return nil
}
