package gotiff

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Pixel-space geometry. X grows right, Y grows down, and a bound's Max is exclusive.

// PolygonFromBounds creates a polygon from a bounding box
func PolygonFromBounds(bound orb.Bound) orb.Polygon {
	if bound.IsEmpty() {
		return orb.Polygon{}
	}

	ring := orb.Ring{
		{bound.Min[0], bound.Min[1]}, // Top-left
		{bound.Max[0], bound.Min[1]}, // Top-right
		{bound.Max[0], bound.Max[1]}, // Bottom-right
		{bound.Min[0], bound.Max[1]}, // Bottom-left
		{bound.Min[0], bound.Min[1]}, // Close ring
	}

	return orb.Polygon{ring}
}

// Bound returns the pixel extent of the image.
func (img *Image) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{0, 0},
		Max: orb.Point{float64(img.Width), float64(img.Height)},
	}
}

// Polygon returns the pixel extent of the image as a polygon.
func (img *Image) Polygon() orb.Polygon {
	return PolygonFromBounds(img.Bound())
}

// Crop returns a copy of the pixels inside bound. Fractional edges are widened
// to whole pixels and the result is clipped to the image.
func (img *Image) Crop(bound orb.Bound) (*Image, error) {
	if !bound.Intersects(img.Bound()) {
		return nil, fmt.Errorf("crop bound %v does not intersect image bound %v", bound, img.Bound())
	}

	x0 := max(int(math.Floor(bound.Min[0])), 0)
	y0 := max(int(math.Floor(bound.Min[1])), 0)
	x1 := min(int(math.Ceil(bound.Max[0])), img.Width)
	y1 := min(int(math.Ceil(bound.Max[1])), img.Height)
	if x0 >= x1 || y0 >= y1 {
		return nil, fmt.Errorf("crop bound %v is empty", bound)
	}

	w, h := x1-x0, y1-y0
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		src := ((y0+y)*img.Width + x0) * 4
		copy(data[y*w*4:(y+1)*w*4], img.Data[src:src+w*4])
	}

	return &Image{
		Width:       w,
		Height:      h,
		Data:        data,
		Tags:        img.Tags,
		Strings:     img.Strings,
		Diagnostics: img.Diagnostics,
	}, nil
}
