// Package crop maps a CSS-pixel selection onto a device-pixel screenshot and
// produces the cropped image at CSS-pixel size.
package crop

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Area is a selection rectangle in CSS-pixel viewport coordinates.
type Area struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Valid reports whether the area has positive extent.
func (a Area) Valid() bool {
	return a.Width > 0 && a.Height > 0 && a.X >= 0 && a.Y >= 0
}

var errEmptyArea = errors.New("selection area is empty")

// Crop cuts the selection out of a full-viewport capture. Each of x, y, width
// and height is scaled by the device pixel ratio and rounded independently;
// rounding the fields separately can drift the right/bottom edge by a pixel
// at fractional ratios, matching how selections are resolved upstream. The
// output is always area.Width x area.Height CSS pixels, so at ratios above 1
// the device-pixel source rectangle is downsampled.
func Crop(src image.Image, area Area, devicePixelRatio float64) (*image.RGBA, error) {
	if devicePixelRatio <= 0 {
		devicePixelRatio = 1
	}
	if !area.Valid() {
		return nil, errEmptyArea
	}

	left := int(math.Round(area.X * devicePixelRatio))
	top := int(math.Round(area.Y * devicePixelRatio))
	width := int(math.Round(area.Width * devicePixelRatio))
	height := int(math.Round(area.Height * devicePixelRatio))

	srcRect := image.Rect(left, top, left+width, top+height).Intersect(src.Bounds())
	if srcRect.Empty() {
		return nil, fmt.Errorf("selection %v lies outside capture bounds %v", area, src.Bounds())
	}

	outW := int(math.Round(area.Width))
	outH := int(math.Round(area.Height))
	dst := image.NewRGBA(image.Rect(0, 0, outW, outH))

	if srcRect.Dx() == outW && srcRect.Dy() == outH {
		draw.Draw(dst, dst.Bounds(), src, srcRect.Min, draw.Src)
		return dst, nil
	}

	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, srcRect, xdraw.Src, nil)
	return dst, nil
}

// DecodePNG decodes a raw capture payload.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode capture: %w", err)
	}
	return img, nil
}

// EncodePNG encodes a cropped image for upload.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
