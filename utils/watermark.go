// utils/watermark.go
package utils

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// videoWatermarkMarker prefixes the trailer chunk appended to video
// artifacts. Players ignore trailing bytes past the container's own length
// fields, so the watermark survives without re-encoding.
const videoWatermarkMarker = "\x00\x00WMRK:"

// WatermarkImage decodes the screenshot, draws a darkened band with the
// watermark text along the bottom edge and re-encodes it as JPEG. The input
// bytes are never modified.
func WatermarkImage(raw []byte, text string) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode artifact image: %w", err)
	}

	dst := imaging.Clone(img)
	bounds := dst.Bounds()

	bandHeight := 24
	if bounds.Dy() < bandHeight*2 {
		bandHeight = bounds.Dy() / 2
	}
	band := image.Rect(bounds.Min.X, bounds.Max.Y-bandHeight, bounds.Max.X, bounds.Max.Y)
	draw.Draw(dst, band, image.NewUniform(color.NRGBA{0, 0, 0, 160}), image.Point{}, draw.Over)

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.NRGBA{255, 255, 255, 255}),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(bounds.Min.X+8, bounds.Max.Y-bandHeight/2+4),
	}
	d.DrawString(text)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode watermarked image: %w", err)
	}
	return buf.Bytes(), nil
}

// WatermarkVideo appends a marker chunk carrying the watermark text. The
// original bytes are copied, not mutated.
func WatermarkVideo(raw []byte, text string) []byte {
	out := make([]byte, 0, len(raw)+len(videoWatermarkMarker)+len(text))
	out = append(out, raw...)
	out = append(out, videoWatermarkMarker...)
	out = append(out, text...)
	return out
}
