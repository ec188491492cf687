// Package desqueeze stretches photos horizontally to undo anamorphic squeeze.
package desqueeze

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"strings"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// JPEGQuality matches the quality used for exported photos.
const JPEGQuality = 95

// NormalizeFactor clamps a factor to >= 1 and rounds it to two decimals.
func NormalizeFactor(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return 1
	}
	return math.Round(f*100) / 100
}

// Stretch returns src scaled horizontally by factor; the height is unchanged.
func Stretch(src image.Image, factor float64) image.Image {
	factor = NormalizeFactor(factor)
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	if w < 1 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, b.Dy()))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// ExportPhoto decodes an image, stretches it and encodes it in format.
// "image/png" produces PNG; anything else produces JPEG.
func ExportPhoto(r io.Reader, factor float64, format string) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %v", err)
	}
	out := Stretch(src, factor)

	var buf bytes.Buffer
	if IsPNG(format) {
		err = png.Encode(&buf, out)
	} else {
		err = jpeg.Encode(&buf, out, &jpeg.Options{Quality: JPEGQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("photo encode failed: %v", err)
	}
	return buf.Bytes(), nil
}

// IsPNG reports whether a photo format asks for PNG output.
func IsPNG(format string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(format)), "png")
}
