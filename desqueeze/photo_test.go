package desqueeze

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func testImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 10), G: uint8(y * 10), B: 128, A: 255})
		}
	}
	return img
}

func TestStretchDimensions(t *testing.T) {
	cases := []struct {
		factor float64
		wantW  int
	}{
		{1, 20},
		{1.33, 27},
		{2, 40},
		{0.5, 20}, // below 1 is treated as 1
	}
	for _, tc := range cases {
		out := Stretch(testImage(20, 10), tc.factor)
		if out.Bounds().Dx() != tc.wantW || out.Bounds().Dy() != 10 {
			t.Errorf("factor %v: expected %dx10, got %v", tc.factor, tc.wantW, out.Bounds())
		}
	}
}

func TestNormalizeFactor(t *testing.T) {
	cases := map[float64]float64{0: 1, 0.9: 1, 1.333: 1.33, 1.5: 1.5, 2: 2}
	for in, want := range cases {
		if got := NormalizeFactor(in); got != want {
			t.Errorf("NormalizeFactor(%v): expected %v, got %v", in, want, got)
		}
	}
}

func TestExportPhotoFormats(t *testing.T) {
	var src bytes.Buffer
	if err := png.Encode(&src, testImage(10, 4)); err != nil {
		t.Fatal(err)
	}

	out, err := ExportPhoto(bytes.NewReader(src.Bytes()), 2, "image/png")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Expected PNG output: %v", err)
	}
	if decoded.Bounds().Dx() != 20 || decoded.Bounds().Dy() != 4 {
		t.Errorf("Unexpected PNG bounds %v", decoded.Bounds())
	}

	out, err = ExportPhoto(bytes.NewReader(src.Bytes()), 1.5, "image/jpeg")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	decoded, err = jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Expected JPEG output: %v", err)
	}
	if decoded.Bounds().Dx() != 15 {
		t.Errorf("Expected width 15, got %d", decoded.Bounds().Dx())
	}
}

func TestExportPhotoRejectsGarbage(t *testing.T) {
	if _, err := ExportPhoto(bytes.NewReader([]byte("not an image")), 1.5, "image/jpeg"); err == nil {
		t.Error("Expected decode error")
	}
}
