package crop

import (
	"image"
	"image/color"
	"testing"
)

// gradient builds a source image where every pixel encodes its own coordinates,
// so crops can be checked for exact placement.
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return img
}

func TestCropOutputSizeIsCSSPixels(t *testing.T) {
	src := gradient(200, 100)
	area := Area{X: 10, Y: 10, Width: 50, Height: 30}

	for _, dpr := range []float64{1, 1.5, 2} {
		got, err := Crop(src, area, dpr)
		if err != nil {
			t.Fatalf("dpr %v: %v", dpr, err)
		}
		if got.Bounds().Dx() != 50 || got.Bounds().Dy() != 30 {
			t.Errorf("dpr %v: output %v, want 50x30", dpr, got.Bounds())
		}
	}
}

func TestCropAtUnityRatioCopiesPixels(t *testing.T) {
	src := gradient(100, 100)
	got, err := Crop(src, Area{X: 20, Y: 40, Width: 10, Height: 10}, 1)
	if err != nil {
		t.Fatal(err)
	}
	r, g, _, _ := got.At(0, 0).RGBA()
	if r>>8 != 20 || g>>8 != 40 {
		t.Errorf("top-left pixel = (%d,%d), want (20,40)", r>>8, g>>8)
	}
	r, g, _, _ = got.At(9, 9).RGBA()
	if r>>8 != 29 || g>>8 != 49 {
		t.Errorf("bottom-right pixel = (%d,%d), want (29,49)", r>>8, g>>8)
	}
}

func TestCropScalesSourceRectByRatio(t *testing.T) {
	// At ratio 2 the selection (5,5,20,10) reads device pixels (10,10)-(50,30).
	src := image.NewRGBA(image.Rect(0, 0, 100, 100))
	for y := 10; y < 30; y++ {
		for x := 10; x < 50; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	got, err := Crop(src, Area{X: 5, Y: 5, Width: 20, Height: 10}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if got.Bounds().Dx() != 20 || got.Bounds().Dy() != 10 {
		t.Fatalf("output %v, want 20x10", got.Bounds())
	}
	r, _, _, _ := got.At(10, 5).RGBA()
	if r>>8 != 255 {
		t.Errorf("center pixel not drawn from scaled source rect, r = %d", r>>8)
	}
}

func TestCropRoundsEachFieldIndependently(t *testing.T) {
	src := gradient(200, 200)
	// 10.3 * 1.5 = 15.45 -> 15; 20.5 * 1.5 = 30.75 -> 31.
	got, err := Crop(src, Area{X: 10.3, Y: 10.3, Width: 20.5, Height: 20.5}, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	// Output is the rounded CSS size regardless of the device rect.
	if got.Bounds().Dx() != 21 || got.Bounds().Dy() != 21 {
		t.Errorf("output %v, want 21x21", got.Bounds())
	}
}

func TestCropDeterministic(t *testing.T) {
	src := gradient(150, 150)
	area := Area{X: 7, Y: 13, Width: 33, Height: 21}
	first, err := Crop(src, area, 1.25)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Crop(src, area, 1.25)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Pix) != len(second.Pix) {
		t.Fatal("pixel buffers differ in length")
	}
	for i := range first.Pix {
		if first.Pix[i] != second.Pix[i] {
			t.Fatalf("pixel data diverges at byte %d", i)
		}
	}
}

func TestCropRejectsEmptyArea(t *testing.T) {
	src := gradient(10, 10)
	for _, area := range []Area{
		{X: 0, Y: 0, Width: 0, Height: 10},
		{X: 0, Y: 0, Width: 10, Height: 0},
		{X: -1, Y: 0, Width: 10, Height: 10},
	} {
		if _, err := Crop(src, area, 1); err == nil {
			t.Errorf("area %+v: expected error", area)
		}
	}
}

func TestCropOutsideBoundsFails(t *testing.T) {
	src := gradient(50, 50)
	if _, err := Crop(src, Area{X: 100, Y: 100, Width: 10, Height: 10}, 1); err == nil {
		t.Error("expected error for selection outside the capture")
	}
}

func TestCropZeroRatioTreatedAsUnity(t *testing.T) {
	src := gradient(100, 100)
	got, err := Crop(src, Area{X: 10, Y: 10, Width: 20, Height: 20}, 0)
	if err != nil {
		t.Fatal(err)
	}
	r, g, _, _ := got.At(0, 0).RGBA()
	if r>>8 != 10 || g>>8 != 10 {
		t.Errorf("top-left pixel = (%d,%d), want (10,10)", r>>8, g>>8)
	}
}

func TestPNGRoundTrip(t *testing.T) {
	src := gradient(30, 30)
	encoded, err := EncodePNG(src)
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := DecodePNG(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.Bounds() != src.Bounds() {
		t.Errorf("bounds %v, want %v", decoded.Bounds(), src.Bounds())
	}
	if _, err := DecodePNG([]byte("not a png")); err == nil {
		t.Error("expected decode error for junk input")
	}
}
