package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"

	"inkd/internal/config"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: c}, image.Point{}, draw.Src)
	return img
}

func TestFingerprintEquality(t *testing.T) {
	a := solid(20, 10, color.White)
	b := solid(20, 10, color.White)
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("identical pixels fingerprint differently")
	}
	if Fingerprint(a) != Fingerprint(a) {
		t.Fatal("fingerprint is not stable")
	}
}

func TestFingerprintDetectsChange(t *testing.T) {
	a := solid(20, 10, color.White)
	b := solid(20, 10, color.White).(*image.RGBA)
	b.Set(3, 3, color.Black)
	if Fingerprint(a) == Fingerprint(b) {
		t.Fatal("single pixel change not detected")
	}
}

func TestFingerprintIgnoresRepresentation(t *testing.T) {
	// Same content in different image types must match; the pipeline
	// fingerprints whatever the plugin happened to produce.
	a := solid(8, 8, color.Black)
	b := image.NewGray(image.Rect(0, 0, 8, 8))
	draw.Draw(b, b.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
	if Fingerprint(a) != Fingerprint(b) {
		t.Fatal("RGBA and Gray with equal content fingerprint differently")
	}
}

func TestFingerprintNil(t *testing.T) {
	if Fingerprint(nil) != "" {
		t.Fatal("nil image should fingerprint to empty string")
	}
}

func TestOrient(t *testing.T) {
	src := solid(20, 10, color.White)
	if got := Orient(src, "horizontal"); got.Bounds() != src.Bounds() {
		t.Fatal("horizontal orientation must pass through")
	}
	rot := Orient(src, "vertical")
	if rot.Bounds().Dx() != 10 || rot.Bounds().Dy() != 20 {
		t.Fatalf("vertical orientation bounds = %v", rot.Bounds())
	}
}

func TestFit(t *testing.T) {
	src := solid(100, 30, color.White)
	out := Fit(src, 40, 40)
	if out.Bounds().Dx() != 40 || out.Bounds().Dy() != 40 {
		t.Fatalf("fit bounds = %v", out.Bounds())
	}

	exact := solid(40, 40, color.White)
	if Fit(exact, 40, 40) != exact {
		t.Fatal("exact size must pass through without copying")
	}
}

func TestInvert(t *testing.T) {
	src := solid(4, 2, color.White).(*image.RGBA)
	src.Set(0, 0, color.Black)
	out := Invert(src)
	r, g, b, _ := out.At(3, 1).RGBA()
	if r != 0 || g != 0 || b != 0 {
		t.Fatal("marker pixel did not move to the opposite corner")
	}
}

func TestEnhanceNeutralIsNoop(t *testing.T) {
	src := solid(4, 4, color.Gray{Y: 128})
	neutral := config.ImageSettings{Brightness: 1, Contrast: 1, Saturation: 1, Sharpness: 1}
	if Enhance(src, neutral) != src {
		t.Fatal("neutral settings must return the source unchanged")
	}
}

func TestEnhanceBrightness(t *testing.T) {
	src := solid(4, 4, color.Gray{Y: 100})
	out := Enhance(src, config.ImageSettings{Brightness: 1.5, Contrast: 1, Saturation: 1, Sharpness: 1})
	ro, _, _, _ := src.At(1, 1).RGBA()
	rn, _, _, _ := out.At(1, 1).RGBA()
	if rn <= ro {
		t.Fatalf("brightness 1.5 did not brighten: %d -> %d", ro, rn)
	}
}

func TestSaveCreatesParents(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "out", "frame.png")
	if err := Save(solid(4, 4, color.White), path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}
