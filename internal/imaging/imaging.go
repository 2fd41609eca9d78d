// Package imaging wraps the image transforms the render pipeline applies
// before a frame reaches the panel, plus content fingerprinting used for
// redundant-refresh detection.
package imaging

import (
	"fmt"
	"hash/fnv"
	"image"
	"os"
	"path/filepath"

	img "github.com/disintegration/imaging"

	"inkd/internal/config"
)

// Fingerprint returns a stable digest of the image content. Two images with
// identical pixels always produce the same fingerprint; the value is opaque
// and only ever compared for equality.
func Fingerprint(src image.Image) string {
	if src == nil {
		return ""
	}
	nrgba := img.Clone(src)
	h := fnv.New64a()
	_, _ = h.Write(nrgba.Pix)
	return fmt.Sprintf("%016x", h.Sum64())
}

// Orient rotates the source for vertical panel mounting. Horizontal is the
// native orientation and passes through untouched.
func Orient(src image.Image, orientation string) image.Image {
	if orientation == "vertical" {
		return img.Rotate90(src)
	}
	return src
}

// Fit scales the source to exactly width x height, cropping overflow around
// the center so the panel is always fully covered.
func Fit(src image.Image, width, height int) image.Image {
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	return img.Fill(src, width, height, img.Center, img.Lanczos)
}

// Invert rotates the frame 180 degrees for upside-down panel mounts.
func Invert(src image.Image) image.Image {
	return img.Rotate180(src)
}

// Enhance applies brightness/contrast/saturation/sharpness factors.
// A factor of 1.0 is a no-op; the whole call is skipped when all factors
// are neutral.
func Enhance(src image.Image, s config.ImageSettings) image.Image {
	if s.Brightness == 1 && s.Contrast == 1 && s.Saturation == 1 && s.Sharpness == 1 {
		return src
	}
	out := img.Clone(src)
	if s.Brightness != 1 && s.Brightness > 0 {
		out = img.AdjustBrightness(out, (s.Brightness-1)*100)
	}
	if s.Contrast != 1 && s.Contrast > 0 {
		out = img.AdjustContrast(out, (s.Contrast-1)*100)
	}
	if s.Saturation != 1 && s.Saturation > 0 {
		out = img.AdjustSaturation(out, (s.Saturation-1)*100)
	}
	switch {
	case s.Sharpness > 1:
		out = img.Sharpen(out, s.Sharpness-1)
	case s.Sharpness > 0 && s.Sharpness < 1:
		out = img.Blur(out, 1-s.Sharpness)
	}
	return out
}

// Save writes the image to path (format by extension), creating parent
// directories as needed.
func Save(src image.Image, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return img.Save(src, path)
}
