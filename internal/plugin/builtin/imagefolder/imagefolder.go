// Package imagefolder rotates through the image files in a directory.
package imagefolder

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	img "github.com/disintegration/imaging"

	"inkd/internal/plugin"
)

type Folder struct {
	dir    string
	rotate string // hourly | daily
}

// New builds an image-folder renderer.
//
// Settings:
//   - path: directory holding the images (required)
//   - rotate: "hourly" (default) or "daily" slot selection
//
// Slot selection is a pure function of the clock, so the same image (and
// therefore the same fingerprint) comes back for every cycle inside one
// slot and the panel is not repainted.
func New(settings map[string]any) (plugin.Renderer, error) {
	dir := plugin.SettingString(settings, "path", "")
	if dir == "" {
		return nil, fmt.Errorf("imagefolder: path is required")
	}
	rotate := plugin.SettingString(settings, "rotate", "hourly")
	if rotate != "hourly" && rotate != "daily" {
		return nil, fmt.Errorf("imagefolder: rotate must be hourly or daily, got %q", rotate)
	}
	return &Folder{dir: dir, rotate: rotate}, nil
}

func (f *Folder) Type() string { return "imagefolder" }

func (f *Folder) Render(rc plugin.RenderContext, now time.Time) (image.Image, error) {
	files, err := f.list()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("imagefolder: no images in %s", f.dir)
	}

	local := now
	if rc.Location != nil {
		local = now.In(rc.Location)
	}
	slot := local.Year()*366 + local.YearDay()
	if f.rotate == "hourly" {
		slot = slot*24 + local.Hour()
	}
	pick := files[slot%len(files)]

	frame, err := img.Open(pick, img.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("imagefolder: open %s: %w", pick, err)
	}
	return frame, nil
}

func (f *Folder) list() ([]string, error) {
	entries, err := os.ReadDir(f.dir)
	if err != nil {
		return nil, fmt.Errorf("imagefolder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
			files = append(files, filepath.Join(f.dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}
