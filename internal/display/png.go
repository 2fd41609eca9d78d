package display

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"time"

	"inkd/internal/imaging"
	logx "inkd/pkg/logx"
)

// pngDriver writes frames to files instead of a panel. Development driver
// for working on layouts without hardware attached.
type pngDriver struct {
	dir           string
	width, height int
	log           logx.Logger
}

func newPNGDriver(dir string, width, height int, log logx.Logger) *pngDriver {
	if dir == "" {
		dir = "./frames"
	}
	return &pngDriver{dir: dir, width: width, height: height, log: log}
}

func (d *pngDriver) Render(frame image.Image) error {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(d.dir, "frame-"+stamp+".png")
	if err := imaging.Save(frame, path); err != nil {
		return err
	}
	// latest.png always points at the newest frame.
	if err := imaging.Save(frame, filepath.Join(d.dir, "latest.png")); err != nil {
		return err
	}
	d.log.Debug("frame written", logx.String("path", path))
	return nil
}

func (d *pngDriver) Clear() error {
	b := image.NewNRGBA(image.Rect(0, 0, d.width, d.height))
	draw.Draw(b, b.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return imaging.Save(b, filepath.Join(d.dir, "latest.png"))
}

func (d *pngDriver) Close() error { return nil }
