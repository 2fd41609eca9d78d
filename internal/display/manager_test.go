package display

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"
	"testing"
	"time"

	"inkd/internal/config"
	logx "inkd/pkg/logx"
)

type mockDriver struct {
	frames   []image.Image
	clears   int
	renderFn func(image.Image) error
}

func (d *mockDriver) Render(frame image.Image) error {
	if d.renderFn != nil {
		if err := d.renderFn(frame); err != nil {
			return err
		}
	}
	d.frames = append(d.frames, frame)
	return nil
}

func (d *mockDriver) Clear() error {
	d.clears++
	return nil
}

func (d *mockDriver) Close() error { return nil }

func testConfig(w, h int) *config.Config {
	cfg := &config.Config{
		Timezone: "UTC",
		Display:  config.DisplayConfig{Type: "png", Width: w, Height: h},
	}
	cfg.Display.ImageSettings = config.ImageSettings{Brightness: 1, Contrast: 1, Saturation: 1, Sharpness: 1}
	return cfg
}

func sample(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	return img
}

func TestNewRejectsUnknownType(t *testing.T) {
	cfg := testConfig(10, 10)
	cfg.Display.Type = "hdmi"
	_, err := New(cfg, logx.Nop())
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

func TestRenderNormalizesToPanelSize(t *testing.T) {
	drv := &mockDriver{}
	m := NewWith(drv, testConfig(40, 20), logx.Nop())

	if err := m.Render(context.Background(), sample(100, 100)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(drv.frames) != 1 {
		t.Fatalf("driver got %d frames", len(drv.frames))
	}
	b := drv.frames[0].Bounds()
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("panel frame is %dx%d, want 40x20", b.Dx(), b.Dy())
	}
}

func TestRenderVerticalOrientation(t *testing.T) {
	cfg := testConfig(40, 20)
	cfg.Display.Orientation = "vertical"
	drv := &mockDriver{}
	m := NewWith(drv, cfg, logx.Nop())

	if err := m.Render(context.Background(), sample(20, 40)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	b := drv.frames[0].Bounds()
	if b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("rotated frame is %dx%d, want 40x20", b.Dx(), b.Dy())
	}
}

func TestRenderWrapsDriverError(t *testing.T) {
	boom := errors.New("busy line stuck")
	drv := &mockDriver{renderFn: func(image.Image) error { return boom }}
	m := NewWith(drv, testConfig(10, 10), logx.Nop())

	err := m.Render(context.Background(), sample(10, 10))
	var de *DeviceError
	if !errors.As(err, &de) {
		t.Fatalf("expected DeviceError, got %v", err)
	}
	if de.Op != "render" || !errors.Is(err, boom) {
		t.Fatalf("wrapped error lost detail: %v", err)
	}
}

func TestRenderSavesCurrentImage(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(10, 10)
	cfg.Display.CurrentImageFile = filepath.Join(dir, "current.png")
	drv := &mockDriver{}
	m := NewWith(drv, cfg, logx.Nop())

	if err := m.Render(context.Background(), sample(10, 10)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(cfg.Display.CurrentImageFile); err != nil {
		t.Fatalf("current image not saved: %v", err)
	}
}

func TestRefreshGapHonorsContext(t *testing.T) {
	cfg := testConfig(10, 10)
	cfg.MinRefreshGapSeconds = 3600
	drv := &mockDriver{}
	m := NewWith(drv, cfg, logx.Nop())

	// First paint consumes the limiter token.
	if err := m.Render(context.Background(), sample(10, 10)); err != nil {
		t.Fatalf("first render: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := m.Render(ctx, sample(10, 10))
	if err == nil {
		t.Fatal("second render inside the gap should block until ctx expires")
	}
	if len(drv.frames) != 1 {
		t.Fatalf("gated frame reached the driver: %d frames", len(drv.frames))
	}
}

func TestClear(t *testing.T) {
	drv := &mockDriver{}
	m := NewWith(drv, testConfig(10, 10), logx.Nop())
	if err := m.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if drv.clears != 1 {
		t.Fatalf("clears = %d", drv.clears)
	}
}

func TestPNGDriverWritesFrames(t *testing.T) {
	dir := t.TempDir()
	d := newPNGDriver(dir, 10, 10, logx.Nop())
	if err := d.Render(sample(10, 10)); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "latest.png")); err != nil {
		t.Fatalf("latest.png missing: %v", err)
	}
	if err := d.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
}
