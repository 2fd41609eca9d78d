package display

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"inkd/internal/config"
	"inkd/internal/display/epd"
	"inkd/internal/imaging"
	logx "inkd/pkg/logx"
)

// Manager owns the panel driver and applies the normalization pipeline to
// every frame: save source, orient, resize, invert, enhance, paint.
//
// A rate limiter spaces out repaints; rapid refresh shortens e-paper panel
// life, so back-to-back paints wait for the configured minimum gap.
type Manager struct {
	log logx.Logger
	drv Driver

	mu      sync.Mutex
	display config.DisplayConfig
	limiter *rate.Limiter
}

// New selects and opens the driver for the configured display type.
// Unknown types fail fast here, before any background work starts.
func New(cfg *config.Config, log logx.Logger) (*Manager, error) {
	var drv Driver
	switch strings.ToLower(strings.TrimSpace(cfg.Display.Type)) {
	case "epd":
		d, err := epd.Open(cfg.Display.Width, cfg.Display.Height)
		if err != nil {
			return nil, fmt.Errorf("open epd driver: %w", err)
		}
		drv = d
	case "png":
		drv = newPNGDriver(cfg.Display.OutputDir, cfg.Display.Width, cfg.Display.Height, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, cfg.Display.Type)
	}
	return NewWith(drv, cfg, log), nil
}

// NewWith wires an explicit driver. Tests use this to instrument paints.
func NewWith(drv Driver, cfg *config.Config, log logx.Logger) *Manager {
	m := &Manager{drv: drv, log: log}
	m.Apply(cfg)
	return m
}

// Apply picks up display settings from a (re)loaded config. The driver and
// panel resolution are fixed for the process lifetime; orientation,
// inversion, enhancement and the refresh gap are live.
func (m *Manager) Apply(cfg *config.Config) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.display = cfg.Display
	if gap := cfg.MinRefreshGapSeconds; gap > 0 {
		m.limiter = rate.NewLimiter(rate.Every(time.Duration(gap)*time.Second), 1)
	} else {
		m.limiter = nil
	}
}

// Render runs the full pipeline and paints the frame. Blocking; callers
// serialize (the refresh worker is the only caller in the daemon).
func (m *Manager) Render(ctx context.Context, src image.Image) error {
	m.mu.Lock()
	dc := m.display
	lim := m.limiter
	m.mu.Unlock()

	// Keep the raw source around for debugging and for the web of tools
	// that read the "current image" off the device.
	if dc.CurrentImageFile != "" {
		if err := imaging.Save(src, dc.CurrentImageFile); err != nil {
			m.log.Warn("saving current image failed", logx.Err(err), logx.String("path", dc.CurrentImageFile))
		}
	}

	frame := imaging.Orient(src, dc.Orientation)
	frame = imaging.Fit(frame, dc.Width, dc.Height)
	if dc.InvertedImage {
		frame = imaging.Invert(frame)
	}
	frame = imaging.Enhance(frame, dc.ImageSettings)

	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	if err := m.drv.Render(frame); err != nil {
		return &DeviceError{Op: "render", Err: err}
	}
	return nil
}

// Clear wipes the panel through the same serialization and rate gate.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	lim := m.limiter
	m.mu.Unlock()
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return err
		}
	}
	if err := m.drv.Clear(); err != nil {
		return &DeviceError{Op: "clear", Err: err}
	}
	return nil
}

func (m *Manager) Close() error { return m.drv.Close() }
