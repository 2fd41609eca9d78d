//go:build !linux

// Skeleton implementation for non-linux targets. The real SPI driver only
// builds on linux; elsewhere Open fails so the whole repo still compiles
// and the png driver stays usable for development.
package epd

import (
	"errors"
	"image"
)

type EPD struct{}

func Open(width, height int) (*EPD, error) {
	return nil, errors.New("epd: SPI driver is only available on linux")
}

func (d *EPD) Render(frame image.Image) error {
	return errors.New("epd: not supported on this platform")
}

func (d *EPD) Clear() error { return nil }

func (d *EPD) Close() error { return nil }
