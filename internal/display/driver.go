// Package display is the render pipeline: it normalizes frames
// (orientation, size, inversion, enhancement) and paints them through a
// concrete panel driver.
package display

import (
	"errors"
	"fmt"
	"image"
)

// ErrUnsupportedType is returned at construction for unknown display types.
// This is fatal at startup and never retried.
var ErrUnsupportedType = errors.New("unsupported display type")

// Driver paints final, panel-sized frames. Implementations do blocking
// hardware I/O and are only ever called from one goroutine at a time.
type Driver interface {
	// Render paints a frame already sized to the panel resolution.
	Render(frame image.Image) error
	// Clear wipes the panel to white (ghosting maintenance).
	Clear() error
	Close() error
}

// DeviceError wraps a driver failure so callers can distinguish panel I/O
// problems from render-side failures.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("display %s: %v", e.Op, e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }
