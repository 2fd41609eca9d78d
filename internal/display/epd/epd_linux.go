//go:build linux

// Package epd drives a Waveshare-style SPI e-paper panel through periph.io.
package epd

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Default wiring for the common Raspberry Pi HAT layout.
const (
	rstPinName  = "GPIO17"
	dcPinName   = "GPIO25"
	busyPinName = "GPIO24"
	spiPortName = "SPI0.0"

	busyPollInterval = 10 * time.Millisecond
	busyTimeout      = 35 * time.Second // a full refresh takes tens of seconds
)

// EPD is a black/white SPI e-paper panel.
type EPD struct {
	width  int
	height int

	port spi.PortCloser
	conn spi.Conn
	rst  gpio.PinIO
	dc   gpio.PinIO
	busy gpio.PinIO
}

// Open initializes the host, claims the SPI port and control pins, and
// runs the panel init sequence.
func Open(width, height int) (*EPD, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("epd: invalid resolution %dx%d", width, height)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("epd: host init: %w", err)
	}

	port, err := spireg.Open(spiPortName)
	if err != nil {
		return nil, fmt.Errorf("epd: open %s: %w", spiPortName, err)
	}
	conn, err := port.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: spi connect: %w", err)
	}

	d := &EPD{width: width, height: height, port: port, conn: conn}
	for _, p := range []struct {
		name string
		dst  *gpio.PinIO
	}{
		{rstPinName, &d.rst},
		{dcPinName, &d.dc},
		{busyPinName, &d.busy},
	} {
		pin := gpioreg.ByName(p.name)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("epd: pin %s not found", p.name)
		}
		*p.dst = pin
	}
	if err := d.busy.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("epd: busy pin: %w", err)
	}

	if err := d.init(); err != nil {
		_ = port.Close()
		return nil, err
	}
	return d, nil
}

func (d *EPD) init() error {
	if err := d.reset(); err != nil {
		return err
	}
	// Power on, panel setting: KW mode, LUT from OTP.
	if err := d.command(0x04); err != nil { // PON
		return err
	}
	if err := d.waitIdle(); err != nil {
		return err
	}
	if err := d.command(0x00, 0x1f); err != nil { // PSR
		return err
	}
	// Resolution setting.
	return d.command(0x61,
		byte(d.width>>8), byte(d.width),
		byte(d.height>>8), byte(d.height))
}

func (d *EPD) reset() error {
	for _, lvl := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.rst.Out(lvl); err != nil {
			return fmt.Errorf("epd: reset: %w", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	return nil
}

// Render paints a full frame. The frame must already match the panel
// resolution; anything non-white maps to black.
func (d *EPD) Render(frame image.Image) error {
	b := frame.Bounds()
	if b.Dx() != d.width || b.Dy() != d.height {
		return fmt.Errorf("epd: frame is %dx%d, panel is %dx%d", b.Dx(), b.Dy(), d.width, d.height)
	}
	buf := pack1bpp(frame)
	if err := d.command(0x13, buf...); err != nil { // DTM2: new frame
		return err
	}
	return d.refresh()
}

// Clear floods the panel white.
func (d *EPD) Clear() error {
	n := (d.width + 7) / 8 * d.height
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = 0xff
	}
	if err := d.command(0x13, buf...); err != nil {
		return err
	}
	return d.refresh()
}

func (d *EPD) refresh() error {
	if err := d.command(0x12); err != nil { // DRF
		return err
	}
	time.Sleep(100 * time.Millisecond)
	return d.waitIdle()
}

// Close puts the panel into deep sleep and releases the SPI port.
// Leaving an e-paper panel powered with bias voltages applied damages it.
func (d *EPD) Close() error {
	_ = d.command(0x02) // POF
	_ = d.waitIdle()
	_ = d.command(0x07, 0xa5) // deep sleep
	return d.port.Close()
}

func (d *EPD) command(cmd byte, data ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.conn.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("epd: cmd %#02x: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	// Large frames exceed the SPI driver's per-transfer limit; chunk them.
	const chunk = 4096
	for off := 0; off < len(data); off += chunk {
		end := off + chunk
		if end > len(data) {
			end = len(data)
		}
		if err := d.conn.Tx(data[off:end], nil); err != nil {
			return fmt.Errorf("epd: data for cmd %#02x: %w", cmd, err)
		}
	}
	return nil
}

func (d *EPD) waitIdle() error {
	deadline := time.Now().Add(busyTimeout)
	for d.busy.Read() == gpio.Low {
		if time.Now().After(deadline) {
			return errors.New("epd: busy timeout")
		}
		time.Sleep(busyPollInterval)
	}
	return nil
}

// pack1bpp converts a frame to the panel's 1-bit format, one bit per
// pixel, MSB first, white = 1.
func pack1bpp(frame image.Image) []byte {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := (w + 7) / 8
	out := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.GrayModel.Convert(frame.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			if c.Y >= 0x80 {
				out[y*stride+x/8] |= 0x80 >> (x % 8)
			}
		}
	}
	return out
}
