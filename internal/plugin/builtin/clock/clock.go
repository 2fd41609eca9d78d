// Package clock renders the current time and date as a frame.
package clock

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	img "github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"inkd/internal/plugin"
)

type Clock struct {
	bg       color.Color
	fg       color.Color
	layout   string
	showDate bool
}

// New builds a clock renderer.
//
// Settings:
//   - background, foreground: color ("#rrggbb", "white", "black")
//   - layout: Go time layout for the big line (default "15:04")
//   - show_date: render a smaller date line (default true)
func New(settings map[string]any) (plugin.Renderer, error) {
	bg, err := plugin.SettingColor(settings, "background", color.White)
	if err != nil {
		return nil, err
	}
	fg, err := plugin.SettingColor(settings, "foreground", color.Black)
	if err != nil {
		return nil, err
	}
	return &Clock{
		bg:       bg,
		fg:       fg,
		layout:   plugin.SettingString(settings, "layout", "15:04"),
		showDate: plugin.SettingBool(settings, "show_date", true),
	}, nil
}

func (c *Clock) Type() string { return "clock" }

func (c *Clock) Render(rc plugin.RenderContext, now time.Time) (image.Image, error) {
	canvas := image.NewNRGBA(image.Rect(0, 0, rc.Width, rc.Height))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(c.bg), image.Point{}, draw.Src)

	local := now
	if rc.Location != nil {
		local = now.In(rc.Location)
	}

	// The big line fills roughly two thirds of the panel width.
	timeLine := renderLine(local.Format(c.layout), c.fg, c.bg)
	big := scaleToWidth(timeLine, rc.Width*2/3)
	cx := (rc.Width - big.Bounds().Dx()) / 2
	cy := (rc.Height - big.Bounds().Dy()) / 2
	if c.showDate {
		cy -= rc.Height / 10
	}
	draw.Draw(canvas, big.Bounds().Add(image.Pt(cx, cy)), big, image.Point{}, draw.Over)

	if c.showDate {
		dateLine := renderLine(local.Format("Monday, 2 January 2006"), c.fg, c.bg)
		small := scaleToWidth(dateLine, rc.Width/2)
		dx := (rc.Width - small.Bounds().Dx()) / 2
		dy := cy + big.Bounds().Dy() + rc.Height/12
		draw.Draw(canvas, small.Bounds().Add(image.Pt(dx, dy)), small, image.Point{}, draw.Over)
	}

	return canvas, nil
}

// renderLine rasterizes text with the bitmap face at native size. Scaling
// happens afterwards; the blocky upscale suits 1-bit e-paper panels.
func renderLine(text string, fg, bg color.Color) *image.NRGBA {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	h := face.Metrics().Height.Ceil()
	out := image.NewNRGBA(image.Rect(0, 0, w+2, h+2))
	draw.Draw(out, out.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  out,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(1, face.Metrics().Ascent.Ceil()+1),
	}
	d.DrawString(text)
	return out
}

func scaleToWidth(src *image.NRGBA, width int) *image.NRGBA {
	if width <= 0 || src.Bounds().Dx() == 0 {
		return src
	}
	return img.Resize(src, width, 0, img.NearestNeighbor)
}
