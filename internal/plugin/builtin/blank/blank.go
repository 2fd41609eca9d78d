// Package blank renders a solid frame. Used for panel clears and as a
// trivial renderer in tests.
package blank

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"inkd/internal/plugin"
)

type Blank struct {
	fill color.Color
}

// New builds a solid-color renderer. Setting "color" defaults to white,
// which on e-paper amounts to a cleared panel.
func New(settings map[string]any) (plugin.Renderer, error) {
	fill, err := plugin.SettingColor(settings, "color", color.White)
	if err != nil {
		return nil, err
	}
	return &Blank{fill: fill}, nil
}

func (b *Blank) Type() string { return "blank" }

func (b *Blank) Render(rc plugin.RenderContext, _ time.Time) (image.Image, error) {
	out := image.NewNRGBA(image.Rect(0, 0, rc.Width, rc.Height))
	draw.Draw(out, out.Bounds(), image.NewUniform(b.fill), image.Point{}, draw.Src)
	return out, nil
}
