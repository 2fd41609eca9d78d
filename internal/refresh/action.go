package refresh

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"inkd/internal/config"
	"inkd/internal/playlist"
	"inkd/internal/plugin"
)

// Action produces one frame for a refresh cycle and describes what it
// produced for the ledger.
//
// Execute should be stable: the same semantic content must yield the same
// frame (and fingerprint) so redundant repaints are detected. Describe is
// only called after Execute succeeded and must not fail.
type Action interface {
	Execute(rc plugin.RenderContext, now time.Time) (image.Image, error)
	Describe() map[string]any
}

// forcePainter marks actions whose frame must reach the panel even when
// the fingerprint matches the ledger (panel clears).
type forcePainter interface {
	ForcePaint() bool
}

// ErrNoContent signals a cycle that has nothing to render (for example an
// empty playlist, or no item eligible in the current time window). The
// task treats it as a quiet no-op, not a failure.
var ErrNoContent = errors.New("refresh: no content to render")

// CursorStore persists the playlist rotation position.
type CursorStore interface {
	SetPlaylistCursor(int)
}

// ---- playlist action ----

// PlaylistAction advances the playlist and renders the next eligible item.
// This is the default periodic action.
type PlaylistAction struct {
	playlist *playlist.Manager
	plugins  *plugin.Registry
	cursor   CursorStore

	last config.PlaylistItem
}

func NewPlaylistAction(pl *playlist.Manager, reg *plugin.Registry, cursor CursorStore) *PlaylistAction {
	return &PlaylistAction{playlist: pl, plugins: reg, cursor: cursor}
}

func (a *PlaylistAction) Execute(rc plugin.RenderContext, now time.Time) (image.Image, error) {
	item, ok := a.playlist.Advance(now)
	if !ok {
		return nil, ErrNoContent
	}
	r, err := a.plugins.Get(item.Plugin)
	if err != nil {
		return nil, err
	}
	frame, err := r.Render(rc, now)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", item.Plugin, err)
	}
	a.last = item
	if a.cursor != nil {
		a.cursor.SetPlaylistCursor(a.playlist.Cursor())
	}
	return frame, nil
}

func (a *PlaylistAction) Describe() map[string]any {
	return map[string]any{
		"action":        "playlist",
		"playlist_item": a.last.Name,
		"plugin":        a.last.Plugin,
	}
}

// ---- plugin action ----

// PluginAction renders one specific plugin instance. This is what manual
// updates usually carry.
type PluginAction struct {
	name     string
	renderer plugin.Renderer
}

func NewPluginAction(name string, r plugin.Renderer) *PluginAction {
	return &PluginAction{name: name, renderer: r}
}

func (a *PluginAction) Execute(rc plugin.RenderContext, now time.Time) (image.Image, error) {
	frame, err := a.renderer.Render(rc, now)
	if err != nil {
		return nil, fmt.Errorf("plugin %q: %w", a.name, err)
	}
	return frame, nil
}

func (a *PluginAction) Describe() map[string]any {
	return map[string]any{
		"action": "plugin",
		"plugin": a.name,
	}
}

// ---- clear action ----

// ClearAction paints a blank white frame unconditionally. Used by the
// maintenance job to lift ghosting; skipping it on a matching fingerprint
// would defeat its purpose, so it forces the paint.
type ClearAction struct{}

func (ClearAction) Execute(rc plugin.RenderContext, _ time.Time) (image.Image, error) {
	out := image.NewNRGBA(image.Rect(0, 0, rc.Width, rc.Height))
	draw.Draw(out, out.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return out, nil
}

func (ClearAction) Describe() map[string]any {
	return map[string]any{"action": "clear"}
}

func (ClearAction) ForcePaint() bool { return true }
