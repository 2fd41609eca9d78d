package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const validYAML = `
timezone: Europe/Berlin
plugin_cycle_interval_seconds: 900
display:
  type: png
  width: 800
  height: 480
  orientation: vertical
plugins:
  - name: wall-clock
    type: clock
playlist:
  items:
    - name: day
      plugin: wall-clock
      window: "08:00-20:00"
`

func TestParseYAML(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "config.yml", validYAML)
	m := NewManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timezone != "Europe/Berlin" {
		t.Fatalf("timezone = %q", cfg.Timezone)
	}
	if cfg.CycleInterval() != 15*time.Minute {
		t.Fatalf("interval = %v", cfg.CycleInterval())
	}
	if w, h := cfg.Resolution(); w != 800 || h != 480 {
		t.Fatalf("resolution = %dx%d", w, h)
	}
	if cfg.Display.Orientation != "vertical" {
		t.Fatalf("orientation = %q", cfg.Display.Orientation)
	}
	if len(cfg.Playlist.Items) != 1 || cfg.Playlist.Items[0].Plugin != "wall-clock" {
		t.Fatalf("playlist = %+v", cfg.Playlist)
	}
}

func TestParseJSON(t *testing.T) {
	body := `{"display": {"width": 250, "height": 122}, "plugins": [{"name": "c", "type": "clock"}]}`
	path := writeConfig(t, t.TempDir(), "config.json", body)
	m := NewManager(path)
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Timezone != DefaultTimezone {
		t.Fatalf("default timezone = %q", cfg.Timezone)
	}
	if cfg.PluginCycleIntervalSeconds != DefaultCycleIntervalSeconds {
		t.Fatalf("default interval = %d", cfg.PluginCycleIntervalSeconds)
	}
	if cfg.Display.Type != "epd" {
		t.Fatalf("default display type = %q", cfg.Display.Type)
	}
	if cfg.Display.Orientation != DefaultOrientation {
		t.Fatalf("default orientation = %q", cfg.Display.Orientation)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	body := `{"display": {"width": 800, "height": 480}, "frobnicate": true}`
	path := writeConfig(t, t.TempDir(), "config.json", body)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestParseValidation(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"missing resolution", `{"display": {}}`, "width and height"},
		{"bad timezone", `{"timezone": "Mars/Olympus", "display": {"width": 1, "height": 1}}`, "timezone"},
		{"bad orientation", `{"display": {"width": 1, "height": 1, "orientation": "diagonal"}}`, "orientation"},
		{"duplicate plugin", `{"display": {"width": 1, "height": 1}, "plugins": [{"name": "a", "type": "clock"}, {"name": "a", "type": "blank"}]}`, "duplicate"},
		{"unknown playlist plugin", `{"display": {"width": 1, "height": 1}, "playlist": {"items": [{"name": "x", "plugin": "ghost"}]}}`, "unknown plugin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), "config.json", tc.body)
			_, err := NewManager(path).Parse()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestImageSettingsDefaults(t *testing.T) {
	body := `{"display": {"width": 1, "height": 1, "image_settings": {"brightness": 1.2}}}`
	path := writeConfig(t, t.TempDir(), "config.json", body)
	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s := cfg.Display.ImageSettings
	if s.Brightness != 1.2 {
		t.Fatalf("brightness = %v", s.Brightness)
	}
	if s.Contrast != 1.0 || s.Saturation != 1.0 || s.Sharpness != 1.0 {
		t.Fatalf("unset factors not normalized: %+v", s)
	}
}

func TestStateRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"display": {"width": 1, "height": 1}}`)

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.RefreshInfo() != nil {
		t.Fatal("fresh state has a ledger entry")
	}

	at := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)
	m.SetRefreshInfo(&RefreshInfo{RefreshTime: at, ImageHash: "abcd", Metadata: map[string]any{"action": "clear"}})
	m.SetPlaylistCursor(3)
	if err := m.WriteState(); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	// A second manager over the same paths sees the persisted state.
	m2 := NewManager(path)
	if _, err := m2.Load(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	ri := m2.RefreshInfo()
	if ri == nil || ri.ImageHash != "abcd" || !ri.RefreshTime.Equal(at) {
		t.Fatalf("ledger not restored: %+v", ri)
	}
	if m2.PlaylistCursor() != 3 {
		t.Fatalf("cursor = %d", m2.PlaylistCursor())
	}
}

func TestCorruptStateFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"display": {"width": 1, "height": 1}}`)
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write state: %v", err)
	}

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.RefreshInfo() != nil {
		t.Fatal("corrupt state produced a ledger entry")
	}
}

func TestStateNeverTouchesConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "config.json", `{"display": {"width": 1, "height": 1}}`)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}

	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetRefreshInfo(&RefreshInfo{RefreshTime: time.Now(), ImageHash: "x"})
	if err := m.WriteState(); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("persisting state modified the watched config file")
	}
}

func TestHashConfigStable(t *testing.T) {
	a := &Config{Timezone: "UTC", Display: DisplayConfig{Width: 1, Height: 1}}
	b := &Config{Timezone: "UTC", Display: DisplayConfig{Width: 1, Height: 1}}
	if hashConfig(a) != hashConfig(b) {
		t.Fatal("equal configs hash differently")
	}
	b.Timezone = "Europe/Berlin"
	if hashConfig(a) == hashConfig(b) {
		t.Fatal("different configs hash equal")
	}
}
