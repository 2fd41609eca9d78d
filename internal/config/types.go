package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the device configuration read from the watched config file
// (YAML or JSON). The daemon never writes this file back; mutable runtime
// state lives in the state file (see state.go).
type Config struct {
	// Timezone is an IANA zone name used for all wall-clock decisions
	// (refresh timestamps, playlist windows, maintenance cron).
	Timezone string `json:"timezone,omitempty"`

	// PluginCycleIntervalSeconds is the periodic refresh interval.
	// Defaults to one hour.
	PluginCycleIntervalSeconds int `json:"plugin_cycle_interval_seconds,omitempty"`

	// MinRefreshGapSeconds throttles panel repaints. E-paper panels degrade
	// under rapid refresh, so back-to-back paints are spaced out.
	MinRefreshGapSeconds int `json:"min_refresh_gap_seconds,omitempty"`

	// FullClearCron schedules a full panel clear (ghosting maintenance).
	// Standard 5-field cron spec; empty disables the job.
	FullClearCron string `json:"full_clear_cron,omitempty"`

	// Startup renders a splash frame once at boot.
	Startup bool `json:"startup,omitempty"`

	// StateFile overrides the default state file location
	// (<config dir>/inkd.state.json).
	StateFile string `json:"state_file,omitempty"`

	Display  DisplayConfig   `json:"display"`
	Logging  LoggingConfig   `json:"logging"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Notify   *NotifyConfig   `json:"notify,omitempty"`
	SysStats *SysStatsConfig `json:"sysstats,omitempty"`

	Plugins  []PluginConfig `json:"plugins,omitempty"`
	Playlist PlaylistConfig `json:"playlist"`
}

type DisplayConfig struct {
	// Type selects the driver: "epd" (SPI e-paper) or "png" (file output,
	// development). Anything else fails fast at startup.
	Type string `json:"type,omitempty"`

	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`

	// Orientation is "horizontal" or "vertical".
	Orientation string `json:"orientation,omitempty"`

	// InvertedImage rotates the final frame 180 degrees (panel mounted
	// upside down).
	InvertedImage bool `json:"inverted_image,omitempty"`

	// CurrentImageFile is where the last rendered source image is saved
	// before pipeline transforms are applied.
	CurrentImageFile string `json:"current_image_file,omitempty"`

	// OutputDir receives frames when the png driver is active.
	OutputDir string `json:"output_dir,omitempty"`

	ImageSettings ImageSettings `json:"image_settings"`
}

// ImageSettings are enhancement factors applied to the final frame.
// 1.0 means unchanged; zero values are normalized to 1.0.
type ImageSettings struct {
	Brightness float64 `json:"brightness,omitempty"`
	Contrast   float64 `json:"contrast,omitempty"`
	Saturation float64 `json:"saturation,omitempty"`
	Sharpness  float64 `json:"sharpness,omitempty"`
}

type LoggingConfig struct {
	Level   string            `json:"level,omitempty"`
	Console bool              `json:"console,omitempty"`
	File    LoggingFileConfig `json:"file"`
}

type LoggingFileConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig selects the refresh-history backend.
// Driver is "file", "sqlite" or "none"/empty (disabled).
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// NotifyConfig enables Telegram alerts for failed periodic refreshes.
type NotifyConfig struct {
	Enabled     bool   `json:"enabled,omitempty"`
	Token       string `json:"token,omitempty"`
	ChatID      int64  `json:"chat_id,omitempty"`
	MinInterval string `json:"min_interval,omitempty"`
}

type SysStatsConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	Interval string `json:"interval,omitempty"`
}

type PluginConfig struct {
	// Name is the instance name referenced by playlist items.
	Name string `json:"name"`
	// Type is the registered renderer type (clock, imagefolder, blank, ...).
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings,omitempty"`
}

type PlaylistConfig struct {
	Items []PlaylistItem `json:"items,omitempty"`
}

type PlaylistItem struct {
	Name   string `json:"name"`
	Plugin string `json:"plugin"`
	// Window restricts the item to a daily time range, "HH:MM-HH:MM".
	// Empty means always eligible.
	Window string `json:"window,omitempty"`
}

const (
	DefaultCycleIntervalSeconds = 60 * 60
	DefaultTimezone             = "UTC"
	DefaultOrientation          = "horizontal"
)

// Normalize fills defaults and validates cross-field constraints.
// It runs on every successful parse, before commit/publish.
func (c *Config) Normalize() error {
	if strings.TrimSpace(c.Timezone) == "" {
		c.Timezone = DefaultTimezone
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: unknown zone %q: %w", c.Timezone, err)
	}
	if c.PluginCycleIntervalSeconds <= 0 {
		c.PluginCycleIntervalSeconds = DefaultCycleIntervalSeconds
	}
	if c.MinRefreshGapSeconds < 0 {
		return fmt.Errorf("min_refresh_gap_seconds: must be >= 0")
	}

	if strings.TrimSpace(c.Display.Type) == "" {
		c.Display.Type = "epd"
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display: width and height are required")
	}
	switch c.Display.Orientation {
	case "":
		c.Display.Orientation = DefaultOrientation
	case "horizontal", "vertical":
	default:
		return fmt.Errorf("display.orientation: %q is not horizontal or vertical", c.Display.Orientation)
	}
	c.Display.ImageSettings.normalize()

	names := map[string]bool{}
	for i, p := range c.Plugins {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("plugins[%d]: name is required", i)
		}
		if strings.TrimSpace(p.Type) == "" {
			return fmt.Errorf("plugins[%d] (%s): type is required", i, p.Name)
		}
		if names[p.Name] {
			return fmt.Errorf("plugins[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true
	}
	for i, it := range c.Playlist.Items {
		if !names[it.Plugin] {
			return fmt.Errorf("playlist.items[%d] (%s): unknown plugin %q", i, it.Name, it.Plugin)
		}
	}
	return nil
}

func (s *ImageSettings) normalize() {
	if s.Brightness == 0 {
		s.Brightness = 1.0
	}
	if s.Contrast == 0 {
		s.Contrast = 1.0
	}
	if s.Saturation == 0 {
		s.Saturation = 1.0
	}
	if s.Sharpness == 0 {
		s.Sharpness = 1.0
	}
}

// CycleInterval returns the periodic refresh interval as a duration.
func (c *Config) CycleInterval() time.Duration {
	s := c.PluginCycleIntervalSeconds
	if s <= 0 {
		s = DefaultCycleIntervalSeconds
	}
	return time.Duration(s) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	if loc, err := time.LoadLocation(c.Timezone); err == nil {
		return loc
	}
	return time.UTC
}

// Resolution returns the panel size in pixels.
func (c *Config) Resolution() (width, height int) {
	return c.Display.Width, c.Display.Height
}
