package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "inkd/pkg/logx"
)

// RefreshInfo is the ledger entry for the last completed refresh.
// Instances are immutable; the refresh task replaces the whole entry
// after each completed cycle.
type RefreshInfo struct {
	RefreshTime time.Time      `json:"refresh_time"`
	ImageHash   string         `json:"image_hash"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// State is the daemon-owned mutable state, persisted to a JSON file next
// to the config. Kept separate from the watched config file so that
// fsnotify never observes our own writes.
type State struct {
	RefreshInfo    *RefreshInfo `json:"refresh_info,omitempty"`
	PlaylistCursor int          `json:"playlist_cursor,omitempty"`
}

const stateFileName = "inkd.state.json"

func (m *Manager) statePathFor(cfg *Config) string {
	if cfg != nil && strings.TrimSpace(cfg.StateFile) != "" {
		return cfg.StateFile
	}
	return filepath.Join(filepath.Dir(m.path), stateFileName)
}

func (m *Manager) loadState(cfg *Config) error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	m.statePath = m.statePathFor(cfg)
	b, err := os.ReadFile(m.statePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			m.state = State{}
			return nil
		}
		return err
	}
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		// A corrupt state file should not brick the daemon; start fresh.
		if !m.log.IsZero() {
			m.log.Warn("state file unreadable; starting with empty state", logx.Err(err), logx.String("path", m.statePath))
		}
		m.state = State{}
		return nil
	}
	m.state = st
	return nil
}

// RefreshInfo returns the persisted ledger entry, or nil when no refresh
// has completed yet.
func (m *Manager) RefreshInfo() *RefreshInfo {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state.RefreshInfo
}

// SetRefreshInfo replaces the ledger entry in memory. Call WriteState to
// persist.
func (m *Manager) SetRefreshInfo(ri *RefreshInfo) {
	m.stateMu.Lock()
	m.state.RefreshInfo = ri
	m.stateMu.Unlock()
}

func (m *Manager) PlaylistCursor() int {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.state.PlaylistCursor
}

func (m *Manager) SetPlaylistCursor(i int) {
	m.stateMu.Lock()
	m.state.PlaylistCursor = i
	m.stateMu.Unlock()
}

// WriteState persists the state file atomically (temp file + rename).
func (m *Manager) WriteState() error {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()

	if m.statePath == "" {
		m.statePath = m.statePathFor(m.Get())
	}
	b, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return err
	}
	dir := filepath.Dir(m.statePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".inkd-state-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, m.statePath)
}
