// Package playlist decides which configured item the periodic refresh
// renders next.
package playlist

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"inkd/internal/config"
)

// Manager holds the ordered playlist and a rotation cursor. The cursor is
// persisted by the caller (state file) so rotation survives restarts.
type Manager struct {
	mu     sync.Mutex
	items  []config.PlaylistItem
	cursor int
}

func New(items []config.PlaylistItem, cursor int) *Manager {
	m := &Manager{items: append([]config.PlaylistItem(nil), items...)}
	if len(m.items) > 0 {
		m.cursor = ((cursor % len(m.items)) + len(m.items)) % len(m.items)
	}
	return m
}

// Apply replaces the playlist on config reload. The cursor resets when the
// list shrinks below it.
func (m *Manager) Apply(items []config.PlaylistItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append([]config.PlaylistItem(nil), items...)
	if len(m.items) == 0 || m.cursor >= len(m.items) {
		m.cursor = 0
	}
}

func (m *Manager) Cursor() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Advance moves to the next item whose window contains now, wrapping
// round-robin from the current cursor. Returns false when the playlist is
// empty or nothing is eligible right now.
func (m *Manager) Advance(now time.Time) (config.PlaylistItem, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.items)
	if n == 0 {
		return config.PlaylistItem{}, false
	}
	for step := 1; step <= n; step++ {
		idx := (m.cursor + step) % n
		it := m.items[idx]
		ok, err := windowContains(it.Window, now)
		if err != nil {
			// Window validity is checked at config parse; treat a bad one
			// as never eligible rather than stalling rotation.
			continue
		}
		if ok {
			m.cursor = idx
			return it, true
		}
	}
	return config.PlaylistItem{}, false
}

// windowContains reports whether now's local time of day falls in the
// daily window "HH:MM-HH:MM". Windows may wrap midnight ("22:00-06:00").
// An empty window is always open.
func windowContains(window string, now time.Time) (bool, error) {
	if strings.TrimSpace(window) == "" {
		return true, nil
	}
	start, end, err := ParseWindow(window)
	if err != nil {
		return false, err
	}
	cur := now.Hour()*60 + now.Minute()
	if start <= end {
		return cur >= start && cur < end, nil
	}
	// wraps midnight
	return cur >= start || cur < end, nil
}

// ParseWindow parses "HH:MM-HH:MM" into minutes since midnight.
func ParseWindow(window string) (start, end int, err error) {
	parts := strings.Split(window, "-")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid window %q, expected HH:MM-HH:MM", window)
	}
	start, err = parseHHMM(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window %q: %w", window, err)
	}
	end, err = parseHHMM(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid window %q: %w", window, err)
	}
	return start, end, nil
}

func parseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h*60 + m, nil
}
