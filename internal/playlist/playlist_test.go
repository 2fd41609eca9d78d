package playlist

import (
	"testing"
	"time"

	"inkd/internal/config"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 8, 26, hour, min, 0, 0, time.UTC)
}

func items(names ...string) []config.PlaylistItem {
	out := make([]config.PlaylistItem, 0, len(names))
	for _, n := range names {
		out = append(out, config.PlaylistItem{Name: n, Plugin: n})
	}
	return out
}

func TestAdvanceRoundRobin(t *testing.T) {
	m := New(items("a", "b", "c"), 0)
	want := []string{"b", "c", "a", "b"}
	for i, w := range want {
		it, ok := m.Advance(at(12, 0))
		if !ok {
			t.Fatalf("step %d: nothing eligible", i)
		}
		if it.Name != w {
			t.Fatalf("step %d: got %q, want %q", i, it.Name, w)
		}
	}
}

func TestAdvanceEmpty(t *testing.T) {
	m := New(nil, 0)
	if _, ok := m.Advance(at(12, 0)); ok {
		t.Fatal("empty playlist yielded an item")
	}
}

func TestAdvanceCursorSurvivesConstruction(t *testing.T) {
	// Restart with a persisted cursor resumes rotation, not restarts it.
	m := New(items("a", "b", "c"), 1)
	it, ok := m.Advance(at(12, 0))
	if !ok || it.Name != "c" {
		t.Fatalf("got %q, want c", it.Name)
	}
}

func TestAdvanceSkipsClosedWindows(t *testing.T) {
	list := []config.PlaylistItem{
		{Name: "day", Plugin: "day", Window: "08:00-20:00"},
		{Name: "night", Plugin: "night", Window: "20:00-08:00"},
		{Name: "always", Plugin: "always"},
	}
	m := New(list, 0)

	it, ok := m.Advance(at(23, 30))
	if !ok || it.Name != "night" {
		t.Fatalf("at 23:30 got %q, want night", it.Name)
	}
	it, ok = m.Advance(at(23, 31))
	if !ok || it.Name != "always" {
		t.Fatalf("at 23:31 got %q, want always", it.Name)
	}
	it, ok = m.Advance(at(9, 0))
	if !ok || it.Name != "day" {
		t.Fatalf("at 09:00 got %q, want day", it.Name)
	}
}

func TestAdvanceNothingEligible(t *testing.T) {
	m := New([]config.PlaylistItem{{Name: "day", Plugin: "day", Window: "08:00-20:00"}}, 0)
	if _, ok := m.Advance(at(3, 0)); ok {
		t.Fatal("closed window yielded an item")
	}
}

func TestApplyResetsOverflowingCursor(t *testing.T) {
	m := New(items("a", "b", "c"), 2)
	m.Apply(items("a"))
	if m.Cursor() != 0 {
		t.Fatalf("cursor = %d after shrink", m.Cursor())
	}
	it, ok := m.Advance(at(12, 0))
	if !ok || it.Name != "a" {
		t.Fatalf("got %q after shrink", it.Name)
	}
}

func TestParseWindow(t *testing.T) {
	cases := []struct {
		in         string
		start, end int
		wantErr    bool
	}{
		{"08:00-20:00", 480, 1200, false},
		{"22:00-06:00", 1320, 360, false},
		{"00:00-23:59", 0, 1439, false},
		{"8:00", 0, 0, true},
		{"25:00-26:00", 0, 0, true},
		{"08:61-09:00", 0, 0, true},
		{"ab:cd-ef:gh", 0, 0, true},
	}
	for _, tc := range cases {
		start, end, err := ParseWindow(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.in, err)
		}
		if start != tc.start || end != tc.end {
			t.Fatalf("%q: got %d-%d, want %d-%d", tc.in, start, end, tc.start, tc.end)
		}
	}
}

func TestWindowWrapsMidnight(t *testing.T) {
	cases := []struct {
		hour, min int
		want      bool
	}{
		{22, 0, true},
		{23, 59, true},
		{0, 0, true},
		{5, 59, true},
		{6, 0, false},
		{12, 0, false},
	}
	for _, tc := range cases {
		got, err := windowContains("22:00-06:00", at(tc.hour, tc.min))
		if err != nil {
			t.Fatalf("windowContains: %v", err)
		}
		if got != tc.want {
			t.Fatalf("%02d:%02d in 22:00-06:00 = %v, want %v", tc.hour, tc.min, got, tc.want)
		}
	}
}
