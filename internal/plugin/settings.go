package plugin

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Settings helpers. Plugin settings arrive as map[string]any straight from
// the config decoder, so numbers may be float64 (JSON) or int (YAML).

func SettingString(m map[string]any, key, def string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return def
}

func SettingInt(m map[string]any, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

func SettingBool(m map[string]any, key string, def bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return def
}

// SettingColor parses "#rgb", "#rrggbb" or a few named colors.
func SettingColor(m map[string]any, key string, def color.Color) (color.Color, error) {
	raw := SettingString(m, key, "")
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "white":
		return color.White, nil
	case "black":
		return color.Black, nil
	}
	s := strings.TrimPrefix(raw, "#")
	var r, g, b uint8
	switch len(s) {
	case 3:
		n, err := strconv.ParseUint(s, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid color %q", key, raw)
		}
		r = uint8((n >> 8 & 0xf) * 17)
		g = uint8((n >> 4 & 0xf) * 17)
		b = uint8((n & 0xf) * 17)
	case 6:
		n, err := strconv.ParseUint(s, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("%s: invalid color %q", key, raw)
		}
		r = uint8(n >> 16)
		g = uint8(n >> 8)
		b = uint8(n)
	default:
		return nil, fmt.Errorf("%s: invalid color %q", key, raw)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}
