// Package theme resolves the token-based styles declared on nodes into
// the packed colors and attribute bits of the drawlist format. A theme
// is a named color table plus a handful of derived styles; themes load
// from YAML files or fall back to the built-in default.
package theme

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

// Theme maps style tokens to colors. Colors are written "#rrggbb"; a
// token may also name another token, one level deep.
type Theme struct {
	Name   string            `yaml:"name"`
	Colors map[string]string `yaml:"colors"`
	Cursor Cursor            `yaml:"cursor"`
}

// Cursor configures the emitted cursor command.
type Cursor struct {
	Shape string `yaml:"shape"` // "bar", "block" or "underline"
	Blink bool   `yaml:"blink"`
}

// Tokens every theme should define. Undefined tokens resolve to the
// terminal default color.
const (
	TokenFG          = "fg"
	TokenBG          = "bg"
	TokenAccent      = "accent"
	TokenMuted       = "muted"
	TokenError       = "error"
	TokenFocusFG     = "focus-fg"
	TokenFocusBG     = "focus-bg"
	TokenPlaceholder = "placeholder"
	TokenDivider     = "divider"
)

// Default returns the built-in theme.
func Default() *Theme {
	return &Theme{
		Name: "zr",
		Colors: map[string]string{
			TokenFG:          "#d8dee9",
			TokenBG:          "#2e3440",
			TokenAccent:      "#88c0d0",
			TokenMuted:       "#4c566a",
			TokenError:       "#bf616a",
			TokenFocusFG:     "#2e3440",
			TokenFocusBG:     "#88c0d0",
			TokenPlaceholder: "#4c566a",
			TokenDivider:     "#4c566a",
		},
		Cursor: Cursor{Shape: "bar", Blink: true},
	}
}

// Load reads a theme from a YAML file. Missing tokens inherit the
// built-in defaults, so a theme file only lists its overrides.
func Load(path string) (*Theme, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load theme: %w", err)
	}
	var overlay Theme
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("load theme %s: %w", path, err)
	}
	th := Default()
	if overlay.Name != "" {
		th.Name = overlay.Name
	}
	for token, color := range overlay.Colors {
		th.Colors[token] = color
	}
	if overlay.Cursor.Shape != "" {
		th.Cursor = overlay.Cursor
	}
	return th, nil
}

// Color resolves a token or "#rrggbb" literal to a packed wire color.
// Unknown tokens and the empty string resolve to the terminal default.
func (t *Theme) Color(token string) uint32 {
	if token == "" {
		return wire.ColorDefault
	}
	if strings.HasPrefix(token, "#") {
		return parseHex(token)
	}
	v, ok := t.Colors[token]
	if !ok {
		return wire.ColorDefault
	}
	// One level of indirection lets a theme alias tokens.
	if !strings.HasPrefix(v, "#") {
		v = t.Colors[v]
	}
	return parseHex(v)
}

func parseHex(s string) uint32 {
	if len(s) != 7 || s[0] != '#' {
		return wire.ColorDefault
	}
	var rgb uint32
	for _, c := range s[1:] {
		var d uint32
		switch {
		case c >= '0' && c <= '9':
			d = uint32(c - '0')
		case c >= 'a' && c <= 'f':
			d = uint32(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = uint32(c-'A') + 10
		default:
			return wire.ColorDefault
		}
		rgb = rgb<<4 | d
	}
	return 1<<24 | rgb
}

// Resolve turns a node's declared style into wire colors and attribute
// bits.
func (t *Theme) Resolve(s widget.Style) wire.Style {
	var attrs uint32
	if s.Bold {
		attrs |= wire.AttrBold
	}
	if s.Dim {
		attrs |= wire.AttrDim
	}
	if s.Italic {
		attrs |= wire.AttrItalic
	}
	if s.Underline {
		attrs |= wire.AttrUnderline
	}
	if s.Inverse {
		attrs |= wire.AttrInverse
	}
	return wire.Style{FG: t.Color(s.FG), BG: t.Color(s.BG), Attrs: attrs}
}

// Focus returns the style painted over the focused widget.
func (t *Theme) Focus() wire.Style {
	return wire.Style{FG: t.Color(TokenFocusFG), BG: t.Color(TokenFocusBG)}
}

// Placeholder returns the style of an empty input's placeholder text.
func (t *Theme) Placeholder() wire.Style {
	return wire.Style{FG: t.Color(TokenPlaceholder), Attrs: wire.AttrDim}
}

// CursorShape maps the configured shape name onto the wire constant.
func (t *Theme) CursorShape() wire.CursorShape {
	switch t.Cursor.Shape {
	case "block":
		return wire.CursorBlock
	case "underline":
		return wire.CursorUnderline
	}
	return wire.CursorBar
}
