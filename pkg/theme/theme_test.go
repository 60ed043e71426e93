package theme_test

import (
	"path/filepath"
	"testing"

	"src.zr.sh/pkg/must"
	"src.zr.sh/pkg/theme"
	"src.zr.sh/pkg/widget"
	"src.zr.sh/pkg/wire"
)

func TestColor(t *testing.T) {
	th := theme.Default()
	tests := []struct {
		name  string
		token string
		want  uint32
	}{
		{"empty is default", "", wire.ColorDefault},
		{"literal", "#ff8000", 0x01ff8000},
		{"token", theme.TokenAccent, 0x0188c0d0},
		{"unknown token", "no-such", wire.ColorDefault},
		{"bad literal", "#zzzzzz", wire.ColorDefault},
		{"short literal", "#fff", wire.ColorDefault},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := th.Color(test.token); got != test.want {
				t.Errorf("Color(%q) = %#x, want %#x", test.token, got, test.want)
			}
		})
	}
}

func TestResolveAttrs(t *testing.T) {
	th := theme.Default()
	got := th.Resolve(widget.Style{FG: "fg", Bold: true, Underline: true})
	if got.Attrs != wire.AttrBold|wire.AttrUnderline {
		t.Errorf("Attrs = %#x, want bold|underline", got.Attrs)
	}
	if got.FG != th.Color(theme.TokenFG) || got.BG != wire.ColorDefault {
		t.Errorf("colors = %#x/%#x, want fg token and default bg", got.FG, got.BG)
	}
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dark.yaml")
	must.WriteFile(path, `
name: dark
colors:
  accent: "#ff0000"
  brand: accent
cursor:
  shape: block
`)
	th, err := theme.Load(path)
	if err != nil {
		t.Fatalf("Load -> %v", err)
	}
	if th.Name != "dark" {
		t.Errorf("Name = %q, want dark", th.Name)
	}
	if got := th.Color("accent"); got != 0x01ff0000 {
		t.Errorf("overridden accent = %#x, want #ff0000", got)
	}
	if got := th.Color("brand"); got != 0x01ff0000 {
		t.Errorf("aliased brand = %#x, want #ff0000", got)
	}
	// Tokens the file does not mention keep their defaults.
	if got := th.Color(theme.TokenError); got != theme.Default().Color(theme.TokenError) {
		t.Errorf("error token = %#x, want the built-in value", got)
	}
	if th.CursorShape() != wire.CursorBlock {
		t.Errorf("CursorShape = %v, want block", th.CursorShape())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := theme.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing file -> nil error")
	}
}
