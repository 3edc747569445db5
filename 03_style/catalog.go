// Package style holds the fixed, ordered set of text overlay presets.
//
// Order matters: CycleStyle walks the catalog with NextAfter and wraps at the
// end. Lookups never fail. An unknown name from ByName yields a random style so
// a stale or hand-edited selection still renders something.
package style

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"

	"reel-studio/types"
)

const (
	ClassicSerif = "Classic Serif"
	ModernYellow = "Modern Yellow"
	CleanCream   = "Clean Cream"
	NeonBlue     = "Neon Blue"
)

// Defaults are sized for a 720x1280 frame
func Defaults() []types.Style {
	return []types.Style{
		{Name: ClassicSerif, Font: "bold_font.ttf", TextColor: "white", StrokeColor: "black", StrokeWidth: 3, FontSize: 47, VerticalPosition: 567},
		{Name: ModernYellow, Font: "Poppins-Bold.ttf", TextColor: "#FFD700", StrokeColor: "black", StrokeWidth: 2, FontSize: 45, VerticalPosition: 600},
		{Name: CleanCream, Font: "bold_font.ttf", TextColor: "#FFFDD0", StrokeColor: "#333333", StrokeWidth: 1, FontSize: 48, VerticalPosition: 567},
		{Name: NeonBlue, Font: "Poppins-Bold.ttf", TextColor: "#00FFFF", StrokeColor: "#000000", StrokeWidth: 2, FontSize: 47, VerticalPosition: 567},
	}
}

type Catalog struct {
	styles []types.Style
	index  map[string]int
	rng    func(n int) int
}

// New builds a catalog from styles in cycle order. Names must be unique.
func New(styles []types.Style) (*Catalog, error) {
	if len(styles) == 0 {
		return nil, fmt.Errorf("style catalog is empty")
	}
	c := &Catalog{
		styles: make([]types.Style, len(styles)),
		index:  make(map[string]int, len(styles)),
		rng:    rand.IntN,
	}
	copy(c.styles, styles)
	for i, s := range c.styles {
		if s.Name == "" {
			return nil, fmt.Errorf("style %d has no name", i)
		}
		if _, dup := c.index[s.Name]; dup {
			return nil, fmt.Errorf("duplicate style name %q", s.Name)
		}
		if s.FontSize <= 0 {
			return nil, fmt.Errorf("style %q: font size must be positive", s.Name)
		}
		if s.StrokeWidth < 0 {
			return nil, fmt.Errorf("style %q: stroke width must not be negative", s.Name)
		}
		c.index[s.Name] = i
	}
	return c, nil
}

// Default is the built-in four-style catalog
func Default() *Catalog {
	c, err := New(Defaults())
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) Len() int { return len(c.styles) }

func (c *Catalog) Names() []string {
	names := make([]string, len(c.styles))
	for i, s := range c.styles {
		names[i] = s.Name
	}
	return names
}

// Lookup is the strict variant of ByName
func (c *Catalog) Lookup(name string) (types.Style, bool) {
	i, ok := c.index[name]
	if !ok {
		return types.Style{}, false
	}
	return c.styles[i], true
}

// ByName returns the named style, or a random one when name is unknown.
func (c *Catalog) ByName(name string) types.Style {
	if s, ok := c.Lookup(name); ok {
		return s
	}
	return c.Random()
}

// NextAfter returns the style following name, wrapping to the first.
// An unknown name starts the cycle at index 0.
func (c *Catalog) NextAfter(name string) types.Style {
	i, ok := c.index[name]
	if !ok {
		return c.styles[0]
	}
	return c.styles[(i+1)%len(c.styles)]
}

func (c *Catalog) Random() types.Style {
	return c.styles[c.rng(len(c.styles))]
}

// FontPath resolves a style's font inside dir. It returns "" when the file is
// absent so the renderer falls back to ffmpeg's default font.
func FontPath(dir string, s types.Style) string {
	if s.Font == "" {
		return ""
	}
	path := s.Font
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, s.Font)
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}
