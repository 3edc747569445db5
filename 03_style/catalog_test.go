package style

import (
	"os"
	"path/filepath"
	"testing"

	"reel-studio/types"
)

func TestCycleReturnsToStart(t *testing.T) {
	c := Default()
	for _, start := range c.Names() {
		name := start
		for i := 0; i < c.Len(); i++ {
			name = c.NextAfter(name).Name
		}
		if name != start {
			t.Fatalf("cycling %d times from %q ended at %q", c.Len(), start, name)
		}
	}
}

func TestNextAfterOrderAndWrap(t *testing.T) {
	c := Default()
	if got := c.NextAfter(ClassicSerif).Name; got != ModernYellow {
		t.Fatalf("after Classic Serif got %q", got)
	}
	if got := c.NextAfter(NeonBlue).Name; got != ClassicSerif {
		t.Fatalf("wrap: got %q", got)
	}
	if got := c.NextAfter("Comic Sans").Name; got != ClassicSerif {
		t.Fatalf("unknown name should start at index 0, got %q", got)
	}
}

func TestByNameUnknownFallsBackToRandom(t *testing.T) {
	c := Default()
	c.rng = func(n int) int { return n - 1 }

	if got := c.ByName(ModernYellow).Name; got != ModernYellow {
		t.Fatalf("known lookup got %q", got)
	}
	if got := c.ByName("missing").Name; got != NeonBlue {
		t.Fatalf("unknown lookup got %q, want the randomly picked %q", got, NeonBlue)
	}
	if _, ok := c.Lookup("missing"); ok {
		t.Fatal("Lookup should be strict")
	}
}

func TestNewRejectsBadStyles(t *testing.T) {
	cases := map[string][]types.Style{
		"empty":     nil,
		"duplicate": {{Name: "A", FontSize: 10}, {Name: "A", FontSize: 10}},
		"no size":   {{Name: "A"}},
		"negative":  {{Name: "A", FontSize: 10, StrokeWidth: -1}},
	}
	for name, styles := range cases {
		if _, err := New(styles); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestNewCopiesInput(t *testing.T) {
	in := Defaults()
	c, err := New(in)
	if err != nil {
		t.Fatal(err)
	}
	in[0].Name = "mutated"
	if c.Names()[0] != ClassicSerif {
		t.Fatal("catalog shares caller's slice")
	}
}

func TestFontPath(t *testing.T) {
	dir := t.TempDir()
	s := types.Style{Name: "x", Font: "Poppins-Bold.ttf", FontSize: 10}
	if got := FontPath(dir, s); got != "" {
		t.Fatalf("missing font should resolve to empty, got %q", got)
	}
	if err := os.WriteFile(filepath.Join(dir, s.Font), []byte("ttf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := FontPath(dir, s); got != filepath.Join(dir, s.Font) {
		t.Fatalf("got %q", got)
	}
}
