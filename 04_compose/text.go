package compose

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"reel-studio/types"
)

// glyphRatio approximates the advance width of a bold glyph as a fraction of
// the font size.
const glyphRatio = 0.6

const lineSpacing = 1.25

// wrapText breaks text into lines of at most width characters on word
// boundaries. Words longer than width are split.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 || width <= 0 {
		return nil
	}
	var lines []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			lines = append(lines, string(cur))
			cur = cur[:0]
		}
	}
	for _, w := range words {
		r := []rune(w)
		for len(r) > width {
			flush()
			lines = append(lines, string(r[:width]))
			r = r[width:]
		}
		switch {
		case len(cur) == 0:
			cur = append(cur, r...)
		case len(cur)+1+len(r) <= width:
			cur = append(cur, ' ')
			cur = append(cur, r...)
		default:
			flush()
			cur = append(cur, r...)
		}
	}
	flush()
	return lines
}

// fitFontSize shrinks size until the longest line fits in maxWidth pixels.
func fitFontSize(lines []string, size, maxWidth int) int {
	longest := 0
	for _, l := range lines {
		longest = max(longest, utf8.RuneCountInString(l))
	}
	if longest == 0 || maxWidth <= 0 {
		return size
	}
	est := float64(longest) * float64(size) * glyphRatio
	if est <= float64(maxWidth) {
		return size
	}
	return max(int(math.Floor(float64(maxWidth)/(float64(longest)*glyphRatio))), 8)
}

// ffmpegColor turns #RRGGBB into 0xRRGGBB and leaves color names alone
func ffmpegColor(c string) string {
	c = strings.TrimSpace(c)
	if strings.HasPrefix(c, "#") {
		return "0x" + strings.TrimPrefix(c, "#")
	}
	if c == "" {
		return "white"
	}
	return c
}

// escapeFilterValue escapes a value for use inside a filtergraph option
func escapeFilterValue(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "'", `\'`)
	s = strings.ReplaceAll(s, ":", `\:`)
	return s
}

// textLayout is the overlay for one render
type textLayout struct {
	lines    []string
	files    []string
	fontSize int
	top      int
	step     int
}

// layoutText wraps text, fits the font and writes one text file per line
// into dir. Text goes through files so quotes and colons in the quote never
// need escaping.
func layoutText(text string, st types.Style, W, H, wrapWidth, margin int, dir string) (textLayout, error) {
	lines := wrapText(text, wrapWidth)
	if len(lines) == 0 {
		return textLayout{}, fmt.Errorf("overlay text is empty")
	}
	size := fitFontSize(lines, st.FontSize, W-2*margin)
	step := int(math.Round(float64(size) * lineSpacing))

	top := st.VerticalPosition
	blockH := step * len(lines)
	if top+blockH > H-margin {
		top = max(H-margin-blockH, 0)
	}

	l := textLayout{lines: lines, fontSize: size, top: top, step: step}
	for i, line := range lines {
		path := filepath.Join(dir, fmt.Sprintf("caption_%02d.txt", i+1))
		if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
			return textLayout{}, fmt.Errorf("write caption line: %w", err)
		}
		l.files = append(l.files, path)
	}
	return l, nil
}

// drawFilters returns one centered drawtext filter per line
func (l textLayout) drawFilters(st types.Style, fontFile string) []string {
	border := int(math.Round(st.StrokeWidth))
	var out []string
	for i, file := range l.files {
		var sb strings.Builder
		fmt.Fprintf(&sb, "drawtext=textfile='%s':expansion=none", escapeFilterValue(file))
		if fontFile != "" {
			fmt.Fprintf(&sb, ":fontfile='%s'", escapeFilterValue(fontFile))
		}
		fmt.Fprintf(&sb, ":fontsize=%d:fontcolor=%s", l.fontSize, ffmpegColor(st.TextColor))
		if border > 0 {
			fmt.Fprintf(&sb, ":borderw=%d:bordercolor=%s", border, ffmpegColor(st.StrokeColor))
		}
		fmt.Fprintf(&sb, ":x=(w-text_w)/2:y=%d", l.top+i*l.step)
		out = append(out, sb.String())
	}
	return out
}
