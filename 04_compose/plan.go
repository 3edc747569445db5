package compose

import (
	"fmt"
	"math"
	"strings"
)

// Source is what ffprobe reports for the background clip
type Source struct {
	Width    int
	Height   int
	Duration float64
}

// Plan is the geometry and timing of one render, computed before ffmpeg runs.
type Plan struct {
	Target   float64 // seconds, T
	Loops    int     // -stream_loop value; 0 plays the clip once
	Prescale bool    // source taller than the frame is brought down to frame height first
	PreW     int     // dimensions after the prescale (or the source dimensions)
	PreH     int
	ScaleW   int // dimensions after the aspect-fit scale
	ScaleH   int
	CropX    int
	CropY    int
	Width    int // final frame
	Height   int
}

// loopCount returns the -stream_loop value for a clip of d seconds to cover t.
// Short clips play floor(t/d)+2 times and the output is cut at t.
func loopCount(d, t float64) int {
	if d <= 0 || d >= t {
		return 0
	}
	reps := int(math.Floor(t/d)) + 2
	return reps - 1
}

func even(n int) int {
	if n%2 != 0 {
		return n + 1
	}
	return n
}

// fit scales (w, h) so that it covers (W, H) keeping the aspect ratio.
// Wider sources scale to height H, the rest to width W. Results are even and
// never below the target.
func fit(w, h, W, H int) (int, int) {
	if w*H > W*h {
		sw := even(int(math.Ceil(float64(w) * float64(H) / float64(h))))
		return max(sw, W), H
	}
	sh := even(int(math.Ceil(float64(h) * float64(W) / float64(w))))
	return W, max(sh, H)
}

// NewPlan computes the render plan for src into a W x H frame lasting t seconds.
func NewPlan(src Source, W, H int, t float64) (Plan, error) {
	if src.Width <= 0 || src.Height <= 0 {
		return Plan{}, fmt.Errorf("background has no usable video size (%dx%d)", src.Width, src.Height)
	}
	if src.Duration <= 0 {
		return Plan{}, fmt.Errorf("background has no duration")
	}
	if t <= 0 {
		return Plan{}, fmt.Errorf("target duration must be positive, got %v", t)
	}

	p := Plan{
		Target: t,
		Loops:  loopCount(src.Duration, t),
		PreW:   src.Width,
		PreH:   src.Height,
		Width:  W,
		Height: H,
	}
	if src.Height > H {
		p.Prescale = true
		p.PreW = even(int(math.Round(float64(src.Width) * float64(H) / float64(src.Height))))
		p.PreH = H
	}
	p.ScaleW, p.ScaleH = fit(p.PreW, p.PreH, W, H)
	p.CropX = (p.ScaleW - W) / 2
	p.CropY = (p.ScaleH - H) / 2
	return p, nil
}

// videoFilters is the scale/crop part of the filter chain
func (p Plan) videoFilters() []string {
	var f []string
	if p.Prescale {
		f = append(f, fmt.Sprintf("scale=%d:%d", p.PreW, p.PreH))
	}
	f = append(f,
		fmt.Sprintf("scale=%d:%d", p.ScaleW, p.ScaleH),
		fmt.Sprintf("crop=%d:%d:%d:%d", p.Width, p.Height, p.CropX, p.CropY),
		"setsar=1",
	)
	return f
}

func (p Plan) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "T=%.2fs loops=%d", p.Target, p.Loops)
	if p.Prescale {
		fmt.Fprintf(&sb, " prescale=%dx%d", p.PreW, p.PreH)
	}
	fmt.Fprintf(&sb, " scale=%dx%d crop=%dx%d+%d+%d", p.ScaleW, p.ScaleH, p.Width, p.Height, p.CropX, p.CropY)
	return sb.String()
}
