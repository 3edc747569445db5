// Package progress carries fractional progress from long-running steps
// (downloads, encodes) to whatever is drawing a progress bar.
//
// Producers always report in 0..1 for their own work. Callers decide where
// that work sits on the overall scale by wrapping the sink with Range.
package progress

// Sink receives progress updates in the range 0..1
type Sink interface {
	Report(fraction float64)
}

// Func adapts a plain function to a Sink
type Func func(fraction float64)

func (f Func) Report(fraction float64) {
	if f != nil {
		f(fraction)
	}
}

type nop struct{}

func (nop) Report(float64) {}

// Nop returns a sink that drops every update
func Nop() Sink { return nop{} }

// OrNop returns s, or a no-op sink when s is nil
func OrNop(s Sink) Sink {
	if s == nil {
		return nop{}
	}
	return s
}

type ranged struct {
	parent Sink
	lo, hi float64
}

// Range maps 0..1 reports onto [lo, hi] of the parent sink.
// A nil parent yields a no-op sink.
func Range(parent Sink, lo, hi float64) Sink {
	if parent == nil {
		return nop{}
	}
	return ranged{parent: parent, lo: Clamp(lo), hi: Clamp(hi)}
}

func (r ranged) Report(fraction float64) {
	r.parent.Report(r.lo + (r.hi-r.lo)*Clamp(fraction))
}

// Clamp bounds f to 0..1
func Clamp(f float64) float64 {
	switch {
	case f != f: // NaN
		return 0
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
