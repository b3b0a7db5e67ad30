package modulation

import "math"

// Shape selects the LFO waveform.
type Shape int

const (
	ShapeSaw Shape = iota
	ShapeSquare
	ShapeTriangle
	ShapeSampleHold
)

// ShapeFromParam maps the normalized lfo_shape parameter onto a Shape.
func ShapeFromParam(v float32) Shape {
	s := Shape(v * 3.99)
	if s < ShapeSaw || s > ShapeSampleHold {
		return ShapeTriangle
	}
	return s
}

// LFO is a block-rate low-frequency oscillator. Tick advances it by a whole
// buffer of samples at once and returns the value at the new phase; per-sample
// smoothness is not needed because targets are continuous macro parameters.
type LFO struct {
	rateHz float64
	shape  Shape
	phase  float64
	held   float64 // sample-and-hold value
	seed   uint32
}

func (l *LFO) SetRate(rateHz float64) {
	if rateHz < 0 {
		rateHz = 0
	}
	l.rateHz = rateHz
}

func (l *LFO) SetShape(s Shape) {
	l.shape = s
}

// Tick advances the LFO by n samples and returns its value in [-1, 1].
func (l *LFO) Tick(n int, sampleRate float64) float64 {
	if l.rateHz == 0 || sampleRate == 0 {
		return 0
	}
	prev := l.phase
	l.phase += l.rateHz * float64(n) / sampleRate
	for l.phase >= 1 {
		l.phase -= 1
	}
	if l.shape == ShapeSampleHold && l.phase < prev {
		l.held = l.nextRandom()
	}

	switch l.shape {
	case ShapeSaw:
		return 1 - 2*l.phase
	case ShapeSquare:
		if l.phase < 0.5 {
			return 1
		}
		return -1
	case ShapeSampleHold:
		return l.held
	default: // triangle
		if l.phase < 0.5 {
			return 4*l.phase - 1
		}
		return 3 - 4*l.phase
	}
}

// Reset zeroes the phase and hold state.
func (l *LFO) Reset() {
	l.phase = 0
	l.held = 0
	l.seed = 0
}

// nextRandom is a small xorshift kept local so ticks never touch a shared
// RNG from the audio thread.
func (l *LFO) nextRandom() float64 {
	if l.seed == 0 {
		l.seed = 0x9E3779B9
	}
	l.seed ^= l.seed << 13
	l.seed ^= l.seed >> 17
	l.seed ^= l.seed << 5
	return float64(l.seed)/float64(math.MaxUint32)*2 - 1
}
