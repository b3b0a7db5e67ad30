// Package modulation owns the global LFOs and the route table that feeds
// their output into parameter writes. The audio engine calls Process once per
// buffer; everything below runs on the audio thread.
package modulation

import "github.com/lachlanfysh/ether-sub007/internal/synth"

// maxRoutes bounds the route table so Process never allocates.
const maxRoutes = 32

// ApplyFunc delivers a modulated parameter value to its target. The engine
// supplies a function that writes straight into the instrument slot, since
// Process already runs on the audio thread.
type ApplyFunc func(target synth.Color, id synth.ParameterID, value float32)

type route struct {
	used   bool
	target synth.Color
	param  synth.ParameterID
	base   float32
	depth  float32
	lfo    LFO
}

// Matrix is the global modulation matrix.
type Matrix struct {
	routes     [maxRoutes]route
	sampleRate float64
	apply      ApplyFunc
}

// NewMatrix creates an empty matrix delivering values through apply.
func NewMatrix(sampleRate int, apply ApplyFunc) *Matrix {
	return &Matrix{sampleRate: float64(sampleRate), apply: apply}
}

// AddRoute installs a modulation route: value = clamp(base + lfo*depth).
// Returns the route index, or -1 when the table is full.
func (m *Matrix) AddRoute(target synth.Color, id synth.ParameterID, base, depth float32, rateHz float64, shape Shape) int {
	for i := range m.routes {
		if m.routes[i].used {
			continue
		}
		r := &m.routes[i]
		*r = route{used: true, target: target, param: id, base: base, depth: depth}
		r.lfo.SetRate(rateHz)
		r.lfo.SetShape(shape)
		return i
	}
	return -1
}

// RemoveRoute frees a route slot. Out-of-range indices are ignored.
func (m *Matrix) RemoveRoute(index int) {
	if index >= 0 && index < len(m.routes) {
		m.routes[index] = route{}
	}
}

// SetRouteBase updates the unmodulated center value of a route, typically
// when the underlying parameter is written directly.
func (m *Matrix) SetRouteBase(index int, base float32) {
	if index >= 0 && index < len(m.routes) && m.routes[index].used {
		m.routes[index].base = base
	}
}

// Process ticks every route by one buffer and pushes the modulated values out.
func (m *Matrix) Process() {
	if m.apply == nil {
		return
	}
	for i := range m.routes {
		r := &m.routes[i]
		if !r.used {
			continue
		}
		v := r.lfo.Tick(synth.BufferFrames, m.sampleRate)
		value := synth.ClampParam(r.param, r.base+float32(v)*r.depth)
		m.apply(r.target, r.param, value)
	}
}

// RouteCount returns the number of installed routes.
func (m *Matrix) RouteCount() int {
	n := 0
	for i := range m.routes {
		if m.routes[i].used {
			n++
		}
	}
	return n
}
