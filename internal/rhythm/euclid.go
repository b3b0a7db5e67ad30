// Package rhythm generates Euclidean step patterns. Each instrument slot owns
// one pattern; the audio engine asks it per step whether the track fires.
package rhythm

// Euclidean spreads a number of hits as evenly as possible across the 16-step
// pattern, with an optional rotation. The pattern is regenerated on Set, never
// during queries, so ShouldTrigger is safe on the audio thread.
type Euclidean struct {
	steps    int
	hits     int
	rotation int
	pattern  [16]bool
	velocity float32
	accent   float32
}

// New creates a pattern with the classic four-on-the-floor default.
func New() *Euclidean {
	e := &Euclidean{steps: 16, velocity: 0.8, accent: 1.0}
	e.Set(4, 0)
	return e
}

// Set regenerates the pattern for the given hit count and rotation.
func (e *Euclidean) Set(hits, rotation int) {
	if hits < 0 {
		hits = 0
	}
	if hits > e.steps {
		hits = e.steps
	}
	e.hits = hits
	e.rotation = ((rotation % e.steps) + e.steps) % e.steps

	var base [16]bool
	bucket := 0
	for i := 0; i < e.steps; i++ {
		bucket += hits
		if bucket >= e.steps {
			bucket -= e.steps
			base[i] = true
		}
	}
	for i := 0; i < e.steps; i++ {
		e.pattern[i] = base[(i+e.rotation)%e.steps]
	}
}

// SetVelocity sets the base hit velocity and the accent multiplier applied to
// the downbeat.
func (e *Euclidean) SetVelocity(velocity, accent float32) {
	e.velocity = velocity
	e.accent = accent
}

// ShouldTrigger reports whether the given step fires.
func (e *Euclidean) ShouldTrigger(step int) bool {
	if step < 0 || step >= e.steps {
		return false
	}
	return e.pattern[step]
}

// Velocity returns the hit velocity for a step, accented on step 0.
func (e *Euclidean) Velocity(step int) float32 {
	v := e.velocity
	if step == 0 {
		v *= e.accent
	}
	if v > 1 {
		v = 1
	}
	return v
}

func (e *Euclidean) Hits() int     { return e.hits }
func (e *Euclidean) Rotation() int { return e.rotation }
func (e *Euclidean) Steps() int    { return e.steps }
