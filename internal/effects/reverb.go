package effects

// Reverb is a Schroeder reverb: four damped comb filters in parallel into two
// allpass filters. Size maps to comb feedback, damping to a lowpass inside
// each comb loop. Delay lengths are fixed at construction.
type Reverb struct {
	combs   [4]dampedComb
	allpass [2]allpassFilter
	wet     float32
}

type dampedComb struct {
	buf   []float32
	pos   int
	fb    float32
	damp  float32
	state float32
}

type allpassFilter struct {
	buf []float32
	pos int
	fb  float32
}

// NewReverb creates a reverb with moderate size and no wet signal; the send
// parameters bring it in.
func NewReverb(sampleRate int) *Reverb {
	base := sampleRate / 20 // 50ms fundamental comb
	r := &Reverb{}
	combLens := [4]int{base, base * 1117 / 1000, base * 1271 / 1000, base * 1437 / 1000}
	for i := range r.combs {
		r.combs[i] = dampedComb{buf: make([]float32, combLens[i])}
	}
	apLens := [2]int{base * 347 / 1000, base * 213 / 1000}
	for i := range r.allpass {
		n := apLens[i]
		if n < 1 {
			n = 1
		}
		r.allpass[i] = allpassFilter{buf: make([]float32, n), fb: 0.5}
	}
	r.SetSize(0.5)
	r.SetDamping(0.5)
	return r
}

// SetSize maps room size onto comb feedback (longer decay for larger rooms).
func (r *Reverb) SetSize(size float32) {
	fb := 0.6 + clamp(size, 0, 1)*0.35
	for i := range r.combs {
		r.combs[i].fb = fb
	}
}

// SetDamping sets the in-loop lowpass amount; higher values darken the tail.
func (r *Reverb) SetDamping(damp float32) {
	d := clamp(damp, 0, 1) * 0.8
	for i := range r.combs {
		r.combs[i].damp = d
	}
}

func (r *Reverb) SetWet(wet float32) {
	r.wet = clamp(wet, 0, 1)
}

func (r *Reverb) Process(l, r2 float32) (float32, float32) {
	if r.wet == 0 {
		return l, r2
	}
	mono := (l + r2) * 0.5
	var out float32
	for i := range r.combs {
		out += r.combs[i].process(mono)
	}
	out *= 0.25
	for i := range r.allpass {
		out = r.allpass[i].process(out)
	}
	return l*(1-r.wet) + out*r.wet, r2*(1-r.wet) + out*r.wet
}

func (r *Reverb) Reset() {
	for i := range r.combs {
		c := &r.combs[i]
		for j := range c.buf {
			c.buf[j] = 0
		}
		c.pos = 0
		c.state = 0
	}
	for i := range r.allpass {
		a := &r.allpass[i]
		for j := range a.buf {
			a.buf[j] = 0
		}
		a.pos = 0
	}
}

func (c *dampedComb) process(in float32) float32 {
	out := c.buf[c.pos]
	c.state = out*(1-c.damp) + c.state*c.damp
	c.buf[c.pos] = in + c.state*c.fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpassFilter) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*a.fb
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
