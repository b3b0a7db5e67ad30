package effects

// maxDelaySeconds bounds the delay line; the buffers are allocated once at
// construction so time changes never allocate on the audio thread.
const maxDelaySeconds = 1.0

// Delay is a stereo delay with feedback. The delay time, feedback and wet mix
// are runtime-settable from the normalized delay parameters.
type Delay struct {
	bufL, bufR []float32
	pos        int
	length     int // current tap distance in samples
	sampleRate int
	feedback   float32
	wet        float32
}

// NewDelay creates a delay sized for maxDelaySeconds at the given rate.
func NewDelay(sampleRate int) *Delay {
	size := int(maxDelaySeconds * float64(sampleRate))
	return &Delay{
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		length:     size / 4,
		sampleRate: sampleRate,
		feedback:   0.35,
		wet:        0,
	}
}

// SetTime maps a normalized 0..1 value onto 10ms..maxDelaySeconds.
func (d *Delay) SetTime(norm float32) {
	norm = clamp(norm, 0, 1)
	minSamples := d.sampleRate / 100
	span := len(d.bufL) - 1 - minSamples
	d.length = minSamples + int(norm*float32(span))
}

func (d *Delay) SetFeedback(fb float32) {
	d.feedback = clamp(fb, 0, 0.95)
}

func (d *Delay) SetWet(wet float32) {
	d.wet = clamp(wet, 0, 1)
}

func (d *Delay) Process(l, r float32) (float32, float32) {
	tap := d.pos - d.length
	if tap < 0 {
		tap += len(d.bufL)
	}
	delL := d.bufL[tap]
	delR := d.bufR[tap]
	d.bufL[d.pos] = l + delL*d.feedback
	d.bufR[d.pos] = r + delR*d.feedback
	d.pos++
	if d.pos >= len(d.bufL) {
		d.pos = 0
	}
	return l*(1-d.wet) + delL*d.wet, r*(1-d.wet) + delR*d.wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
