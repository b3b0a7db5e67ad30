package tides

import (
	"math"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

const twoPi = math.Pi * 2

// oscParams is the slope-shaper state derived from the harmonics macro.
type oscParams struct {
	slopeRise float64 // 0 = smooth, 1 = sharp
	slopeFall float64
	symmetry  float64 // rise/fall split point
	fold      float64 // waveform folding amount
}

func (p *oscParams) deriveFromHarmonics(h float64) {
	p.slopeRise = h
	p.slopeFall = h
	p.symmetry = 0.3 + h*0.4
	p.fold = h * 0.5
}

// material selects one of the six sonic-character filter voicings.
type material int

const (
	materialWood material = iota
	materialMetal
	materialGlass
	materialString
	materialMembrane
	materialAir

	materialCount
)

var materialNames = [materialCount]string{
	"wood", "metal", "glass", "string", "membrane", "air",
}

func (m material) String() string {
	if m >= 0 && m < materialCount {
		return materialNames[m]
	}
	return "unknown"
}

// freqMaterial is the second-oscillator tuning and material blend derived from
// the timbre macro. The first half of the macro sweeps the frequency ratio,
// the second half walks through the material bank.
type freqMaterial struct {
	material material
	ratio    float64 // oscillator B frequency multiple, 0.25..4
	harmonic bool
	amount   float64 // material character blend 0..1
}

func (m *freqMaterial) deriveFromTimbre(t float64) {
	m.material = materialWood
	if t < 0.5 {
		m.ratio = 0.25 * math.Pow(16, t*2)
		m.amount = 0.3
		m.harmonic = true
		return
	}
	mt := (t - 0.5) * 2
	idx := int(mt * float64(materialCount))
	if idx >= int(materialCount) {
		idx = int(materialCount) - 1
	}
	m.ratio = 4
	m.material = material(idx)
	m.amount = 0.3 + mt*0.7
	m.harmonic = mt < 0.7
}

// ampDamping is the oscillator balance and physical-decay state derived from
// the morph macro.
type ampDamping struct {
	balance      float64 // 0 = all osc A, 1 = all osc B
	damping      float64
	dampingRate  float64
	sustainLevel float64
}

func (a *ampDamping) deriveFromMorph(m float64) {
	a.balance = m
	a.damping = m * 0.8
	a.dampingRate = 1 + m*4
	a.sustainLevel = 1 - m*0.6
}

// slopeOsc is a variable-slope oscillator: a piecewise power-function shaper
// with independent rise/fall exponents, an adjustable split point and optional
// single-reflection folding.
type slopeOsc struct {
	phase     float64
	increment float64
	slopeRise float64
	slopeFall float64
	symmetry  float64
	fold      float64
}

func (o *slopeOsc) setFrequency(freq, sampleRate float64) {
	o.increment = freq / sampleRate
}

func (o *slopeOsc) setShape(p oscParams) {
	o.slopeRise = synth.Clamp64(p.slopeRise, 0.01, 0.99)
	o.slopeFall = synth.Clamp64(p.slopeFall, 0.01, 0.99)
	o.symmetry = synth.Clamp64(p.symmetry, 0.1, 0.9)
	o.fold = synth.Clamp64(p.fold, 0, 1)
}

func (o *slopeOsc) process() float64 {
	out := o.slopeWave(o.phase)
	if o.fold > 0 {
		out = foldReflect(out, o.fold)
	}
	o.phase += o.increment
	if o.phase >= 1 {
		o.phase -= 1
	}
	return out
}

func (o *slopeOsc) slopeWave(phase float64) float64 {
	split := o.symmetry
	if phase < split {
		local := phase / split
		return slopeShape(local, o.slopeRise)*2 - 1
	}
	local := (phase - split) / (1 - split)
	return (1-slopeShape(local, o.slopeFall))*2 - 1
}

// slopeShape bends x through a power curve: slope below 0.5 is concave
// (smooth), above 0.5 is convex (sharp).
func slopeShape(x, slope float64) float64 {
	if slope < 0.5 {
		power := 0.1 + (0.5-slope)*3.8
		return math.Pow(x, power)
	}
	power := 0.1 + (slope-0.5)*3.8
	return 1 - math.Pow(1-x, power)
}

// foldReflect reflects the signal once its magnitude exceeds the fold
// threshold.
func foldReflect(in, amount float64) float64 {
	threshold := 1 - amount*2
	if math.Abs(in) > threshold {
		excess := math.Abs(in) - threshold
		if in > 0 {
			return 1 - excess
		}
		return -(1 - excess)
	}
	return in
}

// materialFilter is a 2-pole state-variable filter voiced per material, with a
// small periodic phase-modulation term that gives each material its motion.
type materialFilter struct {
	material material
	amount   float64
	low      float64
	band     float64
	high     float64
	f        float64
	q        float64
	modPhase float64
}

func (mf *materialFilter) setMaterial(mat material, amount float64) {
	mf.material = mat
	mf.amount = synth.Clamp64(amount, 0, 1)
	switch mat {
	case materialWood:
		mf.f, mf.q = 0.05, 0.7
	case materialMetal:
		mf.f, mf.q = 0.2, 0.9
	case materialGlass:
		mf.f, mf.q = 0.3, 0.95
	case materialString:
		mf.f, mf.q = 0.1, 0.8
	case materialMembrane:
		mf.f, mf.q = 0.03, 0.6
	case materialAir:
		mf.f, mf.q = 0.4, 0.3
	}
}

func (mf *materialFilter) process(in float64) float64 {
	if mf.amount < 0.01 {
		return in
	}
	mf.low += mf.f * mf.band
	mf.high = in - mf.low - mf.q*mf.band
	mf.band += mf.f * mf.high

	var filtered float64
	switch mf.material {
	case materialWood, materialMembrane:
		filtered = mf.low
	case materialMetal, materialGlass:
		filtered = mf.high + mf.band*0.5
	case materialString:
		filtered = mf.band
	case materialAir:
		filtered = mf.high
	default:
		filtered = in
	}

	mf.modPhase += 0.001
	if mf.modPhase >= 1 {
		mf.modPhase -= 1
	}
	var mod float64 = 1
	switch mf.material {
	case materialWood:
		mod = 1 + 0.02*math.Sin(mf.modPhase*twoPi*3)
	case materialMetal:
		mod = 1 + 0.05*math.Sin(mf.modPhase*twoPi*7)
	case materialGlass:
		mod = 1 + 0.01*math.Sin(mf.modPhase*twoPi*11)
	case materialString:
		mod = 1 + 0.03*(math.Sin(mf.modPhase*twoPi*2)+0.5*math.Sin(mf.modPhase*twoPi*5))
	case materialMembrane:
		mod = 1 + 0.1*math.Exp(-mf.modPhase*5)*math.Sin(mf.modPhase*twoPi*2)
	case materialAir:
		mod = 1 + 0.08*(mf.modPhase-0.5)*2
	}

	return in*(1-mf.amount) + filtered*mod*mf.amount
}

// dampingEnv is the secondary decay curve modeling physical material decay.
// It is retriggered on every note-on and runs independently of the ADSR.
type dampingEnv struct {
	damping      float64
	dampingRate  float64
	sustainLevel float64
	level        float64
	triggered    bool
}

func (d *dampingEnv) set(a ampDamping) {
	d.damping = synth.Clamp64(a.damping, 0, 1)
	d.dampingRate = synth.Clamp64(a.dampingRate, 0.1, 10)
	d.sustainLevel = synth.Clamp64(a.sustainLevel, 0, 1)
}

func (d *dampingEnv) trigger() {
	d.triggered = true
	d.level = 1
}

func (d *dampingEnv) process(sampleRate float64) float64 {
	if !d.triggered || d.damping < 0.01 {
		return 1
	}
	d.level += (d.sustainLevel - d.level) * (d.dampingRate / sampleRate) * d.damping
	return d.level
}

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

// envelope is a linear-segment ADSR. Rates are recomputed from the time
// parameters every sample so parameter pushes take effect mid-note.
type envelope struct {
	stage      envStage
	level      float64
	attack     float64
	decay      float64
	sustain    float64
	release    float64
	sampleRate float64
}

func (e *envelope) noteOn() {
	e.stage = stageAttack
	e.level = 0
}

func (e *envelope) noteOff() {
	if e.stage != stageIdle {
		e.stage = stageRelease
	}
}

func (e *envelope) active() bool    { return e.stage != stageIdle }
func (e *envelope) releasing() bool { return e.stage == stageRelease }

func (e *envelope) process() float64 {
	switch e.stage {
	case stageIdle:
		return 0
	case stageAttack:
		e.level += 1 / (e.attack * e.sampleRate)
		if e.level >= 1 {
			e.level = 1
			e.stage = stageDecay
		}
	case stageDecay:
		e.level -= 1 / (e.decay * e.sampleRate)
		if e.level <= e.sustain {
			e.level = e.sustain
			e.stage = stageSustain
		}
	case stageSustain:
		e.level = e.sustain
	case stageRelease:
		e.level -= 1 / (e.release * e.sampleRate)
		if e.level <= 0 {
			e.level = 0
			e.stage = stageIdle
		}
	}
	return e.level
}

// voice is one per-note DSP state machine: dual slope oscillators, material
// filter, damping envelope and ADSR. Voices are born inactive, activated by
// noteOn and reused forever; nothing here allocates.
type voice struct {
	active     bool
	note       int
	velocity   float64
	aftertouch float64
	age        uint32
	freq       float64

	oscA    slopeOsc
	oscB    slopeOsc
	filter  materialFilter
	damping dampingEnv
	env     envelope

	volume float64
	shape  oscParams
	mat    freqMaterial
	amp    ampDamping
}

func (v *voice) noteOn(note int, velocity, aftertouch, sampleRate float64) {
	v.note = note
	v.velocity = velocity
	v.aftertouch = aftertouch
	v.active = true
	v.age = 0
	v.freq = synth.NoteToFreq(note)

	v.oscA.setFrequency(v.freq, sampleRate)
	v.oscB.setFrequency(v.freq*v.mat.ratio, sampleRate)
	v.env.sampleRate = sampleRate
	v.damping.trigger()
	v.env.noteOn()
}

func (v *voice) noteOff() {
	v.env.noteOff()
}

func (v *voice) processSample() synth.Frame {
	if !v.active {
		return synth.Frame{}
	}
	v.age++

	a := v.oscA.process()
	b := v.oscB.process()
	mixed := a*(1-v.amp.balance) + b*v.amp.balance
	filtered := v.filter.process(mixed)
	filtered *= v.damping.process(v.env.sampleRate)

	envLevel := v.env.process()
	if !v.env.active() {
		v.active = false
	}

	pressure := 1 + v.aftertouch*0.3
	out := filtered * envLevel * v.velocity * v.volume * pressure
	return synth.Frame{L: float32(out), R: float32(out)}
}

func (v *voice) setShape(p oscParams) {
	v.shape = p
	v.oscA.setShape(p)
	v.oscB.setShape(p)
}

func (v *voice) setFreqMaterial(m freqMaterial, sampleRate float64) {
	v.mat = m
	if v.active {
		v.oscB.setFrequency(v.freq*m.ratio, sampleRate)
	}
	v.filter.setMaterial(m.material, m.amount)
}

func (v *voice) setAmpDamping(a ampDamping) {
	v.amp = a
	v.damping.set(a)
}

func (v *voice) setEnvelope(attack, decay, sustain, release float64) {
	v.env.attack = attack
	v.env.decay = decay
	v.env.sustain = sustain
	v.env.release = release
}
