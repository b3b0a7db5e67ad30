// Package va implements the macro virtual-analog engine: a saw/pulse
// oscillator pair with detune and a sub oscillator, through a state-variable
// filter and a linear ADSR. It is the default engine seeded into every
// instrument slot.
package va

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

type envStage int

const (
	stageIdle envStage = iota
	stageAttack
	stageDecay
	stageSustain
	stageRelease
)

type vaVoice struct {
	active     bool
	note       int
	velocity   float64
	aftertouch float64
	age        uint32
	freq       float64

	phaseA   float64 // saw
	phaseB   float64 // pulse, detuned
	phaseSub float64 // square, one octave down

	low, band, high float64 // SVF state

	stage envStage
	level float64
}

func (v *vaVoice) noteOn(note int, velocity, aftertouch float64) {
	v.note = note
	v.velocity = velocity
	v.aftertouch = aftertouch
	v.active = true
	v.age = 0
	v.freq = synth.NoteToFreq(note)
	v.stage = stageAttack
	v.level = 0
}

func (v *vaVoice) noteOff() {
	if v.stage != stageIdle {
		v.stage = stageRelease
	}
}

// params holds the control state shared by all voices. Oscillator and filter
// settings are read per sample; there is no per-voice copy because nothing
// here depends on note history.
type params struct {
	oscMix     float64 // 0 = saw only, 1 = pulse only
	detune     float64 // pulse detune, up to 1 semitone
	subLevel   float64
	pulseWidth float64 // from the timbre macro
	cutoff     float64 // normalized 0..1
	resonance  float64
	filterType int // 0 = LP, 1 = BP, 2 = HP
	attack     float64
	decay      float64
	sustain    float64
	release    float64
	volume     float64
}

// Engine is the macro virtual-analog engine.
type Engine struct {
	sampleRate float64
	voices     [synth.MaxVoices]vaVoice
	p          params

	raw      [synth.ParamCount]float32 // last written values, for Parameter
	cpuUsage atomic.Uint32             // float32 bits
}

// New creates the engine with every voice inactive.
func New(sampleRate int) *Engine {
	e := &Engine{
		sampleRate: float64(sampleRate),
		p: params{
			oscMix:     0.5,
			detune:     0.1,
			subLevel:   0.2,
			pulseWidth: 0.5,
			cutoff:     0.6,
			resonance:  0.3,
			attack:     0.005,
			decay:      0.15,
			sustain:    0.7,
			release:    0.25,
			volume:     0.8,
		},
	}
	e.raw[synth.ParamOscMix] = 0.5
	e.raw[synth.ParamDetune] = 0.1
	e.raw[synth.ParamSubLevel] = 0.2
	e.raw[synth.ParamTimbre] = 0.5
	e.raw[synth.ParamFilterCutoff] = 0.6
	e.raw[synth.ParamFilterResonance] = 0.3
	e.raw[synth.ParamAttack] = 0.005
	e.raw[synth.ParamDecay] = 0.15
	e.raw[synth.ParamSustain] = 0.7
	e.raw[synth.ParamRelease] = 0.25
	e.raw[synth.ParamVolume] = 0.8
	return e
}

func (e *Engine) Type() synth.EngineType { return synth.EngineMacroVA }
func (e *Engine) Name() string           { return "MacroVA" }

func (e *Engine) NoteOn(note int, velocity, aftertouch float32) {
	var v *vaVoice
	for i := range e.voices {
		if e.voices[i].active && e.voices[i].note == note {
			v = &e.voices[i]
			break
		}
	}
	if v == nil {
		for i := range e.voices {
			if !e.voices[i].active {
				v = &e.voices[i]
				break
			}
		}
	}
	if v == nil {
		v = &e.voices[0]
		for i := 1; i < len(e.voices); i++ {
			if e.voices[i].age > v.age {
				v = &e.voices[i]
			}
		}
	}
	v.noteOn(note, float64(velocity), float64(aftertouch))
}

func (e *Engine) NoteOff(note int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.note == note && v.stage != stageRelease {
			v.noteOff()
			return
		}
	}
}

func (e *Engine) SetAftertouch(note int, aftertouch float32) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.note == note {
			v.aftertouch = float64(aftertouch)
		}
	}
}

func (e *Engine) AllNotesOff() {
	for i := range e.voices {
		e.voices[i].noteOff()
	}
}

func (e *Engine) SetParameter(id synth.ParameterID, value float32) {
	value = synth.ClampParam(id, value)
	switch id {
	case synth.ParamOscMix:
		e.p.oscMix = float64(value)
	case synth.ParamDetune:
		e.p.detune = float64(value)
	case synth.ParamSubLevel:
		e.p.subLevel = float64(value)
	case synth.ParamTimbre:
		e.p.pulseWidth = 0.1 + float64(value)*0.8
	case synth.ParamFilterCutoff:
		e.p.cutoff = float64(value)
	case synth.ParamFilterResonance:
		e.p.resonance = float64(value)
	case synth.ParamFilterType:
		e.p.filterType = int(value * 2.99)
	case synth.ParamAttack:
		e.p.attack = float64(value)
	case synth.ParamDecay:
		e.p.decay = float64(value)
	case synth.ParamSustain:
		e.p.sustain = float64(value)
	case synth.ParamRelease:
		e.p.release = float64(value)
	case synth.ParamVolume:
		e.p.volume = float64(value)
	default:
		return
	}
	e.raw[id] = value
}

func (e *Engine) Parameter(id synth.ParameterID) float32 {
	if id < synth.ParamCount {
		return e.raw[id]
	}
	return 0
}

func (e *Engine) HasParameter(id synth.ParameterID) bool {
	switch id {
	case synth.ParamOscMix, synth.ParamDetune, synth.ParamSubLevel,
		synth.ParamTimbre, synth.ParamFilterCutoff, synth.ParamFilterResonance,
		synth.ParamFilterType, synth.ParamAttack, synth.ParamDecay,
		synth.ParamSustain, synth.ParamRelease, synth.ParamVolume:
		return true
	}
	return false
}

func (e *Engine) Process(buf *synth.Buffer) {
	start := time.Now()
	buf.Clear()

	active := 0
	for i := range e.voices {
		v := &e.voices[i]
		if !v.active {
			continue
		}
		active++
		e.renderVoice(v, buf)
	}
	if active > 1 {
		buf.Scale(float32(1 / math.Sqrt(float64(active))))
	}

	budget := float64(synth.BufferFrames) / e.sampleRate
	usage := time.Since(start).Seconds() / budget * 100
	e.cpuUsage.Store(math.Float32bits(float32(math.Min(usage, 100))))
}

func (e *Engine) renderVoice(v *vaVoice, buf *synth.Buffer) {
	incA := v.freq / e.sampleRate
	detuneRatio := math.Pow(2, e.p.detune/12)
	incB := v.freq * detuneRatio / e.sampleRate
	incSub := v.freq / 2 / e.sampleRate

	// SVF coefficient from normalized cutoff, curved toward the low end.
	f := 2 * math.Sin(math.Pi*math.Min(0.45, e.p.cutoff*e.p.cutoff*0.45))
	q := 1 - e.p.resonance*0.9

	for i := range buf {
		saw := 1 - 2*v.phaseA
		var pulse float64 = -1
		if v.phaseB < e.p.pulseWidth {
			pulse = 1
		}
		var sub float64 = -1
		if v.phaseSub < 0.5 {
			sub = 1
		}

		mixed := saw*(1-e.p.oscMix) + pulse*e.p.oscMix + sub*e.p.subLevel

		v.low += f * v.band
		v.high = mixed - v.low - q*v.band
		v.band += f * v.high
		var filtered float64
		switch e.p.filterType {
		case 1:
			filtered = v.band
		case 2:
			filtered = v.high
		default:
			filtered = v.low
		}

		level := e.advanceEnvelope(v)
		if !v.active {
			break
		}
		out := filtered * level * v.velocity * e.p.volume * (1 + v.aftertouch*0.3)
		buf[i].L += float32(out)
		buf[i].R += float32(out)

		v.age++
		v.phaseA += incA
		if v.phaseA >= 1 {
			v.phaseA -= 1
		}
		v.phaseB += incB
		if v.phaseB >= 1 {
			v.phaseB -= 1
		}
		v.phaseSub += incSub
		if v.phaseSub >= 1 {
			v.phaseSub -= 1
		}
	}
}

func (e *Engine) advanceEnvelope(v *vaVoice) float64 {
	switch v.stage {
	case stageIdle:
		return 0
	case stageAttack:
		v.level += 1 / (e.p.attack * e.sampleRate)
		if v.level >= 1 {
			v.level = 1
			v.stage = stageDecay
		}
	case stageDecay:
		v.level -= 1 / (e.p.decay * e.sampleRate)
		if v.level <= e.p.sustain {
			v.level = e.p.sustain
			v.stage = stageSustain
		}
	case stageSustain:
		v.level = e.p.sustain
	case stageRelease:
		v.level -= 1 / (e.p.release * e.sampleRate)
		if v.level <= 0 {
			v.level = 0
			v.stage = stageIdle
			v.active = false
		}
	}
	return v.level
}

func (e *Engine) ActiveVoiceCount() int {
	n := 0
	for i := range e.voices {
		if e.voices[i].active {
			n++
		}
	}
	return n
}

func (e *Engine) MaxVoiceCount() int { return len(e.voices) }

func (e *Engine) CPUUsage() float32 {
	return math.Float32frombits(e.cpuUsage.Load())
}

// Fixed blob layout: 12 little-endian float32 values in SetParameter order.
const presetSize = 12 * 4

var presetOrder = [12]synth.ParameterID{
	synth.ParamOscMix, synth.ParamDetune, synth.ParamSubLevel,
	synth.ParamTimbre, synth.ParamFilterCutoff, synth.ParamFilterResonance,
	synth.ParamFilterType, synth.ParamAttack, synth.ParamDecay,
	synth.ParamSustain, synth.ParamRelease, synth.ParamVolume,
}

func (e *Engine) SavePreset() []byte {
	data := make([]byte, presetSize)
	for i, id := range presetOrder {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(e.raw[id]))
	}
	return data
}

func (e *Engine) LoadPreset(data []byte) error {
	if len(data) != presetSize {
		return errors.New("va: preset blob has wrong size")
	}
	for i, id := range presetOrder {
		v := math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
		e.SetParameter(id, v)
	}
	return nil
}
