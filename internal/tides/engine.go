// Package tides implements the dual complex-oscillator synthesis engine.
//
// Three macros drive the whole sound: harmonics maps to slope steepness of the
// oscillators, timbre maps to the second oscillator's frequency ratio plus a
// material filter blend, and morph maps to oscillator balance plus damping.
// Macro values are never stored as raw DSP state; each setter recomputes the
// derived structs and pushes them into every voice, active or not, so a
// freshly allocated voice is already correctly configured.
package tides

import (
	"encoding/binary"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// Engine is a polyphonic complex-oscillator engine with a fixed voice pool.
type Engine struct {
	sampleRate float64
	voices     [synth.MaxVoices]voice

	harmonics float64
	timbre    float64
	morph     float64
	volume    float64
	attack    float64
	decay     float64
	sustain   float64
	release   float64

	shape oscParams
	mat   freqMaterial
	amp   ampDamping

	cpuUsage atomic.Uint32 // float32 bits
}

// New creates the engine with every voice inactive and default macros pushed
// into the pool.
func New(sampleRate int) *Engine {
	e := &Engine{
		sampleRate: float64(sampleRate),
		harmonics:  0.5,
		timbre:     0.3,
		morph:      0.5,
		volume:     0.8,
		attack:     0.01,
		decay:      0.3,
		sustain:    0.8,
		release:    0.5,
	}
	for i := range e.voices {
		e.voices[i].env.sampleRate = e.sampleRate
	}
	e.deriveParams()
	e.updateAllVoices()
	return e
}

func (e *Engine) Type() synth.EngineType { return synth.EngineTidesOsc }
func (e *Engine) Name() string           { return "TidesOsc" }

// NoteOn binds a voice to the note and hard-retriggers its envelope from
// zero. A voice already sounding the same literal note is rebound in place;
// otherwise an inactive voice is used, and when the pool is exhausted the
// voice with the greatest age (oldest-triggered) is stolen.
func (e *Engine) NoteOn(note int, velocity, aftertouch float32) {
	v := e.findVoice(note)
	if v == nil {
		v = e.findFreeVoice()
	}
	if v == nil {
		v = e.stealVoice()
	}
	v.noteOn(note, float64(velocity), float64(aftertouch), e.sampleRate)
}

// NoteOff releases the voice bound to the literal note value. Under heavy
// stealing two voices can briefly share a note while one is releasing; the
// first match in pool order wins.
func (e *Engine) NoteOff(note int) {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.note == note && !v.env.releasing() {
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

// AllNotesOff forces every voice into release. A voice already releasing
// keeps its existing tail.
func (e *Engine) AllNotesOff() {
	for i := range e.voices {
		e.voices[i].noteOff()
	}
}

func (e *Engine) SetParameter(id synth.ParameterID, value float32) {
	value = synth.ClampParam(id, value)
	switch id {
	case synth.ParamHarmonics:
		e.harmonics = float64(value)
	case synth.ParamTimbre:
		e.timbre = float64(value)
	case synth.ParamMorph:
		e.morph = float64(value)
	case synth.ParamVolume:
		e.volume = float64(value)
	case synth.ParamAttack:
		e.attack = float64(value)
	case synth.ParamDecay:
		e.decay = float64(value)
	case synth.ParamSustain:
		e.sustain = float64(value)
	case synth.ParamRelease:
		e.release = float64(value)
	default:
		return
	}
	e.deriveParams()
	e.updateAllVoices()
}

func (e *Engine) Parameter(id synth.ParameterID) float32 {
	switch id {
	case synth.ParamHarmonics:
		return float32(e.harmonics)
	case synth.ParamTimbre:
		return float32(e.timbre)
	case synth.ParamMorph:
		return float32(e.morph)
	case synth.ParamVolume:
		return float32(e.volume)
	case synth.ParamAttack:
		return float32(e.attack)
	case synth.ParamDecay:
		return float32(e.decay)
	case synth.ParamSustain:
		return float32(e.sustain)
	case synth.ParamRelease:
		return float32(e.release)
	}
	return 0
}

func (e *Engine) HasParameter(id synth.ParameterID) bool {
	switch id {
	case synth.ParamHarmonics, synth.ParamTimbre, synth.ParamMorph,
		synth.ParamVolume, synth.ParamAttack, synth.ParamDecay,
		synth.ParamSustain, synth.ParamRelease:
		return true
	}
	return false
}

// Process overwrites buf with the sum of all active voices. With more than
// one voice sounding the sum is scaled by 1/sqrt(active) to approximate
// equal-power summation of uncorrelated voices.
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
		for f := range buf {
			frame := v.processSample()
			buf[f].L += frame.L
			buf[f].R += frame.R
		}
	}
	if active > 1 {
		buf.Scale(float32(1 / math.Sqrt(float64(active))))
	}

	budget := float64(synth.BufferFrames) / e.sampleRate
	usage := time.Since(start).Seconds() / budget * 100
	e.cpuUsage.Store(math.Float32bits(float32(math.Min(usage, 100))))
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

// presetSize is the fixed blob layout: 8 little-endian float32 values
// (harmonics, timbre, morph, volume, attack, decay, sustain, release).
const presetSize = 8 * 4

// SavePreset serializes the macro and envelope state as a raw fixed-layout
// blob. The layout is unversioned; there is no cross-release compatibility.
func (e *Engine) SavePreset() []byte {
	data := make([]byte, presetSize)
	vals := [8]float64{
		e.harmonics, e.timbre, e.morph, e.volume,
		e.attack, e.decay, e.sustain, e.release,
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(float32(v)))
	}
	return data
}

// LoadPreset restores state from a blob written by SavePreset.
func (e *Engine) LoadPreset(data []byte) error {
	if len(data) != presetSize {
		return errors.New("tides: preset blob has wrong size")
	}
	read := func(i int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	e.harmonics = float64(synth.ClampParam(synth.ParamHarmonics, read(0)))
	e.timbre = float64(synth.ClampParam(synth.ParamTimbre, read(1)))
	e.morph = float64(synth.ClampParam(synth.ParamMorph, read(2)))
	e.volume = float64(synth.ClampParam(synth.ParamVolume, read(3)))
	e.attack = float64(synth.ClampParam(synth.ParamAttack, read(4)))
	e.decay = float64(synth.ClampParam(synth.ParamDecay, read(5)))
	e.sustain = float64(synth.ClampParam(synth.ParamSustain, read(6)))
	e.release = float64(synth.ClampParam(synth.ParamRelease, read(7)))
	e.deriveParams()
	e.updateAllVoices()
	return nil
}

// deriveParams recomputes the one-way macro mappings.
func (e *Engine) deriveParams() {
	e.shape.deriveFromHarmonics(e.harmonics)
	e.mat.deriveFromTimbre(e.timbre)
	e.amp.deriveFromMorph(e.morph)
}

// updateAllVoices pushes the current derived structs into every voice,
// active or not.
func (e *Engine) updateAllVoices() {
	for i := range e.voices {
		v := &e.voices[i]
		v.setShape(e.shape)
		v.setFreqMaterial(e.mat, e.sampleRate)
		v.setAmpDamping(e.amp)
		v.setEnvelope(e.attack, e.decay, e.sustain, e.release)
		v.volume = e.volume
	}
}

// slopeSteepness exposes the derived rise-slope mapping for the harmonics
// macro. Strictly increasing in the macro value.
func (e *Engine) slopeSteepness() float64 { return e.shape.slopeRise }

func (e *Engine) findFreeVoice() *voice {
	for i := range e.voices {
		if !e.voices[i].active {
			return &e.voices[i]
		}
	}
	return nil
}

func (e *Engine) findVoice(note int) *voice {
	for i := range e.voices {
		v := &e.voices[i]
		if v.active && v.note == note {
			return v
		}
	}
	return nil
}

func (e *Engine) stealVoice() *voice {
	steal := &e.voices[0]
	for i := 1; i < len(e.voices); i++ {
		if e.voices[i].age > steal.age {
			steal = &e.voices[i]
		}
	}
	return steal
}
