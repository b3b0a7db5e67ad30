// Package instrument implements the 8 fixed instrument slots. A slot owns a
// stack of engine layers mixed additively, an effects chain, a Euclidean
// pattern and its mix controls. Layers are added and removed only from the
// control thread; the audio thread only renders.
package instrument

import (
	"fmt"

	"github.com/lachlanfysh/ether-sub007/internal/effects"
	"github.com/lachlanfysh/ether-sub007/internal/rhythm"
	"github.com/lachlanfysh/ether-sub007/internal/synth"
	"github.com/lachlanfysh/ether-sub007/internal/tides"
	"github.com/lachlanfysh/ether-sub007/internal/va"
)

// defaultNames gives each color identity its display name.
var defaultNames = [synth.MaxInstruments]string{
	"Coral Bass",
	"Peach Lead",
	"Cream Pad",
	"Sage Arp",
	"Teal Strings",
	"Slate FX",
	"Pearl Perc",
	"Stone Util",
}

// EngineLayer is one synthesis engine plus its mix balance within the slot.
type EngineLayer struct {
	Engine  synth.Engine
	Balance float32
	Enabled bool
}

// Slot is one of the 8 color-identified instrument slots.
type Slot struct {
	color synth.Color
	name  string

	layers      []EngineLayer
	layerParams [][synth.ParamCount]float32

	fx     *effects.Chain
	delay  *effects.Delay
	reverb *effects.Reverb

	pattern       *rhythm.Euclidean
	patternActive bool

	volume    float32
	pan       float32
	muted     bool
	soloed    bool
	chordRole bool

	scratch synth.Buffer // layer render target, audio-thread only
}

// NewSlot creates a slot with an empty layer stack and its send effects.
func NewSlot(color synth.Color, sampleRate int) *Slot {
	delay := effects.NewDelay(sampleRate)
	reverb := effects.NewReverb(sampleRate)
	name := "Instrument"
	if color < synth.ColorCount {
		name = defaultNames[color]
	}
	return &Slot{
		color:   color,
		name:    name,
		fx:      effects.NewChain(delay, reverb),
		delay:   delay,
		reverb:  reverb,
		pattern: rhythm.New(),
		volume:  0.8,
	}
}

func (s *Slot) Color() synth.Color { return s.color }
func (s *Slot) Name() string       { return s.name }
func (s *Slot) SetName(name string) {
	s.name = name
}

// newEngine is the type-keyed engine factory.
func newEngine(t synth.EngineType, sampleRate int) (synth.Engine, error) {
	switch t {
	case synth.EngineMacroVA:
		return va.New(sampleRate), nil
	case synth.EngineTidesOsc:
		return tides.New(sampleRate), nil
	default:
		return nil, fmt.Errorf("instrument: unknown engine type %d", t)
	}
}

// AddEngine constructs an engine of the given type and appends it as a new
// layer with unity balance, plus a parallel parameter array defaulted to 0.5.
func (s *Slot) AddEngine(t synth.EngineType, sampleRate int) error {
	eng, err := newEngine(t, sampleRate)
	if err != nil {
		return err
	}
	s.layers = append(s.layers, EngineLayer{Engine: eng, Balance: 1, Enabled: true})
	var params [synth.ParamCount]float32
	for i := range params {
		params[i] = synth.ClampParam(synth.ParameterID(i), 0.5)
	}
	s.layerParams = append(s.layerParams, params)
	return nil
}

// RemoveEngine drops the layer at index; out-of-range indices are ignored.
func (s *Slot) RemoveEngine(index int) {
	if index < 0 || index >= len(s.layers) {
		return
	}
	s.layers = append(s.layers[:index], s.layers[index+1:]...)
	s.layerParams = append(s.layerParams[:index], s.layerParams[index+1:]...)
}

// SetEngineBalance sets the linear mix gain of one layer.
func (s *Slot) SetEngineBalance(index int, balance float32) {
	if index >= 0 && index < len(s.layers) {
		s.layers[index].Balance = synth.Clamp(balance, 0, 1)
	}
}

// EngineBalance returns the mix gain of one layer.
func (s *Slot) EngineBalance(index int) float32 {
	if index >= 0 && index < len(s.layers) {
		return s.layers[index].Balance
	}
	return 0
}

// SetEngineEnabled toggles a layer in and out of the mix.
func (s *Slot) SetEngineEnabled(index int, enabled bool) {
	if index >= 0 && index < len(s.layers) {
		s.layers[index].Enabled = enabled
	}
}

func (s *Slot) EngineCount() int { return len(s.layers) }

// Engine returns the engine at index, or nil.
func (s *Slot) Engine(index int) synth.Engine {
	if index >= 0 && index < len(s.layers) {
		return s.layers[index].Engine
	}
	return nil
}

// SetParameter fans the value out to every layer. The value is clamped once
// here and remembered per layer even when an engine does not honor the
// parameter, so the stored state survives layer reordering. Reverb and delay
// sends are routed to the slot's effect chain instead of the engines.
func (s *Slot) SetParameter(id synth.ParameterID, value float32) {
	if id >= synth.ParamCount {
		return
	}
	value = synth.ClampParam(id, value)
	switch id {
	case synth.ParamVolume:
		s.volume = value
	case synth.ParamPan:
		s.pan = value
	case synth.ParamReverbSize:
		s.reverb.SetSize(value)
	case synth.ParamReverbDamping:
		s.reverb.SetDamping(value)
	case synth.ParamReverbMix:
		s.reverb.SetWet(value)
	case synth.ParamDelayTime:
		s.delay.SetTime(value)
	case synth.ParamDelayFeedback:
		s.delay.SetFeedback(value)
		s.delay.SetWet(value)
	}
	for i := range s.layers {
		s.layerParams[i][id] = value
		if s.layers[i].Engine.HasParameter(id) {
			s.layers[i].Engine.SetParameter(id, value)
		}
	}
}

// Parameter reads layer 0's stored value, which is authoritative for display.
func (s *Slot) Parameter(id synth.ParameterID) float32 {
	if len(s.layerParams) == 0 || id >= synth.ParamCount {
		return 0
	}
	return s.layerParams[0][id]
}

// SetEngineParameter writes one layer only.
func (s *Slot) SetEngineParameter(index int, id synth.ParameterID, value float32) {
	if index < 0 || index >= len(s.layers) || id >= synth.ParamCount {
		return
	}
	value = synth.ClampParam(id, value)
	s.layerParams[index][id] = value
	if s.layers[index].Engine.HasParameter(id) {
		s.layers[index].Engine.SetParameter(id, value)
	}
}

// EngineParameter reads one layer's stored value.
func (s *Slot) EngineParameter(index int, id synth.ParameterID) float32 {
	if index < 0 || index >= len(s.layerParams) || id >= synth.ParamCount {
		return 0
	}
	return s.layerParams[index][id]
}

// NoteOn fans out to every enabled layer. Suppressed entirely while muted.
func (s *Slot) NoteOn(note int, velocity, aftertouch float32) {
	if s.muted {
		return
	}
	for i := range s.layers {
		if s.layers[i].Enabled {
			s.layers[i].Engine.NoteOn(note, velocity, aftertouch)
		}
	}
}

// NoteOff always propagates, muted or not, so notes can never stick.
func (s *Slot) NoteOff(note int) {
	for i := range s.layers {
		s.layers[i].Engine.NoteOff(note)
	}
}

func (s *Slot) SetAftertouch(note int, aftertouch float32) {
	for i := range s.layers {
		s.layers[i].Engine.SetAftertouch(note, aftertouch)
	}
}

// AllNotesOff always propagates, muted or not.
func (s *Slot) AllNotesOff() {
	for i := range s.layers {
		s.layers[i].Engine.AllNotesOff()
	}
}

// PlayChordNotes issues NoteOn for each pitch in sequence.
func (s *Slot) PlayChordNotes(notes []int, velocity float32) {
	for _, n := range notes {
		s.NoteOn(n, velocity, 0)
	}
}

// Process renders the slot into buf, overwriting it completely. A muted slot
// writes silence regardless of underlying voice state. Pan is linear
// attenuation of the non-dominant channel, kept for parity with the hardware
// build rather than equal-power.
func (s *Slot) Process(buf *synth.Buffer) {
	if s.muted {
		buf.Clear()
		return
	}

	buf.Clear()
	for i := range s.layers {
		layer := &s.layers[i]
		if !layer.Enabled || layer.Engine == nil {
			continue
		}
		layer.Engine.Process(&s.scratch)
		buf.Accumulate(&s.scratch, layer.Balance)
	}

	s.fx.ProcessBuffer(buf)

	for i := range buf {
		buf[i].L *= s.volume
		buf[i].R *= s.volume
		if s.pan < 0 {
			buf[i].R *= 1 + s.pan
		} else if s.pan > 0 {
			buf[i].L *= 1 - s.pan
		}
	}
}

// Pattern returns the slot's Euclidean pattern.
func (s *Slot) Pattern() *rhythm.Euclidean { return s.pattern }

func (s *Slot) SetPatternActive(active bool) { s.patternActive = active }
func (s *Slot) PatternActive() bool          { return s.patternActive }

// Effects returns the slot's effect chain.
func (s *Slot) Effects() *effects.Chain { return s.fx }

func (s *Slot) SetVolume(v float32) { s.volume = synth.Clamp(v, 0, 1) }
func (s *Slot) Volume() float32     { return s.volume }
func (s *Slot) SetPan(p float32)    { s.pan = synth.Clamp(p, -1, 1) }
func (s *Slot) Pan() float32        { return s.pan }
func (s *Slot) SetMute(m bool)      { s.muted = m }
func (s *Slot) Muted() bool         { return s.muted }
func (s *Slot) SetSolo(v bool)      { s.soloed = v }
func (s *Slot) Soloed() bool        { return s.soloed }
func (s *Slot) SetChordRole(v bool) { s.chordRole = v }
func (s *Slot) ChordRole() bool     { return s.chordRole }

// ActiveVoiceCount sums voices across all layers.
func (s *Slot) ActiveVoiceCount() int {
	n := 0
	for i := range s.layers {
		n += s.layers[i].Engine.ActiveVoiceCount()
	}
	return n
}

// CPUUsage sums layer CPU usage.
func (s *Slot) CPUUsage() float32 {
	var total float32
	for i := range s.layers {
		total += s.layers[i].Engine.CPUUsage()
	}
	return total
}
