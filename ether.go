// Package ether is a polyphonic multi-engine synthesizer core. A Synth owns
// eight color-keyed instrument slots, each layering one or more synthesis
// engines, driven by a fixed-size buffer callback with a built-in step
// sequencer and master effects. All control-surface calls are safe to make
// while audio is running; they are queued and applied at the next buffer
// boundary.
package ether

import (
	"errors"
	"fmt"
	"sync"

	"github.com/lachlanfysh/ether-sub007/internal/audio"
	"github.com/lachlanfysh/ether-sub007/internal/engine"
	"github.com/lachlanfysh/ether-sub007/internal/instrument"
	"github.com/lachlanfysh/ether-sub007/internal/preset"
	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// Aliases so callers outside this module can name the core types.
type (
	Frame       = synth.Frame
	Buffer      = synth.Buffer
	Color       = synth.Color
	ParameterID = synth.ParameterID
	EngineType  = synth.EngineType
	Slot        = instrument.Slot
)

const (
	SampleRate   = synth.SampleRate
	BufferFrames = synth.BufferFrames
	MaxVoices    = synth.MaxVoices
	PatternSteps = synth.PatternSteps
)

const (
	ColorCoral = synth.ColorCoral
	ColorPeach = synth.ColorPeach
	ColorCream = synth.ColorCream
	ColorSage  = synth.ColorSage
	ColorTeal  = synth.ColorTeal
	ColorSlate = synth.ColorSlate
	ColorPearl = synth.ColorPearl
	ColorStone = synth.ColorStone
	ColorCount = synth.ColorCount
)

const (
	EngineMacroVA = synth.EngineMacroVA
	EngineTides   = synth.EngineTidesOsc
)

const (
	ParamHarmonics       = synth.ParamHarmonics
	ParamTimbre          = synth.ParamTimbre
	ParamMorph           = synth.ParamMorph
	ParamOscMix          = synth.ParamOscMix
	ParamDetune          = synth.ParamDetune
	ParamSubLevel        = synth.ParamSubLevel
	ParamSubAnchor       = synth.ParamSubAnchor
	ParamFilterCutoff    = synth.ParamFilterCutoff
	ParamFilterResonance = synth.ParamFilterResonance
	ParamFilterType      = synth.ParamFilterType
	ParamAttack          = synth.ParamAttack
	ParamDecay           = synth.ParamDecay
	ParamSustain         = synth.ParamSustain
	ParamRelease         = synth.ParamRelease
	ParamLFORate         = synth.ParamLFORate
	ParamLFODepth        = synth.ParamLFODepth
	ParamLFOShape        = synth.ParamLFOShape
	ParamReverbSize      = synth.ParamReverbSize
	ParamReverbDamping   = synth.ParamReverbDamping
	ParamReverbMix       = synth.ParamReverbMix
	ParamDelayTime       = synth.ParamDelayTime
	ParamDelayFeedback   = synth.ParamDelayFeedback
	ParamVolume          = synth.ParamVolume
	ParamPan             = synth.ParamPan
)

// ParameterByName resolves a parameter name like "filter_cutoff".
func ParameterByName(name string) (ParameterID, bool) { return synth.ParamByName(name) }

// EngineTypeByName resolves an engine name like "macro_va" or "tides_osc".
func EngineTypeByName(name string) (EngineType, bool) { return synth.EngineTypeByName(name) }

// Backend is a source of audio timing: it periodically invokes the render
// callback with a buffer to fill. The live device backend and the headless
// backend both satisfy it.
type Backend = engine.Hardware

type Option func(*config)

type config struct {
	sampleRate    int
	backend       Backend
	headless      bool
	defaultEngine EngineType
	bpm           float32
}

func defaultConfig() config {
	return config{
		sampleRate:    SampleRate,
		defaultEngine: EngineMacroVA,
		bpm:           120,
	}
}

// WithSampleRate overrides the default 48 kHz rate.
func WithSampleRate(rate int) Option {
	return func(cfg *config) { cfg.sampleRate = rate }
}

// WithBackend supplies a custom audio backend instead of the default device
// output.
func WithBackend(b Backend) Option {
	return func(cfg *config) { cfg.backend = b }
}

// WithHeadless uses an in-process backend with no audio device. Rendering is
// driven explicitly through RenderSeconds; nothing runs until then.
func WithHeadless() Option {
	return func(cfg *config) { cfg.headless = true }
}

// WithDefaultEngine selects the engine type seeded into every slot.
func WithDefaultEngine(t EngineType) Option {
	return func(cfg *config) { cfg.defaultEngine = t }
}

// WithBPM sets the initial sequencer tempo.
func WithBPM(bpm float32) Option {
	return func(cfg *config) { cfg.bpm = bpm }
}

// Synth binds an audio engine to a backend and carries the preset bank.
// Engine methods are promoted; see the engine package for the full control
// surface.
type Synth struct {
	*engine.AudioEngine

	mu         sync.Mutex
	sampleRate int
	backend    Backend
	headless   *audio.Headless
	output     *audio.Output
	bank       preset.Bank
}

// New builds a Synth. With no options it opens the default audio device at
// 48 kHz and seeds every slot with a virtual-analog engine; call Start to
// begin rendering.
func New(opts ...Option) (*Synth, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.sampleRate <= 0 {
		return nil, errors.New("sample rate must be positive")
	}

	s := &Synth{sampleRate: cfg.sampleRate}
	switch {
	case cfg.backend != nil:
		s.backend = cfg.backend
	case cfg.headless:
		s.headless = audio.NewHeadless(cfg.sampleRate)
		s.backend = s.headless
	default:
		out, err := audio.NewOutput(cfg.sampleRate)
		if err != nil {
			return nil, fmt.Errorf("open audio output: %w", err)
		}
		s.output = out
		s.backend = out
	}

	s.AudioEngine = engine.New(cfg.sampleRate)
	if err := s.AudioEngine.Initialize(s.backend); err != nil {
		return nil, err
	}
	s.AudioEngine.SetBPM(cfg.bpm)

	if cfg.defaultEngine != EngineMacroVA {
		for c := Color(0); c < ColorCount; c++ {
			slot := s.AudioEngine.Instrument(c)
			slot.RemoveEngine(0)
			if err := slot.AddEngine(cfg.defaultEngine, cfg.sampleRate); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Start begins pulling audio from the device. No-op on headless backends.
func (s *Synth) Start() {
	if s.output != nil {
		s.output.Start()
	}
}

// Pause stops the device pull without releasing it.
func (s *Synth) Pause() {
	if s.output != nil {
		s.output.Pause()
	}
}

// Close releases the audio device, silencing all voices first.
func (s *Synth) Close() error {
	s.AudioEngine.AllNotesOff()
	if s.output != nil {
		return s.output.Close()
	}
	return nil
}

// SetEuclideanPattern configures a slot's step pattern and arms it for the
// sequencer. Call before Play, or between Stop and Play.
func (s *Synth) SetEuclideanPattern(c Color, hits, rotation int, active bool) {
	slot := s.AudioEngine.Instrument(c)
	if slot == nil {
		return
	}
	slot.Pattern().Set(hits, rotation)
	slot.SetPatternActive(active)
}

// CapturePreset snapshots a slot's engine stack and parameters into the bank
// under name, replacing any preset with the same name.
func (s *Synth) CapturePreset(name string, c Color) {
	slot := s.AudioEngine.Instrument(c)
	if slot == nil {
		return
	}
	p := preset.Capture(name, slot)
	s.mu.Lock()
	s.bank.Put(p)
	s.mu.Unlock()
}

// ApplyPreset rebuilds the slot's engine stack from a stored preset. The
// slot must not be rendering; pause or mute it first.
func (s *Synth) ApplyPreset(name string, c Color) error {
	s.mu.Lock()
	p, ok := s.bank.Find(name)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("preset %q not found", name)
	}
	slot := s.AudioEngine.Instrument(c)
	if slot == nil {
		return fmt.Errorf("no instrument slot for color %d", c)
	}
	return preset.Apply(p, slot, s.sampleRate)
}

// EncodeBank serializes the preset bank to YAML.
func (s *Synth) EncodeBank() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return preset.Encode(&s.bank)
}

// DecodeBank replaces the preset bank from YAML.
func (s *Synth) DecodeBank(data []byte) error {
	b, err := preset.Decode(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.bank = *b
	s.mu.Unlock()
	return nil
}
