package synth

import "math"

// Core engine constants. The buffer size is fixed; every pipeline stage
// exchanges whole buffers and overwrites them completely.
const (
	SampleRate     = 48000
	BufferFrames   = 128
	MaxVoices      = 16
	MaxInstruments = 8
	PatternSteps   = 16
)

// Frame is one stereo sample pair.
type Frame struct {
	L, R float32
}

// Buffer is the fixed-length block exchanged between pipeline stages.
type Buffer [BufferFrames]Frame

// Clear zeroes every frame.
func (b *Buffer) Clear() {
	for i := range b {
		b[i] = Frame{}
	}
}

// Accumulate adds src scaled by gain into b.
func (b *Buffer) Accumulate(src *Buffer, gain float32) {
	for i := range b {
		b[i].L += src[i].L * gain
		b[i].R += src[i].R * gain
	}
}

// Scale multiplies every frame by gain.
func (b *Buffer) Scale(gain float32) {
	for i := range b {
		b[i].L *= gain
		b[i].R *= gain
	}
}

// ParameterID enumerates the parameter space shared by all engines. An engine
// declares via HasParameter which subset it honors.
type ParameterID uint8

const (
	ParamHarmonics ParameterID = iota
	ParamTimbre
	ParamMorph
	ParamOscMix
	ParamDetune
	ParamSubLevel
	ParamSubAnchor
	ParamFilterCutoff
	ParamFilterResonance
	ParamFilterType
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease
	ParamLFORate
	ParamLFODepth
	ParamLFOShape
	ParamReverbSize
	ParamReverbDamping
	ParamReverbMix
	ParamDelayTime
	ParamDelayFeedback
	ParamVolume
	ParamPan

	ParamCount
)

var paramNames = [ParamCount]string{
	"harmonics", "timbre", "morph", "osc_mix", "detune", "sub_level",
	"sub_anchor", "filter_cutoff", "filter_resonance", "filter_type",
	"attack", "decay", "sustain", "release", "lfo_rate", "lfo_depth",
	"lfo_shape", "reverb_size", "reverb_damping", "reverb_mix",
	"delay_time", "delay_feedback", "volume", "pan",
}

func (p ParameterID) String() string {
	if p < ParamCount {
		return paramNames[p]
	}
	return "unknown"
}

// ParamByName returns the ParameterID with the given name.
func ParamByName(name string) (ParameterID, bool) {
	for i, n := range paramNames {
		if n == name {
			return ParameterID(i), true
		}
	}
	return ParamCount, false
}

type paramRange struct {
	min, max float32
}

// Declared value ranges. Values are clamped at write time, before any DSP
// state observes them. Most controls are normalized 0..1; envelope times are
// in seconds and pan is bipolar.
var paramRanges = [ParamCount]paramRange{
	ParamAttack:  {0.001, 5},
	ParamDecay:   {0.01, 10},
	ParamRelease: {0.01, 10},
	ParamLFORate: {0.01, 20},
	ParamPan:     {-1, 1},
}

func init() {
	for i := range paramRanges {
		if paramRanges[i].min == 0 && paramRanges[i].max == 0 {
			paramRanges[i] = paramRange{0, 1}
		}
	}
}

// ClampParam clamps value to the declared range of the parameter.
func ClampParam(id ParameterID, value float32) float32 {
	if id >= ParamCount {
		return value
	}
	r := paramRanges[id]
	return Clamp(value, r.min, r.max)
}

// Color identifies one of the 8 fixed instrument slots. Identity only;
// it implies nothing about ownership.
type Color uint8

const (
	ColorCoral Color = iota
	ColorPeach
	ColorCream
	ColorSage
	ColorTeal
	ColorSlate
	ColorPearl
	ColorStone

	ColorCount
)

var colorNames = [ColorCount]string{
	"coral", "peach", "cream", "sage", "teal", "slate", "pearl", "stone",
}

func (c Color) String() string {
	if c < ColorCount {
		return colorNames[c]
	}
	return "unknown"
}

// EngineType tags the concrete synthesis engine variants.
type EngineType uint8

const (
	EngineMacroVA EngineType = iota
	EngineTidesOsc

	EngineTypeCount
)

var engineNames = [EngineTypeCount]string{"macro_va", "tides_osc"}

func (t EngineType) String() string {
	if t < EngineTypeCount {
		return engineNames[t]
	}
	return "unknown"
}

// EngineTypeByName returns the EngineType with the given name.
func EngineTypeByName(name string) (EngineType, bool) {
	for i, n := range engineNames {
		if n == name {
			return EngineType(i), true
		}
	}
	return EngineTypeCount, false
}

// NoteToFreq converts a MIDI note number to frequency in Hz.
func NoteToFreq(note int) float64 {
	return 440 * math.Pow(2, float64(note-69)/12)
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Clamp64 bounds v to [lo, hi].
func Clamp64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
