package synth

// Engine is the polyphonic synthesis contract. Implementations own a fixed
// voice pool; Process must be allocation-free, lock-free and I/O-free because
// it runs on the audio thread.
type Engine interface {
	Type() EngineType
	Name() string

	// Note lifecycle. NoteOn steals the oldest voice when the pool is
	// exhausted; NoteOff releases the voice bound to that literal note value.
	NoteOn(note int, velocity, aftertouch float32)
	NoteOff(note int)
	SetAftertouch(note int, aftertouch float32)
	AllNotesOff()

	// Parameter control. Values are clamped to their declared range before
	// any voice observes them. HasParameter reports whether the engine
	// honors the given parameter at all.
	SetParameter(id ParameterID, value float32)
	Parameter(id ParameterID) float32
	HasParameter(id ParameterID) bool

	// Process fully overwrites buf with this engine's rendered output.
	Process(buf *Buffer)

	ActiveVoiceCount() int
	MaxVoiceCount() int

	// CPUUsage is the last render's wall-clock time divided by the buffer's
	// real-time budget, as a percentage. Safe to read from any goroutine.
	CPUUsage() float32

	// Preset I/O exchanges a raw, fixed-layout byte blob. The layout is
	// engine-specific and unversioned.
	SavePreset() []byte
	LoadPreset(data []byte) error
}
