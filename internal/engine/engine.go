// Package engine implements the real-time audio engine: the per-buffer render
// entry point, the lock-free control-to-audio queues, step-sequencer timing,
// the modulation tick and master processing.
//
// Two execution contexts exist. Control-thread calls (notes, parameters,
// transport) either queue work or flip atomics; the audio thread drains the
// queues at the start of every callback and renders. Nothing on the render
// path allocates, locks or performs I/O.
package engine

import (
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/lachlanfysh/ether-sub007/internal/effects"
	"github.com/lachlanfysh/ether-sub007/internal/instrument"
	"github.com/lachlanfysh/ether-sub007/internal/modulation"
	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// Hardware abstracts the audio interface. The core never opens a device; it
// only installs its render entry point as the periodic buffer callback.
type Hardware interface {
	SetAudioCallback(fn func(*synth.Buffer))
	SampleRate() int
}

// AudioEngine owns the 8 instrument slots and everything the audio callback
// touches.
type AudioEngine struct {
	hw         Hardware
	sampleRate int

	slots  [synth.MaxInstruments]*instrument.Slot
	mod    *modulation.Matrix
	master *effects.Chain
	eq     *effects.MasterEQ

	playing    atomic.Bool
	recording  atomic.Bool
	flushNotes atomic.Bool
	bpm        atomic.Uint32 // float32 bits

	samplesPerStep atomic.Uint32
	sampleCounter  atomic.Uint32
	currentStep    atomic.Uint32
	currentBar     atomic.Uint32

	activeSlot   atomic.Int32
	masterVolume atomic.Uint32 // float32 bits
	cpuUsage     atomic.Uint32 // float32 bits

	paramChanges [maxParameterChanges]parameterChange
	paramIndex   atomic.Uint64
	notes        noteRing

	scratch synth.Buffer // slot render target, audio thread only
}

// seqNote is the pitch fired by the step sequencer.
const seqNote = 60

// New creates an engine for the given sample rate. Initialize must be called
// before any audio flows.
func New(sampleRate int) *AudioEngine {
	e := &AudioEngine{sampleRate: sampleRate}
	e.masterVolume.Store(math.Float32bits(0.8))
	e.SetBPM(120)
	return e
}

// Initialize wires the hardware callback and constructs all sub-components:
// the 8 slots (each seeded with a default virtual-analog engine), the
// modulation matrix and the master chain. Construction failures come back as
// errors; nothing panics across this boundary.
func (e *AudioEngine) Initialize(hw Hardware) error {
	if hw == nil {
		return errors.New("engine: hardware interface is nil")
	}
	if hw.SampleRate() != e.sampleRate {
		return errors.New("engine: hardware sample rate mismatch")
	}
	e.hw = hw

	for i := range e.slots {
		slot := instrument.NewSlot(synth.Color(i), e.sampleRate)
		if err := slot.AddEngine(synth.EngineMacroVA, e.sampleRate); err != nil {
			return err
		}
		e.slots[i] = slot
	}

	e.mod = modulation.NewMatrix(e.sampleRate, e.applyParameter)
	e.eq = effects.NewMasterEQ(e.sampleRate)
	e.master = effects.NewChain(
		effects.NewCompressor(e.sampleRate, -18, 4, 5, 120, 3),
		e.eq,
	)

	hw.SetAudioCallback(e.audioCallback)
	return nil
}

// audioCallback is the single per-buffer entry point, invoked only by the
// hardware interface. Nil sub-components are skipped, never asserted; the
// audio thread has no recovery path.
func (e *AudioEngine) audioCallback(buf *synth.Buffer) {
	start := time.Now()
	buf.Clear()

	e.applyParameterChanges()
	e.notes.drain(e.applyNoteEvent)
	if e.flushNotes.Swap(false) {
		for _, slot := range e.slots {
			if slot != nil {
				slot.AllNotesOff()
			}
		}
	}

	if e.playing.Load() {
		e.advanceSequencer()
	}

	if e.mod != nil {
		e.mod.Process()
	}

	anySolo := false
	for _, slot := range e.slots {
		if slot != nil && slot.Soloed() {
			anySolo = true
			break
		}
	}
	for _, slot := range e.slots {
		if slot == nil {
			continue
		}
		if anySolo && !slot.Soloed() {
			continue
		}
		slot.Process(&e.scratch)
		buf.Accumulate(&e.scratch, 1)
	}

	if e.master != nil {
		e.master.ProcessBuffer(buf)
	}

	vol := synth.Clamp(math.Float32frombits(e.masterVolume.Load()), 0, 1)
	buf.Scale(vol)

	budget := float64(synth.BufferFrames) / float64(e.sampleRate)
	usage := time.Since(start).Seconds() / budget * 100
	e.cpuUsage.Store(math.Float32bits(float32(math.Min(usage, 100))))
}

// advanceSequencer moves the step clock forward by one buffer and fires any
// step boundaries that fall inside it.
func (e *AudioEngine) advanceSequencer() {
	spStep := e.samplesPerStep.Load()
	if spStep == 0 {
		return
	}
	counter := e.sampleCounter.Load() + synth.BufferFrames
	for counter >= spStep {
		counter -= spStep
		step := e.currentStep.Load()
		e.triggerStep(int(step))
		step++
		if step >= synth.PatternSteps {
			step = 0
			e.currentBar.Add(1)
		}
		e.currentStep.Store(step)
	}
	e.sampleCounter.Store(counter)
}

// triggerStep releases the previous sequencer note and fires every slot whose
// pattern hits on this step.
func (e *AudioEngine) triggerStep(step int) {
	for _, slot := range e.slots {
		if slot == nil || !slot.PatternActive() {
			continue
		}
		slot.NoteOff(seqNote)
		p := slot.Pattern()
		if p != nil && p.ShouldTrigger(step) {
			slot.NoteOn(seqNote, p.Velocity(step), 0)
		}
	}
}

// applyNoteEvent runs on the audio thread while draining the note ring.
func (e *AudioEngine) applyNoteEvent(ev noteEvent) {
	if ev.kind == noteKindAllOff {
		for _, slot := range e.slots {
			if slot != nil {
				slot.AllNotesOff()
			}
		}
		return
	}
	slot := e.Instrument(ev.target)
	if slot == nil {
		return
	}
	switch ev.kind {
	case noteKindOn:
		slot.NoteOn(int(ev.note), ev.velocity, ev.aftertouch)
	case noteKindOff:
		slot.NoteOff(int(ev.note))
	case noteKindAftertouch:
		slot.SetAftertouch(int(ev.note), ev.aftertouch)
	}
}

func (e *AudioEngine) applyParameterChanges() {
	for i := range e.paramChanges {
		c := &e.paramChanges[i]
		if c.pending.Swap(false) {
			if slot := e.Instrument(c.target); slot != nil {
				slot.SetParameter(c.param, c.value)
			}
		}
	}
}

// applyParameter is the modulation matrix delivery path; it already runs on
// the audio thread so it writes the slot directly.
func (e *AudioEngine) applyParameter(target synth.Color, id synth.ParameterID, value float32) {
	if slot := e.Instrument(target); slot != nil {
		slot.SetParameter(id, value)
	}
}

// Instrument returns the slot for a color, or nil when out of range.
func (e *AudioEngine) Instrument(c synth.Color) *instrument.Slot {
	if c < synth.ColorCount {
		return e.slots[c]
	}
	return nil
}

// SetActiveInstrument selects the slot that receives live note events.
func (e *AudioEngine) SetActiveInstrument(c synth.Color) {
	if c < synth.ColorCount {
		e.activeSlot.Store(int32(c))
	}
}

// ActiveInstrument returns the currently selected slot color.
func (e *AudioEngine) ActiveInstrument() synth.Color {
	return synth.Color(e.activeSlot.Load())
}

// NoteOn queues a note-on for the active slot. Key index 0 is middle C.
func (e *AudioEngine) NoteOn(keyIndex int, velocity, aftertouch float32) bool {
	return e.notes.push(noteEvent{
		kind:       noteKindOn,
		note:       uint8(60 + keyIndex),
		target:     e.ActiveInstrument(),
		velocity:   synth.Clamp(velocity, 0, 1),
		aftertouch: synth.Clamp(aftertouch, 0, 1),
	})
}

// NoteOff queues a note-off for the active slot.
func (e *AudioEngine) NoteOff(keyIndex int) bool {
	return e.notes.push(noteEvent{
		kind:   noteKindOff,
		note:   uint8(60 + keyIndex),
		target: e.ActiveInstrument(),
	})
}

// SetAftertouch queues a polyphonic aftertouch update for the active slot.
func (e *AudioEngine) SetAftertouch(keyIndex int, aftertouch float32) bool {
	return e.notes.push(noteEvent{
		kind:       noteKindAftertouch,
		note:       uint8(60 + keyIndex),
		target:     e.ActiveInstrument(),
		aftertouch: synth.Clamp(aftertouch, 0, 1),
	})
}

// PlayChord queues the chord pitches on every slot flagged for chord play,
// falling back to the active slot when none is flagged. Reports false if any
// event was dropped.
func (e *AudioEngine) PlayChord(keyIndexes []int, velocity float32) bool {
	velocity = synth.Clamp(velocity, 0, 1)
	targets := make([]synth.Color, 0, synth.MaxInstruments)
	for i, slot := range e.slots {
		if slot != nil && slot.ChordRole() {
			targets = append(targets, synth.Color(i))
		}
	}
	if len(targets) == 0 {
		targets = append(targets, e.ActiveInstrument())
	}
	ok := true
	for _, target := range targets {
		for _, key := range keyIndexes {
			if !e.notes.push(noteEvent{
				kind:     noteKindOn,
				note:     uint8(60 + key),
				target:   target,
				velocity: velocity,
			}) {
				ok = false
			}
		}
	}
	return ok
}

// AllNotesOff queues a release of every voice on every slot.
func (e *AudioEngine) AllNotesOff() bool {
	return e.notes.push(noteEvent{kind: noteKindAllOff})
}

// SetParameter queues a parameter change for the active slot.
func (e *AudioEngine) SetParameter(id synth.ParameterID, value float32) {
	e.SetInstrumentParameter(e.ActiveInstrument(), id, value)
}

// SetInstrumentParameter queues a parameter change for a specific slot. The
// value is clamped to its declared range here, at write time.
func (e *AudioEngine) SetInstrumentParameter(target synth.Color, id synth.ParameterID, value float32) {
	if target >= synth.ColorCount || id >= synth.ParamCount {
		return
	}
	idx := e.paramIndex.Add(1) % maxParameterChanges
	c := &e.paramChanges[idx]
	c.target = target
	c.param = id
	c.value = synth.ClampParam(id, value)
	c.pending.Store(true)
}

// Parameter reads the active slot's layer-0 value.
func (e *AudioEngine) Parameter(id synth.ParameterID) float32 {
	if slot := e.Instrument(e.ActiveInstrument()); slot != nil {
		return slot.Parameter(id)
	}
	return 0
}

// InstrumentParameter reads a specific slot's layer-0 value.
func (e *AudioEngine) InstrumentParameter(target synth.Color, id synth.ParameterID) float32 {
	if slot := e.Instrument(target); slot != nil {
		return slot.Parameter(id)
	}
	return 0
}

// Play starts the step sequencer.
func (e *AudioEngine) Play() {
	e.playing.Store(true)
}

// Stop halts playback abruptly: every voice goes to release and the step
// counter resets immediately, with no fade-out. The release travels on a
// dedicated flag, not the note ring, so a full ring cannot swallow it; it is
// applied after the ring drains and so also silences notes still in flight.
func (e *AudioEngine) Stop() {
	e.playing.Store(false)
	e.flushNotes.Store(true)
	e.sampleCounter.Store(0)
	e.currentStep.Store(0)
}

// Record toggles the record flag.
func (e *AudioEngine) Record(enable bool) {
	e.recording.Store(enable)
}

func (e *AudioEngine) IsPlaying() bool   { return e.playing.Load() }
func (e *AudioEngine) IsRecording() bool { return e.recording.Load() }

// SetBPM clamps to [60, 200] and recomputes the step length at 16th-note
// resolution: samplesPerStep = sampleRate / (bpm/60 * 4).
func (e *AudioEngine) SetBPM(bpm float32) {
	bpm = synth.Clamp(bpm, 60, 200)
	e.bpm.Store(math.Float32bits(bpm))
	stepsPerSecond := bpm / 60 * 4
	e.samplesPerStep.Store(uint32(float32(e.sampleRate) / stepsPerSecond))
}

func (e *AudioEngine) BPM() float32 {
	return math.Float32frombits(e.bpm.Load())
}

// SamplesPerStep returns the current step length in samples.
func (e *AudioEngine) SamplesPerStep() uint32 { return e.samplesPerStep.Load() }

func (e *AudioEngine) CurrentStep() uint32 { return e.currentStep.Load() }
func (e *AudioEngine) CurrentBar() uint32  { return e.currentBar.Load() }

// SetMasterVolume clamps to [0, 1] and stores atomically.
func (e *AudioEngine) SetMasterVolume(v float32) {
	e.masterVolume.Store(math.Float32bits(synth.Clamp(v, 0, 1)))
}

func (e *AudioEngine) MasterVolume() float32 {
	return math.Float32frombits(e.masterVolume.Load())
}

// Modulation returns the global modulation matrix.
func (e *AudioEngine) Modulation() *modulation.Matrix { return e.mod }

// MasterEQ returns the master bus EQ.
func (e *AudioEngine) MasterEQ() *effects.MasterEQ { return e.eq }

// ActiveVoiceCount sums voices across every slot.
func (e *AudioEngine) ActiveVoiceCount() int {
	n := 0
	for _, slot := range e.slots {
		if slot != nil {
			n += slot.ActiveVoiceCount()
		}
	}
	return n
}

// CPUUsage reports the last callback's time against the buffer budget.
func (e *AudioEngine) CPUUsage() float32 {
	return math.Float32frombits(e.cpuUsage.Load())
}
