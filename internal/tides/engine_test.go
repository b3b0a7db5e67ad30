package tides

import (
	"math"
	"testing"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

func renderBuffers(e *Engine, n int) []synth.Frame {
	out := make([]synth.Frame, 0, n*synth.BufferFrames)
	var buf synth.Buffer
	for i := 0; i < n; i++ {
		e.Process(&buf)
		out = append(out, buf[:]...)
	}
	return out
}

func TestEngineGeneratesSignal(t *testing.T) {
	e := New(48000)
	e.NoteOn(60, 0.8, 0)

	var nonZero bool
	for _, f := range renderBuffers(e, 20) {
		if f.L != 0 || f.R != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("expected non-zero output")
	}
}

func TestVoicePoolNeverExceeded(t *testing.T) {
	e := New(48000)
	for n := 0; n < 40; n++ {
		e.NoteOn(n, 0.8, 0)
		if got := e.ActiveVoiceCount(); got > e.MaxVoiceCount() {
			t.Fatalf("active voices %d exceeds pool size %d", got, e.MaxVoiceCount())
		}
	}
	if got := e.ActiveVoiceCount(); got != e.MaxVoiceCount() {
		t.Fatalf("expected full pool, got %d voices", got)
	}
}

func TestSameNoteRebindsVoice(t *testing.T) {
	e := New(48000)
	e.NoteOn(5, 0.8, 0)
	e.NoteOn(5, 0.8, 0)
	if got := e.ActiveVoiceCount(); got != 1 {
		t.Fatalf("same note should rebind its voice, got %d active", got)
	}
}

func TestStealTakesOldestVoice(t *testing.T) {
	e := New(48000)
	// First note rendered alone so it accumulates age before the rest.
	e.NoteOn(0, 0.8, 0)
	renderBuffers(e, 2)
	for n := 1; n < e.MaxVoiceCount(); n++ {
		e.NoteOn(n, 0.8, 0)
	}
	renderBuffers(e, 1)

	// Pool is full; the next note must steal the first-triggered voice.
	e.NoteOn(100, 0.8, 0)
	if e.findVoice(0) != nil {
		t.Fatal("expected note 0 voice to be stolen")
	}
	if e.findVoice(100) == nil {
		t.Fatal("expected stolen voice rebound to note 100")
	}
	if got := e.ActiveVoiceCount(); got != e.MaxVoiceCount() {
		t.Fatalf("steal must not change active count, got %d", got)
	}
}

func TestNoteOffReleasesThenFreesVoice(t *testing.T) {
	e := New(48000)
	e.SetParameter(synth.ParamRelease, 0.05)
	e.NoteOn(0, 0.8, 0)
	renderBuffers(e, 4)
	e.NoteOff(0)
	if got := e.ActiveVoiceCount(); got != 1 {
		t.Fatalf("voice should stay active through release, got %d", got)
	}

	// 0.05s of release at 48k is well inside 30 buffers.
	renderBuffers(e, 30)
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("expected silence after release, got %d active voices", got)
	}
}

func TestAllNotesOffSilencesEverything(t *testing.T) {
	e := New(48000)
	e.SetParameter(synth.ParamRelease, 0.05)
	for n := 0; n < 8; n++ {
		e.NoteOn(n, 0.8, 0)
	}
	renderBuffers(e, 2)
	e.AllNotesOff()
	renderBuffers(e, 30)
	if got := e.ActiveVoiceCount(); got != 0 {
		t.Fatalf("expected 0 active voices after all-notes-off, got %d", got)
	}
	var buf synth.Buffer
	e.Process(&buf)
	for i, f := range buf {
		if f.L != 0 || f.R != 0 {
			t.Fatalf("frame %d not silent: %+v", i, f)
		}
	}
}

func TestEqualPowerVoiceScaling(t *testing.T) {
	// Rendering two notes together must equal the independent single-note
	// renders summed and scaled by 1/sqrt(2).
	a := New(48000)
	a.NoteOn(60, 0.8, 0)
	fa := renderBuffers(a, 8)

	b := New(48000)
	b.NoteOn(72, 0.8, 0)
	fb := renderBuffers(b, 8)

	c := New(48000)
	c.NoteOn(60, 0.8, 0)
	c.NoteOn(72, 0.8, 0)
	fc := renderBuffers(c, 8)

	scale := 1 / math.Sqrt(2)
	for i := range fc {
		want := (float64(fa[i].L) + float64(fb[i].L)) * scale
		if diff := math.Abs(float64(fc[i].L) - want); diff > 1e-4 {
			t.Fatalf("frame %d: got %f want %f (diff %g)", i, fc[i].L, want, diff)
		}
	}
}

func TestSlopeSteepnessMonotonicInHarmonics(t *testing.T) {
	e := New(48000)
	prev := -1.0
	for h := float32(0); h <= 1; h += 0.05 {
		e.SetParameter(synth.ParamHarmonics, h)
		s := e.slopeSteepness()
		if s <= prev {
			t.Fatalf("steepness not increasing at harmonics=%f: %f <= %f", h, s, prev)
		}
		prev = s
	}
}

func TestTimbreMaterialWalk(t *testing.T) {
	var m freqMaterial
	m.deriveFromTimbre(0.25)
	if !m.harmonic || m.material != materialWood {
		t.Fatalf("low timbre should stay harmonic wood, got %+v", m)
	}
	if m.ratio < 0.25 || m.ratio > 4 {
		t.Fatalf("ratio out of range: %f", m.ratio)
	}

	m.deriveFromTimbre(0.95)
	if m.material == materialWood {
		t.Fatal("high timbre should walk past wood")
	}
	if m.harmonic {
		t.Fatal("high timbre should be inharmonic")
	}
	if m.amount <= 0.3 {
		t.Fatalf("high timbre should raise material amount, got %f", m.amount)
	}
}

func TestHarderSlopeAddsHarmonics(t *testing.T) {
	// Sharper slopes mean more high-frequency content; compare the sum of
	// absolute sample-to-sample differences as a crude spectral tilt proxy.
	roughness := func(h float32) float64 {
		e := New(48000)
		e.SetParameter(synth.ParamHarmonics, h)
		e.NoteOn(60, 0.8, 0)
		frames := renderBuffers(e, 16)
		var sum float64
		for i := 1; i < len(frames); i++ {
			sum += math.Abs(float64(frames[i].L - frames[i-1].L))
		}
		return sum
	}
	smooth := roughness(0.05)
	sharp := roughness(0.95)
	if sharp <= smooth {
		t.Fatalf("expected sharper slope to be rougher: sharp=%f smooth=%f", sharp, smooth)
	}
}

func TestDampingEnvDecaysTowardSustain(t *testing.T) {
	var d dampingEnv
	d.set(ampDamping{damping: 0.8, dampingRate: 5, sustainLevel: 0.4})
	d.trigger()
	prev := 1.0
	for i := 0; i < 48000; i++ {
		lv := d.process(48000)
		if lv > prev+1e-9 {
			t.Fatalf("damping level rose at sample %d: %f > %f", i, lv, prev)
		}
		prev = lv
	}
	if prev < 0.4-1e-3 {
		t.Fatalf("damping undershot sustain level: %f", prev)
	}
}

func TestEnvelopeStages(t *testing.T) {
	env := envelope{attack: 0.001, decay: 0.01, sustain: 0.5, release: 0.01, sampleRate: 48000}
	env.noteOn()
	if env.stage != stageAttack {
		t.Fatal("note-on should enter attack")
	}
	for i := 0; i < 48000 && env.stage != stageSustain; i++ {
		env.process()
	}
	if env.stage != stageSustain {
		t.Fatal("envelope never reached sustain")
	}
	if env.level != 0.5 {
		t.Fatalf("sustain level = %f, want 0.5", env.level)
	}
	env.noteOff()
	for i := 0; i < 48000 && env.stage != stageIdle; i++ {
		env.process()
	}
	if env.stage != stageIdle || env.level != 0 {
		t.Fatalf("release did not land at idle/0: stage=%d level=%f", env.stage, env.level)
	}
}

func TestRetriggerStartsFromZero(t *testing.T) {
	env := envelope{attack: 1, decay: 0.3, sustain: 0.8, release: 0.5, sampleRate: 48000}
	env.noteOn()
	for i := 0; i < 24000; i++ {
		env.process()
	}
	if env.level < 0.4 {
		t.Fatalf("expected mid-attack level, got %f", env.level)
	}
	env.noteOn()
	if env.level != 0 || env.stage != stageAttack {
		t.Fatalf("retrigger should reset to attack from zero, got stage=%d level=%f", env.stage, env.level)
	}
}

func TestPresetRoundTrip(t *testing.T) {
	e := New(48000)
	e.SetParameter(synth.ParamHarmonics, 0.7)
	e.SetParameter(synth.ParamTimbre, 0.9)
	e.SetParameter(synth.ParamMorph, 0.2)
	e.SetParameter(synth.ParamAttack, 0.25)
	blob := e.SavePreset()

	e2 := New(48000)
	if err := e2.LoadPreset(blob); err != nil {
		t.Fatal(err)
	}
	for _, id := range []synth.ParameterID{
		synth.ParamHarmonics, synth.ParamTimbre, synth.ParamMorph, synth.ParamAttack,
	} {
		if got, want := e2.Parameter(id), e.Parameter(id); got != want {
			t.Errorf("param %v: got %f want %f", id, got, want)
		}
	}

	if err := e2.LoadPreset(blob[:8]); err == nil {
		t.Fatal("expected error for truncated blob")
	}
}
