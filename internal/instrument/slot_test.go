package instrument

import (
	"math"
	"testing"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

func newTestSlot(t *testing.T) *Slot {
	t.Helper()
	s := NewSlot(synth.ColorCoral, 48000)
	if err := s.AddEngine(synth.EngineMacroVA, 48000); err != nil {
		t.Fatal(err)
	}
	return s
}

func energy(buf *synth.Buffer) float64 {
	var sum float64
	for _, f := range buf {
		sum += math.Abs(float64(f.L)) + math.Abs(float64(f.R))
	}
	return sum
}

func TestAddRemoveEngine(t *testing.T) {
	s := NewSlot(synth.ColorPeach, 48000)
	if s.EngineCount() != 0 {
		t.Fatal("new slot should have no layers")
	}
	if err := s.AddEngine(synth.EngineMacroVA, 48000); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEngine(synth.EngineTidesOsc, 48000); err != nil {
		t.Fatal(err)
	}
	if s.EngineCount() != 2 {
		t.Fatalf("expected 2 layers, got %d", s.EngineCount())
	}
	if s.Engine(0).Type() != synth.EngineMacroVA || s.Engine(1).Type() != synth.EngineTidesOsc {
		t.Fatal("layer order wrong")
	}

	s.RemoveEngine(0)
	if s.EngineCount() != 1 || s.Engine(0).Type() != synth.EngineTidesOsc {
		t.Fatal("remove should shift remaining layers down")
	}
	s.RemoveEngine(5) // out of range, ignored
	if s.EngineCount() != 1 {
		t.Fatal("out-of-range remove must be a no-op")
	}

	if err := s.AddEngine(synth.EngineType(99), 48000); err == nil {
		t.Fatal("unknown engine type should error")
	}
}

func TestSlotRendersNotes(t *testing.T) {
	s := newTestSlot(t)
	s.NoteOn(60, 0.8, 0)
	var buf synth.Buffer
	var got float64
	for i := 0; i < 10; i++ {
		s.Process(&buf)
		got += energy(&buf)
	}
	if got == 0 {
		t.Fatal("expected audible output")
	}
}

func TestMutedSlotIsSilentButReleases(t *testing.T) {
	s := newTestSlot(t)
	s.NoteOn(60, 0.8, 0)
	var buf synth.Buffer
	s.Process(&buf)

	s.SetMute(true)
	s.Process(&buf)
	if energy(&buf) != 0 {
		t.Fatal("muted slot must render silence")
	}
	// Voice state is preserved behind the mute.
	if s.ActiveVoiceCount() == 0 {
		t.Fatal("mute must not kill voices")
	}

	// NoteOn is suppressed while muted; NoteOff still lands.
	s.NoteOn(64, 0.8, 0)
	if s.Engine(0).ActiveVoiceCount() != 1 {
		t.Fatal("note-on should be suppressed while muted")
	}
	s.SetParameter(synth.ParamRelease, 0.05)
	s.NoteOff(60)
	for i := 0; i < 40; i++ {
		s.Engine(0).Process(&buf)
	}
	if s.ActiveVoiceCount() != 0 {
		t.Fatal("note-off must propagate through a muted slot")
	}
}

func TestLayerBalanceScalesOutput(t *testing.T) {
	render := func(balance float32) float64 {
		s := newTestSlot(t)
		s.SetEngineBalance(0, balance)
		s.NoteOn(60, 0.8, 0)
		var buf synth.Buffer
		var sum float64
		for i := 0; i < 8; i++ {
			s.Process(&buf)
			sum += energy(&buf)
		}
		return sum
	}
	full := render(1)
	half := render(0.5)
	if half <= 0 || full <= 0 {
		t.Fatal("expected output at both balances")
	}
	if ratio := half / full; math.Abs(ratio-0.5) > 0.05 {
		t.Fatalf("balance 0.5 should halve output, ratio=%f", ratio)
	}
}

func TestDisabledLayerSkipped(t *testing.T) {
	s := newTestSlot(t)
	s.SetEngineEnabled(0, false)
	s.NoteOn(60, 0.8, 0)
	if s.Engine(0).ActiveVoiceCount() != 0 {
		t.Fatal("disabled layer must not receive note-on")
	}
	var buf synth.Buffer
	s.Process(&buf)
	if energy(&buf) != 0 {
		t.Fatal("disabled layer must not render")
	}
}

func TestPanAttenuatesOppositeChannel(t *testing.T) {
	sums := func(pan float32) (l, r float64) {
		s := newTestSlot(t)
		s.SetParameter(synth.ParamPan, pan)
		s.NoteOn(60, 0.8, 0)
		var buf synth.Buffer
		for i := 0; i < 8; i++ {
			s.Process(&buf)
			for _, f := range buf {
				l += math.Abs(float64(f.L))
				r += math.Abs(float64(f.R))
			}
		}
		return l, r
	}

	l, r := sums(-1)
	if r != 0 || l == 0 {
		t.Fatalf("hard left should silence right: l=%f r=%f", l, r)
	}
	l, r = sums(1)
	if l != 0 || r == 0 {
		t.Fatalf("hard right should silence left: l=%f r=%f", l, r)
	}
	l, r = sums(0)
	if l == 0 || l != r {
		t.Fatalf("center pan should be symmetric: l=%f r=%f", l, r)
	}
}

func TestSetParameterFansOutAndRemembers(t *testing.T) {
	s := NewSlot(synth.ColorSage, 48000)
	if err := s.AddEngine(synth.EngineMacroVA, 48000); err != nil {
		t.Fatal(err)
	}
	if err := s.AddEngine(synth.EngineTidesOsc, 48000); err != nil {
		t.Fatal(err)
	}

	// Harmonics is honored by tides only, but both layers remember it.
	s.SetParameter(synth.ParamHarmonics, 0.7)
	if got := s.EngineParameter(0, synth.ParamHarmonics); got != 0.7 {
		t.Fatalf("layer 0 stored %f", got)
	}
	if got := s.Engine(1).Parameter(synth.ParamHarmonics); got != 0.7 {
		t.Fatalf("tides engine got %f", got)
	}

	// Values clamp once at the slot boundary.
	s.SetParameter(synth.ParamHarmonics, 3)
	if got := s.Parameter(synth.ParamHarmonics); got != 1 {
		t.Fatalf("expected clamp to 1, got %f", got)
	}
}

func TestSetEngineParameterTargetsOneLayer(t *testing.T) {
	s := NewSlot(synth.ColorTeal, 48000)
	_ = s.AddEngine(synth.EngineTidesOsc, 48000)
	_ = s.AddEngine(synth.EngineTidesOsc, 48000)

	s.SetEngineParameter(1, synth.ParamMorph, 0.9)
	if got := s.EngineParameter(0, synth.ParamMorph); got == 0.9 {
		t.Fatal("layer 0 must be untouched")
	}
	if got := s.Engine(1).Parameter(synth.ParamMorph); got != 0.9 {
		t.Fatalf("layer 1 engine got %f", got)
	}
}

func TestDefaultNamesFollowColor(t *testing.T) {
	s := NewSlot(synth.ColorCoral, 48000)
	if s.Name() != "Coral Bass" {
		t.Fatalf("unexpected default name %q", s.Name())
	}
	s.SetName("Kick")
	if s.Name() != "Kick" {
		t.Fatal("rename failed")
	}
}

func TestPlayChordNotes(t *testing.T) {
	s := newTestSlot(t)
	s.PlayChordNotes([]int{60, 64, 67}, 0.8)
	if got := s.ActiveVoiceCount(); got != 3 {
		t.Fatalf("expected 3 chord voices, got %d", got)
	}
}
