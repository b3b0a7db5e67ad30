package effects

import (
	"math"
	"testing"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

func TestChainOrderAndReset(t *testing.T) {
	d := NewDelay(48000)
	d.SetWet(0.5)
	r := NewReverb(48000)
	c := NewChain(d, r)

	var buf synth.Buffer
	buf[0] = synth.Frame{L: 1, R: 1}
	c.ProcessBuffer(&buf)

	// Dry wet=0 reverb passes the delayed signal through untouched; the
	// impulse survives attenuated.
	if buf[0].L == 0 {
		t.Fatal("impulse vanished")
	}

	c.Reset()
	var silent synth.Buffer
	c.ProcessBuffer(&silent)
	for i, f := range silent {
		if f.L != 0 || f.R != 0 {
			t.Fatalf("reset chain leaked state at frame %d: %+v", i, f)
		}
	}
}

func TestDelayEchoArrivesAtTapDistance(t *testing.T) {
	d := NewDelay(48000)
	d.SetTime(0) // minimum: 10ms = 480 samples
	d.SetFeedback(0)
	d.SetWet(1)

	l, _ := d.Process(1, 1)
	if l != 0 {
		t.Fatalf("fully wet delay should output silence on the impulse, got %f", l)
	}
	var echoAt int
	for i := 1; i < 1000; i++ {
		l, _ = d.Process(0, 0)
		if l != 0 {
			echoAt = i
			break
		}
	}
	if echoAt != 480 {
		t.Fatalf("echo at sample %d, want 480", echoAt)
	}
}

func TestDelayFeedbackClamped(t *testing.T) {
	d := NewDelay(48000)
	d.SetFeedback(2)
	if d.feedback > 0.95 {
		t.Fatalf("feedback %f exceeds stability bound", d.feedback)
	}
}

func TestReverbDryWhenWetZero(t *testing.T) {
	r := NewReverb(48000)
	for i := 0; i < 100; i++ {
		l, rr := r.Process(0.5, -0.5)
		if l != 0.5 || rr != -0.5 {
			t.Fatalf("wet=0 reverb must be transparent, got %f %f", l, rr)
		}
	}
}

func TestReverbProducesTail(t *testing.T) {
	r := NewReverb(48000)
	r.SetWet(0.5)
	r.Process(1, 1)
	var tail float64
	for i := 0; i < 48000; i++ {
		l, _ := r.Process(0, 0)
		tail += math.Abs(float64(l))
	}
	if tail == 0 {
		t.Fatal("expected reverb tail after impulse")
	}
}

func TestCompressorReducesLoudSignal(t *testing.T) {
	c := NewCompressor(48000, -18, 4, 5, 120, 0)
	// Let the envelope settle on a loud constant signal.
	var out float32
	for i := 0; i < 48000; i++ {
		out, _ = c.Process(0.9, 0.9)
	}
	if out >= 0.9 {
		t.Fatalf("expected gain reduction on loud signal, got %f", out)
	}

	c.Reset()
	quiet, _ := c.Process(0.01, 0.01)
	if quiet != 0.01 {
		t.Fatalf("signal below threshold must pass untouched, got %f", quiet)
	}
}

func TestMasterEQUnityIsTransparentAtDC(t *testing.T) {
	eq := NewMasterEQ(48000)
	var l float32
	for i := 0; i < 48000; i++ {
		l, _ = eq.Process(0.5, 0.5)
	}
	if math.Abs(float64(l)-0.5) > 1e-3 {
		t.Fatalf("unity EQ should settle to input, got %f", l)
	}
}

func TestMasterEQLowBandGain(t *testing.T) {
	eq := NewMasterEQ(48000)
	eq.SetGain(0, 2)
	if eq.Gain(0) != 2 {
		t.Fatal("gain readback failed")
	}
	var l float32
	for i := 0; i < 48000; i++ {
		l, _ = eq.Process(0.25, 0.25)
	}
	// DC lands in the lowest band; doubling it roughly doubles the output.
	if l < 0.4 {
		t.Fatalf("low band boost had no effect, got %f", l)
	}

	eq.SetGain(0, 10)
	if eq.Gain(0) > 4 {
		t.Fatalf("gain must clamp to 4, got %f", eq.Gain(0))
	}
}
