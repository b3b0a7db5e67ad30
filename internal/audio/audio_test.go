package audio

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

func TestHeadlessRenderInvokesCallback(t *testing.T) {
	h := NewHeadless(48000)
	if h.SampleRate() != 48000 {
		t.Fatal("wrong sample rate")
	}

	calls := 0
	h.SetAudioCallback(func(buf *synth.Buffer) {
		calls++
		for i := range buf {
			buf[i].L = 0.25
			buf[i].R = -0.25
		}
	})

	frames := h.Render(3)
	if calls != 3 {
		t.Fatalf("expected 3 callback invocations, got %d", calls)
	}
	if len(frames) != 3*synth.BufferFrames {
		t.Fatalf("wrong frame count %d", len(frames))
	}
	for i, f := range frames {
		if f.L != 0.25 || f.R != -0.25 {
			t.Fatalf("frame %d = %+v", i, f)
		}
	}
}

func TestHeadlessWithoutCallbackIsSilent(t *testing.T) {
	h := NewHeadless(48000)
	for _, f := range h.Render(2) {
		if f.L != 0 || f.R != 0 {
			t.Fatal("expected silence without a callback")
		}
	}
}

func TestCallbackReaderChunksAcrossReads(t *testing.T) {
	r := &callbackReader{}
	n := 0
	r.setCallback(func(buf *synth.Buffer) {
		for i := range buf {
			buf[i].L = float32(n)
			buf[i].R = float32(-n)
		}
		n++
	})

	// Read in a size that does not divide the buffer byte length, forcing
	// leftover carry-over.
	var got []byte
	chunk := make([]byte, 100)
	total := 3 * synth.BufferFrames * frameBytes
	for len(got) < total {
		nr, err := r.Read(chunk)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, chunk[:nr]...)
	}
	got = got[:total]

	for i := 0; i < 3*synth.BufferFrames; i++ {
		want := float32(i / synth.BufferFrames)
		l := math.Float32frombits(binary.LittleEndian.Uint32(got[i*frameBytes:]))
		rr := math.Float32frombits(binary.LittleEndian.Uint32(got[i*frameBytes+4:]))
		if l != want || rr != -want {
			t.Fatalf("frame %d: l=%f r=%f want %f", i, l, rr, want)
		}
	}
}
