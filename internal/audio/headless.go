package audio

import (
	"sync"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// Headless is an audio backend with no device behind it. Callers drive it
// explicitly through Render, which makes timing deterministic for tests and
// offline rendering.
type Headless struct {
	mu         sync.Mutex
	sampleRate int
	callback   func(*synth.Buffer)
}

func NewHeadless(sampleRate int) *Headless {
	return &Headless{sampleRate: sampleRate}
}

func (h *Headless) SetAudioCallback(fn func(*synth.Buffer)) {
	h.mu.Lock()
	h.callback = fn
	h.mu.Unlock()
}

func (h *Headless) SampleRate() int { return h.sampleRate }

// Render runs the callback for the requested number of whole buffers and
// returns the rendered frames in order.
func (h *Headless) Render(buffers int) []synth.Frame {
	h.mu.Lock()
	fn := h.callback
	h.mu.Unlock()

	out := make([]synth.Frame, 0, buffers*synth.BufferFrames)
	var buf synth.Buffer
	for i := 0; i < buffers; i++ {
		buf.Clear()
		if fn != nil {
			fn(&buf)
		}
		out = append(out, buf[:]...)
	}
	return out
}

// RenderInto runs the callback once into the caller's buffer.
func (h *Headless) RenderInto(buf *synth.Buffer) {
	h.mu.Lock()
	fn := h.callback
	h.mu.Unlock()

	buf.Clear()
	if fn != nil {
		fn(buf)
	}
}
