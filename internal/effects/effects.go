// Package effects provides the stereo effect chains applied per instrument
// slot and on the master bus. Effect state is mutated only from the audio
// thread (parameter changes are drained there before rendering), so
// processing needs no locks; the master EQ gains are the one exception and
// are stored atomically so they can be set from the control thread.
package effects

import "github.com/lachlanfysh/ether-sub007/internal/synth"

// Effector processes one stereo frame in place.
type Effector interface {
	Process(l, r float32) (float32, float32)
	Reset()
}

// Chain applies a sequence of effects in order.
type Chain struct {
	effects []Effector
}

func NewChain(effects ...Effector) *Chain {
	return &Chain{effects: effects}
}

func (c *Chain) Process(l, r float32) (float32, float32) {
	for _, e := range c.effects {
		l, r = e.Process(l, r)
	}
	return l, r
}

// ProcessBuffer runs the whole chain over a buffer in place.
func (c *Chain) ProcessBuffer(buf *synth.Buffer) {
	if len(c.effects) == 0 {
		return
	}
	for i := range buf {
		buf[i].L, buf[i].R = c.Process(buf[i].L, buf[i].R)
	}
}

func (c *Chain) Reset() {
	for _, e := range c.effects {
		e.Reset()
	}
}

func (c *Chain) Add(e Effector) {
	c.effects = append(c.effects, e)
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
