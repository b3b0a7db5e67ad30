package engine

import (
	"sync/atomic"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// maxParameterChanges sizes the pending-change array. Writers pick slots by
// an atomically incremented index modulo this size; two writes landing on the
// same slot before the audio thread drains it coalesce to the latest value.
// That loss is acceptable because parameters are continuous controls, not
// discrete events.
const maxParameterChanges = 256

type parameterChange struct {
	target  synth.Color
	param   synth.ParameterID
	value   float32
	pending atomic.Bool
}

type noteKind uint8

const (
	noteKindOn noteKind = iota
	noteKindOff
	noteKindAftertouch
	noteKindAllOff
)

type noteEvent struct {
	kind       noteKind
	note       uint8
	target     synth.Color
	velocity   float32
	aftertouch float32
}

// noteRingSize bounds the note-event queue. One buffer period drains the
// whole ring, so overflow needs more than noteRingSize events inside ~2.7ms.
const noteRingSize = 256

// noteRing is a bounded single-producer/single-consumer ring. Note events are
// discrete, so unlike parameter changes they are never coalesced; on overflow
// the newest event is dropped and the producer is told.
type noteRing struct {
	buf  [noteRingSize]noteEvent
	head atomic.Uint32 // consumer position
	tail atomic.Uint32 // producer position
}

// push enqueues one event. Returns false when the ring is full.
func (r *noteRing) push(ev noteEvent) bool {
	tail := r.tail.Load()
	if tail-r.head.Load() >= noteRingSize {
		return false
	}
	r.buf[tail%noteRingSize] = ev
	r.tail.Store(tail + 1)
	return true
}

// drain consumes every queued event in order, preserving per-buffer ordering.
func (r *noteRing) drain(apply func(noteEvent)) {
	head := r.head.Load()
	tail := r.tail.Load()
	for ; head != tail; head++ {
		apply(r.buf[head%noteRingSize])
	}
	r.head.Store(head)
}
