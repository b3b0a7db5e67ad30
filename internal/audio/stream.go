// Package audio provides the hardware audio backends. Output drives a real
// device through the ebiten audio context; Headless pumps the same callback
// contract synchronously for tests and offline rendering. Both expose the
// periodic fixed-size buffer callback the engine hooks into.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"

	ebitaudio "github.com/hajimehoshi/ebiten/v2/audio"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// frameBytes is one stereo float32 frame on the wire.
const frameBytes = 8

var (
	audioContextOnce sync.Once
	audioContext     *ebitaudio.Context
	audioSampleRate  int
)

// The ebiten audio context is process-global and fixed-rate; a second Output
// at a different rate is an error rather than a silent resample.
func sharedAudioContext(sampleRate int) (*ebitaudio.Context, error) {
	audioContextOnce.Do(func() {
		audioSampleRate = sampleRate
		audioContext = ebitaudio.NewContext(sampleRate)
	})
	if audioSampleRate != sampleRate {
		return nil, fmt.Errorf("audio context already initialized at %d Hz (requested %d Hz)", audioSampleRate, sampleRate)
	}
	return audioContext, nil
}

// callbackReader adapts the fixed-buffer callback to the pull-based stream
// the device player reads. The device pulls arbitrary byte counts; renders
// happen in whole buffers and the remainder is carried over.
type callbackReader struct {
	mu       sync.Mutex
	callback func(*synth.Buffer)
	buf      synth.Buffer
	leftover [synth.BufferFrames * frameBytes]byte
	have     int // unread bytes in leftover
	offset   int
}

func (r *callbackReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for n < len(p) {
		if r.have == 0 {
			r.buf.Clear()
			if r.callback != nil {
				r.callback(&r.buf)
			}
			for i := range r.buf {
				binary.LittleEndian.PutUint32(r.leftover[i*frameBytes:], math.Float32bits(r.buf[i].L))
				binary.LittleEndian.PutUint32(r.leftover[i*frameBytes+4:], math.Float32bits(r.buf[i].R))
			}
			r.have = len(r.leftover)
			r.offset = 0
		}
		c := copy(p[n:], r.leftover[r.offset:r.offset+r.have])
		n += c
		r.offset += c
		r.have -= c
	}
	return n, nil
}

func (r *callbackReader) setCallback(fn func(*synth.Buffer)) {
	r.mu.Lock()
	r.callback = fn
	r.mu.Unlock()
}

// Output is the live audio backend.
type Output struct {
	sampleRate int
	reader     *callbackReader
	player     *ebitaudio.Player
}

// NewOutput opens the shared device context at the given rate. The callback
// is installed later via SetAudioCallback; until then the output renders
// silence.
func NewOutput(sampleRate int) (*Output, error) {
	ctx, err := sharedAudioContext(sampleRate)
	if err != nil {
		return nil, err
	}
	reader := &callbackReader{}
	player, err := ctx.NewPlayerF32(reader)
	if err != nil {
		return nil, fmt.Errorf("audio: create player: %w", err)
	}
	return &Output{sampleRate: sampleRate, reader: reader, player: player}, nil
}

// SetAudioCallback installs the per-buffer render entry point.
func (o *Output) SetAudioCallback(fn func(*synth.Buffer)) {
	o.reader.setCallback(fn)
}

func (o *Output) SampleRate() int { return o.sampleRate }

// Start begins pulling buffers from the callback.
func (o *Output) Start() { o.player.Play() }

// Pause stops the pull without tearing the device down.
func (o *Output) Pause() { o.player.Pause() }

// Close releases the device player.
func (o *Output) Close() error {
	o.player.Pause()
	return o.player.Close()
}
