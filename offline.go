package ether

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// ErrNotHeadless is returned by offline rendering on a device-backed Synth.
var ErrNotHeadless = errors.New("offline rendering requires WithHeadless")

// RenderBuffers renders the given number of whole buffers and returns the
// frames in order. Only valid on a Synth built with WithHeadless.
func (s *Synth) RenderBuffers(buffers int) ([]Frame, error) {
	if s.headless == nil {
		return nil, ErrNotHeadless
	}
	return s.headless.Render(buffers), nil
}

// RenderSteps renders at least the given number of sequencer steps at the
// current BPM, rounded up to a whole buffer.
func (s *Synth) RenderSteps(steps int) ([]Frame, error) {
	if steps <= 0 {
		return nil, errors.New("steps must be positive")
	}
	if s.headless == nil {
		return nil, ErrNotHeadless
	}
	frames := steps * int(s.SamplesPerStep())
	buffers := (frames + synth.BufferFrames - 1) / synth.BufferFrames
	return s.RenderBuffers(buffers)
}

// RenderSeconds renders at least the given duration, rounded up to a whole
// buffer.
func (s *Synth) RenderSeconds(seconds float64) ([]Frame, error) {
	if seconds <= 0 {
		return nil, errors.New("seconds must be positive")
	}
	frames := int(float64(s.sampleRate) * seconds)
	buffers := (frames + synth.BufferFrames - 1) / synth.BufferFrames
	return s.RenderBuffers(buffers)
}

// EncodeWAVFloat32LE serializes stereo frames as a float32 WAV file.
func EncodeWAVFloat32LE(frames []Frame, sampleRate int) []byte {
	const channels = 2
	dataSize := len(frames) * channels * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], channels)
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, f := range frames {
		binary.LittleEndian.PutUint32(out[44+i*8:], math.Float32bits(f.L))
		binary.LittleEndian.PutUint32(out[48+i*8:], math.Float32bits(f.R))
	}
	return out
}
