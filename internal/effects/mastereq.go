package effects

import (
	"math"
	"sync/atomic"
)

// MasterEQ is a 5-band equalizer for the master bus with runtime-adjustable
// gains. Bands split at 200Hz, 800Hz, 2.5kHz and 8kHz using cascaded one-pole
// crossovers. Gains are stored as float32 bit patterns so the control thread
// can set them while the audio thread reads without locks.
type MasterEQ struct {
	gains  [5]atomic.Uint32
	alphas [4]float32
	lpL    [4]float32
	lpR    [4]float32
}

var crossoverFreqs = [4]float64{200, 800, 2500, 8000}

// NewMasterEQ creates the EQ with all bands at unity.
func NewMasterEQ(sampleRate int) *MasterEQ {
	eq := &MasterEQ{}
	dt := 1.0 / float64(sampleRate)
	for i, freq := range crossoverFreqs {
		rc := 1.0 / (2.0 * math.Pi * freq)
		eq.alphas[i] = float32(dt / (rc + dt))
	}
	for i := range eq.gains {
		eq.gains[i].Store(math.Float32bits(1.0))
	}
	return eq
}

// SetGain sets the gain for band 0-4. 1.0 = unity, 2.0 = +6dB.
func (eq *MasterEQ) SetGain(band int, gain float32) {
	if band >= 0 && band < len(eq.gains) {
		eq.gains[band].Store(math.Float32bits(clamp(gain, 0, 4)))
	}
}

// Gain returns the current gain for band 0-4.
func (eq *MasterEQ) Gain(band int) float32 {
	if band >= 0 && band < len(eq.gains) {
		return math.Float32frombits(eq.gains[band].Load())
	}
	return 1.0
}

func (eq *MasterEQ) Process(l, r float32) (float32, float32) {
	// Peel off the low bands one crossover at a time; what remains after the
	// last crossover is the top band.
	var outL, outR float32
	remL, remR := l, r
	for i := 0; i < 4; i++ {
		eq.lpL[i] += eq.alphas[i] * (remL - eq.lpL[i])
		eq.lpR[i] += eq.alphas[i] * (remR - eq.lpR[i])
		g := math.Float32frombits(eq.gains[i].Load())
		outL += eq.lpL[i] * g
		outR += eq.lpR[i] * g
		remL -= eq.lpL[i]
		remR -= eq.lpR[i]
	}
	g := math.Float32frombits(eq.gains[4].Load())
	return outL + remL*g, outR + remR*g
}

func (eq *MasterEQ) Reset() {
	for i := range eq.lpL {
		eq.lpL[i] = 0
		eq.lpR[i] = 0
	}
}
