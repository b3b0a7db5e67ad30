// Package midiio connects a hardware MIDI input to the audio engine. It
// watches for a usable port, auto-connects, and survives hot-unplug by
// rescanning until the device comes back.
package midiio

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/lachlanfysh/ether-sub007/internal/engine"
	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// referenceKey is MIDI note 60 (middle C), key index 0 on the device.
const referenceKey = 60

// Virtual/system ports that are never auto-connected.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const rescanInterval = time.Second

// ccMap routes the common control-change numbers to instrument parameters.
var ccMap = map[uint8]synth.ParameterID{
	1:  synth.ParamLFODepth,
	7:  synth.ParamVolume,
	10: synth.ParamPan,
	71: synth.ParamFilterResonance,
	72: synth.ParamRelease,
	73: synth.ParamAttack,
	74: synth.ParamFilterCutoff,
	91: synth.ParamReverbMix,
	93: synth.ParamDelayFeedback,
}

// Input watches the available MIDI input ports and forwards note and
// controller messages to the engine's active instrument. Tick must be called
// periodically from the control thread to drive scanning and reconnection.
type Input struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	eng          *engine.AudioEngine
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time
	prefer       string
}

// NewInput initialises the rtmidi driver. prefer, if non-empty, is a
// case-insensitive substring match restricting which port to connect to.
// Call Close when done.
func NewInput(eng *engine.AudioEngine, prefer string) (*Input, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &Input{drv: drv, eng: eng, prefer: prefer}, nil
}

// Close shuts down the active connection and the driver.
func (m *Input) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	m.drv.Close()
}

// Connected reports whether a port is currently open.
func (m *Input) Connected() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectedName, m.connected
}

// Tick scans for ports, auto-connects, and detects disappearances. Call it
// on a regular interval from the main loop.
func (m *Input) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < rescanInterval {
		return
	}
	m.lastRescanAt = now

	inputs := m.listInputs()

	if m.connected {
		for _, n := range inputs {
			if n == m.selectedName {
				return
			}
		}
		log.Printf("midi: device %q disappeared", m.selectedName)
		m.closeConn()
		m.lastRescanAt = time.Time{}
		m.eng.AllNotesOff()
		return
	}

	cand, ok := m.pickPort(inputs)
	if !ok {
		return
	}
	if err := m.openByName(cand); err != nil {
		log.Printf("midi: connect %q failed: %v", cand, err)
	}
}

func (m *Input) listInputs() []string {
	ins, err := m.drv.Ins()
	if err != nil {
		log.Printf("midi: list inputs failed: %v", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pat := range excludedPatterns {
			if containsCI(name, pat) {
				excluded = true
				break
			}
		}
		if !excluded {
			names = append(names, name)
		}
	}
	return names
}

func (m *Input) pickPort(inputs []string) (string, bool) {
	if m.prefer != "" {
		for _, name := range inputs {
			if containsCI(name, m.prefer) {
				return name, true
			}
		}
		return "", false
	}
	if len(inputs) > 0 {
		return inputs[0], true
	}
	return "", false
}

func (m *Input) closeConn() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.inPort != nil {
		_ = m.inPort.Close()
		m.inPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *Input) openByName(name string) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, m.handleMessage, midi.HandleError(func(listenErr error) {
		log.Printf("midi: listener error on %q: %v", name, listenErr)
		// The listener goroutine must not close its own port; dispatch and
		// re-acquire the mutex.
		go func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.connected && m.selectedName == name {
				m.closeConn()
				m.lastRescanAt = time.Time{}
				m.eng.AllNotesOff()
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.inPort = found
	m.stopFn = stop
	m.connected = true
	m.selectedName = name
	log.Printf("midi: connected to %q", name)
	return nil
}

func (m *Input) handleMessage(msg midi.Message, _ int32) {
	var ch, key, vel uint8
	var ctrl, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		m.eng.NoteOn(int(key)-referenceKey, float32(vel)/127, 0)
	case msg.GetNoteEnd(&ch, &key):
		m.eng.NoteOff(int(key) - referenceKey)
	case msg.GetPolyAfterTouch(&ch, &key, &vel):
		m.eng.SetAftertouch(int(key)-referenceKey, float32(vel)/127)
	case msg.GetControlChange(&ch, &ctrl, &val):
		if id, ok := ccMap[ctrl]; ok {
			v := float32(val) / 127
			if id == synth.ParamPan {
				v = v*2 - 1
			}
			m.eng.SetInstrumentParameter(m.eng.ActiveInstrument(), id, v)
		}
	}
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
