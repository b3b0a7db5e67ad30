// Package preset serializes instrument snapshots. Two formats exist: the raw
// fixed-layout per-engine blob exposed by each engine's SavePreset/LoadPreset
// (unversioned, no compatibility promise), and a named YAML bank for whole
// instrument slots built on top of the parameter space.
package preset

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/lachlanfysh/ether-sub007/internal/instrument"
	"github.com/lachlanfysh/ether-sub007/internal/synth"
)

// Layer captures one engine layer: its type tag and every parameter the
// engine honors, keyed by parameter name.
type Layer struct {
	Engine  string             `yaml:"engine"`
	Balance float32            `yaml:"balance"`
	Params  map[string]float32 `yaml:",flow"`
}

// Preset is a named snapshot of one instrument slot.
type Preset struct {
	Name   string  `yaml:"name"`
	Volume float32 `yaml:"volume"`
	Pan    float32 `yaml:"pan,omitempty"`
	Layers []Layer `yaml:"layers"`
}

// Bank is an ordered collection of presets.
type Bank struct {
	Presets []Preset `yaml:"presets"`
}

// Capture snapshots a slot into a preset. Only parameters each engine honors
// are recorded.
func Capture(name string, slot *instrument.Slot) Preset {
	p := Preset{Name: name, Volume: slot.Volume(), Pan: slot.Pan()}
	for i := 0; i < slot.EngineCount(); i++ {
		eng := slot.Engine(i)
		if eng == nil {
			continue
		}
		layer := Layer{
			Engine:  eng.Type().String(),
			Balance: slot.EngineBalance(i),
			Params:  make(map[string]float32),
		}
		for id := synth.ParameterID(0); id < synth.ParamCount; id++ {
			if eng.HasParameter(id) {
				layer.Params[id.String()] = eng.Parameter(id)
			}
		}
		p.Layers = append(p.Layers, layer)
	}
	return p
}

// Apply rebuilds a slot's layer stack from a preset. Existing layers are
// removed first. Must be called from the control thread only.
func Apply(p Preset, slot *instrument.Slot, sampleRate int) error {
	for slot.EngineCount() > 0 {
		slot.RemoveEngine(0)
	}
	for i, layer := range p.Layers {
		t, ok := synth.EngineTypeByName(layer.Engine)
		if !ok {
			return fmt.Errorf("preset %q: unknown engine %q", p.Name, layer.Engine)
		}
		if err := slot.AddEngine(t, sampleRate); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
		slot.SetEngineBalance(i, layer.Balance)
		for name, value := range layer.Params {
			id, ok := synth.ParamByName(name)
			if !ok {
				continue
			}
			slot.SetEngineParameter(i, id, value)
		}
	}
	slot.SetVolume(p.Volume)
	slot.SetPan(p.Pan)
	return nil
}

// Encode serializes a bank to YAML.
func Encode(b *Bank) ([]byte, error) {
	data, err := yaml.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("preset: encode bank: %w", err)
	}
	return data, nil
}

// Decode parses a YAML bank.
func Decode(data []byte) (*Bank, error) {
	var b Bank
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("preset: decode bank: %w", err)
	}
	return &b, nil
}

// Find returns the named preset.
func (b *Bank) Find(name string) (Preset, bool) {
	for _, p := range b.Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// Put inserts or replaces a preset by name.
func (b *Bank) Put(p Preset) {
	for i := range b.Presets {
		if b.Presets[i].Name == p.Name {
			b.Presets[i] = p
			return
		}
	}
	b.Presets = append(b.Presets, p)
}
