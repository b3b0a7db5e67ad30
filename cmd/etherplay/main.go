package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	ether "github.com/lachlanfysh/ether-sub007"
	"github.com/lachlanfysh/ether-sub007/internal/midiio"
)

func main() {
	var (
		engineName = flag.String("engine", "macro_va", "synth engine: macro_va|tides_osc")
		bpm        = flag.Float64("bpm", 120, "sequencer tempo")
		euclid     = flag.String("euclid", "4/0", "euclidean pattern as hits/rotation for the active slot")
		wavPath    = flag.String("wav", "", "render offline to this WAV file instead of playing live")
		seconds    = flag.Float64("seconds", 4, "duration to render with -wav")
		useMIDI    = flag.Bool("midi", false, "listen on the first available MIDI input")
		midiPort   = flag.String("midi-port", "", "substring match for the MIDI input port")
		volume     = flag.Float64("volume", 0.8, "master volume 0..1")
	)
	flag.Parse()

	engineType, ok := ether.EngineTypeByName(strings.TrimSpace(*engineName))
	if !ok {
		log.Fatalf("invalid -engine %q (expected macro_va|tides_osc)", *engineName)
	}
	hits, rotation, err := parseEuclid(*euclid)
	if err != nil {
		log.Fatal(err)
	}

	opts := []ether.Option{
		ether.WithDefaultEngine(engineType),
		ether.WithBPM(float32(*bpm)),
	}
	if *wavPath != "" {
		opts = append(opts, ether.WithHeadless())
	}
	s, err := ether.New(opts...)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	s.SetMasterVolume(float32(*volume))
	s.SetEuclideanPattern(s.ActiveInstrument(), hits, rotation, true)
	s.Play()

	if *wavPath != "" {
		frames, err := s.RenderSeconds(*seconds)
		if err != nil {
			log.Fatal(err)
		}
		data := ether.EncodeWAVFloat32LE(frames, ether.SampleRate)
		if err := os.WriteFile(*wavPath, data, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s (%.1fs, %d frames)\n", *wavPath, *seconds, len(frames))
		return
	}

	var midiIn *midiio.Input
	if *useMIDI {
		midiIn, err = midiio.NewInput(s.AudioEngine, *midiPort)
		if err != nil {
			log.Fatal(err)
		}
		defer midiIn.Close()
	}

	s.Start()
	fmt.Printf("playing %s at %.0f bpm (euclid %d/%d); ctrl-c to stop\n",
		*engineName, *bpm, hits, rotation)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	tick := time.NewTicker(time.Second)
	defer tick.Stop()
	for {
		select {
		case <-sig:
			s.Stop()
			return
		case <-tick.C:
			if midiIn != nil {
				midiIn.Tick()
			}
		}
	}
}

func parseEuclid(s string) (hits, rotation int, err error) {
	parts := strings.SplitN(strings.TrimSpace(s), "/", 2)
	hits, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid -euclid %q: %v", s, err)
	}
	if len(parts) == 2 {
		rotation, err = strconv.Atoi(parts[1])
		if err != nil {
			return 0, 0, fmt.Errorf("invalid -euclid %q: %v", s, err)
		}
	}
	return hits, rotation, nil
}
