package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(44100)

type cue struct {
	freq     int
	duration time.Duration
}

var (
	cueHit    = cue{freq: 880, duration: 50 * time.Millisecond}
	cueEscape = cue{freq: 660, duration: 120 * time.Millisecond}
	cueCaught = cue{freq: 220, duration: 300 * time.Millisecond}
	cueWin    = cue{freq: 990, duration: 400 * time.Millisecond}
)

// cues plays short sine tones. A nil *cues is silent.
type cues struct{}

func newCues() (*cues, error) {
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return nil, err
	}
	return &cues{}, nil
}

func (c *cues) play(q cue) {
	if c == nil {
		return
	}
	sine, err := generators.SineTone(sampleRate, float64(q.freq))
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(q.duration), sine))
}

func (c *cues) close() {
	if c != nil {
		speaker.Close()
	}
}
