// Package synth generates periodic tones and plays them through an initialized
// audio.System.
package synth

import (
	"fmt"
	"math"
	"strings"
)

type Waveform int

const (
	Sine Waveform = iota
	Square
	Triangle
	Sawtooth
)

var waveformNames = [...]string{
	Sine:     "sine",
	Square:   "square",
	Triangle: "triangle",
	Sawtooth: "sawtooth",
}

func (w Waveform) String() string {
	if w >= 0 && int(w) < len(waveformNames) {
		return waveformNames[w]
	}
	return fmt.Sprintf("Waveform(%d)", int(w))
}

func ParseWaveform(s string) (Waveform, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range waveformNames {
		if n == name {
			return Waveform(i), nil
		}
	}
	if name == "saw" {
		return Sawtooth, nil
	}
	return Sine, fmt.Errorf("unknown waveform %q (use sine, square, triangle or sawtooth)", s)
}

// MaxSeconds is the longest tone that can be rendered.
const MaxSeconds = 3600

// SampleCount is the buffer length for seconds of audio at sampleRate. It is 0
// when seconds is not in [0, MaxSeconds] or sampleRate is not positive.
func SampleCount(seconds float64, sampleRate int) int {
	if !(seconds >= 0) || seconds > MaxSeconds || sampleRate <= 0 {
		return 0
	}
	return int(math.Round(seconds * float64(sampleRate)))
}

// Generate renders seconds of w at freq into mono samples bounded by
// [-amplitude, amplitude].
func Generate(w Waveform, freq, seconds float64, sampleRate int, amplitude float64) []int16 {
	n := SampleCount(seconds, sampleRate)
	samples := make([]int16, n)
	for i := range samples {
		t := float64(i) / float64(sampleRate)
		samples[i] = int16(math.Round(amplitude * shape(w, freq, t)))
	}
	return samples
}

// shape evaluates the unit-amplitude waveform at time t.
func shape(w Waveform, freq, t float64) float64 {
	phase := freq * t
	phase -= math.Floor(phase)

	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	case Sawtooth:
		return 2*phase - 1
	default:
		return math.Sin(2 * math.Pi * freq * t)
	}
}
