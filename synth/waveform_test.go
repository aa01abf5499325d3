package synth

import (
	"math"
	"testing"
)

const testAmp = 0.8 * math.MaxInt16

func TestSampleCount(t *testing.T) {
	tests := []struct {
		seconds float64
		rate    int
		want    int
	}{
		{1, 44100, 44100},
		{0.5, 44100, 22050},
		{0.25, 48000, 12000},
		{0.00001, 44100, 0},
		{0.00002, 44100, 1},
		{MaxSeconds, 44100, MaxSeconds * 44100},
		{1e300, 44100, 0},
		{math.Inf(1), 44100, 0},
		{math.NaN(), 44100, 0},
		{-1, 44100, 0},
		{1, 0, 0},
	}
	for _, tt := range tests {
		if got := SampleCount(tt.seconds, tt.rate); got != tt.want {
			t.Errorf("SampleCount(%v, %d) = %d, want %d", tt.seconds, tt.rate, got, tt.want)
		}
	}
}

func TestGenerateLengthAndBounds(t *testing.T) {
	limit := int16(math.Round(testAmp))
	for _, w := range []Waveform{Sine, Square, Triangle, Sawtooth} {
		t.Run(w.String(), func(t *testing.T) {
			samples := Generate(w, 440, 1, 44100, testAmp)
			if len(samples) != 44100 {
				t.Fatalf("len = %d, want 44100", len(samples))
			}
			for i, s := range samples {
				if s > limit || s < -limit {
					t.Fatalf("sample %d = %d outside ±%d", i, s, limit)
				}
			}
		})
	}
}

func TestGenerateOutOfRangeIsEmpty(t *testing.T) {
	if got := Generate(Sine, 440, 1e300, 44100, testAmp); len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

func TestGenerateZeroMean(t *testing.T) {
	// 441 Hz at 44100 Hz is exactly 100 samples per period.
	for _, w := range []Waveform{Sine, Sawtooth, Triangle} {
		t.Run(w.String(), func(t *testing.T) {
			samples := Generate(w, 441, 1, 44100, testAmp)
			var sum float64
			for _, s := range samples {
				sum += float64(s)
			}
			mean := sum / float64(len(samples))
			if math.Abs(mean) > 0.02*testAmp {
				t.Errorf("mean = %.1f, want |mean| <= %.1f", mean, 0.02*testAmp)
			}
		})
	}
}

func TestSquareTakesTwoLevels(t *testing.T) {
	a := int16(math.Round(testAmp))
	var hi, lo int
	for i, s := range Generate(Square, 440, 0.5, 44100, testAmp) {
		switch s {
		case a:
			hi++
		case -a:
			lo++
		default:
			t.Fatalf("sample %d = %d, want ±%d", i, s, a)
		}
	}
	if hi == 0 || lo == 0 {
		t.Errorf("hi=%d lo=%d, want both levels present", hi, lo)
	}
}

func TestSineStartsAtZeroAndPeaks(t *testing.T) {
	// 11025 Hz puts a peak exactly on sample 1.
	samples := Generate(Sine, 11025, 0.001, 44100, testAmp)
	if samples[0] != 0 {
		t.Errorf("samples[0] = %d, want 0", samples[0])
	}
	if want := int16(math.Round(testAmp)); samples[1] != want {
		t.Errorf("samples[1] = %d, want %d", samples[1], want)
	}
}

func TestTriangleShape(t *testing.T) {
	tests := []struct {
		phase float64
		want  float64
	}{
		{0, 0},
		{0.125, 0.5},
		{0.25, 1},
		{0.5, 0},
		{0.75, -1},
		{0.875, -0.5},
	}
	for _, tt := range tests {
		got := shape(Triangle, 1, tt.phase)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("triangle(%v) = %v, want %v", tt.phase, got, tt.want)
		}
	}
}

func TestSawtoothShape(t *testing.T) {
	if got := shape(Sawtooth, 1, 0); got != -1 {
		t.Errorf("saw(0) = %v, want -1", got)
	}
	if got := shape(Sawtooth, 1, 0.5); math.Abs(got) > 1e-9 {
		t.Errorf("saw(0.5) = %v, want 0", got)
	}
}

func TestParseWaveform(t *testing.T) {
	tests := []struct {
		in      string
		want    Waveform
		wantErr bool
	}{
		{"sine", Sine, false},
		{"SQUARE", Square, false},
		{" triangle ", Triangle, false},
		{"sawtooth", Sawtooth, false},
		{"saw", Sawtooth, false},
		{"noise", Sine, true},
		{"", Sine, true},
	}
	for _, tt := range tests {
		got, err := ParseWaveform(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseWaveform(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWaveform(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestWaveformString(t *testing.T) {
	if got := Waveform(9).String(); got != "Waveform(9)" {
		t.Errorf("String = %q", got)
	}
}
