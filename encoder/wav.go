package encoder

import (
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// wavPCM is the WAVE format tag for integer PCM.
const wavPCM = 1

type WAVEncoder struct {
	enc         *wav.Encoder
	format      *goaudio.Format
	totalFrames uint64
}

func NewWAV(w io.WriteSeeker, sampleRate int) *WAVEncoder {
	return &WAVEncoder{
		enc: wav.NewEncoder(w, sampleRate, BitsPerSample, Channels, wavPCM),
		format: &goaudio.Format{
			SampleRate:  sampleRate,
			NumChannels: Channels,
		},
	}
}

func (e *WAVEncoder) EncodeBlock(block []int16) error {
	buf := &goaudio.IntBuffer{
		Format:         e.format,
		Data:           make([]int, len(block)),
		SourceBitDepth: BitsPerSample,
	}
	for i, s := range block {
		buf.Data[i] = int(s)
	}
	if err := e.enc.Write(buf); err != nil {
		return fmt.Errorf("writing wav block: %w", err)
	}
	e.totalFrames += uint64(len(block))
	return nil
}

func (e *WAVEncoder) Close() error {
	return e.enc.Close()
}

func (e *WAVEncoder) TotalFrames() uint64 {
	return e.totalFrames
}
