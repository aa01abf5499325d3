// Package encoder writes rendered sample buffers to disk.
package encoder

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Encoder interface {
	EncodeBlock(block []int16) error
	Close() error
	TotalFrames() uint64
}

// ForPath picks an encoder from the extension of path. WAV output needs a
// seekable writer to patch its header on Close.
func ForPath(path string, w io.Writer, sampleRate int) (Encoder, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		ws, ok := w.(io.WriteSeeker)
		if !ok {
			return nil, fmt.Errorf("wav export needs a seekable writer")
		}
		return NewWAV(ws, sampleRate), nil
	case ".flac":
		return NewFlac(w, sampleRate)
	default:
		return nil, fmt.Errorf("unsupported export format %q (use .wav or .flac)", ext)
	}
}

// WriteAll feeds samples to enc in BlockSize chunks and closes it.
func WriteAll(enc Encoder, samples []int16) error {
	for i := 0; i < len(samples); i += BlockSize {
		end := min(i+BlockSize, len(samples))
		if err := enc.EncodeBlock(samples[i:end]); err != nil {
			enc.Close()
			return err
		}
	}
	return enc.Close()
}
