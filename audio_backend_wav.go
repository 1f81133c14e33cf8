// audio_backend_wav.go - 16-bit stereo WAV file writer backend for conversion.

package main

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

type wavBackend struct {
	path   string
	file   *os.File
	enc    *wav.Encoder
	buf    *audio.IntBuffer
	volume float64
	frames int64
}

func newWAVBackend(path string) *wavBackend {
	return &wavBackend{path: path, volume: 1}
}

func (b *wavBackend) Startup(sampleRate int) error {
	f, err := os.Create(b.path)
	if err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	b.file = f
	b.enc = wav.NewEncoder(f, sampleRate, 16, 2, 1)
	b.buf = &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}
	return nil
}

// Shutdown finalizes the RIFF header. The file is kept even when empty.
func (b *wavBackend) Shutdown() error {
	if b.file == nil {
		return nil
	}
	encErr := b.enc.Close()
	fileErr := b.file.Close()
	b.file, b.enc = nil, nil
	if encErr != nil {
		return fmt.Errorf("wav: %w", encErr)
	}
	if fileErr != nil {
		return fmt.Errorf("wav: %w", fileErr)
	}
	logger.Debug("wav written", "path", b.path, "frames", b.frames)
	return nil
}

func (b *wavBackend) FrameStart(PlaybackState) {}

func (b *wavBackend) FrameFinish(chunk Chunk) error {
	if b.enc == nil {
		return errBackendNotStarted
	}
	if cap(b.buf.Data) < len(chunk.Samples) {
		b.buf.Data = make([]int, len(chunk.Samples))
	}
	b.buf.Data = b.buf.Data[:len(chunk.Samples)]
	for i, s := range chunk.Samples {
		if b.volume == 1 {
			b.buf.Data[i] = int(s)
		} else {
			b.buf.Data[i] = int(float64(s) * b.volume)
		}
	}
	if err := b.enc.Write(b.buf); err != nil {
		return fmt.Errorf("wav: %w", err)
	}
	b.frames += int64(chunk.Frames())
	return nil
}

// Pause and Resume have no meaning for a file target.
func (b *wavBackend) Pause() error  { return nil }
func (b *wavBackend) Resume() error { return nil }

func (b *wavBackend) VolumeControl() VolumeControl { return b }

func (b *wavBackend) Volume() float64 { return b.volume }

func (b *wavBackend) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("wav: volume %.2f out of range", v)
	}
	b.volume = v
	return nil
}
