//go:build !headless

// audio_backend_ebiten.go - Ebitengine audio player backend

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const ebitenQueueFrames = 8192

var (
	ebitenContextOnce sync.Once
	ebitenContext     *audio.Context
	ebitenContextRate int
)

func sharedEbitenContext(sampleRate int) (*audio.Context, error) {
	ebitenContextOnce.Do(func() {
		ebitenContextRate = sampleRate
		ebitenContext = audio.NewContext(sampleRate)
	})
	if ebitenContextRate != sampleRate {
		return nil, fmt.Errorf("ebiten audio: context already running at %d Hz (requested %d Hz)", ebitenContextRate, sampleRate)
	}
	return ebitenContext, nil
}

type ebitenBackend struct {
	mu      sync.Mutex
	queue   *pcmQueue
	player  *audio.Player
	started bool
}

func newEbitenBackend() *ebitenBackend { return &ebitenBackend{} }

func (b *ebitenBackend) Startup(sampleRate int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}
	ctx, err := sharedEbitenContext(sampleRate)
	if err != nil {
		return err
	}
	b.queue = newPCMQueue(ebitenQueueFrames * 2)
	player, err := ctx.NewPlayer(b.queue)
	if err != nil {
		return fmt.Errorf("ebiten audio: %w", err)
	}
	player.SetBufferSize(50 * time.Millisecond)
	player.Play()
	b.player = player
	b.started = true
	return nil
}

func (b *ebitenBackend) Shutdown() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	b.queue.Drain(time.Second)
	b.queue.Close()
	err := b.player.Close()
	b.player = nil
	b.started = false
	return err
}

func (b *ebitenBackend) FrameStart(PlaybackState) {}

func (b *ebitenBackend) FrameFinish(chunk Chunk) error {
	if !b.started {
		return errBackendNotStarted
	}
	b.queue.Write(chunk.Samples)
	return nil
}

func (b *ebitenBackend) Pause() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.Pause()
	return nil
}

func (b *ebitenBackend) Resume() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.Play()
	return nil
}

func (b *ebitenBackend) VolumeControl() VolumeControl { return b }

func (b *ebitenBackend) Volume() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return 1
	}
	return b.player.Volume()
}

func (b *ebitenBackend) SetVolume(v float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.SetVolume(min(max(v, 0), 1))
	return nil
}

func init() {
	compiledFeatures = append(compiledFeatures, "audio:ebiten")
}
