//go:build !headless

// audio_backend_oto.go - OTO v3 device output backend

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// otoQueueFrames bounds the latency between the render loop and the device.
const otoQueueFrames = 8192

// oto allows one context per process; later backends must share its rate.
var (
	otoContextOnce sync.Once
	otoContext     *oto.Context
	otoContextErr  error
	otoContextRate int
)

func sharedOtoContext(sampleRate int) (*oto.Context, error) {
	otoContextOnce.Do(func() {
		otoContextRate = sampleRate
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if err != nil {
			otoContextErr = err
			return
		}
		<-ready
		otoContext = ctx
	})
	if otoContextErr != nil {
		return nil, otoContextErr
	}
	if otoContextRate != sampleRate {
		return nil, fmt.Errorf("oto: context already running at %d Hz (requested %d Hz)", otoContextRate, sampleRate)
	}
	return otoContext, nil
}

type otoBackend struct {
	queue   *pcmQueue
	player  *oto.Player
	started bool
	mutex   sync.Mutex // Only for setup/control operations
}

func newOtoBackend() *otoBackend { return &otoBackend{} }

func (b *otoBackend) Startup(sampleRate int) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.started {
		return nil
	}
	ctx, err := sharedOtoContext(sampleRate)
	if err != nil {
		return err
	}
	b.queue = newPCMQueue(otoQueueFrames * 2)
	b.player = ctx.NewPlayer(b.queue)
	b.player.Play()
	b.started = true
	logger.Debug("oto backend started", "rate", sampleRate)
	return nil
}

func (b *otoBackend) Shutdown() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
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

func (b *otoBackend) FrameStart(PlaybackState) {}

// FrameFinish blocks while the device buffer is full, which paces the
// render loop at real time.
func (b *otoBackend) FrameFinish(chunk Chunk) error {
	if !b.started {
		return errBackendNotStarted
	}
	b.queue.Write(chunk.Samples)
	return nil
}

func (b *otoBackend) Pause() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.Pause()
	return nil
}

func (b *otoBackend) Resume() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.Play()
	return nil
}

func (b *otoBackend) VolumeControl() VolumeControl { return b }

func (b *otoBackend) Volume() float64 {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.player == nil {
		return 1
	}
	return b.player.Volume()
}

func (b *otoBackend) SetVolume(v float64) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if b.player == nil {
		return errBackendNotStarted
	}
	b.player.SetVolume(min(max(v, 0), 1))
	return nil
}

func init() {
	compiledFeatures = append(compiledFeatures, "audio:oto")
}
