// audio_backend.go - Sound backend contract, PCM hand-off queue and the null backend.

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// SoundBackend consumes rendered chunks. FrameStart and FrameFinish bracket
// every chunk so a backend can observe the playback position.
type SoundBackend interface {
	Startup(sampleRate int) error
	Shutdown() error
	FrameStart(state PlaybackState)
	FrameFinish(chunk Chunk) error
	Pause() error
	Resume() error
	VolumeControl() VolumeControl
}

// VolumeControl is nil for backends without a mixer.
type VolumeControl interface {
	Volume() float64
	SetVolume(v float64) error
}

var errBackendNotStarted = errors.New("audio backend: not started")

// backendNames lists the -backend choices in preference order.
var backendNames = []string{"oto", "ebiten", "null"}

// newSoundBackend builds a device backend by name. The wav backend needs an
// output path and is created by the converter instead.
func newSoundBackend(name string) (SoundBackend, error) {
	switch strings.ToLower(name) {
	case "", "oto":
		return newOtoBackend(), nil
	case "ebiten":
		return newEbitenBackend(), nil
	case "null":
		return &nullBackend{}, nil
	default:
		return nil, fmt.Errorf("audio backend: unknown %q (want one of %s)", name, strings.Join(backendNames, ", "))
	}
}

// pcmQueue moves interleaved stereo int16 samples from the render loop to
// a device pull callback. Writers block while the queue is full; readers
// get silence on underrun so the device never stalls.
type pcmQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []int16
	capacity int
	closed   bool
	underrun int
}

func newPCMQueue(capacity int) *pcmQueue {
	q := &pcmQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Write queues samples, waiting for room. It returns false once the queue
// is closed.
func (q *pcmQueue) Write(samples []int16) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(samples) > 0 {
		for !q.closed && len(q.buf) >= q.capacity {
			q.cond.Wait()
		}
		if q.closed {
			return false
		}
		n := min(len(samples), q.capacity-len(q.buf))
		q.buf = append(q.buf, samples[:n]...)
		samples = samples[n:]
	}
	return true
}

// Read implements io.Reader over 16-bit little-endian stereo.
func (q *pcmQueue) Read(p []byte) (int, error) {
	n := len(p) / 2
	q.mu.Lock()
	avail := min(n, len(q.buf))
	for i := 0; i < avail; i++ {
		binary.LittleEndian.PutUint16(p[2*i:], uint16(q.buf[i]))
	}
	q.buf = q.buf[:copy(q.buf, q.buf[avail:])]
	if avail < n && !q.closed {
		q.underrun++
	}
	q.cond.Broadcast()
	q.mu.Unlock()
	clear(p[2*avail : 2*n])
	return 2 * n, nil
}

// Pending returns the number of queued samples.
func (q *pcmQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// Drain waits until the device has pulled everything or the timeout passes.
func (q *pcmQueue) Drain(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for q.Pending() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
}

func (q *pcmQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.buf = q.buf[:0]
	q.cond.Broadcast()
	q.mu.Unlock()
}

// nullBackend discards audio and only counts frames.
type nullBackend struct {
	rate    int
	started bool
	paused  bool
	frames  int64
	last    PlaybackState
	volume  float64
}

func (b *nullBackend) Startup(sampleRate int) error {
	b.rate = sampleRate
	b.started = true
	b.volume = 1
	return nil
}

func (b *nullBackend) Shutdown() error {
	b.started = false
	return nil
}

func (b *nullBackend) FrameStart(state PlaybackState) { b.last = state }

func (b *nullBackend) FrameFinish(chunk Chunk) error {
	if !b.started {
		return errBackendNotStarted
	}
	b.frames += int64(chunk.Frames())
	return nil
}

func (b *nullBackend) Pause() error {
	b.paused = true
	return nil
}

func (b *nullBackend) Resume() error {
	b.paused = false
	return nil
}

func (b *nullBackend) VolumeControl() VolumeControl { return b }

func (b *nullBackend) Volume() float64 { return b.volume }

func (b *nullBackend) SetVolume(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("audio backend: volume %.2f out of range", v)
	}
	b.volume = v
	return nil
}
