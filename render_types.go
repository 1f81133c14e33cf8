// render_types.go - Renderer contract: PCM chunks, loop policy and playback state.

package main

import "time"

// Chunk is interleaved stereo signed 16-bit PCM. An empty chunk means end of
// stream.
type Chunk struct {
	SampleRate int
	Samples    []int16
}

func (c Chunk) Empty() bool { return len(c.Samples) == 0 }

// Frames returns the number of stereo sample frames.
func (c Chunk) Frames() int { return len(c.Samples) / 2 }

func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.Frames()) * time.Second / time.Duration(c.SampleRate)
}

// LoopPolicy is asked, once the track has wrapped loopCount times, whether
// to keep rendering.
type LoopPolicy func(loopCount int) bool

func LoopForever(int) bool { return true }

func LoopNever(int) bool { return false }

// LoopTimes plays the loop section n more times after the first pass.
func LoopTimes(n int) LoopPolicy {
	return func(loopCount int) bool { return loopCount <= n }
}

type PlaybackState struct {
	Position  time.Duration
	LoopCount int
}

// Renderer produces PCM one frame per call. Each instance owns its decoder
// state exclusively; the module it renders is shared read-only.
type Renderer interface {
	Render(policy LoopPolicy) Chunk
	Reset()
	SetPosition(t time.Duration)
	State() PlaybackState
}

// samplesInFrame splits rate samples per second into frameRate frames with
// an integer accumulator, so that n frames always total exactly
// n*rate/frameRate samples (truncated).
func samplesInFrame(frame int64, rate, frameRate int) int {
	r, f := int64(rate), int64(frameRate)
	return int((frame+1)*r/f - frame*r/f)
}
