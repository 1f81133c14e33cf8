// aym_renderer.go - Frame-driven AY renderer shared by tracker and register-dump formats.

package main

import "time"

// aymFrameSource yields one tick of register writes at a time.
type aymFrameSource interface {
	Reset()
	// Tick fills f with the current tick's writes and advances. It reports
	// whether the source wrapped to its loop point.
	Tick(f *AYFrame) bool
	Frame() int
	LoopCount() int
}

type aymRenderer struct {
	src       aymFrameSource
	chip      *AYChip
	rate      int
	frameRate int
	frameDur  time.Duration
	ticks     int64
	frame     AYFrame
}

func newAYMRenderer(src aymFrameSource, clockHz, frameRate, sampleRate int, layout AYLayout) *aymRenderer {
	if frameRate <= 0 {
		frameRate = PSG_FRAME_RATE_PAL
	}
	chip := NewAYChip(clockHz, sampleRate)
	chip.SetLayout(layout)
	r := &aymRenderer{
		src:       src,
		chip:      chip,
		rate:      sampleRate,
		frameRate: frameRate,
		frameDur:  time.Second / time.Duration(frameRate),
	}
	r.Reset()
	return r
}

func (r *aymRenderer) Reset() {
	r.src.Reset()
	r.chip.Reset()
	r.ticks = 0
}

func (r *aymRenderer) Render(policy LoopPolicy) Chunk {
	if lc := r.src.LoopCount(); lc > 0 && (policy == nil || !policy(lc)) {
		return Chunk{}
	}
	r.frame = AYFrame{}
	r.src.Tick(&r.frame)
	r.chip.ApplyFrame(&r.frame)
	out := make([]int16, 2*samplesInFrame(r.ticks, r.rate, r.frameRate))
	r.chip.Render(out)
	r.ticks++
	return Chunk{SampleRate: r.rate, Samples: out}
}

func (r *aymRenderer) State() PlaybackState {
	return PlaybackState{
		Position:  time.Duration(r.src.Frame()) * r.frameDur,
		LoopCount: r.src.LoopCount(),
	}
}

// SetPosition replays register writes without synthesis up to the frame
// holding t. Seeking backwards restarts from the top.
func (r *aymRenderer) SetPosition(t time.Duration) {
	if t < 0 {
		t = 0
	}
	target := int(t / r.frameDur)
	if target < r.src.Frame() {
		r.Reset()
	}
	loops := r.src.LoopCount()
	for r.src.Frame() < target {
		r.frame = AYFrame{}
		if r.src.Tick(&r.frame) || r.src.LoopCount() != loops {
			r.chip.ApplyFrame(&r.frame)
			break
		}
		r.chip.ApplyFrame(&r.frame)
	}
	r.ticks = int64(r.src.Frame())
}
