// dump_builder.go - Register dump builder (PSG, YM) and its frame source.

package main

import (
	"fmt"
	"time"
)

// DumpBuilder receives a stream of AY register frames. SetRegister writes
// into the most recently added frame.
type DumpBuilder interface {
	Meta() MetaBuilder
	SetClock(hz int)
	SetFrameRate(hz int)
	SetLoopFrame(frame int)
	AddChunks(count int)
	SetRegister(reg int, value uint8)
}

type stubDumpBuilder struct{}

func (stubDumpBuilder) Meta() MetaBuilder      { return stubMetaBuilder{} }
func (stubDumpBuilder) SetClock(int)           {}
func (stubDumpBuilder) SetFrameRate(int)       {}
func (stubDumpBuilder) SetLoopFrame(int)       {}
func (stubDumpBuilder) AddChunks(int)          {}
func (stubDumpBuilder) SetRegister(int, uint8) {}

// maxDumpFrames caps register dumps at three hours at 50 Hz.
const maxDumpFrames = 50 * 60 * 60 * 3

type dumpModuleBuilder struct {
	meta      propertiesMetaBuilder
	frames    []AYFrame
	clock     int
	frameRate int
	loop      int
	overflow  bool
}

func newDumpModuleBuilder(props *Properties, clock int) *dumpModuleBuilder {
	return &dumpModuleBuilder{
		meta:      propertiesMetaBuilder{props: props},
		clock:     clock,
		frameRate: PSG_FRAME_RATE_PAL,
	}
}

func (b *dumpModuleBuilder) Meta() MetaBuilder { return b.meta }

func (b *dumpModuleBuilder) SetClock(hz int) {
	if hz > 0 {
		b.clock = hz
	}
}

func (b *dumpModuleBuilder) SetFrameRate(hz int) {
	if hz > 0 {
		b.frameRate = hz
	}
}

func (b *dumpModuleBuilder) SetLoopFrame(frame int) { b.loop = frame }

func (b *dumpModuleBuilder) AddChunks(count int) {
	if count <= 0 {
		return
	}
	if len(b.frames)+count > maxDumpFrames {
		b.overflow = true
		return
	}
	b.frames = append(b.frames, make([]AYFrame, count)...)
}

func (b *dumpModuleBuilder) SetRegister(reg int, value uint8) {
	if len(b.frames) == 0 {
		b.AddChunks(1)
		if len(b.frames) == 0 {
			return
		}
	}
	b.frames[len(b.frames)-1].Set(reg, value)
}

// module validates the collected frames and wraps them in a Module.
func (b *dumpModuleBuilder) module(props *Properties, container *ParsedContainer) (*Module, error) {
	if b.overflow {
		return nil, fmt.Errorf("dump: more than %d frames", maxDumpFrames)
	}
	if len(b.frames) == 0 {
		return nil, fmt.Errorf("dump: no frames")
	}
	loop := b.loop
	if loop < 0 || loop >= len(b.frames) {
		logger.Debug("dump loop frame out of range, looping to start", "loop", loop, "frames", len(b.frames))
		loop = 0
	}
	frames := b.frames
	clock, rate := b.clock, b.frameRate
	info := Information{
		Channels:      3,
		Positions:     len(frames),
		LoopPosition:  loop,
		Frames:        len(frames),
		LoopFrame:     loop,
		FrameDuration: time.Second / time.Duration(rate),
	}
	props.Set(PropDuration, formatDuration(info.Duration()))
	if container != nil {
		props.Set(PropFixedCRC, fmt.Sprintf("%08X", container.FixedCRC))
	}
	factory := func(cfg RenderConfig) (Renderer, error) {
		c := clock
		if cfg.ClockHz != 0 {
			c = cfg.ClockHz
		}
		return newAYMRenderer(newDumpFrameSource(frames, loop), c, rate, cfg.SampleRate, cfg.Layout), nil
	}
	return newModule(props, info, container, factory, func() { frames = nil }), nil
}

// dumpFrameSource replays recorded frames and wraps to the loop frame.
type dumpFrameSource struct {
	frames    []AYFrame
	loop      int
	pos       int
	loopCount int
}

func newDumpFrameSource(frames []AYFrame, loop int) *dumpFrameSource {
	return &dumpFrameSource{frames: frames, loop: loop}
}

func (s *dumpFrameSource) Reset() {
	s.pos = 0
	s.loopCount = 0
}

func (s *dumpFrameSource) Frame() int     { return s.pos }
func (s *dumpFrameSource) LoopCount() int { return s.loopCount }

func (s *dumpFrameSource) Tick(f *AYFrame) bool {
	*f = s.frames[s.pos]
	s.pos++
	if s.pos < len(s.frames) {
		return false
	}
	s.pos = s.loop
	s.loopCount++
	return true
}
