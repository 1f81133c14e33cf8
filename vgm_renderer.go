// vgm_renderer.go - VGM playback: 20 ms frames at 44100 Hz with writes at exact sample offsets.

package main

import (
	"fmt"
	"sort"
	"time"
)

const vgmFrameSamples = vgmSampleRate / 50

type vgmRenderer struct {
	data      *VGMData
	chip      *AYChip
	pos       uint64
	next      int
	loopCount int
}

func newVGMRenderer(data *VGMData, clockHz int, layout AYLayout) *vgmRenderer {
	chip := NewAYChip(clockHz, vgmSampleRate)
	chip.SetLayout(layout)
	r := &vgmRenderer{data: data, chip: chip}
	r.Reset()
	return r
}

func (r *vgmRenderer) Reset() {
	r.chip.Reset()
	r.pos = 0
	r.next = 0
	r.loopCount = 0
}

func (r *vgmRenderer) State() PlaybackState {
	return PlaybackState{
		Position:  time.Duration(r.pos) * time.Second / vgmSampleRate,
		LoopCount: r.loopCount,
	}
}

// applyUntil writes every event scheduled at or before sample.
func (r *vgmRenderer) applyUntil(sample uint64) {
	ev := r.data.Events
	for r.next < len(ev) && ev[r.next].Sample <= sample {
		r.chip.WriteRegister(int(ev[r.next].Reg), ev[r.next].Value)
		r.next++
	}
}

func (r *vgmRenderer) wrap() {
	r.loopCount++
	if r.data.HasLoop {
		r.pos = r.data.LoopSample
	} else {
		r.pos = 0
	}
	r.next = sort.Search(len(r.data.Events), func(i int) bool {
		return r.data.Events[i].Sample >= r.pos
	})
}

// Render produces one frame; the last frame before the end of data is
// shorter so the loop boundary falls between chunks.
func (r *vgmRenderer) Render(policy LoopPolicy) Chunk {
	if r.loopCount > 0 && (policy == nil || !policy(r.loopCount)) {
		return Chunk{}
	}
	end := min(r.pos+vgmFrameSamples, r.data.TotalSamples)
	out := make([]int16, 2*int(end-r.pos))
	filled := 0
	for r.pos < end {
		r.applyUntil(r.pos)
		stop := end
		if r.next < len(r.data.Events) && r.data.Events[r.next].Sample < stop {
			stop = r.data.Events[r.next].Sample
		}
		n := int(stop - r.pos)
		r.chip.Render(out[filled*2 : (filled+n)*2])
		filled += n
		r.pos = stop
	}
	if r.pos >= r.data.TotalSamples {
		r.wrap()
	}
	return Chunk{SampleRate: vgmSampleRate, Samples: out}
}

// SetPosition converts t to a sample index (truncating) and replays
// register writes up to it.
func (r *vgmRenderer) SetPosition(t time.Duration) {
	if t < 0 {
		t = 0
	}
	target := uint64(t * vgmSampleRate / time.Second)
	if target >= r.data.TotalSamples {
		target = r.data.TotalSamples - 1
	}
	if target < r.pos {
		r.Reset()
	}
	if target > 0 {
		r.applyUntil(target - 1)
	}
	r.pos = target
}

type vgmPlugin struct{}

func (vgmPlugin) ID() string          { return "VGM" }
func (vgmPlugin) Description() string { return "Video Game Music stream (AY / SN76489)" }

func (vgmPlugin) Test(src *BinarySource) bool {
	return FastCheckVGM(src, src.Tell())
}

func (vgmPlugin) Load(src *BinarySource) (*Module, error) {
	props := NewProperties()
	data, container, err := ParseVGM(src, propertiesMetaBuilder{props: props})
	if err != nil {
		return nil, err
	}
	info := Information{
		Channels:      3,
		Positions:     len(data.Events),
		Frames:        int(data.TotalSamples / vgmFrameSamples),
		LoopFrame:     int(data.LoopSample / vgmFrameSamples),
		FrameDuration: time.Second / 50,
	}
	props.Set(PropDuration, formatDuration(time.Duration(data.TotalSamples)*time.Second/vgmSampleRate))
	props.Set(PropFixedCRC, fmt.Sprintf("%08X", container.FixedCRC))
	clock := data.ClockHz
	factory := func(cfg RenderConfig) (Renderer, error) {
		c := clock
		if cfg.ClockHz != 0 {
			c = cfg.ClockHz
		}
		return newVGMRenderer(data, c, cfg.Layout), nil
	}
	return newModule(props, info, container, factory, func() { data = nil }), nil
}
