// aym_module.go - Materializing builder and module wrapper shared by the AY tracker formats.

package main

import (
	"fmt"
	"time"
)

// aymModuleBuilder collects STC and STP parser callbacks into ModuleData.
type aymModuleBuilder struct {
	data    *ModuleData
	meta    propertiesMetaBuilder
	pattern *Pattern
	channel int
	cell    *Cell
}

func newAYMModuleBuilder(props *Properties) *aymModuleBuilder {
	return &aymModuleBuilder{data: NewModuleData(3), meta: propertiesMetaBuilder{props: props}}
}

func (b *aymModuleBuilder) Meta() MetaBuilder               { return b.meta }
func (b *aymModuleBuilder) SetInitialTempo(tempo int)       { b.data.InitialTempo = tempo }
func (b *aymModuleBuilder) SetSample(idx int, s Sample)     { b.data.Samples.Set(idx, s) }
func (b *aymModuleBuilder) SetOrnament(idx int, o Ornament) { b.data.Ornaments.Set(idx, o) }

func (b *aymModuleBuilder) SetPositions(positions []PositionEntry, loop int) {
	b.data.Order = Order{Positions: positions, Loop: loop}
}

func (b *aymModuleBuilder) StartPattern(idx int) {
	b.pattern = &Pattern{}
	b.cell = nil
	b.data.Patterns.Set(idx, b.pattern)
}

func (b *aymModuleBuilder) FinishPattern(size int) {
	b.pattern.Resize(size, b.data.Channels)
	b.pattern, b.cell = nil, nil
}

func (b *aymModuleBuilder) StartChannel(ch int) {
	b.channel = ch
	b.cell = nil
}

func (b *aymModuleBuilder) StartLine(line int) {
	b.cell = b.pattern.Cell(line, b.channel, b.data.Channels)
}

func (b *aymModuleBuilder) SetRest() {
	if b.cell != nil {
		b.cell.SetEnabled(false)
	}
}

func (b *aymModuleBuilder) SetNote(note int) {
	if b.cell != nil {
		b.cell.SetEnabled(true)
		b.cell.SetNote(note)
	}
}

func (b *aymModuleBuilder) SetSampleNumber(idx int) {
	if b.cell != nil {
		b.cell.SetSample(idx)
	}
}

func (b *aymModuleBuilder) SetOrnamentNumber(idx int) {
	if b.cell != nil {
		b.cell.SetOrnament(idx)
	}
}

func (b *aymModuleBuilder) SetEnvelope(shape, tone int) {
	if b.cell != nil {
		b.cell.AddCommand(Command{Type: CmdEnvelope, Param1: shape, Param2: tone})
	}
}

func (b *aymModuleBuilder) SetNoEnvelope() {
	if b.cell != nil {
		b.cell.AddCommand(Command{Type: CmdNoEnvelope})
	}
}

func (b *aymModuleBuilder) SetGliss(step int) {
	if b.cell != nil {
		b.cell.AddCommand(Command{Type: CmdGliss, Param1: step})
	}
}

func (b *aymModuleBuilder) SetVolume(vol int) {
	if b.cell != nil {
		b.cell.SetVolume(vol)
	}
}

// newAYMTrackModule wraps validated 3-channel tracker data played on an AY
// at ZX Spectrum clock and 50 Hz.
func newAYMTrackModule(data *ModuleData, table []uint16, props *Properties, container *ParsedContainer) *Module {
	timings := computeTrackTimings(data)
	frameDur := time.Second / PSG_FRAME_RATE_PAL
	info := Information{
		Channels:      data.Channels,
		Positions:     data.Order.Len(),
		LoopPosition:  data.Order.Loop,
		InitialTempo:  data.InitialTempo,
		Frames:        timings.Frames,
		LoopFrame:     timings.LoopFrame,
		FrameDuration: frameDur,
	}
	props.Set(PropComputer, "ZX Spectrum")
	props.Set(PropDuration, formatDuration(info.Duration()))
	props.Set(PropFixedCRC, fmt.Sprintf("%08X", container.FixedCRC))

	factory := func(cfg RenderConfig) (Renderer, error) {
		src, err := newAYMTrackSource(data, table)
		if err != nil {
			return nil, err
		}
		clock := cfg.ClockHz
		if clock == 0 {
			clock = PSG_CLOCK_ZX_SPECTRUM
		}
		return newAYMRenderer(src, clock, PSG_FRAME_RATE_PAL, cfg.SampleRate, cfg.Layout), nil
	}
	return newModule(props, info, container, factory, func() { data = nil })
}
