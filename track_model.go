// track_model.go - Tracker module data: order, patterns, sparse cells and instrument tables.

package main

import (
	"errors"
	"fmt"
)

// CellField marks which parts of a Cell were written by the parser.
// Absent fields leave the channel state untouched.
type CellField uint8

const (
	CellEnabled CellField = 1 << iota
	CellNote
	CellSample
	CellOrnament
	CellVolume
)

type CommandType uint8

const (
	// CmdEnvelope: Param1 = envelope shape, Param2 = envelope period
	CmdEnvelope CommandType = iota + 1
	CmdNoEnvelope
	// CmdGliss: Param1 = signed tone step per tick
	CmdGliss
)

type Command struct {
	Type   CommandType
	Param1 int
	Param2 int
}

type Cell struct {
	fields   CellField
	enabled  bool
	note     int
	sample   int
	ornament int
	volume   int
	Commands []Command
}

func (c *Cell) SetEnabled(on bool)  { c.enabled = on; c.fields |= CellEnabled }
func (c *Cell) SetNote(note int)    { c.note = note; c.fields |= CellNote }
func (c *Cell) SetSample(idx int)   { c.sample = idx; c.fields |= CellSample }
func (c *Cell) SetOrnament(idx int) { c.ornament = idx; c.fields |= CellOrnament }
func (c *Cell) SetVolume(vol int)   { c.volume = vol; c.fields |= CellVolume }

func (c *Cell) AddCommand(cmd Command) { c.Commands = append(c.Commands, cmd) }

func (c *Cell) Enabled() (bool, bool) { return c.enabled, c.fields&CellEnabled != 0 }
func (c *Cell) Note() (int, bool)     { return c.note, c.fields&CellNote != 0 }
func (c *Cell) Sample() (int, bool)   { return c.sample, c.fields&CellSample != 0 }
func (c *Cell) Ornament() (int, bool) { return c.ornament, c.fields&CellOrnament != 0 }
func (c *Cell) Volume() (int, bool)   { return c.volume, c.fields&CellVolume != 0 }

func (c *Cell) Empty() bool { return c.fields == 0 && len(c.Commands) == 0 }

// Line holds one cell per channel.
type Line struct {
	Cells []Cell
}

type Pattern struct {
	Lines []Line
}

func (p *Pattern) Size() int { return len(p.Lines) }

// Cell returns the cell for (line, channel), creating lines on demand.
func (p *Pattern) Cell(line, channel, channels int) *Cell {
	for len(p.Lines) <= line {
		p.Lines = append(p.Lines, Line{Cells: make([]Cell, channels)})
	}
	return &p.Lines[line].Cells[channel]
}

// Resize truncates or pads the pattern to exactly size lines.
func (p *Pattern) Resize(size, channels int) {
	if size < len(p.Lines) {
		p.Lines = p.Lines[:size]
		return
	}
	for len(p.Lines) < size {
		p.Lines = append(p.Lines, Line{Cells: make([]Cell, channels)})
	}
}

type PositionEntry struct {
	Pattern       int
	Transposition int
}

// Order is the playback sequence; Loop is the position index to wrap to.
type Order struct {
	Positions []PositionEntry
	Loop      int
}

func (o *Order) Len() int { return len(o.Positions) }

// SparseTable stores values by index and answers misses with a fixed
// neutral default instead of failing.
type SparseTable[T any] struct {
	items   []T
	present []bool
	def     T
}

func NewSparseTable[T any](def T) *SparseTable[T] {
	return &SparseTable[T]{def: def}
}

func (t *SparseTable[T]) Set(idx int, v T) {
	if idx < 0 {
		return
	}
	for len(t.items) <= idx {
		t.items = append(t.items, t.def)
		t.present = append(t.present, false)
	}
	t.items[idx] = v
	t.present[idx] = true
}

func (t *SparseTable[T]) Get(idx int) T {
	if idx < 0 || idx >= len(t.items) || !t.present[idx] {
		return t.def
	}
	return t.items[idx]
}

func (t *SparseTable[T]) Has(idx int) bool {
	return idx >= 0 && idx < len(t.items) && t.present[idx]
}

// Count returns how many indices hold a value.
func (t *SparseTable[T]) Count() int {
	n := 0
	for _, p := range t.present {
		if p {
			n++
		}
	}
	return n
}

// SampleLine is one step of an AY sample. The masks disable the generator
// when set.
type SampleLine struct {
	Level        uint8
	Noise        uint8
	ToneMask     bool
	NoiseMask    bool
	EnvelopeMask bool
	Vibrato      int
}

var neutralSampleLine = SampleLine{ToneMask: true, NoiseMask: true}

// Sample plays Lines from 0; on reaching LoopLimit it jumps to Loop, or
// stops the channel when Loop < 0.
type Sample struct {
	Lines     []SampleLine
	Loop      int
	LoopLimit int
}

func (s *Sample) Line(pos int) SampleLine {
	if pos < 0 || pos >= len(s.Lines) {
		return neutralSampleLine
	}
	return s.Lines[pos]
}

func (s *Sample) limit() int {
	if s.LoopLimit <= 0 || s.LoopLimit > len(s.Lines) {
		return len(s.Lines)
	}
	return s.LoopLimit
}

// Next returns the position after pos and whether the sample still sounds.
func (s *Sample) Next(pos int) (int, bool) {
	limit := s.limit()
	if limit == 0 {
		return 0, true
	}
	pos++
	if pos < limit {
		return pos, true
	}
	if s.Loop < 0 || s.Loop >= limit {
		return pos, false
	}
	return s.Loop, true
}

// Ornament holds signed halftone offsets and loops at Loop.
type Ornament struct {
	Offsets   []int
	Loop      int
	LoopLimit int
}

func (o *Ornament) Offset(pos int) int {
	if pos < 0 || pos >= len(o.Offsets) {
		return 0
	}
	return o.Offsets[pos]
}

func (o *Ornament) Next(pos int) int {
	limit := o.LoopLimit
	if limit <= 0 || limit > len(o.Offsets) {
		limit = len(o.Offsets)
	}
	if limit == 0 {
		return 0
	}
	pos++
	if pos < limit {
		return pos
	}
	if o.Loop < 0 || o.Loop >= limit {
		return 0
	}
	return o.Loop
}

// ModuleData is the canonical tracker representation shared by all
// renderers of a module. It is read-only after Validate succeeds.
type ModuleData struct {
	Channels     int
	InitialTempo int
	Order        Order
	Patterns     *SparseTable[*Pattern]
	Samples      *SparseTable[Sample]
	Ornaments    *SparseTable[Ornament]
}

func NewModuleData(channels int) *ModuleData {
	return &ModuleData{
		Channels:  channels,
		Patterns:  NewSparseTable[*Pattern](nil),
		Samples:   NewSparseTable(Sample{}),
		Ornaments: NewSparseTable(Ornament{}),
	}
}

// Validate enforces the construction-time invariants: a positive tempo and
// channel count, every order entry resolving to a non-empty pattern, and
// every line carrying exactly Channels cells.
func (d *ModuleData) Validate() error {
	if d.Channels <= 0 {
		return errors.New("no channels")
	}
	if d.InitialTempo <= 0 {
		return fmt.Errorf("invalid tempo %d", d.InitialTempo)
	}
	if d.Order.Len() == 0 {
		return errors.New("empty order")
	}
	if d.Order.Loop < 0 || d.Order.Loop >= d.Order.Len() {
		return fmt.Errorf("loop position %d outside order of %d", d.Order.Loop, d.Order.Len())
	}
	for i, pos := range d.Order.Positions {
		pat := d.Patterns.Get(pos.Pattern)
		if pat == nil {
			return fmt.Errorf("position %d references missing pattern %d", i, pos.Pattern)
		}
		if pat.Size() == 0 {
			return fmt.Errorf("pattern %d is empty", pos.Pattern)
		}
		for l, line := range pat.Lines {
			if len(line.Cells) != d.Channels {
				return fmt.Errorf("pattern %d line %d has %d cells, want %d", pos.Pattern, l, len(line.Cells), d.Channels)
			}
		}
	}
	return nil
}
