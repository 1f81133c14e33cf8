// stp_parser.go - Sound Tracker Pro (compiled .stp) module parser.
//
// Layout (offsets little-endian, relative to the module start):
//
//	+0   tempo
//	+1   positions offset
//	+3   patterns offset
//	+5   ornaments offset (16 entries)
//	+7   samples offset (15 entries)
//	+9   fixes count
//	+10  optional "KSA SOFTWARE COMPILATION OF " and a 25-byte title
//
// Positions are a count, a loop index and (pattern table offset, signed
// transposition) pairs. Each pattern table entry holds three channel
// stream offsets, and its index is the entry offset divided by 6.

package main

import (
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	stpHeaderSize      = 10
	stpIDSize          = 28
	stpTitleSize       = 25
	stpPatternDescSize = 6
	stpMaxOrnaments    = 16
	stpMaxSamples      = 15
	stpMaxLines        = 64
	stpMaxPatternLines = 64

	stpIdentifier = "KSA SOFTWARE COMPILATION OF "
	stpProgram    = "Sound Tracker Pro"
)

// STPBuilder extends the Sound Tracker callbacks with the glide and channel
// volume commands.
type STPBuilder interface {
	STCBuilder
	SetGliss(step int)
	SetVolume(vol int)
}

type stubSTPBuilder struct{ stubSTCBuilder }

func (stubSTPBuilder) SetGliss(int)  {}
func (stubSTPBuilder) SetVolume(int) {}

type stpHeader struct {
	tempo           int
	positionsOffset int
	patternsOffset  int
	ornamentsOffset int
	samplesOffset   int
	hasID           bool
}

var errSTPSignature = errors.New("stp: header does not match")

func readSTPHeader(src *BinarySource, start int) (stpHeader, error) {
	raw, err := src.Slice(start, stpHeaderSize)
	if err != nil {
		return stpHeader{}, fmt.Errorf("stp: header: %w", err)
	}
	le := func(off int) int { return int(raw[off]) | int(raw[off+1])<<8 }
	h := stpHeader{
		tempo:           int(raw[0]),
		positionsOffset: le(1),
		patternsOffset:  le(3),
		ornamentsOffset: le(5),
		samplesOffset:   le(7),
	}
	// peek without marking, a module without the identifier may be shorter
	data := src.Bytes()
	if id := start + stpHeaderSize; id+stpIDSize+stpTitleSize <= len(data) {
		h.hasID = string(data[id:id+stpIDSize]) == stpIdentifier
	}
	return h, nil
}

func (h stpHeader) dataStart() int {
	if h.hasID {
		return stpHeaderSize + stpIDSize + stpTitleSize
	}
	return stpHeaderSize
}

// FastCheckSTP checks that every table lies inside the data and that the
// order only points at pattern table entries.
func FastCheckSTP(src *BinarySource, start int) bool {
	h, err := readSTPHeader(src, start)
	if err != nil || h.tempo == 0 {
		return false
	}
	avail := src.Size() - start
	first := h.dataStart()
	for _, t := range []struct{ off, size int }{
		{h.positionsOffset, 2},
		{h.patternsOffset, stpPatternDescSize},
		{h.ornamentsOffset, 2 * stpMaxOrnaments},
		{h.samplesOffset, 2 * stpMaxSamples},
	} {
		if t.off < first || t.off+t.size > avail {
			return false
		}
	}
	head, _ := src.Slice(start+h.positionsOffset, 2)
	count, loop := int(head[0]), int(head[1])
	if count == 0 || loop >= count || h.positionsOffset+2+2*count > avail {
		return false
	}
	order, _ := src.Slice(start+h.positionsOffset+2, 2*count)
	for i := 0; i < count; i++ {
		off := int(order[2*i])
		if off%stpPatternDescSize != 0 || h.patternsOffset+off+stpPatternDescSize > avail {
			return false
		}
	}
	return true
}

type stpParser struct {
	src   *BinarySource
	start int
	hdr   stpHeader
	b     STPBuilder
}

// ParseSTP parses an STP module at the source cursor.
func ParseSTP(src *BinarySource, b STPBuilder) (*ParsedContainer, error) {
	start := src.Tell()
	if !FastCheckSTP(src, start) {
		return nil, errSTPSignature
	}
	hdr, _ := readSTPHeader(src, start)
	p := &stpParser{src: src, start: start, hdr: hdr, b: b}

	b.SetInitialTempo(hdr.tempo)
	b.Meta().SetProgram(stpProgram)
	if hdr.hasID {
		title, _ := src.Slice(start+stpHeaderSize+stpIDSize, stpTitleSize)
		b.Meta().SetTitle(parsePaddedString(title))
	}

	positions, err := p.parsePositions()
	if err != nil {
		return nil, err
	}
	if err := p.parsePatterns(positions); err != nil {
		return nil, err
	}
	if err := p.parseOrnaments(); err != nil {
		return nil, err
	}
	if err := p.parseSamples(); err != nil {
		return nil, err
	}

	result := newParsedContainer(src, start)
	result.FixedCRC = stpFixedCRC(result.Data, hdr.hasID)
	return result, nil
}

// stpFixedCRC skips the identifier and title.
func stpFixedCRC(data []byte, hasID bool) uint32 {
	end := stpHeaderSize + stpIDSize + stpTitleSize
	if !hasID || len(data) < end {
		return crc32.ChecksumIEEE(data)
	}
	crc := crc32.ChecksumIEEE(data[:stpHeaderSize])
	return crc32.Update(crc, crc32.IEEETable, data[end:])
}

func (p *stpParser) abs(off int) int { return p.start + off }

func (p *stpParser) u16(off int) (int, error) {
	v, err := p.src.LE16At(p.abs(off))
	return int(v), err
}

func (p *stpParser) parsePositions() ([]PositionEntry, error) {
	head, err := p.src.Slice(p.abs(p.hdr.positionsOffset), 2)
	if err != nil {
		return nil, fmt.Errorf("stp: positions: %w", err)
	}
	count, loop := int(head[0]), int(head[1])
	raw, err := p.src.Slice(p.abs(p.hdr.positionsOffset+2), count*2)
	if err != nil {
		return nil, fmt.Errorf("stp: positions: %w", err)
	}
	positions := make([]PositionEntry, count)
	for i := range positions {
		positions[i] = PositionEntry{
			Pattern:       int(raw[i*2]) / stpPatternDescSize,
			Transposition: int(int8(raw[i*2+1])),
		}
	}
	p.b.SetPositions(positions, loop)
	return positions, nil
}

func (p *stpParser) parsePatterns(positions []PositionEntry) error {
	done := make(map[int]bool)
	for _, pos := range positions {
		if done[pos.Pattern] {
			continue
		}
		if err := p.parsePattern(pos.Pattern); err != nil {
			return err
		}
		done[pos.Pattern] = true
	}
	return nil
}

func (p *stpParser) parsePattern(idx int) error {
	var offsets [3]int
	for ch := range offsets {
		off, err := p.u16(p.hdr.patternsOffset + idx*stpPatternDescSize + ch*2)
		if err != nil {
			return fmt.Errorf("stp: pattern %d: %w", idx, err)
		}
		offsets[ch] = off
	}
	p.b.StartPattern(idx)
	size := 0
	for ch := 0; ch < 3; ch++ {
		p.b.StartChannel(ch)
		lines, err := p.parseChannel(idx, ch, offsets[ch], size)
		if err != nil {
			return err
		}
		if ch == 0 {
			if lines == 0 {
				return fmt.Errorf("stp: pattern %d is empty", idx)
			}
			size = lines
		}
	}
	p.b.FinishPattern(size)
	return nil
}

// parseChannel decodes one channel stream. Channel A ends at 0x00 and
// defines the pattern size; the other channels stop at that size.
func (p *stpParser) parseChannel(pattern, ch, cursor, size int) (int, error) {
	line, skip := 0, 0
	started := -1
	startLine := func() {
		if started != line {
			p.b.StartLine(line)
			started = line
		}
	}
	param := func() (int, error) {
		v, err := p.src.ByteAt(p.abs(cursor))
		if err != nil {
			return 0, fmt.Errorf("stp: pattern %d channel %d: %w", pattern, ch, err)
		}
		cursor++
		return int(v), nil
	}
	for {
		if ch != 0 && line >= size {
			return line, nil
		}
		if line > stpMaxPatternLines {
			return 0, fmt.Errorf("stp: pattern %d channel %d exceeds %d lines", pattern, ch, stpMaxPatternLines)
		}
		cmd, err := param()
		if err != nil {
			return 0, err
		}
		switch {
		case cmd == 0x00:
			return line, nil
		case cmd <= 0x60:
			startLine()
			p.b.SetNote(cmd - 1)
			line += 1 + skip
		case cmd <= 0x6f:
			startLine()
			p.b.SetSampleNumber(cmd - 0x61)
		case cmd <= 0x7f:
			startLine()
			p.b.SetOrnamentNumber(cmd - 0x70)
			p.b.SetNoEnvelope()
		case cmd <= 0xbf:
			skip = cmd - 0x80
		case cmd == 0xc0:
			startLine()
			p.b.SetNoEnvelope()
		case cmd <= 0xcf:
			tone, err := param()
			if err != nil {
				return 0, err
			}
			startLine()
			p.b.SetEnvelope(cmd-0xc0, tone)
			p.b.SetOrnamentNumber(0)
		case cmd <= 0xdf:
			startLine()
			p.b.SetRest()
			line += 1 + skip
		case cmd <= 0xef:
			line += 1 + skip
		case cmd == 0xf0:
			step, err := param()
			if err != nil {
				return 0, err
			}
			startLine()
			p.b.SetGliss(int(int8(step)))
		default:
			startLine()
			p.b.SetVolume(cmd - 0xf0)
		}
	}
}

// objectAt reads the loop byte, size byte and size*width bytes of lines
// of an ornament or sample. A zero table entry means the object is absent.
func (p *stpParser) objectAt(table, idx, width int, kind string) (loop int, lines []byte, ok bool, err error) {
	off, err := p.u16(table + idx*2)
	if err != nil {
		return 0, nil, false, fmt.Errorf("stp: %s table: %w", kind, err)
	}
	if off == 0 {
		return 0, nil, false, nil
	}
	head, err := p.src.Slice(p.abs(off), 2)
	if err != nil {
		return 0, nil, false, fmt.Errorf("stp: %s %d: %w", kind, idx, err)
	}
	size := int(head[1])
	if size == 0 || size > stpMaxLines {
		return 0, nil, false, fmt.Errorf("stp: %s %d has %d lines", kind, idx, size)
	}
	lines, err = p.src.Slice(p.abs(off+2), size*width)
	if err != nil {
		return 0, nil, false, fmt.Errorf("stp: %s %d: %w", kind, idx, err)
	}
	return int(int8(head[0])), lines, true, nil
}

func (p *stpParser) parseOrnaments() error {
	for i := 0; i < stpMaxOrnaments; i++ {
		loop, raw, ok, err := p.objectAt(p.hdr.ornamentsOffset, i, 1, "ornament")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		orn := Ornament{Offsets: make([]int, len(raw)), Loop: loop, LoopLimit: len(raw)}
		for l, v := range raw {
			orn.Offsets[l] = int(int8(v))
		}
		p.b.SetOrnament(i, orn)
	}
	return nil
}

// parseSamples decodes 4-byte sample lines:
//
//	NxxTaaaa  N noise mask, T tone mask, a level
//	xxEnnnnn  E envelope enable, n noise
//	vvvvvvvv  signed 16-bit vibrato
//	vvvvvvvv
func (p *stpParser) parseSamples() error {
	for i := 0; i < stpMaxSamples; i++ {
		loop, raw, ok, err := p.objectAt(p.hdr.samplesOffset, i, 4, "sample")
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		s := Sample{Lines: make([]SampleLine, len(raw)/4), Loop: loop, LoopLimit: len(raw) / 4}
		for l := range s.Lines {
			b := raw[l*4 : l*4+4]
			s.Lines[l] = SampleLine{
				Level:        b[0] & 0x0f,
				Noise:        b[1] & 0x1f,
				ToneMask:     b[0]&0x10 != 0,
				NoiseMask:    b[0]&0x80 != 0,
				EnvelopeMask: b[1]&0x20 != 0,
				Vibrato:      int(int16(uint16(b[2]) | uint16(b[3])<<8)),
			}
		}
		p.b.SetSample(i, s)
	}
	return nil
}
