// stc_parser.go - Sound Tracker (compiled .stc) module parser.
//
// Layout (all offsets little-endian, relative to the module start):
//
//	+0   tempo
//	+1   positions offset
//	+3   ornaments offset
//	+5   patterns offset
//	+7   18-byte identifier
//	+25  size
//	+27  samples, 99 bytes each
//
// The parser reports everything through an STCBuilder so that detection can
// run against a stub without building any tables.

package main

import (
	"errors"
	"fmt"
	"hash/crc32"
)

const (
	stcHeaderSize       = 27
	stcIdentifierOffset = 7
	stcIdentifierSize   = 18
	stcSampleSize       = 99
	stcSampleLines      = 32
	stcOrnamentSize     = 33
	stcOrnamentLines    = 32
	stcPatternDescSize  = 7
	stcMaxSamples       = 16
	stcMaxOrnaments     = 16
	stcMaxPatterns      = 32
	stcMaxPatternLines  = 64
	stcNotesCount       = 96

	stcDefaultIdentifier = "SONG BY ST COMPILE"
	stcProgram           = "Sound Tracker v1.x"
)

// STCBuilder receives a parsed STC module. Channel setters apply to the
// line announced by the last StartLine call.
type STCBuilder interface {
	Meta() MetaBuilder
	SetInitialTempo(tempo int)
	SetSample(index int, sample Sample)
	SetOrnament(index int, ornament Ornament)
	SetPositions(positions []PositionEntry, loop int)

	StartPattern(index int)
	FinishPattern(size int)
	StartChannel(channel int)
	StartLine(line int)
	SetRest()
	SetNote(note int)
	SetSampleNumber(sample int)
	SetOrnamentNumber(ornament int)
	SetEnvelope(shape, tone int)
	SetNoEnvelope()
}

type stubSTCBuilder struct{}

func (stubSTCBuilder) Meta() MetaBuilder                 { return stubMetaBuilder{} }
func (stubSTCBuilder) SetInitialTempo(int)               {}
func (stubSTCBuilder) SetSample(int, Sample)             {}
func (stubSTCBuilder) SetOrnament(int, Ornament)         {}
func (stubSTCBuilder) SetPositions([]PositionEntry, int) {}
func (stubSTCBuilder) StartPattern(int)                  {}
func (stubSTCBuilder) FinishPattern(int)                 {}
func (stubSTCBuilder) StartChannel(int)                  {}
func (stubSTCBuilder) StartLine(int)                     {}
func (stubSTCBuilder) SetRest()                          {}
func (stubSTCBuilder) SetNote(int)                       {}
func (stubSTCBuilder) SetSampleNumber(int)               {}
func (stubSTCBuilder) SetOrnamentNumber(int)             {}
func (stubSTCBuilder) SetEnvelope(int, int)              {}
func (stubSTCBuilder) SetNoEnvelope()                    {}

type stcHeader struct {
	tempo           int
	positionsOffset int
	ornamentsOffset int
	patternsOffset  int
	identifier      string
	size            int
}

var errSTCSignature = errors.New("stc: header does not match")

func readSTCHeader(src *BinarySource, start int) (stcHeader, error) {
	raw, err := src.Slice(start, stcHeaderSize)
	if err != nil {
		return stcHeader{}, fmt.Errorf("stc: header: %w", err)
	}
	le := func(off int) int { return int(raw[off]) | int(raw[off+1])<<8 }
	return stcHeader{
		tempo:           int(raw[0]),
		positionsOffset: le(1),
		ornamentsOffset: le(3),
		patternsOffset:  le(5),
		identifier:      string(raw[stcIdentifierOffset : stcIdentifierOffset+stcIdentifierSize]),
		size:            le(25),
	}, nil
}

// check validates the block layout against the available data.
func (h stcHeader) check(avail int) error {
	switch {
	case h.tempo == 0:
		return errSTCSignature
	case h.positionsOffset < stcHeaderSize+stcSampleSize:
		return errSTCSignature
	case (h.positionsOffset-stcHeaderSize)%stcSampleSize != 0:
		return errSTCSignature
	case h.ornamentsOffset <= h.positionsOffset:
		return errSTCSignature
	case h.patternsOffset <= h.ornamentsOffset:
		return errSTCSignature
	case (h.patternsOffset-h.ornamentsOffset)%stcOrnamentSize != 0:
		return errSTCSignature
	case h.patternsOffset+stcPatternDescSize > avail:
		return errSTCSignature
	}
	return nil
}

func (h stcHeader) samplesCount() int {
	return (h.positionsOffset - stcHeaderSize) / stcSampleSize
}

func (h stcHeader) ornamentsCount() int {
	return (h.patternsOffset - h.ornamentsOffset) / stcOrnamentSize
}

// FastCheckSTC is the cheap structural test used by format detection.
func FastCheckSTC(src *BinarySource, start int) bool {
	h, err := readSTCHeader(src, start)
	if err != nil {
		return false
	}
	if h.check(src.Size()-start) != nil {
		return false
	}
	count, err := src.ByteAt(start + h.positionsOffset)
	if err != nil {
		return false
	}
	return h.positionsOffset+1+2*(int(count)+1) <= h.ornamentsOffset
}

type stcParser struct {
	src   *BinarySource
	start int
	hdr   stcHeader
	b     STCBuilder
}

// ParseSTC parses an STC module at the source cursor.
func ParseSTC(src *BinarySource, b STCBuilder) (*ParsedContainer, error) {
	start := src.Tell()
	if !FastCheckSTC(src, start) {
		return nil, errSTCSignature
	}
	hdr, _ := readSTCHeader(src, start)
	p := &stcParser{src: src, start: start, hdr: hdr, b: b}

	b.SetInitialTempo(hdr.tempo)
	b.Meta().SetProgram(stcProgram)
	if hdr.identifier != stcDefaultIdentifier {
		b.Meta().SetTitle(parsePaddedString([]byte(hdr.identifier)))
	}

	if err := p.parseSamples(); err != nil {
		return nil, err
	}
	positions, err := p.parsePositions()
	if err != nil {
		return nil, err
	}
	if err := p.parseOrnaments(); err != nil {
		return nil, err
	}
	if err := p.parsePatterns(positions); err != nil {
		return nil, err
	}

	result := newParsedContainer(src, start)
	result.FixedCRC = stcFixedCRC(result.Data)
	return result, nil
}

// stcFixedCRC skips the identifier so renamed copies of a module compare
// equal.
func stcFixedCRC(data []byte) uint32 {
	if len(data) < stcHeaderSize {
		return crc32.ChecksumIEEE(data)
	}
	crc := crc32.ChecksumIEEE(data[:stcIdentifierOffset])
	return crc32.Update(crc, crc32.IEEETable, data[stcIdentifierOffset+stcIdentifierSize:])
}

func (p *stcParser) abs(off int) int { return p.start + off }

func (p *stcParser) parseSamples() error {
	for i := 0; i < p.hdr.samplesCount(); i++ {
		raw, err := p.src.Slice(p.abs(stcHeaderSize+i*stcSampleSize), stcSampleSize)
		if err != nil {
			return fmt.Errorf("stc: sample %d: %w", i, err)
		}
		num := int(raw[0])
		if num >= stcMaxSamples {
			return fmt.Errorf("stc: sample number %d out of range", num)
		}
		p.b.SetSample(num, decodeSTCSample(raw))
	}
	return nil
}

func decodeSTCSample(raw []byte) Sample {
	s := Sample{Lines: make([]SampleLine, stcSampleLines)}
	for l := 0; l < stcSampleLines; l++ {
		b0, b1, b2 := raw[1+l*3], raw[2+l*3], raw[3+l*3]
		vib := int(b0>>4)<<8 | int(b2)
		if b1&0x20 == 0 {
			vib = -vib
		}
		s.Lines[l] = SampleLine{
			Level:        b0 & 0x0f,
			Noise:        b1 & 0x1f,
			ToneMask:     b1&0x40 != 0,
			NoiseMask:    b1&0x80 != 0,
			EnvelopeMask: true,
			Vibrato:      vib,
		}
	}
	loop, loopLen := int(raw[97]), int(raw[98])
	if loopLen == 0 {
		s.Loop = -1
		s.LoopLimit = stcSampleLines
	} else {
		s.Loop = min(loop, stcSampleLines-1)
		s.LoopLimit = min(loop+loopLen, stcSampleLines)
	}
	return s
}

func (p *stcParser) parsePositions() ([]PositionEntry, error) {
	last, err := p.src.ByteAt(p.abs(p.hdr.positionsOffset))
	if err != nil {
		return nil, fmt.Errorf("stc: positions: %w", err)
	}
	count := int(last) + 1
	raw, err := p.src.Slice(p.abs(p.hdr.positionsOffset+1), count*2)
	if err != nil {
		return nil, fmt.Errorf("stc: positions: %w", err)
	}
	positions := make([]PositionEntry, count)
	for i := range positions {
		pat := int(raw[i*2])
		if pat == 0 || pat > stcMaxPatterns {
			return nil, fmt.Errorf("stc: position %d references pattern %d", i, pat)
		}
		positions[i] = PositionEntry{Pattern: pat, Transposition: int(int8(raw[i*2+1]))}
	}
	p.b.SetPositions(positions, 0)
	return positions, nil
}

func (p *stcParser) parseOrnaments() error {
	for i := 0; i < p.hdr.ornamentsCount(); i++ {
		raw, err := p.src.Slice(p.abs(p.hdr.ornamentsOffset+i*stcOrnamentSize), stcOrnamentSize)
		if err != nil {
			return fmt.Errorf("stc: ornament %d: %w", i, err)
		}
		num := int(raw[0])
		if num >= stcMaxOrnaments {
			return fmt.Errorf("stc: ornament number %d out of range", num)
		}
		orn := Ornament{Offsets: make([]int, stcOrnamentLines), LoopLimit: stcOrnamentLines}
		for l := range orn.Offsets {
			orn.Offsets[l] = int(int8(raw[1+l]))
		}
		p.b.SetOrnament(num, orn)
	}
	return nil
}

type stcPatternDesc struct {
	number  int
	offsets [3]int
}

func (p *stcParser) readPatternDescs() (map[int]stcPatternDesc, error) {
	descs := make(map[int]stcPatternDesc)
	for off := p.hdr.patternsOffset; ; off += stcPatternDescSize {
		num, err := p.src.ByteAt(p.abs(off))
		if err != nil {
			return nil, fmt.Errorf("stc: pattern table: %w", err)
		}
		if num == 0xff {
			return descs, nil
		}
		raw, err := p.src.Slice(p.abs(off), stcPatternDescSize)
		if err != nil {
			return nil, fmt.Errorf("stc: pattern table: %w", err)
		}
		if num == 0 || int(num) > stcMaxPatterns {
			return nil, fmt.Errorf("stc: pattern number %d out of range", num)
		}
		d := stcPatternDesc{number: int(num)}
		for ch := 0; ch < 3; ch++ {
			d.offsets[ch] = int(raw[1+ch*2]) | int(raw[2+ch*2])<<8
		}
		descs[d.number] = d
	}
}

func (p *stcParser) parsePatterns(positions []PositionEntry) error {
	descs, err := p.readPatternDescs()
	if err != nil {
		return err
	}
	done := make(map[int]bool)
	for _, pos := range positions {
		if done[pos.Pattern] {
			continue
		}
		d, ok := descs[pos.Pattern]
		if !ok {
			return fmt.Errorf("stc: pattern %d not declared", pos.Pattern)
		}
		if err := p.parsePattern(d); err != nil {
			return err
		}
		done[pos.Pattern] = true
	}
	return nil
}

func (p *stcParser) parsePattern(d stcPatternDesc) error {
	p.b.StartPattern(d.number)
	size := 0
	for ch := 0; ch < 3; ch++ {
		p.b.StartChannel(ch)
		lines, err := p.parseChannel(d, ch, size)
		if err != nil {
			return err
		}
		if ch == 0 {
			if lines == 0 {
				return fmt.Errorf("stc: pattern %d is empty", d.number)
			}
			size = lines
		}
	}
	p.b.FinishPattern(size)
	return nil
}

// parseChannel decodes one channel stream. Channel A ends at 0xff and
// defines the pattern size; the other channels stop at that size.
func (p *stcParser) parseChannel(d stcPatternDesc, ch, size int) (int, error) {
	cursor := d.offsets[ch]
	line, skip := 0, 0
	started := -1
	startLine := func() {
		if started != line {
			p.b.StartLine(line)
			started = line
		}
	}
	for {
		if ch != 0 && line >= size {
			return line, nil
		}
		if line > stcMaxPatternLines {
			return 0, fmt.Errorf("stc: pattern %d channel %d exceeds %d lines", d.number, ch, stcMaxPatternLines)
		}
		cmd, err := p.src.ByteAt(p.abs(cursor))
		if err != nil {
			return 0, fmt.Errorf("stc: pattern %d channel %d: %w", d.number, ch, err)
		}
		cursor++
		switch {
		case cmd <= 0x5f:
			startLine()
			p.b.SetNote(int(cmd))
			line += 1 + skip
		case cmd <= 0x6f:
			startLine()
			p.b.SetSampleNumber(int(cmd - 0x60))
		case cmd <= 0x7f:
			startLine()
			p.b.SetOrnamentNumber(int(cmd - 0x70))
			p.b.SetNoEnvelope()
		case cmd == 0x80:
			startLine()
			p.b.SetRest()
			line += 1 + skip
		case cmd == 0x81:
			line += 1 + skip
		case cmd <= 0x8e:
			tone, err := p.src.ByteAt(p.abs(cursor))
			if err != nil {
				return 0, fmt.Errorf("stc: pattern %d channel %d envelope: %w", d.number, ch, err)
			}
			cursor++
			startLine()
			p.b.SetEnvelope(int(cmd-0x80), int(tone))
			p.b.SetOrnamentNumber(0)
		case cmd <= 0xa0:
			return 0, fmt.Errorf("stc: pattern %d channel %d: invalid command %#02x", d.number, ch, cmd)
		case cmd < 0xff:
			skip = int(cmd - 0xa1)
		default:
			return line, nil
		}
	}
}

// stcFrequencyTable holds AY tone periods for the 96 Sound Tracker notes,
// eight octaves from C-1.
var stcFrequencyTable = []uint16{
	0xef8, 0xe10, 0xd60, 0xc80, 0xbd8, 0xb28, 0xa88, 0x9f0, 0x960, 0x8e0, 0x858, 0x7e0,
	0x77c, 0x708, 0x6b0, 0x640, 0x5ec, 0x594, 0x544, 0x4f8, 0x4b0, 0x470, 0x42c, 0x3f0,
	0x3be, 0x384, 0x358, 0x320, 0x2f6, 0x2ca, 0x2a2, 0x27c, 0x258, 0x238, 0x216, 0x1f8,
	0x1df, 0x1c2, 0x1ac, 0x190, 0x17b, 0x165, 0x151, 0x13e, 0x12c, 0x11c, 0x10b, 0x0fc,
	0x0ef, 0x0e1, 0x0d6, 0x0c8, 0x0bd, 0x0b2, 0x0a8, 0x09f, 0x096, 0x08e, 0x085, 0x07e,
	0x077, 0x070, 0x06b, 0x064, 0x05e, 0x059, 0x054, 0x04f, 0x04b, 0x047, 0x042, 0x03f,
	0x03b, 0x038, 0x035, 0x032, 0x02f, 0x02c, 0x02a, 0x027, 0x025, 0x023, 0x021, 0x01f,
	0x01d, 0x01c, 0x01a, 0x019, 0x017, 0x016, 0x015, 0x013, 0x012, 0x011, 0x010, 0x00f,
}
