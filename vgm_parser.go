// vgm_parser.go - VGM parser extracting AY register writes, plus the GD3 tag reader.
//
// Supported chips (converted to AY register events):
//   - AY-3-8910 / YM2149 (cmd 0xA0), direct register mapping
//   - SN76489 / SN76496 (cmd 0x50), converted to AY-equivalent writes
//
// Every other chip command is skipped with its documented length. VGZ files
// arrive here already inflated by the container resolver's gzip depacker.

package main

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const (
	vgmSampleRate     = 44100
	vgmMinHeaderSize  = 0x40
	vgmOffsetVersion  = 0x08
	vgmOffsetSNClock  = 0x0C
	vgmOffsetGD3      = 0x14
	vgmOffsetTotal    = 0x18
	vgmOffsetLoop     = 0x1C
	vgmOffsetLoopLen  = 0x20
	vgmOffsetData     = 0x34
	vgmOffsetAYClock  = 0x74
	vgmMaxEventsTotal = 1 << 24
)

type vgmEvent struct {
	Sample uint64
	Reg    uint8
	Value  uint8
}

// VGMData is the AY view of a VGM stream. Sample positions are at 44100 Hz.
type VGMData struct {
	Version      uint32
	Events       []vgmEvent
	ClockHz      int
	SNClockHz    int
	TotalSamples uint64
	LoopSample   uint64
	HasLoop      bool
}

// sn76489State tracks the latch/data protocol of the SN76489 write port and
// mirrors its registers as AY writes.
type sn76489State struct {
	latchedCh   uint8
	latchedType uint8 // 0=tone, 1=attenuation
	toneRegs    [3]uint16
	attenRegs   [4]uint8 // 0=loudest, 15=off
	noiseReg    uint8
	snClockHz   uint32
	ayClockHz   uint32
	out         []vgmEvent
	at          uint64
}

func newSN76489State(snClock, ayClock uint32) *sn76489State {
	return &sn76489State{snClockHz: snClock, ayClockHz: ayClock, attenRegs: [4]uint8{15, 15, 15, 15}}
}

func (s *sn76489State) emit(reg, value uint8) {
	s.out = append(s.out, vgmEvent{Sample: s.at, Reg: reg, Value: value})
}

// write decodes one port byte at sample position at and appends the
// resulting AY writes to events.
func (s *sn76489State) write(val byte, at uint64, events []vgmEvent) []vgmEvent {
	s.out, s.at = events, at
	if val&0x80 != 0 {
		s.latchedCh = (val >> 5) & 0x03
		s.latchedType = (val >> 4) & 0x01
		low := val & 0x0F
		switch {
		case s.latchedType == 1:
			s.attenRegs[s.latchedCh] = low
			s.emitAttenuation(s.latchedCh)
		case s.latchedCh == 3:
			s.noiseReg = low & 0x07
			s.emitNoise()
		default:
			s.toneRegs[s.latchedCh] = (s.toneRegs[s.latchedCh] & 0x3F0) | uint16(low)
			s.emitTone(s.latchedCh)
		}
		return s.out
	}

	data := val & 0x3F
	switch {
	case s.latchedType == 1:
		s.attenRegs[s.latchedCh] = data & 0x0F
		s.emitAttenuation(s.latchedCh)
	case s.latchedCh == 3:
		// data bytes never reach the noise register
	default:
		s.toneRegs[s.latchedCh] = (s.toneRegs[s.latchedCh] & 0x0F) | uint16(data)<<4
		s.emitTone(s.latchedCh)
	}
	return s.out
}

// snToAY converts an SN divider to an AY one: SN divides by 32, AY by 16.
func (s *sn76489State) snToAY(divider uint16, limit uint32) uint32 {
	if divider == 0 {
		divider = 1
	}
	var n uint32
	if s.snClockHz > 0 && s.ayClockHz > 0 {
		n = uint32(divider) * s.ayClockHz / (s.snClockHz * 2)
	} else {
		n = uint32(divider) / 2
	}
	return uint32(clampInt(int(n), 1, int(limit)))
}

func (s *sn76489State) emitTone(ch uint8) {
	div := s.snToAY(s.toneRegs[ch], 0xFFF)
	s.emit(ch*2, uint8(div))
	s.emit(ch*2+1, uint8(div>>8)&0x0F)
	if ch == 2 && s.noiseReg&0x03 == 3 {
		s.emit(PSG_REG_NOISE, uint8(s.snToAY(s.toneRegs[2], 31)))
	}
}

func (s *sn76489State) emitAttenuation(ch uint8) {
	if ch == 3 {
		// the AY has no separate noise volume; gate the noise in the mixer
		s.emitMixer()
		return
	}
	s.emit(PSG_REG_VOLUME_A+ch, 15-s.attenRegs[ch])
	s.emitMixer()
}

func (s *sn76489State) emitNoise() {
	var period uint8
	switch s.noiseReg & 0x03 {
	case 0:
		period = 4
	case 1:
		period = 8
	case 2:
		period = 16
	case 3:
		period = uint8(s.snToAY(s.toneRegs[2], 31))
	}
	s.emit(PSG_REG_NOISE, period)
	s.emitMixer()
}

// emitMixer routes SN noise through AY channel C.
func (s *sn76489State) emitMixer() {
	mixer := uint8(PSG_MIXER_NOISE_OFF * 7)
	for ch := 0; ch < 3; ch++ {
		if s.attenRegs[ch] >= 15 {
			mixer |= PSG_MIXER_TONE_OFF << ch
		}
	}
	if s.attenRegs[3] < 15 {
		mixer &^= PSG_MIXER_NOISE_OFF << 2
	}
	s.emit(PSG_REG_MIXER, mixer)
}

func FastCheckVGM(src *BinarySource, start int) bool {
	head, err := src.Slice(start, vgmMinHeaderSize)
	return err == nil && string(head[:4]) == "Vgm "
}

// vgmCommandLength returns the total size of commands that carry no AY data.
func vgmCommandLength(cmd byte) int {
	switch {
	case cmd >= 0x30 && cmd <= 0x3F, cmd == 0x4F, cmd == 0x94:
		return 2
	case cmd >= 0x41 && cmd <= 0x4E, cmd >= 0x51 && cmd <= 0x5F, cmd >= 0xA1 && cmd <= 0xBF:
		return 3
	case cmd >= 0xC0 && cmd <= 0xDF:
		return 4
	case cmd == 0x90, cmd == 0x91, cmd == 0x95, cmd >= 0xE0:
		return 5
	case cmd == 0x92:
		return 6
	case cmd == 0x93:
		return 11
	case cmd == 0x68:
		return 12
	}
	return 1
}

// ParseVGM decodes the command stream into AY events. Tags go to meta.
func ParseVGM(src *BinarySource, meta MetaBuilder) (*VGMData, *ParsedContainer, error) {
	start := src.Tell()
	if !FastCheckVGM(src, start) {
		return nil, nil, errors.New("vgm: invalid header")
	}
	le32 := func(off int) uint32 {
		b, err := src.Slice(start+off, 4)
		if err != nil {
			return 0
		}
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}

	v := &VGMData{
		Version:      le32(vgmOffsetVersion),
		TotalSamples: uint64(le32(vgmOffsetTotal)),
		SNClockHz:    int(le32(vgmOffsetSNClock) & 0x3FFFFFFF),
	}
	dataStart := vgmMinHeaderSize
	if rel := le32(vgmOffsetData); v.Version >= 0x150 && rel != 0 {
		dataStart = vgmOffsetData + int(rel)
	}
	ayClock := 0
	if dataStart > vgmOffsetAYClock {
		ayClock = int(le32(vgmOffsetAYClock) & 0x3FFFFFFF)
	}
	loopStart := -1
	if rel := le32(vgmOffsetLoop); rel != 0 {
		loopStart = vgmOffsetLoop + int(rel)
	}
	if ayClock == 0 && v.SNClockHz == 0 {
		return nil, nil, errors.New("vgm: no AY or SN76489 clock")
	}

	target := uint32(ayClock)
	if target == 0 {
		target = PSG_CLOCK_MSX
	}
	v.ClockHz = int(target)
	sn := newSN76489State(uint32(v.SNClockHz), target)

	if err := src.Seek(start + dataStart); err != nil {
		return nil, nil, fmt.Errorf("vgm: data offset: %w", err)
	}
	var pos uint64
	events := make([]vgmEvent, 0, 1024)
	for done := false; !done; {
		off := src.Tell() - start
		if off == loopStart {
			v.LoopSample, v.HasLoop = pos, true
		}
		cmd, err := src.ReadU8()
		if err != nil {
			// missing end marker
			break
		}
		switch {
		case cmd == 0x66:
			done = true
		case cmd == 0xA0:
			b, err := src.ReadBytes(2)
			if err != nil {
				return nil, nil, fmt.Errorf("vgm: truncated AY write at %d", off)
			}
			// bit 7 of the register selects the second chip
			if b[0]&0x80 == 0 && b[0] < PSG_REG_COUNT {
				events = append(events, vgmEvent{Sample: pos, Reg: b[0], Value: b[1]})
			}
		case cmd == 0x50:
			b, err := src.ReadU8()
			if err != nil {
				return nil, nil, fmt.Errorf("vgm: truncated SN76489 write at %d", off)
			}
			events = sn.write(b, pos, events)
		case cmd == 0x61:
			n, err := src.ReadLE16()
			if err != nil {
				return nil, nil, fmt.Errorf("vgm: truncated wait at %d", off)
			}
			pos += uint64(n)
		case cmd == 0x62:
			pos += 735
		case cmd == 0x63:
			pos += 882
		case cmd >= 0x70 && cmd <= 0x7F:
			pos += uint64(cmd&0x0F) + 1
		case cmd >= 0x80 && cmd <= 0x8F:
			pos += uint64(cmd & 0x0F)
		case cmd == 0x67:
			hdr, err := src.ReadBytes(6)
			if err != nil || hdr[0] != 0x66 {
				return nil, nil, fmt.Errorf("vgm: invalid data block at %d", off)
			}
			size := int(uint32(hdr[2]) | uint32(hdr[3])<<8 | uint32(hdr[4])<<16 | uint32(hdr[5])<<24)
			if err := src.Skip(size); err != nil {
				return nil, nil, fmt.Errorf("vgm: data block at %d: %w", off, err)
			}
		default:
			if err := src.Skip(vgmCommandLength(cmd) - 1); err != nil {
				return nil, nil, fmt.Errorf("vgm: truncated command %#02x at %d", cmd, off)
			}
		}
		if len(events) > vgmMaxEventsTotal {
			return nil, nil, errors.New("vgm: too many register writes")
		}
	}
	if len(events) == 0 {
		return nil, nil, errors.New("vgm: no AY or SN76489 writes")
	}
	v.Events = events
	v.TotalSamples = max(v.TotalSamples, pos, events[len(events)-1].Sample+1)
	if v.HasLoop && v.LoopSample >= v.TotalSamples {
		v.HasLoop, v.LoopSample = false, 0
	}

	if gd3 := le32(vgmOffsetGD3); gd3 != 0 {
		if err := readGD3(src, start+vgmOffsetGD3+int(gd3), meta); err != nil {
			logger.Debug("vgm gd3 tag ignored", "err", err)
		}
	}
	meta.SetProgram(fmt.Sprintf("VGM %x.%02x", v.Version>>8, v.Version&0xFF))
	return v, newParsedContainer(src, start), nil
}

// readGD3 decodes the UTF-16LE tag: track, game, system and author names in
// English and Japanese, then date, ripper and notes.
func readGD3(src *BinarySource, off int, meta MetaBuilder) error {
	head, err := src.Slice(off, 12)
	if err != nil {
		return err
	}
	if string(head[:4]) != "Gd3 " {
		return errors.New("gd3: bad signature")
	}
	size := int(uint32(head[8]) | uint32(head[9])<<8 | uint32(head[10])<<16 | uint32(head[11])<<24)
	body, err := src.Slice(off+12, size)
	if err != nil {
		return err
	}
	text, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(body)
	if err != nil {
		return err
	}
	fields := strings.Split(string(text), "\x00")
	field := func(i int) string {
		if i < len(fields) {
			return strings.TrimSpace(fields[i])
		}
		return ""
	}
	meta.SetTitle(field(0))
	meta.SetComputer(field(4))
	meta.SetAuthor(field(6))
	meta.SetDate(field(8))
	var comment []string
	for _, s := range []string{field(2), field(10)} {
		if s != "" {
			comment = append(comment, s)
		}
	}
	meta.SetComment(strings.Join(comment, "\n"))
	return nil
}
