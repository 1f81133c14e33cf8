// ym_parser.go - YM file parser for AY/YM register frames (YM2!, YM3!, YM3b, YM5!, YM6!).

package main

import (
	"fmt"
)

const (
	ymFrameRegisters  = 16
	ymLegacyRegisters = 14
	ymDefaultRate     = 50

	ymAttrInterleaved = 0x01
	ymNoEnvelopeWrite = 0xFF
)

type ymVersion int

const (
	ymVersionNone ymVersion = iota
	ymVersion2
	ymVersion3
	ymVersion3b
	ymVersion5
	ymVersion6
)

func detectYMVersion(id []byte) ymVersion {
	switch string(id) {
	case "YM2!":
		return ymVersion2
	case "YM3!":
		return ymVersion3
	case "YM3b":
		return ymVersion3b
	case "YM5!":
		return ymVersion5
	case "YM6!":
		return ymVersion6
	}
	return ymVersionNone
}

func FastCheckYM(src *BinarySource, start int) bool {
	id, err := src.Slice(start, 4)
	if err != nil {
		return false
	}
	switch detectYMVersion(id) {
	case ymVersion2, ymVersion3:
		return src.Size()-start >= 4+ymLegacyRegisters
	case ymVersion3b:
		return src.Size()-start >= 4+ymLegacyRegisters+4
	case ymVersion5, ymVersion6:
		sig, err := src.Slice(start+4, 8)
		return err == nil && string(sig) == "LeOnArD!"
	}
	return false
}

// ParseYM decodes a depacked YM file. Packed files reach here through the
// container resolver's LHA depacker.
func ParseYM(src *BinarySource, b DumpBuilder) (*ParsedContainer, error) {
	start := src.Tell()
	if !FastCheckYM(src, start) {
		return nil, fmt.Errorf("ym: unsupported header")
	}
	id, _ := src.ReadBytes(4)
	b.SetClock(PSG_CLOCK_ATARI_ST)
	b.SetFrameRate(ymDefaultRate)
	b.Meta().SetComputer("Atari ST")

	switch v := detectYMVersion(id); v {
	case ymVersion5, ymVersion6:
		b.Meta().SetProgram(string(id[:3]))
		if err := parseYM56(src, b); err != nil {
			return nil, err
		}
	default:
		b.Meta().SetProgram(string(id))
		if err := parseYMLegacy(src, b, v == ymVersion3b); err != nil {
			return nil, err
		}
	}
	return newParsedContainer(src, start), nil
}

// parseYMLegacy handles YM2/YM3: 14 interleaved registers per frame and, for
// YM3b, a trailing big-endian loop frame.
func parseYMLegacy(src *BinarySource, b DumpBuilder, withLoop bool) error {
	body := src.Remaining()
	if withLoop {
		body -= 4
	}
	frames := body / ymLegacyRegisters
	if frames == 0 {
		return fmt.Errorf("ym: no frames")
	}
	data, err := src.ReadBytes(frames * ymLegacyRegisters)
	if err != nil {
		return err
	}
	if withLoop {
		if err := src.Seek(src.Size() - 4); err != nil {
			return err
		}
		loop, err := src.ReadBE32()
		if err != nil {
			return err
		}
		b.SetLoopFrame(int(loop))
	}
	emitYMFrames(b, data, frames, ymLegacyRegisters, true)
	return nil
}

func parseYM56(src *BinarySource, b DumpBuilder) error {
	if err := src.Skip(8); err != nil {
		return err
	}
	nbFrames, err := src.ReadBE32()
	if err != nil {
		return err
	}
	attrs, err := src.ReadBE32()
	if err != nil {
		return err
	}
	numDrums, err := src.ReadBE16()
	if err != nil {
		return err
	}
	clock, err := src.ReadBE32()
	if err != nil {
		return err
	}
	frameRate, err := src.ReadBE16()
	if err != nil {
		return err
	}
	loopFrame, err := src.ReadBE32()
	if err != nil {
		return err
	}
	extra, err := src.ReadBE16()
	if err != nil {
		return err
	}
	if err := src.Skip(int(extra)); err != nil {
		return fmt.Errorf("ym: extra header: %w", err)
	}
	// digidrum samples are not rendered by the AY core
	for i := 0; i < int(numDrums); i++ {
		size, err := src.ReadBE32()
		if err != nil {
			return fmt.Errorf("ym: drum %d: %w", i, err)
		}
		if err := src.Skip(int(size)); err != nil {
			return fmt.Errorf("ym: drum %d: %w", i, err)
		}
	}
	title, _ := src.ReadCString()
	author, _ := src.ReadCString()
	comment, _ := src.ReadCString()

	logger.Debug("ym header", "frames", nbFrames, "attrs", attrs, "drums", numDrums,
		"clock", clock, "rate", frameRate, "loop", loopFrame, "title", title)

	if nbFrames == 0 || nbFrames > maxDumpFrames {
		return fmt.Errorf("ym: invalid frame count %d", nbFrames)
	}
	frames := int(nbFrames)
	regs := ymFrameRegisters
	if src.Remaining() < frames*ymFrameRegisters {
		if src.Remaining() < frames*ymLegacyRegisters {
			return fmt.Errorf("ym: frame data too short")
		}
		regs = ymLegacyRegisters
	}
	data, err := src.ReadBytes(frames * regs)
	if err != nil {
		return err
	}

	b.SetClock(int(clock))
	b.SetFrameRate(int(frameRate))
	b.SetLoopFrame(int(loopFrame))
	b.Meta().SetTitle(title)
	b.Meta().SetAuthor(author)
	b.Meta().SetComment(comment)
	emitYMFrames(b, data, frames, regs, attrs&ymAttrInterleaved != 0)
	return nil
}

// emitYMFrames feeds frames to the builder. Only the 14 AY registers are
// used; an envelope shape of 0xFF leaves the envelope running.
func emitYMFrames(b DumpBuilder, data []byte, frames, regs int, interleaved bool) {
	b.AddChunks(1)
	for frame := 0; frame < frames; frame++ {
		if frame > 0 {
			b.AddChunks(1)
		}
		for reg := 0; reg < ymLegacyRegisters; reg++ {
			var val uint8
			if interleaved {
				val = data[reg*frames+frame]
			} else {
				val = data[frame*regs+reg]
			}
			if reg == PSG_REG_ENV_SHAPE && val == ymNoEnvelopeWrite {
				continue
			}
			b.SetRegister(reg, val)
		}
	}
}

type ymPlugin struct{}

func (ymPlugin) ID() string          { return "YM" }
func (ymPlugin) Description() string { return "Atari ST YM register dump" }

func (ymPlugin) Test(src *BinarySource) bool {
	return FastCheckYM(src, src.Tell())
}

func (ymPlugin) Load(src *BinarySource) (*Module, error) {
	props := NewProperties()
	b := newDumpModuleBuilder(props, PSG_CLOCK_ATARI_ST)
	container, err := ParseYM(src, b)
	if err != nil {
		return nil, err
	}
	return b.module(props, container)
}
