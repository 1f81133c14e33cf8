// psg_parser.go - PSG register dump parser ("PSG\x1A" streams from ZX emulators).

package main

import (
	"errors"
	"fmt"
)

const (
	psgHeaderSize = 16

	psgCmdFrame = 0xFF
	psgCmdSkip  = 0xFE
	psgCmdEnd   = 0xFD
)

var psgSignature = []byte{'P', 'S', 'G', 0x1A}

func FastCheckPSG(src *BinarySource, start int) bool {
	head, err := src.Slice(start, psgHeaderSize)
	if err != nil {
		return false
	}
	if string(head[:4]) != string(psgSignature) {
		return false
	}
	// a header alone is not a dump
	return src.Size()-start > psgHeaderSize
}

// ParsePSG decodes the command stream after the header: 0xFF starts a frame,
// 0xFE n skips n*4 frames, 0xFD ends the data and anything below 16 is a
// register/value pair.
func ParsePSG(src *BinarySource, b DumpBuilder) (*ParsedContainer, error) {
	start := src.Tell()
	if !FastCheckPSG(src, start) {
		return nil, errors.New("psg: missing PSG header")
	}
	if err := src.Seek(start + psgHeaderSize); err != nil {
		return nil, err
	}
	b.SetClock(PSG_CLOCK_ZX_SPECTRUM)
	b.SetFrameRate(PSG_FRAME_RATE_PAL)
	b.Meta().SetComputer("ZX Spectrum")

	frames := 0
	for src.Remaining() > 0 {
		cmd, _ := src.ReadU8()
		switch {
		case cmd == psgCmdFrame:
			b.AddChunks(1)
			frames++
		case cmd == psgCmdSkip:
			n, err := src.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("psg: skip count: %w", err)
			}
			b.AddChunks(int(n) * 4)
			frames += int(n) * 4
		case cmd == psgCmdEnd:
			return psgResult(src, start, frames)
		case cmd < 16:
			val, err := src.ReadU8()
			if err != nil {
				return nil, fmt.Errorf("psg: register %d value: %w", cmd, err)
			}
			if frames == 0 {
				b.AddChunks(1)
				frames++
			}
			b.SetRegister(int(cmd), val)
		default:
			// unknown byte, treat the rest as trailing garbage
			return psgResult(src, start, frames)
		}
	}
	return psgResult(src, start, frames)
}

func psgResult(src *BinarySource, start, frames int) (*ParsedContainer, error) {
	if frames == 0 {
		return nil, errors.New("psg: no frames")
	}
	return newParsedContainer(src, start), nil
}

type psgPlugin struct{}

func (psgPlugin) ID() string          { return "PSG" }
func (psgPlugin) Description() string { return "PSG register dump" }

func (psgPlugin) Test(src *BinarySource) bool {
	return FastCheckPSG(src, src.Tell())
}

func (psgPlugin) Load(src *BinarySource) (*Module, error) {
	props := NewProperties()
	b := newDumpModuleBuilder(props, PSG_CLOCK_ZX_SPECTRUM)
	container, err := ParsePSG(src, b)
	if err != nil {
		return nil, err
	}
	return b.module(props, container)
}
