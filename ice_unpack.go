// ice_unpack.go - Pack-Ice (Atari ST) decompression used as a container depacker.
//
// Based on Pack-Ice by Axe of Delight/Superior.
// Ported from C implementation at https://github.com/larsbrinkhoff/pack-ice

package main

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const iceHeaderSize = 12

// Versions 2.31/2.40 write "Ice!", later ones "ICE!".
var iceMagics = [...]uint32{0x49434521, 0x49636521}

type iceReader struct {
	data     []byte
	out      []byte
	packed   int // read position, moves backwards
	unpacked int // write position, moves backwards
	bits     int
}

func isICE(data []byte) bool {
	if len(data) < iceHeaderSize {
		return false
	}
	magic := binary.BigEndian.Uint32(data[0:4])
	for _, m := range iceMagics {
		if magic == m {
			return true
		}
	}
	return false
}

// iceLengths returns the packed size (including the header) and the unpacked size.
func iceLengths(data []byte) (int, int) {
	if !isICE(data) {
		return 0, 0
	}
	return int(binary.BigEndian.Uint32(data[4:8])), int(binary.BigEndian.Uint32(data[8:12]))
}

// UnpackICE decompresses ICE-packed data into a new buffer.
func UnpackICE(data []byte) ([]byte, error) {
	if !isICE(data) {
		return nil, errors.New("ice unpack: missing ICE! header")
	}
	crunched, decrunched := iceLengths(data)
	if crunched <= iceHeaderSize || decrunched <= 0 {
		return nil, fmt.Errorf("ice unpack: invalid lengths crunched=%d decrunched=%d", crunched, decrunched)
	}
	if len(data) < crunched {
		return nil, fmt.Errorf("ice unpack: truncated, have %d need %d", len(data), crunched)
	}
	if decrunched > 64<<20 {
		return nil, fmt.Errorf("ice unpack: refusing %d byte output", decrunched)
	}

	r := &iceReader{
		data:     data[:crunched],
		out:      make([]byte, decrunched),
		packed:   crunched - 1,
		unpacked: decrunched,
	}
	r.bits = int(r.data[r.packed])
	if err := r.run(); err != nil {
		return nil, err
	}
	return r.out, nil
}

func (r *iceReader) bit() int {
	bit := (r.bits >> 7) & 1
	r.bits = (r.bits << 1) & 0xff
	if r.bits == 0 {
		r.packed--
		if r.packed < iceHeaderSize {
			r.bits = 1
			return bit
		}
		r.bits = int(r.data[r.packed])
		bit = (r.bits >> 7) & 1
		r.bits = ((r.bits << 1) & 0xff) + 1
	}
	return bit
}

func (r *iceReader) read(n int) int {
	v := 0
	for ; n > 0; n-- {
		v = v<<1 | r.bit()
	}
	return v
}

func (r *iceReader) matchLength() int {
	bitsToGet := [...]int{0, 0, 1, 2, 10}
	toAdd := [...]int{2, 3, 4, 6, 10}
	i := 0
	for i < 4 && r.bit() != 0 {
		i++
	}
	n := toAdd[i]
	if bitsToGet[i] > 0 {
		n += r.read(bitsToGet[i])
	}
	return n
}

func (r *iceReader) matchOffset(length int) int {
	if length == 2 {
		if r.bit() != 0 {
			return r.read(9) + 0x3f
		}
		return r.read(6) - 1
	}
	bitsToGet := [...]int{8, 5, 12}
	toAdd := [...]int{31, -1, 287}
	i := 0
	for i < 2 && r.bit() != 0 {
		i++
	}
	offset := r.read(bitsToGet[i]) + toAdd[i]
	if offset < 0 {
		offset -= length - 2
	}
	return offset
}

func (r *iceReader) literalLength() int {
	bitsToGet := [...]int{1, 2, 2, 3, 8, 15}
	allOnes := [...]int{1, 3, 3, 7, 0xff, 0x7fff}
	toAdd := [...]int{1, 2, 5, 8, 15, 270, 270}
	i, n := 0, 0
	for i < 6 {
		n = r.read(bitsToGet[i])
		if n != allOnes[i] {
			break
		}
		i++
	}
	return n + toAdd[i]
}

func (r *iceReader) run() error {
	for {
		if r.bit() != 0 {
			length := r.literalLength()
			r.packed -= length
			r.unpacked -= length
			if r.unpacked < 0 {
				return errors.New("ice unpack: output underflow during literal copy")
			}
			if r.packed < iceHeaderSize || r.packed+length > len(r.data) {
				return errors.New("ice unpack: input underflow during literal copy")
			}
			copy(r.out[r.unpacked:], r.data[r.packed:r.packed+length])
		}
		if r.unpacked <= 0 {
			return nil
		}

		length := r.matchLength()
		offset := r.matchOffset(length)
		r.unpacked -= length
		if r.unpacked < 0 {
			return errors.New("ice unpack: output underflow during match copy")
		}
		from := r.unpacked + length + offset
		// copy backwards, the regions may overlap
		for i := length - 1; i >= 0; i-- {
			src := from + i
			if src < 0 || src >= len(r.out) {
				return fmt.Errorf("ice unpack: match offset %d out of range", offset)
			}
			r.out[r.unpacked+i] = r.out[src]
		}
	}
}
