// binary_source.go - Bounds-checked read cursor over an immutable byte view.

package main

import (
	"encoding/binary"
	"fmt"
	"io"
)

// BinarySource is a read-only view over module bytes with a cursor.
// Every read is bounds checked; parsers never index the underlying slice
// directly. The view never copies or mutates the data it wraps.
type BinarySource struct {
	data []byte
	pos  int
	// high tracks the furthest byte consumed, so parsers can report the
	// sub-range they actually used.
	high int
}

func NewBinarySource(data []byte) *BinarySource {
	return &BinarySource{data: data}
}

func (s *BinarySource) Size() int { return len(s.data) }

func (s *BinarySource) Tell() int { return s.pos }

func (s *BinarySource) Remaining() int { return len(s.data) - s.pos }

// Seek moves the cursor to an absolute offset. Seeking to Size() is allowed.
func (s *BinarySource) Seek(off int) error {
	if off < 0 || off > len(s.data) {
		return fmt.Errorf("seek to %d outside %d-byte source: %w", off, len(s.data), io.ErrUnexpectedEOF)
	}
	s.pos = off
	return nil
}

// Skip advances the cursor by n bytes.
func (s *BinarySource) Skip(n int) error {
	if n < 0 || n > s.Remaining() {
		return fmt.Errorf("skip %d at offset %d: %w", n, s.pos, io.ErrUnexpectedEOF)
	}
	s.pos += n
	s.mark(s.pos)
	return nil
}

// Peek returns up to n bytes from the cursor without advancing it.
func (s *BinarySource) Peek(n int) []byte {
	end := s.pos + n
	if end > len(s.data) {
		end = len(s.data)
	}
	return s.data[s.pos:end:end]
}

// Slice returns n bytes at an absolute offset without moving the cursor.
func (s *BinarySource) Slice(off, n int) ([]byte, error) {
	if off < 0 || n < 0 || off > len(s.data) || n > len(s.data)-off {
		return nil, fmt.Errorf("slice [%d:+%d] outside %d-byte source: %w", off, n, len(s.data), io.ErrUnexpectedEOF)
	}
	s.mark(off + n)
	return s.data[off : off+n : off+n], nil
}

// ByteAt reads one byte at an absolute offset without moving the cursor.
func (s *BinarySource) ByteAt(off int) (uint8, error) {
	b, err := s.Slice(off, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// LE16At reads a little-endian word at an absolute offset.
func (s *BinarySource) LE16At(off int) (uint16, error) {
	b, err := s.Slice(off, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *BinarySource) ReadBytes(n int) ([]byte, error) {
	b, err := s.Slice(s.pos, n)
	if err != nil {
		return nil, err
	}
	s.pos += n
	return b, nil
}

func (s *BinarySource) ReadU8() (uint8, error) {
	b, err := s.ReadBytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (s *BinarySource) ReadLE16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (s *BinarySource) ReadLE32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (s *BinarySource) ReadBE16() (uint16, error) {
	b, err := s.ReadBytes(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (s *BinarySource) ReadBE32() (uint32, error) {
	b, err := s.ReadBytes(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

// ReadCString reads a NUL-terminated string. A missing terminator at the end
// of the source is tolerated, matching parseNullTerminatedString.
func (s *BinarySource) ReadCString() (string, error) {
	if s.pos > len(s.data) {
		return "", io.ErrUnexpectedEOF
	}
	str, next := parseNullTerminatedString(s.data, s.pos)
	s.pos = next
	s.mark(next)
	return str, nil
}

// Consumed reports the furthest offset touched by reads since the last Reset.
func (s *BinarySource) Consumed() int { return s.high }

// Reset rewinds the cursor to off and clears consumption tracking. The
// registry calls this before every format check so one plugin's reads never leak
// into the next plugin's view.
func (s *BinarySource) Reset(off int) {
	if off < 0 || off > len(s.data) {
		off = 0
	}
	s.pos = off
	s.high = off
}

// Bytes exposes the full view for transforms that need a contiguous slice
// (checksums, decoder readers). Callers must not modify it.
func (s *BinarySource) Bytes() []byte { return s.data }

func (s *BinarySource) mark(end int) {
	if end > s.high {
		s.high = end
	}
}
