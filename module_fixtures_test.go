// module_fixtures_test.go - Hand-built module images shared by loader, registry and renderer tests.

package main

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"testing"
)

const (
	stcFixtureSamples   = stcHeaderSize
	stcFixturePositions = stcFixtureSamples + stcSampleSize
	stcFixtureOrnaments = stcFixturePositions + 3
	stcFixturePatterns  = stcFixtureOrnaments + stcOrnamentSize
	stcFixtureChannelA  = stcFixturePatterns + stcPatternDescSize + 1
	stcFixtureChannelB  = stcFixtureChannelA + 4
	stcFixtureChannelC  = stcFixtureChannelB + 2
	stcFixtureSize      = stcFixtureChannelC + 2
)

// buildSTCData returns a one-position Sound Tracker module: sample 1 plays
// note 36 for one line, then a rest. Tempo 3 gives 6 frames in total.
func buildSTCData() []byte {
	data := make([]byte, stcFixtureSize)
	data[0] = 3
	binary.LittleEndian.PutUint16(data[1:], stcFixturePositions)
	binary.LittleEndian.PutUint16(data[3:], stcFixtureOrnaments)
	binary.LittleEndian.PutUint16(data[5:], stcFixturePatterns)
	copy(data[stcIdentifierOffset:], "TEST TUNE         ")
	binary.LittleEndian.PutUint16(data[25:], stcFixtureSize)

	sample := data[stcFixtureSamples:]
	sample[0] = 1
	for l := 0; l < stcSampleLines; l++ {
		sample[1+l*3] = 0x0F // level 15
		sample[2+l*3] = 0x80 // noise off, tone on
	}

	copy(data[stcFixturePositions:], []byte{0x00, 0x01, 0x00})
	// ornament 0 stays all zero

	copy(data[stcFixturePatterns:], []byte{
		0x01,
		stcFixtureChannelA, 0x00,
		stcFixtureChannelB, 0x00,
		stcFixtureChannelC, 0x00,
		0xFF,
	})
	copy(data[stcFixtureChannelA:], []byte{0x61, 0x24, 0x80, 0xFF})
	copy(data[stcFixtureChannelB:], []byte{0x81, 0x81})
	copy(data[stcFixtureChannelC:], []byte{0x81, 0x81})
	return data
}

const (
	stpFixturePositions = stpHeaderSize + stpIDSize + stpTitleSize
	stpFixturePatterns  = stpFixturePositions + 4
	stpFixtureOrnaments = stpFixturePatterns + stpPatternDescSize
	stpFixtureSamples   = stpFixtureOrnaments + 2*stpMaxOrnaments
	stpFixtureOrnament0 = stpFixtureSamples + 2*stpMaxSamples
	stpFixtureSample0   = stpFixtureOrnament0 + 3
	stpFixtureSample1   = stpFixtureSample0 + 6
	stpFixtureChannelA  = stpFixtureSample1 + 6
	stpFixtureChannelB  = stpFixtureChannelA + 7
	stpFixtureChannelC  = stpFixtureChannelB + 3
	stpFixtureSize      = stpFixtureChannelC + 2
)

// buildSTPData returns a one-position Sound Tracker Pro module at tempo 2
// with two lines. Channel A glides note 36 up by 2 per tick on sample 0
// and drops to volume 10 on line 1. Channel B plays note 48 on the noisy
// sample 1 and rests on line 1. Channel C stays silent.
func buildSTPData() []byte {
	data := make([]byte, stpFixtureSize)
	data[0] = 2
	binary.LittleEndian.PutUint16(data[1:], stpFixturePositions)
	binary.LittleEndian.PutUint16(data[3:], stpFixturePatterns)
	binary.LittleEndian.PutUint16(data[5:], stpFixtureOrnaments)
	binary.LittleEndian.PutUint16(data[7:], stpFixtureSamples)
	copy(data[stpHeaderSize:], stpIdentifier+"GLIDE TEST               ")

	copy(data[stpFixturePositions:], []byte{1, 0, 0, 0})
	binary.LittleEndian.PutUint16(data[stpFixturePatterns:], stpFixtureChannelA)
	binary.LittleEndian.PutUint16(data[stpFixturePatterns+2:], stpFixtureChannelB)
	binary.LittleEndian.PutUint16(data[stpFixturePatterns+4:], stpFixtureChannelC)
	binary.LittleEndian.PutUint16(data[stpFixtureOrnaments:], stpFixtureOrnament0)
	binary.LittleEndian.PutUint16(data[stpFixtureSamples:], stpFixtureSample0)
	binary.LittleEndian.PutUint16(data[stpFixtureSamples+2:], stpFixtureSample1)

	copy(data[stpFixtureOrnament0:], []byte{0, 1, 0})
	// level 15, tone on, noise masked
	copy(data[stpFixtureSample0:], []byte{0, 1, 0x8F, 0x00, 0, 0})
	// level 12, tone and noise 5 on
	copy(data[stpFixtureSample1:], []byte{0, 1, 0x0C, 0x05, 0, 0})

	copy(data[stpFixtureChannelA:], []byte{0x61, 0xF0, 0x02, 0x25, 0xFA, 0xE0, 0x00})
	copy(data[stpFixtureChannelB:], []byte{0x62, 0x31, 0xD0})
	copy(data[stpFixtureChannelC:], []byte{0xE0, 0xE0})
	return data
}

// buildMP3Frames returns n silent MPEG-1 layer III frame headers at
// 128 kbit/s and 44.1 kHz, each padded to the 417 byte frame length.
func buildMP3Frames(n int) []byte {
	const frameLen = 417
	data := make([]byte, n*frameLen)
	for i := 0; i < n; i++ {
		copy(data[i*frameLen:], []byte{0xFF, 0xFB, 0x90, 0x00})
	}
	return data
}

// buildPSGFixture returns a PSG dump of frames frames with a steady tone on
// channel A.
func buildPSGFixture(frames int) []byte {
	body := []byte{0xFF, 0x00, 0x40, 0x07, 0x3E, 0x08, 0x0F}
	for i := 1; i < frames; i++ {
		body = append(body, 0xFF)
	}
	return buildPSGData(body...)
}

func buildVGMFixture() []byte {
	data := buildVGMHeader(2*735, 1773400)
	return append(data,
		0xA0, 0x00, 0x40,
		0xA0, 0x07, 0x3E,
		0xA0, 0x08, 0x0F,
		0x62, 0x62,
		0x66,
	)
}

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func zipBytes(t *testing.T, name string, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatalf("zip create: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("zip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}
