// vgm_parser_test.go - VGM command stream, SN76489 conversion and GD3 tests

package main

import (
	"encoding/binary"
	"testing"
	"time"
	"unicode/utf16"
)

func parseVGMBytes(data []byte) (*VGMData, error) {
	v, _, err := ParseVGM(NewBinarySource(data), stubMetaBuilder{})
	return v, err
}

// buildVGMHeader returns a 1.72 header whose command data starts at 0x80.
func buildVGMHeader(totalSamples uint32, ayClock uint32) []byte {
	header := make([]byte, 0x80)
	copy(header, "Vgm ")
	binary.LittleEndian.PutUint32(header[0x08:], 0x172)
	binary.LittleEndian.PutUint32(header[0x18:], totalSamples)
	binary.LittleEndian.PutUint32(header[0x34:], 0x80-0x34)
	binary.LittleEndian.PutUint32(header[0x74:], ayClock)
	return header
}

func buildVGMHeaderSN(totalSamples, snClock, ayClock uint32) []byte {
	header := buildVGMHeader(totalSamples, ayClock)
	binary.LittleEndian.PutUint32(header[0x0C:], snClock)
	return header
}

type regWrite struct{ reg, value uint8 }

func vgmWrites(events []vgmEvent) []regWrite {
	out := make([]regWrite, len(events))
	for i, ev := range events {
		out[i] = regWrite{ev.Reg, ev.Value}
	}
	return out
}

func sameWrites(got, want []regWrite) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func TestVGMParse_WaitCommands(t *testing.T) {
	cmds := []byte{
		0xA0, 0x08, 0x01,
		0x61, 0x10, 0x00,
		0xA0, 0x08, 0x02,
		0x62,
		0xA0, 0x08, 0x03,
		0x63,
		0xA0, 0x08, 0x04,
		0x75,
		0xA0, 0x08, 0x05,
		0x83,
		0xA0, 0x08, 0x06,
		0x66,
	}
	vgm, err := parseVGMBytes(append(buildVGMHeader(0, 1773400), cmds...))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	want := []uint64{0, 16, 751, 1633, 1639, 1642}
	if len(vgm.Events) != len(want) {
		t.Fatalf("got %d events, want %d", len(vgm.Events), len(want))
	}
	for i, w := range want {
		if vgm.Events[i].Sample != w || vgm.Events[i].Value != uint8(i+1) {
			t.Errorf("event %d at sample %d value %d, want sample %d", i, vgm.Events[i].Sample, vgm.Events[i].Value, w)
		}
	}
	if vgm.ClockHz != 1773400 || vgm.TotalSamples != 1643 {
		t.Fatalf("clock %d total %d", vgm.ClockHz, vgm.TotalSamples)
	}
}

func TestVGMParse_SkipsForeignCommands(t *testing.T) {
	tests := []struct {
		name    string
		foreign []byte
	}{
		{"reserved one operand", []byte{0x30, 0xAA}},
		{"game gear stereo", []byte{0x4F, 0xFF}},
		{"ym2413", []byte{0x51, 0x10, 0x20}},
		{"ym2612 port 0", []byte{0x52, 0x30, 0x40}},
		{"ym2203", []byte{0x55, 0x00, 0x01}},
		{"second chip register range", []byte{0xB5, 0x01, 0x02}},
		{"sega pcm", []byte{0xC0, 0x01, 0x02, 0x03}},
		{"pcm seek", []byte{0xE0, 0x01, 0x02, 0x03, 0x04}},
		{"ym2612 dac wait", []byte{0x80, 0x81, 0x8F}},
		{"dac stream setup", []byte{0x90, 0, 0, 0, 0}},
		{"dac stream data", []byte{0x91, 0, 0, 0, 0}},
		{"dac stream frequency", []byte{0x92, 0, 0, 0, 0, 0}},
		{"dac stream start", []byte{0x93, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"dac stream stop", []byte{0x94, 0}},
		{"dac stream fast start", []byte{0x95, 0, 0, 0, 0}},
		{"pcm ram write", []byte{0x68, 0x66, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}},
		{"data block", []byte{0x67, 0x66, 0x00, 0x03, 0x00, 0x00, 0x00, 0xA0, 0x00, 0x99}},
		{"second AY", []byte{0xA0, 0x80, 0x55}},
		{"register out of range", []byte{0xA0, 0x0E, 0x55}},
	}
	want := []regWrite{{0, 0x11}, {1, 0x22}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(buildVGMHeader(735, 1773400), 0xA0, 0x00, 0x11)
			data = append(data, tt.foreign...)
			data = append(data, 0xA0, 0x01, 0x22, 0x62, 0x66)
			vgm, err := parseVGMBytes(data)
			if err != nil {
				t.Fatalf("ParseVGM failed: %v", err)
			}
			if got := vgmWrites(vgm.Events); !sameWrites(got, want) {
				t.Fatalf("writes %v, want %v", got, want)
			}
		})
	}
}

func TestVGMParse_SN76489Conversion(t *testing.T) {
	tests := []struct {
		name    string
		ayClock uint32
		writes  []byte
		want    []regWrite
	}{
		{
			// divider 5 rounds down to zero and is clamped to 1, then
			// 0x105 * 1773400 / (3579545 * 2) = 64
			name:    "tone latch and data",
			ayClock: 1773400,
			writes:  []byte{0x85, 0x10},
			want:    []regWrite{{0, 1}, {1, 0}, {0, 64}, {1, 0}},
		},
		{
			name:    "divider 100 onto msx clock",
			ayClock: 1789773,
			writes:  []byte{0x84, 0x06},
			want:    []regWrite{{0, 1}, {1, 0}, {0, 25}, {1, 0}},
		},
		{
			name:   "attenuation per channel",
			writes: []byte{0x90, 0xBF, 0xD5},
			want: []regWrite{
				{PSG_REG_VOLUME_A, 15}, {PSG_REG_MIXER, 0x3E},
				{PSG_REG_VOLUME_B, 0}, {PSG_REG_MIXER, 0x3E},
				{PSG_REG_VOLUME_C, 10}, {PSG_REG_MIXER, 0x3A},
			},
		},
		{
			// the noise channel plays through AY channel C once audible
			name:   "noise",
			writes: []byte{0xE4, 0xF0},
			want:   []regWrite{{PSG_REG_NOISE, 4}, {PSG_REG_MIXER, 0x3F}, {PSG_REG_MIXER, 0x1F}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := buildVGMHeaderSN(735, 3579545, tt.ayClock)
			for _, b := range tt.writes {
				data = append(data, 0x50, b)
			}
			vgm, err := parseVGMBytes(append(data, 0x62, 0x66))
			if err != nil {
				t.Fatalf("ParseVGM failed: %v", err)
			}
			if vgm.SNClockHz != 3579545 {
				t.Fatalf("SN clock %d", vgm.SNClockHz)
			}
			if got := vgmWrites(vgm.Events); !sameWrites(got, tt.want) {
				t.Fatalf("writes %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVGMParse_SNOnlyTargetsMSXClock(t *testing.T) {
	vgm, err := parseVGMBytes(append(buildVGMHeaderSN(735, 3579545, 0), 0x50, 0x90, 0x62, 0x66))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	if vgm.ClockHz != PSG_CLOCK_MSX {
		t.Fatalf("clock %d, want %d", vgm.ClockHz, PSG_CLOCK_MSX)
	}
}

func TestParseVGM_Rejects(t *testing.T) {
	header := buildVGMHeader(1, 1773400)
	tests := []struct {
		name string
		cmds []byte
	}{
		{"truncated reserved command", []byte{0xA0, 0, 1, 0x30}},
		{"truncated ym2413 write", []byte{0xA0, 0, 1, 0x51, 0x00}},
		{"truncated sega pcm", []byte{0xA0, 0, 1, 0xC0, 0x00, 0x00}},
		{"truncated pcm seek", []byte{0xA0, 0, 1, 0xE0, 0x00, 0x00, 0x00}},
		{"truncated dac stream", []byte{0xA0, 0, 1, 0x90, 0x00, 0x00, 0x00}},
		{"truncated AY write", []byte{0xA0, 0x00}},
		{"truncated SN write", []byte{0xA0, 0, 1, 0x50}},
		{"truncated wait", []byte{0xA0, 0, 1, 0x61, 0x10}},
		{"bad data block", []byte{0xA0, 0, 1, 0x67, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00}},
		{"no register writes", []byte{0x62, 0x66}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte{}, header...), tt.cmds...)
			if _, err := parseVGMBytes(data); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestVGMParse_MissingEndMarker(t *testing.T) {
	vgm, err := parseVGMBytes(append(buildVGMHeader(0, 1773400), 0xA0, 0x07, 0x3E, 0x62))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	if len(vgm.Events) != 1 || vgm.TotalSamples != 735 {
		t.Fatalf("events %d total %d", len(vgm.Events), vgm.TotalSamples)
	}
}

func TestVGMParse_NoClockRejected(t *testing.T) {
	data := append(buildVGMHeader(735, 0), 0xA0, 0x00, 0x01, 0x62, 0x66)
	if _, err := parseVGMBytes(data); err == nil {
		t.Fatal("expected error without AY or SN76489 clock")
	}
}

func TestVGMParse_LoopOffset(t *testing.T) {
	header := buildVGMHeader(0, 1773400)
	cmds := []byte{
		0xA0, 0x08, 0x0F, // at 0x80
		0x61, 0x10, 0x00, // wait 16
		0xA0, 0x08, 0x0A, // at 0x86, loop target
		0x61, 0x10, 0x00,
		0x66,
	}
	binary.LittleEndian.PutUint32(header[0x1C:0x20], 0x86-0x1C)
	vgm, err := parseVGMBytes(append(header, cmds...))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	if !vgm.HasLoop || vgm.LoopSample != 16 {
		t.Fatalf("loop: has=%v sample=%d, want 16", vgm.HasLoop, vgm.LoopSample)
	}
	if vgm.TotalSamples != 32 {
		t.Fatalf("total samples %d, want 32 (header total is zero)", vgm.TotalSamples)
	}
}

func appendUTF16Z(dst []byte, s string) []byte {
	for _, u := range utf16.Encode([]rune(s)) {
		dst = binary.LittleEndian.AppendUint16(dst, u)
	}
	return append(dst, 0, 0)
}

func TestVGMParse_GD3Tag(t *testing.T) {
	header := buildVGMHeader(735, 1773400)
	data := append(header, 0xA0, 0x00, 0x01, 0x62, 0x66)
	gd3Offset := len(data)

	var body []byte
	for _, f := range []string{"Track", "", "Game", "", "ZX Spectrum", "", "Composer", "", "1987", "Ripper", "Notes"} {
		body = appendUTF16Z(body, f)
	}
	gd3 := []byte("Gd3 ")
	gd3 = binary.LittleEndian.AppendUint32(gd3, 0x100)
	gd3 = binary.LittleEndian.AppendUint32(gd3, uint32(len(body)))
	data = append(append(data, gd3...), body...)
	binary.LittleEndian.PutUint32(data[0x14:0x18], uint32(gd3Offset-0x14))

	props := NewProperties()
	if _, _, err := ParseVGM(NewBinarySource(data), propertiesMetaBuilder{props: props}); err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	want := map[string]string{
		PropTitle:    "Track",
		PropAuthor:   "Composer",
		PropComputer: "ZX Spectrum",
		PropDate:     "1987",
		PropComment:  "Game\nNotes",
		PropProgram:  "VGM 1.72",
	}
	for key, value := range want {
		if got := props.String(key); got != value {
			t.Errorf("%s = %q, want %q", key, got, value)
		}
	}
}

func TestVGMRenderer_FrameSizesAndEnd(t *testing.T) {
	// 2000 samples: two full 882 sample frames and a short 236 sample tail
	header := buildVGMHeader(2000, 1773400)
	cmds := []byte{0xA0, 0x08, 0x0F, 0x61, 0xD0, 0x07, 0x66}
	vgm, err := parseVGMBytes(append(header, cmds...))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	r := newVGMRenderer(vgm, vgm.ClockHz, AYLayoutABC)
	var sizes []int
	for {
		c := r.Render(LoopNever)
		if c.Empty() {
			break
		}
		if c.SampleRate != vgmSampleRate {
			t.Fatalf("sample rate %d", c.SampleRate)
		}
		sizes = append(sizes, c.Frames())
	}
	want := []int{882, 882, 236}
	if len(sizes) != len(want) {
		t.Fatalf("frame sizes %v, want %v", sizes, want)
	}
	for i := range want {
		if sizes[i] != want[i] {
			t.Fatalf("frame sizes %v, want %v", sizes, want)
		}
	}
	if st := r.State(); st.LoopCount != 1 {
		t.Fatalf("loop count %d after end, want 1", st.LoopCount)
	}
}

func TestVGMRenderer_SetPositionMatchesPlayback(t *testing.T) {
	header := buildVGMHeader(0, 1773400)
	cmds := []byte{
		0xA0, 0x07, 0x3E, 0xA0, 0x08, 0x0F, 0xA0, 0x00, 0x40,
		0x63, 0x63, // two 882 waits
		0xA0, 0x00, 0x80,
		0x63, 0x63,
		0x66,
	}
	vgm, err := parseVGMBytes(append(header, cmds...))
	if err != nil {
		t.Fatalf("ParseVGM failed: %v", err)
	}
	played := newVGMRenderer(vgm, vgm.ClockHz, AYLayoutABC)
	played.Render(LoopNever)
	played.Render(LoopNever)

	seeked := newVGMRenderer(vgm, vgm.ClockHz, AYLayoutABC)
	seeked.SetPosition(40 * time.Millisecond)
	if got := seeked.State().Position; got != 40*time.Millisecond {
		t.Fatalf("position %v, want 40ms", got)
	}
	for reg := 0; reg < PSG_REG_COUNT; reg++ {
		if a, b := played.chip.Register(reg), seeked.chip.Register(reg); a != b {
			t.Errorf("reg %d: played %#02x seeked %#02x", reg, a, b)
		}
	}
}
