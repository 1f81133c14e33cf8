// mp3_stream_test.go - Layer III frame header parsing, stream detection and the seekable renderer.

package main

import (
	"reflect"
	"testing"
	"time"
)

func TestParseMP3FrameHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		ok     bool
		rate   int
		length int
		mpeg1  bool
	}{
		{"mpeg1 128k 44.1k", []byte{0xFF, 0xFB, 0x90, 0x00}, true, 44100, 417, true},
		{"mpeg1 padded", []byte{0xFF, 0xFB, 0x92, 0x00}, true, 44100, 418, true},
		{"mpeg1 48k", []byte{0xFF, 0xFB, 0x94, 0x00}, true, 48000, 384, true},
		{"mpeg2 80k 22.05k", []byte{0xFF, 0xF3, 0x90, 0x00}, true, 22050, 261, false},
		{"mpeg2.5 8k", []byte{0xFF, 0xE3, 0x10, 0x00}, true, 11025, 52, false},
		{"layer II", []byte{0xFF, 0xFD, 0x90, 0x00}, false, 0, 0, false},
		{"reserved version", []byte{0xFF, 0xEB, 0x90, 0x00}, false, 0, 0, false},
		{"free bitrate", []byte{0xFF, 0xFB, 0x00, 0x00}, false, 0, 0, false},
		{"bad bitrate", []byte{0xFF, 0xFB, 0xF0, 0x00}, false, 0, 0, false},
		{"bad rate", []byte{0xFF, 0xFB, 0x9C, 0x00}, false, 0, 0, false},
		{"no sync", []byte{0xFF, 0x1B, 0x90, 0x00}, false, 0, 0, false},
		{"short", []byte{0xFF, 0xFB}, false, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, ok := parseMP3FrameHeader(tt.header)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if !ok {
				return
			}
			if h.sampleRate != tt.rate || h.length != tt.length || h.mpeg1 != tt.mpeg1 {
				t.Fatalf("header %+v, want rate %d length %d mpeg1 %v", h, tt.rate, tt.length, tt.mpeg1)
			}
		})
	}
}

func TestSkipID3v2(t *testing.T) {
	tag := []byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0x01, 0x00}
	if got := skipID3v2(tag); got != 138 {
		t.Errorf("skipID3v2 = %d, want 138", got)
	}
	tag[5] = 0x10 // footer present
	if got := skipID3v2(tag); got != 148 {
		t.Errorf("skipID3v2 with footer = %d, want 148", got)
	}
	if skipID3v2([]byte("TAG")) != 0 {
		t.Error("short data is not a tag")
	}
}

func TestFastCheckMP3(t *testing.T) {
	if !FastCheckMP3(NewBinarySource(buildMP3Frames(2)), 0) {
		t.Error("two consecutive frames should be accepted")
	}
	if FastCheckMP3(NewBinarySource(buildMP3Frames(1)), 0) {
		t.Error("a single frame should be rejected")
	}
	mixed := buildMP3Frames(2)
	mixed[417+2] = 0x94 // second frame at 48 kHz
	if FastCheckMP3(NewBinarySource(mixed), 0) {
		t.Error("frames with different rates should be rejected")
	}
	tagged := append([]byte{'I', 'D', '3', 4, 0, 0, 0, 0, 0, 0}, buildMP3Frames(2)...)
	if !FastCheckMP3(NewBinarySource(tagged), 0) {
		t.Error("leading ID3v2 tag should be accepted")
	}
}

const mp3FixtureFrameSamples = 1152

func newTestMP3Renderer(t *testing.T, frames int) *mp3Renderer {
	t.Helper()
	r, err := newMP3Renderer(buildMP3Frames(frames))
	if err != nil {
		t.Fatalf("newMP3Renderer: %v", err)
	}
	if r.rate != 44100 || r.total != int64(frames*mp3FixtureFrameSamples) {
		t.Fatalf("rate %d total %d", r.rate, r.total)
	}
	return r
}

// drainMP3 renders until the policy stops and returns chunks and frames.
func drainMP3(r *mp3Renderer, policy LoopPolicy) (chunks, frames int) {
	for {
		c := r.Render(policy)
		if c.Empty() {
			return chunks, frames
		}
		chunks++
		frames += c.Frames()
	}
}

func TestMP3Renderer_PlaysOnce(t *testing.T) {
	r := newTestMP3Renderer(t, 50)
	chunks, frames := drainMP3(r, LoopNever)
	if chunks != 50 || frames != 50*mp3FixtureFrameSamples {
		t.Fatalf("rendered %d chunks, %d frames", chunks, frames)
	}
	if st := r.State(); st.LoopCount != 1 || st.Position != 0 {
		t.Fatalf("state after the end %+v", st)
	}
	if !r.Render(LoopNever).Empty() {
		t.Error("render after the end should stay empty")
	}
}

func TestMP3Renderer_LoopsAndResets(t *testing.T) {
	r := newTestMP3Renderer(t, 50)
	for range 100 {
		if r.Render(LoopForever).Empty() {
			t.Fatal("looping stream ended")
		}
	}
	if st := r.State(); st.LoopCount != 2 {
		t.Fatalf("loop count %d after two passes", st.LoopCount)
	}
	r.Reset()
	if st := r.State(); st.LoopCount != 0 || st.Position != 0 {
		t.Fatalf("state after reset %+v", st)
	}
	if _, frames := drainMP3(r, LoopNever); frames != 50*mp3FixtureFrameSamples {
		t.Fatalf("%d frames after reset", frames)
	}
}

func TestMP3SeekTable(t *testing.T) {
	r := newTestMP3Renderer(t, 100)
	// 2 s at 44.1 kHz is 88200 samples, rounded down to frame 76
	want := []int64{0, 76 * mp3FixtureFrameSamples}
	if !reflect.DeepEqual(r.seekPoints, want) {
		t.Fatalf("seek points %v, want %v", r.seekPoints, want)
	}
	preRoll := int64(mp3PreRollFrames * mp3FixtureFrameSamples)
	tests := []struct {
		target, want int64
	}{
		{0, 0},
		{1000, 0},
		{want[1], want[1] - preRoll},
		{110250, want[1] - preRoll},
	}
	for _, tt := range tests {
		if got := r.seekStart(tt.target); got != tt.want {
			t.Errorf("seekStart(%d) = %d, want %d", tt.target, got, tt.want)
		}
	}
	if got := buildMP3SeekTable(0, 44100, mp3FixtureFrameSamples); !reflect.DeepEqual(got, []int64{0}) {
		t.Errorf("empty stream seek points %v", got)
	}
}

func TestMP3Renderer_SetPosition(t *testing.T) {
	r := newTestMP3Renderer(t, 100)
	r.Render(LoopNever)
	r.SetPosition(2500 * time.Millisecond)
	if got := r.State().Position; got != 2500*time.Millisecond {
		t.Fatalf("position %v after seek, want 2.5s", got)
	}
	// 115200 samples in total, 110250 before the target
	if _, frames := drainMP3(r, LoopNever); frames != 115200-110250 {
		t.Fatalf("%d frames after seek, want %d", frames, 115200-110250)
	}

	r.Reset()
	r.SetPosition(time.Hour)
	if got, end := r.State().Position, time.Duration(115199)*time.Second/44100; got != end {
		t.Fatalf("seek past the end at %v, want %v", got, end)
	}
	r.SetPosition(-time.Second)
	if got := r.State().Position; got != 0 {
		t.Fatalf("negative seek at %v", got)
	}
	if _, frames := drainMP3(r, LoopNever); frames != 115200 {
		t.Fatalf("%d frames after seeking to the start", frames)
	}
}
