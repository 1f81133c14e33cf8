// mp3_stream.go - MPEG layer III detection, seek table and streaming renderer on go-mp3.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/hajimehoshi/go-mp3"
)

const (
	mp3BytesPerSample = 4 // go-mp3 always emits 16-bit stereo
	mp3SeekStep       = 2000 * time.Millisecond
	mp3PreRollFrames  = 10
	mp3MinDuration    = time.Second
)

var (
	mp3BitratesV1 = [16]int{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 0}
	mp3BitratesV2 = [16]int{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160, 0}
	mp3RatesV1    = [3]int{44100, 48000, 32000}
)

// mp3FrameHeader is the part of a layer III header needed to find the next
// frame.
type mp3FrameHeader struct {
	mpeg1      bool
	sampleRate int
	length     int
}

func parseMP3FrameHeader(b []byte) (mp3FrameHeader, bool) {
	if len(b) < 4 || b[0] != 0xFF || b[1]&0xE0 != 0xE0 {
		return mp3FrameHeader{}, false
	}
	version := (b[1] >> 3) & 0x03 // 0=2.5 1=reserved 2=2 3=1
	layer := (b[1] >> 1) & 0x03   // 1=III
	bitrateIdx := b[2] >> 4
	rateIdx := (b[2] >> 2) & 0x03
	if version == 1 || layer != 1 || bitrateIdx == 0 || bitrateIdx == 15 || rateIdx == 3 {
		return mp3FrameHeader{}, false
	}
	h := mp3FrameHeader{mpeg1: version == 3, sampleRate: mp3RatesV1[rateIdx]}
	bitrate := mp3BitratesV2[bitrateIdx] * 1000
	coeff := 72
	switch version {
	case 3:
		bitrate = mp3BitratesV1[bitrateIdx] * 1000
		coeff = 144
	case 2:
		h.sampleRate /= 2
	case 0:
		h.sampleRate /= 4
	}
	h.length = coeff*bitrate/h.sampleRate + int((b[2]>>1)&0x01)
	return h, h.length > 4
}

// skipID3v2 returns the offset after a leading ID3v2 tag, or 0.
func skipID3v2(b []byte) int {
	if len(b) < 10 || string(b[:3]) != "ID3" {
		return 0
	}
	size := int(b[6]&0x7F)<<21 | int(b[7]&0x7F)<<14 | int(b[8]&0x7F)<<7 | int(b[9]&0x7F)
	size += 10
	if b[5]&0x10 != 0 {
		size += 10
	}
	return size
}

// FastCheckMP3 accepts an ID3v2 tag or two consecutive layer III frames.
func FastCheckMP3(src *BinarySource, start int) bool {
	head := src.Peek(10)
	if skipID3v2(head) > 0 {
		return true
	}
	first, err := src.Slice(start, 4)
	if err != nil {
		return false
	}
	h, ok := parseMP3FrameHeader(first)
	if !ok {
		return false
	}
	second, err := src.Slice(start+h.length, 4)
	if err != nil {
		return false
	}
	h2, ok := parseMP3FrameHeader(second)
	return ok && h2.sampleRate == h.sampleRate
}

type mp3Renderer struct {
	data         []byte
	dec          *mp3.Decoder
	rate         int
	frameSamples int
	total        int64
	seekPoints   []int64
	pos          int64
	loopCount    int
	buf          []byte
	failed       bool
}

func newMP3Renderer(data []byte) (*mp3Renderer, error) {
	r := &mp3Renderer{data: data}
	if err := r.open(); err != nil {
		return nil, err
	}
	r.rate = r.dec.SampleRate()
	r.frameSamples = 1152
	if r.rate < 32000 {
		r.frameSamples = 576
	}
	r.total = r.dec.Length() / mp3BytesPerSample
	r.seekPoints = buildMP3SeekTable(r.total, r.rate, r.frameSamples)
	r.buf = make([]byte, r.frameSamples*mp3BytesPerSample)
	return r, nil
}

// buildMP3SeekTable lists one frame-aligned sample offset per seek step.
func buildMP3SeekTable(total int64, rate, frameSamples int) []int64 {
	step := int64(mp3SeekStep/time.Millisecond) * int64(rate) / 1000
	points := make([]int64, 1, total/step+1)
	for at := step; at < total; at += step {
		points = append(points, at/int64(frameSamples)*int64(frameSamples))
	}
	return points
}

func (r *mp3Renderer) open() error {
	dec, err := mp3.NewDecoder(bytes.NewReader(r.data))
	if err != nil {
		return err
	}
	r.dec = dec
	return nil
}

func (r *mp3Renderer) Reset() {
	if _, err := r.dec.Seek(0, io.SeekStart); err != nil {
		logger.Warn("mp3 rewind failed, reopening", "err", err)
		if err := r.open(); err != nil {
			r.failed = true
		}
	}
	r.pos = 0
	r.loopCount = 0
}

func (r *mp3Renderer) State() PlaybackState {
	return PlaybackState{
		Position:  time.Duration(r.pos) * time.Second / time.Duration(r.rate),
		LoopCount: r.loopCount,
	}
}

func (r *mp3Renderer) wrap() {
	r.loopCount++
	r.pos = 0
	if _, err := r.dec.Seek(0, io.SeekStart); err != nil {
		logger.Warn("mp3 loop seek failed", "err", err)
		r.failed = true
	}
}

// Render decodes one MPEG frame worth of samples.
func (r *mp3Renderer) Render(policy LoopPolicy) Chunk {
	for attempt := 0; attempt < 2; attempt++ {
		if r.failed || (r.loopCount > 0 && (policy == nil || !policy(r.loopCount))) {
			return Chunk{}
		}
		n, err := io.ReadFull(r.dec, r.buf)
		n -= n % mp3BytesPerSample
		r.pos += int64(n / mp3BytesPerSample)
		if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
			logger.Debug("mp3 decode stopped", "err", err)
		}
		if err != nil || (r.total > 0 && r.pos >= r.total) {
			r.wrap()
		}
		if n == 0 {
			continue
		}
		out := make([]int16, n/2)
		for i := range out {
			out[i] = int16(uint16(r.buf[2*i]) | uint16(r.buf[2*i+1])<<8)
		}
		return Chunk{SampleRate: r.rate, Samples: out}
	}
	return Chunk{}
}

// seekStart picks the seek point at or before target and backs off by the
// pre-roll so the bit reservoir is primed before the target frame.
func (r *mp3Renderer) seekStart(target int64) int64 {
	i, found := slices.BinarySearch(r.seekPoints, target)
	if !found {
		i--
	}
	var point int64
	if i >= 0 {
		point = r.seekPoints[i]
	}
	return max(0, point-int64(mp3PreRollFrames*r.frameSamples))
}

func (r *mp3Renderer) SetPosition(t time.Duration) {
	if t < 0 {
		t = 0
	}
	target := int64(t) * int64(r.rate) / int64(time.Second)
	if r.total > 0 && target >= r.total {
		target = r.total - 1
	}
	start := r.seekStart(target)
	if _, err := r.dec.Seek(start*mp3BytesPerSample, io.SeekStart); err != nil {
		logger.Warn("mp3 seek failed", "err", err)
		r.failed = true
		return
	}
	if _, err := io.CopyN(io.Discard, r.dec, (target-start)*mp3BytesPerSample); err != nil {
		logger.Debug("mp3 pre-roll short", "err", err)
	}
	r.pos = target
	r.failed = false
}

type mp3Plugin struct{}

func (mp3Plugin) ID() string          { return "MP3" }
func (mp3Plugin) Description() string { return "MPEG-1/2 layer III stream" }

func (mp3Plugin) Test(src *BinarySource) bool {
	return FastCheckMP3(src, src.Tell())
}

func (mp3Plugin) Load(src *BinarySource) (*Module, error) {
	start := src.Tell()
	data, err := src.Slice(start, src.Remaining())
	if err != nil {
		return nil, err
	}
	r, err := newMP3Renderer(data)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	if r.total <= 0 {
		return nil, errors.New("mp3: unknown length")
	}
	duration := time.Duration(r.total) * time.Second / time.Duration(r.rate)
	if duration < mp3MinDuration {
		return nil, fmt.Errorf("mp3: too short (%v)", duration)
	}
	frameDur := time.Duration(r.frameSamples) * time.Second / time.Duration(r.rate)
	props := NewProperties()
	props.Set(PropProgram, "MPEG layer III")
	props.SetInt("SampleRate", r.rate)
	props.Set(PropDuration, formatDuration(duration))
	info := Information{
		Channels:      2,
		Positions:     int(r.total / int64(r.frameSamples)),
		Frames:        int(duration / frameDur),
		FrameDuration: frameDur,
	}
	container := newParsedContainer(src, start)
	factory := func(RenderConfig) (Renderer, error) {
		return newMP3Renderer(data)
	}
	return newModule(props, info, container, factory, func() { data = nil }), nil
}
