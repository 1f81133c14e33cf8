// render_pipeline.go - Output pipeline: resampling, fade envelope, preamp gain and silence cut.

package main

import (
	"math"
	"time"

	"github.com/viterin/vek/vek32"
)

// FadeInfo describes the fade windows of one playback. It only applies when
// both windows fit into the track duration.
type FadeInfo struct {
	FadeIn   time.Duration
	FadeOut  time.Duration
	Duration time.Duration
}

func (f FadeInfo) Valid() bool {
	return (f.FadeIn > 0 || f.FadeOut > 0) && f.FadeIn+f.FadeOut < f.Duration
}

// Gain returns the linear gain at pos. lastPass reports that the loop
// policy will not continue past the end of the current pass.
func (f FadeInfo) Gain(preamp float64, pos time.Duration, loopCount int, lastPass bool) float64 {
	if !f.Valid() {
		return preamp
	}
	if f.FadeIn > 0 && pos < f.FadeIn && loopCount == 0 {
		return preamp * float64(pos) / float64(f.FadeIn)
	}
	if f.FadeOut > 0 && lastPass && f.Duration < f.FadeOut+pos {
		return preamp * math.Max(0, float64(f.Duration-pos)/float64(f.FadeOut))
	}
	return preamp
}

type PipelineConfig struct {
	SampleRate int
	Preamp     float64
	Fade       FadeInfo
	// Silence ends playback after this much unchanged output; 0 disables it.
	Silence time.Duration
	// Resampler names the conversion type, see resamplerTypes.
	Resampler string
}

// silenceDetector counts trailing stereo frames equal to the last one seen.
type silenceDetector struct {
	limit   int
	counter int
	last    [2]int16
	primed  bool
}

func newSilenceDetector(rate int, silence time.Duration) silenceDetector {
	return silenceDetector{limit: int(int64(rate) * int64(silence) / int64(time.Second))}
}

func (d *silenceDetector) Reset() {
	d.counter = 0
	d.primed = false
}

// Feed consumes a chunk and reports whether the silence limit is reached.
// A whole chunk matching the previous tail extends the run; otherwise the
// run restarts from the chunk's own trailing frames.
func (d *silenceDetector) Feed(samples []int16) bool {
	if d.limit <= 0 || len(samples) < 2 {
		return false
	}
	frames := len(samples) / 2
	tail := [2]int16{samples[2*frames-2], samples[2*frames-1]}
	run := 0
	for i := frames - 1; i >= 0; i-- {
		if samples[2*i] != tail[0] || samples[2*i+1] != tail[1] {
			break
		}
		run++
	}
	if run == frames && d.primed && tail == d.last {
		d.counter += frames
	} else {
		d.counter = run
	}
	d.last = tail
	d.primed = true
	return d.counter >= d.limit
}

// Pipeline wraps a raw Renderer. It implements Renderer itself.
type Pipeline struct {
	src        Renderer
	cfg        PipelineConfig
	kind       int
	resamplers map[int]*rateConverter
	silence    silenceDetector
	gainBuf    []float32
}

// NewPipeline fails only on an unknown resampler type.
func NewPipeline(src Renderer, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = defaultSampleRate
	}
	if cfg.Preamp <= 0 {
		cfg.Preamp = 1
	}
	kind, err := resamplerType(cfg.Resampler)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		src:        src,
		cfg:        cfg,
		kind:       kind,
		resamplers: make(map[int]*rateConverter),
		silence:    newSilenceDetector(cfg.SampleRate, cfg.Silence),
	}, nil
}

func (p *Pipeline) resampler(rate int) (*rateConverter, error) {
	if r, ok := p.resamplers[rate]; ok {
		return r, nil
	}
	r, err := newRateConverter(p.kind, rate, p.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	p.resamplers[rate] = r
	logger.Debug("resampler created", "from", rate, "to", p.cfg.SampleRate, "type", p.cfg.Resampler)
	return r, nil
}

func (p *Pipeline) Render(policy LoopPolicy) Chunk {
	if policy == nil {
		policy = LoopNever
	}
	for {
		chunk := p.src.Render(policy)
		if chunk.Empty() {
			return Chunk{}
		}
		samples := chunk.Samples
		if chunk.SampleRate != p.cfg.SampleRate {
			r, err := p.resampler(chunk.SampleRate)
			if err == nil {
				samples, err = r.Process(samples)
			}
			if err != nil {
				logger.Error("resampling failed, stopping", "from", chunk.SampleRate, "err", err)
				return Chunk{}
			}
			if len(samples) == 0 {
				// converter is still filling, pull more input
				continue
			}
		}
		state := p.src.State()
		if p.silence.Feed(samples) {
			logger.Debug("silence limit reached", "position", state.Position)
			return Chunk{}
		}
		// gain follows the position after rendering so a fade-in does not
		// start with a silent chunk
		lastPass := !policy(state.LoopCount + 1)
		if gain := p.cfg.Fade.Gain(p.cfg.Preamp, state.Position, state.LoopCount, lastPass); gain != 1 {
			p.applyGain(samples, float32(gain))
		}
		return Chunk{SampleRate: p.cfg.SampleRate, Samples: samples}
	}
}

func (p *Pipeline) applyGain(samples []int16, gain float32) {
	if cap(p.gainBuf) < len(samples) {
		p.gainBuf = make([]float32, len(samples))
	}
	buf := p.gainBuf[:len(samples)]
	for i, s := range samples {
		buf[i] = float32(s)
	}
	vek32.MulNumber_Inplace(buf, gain)
	for i, v := range buf {
		samples[i] = int16(max(math.MinInt16, min(math.MaxInt16, v)))
	}
}

// Reset restarts the source and clears silence and resampler state.
func (p *Pipeline) Reset() {
	p.src.Reset()
	p.resetStages()
}

func (p *Pipeline) SetPosition(t time.Duration) {
	p.src.SetPosition(t)
	p.resetStages()
}

func (p *Pipeline) resetStages() {
	p.silence.Reset()
	for rate, r := range p.resamplers {
		if err := r.Reset(); err != nil {
			logger.Warn("resampler reset failed", "from", rate, "err", err)
		}
	}
}

// Close releases the resampler state. The source is not closed.
func (p *Pipeline) Close() error {
	var first error
	for rate, r := range p.resamplers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
		delete(p.resamplers, rate)
	}
	return first
}

func (p *Pipeline) State() PlaybackState { return p.src.State() }
