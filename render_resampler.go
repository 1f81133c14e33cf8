// render_resampler.go - Streaming libsamplerate conversion for stereo int16 chunks.

package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/dh1tw/gosamplerate"
	"github.com/viterin/vek/vek32"
)

// resampleBufferLen is the converter's C side buffer in samples. Input is
// fed in blocks small enough that the converted block still fits.
const resampleBufferLen = 1 << 14

const defaultResampler = "sinc-fastest"

var resamplerTypes = map[string]int{
	"sinc-best":    gosamplerate.SRC_SINC_BEST_QUALITY,
	"sinc-medium":  gosamplerate.SRC_SINC_MEDIUM_QUALITY,
	"sinc-fastest": gosamplerate.SRC_SINC_FASTEST,
	"hold":         gosamplerate.SRC_ZERO_ORDER_HOLD,
	"linear":       gosamplerate.SRC_LINEAR,
}

func resamplerType(name string) (int, error) {
	if name == "" {
		name = defaultResampler
	}
	kind, ok := resamplerTypes[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("resampler: unknown type %q", name)
	}
	return kind, nil
}

// rateConverter converts one fixed source rate to the target rate. The
// libsamplerate state carries filter history over chunk boundaries.
type rateConverter struct {
	src   gosamplerate.Src
	ratio float64
	block int
	in    []float32
}

func newRateConverter(kind, from, to int) (*rateConverter, error) {
	ratio := float64(to) / float64(from)
	// libsamplerate's SRC_MAX_RATIO
	if ratio > 256 || ratio < 1.0/256 {
		return nil, fmt.Errorf("resampler: %d -> %d Hz out of range", from, to)
	}
	src, err := gosamplerate.New(kind, 2, resampleBufferLen)
	if err != nil {
		return nil, fmt.Errorf("resampler: %w", err)
	}
	block := int(float64(resampleBufferLen)/(ratio+1)) &^ 1
	return &rateConverter{src: src, ratio: ratio, block: max(block, 2)}, nil
}

// Process returns the converted samples produced so far. Early calls return
// less than len(in)*ratio while the filter fills up.
func (c *rateConverter) Process(in []int16) ([]int16, error) {
	var out []int16
	for len(in) > 0 {
		n := min(len(in), c.block)
		if cap(c.in) < n {
			c.in = make([]float32, n)
		}
		buf := c.in[:n]
		for i, s := range in[:n] {
			buf[i] = float32(s)
		}
		vek32.MulNumber_Inplace(buf, 1.0/32768)
		res, err := c.src.Process(buf, c.ratio, false)
		if err != nil {
			return out, fmt.Errorf("resampler: %w", err)
		}
		vek32.MulNumber_Inplace(res, 32768)
		for _, v := range res {
			out = append(out, int16(max(math.MinInt16, min(math.MaxInt16, math.Round(float64(v))))))
		}
		in = in[n:]
	}
	return out, nil
}

func (c *rateConverter) Reset() error {
	return c.src.Reset()
}

func (c *rateConverter) Close() error {
	return gosamplerate.Delete(c.src)
}
