// scope_image.go - Per-frame peak meter rendered to a PNG with a text caption.

package main

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"time"

	"github.com/viterin/vek/vek32"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	scopeMaxColumns   = 1200
	scopeMeterHeight  = 200
	scopeCaptionSpace = 20
	scopeMaxDuration  = 20 * time.Minute
)

var (
	scopeBackground = color.RGBA{0x10, 0x10, 0x18, 0xff}
	scopeLeft       = color.RGBA{0xff, 0x14, 0x93, 0xff}
	scopeRight      = color.RGBA{0xff, 0xc8, 0x93, 0xff}
	scopeCaption    = color.RGBA{0xe0, 0xe0, 0xe0, 0xff}
)

// peakMeter collects the absolute peak of each channel per rendered chunk.
type peakMeter struct {
	left, right []float32
	tmp         []float32
}

func (p *peakMeter) Add(chunk Chunk) {
	n := chunk.Frames()
	if n == 0 {
		return
	}
	if cap(p.tmp) < n {
		p.tmp = make([]float32, n)
	}
	buf := p.tmp[:n]
	for ch, dst := range []*[]float32{&p.left, &p.right} {
		for i := 0; i < n; i++ {
			buf[i] = float32(chunk.Samples[2*i+ch])
		}
		vek32.Abs_Inplace(buf)
		*dst = append(*dst, vek32.Max(buf)/32768)
	}
}

func (p *peakMeter) Len() int { return len(p.left) }

// columns folds the peaks into at most width columns, keeping the maximum
// of each group.
func (p *peakMeter) columns(width int) (left, right []float32) {
	n := p.Len()
	if n <= width {
		return p.left, p.right
	}
	left = make([]float32, width)
	right = make([]float32, width)
	for x := 0; x < width; x++ {
		lo, hi := x*n/width, (x+1)*n/width
		left[x] = vek32.Max(p.left[lo:hi])
		right[x] = vek32.Max(p.right[lo:hi])
	}
	return left, right
}

// collectPeaks renders the module through r until it ends or limit passes.
func collectPeaks(ctx context.Context, r Renderer, policy LoopPolicy, limit time.Duration) (*peakMeter, error) {
	meter := &peakMeter{}
	var rendered time.Duration
	for rendered < limit {
		if err := ctx.Err(); err != nil {
			return meter, err
		}
		chunk := r.Render(policy)
		if chunk.Empty() {
			break
		}
		meter.Add(chunk)
		rendered += chunk.Duration()
	}
	if meter.Len() == 0 {
		return nil, fmt.Errorf("scope: renderer produced no audio")
	}
	return meter, nil
}

// drawScope paints left peaks upward and right peaks downward from the
// centre line, with the caption underneath.
func drawScope(meter *peakMeter, caption string) *image.RGBA {
	left, right := meter.columns(scopeMaxColumns)
	width := len(left)
	img := image.NewRGBA(image.Rect(0, 0, width, scopeMeterHeight+scopeCaptionSpace))
	draw.Draw(img, img.Bounds(), &image.Uniform{scopeBackground}, image.Point{}, draw.Src)

	mid := scopeMeterHeight / 2
	for x := 0; x < width; x++ {
		up := int(left[x] * float32(mid))
		for y := mid - up; y < mid; y++ {
			img.SetRGBA(x, y, scopeLeft)
		}
		down := int(right[x] * float32(mid))
		for y := mid; y < mid+down; y++ {
			img.SetRGBA(x, y, scopeRight)
		}
	}

	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(scopeCaption),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(4, scopeMeterHeight+scopeCaptionSpace-5),
	}
	d.DrawString(caption)
	return img
}

func writeScopePNG(w io.Writer, meter *peakMeter, caption string) error {
	if err := png.Encode(w, drawScope(meter, caption)); err != nil {
		return fmt.Errorf("scope: %w", err)
	}
	return nil
}
