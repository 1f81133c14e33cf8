// convert_batch.go - Parallel module to WAV conversion.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// maxConvertDuration stops a conversion whose loop policy never ends.
const maxConvertDuration = time.Hour

type convertResult struct {
	Source string
	Output string
	Frames int64
	Err    error
}

type converter struct {
	cfg    *AppConfig
	loader *ModuleLoader
	tmpl   *filenameTemplate
	policy LoopPolicy
	hint   string
}

func newConverter(cfg *AppConfig, loader *ModuleLoader, hint string) (*converter, error) {
	tmpl, err := parseFilenameTemplate(cfg.Template)
	if err != nil {
		return nil, err
	}
	policy, err := cfg.LoopPolicy()
	if err != nil {
		return nil, err
	}
	if cfg.Loop == "forever" {
		logger.Warn("loop forever is not usable for conversion, playing once")
		policy = LoopNever
	}
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("convert: %w", err)
	}
	return &converter{cfg: cfg, loader: loader, tmpl: tmpl, policy: policy, hint: hint}, nil
}

// ConvertAll converts files with at most cfg.Jobs running at once. A failed
// file does not cancel the others; every result is returned in input order.
func (c *converter) ConvertAll(ctx context.Context, files []string) []convertResult {
	results := make([]convertResult, len(files))
	var used sync.Map
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = convertResult{Source: path, Err: err}
				return nil
			}
			results[i] = c.convertOne(gctx, path, i+1, &used)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (c *converter) convertOne(ctx context.Context, path string, index int, used *sync.Map) convertResult {
	res := convertResult{Source: path}
	m, err := c.loader.LoadFile(path, c.hint)
	if err != nil {
		res.Err = err
		return res
	}
	defer m.Close()

	name, err := c.tmpl.Execute(newFilenameFields(path, index, m.Properties()))
	if err != nil {
		res.Err = err
		return res
	}
	res.Output = claimOutputName(used, filepath.Join(c.cfg.OutputDir, name), path, index)

	r, err := m.NewRenderer(c.cfg.RenderConfig())
	if err != nil {
		res.Err = err
		return res
	}
	pipeline, err := NewPipeline(r, c.cfg.PipelineConfig(m.Information()))
	if err != nil {
		res.Err = err
		return res
	}
	defer pipeline.Close()
	backend := newWAVBackend(res.Output)
	res.Frames, res.Err = renderToBackend(ctx, pipeline, backend, c.cfg.SampleRate, c.policy, maxConvertDuration)
	return res
}

// claimOutputName reserves out for source. A taken name gets "_index"
// appended, then "_index_2", "_index_3" and so on until it is free.
func claimOutputName(used *sync.Map, out, source string, index int) string {
	if _, dup := used.LoadOrStore(out, source); !dup {
		return out
	}
	ext := filepath.Ext(out)
	base := fmt.Sprintf("%s_%d", out[:len(out)-len(ext)], index)
	candidate := base + ext
	for n := 2; ; n++ {
		if _, dup := used.LoadOrStore(candidate, source); !dup {
			return candidate
		}
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
}

// renderToBackend drains a renderer into a backend without pacing.
func renderToBackend(ctx context.Context, r Renderer, backend SoundBackend, rate int, policy LoopPolicy, limit time.Duration) (int64, error) {
	if err := backend.Startup(rate); err != nil {
		return 0, err
	}
	var frames int64
	maxFrames := int64(limit/time.Second) * int64(rate)
	for frames < maxFrames {
		if err := ctx.Err(); err != nil {
			_ = backend.Shutdown()
			return frames, err
		}
		backend.FrameStart(r.State())
		chunk := r.Render(policy)
		if chunk.Empty() {
			break
		}
		if err := backend.FrameFinish(chunk); err != nil {
			_ = backend.Shutdown()
			return frames, err
		}
		frames += int64(chunk.Frames())
	}
	return frames, backend.Shutdown()
}
