package main

import (
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseGlobalFlags(t *testing.T) {
	opts, rest, err := parseGlobalFlags([]string{"-rate", "22050", "-loop-mode", "times", "-fade-out", "2s", "info", "-copy", "a.stc"})
	if err != nil {
		t.Fatalf("parseGlobalFlags: %v", err)
	}
	if opts.rate != 22050 || opts.loop != "times" || opts.fadeOut != 2*time.Second {
		t.Fatalf("opts = %+v", opts)
	}
	if len(rest) != 3 || rest[0] != "info" || rest[1] != "-copy" {
		t.Fatalf("rest = %v", rest)
	}
	if _, _, err := parseGlobalFlags([]string{"-bogus"}); err == nil {
		t.Fatal("unknown flag accepted")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := defaultAppConfig()
	opts := &globalOptions{rate: 48000, layout: "mono", silence: time.Second}
	if err := opts.applyOverrides(cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.SampleRate != 48000 || cfg.Layout != "mono" || cfg.Silence != time.Second || cfg.Loop != "never" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if err := (&globalOptions{loop: "twice"}).applyOverrides(defaultAppConfig()); err == nil {
		t.Fatal("bad loop mode accepted")
	}
}

func TestDescribeLoadError(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{loadError("PSG", errors.New("truncated")), "load error: truncated"},
		{depackError("gzip", errors.New("bad crc")), "depack error: bad crc"},
		{errors.New("plain"), "plain"},
	}
	for _, tt := range tests {
		if got := describeLoadError(tt.err); got != tt.want {
			t.Errorf("describeLoadError(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

// runFixture writes an empty config next to the given files so run never
// reads the user's configuration.
func runFixture(t *testing.T) (dir, configPath string) {
	t.Helper()
	saved := moduleCodepage
	t.Cleanup(func() { moduleCodepage = saved })
	dir = t.TempDir()
	configPath = filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("backend: 'null'\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, configPath
}

func TestRunExitCodes(t *testing.T) {
	dir, cfgPath := runFixture(t)
	stc := filepath.Join(dir, "tune.stc")
	junk := filepath.Join(dir, "junk.bin")
	if err := os.WriteFile(stc, buildSTCData(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(junk, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
		want int
	}{
		{"no command", []string{"-config", cfgPath}, 2},
		{"unknown command", []string{"-config", cfgPath, "dance"}, 2},
		{"bad flag", []string{"-nope"}, 2},
		{"help", []string{"-h"}, 0},
		{"features", []string{"-features"}, 0},
		{"missing config", []string{"-config", filepath.Join(dir, "none.yaml"), "info", stc}, 1},
		{"bad override", []string{"-config", cfgPath, "-rate", "1", "info", stc}, 1},
		{"info", []string{"-config", cfgPath, "info", stc}, 0},
		{"info needs a file", []string{"-config", cfgPath, "info"}, 2},
		{"info junk", []string{"-config", cfgPath, "info", stc, junk}, 1},
		{"detect", []string{"-config", cfgPath, "detect", stc}, 0},
		{"detect junk", []string{"-config", cfgPath, "detect", junk}, 1},
		{"play null", []string{"-config", cfgPath, "-q", "play", stc}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := run(tt.args); got != tt.want {
				t.Fatalf("run(%v) = %d, want %d", tt.args, got, tt.want)
			}
		})
	}
}

func TestRunConvertAndScope(t *testing.T) {
	dir, cfgPath := runFixture(t)
	stc := filepath.Join(dir, "tune.stc")
	if err := os.WriteFile(stc, buildSTCData(), 0o644); err != nil {
		t.Fatal(err)
	}
	outDir := filepath.Join(dir, "wav")
	if got := run([]string{"-config", cfgPath, "convert", "-o", outDir, "-template", "{{ .Basename }}", stc}); got != 0 {
		t.Fatalf("convert exit = %d", got)
	}
	if _, err := os.Stat(filepath.Join(outDir, "tune.wav")); err != nil {
		t.Fatal(err)
	}

	pngPath := filepath.Join(dir, "tune.png")
	if got := run([]string{"-config", cfgPath, "scope", "-o", pngPath, stc}); got != 0 {
		t.Fatalf("scope exit = %d", got)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 6 || b.Dy() != scopeMeterHeight+scopeCaptionSpace {
		t.Fatalf("scope image is %v", b)
	}
}
