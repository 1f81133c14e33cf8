// main.go - Command-line entry point for IntuitionTune

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionEngine
License: GPLv3 or later
*/

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"
)

func boilerPlate() {
	fmt.Println("\n\033[38;2;255;20;147m ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████\033[0m\n\033[38;2;255;50;147m▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀\033[0m\n\033[38;2;255;80;147m▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███\033[0m\n\033[38;2;255;110;147m░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄\033[0m\n\033[38;2;255;140;147m░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒\033[0m\n\033[38;2;255;170;147m░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░\033[0m\n\033[38;2;255;200;147m ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░\033[0m\n\033[38;2;255;230;147m ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░\033[0m\n\033[38;2;255;255;147m ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░\033[0m")
	fmt.Println("\nIntuitionTune: chiptune module player and converter.")
	fmt.Println("(c) 2024 - 2026 Zayn Otley")
	fmt.Println("https://github.com/IntuitionAmiga/IntuitionTune")
	fmt.Println("License: GPLv3 or later")
}

func main() {
	os.Exit(run(os.Args[1:]))
}

// globalOptions are accepted before the subcommand and override config.yaml.
type globalOptions struct {
	configPath string
	features   bool
	quiet      bool
	format     string
	rate       int
	loop       string
	layout     string
	fadeIn     time.Duration
	fadeOut    time.Duration
	silence    time.Duration
}

func usage() {
	fmt.Println("Usage: ./intuition_tune [global flags] <command> [flags] files...")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  info [-copy] files...                      show module properties")
	fmt.Println("  detect files...                            show format and container chain")
	fmt.Println("  play [-backend oto|ebiten|null] [-loop] files...")
	fmt.Println("  convert [-o dir] [-template tpl] [-jobs n] files...")
	fmt.Println("  scope [-o file.png] file                   render a peak meter image")
	fmt.Println()
	fmt.Println("Play keys: space pause, left/right seek 5s, n next, q quit, +/- volume")
}

func parseGlobalFlags(args []string) (*globalOptions, []string, error) {
	opts := &globalOptions{}
	flagSet := flag.NewFlagSet("intuition_tune", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&opts.configPath, "config", "", "configuration file (default "+defaultConfigPath+")")
	flagSet.BoolVar(&opts.features, "features", false, "print compiled features and exit")
	flagSet.BoolVar(&opts.quiet, "q", false, "do not print the banner")
	flagSet.StringVar(&opts.format, "format", "", "force a format ID instead of detection")
	flagSet.IntVar(&opts.rate, "rate", 0, "output sample rate")
	flagSet.StringVar(&opts.loop, "loop-mode", "", "never, forever or times")
	flagSet.StringVar(&opts.layout, "layout", "", "AY channel layout: abc, acb or mono")
	flagSet.DurationVar(&opts.fadeIn, "fade-in", 0, "fade-in length")
	flagSet.DurationVar(&opts.fadeOut, "fade-out", 0, "fade-out length")
	flagSet.DurationVar(&opts.silence, "silence", 0, "stop after this much silence")
	flagSet.Usage = func() {
		usage()
		fmt.Println()
		fmt.Println("Global flags:")
		flagSet.SetOutput(os.Stdout)
		flagSet.PrintDefaults()
	}
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flagSet.Usage()
		}
		return nil, nil, err
	}
	return opts, flagSet.Args(), nil
}

// applyOverrides copies explicitly set global flags over the config.
func (o *globalOptions) applyOverrides(cfg *AppConfig) error {
	if o.rate > 0 {
		cfg.SampleRate = o.rate
	}
	if o.loop != "" {
		cfg.Loop = o.loop
	}
	if o.layout != "" {
		cfg.Layout = o.layout
	}
	if o.fadeIn > 0 {
		cfg.FadeIn = o.fadeIn
	}
	if o.fadeOut > 0 {
		cfg.FadeOut = o.fadeOut
	}
	if o.silence > 0 {
		cfg.Silence = o.silence
	}
	return cfg.normalize()
}

func run(args []string) int {
	opts, rest, err := parseGlobalFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Printf("Error: %v\n", err)
		return 2
	}
	if opts.features {
		printFeatures()
		return 0
	}
	if len(rest) == 0 {
		usage()
		return 2
	}

	cfg, err := loadAppConfig(opts.configPath)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if err := opts.applyOverrides(cfg); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	cfg.apply()
	loader := newModuleLoaderFromConfig(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command, cmdArgs := rest[0], rest[1:]
	switch command {
	case "info":
		return runInfo(cfg, loader, opts.format, cmdArgs)
	case "detect":
		return runDetect(loader, cmdArgs)
	case "play":
		if !opts.quiet {
			boilerPlate()
		}
		return runPlay(ctx, cfg, loader, opts.format, cmdArgs)
	case "convert":
		return runConvert(ctx, cfg, loader, opts.format, cmdArgs)
	case "scope":
		return runScope(ctx, cfg, loader, opts.format, cmdArgs)
	default:
		fmt.Printf("Error: unknown command %q\n", command)
		usage()
		return 2
	}
}

func newCommandFlags(name string) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	return flagSet
}

func parseCommandFlags(flagSet *flag.FlagSet, args []string, minFiles int) ([]string, bool) {
	if err := flagSet.Parse(args); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Printf("Error: %v\n", err)
		}
		flagSet.SetOutput(os.Stdout)
		flagSet.PrintDefaults()
		return nil, false
	}
	if flagSet.NArg() < minFiles {
		fmt.Printf("Error: %s needs at least %d file(s)\n", flagSet.Name(), minFiles)
		return nil, false
	}
	return flagSet.Args(), true
}

func runInfo(cfg *AppConfig, loader *ModuleLoader, hint string, args []string) int {
	flagSet := newCommandFlags("info")
	copyOut := flagSet.Bool("copy", false, "copy the summary to the clipboard")
	files, ok := parseCommandFlags(flagSet, args, 1)
	if !ok {
		return 2
	}
	var all strings.Builder
	status := 0
	for _, path := range files {
		m, err := loader.LoadFile(path, hint)
		if err != nil {
			fmt.Printf("%s: %s\n", path, describeLoadError(err))
			status = 1
			continue
		}
		summary := moduleSummary(path, m)
		m.Close()
		fmt.Print(summary)
		all.WriteString(summary)
	}
	if *copyOut && all.Len() > 0 {
		if err := copyToClipboard(all.String()); err != nil {
			fmt.Printf("Error: %v\n", err)
			return 1
		}
		fmt.Println("Summary copied to clipboard.")
	}
	return status
}

func runDetect(loader *ModuleLoader, args []string) int {
	files, ok := parseCommandFlags(newCommandFlags("detect"), args, 1)
	if !ok {
		return 2
	}
	status := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("%s: %v\n", path, err)
			status = 1
			continue
		}
		id, chain, err := loader.Detect(data)
		if chain == "" {
			chain = "-"
		}
		if err != nil {
			fmt.Printf("%s: %s (containers %s)\n", path, describeLoadError(err), chain)
			status = 1
			continue
		}
		fmt.Printf("%s: %s (containers %s)\n", path, id, chain)
	}
	return status
}

func runPlay(ctx context.Context, cfg *AppConfig, loader *ModuleLoader, hint string, args []string) int {
	flagSet := newCommandFlags("play")
	backendName := flagSet.String("backend", cfg.Backend, "audio backend: oto, ebiten or null")
	loopForever := flagSet.Bool("loop", false, "loop every module until skipped")
	files, ok := parseCommandFlags(flagSet, args, 1)
	if !ok {
		return 2
	}
	policy, err := cfg.LoopPolicy()
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if *loopForever {
		policy = LoopForever
	}

	backend, err := newSoundBackend(*backendName)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	if err := backend.Startup(cfg.SampleRate); err != nil {
		fmt.Printf("Failed to initialize sound: %v\n", err)
		return 1
	}
	defer func() {
		if err := backend.Shutdown(); err != nil {
			logger.Warn("backend shutdown", "err", err)
		}
	}()
	if vc := backend.VolumeControl(); vc != nil {
		runtimeStatus.setVolume(vc.Volume())
	}

	host := NewTerminalHost()
	host.Start()
	defer host.Stop()

	statusDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-statusDone:
				return
			case <-ticker.C:
				host.PrintStatus()
			}
		}
	}()
	defer close(statusDone)

	status := 0
	for i, path := range files {
		m, err := loader.LoadFile(path, hint)
		if err != nil {
			fmt.Printf("\r\n%s: %s\r\n", path, describeLoadError(err))
			status = 1
			continue
		}
		r, err := m.NewRenderer(cfg.RenderConfig())
		if err != nil {
			m.Close()
			fmt.Printf("\r\n%s: %v\r\n", path, err)
			status = 1
			continue
		}
		info := m.Information()
		duration := info.Duration()
		if duration <= 0 {
			duration = cfg.DefaultDuration
		}
		runtimeStatus.setTrack(filepath.Base(path), i+1, len(files), m.Properties(), duration)
		pipeline, err := NewPipeline(r, cfg.PipelineConfig(info))
		if err != nil {
			m.Close()
			fmt.Printf("\r\n%s: %v\r\n", path, err)
			status = 1
			continue
		}
		session := NewPlaybackSession(pipeline, backend, policy, host.Commands())
		end, err := session.Run(ctx)
		pipeline.Close()
		m.Close()
		host.PrintStatus()
		fmt.Print("\r\n")
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Printf("%s: %v\r\n", path, err)
			status = 1
		}
		if end == sessionQuit {
			break
		}
	}
	return status
}

func runConvert(ctx context.Context, cfg *AppConfig, loader *ModuleLoader, hint string, args []string) int {
	flagSet := newCommandFlags("convert")
	flagSet.StringVar(&cfg.OutputDir, "o", cfg.OutputDir, "output directory")
	flagSet.StringVar(&cfg.Template, "template", cfg.Template, "output filename template")
	flagSet.IntVar(&cfg.Jobs, "jobs", cfg.Jobs, "parallel conversions")
	files, ok := parseCommandFlags(flagSet, args, 1)
	if !ok {
		return 2
	}
	if err := cfg.normalize(); err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	conv, err := newConverter(cfg, loader, hint)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	status := 0
	for _, res := range conv.ConvertAll(ctx, files) {
		if res.Err != nil {
			fmt.Printf("%s: %s\n", res.Source, describeLoadError(res.Err))
			status = 1
			continue
		}
		seconds := float64(res.Frames) / float64(cfg.SampleRate)
		fmt.Printf("%s -> %s (%.1fs)\n", res.Source, res.Output, seconds)
	}
	return status
}

func runScope(ctx context.Context, cfg *AppConfig, loader *ModuleLoader, hint string, args []string) int {
	flagSet := newCommandFlags("scope")
	out := flagSet.String("o", "", "output PNG (default <file>.png)")
	files, ok := parseCommandFlags(flagSet, args, 1)
	if !ok {
		return 2
	}
	path := files[0]
	if *out == "" {
		*out = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".png"
	}
	m, err := loader.LoadFile(path, hint)
	if err != nil {
		fmt.Printf("%s: %s\n", path, describeLoadError(err))
		return 1
	}
	defer m.Close()
	r, err := m.NewRenderer(cfg.RenderConfig())
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	pipeline, err := NewPipeline(r, cfg.PipelineConfig(m.Information()))
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	defer pipeline.Close()
	meter, err := collectPeaks(ctx, pipeline, LoopNever, scopeMaxDuration)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	f, err := os.Create(*out)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return 1
	}
	props := m.Properties()
	caption := fmt.Sprintf("%s  %s  %s", props.String(PropType), props.String(PropTitle), formatDuration(m.Information().Duration()))
	werr := writeScopePNG(f, meter, caption)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		fmt.Printf("Error: %v\n", werr)
		return 1
	}
	fmt.Printf("%s -> %s (%d frames)\n", path, *out, meter.Len())
	return 0
}

// describeLoadError prefixes load failures with their kind.
func describeLoadError(err error) string {
	var lf *LoadFailure
	if errors.As(err, &lf) {
		return fmt.Sprintf("%s error: %v", failureKindName(lf.Kind), lf.Err)
	}
	return err.Error()
}
