// playback_session_test.go - Tests for the interactive render loop.

package main

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func startedNullBackend(t *testing.T) *nullBackend {
	t.Helper()
	b := &nullBackend{}
	if err := b.Startup(1000); err != nil {
		t.Fatal(err)
	}
	return b
}

func queuedCommands(cmds ...sessionCommand) <-chan sessionCommand {
	ch := make(chan sessionCommand, len(cmds))
	for _, c := range cmds {
		ch <- c
	}
	return ch
}

func TestPlaybackSession_RunsToEnd(t *testing.T) {
	b := startedNullBackend(t)
	s := NewPlaybackSession(tenSeconds(1), b, LoopNever, nil)
	end, err := s.Run(context.Background())
	if err != nil || end != sessionFinished {
		t.Fatalf("Run = %v, %v", end, err)
	}
	if b.frames != 10000 || s.chunks != 100 {
		t.Fatalf("frames = %d, chunks = %d", b.frames, s.chunks)
	}
}

func TestPlaybackSession_Commands(t *testing.T) {
	tests := []struct {
		name string
		cmds []sessionCommand
		want sessionEnd
	}{
		{"quit", []sessionCommand{cmdQuit}, sessionQuit},
		{"next", []sessionCommand{cmdNext}, sessionSkipped},
		{"next while paused", []sessionCommand{cmdTogglePause, cmdNext}, sessionSkipped},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := startedNullBackend(t)
			s := NewPlaybackSession(tenSeconds(1), b, LoopNever, queuedCommands(tt.cmds...))
			end, err := s.Run(context.Background())
			if err != nil || end != tt.want {
				t.Fatalf("Run = %v, %v, want %v", end, err, tt.want)
			}
			if b.frames != 0 {
				t.Fatalf("rendered %d frames before the command", b.frames)
			}
		})
	}
}

func TestPlaybackSession_PauseResume(t *testing.T) {
	b := startedNullBackend(t)
	s := NewPlaybackSession(tenSeconds(1), b, LoopNever, queuedCommands(cmdTogglePause, cmdTogglePause))
	end, err := s.Run(context.Background())
	if err != nil || end != sessionFinished {
		t.Fatalf("Run = %v, %v", end, err)
	}
	if b.paused || s.paused {
		t.Fatal("session still paused after second toggle")
	}
	if b.frames != 10000 {
		t.Fatalf("frames = %d after resume", b.frames)
	}
}

func TestPlaybackSession_Seek(t *testing.T) {
	r := tenSeconds(1)
	s := NewPlaybackSession(r, startedNullBackend(t), LoopNever, queuedCommands(cmdSeekForward, cmdSeekForward, cmdSeekBack, cmdQuit))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.State().Position; got != seekStep {
		t.Fatalf("position = %v, want %v", got, seekStep)
	}

	r = tenSeconds(1)
	s = NewPlaybackSession(r, startedNullBackend(t), LoopNever, queuedCommands(cmdSeekBack, cmdQuit))
	if _, err := s.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := r.State().Position; got != 0 {
		t.Fatalf("seek back from start = %v", got)
	}
}

func TestPlaybackSession_Volume(t *testing.T) {
	b := startedNullBackend(t)
	cmds := queuedCommands(cmdVolumeDown, cmdVolumeDown, cmdVolumeDown, cmdVolumeUp, cmdQuit)
	if _, err := NewPlaybackSession(tenSeconds(1), b, LoopNever, cmds).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if math.Abs(b.volume-0.8) > 1e-9 {
		t.Fatalf("volume = %v, want 0.8", b.volume)
	}

	b = startedNullBackend(t)
	if _, err := NewPlaybackSession(tenSeconds(1), b, LoopNever, queuedCommands(cmdVolumeUp, cmdQuit)).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if b.volume != 1 {
		t.Fatalf("volume = %v, want clamp at 1", b.volume)
	}
}

func TestPlaybackSession_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	end, err := NewPlaybackSession(tenSeconds(1), startedNullBackend(t), LoopNever, nil).Run(ctx)
	if end != sessionQuit || !errors.Is(err, context.Canceled) {
		t.Fatalf("Run = %v, %v", end, err)
	}

	ctx, cancel = context.WithCancel(context.Background())
	b := startedNullBackend(t)
	s := NewPlaybackSession(tenSeconds(1), b, LoopForever, queuedCommands(cmdTogglePause))
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if end, err := s.Run(ctx); end != sessionQuit || !errors.Is(err, context.Canceled) {
		t.Fatalf("paused Run = %v, %v", end, err)
	}
}

func TestPlaybackSession_BackendError(t *testing.T) {
	_, err := NewPlaybackSession(tenSeconds(1), &nullBackend{}, LoopNever, nil).Run(context.Background())
	if !errors.Is(err, errBackendNotStarted) {
		t.Fatalf("Run error = %v", err)
	}
}
