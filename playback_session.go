// playback_session.go - Render loop driving a pipeline into a sound backend.

package main

import (
	"context"
	"fmt"
	"time"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.1
)

type sessionCommand int

const (
	cmdNone sessionCommand = iota
	cmdTogglePause
	cmdSeekForward
	cmdSeekBack
	cmdNext
	cmdQuit
	cmdVolumeUp
	cmdVolumeDown
)

// sessionEnd reports why a session returned.
type sessionEnd int

const (
	sessionFinished sessionEnd = iota
	sessionSkipped
	sessionQuit
)

// PlaybackSession plays one renderer to completion. Commands arrive on a
// channel so the terminal reader never touches the renderer directly.
type PlaybackSession struct {
	renderer Renderer
	backend  SoundBackend
	policy   LoopPolicy
	commands <-chan sessionCommand
	paused   bool
	chunks   int
}

func NewPlaybackSession(r Renderer, backend SoundBackend, policy LoopPolicy, commands <-chan sessionCommand) *PlaybackSession {
	return &PlaybackSession{renderer: r, backend: backend, policy: policy, commands: commands}
}

// Run renders until the renderer ends, a command stops it or ctx is done.
// The backend must already be started.
func (s *PlaybackSession) Run(ctx context.Context) (sessionEnd, error) {
	for {
		if s.paused {
			select {
			case <-ctx.Done():
				return sessionQuit, ctx.Err()
			case cmd := <-s.commands:
				if end, stop, err := s.handle(cmd); stop || err != nil {
					return end, err
				}
			}
			continue
		}
		select {
		case <-ctx.Done():
			return sessionQuit, ctx.Err()
		case cmd := <-s.commands:
			if end, stop, err := s.handle(cmd); stop || err != nil {
				return end, err
			}
			continue
		default:
		}

		state := s.renderer.State()
		s.backend.FrameStart(state)
		chunk := s.renderer.Render(s.policy)
		if chunk.Empty() {
			return sessionFinished, nil
		}
		if err := s.backend.FrameFinish(chunk); err != nil {
			return sessionFinished, fmt.Errorf("playback: %w", err)
		}
		s.chunks++
		runtimeStatus.setState(s.renderer.State())
	}
}

func (s *PlaybackSession) handle(cmd sessionCommand) (sessionEnd, bool, error) {
	switch cmd {
	case cmdQuit:
		return sessionQuit, true, nil
	case cmdNext:
		return sessionSkipped, true, nil
	case cmdTogglePause:
		var err error
		if s.paused {
			err = s.backend.Resume()
		} else {
			err = s.backend.Pause()
		}
		if err != nil {
			return sessionFinished, true, fmt.Errorf("playback: %w", err)
		}
		s.paused = !s.paused
		runtimeStatus.setPaused(s.paused)
	case cmdSeekForward, cmdSeekBack:
		pos := s.renderer.State().Position
		if cmd == cmdSeekForward {
			pos += seekStep
		} else {
			pos = max(0, pos-seekStep)
		}
		s.renderer.SetPosition(pos)
		runtimeStatus.setState(s.renderer.State())
	case cmdVolumeUp, cmdVolumeDown:
		vc := s.backend.VolumeControl()
		if vc == nil {
			return sessionFinished, false, nil
		}
		v := vc.Volume() + volumeStep
		if cmd == cmdVolumeDown {
			v = vc.Volume() - volumeStep
		}
		v = min(max(v, 0), 1)
		if err := vc.SetVolume(v); err != nil {
			logger.Warn("volume change failed", "err", err)
			return sessionFinished, false, nil
		}
		runtimeStatus.setVolume(v)
	}
	return sessionFinished, false, nil
}
