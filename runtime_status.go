// runtime_status.go - Shared playback status read by the terminal status line.

package main

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

type runtimeStatusSnapshot struct {
	file   string
	index  int
	total  int
	format string
	title  string
	author string

	position  time.Duration
	duration  time.Duration
	loopCount int
	paused    bool
	volume    float64
}

type runtimeStatusStore struct {
	mu sync.RWMutex
	runtimeStatusSnapshot
}

func (s *runtimeStatusStore) setTrack(file string, index, total int, props *Properties, duration time.Duration) {
	s.mu.Lock()
	s.file = file
	s.index = index
	s.total = total
	s.format = props.String(PropType)
	s.title = props.String(PropTitle)
	s.author = props.String(PropAuthor)
	s.duration = duration
	s.position = 0
	s.loopCount = 0
	s.paused = false
	s.mu.Unlock()
}

func (s *runtimeStatusStore) setState(state PlaybackState) {
	s.mu.Lock()
	s.position = state.Position
	s.loopCount = state.LoopCount
	s.mu.Unlock()
}

func (s *runtimeStatusStore) setPaused(paused bool) {
	s.mu.Lock()
	s.paused = paused
	s.mu.Unlock()
}

func (s *runtimeStatusStore) setVolume(volume float64) {
	s.mu.Lock()
	s.volume = volume
	s.mu.Unlock()
}

func (s *runtimeStatusStore) snapshot() runtimeStatusSnapshot {
	s.mu.RLock()
	snap := s.runtimeStatusSnapshot
	s.mu.RUnlock()
	return snap
}

// line renders a one-line status for the terminal.
func (snap runtimeStatusSnapshot) line() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d/%d] %s ", snap.index, snap.total, snap.format)
	name := snap.title
	if name == "" {
		name = snap.file
	}
	if snap.author != "" {
		name = snap.author + " - " + name
	}
	b.WriteString(name)
	fmt.Fprintf(&b, "  %s / %s", formatDuration(snap.position), formatDuration(snap.duration))
	if snap.loopCount > 0 {
		fmt.Fprintf(&b, "  loop %d", snap.loopCount)
	}
	fmt.Fprintf(&b, "  vol %3.0f%%", snap.volume*100)
	if snap.paused {
		b.WriteString("  [paused]")
	}
	return b.String()
}

var runtimeStatus = &runtimeStatusStore{}
