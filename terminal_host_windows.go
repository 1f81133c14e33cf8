//go:build windows

package main

import (
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/term"
)

// TerminalHost reads raw stdin and forwards decoded keys to a playback
// session. Only instantiated in main.go for interactive use - never in tests.
type TerminalHost struct {
	commands     chan sessionCommand
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	oldTermState *term.State
}

func NewTerminalHost() *TerminalHost {
	return &TerminalHost{
		commands: make(chan sessionCommand, 16),
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (h *TerminalHost) Commands() <-chan sessionCommand { return h.commands }

// Start sets stdin to raw mode and begins reading in a goroutine.
// Call Stop() to restore stdin.
func (h *TerminalHost) Start() {
	h.fd = int(os.Stdin.Fd())
	if !term.IsTerminal(h.fd) {
		close(h.done)
		return
	}

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "terminal_host: failed to set raw mode: %v\n", err)
		close(h.done)
		return
	}
	h.oldTermState = oldState

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		var dec keyDecoder

		for {
			select {
			case <-h.stopCh:
				return
			default:
			}

			n, err := os.Stdin.Read(buf)
			if n > 0 {
				if cmd := dec.Feed(buf[0]); cmd != cmdNone {
					select {
					case h.commands <- cmd:
					default:
					}
				}
			}
			if err != nil {
				return
			}
			if n == 0 {
				time.Sleep(5 * time.Millisecond)
			}
		}
	}()
}

// Stop terminates the stdin reading goroutine and restores terminal state.
// A blocked console read only returns after the next key press.
func (h *TerminalHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}

func (h *TerminalHost) PrintStatus() {
	fmt.Printf("\r%s", runtimeStatus.snapshot().line())
}
