// module_holder.go - Loaded module: properties, information and renderer factory.

package main

import (
	"errors"
	"sync"
)

// RenderConfig carries the per-renderer output settings.
type RenderConfig struct {
	SampleRate int
	Layout     AYLayout
	// ClockHz overrides the chip clock of AY based formats when non-zero.
	ClockHz int
}

func (c RenderConfig) withDefaults() RenderConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = defaultSampleRate
	}
	return c
}

type rendererFactory func(cfg RenderConfig) (Renderer, error)

var errModuleClosed = errors.New("module: closed")

// Module is immutable once returned by the loader and may back any number
// of renderers. Close drops the parsed data; renderers created earlier keep
// their own references.
type Module struct {
	props   *Properties
	info    Information
	source  *ParsedContainer
	factory rendererFactory
	release func()

	mu     sync.Mutex
	closed bool
}

func newModule(props *Properties, info Information, source *ParsedContainer, factory rendererFactory, release func()) *Module {
	return &Module{props: props, info: info, source: source, factory: factory, release: release}
}

// Properties must be treated as read-only.
func (m *Module) Properties() *Properties { return m.props }

func (m *Module) Information() Information { return m.info }

// Source returns the consumed byte range of the module.
func (m *Module) Source() *ParsedContainer { return m.source }

func (m *Module) NewRenderer(cfg RenderConfig) (Renderer, error) {
	m.mu.Lock()
	factory := m.factory
	m.mu.Unlock()
	if factory == nil {
		return nil, errModuleClosed
	}
	return factory(cfg.withDefaults())
}

func (m *Module) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.factory = nil
	m.source = nil
	if m.release != nil {
		m.release()
		m.release = nil
	}
}
