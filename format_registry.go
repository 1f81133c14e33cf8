// format_registry.go - Ordered format plugin table with first-match detection.

package main

import (
	"errors"
	"fmt"
	"strings"
)

// FormatPlugin recognizes and loads one format family. Test may be cheap
// and approximate; Load is authoritative. Both read from the source cursor.
type FormatPlugin interface {
	ID() string
	Description() string
	Test(src *BinarySource) bool
	Load(src *BinarySource) (*Module, error)
}

// FormatRegistry keeps plugins in a fixed priority order. More specific
// formats come first.
type FormatRegistry struct {
	plugins []FormatPlugin
}

func NewFormatRegistry(plugins ...FormatPlugin) *FormatRegistry {
	return &FormatRegistry{plugins: plugins}
}

// defaultFormatRegistry lists every built-in plugin. Formats with a magic
// signature precede the structural tracker checks and the MP3 frame sync
// scan.
func defaultFormatRegistry() *FormatRegistry {
	return NewFormatRegistry(
		psgPlugin{},
		ymPlugin{},
		vgmPlugin{},
		stcPlugin{},
		stpPlugin{},
		mp3Plugin{},
	)
}

func (r *FormatRegistry) Plugins() []FormatPlugin {
	return append([]FormatPlugin(nil), r.plugins...)
}

func (r *FormatRegistry) Find(id string) FormatPlugin {
	for _, p := range r.plugins {
		if strings.EqualFold(p.ID(), id) {
			return p
		}
	}
	return nil
}

// match rewinds the source to start before every format check so a failed test
// never shifts the next plugin's view.
func (r *FormatRegistry) match(src *BinarySource, start int) FormatPlugin {
	for _, p := range r.plugins {
		src.Reset(start)
		ok := p.Test(src)
		src.Reset(start)
		if ok {
			return p
		}
	}
	return nil
}

// TestModule returns the ID of the first plugin accepting the data.
func (r *FormatRegistry) TestModule(src *BinarySource) (string, bool) {
	p := r.match(src, src.Tell())
	if p == nil {
		return "", false
	}
	return p.ID(), true
}

// LoadModule repeats detection and loads with the winning plugin. A load
// failure of that plugin is final; later plugins are not consulted.
func (r *FormatRegistry) LoadModule(src *BinarySource) (*Module, error) {
	start := src.Tell()
	p := r.match(src, start)
	if p == nil {
		return nil, formatError("detect", errors.New("no plugin recognized the data"))
	}
	m, err := p.Load(src)
	if err != nil {
		return nil, loadError(p.ID(), err)
	}
	if m == nil {
		return nil, loadError(p.ID(), fmt.Errorf("plugin returned no module"))
	}
	m.props.Set(PropType, p.ID())
	logger.Debug("module loaded", "type", p.ID(), "offset", start, "size", m.source.Size())
	return m, nil
}

// autoPlugin is the composite entry point used when no format hint is given.
type autoPlugin struct {
	reg *FormatRegistry
}

func (autoPlugin) ID() string          { return "auto" }
func (autoPlugin) Description() string { return "any supported format" }

func (a autoPlugin) Test(src *BinarySource) bool {
	_, ok := a.reg.TestModule(src)
	return ok
}

func (a autoPlugin) Load(src *BinarySource) (*Module, error) {
	return a.reg.LoadModule(src)
}

// Plugin returns the plugin for a format hint, or the composite plugin
// when the hint is empty or "auto".
func (r *FormatRegistry) Plugin(hint string) (FormatPlugin, error) {
	if hint == "" || strings.EqualFold(hint, "auto") {
		return autoPlugin{reg: r}, nil
	}
	if p := r.Find(hint); p != nil {
		return p, nil
	}
	return nil, fmt.Errorf("unknown format %q", hint)
}
