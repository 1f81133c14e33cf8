// module_properties.go - Ordered key/value metadata and structural information of a loaded module.

package main

import (
	"strconv"
	"time"
)

const (
	PropType      = "Type"
	PropTitle     = "Title"
	PropAuthor    = "Author"
	PropProgram   = "Program"
	PropComputer  = "Computer"
	PropDate      = "Date"
	PropComment   = "Comment"
	PropContainer = "Container"
	PropSize      = "Size"
	PropCRC       = "CRC"
	PropFixedCRC  = "FixedCRC"
	PropMD5       = "MD5"
	PropDuration  = "Duration"
)

// Properties keeps insertion order so listings are stable.
type Properties struct {
	keys   []string
	values map[string]string
}

func NewProperties() *Properties {
	return &Properties{values: make(map[string]string)}
}

// Set stores value under key. Empty values are ignored.
func (p *Properties) Set(key, value string) {
	if value == "" {
		return
	}
	if _, ok := p.values[key]; !ok {
		p.keys = append(p.keys, key)
	}
	p.values[key] = value
}

func (p *Properties) SetInt(key string, value int) { p.Set(key, strconv.Itoa(value)) }

func (p *Properties) Get(key string) (string, bool) {
	v, ok := p.values[key]
	return v, ok
}

// String returns the value or "" when unset.
func (p *Properties) String(key string) string { return p.values[key] }

func (p *Properties) Keys() []string {
	return append([]string(nil), p.keys...)
}

func (p *Properties) Len() int { return len(p.keys) }

// Information describes the structure of a module as seen by a player UI.
type Information struct {
	Channels      int
	Positions     int
	LoopPosition  int
	InitialTempo  int
	Frames        int
	LoopFrame     int
	FrameDuration time.Duration
}

func (i Information) Duration() time.Duration {
	return time.Duration(i.Frames) * i.FrameDuration
}

func (i Information) LoopDuration() time.Duration {
	return time.Duration(i.LoopFrame) * i.FrameDuration
}
