//go:build headless

package main

import "errors"

var errNoAudioDevice = errors.New("audio backend: built without device output (headless)")

// Device backends fail at Startup in headless builds; null and wav still work.
type otoBackend struct{ nullBackend }

func newOtoBackend() *otoBackend { return &otoBackend{} }

func (b *otoBackend) Startup(int) error { return errNoAudioDevice }

type ebitenBackend struct{ nullBackend }

func newEbitenBackend() *ebitenBackend { return &ebitenBackend{} }

func (b *ebitenBackend) Startup(int) error { return errNoAudioDevice }

func init() {
	compiledFeatures = append(compiledFeatures, "audio:headless")
}
