// stc_module.go - The STC format plugin.

package main

import "fmt"

type stcPlugin struct{}

func (stcPlugin) ID() string          { return "STC" }
func (stcPlugin) Description() string { return "Sound Tracker compiled module" }

// Test runs the full parser against the stub builder.
func (stcPlugin) Test(src *BinarySource) bool {
	_, err := ParseSTC(src, stubSTCBuilder{})
	return err == nil
}

func (stcPlugin) Load(src *BinarySource) (*Module, error) {
	props := NewProperties()
	b := newAYMModuleBuilder(props)
	container, err := ParseSTC(src, b)
	if err != nil {
		return nil, err
	}
	data := b.data
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("stc: %w", err)
	}
	return newAYMTrackModule(data, stcFrequencyTable, props, container), nil
}
