// stp_module.go - The STP format plugin.

package main

import "fmt"

type stpPlugin struct{}

func (stpPlugin) ID() string          { return "STP" }
func (stpPlugin) Description() string { return "Sound Tracker Pro compiled module" }

func (stpPlugin) Test(src *BinarySource) bool {
	_, err := ParseSTP(src, stubSTPBuilder{})
	return err == nil
}

func (stpPlugin) Load(src *BinarySource) (*Module, error) {
	props := NewProperties()
	b := newAYMModuleBuilder(props)
	container, err := ParseSTP(src, b)
	if err != nil {
		return nil, err
	}
	if err := b.data.Validate(); err != nil {
		return nil, fmt.Errorf("stp: %w", err)
	}
	return newAYMTrackModule(b.data, stcFrequencyTable, props, container), nil
}
