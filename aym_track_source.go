// aym_track_source.go - Tracker VM driver that turns channel state into AY register writes.

package main

import "fmt"

// ChannelState is the per-channel playback state owned by one renderer.
type ChannelState struct {
	Enabled       bool
	Envelope      bool
	Note          int
	SampleNum     int
	PosInSample   int
	OrnamentNum   int
	PosInOrnament int
	Volume        int
	Gliss         int
	Slide         int
}

func newChannelState() ChannelState {
	return ChannelState{Volume: 15}
}

// aymTrackSource applies pattern lines through a TrackIterator and
// synthesizes one AYFrame per tick for a 3-channel module.
type aymTrackSource struct {
	data  *ModuleData
	iter  *TrackIterator
	table []uint16
	chans [3]ChannelState
}

func newAYMTrackSource(data *ModuleData, table []uint16) (*aymTrackSource, error) {
	if data.Channels != 3 {
		return nil, fmt.Errorf("ay tracker: %d channels, want 3", data.Channels)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("ay tracker: empty frequency table")
	}
	s := &aymTrackSource{data: data, iter: NewTrackIterator(data), table: table}
	s.Reset()
	return s, nil
}

func (s *aymTrackSource) Reset() {
	s.iter.Reset()
	for i := range s.chans {
		s.chans[i] = newChannelState()
	}
}

func (s *aymTrackSource) Frame() int     { return s.iter.State().Frame }
func (s *aymTrackSource) LoopCount() int { return s.iter.State().LoopCount }

// Channel exposes a copy of the channel state, for tests and scopes.
func (s *aymTrackSource) Channel(ch int) ChannelState { return s.chans[ch] }

func (s *aymTrackSource) Tick(f *AYFrame) bool {
	if s.iter.NewLine() {
		if line := s.iter.CurrentLine(); line != nil {
			for ch := range s.chans {
				s.applyCell(&s.chans[ch], &line.Cells[ch], f)
			}
		}
	}
	s.synthesize(f)
	return s.iter.NextTick()
}

// applyCell touches only the fields present in the cell.
func (s *aymTrackSource) applyCell(st *ChannelState, cell *Cell, f *AYFrame) {
	if cell.Empty() {
		return
	}
	if on, ok := cell.Enabled(); ok {
		st.Enabled = on
	}
	if note, ok := cell.Note(); ok {
		st.Note = note
		st.PosInSample = 0
		st.PosInOrnament = 0
		st.Slide = 0
	}
	if idx, ok := cell.Sample(); ok {
		st.SampleNum = idx
	}
	if idx, ok := cell.Ornament(); ok {
		st.OrnamentNum = idx
		st.PosInOrnament = 0
	}
	if vol, ok := cell.Volume(); ok {
		st.Volume = vol
	}
	for _, cmd := range cell.Commands {
		switch cmd.Type {
		case CmdEnvelope:
			st.Envelope = true
			f.Set(PSG_REG_ENV_FINE, uint8(cmd.Param2))
			f.Set(PSG_REG_ENV_COARSE, uint8(cmd.Param2>>8))
			f.Set(PSG_REG_ENV_SHAPE, uint8(cmd.Param1))
		case CmdNoEnvelope:
			st.Envelope = false
		case CmdGliss:
			st.Gliss = cmd.Param1
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// synthesize writes one tick of registers. The single noise generator gets
// the OR of every sounding channel's noise, masked or not.
func (s *aymTrackSource) synthesize(f *AYFrame) {
	var mixer, noise uint8
	transposition := s.iter.Transposition()
	for ch := range s.chans {
		st := &s.chans[ch]
		if !st.Enabled {
			f.Set(PSG_REG_VOLUME_A+ch, 0)
			mixer |= (PSG_MIXER_TONE_OFF | PSG_MIXER_NOISE_OFF) << ch
			continue
		}
		sample := s.data.Samples.Get(st.SampleNum)
		orn := s.data.Ornaments.Get(st.OrnamentNum)
		line := sample.Line(st.PosInSample)

		vol := uint8(clampInt(int(line.Level)-(15-st.Volume), 0, 15))
		if st.Envelope && line.EnvelopeMask {
			vol |= PSG_VOLUME_ENVELOPE
		}
		f.Set(PSG_REG_VOLUME_A+ch, vol)

		halftones := clampInt(st.Note+transposition+orn.Offset(st.PosInOrnament), 0, len(s.table)-1)
		tone := (int(s.table[halftones]) + line.Vibrato + st.Slide) & 0xfff
		f.Set(ch*2, uint8(tone))
		f.Set(ch*2+1, uint8(tone>>8))

		if line.ToneMask {
			mixer |= PSG_MIXER_TONE_OFF << ch
		}
		noise |= line.Noise
		if line.NoiseMask {
			mixer |= PSG_MIXER_NOISE_OFF << ch
		}

		st.Slide += st.Gliss
		st.PosInOrnament = orn.Next(st.PosInOrnament)
		pos, sounding := sample.Next(st.PosInSample)
		st.PosInSample = pos
		if !sounding {
			st.Enabled = false
		}
	}
	f.Set(PSG_REG_MIXER, mixer)
	f.Set(PSG_REG_NOISE, noise&0x1f)
}
