// tracker_vm.go - Order/pattern/line/tick iterator shared by tracker renderers.

package main

// TrackState is the iterator position. Quirk counts ticks inside the current
// line; a new line starts whenever Quirk is 0. Frame is the tick index
// relative to the start of the track and jumps back to the loop frame when
// the order wraps.
type TrackState struct {
	Position  int
	Line      int
	Quirk     int
	Tempo     int
	LoopCount int
	Frame     int
}

// TrackIterator walks a ModuleData tick by tick. It never ends by itself;
// the renderer's loop policy decides when to stop.
type TrackIterator struct {
	data      *ModuleData
	state     TrackState
	loopFrame int
}

func NewTrackIterator(data *ModuleData) *TrackIterator {
	it := &TrackIterator{data: data}
	it.Reset()
	return it
}

func (it *TrackIterator) Reset() {
	it.state = TrackState{Tempo: it.data.InitialTempo}
	it.loopFrame = 0
}

func (it *TrackIterator) State() TrackState { return it.state }

// NewLine reports whether the current tick starts a line.
func (it *TrackIterator) NewLine() bool { return it.state.Quirk == 0 }

func (it *TrackIterator) position() PositionEntry {
	return it.data.Order.Positions[it.state.Position]
}

func (it *TrackIterator) pattern() *Pattern {
	return it.data.Patterns.Get(it.position().Pattern)
}

// CurrentLine returns the line under the cursor, or nil for a pattern hole.
func (it *TrackIterator) CurrentLine() *Line {
	pat := it.pattern()
	if pat == nil || it.state.Line >= pat.Size() {
		return nil
	}
	return &pat.Lines[it.state.Line]
}

func (it *TrackIterator) Transposition() int { return it.position().Transposition }

// SetTempo changes the ticks-per-line from the next line on.
func (it *TrackIterator) SetTempo(tempo int) {
	if tempo > 0 {
		it.state.Tempo = tempo
	}
}

// NextTick advances by one tick and reports whether the order wrapped.
func (it *TrackIterator) NextTick() bool {
	s := &it.state
	s.Frame++
	s.Quirk++
	if s.Quirk < s.Tempo {
		return false
	}
	s.Quirk = 0
	s.Line++
	if pat := it.pattern(); pat != nil && s.Line < pat.Size() {
		return false
	}
	s.Line = 0
	s.Position++
	wrapped := false
	if s.Position >= it.data.Order.Len() {
		s.Position = it.data.Order.Loop
		s.LoopCount++
		s.Frame = it.loopFrame
		wrapped = true
	}
	if !wrapped && s.LoopCount == 0 && s.Position == it.data.Order.Loop {
		it.loopFrame = s.Frame
	}
	return wrapped
}

// ModuleTimings summarizes one full pass through the order.
type ModuleTimings struct {
	Frames    int
	LoopFrame int
}

// maxDryRunFrames bounds timing scans to one hour at 50 Hz.
const maxDryRunFrames = 50 * 60 * 60

// computeTrackTimings dry-runs a fresh iterator until the first wrap.
func computeTrackTimings(data *ModuleData) ModuleTimings {
	it := NewTrackIterator(data)
	frames := 0
	for frames < maxDryRunFrames {
		frames++
		if it.NextTick() {
			break
		}
	}
	return ModuleTimings{Frames: frames, LoopFrame: it.loopFrame}
}
