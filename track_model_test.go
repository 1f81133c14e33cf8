// track_model_test.go - Sparse tables, instrument stepping and the tick iterator.

package main

import "testing"

func TestSparseTable_DefaultOnMiss(t *testing.T) {
	tbl := NewSparseTable(-1)
	tbl.Set(3, 30)
	tbl.Set(-2, 99)
	tests := []struct {
		idx, want int
		has       bool
	}{
		{3, 30, true},
		{0, -1, false},
		{2, -1, false},
		{4, -1, false},
		{-2, -1, false},
	}
	for _, tt := range tests {
		if got := tbl.Get(tt.idx); got != tt.want {
			t.Errorf("Get(%d) = %d, want %d", tt.idx, got, tt.want)
		}
		if tbl.Has(tt.idx) != tt.has {
			t.Errorf("Has(%d) = %v", tt.idx, !tt.has)
		}
	}
	if tbl.Count() != 1 {
		t.Errorf("Count = %d, want 1", tbl.Count())
	}
}

func TestSample_NextLoops(t *testing.T) {
	s := Sample{Lines: make([]SampleLine, 4), Loop: 1, LoopLimit: 3}
	pos, ok := 0, true
	var seen []int
	for range 6 {
		pos, ok = s.Next(pos)
		if !ok {
			t.Fatal("looping sample stopped")
		}
		seen = append(seen, pos)
	}
	want := []int{1, 2, 1, 2, 1, 2}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("positions %v, want %v", seen, want)
		}
	}

	once := Sample{Lines: make([]SampleLine, 2), Loop: -1}
	if _, ok := once.Next(1); ok {
		t.Error("non-looping sample should stop at its end")
	}
	if line := once.Line(5); line != neutralSampleLine {
		t.Errorf("out of range line = %+v", line)
	}
}

func TestOrnament_NextIndependentOfLength(t *testing.T) {
	o := Ornament{Offsets: []int{0, 4, 7}, Loop: 0, LoopLimit: 3}
	pos := 0
	var offsets []int
	for range 5 {
		offsets = append(offsets, o.Offset(pos))
		pos = o.Next(pos)
	}
	want := []int{0, 4, 7, 0, 4}
	for i := range want {
		if offsets[i] != want[i] {
			t.Fatalf("offsets %v, want %v", offsets, want)
		}
	}
	empty := Ornament{}
	if empty.Next(0) != 0 || empty.Offset(3) != 0 {
		t.Error("empty ornament should stay at 0")
	}
}

// twoPatternData builds a three-channel module: order [1, 2, 1] looping to
// position 1, pattern 1 with 2 lines and pattern 2 with 3 lines.
func twoPatternData(tempo int) *ModuleData {
	d := NewModuleData(3)
	d.InitialTempo = tempo
	p1 := &Pattern{}
	p1.Resize(2, 3)
	p2 := &Pattern{}
	p2.Resize(3, 3)
	d.Patterns.Set(1, p1)
	d.Patterns.Set(2, p2)
	d.Order = Order{Positions: []PositionEntry{{Pattern: 1}, {Pattern: 2}, {Pattern: 1}}, Loop: 1}
	return d
}

func TestTrackIterator_LoopCountAndFrames(t *testing.T) {
	data := twoPatternData(2)
	if err := data.Validate(); err != nil {
		t.Fatal(err)
	}
	timings := computeTrackTimings(data)
	// (2+3+2) lines at 2 ticks each; the loop starts after pattern 1
	if timings.Frames != 14 || timings.LoopFrame != 4 {
		t.Fatalf("timings %+v, want 14 frames loop 4", timings)
	}

	it := NewTrackIterator(data)
	wraps := 0
	for tick := 1; tick <= 14+10; tick++ {
		if it.NextTick() {
			wraps++
			if st := it.State(); st.Position != 1 || st.Frame != 4 || st.Line != 0 {
				t.Fatalf("after wrap: %+v", st)
			}
		}
	}
	if wraps != 2 || it.State().LoopCount != 2 {
		t.Fatalf("wraps=%d loopCount=%d, want 2", wraps, it.State().LoopCount)
	}
}

func TestTrackIterator_TempoChangeAppliesNextLine(t *testing.T) {
	it := NewTrackIterator(twoPatternData(3))
	it.NextTick()
	it.SetTempo(1)
	it.SetTempo(0)
	// the tick counter is already past the new tempo, so the line ends now
	it.NextTick()
	if st := it.State(); st.Line != 1 || st.Tempo != 1 {
		t.Fatalf("state %+v", st)
	}
	it.NextTick()
	if st := it.State(); st.Position != 1 || st.Line != 0 {
		t.Fatalf("state %+v", st)
	}
}

func TestModuleData_Validate(t *testing.T) {
	tests := []struct {
		name  string
		patch func(*ModuleData)
	}{
		{"zero tempo", func(d *ModuleData) { d.InitialTempo = 0 }},
		{"empty order", func(d *ModuleData) { d.Order.Positions = nil }},
		{"loop outside order", func(d *ModuleData) { d.Order.Loop = 3 }},
		{"missing pattern", func(d *ModuleData) { d.Order.Positions[0].Pattern = 7 }},
		{"empty pattern", func(d *ModuleData) { d.Patterns.Set(2, &Pattern{}) }},
		{"short line", func(d *ModuleData) { d.Patterns.Get(1).Lines[0].Cells = make([]Cell, 2) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := twoPatternData(2)
			tt.patch(d)
			if err := d.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestCell_FieldsTracked(t *testing.T) {
	var c Cell
	if !c.Empty() {
		t.Fatal("zero cell should be empty")
	}
	c.SetNote(0)
	if n, ok := c.Note(); !ok || n != 0 {
		t.Error("note 0 should still be present")
	}
	if _, ok := c.Sample(); ok {
		t.Error("sample should be absent")
	}
	c.AddCommand(Command{Type: CmdGliss, Param1: -2})
	if c.Empty() || len(c.Commands) != 1 {
		t.Error("command not recorded")
	}
}
