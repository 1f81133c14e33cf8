// aym_chip_test.go - Tests for AY envelope shapes, mixer and channel layout.

package main

import "testing"

func collectEnvelopeLevels(shape uint8, steps int) []int {
	chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 44100)
	chip.WriteRegister(PSG_REG_ENV_FINE, 0x01)
	chip.WriteRegister(PSG_REG_ENV_COARSE, 0x00)
	chip.WriteRegister(PSG_REG_ENV_SHAPE, shape)

	levels := make([]int, 0, steps+1)
	levels = append(levels, chip.envelopeLevel())
	for range steps {
		chip.stepEnvelope()
		levels = append(levels, chip.envelopeLevel())
	}
	return levels
}

func TestAYEnvelopeShapesBehavior(t *testing.T) {
	for shape := range 16 {
		levels := collectEnvelopeLevels(uint8(shape), 32)
		cont := shape&0x08 != 0
		attack := shape&0x04 != 0
		alt := shape&0x02 != 0
		hold := shape&0x01 != 0

		start := 15
		end := 0
		if attack {
			start = 0
			end = 15
		}
		if levels[0] != start {
			t.Fatalf("shape 0x%X start=%d, want %d", shape, levels[0], start)
		}

		if !cont {
			if held := levels[len(levels)-1]; held != 0 {
				t.Fatalf("shape 0x%X should hold at 0, got %d", shape, held)
			}
			continue
		}

		if hold {
			want := end
			if alt {
				want = start
			}
			if held := levels[len(levels)-1]; held != want {
				t.Fatalf("shape 0x%X hold at %d, got %d", shape, want, held)
			}
			continue
		}

		if alt {
			if levels[16] != end {
				t.Fatalf("shape 0x%X alt should reach end at step 16, got %d", shape, levels[16])
			}
			if levels[32] != start {
				t.Fatalf("shape 0x%X alt should return to start at step 32, got %d", shape, levels[32])
			}
		} else if levels[16] != start {
			t.Fatalf("shape 0x%X should wrap to start at step 16, got %d", shape, levels[16])
		}
	}
}

func TestAYEnvelopeRestartOnShapeWrite(t *testing.T) {
	chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 44100)
	chip.WriteRegister(PSG_REG_ENV_SHAPE, 0x08)
	for range 5 {
		chip.stepEnvelope()
	}
	if got := chip.envelopeLevel(); got != 10 {
		t.Fatalf("level after 5 steps = %d, want 10", got)
	}
	chip.WriteRegister(PSG_REG_ENV_SHAPE, 0x08)
	if got := chip.envelopeLevel(); got != 15 {
		t.Fatalf("level after restart = %d, want 15", got)
	}
}

func renderFixedLevel(t *testing.T, layout AYLayout) (left, right int16) {
	t.Helper()
	chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 44100)
	chip.SetLayout(layout)
	// mixer is fully disabled after reset so the output is the DC level
	chip.WriteRegister(PSG_REG_VOLUME_A, 15)
	buf := make([]int16, 64)
	chip.Render(buf)
	for i := 2; i < len(buf); i += 2 {
		if buf[i] != buf[0] || buf[i+1] != buf[1] {
			t.Fatalf("frame %d = (%d,%d), want constant (%d,%d)", i/2, buf[i], buf[i+1], buf[0], buf[1])
		}
	}
	return buf[0], buf[1]
}

func TestAYLayoutPanning(t *testing.T) {
	full := int16(aymVolumeTable[15])
	tests := []struct {
		name        string
		layout      AYLayout
		left, right int16
	}{
		{"abc", AYLayoutABC, 2 * full, 0},
		{"acb", AYLayoutACB, 2 * full, 0},
		{"mono", AYLayoutMono, int16(int64(full) * 2 / 3), int16(int64(full) * 2 / 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, r := renderFixedLevel(t, tt.layout)
			if l != tt.left || r != tt.right {
				t.Fatalf("got (%d,%d), want (%d,%d)", l, r, tt.left, tt.right)
			}
		})
	}
}

func TestAYChannelCPanning(t *testing.T) {
	chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 44100)
	chip.WriteRegister(PSG_REG_VOLUME_C, 15)
	buf := make([]int16, 2)
	chip.Render(buf)
	full := int16(aymVolumeTable[15])
	if buf[0] != 0 || buf[1] != 2*full {
		t.Fatalf("ABC channel C = (%d,%d), want (0,%d)", buf[0], buf[1], 2*full)
	}
}

func TestAYToneProducesSquareWave(t *testing.T) {
	chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 44100)
	chip.WriteRegister(PSG_REG_TONE_A_L, 0x00)
	chip.WriteRegister(PSG_REG_TONE_A_H, 0x01)
	chip.WriteRegister(PSG_REG_MIXER, 0x3F&^PSG_MIXER_TONE_OFF)
	chip.WriteRegister(PSG_REG_VOLUME_A, 15)

	buf := make([]int16, 2*4410)
	chip.Render(buf)
	lo, hi := buf[0], buf[0]
	for i := 0; i < len(buf); i += 2 {
		lo = min(lo, buf[i])
		hi = max(hi, buf[i])
	}
	if lo != 0 || hi != 2*int16(aymVolumeTable[15]) {
		t.Fatalf("tone swing = [%d,%d], want [0,%d]", lo, hi, 2*aymVolumeTable[15])
	}
}

func TestAYRenderDeterministic(t *testing.T) {
	render := func() []int16 {
		chip := NewAYChip(PSG_CLOCK_ZX_SPECTRUM, 48000)
		var f AYFrame
		f.Set(PSG_REG_TONE_A_L, 0x40)
		f.Set(PSG_REG_NOISE, 0x07)
		f.Set(PSG_REG_MIXER, 0x30)
		f.Set(PSG_REG_VOLUME_A, 0x10)
		f.Set(PSG_REG_VOLUME_B, 0x0C)
		f.Set(PSG_REG_ENV_FINE, 0x20)
		f.Set(PSG_REG_ENV_SHAPE, 0x0E)
		chip.ApplyFrame(&f)
		buf := make([]int16, 2*2000)
		chip.Render(buf)
		return buf
	}
	a, b := render(), render()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestAYRegisterBounds(t *testing.T) {
	chip := NewAYChip(0, 44100)
	if chip.ClockHz() != PSG_CLOCK_ZX_SPECTRUM {
		t.Errorf("default clock = %d", chip.ClockHz())
	}
	chip.WriteRegister(PSG_REG_COUNT, 0x55)
	chip.WriteRegister(-1, 0x55)
	if chip.Register(PSG_REG_COUNT) != 0 || chip.Register(-1) != 0 {
		t.Error("out of range register must read as zero")
	}
	if chip.Register(PSG_REG_MIXER) != 0x3F {
		t.Errorf("mixer after reset = %#02x, want 0x3F", chip.Register(PSG_REG_MIXER))
	}

	var f AYFrame
	f.Set(PSG_REG_COUNT, 1)
	if f.Mask != 0 {
		t.Errorf("frame mask = %#x after out of range set", f.Mask)
	}
	f.Set(PSG_REG_VOLUME_B, 9)
	if !f.Has(PSG_REG_VOLUME_B) || f.Has(PSG_REG_VOLUME_A) {
		t.Errorf("frame mask = %#x", f.Mask)
	}
}

func TestParseAYLayout(t *testing.T) {
	for name, want := range map[string]AYLayout{"": AYLayoutABC, "ABC": AYLayoutABC, "acb": AYLayoutACB, "mono": AYLayoutMono} {
		got, err := parseAYLayout(name)
		if err != nil || got != want {
			t.Errorf("parseAYLayout(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := parseAYLayout("bca"); err == nil {
		t.Error("expected error for unknown layout")
	}
}
