// aym_chip.go - AY-3-8910/YM2149 register file and PCM synthesis.

package main

import "fmt"

// Logarithmic AY DAC levels scaled so that two full channels plus a centred
// one stay inside int16.
var aymVolumeTable = [16]int32{
	0, 109, 158, 230, 335, 497, 704, 1173,
	1383, 2239, 3192, 4072, 5379, 6939, 8799, 10922,
}

// AYLayout selects how the three channels are panned into stereo.
type AYLayout int

const (
	AYLayoutABC AYLayout = iota
	AYLayoutACB
	AYLayoutMono
)

func parseAYLayout(name string) (AYLayout, error) {
	switch name {
	case "", "abc", "ABC":
		return AYLayoutABC, nil
	case "acb", "ACB":
		return AYLayoutACB, nil
	case "mono":
		return AYLayoutMono, nil
	default:
		return AYLayoutABC, fmt.Errorf("unknown channel layout %q", name)
	}
}

// AYFrame is one tick's worth of register writes. Mask marks which
// registers are written; an envelope shape write restarts the envelope.
type AYFrame struct {
	Regs [PSG_REG_COUNT]uint8
	Mask uint16
}

func (f *AYFrame) Set(reg int, value uint8) {
	if reg < 0 || reg >= PSG_REG_COUNT {
		return
	}
	f.Regs[reg] = value
	f.Mask |= 1 << reg
}

func (f *AYFrame) Has(reg int) bool {
	return reg >= 0 && reg < PSG_REG_COUNT && f.Mask&(1<<reg) != 0
}

// AYChip synthesizes the chip output with integer state only, so identical
// register streams always produce identical PCM.
type AYChip struct {
	clockHz    int
	sampleRate int
	layout     AYLayout

	regs [PSG_REG_COUNT]uint8

	toneCounter [3]int
	toneOut     [3]bool

	noiseCounter int
	noiseLFSR    uint32
	noiseOut     bool

	envCounter int
	envPos     int
	envUp      bool
	envHolding bool
	envHeld    int

	tickAcc int64
}

func NewAYChip(clockHz, sampleRate int) *AYChip {
	if clockHz <= 0 {
		clockHz = PSG_CLOCK_ZX_SPECTRUM
	}
	c := &AYChip{clockHz: clockHz, sampleRate: sampleRate}
	c.Reset()
	return c
}

func (c *AYChip) SetLayout(layout AYLayout) { c.layout = layout }

func (c *AYChip) ClockHz() int { return c.clockHz }

// Reset clears all registers and generator state. The mixer starts with
// everything disabled like the real chip after power-on.
func (c *AYChip) Reset() {
	c.regs = [PSG_REG_COUNT]uint8{}
	c.regs[PSG_REG_MIXER] = 0x3F
	c.toneCounter = [3]int{}
	c.toneOut = [3]bool{}
	c.noiseCounter = 0
	c.noiseLFSR = 1
	c.noiseOut = false
	c.envCounter = 0
	c.envPos = 0
	c.envUp = false
	c.envHolding = false
	c.envHeld = 0
	c.tickAcc = 0
}

func (c *AYChip) Register(reg int) uint8 {
	if reg < 0 || reg >= PSG_REG_COUNT {
		return 0
	}
	return c.regs[reg]
}

func (c *AYChip) WriteRegister(reg int, value uint8) {
	if reg < 0 || reg >= PSG_REG_COUNT {
		return
	}
	c.regs[reg] = value
	if reg == PSG_REG_ENV_SHAPE {
		c.restartEnvelope()
	}
}

// ApplyFrame writes every register marked in the frame.
func (c *AYChip) ApplyFrame(f *AYFrame) {
	for reg := 0; reg < PSG_REG_COUNT; reg++ {
		if f.Has(reg) {
			c.WriteRegister(reg, f.Regs[reg])
		}
	}
}

func (c *AYChip) restartEnvelope() {
	c.envCounter = 0
	c.envPos = 0
	c.envUp = c.regs[PSG_REG_ENV_SHAPE]&0x04 != 0
	c.envHolding = false
}

// envelope shape bits: 8=continue 4=attack 2=alternate 1=hold
func (c *AYChip) stepEnvelope() {
	if c.envHolding {
		return
	}
	c.envPos++
	if c.envPos < 16 {
		return
	}
	shape := c.regs[PSG_REG_ENV_SHAPE]
	switch {
	case shape&0x08 == 0:
		c.envHolding = true
		c.envHeld = 0
	case shape&0x01 != 0:
		c.envHolding = true
		attack := shape&0x04 != 0
		alternate := shape&0x02 != 0
		if attack != alternate {
			c.envHeld = 15
		} else {
			c.envHeld = 0
		}
	default:
		c.envPos = 0
		if shape&0x02 != 0 {
			c.envUp = !c.envUp
		}
	}
}

func (c *AYChip) envelopeLevel() int {
	if c.envHolding {
		return c.envHeld
	}
	if c.envUp {
		return c.envPos
	}
	return 15 - c.envPos
}

func (c *AYChip) tonePeriod(ch int) int {
	p := int(c.regs[ch*2]) | int(c.regs[ch*2+1]&0x0F)<<8
	if p == 0 {
		p = 1
	}
	return p
}

// tick advances the generators by one clock/8 step.
func (c *AYChip) tick() {
	for ch := 0; ch < 3; ch++ {
		c.toneCounter[ch]++
		if c.toneCounter[ch] >= c.tonePeriod(ch) {
			c.toneCounter[ch] = 0
			c.toneOut[ch] = !c.toneOut[ch]
		}
	}

	np := int(c.regs[PSG_REG_NOISE] & 0x1F)
	if np == 0 {
		np = 1
	}
	c.noiseCounter++
	if c.noiseCounter >= np*2 {
		c.noiseCounter = 0
		bit := (c.noiseLFSR ^ (c.noiseLFSR >> 3)) & 1
		c.noiseLFSR = (c.noiseLFSR >> 1) | (bit << 16)
		c.noiseOut = c.noiseLFSR&1 != 0
	}

	ep := int(c.regs[PSG_REG_ENV_FINE]) | int(c.regs[PSG_REG_ENV_COARSE])<<8
	if ep == 0 {
		ep = 1
	}
	c.envCounter++
	if c.envCounter >= ep*2 {
		c.envCounter = 0
		c.stepEnvelope()
	}
}

func (c *AYChip) channelLevels() (levels [3]int32) {
	mixer := c.regs[PSG_REG_MIXER]
	env := c.envelopeLevel()
	for ch := 0; ch < 3; ch++ {
		toneOff := mixer&(PSG_MIXER_TONE_OFF<<ch) != 0
		noiseOff := mixer&(PSG_MIXER_NOISE_OFF<<ch) != 0
		if !((c.toneOut[ch] || toneOff) && (c.noiseOut || noiseOff)) {
			continue
		}
		vol := c.regs[PSG_REG_VOLUME_A+ch]
		level := int(vol & 0x0F)
		if vol&PSG_VOLUME_ENVELOPE != 0 {
			level = env
		}
		levels[ch] = aymVolumeTable[level]
	}
	return levels
}

// Render fills dst with interleaved stereo samples (len(dst)/2 frames).
// Each output sample is the box-filtered average of the chip ticks it spans.
func (c *AYChip) Render(dst []int16) {
	div := int64(8 * c.sampleRate)
	for i := 0; i+1 < len(dst); i += 2 {
		c.tickAcc += int64(c.clockHz)
		ticks := c.tickAcc / div
		c.tickAcc -= ticks * div

		var sum [3]int64
		if ticks == 0 {
			lv := c.channelLevels()
			sum[0], sum[1], sum[2] = int64(lv[0]), int64(lv[1]), int64(lv[2])
			ticks = 1
		} else {
			for t := int64(0); t < ticks; t++ {
				c.tick()
				lv := c.channelLevels()
				sum[0] += int64(lv[0])
				sum[1] += int64(lv[1])
				sum[2] += int64(lv[2])
			}
		}
		a, b, cc := sum[0]/ticks, sum[1]/ticks, sum[2]/ticks
		var left, right int64
		switch c.layout {
		case AYLayoutACB:
			left, right = 2*a+cc, 2*b+cc
		case AYLayoutMono:
			left = (a + b + cc) * 2 / 3
			right = left
		default:
			left, right = 2*a+b, 2*cc+b
		}
		dst[i] = int16(left)
		dst[i+1] = int16(right)
	}
}
