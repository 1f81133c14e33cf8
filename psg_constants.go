package main

const (
	PSG_REG_COUNT = 14

	PSG_REG_TONE_A_L   = 0
	PSG_REG_TONE_A_H   = 1
	PSG_REG_TONE_B_L   = 2
	PSG_REG_TONE_B_H   = 3
	PSG_REG_TONE_C_L   = 4
	PSG_REG_TONE_C_H   = 5
	PSG_REG_NOISE      = 6
	PSG_REG_MIXER      = 7
	PSG_REG_VOLUME_A   = 8
	PSG_REG_VOLUME_B   = 9
	PSG_REG_VOLUME_C   = 10
	PSG_REG_ENV_FINE   = 11
	PSG_REG_ENV_COARSE = 12
	PSG_REG_ENV_SHAPE  = 13

	PSG_CLOCK_ATARI_ST    = 2000000
	PSG_CLOCK_ZX_SPECTRUM = 1773400
	PSG_CLOCK_CPC         = 1000000
	PSG_CLOCK_MSX         = 1789773

	// Frame rate of interrupt-driven players on PAL machines.
	PSG_FRAME_RATE_PAL = 50

	// Mixer bits are active low: a set bit disables the generator.
	PSG_MIXER_TONE_OFF  = 0x01
	PSG_MIXER_NOISE_OFF = 0x08

	PSG_VOLUME_ENVELOPE = 0x10
)
