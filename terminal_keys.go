// terminal_keys.go - Raw-mode keystroke decoding for interactive playback.

package main

// keyDecoder turns raw stdin bytes into session commands. It keeps state
// across reads because an arrow key escape sequence may arrive split.
type keyDecoder struct {
	esc []byte
}

func (d *keyDecoder) Feed(b byte) sessionCommand {
	if len(d.esc) > 0 {
		d.esc = append(d.esc, b)
		if len(d.esc) == 2 {
			if b == '[' || b == 'O' {
				return cmdNone
			}
			d.esc = d.esc[:0]
			return cmdNone
		}
		d.esc = d.esc[:0]
		switch b {
		case 'C':
			return cmdSeekForward
		case 'D':
			return cmdSeekBack
		case 'A':
			return cmdVolumeUp
		case 'B':
			return cmdVolumeDown
		}
		return cmdNone
	}
	switch b {
	case 0x1B:
		d.esc = append(d.esc, b)
	case ' ', 'p':
		return cmdTogglePause
	case 'n', 'N', '\r', '\n':
		return cmdNext
	case 'q', 'Q', 0x03:
		return cmdQuit
	case '+', '=':
		return cmdVolumeUp
	case '-', '_':
		return cmdVolumeDown
	case 'l':
		return cmdSeekForward
	case 'h':
		return cmdSeekBack
	}
	return cmdNone
}
