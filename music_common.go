// music_common.go - Shared string and time helpers for module parsers

package main

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// parseNullTerminatedString extracts a string up to the first null byte
// Returns the string and the new offset (after the null terminator)
func parseNullTerminatedString(data []byte, offset int) (string, int) {
	start := offset
	for offset < len(data) && data[offset] != 0 {
		offset++
	}
	end := offset
	if offset < len(data) {
		offset++ // Skip null terminator
	}
	if end <= start {
		return "", offset
	}
	return string(data[start:end]), offset
}

// parsePaddedString extracts a string from a fixed-size field,
// trimming trailing null bytes and spaces
func parsePaddedString(data []byte) string {
	end := len(data)
	for i, b := range data {
		if b == 0 {
			end = i
			break
		}
	}
	return strings.TrimRight(string(data[:end]), " ")
}

// moduleCodepage selects how 8-bit module strings that are not valid UTF-8
// are decoded. ZX Spectrum and Atari scene files are mostly cp1251 or cp866.
var moduleCodepage = "cp1251"

func codepageDecoder(name string) (*encoding.Decoder, error) {
	switch strings.ToLower(name) {
	case "", "cp1251", "windows-1251":
		return charmap.Windows1251.NewDecoder(), nil
	case "cp866", "ibm866":
		return charmap.CodePage866.NewDecoder(), nil
	case "latin1", "iso-8859-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "cp437":
		return charmap.CodePage437.NewDecoder(), nil
	default:
		return nil, fmt.Errorf("unknown codepage %q", name)
	}
}

// decodeModuleText turns raw module bytes into a printable string. Valid
// UTF-8 (including plain ASCII) is kept as is.
func decodeModuleText(raw string) string {
	raw = strings.TrimRight(raw, " \x00")
	if utf8.ValidString(raw) {
		return raw
	}
	dec, err := codepageDecoder(moduleCodepage)
	if err != nil {
		return strings.ToValidUTF8(raw, "?")
	}
	out, err := dec.String(raw)
	if err != nil {
		return strings.ToValidUTF8(raw, "?")
	}
	return out
}

// formatDuration prints m:ss.t, or h:mm:ss for long tracks.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d / (100 * time.Millisecond)
	tenths := total % 10
	secs := (total / 10) % 60
	mins := (total / 600) % 60
	hours := total / 36000
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d.%d", mins, secs, tenths)
}
