// module_info.go - Human-readable module summary for the info command.

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// moduleSummary lists the properties in insertion order followed by the
// timing information.
func moduleSummary(path string, m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", path)
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	props := m.Properties()
	for _, key := range props.Keys() {
		fmt.Fprintf(w, "  %s:\t%s\n", key, props.String(key))
	}
	info := m.Information()
	fmt.Fprintf(w, "  Channels:\t%d\n", info.Channels)
	fmt.Fprintf(w, "  Positions:\t%d (loop at %d)\n", info.Positions, info.LoopPosition)
	if info.InitialTempo > 0 {
		fmt.Fprintf(w, "  Tempo:\t%d\n", info.InitialTempo)
	}
	fmt.Fprintf(w, "  Frames:\t%d (loop at %d)\n", info.Frames, info.LoopFrame)
	fmt.Fprintf(w, "  Length:\t%s (loop %s)\n", formatDuration(info.Duration()), formatDuration(info.LoopDuration()))
	_ = w.Flush()
	return b.String()
}
