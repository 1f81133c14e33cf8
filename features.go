package main

import (
	"fmt"
	"runtime"
	"sort"
)

// Version is overridden at link time with -ldflags "-X main.Version=...".
var Version = "dev"

// compiledFeatures tracks build-time feature flags via init() registration.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("IntuitionTune %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Printf("  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Println("  (none)")
	}
	fmt.Println()
	fmt.Println("Formats:")
	for _, p := range defaultFormatRegistry().Plugins() {
		fmt.Printf("  %-6s %s\n", p.ID(), p.Description())
	}
	fmt.Println("Containers:")
	for _, d := range defaultDepackers(defaultZipMaxDepacked) {
		fmt.Printf("  %s\n", d.Name())
	}
}
