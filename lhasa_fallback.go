//go:build !linux && !headless

package main

import "errors"

func init() {
	compiledFeatures = append(compiledFeatures, "depack:lha-unavailable")
}

var errLHAUnavailable = errors.New("lha: decompression requires Linux with liblhasa installed")

func DecompressLHAFile(path string) ([]byte, error) {
	return nil, errLHAUnavailable
}

func DecompressLHAData(data []byte, tmp *TempStore) ([]byte, error) {
	return nil, errLHAUnavailable
}
