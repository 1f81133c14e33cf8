//go:build headless

package main

import "errors"

func init() {
	compiledFeatures = append(compiledFeatures, "depack:lha-headless")
}

func DecompressLHAFile(path string) ([]byte, error) {
	return nil, errors.New("lha: decompression unavailable in headless builds")
}

func DecompressLHAData(data []byte, tmp *TempStore) ([]byte, error) {
	return nil, errors.New("lha: decompression unavailable in headless builds")
}
