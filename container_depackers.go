// container_depackers.go - Depacker table: ICE, gzip, zip and LHA wrappers.

package main

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

const defaultZipMaxDepacked = 32 << 20

// defaultDepackers returns the fixed priority order used by the loader.
func defaultDepackers(zipLimit int64) []Depacker {
	if zipLimit <= 0 {
		zipLimit = defaultZipMaxDepacked
	}
	return []Depacker{
		iceDepacker{},
		gzipDepacker{},
		zipDepacker{maxSize: zipLimit},
		lhaDepacker{},
	}
}

type iceDepacker struct{}

func (iceDepacker) Name() string             { return "ice" }
func (iceDepacker) Detect(head []byte) bool { return isICE(head) }
func (iceDepacker) Depack(data []byte, _ *TempStore) ([]byte, error) {
	return UnpackICE(data)
}

type gzipDepacker struct{}

func (gzipDepacker) Name() string { return "gzip" }

func (gzipDepacker) Detect(head []byte) bool {
	// magic plus deflate method
	return len(head) >= 10 && head[0] == 0x1F && head[1] == 0x8B && head[2] == 0x08
}

func (gzipDepacker) Depack(data []byte, _ *TempStore) ([]byte, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	return io.ReadAll(gz)
}

type zipDepacker struct {
	maxSize int64
}

func (zipDepacker) Name() string { return "zip" }

func (zipDepacker) Detect(head []byte) bool {
	return len(head) >= 30 && string(head[:4]) == "PK\x03\x04"
}

// Depack extracts the first regular file of the archive.
func (z zipDepacker) Depack(data []byte, _ *TempStore) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if f.UncompressedSize64 > uint64(z.maxSize) {
			return nil, fmt.Errorf("zip entry %q too large: %d bytes (limit %d)", f.Name, f.UncompressedSize64, z.maxSize)
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		out, err := io.ReadAll(io.LimitReader(rc, z.maxSize+1))
		rc.Close()
		if err != nil {
			return nil, err
		}
		if int64(len(out)) > z.maxSize {
			return nil, fmt.Errorf("zip entry %q exceeds %d bytes", f.Name, z.maxSize)
		}
		return out, nil
	}
	return nil, fmt.Errorf("zip archive has no files")
}

type lhaDepacker struct{}

func (lhaDepacker) Name() string { return "lha" }

// Detect checks the level 0/1/2 header method id "-lh?-" at offset 2.
func (lhaDepacker) Detect(head []byte) bool {
	if len(head) < 22 {
		return false
	}
	id := head[2:7]
	return id[0] == '-' && id[1] == 'l' && (id[2] == 'h' || id[2] == 'z') && id[4] == '-'
}

func (lhaDepacker) Depack(data []byte, tmp *TempStore) ([]byte, error) {
	return DecompressLHAData(data, tmp)
}
