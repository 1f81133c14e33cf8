//go:build linux && !headless

// lhasa_linux.go - LHA container depacking through the system liblhasa (Linux only).

package main

/*
#cgo pkg-config: liblhasa
#include <stdlib.h>
#include <lhasa.h>

static int lha_decompress_file(const char* path, unsigned char** out, size_t* out_len) {
	LHAInputStream* stream = lha_input_stream_from((char*)path);
	if (stream == NULL) {
		return 0;
	}
	LHAReader* reader = lha_reader_new(stream);
	if (reader == NULL) {
		lha_input_stream_free(stream);
		return 0;
	}

	int ok = 0;
	LHAFileHeader* header;
	/* first member with data; directories have zero length */
	while ((header = lha_reader_next_file(reader)) != NULL) {
		if (header->length == 0) {
			continue;
		}
		size_t length = (size_t) header->length;
		unsigned char* buffer = (unsigned char*) malloc(length);
		if (buffer == NULL) {
			break;
		}
		size_t total = 0;
		size_t n;
		while (total < length && (n = lha_reader_read(reader, buffer + total, length - total)) > 0) {
			total += n;
		}
		if (total == 0) {
			free(buffer);
			break;
		}
		*out = buffer;
		*out_len = total;
		ok = 1;
		break;
	}

	lha_reader_free(reader);
	lha_input_stream_free(stream);
	return ok;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"
)

func init() {
	compiledFeatures = append(compiledFeatures, "depack:lha")
}

// DecompressLHAFile extracts the first member of an LHA archive on disk.
func DecompressLHAFile(path string) ([]byte, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var out *C.uchar
	var outLen C.size_t
	if C.lha_decompress_file(cPath, &out, &outLen) == 0 || out == nil || outLen == 0 {
		return nil, errors.New("lha: no extractable member")
	}
	defer C.free(unsafe.Pointer(out))

	return C.GoBytes(unsafe.Pointer(out), C.int(outLen)), nil
}

// DecompressLHAData spills in-memory data to a scratch file owned by tmp,
// since liblhasa only reads from paths. tmp removes the file.
func DecompressLHAData(data []byte, tmp *TempStore) ([]byte, error) {
	f, err := tmp.CreateFile("lha-*.bin")
	if err != nil {
		return nil, fmt.Errorf("lha: temp file: %w", err)
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("lha: temp write: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("lha: temp close: %w", err)
	}
	return DecompressLHAFile(name)
}
