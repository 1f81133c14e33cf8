// container_resolver.go - Iterative depacking of nested archive/packer wrappers.
//
// The resolver matches the head of the data against an ordered table of
// depackers. A match is transformed in-process and the result is checked
// again, up to a fixed nesting depth. Temporary files and intermediate
// buffers created along the way live in a TempStore that is cleaned up on
// every exit path.

package main

import (
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"strings"
)

const (
	containerHeadSize = 1024
	defaultDepackDepth = 5
)

// Depacker recognizes one wrapper format and unwraps it into a new buffer.
// Detect only sees the first containerHeadSize bytes.
type Depacker interface {
	Name() string
	Detect(head []byte) bool
	Depack(data []byte, tmp *TempStore) ([]byte, error)
}

// DecodedContainer owns the bytes produced by resolution (or the original
// bytes when nothing matched, in which case ownership is transferred from
// the caller).
type DecodedContainer struct {
	Data     []byte
	FixedCRC uint32
	Chain    []string
}

func (c *DecodedContainer) Size() int { return len(c.Data) }

// ChainText renders the applied depackers as "gzip>ice", or "" for raw data.
func (c *DecodedContainer) ChainText() string { return strings.Join(c.Chain, ">") }

// TempStore tracks scratch resources of a single resolve. Cleanup removes
// all tracked files and drops buffer references; it is idempotent.
type TempStore struct {
	dir     string
	files   []string
	buffers [][]byte
}

func newTempStore(dir string) *TempStore {
	return &TempStore{dir: dir}
}

// CreateFile makes a tracked temporary file. The caller closes it; the store
// removes it.
func (t *TempStore) CreateFile(pattern string) (*os.File, error) {
	f, err := os.CreateTemp(t.dir, pattern)
	if err != nil {
		return nil, err
	}
	t.files = append(t.files, f.Name())
	return f, nil
}

// Track registers an intermediate buffer.
func (t *TempStore) Track(buf []byte) {
	t.buffers = append(t.buffers, buf)
}

// Release stops tracking buf, handing ownership to the caller.
func (t *TempStore) Release(buf []byte) {
	for i, b := range t.buffers {
		if len(b) > 0 && len(buf) > 0 && &b[0] == &buf[0] {
			t.buffers = append(t.buffers[:i], t.buffers[i+1:]...)
			return
		}
	}
}

// Pending reports how many resources are still tracked.
func (t *TempStore) Pending() int { return len(t.files) + len(t.buffers) }

func (t *TempStore) Cleanup() error {
	var errs []error
	for _, name := range t.files {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	t.files = nil
	clear(t.buffers)
	t.buffers = nil
	return errors.Join(errs...)
}

type ContainerResolver struct {
	depackers []Depacker
	maxDepth  int
	tempDir   string
}

// NewContainerResolver keeps the depackers in the given priority order.
// maxDepth <= 0 selects defaultDepackDepth.
func NewContainerResolver(maxDepth int, depackers ...Depacker) *ContainerResolver {
	if maxDepth <= 0 {
		maxDepth = defaultDepackDepth
	}
	return &ContainerResolver{depackers: depackers, maxDepth: maxDepth}
}

// SetTempDir selects where file-based depackers put scratch files ("" means
// the OS default).
func (r *ContainerResolver) SetTempDir(dir string) { r.tempDir = dir }

// Resolve unwraps data until no depacker matches. The input slice is never
// written to. Running past maxDepth nested wrappers is a depack error.
func (r *ContainerResolver) Resolve(data []byte) (result *DecodedContainer, err error) {
	tmp := newTempStore(r.tempDir)
	defer func() {
		if cerr := tmp.Cleanup(); cerr != nil {
			logger.Warn("temp cleanup failed", "err", cerr)
		}
	}()

	current := data
	var chain []string
	for depth := 0; ; depth++ {
		d := r.match(current)
		if d == nil {
			break
		}
		if depth >= r.maxDepth {
			return nil, depackError("resolve", fmt.Errorf("%s nested deeper than %d levels", d.Name(), r.maxDepth))
		}
		out, derr := runDepacker(d, current, tmp)
		if derr != nil {
			return nil, depackError(d.Name(), derr)
		}
		if len(out) == 0 {
			return nil, depackError(d.Name(), errors.New("empty output"))
		}
		tmp.Track(out)
		chain = append(chain, d.Name())
		logger.Debug("depacked", "depacker", d.Name(), "depth", depth+1, "in", len(current), "out", len(out))
		current = out
	}
	tmp.Release(current)

	return &DecodedContainer{
		Data:     current,
		FixedCRC: crc32.ChecksumIEEE(current),
		Chain:    chain,
	}, nil
}

func (r *ContainerResolver) match(data []byte) Depacker {
	head := data
	if len(head) > containerHeadSize {
		head = head[:containerHeadSize]
	}
	for _, d := range r.depackers {
		if d.Detect(head) {
			return d
		}
	}
	return nil
}

// runDepacker turns a panic inside a transform into an error so malformed
// archives cannot take the process down.
func runDepacker(d Depacker, data []byte, tmp *TempStore) (out []byte, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = nil
			err = fmt.Errorf("panic in %s: %v", d.Name(), p)
		}
	}()
	return d.Depack(data, tmp)
}
