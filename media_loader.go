// media_loader.go - File to Module orchestration: read, depack, detect, load, stamp.

package main

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// maxModuleFileSize bounds files read from disk before depacking.
const maxModuleFileSize = 64 << 20

type ModuleLoader struct {
	resolver *ContainerResolver
	registry *FormatRegistry
	maxSize  int64
}

func NewModuleLoader(resolver *ContainerResolver, registry *FormatRegistry) *ModuleLoader {
	return &ModuleLoader{resolver: resolver, registry: registry, maxSize: maxModuleFileSize}
}

// newModuleLoaderFromConfig wires the default depackers and plugins.
func newModuleLoaderFromConfig(cfg *AppConfig) *ModuleLoader {
	resolver := NewContainerResolver(cfg.DepackDepth, defaultDepackers(cfg.ZipMaxSize)...)
	resolver.SetTempDir(cfg.TempDir)
	return NewModuleLoader(resolver, defaultFormatRegistry())
}

func (l *ModuleLoader) LoadFile(path, hint string) (*Module, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, systemError("stat", err)
	}
	if st.IsDir() {
		return nil, systemError("open", fmt.Errorf("%s is a directory", path))
	}
	if st.Size() > l.maxSize {
		return nil, systemError("open", fmt.Errorf("%s is %d bytes, limit %d", path, st.Size(), l.maxSize))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, systemError("read", err)
	}
	m, err := l.LoadData(data, hint)
	if err != nil {
		return nil, err
	}
	m.props.Set("Filename", filepath.Base(path))
	return m, nil
}

// LoadData resolves containers and loads the innermost data. Either a fully
// valid module or an error is returned, never both.
func (l *ModuleLoader) LoadData(data []byte, hint string) (*Module, error) {
	decoded, err := l.resolver.Resolve(data)
	if err != nil {
		return nil, err
	}
	plugin, err := l.registry.Plugin(hint)
	if err != nil {
		return nil, formatError("hint", err)
	}
	src := NewBinarySource(decoded.Data)
	if !plugin.Test(src) {
		return nil, formatError(plugin.ID(), errors.New("data not recognized"))
	}
	src.Reset(0)
	m, err := plugin.Load(src)
	if err != nil {
		var lf *LoadFailure
		if !errors.As(err, &lf) {
			err = loadError(plugin.ID(), err)
		}
		return nil, err
	}
	if m.props.String(PropType) == "" {
		m.props.Set(PropType, plugin.ID())
	}
	stampSourceProperties(m.props, decoded)
	return m, nil
}

// Detect reports the format ID and depack chain without building a module.
func (l *ModuleLoader) Detect(data []byte) (string, string, error) {
	decoded, err := l.resolver.Resolve(data)
	if err != nil {
		return "", "", err
	}
	id, ok := l.registry.TestModule(NewBinarySource(decoded.Data))
	if !ok {
		return "", decoded.ChainText(), formatError("detect", errors.New("no plugin recognized the data"))
	}
	return id, decoded.ChainText(), nil
}

func stampSourceProperties(props *Properties, decoded *DecodedContainer) {
	sum := md5.Sum(decoded.Data)
	props.Set(PropMD5, hex.EncodeToString(sum[:]))
	props.Set(PropCRC, fmt.Sprintf("%08X", decoded.FixedCRC))
	props.SetInt(PropSize, decoded.Size())
	props.Set(PropContainer, decoded.ChainText())
}
