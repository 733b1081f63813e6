// Package manifest handles thingdef.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "thingdef.toml"

// DefaultLump is the lump name searched for when none is configured.
const DefaultLump = "DECORATE"

// Manifest represents a thingdef.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Sources Sources     `toml:"sources"`
	Dump    DumpConfig  `toml:"dump"`
	Image   ImageConfig `toml:"image"`
	Log     LogConfig   `toml:"log"`

	// Dir is the directory containing the thingdef.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name string `toml:"name"`
}

// Sources configures where DECORATE lumps are found. Paths may name
// directories, loose files or pk3/zip archives.
type Sources struct {
	Paths []string `toml:"paths"`
	Lump  string   `toml:"lump"`
}

// DumpConfig configures the disassembly outputs. Empty paths disable them.
type DumpConfig struct {
	Disasm   string `toml:"disasm"`
	Database string `toml:"database"`
}

// ImageConfig configures image output.
type ImageConfig struct {
	Output string `toml:"output"`
}

// LogConfig configures logging. File empty means stderr.
type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Default returns the manifest used when no thingdef.toml exists.
func Default(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m := &Manifest{Dir: abs}
	m.applyDefaults()
	return m, nil
}

// Load parses a thingdef.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	md, err := toml.Decode(string(data), &m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %s in %s", undecoded[0], path)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if len(m.Sources.Paths) == 0 {
		m.Sources.Paths = []string{"."}
	}
	if m.Sources.Lump == "" {
		m.Sources.Lump = DefaultLump
	}
}

// FindAndLoad walks up from startDir to find a thingdef.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// SourcePaths returns absolute paths for the configured sources.
func (m *Manifest) SourcePaths() []string {
	var paths []string
	for _, p := range m.Sources.Paths {
		paths = append(paths, m.resolve(p))
	}
	return paths
}

// DisasmPath returns the text dump path, or "" when disabled.
func (m *Manifest) DisasmPath() string {
	return m.resolve(m.Dump.Disasm)
}

// DatabasePath returns the SQLite dump path, or "" when disabled.
func (m *Manifest) DatabasePath() string {
	return m.resolve(m.Dump.Database)
}

// ImagePath returns the image output path, or "" when disabled.
func (m *Manifest) ImagePath() string {
	return m.resolve(m.Image.Output)
}

// LogPath returns the log file path, or "" for stderr.
func (m *Manifest) LogPath() string {
	return m.resolve(m.Log.File)
}

func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}
