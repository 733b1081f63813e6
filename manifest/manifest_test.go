package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeManifest(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "doom2"

[sources]
paths = ["actors", "mods/extra.pk3"]
lump = "THINGDEF"

[dump]
disasm = "disasm.txt"
database = "disasm.db"

[image]
output = "actors.img"

[log]
verbosity = 2
file = "build.log"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Project.Name != "doom2" {
		t.Errorf("project name = %q, want doom2", m.Project.Name)
	}
	if len(m.Sources.Paths) != 2 {
		t.Errorf("source paths count = %d, want 2", len(m.Sources.Paths))
	}
	if m.Sources.Lump != "THINGDEF" {
		t.Errorf("lump = %q, want THINGDEF", m.Sources.Lump)
	}
	if m.Dump.Disasm != "disasm.txt" || m.Dump.Database != "disasm.db" {
		t.Errorf("dump = %+v", m.Dump)
	}
	if m.Image.Output != "actors.img" {
		t.Errorf("image output = %q, want actors.img", m.Image.Output)
	}
	if m.Log.Verbosity != 2 || m.Log.File != "build.log" {
		t.Errorf("log = %+v", m.Log)
	}
	if m.DatabasePath() != filepath.Join(m.Dir, "disasm.db") {
		t.Errorf("DatabasePath() = %q", m.DatabasePath())
	}
}

func TestLoadManifestDefaults(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[project]
name = "minimal"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(m.Sources.Paths) != 1 || m.Sources.Paths[0] != "." {
		t.Errorf("default source paths = %v, want [.]", m.Sources.Paths)
	}
	if m.Sources.Lump != DefaultLump {
		t.Errorf("default lump = %q, want %s", m.Sources.Lump, DefaultLump)
	}
	for name, p := range map[string]string{
		"disasm":   m.DisasmPath(),
		"database": m.DatabasePath(),
		"image":    m.ImagePath(),
		"log":      m.LogPath(),
	} {
		if p != "" {
			t.Errorf("%s path = %q, want disabled", name, p)
		}
	}
}

func TestLoadManifestUnknownKey(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, `
[sources]
dirs = ["src"]
`)

	_, err := Load(dir)
	if err == nil || !strings.Contains(err.Error(), "sources.dirs") {
		t.Errorf("err = %v, want unknown key sources.dirs", err)
	}
}

func TestLoadManifestSyntaxError(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "[project\nname = ")

	if _, err := Load(dir); err == nil {
		t.Error("expected a parse error")
	}
}

func TestFindAndLoad(t *testing.T) {
	// Create nested directory structure
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	writeManifest(t, dir, `[project]
name = "found-project"
`)

	// Should find manifest when starting from a deep subdirectory
	m, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if m == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if m.Project.Name != "found-project" {
		t.Errorf("project name = %q, want found-project", m.Project.Name)
	}
}

func TestFindAndLoadNotFound(t *testing.T) {
	dir := t.TempDir()
	m, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if m != nil {
		t.Error("expected nil manifest when no thingdef.toml exists")
	}
}

func TestSourcePaths(t *testing.T) {
	m := &Manifest{
		Dir: "/wad",
		Sources: Sources{
			Paths: []string{"actors", "/abs/extra.pk3"},
		},
	}

	paths := m.SourcePaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/wad/actors" {
		t.Errorf("paths[0] = %q, want /wad/actors", paths[0])
	}
	if paths[1] != "/abs/extra.pk3" {
		t.Errorf("paths[1] = %q, want /abs/extra.pk3", paths[1])
	}
}

func TestDefault(t *testing.T) {
	m, err := Default(".")
	if err != nil {
		t.Fatalf("Default: %v", err)
	}
	if !filepath.IsAbs(m.Dir) {
		t.Errorf("Dir = %q, want absolute", m.Dir)
	}
	if m.Sources.Lump != DefaultLump || len(m.Sources.Paths) != 1 {
		t.Errorf("sources = %+v", m.Sources)
	}
}
