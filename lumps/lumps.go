// Package lumps finds DECORATE lumps in directories and pk3/zip archives.
package lumps

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/chazu/thingdef/compiler"
)

var log = commonlog.GetLogger("thingdef.lumps")

// Find returns every lump called lumpName found under paths, in discovery
// order. A path may be a directory (walked in lexical order), an archive, or
// a loose file, which is read whatever its name. A lump matches when its base
// name without extension equals lumpName, ignoring case.
func Find(paths []string, lumpName string) ([]compiler.Source, error) {
	var sources []compiler.Source
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("cannot access %q: %w", path, err)
		}

		var found []compiler.Source
		switch {
		case info.IsDir():
			found, err = findInDir(path, lumpName)
		case isArchive(path):
			found, err = findInArchive(path, lumpName)
		default:
			var src compiler.Source
			src, err = readFile(path)
			found = []compiler.Source{src}
		}
		if err != nil {
			return nil, err
		}
		sources = append(sources, found...)
	}
	log.Infof("found %d %s lumps", len(sources), lumpName)
	return sources, nil
}

func findInDir(dir, lumpName string) ([]compiler.Source, error) {
	var sources []compiler.Source
	err := filepath.Walk(dir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		if isArchive(p) {
			found, err := findInArchive(p, lumpName)
			if err != nil {
				return err
			}
			sources = append(sources, found...)
			return nil
		}
		if matches(p, lumpName) {
			src, err := readFile(p)
			if err != nil {
				return err
			}
			sources = append(sources, src)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", dir, err)
	}
	return sources, nil
}

func findInArchive(path, lumpName string) ([]compiler.Source, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %q: %w", path, err)
	}
	defer r.Close()

	var sources []compiler.Source
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !matches(f.Name, lumpName) {
			continue
		}
		text, err := readEntry(f)
		if err != nil {
			return nil, fmt.Errorf("reading %s in %q: %w", f.Name, path, err)
		}
		log.Debugf("lump %s:%s", path, f.Name)
		sources = append(sources, compiler.Source{Name: path + ":" + f.Name, Text: text})
	}
	return sources, nil
}

func readEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readFile(path string) (compiler.Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return compiler.Source{}, fmt.Errorf("cannot read %q: %w", path, err)
	}
	log.Debugf("lump %s", path)
	return compiler.Source{Name: path, Text: string(data)}, nil
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pk3", ".zip":
		return true
	}
	return false
}

// matches reports whether the base name of path, without extension, is
// lumpName. Archive entries use forward slashes on every platform.
func matches(path, lumpName string) bool {
	base := path[strings.LastIndexAny(path, `/\`)+1:]
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.EqualFold(base, lumpName)
}
