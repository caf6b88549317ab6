package config

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
)

// Source is a place levels are read from and written to. Load reports an
// unknown name with an error matching fs.ErrNotExist.
type Source interface {
	Kind() string
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, name string) (*engine.LevelConfig, error)
	Save(ctx context.Context, name string, level *engine.LevelConfig) error
}

var levelExts = []string{".json", ".yaml", ".yml"}

// DirSource reads JSON and YAML level files from a directory. The level name
// is the file name without its extension.
type DirSource struct {
	dir string
}

// NewDirSource creates a source over an existing directory
func NewDirSource(dir string) (*DirSource, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("level directory does not exist: %s", dir)
	}
	return &DirSource{dir: dir}, nil
}

// Kind identifies the source in listings
func (d *DirSource) Kind() string {
	return "dir"
}

// Dir returns the directory the source reads
func (d *DirSource) Dir() string {
	return d.dir
}

// List returns the sorted names of every level file
func (d *DirSource) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read level directory: %w", err)
	}

	seen := make(map[string]bool)
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !isLevelFile(entry.Name()) {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Load reads the level stored under name
func (d *DirSource) Load(ctx context.Context, name string) (*engine.LevelConfig, error) {
	path, ok := d.find(name)
	if !ok {
		return nil, fmt.Errorf("level %q: %w", name, fs.ErrNotExist)
	}
	return engine.LoadLevel(path)
}

// Save writes level under name, keeping the format of an existing file and
// defaulting to JSON
func (d *DirSource) Save(ctx context.Context, name string, level *engine.LevelConfig) error {
	path, ok := d.find(name)
	if !ok {
		path = filepath.Join(d.dir, name)
		if !isLevelFile(name) {
			path += ".json"
		}
	}
	return engine.SaveLevel(path, level)
}

// find locates the file for name, trying each known extension when name has
// none
func (d *DirSource) find(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.HasPrefix(name, ".") {
		return "", false
	}
	candidates := []string{name}
	if !isLevelFile(name) {
		candidates = candidates[:0]
		for _, ext := range levelExts {
			candidates = append(candidates, name+ext)
		}
	}
	for _, c := range candidates {
		path := filepath.Join(d.dir, c)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

func isLevelFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range levelExts {
		if ext == e {
			return true
		}
	}
	return false
}
