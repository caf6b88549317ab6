package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/service"
)

var (
	ErrLevelNotFound = errors.New("level not found")
	ErrInvalidLevel  = errors.New("invalid level")
	ErrNoSource      = errors.New("no level source configured")
)

// DefaultLevelName is tried first when picking the default level
const DefaultLevelName = "crossroads"

// Manager handles level loading and caching across one or more sources.
// Sources are searched in order; saves go to the first one.
type Manager struct {
	sources      []Source
	defaultName  string
	defaultLevel *engine.LevelConfig
	levels       map[string]*engine.LevelConfig
	origins      map[string]string
	mu           sync.RWMutex
}

// NewManager creates a level manager over the given sources
func NewManager(sources ...Source) (*Manager, error) {
	if len(sources) == 0 {
		return nil, ErrNoSource
	}

	m := &Manager{
		sources: sources,
		levels:  make(map[string]*engine.LevelConfig),
		origins: make(map[string]string),
	}

	if err := m.loadDefaultLevel(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// NewDirManager creates a level manager reading level files from dir
func NewDirManager(dir string) (*Manager, error) {
	src, err := NewDirSource(dir)
	if err != nil {
		return nil, err
	}
	return NewManager(src)
}

// LoadLevel loads a level by name
func (m *Manager) LoadLevel(ctx context.Context, name string) (*engine.LevelConfig, error) {
	key := levelKey(name)

	m.mu.RLock()
	// Check cache first
	if level, exists := m.levels[key]; exists {
		m.mu.RUnlock()
		return level, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[key]; exists {
		return level, nil
	}

	for _, src := range m.sources {
		level, err := src.Load(ctx, key)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if errors.Is(err, engine.ErrInvalidLevel) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidLevel, err)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load level %s from %s: %w", key, src.Kind(), err)
		}

		m.levels[key] = level
		m.origins[key] = src.Kind()
		return level, nil
	}

	return nil, ErrLevelNotFound
}

// ListLevels returns information about every loadable level. Invalid levels
// are skipped.
func (m *Manager) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	seen := make(map[string]bool)
	var names []string

	for _, src := range m.sources {
		list, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list %s levels: %w", src.Kind(), err)
		}
		for _, name := range list {
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)

	levels := make([]*service.LevelInfo, 0, len(names))
	for _, name := range names {
		level, err := m.LoadLevel(ctx, name)
		if err != nil {
			slog.Warn("skipping level", "level", name, "error", err)
			continue
		}

		m.mu.RLock()
		origin := m.origins[name]
		m.mu.RUnlock()

		levels = append(levels, &service.LevelInfo{
			LevelID:     name,
			Source:      origin,
			Name:        level.Name,
			Description: level.Description,
			Roads:       len(level.Roads),
			Connections: len(level.Connections),
			Traffic:     level.Traffic,
		})
	}

	return levels, nil
}

// GetDefault returns the default level and the name it was loaded under
func (m *Manager) GetDefault() (string, *engine.LevelConfig) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultName, m.defaultLevel
}

// SetDefault sets the default level by name
func (m *Manager) SetDefault(ctx context.Context, name string) error {
	level, err := m.LoadLevel(ctx, name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultName = levelKey(name)
	m.defaultLevel = level
	return nil
}

// RefreshCache drops every cached level and reloads the default
func (m *Manager) RefreshCache(ctx context.Context) error {
	m.mu.Lock()
	m.levels = make(map[string]*engine.LevelConfig)
	m.origins = make(map[string]string)
	m.mu.Unlock()

	return m.loadDefaultLevel(ctx)
}

// loadDefaultLevel picks DefaultLevelName, then the first listed level, then
// a built-in single road
func (m *Manager) loadDefaultLevel(ctx context.Context) error {
	name := DefaultLevelName
	level, err := m.LoadLevel(ctx, name)
	if err != nil {
		levels, listErr := m.ListLevels(ctx)
		if listErr != nil || len(levels) == 0 {
			name, level = "default", minimalLevel()
		} else {
			name = levels[0].LevelID
			level, err = m.LoadLevel(ctx, name)
			if err != nil {
				name, level = "default", minimalLevel()
			}
		}
	}

	m.mu.Lock()
	m.defaultName = name
	m.defaultLevel = level
	m.mu.Unlock()
	return nil
}

// SaveLevel validates level and writes it to the primary source
func (m *Manager) SaveLevel(ctx context.Context, name string, level *engine.LevelConfig) error {
	if err := engine.ValidateLevelConfig(level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLevel, err)
	}

	key := levelKey(name)
	if key == "" || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("%w: bad level name %q", ErrInvalidLevel, name)
	}

	primary := m.sources[0]
	if err := primary.Save(ctx, key, level); err != nil {
		return fmt.Errorf("failed to save level %s to %s: %w", key, primary.Kind(), err)
	}

	m.mu.Lock()
	m.levels[key] = level
	m.origins[key] = primary.Kind()
	m.mu.Unlock()

	return nil
}

// levelKey strips a level file extension so "ring.yaml" and "ring" share a
// cache entry
func levelKey(name string) string {
	if isLevelFile(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

// minimalLevel is a single straight road used when no level can be loaded
func minimalLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        "default",
		Description: "Default single road",
		Roads: []engine.RoadConfig{
			{
				ID: "main",
				Waypoints: []road.Waypoint{
					{X: 0, Y: 0, Z: 0, Width: 8, SpeedLimit: 15},
					{X: 200, Y: 0, Z: 0, Width: 8, SpeedLimit: 15},
				},
			},
		},
	}
}
