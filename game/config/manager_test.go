package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
)

func testLevel(name string) *engine.LevelConfig {
	return &engine.LevelConfig{
		Name:        name,
		Description: "Test level",
		Traffic:     2,
		Roads: []engine.RoadConfig{
			{ID: "a", Waypoints: []road.Waypoint{{X: 0, Width: 6}, {X: 40, Width: 6}}},
			{ID: "b", Waypoints: []road.Waypoint{{X: 40, Width: 6}, {X: 40, Z: 40, Width: 6}}},
		},
		Connections: []engine.ConnectionConfig{
			{From: "a", FromEnd: road.Finish, To: "b", ToEnd: road.Start, Bidirectional: true},
		},
	}
}

func writeLevel(t *testing.T, dir, file string, level *engine.LevelConfig) {
	t.Helper()
	require.NoError(t, engine.SaveLevel(filepath.Join(dir, file), level))
}

// memSource is an in-memory Source that counts loads.
type memSource struct {
	kind   string
	levels map[string]*engine.LevelConfig
	loads  int
	mu     sync.Mutex
}

func newMemSource(kind string) *memSource {
	return &memSource{kind: kind, levels: make(map[string]*engine.LevelConfig)}
}

func (s *memSource) Kind() string { return s.kind }

func (s *memSource) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.levels {
		names = append(names, name)
	}
	return names, nil
}

func (s *memSource) Load(ctx context.Context, name string) (*engine.LevelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	level, ok := s.levels[name]
	if !ok {
		return nil, fmt.Errorf("level %q: %w", name, fs.ErrNotExist)
	}
	return level, nil
}

func (s *memSource) Save(ctx context.Context, name string, level *engine.LevelConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[name] = level
	return nil
}

func TestNewDirManager(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := NewDirManager(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorContains(t, err, "level directory does not exist")
	})

	t.Run("empty directory uses built-in level", func(t *testing.T) {
		m, err := NewDirManager(t.TempDir())
		require.NoError(t, err)
		name, level := m.GetDefault()
		assert.Equal(t, "default", name)
		require.NotNil(t, level)
		assert.NoError(t, engine.ValidateLevelConfig(level))
	})

	t.Run("prefers crossroads", func(t *testing.T) {
		dir := t.TempDir()
		writeLevel(t, dir, "alpha.json", testLevel("Alpha"))
		writeLevel(t, dir, "crossroads.yaml", testLevel("Crossroads"))

		m, err := NewDirManager(dir)
		require.NoError(t, err)
		name, level := m.GetDefault()
		assert.Equal(t, "crossroads", name)
		assert.Equal(t, "Crossroads", level.Name)
	})

	t.Run("falls back to first level", func(t *testing.T) {
		dir := t.TempDir()
		writeLevel(t, dir, "zeta.json", testLevel("Zeta"))
		writeLevel(t, dir, "beta.yml", testLevel("Beta"))

		m, err := NewDirManager(dir)
		require.NoError(t, err)
		name, _ := m.GetDefault()
		assert.Equal(t, "beta", name)
	})

	_, err := NewManager()
	assert.ErrorIs(t, err, ErrNoSource)
}

func TestLoadLevel(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "ring.yaml", testLevel("Ring"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": ""}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "garbage.json"), []byte(`{{{`), 0644))

	m, err := NewDirManager(dir)
	require.NoError(t, err)
	ctx := context.Background()

	level, err := m.LoadLevel(ctx, "ring")
	require.NoError(t, err)
	assert.Equal(t, "Ring", level.Name)

	again, err := m.LoadLevel(ctx, "ring.yaml")
	require.NoError(t, err)
	assert.Same(t, level, again)

	_, err = m.LoadLevel(ctx, "missing")
	assert.ErrorIs(t, err, ErrLevelNotFound)

	_, err = m.LoadLevel(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, ErrLevelNotFound)

	_, err = m.LoadLevel(ctx, "broken")
	assert.ErrorIs(t, err, ErrInvalidLevel)

	_, err = m.LoadLevel(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidLevel)
}

func TestListLevelsSkipsInvalid(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "ring.yaml", testLevel("Ring"))
	writeLevel(t, dir, "corner.json", testLevel("Corner"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"name": ""}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0755))

	m, err := NewDirManager(dir)
	require.NoError(t, err)

	levels, err := m.ListLevels(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "corner", levels[0].LevelID)
	assert.Equal(t, "Corner", levels[0].Name)
	assert.Equal(t, "dir", levels[0].Source)
	assert.Equal(t, 2, levels[0].Roads)
	assert.Equal(t, 1, levels[0].Connections)
	assert.Equal(t, 2, levels[0].Traffic)
	assert.Equal(t, "ring", levels[1].LevelID)
}

func TestSourcesAreSearchedInOrder(t *testing.T) {
	db := newMemSource("postgres")
	db.levels["shared"] = testLevel("From DB")
	files := newMemSource("dir")
	files.levels["shared"] = testLevel("From files")
	files.levels["extra"] = testLevel("Extra")

	m, err := NewManager(db, files)
	require.NoError(t, err)
	ctx := context.Background()

	level, err := m.LoadLevel(ctx, "shared")
	require.NoError(t, err)
	assert.Equal(t, "From DB", level.Name)

	levels, err := m.ListLevels(ctx)
	require.NoError(t, err)
	require.Len(t, levels, 2)
	assert.Equal(t, "extra", levels[0].LevelID)
	assert.Equal(t, "dir", levels[0].Source)
	assert.Equal(t, "postgres", levels[1].Source)

	require.NoError(t, m.SaveLevel(ctx, "fresh", testLevel("Fresh")))
	assert.Contains(t, db.levels, "fresh")
	assert.NotContains(t, files.levels, "fresh")
}

func TestSaveLevel(t *testing.T) {
	dir := t.TempDir()
	writeLevel(t, dir, "ring.yaml", testLevel("Ring"))
	m, err := NewDirManager(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.SaveLevel(ctx, "new", testLevel("New")))
	_, err = os.Stat(filepath.Join(dir, "new.json"))
	assert.NoError(t, err)

	// Existing files keep their format.
	updated := testLevel("Ring v2")
	require.NoError(t, m.SaveLevel(ctx, "ring", updated))
	_, err = os.Stat(filepath.Join(dir, "ring.json"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	loaded, err := m.LoadLevel(ctx, "ring")
	require.NoError(t, err)
	assert.Equal(t, "Ring v2", loaded.Name)

	assert.ErrorIs(t, m.SaveLevel(ctx, "bad", &engine.LevelConfig{}), ErrInvalidLevel)
	assert.ErrorIs(t, m.SaveLevel(ctx, "../escape", testLevel("Escape")), ErrInvalidLevel)
}

func TestSetDefaultAndRefresh(t *testing.T) {
	src := newMemSource("mem")
	src.levels["one"] = testLevel("One")
	src.levels["two"] = testLevel("Two")

	m, err := NewManager(src)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, m.SetDefault(ctx, "two"))
	name, level := m.GetDefault()
	assert.Equal(t, "two", name)
	assert.Equal(t, "Two", level.Name)
	assert.ErrorIs(t, m.SetDefault(ctx, "three"), ErrLevelNotFound)

	_, err = m.LoadLevel(ctx, "one")
	require.NoError(t, err)
	loads := src.loads
	_, err = m.LoadLevel(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, loads, src.loads, "cached level should not hit the source")

	src.levels["one"] = testLevel("One v2")
	require.NoError(t, m.RefreshCache(ctx))
	level, err = m.LoadLevel(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "One v2", level.Name)
}

func TestConcurrentLoads(t *testing.T) {
	src := newMemSource("mem")
	src.levels["shared"] = testLevel("Shared")
	m, err := NewManager(src)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*engine.LevelConfig, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = m.LoadLevel(context.Background(), "shared")
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
