package engine

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

func TestValidateLevelConfig(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*LevelConfig)
		wantErr string
	}{
		{name: "valid", modify: func(*LevelConfig) {}},
		{name: "missing name", modify: func(c *LevelConfig) { c.Name = "" }, wantErr: "name is required"},
		{name: "negative traffic", modify: func(c *LevelConfig) { c.Traffic = -1 }, wantErr: "traffic must be between"},
		{name: "too much traffic", modify: func(c *LevelConfig) { c.Traffic = MaxTraffic + 1 }, wantErr: "traffic must be between"},
		{name: "negative cruise", modify: func(c *LevelConfig) { c.CruiseSpeed = -3 }, wantErr: "cruise_speed"},
		{name: "empty road id", modify: func(c *LevelConfig) { c.Roads[1].ID = "" }, wantErr: "road 2 has no id"},
		{name: "duplicate road", modify: func(c *LevelConfig) { c.Roads[2].ID = "a" }, wantErr: `duplicate road id "a"`},
		{name: "lane count", modify: func(c *LevelConfig) { c.Roads[0].LaneCount = MaxLaneCount + 1 }, wantErr: "lane_count"},
		{name: "nan waypoint", modify: func(c *LevelConfig) { c.Roads[0].Waypoints[1].Z = math.NaN() }, wantErr: "non-finite position"},
		{name: "negative width", modify: func(c *LevelConfig) { c.Roads[0].Waypoints[0].Width = -1 }, wantErr: "width must not be negative"},
		{name: "negative limit", modify: func(c *LevelConfig) { c.Roads[0].Waypoints[0].SpeedLimit = -1 }, wantErr: "speed_limit must not be negative"},
		{name: "unknown connection", modify: func(c *LevelConfig) { c.Connections[0].To = "zz" }, wantErr: `unknown road "zz"`},
		{name: "single waypoint allowed", modify: func(c *LevelConfig) { c.Roads[0].Waypoints = c.Roads[0].Waypoints[:1] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := chainLevel()
			tt.modify(cfg)
			err := ValidateLevelConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidLevel)
			assert.Contains(t, err.Error(), "level validation")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.Error(t, ValidateLevelConfig(nil))
}

func TestBuildNetwork(t *testing.T) {
	cfg := chainLevel()
	cfg.Roads[1].OneWay = true
	cfg.Roads[1].LaneCount = 3
	cfg.Connections[1].Bidirectional = true

	net, err := BuildNetwork(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, net.Len())
	assert.Equal(t, 3, net.LinkCount())

	b, ok := net.Road("b")
	require.True(t, ok)
	assert.True(t, b.OneWay())
	assert.Equal(t, 3, b.LaneCount())
	assert.InDelta(t, 100, b.Length(), 1e-9)

	assert.Equal(t, []string{"b"}, net.Connections("a", road.Finish))
	assert.Equal(t, []string{"b"}, net.Connections("c", road.Start))
	assert.Equal(t, []road.Endpoint{{RoadID: "b", End: road.Finish}}, net.Links("c", road.Start))

	_, err = BuildNetwork(&LevelConfig{})
	assert.Error(t, err)
}

func TestDescribeNetworkSkipsDanglingLinks(t *testing.T) {
	net, err := BuildNetwork(chainLevel())
	require.NoError(t, err)
	require.True(t, net.RemoveRoad("c"))

	roads, conns := DescribeNetwork(net)
	require.Len(t, roads, 2)
	assert.Equal(t, "a", roads[0].ID)
	assert.Equal(t, 2, roads[0].LaneCount)
	assert.Len(t, roads[0].Waypoints, 2)

	// b:end -> c:start survives in the network but not in the description.
	assert.Equal(t, 2, net.LinkCount())
	assert.Equal(t, []ConnectionConfig{
		{From: "a", FromEnd: road.Finish, To: "b", ToEnd: road.Start},
	}, conns)
}

func TestParseLevelJSON(t *testing.T) {
	data := []byte(`{
		"name": "Tiny",
		"traffic": 1,
		"controller": {"dead_zone": 0.2, "smoothing": 0, "throttle_sensitivity": 1, "steering_sensitivity": 1, "auto_reverse": false},
		"roads": [
			{"id": "x", "waypoints": [{"x": 0, "y": 0, "z": 0, "width": 4, "speed_limit": 10}, {"x": 0, "y": 0, "z": 50, "width": 4, "speed_limit": 10}]},
			{"id": "y", "one_way": true, "waypoints": [{"x": 0, "y": 0, "z": 50, "width": 4}, {"x": 50, "y": 0, "z": 50, "width": 4}]}
		],
		"connections": [{"from": "x", "from_end": "end", "to": "y", "to_end": "start"}]
	}`)

	cfg, err := ParseLevel(data, ".json")
	require.NoError(t, err)
	assert.Equal(t, "Tiny", cfg.Name)
	require.NotNil(t, cfg.Controller)
	assert.Equal(t, 0.2, cfg.Controller.DeadZone)
	assert.False(t, cfg.Controller.AutoReverse)
	require.Len(t, cfg.Roads, 2)
	assert.True(t, cfg.Roads[1].OneWay)
	assert.Equal(t, road.Finish, cfg.Connections[0].FromEnd)
	assert.Equal(t, road.Start, cfg.Connections[0].ToEnd)

	_, err = ParseLevel([]byte(`{"name": `), ".json")
	assert.ErrorContains(t, err, "failed to parse level json")

	_, err = ParseLevel([]byte(`{"roads": []}`), "")
	assert.ErrorContains(t, err, "name is required")
}

func TestParseLevelYAML(t *testing.T) {
	data := []byte(`
name: Ring
seed: 99
cruise_speed: 12
roads:
  - id: north
    lane_count: 4
    waypoints:
      - {x: 0, y: 0, z: 0, width: 6, speed_limit: 20}
      - {x: 40, y: 0, z: 0, width: 6, speed_limit: 20}
  - id: south
    waypoints:
      - {x: 40, y: 0, z: 0, width: 6}
      - {x: 0, y: 0, z: 0, width: 6}
connections:
  - {from: north, from_end: end, to: south, to_end: start, bidirectional: true}
  - {from: south, from_end: finish, to: north, to_end: start}
`)

	cfg, err := ParseLevel(data, ".yaml")
	require.NoError(t, err)
	assert.Equal(t, uint64(99), cfg.Seed)
	assert.Equal(t, 12.0, cfg.CruiseSpeed)
	assert.Equal(t, 4, cfg.Roads[0].LaneCount)
	assert.Equal(t, 20.0, cfg.Roads[0].Waypoints[1].SpeedLimit)
	require.Len(t, cfg.Connections, 2)
	assert.True(t, cfg.Connections[0].Bidirectional)
	assert.Equal(t, road.Finish, cfg.Connections[1].FromEnd)

	_, err = ParseLevel([]byte("name: [unterminated"), "yml")
	assert.ErrorContains(t, err, "failed to parse level yaml")

	_, err = ParseLevel([]byte("name: Bad\nroads:\n  - id: a\nconnections:\n  - {from: a, from_end: middle, to: a}\n"), ".yaml")
	assert.Error(t, err)
}

func TestSaveAndLoadLevel(t *testing.T) {
	dir := t.TempDir()

	for _, name := range []string{"chain.json", "chain.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			cfg := chainLevel()
			cfg.Description = "saved"
			require.NoError(t, SaveLevel(path, cfg))

			loaded, err := LoadLevel(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}

	assert.Error(t, SaveLevel(filepath.Join(dir, "bad.json"), &LevelConfig{}))
	_, err := os.Stat(filepath.Join(dir, "bad.json"))
	assert.True(t, os.IsNotExist(err))

	_, err = LoadLevel(filepath.Join(dir, "missing.json"))
	assert.ErrorContains(t, err, "reading level")
}
