package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// ValidateLevelConfig checks a level for structural problems. Roads with fewer
// than two waypoints are allowed; they simply take no part in geometric
// queries.
func ValidateLevelConfig(config *LevelConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidLevel)
	}
	if config.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidLevel)
	}
	if len(config.Roads) > MaxRoads {
		return fmt.Errorf("%w: at most %d roads allowed, got %d", ErrInvalidLevel, MaxRoads, len(config.Roads))
	}
	if config.Traffic < 0 || config.Traffic > MaxTraffic {
		return fmt.Errorf("%w: traffic must be between 0 and %d, got %d", ErrInvalidLevel, MaxTraffic, config.Traffic)
	}
	if config.CruiseSpeed < 0 || math.IsNaN(config.CruiseSpeed) {
		return fmt.Errorf("%w: cruise_speed must not be negative, got %v", ErrInvalidLevel, config.CruiseSpeed)
	}

	ids := make(map[string]bool, len(config.Roads))
	for i, rc := range config.Roads {
		if rc.ID == "" {
			return fmt.Errorf("%w: road %d has no id", ErrInvalidLevel, i+1)
		}
		if ids[rc.ID] {
			return fmt.Errorf("%w: duplicate road id %q", ErrInvalidLevel, rc.ID)
		}
		ids[rc.ID] = true

		if rc.LaneCount < 0 || rc.LaneCount > MaxLaneCount {
			return fmt.Errorf("%w: road %q lane_count must be between 1 and %d, got %d", ErrInvalidLevel, rc.ID, MaxLaneCount, rc.LaneCount)
		}
		for j, wp := range rc.Waypoints {
			if !finite(wp.X) || !finite(wp.Y) || !finite(wp.Z) {
				return fmt.Errorf("%w: road %q waypoint %d has a non-finite position", ErrInvalidLevel, rc.ID, j)
			}
			if wp.Width < 0 || !finite(wp.Width) {
				return fmt.Errorf("%w: road %q waypoint %d width must not be negative", ErrInvalidLevel, rc.ID, j)
			}
			if wp.SpeedLimit < 0 || !finite(wp.SpeedLimit) {
				return fmt.Errorf("%w: road %q waypoint %d speed_limit must not be negative", ErrInvalidLevel, rc.ID, j)
			}
		}
	}

	for i, c := range config.Connections {
		if !ids[c.From] {
			return fmt.Errorf("%w: connection %d references unknown road %q", ErrInvalidLevel, i+1, c.From)
		}
		if !ids[c.To] {
			return fmt.Errorf("%w: connection %d references unknown road %q", ErrInvalidLevel, i+1, c.To)
		}
	}

	return nil
}

// BuildNetwork validates config and creates the network it describes.
func BuildNetwork(config *LevelConfig) (*road.Network, error) {
	if err := ValidateLevelConfig(config); err != nil {
		return nil, err
	}

	net := road.NewNetwork()
	if config.Seed != 0 {
		net.Seed(config.Seed)
	}

	for _, rc := range config.Roads {
		net.AddRoad(newRoad(rc))
	}
	for _, c := range config.Connections {
		net.Connect(c.From, c.FromEnd, c.To, c.ToEnd)
		if c.Bidirectional {
			net.Connect(c.To, c.ToEnd, c.From, c.FromEnd)
		}
	}

	return net, nil
}

func newRoad(rc RoadConfig) *road.Road {
	r := road.New(rc.ID)
	if rc.LaneCount > 0 {
		r.SetLaneCount(rc.LaneCount)
	}
	r.SetOneWay(rc.OneWay)
	for _, wp := range rc.Waypoints {
		r.AddWaypoint(wp.X, wp.Y, wp.Z, wp.Width, wp.SpeedLimit)
	}
	return r
}

// DescribeRoad converts a road back into its level form.
func DescribeRoad(r *road.Road) RoadConfig {
	return RoadConfig{
		ID:        r.ID(),
		OneWay:    r.OneWay(),
		LaneCount: r.LaneCount(),
		Waypoints: r.Waypoints(),
	}
}

// DescribeNetwork converts a network back into level roads and connections.
// Every stored link becomes its own one-way connection. Links that point at
// roads no longer in the network are left out.
func DescribeNetwork(net *road.Network) ([]RoadConfig, []ConnectionConfig) {
	roads := make([]RoadConfig, 0, net.Len())
	var conns []ConnectionConfig

	for _, r := range net.Roads() {
		roads = append(roads, DescribeRoad(r))
		for _, end := range []road.End{road.Start, road.Finish} {
			for _, ep := range net.Links(r.ID(), end) {
				if _, ok := net.Road(ep.RoadID); !ok {
					continue
				}
				conns = append(conns, ConnectionConfig{
					From:    r.ID(),
					FromEnd: end,
					To:      ep.RoadID,
					ToEnd:   ep.End,
				})
			}
		}
	}

	return roads, conns
}

// ParseLevel decodes a level from JSON or YAML. format is a file extension
// such as ".yaml"; anything other than .yaml or .yml is read as JSON.
func ParseLevel(data []byte, format string) (*LevelConfig, error) {
	var config LevelConfig
	switch strings.ToLower(format) {
	case ".yaml", ".yml", "yaml", "yml":
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse level yaml: %w", ErrInvalidLevel, err)
		}
	default:
		if err := json.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("%w: failed to parse level json: %w", ErrInvalidLevel, err)
		}
	}

	if err := ValidateLevelConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// LoadLevel reads and validates a level file.
func LoadLevel(path string) (*LevelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading level %s: %w", path, err)
	}
	return ParseLevel(data, filepath.Ext(path))
}

// MarshalLevel encodes a level in the format implied by ext.
func MarshalLevel(config *LevelConfig, ext string) ([]byte, error) {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml", "yaml", "yml":
		return yaml.Marshal(config)
	default:
		return json.MarshalIndent(config, "", "  ")
	}
}

// SaveLevel validates config and writes it to path.
func SaveLevel(path string, config *LevelConfig) error {
	if err := ValidateLevelConfig(config); err != nil {
		return err
	}
	data, err := MarshalLevel(config, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
