package engine

import (
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
)

// EventType names something that happened during a tick or an edit.
type EventType string

const (
	EventSpawn    EventType = "spawn"
	EventArrived  EventType = "arrived"
	EventStranded EventType = "stranded"
	EventReverse  EventType = "reverse"
	EventForward  EventType = "forward"
	EventOffRoad  EventType = "off_road"
	EventOnRoad   EventType = "on_road"
	EventReset    EventType = "reset"
	EventNetwork  EventType = "network"

	// Validation constants
	MaxLaneCount       = 16
	MaxRoads           = 10000
	MaxTraffic         = 256
	MaxHistory         = 500
	DefaultCruiseSpeed = 15.0
)

// RoadConfig describes one road of a level.
type RoadConfig struct {
	ID        string          `json:"id" yaml:"id"`
	OneWay    bool            `json:"one_way,omitempty" yaml:"one_way,omitempty"`
	LaneCount int             `json:"lane_count,omitempty" yaml:"lane_count,omitempty"`
	Waypoints []road.Waypoint `json:"waypoints" yaml:"waypoints"`
}

// ConnectionConfig describes a link between two road endpoints. A
// bidirectional connection also stores the reverse link.
type ConnectionConfig struct {
	From          string   `json:"from" yaml:"from"`
	FromEnd       road.End `json:"from_end" yaml:"from_end"`
	To            string   `json:"to" yaml:"to"`
	ToEnd         road.End `json:"to_end" yaml:"to_end"`
	Bidirectional bool     `json:"bidirectional,omitempty" yaml:"bidirectional,omitempty"`
}

// LevelConfig is the on-disk description of a road network and the
// simulation parameters that go with it.
type LevelConfig struct {
	Name        string             `json:"name" yaml:"name"`
	Description string             `json:"description,omitempty" yaml:"description,omitempty"`
	Seed        uint64             `json:"seed,omitempty" yaml:"seed,omitempty"`
	Traffic     int                `json:"traffic,omitempty" yaml:"traffic,omitempty"`
	CruiseSpeed float64            `json:"cruise_speed,omitempty" yaml:"cruise_speed,omitempty"`
	Controller  *vehicle.Settings  `json:"controller,omitempty" yaml:"controller,omitempty"`
	Car         *vehicle.CarSpec   `json:"car,omitempty" yaml:"car,omitempty"`
	Roads       []RoadConfig       `json:"roads" yaml:"roads"`
	Connections []ConnectionConfig `json:"connections,omitempty" yaml:"connections,omitempty"`
}

// PlayerState is the controlled car as seen from outside the simulation.
type PlayerState struct {
	Active     bool             `json:"active"`
	Car        vehicle.CarState `json:"car"`
	Input      vehicle.Input    `json:"input"`
	Output     vehicle.Output   `json:"output"`
	RoadID     string           `json:"road_id,omitempty"`
	T          float64          `json:"t"`
	Distance   float64          `json:"distance"`
	SpeedLimit float64          `json:"speed_limit"`
	OffRoad    bool             `json:"off_road"`
}

// AgentState is a route-following traffic vehicle.
type AgentState struct {
	ID          string    `json:"id"`
	Route       []string  `json:"route"`
	Leg         int       `json:"leg"`
	RoadID      string    `json:"road_id"`
	T           float64   `json:"t"`
	Forward     bool      `json:"forward"`
	Position    road.Vec3 `json:"position"`
	Heading     float64   `json:"heading"`
	Speed       float64   `json:"speed"`
	Cruise      float64   `json:"cruise"`
	Destination string    `json:"destination"`
	DestT       float64   `json:"dest_t"`
	Arrived     bool      `json:"arrived"`
}

// Event is an entry of the simulation history.
type Event struct {
	Type    EventType `json:"type"`
	Message string    `json:"message"`
	Tick    uint64    `json:"tick"`
	Elapsed float64   `json:"elapsed"`
	AgentID string    `json:"agent_id,omitempty"`
	RoadID  string    `json:"road_id,omitempty"`
}

// State is the complete observable state of a simulation.
type State struct {
	Level    string           `json:"level"`
	Revision int              `json:"revision"`
	Tick     uint64           `json:"tick"`
	Elapsed  float64          `json:"elapsed"`
	Roads    int              `json:"roads"`
	Links    int              `json:"links"`
	Settings vehicle.Settings `json:"settings"`
	Player   PlayerState      `json:"player"`
	Agents   []AgentState     `json:"agents"`
}

// Snapshot captures everything needed to rebuild a simulation: the network
// as it currently stands plus the dynamic state.
type Snapshot struct {
	Level   LevelConfig `json:"level"`
	State   State       `json:"state"`
	History []Event     `json:"history,omitempty"`
}
