package service

import (
	"time"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// SessionInfo provides information about a simulation session
type SessionInfo struct {
	ID             string        `json:"id"`
	LevelName      string        `json:"level_name"`
	CreatedAt      time.Time     `json:"created_at"`
	LastAccessedAt time.Time     `json:"last_accessed_at"`
	State          *engine.State `json:"state"`
}

// RoadInfo describes a road and the links stored at its endpoints
type RoadInfo struct {
	ID         string          `json:"id"`
	OneWay     bool            `json:"one_way"`
	LaneCount  int             `json:"lane_count"`
	Length     float64         `json:"length"`
	Waypoints  []road.Waypoint `json:"waypoints"`
	StartLinks []road.Endpoint `json:"start_links"`
	EndLinks   []road.Endpoint `json:"end_links"`
}

// RouteRequest asks for a route between two road positions
type RouteRequest struct {
	From  string  `json:"from"`
	FromT float64 `json:"from_t"`
	To    string  `json:"to"`
	ToT   float64 `json:"to_t"`
}

// NearestInfo is a nearest-road lookup enriched with the road surface at
// the projected point
type NearestInfo struct {
	road.Nearest
	Position   road.Vec3 `json:"position"`
	Width      float64   `json:"width"`
	SpeedLimit float64   `json:"speed_limit"`
	OnRoad     bool      `json:"on_road"`
}

// TickRequest advances a session by Steps ticks of Delta seconds
type TickRequest struct {
	Delta float64 `json:"delta"`
	Steps int     `json:"steps"`
}

// TickResult contains the state after a tick request and the events it
// produced
type TickResult struct {
	Ticks  int            `json:"ticks"`
	State  *engine.State  `json:"state"`
	Events []engine.Event `json:"events"`
}

// HistoryOptions configures event history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated event history
type HistoryResponse struct {
	Events      []engine.Event `json:"events"`
	TotalEvents int            `json:"total_events"`
	Page        int            `json:"page"`
	PageSize    int            `json:"page_size"`
	TotalPages  int            `json:"total_pages"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// LevelInfo provides information about a level
type LevelInfo struct {
	LevelID     string `json:"level_id"` // The identifier to use for session creation
	Source      string `json:"source"`
	Name        string `json:"name"` // Display name
	Description string `json:"description"`
	Roads       int    `json:"roads"`
	Connections int    `json:"connections"`
	Traffic     int    `json:"traffic"`
}
