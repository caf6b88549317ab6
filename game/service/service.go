package service

import (
	"context"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
)

// SimulationService defines all simulation operations exposed to transports
type SimulationService interface {
	// Session Management
	CreateSession(ctx context.Context, levelName string) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Network Editing
	AddRoad(ctx context.Context, sessionID string, rc engine.RoadConfig) (*RoadInfo, error)
	RemoveRoad(ctx context.Context, sessionID, roadID string) error
	AddWaypoint(ctx context.Context, sessionID, roadID string, wp road.Waypoint) (*RoadInfo, error)
	ClearWaypoints(ctx context.Context, sessionID, roadID string) (*RoadInfo, error)
	Connect(ctx context.Context, sessionID string, c engine.ConnectionConfig) error
	Disconnect(ctx context.Context, sessionID string, c engine.ConnectionConfig) error
	PruneDangling(ctx context.Context, sessionID string) (int, error)

	// Network Queries
	ListRoads(ctx context.Context, sessionID string) ([]*RoadInfo, error)
	GetRoad(ctx context.Context, sessionID, roadID string) (*RoadInfo, error)
	FindRoute(ctx context.Context, sessionID string, req RouteRequest) (*engine.RoutePlan, error)
	NearestRoad(ctx context.Context, sessionID string, p road.Vec3) (*NearestInfo, error)
	SpawnPoint(ctx context.Context, sessionID string) (*road.SpawnPoint, error)
	GeoJSON(ctx context.Context, sessionID string) (*geojson.FeatureCollection, error)

	// Simulation
	SpawnPlayer(ctx context.Context, sessionID string) (*engine.State, error)
	SpawnAgent(ctx context.Context, sessionID, destination string) (*engine.AgentState, error)
	RemoveAgent(ctx context.Context, sessionID, agentID string) error
	SetInput(ctx context.Context, sessionID string, in vehicle.Input) (*engine.State, error)
	ClearInput(ctx context.Context, sessionID string) (*engine.State, error)
	ApplySettings(ctx context.Context, sessionID string, settings vehicle.Settings) (*engine.State, error)
	Tick(ctx context.Context, sessionID string, req TickRequest) (*TickResult, error)
	TickAll(ctx context.Context, delta float64) []string
	Reset(ctx context.Context, sessionID string) (*engine.State, error)
	GetState(ctx context.Context, sessionID string) (*engine.State, error)
	GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, levelName string) (*engine.LevelConfig, error)
	SaveLevel(ctx context.Context, levelName string, level *engine.LevelConfig) error
	ExportLevel(ctx context.Context, sessionID string) (*engine.LevelConfig, error)
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(id, levelName string, level *engine.LevelConfig) (*Session, error)
	Get(id string) (*Session, error)
	List() []*Session
	Delete(id string) error
	UpdateLastAccessed(id string) error
	Save(id string) error
}

// LevelManager handles level loading
type LevelManager interface {
	LoadLevel(ctx context.Context, name string) (*engine.LevelConfig, error)
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	GetDefault() (string, *engine.LevelConfig)
	SaveLevel(ctx context.Context, name string, level *engine.LevelConfig) error
}

// Session represents an active simulation session
type Session struct {
	ID             string
	Engine         *engine.Simulation
	LevelName      string
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
