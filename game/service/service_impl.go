package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
)

const (
	// MaxTickDelta bounds a single simulation step in seconds
	MaxTickDelta = 1.0
	// MaxTickSteps bounds the steps of one tick request
	MaxTickSteps = 600
	// DefaultTickDelta is used when a tick request leaves delta unset
	DefaultTickDelta = 1.0 / 30

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	ErrInvalidTick  = errors.New("invalid tick request")
	ErrInvalidRoute = errors.New("invalid route request")
)

// simulationService implements the SimulationService interface. Simulations
// are not safe for concurrent use, and even read-only queries fill caches,
// so every operation holds the same mutex.
type simulationService struct {
	sessions SessionManager
	levels   LevelManager
	mu       sync.Mutex
}

// NewSimulationService creates a new simulation service instance
func NewSimulationService(sessions SessionManager, levels LevelManager) SimulationService {
	return &simulationService{
		sessions: sessions,
		levels:   levels,
	}
}

// session looks up a session and marks it accessed. Callers hold s.mu.
func (s *simulationService) session(sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	s.sessions.UpdateLastAccessed(sessionID)
	return sess, nil
}

// persist saves a session after a mutation. Failures are logged only.
func (s *simulationService) persist(sessionID, after string) {
	if err := s.sessions.Save(sessionID); err != nil {
		slog.Warn("failed to persist session", "session", sessionID, "after", after, "error", err)
	}
}

func (s *simulationService) info(sess *Session) *SessionInfo {
	return &SessionInfo{
		ID:             sess.ID,
		LevelName:      sess.LevelName,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		State:          sess.Engine.State(),
	}
}

// CreateSession creates a new session from a level, or the default level
// when levelName is empty
func (s *simulationService) CreateSession(ctx context.Context, levelName string) (*SessionInfo, error) {
	var level *engine.LevelConfig
	var err error
	if levelName != "" {
		level, err = s.levels.LoadLevel(ctx, levelName)
		if err != nil {
			return nil, fmt.Errorf("failed to load level %s: %w", levelName, err)
		}
	} else {
		levelName, level = s.levels.GetDefault()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.sessions.Create("", levelName, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("session created", "session", sess.ID, "level", levelName)

	return s.info(sess), nil
}

// GetSession retrieves session information
func (s *simulationService) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return s.info(sess), nil
}

// ListSessions returns all active sessions
func (s *simulationService) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, s.info(sess))
	}
	return result, nil
}

// DeleteSession removes a session
func (s *simulationService) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(sessionID); err != nil {
		return err
	}
	slog.Info("session deleted", "session", sessionID)
	return nil
}

// edit runs fn against a session's simulation and persists on success
func (s *simulationService) edit(sessionID, what string, fn func(*engine.Simulation) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if err := fn(sess.Engine); err != nil {
		return err
	}
	s.persist(sessionID, what)
	return nil
}

// AddRoad adds a road to a session's network
func (s *simulationService) AddRoad(ctx context.Context, sessionID string, rc engine.RoadConfig) (*RoadInfo, error) {
	var info *RoadInfo
	err := s.edit(sessionID, "add road", func(sim *engine.Simulation) error {
		if err := sim.AddRoad(rc); err != nil {
			return err
		}
		info = describeRoad(sim.Network(), rc.ID)
		return nil
	})
	return info, err
}

// RemoveRoad removes a road; links into it are left dangling
func (s *simulationService) RemoveRoad(ctx context.Context, sessionID, roadID string) error {
	return s.edit(sessionID, "remove road", func(sim *engine.Simulation) error {
		return sim.RemoveRoad(roadID)
	})
}

// AddWaypoint appends a waypoint to a road
func (s *simulationService) AddWaypoint(ctx context.Context, sessionID, roadID string, wp road.Waypoint) (*RoadInfo, error) {
	var info *RoadInfo
	err := s.edit(sessionID, "add waypoint", func(sim *engine.Simulation) error {
		if _, err := sim.AddWaypoint(roadID, wp); err != nil {
			return err
		}
		info = describeRoad(sim.Network(), roadID)
		return nil
	})
	return info, err
}

// ClearWaypoints removes every waypoint of a road
func (s *simulationService) ClearWaypoints(ctx context.Context, sessionID, roadID string) (*RoadInfo, error) {
	var info *RoadInfo
	err := s.edit(sessionID, "clear waypoints", func(sim *engine.Simulation) error {
		if err := sim.ClearWaypoints(roadID); err != nil {
			return err
		}
		info = describeRoad(sim.Network(), roadID)
		return nil
	})
	return info, err
}

// Connect links two road endpoints
func (s *simulationService) Connect(ctx context.Context, sessionID string, c engine.ConnectionConfig) error {
	return s.edit(sessionID, "connect", func(sim *engine.Simulation) error {
		return sim.Connect(c)
	})
}

// Disconnect removes a link between two road endpoints
func (s *simulationService) Disconnect(ctx context.Context, sessionID string, c engine.ConnectionConfig) error {
	return s.edit(sessionID, "disconnect", func(sim *engine.Simulation) error {
		return sim.Disconnect(c)
	})
}

// PruneDangling drops links to removed roads
func (s *simulationService) PruneDangling(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := s.edit(sessionID, "prune", func(sim *engine.Simulation) error {
		n = sim.PruneDangling()
		return nil
	})
	return n, err
}

// ListRoads describes every road in id order
func (s *simulationService) ListRoads(ctx context.Context, sessionID string) ([]*RoadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	net := sess.Engine.Network()
	roads := net.Roads()
	result := make([]*RoadInfo, 0, len(roads))
	for _, r := range roads {
		result = append(result, describeRoad(net, r.ID()))
	}
	return result, nil
}

// GetRoad describes one road
func (s *simulationService) GetRoad(ctx context.Context, sessionID, roadID string) (*RoadInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	info := describeRoad(sess.Engine.Network(), roadID)
	if info == nil {
		return nil, fmt.Errorf("%w: %s", engine.ErrRoadNotFound, roadID)
	}
	return info, nil
}

// FindRoute plans a route between two roads
func (s *simulationService) FindRoute(ctx context.Context, sessionID string, req RouteRequest) (*engine.RoutePlan, error) {
	if req.From == "" || req.To == "" {
		return nil, fmt.Errorf("%w: from and to are required", ErrInvalidRoute)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return engine.PlanRoute(sess.Engine.Network(), req.From, req.FromT, req.To, req.ToT)
}

// NearestRoad projects p onto the closest road
func (s *simulationService) NearestRoad(ctx context.Context, sessionID string, p road.Vec3) (*NearestInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	net := sess.Engine.Network()
	n, ok := net.NearestRoad(p)
	if !ok {
		return nil, fmt.Errorf("%w: no road with geometry", engine.ErrRoadNotFound)
	}

	r, _ := net.Road(n.RoadID)
	pos, _ := r.Interpolate(n.T)
	width := r.WidthAt(n.T)
	return &NearestInfo{
		Nearest:    n,
		Position:   pos,
		Width:      width,
		SpeedLimit: r.SpeedLimitAt(n.T),
		OnRoad:     n.Distance <= width/2,
	}, nil
}

// SpawnPoint samples a random spawn point
func (s *simulationService) SpawnPoint(ctx context.Context, sessionID string) (*road.SpawnPoint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sp, ok := sess.Engine.Network().RandomSpawnPoint()
	if !ok {
		return nil, engine.ErrNoSpawnPoint
	}
	return &sp, nil
}

// GeoJSON exports the network footprint
func (s *simulationService) GeoJSON(ctx context.Context, sessionID string) (*geojson.FeatureCollection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.Network().GeoJSON(), nil
}

// SpawnPlayer places the player car at a random spawn point
func (s *simulationService) SpawnPlayer(ctx context.Context, sessionID string) (*engine.State, error) {
	var state *engine.State
	err := s.edit(sessionID, "spawn player", func(sim *engine.Simulation) error {
		if _, err := sim.SpawnPlayer(); err != nil {
			return err
		}
		state = sim.State()
		return nil
	})
	return state, err
}

// SpawnAgent adds a traffic agent routed to destination, or anywhere when
// destination is empty
func (s *simulationService) SpawnAgent(ctx context.Context, sessionID, destination string) (*engine.AgentState, error) {
	var agent engine.AgentState
	err := s.edit(sessionID, "spawn agent", func(sim *engine.Simulation) error {
		var err error
		agent, err = sim.SpawnAgent(destination)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &agent, nil
}

// RemoveAgent deletes a traffic agent
func (s *simulationService) RemoveAgent(ctx context.Context, sessionID, agentID string) error {
	return s.edit(sessionID, "remove agent", func(sim *engine.Simulation) error {
		return sim.RemoveAgent(agentID)
	})
}

// SetInput replaces the player's raw input
func (s *simulationService) SetInput(ctx context.Context, sessionID string, in vehicle.Input) (*engine.State, error) {
	var state *engine.State
	err := s.edit(sessionID, "input", func(sim *engine.Simulation) error {
		if !sim.State().Player.Active {
			return engine.ErrPlayerNotSpawned
		}
		sim.SetInput(in)
		state = sim.State()
		return nil
	})
	return state, err
}

// ClearInput zeroes the player's input
func (s *simulationService) ClearInput(ctx context.Context, sessionID string) (*engine.State, error) {
	var state *engine.State
	err := s.edit(sessionID, "clear input", func(sim *engine.Simulation) error {
		sim.ClearInput()
		state = sim.State()
		return nil
	})
	return state, err
}

// ApplySettings replaces the controller tunables
func (s *simulationService) ApplySettings(ctx context.Context, sessionID string, settings vehicle.Settings) (*engine.State, error) {
	var state *engine.State
	err := s.edit(sessionID, "settings", func(sim *engine.Simulation) error {
		sim.ApplySettings(settings)
		state = sim.State()
		return nil
	})
	return state, err
}

// Tick advances one session and returns the events it produced
func (s *simulationService) Tick(ctx context.Context, sessionID string, req TickRequest) (*TickResult, error) {
	if req.Delta == 0 {
		req.Delta = DefaultTickDelta
	}
	if req.Steps == 0 {
		req.Steps = 1
	}
	if math.IsNaN(req.Delta) || req.Delta < 0 || req.Delta > MaxTickDelta {
		return nil, fmt.Errorf("%w: delta must be in (0, %v]", ErrInvalidTick, MaxTickDelta)
	}
	if req.Steps < 0 || req.Steps > MaxTickSteps {
		return nil, fmt.Errorf("%w: steps must be between 1 and %d", ErrInvalidTick, MaxTickSteps)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}

	sim := sess.Engine
	before := sim.State().Tick
	for i := 0; i < req.Steps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sim.Tick(req.Delta)
	}

	var events []engine.Event
	for _, e := range sim.History() {
		if e.Tick > before {
			events = append(events, e)
		}
	}
	if events == nil {
		events = []engine.Event{}
	}

	s.persist(sessionID, "tick")
	return &TickResult{
		Ticks:  req.Steps,
		State:  sim.State(),
		Events: events,
	}, nil
}

// TickAll advances every session by delta and returns the ids ticked. It is
// driven by the background ticker and does not touch access times.
func (s *simulationService) TickAll(ctx context.Context, delta float64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ticked []string
	for _, sess := range s.sessions.List() {
		if sess.Engine.Tick(delta) {
			ticked = append(ticked, sess.ID)
		}
	}
	return ticked
}

// Reset clears a session's dynamic state, keeping network edits
func (s *simulationService) Reset(ctx context.Context, sessionID string) (*engine.State, error) {
	var state *engine.State
	err := s.edit(sessionID, "reset", func(sim *engine.Simulation) error {
		state = sim.Reset()
		return nil
	})
	return state, err
}

// GetState retrieves the current simulation state
func (s *simulationService) GetState(ctx context.Context, sessionID string) (*engine.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.State(), nil
}

// GetHistory returns paginated event history
func (s *simulationService) GetHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.Lock()
	sess, err := s.session(sessionID)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	history := sess.Engine.History()
	s.mu.Unlock()

	return paginate(history, opts), nil
}

// paginate slices history according to opts, applying defaults
func paginate(history []engine.Event, opts HistoryOptions) *HistoryResponse {
	total := len(history)

	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultHistoryLimit
	}
	if opts.Limit > maxHistoryLimit {
		opts.Limit = maxHistoryLimit
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	events := []engine.Event{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			events = append(events, history[i])
		}
	} else if start < total {
		events = append(events, history[start:end]...)
	}

	return &HistoryResponse{
		Events:      events,
		TotalEvents: total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}
}

// ListLevels returns available levels
func (s *simulationService) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels(ctx)
}

// LoadLevel loads a specific level
func (s *simulationService) LoadLevel(ctx context.Context, levelName string) (*engine.LevelConfig, error) {
	return s.levels.LoadLevel(ctx, levelName)
}

// SaveLevel saves a level to the primary level source
func (s *simulationService) SaveLevel(ctx context.Context, levelName string, level *engine.LevelConfig) error {
	return s.levels.SaveLevel(ctx, levelName, level)
}

// ExportLevel returns a session's network, as edited, in level form
func (s *simulationService) ExportLevel(ctx context.Context, sessionID string) (*engine.LevelConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	level := sess.Engine.Snapshot().Level
	return &level, nil
}

// describeRoad builds a RoadInfo, or nil when the road is absent
func describeRoad(net *road.Network, id string) *RoadInfo {
	r, ok := net.Road(id)
	if !ok {
		return nil
	}
	return &RoadInfo{
		ID:         r.ID(),
		OneWay:     r.OneWay(),
		LaneCount:  r.LaneCount(),
		Length:     r.Length(),
		Waypoints:  r.Waypoints(),
		StartLinks: nonNil(net.Links(id, road.Start)),
		EndLinks:   nonNil(net.Links(id, road.Finish)),
	}
}

func nonNil(eps []road.Endpoint) []road.Endpoint {
	if eps == nil {
		return []road.Endpoint{}
	}
	return eps
}
