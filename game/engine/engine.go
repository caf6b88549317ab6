package engine

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
)

var (
	ErrInvalidLevel     = errors.New("level validation")
	ErrInvalidEdit      = errors.New("invalid network edit")
	ErrRoadNotFound     = errors.New("road not found")
	ErrDuplicateRoad    = errors.New("road already exists")
	ErrLinkNotFound     = errors.New("connection not found")
	ErrNoRoute          = errors.New("no route between roads")
	ErrNoSpawnPoint     = errors.New("no spawn point available")
	ErrAgentNotFound    = errors.New("agent not found")
	ErrTooManyAgents    = errors.New("agent limit reached")
	ErrPlayerNotSpawned = errors.New("player not spawned")
)

// Engine provides the main interface for simulation operations
type Engine interface {
	// Simulation
	Tick(delta float64) bool
	State() *State
	Reset() *State
	History() []Event

	// Player vehicle
	SpawnPlayer() (road.SpawnPoint, error)
	PlacePlayer(pos road.Vec3, heading float64)
	SetInput(in vehicle.Input)
	ClearInput()
	ApplySettings(s vehicle.Settings)

	// Traffic
	SpawnAgent(destination string) (AgentState, error)
	RemoveAgent(id string) error
	Agents() []AgentState

	// Network
	Network() *road.Network
	Level() *LevelConfig
	AddRoad(rc RoadConfig) error
	RemoveRoad(id string) error
	AddWaypoint(roadID string, wp road.Waypoint) (int, error)
	ClearWaypoints(roadID string) error
	Connect(c ConnectionConfig) error
	Disconnect(c ConnectionConfig) error
	PruneDangling() int

	// Persistence
	Snapshot() *Snapshot
}

var _ Engine = (*Simulation)(nil)

// Simulation implements the Engine interface. It is not safe for concurrent
// use; callers serialize access.
type Simulation struct {
	level      *LevelConfig
	net        *road.Network
	car        *vehicle.Car
	controller *vehicle.Controller
	player     PlayerState
	agents     []*agent
	history    []Event
	tick       uint64
	elapsed    float64
	revision   int
	rng        *rand.Rand
}

// NewSimulation builds the network described by level and fills it with the
// level's traffic.
func NewSimulation(level *LevelConfig) (*Simulation, error) {
	s, err := newSimulation(level)
	if err != nil {
		return nil, err
	}
	s.fillTraffic()
	return s, nil
}

// NewSimulationFromSnapshot rebuilds a simulation saved with Snapshot.
func NewSimulationFromSnapshot(snap *Snapshot) (*Simulation, error) {
	if snap == nil {
		return nil, fmt.Errorf("snapshot cannot be nil")
	}
	level := snap.Level
	s, err := newSimulation(&level)
	if err != nil {
		return nil, err
	}

	st := snap.State
	s.tick = st.Tick
	s.elapsed = st.Elapsed
	s.revision = st.Revision
	s.controller.ApplySettings(st.Settings)

	if st.Player.Active {
		s.car.Restore(st.Player.Car)
		s.controller.SetVehicle(s.car)
		s.controller.SetInput(st.Player.Input)
		s.player = st.Player
	}
	for _, as := range st.Agents {
		a := &agent{AgentState: as}
		a.Route = append([]string(nil), as.Route...)
		s.agents = append(s.agents, a)
	}
	s.history = append([]Event(nil), snap.History...)
	return s, nil
}

func newSimulation(level *LevelConfig) (*Simulation, error) {
	net, err := BuildNetwork(level)
	if err != nil {
		return nil, err
	}

	spec := vehicle.DefaultCarSpec()
	if level.Car != nil {
		spec = *level.Car
	}

	s := &Simulation{
		level:      level,
		net:        net,
		car:        vehicle.NewCar(spec),
		controller: vehicle.NewController(),
	}
	if level.Controller != nil {
		s.controller.ApplySettings(*level.Controller)
	}

	seed := level.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s.rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	return s, nil
}

// Network returns the live road network. Edits made directly on it bypass
// the revision counter; prefer the Simulation edit methods.
func (s *Simulation) Network() *road.Network {
	return s.net
}

// Level returns the level the simulation was built from.
func (s *Simulation) Level() *LevelConfig {
	return s.level
}

// Car returns the player car.
func (s *Simulation) Car() *vehicle.Car {
	return s.car
}

// Controller returns the player input controller.
func (s *Simulation) Controller() *vehicle.Controller {
	return s.controller
}

// Tick advances the simulation by delta seconds. It returns false when delta
// is not positive.
func (s *Simulation) Tick(delta float64) bool {
	if delta <= 0 {
		return false
	}
	s.tick++
	s.elapsed += delta

	s.dropArrived()

	if s.player.Active {
		wasReversing := s.controller.IsReversing()
		s.controller.Update(delta)
		s.car.Step(delta)

		if rev := s.controller.IsReversing(); rev != wasReversing {
			if rev {
				s.record(EventReverse, "player engaged reverse", "", s.player.RoadID)
			} else {
				s.record(EventForward, "player returned to forward", "", s.player.RoadID)
			}
		}
		s.trackPlayer(true)
	}

	for _, a := range s.agents {
		ev, ok := a.advance(s.net, delta)
		if !ok {
			continue
		}
		switch ev {
		case EventArrived:
			s.record(ev, fmt.Sprintf("agent arrived at %s", a.Destination), a.ID, a.RoadID)
		case EventStranded:
			s.record(ev, fmt.Sprintf("agent stranded on %s", a.Route[a.Leg]), a.ID, a.Route[a.Leg])
		}
	}

	s.fillTraffic()
	return true
}

// dropArrived removes agents that finished on a previous tick, so clients
// observe the arrival for one tick.
func (s *Simulation) dropArrived() {
	kept := s.agents[:0]
	for _, a := range s.agents {
		if !a.Arrived {
			kept = append(kept, a)
		}
	}
	for i := len(kept); i < len(s.agents); i++ {
		s.agents[i] = nil
	}
	s.agents = kept
}

// fillTraffic spawns agents until the level's traffic count is met.
func (s *Simulation) fillTraffic() {
	active := 0
	for _, a := range s.agents {
		if !a.Arrived {
			active++
		}
	}
	for i := active; i < s.level.Traffic; i++ {
		if _, err := s.SpawnAgent(""); err != nil {
			return
		}
	}
}

// trackPlayer snaps the player onto the nearest road for reporting. When
// notify is set, leaving or rejoining the road surface is recorded.
func (s *Simulation) trackPlayer(notify bool) {
	p := &s.player
	p.Car = s.car.State()
	p.Input = s.controller.Input()
	p.Output = s.controller.Output()

	wasOff := p.OffRoad
	n, ok := s.net.NearestRoad(p.Car.Position)
	if !ok {
		p.RoadID, p.T, p.Distance, p.SpeedLimit = "", 0, 0, 0
		p.OffRoad = true
	} else {
		r, _ := s.net.Road(n.RoadID)
		p.RoadID = n.RoadID
		p.T = n.T
		p.Distance = n.Distance
		p.SpeedLimit = r.SpeedLimitAt(n.T)
		p.OffRoad = n.Distance > r.WidthAt(n.T)/2
	}

	if !notify || wasOff == p.OffRoad {
		return
	}
	if p.OffRoad {
		s.record(EventOffRoad, "player left the road", "", p.RoadID)
	} else {
		s.record(EventOnRoad, "player back on "+p.RoadID, "", p.RoadID)
	}
}

// SpawnPlayer places the player car at a random spawn point and attaches the
// controller to it.
func (s *Simulation) SpawnPlayer() (road.SpawnPoint, error) {
	sp, ok := s.net.RandomSpawnPoint()
	if !ok {
		return road.SpawnPoint{}, ErrNoSpawnPoint
	}
	s.PlacePlayer(sp.Position, sp.Heading)
	s.record(EventSpawn, "player spawned on "+sp.RoadID, "", sp.RoadID)
	return sp, nil
}

// PlacePlayer puts the player car at pos, at rest, and resets its controller.
func (s *Simulation) PlacePlayer(pos road.Vec3, heading float64) {
	s.car.Place(pos, heading)
	s.car.SetReverse(false)
	s.controller.SetVehicle(s.car)
	s.player = PlayerState{Active: true}
	s.trackPlayer(false)
}

// SetInput replaces the raw controller input.
func (s *Simulation) SetInput(in vehicle.Input) {
	s.controller.SetInput(in)
	s.player.Input = s.controller.Input()
}

// ClearInput zeroes the controller state.
func (s *Simulation) ClearInput() {
	s.controller.ClearInput()
	s.player.Input = vehicle.Input{}
	s.player.Output = vehicle.Output{}
}

// ApplySettings replaces the controller tunables.
func (s *Simulation) ApplySettings(settings vehicle.Settings) {
	s.controller.ApplySettings(settings)
}

func (s *Simulation) cruiseSpeed() float64 {
	if s.level.CruiseSpeed > 0 {
		return s.level.CruiseSpeed
	}
	return DefaultCruiseSpeed
}

// SpawnAgent places a traffic agent at a random spawn point and routes it to
// destination, or to a random road when destination is empty.
func (s *Simulation) SpawnAgent(destination string) (AgentState, error) {
	if len(s.agents) >= MaxTraffic {
		return AgentState{}, ErrTooManyAgents
	}
	if destination != "" {
		if _, ok := s.net.Road(destination); !ok {
			return AgentState{}, fmt.Errorf("%w: %s", ErrRoadNotFound, destination)
		}
	}

	sp, ok := s.net.RandomSpawnPoint()
	if !ok {
		return AgentState{}, ErrNoSpawnPoint
	}

	if destination == "" {
		var candidates []string
		for _, r := range s.net.Roads() {
			if r.WaypointCount() >= 2 {
				candidates = append(candidates, r.ID())
			}
		}
		destination = candidates[s.rng.IntN(len(candidates))]
	}
	destT := 0.1 + s.rng.Float64()*0.8

	route, ok := s.net.FindRoute(sp.RoadID, sp.T, destination, destT)
	if !ok {
		return AgentState{}, fmt.Errorf("%w: %s to %s", ErrNoRoute, sp.RoadID, destination)
	}

	a := &agent{AgentState{
		ID:          uuid.NewString(),
		Route:       route,
		RoadID:      sp.RoadID,
		T:           sp.T,
		Cruise:      s.cruiseSpeed(),
		Destination: destination,
		DestT:       destT,
		Position:    sp.Position,
		Heading:     sp.Heading,
	}}
	a.orient(s.net)
	if r, ok := s.net.Road(sp.RoadID); ok {
		a.place(r)
	}

	s.agents = append(s.agents, a)
	s.record(EventSpawn, fmt.Sprintf("agent routed %s to %s (%d roads)", sp.RoadID, destination, len(route)), a.ID, sp.RoadID)
	return a.snapshot(), nil
}

// RemoveAgent deletes a traffic agent.
func (s *Simulation) RemoveAgent(id string) error {
	for i, a := range s.agents {
		if a.ID == id {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			return nil
		}
	}
	return ErrAgentNotFound
}

// Agents returns copies of every agent's state.
func (s *Simulation) Agents() []AgentState {
	out := make([]AgentState, 0, len(s.agents))
	for _, a := range s.agents {
		out = append(out, a.snapshot())
	}
	return out
}

func (a *agent) snapshot() AgentState {
	st := a.AgentState
	st.Route = append([]string(nil), a.Route...)
	return st
}

// State returns the current observable state.
func (s *Simulation) State() *State {
	return &State{
		Level:    s.level.Name,
		Revision: s.revision,
		Tick:     s.tick,
		Elapsed:  s.elapsed,
		Roads:    s.net.Len(),
		Links:    s.net.LinkCount(),
		Settings: s.controller.Settings(),
		Player:   s.player,
		Agents:   s.Agents(),
	}
}

// Reset clears all dynamic state: the player is removed, traffic is
// respawned and the clock restarts. Network edits are kept.
func (s *Simulation) Reset() *State {
	s.tick = 0
	s.elapsed = 0
	s.agents = nil
	s.history = nil
	s.player = PlayerState{}
	s.controller.SetVehicle(nil)
	s.car.Place(road.Vec3{}, 0)
	s.car.SetReverse(false)
	s.record(EventReset, "simulation reset", "", "")
	s.fillTraffic()
	return s.State()
}

// History returns a copy of the recorded events, oldest first.
func (s *Simulation) History() []Event {
	return append([]Event(nil), s.history...)
}

func (s *Simulation) record(t EventType, msg, agentID, roadID string) {
	s.history = append(s.history, Event{
		Type:    t,
		Message: msg,
		Tick:    s.tick,
		Elapsed: s.elapsed,
		AgentID: agentID,
		RoadID:  roadID,
	})
	if over := len(s.history) - MaxHistory; over > 0 {
		s.history = append([]Event(nil), s.history[over:]...)
	}
}

// Snapshot captures the current network and dynamic state.
func (s *Simulation) Snapshot() *Snapshot {
	level := *s.level
	level.Roads, level.Connections = DescribeNetwork(s.net)
	settings := s.controller.Settings()
	level.Controller = &settings

	return &Snapshot{
		Level:   level,
		State:   *s.State(),
		History: s.History(),
	}
}
