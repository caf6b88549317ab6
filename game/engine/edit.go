package engine

import (
	"fmt"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// AddRoad adds a road described in level form.
func (s *Simulation) AddRoad(rc RoadConfig) error {
	if rc.ID == "" {
		return fmt.Errorf("%w: road id is required", ErrInvalidEdit)
	}
	if rc.LaneCount < 0 || rc.LaneCount > MaxLaneCount {
		return fmt.Errorf("%w: lane_count must be between 1 and %d, got %d", ErrInvalidEdit, MaxLaneCount, rc.LaneCount)
	}
	if s.net.Len() >= MaxRoads {
		return fmt.Errorf("%w: at most %d roads allowed", ErrInvalidEdit, MaxRoads)
	}
	if !s.net.AddRoad(newRoad(rc)) {
		return fmt.Errorf("%w: %s", ErrDuplicateRoad, rc.ID)
	}
	s.edited("road %s added", rc.ID)
	return nil
}

// RemoveRoad removes a road and the links rooted at its endpoints. Links
// from other roads into it remain until PruneDangling is called.
func (s *Simulation) RemoveRoad(id string) error {
	if !s.net.RemoveRoad(id) {
		return fmt.Errorf("%w: %s", ErrRoadNotFound, id)
	}
	s.edited("road %s removed", id)
	return nil
}

// AddWaypoint appends a waypoint to a road and returns its index.
func (s *Simulation) AddWaypoint(roadID string, wp road.Waypoint) (int, error) {
	r, ok := s.net.Road(roadID)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrRoadNotFound, roadID)
	}
	if !finite(wp.X) || !finite(wp.Y) || !finite(wp.Z) {
		return 0, fmt.Errorf("%w: waypoint position must be finite", ErrInvalidEdit)
	}
	if wp.Width < 0 || wp.SpeedLimit < 0 {
		return 0, fmt.Errorf("%w: waypoint width and speed_limit must not be negative", ErrInvalidEdit)
	}
	idx := r.AddWaypoint(wp.X, wp.Y, wp.Z, wp.Width, wp.SpeedLimit)
	s.edited("waypoint %d added to %s", idx, roadID)
	return idx, nil
}

// ClearWaypoints removes every waypoint of a road.
func (s *Simulation) ClearWaypoints(roadID string) error {
	r, ok := s.net.Road(roadID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrRoadNotFound, roadID)
	}
	r.ClearWaypoints()
	s.edited("waypoints of %s cleared", roadID)
	return nil
}

// Connect stores a link, and the reverse link when c is bidirectional.
func (s *Simulation) Connect(c ConnectionConfig) error {
	if !s.net.Connect(c.From, c.FromEnd, c.To, c.ToEnd) {
		return s.missingRoad(c)
	}
	if c.Bidirectional {
		s.net.Connect(c.To, c.ToEnd, c.From, c.FromEnd)
	}
	s.edited("connected %s:%s to %s:%s", c.From, c.FromEnd, c.To, c.ToEnd)
	return nil
}

// Disconnect removes a link, and the reverse link when c is bidirectional.
func (s *Simulation) Disconnect(c ConnectionConfig) error {
	found := s.net.Disconnect(c.From, c.FromEnd, c.To, c.ToEnd)
	if c.Bidirectional && s.net.Disconnect(c.To, c.ToEnd, c.From, c.FromEnd) {
		found = true
	}
	if !found {
		return fmt.Errorf("%w: %s:%s to %s:%s", ErrLinkNotFound, c.From, c.FromEnd, c.To, c.ToEnd)
	}
	s.edited("disconnected %s:%s from %s:%s", c.From, c.FromEnd, c.To, c.ToEnd)
	return nil
}

// PruneDangling drops links that point at removed roads.
func (s *Simulation) PruneDangling() int {
	n := s.net.PruneDangling()
	if n > 0 {
		s.edited("pruned %d dangling links", n)
	}
	return n
}

func (s *Simulation) missingRoad(c ConnectionConfig) error {
	if _, ok := s.net.Road(c.From); !ok {
		return fmt.Errorf("%w: %s", ErrRoadNotFound, c.From)
	}
	return fmt.Errorf("%w: %s", ErrRoadNotFound, c.To)
}

func (s *Simulation) edited(format string, args ...any) {
	s.revision++
	s.record(EventNetwork, fmt.Sprintf(format, args...), "", "")
}
