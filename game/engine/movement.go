package engine

import (
	"math"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// exitEnd returns the endpoint of road cur that leads onto road next. Stored
// links decide first, in either direction; otherwise the endpoint closest to
// next wins.
func exitEnd(net *road.Network, cur, next string) road.End {
	for _, end := range []road.End{road.Finish, road.Start} {
		for _, id := range net.Connections(cur, end) {
			if id == next {
				return end
			}
		}
	}
	for _, end := range []road.End{road.Start, road.Finish} {
		for _, ep := range net.Links(next, end) {
			if ep.RoadID == cur {
				return ep.End
			}
		}
	}

	curRoad, ok1 := net.Road(cur)
	nextRoad, ok2 := net.Road(next)
	if !ok1 || !ok2 {
		return road.Finish
	}
	s, _ := curRoad.Interpolate(0)
	f, _ := curRoad.Interpolate(1)
	if gapTo(nextRoad, s) < gapTo(nextRoad, f) {
		return road.Start
	}
	return road.Finish
}

// entryEnd returns the endpoint of road next that is reached when leaving
// road cur through its endpoint at.
func entryEnd(net *road.Network, cur string, at road.End, next string) road.End {
	for _, ep := range net.Links(cur, at) {
		if ep.RoadID == next {
			return ep.End
		}
	}
	for _, end := range []road.End{road.Start, road.Finish} {
		for _, ep := range net.Links(next, end) {
			if ep.RoadID == cur && ep.End == at {
				return end
			}
		}
	}

	curRoad, ok1 := net.Road(cur)
	nextRoad, ok2 := net.Road(next)
	if !ok1 || !ok2 {
		return road.Start
	}
	p, _ := curRoad.Interpolate(endT(at))
	s, _ := nextRoad.Interpolate(0)
	f, _ := nextRoad.Interpolate(1)
	if p.Dist(f) < p.Dist(s) {
		return road.Finish
	}
	return road.Start
}

// gapTo is the distance from p to the nearer endpoint of r.
func gapTo(r *road.Road, p road.Vec3) float64 {
	s, ok := r.Interpolate(0)
	if !ok {
		return math.Inf(1)
	}
	f, _ := r.Interpolate(1)
	return math.Min(p.Dist(s), p.Dist(f))
}

func endT(e road.End) float64 {
	if e == road.Finish {
		return 1
	}
	return 0
}

// agent follows a fixed route of roads at the lower of its cruise speed and
// the local speed limit.
type agent struct {
	AgentState
}

// orient points the agent toward the next leg of its route, or toward its
// destination parameter on the final leg.
func (a *agent) orient(net *road.Network) {
	if a.Leg >= len(a.Route)-1 {
		a.Forward = a.DestT >= a.T
		return
	}
	a.Forward = exitEnd(net, a.Route[a.Leg], a.Route[a.Leg+1]) == road.Finish
}

// place refreshes position and heading from the current road parameter.
func (a *agent) place(r *road.Road) {
	if pos, ok := r.Interpolate(a.T); ok {
		a.Position = pos
	}
	if dir, ok := r.DirectionAt(a.T); ok {
		if !a.Forward {
			dir = dir.Scale(-1)
		}
		if dir.LenSq() > 0 {
			a.Heading = dir.Heading()
		}
	}
}

// advance moves the agent by delta seconds. It returns the event produced,
// if any: EventArrived on reaching the destination, EventStranded when the
// road under the agent has disappeared or lost its geometry.
func (a *agent) advance(net *road.Network, delta float64) (EventType, bool) {
	if a.Arrived {
		return "", false
	}

	// Distance still to cover this tick. Road transitions consume it leg by leg.
	remaining := 0.0
	first := true

	for {
		r, ok := net.Road(a.Route[a.Leg])
		if !ok || r.WaypointCount() < 2 {
			a.Arrived = true
			a.Speed = 0
			return EventStranded, true
		}
		a.RoadID = r.ID()

		if first {
			a.Speed = a.Cruise
			if limit := r.SpeedLimitAt(a.T); limit > 0 && limit < a.Speed {
				a.Speed = limit
			}
			remaining = a.Speed * delta
			first = false
		}

		length := r.Length()
		last := a.Leg == len(a.Route)-1

		target := 1.0
		if !a.Forward {
			target = 0
		}
		if last {
			target = a.DestT
		}

		available := math.Abs(target-a.T) * length
		if remaining < available && length > 0 {
			step := remaining / length
			if a.Forward {
				a.T += step
			} else {
				a.T -= step
			}
			a.place(r)
			return "", false
		}

		remaining -= available
		a.T = target

		if last {
			a.place(r)
			a.Arrived = true
			a.Speed = 0
			return EventArrived, true
		}

		at := road.Finish
		if !a.Forward {
			at = road.Start
		}
		next := a.Route[a.Leg+1]
		entry := entryEnd(net, r.ID(), at, next)

		a.Leg++
		a.T = endT(entry)
		a.orient(net)
	}
}
