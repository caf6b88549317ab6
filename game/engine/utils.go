package engine

import (
	"fmt"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// RouteLeg is one road of a planned route with the direction it is driven.
type RouteLeg struct {
	RoadID  string  `json:"road_id"`
	Length  float64 `json:"length"`
	Forward bool    `json:"forward"`
}

// RoutePlan is a route with its total length and per-road direction.
type RoutePlan struct {
	From   string     `json:"from"`
	To     string     `json:"to"`
	Roads  []string   `json:"roads"`
	Length float64    `json:"length"`
	Legs   []RouteLeg `json:"legs"`
}

// PlanRoute finds a route between two roads and annotates each leg with the
// direction of travel implied by how consecutive roads join.
func PlanRoute(net *road.Network, from string, fromT float64, to string, toT float64) (*RoutePlan, error) {
	if _, ok := net.Road(from); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoadNotFound, from)
	}
	if _, ok := net.Road(to); !ok {
		return nil, fmt.Errorf("%w: %s", ErrRoadNotFound, to)
	}

	ids, ok := net.FindRoute(from, fromT, to, toT)
	if !ok {
		return nil, fmt.Errorf("%w: %s to %s", ErrNoRoute, from, to)
	}

	plan := &RoutePlan{
		From:   from,
		To:     to,
		Roads:  ids,
		Length: net.RouteLength(ids),
		Legs:   make([]RouteLeg, 0, len(ids)),
	}

	a := &agent{AgentState{Route: ids, T: fromT, DestT: toT}}
	for i, id := range ids {
		a.Leg = i
		if i > 0 {
			prevExit := road.Finish
			if !plan.Legs[i-1].Forward {
				prevExit = road.Start
			}
			a.T = endT(entryEnd(net, ids[i-1], prevExit, id))
		}
		a.orient(net)

		leg := RouteLeg{RoadID: id, Forward: a.Forward}
		if r, ok := net.Road(id); ok {
			leg.Length = r.Length()
		}
		plan.Legs = append(plan.Legs, leg)
	}
	return plan, nil
}
