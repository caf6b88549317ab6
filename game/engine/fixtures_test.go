package engine

import (
	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// straight returns a road along +X from x0 to x1 with the given width and
// speed limit at both ends.
func straight(id string, x0, x1, width, limit float64) RoadConfig {
	return RoadConfig{
		ID: id,
		Waypoints: []road.Waypoint{
			{X: x0, Width: width, SpeedLimit: limit},
			{X: x1, Width: width, SpeedLimit: limit},
		},
	}
}

// chainLevel lays a, b and c end to end along +X, each 100 units long, linked
// a:end -> b:start -> c:start only.
func chainLevel() *LevelConfig {
	return &LevelConfig{
		Name: "Chain",
		Seed: 7,
		Roads: []RoadConfig{
			straight("a", 0, 100, 8, 0),
			straight("b", 100, 200, 8, 0),
			straight("c", 200, 300, 8, 0),
		},
		Connections: []ConnectionConfig{
			{From: "a", FromEnd: road.Finish, To: "b", ToEnd: road.Start},
			{From: "b", FromEnd: road.Finish, To: "c", ToEnd: road.Start},
		},
	}
}
