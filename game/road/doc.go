// Package road models a road network for vehicle simulation.
//
// A Road is a poly-line of waypoints carrying width and speed limit. Its
// parameter t runs from 0 at the first waypoint to 1 at the last, with every
// segment receiving an equal share of the range regardless of its physical
// length.
//
// A Network owns roads by id and stores directed links between road
// endpoints. Route search treats those links as undirected:
//
//	net := road.NewNetwork()
//	a := road.New("a")
//	a.AddWaypoint(0, 0, 0, 8, 50)
//	a.AddWaypoint(100, 0, 0, 8, 50)
//	net.AddRoad(a)
//	// ... add b
//	net.Connect("a", road.Finish, "b", road.Start)
//
//	route, ok := net.FindRoute("b", 0, "a", 1) // [b a], true
//
// Failures follow a single convention: lookups and geometric queries return
// false (and zero values) rather than errors, and nothing panics.
package road
