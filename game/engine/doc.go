// Package engine drives vehicles over a road network.
//
// A Simulation owns a road.Network built from a LevelConfig, a player Car
// steered through a vehicle.Controller, and route-following traffic agents.
// Each Tick feeds the controller, integrates the car, snaps it onto the
// nearest road for reporting, and advances every agent along its route at
// the lower of its cruise speed and the local speed limit.
//
// Core Types:
//
// The Engine interface lists the operations a driver of the simulation needs
// and is implemented by Simulation, which the service layer holds directly. LevelConfig is the JSON or YAML description of a
// network; State is the observable snapshot sent to clients.
//
// Usage:
//
//	level, err := engine.LoadLevel("levels/crossroads.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sim, err := engine.NewSimulation(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sim.SpawnPlayer()
//	sim.SetInput(vehicle.Input{Throttle: 0.6})
//	sim.Tick(1.0 / 30)
//	state := sim.State()
//
// Network edits made through the Simulation bump State.Revision so clients
// can tell when to refetch geometry.
package engine
