// Package service is the business layer between the transports (HTTP,
// WebSocket, MCP) and the simulation engine.
//
// SimulationService exposes sessions, network editing, route and spatial
// queries, driving, and level management. Each session owns an independent
// engine.Simulation. SessionManager and LevelManager are implemented by the
// session and config packages.
//
// Usage:
//
//	sessions := session.NewManager()
//	levels, _ := config.NewDirManager("levels")
//	svc := service.NewSimulationService(sessions, levels)
//
//	info, err := svc.CreateSession(ctx, "crossroads")
//	if err != nil {
//		return err
//	}
//	plan, err := svc.FindRoute(ctx, info.ID, service.RouteRequest{From: "north", To: "east"})
//
// All operations on simulations are serialized by one mutex in the service.
package service
