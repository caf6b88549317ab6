// Package session provides session management for the road simulation.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence as JSON snapshots
//   - Session cleanup and expiration
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each service.Session owns its own engine.Simulation, so sessions never
// share a road network.
//
// Session Identifiers:
//
// Sessions use short hexadecimal IDs generated from crypto/rand; callers may
// also pick their own. Lookups are case-insensitive.
//
// Persistence:
//
// FilePersistence stores one JSON file per session holding the simulation
// snapshot: the network as edited, the player car and the traffic agents.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence)
//
//	sess, err := manager.Create("", "crossroads", level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	sess, err = manager.Get(sess.ID)
package session
