// Package websocket streams simulation state to browser and desktop viewers.
//
// A central Hub tracks clients per session. Each connection gets a read pump
// and a write pump goroutine. Clients attach with /ws?session=<id> and
// receive JSON messages:
//
//	{"session_id": "ab12", "event": "state_update", "state": {...}}
//	{"session_id": "ab12", "event": "tick", "state": {...}, "events": [...]}
//
// Broadcasts are queued and never block the caller; when the queue is full
// the message is dropped. Sessions without clients are skipped entirely, so
// the background ticker pays nothing for unwatched sessions.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//	hub.BroadcastState(sessionID, state)
package websocket
