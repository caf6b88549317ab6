// Package api provides the HTTP REST API for road network simulations.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session ({"level": "crossroads"}, optional)
//   - GET /api/sessions - List sessions (sort, order, limit, level)
//   - GET /api/sessions/{id} - Get a session
//   - DELETE /api/sessions/{id} - Delete a session
//
// Network:
//   - GET|POST /api/sessions/{id}/roads - List or add roads
//   - GET|DELETE /api/sessions/{id}/roads/{road} - Describe or remove a road
//   - POST|DELETE /api/sessions/{id}/roads/{road}/waypoints - Append or clear waypoints
//   - POST|DELETE /api/sessions/{id}/connections - Link or unlink road ends
//   - POST /api/sessions/{id}/connections/prune - Drop links to removed roads
//   - GET /api/sessions/{id}/route?from=&to=&from_t=&to_t= - Plan a route
//   - GET /api/sessions/{id}/nearest?x=&y=&z= - Nearest road to a point
//   - GET /api/sessions/{id}/spawn - Random spawn point
//   - GET /api/sessions/{id}/geojson - Network footprint as GeoJSON
//   - GET /api/sessions/{id}/export?format=yaml - Edited network as a level
//
// Simulation:
//   - GET /api/sessions/{id}/state - Current state
//   - POST /api/sessions/{id}/player - Spawn the player car
//   - POST /api/sessions/{id}/agents, DELETE .../agents/{agent} - Traffic
//   - PUT|DELETE /api/sessions/{id}/input - Set or clear raw input
//   - PUT /api/sessions/{id}/settings - Controller settings
//   - POST /api/sessions/{id}/tick - Advance ({"delta": 0.033, "steps": 1})
//   - POST /api/sessions/{id}/reset - Reset dynamic state
//   - GET /api/sessions/{id}/history - Paginated events (page, limit, order)
//
// Levels:
//   - GET /api/levels, GET /api/levels/{name}, POST /api/levels
//
// Errors are returned as {"error": "..."} with 404 for unknown sessions,
// roads, agents, links and levels, 409 for conflicts, 422 when no route or
// spawn point exists and 400 for invalid input.
//
// Mutations are broadcast to WebSocket viewers attached at /ws?session=<id>.
package api
