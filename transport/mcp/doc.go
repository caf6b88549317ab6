// Package mcp exposes the simulation to AI agents over the Model Context
// Protocol.
//
// Client is a thin stdio MCP server whose tools proxy to the REST API of a
// running server. Tool results are plain text summaries of the JSON
// responses, so an agent can read state without parsing.
//
// Tools:
//   - create_session, list_sessions, list_levels
//   - list_roads, find_route, nearest_road, spawn_point
//   - add_road, remove_road, connect_roads
//   - spawn_player, spawn_agent, set_input, tick, get_state, reset, event_history
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := client.Serve(); err != nil {
//		log.Fatal(err)
//	}
package mcp
