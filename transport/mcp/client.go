package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/service"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Libregnum Road Network",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Road network simulation - MCP Interface

This is a thin client that proxies all requests to the REST API server.

A session holds a network of roads. Each road is a polyline of waypoints
with a width and speed limit; road ends ("start" or "end") are linked to
other road ends. Positions along a road are given by t in [0, 1].

AVAILABLE TOOLS:
- create_session, list_sessions, list_levels: session setup
- list_roads, find_route, nearest_road, spawn_point: network queries
- add_road, remove_road, connect_roads: network editing
- spawn_player, set_input, tick, get_state, reset, event_history: driving
- spawn_agent: add a route-following traffic vehicle

Driving: spawn the player, set throttle/brake/steering, then tick. Holding
brake while stopped engages reverse automatically.`),
	)

	c.registerTools()
}

func stringProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": desc}
}

func numberProp(desc string) map[string]interface{} {
	return map[string]interface{}{"type": "number", "description": desc}
}

func sessionTool(name, desc string, extra map[string]interface{}, required ...string) mcp.Tool {
	props := map[string]interface{}{
		"session_id": stringProp("Session ID"),
	}
	for k, v := range extra {
		props[k] = v
	}
	return mcp.Tool{
		Name:        name,
		Description: desc,
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: props,
			Required:   append([]string{"session_id"}, required...),
		},
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Sessions and levels
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new simulation session from a level (default level when omitted)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": stringProp("Level ID to load (optional)"),
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	// Network queries
	c.mcpServer.AddTool(sessionTool("list_roads", "List the roads of a session with their links", nil), c.handleListRoads)

	c.mcpServer.AddTool(sessionTool("find_route", "Find a route of road IDs between two roads", map[string]interface{}{
		"from":   stringProp("Starting road ID"),
		"to":     stringProp("Destination road ID"),
		"from_t": numberProp("Position along the starting road, 0 to 1 (optional)"),
		"to_t":   numberProp("Position along the destination road, 0 to 1 (optional)"),
	}, "from", "to"), c.handleFindRoute)

	c.mcpServer.AddTool(sessionTool("nearest_road", "Find the road closest to a world position", map[string]interface{}{
		"x": numberProp("X coordinate"),
		"y": numberProp("Y coordinate (optional)"),
		"z": numberProp("Z coordinate"),
	}, "x", "z"), c.handleNearestRoad)

	c.mcpServer.AddTool(sessionTool("spawn_point", "Sample a random spawn point on the network", nil), c.handleSpawnPoint)

	// Network editing
	c.mcpServer.AddTool(sessionTool("add_road", "Add a road. Waypoints are [[x, z], ...] or [[x, y, z], ...]", map[string]interface{}{
		"road_id":     stringProp("New road ID"),
		"waypoints":   map[string]interface{}{"type": "array", "description": "Waypoint coordinates", "items": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "number"}}},
		"width":       numberProp("Road width for every waypoint (default 8)"),
		"speed_limit": numberProp("Speed limit for every waypoint, 0 for none"),
		"one_way":     map[string]interface{}{"type": "boolean", "description": "Informational one-way flag"},
	}, "road_id", "waypoints"), c.handleAddRoad)

	c.mcpServer.AddTool(sessionTool("remove_road", "Remove a road. Links into it stay until pruned", map[string]interface{}{
		"road_id": stringProp("Road ID"),
		"prune":   map[string]interface{}{"type": "boolean", "description": "Also prune dangling links"},
	}, "road_id"), c.handleRemoveRoad)

	endEnum := map[string]interface{}{"type": "string", "enum": []string{"start", "end"}, "description": "Road end"}
	c.mcpServer.AddTool(sessionTool("connect_roads", "Link the end of one road to the end of another", map[string]interface{}{
		"from":          stringProp("Source road ID"),
		"from_end":      endEnum,
		"to":            stringProp("Target road ID"),
		"to_end":        endEnum,
		"bidirectional": map[string]interface{}{"type": "boolean", "description": "Also store the reverse link"},
	}, "from", "from_end", "to", "to_end"), c.handleConnectRoads)

	// Driving
	c.mcpServer.AddTool(sessionTool("spawn_player", "Place the player car at a random spawn point", nil), c.handleSpawnPlayer)

	c.mcpServer.AddTool(sessionTool("spawn_agent", "Add a traffic agent routed to a destination road", map[string]interface{}{
		"destination": stringProp("Destination road ID (optional)"),
	}), c.handleSpawnAgent)

	c.mcpServer.AddTool(sessionTool("set_input", "Set the player's raw controls", map[string]interface{}{
		"throttle":  numberProp("Throttle, -1 to 1"),
		"brake":     numberProp("Brake, 0 to 1"),
		"steering":  numberProp("Steering, -1 (left) to 1 (right)"),
		"handbrake": map[string]interface{}{"type": "boolean", "description": "Handbrake"},
	}), c.handleSetInput)

	c.mcpServer.AddTool(sessionTool("tick", "Advance the simulation", map[string]interface{}{
		"delta": numberProp("Seconds per step (default 1/30)"),
		"steps": numberProp("Number of steps (default 1)"),
	}), c.handleTick)

	c.mcpServer.AddTool(sessionTool("get_state", "Get the current simulation state", nil), c.handleGetState)
	c.mcpServer.AddTool(sessionTool("reset", "Reset the simulation, keeping network edits", nil), c.handleReset)

	c.mcpServer.AddTool(sessionTool("event_history", "View past simulation events", map[string]interface{}{
		"page":  numberProp("Page number (default 1)"),
		"limit": numberProp("Events per page (default 20)"),
		"order": map[string]interface{}{"type": "string", "enum": []string{"asc", "desc"}, "description": "Sort order"},
	}), c.handleHistory)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Serve runs the MCP server over stdio until stdin closes
func (c *Client) Serve() error {
	return server.ServeStdio(c.mcpServer)
}

// apiCall performs a REST call and decodes the JSON response into result
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

// Argument helpers

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		return map[string]interface{}{}
	}
	return args
}

func getString(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return s
}

func getFloat(args map[string]interface{}, key string) (float64, bool) {
	switch v := args[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

func getInt(args map[string]interface{}, key string) int {
	f, _ := getFloat(args, key)
	return int(f)
}

func getBool(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

func sessionPath(args map[string]interface{}, suffix string) (string, error) {
	id := getString(args, "session_id")
	if id == "" {
		return "", fmt.Errorf("session_id is required")
	}
	return "/api/sessions/" + url.PathEscape(id) + suffix, nil
}

// Handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	body := map[string]string{"level": getString(args, "level")}

	var info service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text := fmt.Sprintf("Session %s created on level %s.\n\n%s", info.ID, info.LevelName, formatState(info.State))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var resp struct {
		Sessions []*service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(resp.Sessions) == 0 {
		return mcp.NewToolResultText("No active sessions."), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d active sessions:\n", len(resp.Sessions))
	for _, s := range resp.Sessions {
		fmt.Fprintf(&b, "- %s level=%s last_accessed=%s\n", s.ID, s.LevelName, s.LastAccessedAt.Format(time.RFC3339))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []*service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d levels:\n", len(levels))
	for _, l := range levels {
		fmt.Fprintf(&b, "- %s (%s): %d roads, %d connections, traffic %d [%s]\n",
			l.LevelID, l.Name, l.Roads, l.Connections, l.Traffic, l.Source)
		if l.Description != "" {
			fmt.Fprintf(&b, "  %s\n", l.Description)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleListRoads(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/roads")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var roads []*service.RoadInfo
	if err := c.apiCall(ctx, "GET", path, nil, &roads); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoads(roads)), nil
}

func (c *Client) handleFindRoute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/route")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := url.Values{}
	q.Set("from", getString(args, "from"))
	q.Set("to", getString(args, "to"))
	if t, ok := getFloat(args, "from_t"); ok {
		q.Set("from_t", strconv.FormatFloat(t, 'f', -1, 64))
	}
	if t, ok := getFloat(args, "to_t"); ok {
		q.Set("to_t", strconv.FormatFloat(t, 'f', -1, 64))
	}

	var plan engine.RoutePlan
	if err := c.apiCall(ctx, "GET", path+"?"+q.Encode(), nil, &plan); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatRoute(&plan)), nil
}

func (c *Client) handleNearestRoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/nearest")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := url.Values{}
	for _, k := range []string{"x", "y", "z"} {
		if v, ok := getFloat(args, k); ok {
			q.Set(k, strconv.FormatFloat(v, 'f', -1, 64))
		}
	}

	var n service.NearestInfo
	if err := c.apiCall(ctx, "GET", path+"?"+q.Encode(), nil, &n); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	surface := "off the road surface"
	if n.OnRoad {
		surface = "on the road surface"
	}
	text := fmt.Sprintf("Nearest road: %s at t=%.3f, %.2f m away (%s).\nClosest point: %s, width %.1f m, speed limit %s.",
		n.RoadID, n.T, n.Distance, surface, formatVec(n.Position), n.Width, formatLimit(n.SpeedLimit))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleSpawnPoint(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), "/spawn")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sp road.SpawnPoint
	if err := c.apiCall(ctx, "GET", path, nil, &sp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("Spawn point on %s at t=%.3f: %s heading %.3f rad.", sp.RoadID, sp.T, formatVec(sp.Position), sp.Heading)
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleAddRoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/roads")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	width := 8.0
	if w, ok := getFloat(args, "width"); ok {
		width = w
	}
	limit, _ := getFloat(args, "speed_limit")

	rc := engine.RoadConfig{
		ID:     getString(args, "road_id"),
		OneWay: getBool(args, "one_way"),
	}
	points, _ := args["waypoints"].([]interface{})
	for i, p := range points {
		coords, _ := p.([]interface{})
		wp := road.Waypoint{Width: width, SpeedLimit: limit}
		switch len(coords) {
		case 2:
			wp.X, _ = coords[0].(float64)
			wp.Z, _ = coords[1].(float64)
		case 3:
			wp.X, _ = coords[0].(float64)
			wp.Y, _ = coords[1].(float64)
			wp.Z, _ = coords[2].(float64)
		default:
			return mcp.NewToolResultError(fmt.Sprintf("waypoint %d must have 2 or 3 coordinates", i)), nil
		}
		rc.Waypoints = append(rc.Waypoints, wp)
	}

	var info service.RoadInfo
	if err := c.apiCall(ctx, "POST", path, rc, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Road added.\n" + formatRoads([]*service.RoadInfo{&info})), nil
}

func (c *Client) handleRemoveRoad(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	roadID := getString(args, "road_id")
	path, err := sessionPath(args, "/roads/"+url.PathEscape(roadID))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := c.apiCall(ctx, "DELETE", path, nil, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("Road %s removed.", roadID)

	if getBool(args, "prune") {
		prunePath, _ := sessionPath(args, "/connections/prune")
		var resp map[string]int
		if err := c.apiCall(ctx, "POST", prunePath, nil, &resp); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text += fmt.Sprintf(" Pruned %d dangling links.", resp["pruned"])
	}
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleConnectRoads(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/connections")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fromEnd, err := road.ParseEnd(getString(args, "from_end"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	toEnd, err := road.ParseEnd(getString(args, "to_end"))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	conn := engine.ConnectionConfig{
		From:          getString(args, "from"),
		FromEnd:       fromEnd,
		To:            getString(args, "to"),
		ToEnd:         toEnd,
		Bidirectional: getBool(args, "bidirectional"),
	}
	if err := c.apiCall(ctx, "POST", path, conn, nil); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Connected %s:%s to %s:%s.", conn.From, conn.FromEnd, conn.To, conn.ToEnd)), nil
}

func (c *Client) handleSpawnPlayer(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCall(ctx, request, "POST", "/player", nil)
}

func (c *Client) handleSpawnAgent(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/agents")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var agent engine.AgentState
	body := map[string]string{"destination": getString(args, "destination")}
	if err := c.apiCall(ctx, "POST", path, body, &agent); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text := fmt.Sprintf("Agent %s spawned on %s heading to %s via %s.",
		agent.ID, agent.RoadID, agent.Destination, strings.Join(agent.Route, " -> "))
	return mcp.NewToolResultText(text), nil
}

func (c *Client) handleSetInput(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	in := vehicle.Input{Handbrake: getBool(args, "handbrake")}
	in.Throttle, _ = getFloat(args, "throttle")
	in.Brake, _ = getFloat(args, "brake")
	in.Steering, _ = getFloat(args, "steering")
	return c.stateCall(ctx, request, "PUT", "/input", in)
}

func (c *Client) handleGetState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return c.stateCall(ctx, request, "GET", "/state", nil)
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/reset")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var resp struct {
		State *engine.State `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", path, nil, &resp); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("Simulation reset.\n\n" + formatState(resp.State)), nil
}

// stateCall performs a session call that returns engine.State
func (c *Client) stateCall(ctx context.Context, request mcp.CallToolRequest, method, suffix string, body interface{}) (*mcp.CallToolResult, error) {
	path, err := sessionPath(arguments(request), suffix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var state engine.State
	if err := c.apiCall(ctx, method, path, body, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatState(&state)), nil
}

func (c *Client) handleTick(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/tick")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := service.TickRequest{Steps: getInt(args, "steps")}
	req.Delta, _ = getFloat(args, "delta")

	var result service.TickResult
	if err := c.apiCall(ctx, "POST", path, req, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Advanced %d ticks.\n", result.Ticks)
	for _, e := range result.Events {
		fmt.Fprintf(&b, "  [tick %d] %s: %s\n", e.Tick, e.Type, e.Message)
	}
	b.WriteString("\n")
	b.WriteString(formatState(result.State))
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	path, err := sessionPath(args, "/history")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	q := url.Values{}
	if page := getInt(args, "page"); page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit := getInt(args, "limit"); limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if order := getString(args, "order"); order != "" {
		q.Set("order", order)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

// Formatting

func formatVec(v road.Vec3) string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", v.X, v.Y, v.Z)
}

func formatLimit(limit float64) string {
	if limit <= 0 {
		return "none"
	}
	return fmt.Sprintf("%.1f m/s", limit)
}

func formatState(state *engine.State) string {
	if state == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %s (revision %d)\n", state.Level, state.Revision)
	fmt.Fprintf(&b, "Tick %d, %.2fs elapsed. %d roads, %d links.\n", state.Tick, state.Elapsed, state.Roads, state.Links)

	p := state.Player
	if !p.Active {
		b.WriteString("Player: not spawned\n")
	} else {
		gear := "forward"
		if p.Car.Reverse {
			gear = "reverse"
		}
		fmt.Fprintf(&b, "Player: %s heading %.3f rad, speed %.2f m/s (%s)\n",
			formatVec(p.Car.Position), p.Car.Heading, p.Car.Speed, gear)
		if p.RoadID != "" {
			where := "on"
			if p.OffRoad {
				where = "off"
			}
			fmt.Fprintf(&b, "  %s road %s at t=%.3f, %.2f m from center, limit %s\n",
				where, p.RoadID, p.T, p.Distance, formatLimit(p.SpeedLimit))
		}
		fmt.Fprintf(&b, "  input throttle=%.2f brake=%.2f steering=%.2f\n", p.Input.Throttle, p.Input.Brake, p.Input.Steering)
		fmt.Fprintf(&b, "  output throttle=%.2f brake=%.2f steering=%.2f\n", p.Output.Throttle, p.Output.Brake, p.Output.Steering)
	}

	if len(state.Agents) > 0 {
		fmt.Fprintf(&b, "Traffic: %d agents\n", len(state.Agents))
		for _, a := range state.Agents {
			status := fmt.Sprintf("leg %d/%d", a.Leg+1, len(a.Route))
			if a.Arrived {
				status = "arrived"
			}
			fmt.Fprintf(&b, "  %s on %s t=%.3f -> %s (%s, %.1f m/s)\n", a.ID, a.RoadID, a.T, a.Destination, status, a.Speed)
		}
	}
	return b.String()
}

func formatRoads(roads []*service.RoadInfo) string {
	var b strings.Builder
	for _, r := range roads {
		flags := ""
		if r.OneWay {
			flags = ", one-way"
		}
		fmt.Fprintf(&b, "- %s: %.1f m, %d waypoints, %d lanes%s\n", r.ID, r.Length, len(r.Waypoints), r.LaneCount, flags)
		if len(r.StartLinks) > 0 {
			fmt.Fprintf(&b, "    start -> %s\n", formatEndpoints(r.StartLinks))
		}
		if len(r.EndLinks) > 0 {
			fmt.Fprintf(&b, "    end -> %s\n", formatEndpoints(r.EndLinks))
		}
	}
	return b.String()
}

func formatEndpoints(eps []road.Endpoint) string {
	parts := make([]string, len(eps))
	for i, ep := range eps {
		parts[i] = ep.RoadID + ":" + ep.End.String()
	}
	return strings.Join(parts, ", ")
}

func formatRoute(plan *engine.RoutePlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route %s -> %s: %d roads, %.1f m\n", plan.From, plan.To, len(plan.Roads), plan.Length)
	for i, leg := range plan.Legs {
		dir := "forward"
		if !leg.Forward {
			dir = "backward"
		}
		fmt.Fprintf(&b, "  %d. %s (%.1f m, %s)\n", i+1, leg.RoadID, leg.Length, dir)
	}
	return b.String()
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Events page %d/%d (%d total)\n", history.Page, history.TotalPages, history.TotalEvents)
	for _, e := range history.Events {
		fmt.Fprintf(&b, "  [tick %d, %.2fs] %s: %s\n", e.Tick, e.Elapsed, e.Type, e.Message)
	}
	if history.HasNext {
		b.WriteString("More events on the next page.\n")
	}
	return b.String()
}
