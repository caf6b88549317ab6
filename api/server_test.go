package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleft-games/libregnum-sub015/game/config"
	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/service"
	"github.com/copyleft-games/libregnum-sub015/game/session"
	"github.com/copyleft-games/libregnum-sub015/transport/websocket"
)

// memLevels is an in-memory service.LevelManager
type memLevels struct {
	levels map[string]*engine.LevelConfig
}

func (m *memLevels) LoadLevel(ctx context.Context, name string) (*engine.LevelConfig, error) {
	level, ok := m.levels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrLevelNotFound, name)
	}
	return level, nil
}

func (m *memLevels) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	var out []*service.LevelInfo
	for id, l := range m.levels {
		out = append(out, &service.LevelInfo{LevelID: id, Source: "memory", Name: l.Name, Roads: len(l.Roads)})
	}
	return out, nil
}

func (m *memLevels) GetDefault() (string, *engine.LevelConfig) {
	return "chain", m.levels["chain"]
}

func (m *memLevels) SaveLevel(ctx context.Context, name string, level *engine.LevelConfig) error {
	if err := engine.ValidateLevelConfig(level); err != nil {
		return fmt.Errorf("%w: %v", config.ErrInvalidLevel, err)
	}
	m.levels[name] = level
	return nil
}

func straight(id string, x0, x1 float64) engine.RoadConfig {
	return engine.RoadConfig{
		ID: id,
		Waypoints: []road.Waypoint{
			{X: x0, Width: 8, SpeedLimit: 20},
			{X: x1, Width: 8, SpeedLimit: 20},
		},
	}
}

func chainLevel() *engine.LevelConfig {
	return &engine.LevelConfig{
		Name: "Chain",
		Seed: 7,
		Roads: []engine.RoadConfig{
			straight("a", 0, 100),
			straight("b", 100, 200),
			straight("c", 200, 300),
		},
		Connections: []engine.ConnectionConfig{
			{From: "a", FromEnd: road.Finish, To: "b", ToEnd: road.Start},
			{From: "b", FromEnd: road.Finish, To: "c", ToEnd: road.Start},
		},
	}
}

// Test helpers
func setupTestServer(t *testing.T) (*Server, *websocket.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	levels := &memLevels{levels: map[string]*engine.LevelConfig{"chain": chainLevel()}}
	svc := service.NewSimulationService(session.NewManager(), levels)
	hub := websocket.NewHub()
	go hub.Run(ctx)
	return NewServer(svc, hub), hub
}

func makeRequest(method, path string, body interface{}) *http.Request {
	var bodyBytes []byte
	if body != nil {
		bodyBytes, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(bodyBytes))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, s *Server, method, path string, body interface{}, target interface{}) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.ServeHTTP(w, makeRequest(method, path, body))
	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), w.Body.String())
	}
	return w
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	var info service.SessionInfo
	w := do(t, s, "POST", "/api/sessions", map[string]string{"level": "chain"}, &info)
	require.Equal(t, http.StatusCreated, w.Code)
	return info.ID
}

func TestSessionEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)

	t.Run("Create With Default Level", func(t *testing.T) {
		var info service.SessionInfo
		w := do(t, s, "POST", "/api/sessions", nil, &info)
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "chain", info.LevelName)
		assert.Equal(t, 3, info.State.Roads)
	})

	t.Run("Create With Unknown Level", func(t *testing.T) {
		var resp map[string]string
		w := do(t, s, "POST", "/api/sessions", map[string]string{"level": "nowhere"}, &resp)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, resp["error"], "level not found")
	})

	t.Run("Create With Bad Body", func(t *testing.T) {
		w := httptest.NewRecorder()
		s.ServeHTTP(w, httptest.NewRequest("POST", "/api/sessions", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	id := createSession(t, s)

	t.Run("Get", func(t *testing.T) {
		var info service.SessionInfo
		w := do(t, s, "GET", "/api/sessions/"+id, nil, &info)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, id, info.ID)
	})

	t.Run("List", func(t *testing.T) {
		var resp map[string]interface{}
		w := do(t, s, "GET", "/api/sessions?limit=1&sort=created", nil, &resp)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(1), resp["count"])
		assert.Equal(t, float64(2), resp["total"])

		w = do(t, s, "GET", "/api/sessions?level=other", nil, &resp)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(0), resp["count"])
	})

	t.Run("Delete", func(t *testing.T) {
		w := do(t, s, "DELETE", "/api/sessions/"+id, nil, nil)
		assert.Equal(t, http.StatusOK, w.Code)

		w = do(t, s, "GET", "/api/sessions/"+id, nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestNetworkEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id

	var info service.RoadInfo
	w := do(t, s, "POST", base+"/roads", straight("d", 300, 400), &info)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.InDelta(t, 100, info.Length, 1e-9)

	w = do(t, s, "POST", base+"/roads", straight("d", 0, 1), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, s, "POST", base+"/roads", engine.RoadConfig{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	conn := engine.ConnectionConfig{From: "c", FromEnd: road.Finish, To: "d", ToEnd: road.Start}
	w = do(t, s, "POST", base+"/connections", conn, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, "POST", base+"/roads/d/waypoints", road.Waypoint{X: 500, Width: 8}, &info)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, info.Waypoints, 3)

	w = do(t, s, "GET", base+"/roads/d", nil, &info)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.InDelta(t, 200, info.Length, 1e-9)

	var plan engine.RoutePlan
	w = do(t, s, "GET", base+"/route?from=a&to=d&to_t=1", nil, &plan)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"a", "b", "c", "d"}, plan.Roads)

	w = do(t, s, "GET", base+"/route?from=a&to=d&to_t=x", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "DELETE", base+"/connections", conn, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, "GET", base+"/route?from=a&to=d", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var nearest service.NearestInfo
	w = do(t, s, "GET", base+"/nearest?x=150&z=2", nil, &nearest)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "b", nearest.RoadID)
	assert.True(t, nearest.OnRoad)

	var sp road.SpawnPoint
	w = do(t, s, "GET", base+"/spawn", nil, &sp)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, sp.RoadID)

	w = do(t, s, "GET", base+"/geojson", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `"FeatureCollection"`)

	w = do(t, s, "DELETE", base+"/roads/d/waypoints", nil, &info)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, info.Waypoints)

	w = do(t, s, "DELETE", base+"/roads/b", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var pruned map[string]int
	w = do(t, s, "POST", base+"/connections/prune", nil, &pruned)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, pruned["pruned"])

	var roads []service.RoadInfo
	w = do(t, s, "GET", base+"/roads", nil, &roads)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, roads, 3)

	var level engine.LevelConfig
	w = do(t, s, "GET", base+"/export", nil, &level)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, level.Roads, 3)

	w = do(t, s, "GET", base+"/export?format=yaml", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "roads:")

	w = do(t, s, "GET", base+"/roads/zz", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSimulationEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)
	id := createSession(t, s)
	base := "/api/sessions/" + id

	w := do(t, s, "PUT", base+"/input", map[string]float64{"throttle": 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	var state engine.State
	w = do(t, s, "POST", base+"/player", nil, &state)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, state.Player.Active)

	w = do(t, s, "PUT", base+"/input", map[string]float64{"throttle": 1}, &state)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, state.Player.Input.Throttle)

	var result service.TickResult
	w = do(t, s, "POST", base+"/tick", service.TickRequest{Delta: 0.1, Steps: 5}, &result)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uint64(5), result.State.Tick)

	w = do(t, s, "POST", base+"/tick", service.TickRequest{Delta: 3}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "DELETE", base+"/input", nil, &state)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.0, state.Player.Input.Throttle)

	w = do(t, s, "PUT", base+"/settings", map[string]interface{}{"dead_zone": 0.25, "auto_reverse": false}, &state)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0.25, state.Settings.DeadZone)
	assert.False(t, state.Settings.AutoReverse)

	var agent engine.AgentState
	w = do(t, s, "POST", base+"/agents", map[string]string{"destination": "c"}, &agent)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "c", agent.Destination)

	w = do(t, s, "DELETE", base+"/agents/"+agent.ID, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(t, s, "DELETE", base+"/agents/"+agent.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, "GET", base+"/state", nil, &state)
	assert.Equal(t, http.StatusOK, w.Code)

	var history service.HistoryResponse
	w = do(t, s, "GET", base+"/history?limit=1&order=asc", nil, &history)
	assert.Equal(t, http.StatusOK, w.Code)
	require.Len(t, history.Events, 1)
	assert.Equal(t, engine.EventSpawn, history.Events[0].Type)
	assert.True(t, history.HasNext)

	var reset map[string]json.RawMessage
	w = do(t, s, "POST", base+"/reset", nil, &reset)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(reset["state"], &state))
	assert.False(t, state.Player.Active)
	assert.Equal(t, uint64(0), state.Tick)
}

func TestLevelEndpoints(t *testing.T) {
	s, _ := setupTestServer(t)

	var levels []service.LevelInfo
	w := do(t, s, "GET", "/api/levels", nil, &levels)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, levels, 1)

	var level engine.LevelConfig
	w = do(t, s, "GET", "/api/levels/chain.json", nil, &level)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Chain", level.Name)

	w = do(t, s, "GET", "/api/levels/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	body := map[string]interface{}{"id": "short", "level": engine.LevelConfig{
		Name:  "Short",
		Roads: []engine.RoadConfig{straight("x", 0, 10)},
	}}
	w = do(t, s, "POST", "/api/levels", body, nil)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = do(t, s, "POST", "/api/levels", map[string]interface{}{"id": "bad", "level": engine.LevelConfig{}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, "POST", "/api/levels", map[string]interface{}{"level": engine.LevelConfig{Name: "x"}}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrapped: %w", session.ErrSessionNotFound), http.StatusNotFound},
		{engine.ErrRoadNotFound, http.StatusNotFound},
		{engine.ErrDuplicateRoad, http.StatusConflict},
		{engine.ErrNoRoute, http.StatusUnprocessableEntity},
		{engine.ErrInvalidEdit, http.StatusBadRequest},
		{service.ErrInvalidTick, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealth(t *testing.T) {
	s, _ := setupTestServer(t)
	var resp map[string]string
	w := do(t, s, "GET", "/healthz", nil, &resp)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", resp["status"])
}

func TestWebSocketEndpoint(t *testing.T) {
	s, hub := setupTestServer(t)
	id := createSession(t, s)

	srv := httptest.NewServer(s)
	defer srv.Close()
	wsBase := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"

	t.Run("Missing Session", func(t *testing.T) {
		w := do(t, s, "GET", "/ws", nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Unknown Session", func(t *testing.T) {
		w := do(t, s, "GET", "/ws?session=nope", nil, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Receives Tick", func(t *testing.T) {
		conn, _, err := gorillaws.DefaultDialer.Dial(wsBase+"?session="+id, nil)
		require.NoError(t, err)
		defer conn.Close()

		require.Eventually(t, func() bool { return hub.HasClients(id) }, time.Second, 5*time.Millisecond)

		w := do(t, s, "POST", "/api/sessions/"+id+"/tick", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)

		conn.SetReadDeadline(time.Now().Add(time.Second))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, websocket.EventTick, msg.Event)
		assert.Equal(t, id, msg.SessionID)
		require.NotNil(t, msg.State)
		assert.Equal(t, uint64(1), msg.State.Tick)
	})
}
