package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/copyleft-games/libregnum-sub015/game/config"
	"github.com/copyleft-games/libregnum-sub015/game/engine"
	"github.com/copyleft-games/libregnum-sub015/game/road"
	"github.com/copyleft-games/libregnum-sub015/game/service"
	"github.com/copyleft-games/libregnum-sub015/game/session"
	"github.com/copyleft-games/libregnum-sub015/game/vehicle"
	"github.com/copyleft-games/libregnum-sub015/transport/websocket"
)

// maxBodyBytes bounds request bodies; levels are the largest payload.
const maxBodyBytes = 1 << 20

// Server represents the REST API server
type Server struct {
	service service.SimulationService
	hub     *websocket.Hub
	router  *mux.Router
}

// NewServer creates a new API server. hub may be nil.
func NewServer(svc service.SimulationService, hub *websocket.Hub) *Server {
	s := &Server{
		service: svc,
		hub:     hub,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	s.router.Use(logRequests)

	api := s.router.PathPrefix("/api").Subrouter()

	// Session management
	api.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	api.HandleFunc("/sessions", s.handleListSessions).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	api.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")

	// Network editing and queries
	api.HandleFunc("/sessions/{id}/roads", s.handleListRoads).Methods("GET")
	api.HandleFunc("/sessions/{id}/roads", s.handleAddRoad).Methods("POST")
	api.HandleFunc("/sessions/{id}/roads/{road}", s.handleGetRoad).Methods("GET")
	api.HandleFunc("/sessions/{id}/roads/{road}", s.handleRemoveRoad).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/roads/{road}/waypoints", s.handleAddWaypoint).Methods("POST")
	api.HandleFunc("/sessions/{id}/roads/{road}/waypoints", s.handleClearWaypoints).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/connections", s.handleConnect).Methods("POST")
	api.HandleFunc("/sessions/{id}/connections", s.handleDisconnect).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/connections/prune", s.handlePrune).Methods("POST")
	api.HandleFunc("/sessions/{id}/route", s.handleRoute).Methods("GET")
	api.HandleFunc("/sessions/{id}/nearest", s.handleNearest).Methods("GET")
	api.HandleFunc("/sessions/{id}/spawn", s.handleSpawnPoint).Methods("GET")
	api.HandleFunc("/sessions/{id}/geojson", s.handleGeoJSON).Methods("GET")
	api.HandleFunc("/sessions/{id}/export", s.handleExport).Methods("GET")

	// Simulation
	api.HandleFunc("/sessions/{id}/state", s.handleGetState).Methods("GET")
	api.HandleFunc("/sessions/{id}/player", s.handleSpawnPlayer).Methods("POST")
	api.HandleFunc("/sessions/{id}/agents", s.handleSpawnAgent).Methods("POST")
	api.HandleFunc("/sessions/{id}/agents/{agent}", s.handleRemoveAgent).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/input", s.handleSetInput).Methods("PUT", "POST")
	api.HandleFunc("/sessions/{id}/input", s.handleClearInput).Methods("DELETE")
	api.HandleFunc("/sessions/{id}/settings", s.handleSettings).Methods("PUT")
	api.HandleFunc("/sessions/{id}/tick", s.handleTick).Methods("POST")
	api.HandleFunc("/sessions/{id}/reset", s.handleReset).Methods("POST")
	api.HandleFunc("/sessions/{id}/history", s.handleGetHistory).Methods("GET")

	// Levels
	api.HandleFunc("/levels", s.handleListLevels).Methods("GET")
	api.HandleFunc("/levels", s.handleSaveLevel).Methods("POST")
	api.HandleFunc("/levels/{name}", s.handleGetLevel).Methods("GET")

	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// statusWriter records the response status for logging
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.status,
			"duration", time.Since(start))
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondErr maps service errors onto HTTP status codes
func respondErr(w http.ResponseWriter, err error) {
	respondError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, config.ErrLevelNotFound),
		errors.Is(err, engine.ErrRoadNotFound),
		errors.Is(err, engine.ErrAgentNotFound),
		errors.Is(err, engine.ErrLinkNotFound):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrDuplicateRoad),
		errors.Is(err, session.ErrSessionAlreadyExists),
		errors.Is(err, engine.ErrPlayerNotSpawned),
		errors.Is(err, engine.ErrTooManyAgents):
		return http.StatusConflict
	case errors.Is(err, engine.ErrNoRoute),
		errors.Is(err, engine.ErrNoSpawnPoint):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrInvalidEdit),
		errors.Is(err, engine.ErrInvalidLevel),
		errors.Is(err, config.ErrInvalidLevel),
		errors.Is(err, session.ErrInvalidSessionID),
		errors.Is(err, service.ErrInvalidTick),
		errors.Is(err, service.ErrInvalidRoute):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v interface{}, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryFloat(r *http.Request, key string) (float64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return v, nil
}

// broadcastState pushes the current state of a session to its viewers
func (s *Server) broadcastState(r *http.Request, sessionID string) {
	if s.hub == nil || !s.hub.HasClients(sessionID) {
		return
	}
	state, err := s.service.GetState(r.Context(), sessionID)
	if err != nil {
		return
	}
	s.hub.BroadcastState(sessionID, state)
}

// Session Handlers

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Level string `json:"level,omitempty"`
	}
	if err := decode(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.CreateSession(r.Context(), req.Level)
	if err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.service.ListSessions(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}

	query := r.URL.Query()
	sortBy := query.Get("sort")    // "created", "accessed" (default)
	order := query.Get("order")    // "asc", "desc" (default: "desc")
	limitStr := query.Get("limit") // number of sessions to return

	if sortBy == "" {
		sortBy = "accessed"
	}
	if order == "" {
		order = "desc"
	}
	if level := query.Get("level"); level != "" {
		filtered := sessions[:0]
		for _, info := range sessions {
			if info.LevelName == level {
				filtered = append(filtered, info)
			}
		}
		sessions = filtered
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		var ti, tj time.Time
		if sortBy == "created" {
			ti, tj = sessions[i].CreatedAt, sessions[j].CreatedAt
		} else {
			ti, tj = sessions[i].LastAccessedAt, sessions[j].LastAccessedAt
		}

		if order == "asc" {
			return ti.Before(tj)
		}
		return ti.After(tj)
	})

	total := len(sessions)
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l < len(sessions) {
			sessions = sessions[:l]
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(sessions),
		"total":    total,
		"sessions": sessions,
		"sort":     sortBy,
		"order":    order,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.service.GetSession(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	if err := s.service.DeleteSession(r.Context(), sessionID); err != nil {
		respondErr(w, err)
		return
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(sessionID, websocket.EventDelete, nil)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Session %s deleted", sessionID),
	})
}

// Network Handlers

func (s *Server) handleListRoads(w http.ResponseWriter, r *http.Request) {
	roads, err := s.service.ListRoads(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, roads)
}

func (s *Server) handleAddRoad(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var rc engine.RoadConfig
	if err := decode(r, &rc, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.AddRoad(r.Context(), sessionID, rc)
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, sessionID)
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleGetRoad(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	info, err := s.service.GetRoad(r.Context(), vars["id"], vars["road"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleRemoveRoad(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.service.RemoveRoad(r.Context(), vars["id"], vars["road"]); err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, vars["id"])
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Road %s removed", vars["road"]),
	})
}

func (s *Server) handleAddWaypoint(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var wp road.Waypoint
	if err := decode(r, &wp, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	info, err := s.service.AddWaypoint(r.Context(), vars["id"], vars["road"], wp)
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, vars["id"])
	respondJSON(w, http.StatusCreated, info)
}

func (s *Server) handleClearWaypoints(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	info, err := s.service.ClearWaypoints(r.Context(), vars["id"], vars["road"])
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, vars["id"])
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	s.handleConnection(w, r, http.StatusCreated, s.service.Connect)
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	s.handleConnection(w, r, http.StatusOK, s.service.Disconnect)
}

func (s *Server) handleConnection(w http.ResponseWriter, r *http.Request, status int,
	op func(ctx context.Context, sessionID string, c engine.ConnectionConfig) error) {
	sessionID := mux.Vars(r)["id"]

	var c engine.ConnectionConfig
	if err := decode(r, &c, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := op(r.Context(), sessionID, c); err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, sessionID)
	respondJSON(w, status, c)
}

func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	n, err := s.service.PruneDangling(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	if n > 0 {
		s.broadcastState(r, sessionID)
	}
	respondJSON(w, http.StatusOK, map[string]int{"pruned": n})
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.RouteRequest{
		From: query.Get("from"),
		To:   query.Get("to"),
	}

	var err error
	if req.FromT, err = queryFloat(r, "from_t"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ToT, err = queryFloat(r, "to_t"); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	plan, err := s.service.FindRoute(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleNearest(w http.ResponseWriter, r *http.Request) {
	var p road.Vec3
	for key, dst := range map[string]*float64{"x": &p.X, "y": &p.Y, "z": &p.Z} {
		v, err := queryFloat(r, key)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = v
	}

	info, err := s.service.NearestRoad(r.Context(), mux.Vars(r)["id"], p)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

func (s *Server) handleSpawnPoint(w http.ResponseWriter, r *http.Request) {
	sp, err := s.service.SpawnPoint(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sp)
}

func (s *Server) handleGeoJSON(w http.ResponseWriter, r *http.Request) {
	fc, err := s.service.GeoJSON(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		respondErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	level, err := s.service.ExportLevel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}

	if format := r.URL.Query().Get("format"); format == "yaml" || format == "yml" {
		data, err := engine.MarshalLevel(level, format)
		if err != nil {
			respondErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

// Simulation Handlers

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.GetState(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSpawnPlayer(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]
	state, err := s.service.SpawnPlayer(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcast(sessionID, state)
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSpawnAgent(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req struct {
		Destination string `json:"destination,omitempty"`
	}
	if err := decode(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	agent, err := s.service.SpawnAgent(r.Context(), sessionID, req.Destination)
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, sessionID)
	respondJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleRemoveAgent(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := s.service.RemoveAgent(r.Context(), vars["id"], vars["agent"]); err != nil {
		respondErr(w, err)
		return
	}
	s.broadcastState(r, vars["id"])
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Agent %s removed", vars["agent"]),
	})
}

func (s *Server) handleSetInput(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var in vehicle.Input
	if err := decode(r, &in, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.service.SetInput(r.Context(), sessionID, in)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearInput(w http.ResponseWriter, r *http.Request) {
	state, err := s.service.ClearInput(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	settings := vehicle.DefaultSettings()
	if err := decode(r, &settings, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	state, err := s.service.ApplySettings(r.Context(), sessionID, settings)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, state)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	var req service.TickRequest
	if err := decode(r, &req, true); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Tick(r.Context(), sessionID, req)
	if err != nil {
		respondErr(w, err)
		return
	}

	if s.hub != nil {
		s.hub.BroadcastTick(sessionID, result.State, result.Events)
	}
	for _, e := range result.Events {
		slog.Debug("simulation event", "session", sessionID, "type", e.Type, "tick", e.Tick, "message", e.Message)
	}

	respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sessionID := mux.Vars(r)["id"]

	state, err := s.service.Reset(r.Context(), sessionID)
	if err != nil {
		respondErr(w, err)
		return
	}
	s.broadcast(sessionID, state)

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Simulation reset successfully",
		"state":   state,
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	opts := service.HistoryOptions{
		Page:  1,
		Limit: 20,
		Order: "desc",
	}

	query := r.URL.Query()
	if pageStr := query.Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			opts.Page = p
		}
	}
	if limitStr := query.Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			opts.Limit = l
		}
	}
	if order := query.Get("order"); order == "asc" || order == "desc" {
		opts.Order = order
	}

	history, err := s.service.GetHistory(r.Context(), mux.Vars(r)["id"], opts)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, history)
}

func (s *Server) broadcast(sessionID string, state *engine.State) {
	if s.hub != nil {
		s.hub.BroadcastState(sessionID, state)
	}
}

// Level Handlers

func (s *Server) handleListLevels(w http.ResponseWriter, r *http.Request) {
	levels, err := s.service.ListLevels(r.Context())
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, levels)
}

func (s *Server) handleGetLevel(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	for _, ext := range []string{".json", ".yaml", ".yml"} {
		name = strings.TrimSuffix(name, ext)
	}

	level, err := s.service.LoadLevel(r.Context(), name)
	if err != nil {
		respondErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, level)
}

func (s *Server) handleSaveLevel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string             `json:"id"`
		Level engine.LevelConfig `json:"level"`
	}
	if err := decode(r, &req, false); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "level id is required")
		return
	}

	if err := s.service.SaveLevel(r.Context(), req.ID, &req.Level); err != nil {
		respondErr(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"message":  "Level saved successfully",
		"level_id": req.ID,
	})
}

// WebSocket Handler

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not available", http.StatusServiceUnavailable)
		return
	}

	sessionID := r.URL.Query().Get("session")
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	if _, err := s.service.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "Invalid session", http.StatusNotFound)
		return
	}

	s.hub.ServeWS(w, r, sessionID)
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
