package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/color"
	"log"
	"math"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hajimehoshi/bitmapfont/v4"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

const (
	screenWidth  = 960
	screenHeight = 720
	headerHeight = 60
	defaultURL   = "http://localhost:8080"
	minScale     = 0.25
	maxScale     = 16
)

var (
	roadColor       = color.RGBA{70, 70, 80, 255}
	oneWayColor     = color.RGBA{90, 80, 60, 255}
	centerLineColor = color.RGBA{230, 200, 60, 255}
	playerColor     = color.RGBA{255, 100, 100, 255}
	offRoadColor    = color.RGBA{255, 165, 0, 255}
	agentColor      = color.RGBA{100, 160, 255, 255}
	arrivedColor    = color.RGBA{120, 120, 120, 255}
	backgroundColor = color.RGBA{40, 110, 50, 255}
	statusColor     = color.RGBA{255, 120, 120, 255}

	hudFace = text.NewGoXFace(bitmapfont.Face)
)

// Vec3 is a world position; the ground plane is XZ
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Waypoint is one control point of a road
type Waypoint struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Z     float64 `json:"z"`
	Width float64 `json:"width"`
}

// Road mirrors the server's road description
type Road struct {
	ID        string     `json:"id"`
	OneWay    bool       `json:"one_way"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Input is the control input sent to the server
type Input struct {
	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steering  float64 `json:"steering"`
	Handbrake bool    `json:"handbrake"`
}

// State mirrors the parts of the simulation state the viewer draws
type State struct {
	Level    string  `json:"level"`
	Revision int     `json:"revision"`
	Tick     uint64  `json:"tick"`
	Elapsed  float64 `json:"elapsed"`
	Player   struct {
		Active bool `json:"active"`
		Car    struct {
			Position Vec3    `json:"position"`
			Heading  float64 `json:"heading"`
			Speed    float64 `json:"speed"`
			Reverse  bool    `json:"reverse"`
		} `json:"car"`
		RoadID     string  `json:"road_id"`
		SpeedLimit float64 `json:"speed_limit"`
		OffRoad    bool    `json:"off_road"`
	} `json:"player"`
	Agents []struct {
		ID       string  `json:"id"`
		Position Vec3    `json:"position"`
		Heading  float64 `json:"heading"`
		Arrived  bool    `json:"arrived"`
	} `json:"agents"`
}

// WSMessage represents WebSocket message wrapper
type WSMessage struct {
	SessionID string `json:"session_id"`
	State     *State `json:"state,omitempty"`
	Event     string `json:"event,omitempty"`
}

// Camera maps world XZ coordinates to screen pixels
type Camera struct {
	CenterX, CenterZ float64
	Scale            float64 // pixels per meter
}

// ToScreen projects a world point. Screen y grows downward, so +Z points up.
func (c Camera) ToScreen(x, z float64) (float32, float32) {
	sx := (x-c.CenterX)*c.Scale + screenWidth/2
	sy := (c.CenterZ-z)*c.Scale + (screenHeight+headerHeight)/2
	return float32(sx), float32(sy)
}

// Fit centers the camera on roads and picks a scale that shows all of them
func (c *Camera) Fit(roads []Road) {
	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, r := range roads {
		for _, wp := range r.Waypoints {
			minX, maxX = math.Min(minX, wp.X), math.Max(maxX, wp.X)
			minZ, maxZ = math.Min(minZ, wp.Z), math.Max(maxZ, wp.Z)
		}
	}
	if math.IsInf(minX, 1) {
		c.CenterX, c.CenterZ, c.Scale = 0, 0, 1
		return
	}

	c.CenterX = (minX + maxX) / 2
	c.CenterZ = (minZ + maxZ) / 2
	w := math.Max(maxX-minX, 1)
	h := math.Max(maxZ-minZ, 1)
	scale := math.Min((screenWidth-40)/w, (screenHeight-headerHeight-40)/h)
	c.Scale = math.Max(minScale, math.Min(maxScale, scale))
}

// Zoom multiplies the scale by factor, within limits
func (c *Camera) Zoom(factor float64) {
	c.Scale = math.Max(minScale, math.Min(maxScale, c.Scale*factor))
}

// inputFromKeys builds the control input from the keys currently held
func inputFromKeys(pressed func(ebiten.Key) bool) Input {
	var in Input
	if pressed(ebiten.KeyArrowUp) || pressed(ebiten.KeyW) {
		in.Throttle = 1
	}
	if pressed(ebiten.KeyArrowDown) || pressed(ebiten.KeyS) {
		in.Brake = 1
	}
	if pressed(ebiten.KeyArrowLeft) || pressed(ebiten.KeyA) {
		in.Steering -= 1
	}
	if pressed(ebiten.KeyArrowRight) || pressed(ebiten.KeyD) {
		in.Steering += 1
	}
	in.Handbrake = pressed(ebiten.KeySpace)
	return in
}

// Viewer is the desktop client for one simulation session
type Viewer struct {
	baseURL   string
	sessionID string
	client    *http.Client

	mu           sync.RWMutex
	state        *State
	roads        []Road
	roadRevision int
	fetching     bool
	status       string

	camera    Camera
	follow    bool
	lastInput Input
	inputs    chan Input
}

// NewViewer attaches to sessionID, creating a session when it is empty
func NewViewer(baseURL, sessionID string) (*Viewer, error) {
	v := &Viewer{
		baseURL:      strings.TrimRight(baseURL, "/"),
		sessionID:    sessionID,
		client:       &http.Client{Timeout: 5 * time.Second},
		roadRevision: -1,
		camera:       Camera{Scale: 1},
		inputs:       make(chan Input, 1),
	}

	if v.sessionID == "" {
		var info struct {
			ID string `json:"id"`
		}
		if err := v.call(http.MethodPost, "/api/sessions", struct{}{}, &info); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		v.sessionID = info.ID
		log.Printf("Created session %s", v.sessionID)
	}

	var state State
	if err := v.call(http.MethodGet, v.sessionPath("/state"), nil, &state); err != nil {
		return nil, fmt.Errorf("failed to fetch state: %w", err)
	}
	v.state = &state
	v.fetchRoads(state.Revision)

	v.mu.Lock()
	v.camera.Fit(v.roads)
	v.mu.Unlock()

	go v.sendInputs()
	go v.listen()
	return v, nil
}

func (v *Viewer) sessionPath(suffix string) string {
	return "/api/sessions/" + url.PathEscape(v.sessionID) + suffix
}

// call performs a JSON request against the API
func (v *Viewer) call(method, path string, body, result interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, v.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&apiErr)
		return fmt.Errorf("%s %s: %d %s", method, path, resp.StatusCode, apiErr.Error)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

// fetchRoads reloads the network geometry for revision
func (v *Viewer) fetchRoads(revision int) {
	var roads []Road
	err := v.call(http.MethodGet, v.sessionPath("/roads"), nil, &roads)

	v.mu.Lock()
	defer v.mu.Unlock()
	v.fetching = false
	if err != nil {
		v.status = err.Error()
		return
	}
	v.roads = roads
	v.roadRevision = revision
}

// listen applies WebSocket state pushes until the connection drops
func (v *Viewer) listen() {
	u, err := url.Parse(v.baseURL)
	if err != nil {
		v.setStatus(err.Error())
		return
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"session": {v.sessionID}}.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		v.setStatus(fmt.Sprintf("WebSocket unavailable: %v", err))
		return
	}
	defer conn.Close()
	log.Printf("WebSocket connected for session %s", v.sessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			v.setStatus(fmt.Sprintf("WebSocket closed: %v", err))
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("WebSocket JSON parse error: %v", err)
			continue
		}
		if msg.Event == "session_deleted" {
			v.setStatus("session deleted on server")
			return
		}
		if msg.State == nil {
			continue
		}

		v.mu.Lock()
		v.state = msg.State
		v.mu.Unlock()
	}
}

// sendInputs forwards input changes, keeping only the latest pending one
func (v *Viewer) sendInputs() {
	for in := range v.inputs {
		if err := v.call(http.MethodPut, v.sessionPath("/input"), in, nil); err != nil {
			v.setStatus(err.Error())
		}
	}
}

func (v *Viewer) queueInput(in Input) {
	select {
	case v.inputs <- in:
	default:
		select {
		case <-v.inputs:
		default:
		}
		v.inputs <- in
	}
}

func (v *Viewer) setStatus(msg string) {
	v.mu.Lock()
	v.status = msg
	v.mu.Unlock()
}

// action runs a one-shot request off the game loop
func (v *Viewer) action(method, suffix string) {
	go func() {
		if err := v.call(method, v.sessionPath(suffix), struct{}{}, nil); err != nil {
			v.setStatus(err.Error())
			return
		}
		v.setStatus("")
	}()
}

// Update reads the keyboard once per frame
func (v *Viewer) Update() error {
	in := inputFromKeys(ebiten.IsKeyPressed)
	if in != v.lastInput {
		v.lastInput = in
		v.queueInput(in)
	}

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		v.action(http.MethodPost, "/player")
	case inpututil.IsKeyJustPressed(ebiten.KeyT):
		v.action(http.MethodPost, "/agents")
	case inpututil.IsKeyJustPressed(ebiten.KeyR):
		v.action(http.MethodPost, "/reset")
	case inpututil.IsKeyJustPressed(ebiten.KeyF):
		v.follow = !v.follow
	case inpututil.IsKeyJustPressed(ebiten.KeyEqual):
		v.camera.Zoom(1.25)
	case inpututil.IsKeyJustPressed(ebiten.KeyMinus):
		v.camera.Zoom(0.8)
	case inpututil.IsKeyJustPressed(ebiten.KeyC):
		v.mu.RLock()
		v.camera.Fit(v.roads)
		v.mu.RUnlock()
		v.follow = false
	}

	v.mu.Lock()
	state := v.state
	if state != nil && state.Revision != v.roadRevision && !v.fetching {
		v.fetching = true
		go v.fetchRoads(state.Revision)
	}
	v.mu.Unlock()

	if v.follow && state != nil && state.Player.Active {
		v.camera.CenterX = state.Player.Car.Position.X
		v.camera.CenterZ = state.Player.Car.Position.Z
	}
	return nil
}

// Draw renders roads, traffic and the player car
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	v.mu.RLock()
	defer v.mu.RUnlock()

	for _, r := range v.roads {
		v.drawRoad(screen, r)
	}

	if v.state != nil {
		for _, a := range v.state.Agents {
			c := agentColor
			if a.Arrived {
				c = arrivedColor
			}
			v.drawCar(screen, a.Position, a.Heading, 1.5, c)
		}
		if p := v.state.Player; p.Active {
			c := playerColor
			if p.OffRoad {
				c = offRoadColor
			}
			v.drawCar(screen, p.Car.Position, p.Car.Heading, 2, c)
		}
	}

	v.drawHeader(screen)
}

func (v *Viewer) drawRoad(screen *ebiten.Image, r Road) {
	fill := roadColor
	if r.OneWay {
		fill = oneWayColor
	}
	for i := 1; i < len(r.Waypoints); i++ {
		a, b := r.Waypoints[i-1], r.Waypoints[i]
		x0, y0 := v.camera.ToScreen(a.X, a.Z)
		x1, y1 := v.camera.ToScreen(b.X, b.Z)
		width := float32((a.Width + b.Width) / 2 * v.camera.Scale)
		if width < 1 {
			width = 1
		}
		vector.StrokeLine(screen, x0, y0, x1, y1, width, fill, true)
		vector.DrawFilledCircle(screen, x0, y0, width/2, fill, true)
		vector.DrawFilledCircle(screen, x1, y1, width/2, fill, true)
	}
	for i := 1; i < len(r.Waypoints); i++ {
		a, b := r.Waypoints[i-1], r.Waypoints[i]
		x0, y0 := v.camera.ToScreen(a.X, a.Z)
		x1, y1 := v.camera.ToScreen(b.X, b.Z)
		vector.StrokeLine(screen, x0, y0, x1, y1, 1, centerLineColor, true)
	}
	if len(r.Waypoints) > 0 {
		mid := r.Waypoints[len(r.Waypoints)/2]
		x, y := v.camera.ToScreen(mid.X, mid.Z)
		ebitenutil.DebugPrintAt(screen, r.ID, int(x)+4, int(y)+4)
	}
}

// drawCar draws a dot with a heading tick. Heading is measured from +Z
// toward +X.
func (v *Viewer) drawCar(screen *ebiten.Image, pos Vec3, heading, size float64, c color.Color) {
	x, y := v.camera.ToScreen(pos.X, pos.Z)
	radius := float32(math.Max(3, size*v.camera.Scale))
	vector.DrawFilledCircle(screen, x, y, radius, c, true)

	hx, hy := v.camera.ToScreen(pos.X+math.Sin(heading)*size*2, pos.Z+math.Cos(heading)*size*2)
	vector.StrokeLine(screen, x, y, hx, hy, 2, color.White, true)
}

func (v *Viewer) drawHeader(screen *ebiten.Image) {
	vector.DrawFilledRect(screen, 0, 0, screenWidth, headerHeight, color.RGBA{20, 20, 20, 230}, false)

	line1 := fmt.Sprintf("Session %s", v.sessionID)
	line2 := "P: Spawn | T: Traffic | R: Reset | F: Follow | C: Fit | +/-: Zoom"
	if s := v.state; s != nil {
		line1 = fmt.Sprintf("Session %s | %s | tick %d (%.1fs) | %d agents", v.sessionID, s.Level, s.Tick, s.Elapsed, len(s.Agents))
		if p := s.Player; p.Active {
			gear := "D"
			if p.Car.Reverse {
				gear = "R"
			}
			road := p.RoadID
			if p.OffRoad || road == "" {
				road = "off road"
			}
			line2 = fmt.Sprintf("%s %5.1f km/h | limit %.0f km/h | %s | Arrows/WASD: Drive, Space: Handbrake",
				gear, math.Abs(p.Car.Speed)*3.6, p.SpeedLimit*3.6, road)
		}
	}
	drawText(screen, line1, 10, 4, color.White)
	drawText(screen, line2, 10, 22, color.White)
	if v.status != "" {
		drawText(screen, v.status, 10, 40, statusColor)
	}
}

func drawText(screen *ebiten.Image, str string, x, y float64, clr color.Color) {
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	text.Draw(screen, str, hudFace, op)
}

// Layout returns the fixed logical screen size
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

func main() {
	baseURL := os.Getenv("LIBREGNUM_URL")
	if baseURL == "" {
		baseURL = defaultURL
	}

	sessionID := ""
	if len(os.Args) > 1 {
		sessionID = os.Args[1]
	}

	viewer, err := NewViewer(baseURL, sessionID)
	if err != nil {
		log.Fatal(err)
	}

	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle("Libregnum - " + viewer.sessionID)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	if err := ebiten.RunGame(viewer); err != nil {
		log.Fatal(err)
	}
}
