package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

func TestCameraToScreen(t *testing.T) {
	c := Camera{CenterX: 10, CenterZ: 20, Scale: 2}

	x, y := c.ToScreen(10, 20)
	if x != screenWidth/2 || y != (screenHeight+headerHeight)/2 {
		t.Errorf("Expected center to map to screen center, got (%v, %v)", x, y)
	}

	// +Z is up on screen
	_, yUp := c.ToScreen(10, 30)
	if yUp >= y {
		t.Errorf("Expected larger Z to be higher on screen: %v >= %v", yUp, y)
	}
	xRight, _ := c.ToScreen(15, 20)
	if xRight != x+10 {
		t.Errorf("Expected 5 m to span 10 px, got %v", xRight-x)
	}
}

func TestCameraFit(t *testing.T) {
	var c Camera
	c.Fit(nil)
	if c.Scale != 1 || c.CenterX != 0 {
		t.Errorf("Expected default camera for no roads, got %+v", c)
	}

	c.Fit([]Road{{ID: "a", Waypoints: []Waypoint{{X: 0, Z: 0}, {X: 200, Z: 100}}}})
	if c.CenterX != 100 || c.CenterZ != 50 {
		t.Errorf("Expected center (100, 50), got (%v, %v)", c.CenterX, c.CenterZ)
	}
	if c.Scale <= minScale || c.Scale > maxScale {
		t.Errorf("Scale out of range: %v", c.Scale)
	}

	c.Zoom(1000)
	if c.Scale != maxScale {
		t.Errorf("Expected zoom to clamp at %v, got %v", maxScale, c.Scale)
	}
}

func TestInputFromKeys(t *testing.T) {
	held := func(keys ...ebiten.Key) func(ebiten.Key) bool {
		return func(k ebiten.Key) bool {
			for _, h := range keys {
				if h == k {
					return true
				}
			}
			return false
		}
	}

	tests := []struct {
		name string
		keys []ebiten.Key
		want Input
	}{
		{"idle", nil, Input{}},
		{"throttle", []ebiten.Key{ebiten.KeyW}, Input{Throttle: 1}},
		{"brake left", []ebiten.Key{ebiten.KeyArrowDown, ebiten.KeyA}, Input{Brake: 1, Steering: -1}},
		{"both sides cancel", []ebiten.Key{ebiten.KeyA, ebiten.KeyD}, Input{}},
		{"handbrake", []ebiten.Key{ebiten.KeySpace}, Input{Handbrake: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inputFromKeys(held(tt.keys...)); got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestViewerCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/sessions/ab12/roads":
			json.NewEncoder(w).Encode([]Road{{ID: "a", Waypoints: []Waypoint{{X: 1}, {X: 2}}}})
		default:
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "session not found"})
		}
	}))
	defer srv.Close()

	v := &Viewer{baseURL: srv.URL, sessionID: "ab12", client: srv.Client()}
	v.fetchRoads(3)
	if len(v.roads) != 1 || v.roadRevision != 3 {
		t.Errorf("Expected one road at revision 3, got %d at %d", len(v.roads), v.roadRevision)
	}

	err := v.call(http.MethodGet, "/api/sessions/zz/state", nil, &State{})
	if err == nil {
		t.Fatal("Expected error for a missing session")
	}
}
