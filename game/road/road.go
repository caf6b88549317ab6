package road

import "math"

const defaultLaneCount = 2

// Waypoint is a single control point of a road centre line.
type Waypoint struct {
	X          float64 `json:"x" yaml:"x"`
	Y          float64 `json:"y" yaml:"y"`
	Z          float64 `json:"z" yaml:"z"`
	Width      float64 `json:"width" yaml:"width"`
	SpeedLimit float64 `json:"speed_limit" yaml:"speed_limit"`
}

// Pos returns the waypoint position.
func (w Waypoint) Pos() Vec3 {
	return Vec3{w.X, w.Y, w.Z}
}

// Road is a poly-line of waypoints. Geometric queries need at least two
// waypoints; width and speed queries work with fewer.
//
// A Road is not safe for concurrent use. Length caches its result, so even
// read-only callers on different goroutines must be serialized.
type Road struct {
	id        string
	waypoints []Waypoint
	oneWay    bool
	laneCount int

	cachedLength float64
	lengthDirty  bool
}

// New creates an empty two-lane, two-way road.
func New(id string) *Road {
	return &Road{
		id:          id,
		laneCount:   defaultLaneCount,
		lengthDirty: true,
	}
}

// ID returns the identifier assigned at construction.
func (r *Road) ID() string {
	return r.id
}

// AddWaypoint appends a waypoint and returns its index.
func (r *Road) AddWaypoint(x, y, z, width, speedLimit float64) int {
	r.waypoints = append(r.waypoints, Waypoint{
		X: x, Y: y, Z: z,
		Width:      width,
		SpeedLimit: speedLimit,
	})
	r.lengthDirty = true
	return len(r.waypoints) - 1
}

// ClearWaypoints removes every waypoint.
func (r *Road) ClearWaypoints() {
	r.waypoints = nil
	r.lengthDirty = true
}

// WaypointCount returns the number of waypoints.
func (r *Road) WaypointCount() int {
	return len(r.waypoints)
}

// Waypoint returns the waypoint at index i.
func (r *Road) Waypoint(i int) (Waypoint, bool) {
	if i < 0 || i >= len(r.waypoints) {
		return Waypoint{}, false
	}
	return r.waypoints[i], true
}

// Waypoints returns a copy of the waypoint sequence.
func (r *Road) Waypoints() []Waypoint {
	out := make([]Waypoint, len(r.waypoints))
	copy(out, r.waypoints)
	return out
}

func (r *Road) OneWay() bool {
	return r.oneWay
}

func (r *Road) SetOneWay(oneWay bool) {
	r.oneWay = oneWay
}

func (r *Road) LaneCount() int {
	return r.laneCount
}

// SetLaneCount sets the lane count, clamped to at least one lane.
func (r *Road) SetLaneCount(n int) {
	if n < 1 {
		n = 1
	}
	r.laneCount = n
}

// Length returns the polyline length. The value is cached until the
// waypoints change.
func (r *Road) Length() float64 {
	if !r.lengthDirty {
		return r.cachedLength
	}

	total := 0.0
	for i := 1; i < len(r.waypoints); i++ {
		total += r.waypoints[i-1].Pos().Dist(r.waypoints[i].Pos())
	}

	r.cachedLength = total
	r.lengthDirty = false
	return total
}

// segmentAt maps a global parameter onto a segment index and the local
// parameter within it. Every segment gets an equal share of [0,1] regardless
// of its physical length. Callers must ensure there are at least two waypoints.
func (r *Road) segmentAt(t float64) (int, float64) {
	t = clamp01(t)
	segments := len(r.waypoints) - 1

	scaled := t * float64(segments)
	seg := int(math.Floor(scaled))
	if seg > segments-1 {
		seg = segments - 1
	}
	return seg, scaled - float64(seg)
}

// Interpolate returns the centre-line position at t in [0,1].
func (r *Road) Interpolate(t float64) (Vec3, bool) {
	if len(r.waypoints) < 2 {
		return Vec3{}, false
	}
	seg, local := r.segmentAt(t)
	a, b := r.waypoints[seg].Pos(), r.waypoints[seg+1].Pos()
	return a.Lerp(b, local), true
}

// DirectionAt returns the unit tangent at t. A zero-length segment yields
// the zero vector.
func (r *Road) DirectionAt(t float64) (Vec3, bool) {
	if len(r.waypoints) < 2 {
		return Vec3{}, false
	}
	seg, _ := r.segmentAt(t)
	a, b := r.waypoints[seg].Pos(), r.waypoints[seg+1].Pos()
	return b.Sub(a).Normalize(), true
}

// WidthAt returns the road width at t.
func (r *Road) WidthAt(t float64) float64 {
	return r.blend(t, func(w Waypoint) float64 { return w.Width })
}

// SpeedLimitAt returns the speed limit at t.
func (r *Road) SpeedLimitAt(t float64) float64 {
	return r.blend(t, func(w Waypoint) float64 { return w.SpeedLimit })
}

func (r *Road) blend(t float64, field func(Waypoint) float64) float64 {
	switch len(r.waypoints) {
	case 0:
		return 0
	case 1:
		return field(r.waypoints[0])
	}
	seg, local := r.segmentAt(t)
	a, b := field(r.waypoints[seg]), field(r.waypoints[seg+1])
	return a + (b-a)*local
}

// NearestPoint projects p onto the road and returns the global parameter of
// the closest point and the distance to it. Ties keep the earliest segment.
func (r *Road) NearestPoint(p Vec3) (t, distance float64, ok bool) {
	if len(r.waypoints) < 2 {
		return 0, 0, false
	}

	segments := len(r.waypoints) - 1
	bestDistSq := math.Inf(1)
	bestSeg, bestLocal := 0, 0.0

	for i := 0; i < segments; i++ {
		a, b := r.waypoints[i].Pos(), r.waypoints[i+1].Pos()
		ab := b.Sub(a)

		local := 0.0
		if lenSq := ab.LenSq(); lenSq > 0 {
			local = clamp01(p.Sub(a).Dot(ab) / lenSq)
		}

		distSq := p.Sub(a.Add(ab.Scale(local))).LenSq()
		if distSq < bestDistSq {
			bestDistSq = distSq
			bestSeg = i
			bestLocal = local
		}
	}

	t = (float64(bestSeg) + bestLocal) / float64(segments)
	return t, math.Sqrt(bestDistSq), true
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
