package road

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eps = 1e-9

func straightRoad(id string) *Road {
	r := New(id)
	r.AddWaypoint(0, 0, 0, 4, 10)
	r.AddWaypoint(10, 0, 0, 8, 30)
	return r
}

func TestNewRoadDefaults(t *testing.T) {
	r := New("main")
	assert.Equal(t, "main", r.ID())
	assert.Equal(t, 2, r.LaneCount())
	assert.False(t, r.OneWay())
	assert.Zero(t, r.WaypointCount())
	assert.Zero(t, r.Length())
}

func TestSetLaneCountClamps(t *testing.T) {
	r := New("r")
	r.SetLaneCount(0)
	assert.Equal(t, 1, r.LaneCount())
	r.SetLaneCount(-3)
	assert.Equal(t, 1, r.LaneCount())
	r.SetLaneCount(4)
	assert.Equal(t, 4, r.LaneCount())
}

func TestAddWaypointReturnsIndex(t *testing.T) {
	r := New("r")
	assert.Equal(t, 0, r.AddWaypoint(0, 0, 0, 1, 1))
	assert.Equal(t, 1, r.AddWaypoint(1, 0, 0, 1, 1))

	wp, ok := r.Waypoint(1)
	require.True(t, ok)
	assert.Equal(t, 1.0, wp.X)

	_, ok = r.Waypoint(2)
	assert.False(t, ok)
}

func TestInterpolateBoundaries(t *testing.T) {
	r := New("r")
	r.AddWaypoint(1, 2, 3, 4, 5)
	r.AddWaypoint(7, 2, -3, 4, 5)
	r.AddWaypoint(7, 9, 12, 4, 5)

	start, ok := r.Interpolate(0)
	require.True(t, ok)
	assert.InDelta(t, 1, start.X, eps)
	assert.InDelta(t, 2, start.Y, eps)
	assert.InDelta(t, 3, start.Z, eps)

	end, ok := r.Interpolate(1)
	require.True(t, ok)
	assert.InDelta(t, 7, end.X, eps)
	assert.InDelta(t, 9, end.Y, eps)
	assert.InDelta(t, 12, end.Z, eps)

	// Out of range values clamp.
	below, _ := r.Interpolate(-2)
	above, _ := r.Interpolate(5)
	assert.Equal(t, start, below)
	assert.Equal(t, end, above)
}

func TestInterpolateIsParameterUniform(t *testing.T) {
	// First segment is 10 long, second is 90 long, yet each gets half of t.
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(10, 0, 0, 1, 1)
	r.AddWaypoint(100, 0, 0, 1, 1)

	mid, ok := r.Interpolate(0.5)
	require.True(t, ok)
	assert.InDelta(t, 10, mid.X, eps)

	quarter, _ := r.Interpolate(0.25)
	assert.InDelta(t, 5, quarter.X, eps)

	threeQuarter, _ := r.Interpolate(0.75)
	assert.InDelta(t, 55, threeQuarter.X, eps)
}

func TestGeometryNeedsTwoWaypoints(t *testing.T) {
	r := New("r")
	r.AddWaypoint(1, 1, 1, 6, 20)

	_, ok := r.Interpolate(0.5)
	assert.False(t, ok)
	_, ok = r.DirectionAt(0.5)
	assert.False(t, ok)
	_, _, ok = r.NearestPoint(Vec3{})
	assert.False(t, ok)
	assert.Zero(t, r.Length())

	// Width and speed still answer.
	assert.Equal(t, 6.0, r.WidthAt(0.5))
	assert.Equal(t, 20.0, r.SpeedLimitAt(0.5))

	empty := New("e")
	assert.Zero(t, empty.WidthAt(0.5))
	assert.Zero(t, empty.SpeedLimitAt(0.5))
}

func TestWidthAndSpeedBlend(t *testing.T) {
	r := straightRoad("r")
	assert.InDelta(t, 6, r.WidthAt(0.5), eps)
	assert.InDelta(t, 20, r.SpeedLimitAt(0.5), eps)
	assert.InDelta(t, 4, r.WidthAt(0), eps)
	assert.InDelta(t, 30, r.SpeedLimitAt(1), eps)
}

func TestDirectionAt(t *testing.T) {
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(0, 0, 5, 1, 1)
	r.AddWaypoint(0, 0, 5, 1, 1) // zero-length segment

	dir, ok := r.DirectionAt(0.1)
	require.True(t, ok)
	assert.InDelta(t, 1, dir.Z, eps)
	assert.InDelta(t, 1, dir.Len(), eps)

	dir, ok = r.DirectionAt(0.9)
	require.True(t, ok)
	assert.Equal(t, Vec3{}, dir)
}

func TestLengthCacheInvalidation(t *testing.T) {
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(3, 4, 0, 1, 1)
	assert.InDelta(t, 5, r.Length(), eps)

	r.AddWaypoint(3, 4, 10, 1, 1)
	assert.InDelta(t, 15, r.Length(), eps)

	r.ClearWaypoints()
	assert.Zero(t, r.Length())

	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(0, 2, 0, 1, 1)
	assert.InDelta(t, 2, r.Length(), eps)
}

func TestNearestPoint(t *testing.T) {
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(10, 0, 0, 1, 1)

	tests := []struct {
		name  string
		p     Vec3
		wantT float64
		wantD float64
	}{
		{"above middle", Vec3{5, 5, 0}, 0.5, 5},
		{"on line", Vec3{2, 0, 0}, 0.2, 0},
		{"before start", Vec3{-3, 4, 0}, 0, 5},
		{"past end", Vec3{13, 0, 4}, 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotT, gotD, ok := r.NearestPoint(tt.p)
			require.True(t, ok)
			assert.InDelta(t, tt.wantT, gotT, 1e-6)
			assert.InDelta(t, tt.wantD, gotD, 1e-6)
		})
	}
}

func TestNearestPointMultiSegmentParameter(t *testing.T) {
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(10, 0, 0, 1, 1)
	r.AddWaypoint(10, 0, 10, 1, 1)

	tt, dist, ok := r.NearestPoint(Vec3{12, 0, 5})
	require.True(t, ok)
	assert.InDelta(t, 0.75, tt, 1e-9)
	assert.InDelta(t, 2, dist, 1e-9)
}

func TestNearestPointTieKeepsFirstSegment(t *testing.T) {
	// The road doubles back over itself, so both segments are equally close.
	r := New("r")
	r.AddWaypoint(0, 0, 0, 1, 1)
	r.AddWaypoint(10, 0, 0, 1, 1)
	r.AddWaypoint(0, 0, 0, 1, 1)

	tt, dist, ok := r.NearestPoint(Vec3{5, 3, 0})
	require.True(t, ok)
	assert.InDelta(t, 3, dist, eps)
	assert.InDelta(t, 0.25, tt, eps)
}

func TestNearestPointDegenerateSegment(t *testing.T) {
	r := New("r")
	r.AddWaypoint(1, 1, 1, 1, 1)
	r.AddWaypoint(1, 1, 1, 1, 1)

	tt, dist, ok := r.NearestPoint(Vec3{1, 1, 4})
	require.True(t, ok)
	assert.Zero(t, tt)
	assert.InDelta(t, 3, dist, eps)
}

func TestWaypointsReturnsCopy(t *testing.T) {
	r := straightRoad("r")
	wps := r.Waypoints()
	wps[0].X = 99
	first, _ := r.Waypoint(0)
	assert.Zero(t, first.X)
}

func TestVecHeading(t *testing.T) {
	assert.InDelta(t, 0, Vec3{Z: 1}.Heading(), eps)
	assert.InDelta(t, math.Pi/2, Vec3{X: 1}.Heading(), eps)
}
