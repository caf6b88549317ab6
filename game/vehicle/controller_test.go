package vehicle

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frame = 1.0 / 60

// recorder captures the last commands written by the controller.
type recorder struct {
	speed     float64
	throttle  float64
	brake     float64
	steering  float64
	handbrake bool
	reverse   bool
	writes    int
}

func (r *recorder) Speed() float64 { return r.speed }
func (r *recorder) SetThrottle(v float64) { r.throttle = v; r.writes++ }
func (r *recorder) SetBrake(v float64) { r.brake = v }
func (r *recorder) SetSteering(v float64) { r.steering = v }
func (r *recorder) SetHandbrake(engaged bool) { r.handbrake = engaged }
func (r *recorder) SetReverse(reverse bool) { r.reverse = reverse }

func newControlled() (*Controller, *recorder) {
	v := &recorder{}
	c := NewController()
	c.SetVehicle(v)
	return c, v
}

func TestApplyDeadZone(t *testing.T) {
	tests := []struct {
		value, dz, want float64
	}{
		{0.3, 0.2, 0.125},
		{0.1, 0.2, 0},
		{-0.3, 0.2, -0.125},
		{1, 0.2, 1},
		{-1, 0.1, -1},
		{0.5, 0, 0.5},
		{0.2, 0.2, 0},
		{0.5, 1, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, ApplyDeadZone(tt.value, tt.dz), 1e-12, "value=%v dz=%v", tt.value, tt.dz)
	}
}

func TestDefaults(t *testing.T) {
	c := NewController()
	assert.Equal(t, DefaultSettings(), c.Settings())
	assert.Nil(t, c.Vehicle())
	assert.False(t, c.IsReversing())
}

func TestSettersClamp(t *testing.T) {
	c := NewController()

	c.SetThrottle(3)
	c.SetBrake(-1)
	c.SetSteering(-7)
	assert.Equal(t, Input{Throttle: 1, Brake: 0, Steering: -1}, c.Input())

	c.SetThrottleSensitivity(0)
	c.SetSteeringSensitivity(50)
	c.SetDeadZone(2)
	c.SetSmoothing(-1)
	s := c.Settings()
	assert.Equal(t, 0.1, s.ThrottleSensitivity)
	assert.Equal(t, 5.0, s.SteeringSensitivity)
	assert.Equal(t, 0.99, s.DeadZone)
	assert.Equal(t, 0.0, s.Smoothing)

	c.ApplySettings(Settings{ThrottleSensitivity: 9, SteeringSensitivity: 2, DeadZone: 0.2, Smoothing: 1})
	s = c.Settings()
	assert.Equal(t, 5.0, s.ThrottleSensitivity)
	assert.Equal(t, 2.0, s.SteeringSensitivity)
	assert.Equal(t, 0.2, s.DeadZone)
	assert.Equal(t, 0.99, s.Smoothing)
	assert.False(t, s.AutoReverse)
}

func TestUpdateWithoutVehicleIsNoop(t *testing.T) {
	c := NewController()
	c.SetThrottle(1)
	assert.False(t, c.Update(frame))
	assert.Zero(t, c.SmoothedThrottle())
}

func TestSetVehicleTypedNil(t *testing.T) {
	c := NewController()
	c.SetVehicle((*Car)(nil))
	c.SetThrottle(1)

	assert.Nil(t, c.Vehicle())
	assert.False(t, c.Update(frame))
	assert.Equal(t, Output{}, c.Output())
}

func TestUpdateRejectsNonPositiveDelta(t *testing.T) {
	c, v := newControlled()
	c.SetThrottle(1)
	assert.False(t, c.Update(0))
	assert.False(t, c.Update(-1))
	assert.Zero(t, v.writes)
}

func TestSmoothingRate(t *testing.T) {
	c, v := newControlled()
	c.SetDeadZone(0)
	c.SetSmoothing(0.5)
	c.SetThrottle(1)

	require.True(t, c.Update(0.1))
	// rate = 1 - 0.5^(0.1*10) = 0.5
	assert.InDelta(t, 0.5, c.SmoothedThrottle(), 1e-12)
	assert.InDelta(t, 0.5, v.throttle, 1e-12)

	c.Update(0.1)
	assert.InDelta(t, 0.75, c.SmoothedThrottle(), 1e-12)
}

func TestZeroSmoothingIsInstant(t *testing.T) {
	c, v := newControlled()
	c.SetSmoothing(0)
	c.SetDeadZone(0)
	c.SetThrottle(0.7)
	c.SetSteering(-0.4)

	c.Update(frame)
	assert.InDelta(t, 0.7, v.throttle, 1e-12)
	assert.InDelta(t, -0.4, v.steering, 1e-12)
}

func TestSmoothingIsFrameRateIndependent(t *testing.T) {
	fast, _ := newControlled()
	slow, _ := newControlled()
	for _, c := range []*Controller{fast, slow} {
		c.SetSmoothing(0.3)
		c.SetThrottle(1)
	}

	for i := 0; i < 4; i++ {
		fast.Update(0.025)
	}
	slow.Update(0.1)

	assert.InDelta(t, slow.SmoothedThrottle(), fast.SmoothedThrottle(), 1e-9)
}

func TestBrakeIsNotSmoothed(t *testing.T) {
	c, v := newControlled()
	c.SetAutoReverse(false)
	c.SetSmoothing(0.9)
	c.SetDeadZone(0)
	c.SetThrottle(0.5)
	c.SetBrake(0.6)

	c.Update(frame)
	assert.InDelta(t, 0.6, v.brake, 1e-12)
	assert.Less(t, v.throttle, 0.5)
}

func TestSensitivityScalesAndClamps(t *testing.T) {
	c, v := newControlled()
	c.SetSmoothing(0)
	c.SetDeadZone(0)
	c.SetSteeringSensitivity(3)
	c.SetThrottleSensitivity(0.5)
	c.SetSteering(0.5)
	c.SetThrottle(0.8)

	c.Update(frame)
	assert.InDelta(t, 1, v.steering, 1e-12)
	assert.InDelta(t, 0.4, v.throttle, 1e-12)
}

func TestAutoReverseScenario(t *testing.T) {
	c, v := newControlled()
	c.SetSteering(0.5)
	c.SetBrake(1)

	for i := 0; i < 5; i++ {
		require.True(t, c.Update(frame))
	}

	require.True(t, c.IsReversing())
	assert.True(t, v.reverse)
	// Full brake survives the default dead zone rescale unchanged (1.0, not
	// 0.9), so reverse throttle is 0.5 rather than the 0.45 a pre-rescale
	// reading would give.
	assert.InDelta(t, 0.5, v.throttle, 1e-9)
	assert.Zero(t, v.brake)
	assert.Less(t, v.steering, 0.0)
	assert.InDelta(t, -c.SmoothedSteering(), v.steering, 1e-12)

	c.SetThrottle(1)
	for i := 0; i < 10 && c.IsReversing(); i++ {
		c.Update(frame)
	}
	assert.False(t, c.IsReversing())
	assert.Greater(t, c.SmoothedThrottle(), 0.1)
	assert.False(t, v.reverse)
	assert.Greater(t, v.steering, 0.0)
}

func TestAutoReverseNeedsLowSpeed(t *testing.T) {
	c, v := newControlled()
	v.speed = 5
	c.SetBrake(1)

	c.Update(frame)
	assert.False(t, c.IsReversing())
	assert.InDelta(t, 1, v.brake, 1e-12)
	assert.Zero(t, v.throttle)
}

func TestAutoReverseIgnoresLightBrake(t *testing.T) {
	c, _ := newControlled()
	c.SetDeadZone(0)
	c.SetBrake(0.05)

	c.Update(frame)
	assert.False(t, c.IsReversing())
}

func TestAutoReverseHoldsWithoutBrake(t *testing.T) {
	c, v := newControlled()
	c.SetBrake(1)
	c.Update(frame)
	require.True(t, c.IsReversing())

	// Releasing the brake alone does not leave reverse.
	c.SetBrake(0)
	c.Update(frame)
	assert.True(t, c.IsReversing())
	assert.Zero(t, v.throttle)
}

func TestManualModeFollowsThrottleSign(t *testing.T) {
	c, v := newControlled()
	c.SetAutoReverse(false)
	c.SetSmoothing(0)

	c.SetThrottle(-1)
	c.SetBrake(0.8)
	c.Update(frame)
	assert.True(t, c.IsReversing())
	assert.InDelta(t, ApplyDeadZone(0.8, 0.1)*0.5, v.throttle, 1e-12)
	assert.Zero(t, v.brake)

	c.SetThrottle(0.6)
	c.Update(frame)
	assert.False(t, c.IsReversing())
	assert.InDelta(t, ApplyDeadZone(0.6, 0.1), v.throttle, 1e-12)
	assert.InDelta(t, ApplyDeadZone(0.8, 0.1), v.brake, 1e-12)
}

func TestHandbrakePassesThrough(t *testing.T) {
	c, v := newControlled()
	c.SetHandbrake(true)
	c.Update(frame)
	assert.True(t, v.handbrake)
	assert.True(t, c.Output().Handbrake)

	c.SetBrake(1)
	c.Update(frame)
	require.True(t, c.IsReversing())
	assert.True(t, v.handbrake)
}

func TestClearInputResetsState(t *testing.T) {
	c, _ := newControlled()
	c.SetBrake(1)
	c.SetSteering(1)
	c.SetHandbrake(true)
	c.Update(frame)
	require.True(t, c.IsReversing())

	c.ClearInput()
	assert.Equal(t, Input{}, c.Input())
	assert.Zero(t, c.SmoothedSteering())
	assert.Zero(t, c.SmoothedThrottle())
	assert.False(t, c.IsReversing())
	assert.Equal(t, Output{}, c.Output())
}

func TestSetVehicleResetsState(t *testing.T) {
	c, _ := newControlled()
	c.SetBrake(1)
	c.Update(frame)
	require.True(t, c.IsReversing())

	next := &recorder{}
	c.SetVehicle(next)
	assert.Same(t, next, c.Vehicle())
	assert.False(t, c.IsReversing())
	assert.Equal(t, Input{}, c.Input())

	c.SetVehicle(nil)
	assert.False(t, c.Update(frame))
}

func TestDeadZoneSuppressesDrift(t *testing.T) {
	c, v := newControlled()
	c.SetSmoothing(0)
	c.SetSteering(0.05)
	c.SetThrottle(-0.08)
	c.Update(frame)
	assert.Zero(t, v.steering)
	assert.Zero(t, v.throttle)
	assert.False(t, math.Signbit(v.brake))
}
