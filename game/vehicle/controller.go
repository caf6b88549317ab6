package vehicle

import "math"

const (
	reverseSpeedThreshold    = 0.5
	reverseBrakeThreshold    = 0.1
	reverseThrottleThreshold = 0.1
	reverseThrottleScale     = 0.5

	minSensitivity = 0.1
	maxSensitivity = 5.0
	maxDeadZone    = 0.99
	maxSmoothing   = 0.99
)

// Settings are the tunable parameters of a Controller.
type Settings struct {
	ThrottleSensitivity float64 `json:"throttle_sensitivity" yaml:"throttle_sensitivity"`
	SteeringSensitivity float64 `json:"steering_sensitivity" yaml:"steering_sensitivity"`
	DeadZone            float64 `json:"dead_zone" yaml:"dead_zone"`
	Smoothing           float64 `json:"smoothing" yaml:"smoothing"`
	AutoReverse         bool    `json:"auto_reverse" yaml:"auto_reverse"`
}

// DefaultSettings returns the settings a new Controller starts with.
func DefaultSettings() Settings {
	return Settings{
		ThrottleSensitivity: 1.0,
		SteeringSensitivity: 1.0,
		DeadZone:            0.1,
		Smoothing:           0.1,
		AutoReverse:         true,
	}
}

// Input is a full set of raw control values.
type Input struct {
	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steering  float64 `json:"steering"`
	Handbrake bool    `json:"handbrake"`
}

// Controller shapes raw control input into actuator commands for a single
// vehicle. It is driven by Update once per simulation tick and is not safe
// for concurrent use.
type Controller struct {
	vehicle Vehicle

	raw Input

	smoothedThrottle float64
	smoothedSteering float64
	brake            float64
	reversing        bool

	settings Settings
	output   Output
}

// NewController creates a controller with DefaultSettings and no vehicle.
func NewController() *Controller {
	return &Controller{settings: DefaultSettings()}
}

// Vehicle returns the attached vehicle, or nil.
func (c *Controller) Vehicle() Vehicle {
	return c.vehicle
}

// SetVehicle attaches v and resets all transient state. A nil v, including
// a nil *Car, detaches.
func (c *Controller) SetVehicle(v Vehicle) {
	if car, ok := v.(*Car); ok && car == nil {
		v = nil
	}
	c.vehicle = v
	c.ClearInput()
}

// ClearInput zeroes raw and smoothed input and exits the reversing state.
func (c *Controller) ClearInput() {
	c.raw = Input{}
	c.smoothedThrottle = 0
	c.smoothedSteering = 0
	c.brake = 0
	c.reversing = false
	c.output = Output{}
}

func (c *Controller) SetThrottle(v float64) { c.raw.Throttle = clamp(v, -1, 1) }
func (c *Controller) SetBrake(v float64) { c.raw.Brake = clamp(v, 0, 1) }
func (c *Controller) SetSteering(v float64) { c.raw.Steering = clamp(v, -1, 1) }
func (c *Controller) SetHandbrake(on bool) { c.raw.Handbrake = on }

// SetInput sets every raw input at once, clamping each value.
func (c *Controller) SetInput(in Input) {
	c.SetThrottle(in.Throttle)
	c.SetBrake(in.Brake)
	c.SetSteering(in.Steering)
	c.SetHandbrake(in.Handbrake)
}

// Input returns the current raw input.
func (c *Controller) Input() Input {
	return c.raw
}

func (c *Controller) SetThrottleSensitivity(v float64) {
	c.settings.ThrottleSensitivity = clamp(v, minSensitivity, maxSensitivity)
}

func (c *Controller) SetSteeringSensitivity(v float64) {
	c.settings.SteeringSensitivity = clamp(v, minSensitivity, maxSensitivity)
}

func (c *Controller) SetDeadZone(v float64) {
	c.settings.DeadZone = clamp(v, 0, maxDeadZone)
}

func (c *Controller) SetSmoothing(v float64) {
	c.settings.Smoothing = clamp(v, 0, maxSmoothing)
}

func (c *Controller) SetAutoReverse(on bool) {
	c.settings.AutoReverse = on
}

// ApplySettings sets every tunable, clamping out-of-range values.
func (c *Controller) ApplySettings(s Settings) {
	c.SetThrottleSensitivity(s.ThrottleSensitivity)
	c.SetSteeringSensitivity(s.SteeringSensitivity)
	c.SetDeadZone(s.DeadZone)
	c.SetSmoothing(s.Smoothing)
	c.SetAutoReverse(s.AutoReverse)
}

// Settings returns the current tunables.
func (c *Controller) Settings() Settings {
	return c.settings
}

// IsReversing reports whether the controller is in the reversing state.
func (c *Controller) IsReversing() bool {
	return c.reversing
}

// Output returns the actuator values written by the last update.
func (c *Controller) Output() Output {
	return c.output
}

// SmoothedThrottle returns the filtered throttle value.
func (c *Controller) SmoothedThrottle() float64 {
	return c.smoothedThrottle
}

// SmoothedSteering returns the filtered steering value.
func (c *Controller) SmoothedSteering() float64 {
	return c.smoothedSteering
}

// Update advances the controller by delta seconds and writes the result to
// the vehicle. It does nothing and returns false when no vehicle is attached
// or delta is not positive.
func (c *Controller) Update(delta float64) bool {
	if c.vehicle == nil || delta <= 0 {
		return false
	}

	s := c.settings
	throttle := clamp(ApplyDeadZone(c.raw.Throttle, s.DeadZone)*s.ThrottleSensitivity, -1, 1)
	steering := clamp(ApplyDeadZone(c.raw.Steering, s.DeadZone)*s.SteeringSensitivity, -1, 1)
	brake := clamp(ApplyDeadZone(c.raw.Brake, s.DeadZone), 0, 1)

	rate := 1.0
	if s.Smoothing > 0 {
		rate = 1 - math.Pow(s.Smoothing, delta*10)
	}
	c.smoothedThrottle += (throttle - c.smoothedThrottle) * rate
	c.smoothedSteering += (steering - c.smoothedSteering) * rate
	c.brake = brake

	if s.AutoReverse {
		speed := c.vehicle.Speed()
		if speed < reverseSpeedThreshold && c.brake > reverseBrakeThreshold && c.smoothedThrottle < reverseThrottleThreshold {
			c.reversing = true
		}
		if c.smoothedThrottle > reverseThrottleThreshold {
			c.reversing = false
		}
	} else {
		c.reversing = c.smoothedThrottle < 0
	}

	out := Output{Handbrake: c.raw.Handbrake, Reversing: c.reversing}
	switch {
	case c.reversing:
		out.Throttle = c.brake * reverseThrottleScale
		out.Brake = 0
		out.Steering = -c.smoothedSteering
	case c.smoothedThrottle < 0:
		out.Throttle = 0
		out.Brake = -c.smoothedThrottle
		out.Steering = c.smoothedSteering
	default:
		out.Throttle = c.smoothedThrottle
		out.Brake = c.brake
		out.Steering = c.smoothedSteering
	}
	c.output = out

	if r, ok := c.vehicle.(Reverser); ok {
		r.SetReverse(out.Reversing)
	}
	c.vehicle.SetThrottle(out.Throttle)
	c.vehicle.SetBrake(out.Brake)
	c.vehicle.SetSteering(out.Steering)
	c.vehicle.SetHandbrake(out.Handbrake)
	return true
}

// ApplyDeadZone zeroes values whose magnitude is below dz and rescales the
// rest so that dz maps to 0 and 1 maps to 1, keeping the sign.
func ApplyDeadZone(value, dz float64) float64 {
	mag := math.Abs(value)
	if mag < dz {
		return 0
	}
	if dz >= 1 {
		return 0
	}
	return math.Copysign((mag-dz)/(1-dz), value)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
