package vehicle

import (
	"math"

	"github.com/copyleft-games/libregnum-sub015/game/road"
)

// CarSpec holds the physical tunables of a Car. Speeds are in units per
// second, accelerations in units per second squared.
type CarSpec struct {
	MaxSpeed         float64 `json:"max_speed" yaml:"max_speed"`
	MaxReverseSpeed  float64 `json:"max_reverse_speed" yaml:"max_reverse_speed"`
	Acceleration     float64 `json:"acceleration" yaml:"acceleration"`
	BrakeDecel       float64 `json:"brake_decel" yaml:"brake_decel"`
	HandbrakeDecel   float64 `json:"handbrake_decel" yaml:"handbrake_decel"`
	Drag             float64 `json:"drag" yaml:"drag"`
	Wheelbase        float64 `json:"wheelbase" yaml:"wheelbase"`
	MaxSteeringAngle float64 `json:"max_steering_angle" yaml:"max_steering_angle"`
}

// DefaultCarSpec returns a mid-sized car.
func DefaultCarSpec() CarSpec {
	return CarSpec{
		MaxSpeed:         40,
		MaxReverseSpeed:  8,
		Acceleration:     8,
		BrakeDecel:       20,
		HandbrakeDecel:   30,
		Drag:             0.05,
		Wheelbase:        2.7,
		MaxSteeringAngle: 0.6,
	}
}

// withDefaults fills zero fields from DefaultCarSpec.
func (s CarSpec) withDefaults() CarSpec {
	d := DefaultCarSpec()
	if s.MaxSpeed <= 0 {
		s.MaxSpeed = d.MaxSpeed
	}
	if s.MaxReverseSpeed <= 0 {
		s.MaxReverseSpeed = d.MaxReverseSpeed
	}
	if s.Acceleration <= 0 {
		s.Acceleration = d.Acceleration
	}
	if s.BrakeDecel <= 0 {
		s.BrakeDecel = d.BrakeDecel
	}
	if s.HandbrakeDecel <= 0 {
		s.HandbrakeDecel = d.HandbrakeDecel
	}
	if s.Drag < 0 {
		s.Drag = d.Drag
	}
	if s.Wheelbase <= 0 {
		s.Wheelbase = d.Wheelbase
	}
	if s.MaxSteeringAngle <= 0 {
		s.MaxSteeringAngle = d.MaxSteeringAngle
	}
	return s
}

// CarState is the persisted kinematic state of a Car.
type CarState struct {
	Position road.Vec3 `json:"position"`
	Heading  float64   `json:"heading"`
	Speed    float64   `json:"speed"`
	Reverse  bool      `json:"reverse"`
}

// Car is a kinematic bicycle-model vehicle moving on the XZ plane. Heading
// is measured from +Z toward +X. Speed is signed: negative while rolling
// backwards.
type Car struct {
	spec CarSpec

	position road.Vec3
	heading  float64
	speed    float64

	throttle  float64
	brake     float64
	steering  float64
	handbrake bool
	reverse   bool
}

// NewCar creates a stationary car at the origin. Zero fields of spec are
// replaced with defaults.
func NewCar(spec CarSpec) *Car {
	return &Car{spec: spec.withDefaults()}
}

func (c *Car) Speed() float64 { return c.speed }
func (c *Car) SetThrottle(v float64) { c.throttle = clamp(v, 0, 1) }
func (c *Car) SetBrake(v float64) { c.brake = clamp(v, 0, 1) }
func (c *Car) SetSteering(v float64) { c.steering = clamp(v, -1, 1) }
func (c *Car) SetHandbrake(engaged bool) { c.handbrake = engaged }
func (c *Car) SetReverse(reverse bool) { c.reverse = reverse }

func (c *Car) Spec() CarSpec { return c.spec }
func (c *Car) Position() road.Vec3 { return c.position }
func (c *Car) Heading() float64 { return c.heading }
func (c *Car) Reverse() bool { return c.reverse }

// Forward returns the unit vector the car is facing.
func (c *Car) Forward() road.Vec3 {
	return road.Vec3{X: math.Sin(c.heading), Z: math.Cos(c.heading)}
}

// Place teleports the car and brings it to rest.
func (c *Car) Place(pos road.Vec3, heading float64) {
	c.position = pos
	c.heading = heading
	c.speed = 0
}

// State returns the kinematic state.
func (c *Car) State() CarState {
	return CarState{
		Position: c.position,
		Heading:  c.heading,
		Speed:    c.speed,
		Reverse:  c.reverse,
	}
}

// Restore replaces the kinematic state.
func (c *Car) Restore(s CarState) {
	c.position = s.Position
	c.heading = s.Heading
	c.speed = s.Speed
	c.reverse = s.Reverse
}

// Step integrates the car forward by delta seconds using the last commands.
func (c *Car) Step(delta float64) {
	if delta <= 0 {
		return
	}

	drive := c.throttle * c.spec.Acceleration
	if c.reverse {
		drive = -drive
	}
	c.speed += drive * delta

	decel := c.brake*c.spec.BrakeDecel + c.spec.Drag*math.Abs(c.speed)
	if c.handbrake {
		decel += c.spec.HandbrakeDecel
	}
	if step := decel * delta; step >= math.Abs(c.speed) {
		c.speed = 0
	} else {
		c.speed -= math.Copysign(step, c.speed)
	}
	c.speed = clamp(c.speed, -c.spec.MaxReverseSpeed, c.spec.MaxSpeed)

	steer := c.steering * c.spec.MaxSteeringAngle
	c.heading += c.speed * math.Tan(steer) / c.spec.Wheelbase * delta
	c.heading = wrapAngle(c.heading)

	c.position = c.position.Add(c.Forward().Scale(c.speed * delta))
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a+math.Pi, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a - math.Pi
}
