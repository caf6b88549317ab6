package vehicle

// Vehicle is the actuator side of a controlled vehicle. The controller reads
// its speed and writes control values once per update.
type Vehicle interface {
	Speed() float64
	SetThrottle(throttle float64)
	SetBrake(brake float64)
	SetSteering(steering float64)
	SetHandbrake(engaged bool)
}

// Reverser is implemented by vehicles that select a gear. When the attached
// vehicle implements it, the controller reports its reversing state every
// update.
type Reverser interface {
	SetReverse(reverse bool)
}

// Output holds the actuator values produced by the last update.
type Output struct {
	Throttle  float64 `json:"throttle"`
	Brake     float64 `json:"brake"`
	Steering  float64 `json:"steering"`
	Handbrake bool    `json:"handbrake"`
	Reversing bool    `json:"reversing"`
}
