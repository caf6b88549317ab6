// Package vehicle turns raw driver input into actuator commands.
//
// A Controller runs a fixed pipeline on every Update: dead-zone shaping,
// sensitivity scaling, exponential smoothing of throttle and steering, and
// a two-state forward/reversing machine. With auto-reverse enabled, holding
// the brake while stopped engages reverse and the brake pedal becomes the
// reverse throttle at half strength; any real throttle input leaves reverse.
//
// The controller drives anything implementing Vehicle. Car is the kinematic
// model used by the simulation:
//
//	car := vehicle.NewCar(vehicle.DefaultCarSpec())
//	ctl := vehicle.NewController()
//	ctl.SetVehicle(car)
//
//	ctl.SetThrottle(0.8)
//	ctl.Update(dt)
//	car.Step(dt)
package vehicle
