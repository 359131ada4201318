package kinematics

import (
	"errors"
	"fmt"
	"math"

	"github.com/cxd309/seekflee-engine/internal/vector"
)

const (
	// AccelerationDamping blends each tick's instantaneous acceleration with
	// the previous smoothed value. The blend runs from the new value toward
	// the old one, so the smoothed acceleration moves 1% per tick.
	AccelerationDamping = 0.99

	// bankingAccelScale weights acceleration into the banking reference.
	bankingAccelScale = 0.5
)

// GlobalUp is the world-space bias added to the banking reference. It is
// deliberately short, not a unit vector.
var GlobalUp = vector.New(0, 0.1, 0)

// ErrInvalidParams is returned by Params.Validate.
var ErrInvalidParams = errors.New("invalid vehicle parameters")

// Params holds the physical limits of a vehicle, fixed at construction.
type Params struct {
	Mass     float64 `json:"mass" yaml:"mass"`
	MaxSpeed float64 `json:"max_speed" yaml:"max_speed"` // length units per tick
	MaxForce float64 `json:"max_force" yaml:"max_force"`
}

// DefaultParams returns the limits used by the seek/flee demo.
func DefaultParams() Params {
	return Params{
		Mass:     1.0,
		MaxSpeed: 0.64,
		MaxForce: 0.48,
	}
}

// Validate checks that the limits describe a usable vehicle.
func (p Params) Validate() error {
	fields := []struct {
		name string
		val  float64
	}{{"mass", p.Mass}, {"max_speed", p.MaxSpeed}, {"max_force", p.MaxForce}}
	for _, f := range fields {
		if math.IsNaN(f.val) || math.IsInf(f.val, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidParams, f.name)
		}
	}
	if p.Mass <= 0 {
		return fmt.Errorf("%w: mass must be positive, got %g", ErrInvalidParams, p.Mass)
	}
	if p.MaxSpeed <= 0 {
		return fmt.Errorf("%w: max_speed must be positive, got %g", ErrInvalidParams, p.MaxSpeed)
	}
	if p.MaxForce < 0 {
		return fmt.Errorf("%w: max_force must not be negative, got %g", ErrInvalidParams, p.MaxForce)
	}
	return nil
}

// Vehicle is a point mass with damped acceleration. It owns its LocalSpace.
type Vehicle struct {
	LocalSpace
	Params

	Velocity     vector.Vector3
	Acceleration vector.Vector3

	// single-tick accumulator, consumed by Update
	pendingForce vector.Vector3
}

// NewVehicle returns a vehicle at rest at pos with the canonical frame.
func NewVehicle(pos vector.Vector3, params Params) *Vehicle {
	return &Vehicle{
		LocalSpace: NewLocalSpace(pos),
		Params:     params,
	}
}

// ApplyForce adds f to the force accumulator. It may be called any number of
// times before the next Update.
func (v *Vehicle) ApplyForce(f vector.Vector3) {
	v.pendingForce = v.pendingForce.Add(f)
}

// PendingForce returns the force accumulated since the last Update.
func (v *Vehicle) PendingForce() vector.Vector3 {
	return v.pendingForce
}

// Speed returns the exact magnitude of the velocity.
func (v *Vehicle) Speed() float64 {
	return v.Velocity.Magnitude()
}

// Update advances the vehicle by one tick. The step order matters: the force
// is clamped and consumed, acceleration is damped, velocity and position are
// integrated, then the frame is re-derived from the new velocity.
func (v *Vehicle) Update() {
	force := v.pendingForce.TruncateApprox(v.MaxForce)

	newAccel := force
	if v.Mass != 1.0 {
		newAccel = force.Scale(1 / v.Mass)
	}
	v.pendingForce = vector.Zero()

	v.Acceleration = vector.Lerp(AccelerationDamping, newAccel, v.Acceleration)

	v.Velocity = v.Velocity.Add(v.Acceleration).TruncateApprox(v.MaxSpeed)
	v.Position = v.Position.Add(v.Velocity)

	accelUp := v.Acceleration.Scale(bankingAccelScale)
	bankUp := v.Up.Add(accelUp).Add(GlobalUp).Normalize()

	// At rest the heading is undefined; keep the previous frame.
	speed := v.Velocity.Magnitude()
	if speed > 0 {
		v.Forward = v.Velocity.Scale(1 / speed)
		v.Side = v.Forward.Cross(bankUp)
		v.Up = v.Side.Cross(v.Forward)
	}
}

// Place moves the vehicle to pos with velocity vel, clearing acceleration and
// any pending force. The frame is left as it was. Drivers use it to reset a
// scenario.
func (v *Vehicle) Place(pos, vel vector.Vector3) {
	v.Position = pos
	v.Velocity = vel
	v.Acceleration = vector.Zero()
	v.pendingForce = vector.Zero()
}
