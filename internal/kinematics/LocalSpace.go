// Package kinematics implements the point-mass vehicle used by the steering
// agents: a damped force-to-motion integrator that owns an oriented local
// coordinate frame.
//
// A vehicle is stepped once per simulation tick with no delta-time parameter;
// each call to Update is one fixed tick. Forces are applied between ticks and
// consumed by the next Update.
package kinematics

import "github.com/cxd309/seekflee-engine/internal/vector"

// LocalSpace is the oriented frame attached to a vehicle. Forward, Side and
// Up are meant to stay approximately orthonormal; they are re-derived from
// velocity every tick and never re-orthonormalised, so long runs accumulate
// floating point drift.
type LocalSpace struct {
	Forward  vector.Vector3 `json:"forward"` // +Z at rest
	Side     vector.Vector3 `json:"side"`    // +X at rest
	Up       vector.Vector3 `json:"up"`      // +Y at rest
	Position vector.Vector3 `json:"position"`
}

// NewLocalSpace returns the canonical basis positioned at pos.
func NewLocalSpace(pos vector.Vector3) LocalSpace {
	return LocalSpace{
		Forward:  vector.New(0, 0, 1),
		Side:     vector.New(1, 0, 0),
		Up:       vector.New(0, 1, 0),
		Position: pos,
	}
}
