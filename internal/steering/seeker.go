// Package steering defines the seek/flee agent that drives a kinematics
// Vehicle toward or away from a target point, following Reynolds' steering
// behaviours, along with its snapshot type for renderers and logs.
package steering

import (
	"errors"
	"fmt"

	"github.com/cxd309/seekflee-engine/internal/kinematics"
	"github.com/cxd309/seekflee-engine/internal/vector"
)

// AgentID is a unique string identifier for an agent.
type AgentID = string

const (
	// ReachRadius is the approximate distance at or below which the target
	// counts as reached.
	ReachRadius = 0.6

	// desiredSpeedFactor caps the desired velocity just above current speed.
	desiredSpeedFactor = 1.1
)

// ErrUnknownMode is returned when decoding a mode name that is not recognised.
var ErrUnknownMode = errors.New("unknown steering mode")

// Mode selects which way the agent steers relative to its target.
type Mode uint8

const (
	ModeSeek Mode = iota
	ModeFlee
)

func (m Mode) String() string {
	switch m {
	case ModeSeek:
		return "seek"
	case ModeFlee:
		return "flee"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode converts "seek" or "flee" into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "seek":
		return ModeSeek, nil
	case "flee":
		return ModeFlee, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	switch m {
	case ModeSeek, ModeFlee:
		return []byte(m.String()), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, uint8(m))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler; JSON and YAML both go
// through it.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// State is the agent's position in its seek/flee state machine.
type State string

const (
	StateSeeking State = "seeking"
	StateFleeing State = "fleeing"
	StateReached State = "reached"
)

// Seeker wraps a Vehicle with a target and a steering mode.
type Seeker struct {
	ID      AgentID
	Vehicle *kinematics.Vehicle
	Target  vector.Vector3
	Mode    Mode

	// Steering is the force computed on the last tick, kept for drawing.
	Steering vector.Vector3

	// Reached is sticky: the agent sets it and only the driver clears it.
	Reached bool
}

// NewSeeker returns an agent whose vehicle starts at pos with zero velocity.
func NewSeeker(id AgentID, mode Mode, pos vector.Vector3, params kinematics.Params) *Seeker {
	return &Seeker{
		ID:      id,
		Vehicle: kinematics.NewVehicle(pos, params),
		Mode:    mode,
	}
}

// State derives the current state from the mode and the reached flag.
func (s *Seeker) State() State {
	if s.Reached {
		return StateReached
	}
	if s.Mode == ModeFlee {
		return StateFleeing
	}
	return StateSeeking
}

// SteerForSeekFlee computes this tick's steering force, stores it in
// s.Steering and returns it.
//
// The desired velocity points at (seek) or away from (flee) the target with
// an approximate length of 1.1 times the current approximate speed; the
// steering force is desired minus current velocity, clamped to MaxForce.
func (s *Seeker) SteerForSeekFlee() vector.Vector3 {
	pos := s.Vehicle.Position
	vel := s.Vehicle.Velocity

	var desired vector.Vector3
	switch s.Mode {
	case ModeFlee:
		desired = pos.Sub(s.Target)
	default:
		desired = s.Target.Sub(pos)
	}

	goalLength := desiredSpeedFactor * vel.ApproximateLength()
	desired = desired.TruncateApprox(goalLength)

	s.Steering = desired.Sub(vel).TruncateApprox(s.Vehicle.MaxForce)
	return s.Steering
}

// Update runs one tick: steer, apply the force, integrate the vehicle, then
// check the distance to the target.
func (s *Seeker) Update() {
	s.Vehicle.ApplyForce(s.SteerForSeekFlee())
	s.Vehicle.Update()

	if s.Target.ApproximateDistance(s.Vehicle.Position) <= ReachRadius {
		s.Reached = true
	}
}

// ResetReached clears the reached flag. Only drivers call it.
func (s *Seeker) ResetReached() {
	s.Reached = false
}

// SeekerLog is a point-in-time snapshot of a Seeker's state.
type SeekerLog struct {
	AgentID  AgentID        `json:"agent_id"`
	Mode     Mode           `json:"mode"`
	State    State          `json:"state"`
	Position vector.Vector3 `json:"position"`
	Velocity vector.Vector3 `json:"velocity"`
	Steering vector.Vector3 `json:"steering"`
	Forward  vector.Vector3 `json:"forward"`
	Side     vector.Vector3 `json:"side"`
	Up       vector.Vector3 `json:"up"`
	Target   vector.Vector3 `json:"target"`
	Reached  bool           `json:"reached"`
}

// Snapshot returns a point-in-time snapshot of the agent.
func (s *Seeker) Snapshot() SeekerLog {
	v := s.Vehicle
	return SeekerLog{
		AgentID:  s.ID,
		Mode:     s.Mode,
		State:    s.State(),
		Position: v.Position,
		Velocity: v.Velocity,
		Steering: s.Steering,
		Forward:  v.Forward,
		Side:     v.Side,
		Up:       v.Up,
		Target:   s.Target,
		Reached:  s.Reached,
	}
}
