package engine

import (
	"github.com/cxd309/seekflee-engine/internal/kinematics"
	"github.com/cxd309/seekflee-engine/internal/steering"
	"github.com/cxd309/seekflee-engine/internal/vector"
)

// Defaults taken from the seek/flee demo window.
const (
	DefaultArenaWidth  = 560.0
	DefaultArenaHeight = 560.0
	DefaultSpawnRadius = 170.0
	DefaultResetAfter  = 15 // frames
)

// SimulationMeta holds the identity and run length of a simulation.
type SimulationMeta struct {
	SimulationID string `json:"simulation_id" yaml:"simulation_id"`
	Ticks        int    `json:"ticks" yaml:"ticks"`
	// Seed drives every random placement. Zero derives a seed from SimulationID.
	Seed uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
	// ResetAfter is how many consecutive frames every seeker must have held
	// its target before the scenario is re-placed. Zero means the default;
	// negative disables resets.
	ResetAfter int `json:"reset_after,omitempty" yaml:"reset_after,omitempty"`
}

// Arena describes the plane the agents move in.
type Arena struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	// SpawnRadius bounds random starts around the centre. nil means
	// DefaultSpawnRadius; 0 starts every agent at the centre.
	SpawnRadius *float64 `json:"spawn_radius,omitempty" yaml:"spawn_radius,omitempty"`
}

// Spawn returns the effective spawn radius.
func (a Arena) Spawn() float64 {
	if a.SpawnRadius == nil {
		return DefaultSpawnRadius
	}
	return *a.SpawnRadius
}

// Center returns the middle of the arena at z = 0.
func (a Arena) Center() vector.Vector3 {
	return vector.New(a.Width*0.5, a.Height*0.5, 0)
}

// StartState pins an agent's first placement.
type StartState struct {
	Position vector.Vector3 `json:"position" yaml:"position"`
	Velocity vector.Vector3 `json:"velocity" yaml:"velocity"`
}

// AgentSpec is the static definition of one steering agent.
type AgentSpec struct {
	AgentID steering.AgentID   `json:"agent_id" yaml:"agent_id"`
	Mode    steering.Mode      `json:"mode" yaml:"mode"`
	Vehicle *kinematics.Params `json:"vehicle,omitempty" yaml:"vehicle,omitempty"` // nil = demo defaults
	Start   *StartState        `json:"start,omitempty" yaml:"start,omitempty"`     // nil = random
}

// SimulationInput is the JSON/YAML-serialisable input to the engine.
type SimulationInput struct {
	Meta   SimulationMeta  `json:"simulation_meta" yaml:"simulation_meta"`
	Arena  Arena           `json:"arena" yaml:"arena"`
	Target *vector.Vector3 `json:"target,omitempty" yaml:"target,omitempty"` // nil = arena centre
	Agents []AgentSpec     `json:"agents" yaml:"agents"`
}

// SimulationLogRow is the state of every agent after one tick.
type SimulationLogRow struct {
	Tick   int                  `json:"tick"`
	Reset  bool                 `json:"reset,omitempty"` // scenario was re-placed after this tick
	Agents []steering.SeekerLog `json:"agents"`
}

// SimulationLog is the complete output of a batch run.
type SimulationLog struct {
	Meta   SimulationMeta     `json:"simulation_meta"`
	Output []SimulationLogRow `json:"output"`
}

// DemoInput returns the two-agent demo scenario: one seeker
// and one fleer sharing a randomised start, aimed at the arena centre.
func DemoInput() SimulationInput {
	return SimulationInput{
		Arena: Arena{
			Width:  DefaultArenaWidth,
			Height: DefaultArenaHeight,
		},
		Agents: []AgentSpec{
			{AgentID: "seek", Mode: steering.ModeSeek},
			{AgentID: "flee", Mode: steering.ModeFlee},
		},
	}
}
