// Package engine implements the seek/flee simulation loop: the driver that
// owns a set of steering agents, ticks them once per frame, and applies the
// scenario reset protocol.
//
// Each step has two passes:
//
//  1. Agent pass - every agent steers, pushes its force into its vehicle,
//     integrates, and checks its distance to the target. Agents share no
//     state, so this pass may run them concurrently.
//
//  2. Driver pass - once every seeking agent has held its target for more
//     than ResetAfter consecutive frames, all agents are re-placed at a fresh
//     random start and their reached flags are cleared.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cxd309/seekflee-engine/internal/kinematics"
	"github.com/cxd309/seekflee-engine/internal/logging"
	"github.com/cxd309/seekflee-engine/internal/steering"
	"github.com/cxd309/seekflee-engine/internal/vector"
)

var (
	ErrNoAgents       = errors.New("simulation has no agents")
	ErrDuplicateAgent = errors.New("duplicate agent id")
	ErrNoTicks        = errors.New("simulation run length must be positive")
	ErrInvalidArena   = errors.New("invalid arena")
)

// pcgStream is the second PCG word; the first is the run seed.
const pcgStream = 0x5eef1ee

// Option configures a Simulation.
type Option func(*Simulation)

// WithLogger sets the logger used for reset and reach events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Simulation) { s.logger = logging.OrNop(l) }
}

// WithParallelism ticks up to n agents at once. n <= 1 ticks them in order.
func WithParallelism(n int) Option {
	return func(s *Simulation) { s.parallelism = n }
}

// Simulation is the seek/flee driver state.
type Simulation struct {
	meta   SimulationMeta
	arena  Arena
	target vector.Vector3
	specs  []AgentSpec
	agents []*steering.Seeker

	rng              *rand.Rand
	framesSinceTouch int
	tick             int
	resets           int

	parallelism int
	logger      *zap.Logger
}

// NewSimulation validates input, fills defaults, and places every agent at
// its starting position.
func NewSimulation(input SimulationInput, opts ...Option) (*Simulation, error) {
	input = withDefaults(input)
	if err := validate(input); err != nil {
		return nil, err
	}

	s := &Simulation{
		meta:        input.Meta,
		arena:       input.Arena,
		target:      *input.Target,
		specs:       input.Agents,
		rng:         rand.New(rand.NewPCG(input.Meta.Seed, pcgStream)),
		parallelism: 1,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("simulation_id", s.meta.SimulationID))

	s.agents = make([]*steering.Seeker, 0, len(input.Agents))
	for _, spec := range input.Agents {
		s.agents = append(s.agents, steering.NewSeeker(spec.AgentID, spec.Mode, vector.Zero(), *spec.Vehicle))
	}
	s.place(true)

	return s, nil
}

// withDefaults returns a copy of input with every omitted field filled in.
func withDefaults(input SimulationInput) SimulationInput {
	if input.Meta.SimulationID == "" {
		input.Meta.SimulationID = uuid.NewString()
	}
	if input.Meta.Seed == 0 {
		input.Meta.Seed = xxhash.Sum64String(input.Meta.SimulationID)
	}
	if input.Meta.ResetAfter == 0 {
		input.Meta.ResetAfter = DefaultResetAfter
	}
	if input.Arena.Width == 0 && input.Arena.Height == 0 {
		input.Arena.Width = DefaultArenaWidth
		input.Arena.Height = DefaultArenaHeight
	}
	if input.Arena.SpawnRadius == nil {
		r := DefaultSpawnRadius
		input.Arena.SpawnRadius = &r
	}
	if input.Target == nil {
		c := input.Arena.Center()
		input.Target = &c
	}

	agents := make([]AgentSpec, len(input.Agents))
	for i, a := range input.Agents {
		if a.Vehicle == nil {
			p := kinematics.DefaultParams()
			a.Vehicle = &p
		}
		agents[i] = a
	}
	input.Agents = agents
	return input
}

func validate(input SimulationInput) error {
	if r := input.Arena.Spawn(); input.Arena.Width <= 0 || input.Arena.Height <= 0 || !(r >= 0) {
		return fmt.Errorf("%w: %gx%g, spawn radius %g", ErrInvalidArena,
			input.Arena.Width, input.Arena.Height, r)
	}
	if !input.Target.IsFinite() {
		return fmt.Errorf("target %v is not finite", *input.Target)
	}
	if len(input.Agents) == 0 {
		return ErrNoAgents
	}

	seen := make(map[steering.AgentID]struct{}, len(input.Agents))
	for i, a := range input.Agents {
		if a.AgentID == "" {
			return fmt.Errorf("agent %d: missing agent_id", i)
		}
		if _, dup := seen[a.AgentID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateAgent, a.AgentID)
		}
		seen[a.AgentID] = struct{}{}

		if err := a.Vehicle.Validate(); err != nil {
			return fmt.Errorf("agent %q: %w", a.AgentID, err)
		}
		if a.Start != nil && (!a.Start.Position.IsFinite() || !a.Start.Velocity.IsFinite()) {
			return fmt.Errorf("agent %q: start state is not finite", a.AgentID)
		}
	}
	return nil
}

// place draws one random start shared by every agent: a point in the spawn
// disc around the arena centre and a heading scaled by each agent's own max
// speed. On the first placement, pinned starts win over the random draw.
func (s *Simulation) place(initial bool) {
	pos := vector.RandomUnitBall(s.rng).Scale(s.arena.Spawn()).Add(s.arena.Center())
	pos.Z = 0
	dir := vector.RandomUnitBall(s.rng)

	for i, a := range s.agents {
		a.Target = s.target
		a.Steering = vector.Zero()
		a.ResetReached()

		if spec := s.specs[i]; initial && spec.Start != nil {
			a.Vehicle.Place(spec.Start.Position, spec.Start.Velocity)
			continue
		}
		vel := dir.Scale(a.Vehicle.MaxSpeed)
		vel.Z = 0
		a.Vehicle.Place(pos, vel)
	}
	s.framesSinceTouch = 0
}

// Reset re-places every agent at a fresh random start and clears their
// reached flags.
func (s *Simulation) Reset() {
	s.place(false)
	s.resets++
	s.logger.Debug("scenario reset", zap.Int("tick", s.tick), zap.Int("resets", s.resets))
}

// Step advances the simulation by one tick and returns the resulting log row.
// ctx is only checked before any agent moves: a tick either runs for every
// agent or, on error, leaves the simulation untouched.
func (s *Simulation) Step(ctx context.Context) (SimulationLogRow, error) {
	if err := ctx.Err(); err != nil {
		return SimulationLogRow{}, err
	}

	wasReached := make([]bool, len(s.agents))
	for i, a := range s.agents {
		wasReached[i] = a.Reached
	}

	// Pass 1: tick every agent.
	s.tickAgents()

	for i, a := range s.agents {
		if a.Reached && !wasReached[i] {
			s.logger.Debug("target reached",
				zap.String("agent_id", a.ID),
				zap.Stringer("mode", a.Mode),
				zap.Int("tick", s.tick),
				zap.Stringer("position", a.Vehicle.Position))
		}
	}

	// Snapshot before the driver pass so the reaching frame is visible.
	row := s.Snapshot()

	// Pass 2: reset once every seeker has held its target long enough.
	if s.allSeekersReached() {
		s.framesSinceTouch++
	} else {
		s.framesSinceTouch = 0
	}
	if s.meta.ResetAfter >= 0 && s.framesSinceTouch > s.meta.ResetAfter {
		s.Reset()
		row.Reset = true
	}

	s.tick++
	return row, nil
}

func (s *Simulation) tickAgents() {
	if s.parallelism <= 1 {
		for _, a := range s.agents {
			a.Update()
		}
		return
	}

	var g errgroup.Group
	g.SetLimit(s.parallelism)
	for _, a := range s.agents {
		g.Go(func() error {
			a.Update()
			return nil
		})
	}
	_ = g.Wait()
}

// allSeekersReached reports whether there is at least one seek-mode agent and
// all of them have reached the target.
func (s *Simulation) allSeekersReached() bool {
	seekers := 0
	for _, a := range s.agents {
		if a.Mode != steering.ModeSeek {
			continue
		}
		seekers++
		if !a.Reached {
			return false
		}
	}
	return seekers > 0
}

// Run executes Meta.Ticks steps and returns the log.
func (s *Simulation) Run(ctx context.Context) (SimulationLog, error) {
	if s.meta.Ticks <= 0 {
		return SimulationLog{}, fmt.Errorf("%w: got %d ticks", ErrNoTicks, s.meta.Ticks)
	}

	log := SimulationLog{Meta: s.meta, Output: make([]SimulationLogRow, 0, s.meta.Ticks)}
	for range s.meta.Ticks {
		row, err := s.Step(ctx)
		if err != nil {
			return SimulationLog{}, err
		}
		log.Output = append(log.Output, row)
	}
	s.logger.Info("simulation finished",
		zap.Int("ticks", s.meta.Ticks),
		zap.Int("resets", s.resets))
	return log, nil
}

// Snapshot returns the current state of every agent without advancing.
func (s *Simulation) Snapshot() SimulationLogRow {
	logs := make([]steering.SeekerLog, len(s.agents))
	for i, a := range s.agents {
		logs[i] = a.Snapshot()
	}
	return SimulationLogRow{Tick: s.tick, Agents: logs}
}

// SetTarget moves the scenario target for every agent.
func (s *Simulation) SetTarget(target vector.Vector3) {
	s.target = target
	for _, a := range s.agents {
		a.Target = target
	}
}

func (s *Simulation) Meta() SimulationMeta       { return s.meta }
func (s *Simulation) Arena() Arena               { return s.arena }
func (s *Simulation) Target() vector.Vector3     { return s.target }
func (s *Simulation) Agents() []*steering.Seeker { return s.agents }
func (s *Simulation) Tick() int                  { return s.tick }
func (s *Simulation) Resets() int                { return s.resets }

// Agent looks up an agent by id.
func (s *Simulation) Agent(id steering.AgentID) (*steering.Seeker, bool) {
	for _, a := range s.agents {
		if a.ID == id {
			return a, true
		}
	}
	return nil, false
}

// RunJSON is the primary entry point for the CLI and WASM targets.
// It accepts a JSON-encoded SimulationInput, runs the simulation, and returns
// a JSON-encoded SimulationLog.
func RunJSON(jsonInput string) (string, error) {
	return RunScenario(jsonInput, FormatJSON)
}

// RunScenario is RunJSON for a scenario in any supported format. Unknown
// fields are rejected the same way DecodeInput rejects them.
func RunScenario(scenario string, format Format) (string, error) {
	input, err := DecodeInput(strings.NewReader(scenario), format)
	if err != nil {
		return "", err
	}

	sim, err := NewSimulation(input)
	if err != nil {
		return "", err
	}

	simLog, err := sim.Run(context.Background())
	if err != nil {
		return "", err
	}

	out, err := json.Marshal(simLog)
	if err != nil {
		return "", fmt.Errorf("marshaling output: %w", err)
	}
	return string(out), nil
}
