package steering

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cxd309/seekflee-engine/internal/kinematics"
	"github.com/cxd309/seekflee-engine/internal/vector"
)

const eps = 1e-9

func newTestSeeker(mode Mode, vel vector.Vector3) *Seeker {
	s := NewSeeker("a", mode, vector.Zero(), kinematics.DefaultParams())
	s.Vehicle.Velocity = vel
	s.Target = vector.New(100, 0, 0)
	return s
}

func TestModeText(t *testing.T) {
	for _, m := range []Mode{ModeSeek, ModeFlee} {
		b, err := m.MarshalText()
		require.NoError(t, err)

		var back Mode
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, m, back)
	}

	var m Mode
	assert.ErrorIs(t, m.UnmarshalText([]byte("wander")), ErrUnknownMode)
	_, err := Mode(9).MarshalText()
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestModeDecodesFromJSONAndYAML(t *testing.T) {
	var fromJSON struct {
		Mode Mode `json:"mode"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"flee"}`), &fromJSON))
	assert.Equal(t, ModeFlee, fromJSON.Mode)

	var fromYAML struct {
		Mode Mode `yaml:"mode"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("mode: flee\n"), &fromYAML))
	assert.Equal(t, ModeFlee, fromYAML.Mode)
}

func TestSteerForSeekFlee(t *testing.T) {
	s := newTestSeeker(ModeSeek, vector.New(0, 0.1, 0))
	got := s.SteerForSeekFlee()

	// desired is (100,0,0) truncated to 1.1 * approxLen(velocity)
	goal := 1.1 * 0.1 * 0.9375
	wantDesired := vector.New(goal/0.9375, 0, 0)
	want := wantDesired.Sub(s.Vehicle.Velocity)

	assert.True(t, got.Equal(want, eps), "got %v want %v", got, want)
	assert.Equal(t, got, s.Steering)

	f := newTestSeeker(ModeFlee, vector.New(0, 0.1, 0))
	gotFlee := f.SteerForSeekFlee()
	assert.True(t, gotFlee.Equal(vector.New(-wantDesired.X, -0.1, 0), eps), "got %v", gotFlee)
}

func TestSteeringClampedToMaxForce(t *testing.T) {
	s := newTestSeeker(ModeFlee, vector.New(0.6, 0, 0))
	got := s.SteerForSeekFlee()
	assert.LessOrEqual(t, got.ApproximateLength(), s.Vehicle.MaxForce+eps)
}

func TestAgentAtRestStaysAtRest(t *testing.T) {
	s := newTestSeeker(ModeSeek, vector.Zero())
	for range 50 {
		s.Update()
	}
	assert.Equal(t, vector.Zero(), s.Vehicle.Position)
	assert.Equal(t, vector.Zero(), s.Steering)
	assert.False(t, s.Reached)
}

func TestSeekReachesTarget(t *testing.T) {
	s := newTestSeeker(ModeSeek, vector.New(0.1, 0, 0))
	assert.Equal(t, StateSeeking, s.State())

	prevX := s.Vehicle.Position.X
	reachedAt := -1
	for tick := 0; tick < 5000; tick++ {
		s.Update()
		require.LessOrEqual(t, s.Vehicle.Velocity.ApproximateLength(), s.Vehicle.MaxSpeed+eps)
		if s.Reached {
			reachedAt = tick
			break
		}
		require.Greater(t, s.Vehicle.Position.X, prevX, "tick %d", tick)
		prevX = s.Vehicle.Position.X
	}
	require.NotEqual(t, -1, reachedAt, "target never reached")
	assert.LessOrEqual(t, s.Target.ApproximateDistance(s.Vehicle.Position), ReachRadius)
	assert.Equal(t, StateReached, s.State())

	for range 100 {
		s.Update()
		assert.True(t, s.Reached, "reached is sticky")
	}

	s.ResetReached()
	assert.False(t, s.Reached)
	assert.Equal(t, StateSeeking, s.State())
}

func TestFleeMovesOppositeToSeek(t *testing.T) {
	start := vector.New(0, 0.1, 0)
	seek := newTestSeeker(ModeSeek, start)
	flee := newTestSeeker(ModeFlee, start)
	assert.Equal(t, StateFleeing, flee.State())

	seek.Update()
	flee.Update()
	assert.Greater(t, seek.Vehicle.Position.X, 0.0)
	assert.Less(t, flee.Vehicle.Position.X, 0.0)

	for range 100 {
		seek.Update()
		flee.Update()
	}
	assert.Greater(t, seek.Vehicle.Position.X, 1.0)
	assert.Less(t, flee.Vehicle.Position.X, -1.0)
	assert.False(t, flee.Reached)
}

func TestSnapshot(t *testing.T) {
	s := newTestSeeker(ModeFlee, vector.New(0.2, 0, 0))
	s.Update()
	snap := s.Snapshot()

	assert.Equal(t, "a", snap.AgentID)
	assert.Equal(t, ModeFlee, snap.Mode)
	assert.Equal(t, StateFleeing, snap.State)
	assert.Equal(t, s.Vehicle.Position, snap.Position)
	assert.Equal(t, s.Vehicle.Velocity, snap.Velocity)
	assert.Equal(t, s.Steering, snap.Steering)
	assert.Equal(t, s.Vehicle.Forward, snap.Forward)

	b, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"mode":"flee"`)
	assert.Contains(t, string(b), `"state":"fleeing"`)
}
