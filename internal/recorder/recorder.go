// Package recorder stores simulation runs in SQLite through GORM so an
// external renderer can replay trajectories after the fact.
package recorder

import (
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/cxd309/seekflee-engine/internal/engine"
	"github.com/cxd309/seekflee-engine/internal/logging"
	"github.com/cxd309/seekflee-engine/internal/steering"
	"github.com/cxd309/seekflee-engine/internal/vector"
)

const batchSize = 500

var ErrRunNotFound = errors.New("run not found")

// Run is one recorded simulation.
type Run struct {
	ID         string `gorm:"primaryKey"`
	Seed       int64  // bit pattern of the uint64 seed; sqlite has no unsigned 64-bit integers
	Ticks      int
	ResetAfter int
	CreatedAt  time.Time
}

// AgentFrame is one agent's state after one tick.
type AgentFrame struct {
	ID      uint   `gorm:"primaryKey"`
	RunID   string `gorm:"index:idx_frame_run_agent_tick,priority:1"`
	AgentID string `gorm:"index:idx_frame_run_agent_tick,priority:2"`
	Tick    int    `gorm:"index:idx_frame_run_agent_tick,priority:3"`
	Mode    string
	State   string
	Reached bool
	Reset   bool

	PosX, PosY, PosZ       float64
	VelX, VelY, VelZ       float64
	SteerX, SteerY, SteerZ float64
}

// Position returns the recorded position as a vector.
func (f AgentFrame) Position() vector.Vector3 { return vector.New(f.PosX, f.PosY, f.PosZ) }

// Velocity returns the recorded velocity as a vector.
func (f AgentFrame) Velocity() vector.Vector3 { return vector.New(f.VelX, f.VelY, f.VelZ) }

// Steering returns the recorded steering force as a vector.
func (f AgentFrame) Steering() vector.Vector3 { return vector.New(f.SteerX, f.SteerY, f.SteerZ) }

func newFrame(runID string, row engine.SimulationLogRow, a steering.SeekerLog) AgentFrame {
	return AgentFrame{
		RunID:   runID,
		AgentID: a.AgentID,
		Tick:    row.Tick,
		Mode:    a.Mode.String(),
		State:   string(a.State),
		Reached: a.Reached,
		Reset:   row.Reset,
		PosX:    a.Position.X,
		PosY:    a.Position.Y,
		PosZ:    a.Position.Z,
		VelX:    a.Velocity.X,
		VelY:    a.Velocity.Y,
		VelZ:    a.Velocity.Z,
		SteerX:  a.Steering.X,
		SteerY:  a.Steering.Y,
		SteerZ:  a.Steering.Z,
	}
}

// Recorder writes runs and frames to a SQLite database.
type Recorder struct {
	db     *gorm.DB
	logger *zap.Logger
}

// Open opens (creating if needed) the database at path and migrates the
// schema. An empty path opens an in-memory database private to this
// Recorder; it is discarded on Close.
func Open(path string, logger *zap.Logger) (*Recorder, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %q: %w", dsn, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB: %w", err)
	}
	// one connection keeps an in-memory database alive and serialises writes
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}, &AgentFrame{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Recorder{db: db, logger: logging.OrNop(logger)}, nil
}

// BeginRun stores the metadata of a new run.
func (r *Recorder) BeginRun(meta engine.SimulationMeta) error {
	run := Run{
		ID:         meta.SimulationID,
		Seed:       int64(meta.Seed),
		Ticks:      meta.Ticks,
		ResetAfter: meta.ResetAfter,
	}
	if err := r.db.Create(&run).Error; err != nil {
		return fmt.Errorf("creating run %q: %w", meta.SimulationID, err)
	}
	r.logger.Info("recording run", zap.String("simulation_id", run.ID))
	return nil
}

// RecordRow stores every agent's frame from row.
func (r *Recorder) RecordRow(runID string, row engine.SimulationLogRow) error {
	if len(row.Agents) == 0 {
		return nil
	}
	frames := make([]AgentFrame, len(row.Agents))
	for i, a := range row.Agents {
		frames[i] = newFrame(runID, row, a)
	}
	if err := r.db.CreateInBatches(frames, batchSize).Error; err != nil {
		return fmt.Errorf("recording tick %d of run %q: %w", row.Tick, runID, err)
	}
	return nil
}

// RecordLog stores a whole batch run in one transaction.
func (r *Recorder) RecordLog(log engine.SimulationLog) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		txr := &Recorder{db: tx, logger: r.logger}
		if err := txr.BeginRun(log.Meta); err != nil {
			return err
		}

		frames := make([]AgentFrame, 0, len(log.Output)*2)
		for _, row := range log.Output {
			for _, a := range row.Agents {
				frames = append(frames, newFrame(log.Meta.SimulationID, row, a))
			}
		}
		if len(frames) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(frames, batchSize).Error; err != nil {
			return fmt.Errorf("recording run %q: %w", log.Meta.SimulationID, err)
		}
		return nil
	})
}

// Run loads a run's metadata.
func (r *Recorder) Run(runID string) (Run, error) {
	var run Run
	err := r.db.Where("id = ?", runID).First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Run{}, fmt.Errorf("%w: %q", ErrRunNotFound, runID)
	}
	if err != nil {
		return Run{}, fmt.Errorf("loading run %q: %w", runID, err)
	}
	return run, nil
}

// Frames returns one agent's frames in tick order.
func (r *Recorder) Frames(runID string, agentID steering.AgentID) ([]AgentFrame, error) {
	var frames []AgentFrame
	err := r.db.
		Where("run_id = ? AND agent_id = ?", runID, agentID).
		Order("tick").
		Find(&frames).Error
	if err != nil {
		return nil, fmt.Errorf("loading frames for %q/%q: %w", runID, agentID, err)
	}
	return frames, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
