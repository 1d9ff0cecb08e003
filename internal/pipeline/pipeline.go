// Package pipeline orchestrates a batch run: normalize the raw entity
// files, replace the relational snapshot, and rebuild every mart, all
// inside a single transaction. Runs are serialized by an in-process mutex
// and by the pipeline_runs table, so two processes cannot rebuild the same
// database concurrently.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shopalytics/internal/config"
	"shopalytics/internal/reports"
)

// Pipeline executes runs against one database.
type Pipeline struct {
	db     *gorm.DB
	cfg    *config.Config
	logger *slog.Logger

	// Mutex to prevent concurrent runs within this process
	runMutex  sync.Mutex
	isRunning bool
}

// New creates a pipeline bound to the given database connection.
func New(db *gorm.DB, cfg *config.Config, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// Run executes one full pipeline run over the raw files in dir. It returns
// ErrRunInProgress when another run holds the lock, and otherwise the run
// record, whose status reflects the outcome. The returned error is the run
// failure, if any.
func (p *Pipeline) Run(dir string) (*Run, error) {
	p.runMutex.Lock()
	if p.isRunning {
		p.runMutex.Unlock()
		return nil, ErrRunInProgress
	}
	p.isRunning = true
	p.runMutex.Unlock()

	defer func() {
		p.runMutex.Lock()
		p.isRunning = false
		p.runMutex.Unlock()
	}()

	run, err := p.claimRun()
	if err != nil {
		return nil, err
	}

	runErr := p.executeSafely(run, dir)
	p.finishRun(run, runErr)
	return run, runErr
}

// claimRun inserts the running row for this run. A concurrent row in
// running status blocks the claim unless it is older than the configured
// stale threshold, in which case it is marked failed and taken over. The
// check and the insert share one immediate transaction.
func (p *Pipeline) claimRun() (*Run, error) {
	var run *Run
	err := p.db.Transaction(func(tx *gorm.DB) error {
		var active Run
		err := tx.Where("status = ?", StatusRunning).Order("started_at DESC").First(&active).Error
		switch {
		case err == nil:
			staleBefore := time.Now().UTC().Add(-p.cfg.RunStaleAfter())
			if active.StartedAt.After(staleBefore) {
				return ErrRunInProgress
			}
			now := time.Now().UTC()
			active.Status = StatusFailed
			active.FinishedAt = &now
			active.Error = "run went stale and was taken over"
			if err := tx.Save(&active).Error; err != nil {
				return fmt.Errorf("take over stale run %s: %w", active.ID, err)
			}
			p.logger.Warn("Taking over stale pipeline run",
				slog.String("stale_run", active.ID),
				slog.Time("started_at", active.StartedAt))
		case errors.Is(err, gorm.ErrRecordNotFound):
			// no active run
		default:
			return err
		}

		run = &Run{
			ID:        uuid.NewString(),
			StartedAt: time.Now().UTC(),
			Status:    StatusRunning,
		}
		return tx.Create(run).Error
	})
	if err != nil {
		return nil, err
	}
	return run, nil
}

// executeSafely converts a panic inside the run into a failed-run error.
func (p *Pipeline) executeSafely(run *Run, dir string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Panic recovered in pipeline run",
				slog.String("run", run.ID),
				slog.Any("panic", r))
			err = fmt.Errorf("pipeline: run panicked: %v", r)
		}
	}()

	return p.execute(run, dir)
}

func (p *Pipeline) execute(run *Run, dir string) error {
	started := time.Now()
	p.logger.Info("Starting pipeline run",
		slog.String("run", run.ID),
		slog.String("source", dir))

	snap, err := LoadSnapshot(dir)
	if err != nil {
		return err
	}
	run.Products = int64(len(snap.Products))
	run.Sessions = int64(len(snap.Sessions))
	run.Pageviews = int64(len(snap.Pageviews))
	run.Orders = int64(len(snap.Orders))
	run.OrderItems = int64(len(snap.Items))
	run.Refunds = int64(len(snap.Refunds))

	data, err := snap.Dataset()
	if err != nil {
		return err
	}

	var martRows int64
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := clearTables(tx, entityTables()); err != nil {
			return err
		}
		if err := persistSnapshot(tx, snap); err != nil {
			return err
		}

		for _, builder := range reports.Registry() {
			if err := clearTables(tx, []string{builder.Name}); err != nil {
				return err
			}
			rows, err := builder.Write(tx, data)
			if err != nil {
				return fmt.Errorf("build %s: %w", builder.Name, err)
			}
			martRows += rows
			p.logger.Debug("Mart rebuilt",
				slog.String("mart", builder.Name),
				slog.Int64("rows", rows))
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.MartRows = martRows

	p.logger.Info("Pipeline run completed",
		slog.String("run", run.ID),
		slog.Int64("sessions", run.Sessions),
		slog.Int64("orders", run.Orders),
		slog.Int64("mart_rows", run.MartRows),
		slog.Duration("elapsed", time.Since(started)))
	return nil
}

// finishRun records the run outcome.
func (p *Pipeline) finishRun(run *Run, runErr error) {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = StatusSucceeded
	}

	if err := p.db.Save(run).Error; err != nil {
		p.logger.Error("Failed to record run outcome",
			slog.String("run", run.ID),
			slog.Any("error", err))
	}
}

// RunReport rebuilds a single mart from the raw files in dir, leaving the
// snapshot tables and all other marts untouched.
func (p *Pipeline) RunReport(dir, name string) (int64, error) {
	builder, ok := reports.Find(name)
	if !ok {
		return 0, fmt.Errorf("pipeline: unknown report %q", name)
	}

	snap, err := LoadSnapshot(dir)
	if err != nil {
		return 0, err
	}
	data, err := snap.Dataset()
	if err != nil {
		return 0, err
	}

	var rows int64
	err = p.db.Transaction(func(tx *gorm.DB) error {
		if err := clearTables(tx, []string{builder.Name}); err != nil {
			return err
		}
		written, err := builder.Write(tx, data)
		if err != nil {
			return fmt.Errorf("build %s: %w", builder.Name, err)
		}
		rows = written
		return nil
	})
	if err != nil {
		return 0, err
	}

	p.logger.Info("Mart rebuilt",
		slog.String("mart", builder.Name),
		slog.Int64("rows", rows))
	return rows, nil
}

// LastRuns returns the most recent runs, newest first.
func (p *Pipeline) LastRuns(limit int) ([]Run, error) {
	var runs []Run
	err := p.db.Order("started_at DESC").Limit(limit).Find(&runs).Error
	return runs, err
}

// TableCount is one table's row count for status reporting.
type TableCount struct {
	Table string
	Rows  int64
}

// TableCounts returns row counts for the snapshot tables and every mart,
// in a stable display order.
func (p *Pipeline) TableCounts() ([]TableCount, error) {
	tables := entityTables()
	for _, builder := range reports.Registry() {
		tables = append(tables, builder.Name)
	}

	counts := make([]TableCount, 0, len(tables))
	for _, table := range tables {
		var rows int64
		if err := p.db.Table(table).Count(&rows).Error; err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts = append(counts, TableCount{Table: table, Rows: rows})
	}
	return counts, nil
}
