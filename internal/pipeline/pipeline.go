// Package pipeline sequences the stages of one ingestion run and owns the
// run lifecycle, including landing cleanup after a fully successful pass.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ingest-service/internal/buffer"
	"ingest-service/internal/dimension"
	"ingest-service/internal/extract"
	"ingest-service/internal/frame"
	"ingest-service/internal/load"
	"ingest-service/internal/models"
	"ingest-service/internal/transform"
	"ingest-service/internal/util"
)

// Stage is one step of an ingestion run. Stages execute sequentially and
// share a RunState; the first error aborts the run.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *RunState) error
}

// RunState carries one run's intermediate products between stages. Stamp is
// the UTC timestamp that names the run's staging folder; RunID identifies the
// run in logs and events.
type RunState struct {
	RunID     string
	Trigger   string
	Stamp     string
	StartedAt time.Time

	Sales      *frame.Frame
	Product    *frame.Frame
	Combined   *frame.Frame
	Dimensions *dimension.Result
	RowsStaged map[string]int
}

// Landing is the landing area a completed run clears.
type Landing interface {
	ClearLanding(ctx context.Context) error
}

// Publisher emits run lifecycle events. Publish failures are logged and
// never abort a run.
type Publisher interface {
	PublishRunStarted(ctx context.Context, event *models.RunStartedEvent) error
	PublishRunCompleted(ctx context.Context, event *models.RunCompletedEvent) error
	PublishRunFailed(ctx context.Context, event *models.RunFailedEvent) error
}

// Runner executes the registered stages in order. A run that finishes every
// stage clears the landing area; a run that fails at any stage leaves both
// the landing area and the staging folder in place for inspection.
type Runner struct {
	stages  []Stage
	landing Landing
	events  Publisher
	logger  *zap.Logger
}

// NewRunner creates a runner over the given core stages. Downstream stages
// can be added later with Register.
func NewRunner(landing Landing, events Publisher, stages ...Stage) *Runner {
	return &Runner{
		stages:  stages,
		landing: landing,
		events:  events,
		logger:  util.GetLogger(),
	}
}

// Register appends stages to run after the ones already registered.
func (r *Runner) Register(stages ...Stage) {
	r.stages = append(r.stages, stages...)
}

// Execute runs one full ingestion pass.
func (r *Runner) Execute(ctx context.Context, trigger string) error {
	state := &RunState{
		RunID:     uuid.New().String(),
		Trigger:   trigger,
		Stamp:     time.Now().UTC().Format("20060102_150405"),
		StartedAt: time.Now(),
	}

	ctx, span := util.StartSpan(ctx, "pipeline.run")
	defer span.End()

	util.RunsStartedTotal.Inc()
	r.logger.Info("Pipeline run started",
		zap.String("run_id", state.RunID),
		zap.String("stamp", state.Stamp),
		zap.String("trigger", trigger))
	r.publishStarted(ctx, state)

	for _, stage := range r.stages {
		if err := r.runStage(ctx, stage, state); err != nil {
			r.fail(ctx, state, stage.Name(), err)
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
	}

	if err := r.landing.ClearLanding(ctx); err != nil {
		r.fail(ctx, state, "cleanup", err)
		return fmt.Errorf("clear landing: %w", err)
	}

	duration := time.Since(state.StartedAt)
	util.RunsCompletedTotal.Inc()
	util.RunDuration.Observe(duration.Seconds())
	r.logger.Info("Pipeline run complete",
		zap.String("run_id", state.RunID),
		zap.Duration("duration", duration),
		zap.Any("rows_staged", state.RowsStaged))
	r.publishCompleted(ctx, state, duration)
	return nil
}

func (r *Runner) runStage(ctx context.Context, stage Stage, state *RunState) error {
	ctx, span := util.StartSpan(ctx, "stage."+stage.Name())
	defer span.End()

	r.logger.Info("Stage started",
		zap.String("run_id", state.RunID),
		zap.String("stage", stage.Name()))
	start := time.Now()
	err := stage.Run(ctx, state)
	util.StageDuration.WithLabelValues(stage.Name()).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	r.logger.Info("Stage complete",
		zap.String("run_id", state.RunID),
		zap.String("stage", stage.Name()),
		zap.Duration("duration", time.Since(start)))
	return nil
}

func (r *Runner) fail(ctx context.Context, state *RunState, stage string, err error) {
	util.RunsFailedTotal.WithLabelValues(stage).Inc()
	r.logger.Error("Pipeline run failed",
		zap.String("run_id", state.RunID),
		zap.String("stage", stage),
		zap.Error(err))
	if r.events == nil {
		return
	}
	event := &models.RunFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRunFailed,
			Timestamp: time.Now(),
		},
		RunID:           state.RunID,
		Stage:           stage,
		Error:           err.Error(),
		DurationSeconds: time.Since(state.StartedAt).Seconds(),
	}
	if perr := r.events.PublishRunFailed(ctx, event); perr != nil {
		r.logger.Warn("Failed to publish run event", zap.Error(perr))
	}
}

func (r *Runner) publishStarted(ctx context.Context, state *RunState) {
	if r.events == nil {
		return
	}
	event := &models.RunStartedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRunStarted,
			Timestamp: time.Now(),
		},
		RunID:   state.RunID,
		Trigger: state.Trigger,
	}
	if err := r.events.PublishRunStarted(ctx, event); err != nil {
		r.logger.Warn("Failed to publish run event", zap.Error(err))
	}
}

func (r *Runner) publishCompleted(ctx context.Context, state *RunState, duration time.Duration) {
	if r.events == nil {
		return
	}
	event := &models.RunCompletedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeRunCompleted,
			Timestamp: time.Now(),
		},
		RunID:           state.RunID,
		DurationSeconds: duration.Seconds(),
		RowsStaged:      state.RowsStaged,
	}
	if err := r.events.PublishRunCompleted(ctx, event); err != nil {
		r.logger.Warn("Failed to publish run event", zap.Error(err))
	}
}

// Extract reads the landing batch into raw sales and product frames.
func Extract(ex *extract.Extractor) Stage {
	return extractStage{ex: ex}
}

type extractStage struct {
	ex *extract.Extractor
}

func (s extractStage) Name() string { return "extract" }

func (s extractStage) Run(ctx context.Context, state *RunState) error {
	sales, product, err := s.ex.Run(ctx)
	if err != nil {
		return err
	}
	state.Sales = sales
	state.Product = product
	return nil
}

// Transform cleans both frames and joins them into the combined batch.
func Transform(tr *transform.Transformer) Stage {
	return transformStage{tr: tr}
}

type transformStage struct {
	tr *transform.Transformer
}

func (s transformStage) Name() string { return "transform" }

func (s transformStage) Run(ctx context.Context, state *RunState) error {
	state.Combined = s.tr.Run(state.Sales, state.Product)
	return nil
}

// Dimensions builds the versioned product dimension from the combined batch.
func Dimensions(builder *dimension.Builder) Stage {
	return dimensionStage{builder: builder}
}

type dimensionStage struct {
	builder *dimension.Builder
}

func (s dimensionStage) Name() string { return "dimension" }

func (s dimensionStage) Run(ctx context.Context, state *RunState) error {
	dims, err := s.builder.Run(ctx, state.Combined)
	if err != nil {
		return err
	}
	state.Dimensions = dims
	return nil
}

// Load stages the run's artifacts under the run folder and merges them into
// the warehouse.
func Load(loader *load.Loader, buf *buffer.Client) Stage {
	return loadStage{loader: loader, buf: buf}
}

type loadStage struct {
	loader *load.Loader
	buf    *buffer.Client
}

func (s loadStage) Name() string { return "load" }

func (s loadStage) Run(ctx context.Context, state *RunState) error {
	rows, err := s.loader.Run(ctx, state.Combined, state.Dimensions, s.buf.EtlFolder(state.Stamp))
	if err != nil {
		return err
	}
	state.RowsStaged = rows
	return nil
}
