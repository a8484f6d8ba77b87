// Package trigger watches a local directory for the batch-complete marker
// file and starts the ingestion pipeline at most once at a time.
package trigger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"ingest-service/config"
	"ingest-service/internal/util"
)

// Pipeline runs one full ingestion pass.
type Pipeline interface {
	Execute(ctx context.Context, trigger string) error
}

// Guard turns marker-file creations into single-flight pipeline runs. A
// trigger arriving while a run is in flight is declined, not queued; its
// marker is removed so the next upload can signal a fresh batch.
type Guard struct {
	cfg      config.TriggerConfig
	pipeline Pipeline
	running  sync.Mutex
	logger   *zap.Logger
}

func NewGuard(cfg config.TriggerConfig, pipeline Pipeline) *Guard {
	return &Guard{
		cfg:      cfg,
		pipeline: pipeline,
		logger:   util.GetLogger(),
	}
}

// Watch blocks on filesystem events until ctx is cancelled. Only creations
// of the configured marker name start a run; every other event is ignored.
func (g *Guard) Watch(ctx context.Context) error {
	if err := os.MkdirAll(g.cfg.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create trigger dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(g.cfg.Dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", g.cfg.Dir, err)
	}
	g.logger.Info("Watching for trigger marker",
		zap.String("dir", g.cfg.Dir),
		zap.String("marker", g.cfg.MarkerName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if filepath.Base(event.Name) != g.cfg.MarkerName {
				continue
			}
			g.HandleMarker(ctx, event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			g.logger.Error("Watcher error", zap.Error(err))
		}
	}
}

// HandleMarker runs the pipeline for one marker file. The marker is removed
// and the lock released whether the run succeeds or fails, so a failed run
// never blocks the next batch.
func (g *Guard) HandleMarker(ctx context.Context, markerPath string) {
	if !g.running.TryLock() {
		util.TriggersDeclinedTotal.Inc()
		g.logger.Warn("Run already in progress, declining trigger",
			zap.String("marker", markerPath))
		g.removeMarker(markerPath)
		return
	}
	defer g.running.Unlock()
	defer g.removeMarker(markerPath)

	util.TriggersAcceptedTotal.Inc()
	g.logger.Info("Trigger accepted", zap.String("marker", markerPath))

	// The marker can land before the batch files finish flushing; give the
	// writes a moment to settle.
	time.Sleep(time.Duration(g.cfg.SettleMillis) * time.Millisecond)

	if err := g.pipeline.Execute(ctx, "marker"); err != nil {
		g.logger.Error("Pipeline run failed, marker cleared for next batch", zap.Error(err))
	}
}

func (g *Guard) removeMarker(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		g.logger.Warn("Failed to remove trigger marker",
			zap.String("marker", path),
			zap.Error(err))
	}
}
