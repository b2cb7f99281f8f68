// Package pipeline drives work items through the fetch, normalize, recognize,
// and publish stages in both pull-queue and bulk-harvest modes.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"scribe/internal/config"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/stage"
	"scribe/internal/workitem"
)

// ItemSource hands out units of work one at a time. A (nil, nil) return means
// the source is drained.
type ItemSource interface {
	Next(ctx context.Context) (*workitem.Item, error)
}

// Reporter receives typed failure codes for items that could not be completed.
type Reporter interface {
	ReportError(ctx context.Context, item *workitem.Item, code services.Code) error
}

// QueueSource is the contract of a remote pull queue: it supplies items and
// accepts failure reports for them.
type QueueSource interface {
	ItemSource
	Reporter
}

// Stages bundles the four pipeline stage handlers in processing order.
type Stages struct {
	Fetch     stage.Handler
	Normalize stage.Handler
	Recognize stage.Handler
	Publish   stage.Handler
}

// Controller executes items stage by stage. Items are strictly sequential;
// the external engine saturates the machine on its own.
type Controller struct {
	cfg    *config.Config
	stages Stages
	logger *slog.Logger
	runID  string
}

// NewController builds a controller over the given stages.
func NewController(cfg *config.Config, stages Stages, logger *slog.Logger) *Controller {
	runID := uuid.NewString()
	return &Controller{
		cfg:    cfg,
		stages: stages,
		logger: logging.NewComponentLogger(logger, "pipeline").
			With(logging.String(logging.FieldRunID, runID)),
		runID: runID,
	}
}

// RunID identifies this controller's run in logs.
func (c *Controller) RunID() string { return c.runID }

// logHealth runs every stage health check and logs the outcome. An unready
// stage is reported but does not abort the run: the first item that needs it
// fails with a proper error code instead.
func (c *Controller) logHealth(ctx context.Context) {
	for _, handler := range []stage.Handler{c.stages.Fetch, c.stages.Normalize, c.stages.Recognize, c.stages.Publish} {
		if handler == nil {
			continue
		}
		health := handler.HealthCheck(ctx)
		if health.Ready {
			c.logger.Debug("stage ready", logging.String(logging.FieldStage, health.Name))
			continue
		}
		c.logger.Warn("stage not ready",
			logging.String(logging.FieldStage, health.Name),
			logging.String(logging.FieldErrorHint, health.Detail),
		)
	}
}

// processItem moves one item through all four stages, returning the first
// stage error. The recognition stage is timed for the throughput report.
func (c *Controller) processItem(ctx context.Context, item *workitem.Item) error {
	steps := []struct {
		name    string
		handler stage.Handler
	}{
		{"fetch", c.stages.Fetch},
		{"normalize", c.stages.Normalize},
		{"recognize", c.stages.Recognize},
		{"publish", c.stages.Publish},
	}
	for _, step := range steps {
		if step.handler == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrInterrupted, step.name, "execute", item.ID, err)
		}
		started := time.Now()
		if err := step.handler.Prepare(ctx, item); err != nil {
			return err
		}
		if err := step.handler.Execute(ctx, item); err != nil {
			if ctx.Err() != nil {
				return services.Wrap(services.ErrInterrupted, step.name, "execute", item.ID, err)
			}
			return err
		}
		elapsed := time.Since(started)
		attrs := []logging.Attr{
			logging.String(logging.FieldItemID, item.ID),
			logging.String(logging.FieldStage, step.name),
			logging.Duration("elapsed", elapsed),
		}
		if step.name == "recognize" {
			if ratio, ok := throughput(item.DurationSeconds, elapsed); ok {
				attrs = append(attrs, logging.Float64("speed_ratio", ratio))
			}
		}
		c.logger.Info("stage complete", logging.Args(attrs...)...)
	}
	return nil
}

// throughput reports how much faster than real time recognition ran.
func throughput(durationSeconds float64, elapsed time.Duration) (float64, bool) {
	if durationSeconds <= 0 || elapsed <= 0 {
		return 0, false
	}
	return durationSeconds / elapsed.Seconds(), true
}

// stopRequested reports whether the stop marker file exists and removes it, so
// one marker stops exactly one run.
func (c *Controller) stopRequested() bool {
	path := c.cfg.Paths.StopFile
	if path == "" {
		return false
	}
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("stop marker check failed", logging.Error(err))
		}
		return false
	}
	if err := os.Remove(path); err != nil {
		c.logger.Warn("stop marker removal failed", logging.Error(err))
	}
	c.logger.Info("stop marker found, finishing run", logging.String("path", path))
	return true
}

// pause sleeps the configured inter-item delay, returning early when the run
// context is cancelled.
func (c *Controller) pause(ctx context.Context) {
	delay := time.Duration(c.cfg.Workflow.ItemPauseSeconds) * time.Second
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// reportFailure sends the item's failure code. Shutdown may already have
// cancelled the run context, so the report uses a fresh short-lived one.
func (c *Controller) reportFailure(reporter Reporter, item *workitem.Item, code services.Code) {
	if reporter == nil || item == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := reporter.ReportError(ctx, item, code); err != nil {
		c.logger.Error("failure report not delivered",
			logging.String(logging.FieldItemID, item.ID),
			logging.Int(logging.FieldErrorCode, int(code)),
			logging.Error(err),
		)
		return
	}
	c.logger.Info("failure reported",
		logging.String(logging.FieldItemID, item.ID),
		logging.Int(logging.FieldErrorCode, int(code)),
	)
}

func itemAttrs(item *workitem.Item) []any {
	attrs := []logging.Attr{
		logging.String(logging.FieldItemID, item.ID),
		logging.String("title", item.Label()),
	}
	if item.Language != "" {
		attrs = append(attrs, logging.String("language", language.DisplayName(item.Language)))
	}
	return logging.Args(attrs...)
}
