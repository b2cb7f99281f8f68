package pipeline

import (
	"context"

	"scribe/internal/logging"
	"scribe/internal/runlock"
	"scribe/internal/services"
)

// RunPullQueue drains the remote queue one item at a time. The run ends when
// the queue is empty, the stop marker appears, or the context is cancelled;
// an in-flight item interrupted by cancellation is reported with code 0 so
// the queue can reissue it.
func (c *Controller) RunPullQueue(ctx context.Context, source QueueSource) error {
	lock, err := runlock.Acquire(c.cfg.Paths.LockFile)
	if err != nil {
		return err
	}
	defer lock.Release()

	c.logger.Info("run started", logging.String("mode", "pull"))
	c.logHealth(ctx)

	processed := 0
	failed := 0
	for {
		if err := ctx.Err(); err != nil {
			c.logger.Info("run interrupted before next item")
			return nil
		}
		if c.stopRequested() {
			break
		}

		item, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("run interrupted while fetching next item")
				return nil
			}
			return err
		}
		if item == nil {
			c.logger.Info("queue drained")
			break
		}
		c.logger.Info("item received", itemAttrs(item)...)

		if err := c.processItem(ctx, item); err != nil {
			code := services.FailureCode(err)
			if ctx.Err() != nil {
				code = services.CodeInterrupted
			}
			c.logger.Error("item failed",
				logging.String(logging.FieldItemID, item.ID),
				logging.Int(logging.FieldErrorCode, int(code)),
				logging.Error(err),
			)
			c.reportFailure(source, item, code)
			if ctx.Err() != nil {
				c.logger.Info("run interrupted mid-item")
				return nil
			}
			failed++
		} else {
			processed++
		}

		c.pause(ctx)
	}

	c.logger.Info("run finished",
		logging.Int("processed", processed),
		logging.Int("failed", failed),
	)
	return nil
}
