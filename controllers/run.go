package controllers

import (
	"context"
	"errors"
	"time"
)

// Run handles changes until ctx is done.
// A change is handled after no further change arrived for the debounce period.
// Cycle errors are logged and do not stop the loop.
func (c *Controller) Run(ctx context.Context, changes <-chan struct{}, debounce time.Duration) error {
	logger := c.Logger()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}

		if debounce > 0 {
			timer := time.NewTimer(debounce)
		quiet:
			for {
				select {
				case <-ctx.Done():
					timer.Stop()
					return nil
				case <-changes:
					timer.Reset(debounce)
				case <-timer.C:
					break quiet
				}
			}
		}

		outcome, err := c.HandleChange(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, ErrConcurrentEdit) {
				logger.WarnContext(ctx, "file edited during generation, reply discarded",
					"path", c.path,
				)
				continue
			}
			logger.ErrorContext(ctx, "handle change",
				"path", c.path,
				"error", err,
			)
			continue
		}
		logger.DebugContext(ctx, "handled",
			"path", c.path,
			"outcome", outcome.String(),
		)
	}
}
