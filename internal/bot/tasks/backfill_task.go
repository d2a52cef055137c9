package tasks

import (
	"context"
	"fmt"
	"time"
)

const backfillTimeout = 10 * time.Minute

// newBackfillTask creates a scheduled task that catches each watched
// channel up to the present, resuming from its checkpoint.
func newBackfillTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "backfill")

	return func(ctx context.Context) error {
		timeoutCtx, cancel := context.WithTimeout(ctx, backfillTimeout)
		defer cancel()

		var failed int
		for _, channelID := range deps.Config.Discord.Channels {
			scanned, err := deps.Backfill.Run(timeoutCtx, channelID)
			if err != nil {
				log.ErrorContext(ctx, "Backfill run failed", "channel_id", channelID, "error", err)
				failed++
				continue
			}
			if scanned > 0 {
				log.InfoContext(ctx, "Backfill caught up", "channel_id", channelID, "scanned", scanned)
			}
		}

		if failed > 0 {
			return fmt.Errorf("backfill failed for %d of %d channels", failed, len(deps.Config.Discord.Channels))
		}
		return nil
	}
}
