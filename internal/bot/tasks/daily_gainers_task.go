package tasks

import (
	"context"
	"fmt"
	"time"

	"tickerbot/internal/discord"
	"tickerbot/internal/stats"
)

const gainersTimeout = 2 * time.Minute

// newDailyGainersTask creates a scheduled task that posts the ranked
// gainers list to the configured channel.
func newDailyGainersTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_gainers")

	return func(ctx context.Context) error {
		channelID := deps.Config.Discord.PostChannel
		if channelID == "" {
			log.WarnContext(ctx, "No post channel configured, skipping daily gainers")
			return nil
		}

		timeoutCtx, cancel := context.WithTimeout(ctx, gainersTimeout)
		defer cancel()

		doc, err := deps.Store.Snapshot(timeoutCtx)
		if err != nil {
			return fmt.Errorf("failed to read ledger: %w", err)
		}

		var candidates []stats.Candidate
		for _, agg := range stats.AggregateTickers(doc) {
			candidates = append(candidates, stats.Candidate{Symbol: agg.Symbol, Ref: agg.First.Timestamp})
		}
		if len(candidates) == 0 {
			log.InfoContext(ctx, "No recorded tickers, nothing to post")
			return nil
		}

		gains := stats.ComputeGainers(timeoutCtx, deps.Series, candidates, stats.GainerOptions{
			Basis:  stats.BasisMonthStart,
			FanOut: deps.Config.Gainers.FanOut,
			Logger: deps.Logger,
		})
		if len(gains) == 0 {
			log.WarnContext(ctx, "No price data resolved, skipping post")
			return nil
		}

		if err := deps.Poster.Post(channelID, discord.FormatGains(gains)); err != nil {
			return fmt.Errorf("failed to post gainers: %w", err)
		}

		log.InfoContext(ctx, "Posted daily gainers", "channel_id", channelID, "symbols", len(gains))
		return nil
	}
}
