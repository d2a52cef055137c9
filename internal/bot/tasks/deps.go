// Package tasks implements the bot's scheduled tasks: periodic backfill
// catch-up and the daily gainers post.
package tasks

import (
	"log/slog"

	"tickerbot/internal/backfill"
	"tickerbot/internal/config"
	"tickerbot/internal/ledger"
	"tickerbot/internal/stats"
)

// Poster sends plain text to a channel. Satisfied by the Discord
// adapter.
type Poster interface {
	Post(channelID, content string) error
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger   *slog.Logger
	Config   *config.Config
	Store    *ledger.Store
	Backfill *backfill.Driver
	Series   stats.SeriesSource
	Poster   Poster
}
