package discord

import (
	"log/slog"

	"tickerbot/internal/config"
	"tickerbot/internal/contextlog"
	"tickerbot/internal/gemini"
	"tickerbot/internal/ingest"
	"tickerbot/internal/ledger"
	"tickerbot/internal/stats"
)

// HandlerDeps provides dependencies for the live message handler and
// the prefix commands.
type HandlerDeps struct {
	Logger     *slog.Logger
	Config     *config.Config
	Ingest     *ingest.Service
	Store      *ledger.Store
	ContextLog *contextlog.Log
	Series     stats.SeriesSource
	Gemini     gemini.Client
}
