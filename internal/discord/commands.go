package discord

import (
	"context"
	"log/slog"
	"strings"

	"tickerbot/internal/ingest"
	"tickerbot/internal/stats"
)

const (
	commandPrefix = "!"
	messageLimit  = 2000

	msgNoMentions   = "No ticker mentions recorded yet."
	msgNoLeaders    = "Nobody has been first to mention a ticker yet."
	msgNoGainers    = "No price data available for the recorded tickers."
	msgNoQuestion   = "Ask me something and I'll do my best."
	msgAnswerFailed = "I couldn't come up with an answer right now, try again later."
	msgNotAllowed   = "You are not authorized to use this command."
)

func isCommand(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), commandPrefix)
}

func (a *Adapter) dispatchCommand(ctx context.Context, msg ingest.Message) {
	fields := strings.Fields(strings.TrimSpace(msg.Content))
	if len(fields) == 0 {
		return
	}

	cmd := strings.ToLower(fields[0])
	args := fields[1:]
	log := a.log.With("command", cmd, "channel_id", msg.ChannelID, "user_id", msg.AuthorID)

	switch cmd {
	case "!tickers":
		a.replyTickers(ctx, log, msg, true)
	case "!alltickers":
		a.replyTickers(ctx, log, msg, false)
	case "!leaders":
		a.replyLeaders(ctx, log, msg)
	case "!gainers":
		a.replyGainers(ctx, log, msg, args)
	case "!reload":
		a.replyReload(log, msg)
	default:
		log.Debug("unknown command ignored")
	}
}

func (a *Adapter) replyTickers(ctx context.Context, log *slog.Logger, msg ingest.Message, mine bool) {
	doc, err := a.deps.Store.Snapshot(ctx)
	if err != nil {
		log.Error("snapshot failed", "error", err)
		a.reply(msg.ChannelID, msgNoMentions)
		return
	}

	var aggs []stats.TickerAgg
	if mine {
		aggs = stats.UserTickers(doc, msg.AuthorID)
	} else {
		aggs = stats.AggregateTickers(doc)
	}

	if len(aggs) == 0 {
		a.reply(msg.ChannelID, msgNoMentions)
		return
	}

	header := "All ticker mentions"
	if mine {
		header = "Tickers you mentioned"
	}
	a.reply(msg.ChannelID, formatTickerAggs(header, aggs))
}

func (a *Adapter) replyLeaders(ctx context.Context, log *slog.Logger, msg ingest.Message) {
	doc, err := a.deps.Store.Snapshot(ctx)
	if err != nil {
		log.Error("snapshot failed", "error", err)
		a.reply(msg.ChannelID, msgNoLeaders)
		return
	}

	leaders := stats.FirstMentionLeaderboard(doc)
	if len(leaders) == 0 {
		a.reply(msg.ChannelID, msgNoLeaders)
		return
	}

	a.reply(msg.ChannelID, formatLeaders(leaders))
}

func (a *Adapter) replyGainers(ctx context.Context, log *slog.Logger, msg ingest.Message, args []string) {
	opts := stats.GainerOptions{
		FanOut: a.deps.Config.Gainers.FanOut,
		Logger: a.deps.Logger,
	}
	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "month":
			opts.Basis = stats.BasisMonthStart
		case "mention":
			opts.Basis = stats.BasisMention
		case "open":
			opts.Price = stats.PriceOpen
		case "close":
			opts.Price = stats.PriceClose
		default:
			a.reply(msg.ChannelID, "Usage: !gainers [month|mention] [open|close]")
			return
		}
	}

	doc, err := a.deps.Store.Snapshot(ctx)
	if err != nil {
		log.Error("snapshot failed", "error", err)
		a.reply(msg.ChannelID, msgNoGainers)
		return
	}

	var candidates []stats.Candidate
	for _, agg := range stats.AggregateTickers(doc) {
		candidates = append(candidates, stats.Candidate{Symbol: agg.Symbol, Ref: agg.First.Timestamp})
	}
	if len(candidates) == 0 {
		a.reply(msg.ChannelID, msgNoMentions)
		return
	}

	gains := stats.ComputeGainers(ctx, a.deps.Series, candidates, opts)
	if len(gains) == 0 {
		a.reply(msg.ChannelID, msgNoGainers)
		return
	}

	a.reply(msg.ChannelID, FormatGains(gains))
}

func (a *Adapter) replyReload(log *slog.Logger, msg ingest.Message) {
	adminID := a.deps.Config.Discord.AdminUserID
	if adminID == "" || msg.AuthorID != adminID {
		log.Warn("unauthorized reload attempt")
		a.reply(msg.ChannelID, msgNotAllowed)
		return
	}

	size, err := a.deps.Ingest.ReloadLexicon()
	if err != nil {
		log.Error("lexicon reload failed", "error", err)
		a.reply(msg.ChannelID, "Reload failed, keeping the current symbol list.")
		return
	}

	a.reply(msg.ChannelID, formatReload(size))
}

func (a *Adapter) handleQuestion(ctx context.Context, msg ingest.Message) {
	log := a.log.With("handler", "question", "channel_id", msg.ChannelID, "user_id", msg.AuthorID)

	question := stripMention(msg.Content, a.botID)
	if question == "" {
		a.reply(msg.ChannelID, msgNoQuestion)
		return
	}

	tailSize := a.deps.Config.Context.TailSize
	history, err := a.deps.ContextLog.Tail(msg.ChannelID, tailSize)
	if err != nil {
		log.Warn("context log read failed, answering without history", "error", err)
		history = nil
	}

	answer, err := a.deps.Gemini.AnswerQuestion(ctx, question, history)
	if err != nil {
		log.Error("question answering failed", "error", err)
		a.reply(msg.ChannelID, msgAnswerFailed)
		return
	}

	a.reply(msg.ChannelID, answer)
}
