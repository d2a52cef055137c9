// Package discord adapts the Discord gateway to the ingestion pipeline
// and exposes the bot's chat commands. It stays I/O-thin: everything of
// consequence happens in the packages it delegates to.
package discord

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Adapter owns the gateway session and routes incoming messages to
// ingestion, command handling, or question answering.
type Adapter struct {
	session *discordgo.Session
	deps    HandlerDeps
	log     *slog.Logger

	botID   string
	watched map[string]bool

	// send is swappable for tests.
	send func(channelID, content string) error
}

// NewAdapter creates the gateway session with message-content intents
// and registers the live handlers. The connection is not opened until
// Start.
func NewAdapter(deps HandlerDeps) (*Adapter, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	session, err := discordgo.New("Bot " + deps.Config.Discord.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Discord session: %w", err)
	}

	watched := make(map[string]bool, len(deps.Config.Discord.Channels))
	for _, id := range deps.Config.Discord.Channels {
		watched[id] = true
	}

	a := &Adapter{
		session: session,
		deps:    deps,
		log:     logger.With("component", "discord"),
		watched: watched,
	}
	a.send = func(channelID, content string) error {
		_, err := session.ChannelMessageSend(channelID, content)
		return err
	}

	session.AddHandler(a.handleReady)
	session.AddHandler(a.handleMessageCreate)
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	return a, nil
}

// Start opens the websocket connection and begins receiving events.
func (a *Adapter) Start() error {
	if err := a.session.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	a.log.Info("gateway connection open")
	return nil
}

// Stop closes the gateway connection.
func (a *Adapter) Stop() {
	if err := a.session.Close(); err != nil {
		a.log.Warn("error closing Discord session", "error", err)
	}
}

// History returns an after-ID paginating message source for the
// backfill driver, bound to this session.
func (a *Adapter) History() *History {
	return &History{
		session: a.session,
		guildID: a.deps.Config.Discord.GuildID,
		botID:   func() string { return a.botID },
	}
}

func (a *Adapter) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	a.botID = r.User.ID
	a.log.Info("gateway ready", "bot_id", a.botID, "username", r.User.Username)
}

func (a *Adapter) handleMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == a.botID {
		return
	}
	if !a.watched[m.ChannelID] {
		return
	}

	ctx := context.Background()
	msg := convertMessage(m.Message, a.botID, a.deps.Config.Discord.GuildID)

	switch {
	case isCommand(msg.Content):
		a.dispatchCommand(ctx, msg)
	case msg.AddressesBot:
		a.handleQuestion(ctx, msg)
	default:
		if err := a.deps.Ingest.Process(ctx, msg); err != nil {
			a.log.Error("failed to process message",
				"channel_id", msg.ChannelID, "message_id", msg.ID.String(), "error", err)
		}
	}
}

// Post sends content to a channel, split at the platform's message
// size limit. Used by scheduled tasks as well as the command replies.
func (a *Adapter) Post(channelID, content string) error {
	for _, chunk := range chunkMessage(content, messageLimit) {
		if err := a.send(channelID, chunk); err != nil {
			return fmt.Errorf("failed to send message: %w", err)
		}
	}
	return nil
}

func (a *Adapter) reply(channelID, content string) {
	if err := a.Post(channelID, content); err != nil {
		a.log.Error("failed to send reply", "channel_id", channelID, "error", err)
	}
}
