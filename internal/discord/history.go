package discord

import (
	"context"
	"fmt"
	"sort"

	"github.com/bwmarrin/discordgo"

	"tickerbot/internal/ingest"
	"tickerbot/internal/snowflake"
)

// History pages through a channel's past messages by ascending ID. It
// satisfies the backfill driver's message source contract.
type History struct {
	session *discordgo.Session
	guildID string
	// botID is resolved lazily: the gateway may not be ready when the
	// first backfill run starts.
	botID func() string
}

// MessagesAfter fetches up to limit messages strictly newer than after,
// oldest first.
func (h *History) MessagesAfter(ctx context.Context, channelID string, after snowflake.ID, limit int) ([]ingest.Message, error) {
	msgs, err := h.session.ChannelMessages(channelID, limit, "", after.String(), "", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel messages: %w", err)
	}

	botID := h.botID()
	out := make([]ingest.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, convertMessage(m, botID, h.guildID))
	}

	// The REST endpoint returns newest first.
	sort.Slice(out, func(i, j int) bool { return out[i].ID.Less(out[j].ID) })

	return out, nil
}
