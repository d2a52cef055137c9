package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"tickerbot/internal/ingest"
	"tickerbot/internal/snowflake"
)

// MessageLink builds the canonical permalink for a guild message.
func MessageLink(guildID, channelID, messageID string) string {
	return fmt.Sprintf("https://discord.com/channels/%s/%s/%s", guildID, channelID, messageID)
}

// convertMessage maps a Discord SDK message to the platform-neutral
// ingest form. fallbackGuildID covers REST responses, which omit the
// guild on channel-scoped endpoints.
func convertMessage(m *discordgo.Message, botID, fallbackGuildID string) ingest.Message {
	guildID := m.GuildID
	if guildID == "" {
		guildID = fallbackGuildID
	}

	var authorID, authorName string
	fromBot := false
	if m.Author != nil {
		authorID = m.Author.ID
		authorName = m.Author.Username
		if m.Author.GlobalName != "" {
			authorName = m.Author.GlobalName
		}
		fromBot = m.Author.Bot
	}

	var attachments []string
	for _, a := range m.Attachments {
		attachments = append(attachments, a.URL)
	}

	var refLink string
	if ref := m.MessageReference; ref != nil && ref.MessageID != "" {
		refGuild := ref.GuildID
		if refGuild == "" {
			refGuild = guildID
		}
		refLink = MessageLink(refGuild, ref.ChannelID, ref.MessageID)
	}

	return ingest.Message{
		ID:           snowflake.Parse(m.ID),
		ChannelID:    m.ChannelID,
		GuildID:      guildID,
		AuthorID:     authorID,
		AuthorName:   authorName,
		Content:      m.Content,
		CreatedAt:    m.Timestamp,
		Link:         MessageLink(guildID, m.ChannelID, m.ID),
		RefLink:      refLink,
		Attachments:  attachments,
		FromBot:      fromBot,
		AddressesBot: addressesBot(m, botID),
	}
}

// addressesBot reports whether the message talks to the assistant:
// either a direct mention or a command invocation.
func addressesBot(m *discordgo.Message, botID string) bool {
	if strings.HasPrefix(strings.TrimSpace(m.Content), commandPrefix) {
		return true
	}
	if botID == "" {
		return false
	}
	for _, u := range m.Mentions {
		if u.ID == botID {
			return true
		}
	}
	return false
}

// stripMention removes the bot mention tokens from a question so the
// model sees only the user's words.
func stripMention(content, botID string) string {
	content = strings.ReplaceAll(content, "<@"+botID+">", "")
	content = strings.ReplaceAll(content, "<@!"+botID+">", "")
	return strings.TrimSpace(content)
}
