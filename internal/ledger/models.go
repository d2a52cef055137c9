// Package ledger implements the durable mention ledger: an append-only
// record of every ticker mention observed in chat, plus per-channel
// checkpoints marking ingestion progress. The ledger is a single JSON
// document behind a repository interface; all mutations are serialized
// through a single-consumer queue so the load-modify-write cycle never
// races with itself.
package ledger

import (
	"encoding/json"
	"time"

	"tickerbot/internal/snowflake"
)

// Author identifies who posted a mention. ID is the stable identity
// key; DisplayName is denormalized for display only.
type Author struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

// MentionRecord is one observed occurrence of a ticker in one message.
// The pair (MessageID, Ticker) is unique across the ledger: a message
// naming the same ticker twice yields a single record. Records are
// created once by the ingestion path and never mutated or deleted.
type MentionRecord struct {
	Ticker    string    `json:"ticker"`
	Author    Author    `json:"author"`
	MessageID string    `json:"messageId"`
	ChannelID string    `json:"channelId"`
	GuildID   string    `json:"guildId"`
	Link      string    `json:"link"`
	Timestamp time.Time `json:"timestamp"`
	Content   string    `json:"content"`
}

// Key returns the ledger-wide uniqueness key for the record.
func (r MentionRecord) Key() string {
	return r.MessageID + "|" + r.Ticker
}

// Checkpoint marks the newest processed message in one channel. The ID
// only ever moves forward by snowflake ordering.
type Checkpoint struct {
	LastProcessedID string    `json:"lastProcessedId"`
	LastProcessedAt time.Time `json:"lastProcessedAt"`
}

// ID returns the checkpoint's message identifier in comparable form.
func (c Checkpoint) ID() snowflake.ID {
	return snowflake.Parse(c.LastProcessedID)
}

// Document is the ledger aggregate root as persisted on disk.
type Document struct {
	Updated     time.Time             `json:"updated"`
	Entries     []MentionRecord       `json:"entries"`
	Checkpoints map[string]Checkpoint `json:"checkpoints"`
}

// NewDocument returns an empty, initialized ledger document.
func NewDocument() *Document {
	return &Document{
		Entries:     []MentionRecord{},
		Checkpoints: map[string]Checkpoint{},
	}
}

// UnmarshalJSON accepts both the current document shape and the legacy
// shape, a bare array of entries, which is upgraded in memory to a
// document with no checkpoints.
func (d *Document) UnmarshalJSON(data []byte) error {
	var legacy []MentionRecord
	if err := json.Unmarshal(data, &legacy); err == nil {
		d.Updated = time.Time{}
		d.Entries = legacy
		d.Checkpoints = map[string]Checkpoint{}
		return nil
	}

	type document Document // drop methods to avoid recursion
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc.Entries == nil {
		doc.Entries = []MentionRecord{}
	}
	if doc.Checkpoints == nil {
		doc.Checkpoints = map[string]Checkpoint{}
	}
	*d = Document(doc)
	return nil
}
