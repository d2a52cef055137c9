// Package ingest implements the message ingestion pipeline shared by
// the live path and the backfill driver: eligibility filtering, context
// logging, ticker extraction, ledger append, and checkpoint advance.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"tickerbot/internal/contextlog"
	"tickerbot/internal/ledger"
	"tickerbot/internal/snowflake"
	"tickerbot/internal/ticker"
)

// Message is a platform-neutral inbound chat message. The platform
// adapter converts its native message type into this before anything
// else touches it.
type Message struct {
	ID          snowflake.ID
	ChannelID   string
	GuildID     string
	AuthorID    string
	AuthorName  string
	Content     string
	CreatedAt   time.Time
	Link        string
	RefLink     string
	Attachments []string

	// FromBot marks messages authored by automated accounts.
	FromBot bool
	// AddressesBot marks messages that talk to the assistant directly
	// (mentions and commands). Ingesting those would record command
	// traffic as market chatter.
	AddressesBot bool
}

// Eligible reports whether the message enters the ingestion pipeline.
func (m Message) Eligible() bool {
	if m.FromBot || m.AddressesBot {
		return false
	}
	return m.Content != "" || len(m.Attachments) > 0
}

// Service wires the extractor, ledger store, and context log together.
type Service struct {
	store  *ledger.Store
	ctxlog *contextlog.Log
	log    *slog.Logger

	mu  sync.RWMutex
	lex *ticker.Lexicon
}

// NewService creates the ingestion service.
func NewService(lex *ticker.Lexicon, store *ledger.Store, ctxlog *contextlog.Log, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		store:  store,
		ctxlog: ctxlog,
		log:    logger.With("component", "ingest"),
		lex:    lex,
	}
}

// Lexicon returns the current lexicon.
func (s *Service) Lexicon() *ticker.Lexicon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lex
}

// ReloadLexicon re-reads the symbol universe and blacklist from their
// sources and swaps the lexicon in. Operator action only; the running
// lexicon is otherwise immutable for the process lifetime.
func (s *Service) ReloadLexicon() (int, error) {
	fresh, err := s.Lexicon().Reload()
	if err != nil {
		return 0, fmt.Errorf("failed to reload lexicon: %w", err)
	}
	s.mu.Lock()
	s.lex = fresh
	s.mu.Unlock()
	s.log.Info("lexicon reloaded", "symbols", fresh.Size())
	return fresh.Size(), nil
}

// Process runs one live message through the pipeline: context log
// append, extraction, deduplicated ledger append (with publish), and
// checkpoint advance. Ineligible messages are dropped silently. A
// context log failure is logged and does not stop ticker ingestion.
func (s *Service) Process(ctx context.Context, m Message) error {
	if !m.Eligible() {
		return nil
	}

	if err := s.ctxlog.Append(m.ChannelID, ContextRecord(m)); err != nil {
		s.log.Warn("context log append failed", "channel_id", m.ChannelID, "error", err)
	}

	mentions := s.BuildMentions(m)
	if len(mentions) > 0 {
		added, err := s.store.Append(ctx, mentions)
		if err != nil {
			return fmt.Errorf("failed to append mentions: %w", err)
		}
		if added > 0 {
			s.log.Info("recorded ticker mentions",
				"channel_id", m.ChannelID, "message_id", m.ID.String(), "added", added)
		}
	}

	if err := s.store.Advance(ctx, m.ChannelID, m.ID, m.CreatedAt); err != nil {
		return fmt.Errorf("failed to advance checkpoint: %w", err)
	}
	return nil
}

// BuildMentions extracts ticker symbols from the message and shapes
// them into ledger records, one per distinct symbol.
func (s *Service) BuildMentions(m Message) []ledger.MentionRecord {
	symbols := ticker.Extract(m.Content, s.Lexicon())
	if len(symbols) == 0 {
		return nil
	}

	records := make([]ledger.MentionRecord, 0, len(symbols))
	for _, sym := range symbols {
		records = append(records, ledger.MentionRecord{
			Ticker:    sym,
			Author:    ledger.Author{ID: m.AuthorID, DisplayName: m.AuthorName},
			MessageID: m.ID.String(),
			ChannelID: m.ChannelID,
			GuildID:   m.GuildID,
			Link:      m.Link,
			Timestamp: m.CreatedAt.UTC(),
			Content:   m.Content,
		})
	}
	return records
}

// ContextRecord shapes a message into its context log form.
func ContextRecord(m Message) contextlog.Record {
	return contextlog.Record{
		MsgLink:     m.Link,
		RefMsgLink:  m.RefLink,
		Author:      m.AuthorName,
		Content:     m.Content,
		CreatedAt:   m.CreatedAt,
		Attachments: m.Attachments,
	}
}
