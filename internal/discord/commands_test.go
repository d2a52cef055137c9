package discord

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"tickerbot/internal/config"
	"tickerbot/internal/contextlog"
	"tickerbot/internal/ingest"
	"tickerbot/internal/ledger"
	"tickerbot/internal/publish"
	"tickerbot/internal/ticker"
)

type fakeGemini struct {
	answer   string
	question string
	history  int
}

func (f *fakeGemini) AnswerQuestion(_ context.Context, question string, history []contextlog.Record) (string, error) {
	f.question = question
	f.history = len(history)
	return f.answer, nil
}

type fixture struct {
	adapter *Adapter
	store   *ledger.Store
	sent    []string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	symbols := filepath.Join(dir, "symbols.txt")
	if err := os.WriteFile(symbols, []byte("TSLA\nAAPL\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	lex, err := ticker.LoadLexicon(symbols, "")
	if err != nil {
		t.Fatal(err)
	}

	store := ledger.NewStore(filepath.Join(dir, "mentions.json"), publish.Noop{}, nil)
	t.Cleanup(store.Close)

	ctxlog, err := contextlog.New(filepath.Join(dir, "context"), time.UTC, nil)
	if err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{}
	cfg.Discord.Token = "test-token"
	cfg.Discord.GuildID = "333"
	cfg.Discord.Channels = []string{"222"}
	cfg.Discord.AdminUserID = "admin"
	cfg.Context.TailSize = 50
	cfg.Gainers.FanOut = 2

	gem := &fakeGemini{answer: "the answer"}
	adapter, err := NewAdapter(HandlerDeps{
		Config:     cfg,
		Ingest:     ingest.NewService(lex, store, ctxlog, nil),
		Store:      store,
		ContextLog: ctxlog,
		Gemini:     gem,
	})
	if err != nil {
		t.Fatal(err)
	}
	adapter.botID = "999"

	fx := &fixture{adapter: adapter, store: store}
	adapter.send = func(_, content string) error {
		fx.sent = append(fx.sent, content)
		return nil
	}

	return fx
}

func (fx *fixture) lastSent(t *testing.T) string {
	t.Helper()
	if len(fx.sent) == 0 {
		t.Fatal("no message sent")
	}
	return fx.sent[len(fx.sent)-1]
}

func incoming(channelID, authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{Message: &discordgo.Message{
		ID:        "1100000000000000000",
		ChannelID: channelID,
		GuildID:   "333",
		Content:   content,
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Author:    &discordgo.User{ID: authorID, Username: authorID},
	}}
}

func seedMentions(t *testing.T, fx *fixture) {
	t.Helper()

	_, err := fx.store.Append(context.Background(), []ledger.MentionRecord{
		{Ticker: "TSLA", MessageID: "1", ChannelID: "222",
			Author:    ledger.Author{ID: "alice", DisplayName: "alice"},
			Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)},
		{Ticker: "TSLA", MessageID: "2", ChannelID: "222",
			Author:    ledger.Author{ID: "bob", DisplayName: "bob"},
			Timestamp: time.Date(2024, 5, 2, 10, 0, 0, 0, time.UTC)},
		{Ticker: "AAPL", MessageID: "3", ChannelID: "222",
			Author:    ledger.Author{ID: "bob", DisplayName: "bob"},
			Timestamp: time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)},
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCommandTickersEmptyLedger(t *testing.T) {
	fx := newFixture(t)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "!alltickers"))

	if got := fx.lastSent(t); got != msgNoMentions {
		t.Errorf("reply = %q", got)
	}
}

func TestCommandTickersMineFiltersByAuthor(t *testing.T) {
	fx := newFixture(t)
	seedMentions(t, fx)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "!tickers"))

	got := fx.lastSent(t)
	if !strings.Contains(got, "TSLA") {
		t.Errorf("missing alice's ticker:\n%s", got)
	}
	if strings.Contains(got, "AAPL") {
		t.Errorf("contains other user's ticker:\n%s", got)
	}
}

func TestCommandLeaders(t *testing.T) {
	fx := newFixture(t)
	seedMentions(t, fx)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "!leaders"))

	got := fx.lastSent(t)
	// alice was first on TSLA, bob first on AAPL.
	if !strings.Contains(got, "alice") || !strings.Contains(got, "bob") {
		t.Errorf("leaderboard incomplete:\n%s", got)
	}
}

func TestCommandGainersBadArg(t *testing.T) {
	fx := newFixture(t)
	seedMentions(t, fx)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "!gainers weekly"))

	if got := fx.lastSent(t); !strings.HasPrefix(got, "Usage:") {
		t.Errorf("reply = %q", got)
	}
}

func TestCommandReloadAdminGate(t *testing.T) {
	fx := newFixture(t)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "!reload"))
	if got := fx.lastSent(t); got != msgNotAllowed {
		t.Errorf("non-admin reply = %q", got)
	}

	fx.adapter.handleMessageCreate(nil, incoming("222", "admin", "!reload"))
	if got := fx.lastSent(t); !strings.Contains(got, "reloaded") {
		t.Errorf("admin reply = %q", got)
	}
}

func TestQuestionUsesContextAndStripsMention(t *testing.T) {
	fx := newFixture(t)
	gem := fx.adapter.deps.Gemini.(*fakeGemini)

	m := incoming("222", "alice", "<@999> who mentioned TSLA first?")
	m.Mentions = []*discordgo.User{{ID: "999"}}
	fx.adapter.handleMessageCreate(nil, m)

	if got := fx.lastSent(t); got != "the answer" {
		t.Errorf("reply = %q", got)
	}
	if gem.question != "who mentioned TSLA first?" {
		t.Errorf("question = %q", gem.question)
	}
}

func TestPlainMessageIsIngested(t *testing.T) {
	fx := newFixture(t)

	fx.adapter.handleMessageCreate(nil, incoming("222", "alice", "loading up on $TSLA"))

	doc, err := fx.store.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Entries) != 1 || doc.Entries[0].Ticker != "TSLA" {
		t.Fatalf("entries = %+v", doc.Entries)
	}
	if len(fx.sent) != 0 {
		t.Errorf("chatter must not trigger replies, sent %v", fx.sent)
	}
}

func TestUnwatchedChannelIgnored(t *testing.T) {
	fx := newFixture(t)

	fx.adapter.handleMessageCreate(nil, incoming("777", "alice", "loading up on $TSLA"))

	doc, err := fx.store.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Entries) != 0 {
		t.Fatalf("entries = %+v, want none", doc.Entries)
	}
}
