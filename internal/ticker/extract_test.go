package ticker_test

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"tickerbot/internal/ticker"
)

func writeSymbolFile(t *testing.T, symbols string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "symbols.txt")
	if err := os.WriteFile(path, []byte(symbols), 0o644); err != nil {
		t.Fatalf("failed to write symbol file: %v", err)
	}
	return path
}

func newLexicon(t *testing.T, symbols, blacklist string) *ticker.Lexicon {
	t.Helper()
	lex, err := ticker.LoadLexicon(writeSymbolFile(t, symbols), blacklist)
	if err != nil {
		t.Fatalf("failed to load lexicon: %v", err)
	}
	return lex
}

func TestExtract(t *testing.T) {
	t.Parallel()

	lex := newLexicon(t, "TSLA\nAAPL\nMSFT\nBRK.B\nGO\nF\n", "GO")

	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "dollar prefix and domain suffix",
			text: "Bought some $TSLA today, not tesla.com",
			want: []string{"TSLA"},
		},
		{
			name: "hyphen and dot share class normalize the same",
			text: "BRK-B and BRK.B are same",
			want: []string{"BRK.B"},
		},
		{
			name: "plain symbol",
			text: "AAPL to the moon",
			want: []string{"AAPL"},
		},
		{
			name: "repeated mention dedupes",
			text: "TSLA TSLA TSLA",
			want: []string{"TSLA"},
		},
		{
			name: "adjacent symbols",
			text: "AAPL MSFT TSLA",
			want: []string{"AAPL", "MSFT", "TSLA"},
		},
		{
			name: "lowercase mention",
			text: "thinking about tsla again",
			want: []string{"TSLA"},
		},
		{
			name: "hebrew text abutting a ticker",
			text: "קניתי היוםTSLA בכמות גדולה",
			want: []string{"TSLA"},
		},
		{
			name: "url path fragment is not a ticker",
			text: "https://tradingview.com/chart/AAPL/xyz",
			want: []string{},
		},
		{
			// The only ticker-shaped token sits at the end of a URL
			// path, so the primary pass finds nothing and the ASCII
			// fallback runs. It must reject "/" as a boundary too.
			name: "url tail symbol rejected by fallback pass",
			text: "check tradingview.com/TSLA",
			want: []string{},
		},
		{
			name: "blacklisted symbol never extracted",
			text: "GO is also a real ticker",
			want: []string{},
		},
		{
			name: "trailing sentence punctuation",
			text: "Should I hold MSFT?",
			want: []string{"MSFT"},
		},
		{
			name: "embedded in a longer word",
			text: "FAAPL pattern",
			want: []string{},
		},
		{
			name: "quoted symbol",
			text: `they said "AAPL" yesterday`,
			want: []string{"AAPL"},
		},
		{
			name: "single letter ticker at end",
			text: "long F",
			want: []string{"F"},
		},
		{
			name: "empty text",
			text: "",
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ticker.Extract(tt.text, lex)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestBlacklistPrecedence(t *testing.T) {
	t.Parallel()

	// GO is in both the universe and the blacklist: blacklist wins.
	lex := newLexicon(t, "GO\nTSLA\n", "GO")
	got := ticker.Extract("GO long on GO", lex)
	if len(got) != 0 {
		t.Errorf("blacklisted symbol extracted: %v", got)
	}
}

func TestDefaultBlacklistApplied(t *testing.T) {
	t.Parallel()

	// No configured blacklist: the built-in default list kicks in.
	// ALL and NOW are listed tickers that are also common words.
	lex := newLexicon(t, "ALL\nNOW\nTSLA\n", "")
	got := ticker.Extract("ALL in on TSLA right NOW", lex)
	if !reflect.DeepEqual(got, []string{"TSLA"}) {
		t.Errorf("Extract = %v, want [TSLA]", got)
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"$tsla", "TSLA"},
		{"brk-b", "BRK.B"},
		{"BRK.B", "BRK.B"},
		{"aapl", "AAPL"},
	}

	for _, tt := range tests {
		if got := ticker.Normalize(tt.input); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestLoadLexiconMissingFileIsFatal(t *testing.T) {
	t.Parallel()

	if _, err := ticker.LoadLexicon(filepath.Join(t.TempDir(), "absent.txt"), ""); err == nil {
		t.Fatal("expected error for missing symbol file")
	}
}

func TestLoadLexiconEmptyFileIsFatal(t *testing.T) {
	t.Parallel()

	_, err := ticker.LoadLexicon(writeSymbolFile(t, "# comment only\n\n"), "")
	if err == nil {
		t.Fatal("expected ErrNoSymbols for empty symbol file")
	}
}

func TestBlacklistSeparators(t *testing.T) {
	t.Parallel()

	lex := newLexicon(t, "AAA\nBBB\nCCC\nDDD\n", "AAA,BBB;CCC\nddd")
	for _, sym := range []string{"AAA", "BBB", "CCC", "DDD"} {
		if got := ticker.Extract("holding "+sym, lex); len(got) != 0 {
			t.Errorf("blacklisted %s extracted: %v", sym, got)
		}
	}
}

func TestReloadPicksUpFileChanges(t *testing.T) {
	t.Parallel()

	path := writeSymbolFile(t, "TSLA\n")
	lex, err := ticker.LoadLexicon(path, "")
	if err != nil {
		t.Fatalf("failed to load lexicon: %v", err)
	}

	if err := os.WriteFile(path, []byte("TSLA\nAAPL\n"), 0o644); err != nil {
		t.Fatalf("failed to rewrite symbol file: %v", err)
	}

	// The original lexicon is immutable; only Reload sees the change.
	if got := ticker.Extract("buy AAPL", lex); len(got) != 0 {
		t.Errorf("stale lexicon should not know AAPL, got %v", got)
	}

	fresh, err := lex.Reload()
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if got := ticker.Extract("buy AAPL", fresh); !reflect.DeepEqual(got, []string{"AAPL"}) {
		t.Errorf("reloaded lexicon Extract = %v, want [AAPL]", got)
	}
}
