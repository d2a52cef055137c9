// Package ticker implements stock-symbol extraction from chat text.
// Candidates are matched with boundary-aware pattern rules and validated
// against a lexicon: a symbol universe loaded from a reference file and
// a blacklist of common words that collide with real tickers.
package ticker

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrNoSymbols is returned when the symbol reference file is missing or
// contains no symbols. Extraction cannot run without a symbol universe.
var ErrNoSymbols = errors.New("symbol universe is empty")

// defaultBlacklist covers English words and chat shorthand that are
// also listed tickers. Used when no blacklist is configured.
var defaultBlacklist = []string{
	"A", "ALL", "AM", "AN", "ANY", "ARE", "AT", "BE", "BIG", "BY",
	"CAN", "CEO", "DD", "DO", "EPS", "ETF", "EV", "FOR", "GO", "HAS",
	"HE", "IMO", "IPO", "IT", "LOL", "LOW", "ME", "NEW", "NOW", "ON",
	"ONE", "OR", "OUT", "PM", "SO", "TA", "THE", "UP", "USA", "WE",
	"YOLO",
}

// Lexicon is the immutable symbol universe plus blacklist used by
// Extract. It is constructed once at startup and replaced wholesale by
// Reload on operator action; it is never mutated in place.
type Lexicon struct {
	symbols   map[string]struct{}
	blacklist map[string]struct{}

	symbolsPath   string
	blacklistSpec string
}

// LoadLexicon reads the newline-delimited symbol file at symbolsPath
// and parses blacklistSpec (newline, comma, or semicolon separated,
// falling back to the built-in default list when empty).
func LoadLexicon(symbolsPath, blacklistSpec string) (*Lexicon, error) {
	symbols, err := loadSymbols(symbolsPath)
	if err != nil {
		return nil, err
	}

	return &Lexicon{
		symbols:       symbols,
		blacklist:     parseBlacklist(blacklistSpec),
		symbolsPath:   symbolsPath,
		blacklistSpec: blacklistSpec,
	}, nil
}

// Reload re-reads the lexicon from its original sources and returns a
// fresh Lexicon. The receiver is left untouched so in-flight extraction
// keeps a consistent view.
func (l *Lexicon) Reload() (*Lexicon, error) {
	return LoadLexicon(l.symbolsPath, l.blacklistSpec)
}

// Size returns the number of known symbols.
func (l *Lexicon) Size() int {
	return len(l.symbols)
}

// Accepts reports whether a normalized symbol is in the universe and
// not blacklisted. The blacklist takes precedence.
func (l *Lexicon) Accepts(symbol string) bool {
	if _, blocked := l.blacklist[symbol]; blocked {
		return false
	}
	_, ok := l.symbols[symbol]
	return ok
}

func loadSymbols(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open symbol file %s: %w", path, err)
	}
	defer f.Close()

	symbols := make(map[string]struct{})
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		symbols[Normalize(line)] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read symbol file %s: %w", path, err)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSymbols, path)
	}
	return symbols, nil
}

func parseBlacklist(spec string) map[string]struct{} {
	items := defaultBlacklist
	if strings.TrimSpace(spec) != "" {
		items = strings.FieldsFunc(spec, func(r rune) bool {
			return r == '\n' || r == ',' || r == ';'
		})
	}

	blacklist := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		blacklist[Normalize(item)] = struct{}{}
	}
	return blacklist
}

// Normalize maps a raw candidate to its canonical symbol form: leading
// "$" stripped, uppercased, and hyphenated share classes rewritten with
// a dot (BRK-B -> BRK.B).
func Normalize(raw string) string {
	s := strings.TrimPrefix(raw, "$")
	s = strings.ToUpper(s)
	return strings.ReplaceAll(s, "-", ".")
}
