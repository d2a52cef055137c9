package discord

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"tickerbot/internal/stats"
)

func formatTickerAggs(header string, aggs []stats.TickerAgg) string {
	var sb strings.Builder
	sb.WriteString(header + ":\n")
	for _, agg := range aggs {
		noun := "mentions"
		if agg.Count == 1 {
			noun = "mention"
		}
		sb.WriteString(fmt.Sprintf("%s: %d %s, first by %s on %s (%s)\n",
			agg.Symbol, agg.Count, noun,
			agg.First.Author.DisplayName,
			agg.First.Timestamp.Format("2006-01-02"),
			agg.First.Link))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatLeaders(leaders []stats.LeaderEntry) string {
	var sb strings.Builder
	sb.WriteString("First-mention leaderboard:\n")
	for i, l := range leaders {
		noun := "tickers"
		if l.Count == 1 {
			noun = "ticker"
		}
		sb.WriteString(fmt.Sprintf("%d. %s: first on %d %s\n", i+1, l.Author.DisplayName, l.Count, noun))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatGains renders a ranked gainers list as plain chat text. Shared
// by the !gainers command and the scheduled daily post.
func FormatGains(gains []stats.Gain) string {
	var sb strings.Builder
	sb.WriteString("Top gainers:\n")
	for i, g := range gains {
		sb.WriteString(fmt.Sprintf("%d. %s %+.2f%% (%.2f -> %.2f since %s)\n",
			i+1, g.Symbol, g.Percent, g.Basis, g.Latest, g.Anchor.Format("2006-01-02")))
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatReload(size int) string {
	return fmt.Sprintf("Symbol list reloaded, %d symbols active.", size)
}

// chunkMessage splits content at the platform message size limit,
// preferring newline boundaries.
func chunkMessage(content string, limit int) []string {
	if content == "" {
		return nil
	}
	if len(content) <= limit {
		return []string{content}
	}

	var chunks []string
	for len(content) > limit {
		cut := strings.LastIndexByte(content[:limit], '\n')
		if cut <= 0 {
			cut = limit
			// Never split inside a multi-byte rune.
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
		}
		chunks = append(chunks, strings.TrimRight(content[:cut], "\n"))
		content = strings.TrimLeft(content[cut:], "\n")
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}
