// Package stats provides read-side views over a ledger snapshot:
// per-ticker aggregation, per-user views, the first-mention
// leaderboard, and the time-bounded gain ranking. Everything here is a
// pure transformation over data the caller already loaded; nothing
// blocks ingestion.
package stats

import (
	"sort"
	"time"

	"tickerbot/internal/ledger"
)

// Occurrence pins one mention in time.
type Occurrence struct {
	Timestamp time.Time
	Link      string
	Author    ledger.Author
}

// TickerAgg summarizes all mentions of one symbol.
type TickerAgg struct {
	Symbol string
	Count  int
	First  Occurrence
	Last   Occurrence
}

// LeaderEntry is one row of the first-mention leaderboard.
type LeaderEntry struct {
	Author ledger.Author
	// Count is the number of distinct tickers this user was first to
	// mention, which is a different metric from raw mention volume.
	Count int
}

// AggregateTickers groups the ledger by symbol. First and last
// occurrences use strict comparisons, so ties keep the record seen
// earliest in document order.
func AggregateTickers(doc *ledger.Document) []TickerAgg {
	bySymbol := make(map[string]*TickerAgg)
	for _, e := range doc.Entries {
		occ := Occurrence{Timestamp: e.Timestamp, Link: e.Link, Author: e.Author}

		agg, ok := bySymbol[e.Ticker]
		if !ok {
			bySymbol[e.Ticker] = &TickerAgg{Symbol: e.Ticker, Count: 1, First: occ, Last: occ}
			continue
		}
		agg.Count++
		if occ.Timestamp.Before(agg.First.Timestamp) {
			agg.First = occ
		}
		if occ.Timestamp.After(agg.Last.Timestamp) {
			agg.Last = occ
		}
	}

	aggs := make([]TickerAgg, 0, len(bySymbol))
	for _, agg := range bySymbol {
		aggs = append(aggs, *agg)
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].Count != aggs[j].Count {
			return aggs[i].Count > aggs[j].Count
		}
		return aggs[i].Symbol < aggs[j].Symbol
	})
	return aggs
}

// UserTickers aggregates only the given user's mentions.
func UserTickers(doc *ledger.Document, userID string) []TickerAgg {
	filtered := &ledger.Document{}
	for _, e := range doc.Entries {
		if e.Author.ID == userID {
			filtered.Entries = append(filtered.Entries, e)
		}
	}
	return AggregateTickers(filtered)
}

// FirstMentionLeaderboard counts, per user, how many distinct tickers
// they were the first to mention. Sorted by count descending, then by
// display name for stable output.
func FirstMentionLeaderboard(doc *ledger.Document) []LeaderEntry {
	byUser := make(map[string]*LeaderEntry)
	for _, agg := range AggregateTickers(doc) {
		entry, ok := byUser[agg.First.Author.ID]
		if !ok {
			byUser[agg.First.Author.ID] = &LeaderEntry{Author: agg.First.Author, Count: 1}
			continue
		}
		entry.Count++
	}

	leaders := make([]LeaderEntry, 0, len(byUser))
	for _, entry := range byUser {
		leaders = append(leaders, *entry)
	}
	sort.Slice(leaders, func(i, j int) bool {
		if leaders[i].Count != leaders[j].Count {
			return leaders[i].Count > leaders[j].Count
		}
		return leaders[i].Author.DisplayName < leaders[j].Author.DisplayName
	})
	return leaders
}
