// Package backfill implements catch-up ingestion over a channel's
// message history. It resumes from the channel checkpoint (or a
// synthetic lookback bound when none exists), pages strictly forward,
// funnels each eligible message through the shared ingestion pipeline
// with the per-message publish side effect suppressed, and publishes
// the ledger exactly once at the end of the run.
package backfill

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"tickerbot/internal/contextlog"
	"tickerbot/internal/ingest"
	"tickerbot/internal/ledger"
	"tickerbot/internal/snowflake"
)

const defaultPageSize = 100

// History supplies pages of historical messages in ascending ID order,
// strictly after the given ID. An empty page means the channel is
// exhausted. The platform adapter implements this.
type History interface {
	MessagesAfter(ctx context.Context, channelID string, after snowflake.ID, limit int) ([]ingest.Message, error)
}

// Driver runs backfill passes over channels.
type Driver struct {
	history  History
	store    *ledger.Store
	ctxlog   *contextlog.Log
	svc      *ingest.Service
	lookback time.Duration
	pageSize int
	log      *slog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// New creates a Driver. lookbackDays bounds how far a first run (no
// checkpoint yet) reaches into history.
func New(history History, store *ledger.Store, ctxlog *contextlog.Log, svc *ingest.Service, lookbackDays int, logger *slog.Logger) *Driver {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if lookbackDays <= 0 {
		lookbackDays = 7
	}
	return &Driver{
		history:  history,
		store:    store,
		ctxlog:   ctxlog,
		svc:      svc,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		pageSize: defaultPageSize,
		log:      logger.With("component", "backfill"),
		now:      time.Now,
	}
}

// Run executes one backfill pass over channelID and returns the number
// of messages scanned. Re-running with an unchanged checkpoint scans
// nothing and publishes nothing; an interrupted run resumes from the
// last checkpoint actually advanced, reprocessing at most one in-flight
// page, which the ledger's dedup absorbs.
func (d *Driver) Run(ctx context.Context, channelID string) (int, error) {
	log := d.log.With("channel_id", channelID)

	cursor, err := d.startPoint(ctx, channelID)
	if err != nil {
		return 0, err
	}
	log.Info("starting backfill", "after", cursor.String())

	scanned := 0
	for {
		if err := ctx.Err(); err != nil {
			return scanned, err
		}

		page, err := d.history.MessagesAfter(ctx, channelID, cursor, d.pageSize)
		if err != nil {
			return scanned, fmt.Errorf("failed to fetch history page after %s: %w", cursor.String(), err)
		}
		if len(page) == 0 {
			break
		}

		sort.Slice(page, func(i, j int) bool { return page[i].ID.Less(page[j].ID) })

		if err := d.processPage(ctx, channelID, page); err != nil {
			return scanned, err
		}

		scanned += len(page)
		cursor = page[len(page)-1].ID
	}

	if scanned > 0 {
		// One terminal commit for the whole run instead of one external
		// write per message.
		if err := d.store.Flush(ctx); err != nil {
			return scanned, fmt.Errorf("failed to flush ledger queue: %w", err)
		}
		if err := d.store.Publish(ctx); err != nil {
			return scanned, fmt.Errorf("failed to publish ledger: %w", err)
		}
	}

	log.Info("backfill finished", "scanned", scanned)
	return scanned, nil
}

// startPoint resolves where the run begins: strictly after the stored
// checkpoint when one exists, otherwise a synthetic ID encoding
// now-lookback so a fresh channel does not require enumerating all
// history.
func (d *Driver) startPoint(ctx context.Context, channelID string) (snowflake.ID, error) {
	cp, ok, err := d.store.LastCheckpoint(ctx, channelID)
	if err != nil {
		return 0, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	if ok {
		return cp.ID(), nil
	}
	return snowflake.FromTime(d.now().Add(-d.lookback)), nil
}

func (d *Driver) processPage(ctx context.Context, channelID string, page []ingest.Message) error {
	// Context log first, one deduplicated batch per page.
	var ctxRecords []contextlog.Record
	for _, m := range page {
		if m.Eligible() {
			ctxRecords = append(ctxRecords, ingest.ContextRecord(m))
		}
	}
	if len(ctxRecords) > 0 {
		if _, err := d.ctxlog.AppendBatch(channelID, ctxRecords); err != nil {
			d.log.Warn("context log batch append failed", "channel_id", channelID, "error", err)
		}
	}

	for _, m := range page {
		if m.Eligible() {
			if mentions := d.svc.BuildMentions(m); len(mentions) > 0 {
				if _, err := d.store.AppendDeferred(ctx, mentions); err != nil {
					return fmt.Errorf("failed to append mentions for message %s: %w", m.ID.String(), err)
				}
			}
		}
		// The checkpoint covers everything scanned, ineligible traffic
		// included, so a channel whose tail is bot chatter is not
		// re-fetched on the next run.
		if err := d.store.Advance(ctx, channelID, m.ID, m.CreatedAt); err != nil {
			return fmt.Errorf("failed to advance checkpoint to %s: %w", m.ID.String(), err)
		}
	}
	return nil
}
