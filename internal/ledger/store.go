package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gammazero/workerpool"

	"tickerbot/internal/snowflake"
)

// Publisher commits the ledger file to an external snapshot target
// (version control in production). Implementations must be idempotent:
// committing an unchanged file is a no-op returning false.
type Publisher interface {
	CommitIfChanged(ctx context.Context, path string) (bool, error)
}

// Store is the single-writer repository over the ledger document.
//
// Every mutation runs through a one-worker pool: callers block on their
// position in the queue, so at most one load-modify-persist cycle is in
// flight at a time and concurrent callers can never overwrite each
// other's changes. Cross-process coordination is out of scope; the
// store assumes it is the only writer of its file.
type Store struct {
	path  string
	pub   Publisher
	queue *workerpool.WorkerPool
	log   *slog.Logger
}

// NewStore creates a Store over the JSON document at path. pub may be
// nil, in which case live writes are not published anywhere.
func NewStore(path string, pub Publisher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		path:  path,
		pub:   pub,
		queue: workerpool.New(1),
		log:   logger.With("component", "ledger_store"),
	}
}

// Close drains the mutation queue and stops the worker. The store must
// not be used afterwards.
func (s *Store) Close() {
	s.queue.StopWait()
}

// Append stages entries into the ledger, deduplicated by
// (messageId, ticker) against both the persisted document and the batch
// itself, and returns the number of net-new records committed. When
// nothing is net-new the document is not rewritten and the updated
// timestamp is untouched. Net-new records on this path are published.
func (s *Store) Append(ctx context.Context, entries []MentionRecord) (int, error) {
	return s.append(ctx, entries, true)
}

// AppendDeferred is Append with the publish side effect suppressed.
// The backfill driver uses it to avoid one external commit per message
// during a large catch-up run; it publishes once at the end instead.
func (s *Store) AppendDeferred(ctx context.Context, entries []MentionRecord) (int, error) {
	return s.append(ctx, entries, false)
}

func (s *Store) append(ctx context.Context, entries []MentionRecord, publish bool) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	var (
		added int
		err   error
	)
	s.run(ctx, func() {
		doc := s.load()

		seen := make(map[string]struct{}, len(doc.Entries))
		for _, e := range doc.Entries {
			seen[e.Key()] = struct{}{}
		}

		for _, e := range entries {
			if _, dup := seen[e.Key()]; dup {
				continue
			}
			seen[e.Key()] = struct{}{}
			doc.Entries = append(doc.Entries, e)
			added++
		}

		if added == 0 {
			return
		}

		doc.Updated = time.Now().UTC()
		if err = s.persist(doc); err != nil {
			return
		}
		s.log.Debug("appended mention records", "added", added, "total", len(doc.Entries))

		if publish {
			s.publishLocked(ctx)
		}
	})
	if err != nil {
		return 0, err
	}
	return added, ctx.Err()
}

// Advance moves the channel's checkpoint to (id, ts) if and only if id
// is strictly greater than the stored checkpoint by snowflake ordering.
// Regressions and duplicates are silently ignored; they are expected
// under page replay and are not errors.
func (s *Store) Advance(ctx context.Context, channelID string, id snowflake.ID, ts time.Time) error {
	if id.IsZero() {
		return nil
	}
	var err error
	s.run(ctx, func() {
		doc := s.load()

		if cp, ok := doc.Checkpoints[channelID]; ok && !cp.ID().Less(id) {
			return
		}
		doc.Checkpoints[channelID] = Checkpoint{
			LastProcessedID: id.String(),
			LastProcessedAt: ts.UTC(),
		}
		err = s.persist(doc)
	})
	if err != nil {
		return err
	}
	return ctx.Err()
}

// LastCheckpoint returns the channel's checkpoint and whether one
// exists. It reads the persisted document directly; writes are atomic
// renames, so the read never observes a torn document.
func (s *Store) LastCheckpoint(ctx context.Context, channelID string) (Checkpoint, bool, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return Checkpoint{}, false, err
	}
	cp, ok := doc.Checkpoints[channelID]
	return cp, ok, nil
}

// Snapshot returns a read-only copy of the ledger document for the
// query layer. It bypasses the mutation queue so reads never block
// ingestion.
func (s *Store) Snapshot(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.load(), nil
}

// Flush blocks until every queued mutation has completed.
func (s *Store) Flush(ctx context.Context) error {
	s.run(ctx, func() {})
	return ctx.Err()
}

// Publish commits the ledger file via the configured publisher. The
// backfill driver calls this once after a run instead of publishing per
// message.
func (s *Store) Publish(ctx context.Context) error {
	s.run(ctx, func() {
		s.publishLocked(ctx)
	})
	return ctx.Err()
}

// run executes op on the store's single worker and waits for it,
// unless the context is already cancelled.
func (s *Store) run(ctx context.Context, op func()) {
	if ctx.Err() != nil {
		return
	}
	s.queue.SubmitWait(op)
}

// publishLocked must only be called from inside a queued operation.
func (s *Store) publishLocked(ctx context.Context) {
	if s.pub == nil {
		return
	}
	committed, err := s.pub.CommitIfChanged(ctx, s.path)
	if err != nil {
		// Publish failures never poison the queue; the next write
		// retries the commit with the accumulated changes.
		s.log.Warn("ledger publish failed", "error", err)
		return
	}
	if committed {
		s.log.Info("ledger snapshot published", "path", s.path)
	}
}

// load reads and parses the persisted document. A missing or corrupt
// file is treated as an empty ledger, never as a fatal error.
func (s *Store) load() *Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("failed to read ledger file, starting empty", "path", s.path, "error", err)
		}
		return NewDocument()
	}

	doc := NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		s.log.Warn("failed to parse ledger file, starting empty", "path", s.path, "error", err)
		return NewDocument()
	}
	return doc
}

// persist writes the whole document back via temp file plus rename so
// concurrent snapshot reads only ever see complete documents.
func (s *Store) persist(doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize ledger: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".ledger-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}
