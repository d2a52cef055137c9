// Package contextlog maintains the conversational context log: one
// append-only JSONL file per channel per local calendar day, separate
// from the ticker ledger. The question-answering path reads it; nothing
// else does. There are no checkpoints here: retrieval is always "last N
// records" or "one explicit day", and both tolerate reprocessing.
package contextlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Record is one logged chat message.
type Record struct {
	MsgLink     string    `json:"msgLink"`
	RefMsgLink  string    `json:"refMsgLink,omitempty"`
	Author      string    `json:"author"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
	Attachments []string  `json:"attachments,omitempty"`
}

// Log writes and reads per-day context files under a single directory.
// Day boundaries are computed in one fixed location so a message lands
// in the same file no matter when or where it is (re)processed.
type Log struct {
	dir string
	loc *time.Location
	log *slog.Logger
}

// New creates a Log rooted at dir, creating it if needed.
func New(dir string, loc *time.Location, logger *slog.Logger) (*Log, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if loc == nil {
		loc = time.UTC
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create context log dir %s: %w", dir, err)
	}
	return &Log{dir: dir, loc: loc, log: logger.With("component", "contextlog")}, nil
}

// fileName returns the path of the day file holding t for channelID.
func (l *Log) fileName(channelID string, t time.Time) string {
	day := t.In(l.loc).Format("2006-01-02")
	return filepath.Join(l.dir, channelID+"-"+day+".jsonl")
}

// Append writes one record to its day file. Live appends do not dedupe
// against history; the worst case is a harmless duplicate line.
func (l *Log) Append(channelID string, rec Record) error {
	return l.appendAll(l.fileName(channelID, rec.CreatedAt), []Record{rec})
}

// AppendBatch writes records, skipping any whose message link is
// already present in its target day file. Backfill uses this so a
// replayed page does not duplicate history.
func (l *Log) AppendBatch(channelID string, recs []Record) (int, error) {
	byFile := make(map[string][]Record)
	for _, rec := range recs {
		name := l.fileName(channelID, rec.CreatedAt)
		byFile[name] = append(byFile[name], rec)
	}

	written := 0
	for name, batch := range byFile {
		existing, err := l.readFile(name)
		if err != nil {
			return written, err
		}
		seen := make(map[string]struct{}, len(existing))
		for _, rec := range existing {
			seen[rec.MsgLink] = struct{}{}
		}

		fresh := batch[:0]
		for _, rec := range batch {
			if _, dup := seen[rec.MsgLink]; dup {
				continue
			}
			seen[rec.MsgLink] = struct{}{}
			fresh = append(fresh, rec)
		}
		if len(fresh) == 0 {
			continue
		}
		if err := l.appendAll(name, fresh); err != nil {
			return written, err
		}
		written += len(fresh)
	}
	return written, nil
}

// Tail returns the channel's most recent n records in chronological
// order, walking day files backward from the newest.
func (l *Log) Tail(channelID string, n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}

	files, err := l.channelFiles(channelID)
	if err != nil {
		return nil, err
	}

	var collected []Record
	for i := len(files) - 1; i >= 0 && len(collected) < n; i-- {
		recs, err := l.readFile(files[i])
		if err != nil {
			return nil, err
		}
		collected = append(recs, collected...)
	}
	if len(collected) > n {
		collected = collected[len(collected)-n:]
	}
	return collected, nil
}

// Day returns all records logged for channelID on the calendar day
// containing t. A missing day file yields an empty result.
func (l *Log) Day(channelID string, t time.Time) ([]Record, error) {
	return l.readFile(l.fileName(channelID, t))
}

// channelFiles lists the channel's day files sorted oldest first. The
// date is embedded in the name in a sortable form, so lexical order is
// chronological order.
func (l *Log) channelFiles(channelID string) ([]string, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list context log dir: %w", err)
	}

	prefix := channelID + "-"
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		files = append(files, filepath.Join(l.dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (l *Log) appendAll(name string, recs []Record) error {
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open context log file %s: %w", name, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write context log record: %w", err)
		}
	}
	return w.Flush()
}

// readFile parses one day file. A missing file is an empty day; corrupt
// lines are skipped with a warning rather than failing the read.
func (l *Log) readFile(name string) ([]Record, error) {
	f, err := os.Open(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open context log file %s: %w", name, err)
	}
	defer f.Close()

	var recs []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			l.log.Warn("skipping corrupt context log line", "file", name, "error", err)
			continue
		}
		recs = append(recs, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read context log file %s: %w", name, err)
	}
	return recs, nil
}
