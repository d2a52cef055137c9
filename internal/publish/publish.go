// Package publish mirrors ledger snapshots into a git repository so the
// mention history survives host loss and stays auditable.
package publish

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"path/filepath"
	"time"
)

// Noop satisfies the ledger's publisher contract without touching git.
// Used when publishing is disabled in configuration and in tests.
type Noop struct{}

func (Noop) CommitIfChanged(context.Context, string) (bool, error) { return false, nil }

// Git commits a file into a local repository working tree whenever its
// staged content differs from HEAD. Pushing is left to an out-of-band
// mirror job so a flaky remote never blocks message handling.
type Git struct {
	repoDir string
	log     *slog.Logger
}

func NewGit(repoDir string, logger *slog.Logger) *Git {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Git{
		repoDir: repoDir,
		log:     logger.With("component", "publish"),
	}
}

// CommitIfChanged stages path and commits it when the staged content
// differs from HEAD. Returns true when a commit was created.
func (g *Git) CommitIfChanged(ctx context.Context, path string) (bool, error) {
	rel, err := filepath.Rel(g.repoDir, path)
	if err != nil || !filepath.IsLocal(rel) {
		// Fall back to the absolute path; git resolves it against the
		// work tree as long as it lives inside.
		rel = path
	}

	if out, err := g.git(ctx, "add", "--", rel); err != nil {
		return false, fmt.Errorf("git add failed: %w\noutput: %s", err, out)
	}

	// diff --cached --quiet exits 1 when the index differs from HEAD.
	if _, err := g.git(ctx, "diff", "--cached", "--quiet", "--", rel); err == nil {
		g.log.Debug("no staged changes, skipping commit", "path", rel)
		return false, nil
	}

	msg := fmt.Sprintf("Update %s (%s)", filepath.Base(path), time.Now().UTC().Format("2006-01-02 15:04 UTC"))
	if out, err := g.git(ctx, "commit", "-m", msg, "--", rel); err != nil {
		return false, fmt.Errorf("git commit failed: %w\noutput: %s", err, out)
	}

	g.log.Info("committed snapshot", "path", rel)

	return true, nil
}

func (g *Git) git(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.repoDir
	out, err := cmd.CombinedOutput()

	return string(out), err
}
