// Package gittest creates throwaway git repositories for tests.
package gittest

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/untoldecay/Branchless/internal/git"
)

// Repo is a scratch repository rooted in a test temp directory.
type Repo struct {
	T    *testing.T
	Dir  string
	Repo *git.Repo

	commitTime time.Time
}

// NewRepo initializes an empty repository with deterministic author
// settings and an initial commit on master.
func NewRepo(t *testing.T) *Repo {
	t.Helper()
	dir := t.TempDir()
	r := &Repo{
		T:   t,
		Dir: dir,
		// Deterministic, strictly-increasing commit times.
		commitTime: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	r.Git("init", "-q", "-b", "master")
	r.Git("config", "user.name", "Testy McTestface")
	r.Git("config", "user.email", "test@example.com")
	r.Git("config", "commit.gpgsign", "false")
	r.Commit("initial commit")

	repo, err := git.DiscoverRepo(context.Background(), dir)
	if err != nil {
		t.Fatalf("discovering test repo: %v", err)
	}
	r.Repo = repo
	return r
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *Repo) Git(args ...string) string {
	r.T.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(),
		"GIT_AUTHOR_DATE="+r.commitTime.Format(time.RFC3339),
		"GIT_COMMITTER_DATE="+r.commitTime.Format(time.RFC3339),
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		r.T.Fatalf("git %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return strings.TrimSpace(string(out))
}

// Commit creates an empty commit with the given message and returns
// its OID. Each commit gets a strictly later timestamp.
func (r *Repo) Commit(message string) string {
	r.T.Helper()
	r.commitTime = r.commitTime.Add(time.Minute)
	r.Git("commit", "-q", "--allow-empty", "-m", message)
	return r.Git("rev-parse", "HEAD")
}

// CommitFile commits a file change and returns the new commit OID.
func (r *Repo) CommitFile(name, contents, message string) string {
	r.T.Helper()
	path := filepath.Join(r.Dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		r.T.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		r.T.Fatalf("writing %s: %v", name, err)
	}
	r.Git("add", name)
	return r.Commit(message)
}

// Checkout switches to the given revision or branch.
func (r *Repo) Checkout(rev string) {
	r.T.Helper()
	r.Git("checkout", "-q", rev)
}

// Branch creates a branch at the given revision.
func (r *Repo) Branch(name, rev string) {
	r.T.Helper()
	r.Git("branch", name, rev)
}

// Head returns the current HEAD OID.
func (r *Repo) Head() string {
	r.T.Helper()
	return r.Git("rev-parse", "HEAD")
}

// DBPath returns a database path inside the repository's git dir.
func (r *Repo) DBPath() string {
	return filepath.Join(r.Repo.GitDir, "branchless", "db.sqlite3")
}

// Describe prints the repo state, for debugging failing tests.
func (r *Repo) Describe() string {
	return fmt.Sprintf("repo at %s:\n%s", r.Dir, r.Git("log", "--all", "--oneline", "--graph"))
}
