// Package hooks installs the git hooks that feed the event log.
package hooks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/untoldecay/Branchless/internal/debug"
	"github.com/untoldecay/Branchless/internal/git"
)

const (
	shebang           = "#!/bin/sh"
	updateMarkerStart = "## START BRANCHLESS CONFIG"
	updateMarkerEnd   = "## END BRANCHLESS CONFIG"
)

// hookKind distinguishes the two hook layouts we can install into.
type hookKind int

const (
	// regularHook is a plain file in the hooks directory, shared with
	// other tools via the sentinel region.
	regularHook hookKind = iota
	// multiHook is one file per subscriber under hooks_multi/<type>.d/.
	multiHook
)

type hook struct {
	kind hookKind
	path string
}

// Scripts are the managed hook bodies, keyed by hook type. The
// reference-transaction body tolerates failure so that a bug in this
// tool cannot cancel the git transaction.
var Scripts = map[string]string{
	"post-commit": `
git branchless hook-post-commit "$@"
`,
	"post-rewrite": `
git branchless hook-post-rewrite "$@"
`,
	"post-checkout": `
git branchless hook-post-checkout "$@"
`,
	"pre-auto-gc": `
git branchless hook-pre-auto-gc "$@"
`,
	"reference-transaction": `
# Avoid canceling the reference transaction in the case that branchless fails
# for whatever reason.
git branchless hook-reference-transaction "$@" || (
    echo 'branchless: Failed to process reference transaction!'
    echo 'branchless: Some events (e.g. branch updates) may have been lost.'
    echo 'branchless: This is a bug. Please report it.'
)
`,
}

// HookTypes lists the installed hooks in a stable order.
var HookTypes = []string{
	"post-commit",
	"post-rewrite",
	"post-checkout",
	"pre-auto-gc",
	"reference-transaction",
}

func determineHookPath(ctx context.Context, repo *git.Repo, hookType string) (hook, error) {
	multiHooksPath := filepath.Join(repo.GitDir, "hooks_multi")
	if _, err := os.Stat(multiHooksPath); err == nil {
		return hook{
			kind: multiHook,
			path: filepath.Join(multiHooksPath, hookType+".d", "00_local_branchless"),
		}, nil
	}
	hooksDir, err := repo.HooksDir(ctx)
	if err != nil {
		return hook{}, fmt.Errorf("determining hook path: %w", err)
	}
	if !filepath.IsAbs(hooksDir) {
		hooksDir = filepath.Join(repo.Root, hooksDir)
	}
	return hook{kind: regularHook, path: filepath.Join(hooksDir, hookType)}, nil
}

// UpdateBetweenLines replaces the sentinel-marked region of a hook file
// with updatedLines, preserving everything outside the region. An
// unterminated region is replaced through EOF, with a warning.
func UpdateBetweenLines(lines string, updatedLines string) string {
	split := strings.Split(lines, "\n")
	if len(split) > 0 && split[len(split)-1] == "" {
		// A newline-terminated file yields one trailing empty element.
		split = split[:len(split)-1]
	}
	var b strings.Builder
	ignoring := false
	sawRegion := false
	for _, line := range split {
		switch {
		case line == updateMarkerStart:
			ignoring = true
			sawRegion = true
			b.WriteString(updateMarkerStart)
			b.WriteString("\n")
			b.WriteString(updatedLines)
			b.WriteString(updateMarkerEnd)
			b.WriteString("\n")
		case line == updateMarkerEnd:
			ignoring = false
		case !ignoring:
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	if !sawRegion {
		// A hook that predates us: append the managed region, leaving
		// the existing content in place.
		b.WriteString(updateMarkerStart)
		b.WriteString("\n")
		b.WriteString(updatedLines)
		b.WriteString(updateMarkerEnd)
		b.WriteString("\n")
	}
	result := b.String()
	if ignoring {
		debug.Logf("unterminated branchless config comment in hook")
	}
	return result
}

func updateHookContents(h hook, hookScript string) error {
	var contents string
	switch h.kind {
	case regularHook:
		existing, err := os.ReadFile(h.path)
		switch {
		case err == nil:
			contents = UpdateBetweenLines(string(existing), hookScript)
		case os.IsNotExist(err):
			contents = fmt.Sprintf("%s\n%s\n%s%s\n", shebang, updateMarkerStart, hookScript, updateMarkerEnd)
		default:
			return fmt.Errorf("reading hook contents: %w", err)
		}
	case multiHook:
		contents = fmt.Sprintf("%s\n%s", shebang, hookScript)
	}

	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return fmt.Errorf("creating hook dir %q: %w", filepath.Dir(h.path), err)
	}
	if err := os.WriteFile(h.path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("writing hook contents to %q: %w", h.path, err)
	}

	// Set the execute bits.
	info, err := os.Stat(h.path)
	if err != nil {
		return fmt.Errorf("reading hook permissions for %q: %w", h.path, err)
	}
	if err := os.Chmod(h.path, info.Mode()|0o111); err != nil {
		return fmt.Errorf("marking %q as executable: %w", h.path, err)
	}
	return nil
}

// Install writes one hook of the given type.
func Install(ctx context.Context, repo *git.Repo, hookType string) error {
	script, ok := Scripts[hookType]
	if !ok {
		return fmt.Errorf("unknown hook type %q", hookType)
	}
	fmt.Printf("Installing hook: %s\n", hookType)
	h, err := determineHookPath(ctx, repo, hookType)
	if err != nil {
		return err
	}
	if err := updateHookContents(h, script); err != nil {
		return fmt.Errorf("installing hook of type %q: %w", hookType, err)
	}
	return nil
}

// InstallAll writes every managed hook.
func InstallAll(ctx context.Context, repo *git.Repo) error {
	for _, hookType := range HookTypes {
		if err := Install(ctx, repo, hookType); err != nil {
			return err
		}
	}
	return nil
}
