// Package undo restores the repository to a previous state by
// inverting the events that have happened since then.
package undo

import (
	"context"
	"fmt"
	"strings"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/metadata"
)

func renderRefName(refName string) string {
	if branch, ok := strings.CutPrefix(refName, "refs/heads/"); ok {
		return "branch " + branch
	}
	return "ref " + refName
}

// renderCommit shows a commit as "<short-oid> <subject>", or a marker
// when the commit no longer exists in the repository.
func renderCommit(ctx context.Context, repo *git.Repo, value string) string {
	commit, err := repo.LookupCommit(ctx, value)
	if err != nil {
		return fmt.Sprintf("<unavailable: %s (possibly GC'ed)>", value)
	}
	line, err := metadata.RenderCommit(commit, []metadata.Provider{
		metadata.CommitOidProvider{},
		metadata.CommitMessageProvider{},
	})
	if err != nil {
		return fmt.Sprintf("<unavailable: %s (possibly GC'ed)>", value)
	}
	return line
}

// DescribeEvent renders a human-readable description of one event,
// possibly spanning multiple lines.
func DescribeEvent(ctx context.Context, repo *git.Repo, event eventlog.Event) []string {
	switch e := event.(type) {
	case eventlog.CommitEvent:
		return []string{"Commit " + renderCommit(ctx, repo, string(e.CommitOID))}

	case eventlog.HideEvent:
		return []string{"Hide commit " + renderCommit(ctx, repo, string(e.CommitOID))}

	case eventlog.UnhideEvent:
		return []string{"Unhide commit " + renderCommit(ctx, repo, string(e.CommitOID))}

	case eventlog.RewriteEvent:
		return []string{
			"Rewrite commit " + renderCommit(ctx, repo, string(e.OldCommitOID)),
			"            as " + renderCommit(ctx, repo, string(e.NewCommitOID)),
		}

	case eventlog.RefUpdateEvent:
		switch {
		case e.RefName == "HEAD" && e.OldRef == nil && e.NewRef != nil:
			// Not sure if this can happen. When a repo is created,
			// maybe?
			return []string{"Check out to " + renderCommit(ctx, repo, *e.NewRef)}

		case e.RefName == "HEAD" && e.OldRef != nil && e.NewRef != nil:
			return []string{
				"Check out from " + renderCommit(ctx, repo, *e.OldRef),
				"            to " + renderCommit(ctx, repo, *e.NewRef),
			}

		case e.OldRef == nil && e.NewRef == nil:
			return []string{
				"Empty event for " + renderRefName(e.RefName),
				"This event should not appear. This is a (benign) bug -- please report it.",
			}

		case e.OldRef == nil:
			return []string{
				"Create " + renderRefName(e.RefName) + " at " + renderCommit(ctx, repo, *e.NewRef),
			}

		case e.NewRef == nil:
			return []string{
				"Delete " + renderRefName(e.RefName) + " at " + renderCommit(ctx, repo, *e.OldRef),
			}

		default:
			refName := renderRefName(e.RefName)
			return []string{
				"Move " + refName + " from " + renderCommit(ctx, repo, *e.OldRef),
				"     " + strings.Repeat(" ", len(refName)) + "   to " + renderCommit(ctx, repo, *e.NewRef),
			}
		}

	default:
		return []string{fmt.Sprintf("Unknown event: %v", event)}
	}
}

// DescribeEventsNumbered renders each event under a "1. " style header,
// with continuation lines indented to match.
func DescribeEventsNumbered(ctx context.Context, repo *git.Repo, events []eventlog.Event) []string {
	var lines []string
	for i, event := range events {
		numHeader := fmt.Sprintf("%d. ", i+1)
		for j, eventLine := range DescribeEvent(ctx, repo, event) {
			prefix := numHeader
			if j > 0 {
				prefix = strings.Repeat(" ", len(numHeader))
			}
			lines = append(lines, prefix+eventLine)
		}
	}
	return lines
}
