// Package metadata renders the per-commit annotations shown on each
// smartlog line: OID, relative age, hidden reason, branches, review
// link, and the message subject.
package metadata

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/ui"
)

// Provider renders one piece of commit metadata. A provider may be
// disabled wholesale (e.g. relative times in plain-text output); a
// provider returning "" contributes nothing to the line.
type Provider interface {
	IsEnabled() bool
	Render(commit *git.Commit) (string, error)
}

// RenderCommit applies the providers in order and joins the non-empty
// fragments with single spaces.
func RenderCommit(commit *git.Commit, providers []Provider) (string, error) {
	var fragments []string
	for _, provider := range providers {
		if !provider.IsEnabled() {
			continue
		}
		fragment, err := provider.Render(commit)
		if err != nil {
			return "", err
		}
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return strings.Join(fragments, " "), nil
}

// CommitOidProvider renders the abbreviated commit OID.
type CommitOidProvider struct{}

func (p CommitOidProvider) IsEnabled() bool { return true }

func (p CommitOidProvider) Render(commit *git.Commit) (string, error) {
	return ui.OidStyle.Render(eventlog.OID(commit.OID).Short()), nil
}

// RelativeTimeProvider renders the commit age relative to Now, e.g.
// "3d". Disabled in plain-text output where timestamps would make
// tests and diffs unstable.
type RelativeTimeProvider struct {
	Now     time.Time
	Enabled bool
}

func (p RelativeTimeProvider) IsEnabled() bool { return p.Enabled }

func (p RelativeTimeProvider) Render(commit *git.Commit) (string, error) {
	return ui.MutedStyle.Render(DescribeTimeDelta(p.Now, time.Unix(commit.Time, 0))), nil
}

// DescribeTimeDelta formats the duration between now and then in the
// largest sensible unit.
func DescribeTimeDelta(now, then time.Time) string {
	delta := now.Sub(then)
	if delta < 0 {
		delta = 0
	}
	switch {
	case delta < time.Minute:
		return fmt.Sprintf("%ds", int(delta.Seconds()))
	case delta < time.Hour:
		return fmt.Sprintf("%dm", int(delta.Minutes()))
	case delta < 24*time.Hour:
		return fmt.Sprintf("%dh", int(delta.Hours()))
	case delta < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(delta.Hours()/24))
	case delta < 30*24*time.Hour:
		return fmt.Sprintf("%dw", int(delta.Hours()/(24*7)))
	case delta < 365*24*time.Hour:
		return fmt.Sprintf("%dmo", int(delta.Hours()/(24*30)))
	default:
		return fmt.Sprintf("%dy", int(delta.Hours()/(24*365)))
	}
}

// HiddenExplanationProvider annotates hidden commits with the reason
// they are hidden.
type HiddenExplanationProvider struct {
	View *eventlog.RepoView
}

func (p HiddenExplanationProvider) IsEnabled() bool { return p.View != nil }

func (p HiddenExplanationProvider) Render(commit *git.Commit) (string, error) {
	status, ok := p.View.Commits[eventlog.OID(commit.OID)]
	if !ok || status.HiddenReason == nil {
		return "", nil
	}
	if rewritten := status.HiddenReason.RewrittenAs; rewritten != nil {
		return ui.HiddenStyle.Render(fmt.Sprintf("(rewritten as %s)", rewritten.Short())), nil
	}
	return ui.HiddenStyle.Render("(manually hidden)"), nil
}

// BranchesProvider lists the branches pointing at the commit.
type BranchesProvider struct {
	// BranchOidToNames maps commit OIDs to fully-qualified branch refs.
	BranchOidToNames map[string][]string
}

func (p BranchesProvider) IsEnabled() bool { return len(p.BranchOidToNames) > 0 }

func (p BranchesProvider) Render(commit *git.Commit) (string, error) {
	names := p.BranchOidToNames[commit.OID]
	if len(names) == 0 {
		return "", nil
	}
	shortNames := make([]string, 0, len(names))
	for _, name := range names {
		shortNames = append(shortNames, strings.TrimPrefix(name, "refs/heads/"))
	}
	sort.Strings(shortNames)
	return ui.BranchStyle.Render("(" + strings.Join(shortNames, ", ") + ")"), nil
}

const differentialRevisionTrailer = "Differential Revision:"

// DifferentialRevisionProvider surfaces the code-review revision id
// from the commit message trailer, if any.
type DifferentialRevisionProvider struct{}

func (p DifferentialRevisionProvider) IsEnabled() bool { return true }

func (p DifferentialRevisionProvider) Render(commit *git.Commit) (string, error) {
	for _, line := range strings.Split(commit.Message, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, differentialRevisionTrailer) {
			continue
		}
		value := strings.TrimSpace(strings.TrimPrefix(line, differentialRevisionTrailer))
		// The trailer value is usually a URL whose last path segment
		// is the revision id.
		if idx := strings.LastIndexByte(strings.TrimRight(value, "/"), '/'); idx >= 0 {
			value = strings.TrimRight(value, "/")[idx+1:]
		}
		if value != "" {
			return ui.MutedStyle.Render(value), nil
		}
	}
	return "", nil
}

// CommitMessageProvider renders the message subject.
type CommitMessageProvider struct{}

func (p CommitMessageProvider) IsEnabled() bool { return true }

func (p CommitMessageProvider) Render(commit *git.Commit) (string, error) {
	return commit.Subject, nil
}
