package smartlog

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/graph"
	"github.com/untoldecay/Branchless/internal/metadata"
	"github.com/untoldecay/Branchless/internal/mergebase"
)

// RenderAtCursor renders the full smartlog for the repository state at
// the given event cursor. Used by the undo selector to preview past
// states.
func RenderAtCursor(
	ctx context.Context,
	repo *git.Repo,
	mbCache *mergebase.Cache,
	replayer *eventlog.Replayer,
	cursor eventlog.Cursor,
	glyphs Glyphs,
	now time.Time,
	relativeTimes bool,
) (string, error) {
	headOID := ""
	if head := replayer.GetCursorHeadOID(cursor); head != nil {
		headOID = string(*head)
	}
	mainOID, err := replayer.GetCursorMainBranchOID(ctx, cursor, repo)
	if err != nil {
		return "", err
	}
	branchOidToNames, err := replayer.GetCursorBranchOIDToNames(ctx, cursor, repo)
	if err != nil {
		return "", err
	}
	branchOIDs := make([]string, 0, len(branchOidToNames))
	branchNames := make(map[string][]string, len(branchOidToNames))
	for oid, names := range branchOidToNames {
		branchOIDs = append(branchOIDs, string(oid))
		branchNames[string(oid)] = names
	}
	sort.Strings(branchOIDs)

	view := replayer.GetCursorView(cursor)
	commitGraph, err := graph.Make(ctx, repo, mbCache, view, graph.Options{
		HeadOID:               headOID,
		MainBranchOID:         string(mainOID),
		BranchOIDs:            branchOIDs,
		RemoveCommitsFromMain: true,
	})
	if err != nil {
		return "", err
	}

	roots := SplitGraphByRoots(ctx, repo, mbCache, commitGraph)
	providers := []metadata.Provider{
		metadata.CommitOidProvider{},
		metadata.RelativeTimeProvider{Now: now, Enabled: relativeTimes},
		metadata.HiddenExplanationProvider{View: view},
		metadata.BranchesProvider{BranchOidToNames: branchNames},
		metadata.DifferentialRevisionProvider{},
		metadata.CommitMessageProvider{},
	}
	lines, err := Render(ctx, glyphs, commitGraph, roots, providers, headOID)
	if err != nil {
		return "", err
	}
	return strings.Join(lines, "\n"), nil
}
