package smartlog

import (
	"context"
	"sort"

	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/graph"
	"github.com/untoldecay/Branchless/internal/metadata"
	"github.com/untoldecay/Branchless/internal/mergebase"
	"github.com/untoldecay/Branchless/internal/ui"
)

// SplitGraphByRoots returns the graph's parentless nodes ordered so
// that topologically-earlier roots come first (they render at the top
// of the smartlog, closest to the trunk history).
func SplitGraphByRoots(
	ctx context.Context,
	repo *git.Repo,
	mbCache *mergebase.Cache,
	commitGraph graph.Graph,
) []string {
	var roots []string
	for oid, node := range commitGraph {
		if node.Parent == "" {
			roots = append(roots, oid)
		}
	}
	sort.SliceStable(roots, func(i, j int) bool {
		return CompareRoots(ctx, repo, mbCache, roots[i], roots[j]) < 0
	})
	return roots
}

// CompareRoots is the total order over root commits: ancestors sort
// before descendants; unrelated commits order by timestamp, then OID.
// Commits that cannot be resolved compare by OID.
func CompareRoots(
	ctx context.Context,
	repo *git.Repo,
	mbCache *mergebase.Cache,
	lhs, rhs string,
) int {
	if lhs == rhs {
		return 0
	}
	byOID := func() int {
		switch {
		case lhs < rhs:
			return -1
		case lhs > rhs:
			return 1
		default:
			return 0
		}
	}

	lhsCommit, lhsErr := repo.LookupCommit(ctx, lhs)
	rhsCommit, rhsErr := repo.LookupCommit(ctx, rhs)
	if lhsErr != nil || rhsErr != nil {
		return byOID()
	}

	mergeBase, err := mbCache.GetMergeBaseOID(ctx, repo, lhs, rhs)
	if err != nil {
		return byOID()
	}
	switch mergeBase {
	case lhs:
		// lhs is the ancestor, so it sorts earlier.
		return -1
	case rhs:
		return 1
	}

	switch {
	case lhsCommit.Time < rhsCommit.Time:
		return -1
	case lhsCommit.Time > rhsCommit.Time:
		return 1
	default:
		return byOID()
	}
}

// Render emits the styled smartlog lines for the graph, one subtree per
// root, in root order.
func Render(
	ctx context.Context,
	glyphs Glyphs,
	commitGraph graph.Graph,
	roots []string,
	providers []metadata.Provider,
	headOID string,
) ([]string, error) {
	rootSet := make(map[string]struct{}, len(roots))
	for _, oid := range roots {
		rootSet[oid] = struct{}{}
	}

	// hasRealParent consults the actual commit parents, not the graph
	// links: adjacent main-branch commits are related even when the
	// graph elides the link.
	hasRealParent := func(oid, parentOID string) bool {
		node, ok := commitGraph[oid]
		if !ok {
			return false
		}
		for _, p := range node.Commit.Parents {
			if p == parentOID {
				return true
			}
		}
		return false
	}

	var lines []string
	for rootIdx, rootOID := range roots {
		rootNode, ok := commitGraph[rootOID]
		if !ok {
			continue
		}
		if len(rootNode.Commit.Parents) > 0 {
			// The root has ancestors outside the graph; show how it
			// connects to the previous subtree.
			if rootIdx > 0 && hasRealParent(rootOID, roots[rootIdx-1]) {
				lines = append(lines, glyphs.Line)
			} else {
				lines = append(lines, glyphs.VerticalEllipsis)
			}
		} else if rootIdx > 0 {
			// Topologically unrelated roots are separated by a blank
			// line.
			lines = append(lines, "")
		}

		lastChildLineChar := ""
		if rootIdx+1 < len(roots) {
			if hasRealParent(roots[rootIdx+1], rootOID) {
				lastChildLineChar = glyphs.Line
			} else {
				lastChildLineChar = glyphs.VerticalEllipsis
			}
		}

		subtree, err := renderSubtree(ctx, glyphs, commitGraph, rootSet, providers, headOID, rootOID, lastChildLineChar)
		if err != nil {
			return nil, err
		}
		lines = append(lines, subtree...)
	}
	return lines, nil
}

func renderSubtree(
	ctx context.Context,
	glyphs Glyphs,
	commitGraph graph.Graph,
	rootSet map[string]struct{},
	providers []metadata.Provider,
	headOID string,
	currentOID string,
	lastChildLineChar string,
) ([]string, error) {
	node := commitGraph[currentOID]
	isHead := currentOID == headOID

	text, err := metadata.RenderCommit(node.Commit, providers)
	if err != nil {
		return nil, err
	}
	cursor := glyphs.CursorGlyph(node.IsMain, node.IsVisible, isHead)
	firstLine := cursor + " " + text
	if isHead {
		firstLine = ui.HeadStyle.Render(firstLine)
	}
	lines := []string{firstLine}

	children := make([]string, 0, len(node.Children))
	for _, childOID := range node.Children {
		if _, ok := commitGraph[childOID]; ok {
			children = append(children, childOID)
		}
	}
	sort.SliceStable(children, func(i, j int) bool {
		lhs, rhs := commitGraph[children[i]].Commit, commitGraph[children[j]].Commit
		if lhs.Time != rhs.Time {
			return lhs.Time < rhs.Time
		}
		return children[i] < children[j]
	})

	for childIdx, childOID := range children {
		if _, isRoot := rootSet[childOID]; isRoot {
			// Rendered as its own subtree.
			continue
		}
		isLast := childIdx == len(children)-1

		if !isLast || lastChildLineChar != "" {
			lines = append(lines, glyphs.LineWithOffshoot+glyphs.Slash)
		} else {
			lines = append(lines, glyphs.Line)
		}

		childLines, err := renderSubtree(ctx, glyphs, commitGraph, rootSet, providers, headOID, childOID, "")
		if err != nil {
			return nil, err
		}
		for _, childLine := range childLines {
			switch {
			case isLast && lastChildLineChar != "":
				lines = append(lines, lastChildLineChar+" "+childLine)
			case isLast:
				lines = append(lines, childLine)
			default:
				lines = append(lines, glyphs.Line+" "+childLine)
			}
		}
	}
	return lines, nil
}
