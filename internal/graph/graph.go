// Package graph derives the displayable DAG of commits the user is
// still working on from a replayed repository view.
package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/git"
	"github.com/untoldecay/Branchless/internal/mergebase"
)

// Node is one commit in the rendered graph. Links are OIDs rather than
// pointers so that the structure stays acyclic under ownership.
type Node struct {
	Commit *git.Commit
	// Parent is the nearest in-graph ancestor, or "" for a graph root.
	Parent string
	// Children are in-graph commits whose Parent is this node.
	Children []string
	// IsMain marks commits on the main branch.
	IsMain bool
	// IsVisible marks commits that are part of the working set.
	IsVisible bool
}

// Graph maps commit OIDs to their nodes.
type Graph map[string]*Node

// Options identify the inputs to a graph construction beyond the
// replayed view.
type Options struct {
	HeadOID       string
	MainBranchOID string
	BranchOIDs    []string
	// RemoveCommitsFromMain prunes main-branch commits that do not
	// anchor any stack.
	RemoveCommitsFromMain bool
}

// Make builds the commit graph at a replayed view. Seeds are the main
// tip, HEAD, all branch heads, and every visible commit; each seed is
// connected to the main branch through its merge base.
func Make(
	ctx context.Context,
	repo *git.Repo,
	mbCache *mergebase.Cache,
	view *eventlog.RepoView,
	opts Options,
) (Graph, error) {
	mainOID := opts.MainBranchOID
	if mainOID == "" {
		return nil, fmt.Errorf("building commit graph: no main branch OID")
	}

	seeds := make(map[string]struct{})
	seeds[mainOID] = struct{}{}
	if opts.HeadOID != "" {
		seeds[opts.HeadOID] = struct{}{}
	}
	for _, oid := range opts.BranchOIDs {
		seeds[oid] = struct{}{}
	}
	for oid, status := range view.Commits {
		if status.Visible || status.CommittedByUser && status.HiddenReason == nil {
			seeds[string(oid)] = struct{}{}
		}
	}

	graph := make(Graph)
	mainMembers := map[string]struct{}{mainOID: {}}
	addNode := func(oid string) error {
		if _, ok := graph[oid]; ok {
			return nil
		}
		commit, err := repo.LookupCommit(ctx, oid)
		if err != nil {
			// The commit may have been garbage collected; elide it.
			return nil
		}
		graph[oid] = &Node{Commit: commit}
		return nil
	}

	// Deterministic iteration keeps merge-base queries and cache writes
	// in a stable order.
	sortedSeeds := make([]string, 0, len(seeds))
	for oid := range seeds {
		sortedSeeds = append(sortedSeeds, oid)
	}
	sort.Strings(sortedSeeds)

	mergeBases := make(map[string]struct{})
	for _, seed := range sortedSeeds {
		if seed == mainOID {
			continue
		}
		mergeBase, err := mbCache.GetMergeBaseOID(ctx, repo, seed, mainOID)
		if err != nil {
			return nil, fmt.Errorf("finding merge base of %s: %w", seed, err)
		}
		chain, err := repo.WalkFirstParents(ctx, seed, mergeBase)
		if err != nil {
			// Seed no longer resolves; skip it.
			continue
		}
		for _, oid := range chain {
			if err := addNode(oid); err != nil {
				return nil, err
			}
		}
		if mergeBase != "" {
			mergeBases[mergeBase] = struct{}{}
			if seed == mergeBase {
				// The seed is itself on the main branch.
				mainMembers[seed] = struct{}{}
			}
		}
	}

	// Fill in the main branch between each merge base and the tip. The
	// union over all merge bases spans from the oldest one upward.
	if err := addNode(mainOID); err != nil {
		return nil, err
	}
	sortedMergeBases := make([]string, 0, len(mergeBases))
	for oid := range mergeBases {
		sortedMergeBases = append(sortedMergeBases, oid)
	}
	sort.Strings(sortedMergeBases)
	for _, mergeBase := range sortedMergeBases {
		if err := addNode(mergeBase); err != nil {
			return nil, err
		}
		mainMembers[mergeBase] = struct{}{}
		chain, err := repo.WalkFirstParents(ctx, mainOID, mergeBase)
		if err != nil {
			return nil, fmt.Errorf("walking main branch: %w", err)
		}
		for _, oid := range chain {
			if err := addNode(oid); err != nil {
				return nil, err
			}
			mainMembers[oid] = struct{}{}
		}
	}

	for oid, node := range graph {
		node.IsMain = containsKey(mainMembers, oid)
		status := view.Commits[eventlog.OID(oid)]
		node.IsVisible = status.Visible || node.IsMain
	}

	linkParents(graph, repo)

	if opts.RemoveCommitsFromMain {
		pruneMain(graph, mainOID, opts.HeadOID, opts.BranchOIDs)
	}

	return graph, nil
}

func containsKey(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}

// linkParents sets each node's parent to its first in-graph ancestor
// along the first-parent chain, and mirrors the reverse child edges.
func linkParents(graph Graph, repo *git.Repo) {
	for oid, node := range graph {
		parent := node.Commit.FirstParent()
		for parent != "" {
			if _, ok := graph[parent]; ok {
				break
			}
			// Every graph commit was cached during the ancestor walks,
			// so a cache miss means we have left the working set.
			commit, ok := repo.PeekCommit(parent)
			if !ok {
				parent = ""
				break
			}
			parent = commit.FirstParent()
		}
		node.Parent = parent
		if parent != "" {
			graph[parent].Children = append(graph[parent].Children, oid)
		}
	}
	for _, node := range graph {
		sort.Strings(node.Children)
	}
}

// pruneMain drops main-branch nodes that anchor no stack. The main tip,
// HEAD, and branch-pointed commits always survive.
func pruneMain(graph Graph, mainOID, headOID string, branchOIDs []string) {
	keep := make(map[string]struct{})
	keep[mainOID] = struct{}{}
	if headOID != "" {
		keep[headOID] = struct{}{}
	}
	for _, oid := range branchOIDs {
		keep[oid] = struct{}{}
	}
	for oid, node := range graph {
		if node.IsMain {
			continue
		}
		keep[oid] = struct{}{}
		// Every ancestor of a non-main node survives.
		for parent := node.Parent; parent != ""; {
			if _, seen := keep[parent]; seen {
				break
			}
			keep[parent] = struct{}{}
			parent = graph[parent].Parent
		}
	}

	// Relink surviving nodes across the pruned ones before dropping
	// them, then rebuild the child edges.
	newParents := make(map[string]string)
	for oid := range keep {
		node, ok := graph[oid]
		if !ok {
			continue
		}
		parent := node.Parent
		for parent != "" {
			if _, kept := keep[parent]; kept {
				break
			}
			parent = graph[parent].Parent
		}
		newParents[oid] = parent
	}

	for oid := range graph {
		if _, ok := keep[oid]; !ok {
			delete(graph, oid)
		}
	}
	for oid := range graph {
		graph[oid].Parent = newParents[oid]
		graph[oid].Children = nil
	}
	for oid, node := range graph {
		if node.Parent != "" {
			graph[node.Parent].Children = append(graph[node.Parent].Children, oid)
		}
	}
	for _, node := range graph {
		sort.Strings(node.Children)
	}
}
