package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/graph"
)

var prevCmd = &cobra.Command{
	Use:   "prev [n]",
	Short: "Check out the previous (parent) commit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := navCount(args)
		if err != nil {
			return err
		}
		ctx := rootCtx
		if err := openEnv(ctx); err != nil {
			return err
		}
		defer closeEnv()
		return repo.Run(ctx, "checkout", fmt.Sprintf("HEAD~%d", n))
	},
}

var nextCmd = &cobra.Command{
	Use:   "next [n]",
	Short: "Check out the next (child) commit in the smartlog",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := navCount(args)
		if err != nil {
			return err
		}
		ctx := rootCtx
		if err := openEnv(ctx); err != nil {
			return err
		}
		defer closeEnv()

		replayer, err := eventlog.FromStore(ctx, store, config.MainBranchRef())
		if err != nil {
			return err
		}
		view := replayer.GetCursorView(replayer.MakeDefaultCursor())
		headOID, err := repo.HeadOID(ctx)
		if err != nil {
			return err
		}
		if headOID == "" {
			return fmt.Errorf("no commit checked out")
		}
		mainOID, err := repo.ResolveRef(ctx, config.MainBranchRef())
		if err != nil {
			return fmt.Errorf("cannot resolve main branch: %w", err)
		}
		branchNames, err := repo.BranchOidToNames(ctx)
		if err != nil {
			return err
		}
		branchOIDs := make([]string, 0, len(branchNames))
		for oid := range branchNames {
			branchOIDs = append(branchOIDs, oid)
		}
		sort.Strings(branchOIDs)

		commitGraph, err := graph.Make(ctx, repo, mbCache, view, graph.Options{
			HeadOID:               headOID,
			MainBranchOID:         mainOID,
			BranchOIDs:            branchOIDs,
			RemoveCommitsFromMain: true,
		})
		if err != nil {
			return err
		}

		current := headOID
		for step := 0; step < n; step++ {
			node, ok := commitGraph[current]
			if !ok || len(node.Children) == 0 {
				return fmt.Errorf("no child commit to check out from %s", eventlog.OID(current).Short())
			}
			if len(node.Children) > 1 {
				candidates := make([]string, 0, len(node.Children))
				for _, child := range node.Children {
					candidates = append(candidates, eventlog.OID(child).Short())
				}
				return fmt.Errorf("ambiguous next commit; candidates: %v", candidates)
			}
			current = node.Children[0]
		}
		return repo.Run(ctx, "checkout", current)
	},
}

func navCount(args []string) (int, error) {
	if len(args) == 0 {
		return 1, nil
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid count: %s", args[0])
	}
	return n, nil
}
