package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/graph"
	"github.com/untoldecay/Branchless/internal/metadata"
	"github.com/untoldecay/Branchless/internal/smartlog"
	"github.com/untoldecay/Branchless/internal/ui"
)

func glyphSet() smartlog.Glyphs {
	return smartlog.DetectGlyphs(asciiFlag || config.ASCIIGlyphs())
}

var smartlogCmd = &cobra.Command{
	Use:     "smartlog",
	Aliases: []string{"sl"},
	Short:   "Display a graph of the commits you have recently worked on",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		// The present graph reflects the live repository rather than
		// the replayed refs, in case hooks missed an update.
		headOID, err := repo.HeadOID(ctx)
		if err != nil {
			return err
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
		roots := smartlog.SplitGraphByRoots(ctx, repo, mbCache, commitGraph)
		providers := []metadata.Provider{
			metadata.CommitOidProvider{},
			metadata.RelativeTimeProvider{Now: time.Now(), Enabled: ui.IsTerminal()},
			metadata.HiddenExplanationProvider{View: view},
			metadata.BranchesProvider{BranchOidToNames: branchNames},
			metadata.DifferentialRevisionProvider{},
			metadata.CommitMessageProvider{},
		}
		lines, err := smartlog.Render(ctx, glyphSet(), commitGraph, roots, providers, headOID)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Println(line)
		}
		return nil
	},
}
