package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
)

var restackCmd = &cobra.Command{
	Use:   "restack",
	Short: "Rebase abandoned commits onto their rewritten parents",
	Long: `Rebase abandoned commits onto their rewritten parents.

When a commit is amended or rebased, its descendants are left behind on
the old version. Restack moves each of them onto the replacement
commit, using the rewrite provenance recorded in the event log.`,
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

		// old OID -> replacement OID, from Rewrite events.
		rewrites := make(map[string]string)
		for oid, status := range view.Commits {
			if status.HiddenReason != nil && status.HiddenReason.RewrittenAs != nil {
				rewrites[string(oid)] = string(*status.HiddenReason.RewrittenAs)
			}
		}
		if len(rewrites) == 0 {
			fmt.Println("No abandoned commits to restack.")
			return nil
		}

		// An abandoned commit is a visible commit whose real parent
		// was rewritten.
		var abandoned []string
		for oid, status := range view.Commits {
			if !status.Visible {
				continue
			}
			commit, err := repo.LookupCommit(ctx, string(oid))
			if err != nil {
				continue
			}
			if _, ok := rewrites[commit.FirstParent()]; ok {
				abandoned = append(abandoned, string(oid))
			}
		}
		sort.Strings(abandoned)
		if len(abandoned) == 0 {
			fmt.Println("No abandoned commits to restack.")
			return nil
		}

		originalHead, err := repo.HeadOID(ctx)
		if err != nil {
			return err
		}

		for _, oid := range abandoned {
			commit, err := repo.LookupCommit(ctx, oid)
			if err != nil {
				continue
			}
			oldParent := commit.FirstParent()
			newParent := rewrites[oldParent]
			fmt.Printf("Restacking commit %s onto %s\n",
				eventlog.OID(oid).Short(), eventlog.OID(newParent).Short())
			// The rebase goes through the git executable so our hooks
			// record the resulting rewrite events.
			if err := repo.Run(ctx, "rebase", "--onto", newParent, oldParent, oid); err != nil {
				return fmt.Errorf("restacking %s: %w", eventlog.OID(oid).Short(), err)
			}
		}

		if originalHead != "" {
			if err := repo.Run(ctx, "checkout", originalHead); err != nil {
				return fmt.Errorf("returning to original HEAD: %w", err)
			}
		}
		fmt.Println("Finished restacking commits.")
		return nil
	},
}
