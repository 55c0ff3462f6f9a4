package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
	"github.com/untoldecay/Branchless/internal/undo"
)

var undoCmd = &cobra.Command{
	Use:   "undo",
	Short: "Restore the repository to a previous state interactively",
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
		selector := &undo.Selector{
			Ctx:      ctx,
			Repo:     repo,
			MBCache:  mbCache,
			Replayer: replayer,
			Glyphs:   glyphSet(),
			Now:      time.Now(),
		}
		code, err := undo.Run(ctx, os.Stdin, os.Stdout, repo, store, selector)
		if err != nil {
			return err
		}
		if code != 0 {
			closeEnv()
			os.Exit(code)
		}
		return nil
	},
}
