package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	moveSource string
	moveDest   string
)

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Move a subtree of commits onto another commit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if moveDest == "" {
			return fmt.Errorf("a destination commit is required (-d)")
		}
		ctx := rootCtx
		if err := openEnv(ctx); err != nil {
			return err
		}
		defer closeEnv()

		source := moveSource
		if source == "" {
			head, err := repo.HeadOID(ctx)
			if err != nil {
				return err
			}
			if head == "" {
				return fmt.Errorf("no commit checked out and no source given (-s)")
			}
			source = head
		}
		sourceOID, err := repo.ResolveRef(ctx, source)
		if err != nil {
			return fmt.Errorf("commit not found: %s", source)
		}
		destOID, err := repo.ResolveRef(ctx, moveDest)
		if err != nil {
			return fmt.Errorf("commit not found: %s", moveDest)
		}
		// The rebase re-enters our hooks, which record the rewrites.
		return repo.Run(ctx, "rebase", "--onto", destOID, sourceOID+"^", sourceOID)
	},
}

func init() {
	moveCmd.Flags().StringVarP(&moveSource, "source", "s", "", "commit to move (default HEAD)")
	moveCmd.Flags().StringVarP(&moveDest, "dest", "d", "", "destination commit")
}
