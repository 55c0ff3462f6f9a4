package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/untoldecay/Branchless/internal/config"
	"github.com/untoldecay/Branchless/internal/eventlog"
)

var hideCmd = &cobra.Command{
	Use:   "hide <commit>...",
	Short: "Hide commits from the smartlog",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hideOrUnhide(args, true)
	},
}

var unhideCmd = &cobra.Command{
	Use:   "unhide <commit>...",
	Short: "Unhide previously-hidden commits",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return hideOrUnhide(args, false)
	},
}

func hideOrUnhide(args []string, hide bool) error {
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

	oids := make([]eventlog.OID, 0, len(args))
	for _, arg := range args {
		resolved, err := repo.ResolveRef(ctx, arg)
		if err != nil {
			return fmt.Errorf("commit not found: %s", arg)
		}
		oid, err := eventlog.ParseOID(resolved)
		if err != nil {
			return err
		}
		oids = append(oids, oid)
	}

	message := "hide"
	if !hide {
		message = "unhide"
	}
	now := time.Now()
	txID, err := store.MakeTransactionID(ctx, now, message)
	if err != nil {
		return err
	}
	timestamp := float64(now.UnixNano()) / 1e9

	events := make([]eventlog.Event, 0, len(oids))
	for _, oid := range oids {
		if hide {
			events = append(events, eventlog.HideEvent{Time: timestamp, TxID: txID, CommitOID: oid})
		} else {
			events = append(events, eventlog.UnhideEvent{Time: timestamp, TxID: txID, CommitOID: oid})
		}
	}
	if err := store.AddEvents(ctx, events); err != nil {
		return err
	}

	for _, oid := range oids {
		status := view.Commits[oid]
		if hide {
			fmt.Printf("Hid commit: %s\n", oid.Short())
			if status.HiddenReason != nil {
				fmt.Println("(It was already hidden, so this operation had no effect.)")
			}
			fmt.Printf("To unhide this commit, run: git unhide %s\n", oid.Short())
		} else {
			fmt.Printf("Unhid commit: %s\n", oid.Short())
			if status.Visible {
				fmt.Println("(It was not hidden, so this operation had no effect.)")
			}
			fmt.Printf("To hide this commit again, run: git hide %s\n", oid.Short())
		}
	}
	return nil
}
